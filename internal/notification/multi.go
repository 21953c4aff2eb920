package notification

import (
	"Go2WlanSpectra/internal/config"
	"Go2WlanSpectra/internal/model"
	"errors"
	"fmt"
	"log"
	"strings"
)

// Multi fans a notification out to several notifiers.
type Multi []model.Notifier

func (m Multi) Name() string {
	names := make([]string, len(m))
	for i, n := range m {
		names[i] = n.Name()
	}
	return strings.Join(names, "+")
}

// Send delivers to every notifier and joins the failures.
func (m Multi) Send(subject, body string) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(subject, body); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// FromConfig builds the notifiers whose endpoints are configured.
// It returns nil when none is.
func FromConfig(cfg *config.Config) (model.Notifier, error) {
	var m Multi
	if cfg.SMTP.Host != "" && cfg.SMTP.To != "" {
		m = append(m, NewEmailNotifier(cfg.SMTP))
	}
	if cfg.MQTT.Broker != "" {
		n, err := NewMQTTNotifier(cfg.MQTT)
		if err != nil {
			return nil, err
		}
		m = append(m, n)
	}
	if len(m) == 0 {
		return nil, nil
	}
	log.Printf("Notifications go to %s", m.Name())
	return m, nil
}
