package notification

import (
	"Go2WlanSpectra/internal/config"
	"Go2WlanSpectra/internal/model"
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTNotifier publishes notifications as JSON documents on an MQTT topic.
type MQTTNotifier struct {
	client mqtt.Client
	topic  string
	qos    byte
}

type mqttPayload struct {
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	SentAt  time.Time `json:"sent_at"`
}

// NewMQTTNotifier connects to the broker and returns a notifier publishing on cfg.Topic.
func NewMQTTNotifier(cfg config.MQTTConfig) (model.Notifier, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetConnectTimeout(5 * time.Second).
		SetAutoReconnect(true)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("timed out connecting to mqtt broker %s", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to mqtt broker: %w", err)
	}
	log.Printf("Connected to MQTT broker at %s", cfg.Broker)

	return &MQTTNotifier{client: client, topic: cfg.Topic, qos: cfg.QoS}, nil
}

func (n *MQTTNotifier) Name() string {
	return "mqtt"
}

// Send publishes the notification and waits for the broker acknowledgement.
func (n *MQTTNotifier) Send(subject, body string) error {
	payload, err := json.Marshal(mqttPayload{Subject: subject, Body: body, SentAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	token := n.client.Publish(n.topic, n.qos, false, payload)
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("timed out publishing to '%s'", n.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

// Close disconnects from the broker.
func (n *MQTTNotifier) Close() {
	n.client.Disconnect(250)
}
