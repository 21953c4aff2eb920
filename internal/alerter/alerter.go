package alerter

import (
	"Go2WlanSpectra/internal/config"
	"Go2WlanSpectra/internal/model"
	"context"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
)

// Rule metrics understood by the alerter.
const (
	MetricCellThroughputBelow  = "cell_throughput_below"
	MetricLossRatioAbove       = "loss_ratio_above"
	MetricTotalThroughputBelow = "total_throughput_below"
)

// Alerter is responsible for evaluating run reports against predefined rules
// and triggering notifications if rules are violated.
type Alerter struct {
	rules    []config.AlerterRule
	notifier model.Notifier
	analyzer model.Analyzer
}

// NewAlerter creates a new Alerter instance. The analyzer may be nil.
func NewAlerter(cfg *config.AlerterConfig, notifier model.Notifier, analyzer model.Analyzer) (*Alerter, error) {
	for _, rule := range cfg.Rules {
		switch rule.Metric {
		case MetricCellThroughputBelow, MetricLossRatioAbove, MetricTotalThroughputBelow:
		default:
			return nil, fmt.Errorf("%w: alerter rule '%s' has unknown metric '%s'", model.ErrConfig, rule.Name, rule.Metric)
		}
	}

	a := &Alerter{rules: cfg.Rules, notifier: notifier}
	if cfg.AIAnalysis.Enabled {
		a.analyzer = analyzer
	}
	return a, nil
}

// Evaluate returns one message per violated rule and cell.
// A rule with cell 0 is checked against every cell.
func (a *Alerter) Evaluate(report *model.Report) []string {
	var msgs []string
	for _, rule := range a.rules {
		if rule.Metric == MetricTotalThroughputBelow {
			if report.TotalMbps < rule.Threshold {
				msgs = append(msgs, fmt.Sprintf("%s: total throughput %.2f Mb/s is below %.2f Mb/s",
					rule.Name, report.TotalMbps, rule.Threshold))
			}
			continue
		}

		for i := 1; i < len(report.Cells); i++ {
			if rule.Cell != 0 && rule.Cell != i {
				continue
			}
			c := report.Cells[i]
			switch rule.Metric {
			case MetricCellThroughputBelow:
				if c.ThroughputMbps < rule.Threshold {
					msgs = append(msgs, fmt.Sprintf("%s: BSS %d throughput %.2f Mb/s is below %.2f Mb/s",
						rule.Name, i, c.ThroughputMbps, rule.Threshold))
				}
			case MetricLossRatioAbove:
				if c.LossRatio() > rule.Threshold {
					msgs = append(msgs, fmt.Sprintf("%s: BSS %d lost %d of %d packets (%.1f%%)",
						rule.Name, i, c.LostPackets, c.TxPackets, 100*c.LossRatio()))
				}
			}
		}
	}
	return msgs
}

// Check evaluates the run and sends one consolidated notification when any rule fires.
// renderedReport is the plain-text report handed to the analyzer.
func (a *Alerter) Check(ctx context.Context, result *model.RunResult, renderedReport string) {
	if result.Report == nil {
		return
	}
	msgs := a.Evaluate(result.Report)
	if len(msgs) == 0 {
		return
	}
	log.Printf("Alerter evaluation completed. %d alert(s) triggered.", len(msgs))

	body := "<h1>Go2WlanSpectra Alert Summary</h1>" +
		fmt.Sprintf("<p>Run <code>%s</code> triggered the following alerts:</p><ul>", html.EscapeString(result.RunID))
	for _, msg := range msgs {
		body += "<li>" + html.EscapeString(msg) + "</li>"
	}
	body += "</ul><hr><pre>" + html.EscapeString(renderedReport) + "</pre>"

	if analysis := a.analysis(ctx, strings.Join(msgs, "\n")+"\n\n"+renderedReport); analysis != "" {
		body += "<hr><h2>AI-Powered Analysis</h2>" + string(markdown.ToHTML([]byte(analysis), nil, nil))
	}

	if a.notifier == nil {
		return
	}
	subject := fmt.Sprintf("Go2WlanSpectra Alert Summary (%d Triggered)", len(msgs))
	if err := a.notifier.Send(subject, body); err != nil {
		log.Printf("ERROR: Failed to send consolidated alert notification: %v", err)
	} else {
		log.Printf("INFO: Consolidated alert notification sent successfully.")
	}
}

func (a *Alerter) analysis(ctx context.Context, input string) string {
	if a.analyzer == nil {
		return ""
	}

	log.Println("Requesting AI analysis for alert summary...")
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	out, err := a.analyzer.AnalyzeReport(ctx, input)
	if err != nil {
		log.Printf("Failed to get AI analysis: %v", err)
		return ""
	}
	return out
}
