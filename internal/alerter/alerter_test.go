package alerter

import (
	"Go2WlanSpectra/internal/config"
	"Go2WlanSpectra/internal/model"
	"context"
	"errors"
	"strings"
	"testing"
)

type captureNotifier struct {
	subject, body string
	calls         int
}

func (c *captureNotifier) Name() string { return "capture" }
func (c *captureNotifier) Send(subject, body string) error {
	c.subject, c.body = subject, body
	c.calls++
	return nil
}

type fixedAnalyzer struct {
	out string
	err error
}

func (f fixedAnalyzer) AnalyzeReport(ctx context.Context, report string) (string, error) {
	return f.out, f.err
}

func report() *model.Report {
	return &model.Report{
		Cells: []model.CellSummary{
			{},
			{Cell: 1, ThroughputMbps: 80, TxPackets: 100, LostPackets: 1},
			{Cell: 2, ThroughputMbps: 5, TxPackets: 100, LostPackets: 40},
		},
		TotalMbps: 85,
	}
}

func TestEvaluate(t *testing.T) {
	cfg := &config.AlerterConfig{Rules: []config.AlerterRule{
		{Name: "starved", Metric: MetricCellThroughputBelow, Cell: 0, Threshold: 10},
		{Name: "lossy", Metric: MetricLossRatioAbove, Cell: 2, Threshold: 0.2},
		{Name: "lossy1", Metric: MetricLossRatioAbove, Cell: 1, Threshold: 0.2},
		{Name: "total", Metric: MetricTotalThroughputBelow, Threshold: 100},
	}}
	a, err := NewAlerter(cfg, nil, nil)
	if err != nil {
		t.Fatalf("NewAlerter failed: %v", err)
	}

	msgs := a.Evaluate(report())
	if len(msgs) != 3 {
		t.Fatalf("Expected 3 alerts, got %d: %v", len(msgs), msgs)
	}
	if !strings.Contains(msgs[0], "BSS 2") || !strings.Contains(msgs[1], "40 of 100") || !strings.HasPrefix(msgs[2], "total") {
		t.Errorf("Unexpected alerts: %v", msgs)
	}
}

func TestNewAlerter_UnknownMetric(t *testing.T) {
	cfg := &config.AlerterConfig{Rules: []config.AlerterRule{{Name: "x", Metric: "jitter"}}}
	if _, err := NewAlerter(cfg, nil, nil); !errors.Is(err, model.ErrConfig) {
		t.Errorf("Expected ErrConfig, got %v", err)
	}
}

func TestCheck_SendsWithAnalysis(t *testing.T) {
	n := &captureNotifier{}
	cfg := &config.AlerterConfig{
		Rules:      []config.AlerterRule{{Name: "starved", Metric: MetricCellThroughputBelow, Threshold: 10}},
		AIAnalysis: config.AIAnalysisConfig{Enabled: true},
	}
	a, err := NewAlerter(cfg, n, fixedAnalyzer{out: "**raise** the threshold"})
	if err != nil {
		t.Fatalf("NewAlerter failed: %v", err)
	}

	a.Check(context.Background(), &model.RunResult{RunID: "r1", Report: report()}, "TOTAL Throughput: 85")
	if n.calls != 1 {
		t.Fatalf("Expected one notification, got %d", n.calls)
	}
	if !strings.Contains(n.subject, "(1 Triggered)") {
		t.Errorf("Unexpected subject %q", n.subject)
	}
	if !strings.Contains(n.body, "<strong>raise</strong>") || !strings.Contains(n.body, "TOTAL Throughput: 85") {
		t.Errorf("Unexpected body %q", n.body)
	}
}

func TestCheck_QuietRun(t *testing.T) {
	n := &captureNotifier{}
	cfg := &config.AlerterConfig{Rules: []config.AlerterRule{{Name: "total", Metric: MetricTotalThroughputBelow, Threshold: 1}}}
	a, _ := NewAlerter(cfg, n, fixedAnalyzer{err: errors.New("unused")})
	a.Check(context.Background(), &model.RunResult{Report: report()}, "")
	if n.calls != 0 {
		t.Errorf("Expected no notification")
	}
}
