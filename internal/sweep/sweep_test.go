package sweep

import (
	"Go2WlanSpectra/internal/config"
	"Go2WlanSpectra/internal/model"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"math"
	"testing"
)

func sweepConfig() *config.Config {
	cfg := config.Default()
	cfg.Sweep = config.SweepConfig{
		Distances:       []float64{20, 140},
		Thresholds:      []float64{-64, -78},
		IncludeDisabled: true,
		Runs:            3,
		Workers:         4,
	}
	return cfg
}

// fakeRun reports a throughput derived from the parameters it was given.
func fakeRun(ctx context.Context, cfg *config.Config) (*model.Report, error) {
	tput := cfg.Experiment.APDistance + float64(cfg.Experiment.Seed)
	if cfg.Radio.EnableObssPd {
		tput += -cfg.Radio.ObssPdThreshold
	}
	return &model.Report{TotalMbps: tput}, nil
}

func TestPoints(t *testing.T) {
	points := Points(sweepConfig().Sweep)
	if len(points) != 6 {
		t.Fatalf("Expected 6 points, got %d", len(points))
	}
	if points[0].Threshold != -64 || points[1].Distance != 140 || !points[3].EnableObssPd {
		t.Errorf("Unexpected order: %+v", points)
	}
	if points[4].EnableObssPd || points[5].Distance != 140 {
		t.Errorf("Disabled series must come last: %+v", points[4:])
	}
}

func TestSweep_Run(t *testing.T) {
	points, err := New(sweepConfig()).WithRunFunc(fakeRun).Run(context.Background())
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	// Seeds 1..3 add 1, 2, 3 to the base value: mean base+2, sample stddev 1.
	for _, p := range points {
		base := p.Distance
		if p.EnableObssPd {
			base += -p.Threshold
		}
		if math.Abs(p.Mean-(base+2)) > 1e-9 {
			t.Errorf("Point %+v: expected mean %f", p, base+2)
		}
		if math.Abs(p.StdDev-1) > 1e-9 {
			t.Errorf("Point %+v: expected stddev 1", p)
		}
	}
}

func TestSweep_RunFailure(t *testing.T) {
	boom := errors.New("engine crashed")
	_, err := New(sweepConfig()).WithRunFunc(func(ctx context.Context, cfg *config.Config) (*model.Report, error) {
		return nil, boom
	}).Run(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("Expected the run error, got %v", err)
	}
}

func TestSweep_EmptyGrid(t *testing.T) {
	cfg := sweepConfig()
	cfg.Sweep.Distances = nil
	if _, err := New(cfg).WithRunFunc(fakeRun).Run(context.Background()); !errors.Is(err, model.ErrConfig) {
		t.Errorf("Expected ErrConfig, got %v", err)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	points := []Point{{Distance: 20, Threshold: -64, EnableObssPd: true, Samples: []float64{1, 2}, Mean: 1.5, StdDev: 0.7071}}
	if err := WriteCSV(&buf, points); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("Failed to read csv: %v", err)
	}
	want := []string{"20", "-64", "true", "1.5000", "0.7071", "2"}
	if len(rows) != 2 || rows[0][0] != "Distance" {
		t.Fatalf("Unexpected rows: %v", rows)
	}
	for i, v := range want {
		if rows[1][i] != v {
			t.Errorf("Column %s: expected %s, got %s", rows[0][i], v, rows[1][i])
		}
	}
}
