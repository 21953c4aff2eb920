// Package sweep repeats an experiment over a grid of AP distances and OBSS-PD
// thresholds and summarizes the total throughput of every grid point.
package sweep

import (
	"Go2WlanSpectra/internal/config"
	"Go2WlanSpectra/internal/experiment"
	"Go2WlanSpectra/internal/model"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"sync"

	"gonum.org/v1/gonum/stat"
)

// RunFunc executes a single experiment and returns its report.
type RunFunc func(ctx context.Context, cfg *config.Config) (*model.Report, error)

// Point is one grid point of a sweep and the statistics of its runs.
type Point struct {
	Distance     float64
	Threshold    float64
	EnableObssPd bool
	Samples      []float64
	Mean         float64
	StdDev       float64
}

type job struct {
	point int
	run   int
}

// Sweep runs a grid of experiments on a worker pool.
type Sweep struct {
	cfg     *config.Config
	run     RunFunc
	workers int
}

// New creates a sweep over cfg.Sweep, starting from the experiment in cfg.
func New(cfg *config.Config) *Sweep {
	workers := cfg.Sweep.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Sweep{cfg: cfg, run: runExperiment, workers: workers}
}

// WithRunFunc replaces the function used to execute each run.
func (s *Sweep) WithRunFunc(f RunFunc) *Sweep {
	s.run = f
	return s
}

func runExperiment(ctx context.Context, cfg *config.Config) (*model.Report, error) {
	result, err := experiment.NewRunner(cfg).Run(ctx)
	if err != nil {
		return nil, err
	}
	return result.Report, nil
}

// Points enumerates the grid: every distance with every threshold, then, when
// requested, every distance with OBSS-PD disabled.
func Points(sc config.SweepConfig) []Point {
	var points []Point
	for _, th := range sc.Thresholds {
		for _, d := range sc.Distances {
			points = append(points, Point{Distance: d, Threshold: th, EnableObssPd: true})
		}
	}
	if sc.IncludeDisabled {
		for _, d := range sc.Distances {
			points = append(points, Point{Distance: d, EnableObssPd: false})
		}
	}
	return points
}

// Run executes Runs experiments per grid point and returns the points with their statistics.
// Run r of every point uses seed r+1. The first failing run cancels the sweep.
func (s *Sweep) Run(ctx context.Context) ([]Point, error) {
	sc := s.cfg.Sweep
	if sc.Runs < 1 {
		return nil, fmt.Errorf("%w: a sweep needs at least one run per point, got %d", model.ErrConfig, sc.Runs)
	}
	points := Points(sc)
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: the sweep grid is empty", model.ErrConfig)
	}
	for i := range points {
		points[i].Samples = make([]float64, sc.Runs)
	}
	log.Printf("Starting sweep of %d points x %d runs on %d workers.", len(points), sc.Runs, s.workers)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan job)
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	wg.Add(s.workers)
	for i := 0; i < s.workers; i++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				tput, err := s.runPoint(ctx, points[j.point], j.run)
				if err != nil {
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
					cancel()
					continue
				}
				// Each (point, run) slot is written by exactly one worker.
				points[j.point].Samples[j.run] = tput
			}
		}()
	}

feed:
	for p := range points {
		for r := 0; r < sc.Runs; r++ {
			select {
			case jobs <- job{point: p, run: r}:
			case <-ctx.Done():
				break feed
			}
		}
	}
	close(jobs)
	wg.Wait()

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i := range points {
		points[i].Mean, points[i].StdDev = stat.MeanStdDev(points[i].Samples, nil)
		if sc.Runs == 1 {
			points[i].StdDev = 0
		}
	}
	log.Printf("Sweep finished: %d points.", len(points))
	return points, nil
}

func (s *Sweep) runPoint(ctx context.Context, p Point, run int) (float64, error) {
	cfg := *s.cfg
	cfg.Writers = nil
	cfg.Experiment.APDistance = p.Distance
	cfg.Experiment.Seed = uint64(run + 1)
	cfg.Radio.EnableObssPd = p.EnableObssPd
	if p.EnableObssPd {
		cfg.Radio.ObssPdThreshold = p.Threshold
	}

	report, err := s.run(ctx, &cfg)
	if err != nil {
		return 0, fmt.Errorf("run %d at distance %g, threshold %g, obss-pd %t: %w",
			run, p.Distance, p.Threshold, p.EnableObssPd, err)
	}
	return report.TotalMbps, nil
}

// WriteCSV writes one row per point: Distance, Threshold, EnableObssPd, Mean, StdDev, Runs.
func WriteCSV(w io.Writer, points []Point) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Distance", "Threshold", "EnableObssPd", "Mean", "StdDev", "Runs"}); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, p := range points {
		row := []string{
			strconv.FormatFloat(p.Distance, 'g', -1, 64),
			strconv.FormatFloat(p.Threshold, 'g', -1, 64),
			strconv.FormatBool(p.EnableObssPd),
			strconv.FormatFloat(p.Mean, 'f', 4, 64),
			strconv.FormatFloat(p.StdDev, 'f', 4, 64),
			strconv.Itoa(len(p.Samples)),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
