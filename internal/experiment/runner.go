// Package experiment runs a complete multi-BSS experiment: it lays out the cells,
// seeds neighbor resolution, schedules the flows, drives the engine, and hands
// the aggregated report to the configured writers.
package experiment

import (
	"Go2WlanSpectra/internal/aggregate"
	"Go2WlanSpectra/internal/config"
	_ "Go2WlanSpectra/internal/engine/fluid" // Registers the fluid engine
	"Go2WlanSpectra/internal/factory"
	"Go2WlanSpectra/internal/model"
	"Go2WlanSpectra/internal/neighbor"
	"Go2WlanSpectra/internal/writer"
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// RunPublisher ships the flow records of a finished run to remote collectors.
type RunPublisher interface {
	PublishRun(runID string, cells int, records map[model.FlowID]model.FlowRecord) error
}

// RunChecker inspects a finished run, typically to raise alerts.
type RunChecker interface {
	Check(ctx context.Context, result *model.RunResult, renderedReport string)
}

// Runner executes experiment runs described by a configuration.
type Runner struct {
	cfg       *config.Config
	writers   []model.Writer
	publisher RunPublisher
	checker   RunChecker
	engines   factory.EngineFactory
}

// NewRunner creates a runner that persists every run through writers.
func NewRunner(cfg *config.Config, writers ...model.Writer) *Runner {
	return &Runner{cfg: cfg, writers: writers, engines: factory.CreateEngine}
}

// WithPublisher makes the runner publish the records of every run.
func (r *Runner) WithPublisher(p RunPublisher) *Runner {
	r.publisher = p
	return r
}

// WithChecker makes the runner hand every finished run to c.
func (r *Runner) WithChecker(c RunChecker) *Runner {
	r.checker = c
	return r
}

// WithEngineFactory replaces the registry lookup used to build the engine of a run.
func (r *Runner) WithEngineFactory(f factory.EngineFactory) *Runner {
	r.engines = f
	return r
}

// Run executes one experiment and returns its result.
// Writer, publisher, and checker failures are logged and do not fail the run.
func (r *Runner) Run(ctx context.Context) (*model.RunResult, error) {
	cfg := r.cfg
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	exp := cfg.Experiment
	duration, _ := cfg.DurationValue()

	result := &model.RunResult{
		RunID:    uuid.NewString(),
		Started:  time.Now(),
		Settings: cfg.Settings(),
	}
	log.Printf("Starting run %s: %d cells, %d+%d stations per cell, offered load %s Mb/s",
		result.RunID, exp.Cells, exp.ModernStations, exp.LegacyStations, exp.OfferedLoad)

	// 1. Lay out the cells, the port plan, and the flows
	layout, err := NewLayout(cfg)
	if err != nil {
		return nil, err
	}
	result.Topology = layout.Topology

	// 2. Build the engine and seed neighbor resolution before any traffic exists
	engine, err := r.engines(layout.Topology, cfg)
	if err != nil {
		return nil, err
	}
	if _, err := neighbor.Seed(engine.Nodes()); err != nil {
		return nil, fmt.Errorf("failed to seed neighbor tables: %w", err)
	}

	// 3. Install the flows
	for _, f := range layout.Flows {
		if err := engine.Install(f); err != nil {
			return nil, fmt.Errorf("failed to install flow of %s: %w", f.Source.Node, err)
		}
	}
	result.Flows = layout.Flows

	// 4. Run the engine to completion and aggregate its records
	if err := engine.Run(ctx, duration); err != nil {
		return nil, fmt.Errorf("engine '%s' failed: %w", engine.Name(), err)
	}
	result.Records = engine.FlowStats()
	result.Report = aggregate.Aggregate(layout.Plan.Cells(), result.Records)
	result.Finished = time.Now()
	log.Printf("Run %s finished in %s: total throughput %.2f Mb/s", result.RunID,
		result.Finished.Sub(result.Started).Round(time.Millisecond), result.Report.TotalMbps)

	// 5. Hand the result over
	for _, w := range r.writers {
		if err := w.Write(result); err != nil {
			log.Printf("Error writing run %s with %s writer: %v", result.RunID, w.Name(), err)
		}
	}
	if r.publisher != nil {
		if err := r.publisher.PublishRun(result.RunID, layout.Plan.Cells(), result.Records); err != nil {
			log.Printf("Error publishing run %s: %v", result.RunID, err)
		}
	}
	if r.checker != nil {
		var buf bytes.Buffer
		writer.RenderText(&buf, result)
		r.checker.Check(ctx, result, buf.String())
	}
	return result, nil
}
