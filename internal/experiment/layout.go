package experiment

import (
	"Go2WlanSpectra/internal/addressing"
	"Go2WlanSpectra/internal/config"
	"Go2WlanSpectra/internal/model"
	"Go2WlanSpectra/internal/schedule"
	"Go2WlanSpectra/internal/topology"
)

// Layout is everything about a run that is decided before any engine exists.
type Layout struct {
	Topology *model.Topology
	Plan     *addressing.Plan
	Flows    []model.FlowDescriptor
}

// NewLayout builds the topology, port plan, and flow schedule described by cfg.
// The result depends only on cfg.
func NewLayout(cfg *config.Config) (*Layout, error) {
	exp := cfg.Experiment
	duration, err := cfg.DurationValue()
	if err != nil {
		return nil, err
	}
	warmup, err := cfg.WarmupValue()
	if err != nil {
		return nil, err
	}

	topo, err := topology.Build(topology.Params{
		Cells:           exp.Cells,
		ModernStations:  exp.ModernStations,
		LegacyStations:  exp.LegacyStations,
		APDistance:      exp.APDistance,
		StationDistance: exp.StationDistance,
		Scenario:        exp.Scenario,
		ColorCells:      cfg.Radio.EnableObssPd,
	})
	if err != nil {
		return nil, err
	}

	plan, err := addressing.NewPlan(exp.Cells, exp.ModernStations, exp.LegacyStations)
	if err != nil {
		return nil, err
	}

	flows, err := schedule.Build(topo, plan, schedule.Params{
		OfferedLoad: exp.OfferedLoad,
		PacketSize:  exp.PacketSize,
		Duration:    duration,
		Warmup:      warmup,
		TOS:         exp.TOS,
		Seed:        exp.Seed,
	})
	if err != nil {
		return nil, err
	}
	return &Layout{Topology: topo, Plan: plan, Flows: flows}, nil
}
