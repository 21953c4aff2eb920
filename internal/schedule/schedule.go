// Package schedule turns a topology into the list of constant-rate station-to-AP flows
// of an experiment.
package schedule

import (
	"Go2WlanSpectra/internal/addressing"
	"Go2WlanSpectra/internal/config"
	"Go2WlanSpectra/internal/model"
	"fmt"
	"time"

	"golang.org/x/exp/rand"
	"golang.org/x/exp/slices"
)

// DefaultTOS is the type-of-service byte of every flow (AC_BE).
const DefaultTOS uint8 = 0x70

// firstSourcePort is the first ephemeral port handed to flow sources.
const firstSourcePort = 49153

// Params holds the traffic settings shared by every flow.
type Params struct {
	OfferedLoad string
	PacketSize  int
	Duration    time.Duration
	Warmup      time.Duration
	TOS         uint8
	Seed        uint64
}

// Build returns one descriptor per station, in enumeration order: cell-major,
// Modern before Legacy, then station index. The result depends only on its inputs.
func Build(topo *model.Topology, plan *addressing.Plan, p Params) ([]model.FlowDescriptor, error) {
	rate, err := config.ParseRate(p.OfferedLoad)
	if err != nil {
		return nil, err
	}
	if p.PacketSize <= 0 {
		return nil, fmt.Errorf("%w: packet size must be positive, got %d", model.ErrConfig, p.PacketSize)
	}
	if p.Warmup < 0 || p.Warmup >= p.Duration {
		return nil, fmt.Errorf("%w: warmup %s must be shorter than duration %s", model.ErrConfig, p.Warmup, p.Duration)
	}
	if len(topo.APs) < plan.Cells() {
		return nil, fmt.Errorf("%w: plan covers %d cells but topology has %d access points",
			model.ErrConfig, plan.Cells(), len(topo.APs))
	}

	stations := slices.Clone(topo.Stations)
	slices.SortStableFunc(stations, compareStations)

	flows := make([]model.FlowDescriptor, 0, len(stations))
	for ordinal, sta := range stations {
		port, err := plan.Port(sta.Station)
		if err != nil {
			return nil, err
		}
		ap := topo.APs[sta.Cell]

		flows = append(flows, model.FlowDescriptor{
			Station: sta.Station,
			Source: model.Endpoint{
				Node: sta.Name,
				Addr: sta.Addr,
				Port: uint16(firstSourcePort + ordinal),
			},
			Sink: model.Endpoint{
				Node: ap.Name,
				Addr: ap.Addr,
				Port: port,
			},
			RateMbps:    rate,
			PacketSize:  p.PacketSize,
			TOS:         p.TOS,
			SinkStart:   p.Warmup,
			SinkStop:    p.Duration,
			SourceStart: p.Warmup + startJitter(p.Seed, uint64(ordinal)),
			SourceStop:  p.Duration,
		})
	}
	return flows, nil
}

// startJitter draws U[0, 1s) from a generator owned by a single flow, so that
// no flow's offset depends on how many draws other flows made.
func startJitter(seed, ordinal uint64) time.Duration {
	rng := rand.New(rand.NewSource(flowSeed(seed, ordinal)))
	return time.Duration(rng.Float64() * float64(time.Second))
}

// flowSeed mixes the run seed and the flow ordinal (splitmix64 finalizer).
func flowSeed(seed, ordinal uint64) uint64 {
	z := seed + (ordinal+1)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func compareStations(a, b model.StationHost) int {
	if a.Cell != b.Cell {
		return a.Cell - b.Cell
	}
	if a.Generation != b.Generation {
		return int(a.Generation) - int(b.Generation)
	}
	return a.Index - b.Index
}
