// Package topology lays out the cells of an experiment: access point and station
// placement on a line, per-cell subnets, and deterministic hardware addresses.
package topology

import (
	"Go2WlanSpectra/internal/model"
	"fmt"
	"net"
	"net/netip"
)

// antennaHeight is the z coordinate shared by every node.
const antennaHeight = 1.0

// Params describes the shape of a topology.
type Params struct {
	Cells           int
	ModernStations  int
	LegacyStations  int
	APDistance      float64
	StationDistance float64
	// Scenario 2 places the cells in reverse order along the line.
	Scenario int
	// ColorCells assigns BSS color Index+1 to every cell.
	ColorCells bool
}

// Build creates the cells, access points, and stations described by p.
func Build(p Params) (*model.Topology, error) {
	if p.Cells < 1 || p.Cells > 255 {
		return nil, fmt.Errorf("%w: cell count %d out of range [1, 255]", model.ErrConfig, p.Cells)
	}
	if p.ModernStations < 0 || p.LegacyStations < 0 {
		return nil, fmt.Errorf("%w: station counts must not be negative", model.ErrConfig)
	}
	if p.ModernStations+p.LegacyStations > 253 {
		return nil, fmt.Errorf("%w: %d stations do not fit in a /24 cell subnet",
			model.ErrConfig, p.ModernStations+p.LegacyStations)
	}
	if p.Scenario != 1 && p.Scenario != 2 {
		return nil, fmt.Errorf("%w: unknown scenario %d", model.ErrConfig, p.Scenario)
	}

	topo := &model.Topology{
		Cells: make([]model.Cell, 0, p.Cells),
		APs:   make([]model.Host, 0, p.Cells),
	}

	for i := 0; i < p.Cells; i++ {
		cell := model.Cell{
			Index:  i,
			Subnet: netip.PrefixFrom(netip.AddrFrom4([4]byte{192, 168, byte(i), 0}), 24),
		}
		if p.ColorCells {
			cell.Color = uint8(i + 1)
		}
		topo.Cells = append(topo.Cells, cell)

		apPos, staPos := placement(p, i)
		topo.APs = append(topo.APs, model.Host{
			Name:     fmt.Sprintf("ap%d", i),
			Addr:     hostAddr(i, 1),
			MAC:      hardwareAddr(i, 0xff, 0),
			Position: apPos,
		})

		host := 2
		for _, gen := range []model.Generation{model.Modern, model.Legacy} {
			count := p.ModernStations
			if gen == model.Legacy {
				count = p.LegacyStations
			}
			for n := 0; n < count; n++ {
				topo.Stations = append(topo.Stations, model.StationHost{
					Station: model.Station{Cell: i, Generation: gen, Index: n},
					Host: model.Host{
						Name:     fmt.Sprintf("cell%d-%s%d", i, gen, n),
						Addr:     hostAddr(i, host),
						MAC:      hardwareAddr(i, byte(gen), n),
						Position: staPos,
					},
				})
				host++
			}
		}
	}
	return topo, nil
}

// placement returns the AP and station positions of cell i. Cells sit on the x axis
// APDistance apart; the first slot's stations sit on the outside of the line.
func placement(p Params, i int) (model.Position, model.Position) {
	slot := i
	if p.Scenario == 2 {
		slot = p.Cells - 1 - i
	}
	x := float64(slot) * p.APDistance
	ap := model.Position{X: x, Z: antennaHeight}
	sta := model.Position{X: x + p.StationDistance, Z: antennaHeight}
	if slot == 0 {
		sta.X = x - p.StationDistance
	}
	return ap, sta
}

func hostAddr(cell, host int) netip.Addr {
	return netip.AddrFrom4([4]byte{192, 168, byte(cell), byte(host)})
}

// hardwareAddr returns a locally administered address 02:00:cc:gg:hh:ll.
func hardwareAddr(cell int, gen byte, n int) net.HardwareAddr {
	return net.HardwareAddr{0x02, 0x00, byte(cell), gen, byte(n >> 8), byte(n)}
}

// StationsOf returns the stations of one cell, in enumeration order.
func StationsOf(topo *model.Topology, cell int) []model.StationHost {
	var out []model.StationHost
	for _, s := range topo.Stations {
		if s.Cell == cell {
			out = append(out, s)
		}
	}
	return out
}
