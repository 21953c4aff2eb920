package addressing

import (
	"Go2WlanSpectra/internal/model"
	"fmt"
)

// Plan is a validated port layout for a fixed number of cells and stations.
type Plan struct {
	cells  int
	modern int
	legacy int
}

// NewPlan validates that every station of every cell has a port.
func NewPlan(cells, modern, legacy int) (*Plan, error) {
	if cells < 1 || cells > MaxCells {
		return nil, fmt.Errorf("%w: cell count %d out of range [1, %d]", model.ErrConfig, cells, MaxCells)
	}
	for _, n := range []int{modern, legacy} {
		if n < 0 || n > MaxStationsPerGeneration {
			return nil, fmt.Errorf("%w: %d stations per generation exceeds %d",
				model.ErrConfig, n, MaxStationsPerGeneration)
		}
	}
	return &Plan{cells: cells, modern: modern, legacy: legacy}, nil
}

// Cells returns the number of cells covered by the plan.
func (p *Plan) Cells() int {
	return p.cells
}

// Port returns the sink port of a station. Station.Cell is 0-based.
func (p *Plan) Port(s model.Station) (uint16, error) {
	limit := p.modern
	if s.Generation == model.Legacy {
		limit = p.legacy
	}
	if s.Cell < 0 || s.Cell >= p.cells || s.Index >= limit {
		return 0, fmt.Errorf("%w: station %+v is not part of the plan", model.ErrConfig, s)
	}
	return Encode(s.Cell+1, s.Generation, s.Index)
}

// Contains reports whether a decoded 1-based cell index belongs to the plan.
func (p *Plan) Contains(cell int) bool {
	return cell >= 1 && cell <= p.cells
}
