// Package addressing maps (cell, generation, station) triples to transport ports.
//
// Every cell owns a block of BlockWidth ports starting at cell*BlockWidth.
// Inside a block, Modern stations use even ports and Legacy stations odd ports,
// so the owning cell and generation of any port can be recovered from the port alone.
package addressing

import (
	"Go2WlanSpectra/internal/model"
	"fmt"
)

const (
	// BlockWidth is the number of ports reserved per cell.
	BlockWidth = 1000
	// MaxStationsPerGeneration is the largest station count a (cell, generation) group may hold.
	MaxStationsPerGeneration = 499
	// MaxCells is the largest 1-based cell index whose block fits below port 65535.
	MaxCells = 64
	// NoCell is returned by Decode for ports that belong to no cell block.
	NoCell = 0
)

// Encode returns the port of the given station. cell is the 1-based port-space
// cell index, i.e. model.Cell.Index+1.
func Encode(cell int, gen model.Generation, station int) (uint16, error) {
	if cell < 1 || cell > MaxCells {
		return 0, fmt.Errorf("%w: cell index %d out of range [1, %d]", model.ErrConfig, cell, MaxCells)
	}
	if station < 0 {
		return 0, fmt.Errorf("%w: negative station index %d", model.ErrConfig, station)
	}
	if station >= MaxStationsPerGeneration {
		return 0, fmt.Errorf("%w: cell %d %s block exhausted at station %d (max %d)",
			model.ErrConfig, cell, gen, station, MaxStationsPerGeneration)
	}

	offset := 2 * station
	switch gen {
	case model.Modern:
	case model.Legacy:
		offset++
	default:
		return 0, fmt.Errorf("%w: unknown generation %d", model.ErrConfig, gen)
	}
	return uint16(cell*BlockWidth + offset), nil
}

// Decode recovers the 1-based cell index and the generation of a port.
// Ports below the first block or above the last one decode to NoCell.
// Decode never fails.
func Decode(port uint16) (int, model.Generation) {
	gen := model.Modern
	if port%2 == 1 {
		gen = model.Legacy
	}
	cell := int(port) / BlockWidth
	if cell > MaxCells {
		cell = NoCell
	}
	return cell, gen
}

// StationIndex recovers the within-group station index of a port.
func StationIndex(port uint16) int {
	return int(port%BlockWidth) / 2
}
