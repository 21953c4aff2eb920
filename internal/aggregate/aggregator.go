// Package aggregate reduces per-flow records into per-cell and per-generation statistics.
package aggregate

import (
	"Go2WlanSpectra/internal/addressing"
	"Go2WlanSpectra/internal/model"
	"log"

	"golang.org/x/exp/slices"
)

// Aggregator accumulates flow records for a fixed number of cells.
// Cells are addressed by their 1-based port-space index; bucket 0 is never filled.
type Aggregator struct {
	numCells  int
	cells     []model.CellSummary
	stations  []model.StationThroughput
	discarded []model.FlowID
	modern    float64
	legacy    float64
}

// New creates an aggregator for cells 1..numCells.
func New(numCells int) *Aggregator {
	if numCells < 0 {
		numCells = 0
	}
	cells := make([]model.CellSummary, numCells+1)
	for i := range cells {
		cells[i].Cell = i
	}
	return &Aggregator{numCells: numCells, cells: cells}
}

// Add folds one flow record into the totals. Records whose destination port does not
// decode to a cell in 1..N are recorded as discarded and otherwise ignored.
func (a *Aggregator) Add(id model.FlowID, rec model.FlowRecord) {
	port := rec.FiveTuple.DstPort
	cell, gen := addressing.Decode(port)
	if cell < 1 || cell > a.numCells {
		log.Printf("Discarding flow %d: destination port %d maps to no cell.", id, port)
		a.discarded = append(a.discarded, id)
		return
	}

	sum := &a.cells[cell]
	sum.TxBytes += rec.TxBytes
	sum.RxBytes += rec.RxBytes
	sum.TxPackets += rec.TxPackets
	sum.RxPackets += rec.RxPackets
	sum.LostPackets += rec.LostPackets
	sum.DelaySum += rec.DelaySum
	sum.JitterSum += rec.JitterSum

	mbps := Throughput(rec)
	sum.ThroughputMbps += mbps
	if gen == model.Modern {
		a.modern += mbps
	} else {
		a.legacy += mbps
	}

	a.stations = append(a.stations, model.StationThroughput{
		FlowID:         id,
		Cell:           cell,
		Generation:     gen,
		Port:           port,
		ThroughputMbps: mbps,
	})
}

// AddAll folds every record in ascending flow id order.
func (a *Aggregator) AddAll(records map[model.FlowID]model.FlowRecord) {
	ids := make([]model.FlowID, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		a.Add(id, records[id])
	}
}

// Report returns a snapshot of the current totals. The aggregator stays usable.
func (a *Aggregator) Report() *model.Report {
	r := &model.Report{
		Cells:      make([]model.CellSummary, len(a.cells)),
		Stations:   make([]model.StationThroughput, len(a.stations)),
		Discarded:  make([]model.FlowID, len(a.discarded)),
		ModernMbps: a.modern,
		LegacyMbps: a.legacy,
		TotalMbps:  a.modern + a.legacy,
	}
	copy(r.Cells, a.cells)
	copy(r.Stations, a.stations)
	copy(r.Discarded, a.discarded)
	return r
}

// Aggregate is a convenience wrapper for a one-shot pass over a record set.
func Aggregate(numCells int, records map[model.FlowID]model.FlowRecord) *model.Report {
	a := New(numCells)
	a.AddAll(records)
	return a.Report()
}

// Throughput returns the goodput of a flow in Mb/s, measured from its first
// transmitted to its last received packet. Flows that received nothing report 0.
func Throughput(rec model.FlowRecord) float64 {
	if rec.RxPackets == 0 {
		return 0
	}
	elapsed := (rec.TimeLastRxPacket - rec.TimeFirstTxPacket).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(rec.RxBytes) * 8 / elapsed / 1e6
}
