package model

import "time"

// CellSummary is the aggregated statistics of every flow that terminates in one cell.
type CellSummary struct {
	Cell           int
	TxBytes        uint64
	RxBytes        uint64
	TxPackets      uint64
	RxPackets      uint64
	LostPackets    uint64
	DelaySum       time.Duration
	JitterSum      time.Duration
	ThroughputMbps float64
}

// LossRatio returns lost packets over transmitted packets, or 0 when nothing was sent.
func (c CellSummary) LossRatio() float64 {
	if c.TxPackets == 0 {
		return 0
	}
	return float64(c.LostPackets) / float64(c.TxPackets)
}

// MeanDelay returns the average one-way delay of the received packets.
func (c CellSummary) MeanDelay() time.Duration {
	if c.RxPackets == 0 {
		return 0
	}
	return c.DelaySum / time.Duration(c.RxPackets)
}

// StationThroughput is the throughput of a single flow, attributed to its cell and generation.
type StationThroughput struct {
	FlowID         FlowID
	Cell           int
	Generation     Generation
	Port           uint16
	ThroughputMbps float64
}

// Report is the output of an aggregation pass.
// Cells is indexed by the 1-based cell index; Cells[0] is always empty.
type Report struct {
	Cells      []CellSummary
	Stations   []StationThroughput
	Discarded  []FlowID
	ModernMbps float64
	LegacyMbps float64
	TotalMbps  float64
}

// NumCells returns the number of cells covered by the report.
func (r *Report) NumCells() int {
	if len(r.Cells) == 0 {
		return 0
	}
	return len(r.Cells) - 1
}

// Setting is one echoed experiment parameter, in display order.
type Setting struct {
	Name  string
	Value string
}

// RunResult is everything a writer or notifier needs to persist one experiment run.
type RunResult struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	Settings []Setting
	Topology *Topology
	Flows    []FlowDescriptor
	Records  map[FlowID]FlowRecord
	Report   *Report
}
