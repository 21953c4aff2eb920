package aggregate

import (
	"Go2WlanSpectra/internal/model"
	"math"
	"testing"
	"time"
)

func record(port uint16, rxBytes, rxPackets uint64, first, last time.Duration) model.FlowRecord {
	return model.FlowRecord{
		FiveTuple:         model.FiveTuple{DstPort: port, Protocol: 17},
		TxBytes:           rxBytes,
		RxBytes:           rxBytes,
		TxPackets:         rxPackets,
		RxPackets:         rxPackets,
		TimeFirstTxPacket: first,
		TimeLastRxPacket:  last,
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAggregate_TwoCellRun(t *testing.T) {
	records := map[model.FlowID]model.FlowRecord{
		1: record(1000, 125_000_000, 100, 5*time.Second, 15*time.Second),
		2: record(2000, 62_500_000, 50, 5*time.Second, 15*time.Second),
	}

	report := Aggregate(2, records)

	// 1. Bucket 0 stays empty and buckets 1..N are in order.
	if len(report.Cells) != 3 || report.NumCells() != 2 {
		t.Fatalf("Expected 3 buckets, got %d", len(report.Cells))
	}
	if report.Cells[0] != (model.CellSummary{}) {
		t.Errorf("Bucket 0 should be empty, got %+v", report.Cells[0])
	}

	// 2. Throughput is rxBytes*8 / elapsed / 1e6.
	if !almostEqual(report.Cells[1].ThroughputMbps, 100) {
		t.Errorf("Expected cell 1 at 100 Mb/s, got %v", report.Cells[1].ThroughputMbps)
	}
	if !almostEqual(report.Cells[2].ThroughputMbps, 50) {
		t.Errorf("Expected cell 2 at 50 Mb/s, got %v", report.Cells[2].ThroughputMbps)
	}

	// 3. Both flows are Modern.
	if !almostEqual(report.ModernMbps, 150) || report.LegacyMbps != 0 {
		t.Errorf("Unexpected generation totals: modern %v legacy %v", report.ModernMbps, report.LegacyMbps)
	}
	if report.TotalMbps != report.ModernMbps+report.LegacyMbps {
		t.Errorf("Total must equal modern plus legacy")
	}
}

func TestAggregate_DiscardsUnknownCells(t *testing.T) {
	records := map[model.FlowID]model.FlowRecord{
		1: record(1000, 1000, 1, 0, time.Second),
		2: record(999, 1000, 1, 0, time.Second),  // below the first block
		3: record(3000, 1000, 1, 0, time.Second), // cell 3 of 2
		4: record(53, 1000, 1, 0, time.Second),
	}

	report := Aggregate(2, records)

	if len(report.Discarded) != 3 {
		t.Fatalf("Expected 3 discarded flows, got %v", report.Discarded)
	}
	if report.Discarded[0] != 2 || report.Discarded[2] != 4 {
		t.Errorf("Discarded flows should be in id order, got %v", report.Discarded)
	}
	if report.Cells[1].RxPackets != 1 || report.Cells[2].RxPackets != 0 {
		t.Errorf("Only cell 1 should hold traffic, got %+v", report.Cells)
	}
}

func TestAggregate_GenerationSplit(t *testing.T) {
	records := map[model.FlowID]model.FlowRecord{
		1: record(1000, 1_000_000, 10, 0, time.Second), // modern, 8 Mb/s
		2: record(1001, 500_000, 10, 0, time.Second),   // legacy, 4 Mb/s
		3: record(2003, 250_000, 10, 0, time.Second),   // legacy, 2 Mb/s
	}

	report := Aggregate(2, records)

	if !almostEqual(report.ModernMbps, 8) || !almostEqual(report.LegacyMbps, 6) {
		t.Errorf("Unexpected split: modern %v legacy %v", report.ModernMbps, report.LegacyMbps)
	}
	cellSum := report.Cells[1].ThroughputMbps + report.Cells[2].ThroughputMbps
	if !almostEqual(cellSum, report.TotalMbps) {
		t.Errorf("Cell totals %v do not match grand total %v", cellSum, report.TotalMbps)
	}
	if len(report.Stations) != 3 || report.Stations[1].Generation != model.Legacy {
		t.Errorf("Unexpected per-station lines: %+v", report.Stations)
	}
}

func TestAggregate_SilentFlow(t *testing.T) {
	rec := model.FlowRecord{
		FiveTuple:   model.FiveTuple{DstPort: 1000},
		TxBytes:     1472 * 10,
		TxPackets:   10,
		LostPackets: 10,
	}
	report := Aggregate(1, map[model.FlowID]model.FlowRecord{1: rec})

	if report.Cells[1].ThroughputMbps != 0 {
		t.Errorf("A flow with no received packets must contribute exactly 0, got %v", report.Cells[1].ThroughputMbps)
	}
	if report.Cells[1].LostPackets != 10 || report.Cells[1].TxPackets != 10 {
		t.Errorf("Counters should still be summed, got %+v", report.Cells[1])
	}
	if report.Cells[1].LossRatio() != 1 {
		t.Errorf("Expected loss ratio 1, got %v", report.Cells[1].LossRatio())
	}
}

func TestAggregate_Empty(t *testing.T) {
	report := Aggregate(3, nil)
	if len(report.Cells) != 4 || report.TotalMbps != 0 || len(report.Discarded) != 0 {
		t.Errorf("Unexpected empty report: %+v", report)
	}
}

func TestAggregator_SumsDelayAndJitter(t *testing.T) {
	a := New(1)
	for id := model.FlowID(1); id <= 2; id++ {
		rec := record(1000, 1000, 2, 0, time.Second)
		rec.DelaySum = 4 * time.Millisecond
		rec.JitterSum = time.Millisecond
		a.Add(id, rec)
	}
	report := a.Report()
	if report.Cells[1].DelaySum != 8*time.Millisecond || report.Cells[1].JitterSum != 2*time.Millisecond {
		t.Errorf("Unexpected delay/jitter sums: %+v", report.Cells[1])
	}
	if report.Cells[1].MeanDelay() != 2*time.Millisecond {
		t.Errorf("Expected mean delay 2ms, got %s", report.Cells[1].MeanDelay())
	}
}
