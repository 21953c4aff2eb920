// Package capture rebuilds per-flow records from packets observed at the sinks,
// for runs carried by a real testbed instead of a simulated engine.
package capture

import (
	"Go2WlanSpectra/internal/model"
	"fmt"
	"sync"
	"time"
)

// Builder classifies observed packets into flows, in first-seen order.
// It is safe for concurrent use.
type Builder struct {
	mu       sync.Mutex
	origin   time.Time
	ids      map[string]model.FlowID
	records  map[model.FlowID]*model.FlowRecord
	expected map[uint16]model.FlowDescriptor
}

// NewBuilder creates a builder. origin is the capture time of experiment time zero;
// a zero origin is replaced by the timestamp of the first packet.
func NewBuilder(origin time.Time) *Builder {
	return &Builder{
		origin:   origin,
		ids:      make(map[string]model.FlowID),
		records:  make(map[model.FlowID]*model.FlowRecord),
		expected: make(map[uint16]model.FlowDescriptor),
	}
}

// Expect registers the schedule of the run so that transmit counters, first
// transmission times, and losses can be derived for flows seen only at the sink.
func (b *Builder) Expect(flows []model.FlowDescriptor) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, f := range flows {
		b.expected[f.Sink.Port] = f
	}
}

func flowKey(t model.FiveTuple) string {
	return fmt.Sprintf("%s:%d->%s:%d/%d", t.SrcIP, t.SrcPort, t.DstIP, t.DstPort, t.Protocol)
}

// Add records one received packet.
func (b *Builder) Add(info *model.PacketInfo) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.origin.IsZero() {
		b.origin = info.Timestamp
	}
	at := info.Timestamp.Sub(b.origin)

	key := flowKey(info.FiveTuple)
	id, ok := b.ids[key]
	if !ok {
		id = model.FlowID(len(b.ids) + 1)
		b.ids[key] = id
		b.records[id] = &model.FlowRecord{
			FiveTuple:         info.FiveTuple,
			TimeFirstTxPacket: at,
			TimeLastRxPacket:  at,
		}
	}
	rec := b.records[id]
	rec.RxPackets++
	rec.RxBytes += uint64(info.Length)
	// Capture timestamps are not guaranteed to be monotonic.
	if at < rec.TimeFirstTxPacket {
		rec.TimeFirstTxPacket = at
	}
	if at > rec.TimeLastRxPacket {
		rec.TimeLastRxPacket = at
	}
}

// Len returns the number of distinct flows seen so far.
func (b *Builder) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.ids)
}

// Records returns the flow records built so far.
func (b *Builder) Records() map[model.FlowID]model.FlowRecord {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[model.FlowID]model.FlowRecord, len(b.records))
	for id, r := range b.records {
		rec := *r
		if f, ok := b.expected[rec.FiveTuple.DstPort]; ok {
			sent := expectedPackets(f, rec.TimeLastRxPacket)
			rec.TimeFirstTxPacket = f.SourceStart
			rec.TxPackets = max(sent, rec.RxPackets)
			rec.TxBytes = rec.TxPackets * uint64(f.PacketSize+28)
			rec.LostPackets = rec.TxPackets - rec.RxPackets
		} else {
			rec.TxPackets = rec.RxPackets
			rec.TxBytes = rec.RxBytes
		}
		out[id] = rec
	}
	return out
}

// expectedPackets is the number of packets a constant-rate source sends between
// its start and the earlier of its stop and the last observation.
func expectedPackets(f model.FlowDescriptor, last time.Duration) uint64 {
	end := f.SourceStop
	if last < end {
		end = last
	}
	active := (end - f.SourceStart).Seconds()
	if active <= 0 {
		return 1
	}
	return 1 + uint64(f.RateMbps*1e6*active/float64(f.PacketSize*8))
}
