package experiment

import (
	"Go2WlanSpectra/internal/config"
	"Go2WlanSpectra/internal/model"
	"context"
	"errors"
	"net"
	"net/netip"
	"testing"
	"time"
)

type stubIface struct {
	host     model.Host
	resolver model.Resolver
}

func (i *stubIface) Name() string                   { return "eth0" }
func (i *stubIface) HardwareAddr() net.HardwareAddr { return i.host.MAC }
func (i *stubIface) Addrs() []netip.Addr            { return []netip.Addr{i.host.Addr} }
func (i *stubIface) Loopback() bool                 { return false }
func (i *stubIface) SetResolver(r model.Resolver)   { i.resolver = r }

type stubNode struct{ iface *stubIface }

func (n *stubNode) Name() string                  { return n.iface.host.Name }
func (n *stubNode) IPv4() bool                    { return true }
func (n *stubNode) Interfaces() []model.Interface { return []model.Interface{n.iface} }

// stubEngine delivers every flow at exactly its offered rate.
type stubEngine struct {
	nodes   []*stubNode
	flows   []model.FlowDescriptor
	records map[model.FlowID]model.FlowRecord
	stop    time.Duration
}

func newStubEngine(topo *model.Topology, _ *config.Config) (model.Engine, error) {
	e := &stubEngine{records: make(map[model.FlowID]model.FlowRecord)}
	for _, ap := range topo.APs {
		e.nodes = append(e.nodes, &stubNode{&stubIface{host: ap}})
	}
	for _, sta := range topo.Stations {
		e.nodes = append(e.nodes, &stubNode{&stubIface{host: sta.Host}})
	}
	return e, nil
}

func (e *stubEngine) Name() string { return "stub" }
func (e *stubEngine) Nodes() []model.Node {
	nodes := make([]model.Node, len(e.nodes))
	for i, n := range e.nodes {
		nodes[i] = n
	}
	return nodes
}
func (e *stubEngine) Install(f model.FlowDescriptor) error {
	e.flows = append(e.flows, f)
	return nil
}
func (e *stubEngine) Run(ctx context.Context, stop time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.stop = stop
	for i, f := range e.flows {
		elapsed := f.SourceStop - f.SourceStart
		rx := uint64(f.RateMbps * 1e6 / 8 * elapsed.Seconds())
		e.records[model.FlowID(i+1)] = model.FlowRecord{
			FiveTuple:         model.FiveTuple{SrcIP: f.Source.Addr.AsSlice(), DstIP: f.Sink.Addr.AsSlice(), SrcPort: f.Source.Port, DstPort: f.Sink.Port, Protocol: 17},
			RxBytes:           rx,
			RxPackets:         rx / uint64(f.PacketSize),
			TxPackets:         rx / uint64(f.PacketSize),
			TimeFirstTxPacket: f.SourceStart,
			TimeLastRxPacket:  f.SourceStop,
		}
	}
	return nil
}
func (e *stubEngine) FlowStats() map[model.FlowID]model.FlowRecord { return e.records }

type memWriter struct{ results []*model.RunResult }

func (m *memWriter) Name() string { return "mem" }
func (m *memWriter) Write(r *model.RunResult) error {
	m.results = append(m.results, r)
	return nil
}

type memPublisher struct {
	runID string
	cells int
	n     int
}

func (m *memPublisher) PublishRun(runID string, cells int, records map[model.FlowID]model.FlowRecord) error {
	m.runID, m.cells, m.n = runID, cells, len(records)
	return nil
}

type memChecker struct{ report string }

func (m *memChecker) Check(ctx context.Context, result *model.RunResult, report string) {
	m.report = report
}

func TestRunner_Run(t *testing.T) {
	// 1. Configure two cells with one Modern and one Legacy station each
	cfg := config.Default()
	cfg.Experiment.Duration = "10s"
	cfg.Experiment.Warmup = "2s"
	cfg.Experiment.LegacyStations = 1
	cfg.Experiment.OfferedLoad = "20"

	w := &memWriter{}
	pub := &memPublisher{}
	chk := &memChecker{}
	var engine *stubEngine
	runner := NewRunner(cfg, w).WithPublisher(pub).WithChecker(chk).
		WithEngineFactory(func(topo *model.Topology, c *config.Config) (model.Engine, error) {
			e, err := newStubEngine(topo, c)
			engine = e.(*stubEngine)
			return e, err
		})

	// 2. Run
	result, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// 3. Check the wiring
	if engine.stop != 10*time.Second {
		t.Errorf("Expected the engine to stop at 10s, got %s", engine.stop)
	}
	if len(engine.flows) != 4 {
		t.Fatalf("Expected 4 installed flows, got %d", len(engine.flows))
	}
	for _, n := range engine.nodes {
		if n.iface.resolver == nil {
			t.Errorf("Node %s was not seeded", n.Name())
		}
	}
	if len(w.results) != 1 || w.results[0] != result {
		t.Errorf("Writer did not receive the result")
	}
	if pub.runID != result.RunID || pub.cells != 2 || pub.n != 4 {
		t.Errorf("Unexpected publication: %+v", pub)
	}
	if chk.report == "" {
		t.Errorf("Checker did not receive a rendered report")
	}

	// 4. Check the report
	r := result.Report
	if r.NumCells() != 2 || len(r.Discarded) != 0 {
		t.Fatalf("Unexpected report shape: %+v", r)
	}
	for cell := 1; cell <= 2; cell++ {
		if got := r.Cells[cell].ThroughputMbps; got < 39.9 || got > 40.1 {
			t.Errorf("Cell %d: expected ~40 Mb/s, got %f", cell, got)
		}
	}
	if r.ModernMbps < 39.9 || r.LegacyMbps < 39.9 || r.TotalMbps < 79.9 || r.TotalMbps > 80.1 {
		t.Errorf("Unexpected totals: modern=%f legacy=%f total=%f", r.ModernMbps, r.LegacyMbps, r.TotalMbps)
	}
}

func TestRunner_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Experiment.OfferedLoad = "fast"
	_, err := NewRunner(cfg).WithEngineFactory(newStubEngine).Run(context.Background())
	if !errors.Is(err, model.ErrConfig) {
		t.Errorf("Expected ErrConfig, got %v", err)
	}
}

func TestRunner_UnknownEngine(t *testing.T) {
	cfg := config.Default()
	cfg.Engine.Type = "emulated"
	_, err := NewRunner(cfg).Run(context.Background())
	if !errors.Is(err, model.ErrConfig) {
		t.Errorf("Expected ErrConfig, got %v", err)
	}
}

func TestRunner_FluidEngine(t *testing.T) {
	cfg := config.Default()
	cfg.Experiment.Duration = "3s"
	cfg.Experiment.Warmup = "1s"
	cfg.Experiment.OfferedLoad = "5"

	result, err := NewRunner(cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(result.Records) != 2 {
		t.Fatalf("Expected 2 flow records, got %d", len(result.Records))
	}
	for cell := 1; cell <= 2; cell++ {
		if got := result.Report.Cells[cell].ThroughputMbps; got < 4 || got > 6 {
			t.Errorf("Cell %d: expected ~5 Mb/s, got %f", cell, got)
		}
	}
}
