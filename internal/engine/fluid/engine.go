// Package fluid is a tick-driven engine. Traffic is carried as packet
// counts per tick, cells share airtime inside contention domains, and losses come
// from queue overflow, interference, and an optional residual error rate.
package fluid

import (
	"Go2WlanSpectra/internal/config"
	"Go2WlanSpectra/internal/model"
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/iti/evt/evtm"
	"github.com/iti/evt/vrtime"
	"github.com/iti/rngstream"
)

// Name is the engine type used in configuration files.
const Name = "fluid"

type batch struct {
	n  int
	at float64
}

type flow struct {
	id      model.FlowID
	desc    model.FlowDescriptor
	src     *node
	dst     *node
	cell    int
	gen     model.Generation
	bytes   int
	credit  float64
	partial float64
	backlog []batch
	queued  int
	rec     model.FlowRecord
	started bool
	// lastDelay is the delay of the previous received packet, in seconds; negative before the first.
	lastDelay float64
	warned    bool
}

// Engine carries the flows of one experiment over a single channel.
type Engine struct {
	layout     *model.Topology
	radio      config.RadioConfig
	tick       time.Duration
	queueLimit int
	residual   float64

	nodes     []*node
	byName    map[string]*node
	cellNodes [][]*node
	flows     []*flow
	streams   []*rngstream.RngStream

	domains     [][]int
	domainOf    []int
	utilization []float64
	ctx         context.Context
	stop        float64
	wall        float64
}

// New creates an engine for the given topology. Loss draws depend only on seed.
func New(layout *model.Topology, radio config.RadioConfig, cfg config.EngineConfig, seed uint64) (*Engine, error) {
	tick := 10 * time.Millisecond
	if cfg.Tick != "" {
		d, err := time.ParseDuration(cfg.Tick)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid engine tick: %v", model.ErrConfig, err)
		}
		tick = d
	}
	if tick <= 0 {
		return nil, fmt.Errorf("%w: engine tick must be a positive duration", model.ErrConfig)
	}
	if cfg.ResidualLoss < 0 || cfg.ResidualLoss >= 1 {
		return nil, fmt.Errorf("%w: residual loss %v out of range [0, 1)", model.ErrConfig, cfg.ResidualLoss)
	}
	if radio.FrequencyMHz <= 0 {
		radio.FrequencyMHz = 5180
	}
	queueLimit := cfg.QueueLimit
	if queueLimit <= 0 {
		queueLimit = 500
	}

	e := &Engine{
		layout:     layout,
		radio:      radio,
		tick:       tick,
		queueLimit: queueLimit,
		residual:   cfg.ResidualLoss,
		byName:     make(map[string]*node),
		cellNodes:  make([][]*node, len(layout.Cells)),
		wall:       math.NaN(),
	}

	for i, host := range layout.APs {
		e.addNode(newNode(host, i, true))
	}
	for _, sta := range layout.Stations {
		if sta.Cell < 0 || sta.Cell >= len(layout.Cells) {
			return nil, fmt.Errorf("%w: station %s belongs to unknown cell %d", model.ErrConfig, sta.Name, sta.Cell)
		}
		e.addNode(newNode(sta.Host, sta.Cell, false))
	}
	for i := range layout.Cells {
		stream, err := newStream(fmt.Sprintf("cell%d", i), seed, i)
		if err != nil {
			return nil, err
		}
		e.streams = append(e.streams, stream)
	}
	if radio.WallLoss > 0 && len(layout.APs) >= 2 {
		e.wall = (layout.APs[0].Position.X + layout.APs[1].Position.X) / 2
	}
	return e, nil
}

// rngstream.New advances a package-level seed.
var streamMu sync.Mutex

// Bounds of the two MRG32k3a components; seed words must stay below them.
const (
	streamM1 = 4294967087
	streamM2 = 4294944443
)

// newStream returns a stream whose state is a function of (seed, cell) only.
func newStream(name string, seed uint64, cell int) (*rngstream.RngStream, error) {
	streamMu.Lock()
	stream := rngstream.New(name)
	streamMu.Unlock()

	if !stream.SetSeed(streamSeed(seed, cell)) {
		return nil, fmt.Errorf("failed to seed loss stream %s", name)
	}
	return stream, nil
}

func streamSeed(seed uint64, cell int) []uint64 {
	words := make([]uint64, 6)
	state := seed*0x9e3779b97f4a7c15 + uint64(cell+1)*0xbf58476d1ce4e5b9
	for i := range words {
		state += 0x9e3779b97f4a7c15
		z := state
		z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
		z = (z ^ (z >> 27)) * 0x94d049bb133111eb
		z ^= z >> 31
		m := uint64(streamM1)
		if i >= 3 {
			m = streamM2
		}
		words[i] = 1 + z%(m-1)
	}
	return words
}

func (e *Engine) addNode(n *node) {
	e.nodes = append(e.nodes, n)
	e.byName[n.Name()] = n
	e.cellNodes[n.cell] = append(e.cellNodes[n.cell], n)
}

// Name implements model.Engine.
func (e *Engine) Name() string {
	return Name
}

// Nodes implements model.Engine.
func (e *Engine) Nodes() []model.Node {
	out := make([]model.Node, len(e.nodes))
	for i, n := range e.nodes {
		out[i] = n
	}
	return out
}

// Install registers a flow. Flow ids are assigned in installation order starting at 1.
func (e *Engine) Install(desc model.FlowDescriptor) error {
	src, ok := e.byName[desc.Source.Node]
	if !ok {
		return fmt.Errorf("%w: unknown source node %q", model.ErrConfig, desc.Source.Node)
	}
	dst, ok := e.byName[desc.Sink.Node]
	if !ok {
		return fmt.Errorf("%w: unknown sink node %q", model.ErrConfig, desc.Sink.Node)
	}
	if desc.PacketSize <= 0 || desc.RateMbps <= 0 {
		return fmt.Errorf("%w: flow from %s has no traffic", model.ErrConfig, src.Name())
	}

	f := &flow{
		id:        model.FlowID(len(e.flows) + 1),
		desc:      desc,
		src:       src,
		dst:       dst,
		cell:      dst.cell,
		gen:       desc.Station.Generation,
		bytes:     desc.PacketSize + ipUDPHeader,
		lastDelay: -1,
	}
	f.rec.FiveTuple = model.FiveTuple{
		SrcIP:    desc.Source.Addr.AsSlice(),
		DstIP:    desc.Sink.Addr.AsSlice(),
		SrcPort:  desc.Source.Port,
		DstPort:  desc.Sink.Port,
		Protocol: 17,
	}
	e.flows = append(e.flows, f)
	return nil
}

// Run advances the simulation until stop or until ctx is done.
func (e *Engine) Run(ctx context.Context, stop time.Duration) error {
	e.ctx = ctx
	e.stop = stop.Seconds()
	e.domains = e.contentionDomains()
	e.domainOf = make([]int, len(e.layout.Cells))
	for d, cells := range e.domains {
		for _, c := range cells {
			e.domainOf[c] = d
		}
	}
	e.utilization = make([]float64, len(e.domains))
	log.Printf("Engine %s running %d flows over %d cells in %d contention domains until %s.",
		Name, len(e.flows), len(e.layout.Cells), len(e.domains), stop)

	evtMgr := evtm.New()
	evtMgr.Schedule(e, nil, advance, vrtime.SecondsToTime(0))
	evtMgr.Run(e.stop)

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("engine run interrupted: %w", err)
	}
	return nil
}

// advance is the tick event handler.
func advance(evtMgr *evtm.EventManager, context any, data any) any {
	e := context.(*Engine)
	if e.ctx.Err() != nil {
		return nil
	}
	now := evtMgr.CurrentSeconds()
	dt := e.tick.Seconds()
	if now+dt > e.stop {
		dt = e.stop - now
	}
	if dt <= 0 {
		return nil
	}

	e.generate(now, dt)
	for d := range e.domains {
		e.serve(d, now, dt)
	}

	if now+dt < e.stop {
		evtMgr.Schedule(e, nil, advance, vrtime.SecondsToTime(dt))
	}
	return nil
}

// generate moves the traffic offered during [now, now+dt) into the flow queues.
func (e *Engine) generate(now, dt float64) {
	for _, f := range e.flows {
		start := math.Max(now, f.desc.SourceStart.Seconds())
		end := math.Min(now+dt, f.desc.SourceStop.Seconds())
		if end <= start {
			continue
		}
		if !f.started {
			// The first packet leaves as soon as the source starts.
			f.started = true
			f.credit = 1
			f.rec.TimeFirstTxPacket = secondsToDuration(start)
		}
		f.credit += f.desc.RateMbps * 1e6 * (end - start) / float64(f.desc.PacketSize*8)
		n := int(f.credit)
		if n == 0 {
			continue
		}
		f.credit -= float64(n)
		f.rec.TxPackets += uint64(n)
		f.rec.TxBytes += uint64(n * f.bytes)

		if !e.reachable(f) {
			f.rec.LostPackets += uint64(n)
			continue
		}
		room := e.queueLimit - f.queued
		if room < n {
			f.rec.LostPackets += uint64(n - max(room, 0))
			n = max(room, 0)
		}
		if n > 0 {
			f.backlog = append(f.backlog, batch{n: n, at: start})
			f.queued += n
		}
	}
}

// reachable reports whether the source can deliver to its sink at all.
func (e *Engine) reachable(f *flow) bool {
	if !f.src.wlan().resolves(f.desc.Sink.Addr) {
		if !f.warned {
			log.Printf("Flow %d: %s cannot resolve %s, dropping its traffic.", f.id, f.src.Name(), f.desc.Sink.Addr)
			f.warned = true
		}
		return false
	}
	return e.rssi(f.src, f.dst) >= e.radio.MinimumRSSI
}

// serve spends dt seconds of airtime of domain d on its backlogged flows, giving
// every backlogged flow the same number of packets per round.
func (e *Engine) serve(d int, now, dt float64) {
	var active []*flow
	for _, f := range e.flows {
		if e.domainOf[f.cell] == d && f.queued > 0 {
			active = append(active, f)
		}
	}
	budget := dt
	coll := collisionProbability(len(active))

	for len(active) > 0 && budget > 1e-12 {
		cycle := 0.0
		minNeed := math.Inf(1)
		for _, f := range active {
			base := airtime(f.gen, e.mcs(f.gen), f.desc.PacketSize, f.queued, e.radio.RtsCts)
			cycle += base * expectedAttempts(e.attemptError(f)) / (1 - coll)
			minNeed = math.Min(minNeed, float64(f.queued)-f.partial)
		}
		rounds := budget / cycle
		step := math.Min(rounds, minNeed)
		budget -= step * cycle
		clock := now + (dt - budget)

		for _, f := range active {
			f.partial += step
			n := int(f.partial + 1e-9)
			if n > 0 {
				f.partial -= float64(n)
				e.deliver(f, n, clock)
			}
		}

		remaining := active[:0]
		for _, f := range active {
			if f.queued > 0 {
				remaining = append(remaining, f)
			} else {
				f.partial = 0
			}
		}
		active = remaining
		if step >= rounds {
			break
		}
	}
	e.utilization[d] = (dt - budget) / dt
}

// deliver dequeues n packets of f at time clock and records them as received or lost.
func (e *Engine) deliver(f *flow, n int, clock float64) {
	if n > f.queued {
		n = f.queued
	}
	loss := math.Pow(e.attemptError(f), retryLimit)
	loss = 1 - (1-loss)*(1-e.residual)
	stream := e.streams[f.cell]

	for n > 0 {
		b := &f.backlog[0]
		take := min(n, b.n)
		b.n -= take
		n -= take
		f.queued -= take
		if b.n == 0 {
			f.backlog = f.backlog[1:]
		}

		received := take
		if loss > 1e-12 {
			for i := 0; i < take; i++ {
				if stream.RandU01() < loss {
					received--
				}
			}
		}
		f.rec.LostPackets += uint64(take - received)
		if received == 0 {
			continue
		}

		delay := clock - b.at
		f.rec.RxPackets += uint64(received)
		f.rec.RxBytes += uint64(received * f.bytes)
		f.rec.DelaySum += secondsToDuration(delay * float64(received))
		if f.lastDelay >= 0 {
			f.rec.JitterSum += secondsToDuration(math.Abs(delay - f.lastDelay))
		}
		f.lastDelay = delay
		f.rec.TimeLastRxPacket = secondsToDuration(clock)
	}
}

// attemptError is the probability that one transmission of f fails, given the
// noise floor and the cells outside its contention domain that transmit concurrently.
func (e *Engine) attemptError(f *flow) float64 {
	signal := e.rssi(f.src, f.dst)
	required := minSINR(f.gen, e.mcs(f.gen))
	noise := dbmToMw(noiseFloor)

	success := 1 - packetError(signal-noiseFloor, required)
	for d, cells := range e.domains {
		if d == e.domainOf[f.cell] || e.utilization[d] == 0 {
			continue
		}
		interference := math.Inf(-1)
		for _, c := range cells {
			for _, tx := range e.cellNodes[c] {
				interference = math.Max(interference, e.rssi(tx, f.dst))
			}
		}
		sinr := signal - mwToDbm(noise+dbmToMw(interference))
		success *= 1 - e.utilization[d]*packetError(sinr, required)
	}
	return 1 - success
}

// rssi is the received power at rx of a frame sent by tx, in dBm.
func (e *Engine) rssi(tx, rx *node) float64 {
	power := e.radio.StationPower
	if tx.ap {
		power = e.radio.APPower
	}
	loss := pathLoss(tx.host.Position, rx.host.Position, e.radio.FrequencyMHz)
	if !math.IsNaN(e.wall) && (tx.host.Position.X-e.wall)*(rx.host.Position.X-e.wall) < 0 {
		loss += e.radio.WallLoss
	}
	return power - loss
}

func (e *Engine) mcs(gen model.Generation) int {
	if gen == model.Legacy {
		return e.radio.LegacyMCS
	}
	return e.radio.MCS
}

// FlowStats returns a copy of the per-flow statistics gathered so far.
func (e *Engine) FlowStats() map[model.FlowID]model.FlowRecord {
	out := make(map[model.FlowID]model.FlowRecord, len(e.flows))
	for _, f := range e.flows {
		out[f.id] = f.rec
	}
	return out
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}
