// Package collector receives flow records and sink packets published by remote
// runs and probes, and turns them into reports.
package collector

import (
	"Go2WlanSpectra/internal/aggregate"
	"Go2WlanSpectra/internal/engine/capture"
	"Go2WlanSpectra/internal/model"
	"Go2WlanSpectra/internal/probe"
	"log"
	"sync"
	"time"
)

// Collector aggregates published records per run and live packets per collector lifetime.
type Collector struct {
	mu      sync.Mutex
	runs    map[string]map[model.FlowID]model.FlowRecord
	started map[string]time.Time

	live      *capture.Builder
	liveCells int

	writers []model.Writer
	metrics *Metrics

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a collector. liveCells is the number of cells assumed for live packets.
func New(liveCells int, metrics *Metrics, writers ...model.Writer) *Collector {
	return &Collector{
		runs:      make(map[string]map[model.FlowID]model.FlowRecord),
		started:   make(map[string]time.Time),
		live:      capture.NewBuilder(time.Time{}),
		liveCells: liveCells,
		writers:   writers,
		metrics:   metrics,
		done:      make(chan struct{}),
	}
}

// Handle processes one message. It is safe for concurrent use.
func (c *Collector) Handle(msg *probe.Message) {
	if c.metrics != nil {
		c.metrics.messages.WithLabelValues(string(msg.Kind)).Inc()
	}

	switch msg.Kind {
	case probe.KindPacket:
		info := msg.Packet
		c.live.Add(&info)
	case probe.KindRecord:
		c.mu.Lock()
		records, ok := c.runs[msg.RunID]
		if !ok {
			records = make(map[model.FlowID]model.FlowRecord)
			c.runs[msg.RunID] = records
			c.started[msg.RunID] = time.Now()
		}
		records[msg.FlowID] = msg.Record
		c.mu.Unlock()
	case probe.KindRunDone:
		c.finishRun(msg.RunID, msg.Cells)
	}
}

func (c *Collector) finishRun(runID string, cells int) {
	c.mu.Lock()
	records := c.runs[runID]
	started := c.started[runID]
	delete(c.runs, runID)
	delete(c.started, runID)
	c.mu.Unlock()

	if cells < 1 {
		log.Printf("Ignoring end of run '%s' without cells.", runID)
		return
	}
	result := &model.RunResult{
		RunID:    runID,
		Started:  started,
		Finished: time.Now(),
		Records:  records,
		Report:   aggregate.Aggregate(cells, records),
	}
	log.Printf("Run '%s' complete: %d flows, total throughput %.2f Mb/s", runID, len(records), result.Report.TotalMbps)

	if c.metrics != nil {
		c.metrics.runs.Inc()
		c.metrics.observeReport("run", result.Report)
	}
	for _, w := range c.writers {
		if err := w.Write(result); err != nil {
			log.Printf("Error writing run '%s' with %s writer: %v", runID, w.Name(), err)
		}
	}
}

// Pending returns the number of runs whose end has not been received yet.
func (c *Collector) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.runs)
}

// LiveReport aggregates every packet received so far.
func (c *Collector) LiveReport() *model.Report {
	return aggregate.Aggregate(c.liveCells, c.live.Records())
}

// Start periodically reports on live packets until Stop is called.
func (c *Collector) Start(interval time.Duration) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.reportLive()
			case <-c.done:
				c.reportLive()
				return
			}
		}
	}()
	log.Printf("Collector started, reporting live traffic every %s", interval)
}

// Stop ends the reporting loop after a final report.
func (c *Collector) Stop() {
	close(c.done)
	c.wg.Wait()
}

func (c *Collector) reportLive() {
	if c.live.Len() == 0 {
		return
	}
	r := c.LiveReport()
	if c.metrics != nil {
		c.metrics.observeReport("live", r)
	}
	log.Printf("Live traffic: %d flows, modern %.2f Mb/s, legacy %.2f Mb/s, total %.2f Mb/s",
		c.live.Len(), r.ModernMbps, r.LegacyMbps, r.TotalMbps)
}
