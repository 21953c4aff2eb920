package probe

import (
	"Go2WlanSpectra/internal/config"
	"Go2WlanSpectra/internal/model"
	"fmt"
	"log"
	"sort"

	"github.com/nats-io/nats.go"
)

// Publisher is responsible for publishing packets and flow records to a NATS subject.
type Publisher struct {
	nc      *nats.Conn
	subject string
}

// NewPublisher creates a new NATS publisher.
func NewPublisher(cfg config.ProbeConfig) (*Publisher, error) {
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", cfg.NATSURL)
	return &Publisher{nc: nc, subject: cfg.Subject}, nil
}

// PublishPacket publishes a single captured packet.
func (p *Publisher) PublishPacket(info *model.PacketInfo) error {
	return p.publish(&Message{Kind: KindPacket, Packet: *info})
}

// PublishRun publishes every flow record of a run in flow ID order, followed by
// a run-done message carrying the number of cells.
func (p *Publisher) PublishRun(runID string, cells int, records map[model.FlowID]model.FlowRecord) error {
	ids := make([]model.FlowID, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		msg := &Message{Kind: KindRecord, RunID: runID, FlowID: id, Record: records[id]}
		if err := p.publish(msg); err != nil {
			return fmt.Errorf("failed to publish flow %d: %w", id, err)
		}
	}
	if err := p.publish(&Message{Kind: KindRunDone, RunID: runID, Cells: cells}); err != nil {
		return fmt.Errorf("failed to publish end of run: %w", err)
	}
	log.Printf("Published %d flow records for run '%s'", len(ids), runID)
	return p.nc.Flush()
}

func (p *Publisher) publish(m *Message) error {
	data, err := Encode(m)
	if err != nil {
		return err
	}
	return p.nc.Publish(p.subject, data)
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		log.Println("NATS connection drained and closed.")
	}
}
