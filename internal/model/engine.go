package model

import (
	"context"
	"time"
)

// Engine is the contract of the packet-level backend that carries the traffic.
// The experiment layer only talks to an engine through this interface.
type Engine interface {
	Name() string
	Nodes() []Node
	Install(flow FlowDescriptor) error
	Run(ctx context.Context, stop time.Duration) error
	FlowStats() map[FlowID]FlowRecord
}
