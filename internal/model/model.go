package model

import (
	"errors"
	"net"
	"net/netip"
	"time"
)

// ErrConfig marks every error caused by an invalid experiment configuration.
// Callers test for it with errors.Is.
var ErrConfig = errors.New("invalid configuration")

// Generation tags a station with the PHY family it belongs to.
type Generation uint8

const (
	// Modern is the 802.11ax-like generation.
	Modern Generation = iota
	// Legacy is the 802.11a-like generation.
	Legacy
)

func (g Generation) String() string {
	switch g {
	case Modern:
		return "modern"
	case Legacy:
		return "legacy"
	default:
		return "unknown"
	}
}

// Position is a node location in meters.
type Position struct {
	X, Y, Z float64
}

// Cell is one BSS: a single access point and the stations attached to it.
// Index is 0-based and never changes once the topology is built.
type Cell struct {
	Index  int
	Subnet netip.Prefix
	Color  uint8
}

// Station identifies a client by its cell, generation, and its position
// within the (cell, generation) group.
type Station struct {
	Cell       int
	Generation Generation
	Index      int
}

// Host is the addressing and placement data of a single node.
type Host struct {
	Name     string
	Addr     netip.Addr
	MAC      net.HardwareAddr
	Position Position
}

// StationHost ties a station identity to its host data.
type StationHost struct {
	Station
	Host
}

// Topology is the complete set of cells, access points, and stations of an experiment.
// Stations are stored in enumeration order: cell-major, Modern before Legacy, then index.
type Topology struct {
	Cells    []Cell
	APs      []Host
	Stations []StationHost
}

// Endpoint is one side of a flow.
type Endpoint struct {
	Node string
	Addr netip.Addr
	Port uint16
}

// FiveTuple represents the 5-tuple of a network packet.
type FiveTuple struct {
	SrcIP    net.IP
	DstIP    net.IP
	SrcPort  uint16
	DstPort  uint16
	Protocol uint8
}

// PacketInfo holds the metadata extracted from a single packet.
type PacketInfo struct {
	Timestamp time.Time
	FiveTuple FiveTuple
	TOS       uint8
	Length    int
}

// FlowDescriptor is the full description of one station-to-AP constant-rate flow.
// Descriptors are created once by the schedule builder and never mutated.
type FlowDescriptor struct {
	Station     Station
	Source      Endpoint
	Sink        Endpoint
	RateMbps    float64
	PacketSize  int
	TOS         uint8
	SinkStart   time.Duration
	SinkStop    time.Duration
	SourceStart time.Duration
	SourceStop  time.Duration
}

// FlowID is the opaque identifier an engine assigns to a measured flow.
type FlowID uint32

// FlowRecord holds the per-flow statistics reported by an engine.
// The zero value of TimeFirstTxPacket and TimeLastRxPacket means "never".
type FlowRecord struct {
	FiveTuple         FiveTuple
	TxBytes           uint64
	RxBytes           uint64
	TxPackets         uint64
	RxPackets         uint64
	LostPackets       uint64
	DelaySum          time.Duration
	JitterSum         time.Duration
	TimeFirstTxPacket time.Duration
	TimeLastRxPacket  time.Duration
}
