package model

import (
	"net"
	"net/netip"
)

// Resolver maps a network-layer address to a link-layer address.
type Resolver interface {
	Lookup(addr netip.Addr) (net.HardwareAddr, bool)
}

// Interface is a network interface of a node as exposed by an engine.
type Interface interface {
	Name() string
	HardwareAddr() net.HardwareAddr
	Addrs() []netip.Addr
	Loopback() bool
	// SetResolver replaces the interface's neighbor resolution with r.
	SetResolver(r Resolver)
}

// Node is a simulated or emulated host.
type Node interface {
	Name() string
	// IPv4 reports whether the node carries a network-layer stack.
	IPv4() bool
	Interfaces() []Interface
}
