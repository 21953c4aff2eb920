package testbed

import (
	"Go2WlanSpectra/internal/model"
	"net"
	"net/netip"
)

// Interface is a network interface inside a container's network namespace.
type Interface struct {
	name     string
	index    int
	mac      net.HardwareAddr
	addrs    []netip.Addr
	loopback bool
	resolver model.Resolver
}

func (i *Interface) Name() string                   { return i.name }
func (i *Interface) HardwareAddr() net.HardwareAddr { return i.mac }
func (i *Interface) Addrs() []netip.Addr            { return i.addrs }
func (i *Interface) Loopback() bool                 { return i.loopback }

// SetResolver records the table this interface must be populated from.
// Nothing reaches the kernel until Testbed.InstallNeighbors runs.
func (i *Interface) SetResolver(r model.Resolver) { i.resolver = r }

// Node is a running container of the testbed.
type Node struct {
	name   string
	netNS  string
	ifaces []*Interface
}

func (n *Node) Name() string { return n.name }

// IPv4 reports whether the container has at least one IPv4 address.
func (n *Node) IPv4() bool {
	for _, iface := range n.ifaces {
		if !iface.loopback && len(iface.addrs) > 0 {
			return true
		}
	}
	return false
}

func (n *Node) Interfaces() []model.Interface {
	out := make([]model.Interface, len(n.ifaces))
	for i, iface := range n.ifaces {
		out[i] = iface
	}
	return out
}

// NetNS returns the path of the container's network namespace.
func (n *Node) NetNS() string { return n.netNS }
