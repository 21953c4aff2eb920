package fluid

import (
	"Go2WlanSpectra/internal/model"
	"net"
	"net/netip"
)

type iface struct {
	name     string
	mac      net.HardwareAddr
	addrs    []netip.Addr
	loopback bool
	resolver model.Resolver
}

func (i *iface) Name() string                   { return i.name }
func (i *iface) HardwareAddr() net.HardwareAddr { return i.mac }
func (i *iface) Addrs() []netip.Addr            { return i.addrs }
func (i *iface) Loopback() bool                 { return i.loopback }
func (i *iface) SetResolver(r model.Resolver)   { i.resolver = r }

// resolves reports whether the interface can reach addr without an address resolution exchange.
func (i *iface) resolves(addr netip.Addr) bool {
	if i.resolver == nil {
		return false
	}
	_, ok := i.resolver.Lookup(addr)
	return ok
}

// node is a host with a loopback and a single wireless interface.
type node struct {
	host   model.Host
	cell   int
	ap     bool
	ifaces []*iface
}

func newNode(host model.Host, cell int, ap bool) *node {
	return &node{
		host: host,
		cell: cell,
		ap:   ap,
		ifaces: []*iface{
			{
				name:     "lo",
				mac:      net.HardwareAddr{0, 0, 0, 0, 0, 0},
				addrs:    []netip.Addr{netip.MustParseAddr("127.0.0.1")},
				loopback: true,
			},
			{
				name:  "wlan0",
				mac:   host.MAC,
				addrs: []netip.Addr{host.Addr},
			},
		},
	}
}

func (n *node) Name() string { return n.host.Name }
func (n *node) IPv4() bool   { return true }

func (n *node) Interfaces() []model.Interface {
	out := make([]model.Interface, len(n.ifaces))
	for i, f := range n.ifaces {
		out[i] = f
	}
	return out
}

func (n *node) wlan() *iface {
	return n.ifaces[1]
}
