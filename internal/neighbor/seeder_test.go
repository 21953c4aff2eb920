package neighbor

import (
	"Go2WlanSpectra/internal/model"
	"errors"
	"net"
	"net/netip"
	"testing"
)

type fakeIface struct {
	name     string
	mac      net.HardwareAddr
	addrs    []netip.Addr
	loopback bool
	resolver model.Resolver
}

func (f *fakeIface) Name() string                   { return f.name }
func (f *fakeIface) HardwareAddr() net.HardwareAddr { return f.mac }
func (f *fakeIface) Addrs() []netip.Addr            { return f.addrs }
func (f *fakeIface) Loopback() bool                 { return f.loopback }
func (f *fakeIface) SetResolver(r model.Resolver)   { f.resolver = r }

type fakeNode struct {
	name   string
	ip     bool
	ifaces []*fakeIface
}

func (f *fakeNode) Name() string { return f.name }
func (f *fakeNode) IPv4() bool   { return f.ip }
func (f *fakeNode) Interfaces() []model.Interface {
	out := make([]model.Interface, len(f.ifaces))
	for i, iface := range f.ifaces {
		out[i] = iface
	}
	return out
}

func newNode(name string, addr string, mac byte) *fakeNode {
	return &fakeNode{
		name: name,
		ip:   true,
		ifaces: []*fakeIface{
			{name: "lo", loopback: true, mac: net.HardwareAddr{0, 0, 0, 0, 0, 0}, addrs: []netip.Addr{netip.MustParseAddr("127.0.0.1")}},
			{name: "wlan0", mac: net.HardwareAddr{0x02, 0, 0, 0, 0, mac}, addrs: []netip.Addr{netip.MustParseAddr(addr)}},
		},
	}
}

func TestSeed(t *testing.T) {
	ap := newNode("ap0", "192.168.1.1", 1)
	sta := newNode("sta0", "192.168.1.2", 2)

	table, err := Seed([]model.Node{ap, sta})
	if err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	// 1. Loopback addresses are never recorded.
	if table.Len() != 2 {
		t.Fatalf("Expected 2 entries, got %d", table.Len())
	}
	if _, ok := table.Lookup(netip.MustParseAddr("127.0.0.1")); ok {
		t.Errorf("Loopback address should not be in the table")
	}

	// 2. A station resolves its AP without any exchange.
	mac, ok := sta.ifaces[1].resolver.Lookup(netip.MustParseAddr("192.168.1.1"))
	if !ok || mac.String() != "02:00:00:00:00:01" {
		t.Errorf("Expected AP hardware address, got %v (%v)", mac, ok)
	}

	// 3. Every interface shares the same table.
	for _, n := range []*fakeNode{ap, sta} {
		for _, iface := range n.ifaces {
			if iface.resolver != table {
				t.Errorf("Interface %s/%s does not use the shared table", n.name, iface.name)
			}
		}
	}

	// 4. The table is frozen after seeding.
	if err := table.Add(netip.MustParseAddr("192.168.1.9"), net.HardwareAddr{1, 2, 3, 4, 5, 6}); !errors.Is(err, ErrFrozen) {
		t.Errorf("Expected ErrFrozen, got %v", err)
	}
}

func TestSeed_NodeWithoutStack(t *testing.T) {
	bad := newNode("bridge", "192.168.1.3", 3)
	bad.ip = false

	_, err := Seed([]model.Node{newNode("ap0", "192.168.1.1", 1), bad})
	if !errors.Is(err, model.ErrConfig) {
		t.Fatalf("Expected configuration error, got %v", err)
	}
}

func TestSeed_ConflictingAddress(t *testing.T) {
	a := newNode("a", "192.168.1.1", 1)
	b := newNode("b", "192.168.1.1", 2)

	if _, err := Seed([]model.Node{a, b}); !errors.Is(err, model.ErrConfig) {
		t.Fatalf("Expected configuration error for a duplicate address, got %v", err)
	}
}

func TestTable_Entries(t *testing.T) {
	table := NewTable()
	table.Add(netip.MustParseAddr("10.0.0.2"), net.HardwareAddr{2})
	table.Add(netip.MustParseAddr("10.0.0.1"), net.HardwareAddr{1})
	table.Add(netip.MustParseAddr("10.0.0.1"), net.HardwareAddr{1})

	entries := table.Entries()
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Addr.String() != "10.0.0.1" {
		t.Errorf("Expected entries sorted by address, got %s first", entries[0].Addr)
	}
}
