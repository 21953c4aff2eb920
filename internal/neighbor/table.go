package neighbor

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sync"

	"golang.org/x/exp/slices"
)

// ErrFrozen is returned when adding to a table that has already been installed.
var ErrFrozen = errors.New("neighbor table is frozen")

// Entry is a permanent address-to-hardware mapping.
type Entry struct {
	Addr netip.Addr
	MAC  net.HardwareAddr
}

// Table is a shared, permanent neighbor table. Entries never expire.
// A table is built once, frozen, and then only read.
type Table struct {
	mu      sync.RWMutex
	entries map[netip.Addr]net.HardwareAddr
	frozen  bool
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{entries: make(map[netip.Addr]net.HardwareAddr)}
}

// Add records a permanent entry. Adding the same mapping twice is a no-op;
// mapping one address to two different hardware addresses is an error.
func (t *Table) Add(addr netip.Addr, mac net.HardwareAddr) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.frozen {
		return ErrFrozen
	}
	if prev, ok := t.entries[addr]; ok {
		if !bytes.Equal(prev, mac) {
			return fmt.Errorf("address %s claimed by both %s and %s", addr, prev, mac)
		}
		return nil
	}
	t.entries[addr] = append(net.HardwareAddr(nil), mac...)
	return nil
}

// Freeze makes the table read-only.
func (t *Table) Freeze() {
	t.mu.Lock()
	t.frozen = true
	t.mu.Unlock()
}

// Lookup implements model.Resolver.
func (t *Table) Lookup(addr netip.Addr) (net.HardwareAddr, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	mac, ok := t.entries[addr]
	return mac, ok
}

// Len returns the number of entries.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Entries returns a copy of every entry, sorted by address.
func (t *Table) Entries() []Entry {
	t.mu.RLock()
	out := make([]Entry, 0, len(t.entries))
	for addr, mac := range t.entries {
		out = append(out, Entry{Addr: addr, MAC: mac})
	}
	t.mu.RUnlock()

	slices.SortFunc(out, func(a, b Entry) int { return a.Addr.Compare(b.Addr) })
	return out
}
