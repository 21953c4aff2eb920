// Package neighbor pre-populates every interface of every node with one shared,
// permanent neighbor table so that no address resolution traffic is generated
// during an experiment.
package neighbor

import (
	"Go2WlanSpectra/internal/model"
	"fmt"
	"log"
)

// Seed builds a single table from every non-loopback address of every interface
// of every node, then installs that same table on every interface.
// A node without a network-layer stack is a fatal configuration error.
func Seed(nodes []model.Node) (*Table, error) {
	table := NewTable()

	// 1. Collect every address across the whole inventory.
	for _, node := range nodes {
		if !node.IPv4() {
			return nil, fmt.Errorf("%w: node %s has no network-layer stack", model.ErrConfig, node.Name())
		}
		for _, iface := range node.Interfaces() {
			if iface.Loopback() {
				continue
			}
			for _, addr := range iface.Addrs() {
				if addr.IsLoopback() {
					continue
				}
				if err := table.Add(addr, iface.HardwareAddr()); err != nil {
					return nil, fmt.Errorf("%w: node %s interface %s: %v", model.ErrConfig, node.Name(), iface.Name(), err)
				}
			}
		}
	}
	table.Freeze()

	// 2. Every interface resolves through the same table.
	installed := 0
	for _, node := range nodes {
		for _, iface := range node.Interfaces() {
			iface.SetResolver(table)
			installed++
		}
	}

	log.Printf("Seeded neighbor table with %d entries on %d interfaces.", table.Len(), installed)
	return table, nil
}
