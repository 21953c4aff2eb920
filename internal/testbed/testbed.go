// Package testbed seeds the neighbor tables of a container-based testbed: every
// labeled container gets a permanent entry for every other experiment address.
package testbed

import (
	"Go2WlanSpectra/internal/config"
	"Go2WlanSpectra/internal/model"
	"Go2WlanSpectra/internal/neighbor"
	"context"
	"fmt"
	"log"
	"net"
	"net/netip"
	"sort"

	"github.com/containernetworking/plugins/pkg/ns"
	"github.com/digitalocean/go-openvswitch/ovs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	"github.com/vishvananda/netlink"
)

// Testbed talks to the docker daemon and the Open vSwitch bridge of the testbed.
type Testbed struct {
	cfg     config.TestbedConfig
	dClient *client.Client
	oClient *ovs.Client
}

// New connects to the docker daemon from the environment.
func New(cfg config.TestbedConfig) (*Testbed, error) {
	dClient, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &Testbed{cfg: cfg, dClient: dClient, oClient: ovs.New()}, nil
}

// Close releases the docker client.
func (tb *Testbed) Close() error {
	return tb.dClient.Close()
}

// Nodes returns every running container carrying the testbed label, in name order.
func (tb *Testbed) Nodes(ctx context.Context) ([]*Node, error) {
	list, err := tb.dClient.ContainerList(ctx, container.ListOptions{
		Filters: filters.NewArgs(filters.Arg("label", tb.cfg.Label)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	var nodes []*Node
	for _, c := range list {
		res, err := tb.dClient.ContainerInspect(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to inspect container %s: %w", c.ID, err)
		}
		if res.State == nil || res.State.Pid == 0 {
			log.Printf("Skipping container %s: not running", res.Name)
			continue
		}

		n := &Node{name: trimName(res.Name), netNS: fmt.Sprintf("/proc/%d/ns/net", res.State.Pid)}
		if err := n.discover(); err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].name < nodes[j].name })
	log.Printf("Found %d testbed containers with label '%s'", len(nodes), tb.cfg.Label)
	return nodes, nil
}

func trimName(name string) string {
	if len(name) > 0 && name[0] == '/' {
		return name[1:]
	}
	return name
}

// discover reads the links and IPv4 addresses of the node's namespace.
func (n *Node) discover() error {
	containerNs, err := ns.GetNS(n.netNS)
	if err != nil {
		return fmt.Errorf("failed to get namespace for container %s: %w", n.name, err)
	}
	defer containerNs.Close()

	return containerNs.Do(func(_ ns.NetNS) error {
		links, err := netlink.LinkList()
		if err != nil {
			return fmt.Errorf("failed to list links of %s: %w", n.name, err)
		}
		for _, link := range links {
			attrs := link.Attrs()
			iface := &Interface{
				name:     attrs.Name,
				index:    attrs.Index,
				mac:      attrs.HardwareAddr,
				loopback: attrs.Flags&net.FlagLoopback != 0,
			}
			addrs, err := netlink.AddrList(link, netlink.FAMILY_V4)
			if err != nil {
				return fmt.Errorf("failed to list addresses of %s/%s: %w", n.name, attrs.Name, err)
			}
			for _, a := range addrs {
				if addr, ok := netip.AddrFromSlice(a.IP.To4()); ok {
					iface.addrs = append(iface.addrs, addr)
				}
			}
			n.ifaces = append(n.ifaces, iface)
		}
		return nil
	})
}

// Models returns the nodes as model.Node values for the seeder.
func Models(nodes []*Node) []model.Node {
	out := make([]model.Node, len(nodes))
	for i, n := range nodes {
		out[i] = n
	}
	return out
}

// neighborsFor returns the permanent entries an interface needs: every entry of
// the table except the interface's own addresses.
func neighborsFor(iface *Interface, entries []neighbor.Entry) []netlink.Neigh {
	own := make(map[netip.Addr]bool, len(iface.addrs))
	for _, a := range iface.addrs {
		own[a] = true
	}

	var out []netlink.Neigh
	for _, e := range entries {
		if own[e.Addr] || !e.Addr.Is4() {
			continue
		}
		out = append(out, netlink.Neigh{
			LinkIndex:    iface.index,
			Family:       netlink.FAMILY_V4,
			State:        netlink.NUD_PERMANENT,
			IP:           net.IP(e.Addr.AsSlice()),
			HardwareAddr: e.MAC,
		})
	}
	return out
}

// InstallNeighbors writes the entries of table into the kernel neighbor table of
// every interface that was seeded from it.
func (tb *Testbed) InstallNeighbors(nodes []*Node, table *neighbor.Table) error {
	entries := table.Entries()
	total := 0
	for _, n := range nodes {
		containerNs, err := ns.GetNS(n.netNS)
		if err != nil {
			return fmt.Errorf("failed to get namespace for container %s: %w", n.name, err)
		}
		err = containerNs.Do(func(_ ns.NetNS) error {
			for _, iface := range n.ifaces {
				if iface.loopback || iface.resolver != table {
					continue
				}
				for _, neigh := range neighborsFor(iface, entries) {
					if err := netlink.NeighSet(&neigh); err != nil {
						return fmt.Errorf("failed to set neighbor %s on %s/%s: %w", neigh.IP, n.name, iface.name, err)
					}
					total++
				}
			}
			return nil
		})
		containerNs.Close()
		if err != nil {
			return err
		}
	}
	log.Printf("Installed %d permanent neighbor entries in %d containers.", total, len(nodes))
	return nil
}

// arpFlow matches every ARP frame crossing the bridge.
func arpFlow() *ovs.Flow {
	return &ovs.Flow{
		Priority: 100,
		Protocol: ovs.ProtocolARP,
		Actions:  []ovs.Action{ovs.Drop()},
	}
}

// SuppressARP drops ARP on the testbed bridge, so that any entry missing from
// the seeded tables shows up as lost traffic instead of a resolution exchange.
func (tb *Testbed) SuppressARP() error {
	if err := tb.oClient.OpenFlow.AddFlow(tb.cfg.Bridge, arpFlow()); err != nil {
		return fmt.Errorf("failed to add arp drop flow to %s: %w", tb.cfg.Bridge, err)
	}
	log.Printf("ARP suppressed on bridge %s", tb.cfg.Bridge)
	return nil
}

// RestoreARP removes the flow added by SuppressARP.
func (tb *Testbed) RestoreARP() error {
	if err := tb.oClient.OpenFlow.DelFlows(tb.cfg.Bridge, &ovs.MatchFlow{Protocol: ovs.ProtocolARP}); err != nil {
		return fmt.Errorf("failed to remove arp drop flow from %s: %w", tb.cfg.Bridge, err)
	}
	return nil
}

// Seed discovers the testbed, seeds one shared table over it, and installs it.
func (tb *Testbed) Seed(ctx context.Context) (*neighbor.Table, error) {
	nodes, err := tb.Nodes(ctx)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: no running container carries label '%s'", model.ErrConfig, tb.cfg.Label)
	}
	table, err := neighbor.Seed(Models(nodes))
	if err != nil {
		return nil, err
	}
	if err := tb.InstallNeighbors(nodes, table); err != nil {
		return nil, err
	}
	if tb.cfg.SuppressARP {
		if err := tb.SuppressARP(); err != nil {
			return nil, err
		}
	}
	return table, nil
}
