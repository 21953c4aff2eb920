package fluid

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// defers reports whether a transmitter in cell a keeps cell b off the air.
// Frames from a differently colored cell are ignored below the OBSS-PD level;
// everything else is deferred to from the preamble detection level upward.
func (e *Engine) defers(a, b int) bool {
	threshold := e.radio.MinimumRSSI
	ca, cb := e.layout.Cells[a].Color, e.layout.Cells[b].Color
	if e.radio.EnableObssPd && ca != 0 && cb != 0 && ca != cb {
		threshold = e.radio.ObssPdThreshold
	}
	return e.strongestRSSI(a, b) >= threshold
}

// strongestRSSI returns the strongest signal, in dBm, that any node of cell b
// receives from any transmitter of cell a.
func (e *Engine) strongestRSSI(a, b int) float64 {
	best := math.Inf(-1)
	for _, tx := range e.cellNodes[a] {
		for _, rx := range e.cellNodes[b] {
			if rssi := e.rssi(tx, rx); rssi > best {
				best = rssi
			}
		}
	}
	return best
}

// contentionDomains groups cells that defer to each other, directly or through
// a chain of neighbors, into domains that share one channel's airtime.
func (e *Engine) contentionDomains() [][]int {
	g := simple.NewUndirectedGraph()
	for i := range e.layout.Cells {
		g.AddNode(simple.Node(i))
	}
	for a := range e.layout.Cells {
		for b := a + 1; b < len(e.layout.Cells); b++ {
			if e.defers(a, b) || e.defers(b, a) {
				g.SetEdge(simple.Edge{F: simple.Node(a), T: simple.Node(b)})
			}
		}
	}

	var domains [][]int
	for _, component := range topo.ConnectedComponents(g) {
		cells := make([]int, 0, len(component))
		for _, n := range component {
			cells = append(cells, int(n.ID()))
		}
		sort.Ints(cells)
		domains = append(domains, cells)
	}
	sort.Slice(domains, func(i, j int) bool { return domains[i][0] < domains[j][0] })
	return domains
}
