// Package cycles reports dependency cycles between graph nodes. Cycles are
// diagnostics only; evaluation and emission tolerate them.
package cycles

import (
	"slices"
	"strings"

	"gonum.org/v1/gonum/graph/topo"

	"github.com/ritzau/scenegraph/pkg/graph"
)

// Cycle is a set of nodes that all depend on each other
type Cycle struct {
	NodeIDs []string `json:"nodeIds"` // sorted
}

// FindCycles returns every cycle in the indexed graph, each with sorted
// node ids, ordered by their first id.
func FindCycles(idx *graph.Index) []Cycle {
	var cycles []Cycle
	for _, scc := range topo.TarjanSCC(idx.Graph()) {
		if len(scc) < 2 {
			continue
		}
		ids := make([]string, 0, len(scc))
		for _, n := range scc {
			if id, ok := idx.NodeID(n.ID()); ok {
				ids = append(ids, id)
			}
		}
		slices.Sort(ids)
		cycles = append(cycles, Cycle{NodeIDs: ids})
	}
	slices.SortFunc(cycles, func(a, b Cycle) int {
		return strings.Compare(a.NodeIDs[0], b.NodeIDs[0])
	})
	return cycles
}

// Members returns the set of node ids that sit on any cycle
func Members(cycles []Cycle) map[string]bool {
	members := make(map[string]bool)
	for _, c := range cycles {
		for _, id := range c.NodeIDs {
			members[id] = true
		}
	}
	return members
}
