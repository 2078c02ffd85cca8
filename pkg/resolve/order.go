package resolve

import (
	"sort"

	"github.com/ritzau/scenegraph/pkg/cycles"
	"github.com/ritzau/scenegraph/pkg/graph"
	"github.com/ritzau/scenegraph/pkg/ir"
)

// OrderedNode is a node annotated with its direct dependencies and depth
type OrderedNode struct {
	Node         ir.GraphNode
	Dependencies []string
	Depth        int
}

// ResolveOrder returns all nodes sorted by ascending depth, where depth is
// zero without dependencies and one more than the deepest dependency
// otherwise. Ties keep node order. A node re-entered while its own depth is
// still being computed counts as depth zero, so cycles terminate.
func ResolveOrder(nodes []ir.GraphNode, edges []ir.GraphEdge) []OrderedNode {
	idx := graph.FromParts(nodes, edges)
	depths := make(map[string]int, len(nodes))
	visiting := make(map[string]bool, len(nodes))

	var depth func(id string) int
	depth = func(id string) int {
		if d, ok := depths[id]; ok {
			return d
		}
		if visiting[id] {
			return 0
		}
		visiting[id] = true

		deepest := -1
		for _, dep := range idx.Dependencies(id) {
			if d := depth(dep); d > deepest {
				deepest = d
			}
		}
		depths[id] = deepest + 1
		return deepest + 1
	}

	ordered := make([]OrderedNode, 0, len(nodes))
	for _, n := range nodes {
		ordered = append(ordered, OrderedNode{
			Node:         n,
			Dependencies: idx.Dependencies(n.ID),
			Depth:        depth(n.ID),
		})
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Depth < ordered[j].Depth
	})
	return ordered
}

// Nodes strips the annotations from an ordered list
func Nodes(ordered []OrderedNode) []ir.GraphNode {
	nodes := make([]ir.GraphNode, len(ordered))
	for i, o := range ordered {
		nodes[i] = o.Node
	}
	return nodes
}

// Cycles reports the dependency cycles of a layer
func Cycles(layer ir.GraphLayer) []cycles.Cycle {
	return cycles.FindCycles(graph.NewIndex(layer))
}
