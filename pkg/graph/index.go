// Package graph indexes a GraphLayer for traversal: per-node incoming and
// outgoing edge lists plus a gonum directed graph for structural analysis.
package graph

import (
	"gonum.org/v1/gonum/graph/simple"

	"github.com/ritzau/scenegraph/pkg/ir"
)

// Index is a read-only view over one GraphLayer. Edges point in data flow
// direction: from the producing node (source) to the consuming node (target).
type Index struct {
	graph    *simple.DirectedGraph
	nodes    map[string]ir.GraphNode
	order    []string         // node ids in layer order
	ids      map[string]int64 // node id to graph ID
	incoming map[string][]ir.GraphEdge
	outgoing map[string][]ir.GraphEdge
}

// NewIndex builds an index for layer. Edges naming unknown nodes are kept in
// the edge lists but left out of the directed graph.
func NewIndex(layer ir.GraphLayer) *Index {
	idx := &Index{
		graph:    simple.NewDirectedGraph(),
		nodes:    make(map[string]ir.GraphNode, len(layer.Nodes)),
		order:    make([]string, 0, len(layer.Nodes)),
		ids:      make(map[string]int64, len(layer.Nodes)),
		incoming: make(map[string][]ir.GraphEdge),
		outgoing: make(map[string][]ir.GraphEdge),
	}

	for _, n := range layer.Nodes {
		idx.addNode(n)
	}
	for _, e := range layer.Edges {
		idx.addEdge(e)
	}
	return idx
}

// FromParts indexes a node list and edge list that are not wrapped in a layer
func FromParts(nodes []ir.GraphNode, edges []ir.GraphEdge) *Index {
	return NewIndex(ir.GraphLayer{Nodes: nodes, Edges: edges})
}

func (idx *Index) addNode(n ir.GraphNode) {
	if _, exists := idx.nodes[n.ID]; exists {
		return
	}
	id := int64(len(idx.order))
	idx.nodes[n.ID] = n
	idx.ids[n.ID] = id
	idx.order = append(idx.order, n.ID)
	idx.graph.AddNode(simple.Node(id))
}

func (idx *Index) addEdge(e ir.GraphEdge) {
	idx.incoming[e.Target] = append(idx.incoming[e.Target], e)
	idx.outgoing[e.Source] = append(idx.outgoing[e.Source], e)

	sourceID, okSource := idx.ids[e.Source]
	targetID, okTarget := idx.ids[e.Target]
	// gonum refuses self edges
	if !okSource || !okTarget || sourceID == targetID {
		return
	}
	if !idx.graph.HasEdgeFromTo(sourceID, targetID) {
		edge := idx.graph.NewEdge(idx.graph.Node(sourceID), idx.graph.Node(targetID))
		idx.graph.SetEdge(edge)
	}
}

// Node returns the node with the given id
func (idx *Index) Node(id string) (ir.GraphNode, bool) {
	n, ok := idx.nodes[id]
	return n, ok
}

// Has reports whether the node exists
func (idx *Index) Has(id string) bool {
	_, ok := idx.nodes[id]
	return ok
}

// NodeIDs returns node ids in layer order
func (idx *Index) NodeIDs() []string {
	return append([]string(nil), idx.order...)
}

// Len returns the number of indexed nodes
func (idx *Index) Len() int {
	return len(idx.order)
}

// Incoming returns the edges targeting id, in edge order
func (idx *Index) Incoming(id string) []ir.GraphEdge {
	return idx.incoming[id]
}

// IncomingOn returns the last edge targeting the given parameter of id.
// Later edges win, as they do for effective parameter values.
func (idx *Index) IncomingOn(id, handle string) (ir.GraphEdge, bool) {
	in := idx.incoming[id]
	for i := len(in) - 1; i >= 0; i-- {
		if in[i].TargetHandle == handle {
			return in[i], true
		}
	}
	return ir.GraphEdge{}, false
}

// Outgoing returns the edges leaving id, in edge order
func (idx *Index) Outgoing(id string) []ir.GraphEdge {
	return idx.outgoing[id]
}

// Graph returns the underlying directed graph
func (idx *Index) Graph() *simple.DirectedGraph {
	return idx.graph
}

// GraphID returns the gonum ID of a node
func (idx *Index) GraphID(id string) (int64, bool) {
	gid, ok := idx.ids[id]
	return gid, ok
}

// NodeID maps a gonum ID back to the node id
func (idx *Index) NodeID(gid int64) (string, bool) {
	if gid < 0 || gid >= int64(len(idx.order)) {
		return "", false
	}
	return idx.order[gid], true
}

// Dependencies returns the distinct source ids feeding id, in edge order
func (idx *Index) Dependencies(id string) []string {
	seen := make(map[string]bool)
	var deps []string
	for _, e := range idx.incoming[id] {
		if !seen[e.Source] {
			seen[e.Source] = true
			deps = append(deps, e.Source)
		}
	}
	return deps
}
