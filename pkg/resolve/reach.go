// Package resolve computes which nodes feed a render root, the child tree
// under each root, and a dependency order over the whole graph.
package resolve

import (
	"maps"
	"slices"

	"github.com/ritzau/scenegraph/pkg/graph"
	"github.com/ritzau/scenegraph/pkg/ir"
	"github.com/ritzau/scenegraph/pkg/logging"
)

// RenderRoot is the type key of nodes that anchor an emitted scene
const RenderRoot = "render"

// Set is a set of node ids
type Set map[string]struct{}

// Has reports membership
func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id
func (s Set) Add(id string) {
	s[id] = struct{}{}
}

// Sorted returns the members in lexical order
func (s Set) Sorted() []string {
	return slices.Sorted(maps.Keys(s))
}

// Union merges other into s
func (s Set) Union(other Set) {
	for id := range other {
		s.Add(id)
	}
}

// Reachable returns rootID together with every node whose output flows into
// it through any chain of edges. Cycles are harmless.
func Reachable(rootID string, nodes []ir.GraphNode, edges []ir.GraphEdge) Set {
	return reachable(rootID, graph.FromParts(nodes, edges))
}

func reachable(rootID string, idx *graph.Index) Set {
	visited := Set{}
	work := []string{rootID}
	for len(work) > 0 {
		id := work[len(work)-1]
		work = work[:len(work)-1]
		if visited.Has(id) {
			continue
		}
		visited.Add(id)
		for _, e := range idx.Incoming(id) {
			if !visited.Has(e.Source) {
				work = append(work, e.Source)
			}
		}
	}
	return visited
}

// Hierarchy is the child tree below one node. Children are the sources of
// the node's incoming edges, in edge order.
type Hierarchy struct {
	Node     ir.GraphNode
	Handle   string // parameter of the parent this subtree feeds
	Children []*Hierarchy

	// CycleBreaks lists children refused because they were already on the
	// path from the root
	CycleBreaks []string
}

// Walk visits h and its descendants depth first
func (h *Hierarchy) Walk(fn func(*Hierarchy)) {
	fn(h)
	for _, c := range h.Children {
		c.Walk(fn)
	}
}

// BuildHierarchy builds the tree under nodeID, restricted to reachable nodes.
// visitedPath holds the ids on the current path from the root; a child
// already on it is refused so the result is always finite. Returns nil when
// nodeID is not in the index.
func BuildHierarchy(nodeID string, idx *graph.Index, reach Set, visitedPath Set) *Hierarchy {
	node, ok := idx.Node(nodeID)
	if !ok {
		return nil
	}
	if visitedPath == nil {
		visitedPath = Set{}
	}

	visitedPath.Add(nodeID)
	defer delete(visitedPath, nodeID)

	h := &Hierarchy{Node: node}
	for _, e := range idx.Incoming(nodeID) {
		if !reach.Has(e.Source) {
			continue
		}
		if visitedPath.Has(e.Source) {
			logging.Warn("cycle in scene hierarchy, dropping child",
				"nodeId", nodeID, "childId", e.Source, "handle", e.TargetHandle)
			h.CycleBreaks = append(h.CycleBreaks, e.Source)
			continue
		}
		child := BuildHierarchy(e.Source, idx, reach, visitedPath)
		if child == nil {
			continue
		}
		child.Handle = e.TargetHandle
		h.Children = append(h.Children, child)
	}
	return h
}

// Root is one resolved render root
type Root struct {
	ID        string
	Reachable Set
	Tree      *Hierarchy
}

// Roots returns the ids of all nodes of the given type, in node order
func Roots(nodes []ir.GraphNode, typeKey string) []string {
	var ids []string
	for _, n := range nodes {
		if n.TypeKey == typeKey {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

// ResolveRoots resolves every node of type rootType independently, in the
// order the roots appear in nodes.
func ResolveRoots(nodes []ir.GraphNode, edges []ir.GraphEdge, rootType string) []Root {
	idx := graph.FromParts(nodes, edges)
	ids := Roots(nodes, rootType)
	roots := make([]Root, 0, len(ids))
	for _, id := range ids {
		reach := reachable(id, idx)
		roots = append(roots, Root{
			ID:        id,
			Reachable: reach,
			Tree:      BuildHierarchy(id, idx, reach, Set{}),
		})
	}
	return roots
}

// ReachableUnion is the union of the reachable sets of roots
func ReachableUnion(roots []Root) Set {
	all := Set{}
	for _, r := range roots {
		all.Union(r.Reachable)
	}
	return all
}
