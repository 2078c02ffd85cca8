package ir

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// AutoHandle is the placeholder target handle meaning "first free
// connectable parameter". It is resolved when a connection is made and is
// never a real parameter key.
const AutoHandle = "__auto__"

// All operations in this file are pure: they never mutate their input and
// return the input layer itself when nothing changes.

// EmptyGraph returns a layer with no nodes and no edges
func EmptyGraph() GraphLayer {
	return GraphLayer{Nodes: []GraphNode{}, Edges: []GraphEdge{}}
}

// NewNodeID returns a fresh node id prefixed with the type key
func NewNodeID(typeKey string) string {
	return fmt.Sprintf("%s-%s", typeKey, uuid.NewString()[:8])
}

// EdgeID derives the canonical edge id. Two connections with the same
// endpoints and handle collapse onto one edge.
func EdgeID(source, target, handle string) string {
	id := source + "->" + target
	if handle != "" {
		id += ":" + handle
	}
	return id
}

// Same reports whether g and other share their backing node and edge
// storage. Operations that change nothing return a layer that is Same as
// their input.
func (g GraphLayer) Same(other GraphLayer) bool {
	return sameSlice(g.Nodes, other.Nodes) && sameSlice(g.Edges, other.Edges)
}

func sameSlice[T any](a, b []T) bool {
	if len(a) != len(b) || cap(a) != cap(b) {
		return false
	}
	if len(a) == 0 {
		return (a == nil) == (b == nil)
	}
	return &a[0] == &b[0]
}

// NodeIndex returns the position of the node with the given id, or -1
func (g GraphLayer) NodeIndex(id string) int {
	return slices.IndexFunc(g.Nodes, func(n GraphNode) bool { return n.ID == id })
}

// Node returns the node with the given id
func (g GraphLayer) Node(id string) (GraphNode, bool) {
	if i := g.NodeIndex(id); i >= 0 {
		return g.Nodes[i], true
	}
	return GraphNode{}, false
}

// HasNode reports whether a node with the given id exists
func (g GraphLayer) HasNode(id string) bool {
	return g.NodeIndex(id) >= 0
}

// HasEdge reports whether an edge with the given id exists
func (g GraphLayer) HasEdge(id string) bool {
	return slices.ContainsFunc(g.Edges, func(e GraphEdge) bool { return e.ID == id })
}

// AddNode appends n. A node whose id already exists is ignored.
func AddNode(g GraphLayer, n GraphNode) GraphLayer {
	if g.HasNode(n.ID) {
		return g
	}
	nodes := make([]GraphNode, 0, len(g.Nodes)+1)
	nodes = append(nodes, g.Nodes...)
	nodes = append(nodes, n)
	return GraphLayer{Nodes: nodes, Edges: g.Edges}
}

// Connect adds an edge from source to the given parameter of target.
// Self loops and edges whose derived id already exists are ignored.
func Connect(g GraphLayer, source, target, handle string) GraphLayer {
	if source == target {
		return g
	}
	id := EdgeID(source, target, handle)
	if g.HasEdge(id) {
		return g
	}
	edges := make([]GraphEdge, 0, len(g.Edges)+1)
	edges = append(edges, g.Edges...)
	edges = append(edges, GraphEdge{
		ID:           id,
		Source:       source,
		Target:       target,
		TargetHandle: handle,
	})
	return GraphLayer{Nodes: g.Nodes, Edges: edges}
}

// SetParam stores value under key on the node with the given id.
// Unknown node ids leave the layer unchanged.
func SetParam(g GraphLayer, nodeID, key string, value Value) GraphLayer {
	return updateNode(g, nodeID, func(n *GraphNode) {
		params := make(map[string]Value, len(n.Params)+1)
		maps.Copy(params, n.Params)
		params[key] = value
		n.Params = params
	})
}

// SetLabel replaces the display label of a node
func SetLabel(g GraphLayer, nodeID, label string) GraphLayer {
	return updateNode(g, nodeID, func(n *GraphNode) {
		n.Label = label
	})
}

// SetCode replaces the source and signature of a code node
func SetCode(g GraphLayer, nodeID, code string, meta *CodeMeta) GraphLayer {
	return updateNode(g, nodeID, func(n *GraphNode) {
		n.Code = code
		n.CodeMeta = meta
	})
}

// ReplaceNode swaps the node with the same id for n
func ReplaceNode(g GraphLayer, n GraphNode) GraphLayer {
	return updateNode(g, n.ID, func(target *GraphNode) {
		*target = n
	})
}

func updateNode(g GraphLayer, nodeID string, fn func(*GraphNode)) GraphLayer {
	i := g.NodeIndex(nodeID)
	if i < 0 {
		return g
	}
	nodes := slices.Clone(g.Nodes)
	fn(&nodes[i])
	return GraphLayer{Nodes: nodes, Edges: g.Edges}
}

// RemoveNode deletes a node together with every edge touching it
func RemoveNode(g GraphLayer, nodeID string) GraphLayer {
	if !g.HasNode(nodeID) {
		return g
	}
	nodes := make([]GraphNode, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		if n.ID != nodeID {
			nodes = append(nodes, n)
		}
	}
	edges := make([]GraphEdge, 0, len(g.Edges))
	for _, e := range g.Edges {
		if e.Source != nodeID && e.Target != nodeID {
			edges = append(edges, e)
		}
	}
	return GraphLayer{Nodes: nodes, Edges: edges}
}

// RemoveEdge deletes the edge with the given id
func RemoveEdge(g GraphLayer, edgeID string) GraphLayer {
	if !g.HasEdge(edgeID) {
		return g
	}
	edges := make([]GraphEdge, 0, len(g.Edges))
	for _, e := range g.Edges {
		if e.ID != edgeID {
			edges = append(edges, e)
		}
	}
	return GraphLayer{Nodes: g.Nodes, Edges: edges}
}

// Sorted returns a copy of g with nodes and edges ordered by id
func Sorted(g GraphLayer) GraphLayer {
	nodes := slices.Clone(g.Nodes)
	if nodes == nil {
		nodes = []GraphNode{}
	}
	slices.SortStableFunc(nodes, func(a, b GraphNode) int { return strings.Compare(a.ID, b.ID) })
	edges := slices.Clone(g.Edges)
	if edges == nil {
		edges = []GraphEdge{}
	}
	slices.SortStableFunc(edges, func(a, b GraphEdge) int { return strings.Compare(a.ID, b.ID) })
	return GraphLayer{Nodes: nodes, Edges: edges}
}

// Serialize renders g canonically: nodes and edges sorted by id, map keys
// sorted. Two layers with the same content serialize identically whatever
// their insertion order.
func Serialize(g GraphLayer) (string, error) {
	data, err := json.Marshal(Sorted(g))
	if err != nil {
		return "", fmt.Errorf("serialize graph: %w", err)
	}
	return string(data), nil
}

// Incoming returns the edges targeting nodeID in edge order
func (g GraphLayer) Incoming(nodeID string) []GraphEdge {
	var in []GraphEdge
	for _, e := range g.Edges {
		if e.Target == nodeID {
			in = append(in, e)
		}
	}
	return in
}

// ResolveTargetHandle resolves AutoHandle to the first of candidates that
// has no incoming edge on targetID yet. Concrete handles are returned as is.
// candidates are the target's connectable parameter keys in declaration order.
func ResolveTargetHandle(g GraphLayer, candidates []string, targetID, handle string) (string, bool) {
	if handle != AutoHandle {
		return handle, true
	}
	taken := make(map[string]bool)
	for _, e := range g.Incoming(targetID) {
		taken[e.TargetHandle] = true
	}
	for _, key := range candidates {
		if !taken[key] {
			return key, true
		}
	}
	return "", false
}
