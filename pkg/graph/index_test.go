package graph

import (
	"testing"

	"github.com/ritzau/scenegraph/pkg/ir"
)

func buildLayer() ir.GraphLayer {
	g := ir.EmptyGraph()
	g = ir.AddNode(g, ir.GraphNode{ID: "render", TypeKey: "render"})
	g = ir.AddNode(g, ir.GraphNode{ID: "box", TypeKey: "box"})
	g = ir.AddNode(g, ir.GraphNode{ID: "w", TypeKey: "numberConst"})
	g = ir.Connect(g, "box", "render", "input")
	g = ir.Connect(g, "w", "box", "width")
	g = ir.Connect(g, "w", "box", "height")
	return g
}

func TestNewIndex(t *testing.T) {
	idx := NewIndex(buildLayer())

	if idx.Len() != 3 {
		t.Errorf("Expected 3 nodes, got %d", idx.Len())
	}

	node, ok := idx.Node("box")
	if !ok {
		t.Fatal("box not found in index")
	}
	if node.TypeKey != "box" {
		t.Errorf("Expected type box, got %s", node.TypeKey)
	}

	if got := idx.NodeIDs(); len(got) != 3 || got[0] != "render" || got[2] != "w" {
		t.Errorf("Node order not preserved: %v", got)
	}
}

func TestIncomingAndOutgoing(t *testing.T) {
	idx := NewIndex(buildLayer())

	in := idx.Incoming("box")
	if len(in) != 2 {
		t.Fatalf("Expected 2 incoming edges on box, got %d", len(in))
	}
	if in[0].TargetHandle != "width" || in[1].TargetHandle != "height" {
		t.Errorf("Incoming edges out of order: %v", in)
	}

	if e, ok := idx.IncomingOn("box", "height"); !ok || e.Source != "w" {
		t.Errorf("Expected height edge from w, got %v %v", e, ok)
	}
	if _, ok := idx.IncomingOn("box", "depth"); ok {
		t.Error("depth has no incoming edge")
	}

	twice := ir.AddNode(buildLayer(), ir.GraphNode{ID: "d", TypeKey: "numberConst"})
	twice = ir.Connect(twice, "d", "box", "height")
	if e, ok := NewIndex(twice).IncomingOn("box", "height"); !ok || e.Source != "d" {
		t.Errorf("Expected the later height edge from d, got %v %v", e, ok)
	}

	if out := idx.Outgoing("w"); len(out) != 2 {
		t.Errorf("Expected 2 outgoing edges from w, got %d", len(out))
	}

	// Two edges between the same pair collapse to one graph edge
	if deps := idx.Dependencies("box"); len(deps) != 1 || deps[0] != "w" {
		t.Errorf("Expected single dependency w, got %v", deps)
	}
}

func TestGraphIDsRoundTrip(t *testing.T) {
	idx := NewIndex(buildLayer())

	for _, id := range idx.NodeIDs() {
		gid, ok := idx.GraphID(id)
		if !ok {
			t.Fatalf("No graph id for %s", id)
		}
		back, ok := idx.NodeID(gid)
		if !ok || back != id {
			t.Errorf("Expected %s, got %s", id, back)
		}
	}

	wID, _ := idx.GraphID("w")
	boxID, _ := idx.GraphID("box")
	if !idx.Graph().HasEdgeFromTo(wID, boxID) {
		t.Error("Expected graph edge w -> box")
	}
	if idx.Graph().HasEdgeFromTo(boxID, wID) {
		t.Error("Unexpected reverse edge box -> w")
	}
}

func TestDanglingEdgesStayOutOfGraph(t *testing.T) {
	layer := buildLayer()
	layer.Edges = append(layer.Edges, ir.GraphEdge{ID: "ghost->box", Source: "ghost", Target: "box"})
	layer.Edges = append(layer.Edges, ir.GraphEdge{ID: "box->box", Source: "box", Target: "box"})

	idx := NewIndex(layer)
	if len(idx.Incoming("box")) != 4 {
		t.Errorf("Expected dangling and self edges in the edge list")
	}
	if idx.Graph().Edges().Len() != 2 {
		t.Errorf("Expected 2 graph edges, got %d", idx.Graph().Edges().Len())
	}
}
