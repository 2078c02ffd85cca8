package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleGraph() GraphLayer {
	g := EmptyGraph()
	g = AddNode(g, GraphNode{ID: "render-1", TypeKey: "render"})
	g = AddNode(g, GraphNode{ID: "box-1", TypeKey: "box", Params: map[string]Value{"width": Number(2)}})
	g = AddNode(g, GraphNode{ID: "num-1", TypeKey: "numberConst", Params: map[string]Value{"value": Number(3)}})
	g = Connect(g, "box-1", "render-1", "input")
	g = Connect(g, "num-1", "box-1", "height")
	return g
}

func TestEdgeID(t *testing.T) {
	assert.Equal(t, "a->b", EdgeID("a", "b", ""))
	assert.Equal(t, "a->b:width", EdgeID("a", "b", "width"))
}

func TestConnectIgnoresSelfLoopsAndDuplicates(t *testing.T) {
	g := sampleGraph()

	assert.True(t, Connect(g, "box-1", "box-1", "width").Same(g), "self loop must be a no-op")
	assert.True(t, Connect(g, "num-1", "box-1", "height").Same(g), "duplicate edge must be a no-op")

	next := Connect(g, "num-1", "box-1", "depth")
	assert.False(t, next.Same(g))
	assert.Len(t, next.Edges, 3)
	assert.Len(t, g.Edges, 2, "input layer must not change")
}

func TestAddNodeIgnoresDuplicateIDs(t *testing.T) {
	g := sampleGraph()
	next := AddNode(g, GraphNode{ID: "box-1", TypeKey: "sphere"})
	assert.True(t, next.Same(g))
	n, ok := next.Node("box-1")
	require.True(t, ok)
	assert.Equal(t, "box", n.TypeKey)
}

func TestSetParamCopiesNode(t *testing.T) {
	g := sampleGraph()
	next := SetParam(g, "box-1", "width", Number(5))

	before, _ := g.Node("box-1")
	after, _ := next.Node("box-1")
	assert.Equal(t, Number(2), before.Params["width"])
	assert.Equal(t, Number(5), after.Params["width"])

	assert.True(t, SetParam(g, "missing", "width", Number(1)).Same(g))
}

func TestRemoveNodeDropsTouchingEdges(t *testing.T) {
	g := RemoveNode(sampleGraph(), "box-1")
	assert.False(t, g.HasNode("box-1"))
	assert.Empty(t, g.Edges)
	assert.Len(t, g.Nodes, 2)
}

func TestRemoveEdge(t *testing.T) {
	g := sampleGraph()
	next := RemoveEdge(g, "num-1->box-1:height")
	assert.Len(t, next.Edges, 1)
	assert.True(t, RemoveEdge(next, "num-1->box-1:height").Same(next))
}

func TestSerializeIsOrderIndependent(t *testing.T) {
	a := sampleGraph()

	b := EmptyGraph()
	b = AddNode(b, GraphNode{ID: "num-1", TypeKey: "numberConst", Params: map[string]Value{"value": Number(3)}})
	b = AddNode(b, GraphNode{ID: "box-1", TypeKey: "box", Params: map[string]Value{"width": Number(2)}})
	b = AddNode(b, GraphNode{ID: "render-1", TypeKey: "render"})
	b = Connect(b, "num-1", "box-1", "height")
	b = Connect(b, "box-1", "render-1", "input")

	sa, err := Serialize(a)
	require.NoError(t, err)
	sb, err := Serialize(b)
	require.NoError(t, err)
	assert.Equal(t, sa, sb)

	again, err := Serialize(a)
	require.NoError(t, err)
	assert.Equal(t, sa, again)
}

func TestValueJSON(t *testing.T) {
	var params map[string]Value
	require.NoError(t, json.Unmarshal([]byte(`{"a":1.5,"b":"x","c":true,"d":null}`), &params))
	assert.Equal(t, Number(1.5), params["a"])
	assert.Equal(t, String("x"), params["b"])
	assert.Equal(t, Bool(true), params["c"])
	assert.True(t, params["d"].IsNull())

	out, err := json.Marshal(params)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1.5,"b":"x","c":true,"d":null}`, string(out))

	var v Value
	assert.Error(t, json.Unmarshal([]byte(`{"nested":1}`), &v))
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &v))
}

func TestNewNodeIDIsPrefixed(t *testing.T) {
	id := NewNodeID("box")
	assert.Regexp(t, `^box-[0-9a-f]{8}$`, id)
	assert.NotEqual(t, id, NewNodeID("box"))
}

func TestResolveTargetHandle(t *testing.T) {
	g := sampleGraph()
	candidates := []string{"width", "height", "depth"}

	handle, ok := ResolveTargetHandle(g, candidates, "box-1", AutoHandle)
	require.True(t, ok)
	assert.Equal(t, "width", handle)

	g = Connect(g, "num-1", "box-1", "width")
	handle, ok = ResolveTargetHandle(g, candidates, "box-1", AutoHandle)
	require.True(t, ok)
	assert.Equal(t, "depth", handle, "height is already connected")

	g = Connect(g, "num-1", "box-1", "depth")
	_, ok = ResolveTargetHandle(g, candidates, "box-1", AutoHandle)
	assert.False(t, ok)

	handle, ok = ResolveTargetHandle(g, candidates, "box-1", "color")
	assert.True(t, ok)
	assert.Equal(t, "color", handle)
}

func TestSerializeSameLogicalState(t *testing.T) {
	build := func() GraphLayer {
		g := AddNode(EmptyGraph(), GraphNode{ID: "a", TypeKey: "numberConst"})
		g = AddNode(g, GraphNode{ID: "b", TypeKey: "box"})
		g = Connect(g, "a", "b", "width")
		return SetParam(g, "b", "k", String("v"))
	}

	first, err := Serialize(build())
	require.NoError(t, err)
	second, err := Serialize(build())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Contains(t, first, `"id":"a->b:width"`)
}
