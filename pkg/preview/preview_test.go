package preview

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/scenegraph/pkg/ir"
	"github.com/ritzau/scenegraph/pkg/registry"
)

func add(g ir.GraphLayer, id, typeKey string, params map[string]ir.Value) ir.GraphLayer {
	return ir.AddNode(g, ir.GraphNode{ID: id, TypeKey: typeKey, Params: params})
}

func TestEmptyGraph(t *testing.T) {
	scene := Compute(registry.New(), ir.EmptyGraph())
	assert.Empty(t, scene.Roots)
	assert.True(t, scene.DefaultLights)
	assert.Equal(t, DefaultCamera, scene.Camera)
	assert.Empty(t, scene.Cycles)
}

func TestPropagatedValuesReachMeshes(t *testing.T) {
	g := ir.EmptyGraph()
	g = add(g, "render", "render", nil)
	g = add(g, "box", "box", map[string]ir.Value{"height": ir.Number(3)})
	g = add(g, "five", "numberConst", map[string]ir.Value{"value": ir.Number(5)})
	g = add(g, "two", "numberConst", map[string]ir.Value{"value": ir.Number(2)})
	g = add(g, "sum", "add", nil)
	g = ir.Connect(g, "box", "render", "input")
	g = ir.Connect(g, "five", "sum", "a")
	g = ir.Connect(g, "two", "sum", "b")
	g = ir.Connect(g, "sum", "box", "width")

	scene := Compute(registry.New(), g)

	require.Len(t, scene.Roots, 1)
	root := scene.Roots[0]
	assert.Equal(t, "group", root.Role)
	require.Len(t, root.Children, 1, "value sources have no items")

	box := root.Children[0]
	assert.Equal(t, "mesh", box.Role)
	assert.Equal(t, ir.Number(7), box.Params["width"])
	assert.Equal(t, ir.Number(3), box.Params["height"])
	assert.Equal(t, ir.Number(1), box.Params["depth"], "definition defaults fill the gaps")
	assert.Equal(t, ir.String(registry.DefaultMeshColor), box.Params["color"])
	assert.True(t, scene.DefaultLights)
}

func TestReachableLightTurnsOffDefaults(t *testing.T) {
	g := ir.EmptyGraph()
	g = add(g, "render", "render", nil)
	g = add(g, "sun", "directionalLight", nil)
	g = add(g, "lamp", "pointLight", nil)
	g = ir.Connect(g, "lamp", "render", "input")

	scene := Compute(registry.New(), g)
	assert.False(t, scene.DefaultLights)
	require.Len(t, scene.Roots[0].Children, 1)
	assert.Equal(t, "lamp", scene.Roots[0].Children[0].ID)
}

func TestLightBehindValueNodeTurnsOffDefaults(t *testing.T) {
	g := ir.EmptyGraph()
	g = add(g, "render", "render", nil)
	g = add(g, "box", "box", nil)
	g = add(g, "sum", "add", nil)
	g = add(g, "lamp", "pointLight", nil)
	g = ir.Connect(g, "box", "render", "input")
	g = ir.Connect(g, "sum", "box", "width")
	g = ir.Connect(g, "lamp", "sum", "a")

	scene := Compute(registry.New(), g)
	assert.False(t, scene.DefaultLights, "reachable lights count even when not rendered")
	require.Len(t, scene.Roots[0].Children, 1)
	assert.Empty(t, scene.Roots[0].Children[0].Children)
}

func TestCameraIsLiftedOut(t *testing.T) {
	g := ir.EmptyGraph()
	g = add(g, "render", "render", nil)
	g = add(g, "cam", "camera", map[string]ir.Value{"fov": ir.Number(75), "positionY": ir.Number(9)})
	g = add(g, "ball", "sphere", nil)
	g = ir.Connect(g, "cam", "render", "input")
	g = ir.Connect(g, "ball", "cam", "input")

	scene := Compute(registry.New(), g)

	assert.Equal(t, Camera{NodeID: "cam", Position: [3]float64{2.5, 9, 4}, Fov: 75}, scene.Camera)
	require.Len(t, scene.Roots[0].Children, 1)
	assert.Equal(t, "ball", scene.Roots[0].Children[0].ID)
}

func TestUnknownKindsAreKept(t *testing.T) {
	g := ir.EmptyGraph()
	g = add(g, "render", "render", nil)
	g = add(g, "pot", "teapot", map[string]ir.Value{"spout": ir.Bool(true)})
	g = ir.Connect(g, "pot", "render", "input")

	scene := Compute(registry.New(), g)
	item := scene.Roots[0].Children[0]
	assert.Equal(t, "unknown", item.Role)
	assert.Equal(t, ir.Bool(true), item.Params["spout"])
}

func TestCyclesAreReported(t *testing.T) {
	g := ir.EmptyGraph()
	g = add(g, "render", "render", nil)
	g = add(g, "a", "scene", nil)
	g = add(g, "b", "scene", nil)
	g = ir.Connect(g, "a", "render", "input")
	g = ir.Connect(g, "b", "a", "input")
	g = ir.Connect(g, "a", "b", "input")

	scene := Compute(registry.New(), g)

	require.Len(t, scene.Cycles, 1)
	assert.Equal(t, []string{"a", "b"}, scene.Cycles[0].NodeIDs)
	a := scene.Roots[0].Children[0]
	require.Len(t, a.Children, 1)
	assert.Empty(t, a.Children[0].Children)
}

func TestSceneEncodesAsJSON(t *testing.T) {
	g := ir.EmptyGraph()
	g = add(g, "render", "render", nil)
	data, err := json.Marshal(Compute(registry.New(), g))
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"roots":[{"id":"render","typeKey":"render","role":"group"}],"camera":{"position":[2.5,2,4],"fov":50},"defaultLights":true}`,
		string(data))
}
