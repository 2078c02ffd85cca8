package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/scenegraph/pkg/ir"
)

func TestBuiltinsPassSelfCheck(t *testing.T) {
	reg := New()
	assert.Empty(t, reg.Check())
}

func TestLookup(t *testing.T) {
	reg := New()

	box, ok := reg.Lookup("box")
	require.True(t, ok)
	assert.Equal(t, CategoryMesh, box.Category)
	assert.Equal(t, TypeMesh, box.OutputType)

	width, ok := box.Param("width")
	require.True(t, ok)
	assert.Equal(t, ir.Number(1), width.DefaultValue)
	assert.Equal(t, 0.1, *width.Min)
	assert.Equal(t, 10.0, *width.Max)

	_, ok = reg.Lookup("teapot")
	assert.False(t, ok)
}

func TestLookupReturnsCopies(t *testing.T) {
	reg := New()
	box, _ := reg.Lookup("box")
	box.Parameters[0].Key = "mutated"

	again, _ := reg.Lookup("box")
	assert.Equal(t, "width", again.Parameters[0].Key)
}

func TestOverlaysWinOnCollision(t *testing.T) {
	overlay := map[string]NodeTypeDefinition{
		"box": {Label: "Custom Box", Category: CategoryGeometry},
		"torus": {
			Label:    "Torus",
			Category: CategoryGeometry,
			Parameters: []ParameterDefinition{
				{Key: "radius", Label: "Radius", Type: TypeNumber, DefaultValue: ir.Number(1)},
			},
		},
	}
	reg := New(overlay)

	box, ok := reg.Lookup("box")
	require.True(t, ok)
	assert.Equal(t, "Custom Box", box.Label)
	assert.Equal(t, "box", box.Key)

	torus, ok := reg.Lookup("torus")
	require.True(t, ok)
	assert.Equal(t, "torus", torus.Key)
	assert.Contains(t, reg.Keys(), "torus")
}

func TestNumberConstRefusesConnections(t *testing.T) {
	reg := New()
	d, _ := reg.Lookup("numberConst")
	p, _ := d.Param("value")
	assert.False(t, p.AcceptsConnections())
	assert.Empty(t, d.ConnectableKeys())
}

func TestDefinitionForCodeNode(t *testing.T) {
	reg := New()
	lo, hi := 0.0, 5.0
	node := ir.GraphNode{
		ID:      "code-1",
		TypeKey: ir.CodeTypeKey,
		Code:    "export function node(x: number) { return x }",
		CodeMeta: &ir.CodeMeta{
			Version: "1",
			Inputs: []ir.CodeInput{
				{Key: "x", Type: "number"},
				{Key: "tint", Type: "color", Label: "Tint"},
			},
			Output:  &ir.CodeOutput{Type: "number"},
			UIHints: map[string]ir.UIHint{"x": {Min: &lo, Max: &hi}},
		},
	}

	d, ok := reg.DefinitionFor(node)
	require.True(t, ok)
	require.Len(t, d.Parameters, 2)
	assert.Equal(t, TypeNumber, d.Parameters[0].Type)
	assert.Equal(t, "x", d.Parameters[0].Label)
	assert.Equal(t, 5.0, *d.Parameters[0].Max)
	assert.Equal(t, TypeColor, d.Parameters[1].Type)
	assert.Equal(t, TypeNumber, d.OutputType)

	plain, _ := reg.Lookup(ir.CodeTypeKey)
	assert.Empty(t, plain.Parameters, "the shared definition must stay untouched")
}

func TestCheckReportsBrokenDefinitions(t *testing.T) {
	lo, hi := 5.0, 1.0
	reg := New(map[string]NodeTypeDefinition{
		"bad": {
			Label:    "Bad",
			Category: CategoryUtility,
			Parameters: []ParameterDefinition{
				{Key: "range", Type: TypeNumber, Min: &lo, Max: &hi},
				{Key: "tint", Type: TypeColor, DefaultValue: ir.String("red")},
			},
		},
	})
	assert.Len(t, reg.Check(), 2)
}

func TestRoleOf(t *testing.T) {
	reg := New()
	tests := []struct {
		key  string
		want Role
	}{
		{"render", RoleGroup},
		{"box", RoleMesh},
		{"pointLight", RoleLight},
		{"camera", RoleCamera},
		{"multiply", RoleValue},
		{"code", RoleValue},
		{"orbitControls", RoleElement},
		{"teapot", RoleUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, reg.RoleOf(tt.key))
		})
	}
}

func TestByCategory(t *testing.T) {
	groups := New().ByCategory()
	assert.Len(t, groups[CategoryLight], 3)
	assert.Len(t, groups[CategoryScene], 2)
}
