package adapter

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/scenegraph/pkg/ir"
	"github.com/ritzau/scenegraph/pkg/registry"
)

const torusJSON = `{
  "name": "extra-shapes",
  "version": "0.1.0",
  "nodes": [
    {
      "key": "torus",
      "label": "Torus",
      "category": "geometry",
      "appearanceHint": "structure",
      "parameters": [
        {"key": "radius", "label": "Radius", "type": "number", "defaultValue": 1, "min": 0.1, "max": 10},
        {"key": "tube", "label": "Tube", "type": "number"},
        {"key": "tint", "label": "Tint", "type": "color", "defaultValue": "#ff0000"}
      ]
    }
  ]
}`

const torusYAML = `
name: extra-shapes
version: 0.1.0
nodes:
  - key: torus
    label: Torus
    category: geometry
    parameters:
      - key: radius
        label: Radius
        type: number
        defaultValue: 2
      - key: smooth
        label: Smooth
        type: boolean
        defaultValue: true
`

func TestParseAndMapJSON(t *testing.T) {
	doc, err := Parse([]byte(torusJSON), FormatJSON)
	require.NoError(t, err)

	defs := Map(doc)
	torus, ok := defs["torus"]
	require.True(t, ok)
	assert.Equal(t, registry.CategoryGeometry, torus.Category)
	assert.Equal(t, registry.HintStructure, torus.AppearanceHint)
	require.Len(t, torus.Parameters, 3)

	assert.Equal(t, ir.Number(1), torus.Parameters[0].DefaultValue)
	assert.Equal(t, 10.0, *torus.Parameters[0].Max)
	assert.True(t, torus.Parameters[1].DefaultValue.IsNull(), "missing default maps to null")
	assert.Equal(t, ir.String("#ff0000"), torus.Parameters[2].DefaultValue)
	assert.True(t, torus.Parameters[2].AcceptsConnections())
}

func TestParseYAML(t *testing.T) {
	doc, err := Parse([]byte(torusYAML), FormatYAML)
	require.NoError(t, err)

	torus := Map(doc)["torus"]
	require.Len(t, torus.Parameters, 2)
	assert.Equal(t, ir.Number(2), torus.Parameters[0].DefaultValue)
	assert.Equal(t, ir.Bool(true), torus.Parameters[1].DefaultValue)
}

func TestParseRejectsInvalidDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing name", `{"version":"1","nodes":[]}`},
		{"missing nodes", `{"name":"x","version":"1"}`},
		{"bad category", `{"name":"x","version":"1","nodes":[{"key":"k","label":"K","category":"sound"}]}`},
		{"bad hint", `{"name":"x","version":"1","nodes":[{"key":"k","label":"K","category":"mesh","appearanceHint":"loud"}]}`},
		{"structural param type", `{"name":"x","version":"1","nodes":[{"key":"k","label":"K","category":"mesh","parameters":[{"key":"p","label":"P","type":"mesh"}]}]}`},
		{"object default", `{"name":"x","version":"1","nodes":[{"key":"k","label":"K","category":"mesh","parameters":[{"key":"p","label":"P","type":"number","defaultValue":{"a":1}}]}]}`},
		{"min above max", `{"name":"x","version":"1","nodes":[{"key":"k","label":"K","category":"mesh","parameters":[{"key":"p","label":"P","type":"number","min":5,"max":1}]}]}`},
		{"number default not a number", `{"name":"x","version":"1","nodes":[{"key":"k","label":"K","category":"light","parameters":[{"key":"intensity","label":"I","type":"number","defaultValue":"bright"}]}]}`},
		{"color default not hex", `{"name":"x","version":"1","nodes":[{"key":"k","label":"K","category":"light","parameters":[{"key":"tint","label":"T","type":"color","defaultValue":"red"}]}]}`},
		{"default above max", `{"name":"x","version":"1","nodes":[{"key":"k","label":"K","category":"mesh","parameters":[{"key":"p","label":"P","type":"number","defaultValue":20,"max":10}]}]}`},
		{"duplicate parameter keys", `{"name":"x","version":"1","nodes":[{"key":"k","label":"K","category":"mesh","parameters":[{"key":"dup","label":"A","type":"number"},{"key":"dup","label":"B","type":"string"}]}]}`},
		{"not json", `{nodes`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), FormatJSON)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidDocument), "got %v", err)
		})
	}
}

func TestParseReportsFieldPaths(t *testing.T) {
	_, err := Parse([]byte(`{"name":"x","version":"1","nodes":[{"key":"k","label":"K","category":"sound"}]}`), FormatJSON)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nodes[0].category")
}

func TestParseReportsBadDefault(t *testing.T) {
	doc := `{"name":"x","version":"1","nodes":[{"key":"spot","label":"Spot","category":"light","parameters":[{"key":"tint","label":"T","type":"color","defaultValue":"red"}]}]}`
	_, err := Parse([]byte(doc), FormatJSON)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nodes[0].parameters[0].defaultValue")
}

func TestBuildRegistryRejectsBadDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lights.json")
	doc := `{"name":"x","version":"1","nodes":[{"key":"spot","label":"Spot","category":"light","parameters":[{"key":"intensity","label":"I","type":"number","defaultValue":"bright"}]}]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	reg := BuildRegistry(path)
	assert.False(t, reg.Has("spot"))
	assert.Empty(t, reg.Check())
}

func TestBuildRegistry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shapes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(torusYAML), 0o644))

	reg := BuildRegistry(path)
	assert.True(t, reg.Has("torus"))
	assert.True(t, reg.Has("box"), "built-ins stay available")
}

func TestBuildRegistryFallsBackToBuiltins(t *testing.T) {
	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte(`{"name":"x"}`), 0o644))

	for _, path := range []string{broken, filepath.Join(dir, "missing.json"), ""} {
		reg := BuildRegistry(path)
		assert.Equal(t, registry.New().Keys(), reg.Keys())
	}
}

func TestFormatFor(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatFor("a/b.yml"))
	assert.Equal(t, FormatYAML, FormatFor("a/b.YAML"))
	assert.Equal(t, FormatJSON, FormatFor("a/b.json"))
}
