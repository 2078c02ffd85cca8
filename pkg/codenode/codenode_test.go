package codenode

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/scenegraph/pkg/ir"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		src  string
		msg  string
	}{
		{"ok", "export function node(a: number) { return a * 2 }", ""},
		{"empty", "   \n", "Code cannot be empty"},
		{"wrong name", "export function run(a: number) { return a }", `Must export a function named "node"`},
		{"not exported", "function node(a: number) { return a }", `Must export a function named "node"`},
		{"parens", "export function node(a: number { return a }", "Unbalanced parentheses"},
		{"braces", "export function node(a: number) { return a ", "Unbalanced braces"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Validate(tt.src)
			if tt.msg == "" {
				assert.True(t, r.OK)
				assert.NoError(t, r.Err())
				return
			}
			assert.False(t, r.OK)
			assert.Equal(t, tt.msg, r.Message)
			assert.True(t, errors.Is(r.Err(), ErrInvalidSource))
		})
	}
}

func TestExtractParams(t *testing.T) {
	params, err := ExtractParams("export function node(speed: number, name : string, flags: boolean[], ) { }")
	require.NoError(t, err)
	assert.Equal(t, []Param{
		{Key: "speed", Type: "number"},
		{Key: "name", Type: "string"},
		{Key: "flags", Type: "boolean", Array: true},
	}, params)

	none, err := ExtractParams("export function node() { return 1 }")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestExtractParamsErrors(t *testing.T) {
	_, err := ExtractParams("const x = 1")
	assert.ErrorIs(t, err, ErrNoSignature)

	_, err = ExtractParams("export function node(pos: Vector3) {}")
	assert.ErrorIs(t, err, ErrUnsupportedParam)
	assert.Contains(t, err.Error(), "pos: Vector3")

	_, err = ExtractParams("export function node(untyped) {}")
	assert.ErrorIs(t, err, ErrUnsupportedParam)
}

func TestSyncMeta(t *testing.T) {
	lo := 0.0
	node := ir.GraphNode{
		ID:      "code-1",
		TypeKey: ir.CodeTypeKey,
		Code:    "export function node(speed: number) { return speed }",
		CodeMeta: &ir.CodeMeta{
			Version: "1",
			Inputs:  []ir.CodeInput{{Key: "speed", Type: "number", Label: "Speed"}},
			Output:  &ir.CodeOutput{Type: "number"},
			UIHints: map[string]ir.UIHint{"speed": {Min: &lo}},
		},
	}

	src := "export function node(speed: number, label: string) { return speed }"
	updated, err := SyncMeta(node, src)
	require.NoError(t, err)
	assert.Equal(t, src, updated.Code)
	require.Len(t, updated.CodeMeta.Inputs, 2)
	assert.Equal(t, "Speed", updated.CodeMeta.Inputs[0].Label, "labels survive for unchanged keys")
	assert.Equal(t, "string", updated.CodeMeta.Inputs[1].Type)
	assert.Equal(t, "number", updated.CodeMeta.Output.Type)
	assert.Contains(t, updated.CodeMeta.UIHints, "speed")

	assert.Len(t, node.CodeMeta.Inputs, 1, "input node is not modified")
}

func TestSyncMetaKeepsNodeOnError(t *testing.T) {
	node := ir.GraphNode{ID: "code-1", TypeKey: ir.CodeTypeKey, Code: "export function node() {}"}

	out, err := SyncMeta(node, "export function node(")
	require.Error(t, err)
	assert.Equal(t, node, out)

	out, err = SyncMeta(node, "export function node(v: Vector3) {}")
	require.ErrorIs(t, err, ErrInvalidSource)
	assert.Equal(t, node, out)
}
