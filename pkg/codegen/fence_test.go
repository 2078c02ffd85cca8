package codegen

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/scenegraph/pkg/registry"
)

func lines(l ...string) string {
	return strings.Join(l, "\n")
}

func TestRegions(t *testing.T) {
	text := lines(
		"intro",
		"  // BEGIN GENERATED: a",
		"body",
		"  // END GENERATED",
		"// BEGIN GENERATED: b",
		"// END GENERATED",
	)
	regions, err := Regions(text)
	require.NoError(t, err)
	assert.Equal(t, []Region{
		{Name: "a", Start: 1, End: 3},
		{Name: "b", Start: 4, End: 5},
	}, regions)
}

func TestRegionsMalformed(t *testing.T) {
	tests := map[string]string{
		"nested": lines(
			"// BEGIN GENERATED: a",
			"// BEGIN GENERATED: b",
			"// END GENERATED",
			"// END GENERATED",
		),
		"unterminated":  lines("// BEGIN GENERATED: a", "x"),
		"unmatched end": lines("x", "// END GENERATED"),
		"unnamed":       lines("// BEGIN GENERATED:", "// END GENERATED"),
		"duplicate": lines(
			"// BEGIN GENERATED: a",
			"// END GENERATED",
			"// BEGIN GENERATED: a",
			"// END GENERATED",
		),
	}
	for name, text := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Regions(text)
			assert.ErrorIs(t, err, ErrMalformedFence)
		})
	}
}

func TestSplicePreservesHandWrittenText(t *testing.T) {
	existing := lines(
		"// my notes",
		"// BEGIN GENERATED: a",
		"old a",
		"// END GENERATED",
		"const handWritten = 1",
		"// BEGIN GENERATED: keep",
		"kept",
		"// END GENERATED",
		"",
	)
	generated := lines(
		"// BEGIN GENERATED: a",
		"new a",
		"more a",
		"// END GENERATED",
	)

	out, err := Splice(existing, generated)
	require.NoError(t, err)
	assert.Equal(t, lines(
		"// my notes",
		"// BEGIN GENERATED: a",
		"new a",
		"more a",
		"// END GENERATED",
		"const handWritten = 1",
		"// BEGIN GENERATED: keep",
		"kept",
		"// END GENERATED",
		"",
	), out)

	again, err := Splice(out, generated)
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestSpliceErrors(t *testing.T) {
	generated := lines("// BEGIN GENERATED: a", "x", "// END GENERATED")

	_, err := Splice("no regions here", generated)
	assert.ErrorIs(t, err, ErrMissingRegion)

	_, err = Splice(lines("// BEGIN GENERATED: a", "x"), generated)
	assert.ErrorIs(t, err, ErrMalformedFence)

	_, err = Splice(generated, "// END GENERATED")
	assert.ErrorIs(t, err, ErrMalformedFence)
}

func TestSpliceEmittedModule(t *testing.T) {
	reg := registry.New()
	first := Emit(reg, module("Scene", boxScene()), Options{})

	edited := strings.Replace(first, "// BEGIN GENERATED: component",
		"const helper = () => 42\n\n// BEGIN GENERATED: component", 1)
	edited += "\n// trailing note\n"

	g := boxScene()
	g.Nodes[1].Params["width"] = g.Nodes[1].Params["height"]
	second := Emit(reg, module("Scene", g), Options{})

	out, err := Splice(edited, second)
	require.NoError(t, err)
	assert.Contains(t, out, "const helper = () => 42")
	assert.Contains(t, out, "// trailing note")
	assert.Contains(t, out, "args={[1.5, 1.5, 1]}")
	assert.NotContains(t, out, "args={[2, 1.5, 1]}")
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", FileName("Scene"))
	generated := Emit(registry.New(), module("Scene", boxScene()), Options{})

	changed, err := WriteFile(path, generated)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = WriteFile(path, generated)
	require.NoError(t, err)
	assert.False(t, changed, "rewriting identical output is a no-op")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, append([]byte("// header note\n"), data...), 0o644))

	changed, err = WriteFile(path, generated)
	require.NoError(t, err)
	assert.False(t, changed)

	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "// header note\n"))
}

func TestWriteFileRejectsBrokenFences(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName("Scene"))
	require.NoError(t, os.WriteFile(path, []byte("// BEGIN GENERATED: imports\n"), 0o644))

	_, err := WriteFile(path, Emit(registry.New(), module("Scene", boxScene()), Options{}))
	assert.ErrorIs(t, err, ErrMalformedFence)
}
