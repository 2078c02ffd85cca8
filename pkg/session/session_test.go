package session

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/scenegraph/pkg/codegen"
	"github.com/ritzau/scenegraph/pkg/codenode"
	"github.com/ritzau/scenegraph/pkg/ir"
	"github.com/ritzau/scenegraph/pkg/registry"
	"github.com/ritzau/scenegraph/pkg/validation"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newSession(t *testing.T) *Session {
	t.Helper()
	s := New(registry.New(), ir.NewModule("Main", epoch))
	s.now = func() time.Time { return epoch.Add(time.Hour) }
	return s
}

func mustAdd(t *testing.T, s *Session, typeKey string) ir.GraphNode {
	t.Helper()
	n, err := s.AddNode(typeKey)
	require.NoError(t, err)
	return n
}

func validationError(t *testing.T, err error) *validation.ValidationError {
	t.Helper()
	var verr *validation.ValidationError
	require.True(t, errors.As(err, &verr), "expected a validation error, got %v", err)
	return verr
}

func TestAddNodeUsesDefaults(t *testing.T) {
	s := newSession(t)
	box := mustAdd(t, s, "box")

	assert.Regexp(t, `^box-[0-9a-f]{8}$`, box.ID)
	assert.Equal(t, ir.Number(1), box.Params["width"])
	assert.Equal(t, ir.String(registry.DefaultMeshColor), box.Params["color"])
	assert.Equal(t, "2025-03-01T13:00:00Z", s.Module().Meta.UpdatedAt)

	render := mustAdd(t, s, "render")
	assert.Nil(t, render.Params)

	_, err := s.AddNode("teapot")
	assert.ErrorIs(t, err, ErrUnknownType)
	assert.Len(t, s.Graph().Nodes, 2)
}

func TestAddCodeNode(t *testing.T) {
	s := newSession(t)
	code := mustAdd(t, s, ir.CodeTypeKey)

	assert.Equal(t, codenode.DefaultSource, code.Code)
	require.NotNil(t, code.CodeMeta)
	assert.Equal(t, []ir.CodeInput{{Key: "a", Type: "number"}, {Key: "b", Type: "number"}}, code.CodeMeta.Inputs)
}

func TestConnect(t *testing.T) {
	s := newSession(t)
	render := mustAdd(t, s, "render")
	box := mustAdd(t, s, "box")
	num := mustAdd(t, s, "numberConst")

	e, err := s.Connect(box.ID, render.ID, ir.AutoHandle)
	require.NoError(t, err)
	assert.Equal(t, "input", e.TargetHandle)
	assert.Equal(t, ir.EdgeID(box.ID, render.ID, "input"), e.ID)

	e, err = s.Connect(num.ID, box.ID, ir.AutoHandle)
	require.NoError(t, err)
	assert.Equal(t, "width", e.TargetHandle, "first free connectable parameter")

	e, err = s.Connect(num.ID, box.ID, ir.AutoHandle)
	require.NoError(t, err)
	assert.Equal(t, "height", e.TargetHandle)

	assert.Len(t, s.Graph().Edges, 3)
}

func TestConnectRejections(t *testing.T) {
	s := newSession(t)
	render := mustAdd(t, s, "render")
	box := mustAdd(t, s, "box")
	num := mustAdd(t, s, "numberConst")
	light := mustAdd(t, s, "pointLight")
	_, err := s.Connect(box.ID, render.ID, "input")
	require.NoError(t, err)
	before := s.Graph()
	undo, _ := s.History()

	verr := validationError(t, func() error { _, err := s.Connect(num.ID, num.ID, "value"); return err }())
	assert.Equal(t, validation.KindInvalidConnection, verr.Kind)

	verr = validationError(t, func() error { _, err := s.Connect(box.ID, num.ID, "value"); return err }())
	assert.Equal(t, validation.KindInvalidConnection, verr.Kind)
	assert.Equal(t, "Parameter 'Value' does not accept connections", verr.Message)

	verr = validationError(t, func() error { _, err := s.Connect(light.ID, box.ID, "width"); return err }())
	assert.Equal(t, validation.KindTypeMismatch, verr.Kind)

	verr = validationError(t, func() error { _, err := s.Connect(box.ID, render.ID, "nope"); return err }())
	assert.Equal(t, "Target parameter 'nope' not found", verr.Message)

	_, err = s.Connect(box.ID, render.ID, ir.AutoHandle)
	assert.ErrorIs(t, err, ErrNoFreeHandle)

	_, err = s.Connect("ghost", render.ID, "input")
	assert.ErrorIs(t, err, ErrNodeNotFound)

	assert.True(t, before.Same(s.Graph()), "rejected edits leave the graph untouched")
	after, _ := s.History()
	assert.Equal(t, undo, after)
}

func TestConnectOccupiedHandle(t *testing.T) {
	s := newSession(t)
	five := mustAdd(t, s, "numberConst")
	seven := mustAdd(t, s, "numberConst")
	sum := mustAdd(t, s, "add")
	scene := mustAdd(t, s, "scene")
	box := mustAdd(t, s, "box")
	sphere := mustAdd(t, s, "sphere")

	_, err := s.Connect(five.ID, sum.ID, "a")
	require.NoError(t, err)
	before := s.Graph()

	verr := validationError(t, func() error { _, err := s.Connect(seven.ID, sum.ID, "a"); return err }())
	assert.Equal(t, validation.KindInvalidConnection, verr.Kind)
	assert.Equal(t, "Parameter 'A' is already connected", verr.Message)
	assert.Equal(t, "a", verr.ParameterKey)
	assert.True(t, before.Same(s.Graph()))

	_, err = s.Connect(five.ID, sum.ID, "a")
	require.NoError(t, err, "reconnecting the same edge is a no-op")

	_, err = s.Connect(seven.ID, sum.ID, "b")
	require.NoError(t, err)

	// scene inputs take any number of children
	_, err = s.Connect(box.ID, scene.ID, "input")
	require.NoError(t, err)
	_, err = s.Connect(sphere.ID, scene.ID, "input")
	require.NoError(t, err)
	assert.Len(t, s.Graph().Incoming(scene.ID), 2)
}

func TestSetParam(t *testing.T) {
	s := newSession(t)
	box := mustAdd(t, s, "box")

	require.NoError(t, s.SetParam(box.ID, "width", ir.Number(2)))
	require.NoError(t, s.SetParam(box.ID, "width", ir.String("3.5")))

	verr := validationError(t, s.SetParam(box.ID, "width", ir.Number(50)))
	assert.Equal(t, validation.KindOutOfRange, verr.Kind)
	assert.Equal(t, box.ID, verr.NodeID)

	verr = validationError(t, s.SetParam(box.ID, "color", ir.String("red")))
	assert.Equal(t, validation.KindTypeMismatch, verr.Kind)

	n, _ := s.Graph().Node(box.ID)
	assert.Equal(t, ir.String("3.5"), n.Params["width"])
	assert.Equal(t, ir.String(registry.DefaultMeshColor), n.Params["color"])

	require.NoError(t, s.SetParam(box.ID, "custom", ir.Bool(true)), "undeclared parameters are stored as given")
	assert.ErrorIs(t, s.SetParam("ghost", "width", ir.Number(1)), ErrNodeNotFound)
}

func TestSetCode(t *testing.T) {
	s := newSession(t)
	code := mustAdd(t, s, ir.CodeTypeKey)
	box := mustAdd(t, s, "box")

	err := s.SetCode(code.ID, "export function node(a: number {")
	assert.ErrorIs(t, err, codenode.ErrInvalidSource)
	n, _ := s.Graph().Node(code.ID)
	assert.Equal(t, codenode.DefaultSource, n.Code)
	assert.Len(t, n.CodeMeta.Inputs, 2)

	require.NoError(t, s.SetCode(code.ID, "export function node(speed: number) { return speed }"))
	n, _ = s.Graph().Node(code.ID)
	assert.Equal(t, []ir.CodeInput{{Key: "speed", Type: "number"}}, n.CodeMeta.Inputs)

	num := mustAdd(t, s, "numberConst")
	e, err := s.Connect(num.ID, code.ID, ir.AutoHandle)
	require.NoError(t, err)
	assert.Equal(t, "speed", e.TargetHandle)

	assert.ErrorIs(t, s.SetCode(box.ID, codenode.DefaultSource), ErrNotCodeNode)
}

func TestRemove(t *testing.T) {
	s := newSession(t)
	render := mustAdd(t, s, "render")
	box := mustAdd(t, s, "box")
	e, err := s.Connect(box.ID, render.ID, "input")
	require.NoError(t, err)

	require.NoError(t, s.RemoveEdge(e.ID))
	assert.ErrorIs(t, s.RemoveEdge(e.ID), ErrEdgeNotFound)

	_, err = s.Connect(box.ID, render.ID, "input")
	require.NoError(t, err)
	require.NoError(t, s.RemoveNode(box.ID))
	assert.Empty(t, s.Graph().Edges)
	assert.ErrorIs(t, s.RemoveNode(box.ID), ErrNodeNotFound)
}

func TestUndoRedo(t *testing.T) {
	s := newSession(t)
	assert.False(t, s.Undo())
	assert.False(t, s.Redo())

	box := mustAdd(t, s, "box")
	require.NoError(t, s.SetParam(box.ID, "width", ir.Number(4)))

	require.True(t, s.Undo())
	n, _ := s.Graph().Node(box.ID)
	assert.Equal(t, ir.Number(1), n.Params["width"])

	require.True(t, s.Undo())
	assert.Empty(t, s.Graph().Nodes)

	require.True(t, s.Redo())
	require.True(t, s.Redo())
	n, _ = s.Graph().Node(box.ID)
	assert.Equal(t, ir.Number(4), n.Params["width"])

	require.True(t, s.Undo())
	require.NoError(t, s.SetLabel(box.ID, "Crate"))
	assert.False(t, s.Redo(), "a new edit discards the redo stack")
}

func TestNoOpEditsAreNotRecorded(t *testing.T) {
	s := newSession(t)
	box := mustAdd(t, s, "box")
	require.NoError(t, s.SetLabel(box.ID, ""))

	render := mustAdd(t, s, "render")
	_, err := s.Connect(box.ID, render.ID, "input")
	require.NoError(t, err)
	_, err = s.Connect(box.ID, render.ID, "input")
	require.NoError(t, err)

	undo, redo := s.History()
	assert.Equal(t, 3, undo)
	assert.Zero(t, redo)
}

func TestHistoryIsBounded(t *testing.T) {
	s := newSession(t)
	box := mustAdd(t, s, "box")
	for i := range MaxHistory + 5 {
		require.NoError(t, s.SetLabel(box.ID, fmt.Sprintf("label %d", i)))
	}
	undo, _ := s.History()
	assert.Equal(t, MaxHistory, undo)
}

func TestPreviewExportValidate(t *testing.T) {
	s := newSession(t)
	render := mustAdd(t, s, "render")
	box := mustAdd(t, s, "box")
	_, err := s.Connect(box.ID, render.ID, "input")
	require.NoError(t, err)

	scene := s.Preview()
	require.Len(t, scene.Roots, 1)
	assert.Equal(t, box.ID, scene.Roots[0].Children[0].ID)

	out := s.Export(codegen.Options{})
	assert.Contains(t, out, "export function Main() {")
	assert.Contains(t, out, "<boxGeometry args={[1, 1, 1]} />")

	assert.Empty(t, s.Validate())
}

func TestConcurrentEdits(t *testing.T) {
	s := newSession(t)
	box := mustAdd(t, s, "box")

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 20 {
				_ = s.SetParam(box.ID, "width", ir.Number(float64(1+(i+j)%9)))
				_ = s.Preview()
			}
		}()
	}
	wg.Wait()

	n, ok := s.Graph().Node(box.ID)
	require.True(t, ok)
	w, _ := n.Params["width"].AsNumber()
	assert.GreaterOrEqual(t, w, 1.0)
}
