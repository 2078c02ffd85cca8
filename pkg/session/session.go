// Package session holds one module under edit. Every mutation is checked
// against the registry first; rejected edits leave the graph untouched.
// Accepted edits are recorded for undo and redo.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ritzau/scenegraph/pkg/codegen"
	"github.com/ritzau/scenegraph/pkg/codenode"
	"github.com/ritzau/scenegraph/pkg/ir"
	"github.com/ritzau/scenegraph/pkg/logging"
	"github.com/ritzau/scenegraph/pkg/preview"
	"github.com/ritzau/scenegraph/pkg/registry"
	"github.com/ritzau/scenegraph/pkg/validation"
)

// MaxHistory bounds the undo stack
const MaxHistory = 100

var (
	ErrUnknownType  = errors.New("unknown node type")
	ErrNodeNotFound = errors.New("node not found")
	ErrEdgeNotFound = errors.New("edge not found")
	ErrNoFreeHandle = errors.New("no free connectable parameter")
	ErrNotCodeNode  = errors.New("not a code node")
)

// Session is safe for concurrent use
type Session struct {
	mu     sync.Mutex
	reg    *registry.Registry
	module ir.IRModule
	undo   []ir.GraphLayer
	redo   []ir.GraphLayer
	now    func() time.Time
}

// New starts a session on module
func New(reg *registry.Registry, module ir.IRModule) *Session {
	if module.Graph.Nodes == nil {
		module.Graph.Nodes = []ir.GraphNode{}
	}
	if module.Graph.Edges == nil {
		module.Graph.Edges = []ir.GraphEdge{}
	}
	return &Session{
		reg:    reg,
		module: module,
		now:    time.Now,
	}
}

// Module returns a snapshot of the module under edit
func (s *Session) Module() ir.IRModule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.module
}

// Graph returns a snapshot of the current graph
func (s *Session) Graph() ir.GraphLayer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.module.Graph
}

// commit installs next as the current graph. Returns false when next is the
// current graph, in which case nothing is recorded.
func (s *Session) commit(next ir.GraphLayer) bool {
	if next.Same(s.module.Graph) {
		return false
	}
	s.undo = append(s.undo, s.module.Graph)
	if len(s.undo) > MaxHistory {
		s.undo = s.undo[len(s.undo)-MaxHistory:]
	}
	s.redo = nil
	s.install(next)
	return true
}

func (s *Session) install(g ir.GraphLayer) {
	s.module.Graph = g
	s.module.Meta.UpdatedAt = s.now().UTC().Format(time.RFC3339)
}

func (s *Session) node(id string) (ir.GraphNode, error) {
	n, ok := s.module.Graph.Node(id)
	if !ok {
		return ir.GraphNode{}, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	return n, nil
}

// AddNode inserts a node of typeKey initialized with its parameter
// defaults. Code nodes start from codenode.DefaultSource.
func (s *Session) AddNode(typeKey string) (ir.GraphNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	def, ok := s.reg.Lookup(typeKey)
	if !ok {
		return ir.GraphNode{}, fmt.Errorf("%w: %s", ErrUnknownType, typeKey)
	}
	n := ir.GraphNode{
		ID:      ir.NewNodeID(typeKey),
		TypeKey: typeKey,
		Params:  def.Defaults(),
	}
	if len(n.Params) == 0 {
		n.Params = nil
	}
	if n.IsCode() {
		synced, err := codenode.SyncMeta(n, codenode.DefaultSource)
		if err != nil {
			return ir.GraphNode{}, err
		}
		n = synced
	}

	s.commit(ir.AddNode(s.module.Graph, n))
	logging.Debug("node added", "nodeId", n.ID, "typeKey", typeKey)
	return n, nil
}

// Connect links the output of source to a parameter of target. handle may
// be ir.AutoHandle to pick the first free connectable parameter. An edge
// the registry refuses is returned as a *validation.ValidationError.
func (s *Session) Connect(source, target, handle string) (ir.GraphEdge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, err := s.node(source)
	if err != nil {
		return ir.GraphEdge{}, err
	}
	tgt, err := s.node(target)
	if err != nil {
		return ir.GraphEdge{}, err
	}
	if source == target {
		return ir.GraphEdge{}, &validation.ValidationError{
			Kind:         validation.KindInvalidConnection,
			Message:      "Cannot connect a node to itself",
			SourceNodeID: source,
			TargetNodeID: target,
		}
	}

	if handle == ir.AutoHandle {
		def, ok := s.reg.DefinitionFor(tgt)
		if !ok {
			if verr := validation.ValidateConnection(s.reg, src, tgt, handle); verr != nil {
				return ir.GraphEdge{}, verr
			}
			return ir.GraphEdge{}, fmt.Errorf("%w: %s", ErrUnknownType, tgt.TypeKey)
		}
		resolved, ok := ir.ResolveTargetHandle(s.module.Graph, def.ConnectableKeys(), target, handle)
		if !ok {
			return ir.GraphEdge{}, fmt.Errorf("%w on %s", ErrNoFreeHandle, target)
		}
		handle = resolved
	}
	if verr := validation.ValidateConnection(s.reg, src, tgt, handle); verr != nil {
		logging.Debug("connection rejected", "source", source, "target", target, "handle", handle, "reason", verr.Message)
		return ir.GraphEdge{}, verr
	}
	if verr := s.occupied(tgt, source, handle); verr != nil {
		logging.Debug("connection rejected", "source", source, "target", target, "handle", handle, "reason", verr.Message)
		return ir.GraphEdge{}, verr
	}

	// self loops are refused by the graph itself and come back unchanged
	s.commit(ir.Connect(s.module.Graph, source, target, handle))
	return ir.GraphEdge{
		ID:           ir.EdgeID(source, target, handle),
		Source:       source,
		Target:       target,
		TargetHandle: handle,
	}, nil
}

// occupied refuses a second edge into a value parameter. Structural
// sockets such as scene inputs collect any number of children.
func (s *Session) occupied(tgt ir.GraphNode, source, handle string) *validation.ValidationError {
	def, ok := s.reg.DefinitionFor(tgt)
	if !ok {
		return nil
	}
	p, ok := def.Param(handle)
	if !ok || !(p.Type.IsScalar() || p.Type == registry.TypeAny) {
		return nil
	}
	for _, e := range s.module.Graph.Incoming(tgt.ID) {
		if e.TargetHandle == handle && e.Source != source {
			return &validation.ValidationError{
				Kind:         validation.KindInvalidConnection,
				Message:      fmt.Sprintf("Parameter '%s' is already connected", p.Label),
				SourceNodeID: source,
				TargetNodeID: tgt.ID,
				ParameterKey: handle,
			}
		}
	}
	return nil
}

// SetParam stores value on a node parameter. Values the parameter's
// definition rejects are returned as a *validation.ValidationError.
// Parameters without a definition are stored as given.
func (s *Session) SetParam(nodeID, key string, value ir.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.node(nodeID)
	if err != nil {
		return err
	}
	if def, ok := s.reg.DefinitionFor(n); ok {
		if p, ok := def.Param(key); ok {
			if verr := validation.ValidateParameterValue(value, p); verr != nil {
				verr.NodeID = nodeID
				return verr
			}
		}
	}
	s.commit(ir.SetParam(s.module.Graph, nodeID, key, value))
	return nil
}

// SetLabel changes the display label of a node
func (s *Session) SetLabel(nodeID, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.node(nodeID)
	if err != nil {
		return err
	}
	if n.Label == label {
		return nil
	}
	s.commit(ir.SetLabel(s.module.Graph, nodeID, label))
	return nil
}

// SetCode replaces the source of a code node and refreshes its inputs.
// Invalid source is rejected and the node keeps its previous signature.
func (s *Session) SetCode(nodeID, src string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.node(nodeID)
	if err != nil {
		return err
	}
	if !n.IsCode() {
		return fmt.Errorf("%w: %s", ErrNotCodeNode, nodeID)
	}
	synced, err := codenode.SyncMeta(n, src)
	if err != nil {
		return err
	}
	s.commit(ir.ReplaceNode(s.module.Graph, synced))
	return nil
}

// RemoveNode deletes a node and every edge touching it
func (s *Session) RemoveNode(nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.commit(ir.RemoveNode(s.module.Graph, nodeID)) {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}
	return nil
}

// RemoveEdge deletes one edge
func (s *Session) RemoveEdge(edgeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.commit(ir.RemoveEdge(s.module.Graph, edgeID)) {
		return fmt.Errorf("%w: %s", ErrEdgeNotFound, edgeID)
	}
	return nil
}

// Undo reverts the last accepted edit. Returns false when there is none.
func (s *Session) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.undo) == 0 {
		return false
	}
	prev := s.undo[len(s.undo)-1]
	s.undo = s.undo[:len(s.undo)-1]
	s.redo = append(s.redo, s.module.Graph)
	s.install(prev)
	return true
}

// Redo reapplies the last undone edit. Returns false when there is none.
func (s *Session) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.redo) == 0 {
		return false
	}
	next := s.redo[len(s.redo)-1]
	s.redo = s.redo[:len(s.redo)-1]
	s.undo = append(s.undo, s.module.Graph)
	s.install(next)
	return true
}

// History returns the number of undo and redo steps available
func (s *Session) History() (undo, redo int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.undo), len(s.redo)
}

// Preview derives the live scene of the current graph
func (s *Session) Preview() *preview.Scene {
	return preview.Compute(s.reg, s.Graph())
}

// Export renders the current module as source
func (s *Session) Export(opts codegen.Options) string {
	return codegen.Emit(s.reg, s.Module(), opts)
}

// Validate returns every finding for the current graph
func (s *Session) Validate() []validation.ValidationError {
	return validation.ValidateGraph(s.reg, s.Graph())
}
