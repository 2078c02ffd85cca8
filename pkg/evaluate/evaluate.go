// Package evaluate propagates values from value-source nodes (constants and
// arithmetic) along edges into the parameters they feed.
package evaluate

import (
	"maps"

	"github.com/ritzau/scenegraph/pkg/graph"
	"github.com/ritzau/scenegraph/pkg/ir"
	"github.com/ritzau/scenegraph/pkg/logging"
)

var constants = map[string]bool{
	"numberConst":  true,
	"colorConst":   true,
	"booleanConst": true,
	"stringConst":  true,
}

type binaryOp struct {
	apply    func(a, b float64) float64
	defaultA float64
	defaultB float64
}

var arithmetic = map[string]binaryOp{
	"add": {
		apply:    func(a, b float64) float64 { return a + b },
		defaultA: 0,
		defaultB: 0,
	},
	"multiply": {
		apply:    func(a, b float64) float64 { return a * b },
		defaultA: 0,
		defaultB: 1,
	},
}

// ProducesValue reports whether nodes of typeKey have a computable output
func ProducesValue(typeKey string) bool {
	_, isMath := arithmetic[typeKey]
	return constants[typeKey] || isMath
}

// Params maps node id to its effective parameters
type Params map[string]map[string]ir.Value

// EffectiveParams returns, for every node, its stored parameters overlaid
// with the outputs of the nodes connected to them. Edges without a handle,
// with an unresolved placeholder handle, or whose source has no defined
// output leave the target untouched. When several edges feed the same
// parameter the last one in edge order wins.
func EffectiveParams(nodes []ir.GraphNode, edges []ir.GraphEdge) Params {
	ev := newEvaluator(graph.FromParts(nodes, edges))

	result := make(Params, len(nodes))
	for _, n := range nodes {
		params := make(map[string]ir.Value, len(n.Params))
		maps.Copy(params, n.Params)
		result[n.ID] = params
	}

	for _, e := range edges {
		if e.TargetHandle == "" || e.TargetHandle == ir.AutoHandle {
			continue
		}
		params, ok := result[e.Target]
		if !ok || !ev.idx.Has(e.Source) {
			continue
		}
		if v, ok := ev.output(e.Source); ok {
			params[e.TargetHandle] = v
		}
	}
	return result
}

// Output computes the output of a single node. ok is false when the node
// does not exist or has no defined output.
func Output(nodeID string, nodes []ir.GraphNode, edges []ir.GraphEdge) (ir.Value, bool) {
	return newEvaluator(graph.FromParts(nodes, edges)).output(nodeID)
}

type result struct {
	value   ir.Value
	defined bool
}

type evaluator struct {
	idx        *graph.Index
	inProgress map[string]bool
	memo       map[string]result
}

func newEvaluator(idx *graph.Index) *evaluator {
	return &evaluator{
		idx:        idx,
		inProgress: make(map[string]bool),
		memo:       make(map[string]result),
	}
}

func (ev *evaluator) output(id string) (ir.Value, bool) {
	if r, ok := ev.memo[id]; ok {
		return r.value, r.defined
	}
	if ev.inProgress[id] {
		logging.Debug("value cycle, output undefined", "nodeId", id)
		return ir.Value{}, false
	}
	node, ok := ev.idx.Node(id)
	if !ok {
		return ir.Value{}, false
	}

	ev.inProgress[id] = true
	v, defined := ev.compute(node)
	delete(ev.inProgress, id)

	ev.memo[id] = result{value: v, defined: defined}
	return v, defined
}

func (ev *evaluator) compute(node ir.GraphNode) (ir.Value, bool) {
	if constants[node.TypeKey] {
		// a constant without a value still outputs null
		v, _ := node.Param("value")
		return v, true
	}

	op, ok := arithmetic[node.TypeKey]
	if !ok {
		return ir.Value{}, false
	}
	a, okA := ev.operand(node, "a", op.defaultA)
	b, okB := ev.operand(node, "b", op.defaultB)
	if !okA || !okB {
		return ir.Value{}, false
	}
	return ir.Number(op.apply(a, b)), true
}

// operand resolves one numeric input: the connected node's output when an
// edge feeds the handle, the stored parameter otherwise. Null or missing
// stored values fall back to def; anything that is not a number makes the
// whole result undefined.
func (ev *evaluator) operand(node ir.GraphNode, handle string, def float64) (float64, bool) {
	if e, ok := ev.idx.IncomingOn(node.ID, handle); ok {
		v, defined := ev.output(e.Source)
		if !defined {
			return 0, false
		}
		return v.AsNumber()
	}

	v, ok := node.Param(handle)
	if !ok || v.IsNull() {
		return def, true
	}
	return v.AsNumber()
}
