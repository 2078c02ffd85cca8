// Package validation checks parameter values and connections against the
// node type registry. Findings are values, never panics or hard errors.
package validation

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/ritzau/scenegraph/pkg/ir"
	"github.com/ritzau/scenegraph/pkg/registry"
)

// Kind classifies a validation finding
type Kind string

const (
	KindTypeMismatch      Kind = "type-mismatch"
	KindOutOfRange        Kind = "out-of-range"
	KindInvalidConnection Kind = "invalid-connection"
)

// ValidationError is a single finding. Context fields are set when known.
type ValidationError struct {
	Kind         Kind   `json:"type"`
	Message      string `json:"message"`
	Module       string `json:"module,omitempty"`
	NodeID       string `json:"nodeId,omitempty"`
	ParameterKey string `json:"parameterKey,omitempty"`
	SourceNodeID string `json:"sourceNodeId,omitempty"`
	TargetNodeID string `json:"targetNodeId,omitempty"`
}

func (e *ValidationError) Error() string {
	var where []string
	if e.Module != "" {
		where = append(where, "module="+e.Module)
	}
	if e.NodeID != "" {
		where = append(where, "node="+e.NodeID)
	}
	if e.SourceNodeID != "" || e.TargetNodeID != "" {
		where = append(where, fmt.Sprintf("edge=%s->%s", e.SourceNodeID, e.TargetNodeID))
	}
	if e.ParameterKey != "" {
		where = append(where, "param="+e.ParameterKey)
	}
	if len(where) == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, strings.Join(where, " "))
}

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// numeric accepts numbers and strings that parse as finite numbers
func numeric(v ir.Value) (float64, bool) {
	if n, ok := v.AsNumber(); ok {
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	}
	s, ok := v.AsString()
	if !ok {
		return 0, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func describe(v ir.Value) string {
	switch v.Kind() {
	case ir.KindString:
		s, _ := v.AsString()
		return fmt.Sprintf("string %q", s)
	default:
		return v.Kind().String()
	}
}

// ValidateParameterValue checks v against def. Type is checked first, then
// the lower bound, then the upper bound. Returns nil when v is acceptable.
func ValidateParameterValue(v ir.Value, def *registry.ParameterDefinition) *ValidationError {
	mismatch := func(expected string) *ValidationError {
		return &ValidationError{
			Kind:         KindTypeMismatch,
			Message:      fmt.Sprintf("Expected %s, got %s", expected, describe(v)),
			ParameterKey: def.Key,
		}
	}

	switch def.Type {
	case registry.TypeNumber:
		n, ok := numeric(v)
		if !ok {
			return mismatch("number")
		}
		if def.Min != nil && n < *def.Min {
			return &ValidationError{
				Kind:         KindOutOfRange,
				Message:      fmt.Sprintf("Value %s is below minimum %s", fmtNum(n), fmtNum(*def.Min)),
				ParameterKey: def.Key,
			}
		}
		if def.Max != nil && n > *def.Max {
			return &ValidationError{
				Kind:         KindOutOfRange,
				Message:      fmt.Sprintf("Value %s is above maximum %s", fmtNum(n), fmtNum(*def.Max)),
				ParameterKey: def.Key,
			}
		}
	case registry.TypeBoolean:
		if _, ok := v.AsBool(); !ok {
			return mismatch("boolean")
		}
	case registry.TypeString:
		if _, ok := v.AsString(); !ok {
			return mismatch("string")
		}
	case registry.TypeColor:
		s, ok := v.AsString()
		if !ok || !hexColor.MatchString(s) {
			return mismatch("hex color (e.g., #ff0000)")
		}
	case registry.TypeAny:
	default:
		// structural sockets are filled by edges, never by literals
		if !v.IsNull() {
			return mismatch(string(def.Type) + " connection")
		}
	}
	return nil
}

func fmtNum(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// compatible lists, for each output type, the parameter types it may feed
// besides its own type and "any"
var compatible = map[registry.ValueType][]registry.ValueType{
	registry.TypeNumber:   {registry.TypeString},
	registry.TypeBoolean:  {registry.TypeString},
	registry.TypeColor:    {registry.TypeString},
	registry.TypeMesh:     {registry.TypeScene},
	registry.TypeGeometry: {registry.TypeMesh},
	registry.TypeMaterial: {registry.TypeMesh},
	registry.TypeLight:    {registry.TypeScene},
}

// Compatible reports whether an output of type from may feed a parameter of type to
func Compatible(from, to registry.ValueType) bool {
	if from == to || from == registry.TypeAny || to == registry.TypeAny {
		return true
	}
	for _, t := range compatible[from] {
		if t == to {
			return true
		}
	}
	return false
}

// ValidateConnection checks an edge from source into the parameter key of
// target. Returns nil when the connection is allowed.
func ValidateConnection(reg *registry.Registry, source, target ir.GraphNode, key string) *ValidationError {
	sourceDef, okSource := reg.DefinitionFor(source)
	targetDef, okTarget := reg.DefinitionFor(target)
	if !okSource || !okTarget {
		return &ValidationError{
			Kind:         KindInvalidConnection,
			Message:      "Unknown node types in connection",
			SourceNodeID: source.ID,
			TargetNodeID: target.ID,
		}
	}

	param, ok := targetDef.Param(key)
	if !ok {
		return &ValidationError{
			Kind:         KindInvalidConnection,
			Message:      fmt.Sprintf("Target parameter '%s' not found", key),
			TargetNodeID: target.ID,
			ParameterKey: key,
		}
	}
	if !param.AcceptsConnections() {
		return &ValidationError{
			Kind:         KindInvalidConnection,
			Message:      fmt.Sprintf("Parameter '%s' does not accept connections", param.Label),
			TargetNodeID: target.ID,
			ParameterKey: key,
		}
	}

	from := sourceDef.EffectiveOutput()
	if !Compatible(from, param.Type) {
		return &ValidationError{
			Kind:         KindTypeMismatch,
			Message:      fmt.Sprintf("Cannot connect %s to %s", from, param.Type),
			SourceNodeID: source.ID,
			TargetNodeID: target.ID,
			ParameterKey: key,
		}
	}
	return nil
}

// ValidateGraphParameters checks every stored value that has a matching
// parameter definition. Nodes of unknown type are skipped.
func ValidateGraphParameters(reg *registry.Registry, nodes []ir.GraphNode) []ValidationError {
	var errs []ValidationError
	for _, n := range nodes {
		def, ok := reg.DefinitionFor(n)
		if !ok {
			continue
		}
		for i := range def.Parameters {
			p := &def.Parameters[i]
			v, present := n.Param(p.Key)
			if !present {
				continue
			}
			if err := ValidateParameterValue(v, p); err != nil {
				err.NodeID = n.ID
				errs = append(errs, *err)
			}
		}
	}
	return errs
}

// ValidateGraphConnections checks every edge that names a parameter and
// whose endpoints both exist
func ValidateGraphConnections(reg *registry.Registry, nodes []ir.GraphNode, edges []ir.GraphEdge) []ValidationError {
	byID := make(map[string]ir.GraphNode, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	var errs []ValidationError
	for _, e := range edges {
		if e.TargetHandle == "" || e.TargetHandle == ir.AutoHandle {
			continue
		}
		source, okSource := byID[e.Source]
		target, okTarget := byID[e.Target]
		if !okSource || !okTarget {
			continue
		}
		if err := ValidateConnection(reg, source, target, e.TargetHandle); err != nil {
			errs = append(errs, *err)
		}
	}
	return errs
}

// ValidateGraph returns parameter findings followed by connection findings
func ValidateGraph(reg *registry.Registry, g ir.GraphLayer) []ValidationError {
	errs := ValidateGraphParameters(reg, g.Nodes)
	return append(errs, ValidateGraphConnections(reg, g.Nodes, g.Edges)...)
}

// ValidateProject validates every module, tagging findings with the module name
func ValidateProject(reg *registry.Registry, p *ir.Project) []ValidationError {
	var errs []ValidationError
	for _, m := range p.Modules {
		for _, err := range ValidateGraph(reg, m.Graph) {
			err.Module = m.Tree.ModuleName
			errs = append(errs, err)
		}
	}
	return errs
}
