// Package registry holds the catalog of node type definitions: the built-in
// table plus any definitions loaded from adapter documents.
package registry

import (
	"fmt"
	"maps"
	"regexp"
	"slices"

	"github.com/ritzau/scenegraph/pkg/ir"
)

// Registry is read-only after New returns and safe for concurrent use
type Registry struct {
	defs map[string]NodeTypeDefinition
}

// New returns the built-in catalog merged with the given overlays.
// Later overlays win on key collisions.
func New(overlays ...map[string]NodeTypeDefinition) *Registry {
	defs := make(map[string]NodeTypeDefinition, len(builtins))
	for _, d := range builtins {
		defs[d.Key] = d.clone()
	}
	for _, overlay := range overlays {
		for key, d := range overlay {
			d = d.clone()
			d.Key = key
			defs[key] = d
		}
	}
	return &Registry{defs: defs}
}

// Lookup returns the definition for typeKey. An unknown key is not an
// error; callers decide how to degrade.
func (r *Registry) Lookup(typeKey string) (*NodeTypeDefinition, bool) {
	d, ok := r.defs[typeKey]
	if !ok {
		return nil, false
	}
	out := d.clone()
	return &out, true
}

// Has reports whether typeKey is defined
func (r *Registry) Has(typeKey string) bool {
	_, ok := r.defs[typeKey]
	return ok
}

// DefinitionFor returns the definition governing a concrete node. Code nodes
// take their parameter list from the node's declared inputs.
func (r *Registry) DefinitionFor(n ir.GraphNode) (*NodeTypeDefinition, bool) {
	d, ok := r.Lookup(n.TypeKey)
	if !ok || !n.IsCode() || n.CodeMeta == nil {
		return d, ok
	}

	meta := n.CodeMeta
	d.Parameters = make([]ParameterDefinition, 0, len(meta.Inputs))
	for _, in := range meta.Inputs {
		p := ParameterDefinition{
			Key:   in.Key,
			Label: in.Label,
			Type:  ValueType(in.Type),
		}
		if p.Label == "" {
			p.Label = in.Key
		}
		if hint, ok := meta.UIHints[in.Key]; ok {
			p.Min, p.Max, p.Step = hint.Min, hint.Max, hint.Step
		}
		d.Parameters = append(d.Parameters, p)
	}
	if meta.Output != nil && meta.Output.Type != "" {
		d.OutputType = ValueType(meta.Output.Type)
	}
	return d, true
}

// Keys returns every defined type key in sorted order
func (r *Registry) Keys() []string {
	return slices.Sorted(maps.Keys(r.defs))
}

// Definitions returns copies of all definitions sorted by key
func (r *Registry) Definitions() []NodeTypeDefinition {
	out := make([]NodeTypeDefinition, 0, len(r.defs))
	for _, key := range r.Keys() {
		out = append(out, r.defs[key].clone())
	}
	return out
}

// ByCategory groups definitions for palette listing. Categories without
// definitions are omitted.
func (r *Registry) ByCategory() map[Category][]NodeTypeDefinition {
	groups := make(map[Category][]NodeTypeDefinition)
	for _, d := range r.Definitions() {
		groups[d.Category] = append(groups[d.Category], d)
	}
	return groups
}

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Check verifies the invariants of every definition: min <= max and each
// default value satisfies its own parameter type and bounds.
func (r *Registry) Check() []error {
	var errs []error
	for _, d := range r.Definitions() {
		for _, p := range d.Parameters {
			if err := p.Check(); err != nil {
				errs = append(errs, fmt.Errorf("%s.%s: %w", d.Key, p.Key, err))
			}
		}
	}
	return errs
}

// Check verifies min <= max and that the default value satisfies the
// parameter's own type and bounds
func (p ParameterDefinition) Check() error {
	if p.Min != nil && p.Max != nil && *p.Min > *p.Max {
		return fmt.Errorf("min %v exceeds max %v", *p.Min, *p.Max)
	}
	v := p.DefaultValue
	if v.IsNull() {
		return nil
	}
	switch p.Type {
	case TypeNumber:
		n, ok := v.AsNumber()
		if !ok {
			return fmt.Errorf("default %s is not a number", v)
		}
		if p.Min != nil && n < *p.Min {
			return fmt.Errorf("default %v below min %v", n, *p.Min)
		}
		if p.Max != nil && n > *p.Max {
			return fmt.Errorf("default %v above max %v", n, *p.Max)
		}
	case TypeColor:
		s, ok := v.AsString()
		if !ok || !hexColor.MatchString(s) {
			return fmt.Errorf("default %s is not a hex color", v)
		}
	case TypeString:
		if _, ok := v.AsString(); !ok {
			return fmt.Errorf("default %s is not a string", v)
		}
	case TypeBoolean:
		if _, ok := v.AsBool(); !ok {
			return fmt.Errorf("default %s is not a boolean", v)
		}
	case TypeAny:
	default:
		return fmt.Errorf("structural parameter of type %s cannot carry default %s", p.Type, v)
	}
	return nil
}
