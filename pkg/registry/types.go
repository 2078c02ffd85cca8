package registry

import "github.com/ritzau/scenegraph/pkg/ir"

// ValueType is the type of a parameter or of a node output
type ValueType string

const (
	TypeNumber   ValueType = "number"
	TypeString   ValueType = "string"
	TypeBoolean  ValueType = "boolean"
	TypeColor    ValueType = "color"
	TypeMesh     ValueType = "mesh"
	TypeGeometry ValueType = "geometry"
	TypeMaterial ValueType = "material"
	TypeLight    ValueType = "light"
	TypeScene    ValueType = "scene"
	TypeAny      ValueType = "any"
)

// IsScalar reports whether t carries a literal value rather than a child socket
func (t ValueType) IsScalar() bool {
	switch t {
	case TypeNumber, TypeString, TypeBoolean, TypeColor:
		return true
	}
	return false
}

// Category groups node types in the palette
type Category string

const (
	CategoryScene    Category = "scene"
	CategoryGeometry Category = "geometry"
	CategoryMaterial Category = "material"
	CategoryMesh     Category = "mesh"
	CategoryLight    Category = "light"
	CategoryUtility  Category = "utility"
)

// Categories lists every category in palette order
var Categories = []Category{
	CategoryScene,
	CategoryGeometry,
	CategoryMaterial,
	CategoryMesh,
	CategoryLight,
	CategoryUtility,
}

// AppearanceHint is a presentation hint for editors
type AppearanceHint string

const (
	HintStructure AppearanceHint = "structure"
	HintMaterial  AppearanceHint = "material"
	HintLight     AppearanceHint = "light"
	HintUtility   AppearanceHint = "utility"
)

// ParameterDefinition describes one input slot of a node type
type ParameterDefinition struct {
	Key          string    `json:"key"`
	Label        string    `json:"label"`
	Type         ValueType `json:"type"`
	DefaultValue ir.Value  `json:"defaultValue"`
	Min          *float64  `json:"min,omitempty"`
	Max          *float64  `json:"max,omitempty"`
	Step         *float64  `json:"step,omitempty"`

	// NoConnections marks a parameter that may only be set literally
	NoConnections bool      `json:"noConnections,omitempty"`
	OutputType    ValueType `json:"outputType,omitempty"`
}

// AcceptsConnections reports whether an edge may target this parameter
func (p ParameterDefinition) AcceptsConnections() bool {
	return !p.NoConnections
}

// ImportSpec names an external module symbol that emitted code must import
type ImportSpec struct {
	Path   string `json:"path"`
	Symbol string `json:"symbol"`
}

// NodeTypeDefinition is the immutable schema of a node kind
type NodeTypeDefinition struct {
	Key            string                `json:"key"`
	Label          string                `json:"label"`
	Category       Category              `json:"category"`
	OutputType     ValueType             `json:"outputType,omitempty"`
	AppearanceHint AppearanceHint        `json:"appearanceHint,omitempty"`
	Parameters     []ParameterDefinition `json:"parameters"`
	Import         *ImportSpec           `json:"import,omitempty"`
}

// Param returns the parameter definition with the given key
func (d *NodeTypeDefinition) Param(key string) (*ParameterDefinition, bool) {
	for i := range d.Parameters {
		if d.Parameters[i].Key == key {
			return &d.Parameters[i], true
		}
	}
	return nil, false
}

// ConnectableKeys lists parameters that accept edges, in declaration order
func (d *NodeTypeDefinition) ConnectableKeys() []string {
	keys := make([]string, 0, len(d.Parameters))
	for _, p := range d.Parameters {
		if p.AcceptsConnections() {
			keys = append(keys, p.Key)
		}
	}
	return keys
}

// EffectiveOutput is the output type used for compatibility checks; a
// definition without one behaves like "any".
func (d *NodeTypeDefinition) EffectiveOutput() ValueType {
	if d.OutputType == "" {
		return TypeAny
	}
	return d.OutputType
}

// Defaults returns the default value of every parameter that has one
func (d *NodeTypeDefinition) Defaults() map[string]ir.Value {
	params := make(map[string]ir.Value, len(d.Parameters))
	for _, p := range d.Parameters {
		if !p.DefaultValue.IsNull() {
			params[p.Key] = p.DefaultValue
		}
	}
	return params
}

func (d NodeTypeDefinition) clone() NodeTypeDefinition {
	out := d
	out.Parameters = append([]ParameterDefinition(nil), d.Parameters...)
	if d.Import != nil {
		imp := *d.Import
		out.Import = &imp
	}
	return out
}
