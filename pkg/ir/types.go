// Package ir defines the graph intermediate representation of a scene
// project: typed nodes, parameter edges, modules and projects.
package ir

import "time"

// SchemaVersion is the schema version written into new modules and projects
const SchemaVersion = "1.0.0"

// RootTypeR3F is the only supported tree root kind
const RootTypeR3F = "r3f"

// CodeTypeKey is the type key of user-authored code nodes
const CodeTypeKey = "code"

// GraphNode is a typed unit in the visual graph
type GraphNode struct {
	ID      string           `json:"id" validate:"required"`
	TypeKey string           `json:"typeKey" validate:"required"`
	Label   string           `json:"label,omitempty"`
	Params  map[string]Value `json:"params,omitempty"`

	// Code and CodeMeta are only set on code nodes
	Code     string    `json:"code,omitempty"`
	CodeMeta *CodeMeta `json:"codeMeta,omitempty"`
}

// Param returns the stored value for key and whether it is present
func (n GraphNode) Param(key string) (Value, bool) {
	v, ok := n.Params[key]
	return v, ok
}

// IsCode reports whether n is a user-code node
func (n GraphNode) IsCode() bool {
	return n.TypeKey == CodeTypeKey
}

// CodeMeta describes the signature of a code node
type CodeMeta struct {
	Version string            `json:"version" validate:"required"`
	Inputs  []CodeInput       `json:"inputs" validate:"dive"`
	Output  *CodeOutput       `json:"output,omitempty"`
	UIHints map[string]UIHint `json:"uiHints,omitempty"`
}

// CodeInput is one declared input socket of a code node
type CodeInput struct {
	Key   string `json:"key" validate:"required"`
	Type  string `json:"type" validate:"required,oneof=number string boolean color"`
	Label string `json:"label,omitempty"`
}

// CodeOutput is the declared output socket of a code node
type CodeOutput struct {
	Type string `json:"type" validate:"required,oneof=number string boolean color"`
}

// UIHint carries numeric widget hints for a code node input
type UIHint struct {
	Min  *float64 `json:"min,omitempty"`
	Max  *float64 `json:"max,omitempty"`
	Step *float64 `json:"step,omitempty"`
}

// GraphEdge connects the output of Source to a parameter of Target
type GraphEdge struct {
	ID           string `json:"id" validate:"required"`
	Source       string `json:"source" validate:"required"`
	Target       string `json:"target" validate:"required"`
	TargetHandle string `json:"targetHandle,omitempty"` // parameter key on target
}

// GraphLayer is the node/edge graph of one module
type GraphLayer struct {
	Nodes []GraphNode `json:"nodes" validate:"required,dive"`
	Edges []GraphEdge `json:"edges" validate:"required,dive"`
}

// TreeLayer names the generated component
type TreeLayer struct {
	ModuleName string `json:"moduleName" validate:"required"`
	RootType   string `json:"rootType" validate:"required,eq=r3f"`
}

// MetaLayer carries versioning and timestamps
type MetaLayer struct {
	SchemaVersion string `json:"schemaVersion" validate:"required"`
	CreatedAt     string `json:"createdAt" validate:"required"`
	UpdatedAt     string `json:"updatedAt" validate:"required"`
}

// IRModule is one graph together with its metadata
type IRModule struct {
	Meta  MetaLayer  `json:"meta"`
	Tree  TreeLayer  `json:"tree"`
	Graph GraphLayer `json:"graph"`
}

// Project is the unit of persistence: an ordered collection of modules
type Project struct {
	SchemaVersion string     `json:"schemaVersion" validate:"required"`
	Modules       []IRModule `json:"modules" validate:"required,dive"`
}

// NewModule creates an empty module stamped with the given time
func NewModule(name string, now time.Time) IRModule {
	ts := now.UTC().Format(time.RFC3339)
	return IRModule{
		Meta: MetaLayer{
			SchemaVersion: SchemaVersion,
			CreatedAt:     ts,
			UpdatedAt:     ts,
		},
		Tree: TreeLayer{
			ModuleName: name,
			RootType:   RootTypeR3F,
		},
		Graph: EmptyGraph(),
	}
}

// NewProject wraps modules in a project with the current schema version
func NewProject(modules ...IRModule) Project {
	if modules == nil {
		modules = []IRModule{}
	}
	return Project{
		SchemaVersion: SchemaVersion,
		Modules:       modules,
	}
}

// Module returns the module with the given name
func (p Project) Module(name string) (IRModule, bool) {
	for _, m := range p.Modules {
		if m.Tree.ModuleName == name {
			return m, true
		}
	}
	return IRModule{}, false
}
