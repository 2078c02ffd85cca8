// Package project saves and loads scene projects as canonical, strictly
// validated JSON documents.
package project

import (
	"bytes"
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/go-playground/validator/v10"

	"github.com/ritzau/scenegraph/pkg/ir"
	"github.com/ritzau/scenegraph/pkg/logging"
)

// ErrInvalidProject wraps every schema violation found on save or load
var ErrInvalidProject = errors.New("invalid project")

// SupportedSchema is the range of schema versions this build reads
// without complaint. Other versions still load but are logged.
const SupportedSchema = "^1"

var (
	validate  = newValidator()
	supported = semver.MustParse("1.0.0")
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	v.RegisterStructValidation(validateNode, ir.GraphNode{})
	v.RegisterStructValidation(validateLayer, ir.GraphLayer{})
	return v
}

// validateNode enforces that code and codeMeta appear on code nodes and
// nowhere else
func validateNode(sl validator.StructLevel) {
	n := sl.Current().Interface().(ir.GraphNode)
	if n.IsCode() {
		if n.Code == "" {
			sl.ReportError(n.Code, "code", "Code", "required", "")
		}
		if n.CodeMeta == nil {
			sl.ReportError(n.CodeMeta, "codeMeta", "CodeMeta", "required", "")
		}
		return
	}
	if n.Code != "" {
		sl.ReportError(n.Code, "code", "Code", "excluded_unless", "typeKey code")
	}
	if n.CodeMeta != nil {
		sl.ReportError(n.CodeMeta, "codeMeta", "CodeMeta", "excluded_unless", "typeKey code")
	}
}

// validateLayer checks the referential rules of a graph: unique ids, edges
// between existing nodes, no self loops
func validateLayer(sl validator.StructLevel) {
	g := sl.Current().Interface().(ir.GraphLayer)

	nodes := make(map[string]bool, len(g.Nodes))
	for i, n := range g.Nodes {
		if nodes[n.ID] {
			sl.ReportError(n.ID, fmt.Sprintf("nodes[%d].id", i), "ID", "unique", "")
		}
		nodes[n.ID] = true
	}

	edges := make(map[string]bool, len(g.Edges))
	for i, e := range g.Edges {
		if edges[e.ID] {
			sl.ReportError(e.ID, fmt.Sprintf("edges[%d].id", i), "ID", "unique", "")
		}
		edges[e.ID] = true
		if e.Source != "" && !nodes[e.Source] {
			sl.ReportError(e.Source, fmt.Sprintf("edges[%d].source", i), "Source", "node_exists", e.Source)
		}
		if e.Target != "" && !nodes[e.Target] {
			sl.ReportError(e.Target, fmt.Sprintf("edges[%d].target", i), "Target", "node_exists", e.Target)
		}
		if e.Source != "" && e.Source == e.Target {
			sl.ReportError(e.Target, fmt.Sprintf("edges[%d].target", i), "Target", "nefield", "source")
		}
	}
}

// Validate checks p against the project schema
func Validate(p *ir.Project) error {
	if p == nil {
		return fmt.Errorf("%w: no project", ErrInvalidProject)
	}
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidProject, describe(err))
	}
	return nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		path := strings.TrimPrefix(fe.Namespace(), "Project.")
		msg := fmt.Sprintf("%s failed %q", path, fe.Tag())
		if fe.Param() != "" {
			msg += " (" + fe.Param() + ")"
		}
		msgs = append(msgs, msg)
	}
	return strings.Join(msgs, "; ")
}

// Canonical returns a sorted copy of p: modules by name then creation
// time, and nodes and edges of every module by id
func Canonical(p ir.Project) ir.Project {
	modules := make([]ir.IRModule, len(p.Modules))
	for i, m := range p.Modules {
		m.Graph = ir.Sorted(m.Graph)
		modules[i] = m
	}
	slices.SortStableFunc(modules, func(a, b ir.IRModule) int {
		return cmp.Or(
			strings.Compare(a.Tree.ModuleName, b.Tree.ModuleName),
			strings.Compare(a.Meta.CreatedAt, b.Meta.CreatedAt),
		)
	})
	return ir.Project{SchemaVersion: p.SchemaVersion, Modules: modules}
}

// Save validates p and renders it canonically. Two saves of the same
// content produce identical text whatever the input order.
func Save(p ir.Project) (string, error) {
	canonical := Canonical(p)
	if err := Validate(&canonical); err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(canonical, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode project: %w", err)
	}
	return string(data), nil
}

// Load parses and validates a saved project. Unknown fields are rejected
// and no partial project is returned on failure.
func Load(text string) (*ir.Project, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.DisallowUnknownFields()

	var p ir.Project
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidProject, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after project document", ErrInvalidProject)
	}
	if err := checkPresence(text); err != nil {
		return nil, err
	}
	if err := Validate(&p); err != nil {
		return nil, err
	}
	checkSchemaVersion(p)
	return &p, nil
}

// Format reformats a saved project into its canonical form
func Format(text string) (string, error) {
	p, err := Load(text)
	if err != nil {
		return "", err
	}
	return Save(*p)
}

func checkSchemaVersion(p ir.Project) {
	constraint, err := semver.NewConstraint(SupportedSchema)
	if err != nil {
		logging.Error("bad schema constraint", "constraint", SupportedSchema, "error", err)
		return
	}
	check := func(where, version string) {
		v, err := semver.NewVersion(version)
		if err != nil {
			logging.Warn("unparsable schema version", "where", where, "schemaVersion", version)
			return
		}
		if !constraint.Check(v) {
			logging.Warn("schema version outside supported range",
				"where", where, "schemaVersion", v.String(), "supported", supported.String())
		}
	}
	check("project", p.SchemaVersion)
	for _, m := range p.Modules {
		check("module "+m.Tree.ModuleName, m.Meta.SchemaVersion)
	}
}

// SaveFile writes the canonical form of p to path
func SaveFile(path string, p ir.Project) error {
	text, err := Save(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create project directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(text+"\n"), 0o644); err != nil {
		return fmt.Errorf("write project %s: %w", path, err)
	}
	return nil
}

// LoadFile reads and validates the project at path
func LoadFile(path string) (*ir.Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read project %s: %w", path, err)
	}
	p, err := Load(string(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}
