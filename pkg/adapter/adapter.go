// Package adapter loads external registry documents that describe extra
// node types and maps them onto registry definitions.
package adapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ritzau/scenegraph/pkg/ir"
	"github.com/ritzau/scenegraph/pkg/logging"
	"github.com/ritzau/scenegraph/pkg/registry"
)

// Format is the encoding of an adapter document
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrInvalidDocument wraps every schema failure
var ErrInvalidDocument = errors.New("invalid adapter document")

// Document is the top-level adapter registry file
type Document struct {
	Name    string         `json:"name" yaml:"name" validate:"required"`
	Version string         `json:"version" yaml:"version" validate:"required"`
	Nodes   []NodeTemplate `json:"nodes" yaml:"nodes" validate:"required,dive"`
}

// NodeTemplate declares one node type
type NodeTemplate struct {
	Key            string      `json:"key" yaml:"key" validate:"required"`
	Label          string      `json:"label" yaml:"label" validate:"required"`
	Category       string      `json:"category" yaml:"category" validate:"required,oneof=scene geometry material mesh light utility"`
	AppearanceHint string      `json:"appearanceHint,omitempty" yaml:"appearanceHint,omitempty" validate:"omitempty,oneof=structure material light utility"`
	Parameters     []Parameter `json:"parameters,omitempty" yaml:"parameters,omitempty" validate:"unique=Key,dive"`
}

// Parameter declares one scalar parameter of a node template
type Parameter struct {
	Key          string   `json:"key" yaml:"key" validate:"required"`
	Label        string   `json:"label" yaml:"label" validate:"required"`
	Type         string   `json:"type" yaml:"type" validate:"required,oneof=number color string boolean"`
	DefaultValue any      `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty" validate:"omitempty,scalar"`
	Min          *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max          *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Step         *float64 `json:"step,omitempty" yaml:"step,omitempty"`
}

var validate = newValidator()

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
	_ = v.RegisterValidation("scalar", func(fl validator.FieldLevel) bool {
		field := fl.Field()
		if field.Kind() == reflect.Interface {
			if field.IsNil() {
				return true
			}
			field = field.Elem()
		}
		switch field.Kind() {
		case reflect.Invalid, reflect.String, reflect.Bool,
			reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64:
			return true
		}
		return false
	})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		p := sl.Current().Interface().(Parameter)
		if p.Min != nil && p.Max != nil && *p.Min > *p.Max {
			sl.ReportError(p.Max, "max", "Max", "gtefield", "min")
			return
		}
		if _, err := ir.ValueOf(p.DefaultValue); err != nil {
			// reported by the scalar tag
			return
		}
		if err := p.definition().Check(); err != nil {
			sl.ReportError(p.DefaultValue, "defaultValue", "DefaultValue", "default", p.Type)
		}
	}, Parameter{})
	return v
}

// Parse decodes and validates an adapter document
func Parse(data []byte, format Format) (*Document, error) {
	var doc Document
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: decode yaml: %v", ErrInvalidDocument, err)
		}
	case FormatJSON, "":
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%w: decode json: %v", ErrInvalidDocument, err)
		}
	default:
		return nil, fmt.Errorf("unsupported adapter format %q", format)
	}

	if err := validate.Struct(&doc); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDocument, describe(err))
	}
	return &doc, nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		path := strings.TrimPrefix(fe.Namespace(), "Document.")
		msg := fmt.Sprintf("%s failed %q", path, fe.Tag())
		if fe.Param() != "" {
			msg += " (" + fe.Param() + ")"
		}
		msgs = append(msgs, msg)
	}
	return strings.Join(msgs, "; ")
}

// FormatFor picks the format from a file extension
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// ParseFile reads and parses the document at path
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read adapter %s: %w", path, err)
	}
	return Parse(data, FormatFor(path))
}

// Map converts a validated document into registry definitions keyed by type key
func Map(doc *Document) map[string]registry.NodeTypeDefinition {
	defs := make(map[string]registry.NodeTypeDefinition, len(doc.Nodes))
	for _, n := range doc.Nodes {
		def := registry.NodeTypeDefinition{
			Key:            n.Key,
			Label:          n.Label,
			Category:       registry.Category(n.Category),
			AppearanceHint: registry.AppearanceHint(n.AppearanceHint),
			Parameters:     make([]registry.ParameterDefinition, 0, len(n.Parameters)),
		}
		for _, p := range n.Parameters {
			def.Parameters = append(def.Parameters, p.definition())
		}
		defs[n.Key] = def
	}
	return defs
}

func (p Parameter) definition() registry.ParameterDefinition {
	return registry.ParameterDefinition{
		Key:          p.Key,
		Label:        p.Label,
		Type:         registry.ValueType(p.Type),
		DefaultValue: toValue(p.DefaultValue),
		Min:          p.Min,
		Max:          p.Max,
		Step:         p.Step,
	}
}

func toValue(x any) ir.Value {
	v, err := ir.ValueOf(x)
	if err != nil {
		// unreachable for validated documents
		return ir.Null()
	}
	return v
}

// BuildRegistry returns the built-in catalog extended by the adapter at
// path. Any failure to read or validate the document is logged and the
// built-in catalog is returned on its own.
func BuildRegistry(path string) *registry.Registry {
	if path == "" {
		return registry.New()
	}
	doc, err := ParseFile(path)
	if err != nil {
		logging.Warn("adapter registry rejected, using built-in node types", "path", path, "error", err)
		return registry.New()
	}
	logging.Info("adapter registry loaded", "path", path, "name", doc.Name, "version", doc.Version, "nodes", len(doc.Nodes))
	return registry.New(Map(doc))
}
