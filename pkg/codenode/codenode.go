// Package codenode performs lightweight static checks on the source of
// user-code nodes and derives their input signature. The checks are lexical;
// sources are never executed.
package codenode

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ritzau/scenegraph/pkg/ir"
)

// MetaVersion is written into signatures derived from source
const MetaVersion = "1"

// DefaultSource is the body given to freshly inserted code nodes
const DefaultSource = "export function node(a: number, b: number): number {\n  return a + b;\n}"

var (
	// ErrInvalidSource is wrapped by every rejection from Validate
	ErrInvalidSource = errors.New("invalid code node source")
	// ErrNoSignature means no exported node function could be found
	ErrNoSignature = errors.New("no function signature found")
	// ErrUnsupportedParam means a parameter declaration could not be parsed
	ErrUnsupportedParam = errors.New("unsupported param")
)

var (
	exportedNode = regexp.MustCompile(`export\s+function\s+node\s*\(`)
	signature    = regexp.MustCompile(`export\s+function\s+node\s*\(([^)]*)\)`)
	paramDecl    = regexp.MustCompile(`^(\w+)\s*:\s*(number|string|boolean)\s*(\[\])?$`)
)

// Result is the outcome of Validate
type Result struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// Err converts a failed result into an error wrapping ErrInvalidSource
func (r Result) Err() error {
	if r.OK {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidSource, r.Message)
}

// Validate checks that src is non-empty, exports a function named node and
// has balanced parentheses and braces.
func Validate(src string) Result {
	if strings.TrimSpace(src) == "" {
		return Result{Message: "Code cannot be empty"}
	}
	if !exportedNode.MatchString(src) {
		return Result{Message: `Must export a function named "node"`}
	}
	if strings.Count(src, "(") != strings.Count(src, ")") {
		return Result{Message: "Unbalanced parentheses"}
	}
	if strings.Count(src, "{") != strings.Count(src, "}") {
		return Result{Message: "Unbalanced braces"}
	}
	return Result{OK: true}
}

// Param is one declared input of the node function
type Param struct {
	Key   string
	Type  string // number, string or boolean
	Array bool
}

// ExtractParams parses the parameter list of the exported node function.
// Each entry must read "name: number|string|boolean", optionally with [].
func ExtractParams(src string) ([]Param, error) {
	m := signature.FindStringSubmatch(src)
	if m == nil {
		return nil, ErrNoSignature
	}
	list := strings.TrimSpace(m[1])
	if list == "" {
		return []Param{}, nil
	}

	var params []Param
	for _, raw := range strings.Split(list, ",") {
		decl := strings.TrimSpace(raw)
		if decl == "" {
			// trailing comma
			continue
		}
		pm := paramDecl.FindStringSubmatch(decl)
		if pm == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedParam, decl)
		}
		params = append(params, Param{Key: pm[1], Type: pm[2], Array: pm[3] != ""})
	}
	return params, nil
}

// SyncMeta validates src and returns node with its code and input signature
// refreshed. Labels and UI hints of inputs that keep their key survive. On
// error the node is returned unchanged.
func SyncMeta(node ir.GraphNode, src string) (ir.GraphNode, error) {
	if err := Validate(src).Err(); err != nil {
		return node, err
	}
	params, err := ExtractParams(src)
	if err != nil {
		return node, fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}

	prev := node.CodeMeta
	labels := make(map[string]string)
	if prev != nil {
		for _, in := range prev.Inputs {
			labels[in.Key] = in.Label
		}
	}

	meta := &ir.CodeMeta{
		Version: MetaVersion,
		Inputs:  make([]ir.CodeInput, 0, len(params)),
	}
	if prev != nil {
		meta.Output = prev.Output
		if len(prev.UIHints) > 0 {
			meta.UIHints = make(map[string]ir.UIHint)
		}
	}
	for _, p := range params {
		meta.Inputs = append(meta.Inputs, ir.CodeInput{
			Key:   p.Key,
			Type:  p.Type,
			Label: labels[p.Key],
		})
		if prev != nil {
			if hint, ok := prev.UIHints[p.Key]; ok {
				meta.UIHints[p.Key] = hint
			}
		}
	}

	node.Code = src
	node.CodeMeta = meta
	return node, nil
}
