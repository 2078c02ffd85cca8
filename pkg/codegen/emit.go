// Package codegen renders a module into a React Three Fiber source file with
// fenced regions that can be regenerated without touching hand-written code.
package codegen

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/ritzau/scenegraph/pkg/ir"
	"github.com/ritzau/scenegraph/pkg/registry"
	"github.com/ritzau/scenegraph/pkg/resolve"
)

// DefaultComponentName is used when neither options nor the module name one
const DefaultComponentName = "MainScene"

const header = `/**
 * This file is generated. Manual edits outside fenced regions will be preserved.
 */`

const (
	emptyScene         = "{/* Empty scene */}"
	defaultAmbient     = "<ambientLight intensity={0.7} />"
	defaultDirectional = "<directionalLight position={[3, 3, 3]} intensity={0.8} />"
	canvasOpen         = "<Canvas camera={{ position: [2.5, 2, 4], fov: 50 }}>"
	canvasClose        = "</Canvas>"
	indent             = "  "
	unknownNodeFormat  = "{/* Unknown node type: %s */}"
	importLineFormat   = "import { %s } from '%s'"
	baseImportReact    = "import React from 'react'"
	baseImportFiber    = "import { Canvas } from '@react-three/fiber'"
	baseImportThree    = "import * as THREE from 'three'"
	materialElement    = "meshStandardMaterial"
)

// Options tune a single emission
type Options struct {
	ComponentName string
}

// Emit renders module deterministically. The registry resolves node roles
// and imports; unknown kinds degrade to a comment instead of failing.
func Emit(reg *registry.Registry, module ir.IRModule, opts Options) string {
	name := opts.ComponentName
	if name == "" {
		name = module.Tree.ModuleName
	}
	name = ComponentName(name)

	g := module.Graph
	ordered := resolve.Nodes(resolve.ResolveOrder(g.Nodes, g.Edges))
	roots := resolve.ResolveRoots(ordered, g.Edges, resolve.RenderRoot)

	e := &emitter{reg: reg, imports: make(map[string]map[string]bool)}

	var scene []string
	for _, root := range roots {
		for _, line := range e.render(root.Tree) {
			scene = append(scene, indent+line)
		}
	}
	if len(roots) == 0 {
		scene = []string{indent + emptyScene}
	}

	jsx := []string{canvasOpen}
	if !reg.HasRole(g.Nodes, registry.RoleLight, resolve.ReachableUnion(roots).Has) {
		jsx = append(jsx, indent+defaultAmbient, indent+defaultDirectional)
	}
	jsx = append(jsx, scene...)
	jsx = append(jsx, canvasClose)

	imports := region("imports", e.importLines()...)
	component := region("component", slices.Concat(
		[]string{
			fmt.Sprintf("export function %s() {", name),
			indent + "return (",
		},
		jsx,
		[]string{
			indent + ");",
			"}",
		},
	)...)
	exports := region("exports", fmt.Sprintf("export default %s;", name))

	return strings.Join([]string{header, imports, "", component, "", exports, ""}, "\n")
}

func region(name string, body ...string) string {
	lines := make([]string, 0, len(body)+2)
	lines = append(lines, FenceStart+" "+name)
	lines = append(lines, body...)
	lines = append(lines, FenceEnd)
	return strings.Join(lines, "\n")
}

type emitter struct {
	reg     *registry.Registry
	imports map[string]map[string]bool // path -> symbols
}

func (e *emitter) importLines() []string {
	lines := []string{baseImportReact, baseImportFiber}
	for _, path := range slices.Sorted(maps.Keys(e.imports)) {
		symbols := slices.Sorted(maps.Keys(e.imports[path]))
		lines = append(lines, fmt.Sprintf(importLineFormat, strings.Join(symbols, ", "), path))
	}
	return append(lines, baseImportThree)
}

func (e *emitter) children(h *resolve.Hierarchy) []string {
	var lines []string
	for _, c := range h.Children {
		for _, line := range e.render(c) {
			lines = append(lines, indent+line)
		}
	}
	return lines
}

// render returns the markup lines for h, unindented
func (e *emitter) render(h *resolve.Hierarchy) []string {
	if h == nil {
		return nil
	}
	n := h.Node

	switch e.reg.RoleOf(n.TypeKey) {
	case registry.RoleGroup:
		return wrap("group", "", e.children(h))

	case registry.RoleMesh:
		lines := []string{"<mesh>", indent + geometry(n), indent + material(n)}
		lines = append(lines, e.children(h)...)
		return append(lines, "</mesh>")

	case registry.RoleLight:
		return []string{fmt.Sprintf("<%s%s />", n.TypeKey, lightProps(n))}

	case registry.RoleCamera:
		// camera state is carried by the canvas, not by markup
		var lines []string
		for _, c := range h.Children {
			lines = append(lines, e.render(c)...)
		}
		return lines

	case registry.RoleValue:
		return nil

	case registry.RoleElement:
		def, _ := e.reg.Lookup(n.TypeKey)
		e.addImport(def.Import)
		return wrap(def.Import.Symbol, scalarProps(n, def), e.children(h))

	default:
		return []string{fmt.Sprintf(unknownNodeFormat, n.TypeKey)}
	}
}

func (e *emitter) addImport(imp *registry.ImportSpec) {
	if imp == nil {
		return
	}
	if e.imports[imp.Path] == nil {
		e.imports[imp.Path] = make(map[string]bool)
	}
	e.imports[imp.Path][imp.Symbol] = true
}

func wrap(tag, props string, children []string) []string {
	if len(children) == 0 {
		return []string{fmt.Sprintf("<%s%s />", tag, props)}
	}
	lines := make([]string, 0, len(children)+2)
	lines = append(lines, fmt.Sprintf("<%s%s>", tag, props))
	lines = append(lines, children...)
	return append(lines, fmt.Sprintf("</%s>", tag))
}

func fmtNum(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// numberOr returns the stored number, or def when it is missing or zero
func numberOr(n ir.GraphNode, key string, def float64) float64 {
	v, _ := n.Param(key)
	if f, ok := v.AsNumber(); ok && f != 0 {
		return f
	}
	return def
}

func geometry(n ir.GraphNode) string {
	switch n.TypeKey {
	case "box":
		return fmt.Sprintf("<boxGeometry args={[%s, %s, %s]} />",
			fmtNum(numberOr(n, "width", 1)),
			fmtNum(numberOr(n, "height", 1)),
			fmtNum(numberOr(n, "depth", 1)))
	case "sphere":
		return fmt.Sprintf("<sphereGeometry args={[%s]} />", fmtNum(numberOr(n, "radius", 1)))
	default:
		// generic meshes get a unit box
		return "<boxGeometry />"
	}
}

func material(n ir.GraphNode) string {
	color := registry.DefaultMeshColor
	if v, ok := n.Param("color"); ok {
		if s, ok := v.AsString(); ok && s != "" {
			color = s
		}
	}
	props := []string{fmt.Sprintf("color=%q", color)}
	if v, ok := n.Param("metalness"); ok {
		if f, ok := v.AsNumber(); ok {
			props = append(props, fmt.Sprintf("metalness={%s}", fmtNum(f)))
		}
	}
	if v, ok := n.Param("roughness"); ok {
		if f, ok := v.AsNumber(); ok {
			props = append(props, fmt.Sprintf("roughness={%s}", fmtNum(f)))
		}
	}
	if v, ok := n.Param("wireframe"); ok {
		if b, ok := v.AsBool(); ok {
			props = append(props, fmt.Sprintf("wireframe={%t}", b))
		}
	}
	return fmt.Sprintf("<%s %s />", materialElement, strings.Join(props, " "))
}

func lightProps(n ir.GraphNode) string {
	var props []string

	pos := [3]string{}
	hasPos := false
	for i, key := range []string{"positionX", "positionY", "positionZ"} {
		pos[i] = "0"
		if v, ok := n.Param(key); ok {
			if f, ok := v.AsNumber(); ok {
				pos[i] = fmtNum(f)
				hasPos = true
			}
		}
	}
	if hasPos {
		props = append(props, fmt.Sprintf("position={[%s, %s, %s]}", pos[0], pos[1], pos[2]))
	}

	for _, key := range []string{"intensity", "distance"} {
		if v, ok := n.Param(key); ok {
			if f, ok := v.AsNumber(); ok {
				props = append(props, fmt.Sprintf("%s={%s}", key, fmtNum(f)))
			}
		}
	}
	if v, ok := n.Param("color"); ok {
		if s, ok := v.AsString(); ok && s != "" {
			props = append(props, fmt.Sprintf("color=%q", s))
		}
	}

	if len(props) == 0 {
		return ""
	}
	return " " + strings.Join(props, " ")
}

// scalarProps renders the stored scalar params of n in definition order
func scalarProps(n ir.GraphNode, def *registry.NodeTypeDefinition) string {
	var props []string
	for _, p := range def.Parameters {
		v, ok := n.Param(p.Key)
		if !ok {
			continue
		}
		switch v.Kind() {
		case ir.KindString:
			s, _ := v.AsString()
			props = append(props, fmt.Sprintf("%s=%q", p.Key, s))
		case ir.KindNumber:
			f, _ := v.AsNumber()
			props = append(props, fmt.Sprintf("%s={%s}", p.Key, fmtNum(f)))
		case ir.KindBool:
			b, _ := v.AsBool()
			props = append(props, fmt.Sprintf("%s={%t}", p.Key, b))
		}
	}
	if len(props) == 0 {
		return ""
	}
	return " " + strings.Join(props, " ")
}
