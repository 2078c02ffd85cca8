// Package preview derives the live scene shown next to the graph editor:
// render roots resolved to a tree of items carrying their effective
// parameter values.
package preview

import (
	"maps"

	"github.com/ritzau/scenegraph/pkg/cycles"
	"github.com/ritzau/scenegraph/pkg/evaluate"
	"github.com/ritzau/scenegraph/pkg/graph"
	"github.com/ritzau/scenegraph/pkg/ir"
	"github.com/ritzau/scenegraph/pkg/logging"
	"github.com/ritzau/scenegraph/pkg/registry"
	"github.com/ritzau/scenegraph/pkg/resolve"
)

// DefaultCamera is the viewport camera used when no camera node is reachable
var DefaultCamera = Camera{Position: [3]float64{2.5, 2, 4}, Fov: 50}

// Item is one renderable element of the preview
type Item struct {
	ID       string              `json:"id"`
	TypeKey  string              `json:"typeKey"`
	Role     string              `json:"role"`
	Params   map[string]ir.Value `json:"params,omitempty"`
	Children []Item              `json:"children,omitempty"`
}

// Camera is the viewport camera. It is not part of the item tree.
type Camera struct {
	NodeID   string     `json:"nodeId,omitempty"`
	Position [3]float64 `json:"position"`
	Fov      float64    `json:"fov"`
}

// Scene is the full preview state of one graph
type Scene struct {
	Roots         []Item         `json:"roots"`
	Camera        Camera         `json:"camera"`
	DefaultLights bool           `json:"defaultLights"`
	Cycles        []cycles.Cycle `json:"cycles,omitempty"`
}

// Compute derives the preview of layer. Item parameters are the node's
// definition defaults overlaid with its effective values, so propagated
// constants and arithmetic results show up in place.
func Compute(reg *registry.Registry, layer ir.GraphLayer) *Scene {
	effective := evaluate.EffectiveParams(layer.Nodes, layer.Edges)
	roots := resolve.ResolveRoots(layer.Nodes, layer.Edges, resolve.RenderRoot)

	b := &builder{reg: reg, effective: effective}
	scene := &Scene{
		Roots:  make([]Item, 0, len(roots)),
		Camera: DefaultCamera,
	}
	for _, root := range roots {
		scene.Roots = append(scene.Roots, b.items(root.Tree)...)
	}

	// lights count wherever they are reachable, rendered or not
	scene.DefaultLights = !reg.HasRole(layer.Nodes, registry.RoleLight, resolve.ReachableUnion(roots).Has)
	if b.camera != nil {
		scene.Camera = *b.camera
	}
	scene.Cycles = cycles.FindCycles(graph.NewIndex(layer))
	if len(scene.Cycles) > 0 {
		logging.Debug("preview graph has cycles", "count", len(scene.Cycles))
	}
	return scene
}

type builder struct {
	reg       *registry.Registry
	effective evaluate.Params
	camera    *Camera
}

func (b *builder) params(n ir.GraphNode) map[string]ir.Value {
	params := make(map[string]ir.Value)
	if def, ok := b.reg.DefinitionFor(n); ok {
		maps.Copy(params, def.Defaults())
	}
	maps.Copy(params, b.effective[n.ID])
	if len(params) == 0 {
		return nil
	}
	return params
}

func (b *builder) children(h *resolve.Hierarchy) []Item {
	var items []Item
	for _, c := range h.Children {
		items = append(items, b.items(c)...)
	}
	return items
}

// items returns the preview items for h. Cameras and value sources have no
// item of their own; a camera's children are lifted into its parent.
func (b *builder) items(h *resolve.Hierarchy) []Item {
	if h == nil {
		return nil
	}
	n := h.Node
	role := b.reg.RoleOf(n.TypeKey)

	switch role {
	case registry.RoleValue:
		return nil
	case registry.RoleCamera:
		if b.camera == nil {
			b.camera = cameraFrom(n.ID, b.params(n))
		}
		return b.children(h)
	}

	return []Item{{
		ID:       n.ID,
		TypeKey:  n.TypeKey,
		Role:     role.String(),
		Params:   b.params(n),
		Children: b.children(h),
	}}
}

func cameraFrom(id string, params map[string]ir.Value) *Camera {
	cam := DefaultCamera
	cam.NodeID = id
	for i, key := range []string{"positionX", "positionY", "positionZ"} {
		if f, ok := params[key].AsNumber(); ok {
			cam.Position[i] = f
		}
	}
	if f, ok := params["fov"].AsNumber(); ok {
		cam.Fov = f
	}
	return &cam
}
