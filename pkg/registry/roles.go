package registry

import "github.com/ritzau/scenegraph/pkg/ir"

// Role says how a node kind takes part in the scene tree. Emitters and the
// preview dispatch on it instead of matching type keys themselves.
type Role int

const (
	RoleUnknown Role = iota
	RoleGroup        // structural container
	RoleMesh         // geometry plus material
	RoleLight        // single light element
	RoleCamera       // no markup; children pass through
	RoleValue        // value source, contributes only through propagation
	RoleElement      // imported component rendered as one element
)

func (r Role) String() string {
	switch r {
	case RoleGroup:
		return "group"
	case RoleMesh:
		return "mesh"
	case RoleLight:
		return "light"
	case RoleCamera:
		return "camera"
	case RoleValue:
		return "value"
	case RoleElement:
		return "element"
	default:
		return "unknown"
	}
}

var roles = map[string]Role{
	"render":           RoleGroup,
	"scene":            RoleGroup,
	"box":              RoleMesh,
	"sphere":           RoleMesh,
	"mesh":             RoleMesh,
	"ambientLight":     RoleLight,
	"directionalLight": RoleLight,
	"pointLight":       RoleLight,
	"camera":           RoleCamera,
	"numberConst":      RoleValue,
	"colorConst":       RoleValue,
	"booleanConst":     RoleValue,
	"stringConst":      RoleValue,
	"add":              RoleValue,
	"multiply":         RoleValue,
	"code":             RoleValue,
}

// HasRole reports whether any of nodes accepted by keep plays role
func (r *Registry) HasRole(nodes []ir.GraphNode, role Role, keep func(id string) bool) bool {
	for _, n := range nodes {
		if keep(n.ID) && r.RoleOf(n.TypeKey) == role {
			return true
		}
	}
	return false
}

// RoleOf returns the role of typeKey. Kinds outside the fixed table are
// elements when their definition names an import, unknown otherwise.
func (r *Registry) RoleOf(typeKey string) Role {
	if role, ok := roles[typeKey]; ok {
		return role
	}
	if d, ok := r.defs[typeKey]; ok && d.Import != nil {
		return RoleElement
	}
	return RoleUnknown
}
