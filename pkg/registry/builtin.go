package registry

import "github.com/ritzau/scenegraph/pkg/ir"

func f(v float64) *float64 { return &v }

func number(key, label string, def, min, max, step float64) ParameterDefinition {
	return ParameterDefinition{
		Key:          key,
		Label:        label,
		Type:         TypeNumber,
		DefaultValue: ir.Number(def),
		Min:          f(min),
		Max:          f(max),
		Step:         f(step),
	}
}

func color(key, label, def string) ParameterDefinition {
	return ParameterDefinition{Key: key, Label: label, Type: TypeColor, DefaultValue: ir.String(def)}
}

func boolean(key, label string, def bool) ParameterDefinition {
	return ParameterDefinition{Key: key, Label: label, Type: TypeBoolean, DefaultValue: ir.Bool(def)}
}

func socket(key, label string, t ValueType) ParameterDefinition {
	return ParameterDefinition{Key: key, Label: label, Type: t}
}

func material(defaultColor string) []ParameterDefinition {
	return []ParameterDefinition{
		color("color", "Color", defaultColor),
		number("metalness", "Metalness", 0, 0, 1, 0.01),
		number("roughness", "Roughness", 0.5, 0, 1, 0.01),
		boolean("wireframe", "Wireframe", false),
	}
}

func position(x, y, z float64) []ParameterDefinition {
	return []ParameterDefinition{
		number("positionX", "Position X", x, -100, 100, 0.1),
		number("positionY", "Position Y", y, -100, 100, 0.1),
		number("positionZ", "Position Z", z, -100, 100, 0.1),
	}
}

func params(groups ...[]ParameterDefinition) []ParameterDefinition {
	var out []ParameterDefinition
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// DefaultMeshColor is the material color used when a mesh sets none
const DefaultMeshColor = "#4f46e5"

// builtins is the catalog available without any adapter document
var builtins = []NodeTypeDefinition{
	{
		Key:            "render",
		Label:          "Render",
		Category:       CategoryScene,
		AppearanceHint: HintStructure,
		Parameters:     []ParameterDefinition{socket("input", "Input", TypeScene)},
	},
	{
		Key:            "scene",
		Label:          "Scene",
		Category:       CategoryScene,
		OutputType:     TypeScene,
		AppearanceHint: HintStructure,
		Parameters:     []ParameterDefinition{socket("input", "Input", TypeScene)},
	},
	{
		Key:            "box",
		Label:          "Box",
		Category:       CategoryMesh,
		OutputType:     TypeMesh,
		AppearanceHint: HintStructure,
		Parameters: params(
			[]ParameterDefinition{
				number("width", "Width", 1, 0.1, 10, 0.1),
				number("height", "Height", 1, 0.1, 10, 0.1),
				number("depth", "Depth", 1, 0.1, 10, 0.1),
			},
			material(DefaultMeshColor),
		),
	},
	{
		Key:            "sphere",
		Label:          "Sphere",
		Category:       CategoryMesh,
		OutputType:     TypeMesh,
		AppearanceHint: HintStructure,
		Parameters: params(
			[]ParameterDefinition{number("radius", "Radius", 1, 0.1, 10, 0.1)},
			material(DefaultMeshColor),
		),
	},
	{
		Key:            "mesh",
		Label:          "Mesh",
		Category:       CategoryMesh,
		OutputType:     TypeMesh,
		AppearanceHint: HintStructure,
		Parameters: []ParameterDefinition{
			socket("geometry", "Geometry", TypeMesh),
			socket("material", "Material", TypeMesh),
			color("color", "Color", DefaultMeshColor),
			boolean("wireframe", "Wireframe", false),
		},
	},
	{
		Key:            "ambientLight",
		Label:          "Ambient Light",
		Category:       CategoryLight,
		OutputType:     TypeLight,
		AppearanceHint: HintLight,
		Parameters: []ParameterDefinition{
			number("intensity", "Intensity", 0.5, 0, 10, 0.1),
			color("color", "Color", "#ffffff"),
		},
	},
	{
		Key:            "directionalLight",
		Label:          "Directional Light",
		Category:       CategoryLight,
		OutputType:     TypeLight,
		AppearanceHint: HintLight,
		Parameters: params(
			[]ParameterDefinition{
				number("intensity", "Intensity", 1, 0, 10, 0.1),
				color("color", "Color", "#ffffff"),
			},
			position(3, 3, 3),
		),
	},
	{
		Key:            "pointLight",
		Label:          "Point Light",
		Category:       CategoryLight,
		OutputType:     TypeLight,
		AppearanceHint: HintLight,
		Parameters: params(
			[]ParameterDefinition{
				number("intensity", "Intensity", 1, 0, 10, 0.1),
				color("color", "Color", "#ffffff"),
				number("distance", "Distance", 0, 0, 1000, 1),
			},
			position(0, 3, 0),
		),
	},
	{
		Key:            "camera",
		Label:          "Camera",
		Category:       CategoryUtility,
		OutputType:     TypeAny,
		AppearanceHint: HintUtility,
		Parameters: params(
			[]ParameterDefinition{number("fov", "Field of View", 50, 10, 120, 1)},
			position(2.5, 2, 4),
		),
	},
	{
		Key:            "orbitControls",
		Label:          "Orbit Controls",
		Category:       CategoryUtility,
		OutputType:     TypeAny,
		AppearanceHint: HintUtility,
		Parameters: []ParameterDefinition{
			boolean("enableZoom", "Enable Zoom", true),
			boolean("enablePan", "Enable Pan", true),
			boolean("enableRotate", "Enable Rotate", true),
		},
		Import: &ImportSpec{Path: "@react-three/drei", Symbol: "OrbitControls"},
	},
	{
		Key:            "numberConst",
		Label:          "Number",
		Category:       CategoryUtility,
		OutputType:     TypeNumber,
		AppearanceHint: HintUtility,
		Parameters: []ParameterDefinition{{
			Key:           "value",
			Label:         "Value",
			Type:          TypeNumber,
			DefaultValue:  ir.Number(0),
			NoConnections: true,
		}},
	},
	{
		Key:            "colorConst",
		Label:          "Color",
		Category:       CategoryUtility,
		OutputType:     TypeColor,
		AppearanceHint: HintUtility,
		Parameters:     []ParameterDefinition{color("value", "Value", "#ffffff")},
	},
	{
		Key:            "booleanConst",
		Label:          "Boolean",
		Category:       CategoryUtility,
		OutputType:     TypeBoolean,
		AppearanceHint: HintUtility,
		Parameters:     []ParameterDefinition{boolean("value", "Value", false)},
	},
	{
		Key:            "stringConst",
		Label:          "String",
		Category:       CategoryUtility,
		OutputType:     TypeString,
		AppearanceHint: HintUtility,
		Parameters: []ParameterDefinition{
			{Key: "value", Label: "Value", Type: TypeString, DefaultValue: ir.String("")},
		},
	},
	{
		Key:            "add",
		Label:          "Add",
		Category:       CategoryUtility,
		OutputType:     TypeNumber,
		AppearanceHint: HintUtility,
		Parameters: []ParameterDefinition{
			{Key: "a", Label: "A", Type: TypeNumber, DefaultValue: ir.Number(0)},
			{Key: "b", Label: "B", Type: TypeNumber, DefaultValue: ir.Number(0)},
		},
	},
	{
		Key:            "multiply",
		Label:          "Multiply",
		Category:       CategoryUtility,
		OutputType:     TypeNumber,
		AppearanceHint: HintUtility,
		Parameters: []ParameterDefinition{
			{Key: "a", Label: "A", Type: TypeNumber, DefaultValue: ir.Number(0)},
			{Key: "b", Label: "B", Type: TypeNumber, DefaultValue: ir.Number(1)},
		},
	},
	{
		Key:            ir.CodeTypeKey,
		Label:          "Code",
		Category:       CategoryUtility,
		OutputType:     TypeAny,
		AppearanceHint: HintUtility,
		Parameters:     []ParameterDefinition{},
	},
}
