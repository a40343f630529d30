package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/gogpu/shaderlink"
	"github.com/gogpu/shaderlink/config"
	"github.com/gogpu/shaderlink/ir"
	"github.com/gogpu/shaderlink/link"
)

// Manifest describes a program: its stages and API bindings.
//
//	config = "device.toml"
//
//	[attribute_locations]
//	pos = 0
//
//	[transform_feedback]
//	varyings = ["v_color"]
//	mode = "interleaved"
//
//	[[shader]]
//	stage = "vertex"
//	main = ["gl_Position = pos", "v_color = pos"]
//	  [[shader.global]]
//	  name = "pos"
//	  type = "vec4"
//	  qualifier = "in"
type Manifest struct {
	Config             string            `toml:"config"`
	AttributeLocations map[string]int    `toml:"attribute_locations"`
	UniformLocations   map[string]int    `toml:"uniform_locations"`
	FragDataLocations  map[string]int    `toml:"frag_data_locations"`
	TransformFeedback  TransformFeedback `toml:"transform_feedback"`
	Shaders            []Stage           `toml:"shader"`

	dir string
}

// TransformFeedback selects captured varyings.
type TransformFeedback struct {
	Varyings []string `toml:"varyings"`
	Mode     string   `toml:"mode"`
}

// Stage is one shader of the manifest.
type Stage struct {
	Stage         string   `toml:"stage"`
	Version       int      `toml:"version"`
	WorkGroupSize []uint32 `toml:"workgroup_size"`
	Globals       []Global `toml:"global"`
	Main          []string `toml:"main"`
}

// Global is a module-scope declaration.
type Global struct {
	Name          string `toml:"name"`
	Type          string `toml:"type"`
	ArraySize     uint32 `toml:"array_size"`
	Qualifier     string `toml:"qualifier"`
	Builtin       string `toml:"builtin"`
	Location      *int   `toml:"location"`
	Binding       *int   `toml:"binding"`
	Interpolation string `toml:"interpolation"`
	Precision     string `toml:"precision"`
}

// LoadManifest reads a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := DecodeManifest(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.dir = filepath.Dir(path)
	return m, nil
}

// DecodeManifest parses manifest text. Unknown keys are errors.
func DecodeManifest(text string) (*Manifest, error) {
	var m Manifest
	md, err := toml.Decode(text, &m)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys %s", strings.Join(keys, ", "))
	}
	if len(m.Shaders) == 0 {
		return nil, fmt.Errorf("no shaders")
	}
	return &m, nil
}

// LoadConfig returns the device config named by the manifest, relative to
// the manifest file, or the default config.
func (m *Manifest) LoadConfig() (config.Config, error) {
	if m.Config == "" {
		return config.Default(), nil
	}
	path := m.Config
	if !filepath.IsAbs(path) {
		path = filepath.Join(m.dir, path)
	}
	return config.Load(path)
}

// LinkOptions returns the bindings of the manifest.
func (m *Manifest) LinkOptions() (shaderlink.LinkOptions, error) {
	opts := shaderlink.LinkOptions{
		AttributeLocations:        m.AttributeLocations,
		UniformLocations:          m.UniformLocations,
		FragDataLocations:         m.FragDataLocations,
		TransformFeedbackVaryings: m.TransformFeedback.Varyings,
	}
	switch m.TransformFeedback.Mode {
	case "", "interleaved":
		opts.TransformFeedbackMode = link.TransformFeedbackInterleaved
	case "separate":
		opts.TransformFeedbackMode = link.TransformFeedbackSeparate
	default:
		return opts, fmt.Errorf("unknown transform feedback mode %q", m.TransformFeedback.Mode)
	}
	return opts, nil
}

var stages = map[string]ir.ShaderStage{
	"vertex":   ir.StageVertex,
	"geometry": ir.StageGeometry,
	"fragment": ir.StageFragment,
	"compute":  ir.StageCompute,
}

var qualifiers = map[string]ir.StorageQualifier{
	"":        ir.QualifierGlobal,
	"in":      ir.QualifierIn,
	"out":     ir.QualifierOut,
	"uniform": ir.QualifierUniform,
}

var builtins = map[string]ir.BuiltinValue{
	"":               ir.BuiltinNone,
	"position":       ir.BuiltinPosition,
	"point_size":     ir.BuiltinPointSize,
	"vertex_index":   ir.BuiltinVertexIndex,
	"instance_index": ir.BuiltinInstanceIndex,
	"frag_coord":     ir.BuiltinFragCoord,
	"point_coord":    ir.BuiltinPointCoord,
	"front_facing":   ir.BuiltinFrontFacing,
	"frag_depth":     ir.BuiltinFragDepth,
}

var interpolations = map[string]ir.Interpolation{
	"":         ir.InterpolationSmooth,
	"smooth":   ir.InterpolationSmooth,
	"flat":     ir.InterpolationFlat,
	"centroid": ir.InterpolationCentroid,
}

var precisions = map[string]ir.Precision{
	"":        ir.PrecisionHigh,
	"lowp":    ir.PrecisionLow,
	"mediump": ir.PrecisionMedium,
	"highp":   ir.PrecisionHigh,
}

// Module builds the tree of a manifest stage.
func (s *Stage) Module() (*ir.Module, error) {
	stage, ok := stages[s.Stage]
	if !ok {
		return nil, fmt.Errorf("unknown stage %q", s.Stage)
	}
	version := s.Version
	if version == 0 {
		version = 310
	}
	m := &ir.Module{
		Version:   version,
		Stage:     stage,
		Functions: []ir.Function{{Name: "main"}},
	}
	if len(s.WorkGroupSize) > 3 {
		return nil, fmt.Errorf("workgroup_size has %d entries", len(s.WorkGroupSize))
	}
	copy(m.Workgroup[:], s.WorkGroupSize)

	types := ir.NewTypeRegistry(m)
	for i := range s.Globals {
		if err := declare(m, types, &s.Globals[i]); err != nil {
			return nil, fmt.Errorf("%s shader: %w", s.Stage, err)
		}
	}

	b := ir.NewBuilder(m, 0, types)
	for _, line := range s.Main {
		stmt, err := parseStore(m, b, line)
		if err != nil {
			return nil, fmt.Errorf("%s shader: %q: %w", s.Stage, line, err)
		}
		b.Function().Body = append(b.Function().Body, stmt)
	}
	return m, nil
}

func declare(m *ir.Module, types *ir.TypeRegistry, g *Global) error {
	typ, err := parseType(types, g.Type)
	if err != nil {
		return fmt.Errorf("%s: %w", g.Name, err)
	}
	if g.ArraySize > 0 {
		typ = types.Array(typ, g.ArraySize)
	}
	q, ok := qualifiers[g.Qualifier]
	if !ok {
		return fmt.Errorf("%s: unknown qualifier %q", g.Name, g.Qualifier)
	}
	builtin, ok := builtins[g.Builtin]
	if !ok {
		return fmt.Errorf("%s: unknown builtin %q", g.Name, g.Builtin)
	}
	interp, ok := interpolations[g.Interpolation]
	if !ok {
		return fmt.Errorf("%s: unknown interpolation %q", g.Name, g.Interpolation)
	}
	precision, ok := precisions[g.Precision]
	if !ok {
		return fmt.Errorf("%s: unknown precision %q", g.Name, g.Precision)
	}

	layout := ir.NoLayout()
	if g.Location != nil {
		layout.Location = *g.Location
	}
	if g.Binding != nil {
		layout.Binding = *g.Binding
	}
	m.AddGlobal(ir.GlobalVariable{
		Name:          g.Name,
		Type:          typ,
		Qualifier:     q,
		Builtin:       builtin,
		Layout:        layout,
		Interpolation: interp,
		Precision:     precision,
	})
	return nil
}

func parseType(types *ir.TypeRegistry, name string) (ir.TypeHandle, error) {
	scalars := map[string]ir.ScalarKind{
		"float": ir.ScalarFloat, "int": ir.ScalarSint, "uint": ir.ScalarUint, "bool": ir.ScalarBool,
	}
	if kind, ok := scalars[name]; ok {
		return types.Scalar(kind), nil
	}
	vectors := map[string]ir.ScalarKind{
		"vec": ir.ScalarFloat, "ivec": ir.ScalarSint, "uvec": ir.ScalarUint, "bvec": ir.ScalarBool,
	}
	for prefix, kind := range vectors {
		if n, ok := dimension(name, prefix); ok {
			return types.Vector(ir.VectorSize(n), kind), nil
		}
	}
	if n, ok := dimension(name, "mat"); ok {
		return types.Matrix(ir.VectorSize(n), ir.VectorSize(n)), nil
	}
	switch name {
	case "sampler2D":
		return types.GetOrCreate("", ir.SamplerType{Dim: ir.Dim2D, Kind: ir.ScalarFloat}), nil
	case "samplerCube":
		return types.GetOrCreate("", ir.SamplerType{Dim: ir.DimCube, Kind: ir.ScalarFloat}), nil
	}
	return 0, fmt.Errorf("unknown type %q", name)
}

// dimension parses the size suffix of vec3, mat4 and the like.
func dimension(name, prefix string) (int, bool) {
	rest, ok := strings.CutPrefix(name, prefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 2 || n > 4 {
		return 0, false
	}
	return n, true
}

// parseStore parses "dst = src" or "dst = a op b" with op one of + - * /,
// where every operand names a declared global.
func parseStore(m *ir.Module, b *ir.Builder, line string) (ir.Statement, error) {
	lhs, rhs, ok := strings.Cut(line, "=")
	if !ok {
		return ir.Statement{}, fmt.Errorf("missing '='")
	}
	dst, err := globalRef(m, b, strings.TrimSpace(lhs))
	if err != nil {
		return ir.Statement{}, err
	}

	fields := strings.Fields(rhs)
	switch len(fields) {
	case 1:
		src, err := globalRef(m, b, fields[0])
		if err != nil {
			return ir.Statement{}, err
		}
		return ir.Store(dst, src), nil
	case 3:
		left, err := globalRef(m, b, fields[0])
		if err != nil {
			return ir.Statement{}, err
		}
		right, err := globalRef(m, b, fields[2])
		if err != nil {
			return ir.Statement{}, err
		}
		ops := map[string]func(l, r ir.ExpressionHandle) ir.ExpressionHandle{
			"+": b.Add, "-": b.Sub, "*": b.Mul, "/": b.Div,
		}
		op, ok := ops[fields[1]]
		if !ok {
			return ir.Statement{}, fmt.Errorf("unknown operator %q", fields[1])
		}
		return ir.Store(dst, op(left, right)), nil
	default:
		return ir.Statement{}, fmt.Errorf("expected 'a' or 'a op b'")
	}
}

func globalRef(m *ir.Module, b *ir.Builder, name string) (ir.ExpressionHandle, error) {
	h, ok := m.FindGlobal(name)
	if !ok {
		return 0, fmt.Errorf("undeclared %q", name)
	}
	return b.Global(h), nil
}
