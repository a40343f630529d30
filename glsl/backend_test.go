// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"strings"
	"testing"

	"github.com/gogpu/shaderlink/ir"
	"github.com/gogpu/shaderlink/link"
	"github.com/gogpu/shaderlink/shader"
)

// =============================================================================
// Fixtures
// =============================================================================

type fixture struct {
	module *ir.Module
	types  *ir.TypeRegistry
	b      *ir.Builder
}

func newFixture(stage ir.ShaderStage) *fixture {
	m := &ir.Module{
		Version:   310,
		Stage:     stage,
		Functions: []ir.Function{{Name: "main"}},
	}
	types := ir.NewTypeRegistry(m)
	return &fixture{module: m, types: types, b: ir.NewBuilder(m, 0, types)}
}

func (f *fixture) global(name string, typ ir.TypeHandle, q ir.StorageQualifier) ir.GlobalVariableHandle {
	return f.builtin(name, typ, q, ir.BuiltinNone)
}

func (f *fixture) builtin(name string, typ ir.TypeHandle, q ir.StorageQualifier, b ir.BuiltinValue) ir.GlobalVariableHandle {
	return f.module.AddGlobal(ir.GlobalVariable{
		Name:      name,
		Type:      typ,
		Qualifier: q,
		Builtin:   b,
		Layout:    ir.NoLayout(),
		Precision: ir.PrecisionHigh,
	})
}

func (f *fixture) scalar(kind ir.ScalarKind) ir.TypeHandle {
	return f.types.Scalar(kind)
}

func (f *fixture) vec(n ir.VectorSize) ir.TypeHandle {
	return f.types.Vector(n, ir.ScalarFloat)
}

func (f *fixture) sampler2D() ir.TypeHandle {
	return f.types.GetOrCreate("", ir.SamplerType{Dim: ir.Dim2D, Kind: ir.ScalarFloat})
}

func (f *fixture) body(stmts ...ir.Statement) {
	f.b.Function().Body = stmts
}

func compile(t *testing.T, m *ir.Module, opts Options) (string, TranslationInfo) {
	t.Helper()
	src, info, err := Compile(m, opts)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	return src, info
}

func assertContains(t *testing.T, src string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(src, w) {
			t.Errorf("output missing %q\n--- output ---\n%s", w, src)
		}
	}
}

func assertNotContains(t *testing.T, src string, unwanted ...string) {
	t.Helper()
	for _, w := range unwanted {
		if strings.Contains(src, w) {
			t.Errorf("output unexpectedly contains %q\n--- output ---\n%s", w, src)
		}
	}
}

// texturedFragment samples tex at uv and scales by a default uniform.
func texturedFragment() *fixture {
	f := newFixture(ir.StageFragment)
	scale := f.global("scale", f.scalar(ir.ScalarFloat), ir.QualifierUniform)
	tex := f.global("tex", f.sampler2D(), ir.QualifierUniform)
	uv := f.global("uv", f.vec(ir.Vec2), ir.QualifierIn)
	color := f.global("color", f.vec(ir.Vec4), ir.QualifierOut)
	sample := f.b.Expr(ir.ExprImageSample{Function: ir.SampleTexture, Image: f.b.Global(tex), Coordinate: f.b.Global(uv)})
	f.body(ir.Store(f.b.Global(color), f.b.Mul(sample, f.b.Global(scale))))
	return f
}

// =============================================================================
// Version Tests
// =============================================================================

func TestVersion_String(t *testing.T) {
	tests := []struct {
		version Version
		want    string
	}{
		{Version450, "450 core"},
		{VersionES310, "310 es"},
		{VersionES320, "320 es"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.version.String(); got != tt.want {
				t.Errorf("Version.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVersion_Vulkan(t *testing.T) {
	if !Version450.Vulkan() {
		t.Error("Version450 should target Vulkan")
	}
	if VersionES310.Vulkan() {
		t.Error("VersionES310 should not target Vulkan")
	}
	if got := VersionES320.VersionNumber(); got != "320" {
		t.Errorf("VersionNumber() = %q, want 320", got)
	}
}

func TestDefaultUniformsBinding(t *testing.T) {
	tests := []struct {
		stage shader.Stage
		want  int
	}{
		{shader.StageVertex, 1},
		{shader.StageGeometry, 2},
		{shader.StageFragment, 3},
		{shader.StageCompute, 4},
	}
	for _, tt := range tests {
		t.Run(tt.stage.String(), func(t *testing.T) {
			if got := DefaultUniformsBinding(tt.stage); got != tt.want {
				t.Errorf("DefaultUniformsBinding(%v) = %d, want %d", tt.stage, got, tt.want)
			}
		})
	}
}

// =============================================================================
// Naming Tests
// =============================================================================

func TestEscapeKeyword(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"color", "color"},
		{"float", "_ufloat"},
		{"texture", "_utexture"},
		{"gl_Custom", "_ugl_Custom"},
		{"webgl_thing", "_uwebgl_thing"},
		{"a__b", "_ua__b"},
		{"ANGLEUniforms", "ANGLEUniforms"},
		{"", "_unnamed"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := escapeKeyword(tt.input); got != tt.want {
				t.Errorf("escapeKeyword(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNamer_UniqueNames(t *testing.T) {
	n := newNamer()

	if got := n.call("x"); got != "x" {
		t.Errorf("first call = %q, want x", got)
	}
	if got := n.call("x"); got != "x_1" {
		t.Errorf("second call = %q, want x_1", got)
	}
	if got := n.call("x"); got != "x_2" {
		t.Errorf("third call = %q, want x_2", got)
	}
	if got := n.call("int"); got != "_uint" {
		t.Errorf("keyword = %q, want _uint", got)
	}
}

func TestResourceKey(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"tex", "tex"},
		{"u[0]", "u"},
		{"s[1].tex", "s_tex"},
		{"a.b.c", "a_b_c"},
		{"s[0].inner[2].t", "s_inner_t"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := resourceKey(tt.input); got != tt.want {
				t.Errorf("resourceKey(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// =============================================================================
// Type Tests
// =============================================================================

func TestTypeNames(t *testing.T) {
	vulkan := &Writer{options: &Options{LangVersion: Version450}}
	es := &Writer{options: &Options{LangVersion: VersionES310}}

	tests := []struct {
		name  string
		w     *Writer
		inner ir.TypeInner
		want  string
	}{
		{"bool", vulkan, ir.ScalarType{Kind: ir.ScalarBool}, "bool"},
		{"uint", vulkan, ir.ScalarType{Kind: ir.ScalarUint}, "uint"},
		{"ivec3", vulkan, ir.VectorType{Size: ir.Vec3, Scalar: ir.ScalarSint}, "ivec3"},
		{"bvec2", vulkan, ir.VectorType{Size: ir.Vec2, Scalar: ir.ScalarBool}, "bvec2"},
		{"mat4", vulkan, ir.MatrixType{Columns: ir.Vec4, Rows: ir.Vec4}, "mat4"},
		{"mat2x3", vulkan, ir.MatrixType{Columns: ir.Vec2, Rows: ir.Vec3}, "mat2x3"},
		{"isampler2DArray", vulkan, ir.SamplerType{Dim: ir.Dim2D, Arrayed: true, Kind: ir.ScalarSint}, "isampler2DArray"},
		{"sampler2DShadow", vulkan, ir.SamplerType{Dim: ir.Dim2D, Shadow: true, Kind: ir.ScalarFloat}, "sampler2DShadow"},
		{"samplerCubeShadow", vulkan, ir.SamplerType{Dim: ir.DimCube, Shadow: true, Kind: ir.ScalarFloat}, "samplerCubeShadow"},
		{"usampler3D", vulkan, ir.SamplerType{Dim: ir.Dim3D, Kind: ir.ScalarUint}, "usampler3D"},
		{"external vulkan", vulkan, ir.SamplerType{Dim: ir.DimExternal, Kind: ir.ScalarFloat}, "sampler2D"},
		{"external es", es, ir.SamplerType{Dim: ir.DimExternal, Kind: ir.ScalarFloat}, "samplerExternalOES"},
		{"uimage3D", vulkan, ir.ImageType{Dim: ir.Dim3D, Kind: ir.ScalarUint}, "uimage3D"},
		{"image2DArray", vulkan, ir.ImageType{Dim: ir.Dim2D, Arrayed: true, Kind: ir.ScalarFloat}, "image2DArray"},
		{"atomic_uint", vulkan, ir.AtomicCounterType{}, "atomic_uint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.w.typeInnerToGLSL(tt.inner); got != tt.want {
				t.Errorf("typeInnerToGLSL(%#v) = %q, want %q", tt.inner, got, tt.want)
			}
		})
	}
}

func TestArraySuffix(t *testing.T) {
	f := newFixture(ir.StageFragment)
	inner := f.types.Array(f.scalar(ir.ScalarFloat), 3)
	outer := f.types.Array(inner, 2)
	runtime := f.types.GetOrCreate("", ir.ArrayType{Base: f.scalar(ir.ScalarFloat)})

	w := newWriter(f.module, &Options{LangVersion: Version450})
	if got := w.getTypeName(outer); got != "float[2][3]" {
		t.Errorf("getTypeName = %q, want float[2][3]", got)
	}
	if got := w.getArraySuffix(runtime); got != "[]" {
		t.Errorf("getArraySuffix(runtime) = %q, want []", got)
	}
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		input float32
		want  string
	}{
		{1, "1.0"},
		{0.5, "0.5"},
		{-2, "-2.0"},
		{1e20, "1e+20"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := formatFloat(tt.input); got != tt.want {
				t.Errorf("formatFloat(%v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// =============================================================================
// Compile Tests
// =============================================================================

func TestCompile_NoEntryPoint(t *testing.T) {
	_, _, err := Compile(&ir.Module{Stage: ir.StageFragment}, DefaultOptions())
	if err == nil {
		t.Fatal("expected error for module without main")
	}
	if !strings.Contains(err.Error(), "no entry point") {
		t.Errorf("error = %v", err)
	}
}

func TestCompile_FragmentVulkan(t *testing.T) {
	f := texturedFragment()
	src, info := compile(t, f.module, Options{})

	if !strings.HasPrefix(src, "#version 450 core\n") {
		t.Errorf("missing version directive:\n%s", src)
	}
	assertContains(t, src,
		"layout(set = 0, binding = 3, std140) uniform ANGLEDefaultUniforms\n{\n    float scale;\n};",
		"layout(set = 1, binding = 0) uniform sampler2D tex;",
		"layout(location = 0) in vec2 uv;",
		"layout(location = 0) out vec4 color;",
		"void main()\n{\n    color = (texture(tex, uv) * scale);\n}",
	)
	assertNotContains(t, src, "precision highp")

	fragment := shader.MaskOf(shader.StageFragment)
	want := map[string]VariableInfo{
		"tex":                    {DescriptorSet: 1, Binding: 0, Location: -1, Index: -1, ActiveStages: fragment},
		"scale":                  {DescriptorSet: 0, Binding: 3, Location: -1, Index: -1, ActiveStages: fragment},
		DefaultUniformsBlockName: {DescriptorSet: 0, Binding: 3, Location: -1, Index: -1, ActiveStages: fragment},
		"uv":                     {DescriptorSet: -1, Binding: -1, Location: 0, Index: -1, ActiveStages: fragment},
	}
	for name, w := range want {
		if got, ok := info.Variables[name]; !ok || got != w {
			t.Errorf("Variables[%q] = %+v, want %+v", name, got, w)
		}
	}
	if info.RequiredVersion != Version450 {
		t.Errorf("RequiredVersion = %v", info.RequiredVersion)
	}
}

func TestCompile_FragmentES(t *testing.T) {
	f := texturedFragment()
	src, _ := compile(t, f.module, Options{LangVersion: VersionES310})

	assertContains(t, src,
		"#version 310 es\n",
		"precision highp float;",
		"precision highp int;",
		"layout(binding = 3, std140) uniform ANGLEDefaultUniforms\n{\n    highp float scale;\n};",
		"layout(binding = 0) uniform highp sampler2D tex;",
		"layout(location = 0) in highp vec2 uv;",
	)
	assertNotContains(t, src, "set = ")
}

func TestCompile_TexturesFollowExecutableOrder(t *testing.T) {
	f := newFixture(ir.StageFragment)
	a := f.global("a", f.sampler2D(), ir.QualifierUniform)
	b := f.global("b", f.sampler2D(), ir.QualifierUniform)
	color := f.global("color", f.vec(ir.Vec4), ir.QualifierOut)
	coord := f.b.Compose(f.vec(ir.Vec2), f.b.Float(0.5), f.b.Float(0.5))
	sa := f.b.Expr(ir.ExprImageSample{Function: ir.SampleTexture, Image: f.b.Global(a), Coordinate: coord})
	coord2 := f.b.Compose(f.vec(ir.Vec2), f.b.Float(0.5), f.b.Float(0.5))
	sb := f.b.Expr(ir.ExprImageSample{Function: ir.SampleTexture, Image: f.b.Global(b), Coordinate: coord2})
	f.body(ir.Store(f.b.Global(color), f.b.Add(sa, sb)))

	exe := &link.Executable{
		Uniforms: []link.LinkedUniform{
			{Variable: shader.Variable{Name: "b"}},
			{Variable: shader.Variable{Name: "a"}},
		},
		SamplerUniformRange: link.Range{Low: 0, High: 2},
	}
	src, info := compile(t, f.module, Options{Executable: exe})

	assertContains(t, src,
		"layout(set = 1, binding = 0) uniform sampler2D b;",
		"layout(set = 1, binding = 1) uniform sampler2D a;",
		"color = (texture(a, vec2(0.5, 0.5)) + texture(b, vec2(0.5, 0.5)));",
	)
	if info.Variables["a"].Binding != 1 || info.Variables["b"].Binding != 0 {
		t.Errorf("bindings a=%d b=%d", info.Variables["a"].Binding, info.Variables["b"].Binding)
	}
}

func TestCompile_InterfaceBlocks(t *testing.T) {
	f := newFixture(ir.StageFragment)
	lightsType := f.types.GetOrCreate("Lights", ir.StructType{Members: []ir.StructMember{
		{Name: "tint", Type: f.vec(ir.Vec4)},
		{Name: "transform", Type: f.types.Matrix(ir.Vec4, ir.Vec4), RowMajor: true},
	}})
	runtime := f.types.GetOrCreate("", ir.ArrayType{Base: f.scalar(ir.ScalarFloat)})
	dataType := f.types.GetOrCreate("Data", ir.StructType{Members: []ir.StructMember{
		{Name: "values", Type: runtime},
	}})

	lights := f.global("lights", lightsType, ir.QualifierUniform)
	f.module.GlobalVariables[lights].Block = true
	data := f.global("", dataType, ir.QualifierBuffer)
	f.module.GlobalVariables[data].Block = true
	f.module.GlobalVariables[data].Layout.Block = ir.LayoutStd430
	color := f.global("color", f.vec(ir.Vec4), ir.QualifierOut)

	values := f.b.Field(f.b.Global(data), 0)
	f.body(
		ir.Store(f.b.Global(color), f.b.Field(f.b.Global(lights), 0)),
		ir.Store(f.b.Index(values, f.b.Int(0)), f.b.Float(1)),
	)

	src, info := compile(t, f.module, Options{})
	assertContains(t, src,
		"layout(set = 2, binding = 0, std140) uniform Lights\n{\n    vec4 tint;\n    layout(row_major) mat4 transform;\n} lights;",
		"layout(set = 2, binding = 1, std430) buffer Data\n{\n    float values[];\n};",
		"color = lights.tint;",
		"values[0] = 1.0;",
	)
	assertNotContains(t, src, "struct Lights", "struct Data")

	if got := info.Variables["Lights"]; got.DescriptorSet != BufferSet || got.Binding != 0 {
		t.Errorf("Lights = %+v", got)
	}
	if got := info.Variables["Data"]; got.DescriptorSet != BufferSet || got.Binding != 1 {
		t.Errorf("Data = %+v", got)
	}
}

func TestCompile_ExplicitBlockBindingKept(t *testing.T) {
	f := newFixture(ir.StageVertex)
	blockType := f.types.GetOrCreate("ANGLEUniformBlock", ir.StructType{Members: []ir.StructMember{
		{Name: "viewport", Type: f.vec(ir.Vec4)},
	}})
	driver := f.global("ANGLEUniforms", blockType, ir.QualifierUniform)
	g := &f.module.GlobalVariables[driver]
	g.Block = true
	g.Layout.Set = 0
	g.Layout.Binding = 0
	pos := f.builtin("gl_Position", f.vec(ir.Vec4), ir.QualifierOut, ir.BuiltinPosition)
	f.body(ir.Store(f.b.Global(pos), f.b.Field(f.b.Global(driver), 0)))

	src, info := compile(t, f.module, Options{})
	assertContains(t, src,
		"layout(set = 0, binding = 0, std140) uniform ANGLEUniformBlock\n{\n    vec4 viewport;\n} ANGLEUniforms;",
		"gl_Position = ANGLEUniforms.viewport;",
	)
	if got := info.Variables["ANGLEUniforms"]; got.DescriptorSet != 0 || got.Binding != 0 {
		t.Errorf("ANGLEUniforms = %+v", got)
	}
}

func TestCompile_VertexInterface(t *testing.T) {
	build := func() *fixture {
		f := newFixture(ir.StageVertex)
		pos := f.global("pos", f.vec(ir.Vec4), ir.QualifierIn)
		uv := f.global("uv", f.vec(ir.Vec2), ir.QualifierOut)
		id := f.global("id", f.scalar(ir.ScalarSint), ir.QualifierOut)
		f.module.GlobalVariables[id].Interpolation = ir.InterpolationFlat
		vertexID := f.builtin("gl_VertexID", f.scalar(ir.ScalarSint), ir.QualifierIn, ir.BuiltinVertexIndex)
		position := f.builtin("gl_Position", f.vec(ir.Vec4), ir.QualifierOut, ir.BuiltinPosition)
		f.body(
			ir.Store(f.b.Global(position), f.b.Global(pos)),
			ir.Store(f.b.Global(uv), f.b.Swizzle(f.b.Global(pos), ir.SwizzleX, ir.SwizzleY)),
			ir.Store(f.b.Global(id), f.b.Global(vertexID)),
		)
		return f
	}
	exe := &link.Executable{ProgramInputs: []shader.Variable{{Name: "pos", Location: 3}}}

	t.Run("vulkan", func(t *testing.T) {
		src, info := compile(t, build().module, Options{Executable: exe})
		assertContains(t, src,
			"layout(location = 3) in vec4 pos;",
			"layout(location = 0) flat out int id;",
			"layout(location = 1) out vec2 uv;",
			"gl_Position = pos;",
			"uv = pos.xy;",
			"id = gl_VertexIndex;",
		)
		assertNotContains(t, src, "in int gl_VertexIndex", "out vec4 gl_Position")
		if got := info.Variables["pos"].Location; got != 3 {
			t.Errorf("pos location = %d, want 3", got)
		}
	})

	t.Run("es", func(t *testing.T) {
		src, _ := compile(t, build().module, Options{LangVersion: VersionES310, Executable: exe})
		assertContains(t, src, "id = gl_VertexID;")
	})

	t.Run("pinned varyings", func(t *testing.T) {
		src, info := compile(t, build().module, Options{VaryingLocations: map[string]int{"uv": 5}})
		assertContains(t, src,
			"layout(location = 0) in vec4 pos;",
			"layout(location = 5) out vec2 uv;",
			"layout(location = 6) flat out int id;",
		)
		if got := info.Variables["id"].Location; got != 6 {
			t.Errorf("id location = %d, want 6", got)
		}
	})
}

func TestCompile_FragmentOutputs(t *testing.T) {
	t.Run("dual source index", func(t *testing.T) {
		f := newFixture(ir.StageFragment)
		c0 := f.global("c0", f.vec(ir.Vec4), ir.QualifierOut)
		c1 := f.global("c1", f.vec(ir.Vec4), ir.QualifierOut)
		f.module.GlobalVariables[c0].Layout.Location = 0
		f.module.GlobalVariables[c1].Layout.Location = 0
		f.module.GlobalVariables[c1].Layout.Index = 1
		one := f.b.Compose(f.vec(ir.Vec4), f.b.Float(1), f.b.Float(1), f.b.Float(1), f.b.Float(1))
		f.body(ir.Store(f.b.Global(c0), one), ir.Store(f.b.Global(c1), one))

		src, info := compile(t, f.module, Options{})
		assertContains(t, src,
			"layout(location = 0) out vec4 c0;",
			"layout(location = 0, index = 1) out vec4 c1;",
		)
		if got := info.Variables["c1"].Index; got != 1 {
			t.Errorf("c1 index = %d, want 1", got)
		}
	})

	t.Run("webgl frag color", func(t *testing.T) {
		f := newFixture(ir.StageFragment)
		fc := f.builtin("gl_FragColor", f.vec(ir.Vec4), ir.QualifierOut, ir.BuiltinFragColor)
		one := f.b.Compose(f.vec(ir.Vec4), f.b.Float(1), f.b.Float(0), f.b.Float(0), f.b.Float(1))
		f.body(ir.Store(f.b.Global(fc), one))

		src, _ := compile(t, f.module, Options{LangVersion: VersionES310})
		assertContains(t, src,
			"layout(location = 0) out highp vec4 webgl_FragColor;",
			"webgl_FragColor = vec4(1.0, 0.0, 0.0, 1.0);",
		)
	})
}

func TestCompile_DeclarationSpacing(t *testing.T) {
	build := func() *fixture {
		f := texturedFragment()
		bias := f.global("bias", f.scalar(ir.ScalarFloat), ir.QualifierGlobal)
		f.body(append(f.b.Function().Body, ir.Store(f.b.Global(bias), f.b.Float(0.5)))...)
		return f
	}

	tests := []struct {
		name    string
		version Version
		want    []string
	}{
		{"vulkan", Version450, []string{
			"    float scale;\n",
			"layout(location = 0) in vec2 uv;",
			"layout(location = 0) out vec4 color;",
			"\nfloat bias;",
		}},
		{"es", VersionES310, []string{
			"    highp float scale;\n",
			"layout(location = 0) in highp vec2 uv;",
			"layout(location = 0) out highp vec4 color;",
			"\nhighp float bias;",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, _ := compile(t, build().module, Options{LangVersion: tt.version})
			assertContains(t, src, tt.want...)
			assertNotContains(t, src, "vec2uv", "vec4color", "floatscale", "floatbias")
		})
	}
}

func TestCompile_Compute(t *testing.T) {
	f := newFixture(ir.StageCompute)
	f.module.Workgroup = [3]uint32{8, 4, 0}
	src, _ := compile(t, f.module, Options{})
	assertContains(t, src, "layout(local_size_x = 8, local_size_y = 4, local_size_z = 1) in;")
}

func TestCompile_Constants(t *testing.T) {
	build := func() *fixture {
		f := newFixture(ir.StageFragment)
		spec := f.global("ANGLELineRasterEmulation", f.scalar(ir.ScalarBool), ir.QualifierSpecConstant)
		f.module.GlobalVariables[spec].Layout.ConstantID = 0
		f.module.GlobalVariables[spec].Init = ir.LiteralBool(false)
		k := f.global("kScale", f.scalar(ir.ScalarUint), ir.QualifierConst)
		f.module.GlobalVariables[k].Init = ir.LiteralU32(7)
		return f
	}

	src, _ := compile(t, build().module, Options{})
	assertContains(t, src,
		"layout(constant_id = 0) const bool ANGLELineRasterEmulation = false;",
		"const uint kScale = 7u;",
	)

	src, _ = compile(t, build().module, Options{LangVersion: VersionES320})
	assertContains(t, src, "const bool ANGLELineRasterEmulation = false;")
	assertNotContains(t, src, "constant_id")

	f := build()
	f.module.GlobalVariables[1].Init = nil
	if _, _, err := Compile(f.module, Options{}); err == nil {
		t.Error("expected error for constant without initializer")
	}
}

func TestCompile_FunctionsAndStructs(t *testing.T) {
	f := newFixture(ir.StageFragment)
	f32 := f.scalar(ir.ScalarFloat)
	lightType := f.types.GetOrCreate("Light", ir.StructType{Members: []ir.StructMember{
		{Name: "dir", Type: f.vec(ir.Vec3)},
		{Name: "power", Type: f32},
	}})
	f.types.GetOrCreate("Unused", ir.StructType{Members: []ir.StructMember{{Name: "x", Type: f32}}})
	light := f.global("light", lightType, ir.QualifierGlobal)
	color := f.global("color", f.vec(ir.Vec4), ir.QualifierOut)

	helper := f.module.AddFunction(ir.Function{
		Name:      "scale2",
		Arguments: []ir.FunctionArgument{{Name: "x", Type: f32}},
		Result:    &f32,
	})
	hb := ir.NewBuilder(f.module, helper, f.types)
	doubled := hb.Mul(hb.Argument(0), hb.Float(2))
	hb.Function().Body = ir.Block{ir.Return(&doubled)}
	f.module.AddFunction(ir.Function{Name: "unused"})

	tmp := f.b.NewLocal("tmp", f32)
	power := f.b.Field(f.b.Global(light), 1)
	f.body(
		ir.Store(f.b.Local(tmp), f.b.Call(helper, power)),
		ir.Store(f.b.Global(color), f.b.Compose(f.vec(ir.Vec4), f.b.Local(tmp), f.b.Local(tmp), f.b.Local(tmp), f.b.Local(tmp))),
	)

	src, _ := compile(t, f.module, Options{})
	assertContains(t, src,
		"struct Light\n{\n    vec3 dir;\n    float power;\n};",
		"Light light;",
		"float scale2(float x)\n{\n    return (x * 2.0);\n}",
		"void main()\n{\n    float tmp;\n    tmp = scale2(light.power);\n    color = vec4(tmp, tmp, tmp, tmp);\n}",
	)
	assertNotContains(t, src, "struct Unused", "unused(")
	if strings.Index(src, "float scale2(") > strings.Index(src, "void main()") {
		t.Error("helper must precede main")
	}
}

func TestCompile_ControlFlow(t *testing.T) {
	f := newFixture(ir.StageFragment)
	i32 := f.scalar(ir.ScalarSint)
	f32 := f.scalar(ir.ScalarFloat)
	i := f.b.NewLocal("i", i32)
	x := f.b.NewLocal("x", f32)

	cond := f.b.Binary(ir.BinaryGreater, f.b.Local(i), f.b.Int(3))
	loop := ir.Statement{Kind: ir.StmtLoop{Body: ir.Block{
		ir.If(cond, ir.Block{{Kind: ir.StmtBreak{}}}, nil),
		ir.Store(f.b.Local(i), f.b.Add(f.b.Local(i), f.b.Int(1))),
		{Kind: ir.StmtContinue{}},
	}}}
	f.body(
		ir.Store(f.b.Local(i), f.b.Binary(ir.BinaryModulo, f.b.Int(7), f.b.Int(4))),
		ir.Store(f.b.Local(x), f.b.Binary(ir.BinaryModulo, f.b.Float(7), f.b.Float(4))),
		loop,
		ir.If(f.b.Binary(ir.BinaryLess, f.b.Local(x), f.b.Float(0)), ir.Block{ir.Kill()}, ir.Block{ir.Return(nil)}),
	)

	src, _ := compile(t, f.module, Options{})
	assertContains(t, src,
		"i = (7 % 4);",
		"x = mod(7.0, 4.0);",
		"    while (true)\n    {\n        if ((i > 3))\n        {\n            break;\n        }\n        i = (i + 1);\n        continue;\n    }",
		"    if ((x < 0.0))\n    {\n        discard;\n    }\n    else\n    {\n        return;\n    }",
	)
}

func TestCompile_Placeholders(t *testing.T) {
	f := newFixture(ir.StageVertex)
	f.body(
		ir.Statement{Kind: ir.StmtPlaceholder{Name: "capture"}},
		ir.Statement{Kind: ir.StmtPlaceholder{Name: "other"}},
	)
	src, _ := compile(t, f.module, Options{Placeholders: map[string]string{"capture": "a = 1;\nb = 2;\n"}})
	assertContains(t, src,
		"    a = 1;\n    b = 2;\n",
		"    // other\n",
	)
}

func TestCompile_PlaceholderHelpers(t *testing.T) {
	f := newFixture(ir.StageVertex)
	i32 := f.scalar(ir.ScalarSint)
	helper := f.module.AddFunction(ir.Function{Name: "captureOffset", Result: &i32})
	hb := ir.NewBuilder(f.module, helper, f.types)
	one := hb.Int(1)
	hb.Function().Body = ir.Block{ir.Return(&one)}
	f.module.AddFunction(ir.Function{Name: "unused"})

	f.body(ir.Statement{Kind: ir.StmtPlaceholder{Name: "capture"}})
	src, _ := compile(t, f.module, Options{
		Placeholders: map[string]string{"capture": "out0.data[captureOffset()] = 1.0;"},
		Declarations: "layout(set = 0, binding = 5, std430) buffer Out0 { float data[]; } out0;",
	})
	assertContains(t, src,
		"int captureOffset()",
		"layout(set = 0, binding = 5, std430) buffer Out0 { float data[]; } out0;\n",
		"    out0.data[captureOffset()] = 1.0;\n",
	)
	assertNotContains(t, src, "unused")
	if strings.Index(src, "buffer Out0") > strings.Index(src, "int captureOffset()") {
		t.Error("declarations must precede functions")
	}
}

func TestCompile_KeywordNames(t *testing.T) {
	f := newFixture(ir.StageFragment)
	in := f.global("texture", f.vec(ir.Vec4), ir.QualifierIn)
	out := f.global("output", f.vec(ir.Vec4), ir.QualifierOut)
	f.body(ir.Store(f.b.Global(out), f.b.Global(in)))

	src, info := compile(t, f.module, Options{})
	assertContains(t, src,
		"in vec4 _utexture;",
		"out vec4 _uoutput;",
		"_uoutput = _utexture;",
	)
	if _, ok := info.Variables["texture"]; !ok {
		t.Error("reflection must use the source name")
	}
}

func TestCompile_Errors(t *testing.T) {
	t.Run("depth range under vulkan", func(t *testing.T) {
		f := newFixture(ir.StageFragment)
		f32 := f.scalar(ir.ScalarFloat)
		params := f.types.GetOrCreate("gl_DepthRangeParameters", ir.StructType{Members: []ir.StructMember{
			{Name: "near", Type: f32}, {Name: "far", Type: f32}, {Name: "diff", Type: f32},
		}})
		dr := f.builtin("gl_DepthRange", params, ir.QualifierUniform, ir.BuiltinDepthRange)
		x := f.b.NewLocal("x", f32)
		f.body(ir.Store(f.b.Local(x), f.b.Field(f.b.Global(dr), 0)))

		_, _, err := Compile(f.module, Options{})
		if err == nil || !strings.Contains(err.Error(), "gl_DepthRange") {
			t.Errorf("error = %v, want gl_DepthRange error", err)
		}
	})

	t.Run("atomic counter under vulkan", func(t *testing.T) {
		f := newFixture(ir.StageCompute)
		f.global("counter", f.types.GetOrCreate("", ir.AtomicCounterType{}), ir.QualifierUniform)
		_, _, err := Compile(f.module, Options{})
		if err == nil || !strings.Contains(err.Error(), `atomic counter "counter"`) {
			t.Errorf("error = %v", err)
		}
	})

	t.Run("atomic counter under es", func(t *testing.T) {
		f := newFixture(ir.StageCompute)
		c := f.global("counter", f.types.GetOrCreate("", ir.AtomicCounterType{}), ir.QualifierUniform)
		f.module.GlobalVariables[c].Layout.Offset = 4
		src, _ := compile(t, f.module, Options{LangVersion: VersionES310})
		assertContains(t, src, "layout(binding = 0, offset = 4) uniform highp atomic_uint counter;")
	})

	t.Run("textureLod without level", func(t *testing.T) {
		f := newFixture(ir.StageFragment)
		tex := f.global("tex", f.sampler2D(), ir.QualifierUniform)
		color := f.global("color", f.vec(ir.Vec4), ir.QualifierOut)
		coord := f.b.Compose(f.vec(ir.Vec2), f.b.Float(0), f.b.Float(0))
		s := f.b.Expr(ir.ExprImageSample{Function: ir.SampleTextureLod, Image: f.b.Global(tex), Coordinate: coord})
		f.body(ir.Store(f.b.Global(color), s))
		if _, _, err := Compile(f.module, Options{}); err == nil {
			t.Error("expected error")
		}
	})
}

func TestCompile_Extensions(t *testing.T) {
	f := newFixture(ir.StageFragment)
	mask := f.builtin("gl_SampleMaskIn", f.types.Array(f.scalar(ir.ScalarSint), 1), ir.QualifierIn, ir.BuiltinSampleMaskIn)
	x := f.b.NewLocal("x", f.scalar(ir.ScalarSint))
	f.body(ir.Store(f.b.Local(x), f.b.Field(f.b.Global(mask), 0)))

	src, info := compile(t, f.module, Options{LangVersion: VersionES310})
	assertContains(t, src, "#version 310 es\n#extension GL_OES_sample_variables : require\n", "x = gl_SampleMaskIn[0];")
	if len(info.UsedExtensions) != 1 {
		t.Errorf("UsedExtensions = %v", info.UsedExtensions)
	}

	src, info = compile(t, f.module, Options{})
	assertNotContains(t, src, "#extension")
	if len(info.UsedExtensions) != 0 {
		t.Errorf("UsedExtensions = %v", info.UsedExtensions)
	}
}

// =============================================================================
// Reflection Tests
// =============================================================================

func TestVaryingLocations(t *testing.T) {
	f := newFixture(ir.StageVertex)
	a := f.global("a", f.vec(ir.Vec4), ir.QualifierOut)
	f.module.GlobalVariables[a].Layout.Location = 0
	f.global("m", f.types.Matrix(ir.Vec2, ir.Vec2), ir.QualifierOut)
	f.global("b", f.vec(ir.Vec2), ir.QualifierOut)
	f.global("attr", f.vec(ir.Vec4), ir.QualifierIn)

	got := VaryingLocations(f.module)
	want := map[string]int{"a": 0, "b": 1, "m": 2}
	if len(got) != len(want) {
		t.Fatalf("VaryingLocations = %v, want %v", got, want)
	}
	for name, loc := range want {
		if got[name] != loc {
			t.Errorf("location of %s = %d, want %d", name, got[name], loc)
		}
	}
}

func TestProgramVaryingLocations(t *testing.T) {
	vs := newFixture(ir.StageVertex)
	vs.global("v_color", vs.vec(ir.Vec4), ir.QualifierOut)
	vs.global("v_uv", vs.vec(ir.Vec2), ir.QualifierOut)

	gs := newFixture(ir.StageGeometry)
	gs.global("v_color", gs.types.Array(gs.vec(ir.Vec4), 3), ir.QualifierIn)
	gs.global("v_uv", gs.types.Array(gs.vec(ir.Vec2), 3), ir.QualifierIn)
	gs.global("g_normal", gs.types.Matrix(ir.Vec3, ir.Vec3), ir.QualifierOut)
	gs.global("v_color", gs.vec(ir.Vec4), ir.QualifierOut)

	fs := newFixture(ir.StageFragment)
	fs.global("g_normal", fs.types.Matrix(ir.Vec3, ir.Vec3), ir.QualifierIn)
	fs.global("v_color", fs.vec(ir.Vec4), ir.QualifierIn)
	pinned := fs.global("f_extra", fs.vec(ir.Vec4), ir.QualifierIn)
	fs.module.GlobalVariables[pinned].Layout.Location = 1

	got := ProgramVaryingLocations(vs.module, gs.module, nil, fs.module)
	want := map[string]int{"f_extra": 1, "g_normal": 2, "v_color": 0, "v_uv": 5}
	if len(got) != len(want) {
		t.Fatalf("ProgramVaryingLocations = %v, want %v", got, want)
	}
	for name, loc := range want {
		if got[name] != loc {
			t.Errorf("location of %s = %d, want %d", name, got[name], loc)
		}
	}
}

func TestMergeVariables(t *testing.T) {
	vs := shader.MaskOf(shader.StageVertex)
	fs := shader.MaskOf(shader.StageFragment)
	dst := map[string]VariableInfo{
		"tex": {DescriptorSet: 1, Binding: 0, Location: -1, Index: -1, ActiveStages: vs},
	}
	MergeVariables(dst, map[string]VariableInfo{
		"tex":  {DescriptorSet: 1, Binding: 0, Location: -1, Index: -1, ActiveStages: fs},
		"tex2": {DescriptorSet: 1, Binding: 1, Location: -1, Index: -1, ActiveStages: fs},
	})

	if got := dst["tex"].ActiveStages; got != vs|fs {
		t.Errorf("tex stages = %b, want %b", got, vs|fs)
	}
	if got := dst["tex2"].ActiveStages; got != fs {
		t.Errorf("tex2 stages = %b, want %b", got, fs)
	}
}
