package shader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/shaderlink/ir"
)

// =============================================================================
// Type Tests
// =============================================================================

func TestType_Shape(t *testing.T) {
	tests := []struct {
		typ        Type
		name       string
		components int
		registers  int
		columns    int
		rows       int
	}{
		{TypeFloat, "float", 1, 1, 1, 1},
		{TypeFloatVec3, "vec3", 3, 1, 1, 3},
		{TypeIntVec4, "ivec4", 4, 1, 1, 4},
		{TypeBoolVec2, "bvec2", 2, 1, 1, 2},
		{TypeFloatMat2, "mat2", 4, 1, 2, 2},
		{TypeFloatMat3, "mat3", 9, 3, 3, 3},
		{TypeFloatMat4, "mat4", 16, 4, 4, 4},
		{TypeFloatMat2x4, "mat2x4", 8, 2, 2, 4},
		{TypeFloatMat4x2, "mat4x2", 8, 2, 4, 2},
		{TypeSampler2D, "sampler2D", 0, 1, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.typ.String())
			assert.Equal(t, tt.components, tt.typ.ComponentCount())
			assert.Equal(t, tt.registers, tt.typ.RegisterCount())
			assert.Equal(t, tt.columns, tt.typ.ColumnCount())
			assert.Equal(t, tt.rows, tt.typ.RowCount())
		})
	}
}

func TestType_Opaque(t *testing.T) {
	assert.True(t, TypeSampler2DArrayShadow.IsSampler())
	assert.Equal(t, SamplerFormatShadow, TypeSampler2DArrayShadow.SamplerFormat())
	assert.Equal(t, Texture2DArray, TypeSampler2DArrayShadow.TextureType())
	assert.True(t, TypeUintImage3D.IsImage())
	assert.True(t, TypeAtomicCounter.IsAtomicCounter())
	assert.True(t, TypeAtomicCounter.IsOpaque())
	assert.False(t, TypeFloatVec4.IsOpaque())
	assert.Equal(t, ComponentNone, TypeSampler2D.ComponentType())
	assert.Equal(t, ComponentUint, TypeUintVec2.ComponentType())
}

func TestTypeOf_RoundTripsThroughIR(t *testing.T) {
	m := &ir.Module{}
	types := ir.NewTypeRegistry(m)
	for typ := TypeFloat; typ < typeCount; typ++ {
		h, ok := IRType(types, typ)
		require.True(t, ok, "IRType(%s)", typ)
		assert.Equal(t, typ, TypeOf(m, h), "round trip of %s", typ)
	}
	_, ok := IRType(types, TypeStruct)
	assert.False(t, ok)
}

func TestParseType(t *testing.T) {
	typ, ok := ParseType("usampler2DArray")
	assert.True(t, ok)
	assert.Equal(t, TypeUintSampler2DArray, typ)

	_, ok = ParseType("struct")
	assert.False(t, ok)
	_, ok = ParseType("vec5")
	assert.False(t, ok)
}

// =============================================================================
// Name Tests
// =============================================================================

func TestParseResourceName(t *testing.T) {
	tests := []struct {
		in      string
		base    string
		indices []int
	}{
		{"u", "u", nil},
		{"u[0]", "u", []int{0}},
		{"u[2][3]", "u", []int{2, 3}},
		{"s.f[1]", "s.f", []int{1}},
		{"a[1].b", "a[1].b", nil},
		{"u[x]", "u", []int{InvalidIndex}},
		{"u[]", "u", []int{InvalidIndex}},
		{"u[-1]", "u", []int{InvalidIndex}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			base, indices := ParseResourceName(tt.in)
			assert.Equal(t, tt.base, base)
			assert.Equal(t, tt.indices, indices)
		})
	}
}

func TestStripLastArrayIndex(t *testing.T) {
	base, idx, ok := StripLastArrayIndex("colors[3]")
	assert.True(t, ok)
	assert.Equal(t, "colors", base)
	assert.Equal(t, 3, idx)

	base, _, ok = StripLastArrayIndex("colors")
	assert.False(t, ok)
	assert.Equal(t, "colors", base)

	assert.Equal(t, "v[0]", BaseElementName("v"))
	assert.Equal(t, "a", TopLevelName("a[1].b"))
	assert.Equal(t, "blk", TopLevelName("blk.x"))
}

// =============================================================================
// Variable Tests
// =============================================================================

func TestVariable_ArrayHelpers(t *testing.T) {
	v := NewVariable(TypeFloatMat3, "m", 2, 3)
	assert.True(t, v.IsArrayOfArrays())
	assert.Equal(t, uint32(6), v.ArraySizeProduct())
	assert.Equal(t, uint32(3), v.InnerArraySizeProduct())
	assert.Equal(t, 18, v.RegisterCount())

	inner := v.Clone()
	inner.IndexIntoArray(1)
	assert.Equal(t, []uint32{3}, inner.ArraySizes)
	assert.Equal(t, 1, inner.ParentArrayIndex)
	assert.Equal(t, []uint32{2, 3}, v.ArraySizes, "clone must not alias")
}

func TestStageMask(t *testing.T) {
	m := MaskOf(StageVertex, StageFragment)
	assert.True(t, m.Has(StageFragment))
	assert.False(t, m.Has(StageGeometry))
	assert.Equal(t, 2, m.Count())
	first, _ := m.First()
	last, _ := m.Last()
	assert.Equal(t, StageVertex, first)
	assert.Equal(t, StageFragment, last)
	assert.Equal(t, "Vertex|Fragment", m.String())
	assert.Equal(t, "none", StageMask(0).String())
}

// =============================================================================
// Reflect Tests
// =============================================================================

func TestReflect(t *testing.T) {
	m := &ir.Module{Version: 300, Stage: ir.StageVertex, Functions: []ir.Function{{Name: "main"}}}
	types := ir.NewTypeRegistry(m)
	vec4 := types.Vector(ir.Vec4, ir.ScalarFloat)
	mat4 := types.Matrix(ir.Vec4, ir.Vec4)
	light := types.GetOrCreate("Light", ir.StructType{Members: []ir.StructMember{
		{Name: "color", Type: vec4},
		{Name: "shadow", Type: types.GetOrCreate("", ir.SamplerType{Dim: ir.Dim2D, Shadow: true})},
	}})
	blockType := types.GetOrCreate("Matrices", ir.StructType{Members: []ir.StructMember{
		{Name: "mvp", Type: mat4, RowMajor: true},
	}})

	layout := ir.NoLayout()
	layout.Location = 2
	pos := m.AddGlobal(ir.GlobalVariable{Name: "a_position", Type: vec4, Qualifier: ir.QualifierIn, Layout: layout})
	m.AddGlobal(ir.GlobalVariable{Name: "a_unused", Type: vec4, Qualifier: ir.QualifierIn, Layout: ir.NoLayout()})
	m.AddGlobal(ir.GlobalVariable{Name: "lights", Type: types.Array(light, 2), Qualifier: ir.QualifierUniform, Layout: ir.NoLayout()})
	blk := m.AddGlobal(ir.GlobalVariable{Type: blockType, Qualifier: ir.QualifierUniform, Block: true, Layout: ir.NoLayout()})
	glPos := m.AddGlobal(ir.GlobalVariable{Name: "gl_Position", Type: vec4, Qualifier: ir.QualifierOut, Builtin: ir.BuiltinPosition, Layout: ir.NoLayout()})

	b := ir.NewBuilder(m, 0, types)
	b.Function().Body = ir.Block{
		ir.Store(b.Global(glPos), b.Mul(b.Field(b.Global(blk), 0), b.Global(pos))),
	}

	s, err := Reflect(m)
	require.NoError(t, err)
	assert.Equal(t, StageVertex, s.Stage)
	assert.True(t, s.Compiled)

	require.Len(t, s.Attributes, 2)
	assert.Equal(t, "a_position", s.Attributes[0].Name)
	assert.Equal(t, TypeFloatVec4, s.Attributes[0].Type)
	assert.Equal(t, 2, s.Attributes[0].Location)
	assert.True(t, s.Attributes[0].StaticUse)
	assert.False(t, s.Attributes[1].StaticUse)

	require.Len(t, s.Uniforms, 1)
	lights := s.Uniforms[0]
	assert.Equal(t, TypeStruct, lights.Type)
	assert.Equal(t, "Light", lights.StructName)
	assert.Equal(t, []uint32{2}, lights.ArraySizes)
	require.Len(t, lights.Fields, 2)
	assert.Equal(t, TypeSampler2DShadow, lights.Fields[1].Type)

	require.Len(t, s.UniformBlocks, 1)
	assert.Equal(t, "Matrices", s.UniformBlocks[0].Name)
	assert.Empty(t, s.UniformBlocks[0].InstanceName)
	assert.True(t, s.UniformBlocks[0].Fields[0].IsRowMajorLayout)
	assert.True(t, s.UniformBlocks[0].StaticUse)

	require.Len(t, s.OutputVaryings, 1)
	assert.True(t, s.OutputVaryings[0].IsBuiltIn())
}

func TestReflect_NoEntryPoint(t *testing.T) {
	_, err := Reflect(&ir.Module{})
	assert.Error(t, err)
	_, err = Reflect(nil)
	assert.Error(t, err)
}
