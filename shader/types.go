package shader

import (
	"github.com/gogpu/shaderlink/ir"
)

// Type enumerates the basic GLSL ES variable types exposed through
// reflection.
type Type uint8

const (
	TypeNone Type = iota
	TypeStruct

	TypeFloat
	TypeFloatVec2
	TypeFloatVec3
	TypeFloatVec4
	TypeInt
	TypeIntVec2
	TypeIntVec3
	TypeIntVec4
	TypeUint
	TypeUintVec2
	TypeUintVec3
	TypeUintVec4
	TypeBool
	TypeBoolVec2
	TypeBoolVec3
	TypeBoolVec4

	TypeFloatMat2
	TypeFloatMat3
	TypeFloatMat4
	TypeFloatMat2x3
	TypeFloatMat2x4
	TypeFloatMat3x2
	TypeFloatMat3x4
	TypeFloatMat4x2
	TypeFloatMat4x3

	TypeSampler2D
	TypeSampler3D
	TypeSamplerCube
	TypeSampler2DArray
	TypeSamplerExternalOES
	TypeSampler2DShadow
	TypeSamplerCubeShadow
	TypeSampler2DArrayShadow
	TypeIntSampler2D
	TypeIntSampler3D
	TypeIntSamplerCube
	TypeIntSampler2DArray
	TypeUintSampler2D
	TypeUintSampler3D
	TypeUintSamplerCube
	TypeUintSampler2DArray

	TypeImage2D
	TypeImage3D
	TypeImageCube
	TypeImage2DArray
	TypeIntImage2D
	TypeIntImage3D
	TypeIntImageCube
	TypeIntImage2DArray
	TypeUintImage2D
	TypeUintImage3D
	TypeUintImageCube
	TypeUintImage2DArray

	TypeAtomicCounter

	typeCount
)

// ComponentType is the scalar kind of a type's components.
type ComponentType uint8

const (
	ComponentNone ComponentType = iota
	ComponentFloat
	ComponentInt
	ComponentUint
	ComponentBool
)

// String returns the component type name.
func (c ComponentType) String() string {
	switch c {
	case ComponentFloat:
		return "float"
	case ComponentInt:
		return "int"
	case ComponentUint:
		return "uint"
	case ComponentBool:
		return "bool"
	default:
		return "none"
	}
}

// TextureType is the texture target a sampler or image binds to.
type TextureType uint8

const (
	TextureNone TextureType = iota
	Texture2D
	Texture3D
	TextureCube
	Texture2DArray
	TextureExternal
)

// SamplerFormat is the format class a sampler returns.
type SamplerFormat uint8

const (
	SamplerFormatFloat SamplerFormat = iota
	SamplerFormatSigned
	SamplerFormatUnsigned
	SamplerFormatShadow
)

type opaqueClass uint8

const (
	opaqueNone opaqueClass = iota
	opaqueSampler
	opaqueImage
	opaqueAtomic
)

type typeInfo struct {
	name      string
	component ComponentType
	cols      int // 1 for scalars and vectors
	rows      int // components per column
	opaque    opaqueClass
	texture   TextureType
	format    SamplerFormat
}

var typeTable = [typeCount]typeInfo{
	TypeNone:   {name: "none"},
	TypeStruct: {name: "struct"},

	TypeFloat:     {"float", ComponentFloat, 1, 1, opaqueNone, TextureNone, 0},
	TypeFloatVec2: {"vec2", ComponentFloat, 1, 2, opaqueNone, TextureNone, 0},
	TypeFloatVec3: {"vec3", ComponentFloat, 1, 3, opaqueNone, TextureNone, 0},
	TypeFloatVec4: {"vec4", ComponentFloat, 1, 4, opaqueNone, TextureNone, 0},
	TypeInt:       {"int", ComponentInt, 1, 1, opaqueNone, TextureNone, 0},
	TypeIntVec2:   {"ivec2", ComponentInt, 1, 2, opaqueNone, TextureNone, 0},
	TypeIntVec3:   {"ivec3", ComponentInt, 1, 3, opaqueNone, TextureNone, 0},
	TypeIntVec4:   {"ivec4", ComponentInt, 1, 4, opaqueNone, TextureNone, 0},
	TypeUint:      {"uint", ComponentUint, 1, 1, opaqueNone, TextureNone, 0},
	TypeUintVec2:  {"uvec2", ComponentUint, 1, 2, opaqueNone, TextureNone, 0},
	TypeUintVec3:  {"uvec3", ComponentUint, 1, 3, opaqueNone, TextureNone, 0},
	TypeUintVec4:  {"uvec4", ComponentUint, 1, 4, opaqueNone, TextureNone, 0},
	TypeBool:      {"bool", ComponentBool, 1, 1, opaqueNone, TextureNone, 0},
	TypeBoolVec2:  {"bvec2", ComponentBool, 1, 2, opaqueNone, TextureNone, 0},
	TypeBoolVec3:  {"bvec3", ComponentBool, 1, 3, opaqueNone, TextureNone, 0},
	TypeBoolVec4:  {"bvec4", ComponentBool, 1, 4, opaqueNone, TextureNone, 0},

	TypeFloatMat2:   {"mat2", ComponentFloat, 2, 2, opaqueNone, TextureNone, 0},
	TypeFloatMat3:   {"mat3", ComponentFloat, 3, 3, opaqueNone, TextureNone, 0},
	TypeFloatMat4:   {"mat4", ComponentFloat, 4, 4, opaqueNone, TextureNone, 0},
	TypeFloatMat2x3: {"mat2x3", ComponentFloat, 2, 3, opaqueNone, TextureNone, 0},
	TypeFloatMat2x4: {"mat2x4", ComponentFloat, 2, 4, opaqueNone, TextureNone, 0},
	TypeFloatMat3x2: {"mat3x2", ComponentFloat, 3, 2, opaqueNone, TextureNone, 0},
	TypeFloatMat3x4: {"mat3x4", ComponentFloat, 3, 4, opaqueNone, TextureNone, 0},
	TypeFloatMat4x2: {"mat4x2", ComponentFloat, 4, 2, opaqueNone, TextureNone, 0},
	TypeFloatMat4x3: {"mat4x3", ComponentFloat, 4, 3, opaqueNone, TextureNone, 0},

	TypeSampler2D:            {"sampler2D", ComponentFloat, 1, 1, opaqueSampler, Texture2D, SamplerFormatFloat},
	TypeSampler3D:            {"sampler3D", ComponentFloat, 1, 1, opaqueSampler, Texture3D, SamplerFormatFloat},
	TypeSamplerCube:          {"samplerCube", ComponentFloat, 1, 1, opaqueSampler, TextureCube, SamplerFormatFloat},
	TypeSampler2DArray:       {"sampler2DArray", ComponentFloat, 1, 1, opaqueSampler, Texture2DArray, SamplerFormatFloat},
	TypeSamplerExternalOES:   {"samplerExternalOES", ComponentFloat, 1, 1, opaqueSampler, TextureExternal, SamplerFormatFloat},
	TypeSampler2DShadow:      {"sampler2DShadow", ComponentFloat, 1, 1, opaqueSampler, Texture2D, SamplerFormatShadow},
	TypeSamplerCubeShadow:    {"samplerCubeShadow", ComponentFloat, 1, 1, opaqueSampler, TextureCube, SamplerFormatShadow},
	TypeSampler2DArrayShadow: {"sampler2DArrayShadow", ComponentFloat, 1, 1, opaqueSampler, Texture2DArray, SamplerFormatShadow},
	TypeIntSampler2D:         {"isampler2D", ComponentInt, 1, 1, opaqueSampler, Texture2D, SamplerFormatSigned},
	TypeIntSampler3D:         {"isampler3D", ComponentInt, 1, 1, opaqueSampler, Texture3D, SamplerFormatSigned},
	TypeIntSamplerCube:       {"isamplerCube", ComponentInt, 1, 1, opaqueSampler, TextureCube, SamplerFormatSigned},
	TypeIntSampler2DArray:    {"isampler2DArray", ComponentInt, 1, 1, opaqueSampler, Texture2DArray, SamplerFormatSigned},
	TypeUintSampler2D:        {"usampler2D", ComponentUint, 1, 1, opaqueSampler, Texture2D, SamplerFormatUnsigned},
	TypeUintSampler3D:        {"usampler3D", ComponentUint, 1, 1, opaqueSampler, Texture3D, SamplerFormatUnsigned},
	TypeUintSamplerCube:      {"usamplerCube", ComponentUint, 1, 1, opaqueSampler, TextureCube, SamplerFormatUnsigned},
	TypeUintSampler2DArray:   {"usampler2DArray", ComponentUint, 1, 1, opaqueSampler, Texture2DArray, SamplerFormatUnsigned},

	TypeImage2D:          {"image2D", ComponentFloat, 1, 1, opaqueImage, Texture2D, SamplerFormatFloat},
	TypeImage3D:          {"image3D", ComponentFloat, 1, 1, opaqueImage, Texture3D, SamplerFormatFloat},
	TypeImageCube:        {"imageCube", ComponentFloat, 1, 1, opaqueImage, TextureCube, SamplerFormatFloat},
	TypeImage2DArray:     {"image2DArray", ComponentFloat, 1, 1, opaqueImage, Texture2DArray, SamplerFormatFloat},
	TypeIntImage2D:       {"iimage2D", ComponentInt, 1, 1, opaqueImage, Texture2D, SamplerFormatSigned},
	TypeIntImage3D:       {"iimage3D", ComponentInt, 1, 1, opaqueImage, Texture3D, SamplerFormatSigned},
	TypeIntImageCube:     {"iimageCube", ComponentInt, 1, 1, opaqueImage, TextureCube, SamplerFormatSigned},
	TypeIntImage2DArray:  {"iimage2DArray", ComponentInt, 1, 1, opaqueImage, Texture2DArray, SamplerFormatSigned},
	TypeUintImage2D:      {"uimage2D", ComponentUint, 1, 1, opaqueImage, Texture2D, SamplerFormatUnsigned},
	TypeUintImage3D:      {"uimage3D", ComponentUint, 1, 1, opaqueImage, Texture3D, SamplerFormatUnsigned},
	TypeUintImageCube:    {"uimageCube", ComponentUint, 1, 1, opaqueImage, TextureCube, SamplerFormatUnsigned},
	TypeUintImage2DArray: {"uimage2DArray", ComponentUint, 1, 1, opaqueImage, Texture2DArray, SamplerFormatUnsigned},

	TypeAtomicCounter: {"atomic_uint", ComponentUint, 1, 1, opaqueAtomic, TextureNone, 0},
}

func (t Type) info() typeInfo {
	if t >= typeCount {
		return typeInfo{name: "unknown"}
	}
	return typeTable[t]
}

// String returns the GLSL spelling of the type.
func (t Type) String() string {
	return t.info().name
}

// ComponentType returns the scalar kind of the type's components.
func (t Type) ComponentType() ComponentType {
	if t.IsOpaque() {
		return ComponentNone
	}
	return t.info().component
}

// ComponentCount returns the number of scalar components (0 for opaque and
// struct types).
func (t Type) ComponentCount() int {
	info := t.info()
	if info.opaque != opaqueNone || info.rows == 0 {
		return 0
	}
	return info.cols * info.rows
}

// RowCount returns the number of components per column.
func (t Type) RowCount() int {
	return t.info().rows
}

// ColumnCount returns the number of matrix columns (1 for non-matrices).
func (t Type) ColumnCount() int {
	return t.info().cols
}

// IsMatrix reports whether the type is a matrix.
func (t Type) IsMatrix() bool {
	return t.info().cols > 1
}

// IsSampler reports whether the type is a sampler.
func (t Type) IsSampler() bool {
	return t.info().opaque == opaqueSampler
}

// IsImage reports whether the type is an image.
func (t Type) IsImage() bool {
	return t.info().opaque == opaqueImage
}

// IsAtomicCounter reports whether the type is atomic_uint.
func (t Type) IsAtomicCounter() bool {
	return t.info().opaque == opaqueAtomic
}

// IsOpaque reports whether the type is a sampler, image or atomic counter.
func (t Type) IsOpaque() bool {
	return t.info().opaque != opaqueNone
}

// TextureType returns the texture target of a sampler or image type.
func (t Type) TextureType() TextureType {
	return t.info().texture
}

// SamplerFormat returns the format class of a sampler type.
func (t Type) SamplerFormat() SamplerFormat {
	return t.info().format
}

// RegisterCount returns the number of four-component vertex attribute
// registers one element of the type occupies, ceil(components/4) and at
// least one. A mat2 therefore takes one register where GLSL gives it a
// location per column.
func (t Type) RegisterCount() int {
	return max(1, (t.ComponentCount()+3)/4)
}

// ByteSize returns the tightly packed size in bytes of one element.
func (t Type) ByteSize() int {
	return t.ComponentCount() * 4
}

// TypeOf maps an AST type to its reflection type. Aggregates map to
// TypeStruct; arrays map to their element type.
//
//nolint:gocyclo,cyclop // One case per type family
func TypeOf(module *ir.Module, h ir.TypeHandle) Type {
	inner := module.Types[h].Inner
	for {
		arr, ok := inner.(ir.ArrayType)
		if !ok {
			break
		}
		inner = module.Types[arr.Base].Inner
	}
	return typeOfInner(inner)
}

func typeOfInner(inner ir.TypeInner) Type {
	switch t := inner.(type) {
	case ir.ScalarType:
		return vectorType(t.Kind, 1)
	case ir.VectorType:
		return vectorType(t.Scalar, int(t.Size))
	case ir.MatrixType:
		for typ := TypeFloatMat2; typ <= TypeFloatMat4x3; typ++ {
			if typ.ColumnCount() == int(t.Columns) && typ.RowCount() == int(t.Rows) {
				return typ
			}
		}
	case ir.StructType:
		return TypeStruct
	case ir.SamplerType:
		return samplerType(t)
	case ir.ImageType:
		return imageType(t)
	case ir.AtomicCounterType:
		return TypeAtomicCounter
	}
	return TypeNone
}

func vectorType(kind ir.ScalarKind, size int) Type {
	var base Type
	switch kind {
	case ir.ScalarFloat:
		base = TypeFloat
	case ir.ScalarSint:
		base = TypeInt
	case ir.ScalarUint:
		base = TypeUint
	case ir.ScalarBool:
		base = TypeBool
	default:
		return TypeNone
	}
	return base + Type(size-1)
}

func textureOfDim(dim ir.ImageDimension, arrayed bool) TextureType {
	switch dim {
	case ir.Dim3D:
		return Texture3D
	case ir.DimCube:
		return TextureCube
	case ir.DimExternal:
		return TextureExternal
	}
	if arrayed {
		return Texture2DArray
	}
	return Texture2D
}

func samplerType(s ir.SamplerType) Type {
	want := textureOfDim(s.Dim, s.Arrayed)
	format := SamplerFormatFloat
	switch {
	case s.Shadow:
		format = SamplerFormatShadow
	case s.Kind == ir.ScalarSint:
		format = SamplerFormatSigned
	case s.Kind == ir.ScalarUint:
		format = SamplerFormatUnsigned
	}
	for typ := TypeSampler2D; typ <= TypeUintSampler2DArray; typ++ {
		if typ.TextureType() == want && typ.SamplerFormat() == format {
			return typ
		}
	}
	return TypeNone
}

func imageType(img ir.ImageType) Type {
	want := textureOfDim(img.Dim, img.Arrayed)
	format := SamplerFormatFloat
	switch img.Kind {
	case ir.ScalarSint:
		format = SamplerFormatSigned
	case ir.ScalarUint:
		format = SamplerFormatUnsigned
	}
	for typ := TypeImage2D; typ <= TypeUintImage2DArray; typ++ {
		if typ.TextureType() == want && typ.SamplerFormat() == format {
			return typ
		}
	}
	return TypeNone
}

// ParseType returns the type spelled name ("vec4", "sampler2D", ...).
func ParseType(name string) (Type, bool) {
	for t := TypeStruct + 1; t < typeCount; t++ {
		if typeTable[t].name == name {
			return t, true
		}
	}
	return TypeNone, false
}

// IRType registers the AST type for t. Struct and none have no AST form.
func IRType(types *ir.TypeRegistry, t Type) (ir.TypeHandle, bool) {
	info := t.info()
	kind := scalarKindOf(info.component)
	switch {
	case t == TypeNone || t == TypeStruct || t >= typeCount:
		return 0, false
	case t.IsAtomicCounter():
		return types.GetOrCreate("", ir.AtomicCounterType{}), true
	case t.IsSampler():
		return types.GetOrCreate("", ir.SamplerType{
			Dim:     dimOfTexture(info.texture),
			Arrayed: info.texture == Texture2DArray,
			Shadow:  info.format == SamplerFormatShadow,
			Kind:    kind,
		}), true
	case t.IsImage():
		return types.GetOrCreate("", ir.ImageType{
			Dim:     dimOfTexture(info.texture),
			Arrayed: info.texture == Texture2DArray,
			Kind:    kind,
		}), true
	case t.IsMatrix():
		return types.Matrix(ir.VectorSize(info.cols), ir.VectorSize(info.rows)), true
	case info.rows == 1:
		return types.Scalar(kind), true
	default:
		return types.Vector(ir.VectorSize(info.rows), kind), true
	}
}

func scalarKindOf(c ComponentType) ir.ScalarKind {
	switch c {
	case ComponentInt:
		return ir.ScalarSint
	case ComponentUint:
		return ir.ScalarUint
	case ComponentBool:
		return ir.ScalarBool
	default:
		return ir.ScalarFloat
	}
}

func dimOfTexture(t TextureType) ir.ImageDimension {
	switch t {
	case Texture3D:
		return ir.Dim3D
	case TextureCube:
		return ir.DimCube
	case TextureExternal:
		return ir.DimExternal
	default:
		return ir.Dim2D
	}
}
