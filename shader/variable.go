package shader

import (
	"github.com/gogpu/shaderlink/ir"
)

// Precision is a GLSL ES precision qualifier.
type Precision = ir.Precision

// Interpolation is a varying interpolation qualifier.
type Interpolation = ir.Interpolation

// BlockLayout is an interface block memory layout.
type BlockLayout = ir.BlockLayout

// Block layouts.
const (
	LayoutShared = ir.LayoutShared
	LayoutPacked = ir.LayoutPacked
	LayoutStd140 = ir.LayoutStd140
	LayoutStd430 = ir.LayoutStd430
)

// Variable is a shader variable as reported by the compiler: an attribute,
// varying, uniform, buffer variable or fragment output, possibly a struct
// with nested fields.
type Variable struct {
	Type       Type
	Precision  Precision
	Name       string
	MappedName string

	// ArraySizes lists array dimensions outermost first. A zero entry is an
	// unsized array.
	ArraySizes []uint32

	StaticUse bool
	Active    bool

	Fields           []Variable
	StructName       string
	IsRowMajorLayout bool

	// Layout qualifiers; -1 when not declared.
	Location int
	Binding  int
	Offset   int
	Index    int

	ImageUnitFormat uint32
	Readonly        bool
	Writeonly       bool

	Interpolation Interpolation
	IsInvariant   bool

	// Builtin marks gl_* variables.
	Builtin bool

	ActiveStages StageMask

	// ParentArrayIndex is the flattened outer index of an innermost array
	// split off an array of arrays, or -1.
	ParentArrayIndex int

	TexelFetchStaticUse bool
}

// NewVariable returns a variable with unset layout qualifiers.
func NewVariable(t Type, name string, arraySizes ...uint32) Variable {
	return Variable{
		Type:             t,
		Name:             name,
		MappedName:       name,
		ArraySizes:       arraySizes,
		Location:         -1,
		Binding:          -1,
		Offset:           -1,
		Index:            -1,
		ParentArrayIndex: -1,
	}
}

// IsArray reports whether the variable has at least one array dimension.
func (v *Variable) IsArray() bool {
	return len(v.ArraySizes) > 0
}

// IsArrayOfArrays reports whether the variable has more than one array
// dimension.
func (v *Variable) IsArrayOfArrays() bool {
	return len(v.ArraySizes) > 1
}

// IsStruct reports whether the variable has fields.
func (v *Variable) IsStruct() bool {
	return len(v.Fields) > 0
}

// IsBuiltIn reports whether the variable is a gl_* builtin.
func (v *Variable) IsBuiltIn() bool {
	return v.Builtin || IsBuiltinName(v.Name)
}

// OutermostArraySize returns the outermost array size, or 0.
func (v *Variable) OutermostArraySize() uint32 {
	if len(v.ArraySizes) == 0 {
		return 0
	}
	return v.ArraySizes[0]
}

// ArraySizeProduct returns the product of all array sizes, or 1 for
// non-arrays.
func (v *Variable) ArraySizeProduct() uint32 {
	product := uint32(1)
	for _, s := range v.ArraySizes {
		product *= max(s, 1)
	}
	return product
}

// InnerArraySizeProduct returns the product of all but the outermost array
// size.
func (v *Variable) InnerArraySizeProduct() uint32 {
	product := uint32(1)
	for i := 1; i < len(v.ArraySizes); i++ {
		product *= max(v.ArraySizes[i], 1)
	}
	return product
}

// ElementCount returns the number of basic elements: the array size product
// for arrays, otherwise 1.
func (v *Variable) ElementCount() int {
	return int(v.ArraySizeProduct())
}

// RegisterCount returns the number of attribute registers the variable
// occupies.
func (v *Variable) RegisterCount() int {
	return v.Type.RegisterCount() * v.ElementCount()
}

// ComponentCount returns the number of scalar components across all
// elements.
func (v *Variable) ComponentCount() int {
	return v.Type.ComponentCount() * v.ElementCount()
}

// IndexIntoArray removes the outermost array dimension and folds index into
// ParentArrayIndex.
func (v *Variable) IndexIntoArray(index uint32) {
	if len(v.ArraySizes) == 0 {
		return
	}
	v.ParentArrayIndex = max(v.ParentArrayIndex, 0)*int(v.ArraySizes[0]) + int(index)
	v.ArraySizes = v.ArraySizes[1:]
	if len(v.ArraySizes) == 0 {
		v.ArraySizes = nil
	}
}

// Clone returns a deep copy of v.
func (v *Variable) Clone() Variable {
	out := *v
	if v.ArraySizes != nil {
		out.ArraySizes = append([]uint32(nil), v.ArraySizes...)
	}
	if v.Fields != nil {
		out.Fields = make([]Variable, len(v.Fields))
		for i := range v.Fields {
			out.Fields[i] = v.Fields[i].Clone()
		}
	}
	return out
}

// FindField returns the field called name.
func (v *Variable) FindField(name string) (*Variable, bool) {
	for i := range v.Fields {
		if v.Fields[i].Name == name {
			return &v.Fields[i], true
		}
	}
	return nil, false
}

// InterfaceBlock is a uniform or shader storage block.
type InterfaceBlock struct {
	Name         string
	MappedName   string
	InstanceName string

	// ArraySize is 0 for a non-array block.
	ArraySize uint32

	Layout           BlockLayout
	IsRowMajorLayout bool
	Binding          int
	StaticUse        bool
	Active           bool
	Readonly         bool

	// IsStorage marks a shader storage block.
	IsStorage bool

	Fields       []Variable
	ActiveStages StageMask
}

// IsArray reports whether the block is an array of blocks.
func (b *InterfaceBlock) IsArray() bool {
	return b.ArraySize > 0
}

// ElementCount returns the number of block instances.
func (b *InterfaceBlock) ElementCount() int {
	return int(max(b.ArraySize, 1))
}

// FieldPrefix returns the prefix prepended to member names in reflection:
// "Block." for blocks with an instance name, "" otherwise.
func (b *InterfaceBlock) FieldPrefix() string {
	if b.InstanceName == "" {
		return ""
	}
	return b.Name + "."
}

// TypeName returns "uniform block" or "shader storage block".
func (b *InterfaceBlock) TypeName() string {
	if b.IsStorage {
		return "shader storage block"
	}
	return "uniform block"
}
