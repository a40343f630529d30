package shader

import (
	"fmt"

	"github.com/gogpu/shaderlink/ir"
)

// PrimitiveMode is a geometry shader input or output primitive.
type PrimitiveMode uint8

const (
	PrimitiveNone PrimitiveMode = iota
	PrimitivePoints
	PrimitiveLines
	PrimitiveLinesAdjacency
	PrimitiveTriangles
	PrimitiveTrianglesAdjacency
	PrimitiveLineStrip
	PrimitiveTriangleStrip
)

// Shader is one compiled shader stage attached to a program.
type Shader struct {
	Stage    Stage
	Version  int
	Compiled bool
	Source   string

	// AST is the compiled tree. Rewrite passes mutate it in place; callers
	// that link a shader more than once translate a clone.
	AST *ir.Module

	Attributes     []Variable
	InputVaryings  []Variable
	OutputVaryings []Variable
	Uniforms       []Variable
	UniformBlocks  []InterfaceBlock
	StorageBlocks  []InterfaceBlock
	Outputs        []Variable

	// WorkGroupSize is the compute local size; zero entries are undeclared.
	WorkGroupSize [3]int

	GeometryInput       PrimitiveMode
	GeometryOutput      PrimitiveMode
	GeometryMaxVertices int // -1 when undeclared
	GeometryInvocations int

	EarlyFragmentTests bool
}

// HasWorkGroupSize reports whether a compute local size was declared.
func (s *Shader) HasWorkGroupSize() bool {
	return s.WorkGroupSize[0] > 0 && s.WorkGroupSize[1] > 0 && s.WorkGroupSize[2] > 0
}

// Reflect builds a Shader from a compiled AST, deriving the variable lists
// from the module's globals. A global is statically used when main can reach
// a reference to it.
func Reflect(module *ir.Module) (*Shader, error) {
	if module == nil {
		return nil, fmt.Errorf("shader: nil module")
	}
	if module.Main() == nil {
		return nil, fmt.Errorf("shader: module has no entry point")
	}
	s := &Shader{
		Stage:               module.Stage,
		Version:             module.Version,
		Compiled:            true,
		AST:                 module,
		GeometryMaxVertices: -1,
	}
	if module.Stage == StageCompute {
		for i, n := range module.Workgroup {
			s.WorkGroupSize[i] = int(n)
		}
	}

	for i := range module.GlobalVariables {
		handle := ir.GlobalVariableHandle(i)
		g := &module.GlobalVariables[i]
		if g.Removed {
			continue
		}
		used := module.UsesGlobal(handle)

		if g.Block {
			block, err := reflectBlock(module, g)
			if err != nil {
				return nil, err
			}
			block.StaticUse = used
			block.Active = used
			markUse(block.Fields, used)
			if used {
				block.ActiveStages = MaskOf(s.Stage)
			}
			if g.Qualifier == ir.QualifierBuffer {
				s.StorageBlocks = append(s.StorageBlocks, block)
			} else {
				s.UniformBlocks = append(s.UniformBlocks, block)
			}
			continue
		}

		var list *[]Variable
		switch {
		case g.Qualifier == ir.QualifierUniform:
			list = &s.Uniforms
		case g.Qualifier == ir.QualifierIn && s.Stage == StageVertex:
			list = &s.Attributes
		case g.Qualifier == ir.QualifierIn:
			list = &s.InputVaryings
		case g.Qualifier == ir.QualifierOut && s.Stage == StageFragment:
			list = &s.Outputs
		case g.Qualifier == ir.QualifierOut:
			list = &s.OutputVaryings
		default:
			continue
		}
		v, err := reflectVariable(module, g.Name, g.Type)
		if err != nil {
			return nil, err
		}
		v.Precision = g.Precision
		v.Interpolation = g.Interpolation
		v.IsInvariant = g.Invariant
		v.Builtin = g.Builtin != ir.BuiltinNone
		v.Location = g.Layout.Location
		v.Binding = g.Layout.Binding
		v.Offset = g.Layout.Offset
		v.Index = g.Layout.Index
		v.StaticUse = used
		v.Active = used
		markUse(v.Fields, used)
		if used {
			v.ActiveStages = MaskOf(s.Stage)
		}
		*list = append(*list, v)
	}
	return s, nil
}

func markUse(fields []Variable, used bool) {
	for i := range fields {
		fields[i].StaticUse = used
		fields[i].Active = used
		markUse(fields[i].Fields, used)
	}
}

func reflectVariable(module *ir.Module, name string, h ir.TypeHandle) (Variable, error) {
	if int(h) >= len(module.Types) {
		return Variable{}, fmt.Errorf("shader: %s: invalid type handle %d", name, h)
	}
	v := NewVariable(TypeNone, name)
	inner := module.Types[h].Inner
	for {
		arr, ok := inner.(ir.ArrayType)
		if !ok {
			break
		}
		v.ArraySizes = append(v.ArraySizes, arr.Size)
		h = arr.Base
		inner = module.Types[h].Inner
	}

	v.Type = TypeOf(module, h)
	if st, ok := inner.(ir.StructType); ok {
		v.StructName = module.Types[h].Name
		for _, m := range st.Members {
			field, err := reflectVariable(module, m.Name, m.Type)
			if err != nil {
				return Variable{}, err
			}
			field.IsRowMajorLayout = m.RowMajor
			v.Fields = append(v.Fields, field)
		}
	}
	if v.Type == TypeNone {
		return Variable{}, fmt.Errorf("shader: %s: unsupported type %T", name, inner)
	}
	return v, nil
}

func reflectBlock(module *ir.Module, g *ir.GlobalVariable) (InterfaceBlock, error) {
	h := g.Type
	var arraySize uint32
	if arr, ok := module.Types[h].Inner.(ir.ArrayType); ok {
		arraySize = arr.Size
		h = arr.Base
	}
	st, ok := module.Types[h].Inner.(ir.StructType)
	if !ok {
		return InterfaceBlock{}, fmt.Errorf("shader: block %q is not a struct", g.Name)
	}
	block := InterfaceBlock{
		Name:         module.Types[h].Name,
		MappedName:   module.Types[h].Name,
		InstanceName: g.Name,
		ArraySize:    arraySize,
		Layout:       g.Layout.Block,
		Binding:      g.Layout.Binding,
		IsStorage:    g.Qualifier == ir.QualifierBuffer,
	}
	for _, m := range st.Members {
		field, err := reflectVariable(module, m.Name, m.Type)
		if err != nil {
			return InterfaceBlock{}, err
		}
		field.IsRowMajorLayout = m.RowMajor
		field.Precision = g.Precision
		block.Fields = append(block.Fields, field)
	}
	return block, nil
}
