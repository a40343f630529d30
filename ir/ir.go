package ir

// Module represents a single compiled GLSL ES shader stage in AST form.
type Module struct {
	// Version is the GLSL ES version of the source (100, 300, 310, 320).
	Version int

	// Stage is the pipeline stage this module was compiled for.
	Stage ShaderStage

	// Types holds all type definitions
	Types []Type

	// GlobalVariables holds module-scope variables (the symbol table)
	GlobalVariables []GlobalVariable

	// Functions holds all function definitions
	Functions []Function

	// EntryPoint is the handle of main()
	EntryPoint FunctionHandle

	// Workgroup is the local size of a compute shader.
	Workgroup [3]uint32
}

// ShaderStage represents a shader stage.
type ShaderStage uint8

const (
	StageVertex ShaderStage = iota
	StageGeometry
	StageFragment
	StageCompute

	// StageCount is the number of shader stages.
	StageCount
)

// String returns the stage name used in link diagnostics.
func (s ShaderStage) String() string {
	switch s {
	case StageVertex:
		return "Vertex"
	case StageGeometry:
		return "Geometry"
	case StageFragment:
		return "Fragment"
	case StageCompute:
		return "Compute"
	default:
		return "Unknown"
	}
}

// Handle types for referencing AST objects
type (
	TypeHandle           uint32
	FunctionHandle       uint32
	GlobalVariableHandle uint32
	ExpressionHandle     uint32
)

// Type represents a type in the AST.
type Type struct {
	Name  string
	Inner TypeInner
}

// TypeInner represents the inner type kind.
type TypeInner interface {
	typeInner()
}

// ScalarType represents scalar types.
type ScalarType struct {
	Kind ScalarKind
}

func (ScalarType) typeInner() {}

// ScalarKind represents scalar type kinds.
type ScalarKind uint8

const (
	ScalarSint  ScalarKind = iota // Signed integer
	ScalarUint                    // Unsigned integer
	ScalarFloat                   // Floating point
	ScalarBool                    // Boolean
)

// VectorType represents vector types.
type VectorType struct {
	Size   VectorSize
	Scalar ScalarKind
}

func (VectorType) typeInner() {}

// VectorSize represents vector sizes.
type VectorSize uint8

const (
	Vec2 VectorSize = 2
	Vec3 VectorSize = 3
	Vec4 VectorSize = 4
)

// MatrixType represents float matrix types.
type MatrixType struct {
	Columns VectorSize
	Rows    VectorSize
}

func (MatrixType) typeInner() {}

// ArrayType represents array types. A zero Size marks a runtime-sized array,
// only valid as the last member of a shader storage block.
type ArrayType struct {
	Base TypeHandle
	Size uint32
}

func (ArrayType) typeInner() {}

// StructType represents structure types. Interface blocks are structs
// referenced by a global variable with Block set.
type StructType struct {
	Members []StructMember
}

func (StructType) typeInner() {}

// StructMember represents a structure member.
type StructMember struct {
	Name string
	Type TypeHandle

	// RowMajor marks a row_major matrix member of an interface block.
	RowMajor bool
}

// ImageDimension is the dimensionality of a sampler or image.
type ImageDimension uint8

const (
	Dim2D ImageDimension = iota
	Dim3D
	DimCube
	DimExternal
	DimBuffer
)

// SamplerType represents combined texture/sampler types (sampler2D, isampler3D,
// sampler2DArrayShadow, ...).
type SamplerType struct {
	Dim     ImageDimension
	Arrayed bool
	Shadow  bool
	Kind    ScalarKind
}

func (SamplerType) typeInner() {}

// ImageType represents storage image types (image2D, uimage3D, ...).
type ImageType struct {
	Dim     ImageDimension
	Arrayed bool
	Kind    ScalarKind
}

func (ImageType) typeInner() {}

// AtomicCounterType represents atomic_uint.
type AtomicCounterType struct{}

func (AtomicCounterType) typeInner() {}

// IsOpaque reports whether inner is a sampler, image or atomic counter type.
func IsOpaque(inner TypeInner) bool {
	switch inner.(type) {
	case SamplerType, ImageType, AtomicCounterType:
		return true
	}
	return false
}

// StorageQualifier describes where a global variable lives.
type StorageQualifier uint8

const (
	QualifierGlobal StorageQualifier = iota // plain module-scope variable
	QualifierConst
	QualifierUniform
	QualifierBuffer
	QualifierIn
	QualifierOut
	QualifierSpecConstant
)

// String returns the GLSL keyword for the qualifier.
func (q StorageQualifier) String() string {
	switch q {
	case QualifierConst, QualifierSpecConstant:
		return "const"
	case QualifierUniform:
		return "uniform"
	case QualifierBuffer:
		return "buffer"
	case QualifierIn:
		return "in"
	case QualifierOut:
		return "out"
	default:
		return ""
	}
}

// BuiltinValue identifies a gl_* builtin variable.
type BuiltinValue uint8

const (
	BuiltinNone BuiltinValue = iota
	BuiltinPosition
	BuiltinPointSize
	BuiltinVertexIndex
	BuiltinInstanceIndex
	BuiltinFragCoord
	BuiltinPointCoord
	BuiltinFrontFacing
	BuiltinFragDepth
	BuiltinFragColor
	BuiltinFragData
	BuiltinDepthRange
	BuiltinClipDistance
	BuiltinSampleMask
	BuiltinSampleMaskIn
	BuiltinSampleID
	BuiltinLocalInvocationID
	BuiltinGlobalInvocationID
	BuiltinWorkGroupID
)

// Interpolation is the interpolation qualifier of a varying.
type Interpolation uint8

const (
	InterpolationSmooth Interpolation = iota
	InterpolationFlat
	InterpolationCentroid
)

// Precision is a GLSL ES precision qualifier.
type Precision uint8

const (
	PrecisionUndefined Precision = iota
	PrecisionLow
	PrecisionMedium
	PrecisionHigh
)

// BlockLayout is the memory layout of an interface block.
type BlockLayout uint8

const (
	LayoutShared BlockLayout = iota
	LayoutPacked
	LayoutStd140
	LayoutStd430
)

// Layout holds layout qualifiers. Negative values mean "not specified".
type Layout struct {
	Location   int
	Index      int
	Binding    int
	Set        int
	Offset     int
	ConstantID int
	Block      BlockLayout
}

// NoLayout returns a Layout with every qualifier unspecified.
func NoLayout() Layout {
	return Layout{Location: -1, Index: -1, Binding: -1, Set: -1, Offset: -1, ConstantID: -1}
}

// GlobalVariable represents a module-scope variable.
type GlobalVariable struct {
	// Name is the variable name, or the instance name of an interface block.
	// Instanceless blocks have an empty name; their fields are referenced bare.
	Name      string
	Type      TypeHandle
	Qualifier StorageQualifier
	Builtin   BuiltinValue
	Layout    Layout
	Precision Precision

	Interpolation Interpolation
	Invariant     bool

	// Block marks a uniform or buffer interface block; Type must be a struct
	// (or an array of structs for block arrays).
	Block bool

	// Init is the initializer of const and specialization constant globals.
	Init LiteralValue

	// Removed marks a declaration deleted by a rewrite pass. Handles stay
	// stable, so removed globals keep their arena slot.
	Removed bool
}

// Function represents a function definition.
type Function struct {
	Name        string
	Arguments   []FunctionArgument
	Result      *TypeHandle
	LocalVars   []LocalVariable
	Expressions []Expression
	Body        Block
}

// FunctionArgument represents a function parameter.
type FunctionArgument struct {
	Name string
	Type TypeHandle
}

// LocalVariable represents a function-scope variable. Locals are declared at
// the top of the function; initialization is expressed as a Store.
type LocalVariable struct {
	Name string
	Type TypeHandle
}

// Main returns the entry point function, or nil if the handle is invalid.
func (m *Module) Main() *Function {
	if int(m.EntryPoint) >= len(m.Functions) {
		return nil
	}
	return &m.Functions[m.EntryPoint]
}

// FindGlobal looks up a live global variable by name.
func (m *Module) FindGlobal(name string) (GlobalVariableHandle, bool) {
	for i := range m.GlobalVariables {
		g := &m.GlobalVariables[i]
		if !g.Removed && g.Name == name {
			return GlobalVariableHandle(i), true
		}
	}
	return 0, false
}

// FindBuiltin looks up the live global declaring the given builtin.
func (m *Module) FindBuiltin(b BuiltinValue) (GlobalVariableHandle, bool) {
	for i := range m.GlobalVariables {
		g := &m.GlobalVariables[i]
		if !g.Removed && g.Builtin == b {
			return GlobalVariableHandle(i), true
		}
	}
	return 0, false
}

// FindFunction looks up a function by name.
func (m *Module) FindFunction(name string) (FunctionHandle, bool) {
	for i := range m.Functions {
		if m.Functions[i].Name == name {
			return FunctionHandle(i), true
		}
	}
	return 0, false
}

// AddGlobal appends a global variable and returns its handle.
func (m *Module) AddGlobal(g GlobalVariable) GlobalVariableHandle {
	m.GlobalVariables = append(m.GlobalVariables, g)
	return GlobalVariableHandle(len(m.GlobalVariables) - 1)
}

// AddFunction appends a function and returns its handle. Functions are
// emitted in arena order with main last, so appended helpers always precede
// main in generated code.
func (m *Module) AddFunction(f Function) FunctionHandle {
	m.Functions = append(m.Functions, f)
	return FunctionHandle(len(m.Functions) - 1)
}

// AddExpression appends an expression to the function arena.
func (f *Function) AddExpression(kind ExpressionKind) ExpressionHandle {
	f.Expressions = append(f.Expressions, Expression{Kind: kind})
	return ExpressionHandle(len(f.Expressions) - 1)
}

// AddLocal declares a local variable and returns its index.
func (f *Function) AddLocal(name string, typ TypeHandle) uint32 {
	f.LocalVars = append(f.LocalVars, LocalVariable{Name: name, Type: typ})
	return uint32(len(f.LocalVars) - 1)
}

// UsesGlobal reports whether any function body references the global.
func (m *Module) UsesGlobal(handle GlobalVariableHandle) bool {
	for fi := range m.Functions {
		if m.Functions[fi].ReferencesGlobal(handle) {
			return true
		}
	}
	return false
}

// UsesBuiltin reports whether a live declaration of the builtin exists and is
// referenced.
func (m *Module) UsesBuiltin(b BuiltinValue) bool {
	h, ok := m.FindBuiltin(b)
	return ok && m.UsesGlobal(h)
}
