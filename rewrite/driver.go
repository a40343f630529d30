package rewrite

import (
	"github.com/gogpu/shaderlink/ir"
)

// Driver uniform block names.
const (
	DriverUniformsBlockName    = "ANGLEUniformBlock"
	DriverUniformsInstanceName = "ANGLEUniforms"
	depthRangeParamsName       = "ANGLEDepthRangeParams"
)

// Driver uniform field names.
const (
	FieldViewport               = "viewport"
	FieldClipDistancesEnabled   = "clipDistancesEnabled"
	FieldXfbActiveUnpaused      = "xfbActiveUnpaused"
	FieldXfbVerticesPerInstance = "xfbVerticesPerInstance"
	FieldNumSamples             = "numSamples"
	FieldXfbBufferOffsets       = "xfbBufferOffsets"
	FieldAcbBufferOffsets       = "acbBufferOffsets"
	FieldDepthRange             = "depthRange"
	FieldHalfRenderArea         = "halfRenderArea"
	FieldFlipXY                 = "flipXY"
	FieldNegFlipXY              = "negFlipXY"
	FieldFragRotation           = "fragRotation"
	FieldPreRotation            = "preRotation"
)

// DriverUniformProvider declares the backend-injected uniform block and
// builds expressions reading its fields. Accessors append to the function
// of the given builder. The optional accessors report false when the
// provider variant does not carry the field.
type DriverUniformProvider interface {
	// Declare adds the block to the module. It is a no-op when the block is
	// already declared.
	Declare(module *ir.Module, types *ir.TypeRegistry) ir.GlobalVariableHandle
	// Declared reports whether Declare has run on the module.
	Declared(module *ir.Module) bool

	Viewport(b *ir.Builder) ir.ExpressionHandle
	DepthRange(b *ir.Builder) ir.ExpressionHandle
	ClipDistancesEnabled(b *ir.Builder) ir.ExpressionHandle
	XfbBufferOffsets(b *ir.Builder) ir.ExpressionHandle
	XfbVerticesPerInstance(b *ir.Builder) ir.ExpressionHandle
	AcbBufferOffsets(b *ir.Builder) ir.ExpressionHandle
	NumSamples(b *ir.Builder) ir.ExpressionHandle

	FlipXY(b *ir.Builder) (ir.ExpressionHandle, bool)
	NegFlipXY(b *ir.Builder) (ir.ExpressionHandle, bool)
	FragRotation(b *ir.Builder) (ir.ExpressionHandle, bool)
	PreRotation(b *ir.Builder) (ir.ExpressionHandle, bool)
	HalfRenderArea(b *ir.Builder) (ir.ExpressionHandle, bool)
}

// driverField describes one member of the driver uniform block.
type driverField struct {
	name string
	typ  func(types *ir.TypeRegistry) ir.TypeHandle
}

func vec2Type(t *ir.TypeRegistry) ir.TypeHandle  { return t.Vector(ir.Vec2, ir.ScalarFloat) }
func vec4Type(t *ir.TypeRegistry) ir.TypeHandle  { return t.Vector(ir.Vec4, ir.ScalarFloat) }
func ivec4Type(t *ir.TypeRegistry) ir.TypeHandle { return t.Vector(ir.Vec4, ir.ScalarSint) }
func uvec4Type(t *ir.TypeRegistry) ir.TypeHandle { return t.Vector(ir.Vec4, ir.ScalarUint) }
func uintType(t *ir.TypeRegistry) ir.TypeHandle  { return t.Scalar(ir.ScalarUint) }
func intType(t *ir.TypeRegistry) ir.TypeHandle   { return t.Scalar(ir.ScalarSint) }
func mat2Type(t *ir.TypeRegistry) ir.TypeHandle  { return t.Matrix(ir.Vec2, ir.Vec2) }

func depthRangeType(t *ir.TypeRegistry) ir.TypeHandle {
	f := t.Scalar(ir.ScalarFloat)
	return t.GetOrCreate(depthRangeParamsName, ir.StructType{Members: []ir.StructMember{
		{Name: "near", Type: f},
		{Name: "far", Type: f},
		{Name: "diff", Type: f},
		{Name: "reserved", Type: f},
	}})
}

var basicDriverFields = []driverField{
	{FieldViewport, vec4Type},
	{FieldClipDistancesEnabled, uintType},
	{FieldXfbActiveUnpaused, uintType},
	{FieldXfbVerticesPerInstance, intType},
	{FieldNumSamples, intType},
	{FieldXfbBufferOffsets, ivec4Type},
	{FieldAcbBufferOffsets, uvec4Type},
	{FieldDepthRange, depthRangeType},
}

var extendedDriverFields = []driverField{
	{FieldHalfRenderArea, vec2Type},
	{FieldFlipXY, vec2Type},
	{FieldNegFlipXY, vec2Type},
	{FieldFragRotation, mat2Type},
	{FieldPreRotation, mat2Type},
}

var computeDriverFields = []driverField{
	{FieldAcbBufferOffsets, uvec4Type},
}

// DriverUniforms is the driver uniform block of one module. The basic
// variant carries the fields every backend needs; the extended variant adds
// the surface flip and rotation state.
type DriverUniforms struct {
	extended bool
	handle   ir.GlobalVariableHandle
	fields   []driverField
	declared *ir.Module
}

var _ DriverUniformProvider = (*DriverUniforms)(nil)

// NewBasicDriverUniforms returns a provider without flip and rotation
// fields.
func NewBasicDriverUniforms() *DriverUniforms {
	return &DriverUniforms{}
}

// NewExtendedDriverUniforms returns a provider carrying flip and rotation
// fields.
func NewExtendedDriverUniforms() *DriverUniforms {
	return &DriverUniforms{extended: true}
}

// Extended reports whether the provider carries flip and rotation fields.
func (d *DriverUniforms) Extended() bool {
	return d.extended
}

func (d *DriverUniforms) fieldsFor(stage ir.ShaderStage) []driverField {
	if stage == ir.StageCompute {
		return computeDriverFields
	}
	fields := append([]driverField(nil), basicDriverFields...)
	if d.extended {
		fields = append(fields, extendedDriverFields...)
	}
	return fields
}

// Declare adds "uniform ANGLEUniformBlock { ... } ANGLEUniforms;" at set 0,
// binding 0.
func (d *DriverUniforms) Declare(module *ir.Module, types *ir.TypeRegistry) ir.GlobalVariableHandle {
	if d.Declared(module) {
		return d.handle
	}
	if types == nil {
		types = ir.NewTypeRegistry(module)
	}
	d.fields = d.fieldsFor(module.Stage)
	members := make([]ir.StructMember, len(d.fields))
	for i, f := range d.fields {
		members[i] = ir.StructMember{Name: f.name, Type: f.typ(types)}
	}
	block := types.GetOrCreate(DriverUniformsBlockName, ir.StructType{Members: members})

	layout := ir.NoLayout()
	layout.Set = 0
	layout.Binding = 0
	layout.Block = ir.LayoutStd140
	d.handle = module.AddGlobal(ir.GlobalVariable{
		Name:      DriverUniformsInstanceName,
		Type:      block,
		Qualifier: ir.QualifierUniform,
		Layout:    layout,
		Precision: ir.PrecisionHigh,
		Block:     true,
	})
	d.declared = module
	return d.handle
}

// Declared reports whether the block has been declared in module.
func (d *DriverUniforms) Declared(module *ir.Module) bool {
	if d.declared != module || int(d.handle) >= len(module.GlobalVariables) {
		return false
	}
	return !module.GlobalVariables[d.handle].Removed
}

// Handle returns the block global. Only valid after Declare.
func (d *DriverUniforms) Handle() ir.GlobalVariableHandle {
	return d.handle
}

func (d *DriverUniforms) field(b *ir.Builder, name string) (ir.ExpressionHandle, bool) {
	if !d.Declared(b.Module) {
		return 0, false
	}
	for i, f := range d.fields {
		if f.name == name {
			return b.Field(b.Global(d.handle), uint32(i)), true
		}
	}
	return 0, false
}

func (d *DriverUniforms) mustField(b *ir.Builder, name string) ir.ExpressionHandle {
	h, ok := d.field(b, name)
	if !ok {
		panic("rewrite: driver uniform " + name + " read before the block was declared")
	}
	return h
}

func (d *DriverUniforms) Viewport(b *ir.Builder) ir.ExpressionHandle {
	return d.mustField(b, FieldViewport)
}

func (d *DriverUniforms) DepthRange(b *ir.Builder) ir.ExpressionHandle {
	return d.mustField(b, FieldDepthRange)
}

func (d *DriverUniforms) ClipDistancesEnabled(b *ir.Builder) ir.ExpressionHandle {
	return d.mustField(b, FieldClipDistancesEnabled)
}

func (d *DriverUniforms) XfbBufferOffsets(b *ir.Builder) ir.ExpressionHandle {
	return d.mustField(b, FieldXfbBufferOffsets)
}

func (d *DriverUniforms) XfbVerticesPerInstance(b *ir.Builder) ir.ExpressionHandle {
	return d.mustField(b, FieldXfbVerticesPerInstance)
}

func (d *DriverUniforms) AcbBufferOffsets(b *ir.Builder) ir.ExpressionHandle {
	return d.mustField(b, FieldAcbBufferOffsets)
}

func (d *DriverUniforms) NumSamples(b *ir.Builder) ir.ExpressionHandle {
	return d.mustField(b, FieldNumSamples)
}

func (d *DriverUniforms) FlipXY(b *ir.Builder) (ir.ExpressionHandle, bool) {
	return d.field(b, FieldFlipXY)
}

func (d *DriverUniforms) NegFlipXY(b *ir.Builder) (ir.ExpressionHandle, bool) {
	return d.field(b, FieldNegFlipXY)
}

func (d *DriverUniforms) FragRotation(b *ir.Builder) (ir.ExpressionHandle, bool) {
	return d.field(b, FieldFragRotation)
}

func (d *DriverUniforms) PreRotation(b *ir.Builder) (ir.ExpressionHandle, bool) {
	return d.field(b, FieldPreRotation)
}

func (d *DriverUniforms) HalfRenderArea(b *ir.Builder) (ir.ExpressionHandle, bool) {
	return d.field(b, FieldHalfRenderArea)
}
