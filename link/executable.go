package link

import (
	"github.com/gogpu/shaderlink/shader"
)

// Range is a half-open index range [Low, High).
type Range struct {
	Low  int
	High int
}

// Len returns the number of indices in the range.
func (r Range) Len() int {
	return r.High - r.Low
}

// Empty reports whether the range holds no index.
func (r Range) Empty() bool {
	return r.High <= r.Low
}

// Contains reports whether i lies in the range.
func (r Range) Contains(i int) bool {
	return i >= r.Low && i < r.High
}

// VariableLocation records which resource element occupies a numeric slot.
type VariableLocation struct {
	// ArrayIndex is the element of the resource bound to the slot.
	ArrayIndex int

	// Index is the resource index, or -1 for an unused slot.
	Index int

	// Ignored marks the slot of a uniform removed as inactive; writes to it
	// are silently dropped.
	Ignored bool
}

// UnusedLocation returns an unused slot.
func UnusedLocation() VariableLocation {
	return VariableLocation{Index: -1}
}

// Used reports whether a resource occupies the slot.
func (l VariableLocation) Used() bool {
	return l.Index >= 0
}

// BlockMemberInfo is the memory layout of a block member. Unset fields are
// -1.
type BlockMemberInfo struct {
	Offset              int
	ArrayStride         int
	MatrixStride        int
	IsRowMajorMatrix    bool
	TopLevelArrayStride int
}

// DefaultBlockMemberInfo returns the layout of a variable outside any block.
func DefaultBlockMemberInfo() BlockMemberInfo {
	return BlockMemberInfo{Offset: -1, ArrayStride: -1, MatrixStride: -1, TopLevelArrayStride: -1}
}

// LinkedUniform is one entry of the flattened uniform list. Names are fully
// qualified ("light[1].color"); arrays carry a "[0]" suffix.
type LinkedUniform struct {
	shader.Variable

	// BufferIndex is the uniform block or atomic counter buffer holding the
	// uniform, or -1.
	BufferIndex int
	BlockInfo   BlockMemberInfo

	// OuterArraySizes lists the dimensions flattened away from an array of
	// arrays.
	OuterArraySizes []uint32
}

// IsInDefaultBlock reports whether the uniform lives in the default block.
func (u *LinkedUniform) IsInDefaultBlock() bool {
	return u.BufferIndex == -1
}

// BaseName returns the name without the trailing "[0]" of arrays.
func (u *LinkedUniform) BaseName() string {
	if u.IsArray() {
		if base, idx, ok := shader.StripLastArrayIndex(u.Name); ok && idx == 0 {
			return base
		}
	}
	return u.Name
}

// BufferVariable is a member of a shader storage block.
type BufferVariable struct {
	shader.Variable

	BufferIndex int
	BlockInfo   BlockMemberInfo

	// TopLevelArraySize is the size of the outermost array of the
	// top-level block member, or 1.
	TopLevelArraySize int
}

// ShaderVariableBuffer is the buffer part shared by blocks and atomic
// counter buffers.
type ShaderVariableBuffer struct {
	Binding       int
	DataSize      int
	ActiveStages  shader.StageMask
	MemberIndexes []int
}

// InterfaceBlock is one linked uniform or storage block element. Arrays of
// blocks produce one entry per element.
type InterfaceBlock struct {
	ShaderVariableBuffer

	Name       string
	MappedName string

	IsArray      bool
	ArrayElement int

	// InstanceName is empty for instanceless blocks.
	InstanceName string
	Readonly     bool
}

// NameWithArrayIndex returns "Block[2]" for array elements, "Block"
// otherwise.
func (b *InterfaceBlock) NameWithArrayIndex() string {
	if b.IsArray {
		return shader.ElementName(b.Name, b.ArrayElement)
	}
	return b.Name
}

// AtomicCounterBuffer groups atomic counters sharing a binding.
type AtomicCounterBuffer struct {
	ShaderVariableBuffer
}

// SamplerBinding holds the texture units bound to a sampler uniform, one per
// array element.
type SamplerBinding struct {
	TextureType shader.TextureType
	SamplerType shader.Type
	Format      shader.SamplerFormat
	Units       []int

	// Unreferenced marks a sampler removed by the backend.
	Unreferenced bool
}

// ImageBinding holds the image units bound to an image uniform.
type ImageBinding struct {
	TextureType shader.TextureType
	Units       []int

	Unreferenced bool
}

// UnusedUniform is a uniform pruned because no stage uses it.
type UnusedUniform struct {
	Name            string
	IsSampler       bool
	IsImage         bool
	IsAtomicCounter bool
}

// TransformFeedbackMode selects interleaved or separate capture.
type TransformFeedbackMode uint8

const (
	TransformFeedbackInterleaved TransformFeedbackMode = iota
	TransformFeedbackSeparate
)

// String returns the GL name of the mode.
func (m TransformFeedbackMode) String() string {
	if m == TransformFeedbackSeparate {
		return "SEPARATE_ATTRIBS"
	}
	return "INTERLEAVED_ATTRIBS"
}

// TransformFeedbackVarying is a captured output.
type TransformFeedbackVarying struct {
	shader.Variable

	// ArrayIndex selects one element of an array varying, or -1 to capture
	// the whole array.
	ArrayIndex int
}

// Size returns the number of captured elements.
func (v *TransformFeedbackVarying) Size() int {
	if v.IsArray() && v.ArrayIndex == -1 {
		return int(v.OutermostArraySize())
	}
	return 1
}

// NameWithArrayIndex returns the captured name, "v[2]" for an element.
func (v *TransformFeedbackVarying) NameWithArrayIndex() string {
	if v.ArrayIndex == -1 {
		return v.Name
	}
	return shader.ElementName(v.Name, v.ArrayIndex)
}

// Executable is the immutable result of a successful link. It is replaced
// wholesale on relink.
type Executable struct {
	LinkedStages shader.StageMask

	// Version is the client API version the program was linked for.
	Version       Version
	ShaderVersion int

	// ProgramInputs are the vertex attributes with assigned locations.
	ProgramInputs []shader.Variable

	ActiveAttribLocationsMask uint32
	MaxActiveAttribLocation   int

	Uniforms         []LinkedUniform
	UniformLocations []VariableLocation
	UnusedUniforms   []UnusedUniform

	DefaultUniformRange       Range
	SamplerUniformRange       Range
	ImageUniformRange         Range
	AtomicCounterUniformRange Range

	UniformBlocks        []InterfaceBlock
	ShaderStorageBlocks  []InterfaceBlock
	BufferVariables      []BufferVariable
	AtomicCounterBuffers []AtomicCounterBuffer

	SamplerBindings []SamplerBinding
	ImageBindings   []ImageBinding

	TransformFeedbackVaryings   []TransformFeedbackVarying
	TransformFeedbackBufferMode TransformFeedbackMode

	// TransformFeedbackStrides is derived by Finalize and never persisted.
	TransformFeedbackStrides []int

	OutputVariables          []shader.Variable
	OutputLocations          []VariableLocation
	SecondaryOutputLocations []VariableLocation

	// OutputVariableTypes is indexed by draw buffer.
	OutputVariableTypes   []shader.ComponentType
	ActiveOutputVariables uint32

	ComputeLocalSize [3]int

	GeometryInput       shader.PrimitiveMode
	GeometryOutput      shader.PrimitiveMode
	GeometryInvocations int
	GeometryMaxVertices int

	EarlyFragmentTests bool
}

// IsCompute reports whether the program is a compute program.
func (e *Executable) IsCompute() bool {
	return e.LinkedStages.Has(shader.StageCompute)
}

// Finalize re-derives the fields that are not stored in binaries. It runs
// after a fresh link and after loading a binary.
func (e *Executable) Finalize() {
	e.UpdateTransformFeedbackStrides()
}

// UpdateTransformFeedbackStrides computes the byte stride of each capture
// buffer: one buffer for interleaved mode, one per varying otherwise.
func (e *Executable) UpdateTransformFeedbackStrides() {
	if len(e.TransformFeedbackVaryings) == 0 {
		e.TransformFeedbackStrides = nil
		return
	}
	if e.TransformFeedbackBufferMode == TransformFeedbackInterleaved {
		total := 0
		for i := range e.TransformFeedbackVaryings {
			v := &e.TransformFeedbackVaryings[i]
			total += v.Size() * v.Type.ByteSize()
		}
		e.TransformFeedbackStrides = []int{total}
		return
	}
	e.TransformFeedbackStrides = make([]int, len(e.TransformFeedbackVaryings))
	for i := range e.TransformFeedbackVaryings {
		v := &e.TransformFeedbackVaryings[i]
		e.TransformFeedbackStrides[i] = v.Size() * v.Type.ByteSize()
	}
}

// DefaultUniformCount returns the number of uniforms in the default block
// that are neither opaque nor block members.
func (e *Executable) DefaultUniformCount() int {
	return e.DefaultUniformRange.Len()
}
