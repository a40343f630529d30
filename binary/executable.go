package binary

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/gogpu/shaderlink/link"
	"github.com/gogpu/shaderlink/shader"
)

// Save serializes an executable. Derived fields (transform feedback
// strides) are not written; Load recomputes them.
func Save(exe *link.Executable) []byte {
	w := &Writer{}
	writeHeader(w, exe.Version)
	writeExecutable(w, exe)
	return w.Bytes()
}

// Load deserializes an executable saved for the given client API version
// and finalizes it. A blob from another build or API version, or a
// truncated blob, yields an error wrapping ErrIncomplete.
func Load(data []byte, api link.Version) (*link.Executable, error) {
	r := NewReader(data)
	if err := readHeader(r, api); err != nil {
		return nil, err
	}
	exe := readExecutable(r, api)
	if err := finish(r); err != nil {
		return nil, err
	}
	exe.Finalize()
	return exe, nil
}

func writeHeader(w *Writer, api link.Version) {
	id := BuildID()
	w.WriteBytes(id[:])
	w.WriteInt(api.Major)
	w.WriteInt(api.Minor)
}

func readHeader(r *Reader, api link.Version) error {
	id := BuildID()
	if got := r.ReadBytes(BuildIDSize); r.Err() != nil || !bytes.Equal(got, id[:]) {
		return errors.Wrap(ErrIncomplete, "build identifier mismatch")
	}
	version := link.Version{Major: r.ReadInt(), Minor: r.ReadInt()}
	if r.Err() != nil {
		return r.Err()
	}
	if version != api {
		return errors.Wrapf(ErrIncomplete, "binary is for API %d.%d, want %d.%d",
			version.Major, version.Minor, api.Major, api.Minor)
	}
	return nil
}

func finish(r *Reader) error {
	if r.Err() != nil {
		return r.Err()
	}
	if r.Remaining() != 0 {
		return errors.Wrapf(ErrIncomplete, "%d trailing bytes", r.Remaining())
	}
	return nil
}

func writeExecutable(w *Writer, exe *link.Executable) {
	w.WriteUint8(uint8(exe.LinkedStages))
	w.WriteInt(exe.ShaderVersion)

	writeSlice(w, exe.ProgramInputs, writeVariable)
	w.WriteUint32(exe.ActiveAttribLocationsMask)
	w.WriteInt(exe.MaxActiveAttribLocation)

	writeSlice(w, exe.Uniforms, writeLinkedUniform)
	writeSlice(w, exe.UniformLocations, writeLocation)
	writeSlice(w, exe.UnusedUniforms, writeUnusedUniform)

	for _, r := range []link.Range{exe.DefaultUniformRange, exe.SamplerUniformRange, exe.ImageUniformRange, exe.AtomicCounterUniformRange} {
		w.WriteInt(r.Low)
		w.WriteInt(r.High)
	}

	writeSlice(w, exe.UniformBlocks, writeInterfaceBlock)
	writeSlice(w, exe.ShaderStorageBlocks, writeInterfaceBlock)
	writeSlice(w, exe.BufferVariables, writeBufferVariable)
	writeSlice(w, exe.AtomicCounterBuffers, func(w *Writer, b *link.AtomicCounterBuffer) {
		writeBuffer(w, &b.ShaderVariableBuffer)
	})

	writeSlice(w, exe.SamplerBindings, writeSamplerBinding)
	writeSlice(w, exe.ImageBindings, writeImageBinding)

	writeSlice(w, exe.TransformFeedbackVaryings, writeTransformFeedbackVarying)
	w.WriteUint8(uint8(exe.TransformFeedbackBufferMode))

	writeSlice(w, exe.OutputVariables, writeVariable)
	writeSlice(w, exe.OutputLocations, writeLocation)
	writeSlice(w, exe.SecondaryOutputLocations, writeLocation)
	writeInts(w, exe.OutputVariableTypes)
	w.WriteUint32(exe.ActiveOutputVariables)

	for _, n := range exe.ComputeLocalSize {
		w.WriteInt(n)
	}
	w.WriteUint8(uint8(exe.GeometryInput))
	w.WriteUint8(uint8(exe.GeometryOutput))
	w.WriteInt(exe.GeometryInvocations)
	w.WriteInt(exe.GeometryMaxVertices)
	w.WriteBool(exe.EarlyFragmentTests)
}

func readExecutable(r *Reader, version link.Version) *link.Executable {
	exe := &link.Executable{Version: version}
	exe.LinkedStages = shader.StageMask(r.ReadUint8())
	exe.ShaderVersion = r.ReadInt()

	exe.ProgramInputs = readSlice(r, "program inputs", readVariable)
	exe.ActiveAttribLocationsMask = r.ReadUint32()
	exe.MaxActiveAttribLocation = r.ReadInt()

	exe.Uniforms = readSlice(r, "uniforms", readLinkedUniform)
	exe.UniformLocations = readSlice(r, "uniform locations", readLocation)
	exe.UnusedUniforms = readSlice(r, "unused uniforms", readUnusedUniform)

	for _, rng := range []*link.Range{&exe.DefaultUniformRange, &exe.SamplerUniformRange, &exe.ImageUniformRange, &exe.AtomicCounterUniformRange} {
		rng.Low = r.ReadInt()
		rng.High = r.ReadInt()
	}

	exe.UniformBlocks = readSlice(r, "uniform blocks", readInterfaceBlock)
	exe.ShaderStorageBlocks = readSlice(r, "storage blocks", readInterfaceBlock)
	exe.BufferVariables = readSlice(r, "buffer variables", readBufferVariable)
	exe.AtomicCounterBuffers = readSlice(r, "atomic counter buffers", func(r *Reader) link.AtomicCounterBuffer {
		return link.AtomicCounterBuffer{ShaderVariableBuffer: readBuffer(r)}
	})

	exe.SamplerBindings = readSlice(r, "sampler bindings", readSamplerBinding)
	exe.ImageBindings = readSlice(r, "image bindings", readImageBinding)

	exe.TransformFeedbackVaryings = readSlice(r, "transform feedback varyings", readTransformFeedbackVarying)
	exe.TransformFeedbackBufferMode = link.TransformFeedbackMode(r.ReadUint8())

	exe.OutputVariables = readSlice(r, "output variables", readVariable)
	exe.OutputLocations = readSlice(r, "output locations", readLocation)
	exe.SecondaryOutputLocations = readSlice(r, "secondary output locations", readLocation)
	exe.OutputVariableTypes = readInts[shader.ComponentType](r, "output types")
	exe.ActiveOutputVariables = r.ReadUint32()

	for i := range exe.ComputeLocalSize {
		exe.ComputeLocalSize[i] = r.ReadInt()
	}
	exe.GeometryInput = shader.PrimitiveMode(r.ReadUint8())
	exe.GeometryOutput = shader.PrimitiveMode(r.ReadUint8())
	exe.GeometryInvocations = r.ReadInt()
	exe.GeometryMaxVertices = r.ReadInt()
	exe.EarlyFragmentTests = r.ReadBool()
	return exe
}

func writeVariable(w *Writer, v *shader.Variable) {
	w.WriteUint8(uint8(v.Type))
	w.WriteUint8(uint8(v.Precision))
	w.WriteString(v.Name)
	w.WriteString(v.MappedName)
	writeInts(w, v.ArraySizes)
	w.WriteBool(v.StaticUse)
	w.WriteBool(v.Active)
	writeSlice(w, v.Fields, writeVariable)
	w.WriteString(v.StructName)
	w.WriteBool(v.IsRowMajorLayout)
	w.WriteInt(v.Location)
	w.WriteInt(v.Binding)
	w.WriteInt(v.Offset)
	w.WriteInt(v.Index)
	w.WriteUint32(v.ImageUnitFormat)
	w.WriteBool(v.Readonly)
	w.WriteBool(v.Writeonly)
	w.WriteUint8(uint8(v.Interpolation))
	w.WriteBool(v.IsInvariant)
	w.WriteBool(v.Builtin)
	w.WriteUint8(uint8(v.ActiveStages))
	w.WriteInt(v.ParentArrayIndex)
	w.WriteBool(v.TexelFetchStaticUse)
}

func readVariable(r *Reader) shader.Variable {
	var v shader.Variable
	v.Type = shader.Type(r.ReadUint8())
	v.Precision = shader.Precision(r.ReadUint8())
	v.Name = r.ReadString()
	v.MappedName = r.ReadString()
	v.ArraySizes = readInts[uint32](r, "array sizes")
	v.StaticUse = r.ReadBool()
	v.Active = r.ReadBool()
	v.Fields = readSlice(r, "fields", readVariable)
	v.StructName = r.ReadString()
	v.IsRowMajorLayout = r.ReadBool()
	v.Location = r.ReadInt()
	v.Binding = r.ReadInt()
	v.Offset = r.ReadInt()
	v.Index = r.ReadInt()
	v.ImageUnitFormat = r.ReadUint32()
	v.Readonly = r.ReadBool()
	v.Writeonly = r.ReadBool()
	v.Interpolation = shader.Interpolation(r.ReadUint8())
	v.IsInvariant = r.ReadBool()
	v.Builtin = r.ReadBool()
	v.ActiveStages = shader.StageMask(r.ReadUint8())
	v.ParentArrayIndex = r.ReadInt()
	v.TexelFetchStaticUse = r.ReadBool()
	return v
}

func writeBlockInfo(w *Writer, b *link.BlockMemberInfo) {
	w.WriteInt(b.Offset)
	w.WriteInt(b.ArrayStride)
	w.WriteInt(b.MatrixStride)
	w.WriteBool(b.IsRowMajorMatrix)
	w.WriteInt(b.TopLevelArrayStride)
}

func readBlockInfo(r *Reader) link.BlockMemberInfo {
	return link.BlockMemberInfo{
		Offset:              r.ReadInt(),
		ArrayStride:         r.ReadInt(),
		MatrixStride:        r.ReadInt(),
		IsRowMajorMatrix:    r.ReadBool(),
		TopLevelArrayStride: r.ReadInt(),
	}
}

func writeLinkedUniform(w *Writer, u *link.LinkedUniform) {
	writeVariable(w, &u.Variable)
	w.WriteInt(u.BufferIndex)
	writeBlockInfo(w, &u.BlockInfo)
	writeInts(w, u.OuterArraySizes)
}

func readLinkedUniform(r *Reader) link.LinkedUniform {
	return link.LinkedUniform{
		Variable:        readVariable(r),
		BufferIndex:     r.ReadInt(),
		BlockInfo:       readBlockInfo(r),
		OuterArraySizes: readInts[uint32](r, "outer array sizes"),
	}
}

func writeLocation(w *Writer, l *link.VariableLocation) {
	w.WriteInt(l.ArrayIndex)
	w.WriteInt(l.Index)
	w.WriteBool(l.Ignored)
}

func readLocation(r *Reader) link.VariableLocation {
	return link.VariableLocation{ArrayIndex: r.ReadInt(), Index: r.ReadInt(), Ignored: r.ReadBool()}
}

func writeUnusedUniform(w *Writer, u *link.UnusedUniform) {
	w.WriteString(u.Name)
	w.WriteBool(u.IsSampler)
	w.WriteBool(u.IsImage)
	w.WriteBool(u.IsAtomicCounter)
}

func readUnusedUniform(r *Reader) link.UnusedUniform {
	return link.UnusedUniform{Name: r.ReadString(), IsSampler: r.ReadBool(), IsImage: r.ReadBool(), IsAtomicCounter: r.ReadBool()}
}

func writeBuffer(w *Writer, b *link.ShaderVariableBuffer) {
	w.WriteInt(b.Binding)
	w.WriteInt(b.DataSize)
	w.WriteUint8(uint8(b.ActiveStages))
	writeInts(w, b.MemberIndexes)
}

func readBuffer(r *Reader) link.ShaderVariableBuffer {
	return link.ShaderVariableBuffer{
		Binding:       r.ReadInt(),
		DataSize:      r.ReadInt(),
		ActiveStages:  shader.StageMask(r.ReadUint8()),
		MemberIndexes: readInts[int](r, "member indexes"),
	}
}

func writeInterfaceBlock(w *Writer, b *link.InterfaceBlock) {
	writeBuffer(w, &b.ShaderVariableBuffer)
	w.WriteString(b.Name)
	w.WriteString(b.MappedName)
	w.WriteBool(b.IsArray)
	w.WriteInt(b.ArrayElement)
	w.WriteString(b.InstanceName)
	w.WriteBool(b.Readonly)
}

func readInterfaceBlock(r *Reader) link.InterfaceBlock {
	return link.InterfaceBlock{
		ShaderVariableBuffer: readBuffer(r),
		Name:                 r.ReadString(),
		MappedName:           r.ReadString(),
		IsArray:              r.ReadBool(),
		ArrayElement:         r.ReadInt(),
		InstanceName:         r.ReadString(),
		Readonly:             r.ReadBool(),
	}
}

func writeBufferVariable(w *Writer, v *link.BufferVariable) {
	writeVariable(w, &v.Variable)
	w.WriteInt(v.BufferIndex)
	writeBlockInfo(w, &v.BlockInfo)
	w.WriteInt(v.TopLevelArraySize)
}

func readBufferVariable(r *Reader) link.BufferVariable {
	return link.BufferVariable{
		Variable:          readVariable(r),
		BufferIndex:       r.ReadInt(),
		BlockInfo:         readBlockInfo(r),
		TopLevelArraySize: r.ReadInt(),
	}
}

func writeSamplerBinding(w *Writer, b *link.SamplerBinding) {
	w.WriteUint8(uint8(b.TextureType))
	w.WriteUint8(uint8(b.SamplerType))
	w.WriteUint8(uint8(b.Format))
	writeInts(w, b.Units)
	w.WriteBool(b.Unreferenced)
}

func readSamplerBinding(r *Reader) link.SamplerBinding {
	return link.SamplerBinding{
		TextureType:  shader.TextureType(r.ReadUint8()),
		SamplerType:  shader.Type(r.ReadUint8()),
		Format:       shader.SamplerFormat(r.ReadUint8()),
		Units:        readInts[int](r, "texture units"),
		Unreferenced: r.ReadBool(),
	}
}

func writeImageBinding(w *Writer, b *link.ImageBinding) {
	w.WriteUint8(uint8(b.TextureType))
	writeInts(w, b.Units)
	w.WriteBool(b.Unreferenced)
}

func readImageBinding(r *Reader) link.ImageBinding {
	return link.ImageBinding{
		TextureType:  shader.TextureType(r.ReadUint8()),
		Units:        readInts[int](r, "image units"),
		Unreferenced: r.ReadBool(),
	}
}

func writeTransformFeedbackVarying(w *Writer, v *link.TransformFeedbackVarying) {
	writeVariable(w, &v.Variable)
	w.WriteInt(v.ArrayIndex)
}

func readTransformFeedbackVarying(r *Reader) link.TransformFeedbackVarying {
	return link.TransformFeedbackVarying{Variable: readVariable(r), ArrayIndex: r.ReadInt()}
}
