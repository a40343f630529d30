package link

import (
	"github.com/gogpu/shaderlink/shader"
)

type uniformClass uint8

const (
	classDefault uniformClass = iota
	classSampler
	classImage
	classAtomic
	classCount
)

func classOf(t shader.Type) uniformClass {
	switch {
	case t.IsSampler():
		return classSampler
	case t.IsImage():
		return classImage
	case t.IsAtomicCounter():
		return classAtomic
	}
	return classDefault
}

type uniformRef struct {
	class uniformClass
	index int
}

// uniformFlattener turns the per-stage uniform declarations into the
// program's flat list. Uniforms declared by several stages are merged by
// their fully qualified name.
type uniformFlattener struct {
	lists  [classCount][]LinkedUniform
	byName map[string]uniformRef
}

func newUniformFlattener() *uniformFlattener {
	return &uniformFlattener{byName: make(map[string]uniformRef)}
}

// add flattens v. Structs expand into one entry per leaf field and arrays of
// arrays into one entry per innermost array; location advances over every
// basic element when the declaration carries one.
func (f *uniformFlattener) add(v *shader.Variable, fullName string, outer []uint32, location *int, stage shader.Stage) {
	switch {
	case v.IsStruct() && v.IsArray():
		for i := uint32(0); i < v.OutermostArraySize(); i++ {
			elem := v.Clone()
			elem.ArraySizes = elem.ArraySizes[1:]
			if len(elem.ArraySizes) == 0 {
				elem.ArraySizes = nil
			}
			f.add(&elem, shader.ElementName(fullName, int(i)), nil, location, stage)
		}
	case v.IsStruct():
		for i := range v.Fields {
			field := v.Fields[i].Clone()
			if field.Binding == -1 {
				field.Binding = v.Binding
			}
			f.add(&field, fullName+"."+field.Name, nil, location, stage)
		}
	case v.IsArrayOfArrays():
		for i := uint32(0); i < v.OutermostArraySize(); i++ {
			elem := v.Clone()
			elem.IndexIntoArray(i)
			f.add(&elem, shader.ElementName(fullName, int(i)), append(outer[:len(outer):len(outer)], v.ArraySizes[0]), location, stage)
		}
	default:
		f.addLeaf(v, fullName, outer, location, stage)
	}
}

func (f *uniformFlattener) addLeaf(v *shader.Variable, fullName string, outer []uint32, location *int, stage shader.Stage) {
	name := fullName
	if v.IsArray() {
		name = shader.BaseElementName(fullName)
	}

	if ref, ok := f.byName[name]; ok {
		existing := &f.lists[ref.class][ref.index]
		existing.StaticUse = existing.StaticUse || v.StaticUse
		existing.Active = existing.Active || v.Active
		if v.Active {
			existing.ActiveStages = existing.ActiveStages.With(stage)
		}
		if existing.Location == -1 && *location != -1 {
			existing.Location = *location
		}
		if *location != -1 {
			*location += v.ElementCount()
		}
		return
	}

	u := LinkedUniform{
		Variable:    v.Clone(),
		BufferIndex: -1,
		BlockInfo:   DefaultBlockMemberInfo(),
	}
	u.Name = name
	u.MappedName = name
	u.Fields = nil
	u.ActiveStages = 0
	if v.Active {
		u.ActiveStages = shader.MaskOf(stage)
	}
	if len(outer) > 0 {
		u.OuterArraySizes = append([]uint32(nil), outer...)
	}
	u.Location = *location
	if *location != -1 {
		*location += v.ElementCount()
	}

	class := classOf(u.Type)
	f.byName[name] = uniformRef{class: class, index: len(f.lists[class])}
	f.lists[class] = append(f.lists[class], u)
}

// linkUniforms validates uniforms across stages, flattens them, assigns
// locations and builds the sampler, image and atomic counter tables.
func (l *linker) linkUniforms() error {
	if err := l.validateUniformsMatch(); err != nil {
		return err
	}

	f := newUniformFlattener()
	for _, s := range l.attached() {
		for i := range s.Uniforms {
			v := &s.Uniforms[i]
			if v.IsBuiltIn() {
				continue
			}
			location := v.Location
			f.add(v, v.Name, nil, &location, s.Stage)
		}
	}

	var ignored []int
	var uniforms []LinkedUniform
	for class := uniformClass(0); class < classCount; class++ {
		for _, u := range f.lists[class] {
			if u.Active {
				uniforms = append(uniforms, u)
				continue
			}
			l.exe.UnusedUniforms = append(l.exe.UnusedUniforms, UnusedUniform{
				Name:            u.Name,
				IsSampler:       u.Type.IsSampler(),
				IsImage:         u.Type.IsImage(),
				IsAtomicCounter: u.Type.IsAtomicCounter(),
			})
			if u.Location != -1 {
				for e := 0; e < u.ElementCount(); e++ {
					ignored = append(ignored, u.Location+e)
				}
			}
		}
	}
	l.exe.Uniforms = uniforms

	if err := l.assignUniformLocations(ignored); err != nil {
		return err
	}
	l.updateUniformRanges()
	l.linkSamplerAndImageBindings()
	l.linkAtomicCounterBuffers()
	return nil
}

// validateUniformsMatch checks that every uniform declared by more than one
// stage agrees on its type and layout qualifiers.
func (l *linker) validateUniformsMatch() error {
	type seen struct {
		v     *shader.Variable
		stage shader.Stage
	}
	linked := make(map[string]seen)
	for _, s := range l.attached() {
		for i := range s.Uniforms {
			v := &s.Uniforms[i]
			prev, ok := linked[v.Name]
			if !ok {
				linked[v.Name] = seen{v: v, stage: s.Stage}
				continue
			}
			kind, field := matchUniforms(prev.v, v)
			if kind != MismatchNone {
				return mismatchError(&Mismatch{
					Kind:         kind,
					Name:         v.Name,
					VariableType: "uniform",
					Field:        field,
					Stage1:       prev.stage,
					Stage2:       s.Stage,
				})
			}
		}
	}
	return nil
}

func matchUniforms(u1, u2 *shader.Variable) (MismatchKind, string) {
	validatePrecision := u1.StaticUse && u2.StaticUse
	if kind, field := MatchVariables(u1, u2, validatePrecision); kind != MismatchNone {
		return kind, field
	}
	if u1.Location != -1 && u2.Location != -1 && u1.Location != u2.Location {
		return MismatchLocation, ""
	}
	if u1.Binding != -1 && u2.Binding != -1 && u1.Binding != u2.Binding {
		return MismatchBinding, ""
	}
	if u1.Offset != u2.Offset {
		return MismatchOffset, ""
	}
	return MismatchNone, ""
}

// assignUniformLocations builds the location table: shader-declared
// locations first, then API bindings, then the remaining elements in the
// first free slots.
func (l *linker) assignUniformLocations(ignored []int) error {
	var locations []VariableLocation
	grow := func(n int) {
		for len(locations) < n {
			locations = append(locations, UnusedLocation())
		}
	}
	claim := func(loc, uniform, element int) error {
		grow(loc + 1)
		if prev := locations[loc]; prev.Used() {
			return newError(ErrPlacementConflict, "Location of uniform %s conflicts with uniform %s at location %d.",
				l.exe.Uniforms[uniform].Name, l.exe.Uniforms[prev.Index].Name, loc)
		}
		locations[loc] = VariableLocation{ArrayIndex: element, Index: uniform}
		return nil
	}

	uniforms := l.exe.Uniforms
	placed := make([][]bool, len(uniforms))
	for i := range uniforms {
		placed[i] = make([]bool, uniforms[i].ElementCount())
	}

	for i := range uniforms {
		u := &uniforms[i]
		if u.Location == -1 || u.Type.IsAtomicCounter() {
			continue
		}
		for e := range placed[i] {
			if err := claim(u.Location+e, i, e); err != nil {
				return err
			}
			placed[i][e] = true
		}
	}

	for i := range uniforms {
		u := &uniforms[i]
		if u.Location != -1 || u.Type.IsAtomicCounter() {
			continue
		}
		base := u.BaseName()
		for e := range placed[i] {
			loc := -1
			if u.IsArray() {
				loc = l.in.UniformLocationBindings.ByName(shader.ElementName(base, e))
			}
			if loc == -1 && e == 0 {
				loc = l.in.UniformLocationBindings.ByName(base)
			}
			if loc == -1 {
				continue
			}
			if loc >= l.in.Caps.MaxUniformLocations {
				return newError(ErrResourceExhausted, "Location %d of uniform %s exceeds the maximum uniform location",
					loc, u.Name)
			}
			if err := claim(loc, i, e); err != nil {
				return err
			}
			placed[i][e] = true
		}
	}

	for _, loc := range ignored {
		grow(loc + 1)
		if !locations[loc].Used() {
			locations[loc].Ignored = true
		}
	}

	next := 0
	for i := range uniforms {
		if uniforms[i].Type.IsAtomicCounter() {
			continue
		}
		for e := range placed[i] {
			if placed[i][e] {
				continue
			}
			for next < len(locations) && (locations[next].Used() || locations[next].Ignored) {
				next++
			}
			grow(next + 1)
			locations[next] = VariableLocation{ArrayIndex: e, Index: i}
			placed[i][e] = true
		}
	}

	if l.in.ClientVersion.AtLeast(3, 1) && len(locations) > l.in.Caps.MaxUniformLocations {
		return newError(ErrResourceExhausted, "Exceeded maximum uniform location size")
	}
	l.exe.UniformLocations = locations
	return nil
}

// updateUniformRanges partitions the uniform list from the tail: atomic
// counters, then images, then samplers; the rest is the default range.
func (l *linker) updateUniformRanges() {
	uniforms := l.exe.Uniforms
	high := len(uniforms)
	low := high
	for low > 0 && uniforms[low-1].Type.IsAtomicCounter() {
		low--
	}
	l.exe.AtomicCounterUniformRange = Range{Low: low, High: high}

	high = low
	for low > 0 && uniforms[low-1].Type.IsImage() {
		low--
	}
	l.exe.ImageUniformRange = Range{Low: low, High: high}

	high = low
	for low > 0 && uniforms[low-1].Type.IsSampler() {
		low--
	}
	l.exe.SamplerUniformRange = Range{Low: low, High: high}

	l.exe.DefaultUniformRange = Range{Low: 0, High: low}
}

// boundUnits returns the units of an opaque uniform: binding + arrayOffset
// + i per element, or unit 0 for every element when no binding is declared.
// arrayOffset accumulates across the innermost arrays split off one array of
// arrays.
func boundUnits(u *LinkedUniform, arrayOffset *int) []int {
	count := u.ElementCount()
	units := make([]int, count)
	if u.Binding == -1 {
		return units
	}
	if !u.IsArray() || u.ParentArrayIndex <= 0 {
		*arrayOffset = 0
	}
	for i := range units {
		units[i] = u.Binding + *arrayOffset + i
	}
	if u.IsArray() && u.ParentArrayIndex >= 0 {
		*arrayOffset += count
	}
	return units
}

func (l *linker) linkSamplerAndImageBindings() {
	uniforms := l.exe.Uniforms

	arrayOffset := 0
	for i := l.exe.SamplerUniformRange.Low; i < l.exe.SamplerUniformRange.High; i++ {
		u := &uniforms[i]
		l.exe.SamplerBindings = append(l.exe.SamplerBindings, SamplerBinding{
			TextureType: u.Type.TextureType(),
			SamplerType: u.Type,
			Format:      u.Type.SamplerFormat(),
			Units:       boundUnits(u, &arrayOffset),
		})
	}

	arrayOffset = 0
	for i := l.exe.ImageUniformRange.Low; i < l.exe.ImageUniformRange.High; i++ {
		u := &uniforms[i]
		l.exe.ImageBindings = append(l.exe.ImageBindings, ImageBinding{
			TextureType: u.Type.TextureType(),
			Units:       boundUnits(u, &arrayOffset),
		})
		l.combinedImageUniforms += u.ActiveStages.Count() * u.ElementCount()
	}
}

// linkAtomicCounterBuffers groups atomic counters by binding. A counter
// whose binding matches no buffer yet seen opens a new buffer at the end of
// the list.
func (l *linker) linkAtomicCounterBuffers() {
	uniforms := l.exe.Uniforms
	var buffers []AtomicCounterBuffer
	for i := l.exe.AtomicCounterUniformRange.Low; i < l.exe.AtomicCounterUniformRange.High; i++ {
		u := &uniforms[i]
		if u.Binding == -1 {
			u.Binding = 0
		}

		bufferIndex := -1
		for b := range buffers {
			if buffers[b].Binding == u.Binding {
				bufferIndex = b
				break
			}
		}
		if bufferIndex == -1 {
			buffers = append(buffers, AtomicCounterBuffer{ShaderVariableBuffer{Binding: u.Binding}})
			bufferIndex = len(buffers) - 1
		}
		buffer := &buffers[bufferIndex]

		offset := u.Offset
		if offset == -1 {
			offset = buffer.DataSize
		}
		u.BlockInfo.Offset = offset
		u.BlockInfo.ArrayStride = 0
		if u.IsArray() {
			u.BlockInfo.ArrayStride = 4
		}
		u.BlockInfo.MatrixStride = 0
		u.BlockInfo.IsRowMajorMatrix = false
		u.BufferIndex = bufferIndex

		buffer.MemberIndexes = append(buffer.MemberIndexes, i)
		buffer.ActiveStages |= u.ActiveStages
		buffer.DataSize = max(buffer.DataSize, offset+4*u.ElementCount())
	}
	l.exe.AtomicCounterBuffers = buffers
}
