package link

import (
	"strings"

	"github.com/gogpu/shaderlink/shader"
)

// findOutputVarying looks up a captured output of the last pre-fragment
// stage by name, descending into struct varyings for "s.field" names.
func findOutputVarying(outputs []shader.Variable, name string) *shader.Variable {
	for i := range outputs {
		if outputs[i].Name == name {
			return &outputs[i]
		}
	}
	top, rest, ok := strings.Cut(name, ".")
	if !ok {
		return nil
	}
	for i := range outputs {
		if outputs[i].Name != top || !outputs[i].IsStruct() {
			continue
		}
		v := &outputs[i]
		for _, part := range strings.Split(rest, ".") {
			field, found := v.FindField(part)
			if !found {
				return nil
			}
			v = field
		}
		return v
	}
	return nil
}

// linkTransformFeedback validates the requested capture names against the
// last pre-fragment stage and records the captured varyings.
func (l *linker) linkTransformFeedback() error {
	names := l.in.TransformFeedbackVaryingNames
	if len(names) == 0 {
		return nil
	}
	caps := &l.in.Caps
	separate := l.in.TransformFeedbackBufferMode == TransformFeedbackSeparate
	if separate && len(names) > caps.MaxTransformFeedbackSeparateAttributes {
		return newError(ErrResourceExhausted, "Too many transform feedback varyings (%d) for separate mode, the maximum is %d.",
			len(names), caps.MaxTransformFeedbackSeparateAttributes)
	}

	outputs := l.lastPreFragmentStage().OutputVaryings
	unique := make(map[string]bool, len(names))
	totalComponents := 0
	for _, name := range names {
		if unique[name] {
			return newError(ErrInterfaceMismatch, "Two transform feedback varyings specify the same output variable (%s).", name)
		}
		unique[name] = true

		base, subscripts := shader.ParseResourceName(name)
		if len(subscripts) > 1 {
			return newError(ErrInterfaceMismatch, "Capturing arrays of arrays is not supported (%s).", name)
		}
		subscript := -1
		if len(subscripts) == 1 {
			subscript = subscripts[0]
		}

		v := findOutputVarying(outputs, base)
		if v == nil {
			return newError(ErrInterfaceMismatch, "Transform feedback varying %s does not exist in the vertex shader.", name)
		}
		if len(subscripts) == 1 {
			if !v.IsArray() {
				return newError(ErrInterfaceMismatch, "Transform feedback varying %s has index but is not an array.", name)
			}
			if subscript < 0 || subscript >= int(v.OutermostArraySize()) {
				return newError(ErrResourceExhausted,
					"Transform feedback varying %s has index greater than or equal to the array size.", name)
			}
		}

		elements := 1
		if v.IsArray() && subscript == -1 {
			elements = int(v.OutermostArraySize())
		}
		components := v.Type.ComponentCount() * elements
		if separate && components > caps.MaxTransformFeedbackSeparateComponents {
			return newError(ErrResourceExhausted,
				"Transform feedback varying %s components (%d) exceed the maximum separate components (%d).",
				name, components, caps.MaxTransformFeedbackSeparateComponents)
		}
		totalComponents += components
		if !separate && totalComponents > caps.MaxTransformFeedbackInterleavedComponents {
			return newError(ErrResourceExhausted,
				"Transform feedback varying total components (%d) exceed the maximum interleaved components (%d).",
				totalComponents, caps.MaxTransformFeedbackInterleavedComponents)
		}

		captured := v.Clone()
		captured.Name = base
		captured.MappedName = base
		captured.Fields = nil
		l.exe.TransformFeedbackVaryings = append(l.exe.TransformFeedbackVaryings, TransformFeedbackVarying{
			Variable:   captured,
			ArrayIndex: subscript,
		})
	}
	return nil
}
