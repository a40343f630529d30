package link

import (
	"github.com/gogpu/shaderlink/shader"
)

// splitQueryName splits a reflection query into its base name and element.
// "u" and "u[0]" both address element 0; hasIndex is false for "u".
func splitQueryName(name string) (base string, element int, hasIndex bool) {
	base, index, ok := shader.StripLastArrayIndex(name)
	if !ok {
		return name, 0, false
	}
	return base, index, true
}

// AttributeLocation returns the location of the active attribute, or -1.
func (e *Executable) AttributeLocation(name string) int {
	for i := range e.ProgramInputs {
		a := &e.ProgramInputs[i]
		if a.Name == name && !a.IsBuiltIn() {
			return a.Location
		}
	}
	return -1
}

// ActiveAttributes returns the externally visible attributes; builtins are
// excluded.
func (e *Executable) ActiveAttributes() []shader.Variable {
	var out []shader.Variable
	for i := range e.ProgramInputs {
		if !e.ProgramInputs[i].IsBuiltIn() {
			out = append(out, e.ProgramInputs[i])
		}
	}
	return out
}

// UniformLocation returns the location of a uniform element: "u" and "u[0]"
// resolve to element 0, "u[3]" to element 3, "s[1].f" to a struct leaf.
func (e *Executable) UniformLocation(name string) int {
	base, element, hasIndex := splitQueryName(name)
	for loc, vl := range e.UniformLocations {
		if !vl.Used() || vl.Ignored {
			continue
		}
		u := &e.Uniforms[vl.Index]
		if u.Name == name && vl.ArrayIndex == 0 {
			return loc
		}
		if !u.IsArray() {
			continue
		}
		if hasIndex && u.BaseName() == base && vl.ArrayIndex == element {
			return loc
		}
		if !hasIndex && u.BaseName() == name && vl.ArrayIndex == 0 {
			return loc
		}
	}
	return -1
}

// UniformIndex returns the index of the uniform called name or name[0], or
// -1.
func (e *Executable) UniformIndex(name string) int {
	return resourceIndex(len(e.Uniforms), func(i int) *shader.Variable { return &e.Uniforms[i].Variable }, name)
}

// BufferVariableIndex returns the index of the buffer variable, or -1.
func (e *Executable) BufferVariableIndex(name string) int {
	return resourceIndex(len(e.BufferVariables), func(i int) *shader.Variable { return &e.BufferVariables[i].Variable }, name)
}

// TransformFeedbackVaryingIndex returns the index of the captured varying
// by its name with array index, or -1.
func (e *Executable) TransformFeedbackVaryingIndex(name string) int {
	for i := range e.TransformFeedbackVaryings {
		if e.TransformFeedbackVaryings[i].NameWithArrayIndex() == name {
			return i
		}
	}
	return -1
}

func resourceIndex(n int, at func(int) *shader.Variable, name string) int {
	asArray := shader.BaseElementName(name)
	for i := 0; i < n; i++ {
		v := at(i)
		if v.Name == name || (v.IsArray() && v.Name == asArray) {
			return i
		}
	}
	return -1
}

// UniformBlockIndex returns the index of the uniform block element, or -1.
// Elements of block arrays are queried as "B[i]".
func (e *Executable) UniformBlockIndex(name string) int {
	return blockIndex(e.UniformBlocks, name)
}

// StorageBlockIndex returns the index of the storage block element, or -1.
func (e *Executable) StorageBlockIndex(name string) int {
	return blockIndex(e.ShaderStorageBlocks, name)
}

func blockIndex(blocks []InterfaceBlock, name string) int {
	base, element, hasIndex := splitQueryName(name)
	for i := range blocks {
		b := &blocks[i]
		if !b.IsArray && !hasIndex && b.Name == name {
			return i
		}
		if b.IsArray && hasIndex && b.Name == base && b.ArrayElement == element {
			return i
		}
	}
	return -1
}

// FragDataLocation returns the location of a fragment output element,
// looking in the primary table first and the secondary table after.
func (e *Executable) FragDataLocation(name string) int {
	if loc := outputLocation(e.OutputVariables, e.OutputLocations, name); loc != -1 {
		return loc
	}
	return outputLocation(e.OutputVariables, e.SecondaryOutputLocations, name)
}

// FragDataIndex returns 0 for outputs in the primary table, 1 for the
// secondary table and -1 when the output is unknown.
func (e *Executable) FragDataIndex(name string) int {
	if outputLocation(e.OutputVariables, e.OutputLocations, name) != -1 {
		return 0
	}
	if outputLocation(e.OutputVariables, e.SecondaryOutputLocations, name) != -1 {
		return 1
	}
	return -1
}

func outputLocation(outputs []shader.Variable, locations []VariableLocation, name string) int {
	base, element, hasIndex := splitQueryName(name)
	for loc, vl := range locations {
		if !vl.Used() {
			continue
		}
		v := &outputs[vl.Index]
		if v.Name == name && vl.ArrayIndex == 0 {
			return loc
		}
		if hasIndex && v.IsArray() && v.Name == base && vl.ArrayIndex == element {
			return loc
		}
	}
	return -1
}

// OutputResourceIndex returns the index of the fragment output called name,
// accepting a trailing element subscript.
func (e *Executable) OutputResourceIndex(name string) int {
	base, _, hasIndex := splitQueryName(name)
	for i := range e.OutputVariables {
		v := &e.OutputVariables[i]
		if v.Name == name || (hasIndex && v.IsArray() && v.Name == base) {
			return i
		}
	}
	return -1
}

// ActiveUniforms returns the uniforms reported by reflection.
func (e *Executable) ActiveUniforms() []LinkedUniform {
	return e.Uniforms
}
