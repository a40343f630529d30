package program

import (
	"github.com/gogpu/shaderlink/link"
	"github.com/gogpu/shaderlink/shader"
)

// Reflection queries answer for the last link only: they resolve a pending
// link and return -1 or nil unless it succeeded.

func (p *Program) linkedExecutable() *link.Executable {
	_ = p.ResolveLink()
	if p.state != StateLinked {
		return nil
	}
	return p.linked.Executable
}

func (p *Program) index(query func(*link.Executable, string) int, name string) int {
	exe := p.linkedExecutable()
	if exe == nil {
		return -1
	}
	return query(exe, name)
}

// GetAttributeLocation returns the location of an active attribute.
func (p *Program) GetAttributeLocation(name string) int {
	return p.index((*link.Executable).AttributeLocation, name)
}

// GetUniformLocation returns the location of a default block uniform, with
// an optional array subscript.
func (p *Program) GetUniformLocation(name string) int {
	return p.index((*link.Executable).UniformLocation, name)
}

// GetUniformIndex returns the index of an active uniform.
func (p *Program) GetUniformIndex(name string) int {
	return p.index((*link.Executable).UniformIndex, name)
}

// GetBufferVariableIndex returns the index of a storage block member.
func (p *Program) GetBufferVariableIndex(name string) int {
	return p.index((*link.Executable).BufferVariableIndex, name)
}

// GetUniformBlockIndex returns the index of a uniform block.
func (p *Program) GetUniformBlockIndex(name string) int {
	return p.index((*link.Executable).UniformBlockIndex, name)
}

// GetStorageBlockIndex returns the index of a shader storage block.
func (p *Program) GetStorageBlockIndex(name string) int {
	return p.index((*link.Executable).StorageBlockIndex, name)
}

// GetFragDataLocation returns the draw buffer of a fragment output.
func (p *Program) GetFragDataLocation(name string) int {
	return p.index((*link.Executable).FragDataLocation, name)
}

// GetFragDataIndex returns the dual-source blend index of a fragment output.
func (p *Program) GetFragDataIndex(name string) int {
	return p.index((*link.Executable).FragDataIndex, name)
}

// GetOutputResourceIndex returns the program interface index of a fragment
// output.
func (p *Program) GetOutputResourceIndex(name string) int {
	return p.index((*link.Executable).OutputResourceIndex, name)
}

// GetTransformFeedbackVaryingIndex returns the capture slot of a varying.
func (p *Program) GetTransformFeedbackVaryingIndex(name string) int {
	return p.index((*link.Executable).TransformFeedbackVaryingIndex, name)
}

// GetTransformFeedbackVarying returns captured varying i.
func (p *Program) GetTransformFeedbackVarying(i int) (link.TransformFeedbackVarying, bool) {
	exe := p.linkedExecutable()
	if exe == nil || i < 0 || i >= len(exe.TransformFeedbackVaryings) {
		return link.TransformFeedbackVarying{}, false
	}
	return exe.TransformFeedbackVaryings[i], true
}

// ActiveAttributes returns the active attributes in location order.
func (p *Program) ActiveAttributes() []shader.Variable {
	exe := p.linkedExecutable()
	if exe == nil {
		return nil
	}
	return exe.ActiveAttributes()
}

// ActiveUniforms returns the active uniforms.
func (p *Program) ActiveUniforms() []link.LinkedUniform {
	exe := p.linkedExecutable()
	if exe == nil {
		return nil
	}
	return exe.ActiveUniforms()
}
