package rewrite

import (
	"github.com/gogpu/shaderlink/ir"
	"github.com/gogpu/shaderlink/shader"
)

// RemoveInactive deletes interface declarations the shader never uses:
// inputs, outputs, default uniforms and packed blocks that are inactive in
// the reflected variable lists and unreferenced in the tree. It returns the
// number of declarations removed.
func RemoveInactive(module *ir.Module, s *shader.Shader) (int, error) {
	active := activeNames(s)
	var edits []ir.Edit
	for i := range module.GlobalVariables {
		g := &module.GlobalVariables[i]
		if g.Removed || g.Builtin != ir.BuiltinNone {
			continue
		}
		switch g.Qualifier {
		case ir.QualifierIn, ir.QualifierOut, ir.QualifierUniform, ir.QualifierBuffer:
		default:
			continue
		}
		handle := ir.GlobalVariableHandle(i)
		if module.UsesGlobal(handle) {
			continue
		}
		key := g.Name
		if g.Block {
			key = blockKey(blockTypeName(module, g.Type))
		}
		if active[key] {
			continue
		}
		edits = append(edits, ir.EditRemoveGlobal{Variable: handle})
	}
	return len(edits), ir.ApplyEdits(module, edits)
}

func blockTypeName(module *ir.Module, h ir.TypeHandle) string {
	if arr, ok := module.Types[h].Inner.(ir.ArrayType); ok {
		h = arr.Base
	}
	return module.Types[h].Name
}

func blockKey(name string) string {
	return "block " + name
}

// activeNames collects the names the link considers active. Blocks with a
// non-packed layout stay active without static use.
func activeNames(s *shader.Shader) map[string]bool {
	active := make(map[string]bool)
	if s == nil {
		return active
	}
	for _, list := range [][]shader.Variable{s.Attributes, s.InputVaryings, s.OutputVaryings, s.Outputs, s.Uniforms} {
		for i := range list {
			if list[i].Active {
				active[list[i].Name] = true
			}
		}
	}
	for _, list := range [][]shader.InterfaceBlock{s.UniformBlocks, s.StorageBlocks} {
		for i := range list {
			b := &list[i]
			if b.Active || b.Layout != shader.LayoutPacked {
				active[blockKey(b.Name)] = true
			}
		}
	}
	return active
}
