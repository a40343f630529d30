// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"fmt"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/gogpu/shaderlink/ir"
)

// VaryingLocations numbers the user varyings a stage exchanges with the
// next one: the outputs of vertex and geometry stages, the inputs of a
// fragment stage. Declared locations are kept; the rest are packed in name
// order into the first free run of slots.
func VaryingLocations(module *ir.Module) map[string]int {
	q := ir.QualifierOut
	if module.Stage == ir.StageFragment {
		q = ir.QualifierIn
	}
	return varyingLocations(module, q)
}

// ProgramVaryingLocations numbers the user varyings of every stage of a
// program at once, in pipeline order, so that all stages can be compiled
// with the same Options.VaryingLocations. A name gets one location across
// all interfaces; declared locations are kept and the rest are packed in
// name order.
func ProgramVaryingLocations(modules ...*ir.Module) map[string]int {
	locations := make(map[string]int)
	sizes := make(map[string]int)
	used := make(map[int]bool)
	for _, module := range modules {
		if module == nil {
			continue
		}
		for i := range module.GlobalVariables {
			g := &module.GlobalVariables[i]
			if g.Removed || g.Builtin != ir.BuiltinNone || !isVarying(module.Stage, g.Qualifier) {
				continue
			}
			h := g.Type
			if module.Stage == ir.StageGeometry && g.Qualifier == ir.QualifierIn {
				if arr, ok := module.Types[h].Inner.(ir.ArrayType); ok {
					h = arr.Base
				}
			}
			n := locationCount(module, h)
			if g.Layout.Location >= 0 {
				if _, ok := locations[g.Name]; !ok {
					locations[g.Name] = g.Layout.Location
					for l := g.Layout.Location; l < g.Layout.Location+n; l++ {
						used[l] = true
					}
				}
				continue
			}
			sizes[g.Name] = max(sizes[g.Name], n)
		}
	}

	names := maps.Keys(sizes)
	slices.Sort(names)
	for _, name := range names {
		if _, ok := locations[name]; ok {
			continue
		}
		loc := firstFreeRun(used, sizes[name])
		locations[name] = loc
		for l := loc; l < loc+sizes[name]; l++ {
			used[l] = true
		}
	}
	return locations
}

func isVarying(stage ir.ShaderStage, q ir.StorageQualifier) bool {
	switch stage {
	case ir.StageVertex:
		return q == ir.QualifierOut
	case ir.StageGeometry:
		return q == ir.QualifierIn || q == ir.QualifierOut
	case ir.StageFragment:
		return q == ir.QualifierIn
	}
	return false
}

func varyingLocations(module *ir.Module, q ir.StorageQualifier) map[string]int {
	locations := make(map[string]int)
	sizes := make(map[string]int)
	used := make(map[int]bool)
	for i := range module.GlobalVariables {
		g := &module.GlobalVariables[i]
		if g.Removed || g.Qualifier != q || g.Builtin != ir.BuiltinNone {
			continue
		}
		n := locationCount(module, g.Type)
		if g.Layout.Location >= 0 {
			locations[g.Name] = g.Layout.Location
			for l := g.Layout.Location; l < g.Layout.Location+n; l++ {
				used[l] = true
			}
			continue
		}
		sizes[g.Name] = n
	}

	names := maps.Keys(sizes)
	slices.Sort(names)
	for _, name := range names {
		loc := firstFreeRun(used, sizes[name])
		locations[name] = loc
		for l := loc; l < loc+sizes[name]; l++ {
			used[l] = true
		}
	}
	return locations
}

func firstFreeRun(used map[int]bool, n int) int {
	for start := 0; ; start++ {
		free := true
		for l := start; l < start+n; l++ {
			if used[l] {
				free = false
				break
			}
		}
		if free {
			return start
		}
	}
}

// locationCount returns the number of interface locations a type consumes.
func locationCount(module *ir.Module, h ir.TypeHandle) int {
	switch t := module.Types[h].Inner.(type) {
	case ir.MatrixType:
		return int(t.Columns)
	case ir.ArrayType:
		size := int(t.Size)
		if size == 0 {
			size = 1
		}
		return size * locationCount(module, t.Base)
	case ir.StructType:
		n := 0
		for _, m := range t.Members {
			n += locationCount(module, m.Type)
		}
		return n
	}
	return 1
}

// resourceKey maps a reflected uniform name to the name of the top-level
// declaration holding it: "s[1].tex" -> "s_tex", "u[0]" -> "u".
func resourceKey(name string) string {
	var sb strings.Builder
	depth := 0
	for _, r := range name {
		switch {
		case r == '[':
			depth++
		case r == ']':
			depth--
		case depth > 0:
		case r == '.':
			sb.WriteByte('_')
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func peelArrays(module *ir.Module, h ir.TypeHandle) ir.TypeHandle {
	for {
		arr, ok := module.Types[h].Inner.(ir.ArrayType)
		if !ok {
			return h
		}
		h = arr.Base
	}
}

func blockName(module *ir.Module, g *ir.GlobalVariable) string {
	return module.Types[peelArrays(module, g.Type)].Name
}

// assignResources places every live interface declaration. Textures and
// blocks follow the executable's order when one is supplied, declarations
// the executable does not list follow in declaration order.
//
//nolint:gocognit,gocyclo,cyclop // One branch per declaration class
func (w *Writer) assignResources() error {
	module := w.module
	stage := module.Stage

	var textures, blocks, storage []ir.GlobalVariableHandle
	textureByName := make(map[string]ir.GlobalVariableHandle)
	blockByName := make(map[string]ir.GlobalVariableHandle)
	for i := range module.GlobalVariables {
		g := &module.GlobalVariables[i]
		h := ir.GlobalVariableHandle(i)
		if g.Removed {
			continue
		}
		switch {
		case g.Block && g.Layout.Set >= 0 && g.Layout.Binding >= 0:
			w.place(h, g.Name, w.resource(g.Layout.Set, g.Layout.Binding))
		case g.Block && g.Qualifier == ir.QualifierUniform:
			blocks = append(blocks, h)
			blockByName[blockName(module, g)] = h
		case g.Block && g.Qualifier == ir.QualifierBuffer:
			storage = append(storage, h)
			blockByName[blockName(module, g)] = h
		case g.Qualifier == ir.QualifierUniform && g.Builtin == ir.BuiltinNone:
			switch module.Types[peelArrays(module, g.Type)].Inner.(type) {
			case ir.AtomicCounterType:
				if w.options.LangVersion.Vulkan() {
					return fmt.Errorf("atomic counter %q must be rewritten before Vulkan code generation", g.Name)
				}
				binding := g.Layout.Binding
				if binding < 0 {
					binding = 0
				}
				w.place(h, g.Name, w.resource(-1, binding))
			case ir.SamplerType, ir.ImageType:
				textures = append(textures, h)
				textureByName[g.Name] = h
			default:
				w.defaultUniforms = append(w.defaultUniforms, h)
			}
		}
	}

	// textures
	next := 0
	assign := func(h ir.GlobalVariableHandle, set int) {
		if _, done := w.placement[h]; done {
			return
		}
		g := &module.GlobalVariables[h]
		key := g.Name
		if g.Block {
			key = blockName(module, g)
		}
		w.place(h, key, w.resource(set, next))
		next++
	}
	if exe := w.options.Executable; exe != nil {
		for _, r := range []struct{ low, high int }{
			{exe.SamplerUniformRange.Low, exe.SamplerUniformRange.High},
			{exe.ImageUniformRange.Low, exe.ImageUniformRange.High},
		} {
			for i := r.low; i < r.high && i < len(exe.Uniforms); i++ {
				if h, ok := textureByName[resourceKey(exe.Uniforms[i].Name)]; ok {
					assign(h, TextureSet)
				}
			}
		}
	}
	for _, h := range textures {
		assign(h, TextureSet)
	}

	// uniform blocks, then storage blocks
	next = 0
	if exe := w.options.Executable; exe != nil {
		for i := range exe.UniformBlocks {
			if h, ok := blockByName[exe.UniformBlocks[i].Name]; ok && !module.GlobalVariables[h].Removed &&
				module.GlobalVariables[h].Qualifier == ir.QualifierUniform {
				assign(h, BufferSet)
			}
		}
	}
	for _, h := range blocks {
		assign(h, BufferSet)
	}
	if exe := w.options.Executable; exe != nil {
		for i := range exe.ShaderStorageBlocks {
			if h, ok := blockByName[exe.ShaderStorageBlocks[i].Name]; ok &&
				module.GlobalVariables[h].Qualifier == ir.QualifierBuffer {
				assign(h, BufferSet)
			}
		}
	}
	for _, h := range storage {
		assign(h, BufferSet)
	}

	// default uniforms share one block
	if len(w.defaultUniforms) > 0 {
		binding := DefaultUniformsBinding(stage)
		w.variables[DefaultUniformsBlockName] = w.resource(DriverUniformsSet, binding)
		for _, h := range w.defaultUniforms {
			w.variables[module.GlobalVariables[h].Name] = w.resource(DriverUniformsSet, binding)
		}
	}

	return w.assignLocations()
}

//nolint:gocognit // Inputs and outputs differ per stage
func (w *Writer) assignLocations() error {
	module := w.module
	stage := module.Stage
	exe := w.options.Executable

	var varyingIn, varyingOut map[string]int
	varying := func(q ir.StorageQualifier, name string) (int, bool) {
		pinned := w.options.VaryingLocations
		fallback := &varyingOut
		if q == ir.QualifierIn {
			fallback = &varyingIn
		}
		if pinned != nil {
			if loc, ok := pinned[name]; ok {
				return loc, true
			}
		}
		if *fallback == nil {
			*fallback = varyingLocations(module, q)
			if pinned != nil {
				// keep generated slots clear of the pinned ones
				shift := 0
				for name, loc := range pinned {
					n := 1
					if h, ok := module.FindGlobal(name); ok {
						n = locationCount(module, module.GlobalVariables[h].Type)
					}
					shift = max(shift, loc+n)
				}
				for n, loc := range *fallback {
					(*fallback)[n] = loc + shift
				}
			}
		}
		loc, ok := (*fallback)[name]
		return loc, ok
	}

	attributes := make(map[int]bool)
	outputs := make(map[int]bool)
	for i := range module.GlobalVariables {
		g := &module.GlobalVariables[i]
		h := ir.GlobalVariableHandle(i)
		if g.Removed || g.Block {
			continue
		}
		if g.Qualifier != ir.QualifierIn && g.Qualifier != ir.QualifierOut {
			continue
		}
		switch g.Builtin {
		case ir.BuiltinNone:
		case ir.BuiltinFragColor, ir.BuiltinFragData:
			w.place(h, g.Name, w.location(0, -1))
			outputs[0] = true
			continue
		default:
			continue
		}

		info := w.location(g.Layout.Location, g.Layout.Index)
		switch {
		case stage == ir.StageVertex && g.Qualifier == ir.QualifierIn:
			if info.Location < 0 && exe != nil {
				info.Location = exe.AttributeLocation(g.Name)
			}
			if info.Location < 0 {
				info.Location = firstFreeRun(attributes, locationCount(module, g.Type))
			}
			for l := info.Location; l < info.Location+locationCount(module, g.Type); l++ {
				attributes[l] = true
			}
		case stage == ir.StageFragment && g.Qualifier == ir.QualifierOut:
			if info.Location < 0 && exe != nil {
				info.Location = exe.FragDataLocation(g.Name)
				if info.Index < 0 {
					info.Index = exe.FragDataIndex(g.Name)
				}
			}
			if info.Location < 0 {
				info.Location = firstFreeRun(outputs, locationCount(module, g.Type))
			}
			if info.Index <= 0 {
				for l := info.Location; l < info.Location+locationCount(module, g.Type); l++ {
					outputs[l] = true
				}
			}
		case stage == ir.StageCompute:
			continue
		default:
			if info.Location < 0 {
				loc, ok := varying(g.Qualifier, g.Name)
				if !ok {
					return fmt.Errorf("no location for varying %q", g.Name)
				}
				info.Location = loc
			}
		}
		w.place(h, g.Name, info)
	}
	return nil
}

// place records a declaration and its reflection entry.
func (w *Writer) place(h ir.GlobalVariableHandle, key string, info VariableInfo) {
	w.placement[h] = info
	w.variables[key] = info
}

func (w *Writer) resource(set, binding int) VariableInfo {
	info := noVariableInfo(w.module.Stage)
	info.DescriptorSet = set
	info.Binding = binding
	return info
}

func (w *Writer) location(location, index int) VariableInfo {
	info := noVariableInfo(w.module.Stage)
	info.Location = location
	info.Index = index
	return info
}
