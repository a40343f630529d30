package rewrite

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/shaderlink/ir"
)

const flattenPass = "FlattenStructSamplers"

// ExtractedSampler is an opaque member hoisted out of a struct uniform into
// its own top-level uniform.
type ExtractedSampler struct {
	Variable ir.GlobalVariableHandle
	// Name is the new uniform, e.g. "s_tex".
	Name string
	// Uniform and Field name the original location, e.g. "s" and "inner.tex".
	Uniform string
	Field   string
	// ArraySizes are the array dimensions of the original uniform, which the
	// extracted uniform keeps as its outer dimensions.
	ArraySizes []uint32
}

// ReflectionName returns the original name of one element of the extracted
// uniform, numbering elements of the outer arrays row-major: "s[1].tex".
func (e ExtractedSampler) ReflectionName(element int) string {
	if len(e.ArraySizes) == 0 {
		return e.Uniform + "." + e.Field
	}
	subscripts := make([]int, len(e.ArraySizes))
	for i := len(e.ArraySizes) - 1; i >= 0; i-- {
		size := int(e.ArraySizes[i])
		subscripts[i] = element % size
		element /= size
	}
	var sb strings.Builder
	sb.WriteString(e.Uniform)
	for _, s := range subscripts {
		fmt.Fprintf(&sb, "[%d]", s)
	}
	sb.WriteString(".")
	sb.WriteString(e.Field)
	return sb.String()
}

// FlattenResult reports the changes made by FlattenStructSamplers.
type FlattenResult struct {
	// Removed counts struct uniforms deleted from the default block because
	// nothing but opaque members was left in them.
	Removed   int
	Extracted []ExtractedSampler
}

// strippedStruct is a struct type with its opaque members taken out.
type strippedStruct struct {
	handle ir.TypeHandle
	keep   bool
	// remap maps old member indices to new ones, -1 when dropped.
	remap  []int
	opaque []bool
}

type flattener struct {
	module  *ir.Module
	types   *ir.TypeRegistry
	structs map[ir.TypeHandle]*strippedStruct
}

type leafPath struct {
	members []uint32
	names   []string
	typ     ir.TypeHandle
}

type accessStep struct {
	member  bool
	index   uint32
	dynamic *ir.ExpressionHandle
}

// FlattenStructSamplers moves samplers and images declared inside struct
// uniforms into top-level uniforms named <uniform>_<member>:
//
//	struct S { vec4 tint; sampler2D tex; };
//	uniform S s[2];            // s[i].tex  ->  s_tex[i]
//
// The struct is redeclared without its opaque members; a uniform left
// without members is removed. Running the pass again is a no-op.
func FlattenStructSamplers(module *ir.Module, types *ir.TypeRegistry) (FlattenResult, error) {
	if types == nil {
		types = ir.NewTypeRegistry(module)
	}
	f := &flattener{module: module, types: types, structs: make(map[ir.TypeHandle]*strippedStruct)}

	var res FlattenResult
	var edits []ir.Edit
	candidates := make(map[ir.GlobalVariableHandle]bool)
	extracted := make(map[string]ir.GlobalVariableHandle)

	count := len(module.GlobalVariables)
	for i := 0; i < count; i++ {
		g := module.GlobalVariables[i]
		if g.Removed || g.Qualifier != ir.QualifierUniform || g.Block {
			continue
		}
		structType, dims := f.peelArrays(g.Type)
		if !f.isStruct(structType) || !f.containsOpaque(structType) {
			continue
		}
		handle := ir.GlobalVariableHandle(i)
		stripped, err := f.strip(structType)
		if err != nil {
			return FlattenResult{}, err
		}

		var leaves []leafPath
		f.leaves(structType, nil, nil, &leaves)
		for _, leaf := range leaves {
			name := f.uniqueName(g.Name + "_" + strings.Join(leaf.names, "_"))
			nh := module.AddGlobal(ir.GlobalVariable{
				Name:      name,
				Type:      f.wrap(leaf.typ, dims),
				Qualifier: ir.QualifierUniform,
				Layout:    ir.NoLayout(),
				Precision: g.Precision,
			})
			extracted[pathKey(handle, leaf.members)] = nh
			res.Extracted = append(res.Extracted, ExtractedSampler{
				Variable:   nh,
				Name:       name,
				Uniform:    g.Name,
				Field:      strings.Join(leaf.names, "."),
				ArraySizes: dims,
			})
		}

		if stripped.keep {
			edits = append(edits, ir.EditRetypeGlobal{Variable: handle, Type: f.wrap(stripped.handle, dims)})
		} else {
			edits = append(edits, ir.EditRemoveGlobal{Variable: handle})
			res.Removed++
		}
		candidates[handle] = true
	}
	if len(candidates) == 0 {
		return res, nil
	}

	for fi := range module.Functions {
		fh := ir.FunctionHandle(fi)
		if err := f.checkWholeUses(fh, candidates); err != nil {
			return FlattenResult{}, err
		}
		fnEdits, err := f.rewriteAccesses(fh, candidates, extracted)
		if err != nil {
			return FlattenResult{}, err
		}
		edits = append(edits, fnEdits...)
	}
	if err := ir.ApplyEdits(module, edits); err != nil {
		return FlattenResult{}, err
	}
	return res, nil
}

// rewriteAccesses redirects opaque member accesses to the extracted uniforms
// and renumbers data member accesses of stripped structs.
func (f *flattener) rewriteAccesses(fh ir.FunctionHandle, candidates map[ir.GlobalVariableHandle]bool,
	extracted map[string]ir.GlobalVariableHandle,
) ([]ir.Edit, error) {
	module := f.module
	b := ir.NewBuilder(module, fh, f.types)
	var edits []ir.Edit
	count := len(module.Functions[fh].Expressions)
	for i := 0; i < count; i++ {
		h := ir.ExpressionHandle(i)
		fn := &module.Functions[fh]
		acc, ok := fn.Expressions[h].Kind.(ir.ExprAccessIndex)
		if !ok {
			continue
		}
		base, err := ir.ResolveExpressionType(module, fn, acc.Base)
		if err != nil || base.Handle == nil {
			continue
		}
		st, ok := f.structs[*base.Handle]
		if !ok {
			continue
		}
		root, steps, ok := f.chain(fn, h)
		if !ok || !candidates[root] {
			return nil, unsupported(flattenPass, "struct %q with opaque members is only supported in uniforms",
				module.Types[*base.Handle].Name)
		}

		if int(acc.Index) < len(st.opaque) && st.opaque[acc.Index] {
			first := len(steps)
			var members []uint32
			for si, s := range steps {
				if s.member {
					if first == len(steps) {
						first = si
					}
					members = append(members, s.index)
				}
			}
			target, ok := extracted[pathKey(root, members)]
			if !ok {
				return nil, unsupported(flattenPass, "opaque member %d of %q has no extracted uniform",
					acc.Index, module.GlobalVariables[root].Name)
			}
			edits = append(edits, ir.EditReplaceExpression{
				Function:   fh,
				Expression: h,
				Kind:       rebuildChain(b, target, steps[:first]),
			})
			continue
		}
		if next := st.remap[acc.Index]; next >= 0 && uint32(next) != acc.Index {
			edits = append(edits, ir.EditReplaceExpression{
				Function:   fh,
				Expression: h,
				Kind:       ir.ExprAccessIndex{Base: acc.Base, Index: uint32(next)},
			})
		}
	}
	return edits, nil
}

// rebuildChain returns the expression kind selecting the same outer array
// element of target. Dynamic indices are reused; the old chain holding them
// becomes unreachable.
func rebuildChain(b *ir.Builder, target ir.GlobalVariableHandle, outer []accessStep) ir.ExpressionKind {
	var kind ir.ExpressionKind = ir.ExprGlobalVariable{Variable: target}
	for _, s := range outer {
		base := b.Expr(kind)
		if s.dynamic != nil {
			kind = ir.ExprAccess{Base: base, Index: *s.dynamic}
		} else {
			kind = ir.ExprAccessIndex{Base: base, Index: s.index}
		}
	}
	return kind
}

// chain walks an access chain down to its root global.
func (f *flattener) chain(fn *ir.Function, h ir.ExpressionHandle) (ir.GlobalVariableHandle, []accessStep, bool) {
	var steps []accessStep
	for depth := 0; depth < 64; depth++ {
		switch k := fn.Expressions[h].Kind.(type) {
		case ir.ExprGlobalVariable:
			for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
				steps[i], steps[j] = steps[j], steps[i]
			}
			return k.Variable, steps, true
		case ir.ExprAccess:
			index := k.Index
			steps = append(steps, accessStep{dynamic: &index})
			h = k.Base
		case ir.ExprAccessIndex:
			res, err := ir.ResolveExpressionType(f.module, fn, k.Base)
			if err != nil {
				return 0, nil, false
			}
			_, member := res.Inner(f.module).(ir.StructType)
			steps = append(steps, accessStep{member: member, index: k.Index})
			h = k.Base
		default:
			return 0, nil, false
		}
	}
	return 0, nil, false
}

// checkWholeUses rejects reachable uses of a candidate uniform that do not
// end in a member access, such as passing the struct to a function.
func (f *flattener) checkWholeUses(fh ir.FunctionHandle, candidates map[ir.GlobalVariableHandle]bool) error {
	fn := &f.module.Functions[fh]
	parents := make(map[ir.ExpressionHandle]ir.ExpressionHandle)
	var roots []ir.ExpressionHandle
	fn.WalkExpressions(func(h ir.ExpressionHandle) {
		if int(h) >= len(fn.Expressions) {
			return
		}
		for _, c := range ir.ExpressionChildren(fn.Expressions[h].Kind) {
			parents[c] = h
		}
		if g, ok := fn.Expressions[h].Kind.(ir.ExprGlobalVariable); ok && candidates[g.Variable] {
			roots = append(roots, h)
		}
	})

roots:
	for _, h := range roots {
		name := f.module.GlobalVariables[fn.Expressions[h].Kind.(ir.ExprGlobalVariable).Variable].Name
		cur := h
		for {
			p, ok := parents[cur]
			if !ok {
				return unsupported(flattenPass, "uniform %q is used as a whole in %s", name, fn.Name)
			}
			switch k := fn.Expressions[p].Kind.(type) {
			case ir.ExprAccess:
				if k.Base != cur {
					return unsupported(flattenPass, "uniform %q is used as an index in %s", name, fn.Name)
				}
			case ir.ExprAccessIndex:
				res, err := ir.ResolveExpressionType(f.module, fn, cur)
				if err != nil {
					return err
				}
				if _, isStruct := res.Inner(f.module).(ir.StructType); isStruct {
					continue roots
				}
			default:
				return unsupported(flattenPass, "uniform %q is used as a whole in %s", name, fn.Name)
			}
			cur = p
		}
	}
	return nil
}

// strip returns the struct without opaque members, memoized per type.
func (f *flattener) strip(h ir.TypeHandle) (*strippedStruct, error) {
	if s, ok := f.structs[h]; ok {
		return s, nil
	}
	st := f.module.Types[h].Inner.(ir.StructType)
	s := &strippedStruct{remap: make([]int, len(st.Members)), opaque: make([]bool, len(st.Members))}
	var members []ir.StructMember
	for i, m := range st.Members {
		s.remap[i] = -1
		switch {
		case f.isOpaqueLeaf(m.Type):
			s.opaque[i] = true
			continue
		case f.isStruct(m.Type) && f.containsOpaque(m.Type):
			inner, err := f.strip(m.Type)
			if err != nil {
				return nil, err
			}
			if !inner.keep {
				continue
			}
			m.Type = inner.handle
		case f.containsOpaque(m.Type):
			return nil, unsupported(flattenPass, "member %q of struct %q is an array of structs with opaque members",
				m.Name, f.module.Types[h].Name)
		}
		s.remap[i] = len(members)
		members = append(members, m)
	}
	if len(members) > 0 {
		s.keep = true
		s.handle = f.types.GetOrCreate(f.module.Types[h].Name, ir.StructType{Members: members})
	}
	f.structs[h] = s
	return s, nil
}

// leaves lists the opaque members of a struct, descending into nested
// structs.
func (f *flattener) leaves(h ir.TypeHandle, members []uint32, names []string, out *[]leafPath) {
	st := f.module.Types[h].Inner.(ir.StructType)
	for i, m := range st.Members {
		path := append(append([]uint32(nil), members...), uint32(i))
		memberNames := append(append([]string(nil), names...), m.Name)
		switch {
		case f.isOpaqueLeaf(m.Type):
			*out = append(*out, leafPath{members: path, names: memberNames, typ: m.Type})
		case f.isStruct(m.Type) && f.containsOpaque(m.Type):
			f.leaves(m.Type, path, memberNames, out)
		}
	}
}

func (f *flattener) isStruct(h ir.TypeHandle) bool {
	_, ok := f.module.Types[h].Inner.(ir.StructType)
	return ok
}

func (f *flattener) isOpaqueLeaf(h ir.TypeHandle) bool {
	base, _ := f.peelArrays(h)
	return ir.IsOpaque(f.module.Types[base].Inner)
}

func (f *flattener) containsOpaque(h ir.TypeHandle) bool {
	switch t := f.module.Types[h].Inner.(type) {
	case ir.ArrayType:
		return f.containsOpaque(t.Base)
	case ir.StructType:
		for _, m := range t.Members {
			if f.containsOpaque(m.Type) {
				return true
			}
		}
		return false
	default:
		return ir.IsOpaque(t)
	}
}

func (f *flattener) peelArrays(h ir.TypeHandle) (ir.TypeHandle, []uint32) {
	var dims []uint32
	for {
		arr, ok := f.module.Types[h].Inner.(ir.ArrayType)
		if !ok {
			return h, dims
		}
		dims = append(dims, arr.Size)
		h = arr.Base
	}
}

func (f *flattener) wrap(h ir.TypeHandle, dims []uint32) ir.TypeHandle {
	for i := len(dims) - 1; i >= 0; i-- {
		h = f.types.Array(h, dims[i])
	}
	return h
}

func (f *flattener) uniqueName(name string) string {
	for {
		if _, taken := f.module.FindGlobal(name); !taken {
			return name
		}
		name += "_"
	}
}

func pathKey(root ir.GlobalVariableHandle, members []uint32) string {
	var sb strings.Builder
	sb.WriteString(strconv.FormatUint(uint64(root), 10))
	for _, m := range members {
		sb.WriteByte('.')
		sb.WriteString(strconv.FormatUint(uint64(m), 10))
	}
	return sb.String()
}
