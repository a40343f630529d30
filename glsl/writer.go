// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"fmt"
	"strings"

	"github.com/gogpu/shaderlink/ir"
)

// nameKey identifies an IR entity for name lookup.
type nameKey struct {
	kind    nameKeyKind
	handle1 uint32
	handle2 uint32
}

type nameKeyKind uint8

const (
	nameKeyType nameKeyKind = iota
	nameKeyGlobalVariable
	nameKeyFunction
	nameKeyFunctionArgument
	nameKeyLocal
)

// Writer generates GLSL source code from IR.
type Writer struct {
	module  *ir.Module
	options *Options

	// Output buffer
	out strings.Builder

	// Current indentation level
	indent int

	// Name management
	names map[nameKey]string
	namer *namer

	// Function context (set during function writing)
	currentFunction   *ir.Function
	currentFuncHandle ir.FunctionHandle

	// Reachable functions in callee-first order, entry point excluded
	functions []ir.FunctionHandle
	// Reachable struct types in dependency order, block types excluded
	structs    []ir.TypeHandle
	blockTypes map[ir.TypeHandle]bool

	// Resource placement
	placement       map[ir.GlobalVariableHandle]VariableInfo
	variables       map[string]VariableInfo
	defaultUniforms []ir.GlobalVariableHandle

	extensions []string
}

// namer generates unique identifiers.
type namer struct {
	usedNames map[string]struct{}
	counter   uint32
}

func newNamer() *namer {
	return &namer{
		usedNames: map[string]struct{}{"main": {}},
	}
}

// call generates a unique name based on the given base.
func (n *namer) call(base string) string {
	escaped := escapeKeyword(base)

	if _, used := n.usedNames[escaped]; !used {
		n.usedNames[escaped] = struct{}{}
		return escaped
	}

	for {
		n.counter++
		candidate := fmt.Sprintf("%s_%d", escaped, n.counter)
		if _, used := n.usedNames[candidate]; !used {
			n.usedNames[candidate] = struct{}{}
			return candidate
		}
	}
}

// newWriter creates a new GLSL writer.
func newWriter(module *ir.Module, options *Options) *Writer {
	return &Writer{
		module:     module,
		options:    options,
		names:      make(map[nameKey]string),
		namer:      newNamer(),
		blockTypes: make(map[ir.TypeHandle]bool),
		placement:  make(map[ir.GlobalVariableHandle]VariableInfo),
		variables:  make(map[string]VariableInfo),
	}
}

// String returns the generated GLSL source code.
func (w *Writer) String() string {
	return w.out.String()
}

// writeModule generates GLSL code for the entire module.
func (w *Writer) writeModule() error {
	if err := w.checkBuiltins(); err != nil {
		return err
	}
	if err := w.assignResources(); err != nil {
		return err
	}
	w.collectFunctions()
	w.collectStructs()
	w.registerNames()

	w.writeVersionDirective()
	w.writePrecisionQualifiers()
	w.writeComputeLayout()

	if err := w.writeTypes(); err != nil {
		return err
	}
	if err := w.writeConstants(); err != nil {
		return err
	}
	if err := w.writeGlobalVariables(); err != nil {
		return err
	}
	if w.options.Declarations != "" {
		for _, line := range strings.Split(strings.TrimRight(w.options.Declarations, "\n"), "\n") {
			w.writeLine("%s", line)
		}
		w.writeLine("")
	}
	if err := w.writeFunctions(); err != nil {
		return err
	}
	return w.writeFunction(w.module.EntryPoint)
}

// checkBuiltins rejects builtins the target cannot express and records the
// extensions the rest need.
func (w *Writer) checkBuiltins() error {
	vulkan := w.options.LangVersion.Vulkan()
	for i := range w.module.GlobalVariables {
		g := &w.module.GlobalVariables[i]
		if g.Removed {
			continue
		}
		if s, ok := w.module.Types[peelArrays(w.module, g.Type)].Inner.(ir.SamplerType); ok && s.Dim == ir.DimExternal && !vulkan {
			w.requireExtension("GL_OES_EGL_image_external_essl3")
		}
		if !w.module.UsesGlobal(ir.GlobalVariableHandle(i)) { //nolint:gosec // G115: i is valid slice index
			continue
		}
		switch g.Builtin {
		case ir.BuiltinDepthRange:
			if vulkan {
				return fmt.Errorf("gl_DepthRange must be replaced before Vulkan code generation")
			}
		case ir.BuiltinSampleMask, ir.BuiltinSampleMaskIn, ir.BuiltinSampleID:
			if !vulkan {
				w.requireExtension("GL_OES_sample_variables")
			}
		}
	}
	return nil
}

func (w *Writer) requireExtension(name string) {
	for _, e := range w.extensions {
		if e == name {
			return
		}
	}
	w.extensions = append(w.extensions, name)
}

// collectFunctions orders the functions reachable from main so that every
// callee precedes its callers.
func (w *Writer) collectFunctions() {
	visited := make(map[ir.FunctionHandle]bool)
	var visit func(h ir.FunctionHandle)
	visit = func(h ir.FunctionHandle) {
		if visited[h] || int(h) >= len(w.module.Functions) {
			return
		}
		visited[h] = true
		for _, callee := range callees(&w.module.Functions[h]) {
			visit(callee)
		}
		if h != w.module.EntryPoint {
			w.functions = append(w.functions, h)
		}
	}
	visit(w.module.EntryPoint)

	// Placeholder code may call helpers the tree itself never calls.
	for h := range w.module.Functions {
		handle := ir.FunctionHandle(h) //nolint:gosec // G115: h is valid slice index
		if visited[handle] {
			continue
		}
		for _, code := range w.options.Placeholders {
			if strings.Contains(code, w.module.Functions[h].Name+"(") {
				visit(handle)
				break
			}
		}
	}
}

func callees(fn *ir.Function) []ir.FunctionHandle {
	var out []ir.FunctionHandle
	for i := range fn.Expressions {
		if call, ok := fn.Expressions[i].Kind.(ir.ExprCall); ok {
			out = append(out, call.Function)
		}
	}
	var walk func(block ir.Block)
	walk = func(block ir.Block) {
		for _, stmt := range block {
			switch s := stmt.Kind.(type) {
			case ir.StmtCall:
				out = append(out, s.Function)
			case ir.StmtBlock:
				walk(s.Block)
			case ir.StmtIf:
				walk(s.Accept)
				walk(s.Reject)
			case ir.StmtLoop:
				walk(s.Body)
			}
		}
	}
	walk(fn.Body)
	return out
}

// collectStructs gathers the struct types the emitted code mentions. Types
// left behind by rewrites (a struct whose uniform was flattened away) are
// not declared.
func (w *Writer) collectStructs() {
	seen := make(map[ir.TypeHandle]bool)
	var visit func(h ir.TypeHandle)
	visit = func(h ir.TypeHandle) {
		if seen[h] || int(h) >= len(w.module.Types) {
			return
		}
		seen[h] = true
		switch t := w.module.Types[h].Inner.(type) {
		case ir.ArrayType:
			visit(t.Base)
		case ir.StructType:
			for _, m := range t.Members {
				visit(m.Type)
			}
			if !w.blockTypes[h] {
				w.structs = append(w.structs, h)
			}
		}
	}

	for i := range w.module.GlobalVariables {
		g := &w.module.GlobalVariables[i]
		if g.Removed {
			continue
		}
		if g.Block {
			w.blockTypes[peelArrays(w.module, g.Type)] = true
		}
	}
	for i := range w.module.GlobalVariables {
		g := &w.module.GlobalVariables[i]
		if !g.Removed && g.Builtin == ir.BuiltinNone {
			visit(g.Type)
		}
	}
	for _, h := range append(append([]ir.FunctionHandle(nil), w.functions...), w.module.EntryPoint) {
		fn := &w.module.Functions[h]
		for _, arg := range fn.Arguments {
			visit(arg.Type)
		}
		if fn.Result != nil {
			visit(*fn.Result)
		}
		for _, local := range fn.LocalVars {
			visit(local.Type)
		}
		for i := range fn.Expressions {
			if c, ok := fn.Expressions[i].Kind.(ir.ExprCompose); ok {
				visit(c.Type)
			}
		}
	}
}

// registerNames assigns unique names to all emitted IR entities.
func (w *Writer) registerNames() {
	vulkan := w.options.LangVersion.Vulkan()

	for handle := range w.module.GlobalVariables {
		g := &w.module.GlobalVariables[handle]
		if g.Removed {
			continue
		}
		key := nameKey{kind: nameKeyGlobalVariable, handle1: uint32(handle)} //nolint:gosec // G115: handle is valid slice index
		switch {
		case g.Builtin != ir.BuiltinNone:
			w.names[key] = builtinName(g.Builtin, vulkan)
		case g.Name == "":
			// instanceless block: members are referenced bare
		default:
			w.names[key] = w.namer.call(g.Name)
		}
	}

	for _, handle := range w.structs {
		name := w.module.Types[handle].Name
		if name == "" {
			name = fmt.Sprintf("type_%d", handle)
		}
		w.names[nameKey{kind: nameKeyType, handle1: uint32(handle)}] = w.namer.call(name)
	}
	for handle := range w.module.Types {
		if w.blockTypes[ir.TypeHandle(handle)] { //nolint:gosec // G115: handle is valid slice index
			w.names[nameKey{kind: nameKeyType, handle1: uint32(handle)}] = w.namer.call(w.module.Types[handle].Name) //nolint:gosec // G115: handle is valid slice index
		}
	}

	for _, handle := range append(append([]ir.FunctionHandle(nil), w.functions...), w.module.EntryPoint) {
		fn := &w.module.Functions[handle]
		name := "main"
		if handle != w.module.EntryPoint {
			name = w.namer.call(fn.Name)
		}
		w.names[nameKey{kind: nameKeyFunction, handle1: uint32(handle)}] = name

		for argIdx, arg := range fn.Arguments {
			argName := arg.Name
			if argName == "" {
				argName = fmt.Sprintf("arg_%d", argIdx)
			}
			w.names[nameKey{kind: nameKeyFunctionArgument, handle1: uint32(handle), handle2: uint32(argIdx)}] = w.namer.call(argName) //nolint:gosec // G115: argIdx is bounded by slice length
		}
		for localIdx, local := range fn.LocalVars {
			w.names[nameKey{kind: nameKeyLocal, handle1: uint32(handle), handle2: uint32(localIdx)}] = w.namer.call(local.Name) //nolint:gosec // G115: localIdx is valid slice index
		}
	}
}

// writeVersionDirective writes the #version directive and extensions.
func (w *Writer) writeVersionDirective() {
	w.writeLine("#version %s", w.options.LangVersion.String())
	for _, ext := range w.extensions {
		w.writeLine("#extension %s : require", ext)
	}
	w.writeLine("")
}

// writePrecisionQualifiers writes default precisions for ES.
func (w *Writer) writePrecisionQualifiers() {
	if !w.options.LangVersion.ES {
		return
	}
	w.writeLine("precision highp float;")
	w.writeLine("precision highp int;")
	w.writeLine("")
}

// writeComputeLayout writes the compute local size.
func (w *Writer) writeComputeLayout() {
	if w.module.Stage != ir.StageCompute {
		return
	}
	size := w.module.Workgroup
	for i := range size {
		if size[i] == 0 {
			size[i] = 1
		}
	}
	w.writeLine("layout(local_size_x = %d, local_size_y = %d, local_size_z = %d) in;", size[0], size[1], size[2])
	w.writeLine("")
}

// writeTypes writes struct type definitions.
func (w *Writer) writeTypes() error {
	for _, handle := range w.structs {
		st := w.module.Types[handle].Inner.(ir.StructType)
		w.writeLine("struct %s", w.names[nameKey{kind: nameKeyType, handle1: uint32(handle)}])
		w.writeLine("{")
		w.pushIndent()
		for _, member := range st.Members {
			w.writeLine("%s %s%s;", w.getBaseTypeName(member.Type), escapeKeyword(member.Name), w.getArraySuffix(member.Type))
		}
		w.popIndent()
		w.writeLine("};")
		w.writeLine("")
	}
	return nil
}

// writeConstants writes const and specialization constant globals.
func (w *Writer) writeConstants() error {
	wrote := false
	for handle := range w.module.GlobalVariables {
		g := &w.module.GlobalVariables[handle]
		if g.Removed || (g.Qualifier != ir.QualifierConst && g.Qualifier != ir.QualifierSpecConstant) {
			continue
		}
		if g.Init == nil {
			return fmt.Errorf("constant %q has no initializer", g.Name)
		}
		name := w.names[nameKey{kind: nameKeyGlobalVariable, handle1: uint32(handle)}] //nolint:gosec // G115: handle is valid slice index
		decl := fmt.Sprintf("const %s %s%s = %s;", w.getBaseTypeName(g.Type), name, w.getArraySuffix(g.Type), literalString(g.Init))
		if g.Qualifier == ir.QualifierSpecConstant && w.options.LangVersion.Vulkan() {
			decl = fmt.Sprintf("layout(constant_id = %d) %s", g.Layout.ConstantID, decl)
		}
		w.writeLine("%s", decl)
		wrote = true
	}
	if wrote {
		w.writeLine("")
	}
	return nil
}

// writeGlobalVariables writes builtin redeclarations, blocks, the default
// uniform block, opaque uniforms, interface variables and private globals,
// in that order.
//
//nolint:gocognit // One pass per declaration class
func (w *Writer) writeGlobalVariables() error {
	live := func(yield func(ir.GlobalVariableHandle, *ir.GlobalVariable)) {
		for i := range w.module.GlobalVariables {
			if !w.module.GlobalVariables[i].Removed {
				yield(ir.GlobalVariableHandle(i), &w.module.GlobalVariables[i]) //nolint:gosec // G115: i is valid slice index
			}
		}
	}

	live(func(h ir.GlobalVariableHandle, g *ir.GlobalVariable) {
		switch g.Builtin {
		case ir.BuiltinClipDistance:
			w.writeLine("%s float gl_ClipDistance%s;", g.Qualifier.String(), w.getArraySuffix(g.Type))
		case ir.BuiltinFragColor, ir.BuiltinFragData:
			w.writeLine("%sout %s %s;", w.layoutQualifier(h, g), w.precisionPrefix(g, "vec4"), w.names[w.globalKey(h)]+w.getArraySuffix(g.Type))
		case ir.BuiltinPosition:
			if g.Invariant {
				w.writeLine("invariant gl_Position;")
			}
		}
	})

	live(func(h ir.GlobalVariableHandle, g *ir.GlobalVariable) {
		if g.Block {
			w.writeBlockDeclaration(h, g)
		}
	})

	if len(w.defaultUniforms) > 0 {
		layout := fmt.Sprintf("binding = %d, std140", w.variables[DefaultUniformsBlockName].Binding)
		if w.options.LangVersion.Vulkan() {
			layout = fmt.Sprintf("set = %d, %s", DriverUniformsSet, layout)
		}
		w.writeLine("layout(%s) uniform %s", layout, DefaultUniformsBlockName)
		w.writeLine("{")
		w.pushIndent()
		for _, h := range w.defaultUniforms {
			g := &w.module.GlobalVariables[h]
			w.writeLine("%s %s;", w.precisionPrefix(g, w.getBaseTypeName(g.Type)), w.names[w.globalKey(h)]+w.getArraySuffix(g.Type))
		}
		w.popIndent()
		w.writeLine("};")
		w.writeLine("")
	}

	live(func(h ir.GlobalVariableHandle, g *ir.GlobalVariable) {
		if g.Block || g.Qualifier != ir.QualifierUniform || g.Builtin != ir.BuiltinNone {
			return
		}
		if _, placed := w.placement[h]; !placed {
			return
		}
		opaque := w.getBaseTypeName(g.Type)
		if !w.options.LangVersion.Vulkan() && g.Precision == ir.PrecisionUndefined {
			opaque = "highp " + opaque
		} else {
			opaque = w.precisionPrefix(g, opaque)
		}
		w.writeLine("%suniform %s %s%s;", w.layoutQualifier(h, g), opaque, w.names[w.globalKey(h)], w.getArraySuffix(g.Type))
	})

	wrote := false
	live(func(h ir.GlobalVariableHandle, g *ir.GlobalVariable) {
		if g.Builtin != ir.BuiltinNone || g.Block {
			return
		}
		if g.Qualifier != ir.QualifierIn && g.Qualifier != ir.QualifierOut {
			return
		}
		var qualifiers []string
		if g.Invariant {
			qualifiers = append(qualifiers, "invariant")
		}
		if w.isVarying(g) {
			switch g.Interpolation {
			case ir.InterpolationFlat:
				qualifiers = append(qualifiers, "flat")
			case ir.InterpolationCentroid:
				qualifiers = append(qualifiers, "centroid")
			}
		}
		qualifiers = append(qualifiers, g.Qualifier.String())
		w.writeLine("%s%s %s %s;", w.layoutQualifier(h, g), strings.Join(qualifiers, " "),
			w.precisionPrefix(g, w.getBaseTypeName(g.Type)), w.names[w.globalKey(h)]+w.getArraySuffix(g.Type))
		wrote = true
	})

	live(func(h ir.GlobalVariableHandle, g *ir.GlobalVariable) {
		if g.Qualifier != ir.QualifierGlobal || g.Builtin != ir.BuiltinNone {
			return
		}
		w.writeLine("%s %s;", w.precisionPrefix(g, w.getBaseTypeName(g.Type)), w.names[w.globalKey(h)]+w.getArraySuffix(g.Type))
		wrote = true
	})
	if wrote {
		w.writeLine("")
	}
	return nil
}

// writeBlockDeclaration writes a uniform or storage interface block.
func (w *Writer) writeBlockDeclaration(h ir.GlobalVariableHandle, g *ir.GlobalVariable) {
	blockType := peelArrays(w.module, g.Type)
	st := w.module.Types[blockType].Inner.(ir.StructType)
	w.writeLine("%s%s %s", w.layoutQualifier(h, g), g.Qualifier.String(), w.names[nameKey{kind: nameKeyType, handle1: uint32(blockType)}])
	w.writeLine("{")
	w.pushIndent()
	for _, member := range st.Members {
		prefix := ""
		if member.RowMajor {
			prefix = "layout(row_major) "
		}
		w.writeLine("%s%s %s%s;", prefix, w.getBaseTypeName(member.Type), escapeKeyword(member.Name), w.getArraySuffix(member.Type))
	}
	w.popIndent()
	if g.Name == "" {
		w.writeLine("};")
	} else {
		w.writeLine("} %s%s;", w.names[w.globalKey(h)], w.getArraySuffix(g.Type))
	}
	w.writeLine("")
}

func (w *Writer) globalKey(h ir.GlobalVariableHandle) nameKey {
	return nameKey{kind: nameKeyGlobalVariable, handle1: uint32(h)}
}

func (w *Writer) isVarying(g *ir.GlobalVariable) bool {
	switch w.module.Stage {
	case ir.StageVertex:
		return g.Qualifier == ir.QualifierOut
	case ir.StageFragment:
		return g.Qualifier == ir.QualifierIn
	case ir.StageGeometry:
		return true
	}
	return false
}

// layoutQualifier returns "layout(...) " for a placed global, or "".
func (w *Writer) layoutQualifier(h ir.GlobalVariableHandle, g *ir.GlobalVariable) string {
	info, ok := w.placement[h]
	if !ok {
		return ""
	}
	var parts []string
	if info.DescriptorSet >= 0 && w.options.LangVersion.Vulkan() {
		parts = append(parts, fmt.Sprintf("set = %d", info.DescriptorSet))
	}
	if info.Binding >= 0 {
		parts = append(parts, fmt.Sprintf("binding = %d", info.Binding))
	}
	if info.Location >= 0 {
		parts = append(parts, fmt.Sprintf("location = %d", info.Location))
	}
	if info.Index > 0 {
		parts = append(parts, fmt.Sprintf("index = %d", info.Index))
	}
	if _, atomic := w.module.Types[peelArrays(w.module, g.Type)].Inner.(ir.AtomicCounterType); atomic && g.Layout.Offset >= 0 {
		parts = append(parts, fmt.Sprintf("offset = %d", g.Layout.Offset))
	}
	if g.Block {
		if g.Layout.Block == ir.LayoutStd430 {
			parts = append(parts, "std430")
		} else {
			parts = append(parts, "std140")
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "layout(" + strings.Join(parts, ", ") + ") "
}

// precisionPrefix prefixes typeName with the declared precision on ES.
func (w *Writer) precisionPrefix(g *ir.GlobalVariable, typeName string) string {
	if !w.options.LangVersion.ES {
		return typeName
	}
	switch g.Precision {
	case ir.PrecisionLow:
		return "lowp " + typeName
	case ir.PrecisionMedium:
		return "mediump " + typeName
	case ir.PrecisionHigh:
		return "highp " + typeName
	}
	return typeName
}

// writeFunctions writes the helper functions main calls.
func (w *Writer) writeFunctions() error {
	for _, handle := range w.functions {
		if err := w.writeFunction(handle); err != nil {
			return err
		}
		w.writeLine("")
	}
	return nil
}

// writeFunction writes a single function definition.
func (w *Writer) writeFunction(handle ir.FunctionHandle) error {
	fn := &w.module.Functions[handle]
	w.currentFunction = fn
	w.currentFuncHandle = handle
	defer func() { w.currentFunction = nil }()

	returnType := "void"
	if fn.Result != nil {
		returnType = w.getTypeName(*fn.Result)
	}

	args := make([]string, 0, len(fn.Arguments))
	for argIdx, arg := range fn.Arguments {
		argName := w.names[nameKey{kind: nameKeyFunctionArgument, handle1: uint32(handle), handle2: uint32(argIdx)}] //nolint:gosec // G115: argIdx is bounded by slice length
		args = append(args, fmt.Sprintf("%s %s%s", w.getBaseTypeName(arg.Type), argName, w.getArraySuffix(arg.Type)))
	}

	w.writeLine("%s %s(%s)", returnType, w.names[nameKey{kind: nameKeyFunction, handle1: uint32(handle)}], strings.Join(args, ", "))
	w.writeLine("{")
	w.pushIndent()

	for localIdx, local := range fn.LocalVars {
		name := w.names[nameKey{kind: nameKeyLocal, handle1: uint32(handle), handle2: uint32(localIdx)}] //nolint:gosec // G115: localIdx is valid slice index
		w.writeLine("%s %s%s;", w.getBaseTypeName(local.Type), name, w.getArraySuffix(local.Type))
	}

	if err := w.writeBlock(fn.Body); err != nil {
		return fmt.Errorf("%s: %w", fn.Name, err)
	}

	w.popIndent()
	w.writeLine("}")
	return nil
}

// Output helpers

// writeLine writes a line with indentation and newline.
//
//nolint:goprintffuncname
func (w *Writer) writeLine(format string, args ...any) {
	w.writeIndent()
	if len(args) == 0 {
		w.out.WriteString(format)
	} else {
		fmt.Fprintf(&w.out, format, args...)
	}
	w.out.WriteByte('\n')
}

// writeIndent writes the current indentation.
func (w *Writer) writeIndent() {
	for i := 0; i < w.indent; i++ {
		w.out.WriteString("    ")
	}
}

// pushIndent increases indentation.
func (w *Writer) pushIndent() {
	w.indent++
}

// popIndent decreases indentation.
func (w *Writer) popIndent() {
	if w.indent > 0 {
		w.indent--
	}
}

// builtinName returns the GLSL name of a builtin variable.
func builtinName(builtin ir.BuiltinValue, vulkan bool) string {
	switch builtin {
	case ir.BuiltinPosition:
		return "gl_Position"
	case ir.BuiltinPointSize:
		return "gl_PointSize"
	case ir.BuiltinVertexIndex:
		if vulkan {
			return "gl_VertexIndex"
		}
		return "gl_VertexID"
	case ir.BuiltinInstanceIndex:
		if vulkan {
			return "gl_InstanceIndex"
		}
		return "gl_InstanceID"
	case ir.BuiltinFragCoord:
		return "gl_FragCoord"
	case ir.BuiltinPointCoord:
		return "gl_PointCoord"
	case ir.BuiltinFrontFacing:
		return "gl_FrontFacing"
	case ir.BuiltinFragDepth:
		return "gl_FragDepth"
	case ir.BuiltinFragColor:
		return "webgl_FragColor"
	case ir.BuiltinFragData:
		return "webgl_FragData"
	case ir.BuiltinDepthRange:
		return "gl_DepthRange"
	case ir.BuiltinClipDistance:
		return "gl_ClipDistance"
	case ir.BuiltinSampleMask:
		return "gl_SampleMask"
	case ir.BuiltinSampleMaskIn:
		return "gl_SampleMaskIn"
	case ir.BuiltinSampleID:
		return "gl_SampleID"
	case ir.BuiltinLocalInvocationID:
		return "gl_LocalInvocationID"
	case ir.BuiltinGlobalInvocationID:
		return "gl_GlobalInvocationID"
	case ir.BuiltinWorkGroupID:
		return "gl_WorkGroupID"
	default:
		return "gl_UNKNOWN"
	}
}

// formatFloat formats a float32 for GLSL output.
func formatFloat(f float32) string {
	s := fmt.Sprintf("%g", f)
	// Ensure it has a decimal point or exponent
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
