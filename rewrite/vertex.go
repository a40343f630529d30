package rewrite

import (
	"github.com/gogpu/shaderlink/ir"
)

// AppendDepthCorrection remaps clip-space depth from [-w, w] to [0, w] at
// the end of main:
//
//	gl_Position.z = (gl_Position.z + gl_Position.w) * 0.5
func AppendDepthCorrection(module *ir.Module, types *ir.TypeRegistry) error {
	if types == nil {
		types = ir.NewTypeRegistry(module)
	}
	pos, err := ensureBuiltin(module, types, ir.BuiltinPosition)
	if err != nil {
		return err
	}
	b := mainBuilder(module, types)
	z := component(b, b.Global(pos), ir.SwizzleZ)
	w := component(b, b.Global(pos), ir.SwizzleW)
	value := b.Mul(b.Add(z, w), b.Float(0.5))
	return insert(module, ir.InsertAtEnd, ir.Store(component(b, b.Global(pos), ir.SwizzleZ), value))
}

// AppendPreRotation rotates the clip-space position for a pre-rotated
// surface at the end of main:
//
//	gl_Position.xy = gl_Position.xy * preRotation
//
// It reports false when the provider carries no rotation.
func AppendPreRotation(module *ir.Module, types *ir.TypeRegistry, driver DriverUniformProvider) (bool, error) {
	if types == nil {
		types = ir.NewTypeRegistry(module)
	}
	b := mainBuilder(module, types)
	rotation, ok := driver.PreRotation(b)
	if !ok {
		return false, nil
	}
	pos, err := ensureBuiltin(module, types, ir.BuiltinPosition)
	if err != nil {
		return false, err
	}
	value := b.Mul(xy(b, b.Global(pos)), rotation)
	return true, insert(module, ir.InsertAtEnd, ir.Store(xy(b, b.Global(pos)), value))
}

// AppendClipDistanceMasking zeroes every gl_ClipDistance element whose bit
// is clear in the clipDistancesEnabled driver uniform. Shaders that never
// write gl_ClipDistance are left alone.
func AppendClipDistanceMasking(module *ir.Module, types *ir.TypeRegistry, driver DriverUniformProvider) error {
	clip, ok := module.FindBuiltin(ir.BuiltinClipDistance)
	if !ok || !module.UsesGlobal(clip) {
		return nil
	}
	arr, ok := module.Types[module.GlobalVariables[clip].Type].Inner.(ir.ArrayType)
	if !ok {
		return unsupported("AppendClipDistanceMasking", "gl_ClipDistance is not an array")
	}
	if types == nil {
		types = ir.NewTypeRegistry(module)
	}
	b := mainBuilder(module, types)
	stmts := make(ir.Block, 0, arr.Size)
	for i := uint32(0); i < arr.Size; i++ {
		bit := b.Binary(ir.BinaryShiftLeft, b.Uint(1), b.Uint(i))
		enabled := b.Binary(ir.BinaryAnd, driver.ClipDistancesEnabled(b), bit)
		disabled := b.Binary(ir.BinaryEqual, enabled, b.Uint(0))
		element := b.Field(b.Global(clip), i)
		stmts = append(stmts, ir.If(disabled, ir.Block{ir.Store(element, b.Float(0))}, nil))
	}
	return insert(module, ir.InsertAtEnd, stmts...)
}

// ReplaceDepthRange redirects gl_DepthRange to the depthRange driver
// uniform. The driver struct starts with the near, far and diff members of
// gl_DepthRangeParameters, so member accesses stay valid.
func ReplaceDepthRange(module *ir.Module, types *ir.TypeRegistry, driver DriverUniformProvider) error {
	depthRange, ok := module.FindBuiltin(ir.BuiltinDepthRange)
	if !ok {
		return nil
	}
	if types == nil {
		types = ir.NewTypeRegistry(module)
	}
	var edits []ir.Edit
	for _, ref := range globalRefs(module, depthRange) {
		b := ir.NewBuilder(module, ref.fn, types)
		access := driver.DepthRange(b)
		edits = append(edits, ir.EditReplaceExpression{
			Function:   ref.fn,
			Expression: ref.expr,
			Kind:       b.Function().Expressions[access].Kind,
		})
	}
	edits = append(edits, ir.EditRemoveGlobal{Variable: depthRange})
	return ir.ApplyEdits(module, edits)
}
