package rewrite

import (
	"github.com/gogpu/shaderlink/ir"
)

// Replacement variable names for corrected builtins.
const (
	FlippedFragCoordName  = "ANGLEFlippedFragCoord"
	FlippedPointCoordName = "ANGLEFlippedPointCoord"
)

// ExprFunc builds an expression in the function of b.
type ExprFunc func(b *ir.Builder) ir.ExpressionHandle

// Constant returns an ExprFunc building a float literal.
func Constant(v float32) ExprFunc {
	return func(b *ir.Builder) ir.ExpressionHandle { return b.Float(v) }
}

// Vec2Constant returns an ExprFunc building vec2(x, y).
func Vec2Constant(x, y float32) ExprFunc {
	return func(b *ir.Builder) ir.ExpressionHandle {
		return b.Compose(b.Types.Vector(ir.Vec2, ir.ScalarFloat), b.Float(x), b.Float(y))
	}
}

// Correction describes a coordinate correction of a builtin:
//
//	replacement = builtin
//	replacement.xy = ((builtin.xy * Rotation - Pivot) * Flip) + Pivot
type Correction struct {
	Builtin ir.BuiltinValue
	// Name of the variable replacing the builtin.
	Name  string
	Flip  ExprFunc
	Pivot ExprFunc
	// Rotation is a mat2; nil means identity.
	Rotation ExprFunc
}

// RotateAndFlipBuiltinVariable declares the replacement variable, redirects
// every existing use of the builtin to it, and returns the statements that
// initialize it. The caller decides where in main they run; they must run
// before any redirected use.
func RotateAndFlipBuiltinVariable(module *ir.Module, types *ir.TypeRegistry, c Correction) (ir.Block, error) {
	if types == nil {
		types = ir.NewTypeRegistry(module)
	}
	builtin, err := ensureBuiltin(module, types, c.Builtin)
	if err != nil {
		return nil, err
	}
	typ := module.GlobalVariables[builtin].Type
	if vec, ok := module.Types[typ].Inner.(ir.VectorType); !ok || vec.Scalar != ir.ScalarFloat {
		return nil, unsupported("RotateAndFlipBuiltinVariable", "builtin %q is not a float vector", module.GlobalVariables[builtin].Name)
	}

	refs := globalRefs(module, builtin)
	replacement := declareGlobal(module, c.Name, typ, ir.QualifierGlobal)
	if err := ir.ApplyEdits(module, redirect(refs, replacement)); err != nil {
		return nil, err
	}

	b := mainBuilder(module, types)
	coord := xy(b, b.Global(builtin))
	if c.Rotation != nil {
		coord = b.Mul(coord, c.Rotation(b))
	}
	corrected := b.Add(b.Mul(b.Sub(coord, c.Pivot(b)), c.Flip(b)), c.Pivot(b))

	return ir.Block{
		ir.Store(b.Global(replacement), b.Global(builtin)),
		ir.Store(xy(b, b.Global(replacement)), corrected),
	}, nil
}

// InsertBuiltinCorrection applies the correction and runs it at the start of
// main.
func InsertBuiltinCorrection(module *ir.Module, types *ir.TypeRegistry, c Correction) error {
	stmts, err := RotateAndFlipBuiltinVariable(module, types, c)
	if err != nil {
		return err
	}
	return insert(module, ir.InsertAtStart, stmts...)
}

// fragCoordCorrection builds the gl_FragCoord correction from the driver
// uniforms. It reports false when the provider has no flip state.
func fragCoordCorrection(module *ir.Module, types *ir.TypeRegistry, driver DriverUniformProvider, preRotation bool) (Correction, bool) {
	probe := mainBuilder(module, types)
	if _, ok := driver.FlipXY(probe); !ok {
		return Correction{}, false
	}
	if _, ok := driver.HalfRenderArea(probe); !ok {
		return Correction{}, false
	}
	c := Correction{
		Builtin: ir.BuiltinFragCoord,
		Name:    FlippedFragCoordName,
		Flip:    optional(driver.FlipXY),
		Pivot:   optional(driver.HalfRenderArea),
	}
	if preRotation {
		if _, ok := driver.FragRotation(probe); ok {
			c.Rotation = optional(driver.FragRotation)
		}
	}
	return c, true
}

// pointCoordCorrection builds the gl_PointCoord correction, flipping around
// the point center.
func pointCoordCorrection(module *ir.Module, types *ir.TypeRegistry, driver DriverUniformProvider, preRotation bool) (Correction, bool) {
	probe := mainBuilder(module, types)
	if _, ok := driver.NegFlipXY(probe); !ok {
		return Correction{}, false
	}
	c := Correction{
		Builtin: ir.BuiltinPointCoord,
		Name:    FlippedPointCoordName,
		Flip:    optional(driver.NegFlipXY),
		Pivot:   Constant(0.5),
	}
	if preRotation {
		if _, ok := driver.FragRotation(probe); ok {
			c.Rotation = optional(driver.FragRotation)
		}
	}
	return c, true
}

// optional adapts an accessor already known to be present.
func optional(get func(*ir.Builder) (ir.ExpressionHandle, bool)) ExprFunc {
	return func(b *ir.Builder) ir.ExpressionHandle {
		h, _ := get(b)
		return h
	}
}
