package rewrite

import (
	"math"

	"github.com/gogpu/shaderlink/ir"
)

// Line rasterization emulation names.
const (
	LineRasterEmulationName = "ANGLELineRasterEmulation"
	LineRasterPositionName  = "ANGLEPosition"

	// LineRasterEmulationConstantID is the specialization constant id of
	// LineRasterEmulationName.
	LineRasterEmulationConstantID = 0
)

// bresenhamEpsilon widens the diamond-exit test to absorb derivative
// rounding.
const bresenhamEpsilon = 1e-4

// lineRasterEmulation returns the specialization constant guarding the
// emulation code, declaring it on first use.
func lineRasterEmulation(module *ir.Module, types *ir.TypeRegistry) ir.GlobalVariableHandle {
	if h, ok := module.FindGlobal(LineRasterEmulationName); ok {
		return h
	}
	layout := ir.NoLayout()
	layout.ConstantID = LineRasterEmulationConstantID
	return module.AddGlobal(ir.GlobalVariable{
		Name:      LineRasterEmulationName,
		Type:      types.Scalar(ir.ScalarBool),
		Qualifier: ir.QualifierSpecConstant,
		Layout:    layout,
		Init:      ir.LiteralBool(false),
	})
}

func linePosition(module *ir.Module, types *ir.TypeRegistry, q ir.StorageQualifier) ir.GlobalVariableHandle {
	if h, ok := module.FindGlobal(LineRasterPositionName); ok {
		return h
	}
	return declareGlobal(module, LineRasterPositionName, vec2Type(types), q)
}

// AddBresenhamEmulationVS computes the window-space line position snapped
// to the subpixel grid and passes it to the fragment stage in
// ANGLEPosition. The code runs at the end of main under the
// ANGLELineRasterEmulation specialization constant:
//
//	vec2 ndc = gl_Position.xy / gl_Position.w;
//	vec2 window = viewport.zw * (ndc + 1.0) * 0.5 + viewport.xy;
//	vec2 snapped = round(window * 2^subPixelBits) / 2^subPixelBits;
//	ANGLEPosition = (snapped - viewport.xy) * 2.0 / viewport.zw - 1.0;
func AddBresenhamEmulationVS(module *ir.Module, types *ir.TypeRegistry, driver DriverUniformProvider, subPixelBits int) error {
	if types == nil {
		types = ir.NewTypeRegistry(module)
	}
	emulation := lineRasterEmulation(module, types)
	varying := linePosition(module, types, ir.QualifierOut)
	pos, err := ensureBuiltin(module, types, ir.BuiltinPosition)
	if err != nil {
		return err
	}

	b := mainBuilder(module, types)
	vec2 := vec2Type(types)
	ndc := b.NewLocal("ANGLE_ndc", vec2)
	window := b.NewLocal("ANGLE_window", vec2)
	snapped := b.NewLocal("ANGLE_snapped", vec2)
	scale := float32(math.Exp2(float64(subPixelBits)))

	body := ir.Block{
		ir.Store(b.Local(ndc), b.Div(xy(b, b.Global(pos)), component(b, b.Global(pos), ir.SwizzleW))),
		ir.Store(b.Local(window), b.Add(
			b.Mul(b.Mul(zw(b, driver.Viewport(b)), b.Add(b.Local(ndc), b.Float(1))), b.Float(0.5)),
			xy(b, driver.Viewport(b)))),
		ir.Store(b.Local(snapped), b.Div(b.Math(ir.MathRound, b.Mul(b.Local(window), b.Float(scale))), b.Float(scale))),
		ir.Store(b.Global(varying), b.Sub(
			b.Div(b.Mul(b.Sub(b.Local(snapped), xy(b, driver.Viewport(b))), b.Float(2)), zw(b, driver.Viewport(b))),
			b.Float(1))),
	}
	return insert(module, ir.InsertAtEnd, ir.If(b.Global(emulation), body, nil))
}

// AddBresenhamEmulationFS discards fragments outside the diamond of the
// line's Bresenham pixel. The code runs at the start of main under the
// ANGLELineRasterEmulation specialization constant:
//
//	vec2 p = (ANGLEPosition * 0.5 + 0.5) * viewport.zw + viewport.xy;
//	vec2 d = dFdx(p) + dFdy(p);
//	vec2 f = gl_FragCoord.xy;
//	vec2 i = abs(p - f + (d / d.yx) * (f.yx - p.yx));
//	if (i.x > 0.5 + 1e-4 && i.y > 0.5 + 1e-4) discard;
//
// fragCoord, when non-nil, is applied inside the emulation block. It is
// used when the shader itself never reads gl_FragCoord.
func AddBresenhamEmulationFS(module *ir.Module, types *ir.TypeRegistry, driver DriverUniformProvider, fragCoord *Correction) error {
	if types == nil {
		types = ir.NewTypeRegistry(module)
	}
	emulation := lineRasterEmulation(module, types)
	varying := linePosition(module, types, ir.QualifierIn)
	coord, err := ensureBuiltin(module, types, ir.BuiltinFragCoord)
	if err != nil {
		return err
	}

	b := mainBuilder(module, types)
	vec2 := vec2Type(types)
	p := b.NewLocal("ANGLE_p", vec2)
	d := b.NewLocal("ANGLE_d", vec2)
	f := b.NewLocal("ANGLE_f", vec2)
	i := b.NewLocal("ANGLE_i", vec2)

	half := func() ir.ExpressionHandle { return b.Float(0.5) }
	threshold := func() ir.ExpressionHandle { return b.Float(0.5 + bresenhamEpsilon) }

	body := ir.Block{
		ir.Store(b.Local(p), b.Add(
			b.Mul(b.Add(b.Mul(b.Global(varying), half()), half()), zw(b, driver.Viewport(b))),
			xy(b, driver.Viewport(b)))),
		ir.Store(b.Local(d), b.Add(
			b.Derivative(ir.DerivativeX, b.Local(p)),
			b.Derivative(ir.DerivativeY, b.Local(p)))),
		ir.Store(b.Local(f), xy(b, b.Global(coord))),
		ir.Store(b.Local(i), b.Math(ir.MathAbs, b.Add(
			b.Sub(b.Local(p), b.Local(f)),
			b.Mul(b.Div(b.Local(d), yx(b, b.Local(d))), b.Sub(yx(b, b.Local(f)), yx(b, b.Local(p))))))),
		ir.If(b.Binary(ir.BinaryLogicalAnd,
			b.Binary(ir.BinaryGreater, component(b, b.Local(i), ir.SwizzleX), threshold()),
			b.Binary(ir.BinaryGreater, component(b, b.Local(i), ir.SwizzleY), threshold())),
			ir.Block{ir.Kill()}, nil),
	}

	if fragCoord != nil {
		correction, err := RotateAndFlipBuiltinVariable(module, types, *fragCoord)
		if err != nil {
			return err
		}
		body = append(correction, body...)
	}
	b = mainBuilder(module, types)
	return insert(module, ir.InsertAtStart, ir.If(b.Global(emulation), body, nil))
}
