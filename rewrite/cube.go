package rewrite

import (
	"github.com/gogpu/shaderlink/ir"
)

// CubeMapCoordFunctionName converts a cube map direction to a layered 2D
// coordinate.
const CubeMapCoordFunctionName = "ANGLECubeMapCoordTo2DArray"

// RewriteCubeMapSamplers declares every non-shadow samplerCube uniform as a
// sampler2DArray with one layer per face and routes its lookups through
// ANGLECubeMapCoordTo2DArray, so each face is sampled without filtering
// across edges. It only sees top-level samplers and therefore runs after
// FlattenStructSamplers. It returns the number of rewritten uniforms.
func RewriteCubeMapSamplers(module *ir.Module, types *ir.TypeRegistry) (int, error) {
	if types == nil {
		types = ir.NewTypeRegistry(module)
	}
	cubes := make(map[ir.GlobalVariableHandle]bool)
	var edits []ir.Edit
	for i := range module.GlobalVariables {
		g := &module.GlobalVariables[i]
		if g.Removed || g.Qualifier != ir.QualifierUniform || g.Block {
			continue
		}
		retyped, ok := cubeAs2DArray(module, types, g.Type)
		if !ok {
			continue
		}
		handle := ir.GlobalVariableHandle(i)
		cubes[handle] = true
		edits = append(edits, ir.EditRetypeGlobal{Variable: handle, Type: retyped})
	}
	if len(cubes) == 0 {
		return 0, nil
	}

	helper, err := cubeMapCoordFunction(module, types)
	if err != nil {
		return 0, err
	}
	for fi := range module.Functions {
		fh := ir.FunctionHandle(fi)
		if fh == helper {
			continue
		}
		b := ir.NewBuilder(module, fh, types)
		count := len(module.Functions[fh].Expressions)
		for h := 0; h < count; h++ {
			fn := &module.Functions[fh]
			sample, ok := fn.Expressions[h].Kind.(ir.ExprImageSample)
			if !ok || !cubes[imageRoot(fn, sample.Image)] {
				continue
			}
			if sample.Function == ir.SampleTexelFetch {
				return 0, unsupported("RewriteCubeMapSamplers", "texelFetch on a cube map in %s", fn.Name)
			}
			sample.Coordinate = b.Call(helper, sample.Coordinate)
			edits = append(edits, ir.EditReplaceExpression{
				Function:   fh,
				Expression: ir.ExpressionHandle(h),
				Kind:       sample,
			})
		}
	}
	return len(cubes), ir.ApplyEdits(module, edits)
}

// cubeAs2DArray returns the sampler2DArray counterpart of a samplerCube type
// or an array of them.
func cubeAs2DArray(module *ir.Module, types *ir.TypeRegistry, h ir.TypeHandle) (ir.TypeHandle, bool) {
	switch t := module.Types[h].Inner.(type) {
	case ir.ArrayType:
		base, ok := cubeAs2DArray(module, types, t.Base)
		if !ok {
			return 0, false
		}
		return types.Array(base, t.Size), true
	case ir.SamplerType:
		if t.Dim != ir.DimCube || t.Shadow || t.Arrayed {
			return 0, false
		}
		return types.GetOrCreate("", ir.SamplerType{Dim: ir.Dim2D, Arrayed: true, Kind: t.Kind}), true
	}
	return 0, false
}

// imageRoot returns the global an image expression reads, or an invalid
// handle for other expressions.
func imageRoot(fn *ir.Function, h ir.ExpressionHandle) ir.GlobalVariableHandle {
	for depth := 0; depth < 8; depth++ {
		switch k := fn.Expressions[h].Kind.(type) {
		case ir.ExprGlobalVariable:
			return k.Variable
		case ir.ExprAccess:
			h = k.Base
		case ir.ExprAccessIndex:
			h = k.Base
		default:
			return ^ir.GlobalVariableHandle(0)
		}
	}
	return ^ir.GlobalVariableHandle(0)
}

// cubeMapCoordFunction defines the face selection of the cube map
// coordinate table:
//
//	vec3 ANGLECubeMapCoordTo2DArray(vec3 dir)
//	{
//	    vec3 a = abs(dir);
//	    if (a.x >= a.y && a.x >= a.z) {        // +X, -X
//	        ma = a.x; face = dir.x >= 0 ? 0 : 1;
//	        sc = dir.x >= 0 ? -dir.z : dir.z; tc = -dir.y;
//	    } else if (a.y >= a.z) {                // +Y, -Y
//	        ma = a.y; face = dir.y >= 0 ? 2 : 3;
//	        sc = dir.x; tc = dir.y >= 0 ? dir.z : -dir.z;
//	    } else {                                // +Z, -Z
//	        ma = a.z; face = dir.z >= 0 ? 4 : 5;
//	        sc = dir.z >= 0 ? dir.x : -dir.x; tc = -dir.y;
//	    }
//	    return vec3((sc / ma + 1) * 0.5, (tc / ma + 1) * 0.5, face);
//	}
func cubeMapCoordFunction(module *ir.Module, types *ir.TypeRegistry) (ir.FunctionHandle, error) {
	if h, ok := module.FindFunction(CubeMapCoordFunctionName); ok {
		return h, nil
	}
	vec3 := types.Vector(ir.Vec3, ir.ScalarFloat)
	float := types.Scalar(ir.ScalarFloat)
	fh := module.AddFunction(ir.Function{
		Name:      CubeMapCoordFunctionName,
		Arguments: []ir.FunctionArgument{{Name: "dir", Type: vec3}},
		Result:    &vec3,
	})
	b := ir.NewBuilder(module, fh, types)
	a := b.NewLocal("a", vec3)
	ma := b.NewLocal("ma", float)
	sc := b.NewLocal("sc", float)
	tc := b.NewLocal("tc", float)
	face := b.NewLocal("face", float)

	dir := func(c ir.SwizzleComponent) ir.ExpressionHandle { return component(b, b.Argument(0), c) }
	abs := func(c ir.SwizzleComponent) ir.ExpressionHandle { return component(b, b.Local(a), c) }
	neg := func(e ir.ExpressionHandle) ir.ExpressionHandle { return b.Unary(ir.UnaryNegate, e) }
	positive := func(c ir.SwizzleComponent) ir.ExpressionHandle {
		return b.Binary(ir.BinaryGreaterEqual, dir(c), b.Float(0))
	}
	pick := func(c ir.SwizzleComponent, accept, reject ir.ExpressionHandle) ir.ExpressionHandle {
		return b.Expr(ir.ExprSelect{Condition: positive(c), Accept: accept, Reject: reject})
	}
	faceFor := func(c ir.SwizzleComponent, plus float32) ir.ExpressionHandle {
		return pick(c, b.Float(plus), b.Float(plus+1))
	}

	xMajor := ir.Block{
		ir.Store(b.Local(ma), abs(ir.SwizzleX)),
		ir.Store(b.Local(face), faceFor(ir.SwizzleX, 0)),
		ir.Store(b.Local(sc), pick(ir.SwizzleX, neg(dir(ir.SwizzleZ)), dir(ir.SwizzleZ))),
		ir.Store(b.Local(tc), neg(dir(ir.SwizzleY))),
	}
	yMajor := ir.Block{
		ir.Store(b.Local(ma), abs(ir.SwizzleY)),
		ir.Store(b.Local(face), faceFor(ir.SwizzleY, 2)),
		ir.Store(b.Local(sc), dir(ir.SwizzleX)),
		ir.Store(b.Local(tc), pick(ir.SwizzleY, dir(ir.SwizzleZ), neg(dir(ir.SwizzleZ)))),
	}
	zMajor := ir.Block{
		ir.Store(b.Local(ma), abs(ir.SwizzleZ)),
		ir.Store(b.Local(face), faceFor(ir.SwizzleZ, 4)),
		ir.Store(b.Local(sc), pick(ir.SwizzleZ, dir(ir.SwizzleX), neg(dir(ir.SwizzleX)))),
		ir.Store(b.Local(tc), neg(dir(ir.SwizzleY))),
	}

	isX := b.Binary(ir.BinaryLogicalAnd,
		b.Binary(ir.BinaryGreaterEqual, abs(ir.SwizzleX), abs(ir.SwizzleY)),
		b.Binary(ir.BinaryGreaterEqual, abs(ir.SwizzleX), abs(ir.SwizzleZ)))
	isY := b.Binary(ir.BinaryGreaterEqual, abs(ir.SwizzleY), abs(ir.SwizzleZ))

	uv := func(v uint32) ir.ExpressionHandle {
		return b.Mul(b.Add(b.Div(b.Local(v), b.Local(ma)), b.Float(1)), b.Float(0.5))
	}
	result := b.Compose(vec3, uv(sc), uv(tc), b.Local(face))

	b.Function().Body = ir.Block{
		ir.Store(b.Local(a), b.Math(ir.MathAbs, b.Argument(0))),
		ir.If(isX, xMajor, ir.Block{ir.If(isY, yMajor, zMajor)}),
		ir.Return(&result),
	}
	return fh, nil
}
