package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/shaderlink/ir"
	"github.com/gogpu/shaderlink/ir/interp"
	"github.com/gogpu/shaderlink/shader"
)

type fixture struct {
	module *ir.Module
	types  *ir.TypeRegistry
	b      *ir.Builder
}

func newFixture(stage ir.ShaderStage) *fixture {
	m := &ir.Module{
		Version:   310,
		Stage:     stage,
		Functions: []ir.Function{{Name: "main"}},
	}
	types := ir.NewTypeRegistry(m)
	return &fixture{module: m, types: types, b: ir.NewBuilder(m, 0, types)}
}

func (f *fixture) global(name string, typ ir.TypeHandle, q ir.StorageQualifier, builtin ir.BuiltinValue) ir.GlobalVariableHandle {
	return f.module.AddGlobal(ir.GlobalVariable{
		Name:      name,
		Type:      typ,
		Qualifier: q,
		Builtin:   builtin,
		Layout:    ir.NoLayout(),
		Precision: ir.PrecisionHigh,
	})
}

func (f *fixture) vec(n ir.VectorSize) ir.TypeHandle {
	return f.types.Vector(n, ir.ScalarFloat)
}

func requireValid(t *testing.T, m *ir.Module) {
	t.Helper()
	errs, err := ir.Validate(m)
	require.NoError(t, err)
	require.Empty(t, errs)
}

func assertVec(t *testing.T, want []float64, got interp.Value) {
	t.Helper()
	require.Len(t, got.Comps, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got.Comps[i], 1e-5, "component %d", i)
	}
}

// fragCoordShader writes gl_FragCoord to color.
func fragCoordShader() *fixture {
	f := newFixture(ir.StageFragment)
	coord := f.global("gl_FragCoord", f.vec(ir.Vec4), ir.QualifierIn, ir.BuiltinFragCoord)
	color := f.global("color", f.vec(ir.Vec4), ir.QualifierOut, ir.BuiltinNone)
	f.b.Function().Body = ir.Block{ir.Store(f.b.Global(color), f.b.Global(coord))}
	return f
}

// ===== Driver uniforms =====

func TestDriverUniforms(t *testing.T) {
	t.Run("basic has no flip state", func(t *testing.T) {
		f := newFixture(ir.StageFragment)
		d := NewBasicDriverUniforms()
		d.Declare(f.module, f.types)
		require.True(t, d.Declared(f.module))

		_, ok := d.FlipXY(f.b)
		assert.False(t, ok)
		_, ok = d.NegFlipXY(f.b)
		assert.False(t, ok)
		_, ok = d.FragRotation(f.b)
		assert.False(t, ok)
		_, ok = d.PreRotation(f.b)
		assert.False(t, ok)
		_, ok = d.HalfRenderArea(f.b)
		assert.False(t, ok)
		assert.NotPanics(t, func() { d.Viewport(f.b) })
	})

	t.Run("extended carries flip state", func(t *testing.T) {
		f := newFixture(ir.StageFragment)
		d := NewExtendedDriverUniforms()
		h := d.Declare(f.module, f.types)
		assert.Equal(t, h, d.Declare(f.module, f.types), "second declare is a no-op")

		g := f.module.GlobalVariables[h]
		assert.Equal(t, DriverUniformsInstanceName, g.Name)
		assert.True(t, g.Block)
		assert.Equal(t, 0, g.Layout.Set)
		assert.Equal(t, 0, g.Layout.Binding)

		for _, get := range []func(*ir.Builder) (ir.ExpressionHandle, bool){
			d.FlipXY, d.NegFlipXY, d.FragRotation, d.PreRotation, d.HalfRenderArea,
		} {
			_, ok := get(f.b)
			assert.True(t, ok)
		}
	})

	t.Run("compute only carries atomic counter offsets", func(t *testing.T) {
		f := newFixture(ir.StageCompute)
		d := NewExtendedDriverUniforms()
		h := d.Declare(f.module, f.types)
		st := f.module.Types[f.module.GlobalVariables[h].Type].Inner.(ir.StructType)
		require.Len(t, st.Members, 1)
		assert.Equal(t, FieldAcbBufferOffsets, st.Members[0].Name)
		_, ok := d.FlipXY(f.b)
		assert.False(t, ok)
	})

	t.Run("read before declare panics", func(t *testing.T) {
		f := newFixture(ir.StageVertex)
		assert.Panics(t, func() { NewBasicDriverUniforms().Viewport(f.b) })
	})
}

// ===== Builtin coordinate correction =====

func TestRotateAndFlipBuiltinVariable(t *testing.T) {
	tests := []struct {
		name     string
		flip     ExprFunc
		pivot    ExprFunc
		rotation ExprFunc
		in       []float64
		want     []float64
	}{
		{
			name:  "y flip around the render area center",
			flip:  Vec2Constant(1, -1),
			pivot: Vec2Constant(320, 240),
			in:    []float64{300, 200, 0.5, 1},
			want:  []float64{300, 280, 0.5, 1},
		},
		{
			name:  "identity flip",
			flip:  Vec2Constant(1, 1),
			pivot: Vec2Constant(320, 240),
			in:    []float64{12, 34, 0, 1},
			want:  []float64{12, 34, 0, 1},
		},
		{
			name:  "quarter turn",
			flip:  Vec2Constant(1, 1),
			pivot: Constant(0),
			rotation: func(b *ir.Builder) ir.ExpressionHandle {
				return b.Compose(b.Types.Matrix(ir.Vec2, ir.Vec2), b.Float(0), b.Float(1), b.Float(-1), b.Float(0))
			},
			in:   []float64{300, 200, 0, 1},
			want: []float64{200, -300, 0, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := fragCoordShader()
			err := InsertBuiltinCorrection(f.module, f.types, Correction{
				Builtin:  ir.BuiltinFragCoord,
				Name:     FlippedFragCoordName,
				Flip:     tt.flip,
				Pivot:    tt.pivot,
				Rotation: tt.rotation,
			})
			require.NoError(t, err)
			requireValid(t, f.module)

			vm := interp.New(f.module)
			require.NoError(t, vm.Set("gl_FragCoord", interp.Vec(tt.in...)))
			require.NoError(t, vm.Run())
			got, err := vm.Get("color")
			require.NoError(t, err)
			assertVec(t, tt.want, got)

			// the builtin itself is left untouched
			raw, err := vm.Get("gl_FragCoord")
			require.NoError(t, err)
			assertVec(t, tt.in, raw)
		})
	}
}

func TestRotateAndFlipRejectsNonFloatBuiltins(t *testing.T) {
	f := newFixture(ir.StageVertex)
	f.global("gl_VertexIndex", f.types.Scalar(ir.ScalarSint), ir.QualifierIn, ir.BuiltinVertexIndex)
	_, err := RotateAndFlipBuiltinVariable(f.module, f.types, Correction{
		Builtin: ir.BuiltinVertexIndex,
		Name:    "flipped",
		Flip:    Constant(1),
		Pivot:   Constant(0),
	})
	var ue *UnsupportedError
	require.ErrorAs(t, err, &ue)
}

// ===== Vertex passes =====

// positionShader copies the attribute pos to gl_Position.
func positionShader() *fixture {
	f := newFixture(ir.StageVertex)
	pos := f.global("pos", f.vec(ir.Vec4), ir.QualifierIn, ir.BuiltinNone)
	out := f.global("gl_Position", f.vec(ir.Vec4), ir.QualifierOut, ir.BuiltinPosition)
	f.b.Function().Body = ir.Block{ir.Store(f.b.Global(out), f.b.Global(pos))}
	return f
}

func TestAppendDepthCorrection(t *testing.T) {
	f := positionShader()
	require.NoError(t, AppendDepthCorrection(f.module, f.types))
	requireValid(t, f.module)

	vm := interp.New(f.module)
	require.NoError(t, vm.Set("pos", interp.Vec(0.5, 0.25, -1, 1)))
	require.NoError(t, vm.Run())
	got, _ := vm.Get("gl_Position")
	assertVec(t, []float64{0.5, 0.25, 0, 1}, got)
}

func TestAppendDepthCorrectionRunsBeforeEveryReturn(t *testing.T) {
	f := positionShader()
	b := f.b
	pos, _ := f.module.FindGlobal("pos")
	out, _ := f.module.FindGlobal("gl_Position")
	early := b.Binary(ir.BinaryGreater, component(b, b.Global(pos), ir.SwizzleX), b.Float(0))
	b.Function().Body = ir.Block{
		ir.Store(b.Global(out), b.Global(pos)),
		ir.If(early, ir.Block{ir.Return(nil)}, nil),
		ir.Store(component(b, b.Global(out), ir.SwizzleY), b.Float(7)),
	}
	require.NoError(t, AppendDepthCorrection(f.module, f.types))
	requireValid(t, f.module)

	for _, x := range []float64{1, -1} {
		vm := interp.New(f.module)
		require.NoError(t, vm.Set("pos", interp.Vec(x, 0, 1, 1)))
		require.NoError(t, vm.Run())
		got, _ := vm.Get("gl_Position")
		assert.InDelta(t, 1.0, got.Z(), 1e-6, "x=%v", x)
	}
}

func TestAppendPreRotation(t *testing.T) {
	t.Run("extended", func(t *testing.T) {
		f := positionShader()
		d := NewExtendedDriverUniforms()
		d.Declare(f.module, f.types)
		applied, err := AppendPreRotation(f.module, f.types, d)
		require.NoError(t, err)
		require.True(t, applied)
		require.NoError(t, AppendDepthCorrection(f.module, f.types))
		requireValid(t, f.module)

		vm := interp.New(f.module)
		require.NoError(t, vm.Set("pos", interp.Vec(0.5, 0.25, 0.2, 1)))
		require.NoError(t, vm.SetField(DriverUniformsInstanceName, FieldPreRotation, interp.Mat(2, 0, 1, -1, 0)))
		require.NoError(t, vm.Run())
		got, _ := vm.Get("gl_Position")
		assertVec(t, []float64{0.25, -0.5, 0.6, 1}, got)
	})

	t.Run("basic", func(t *testing.T) {
		f := positionShader()
		d := NewBasicDriverUniforms()
		d.Declare(f.module, f.types)
		applied, err := AppendPreRotation(f.module, f.types, d)
		require.NoError(t, err)
		assert.False(t, applied)
		assert.Len(t, f.module.Main().Body, 1)
	})
}

func TestAppendClipDistanceMasking(t *testing.T) {
	f := newFixture(ir.StageVertex)
	clip := f.global("gl_ClipDistance", f.types.Array(f.types.Scalar(ir.ScalarFloat), 2), ir.QualifierOut, ir.BuiltinClipDistance)
	b := f.b
	b.Function().Body = ir.Block{
		ir.Store(b.Field(b.Global(clip), 0), b.Float(1)),
		ir.Store(b.Field(b.Global(clip), 1), b.Float(2)),
	}
	d := NewBasicDriverUniforms()
	d.Declare(f.module, f.types)
	require.NoError(t, AppendClipDistanceMasking(f.module, f.types, d))
	requireValid(t, f.module)

	vm := interp.New(f.module)
	require.NoError(t, vm.SetField(DriverUniformsInstanceName, FieldClipDistancesEnabled, interp.Float(2)))
	require.NoError(t, vm.Run())
	got, _ := vm.Get("gl_ClipDistance")
	require.Len(t, got.Fields, 2)
	assert.Equal(t, 0.0, got.Fields[0].X())
	assert.Equal(t, 2.0, got.Fields[1].X())
}

func TestReplaceDepthRange(t *testing.T) {
	f := newFixture(ir.StageVertex)
	float := f.types.Scalar(ir.ScalarFloat)
	params := f.types.GetOrCreate("gl_DepthRangeParameters", ir.StructType{Members: []ir.StructMember{
		{Name: "near", Type: float}, {Name: "far", Type: float}, {Name: "diff", Type: float},
	}})
	dr := f.global("gl_DepthRange", params, ir.QualifierUniform, ir.BuiltinDepthRange)
	out := f.global("gl_Position", f.vec(ir.Vec4), ir.QualifierOut, ir.BuiltinPosition)
	b := f.b
	b.Function().Body = ir.Block{ir.Store(b.Global(out), b.Compose(f.vec(ir.Vec4),
		b.Field(b.Global(dr), 0), b.Field(b.Global(dr), 1), b.Field(b.Global(dr), 2), b.Float(1)))}

	d := NewBasicDriverUniforms()
	d.Declare(f.module, f.types)
	require.NoError(t, ReplaceDepthRange(f.module, f.types, d))
	requireValid(t, f.module)
	assert.True(t, f.module.GlobalVariables[dr].Removed)
	assert.False(t, f.module.UsesGlobal(dr))

	vm := interp.New(f.module)
	require.NoError(t, vm.SetField(DriverUniformsInstanceName, FieldDepthRange,
		interp.Struct(interp.Float(0.1), interp.Float(0.9), interp.Float(0.8), interp.Float(0))))
	require.NoError(t, vm.Run())
	got, _ := vm.Get("gl_Position")
	assertVec(t, []float64{0.1, 0.9, 0.8, 1}, got)
}

// ===== Line raster emulation =====

func TestAddBresenhamEmulationVS(t *testing.T) {
	f := positionShader()
	d := NewBasicDriverUniforms()
	d.Declare(f.module, f.types)
	require.NoError(t, AddBresenhamEmulationVS(f.module, f.types, d, 4))
	requireValid(t, f.module)

	spec, ok := f.module.FindGlobal(LineRasterEmulationName)
	require.True(t, ok)
	g := f.module.GlobalVariables[spec]
	assert.Equal(t, ir.QualifierSpecConstant, g.Qualifier)
	assert.Equal(t, LineRasterEmulationConstantID, g.Layout.ConstantID)
	assert.Equal(t, ir.LiteralBool(false), g.Init)

	run := func(enabled bool) interp.Value {
		vm := interp.New(f.module)
		require.NoError(t, vm.Set(LineRasterEmulationName, interp.Bool(enabled)))
		require.NoError(t, vm.Set("pos", interp.Vec(0.50001, -0.5, 0, 1)))
		require.NoError(t, vm.SetField(DriverUniformsInstanceName, FieldViewport, interp.Vec(0, 0, 640, 480)))
		require.NoError(t, vm.Run())
		got, err := vm.Get(LineRasterPositionName)
		require.NoError(t, err)
		return got
	}

	// 480.0032 snaps to 480 on a 1/16 grid
	assertVec(t, []float64{0.5, -0.5}, run(true))
	assertVec(t, []float64{0, 0}, run(false))
}

func TestAddBresenhamEmulationFS(t *testing.T) {
	f := newFixture(ir.StageFragment)
	color := f.global("color", f.vec(ir.Vec4), ir.QualifierOut, ir.BuiltinNone)
	f.b.Function().Body = ir.Block{ir.Store(f.b.Global(color), f.b.Compose(f.vec(ir.Vec4), f.b.Float(1)))}

	d := NewBasicDriverUniforms()
	d.Declare(f.module, f.types)
	require.NoError(t, AddBresenhamEmulationFS(f.module, f.types, d, nil))
	requireValid(t, f.module)

	tests := []struct {
		name    string
		frag    []float64
		discard bool
	}{
		{name: "on the line", frag: []float64{50.5, 50.5, 0, 1}, discard: false},
		{name: "within the diamond", frag: []float64{50.9, 50.6, 0, 1}, discard: false},
		{name: "off the line", frag: []float64{52.5, 47.5, 0, 1}, discard: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vm := interp.New(f.module)
			vm.Derivative = func(axis ir.DerivativeAxis, v interp.Value) interp.Value {
				if axis == ir.DerivativeX {
					return interp.Vec(1, 0)
				}
				return interp.Vec(0, 1)
			}
			require.NoError(t, vm.Set(LineRasterEmulationName, interp.Bool(true)))
			require.NoError(t, vm.Set(LineRasterPositionName, interp.Vec(0, 0)))
			require.NoError(t, vm.Set("gl_FragCoord", interp.Vec(tt.frag...)))
			require.NoError(t, vm.SetField(DriverUniformsInstanceName, FieldViewport, interp.Vec(0, 0, 100, 100)))
			require.NoError(t, vm.Run())
			assert.Equal(t, tt.discard, vm.Discarded)
		})
	}

	t.Run("disabled never discards", func(t *testing.T) {
		vm := interp.New(f.module)
		require.NoError(t, vm.Set("gl_FragCoord", interp.Vec(52.5, 47.5, 0, 1)))
		require.NoError(t, vm.Run())
		assert.False(t, vm.Discarded)
	})
}

func TestAddBresenhamEmulationFSCorrectsFragCoordInside(t *testing.T) {
	f := newFixture(ir.StageFragment)
	color := f.global("color", f.vec(ir.Vec4), ir.QualifierOut, ir.BuiltinNone)
	f.b.Function().Body = ir.Block{ir.Store(f.b.Global(color), f.b.Compose(f.vec(ir.Vec4), f.b.Float(1)))}

	d := NewExtendedDriverUniforms()
	d.Declare(f.module, f.types)
	c, ok := fragCoordCorrection(f.module, f.types, d, false)
	require.True(t, ok)
	require.NoError(t, AddBresenhamEmulationFS(f.module, f.types, d, &c))
	requireValid(t, f.module)

	// the emulation block is the only top-level statement added
	require.Len(t, f.module.Main().Body, 2)
	emulation, ok := f.module.Main().Body[0].Kind.(ir.StmtIf)
	require.True(t, ok)
	_, ok = f.module.FindGlobal(FlippedFragCoordName)
	assert.True(t, ok)
	assert.Len(t, emulation.Accept, 2+5, "correction precedes the coverage test")
}

// ===== Transform feedback =====

func TestAddXfbEmulationSupport(t *testing.T) {
	f := positionShader()
	d := NewBasicDriverUniforms()
	d.Declare(f.module, f.types)
	fn, err := AddXfbEmulationSupport(f.module, f.types, d)
	require.NoError(t, err)
	again, err := AddXfbEmulationSupport(f.module, f.types, d)
	require.NoError(t, err)
	assert.Equal(t, fn, again)
	require.NoError(t, AddXfbOutputPlaceholder(f.module))
	requireValid(t, f.module)

	body := f.module.Main().Body
	placeholder, ok := body[len(body)-1].Kind.(ir.StmtPlaceholder)
	require.True(t, ok)
	assert.Equal(t, XfbOutputPlaceholder, placeholder.Name)

	vm := interp.New(f.module)
	require.NoError(t, vm.Set("gl_VertexIndex", interp.Int(2)))
	require.NoError(t, vm.Set("gl_InstanceIndex", interp.Int(1)))
	require.NoError(t, vm.SetField(DriverUniformsInstanceName, FieldXfbBufferOffsets, interp.Vec(10, 20, 30, 40)))
	require.NoError(t, vm.SetField(DriverUniformsInstanceName, FieldXfbVerticesPerInstance, interp.Int(3)))
	got, err := vm.Call(fn, interp.Vec(4, 8, 0, 16))
	require.NoError(t, err)
	assertVec(t, []float64{30, 60, 30, 120}, got)
}

// ===== Struct sampler flattening =====

// structSamplerShader declares
//
//	struct S { vec4 tint; sampler2D tex; };
//	struct T { sampler2D a; sampler2D b; };
//	uniform S s[2];
//	uniform T t;
//	color = texture(s[1].tex, s[1].tint.xy) + texture(t.b, vec2(0.5));
func structSamplerShader() *fixture {
	f := newFixture(ir.StageFragment)
	sampler := f.types.GetOrCreate("", ir.SamplerType{Dim: ir.Dim2D, Kind: ir.ScalarFloat})
	sType := f.types.GetOrCreate("S", ir.StructType{Members: []ir.StructMember{
		{Name: "tint", Type: f.vec(ir.Vec4)}, {Name: "tex", Type: sampler},
	}})
	tType := f.types.GetOrCreate("T", ir.StructType{Members: []ir.StructMember{
		{Name: "a", Type: sampler}, {Name: "b", Type: sampler},
	}})
	s := f.global("s", f.types.Array(sType, 2), ir.QualifierUniform, ir.BuiltinNone)
	tu := f.global("t", tType, ir.QualifierUniform, ir.BuiltinNone)
	color := f.global("color", f.vec(ir.Vec4), ir.QualifierOut, ir.BuiltinNone)

	b := f.b
	first := b.Expr(ir.ExprImageSample{
		Function:   ir.SampleTexture,
		Image:      b.Field(b.Field(b.Global(s), 1), 1),
		Coordinate: xy(b, b.Field(b.Field(b.Global(s), 1), 0)),
	})
	second := b.Expr(ir.ExprImageSample{
		Function:   ir.SampleTexture,
		Image:      b.Field(b.Global(tu), 1),
		Coordinate: Vec2Constant(0.5, 0.5)(b),
	})
	b.Function().Body = ir.Block{ir.Store(b.Global(color), b.Add(first, second))}
	return f
}

func TestFlattenStructSamplers(t *testing.T) {
	f := structSamplerShader()
	res, err := FlattenStructSamplers(f.module, f.types)
	require.NoError(t, err)
	requireValid(t, f.module)

	assert.Equal(t, 1, res.Removed, "t has nothing but samplers")
	var names []string
	for _, e := range res.Extracted {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"s_tex", "t_a", "t_b"}, names)
	assert.Equal(t, "s[1].tex", res.Extracted[0].ReflectionName(1))
	assert.Equal(t, "t.b", res.Extracted[2].ReflectionName(0))

	_, ok := f.module.FindGlobal("t")
	assert.False(t, ok, "t has no data members left")

	vm := interp.New(f.module)
	vm.Sample = func(image, coord interp.Value) interp.Value {
		return interp.Vec(image.X(), coord.X(), coord.Y(), 0)
	}
	require.NoError(t, vm.Set("s_tex", interp.Struct(interp.Float(10), interp.Float(11))))
	require.NoError(t, vm.Set("t_b", interp.Float(20)))
	require.NoError(t, vm.Set("s", interp.Struct(
		interp.Struct(interp.Vec(0, 0, 0, 0)),
		interp.Struct(interp.Vec(0.25, 0.75, 0, 0)),
	)))
	require.NoError(t, vm.Run())
	got, _ := vm.Get("color")
	assertVec(t, []float64{31, 0.75, 1.25, 0}, got)
}

func TestFlattenStructSamplersIsIdempotent(t *testing.T) {
	f := structSamplerShader()
	_, err := FlattenStructSamplers(f.module, f.types)
	require.NoError(t, err)
	globals := len(f.module.GlobalVariables)

	res, err := FlattenStructSamplers(f.module, f.types)
	require.NoError(t, err)
	assert.Zero(t, res.Removed)
	assert.Empty(t, res.Extracted)
	assert.Len(t, f.module.GlobalVariables, globals)
	requireValid(t, f.module)
}

func TestFlattenStructSamplersRejectsWholeStructUse(t *testing.T) {
	f := newFixture(ir.StageFragment)
	sampler := f.types.GetOrCreate("", ir.SamplerType{Dim: ir.Dim2D, Kind: ir.ScalarFloat})
	sType := f.types.GetOrCreate("S", ir.StructType{Members: []ir.StructMember{
		{Name: "scale", Type: f.types.Scalar(ir.ScalarFloat)}, {Name: "tex", Type: sampler},
	}})
	s := f.global("s", sType, ir.QualifierUniform, ir.BuiltinNone)
	helper := f.module.AddFunction(ir.Function{Name: "use", Arguments: []ir.FunctionArgument{{Name: "v", Type: sType}}})
	b := f.b
	b.Function().Body = ir.Block{{Kind: ir.StmtCall{Function: helper, Arguments: []ir.ExpressionHandle{b.Global(s)}}}}

	_, err := FlattenStructSamplers(f.module, f.types)
	var ue *UnsupportedError
	require.ErrorAs(t, err, &ue)
	assert.Contains(t, ue.Message, `uniform "s" is used as a whole`)
}

func TestExtractedSamplerReflectionName(t *testing.T) {
	e := ExtractedSampler{Uniform: "s", Field: "inner.tex", ArraySizes: []uint32{2, 3}}
	assert.Equal(t, "s[0][0].inner.tex", e.ReflectionName(0))
	assert.Equal(t, "s[1][1].inner.tex", e.ReflectionName(4))
	assert.Equal(t, "s[1][2].inner.tex", e.ReflectionName(5))
}

// ===== Cube map rewrite =====

func TestRewriteCubeMapSamplers(t *testing.T) {
	f := newFixture(ir.StageFragment)
	cube := f.types.GetOrCreate("", ir.SamplerType{Dim: ir.DimCube, Kind: ir.ScalarFloat})
	env := f.global("env", cube, ir.QualifierUniform, ir.BuiltinNone)
	dir := f.global("dir", f.vec(ir.Vec3), ir.QualifierIn, ir.BuiltinNone)
	color := f.global("color", f.vec(ir.Vec4), ir.QualifierOut, ir.BuiltinNone)
	b := f.b
	sample := b.Expr(ir.ExprImageSample{Function: ir.SampleTexture, Image: b.Global(env), Coordinate: b.Global(dir)})
	b.Function().Body = ir.Block{ir.Store(b.Global(color), sample)}

	n, err := RewriteCubeMapSamplers(f.module, f.types)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	requireValid(t, f.module)

	st, ok := f.module.Types[f.module.GlobalVariables[env].Type].Inner.(ir.SamplerType)
	require.True(t, ok)
	assert.Equal(t, ir.Dim2D, st.Dim)
	assert.True(t, st.Arrayed)

	tests := []struct {
		dir  []float64
		want []float64
	}{
		{dir: []float64{1, 0, 0}, want: []float64{0.5, 0.5, 0}},
		{dir: []float64{-2, 0, 0}, want: []float64{0.5, 0.5, 1}},
		{dir: []float64{0, -2, 0}, want: []float64{0.5, 0.5, 3}},
		{dir: []float64{0.5, 0, -1}, want: []float64{0.25, 0.5, 5}},
		{dir: []float64{0.5, 0, 1}, want: []float64{0.75, 0.5, 4}},
	}
	for _, tt := range tests {
		vm := interp.New(f.module)
		vm.Sample = func(_, coord interp.Value) interp.Value { return coord }
		require.NoError(t, vm.Set("dir", interp.Vec(tt.dir...)))
		require.NoError(t, vm.Run())
		got, _ := vm.Get("color")
		assertVec(t, tt.want, got)
	}
}

// ===== Inactive declarations =====

func TestRemoveInactive(t *testing.T) {
	f := positionShader()
	unused := f.global("unused", f.vec(ir.Vec4), ir.QualifierUniform, ir.BuiltinNone)
	s, err := shader.Reflect(f.module)
	require.NoError(t, err)

	n, err := RemoveInactive(f.module, s)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, f.module.GlobalVariables[unused].Removed)
	_, ok := f.module.FindGlobal("pos")
	assert.True(t, ok)
}

func TestRemoveInactiveKeepsStd140Blocks(t *testing.T) {
	f := positionShader()
	block := f.types.GetOrCreate("Params", ir.StructType{Members: []ir.StructMember{{Name: "scale", Type: f.vec(ir.Vec4)}}})
	h := f.module.AddGlobal(ir.GlobalVariable{
		Name: "params", Type: block, Qualifier: ir.QualifierUniform, Block: true,
		Layout: ir.Layout{Location: -1, Index: -1, Binding: -1, Set: -1, Offset: -1, ConstantID: -1, Block: ir.LayoutStd140},
	})
	s, err := shader.Reflect(f.module)
	require.NoError(t, err)
	n, err := RemoveInactive(f.module, s)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.False(t, f.module.GlobalVariables[h].Removed)
}

// ===== Pipeline =====

func TestTranslateVertex(t *testing.T) {
	f := positionShader()
	s, err := shader.Reflect(f.module)
	require.NoError(t, err)

	res, err := Translate(s, Options{EnablePreRotation: true, EmulateTransformFeedback: true})
	require.NoError(t, err)
	require.NotNil(t, res.XfbOffsetsFunction)
	assert.False(t, res.LineRasterEmulation)

	vm := interp.New(f.module)
	require.NoError(t, vm.Set("pos", interp.Vec(0.5, 0.25, 0.2, 1)))
	require.NoError(t, vm.SetField(DriverUniformsInstanceName, FieldPreRotation, interp.Mat(2, 0, 1, -1, 0)))
	require.NoError(t, vm.Run())
	got, _ := vm.Get("gl_Position")
	assertVec(t, []float64{0.25, -0.5, 0.6, 1}, got)
}

func TestTranslateVertexWithDepthClipControl(t *testing.T) {
	f := positionShader()
	s, err := shader.Reflect(f.module)
	require.NoError(t, err)
	_, err = Translate(s, Options{SupportsDepthClipControl: true, DriverUniforms: NewBasicDriverUniforms()})
	require.NoError(t, err)

	vm := interp.New(f.module)
	require.NoError(t, vm.Set("pos", interp.Vec(0.5, 0.25, -0.5, 1)))
	require.NoError(t, vm.Run())
	got, _ := vm.Get("gl_Position")
	assertVec(t, []float64{0.5, 0.25, -0.5, 1}, got)
}

func TestTranslateFragment(t *testing.T) {
	tests := []struct {
		name   string
		driver DriverUniformProvider
		want   []float64
	}{
		{name: "extended flips", driver: NewExtendedDriverUniforms(), want: []float64{300, 280, 0.5, 1}},
		{name: "basic leaves the coordinate", driver: NewBasicDriverUniforms(), want: []float64{300, 200, 0.5, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := fragCoordShader()
			s, err := shader.Reflect(f.module)
			require.NoError(t, err)
			_, err = Translate(s, Options{DriverUniforms: tt.driver})
			require.NoError(t, err)

			vm := interp.New(f.module)
			require.NoError(t, vm.Set("gl_FragCoord", interp.Vec(300, 200, 0.5, 1)))
			if d, ok := tt.driver.(*DriverUniforms); ok && d.Extended() {
				require.NoError(t, vm.SetField(DriverUniformsInstanceName, FieldFlipXY, interp.Vec(1, -1)))
				require.NoError(t, vm.SetField(DriverUniformsInstanceName, FieldHalfRenderArea, interp.Vec(320, 240)))
			}
			require.NoError(t, vm.Run())
			got, _ := vm.Get("color")
			assertVec(t, tt.want, got)
		})
	}
}

func TestTranslateDefaultUniformCount(t *testing.T) {
	f := structSamplerShader()
	color, _ := f.module.FindGlobal("color")
	scale := f.global("scale", f.types.Scalar(ir.ScalarFloat), ir.QualifierUniform, ir.BuiltinNone)
	b := f.b
	body := b.Function().Body
	body = append(body, ir.Store(component(b, b.Global(color), ir.SwizzleW), b.Global(scale)))
	b.Function().Body = body

	s, err := shader.Reflect(f.module)
	require.NoError(t, err)
	res, err := Translate(s, Options{})
	require.NoError(t, err)
	// s, t and scale are counted; t leaves with flattening
	assert.Equal(t, 2, res.DefaultUniformCount)
	assert.Equal(t, 1, res.Flatten.Removed)
}

func TestTranslateLineRasterEmulation(t *testing.T) {
	f := newFixture(ir.StageFragment)
	color := f.global("color", f.vec(ir.Vec4), ir.QualifierOut, ir.BuiltinNone)
	f.b.Function().Body = ir.Block{ir.Store(f.b.Global(color), f.b.Compose(f.vec(ir.Vec4), f.b.Float(1)))}
	s, err := shader.Reflect(f.module)
	require.NoError(t, err)

	res, err := Translate(s, Options{BasicLineRasterization: true})
	require.NoError(t, err)
	assert.True(t, res.LineRasterEmulation)
	_, ok := f.module.FindGlobal(FlippedFragCoordName)
	assert.True(t, ok, "frag coord is corrected inside the emulation block")
}

func TestTranslateRejectsInvalidInput(t *testing.T) {
	f := newFixture(ir.StageFragment)
	color := f.global("color", f.vec(ir.Vec4), ir.QualifierOut, ir.BuiltinNone)
	other := f.global("other", f.vec(ir.Vec4), ir.QualifierOut, ir.BuiltinNone)
	b := f.b
	shared := b.Compose(f.vec(ir.Vec4), b.Float(1))
	b.Function().Body = ir.Block{
		ir.Store(b.Global(color), shared),
		ir.Store(b.Global(other), shared),
	}
	s := &shader.Shader{Stage: ir.StageFragment, AST: f.module}

	_, err := Translate(s, Options{})
	var inv *InvariantError
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, "input", inv.Pass)
	assert.Contains(t, err.Error(), "referenced more than once")
}
