package interp

import (
	"testing"

	"github.com/gogpu/shaderlink/ir"
)

func newModule() (*ir.Module, *ir.Builder) {
	m := &ir.Module{
		Version:   300,
		Stage:     ir.StageFragment,
		Functions: []ir.Function{{Name: "main"}},
	}
	types := ir.NewTypeRegistry(m)
	vec4 := types.Vector(ir.Vec4, ir.ScalarFloat)
	m.AddGlobal(ir.GlobalVariable{Name: "gl_FragCoord", Type: vec4, Qualifier: ir.QualifierIn, Builtin: ir.BuiltinFragCoord, Layout: ir.NoLayout()})
	m.AddGlobal(ir.GlobalVariable{Name: "color", Type: vec4, Qualifier: ir.QualifierOut, Layout: ir.NoLayout()})
	return m, ir.NewBuilder(m, 0, types)
}

func TestMachine_StoreThroughSwizzle(t *testing.T) {
	m, b := newModule()
	b.Function().Body = ir.Block{
		ir.Store(b.Global(1), b.Global(0)),
		ir.Store(b.Swizzle(b.Global(1), ir.SwizzleW, ir.SwizzleX), b.Swizzle(b.Global(0), ir.SwizzleX, ir.SwizzleY)),
	}

	vm := New(m)
	if err := vm.Set("gl_FragCoord", Vec(1, 2, 3, 4)); err != nil {
		t.Fatal(err)
	}
	if err := vm.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got, _ := vm.Get("color")
	want := Vec(2, 2, 3, 1)
	if !equalValues(got, want) {
		t.Errorf("color = %v, want %v", got, want)
	}
}

func TestMachine_Discard(t *testing.T) {
	m, b := newModule()
	cond := b.Binary(ir.BinaryGreater, b.Swizzle(b.Global(0), ir.SwizzleX), b.Float(10))
	b.Function().Body = ir.Block{
		ir.If(cond, ir.Block{ir.Kill()}, nil),
		ir.Store(b.Global(1), b.Global(0)),
	}

	tests := []struct {
		x       float64
		discard bool
	}{
		{x: 5, discard: false},
		{x: 11, discard: true},
	}
	for _, tt := range tests {
		vm := New(m)
		_ = vm.Set("gl_FragCoord", Vec(tt.x, 0, 0, 1))
		if err := vm.Run(); err != nil {
			t.Fatalf("Run: %v", err)
		}
		if vm.Discarded != tt.discard {
			t.Errorf("x=%v: Discarded = %v, want %v", tt.x, vm.Discarded, tt.discard)
		}
	}
}

func TestMachine_MatrixProducts(t *testing.T) {
	// columns (0,1) and (-1,0): a 90 degree rotation
	rot := Mat(2, 0, 1, -1, 0)
	v := Vec(1, 0)

	if got := matTimesVec(rot, v); !equalValues(got, Vec(0, 1)) {
		t.Errorf("M*v = %v, want (0, 1)", got)
	}
	if got := vecTimesMat(v, rot); !equalValues(got, Vec(0, -1)) {
		t.Errorf("v*M = %v, want (0, -1)", got)
	}
}

func TestMachine_MathFunctions(t *testing.T) {
	tests := []struct {
		name string
		fun  ir.MathFunction
		args []Value
		want Value
	}{
		{"abs", ir.MathAbs, []Value{Vec(-1, 2)}, Vec(1, 2)},
		{"round", ir.MathRound, []Value{Vec(1.4, 2.6)}, Vec(1, 3)},
		{"clamp", ir.MathClamp, []Value{Vec(-1, 5), Float(0), Float(1)}, Vec(0, 1)},
		{"dot", ir.MathDot, []Value{Vec(1, 2, 3), Vec(4, 5, 6)}, Float(32)},
		{"exp2", ir.MathExp2, []Value{Float(4)}, Float(16)},
		{"step", ir.MathStep, []Value{Float(0.5), Vec(0.2, 0.7)}, Vec(0, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := mathFunction(tt.fun, tt.args)
			if err != nil {
				t.Fatal(err)
			}
			if !equalValues(got, tt.want) {
				t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}
