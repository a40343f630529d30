package ir

import (
	"testing"
)

func TestResolveExpressionType(t *testing.T) {
	m := newTestModule(StageFragment)
	types := NewTypeRegistry(m)
	mat := m.AddGlobal(GlobalVariable{Name: "rot", Type: types.Matrix(Vec2, Vec2), Qualifier: QualifierUniform, Layout: NoLayout()})
	b := NewBuilder(m, 0, types)

	tests := []struct {
		name  string
		build func() ExpressionHandle
		want  TypeInner
	}{
		{
			name:  "swizzle to vec2",
			build: func() ExpressionHandle { return b.Swizzle(b.Global(0), SwizzleX, SwizzleY) },
			want:  VectorType{Size: Vec2, Scalar: ScalarFloat},
		},
		{
			name:  "single component swizzle",
			build: func() ExpressionHandle { return b.Swizzle(b.Global(0), SwizzleW) },
			want:  ScalarType{Kind: ScalarFloat},
		},
		{
			name: "vector times matrix",
			build: func() ExpressionHandle {
				return b.Mul(b.Swizzle(b.Global(0), SwizzleX, SwizzleY), b.Global(mat))
			},
			want: VectorType{Size: Vec2, Scalar: ScalarFloat},
		},
		{
			name:  "scalar times vector widens",
			build: func() ExpressionHandle { return b.Mul(b.Float(2), b.Global(0)) },
			want:  VectorType{Size: Vec4, Scalar: ScalarFloat},
		},
		{
			name:  "comparison is bool",
			build: func() ExpressionHandle { return b.Binary(BinaryGreater, b.Float(1), b.Float(0)) },
			want:  ScalarType{Kind: ScalarBool},
		},
		{
			name:  "dot is scalar",
			build: func() ExpressionHandle { return b.Math(MathDot, b.Global(0), b.Global(1)) },
			want:  ScalarType{Kind: ScalarFloat},
		},
		{
			name:  "matrix column",
			build: func() ExpressionHandle { return b.Field(b.Global(mat), 1) },
			want:  VectorType{Size: Vec2, Scalar: ScalarFloat},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := tt.build()
			res, err := ResolveExpressionType(m, b.Function(), h)
			if err != nil {
				t.Fatalf("ResolveExpressionType: %v", err)
			}
			if got := res.Inner(m); got != tt.want {
				t.Errorf("type = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestResolveExpressionType_Errors(t *testing.T) {
	m := newTestModule(StageFragment)
	b := NewBuilder(m, 0, nil)

	if _, err := ResolveExpressionType(m, b.Function(), 42); err == nil {
		t.Error("expected error for out-of-range handle")
	}
	swz := b.Swizzle(b.Float(1), SwizzleX)
	if _, err := ResolveExpressionType(m, b.Function(), swz); err == nil {
		t.Error("expected error for swizzle of a scalar")
	}
}
