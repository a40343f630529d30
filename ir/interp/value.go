// Package interp evaluates ir modules on the CPU.
//
// It exists to check rewrite passes numerically: a test sets builtin inputs
// and uniforms, runs main, and reads back outputs. Integers and booleans are
// carried as float64 components, which is exact for the ranges shaders use in
// tests.
package interp

import (
	"fmt"
	"strings"
)

// Value is a shader value: scalars, vectors and matrices use Comps (matrices
// column-major with Cols columns); structs and arrays use Fields.
type Value struct {
	Comps  []float64
	Cols   int
	Fields []Value
}

// Float returns a scalar value.
func Float(f float64) Value {
	return Value{Comps: []float64{f}}
}

// Int returns an integer scalar value.
func Int(i int) Value {
	return Value{Comps: []float64{float64(i)}}
}

// Bool returns a boolean scalar value.
func Bool(b bool) Value {
	if b {
		return Value{Comps: []float64{1}}
	}
	return Value{Comps: []float64{0}}
}

// Vec returns a vector value.
func Vec(comps ...float64) Value {
	return Value{Comps: append([]float64(nil), comps...)}
}

// Mat returns a matrix value from column-major components.
func Mat(cols int, comps ...float64) Value {
	return Value{Comps: append([]float64(nil), comps...), Cols: cols}
}

// Struct returns a struct or array value.
func Struct(fields ...Value) Value {
	return Value{Fields: fields}
}

// Truthy reports whether a boolean scalar is true.
func (v Value) Truthy() bool {
	return len(v.Comps) > 0 && v.Comps[0] != 0
}

// X returns the first component.
func (v Value) X() float64 { return v.component(0) }

// Y returns the second component.
func (v Value) Y() float64 { return v.component(1) }

// Z returns the third component.
func (v Value) Z() float64 { return v.component(2) }

// W returns the fourth component.
func (v Value) W() float64 { return v.component(3) }

func (v Value) component(i int) float64 {
	if i < len(v.Comps) {
		return v.Comps[i]
	}
	return 0
}

func (v Value) clone() Value {
	out := Value{Cols: v.Cols}
	if v.Comps != nil {
		out.Comps = append([]float64(nil), v.Comps...)
	}
	if v.Fields != nil {
		out.Fields = make([]Value, len(v.Fields))
		for i := range v.Fields {
			out.Fields[i] = v.Fields[i].clone()
		}
	}
	return out
}

// String formats the value for test failure messages.
func (v Value) String() string {
	if v.Fields != nil {
		parts := make([]string, len(v.Fields))
		for i, f := range v.Fields {
			parts[i] = f.String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	parts := make([]string, len(v.Comps))
	for i, c := range v.Comps {
		parts[i] = fmt.Sprintf("%g", c)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
