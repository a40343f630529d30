package ir

import "fmt"

// TypeResolution is the type of an expression: either a module type handle
// or an inline type that was never declared (vector components, comparison
// results, swizzles).
type TypeResolution struct {
	Handle *TypeHandle
	Value  TypeInner
}

// Inner returns the resolved inner type.
func (r TypeResolution) Inner(module *Module) TypeInner {
	if r.Handle != nil {
		return module.Types[*r.Handle].Inner
	}
	return r.Value
}

func handleResolution(h TypeHandle) TypeResolution {
	return TypeResolution{Handle: &h}
}

func valueResolution(inner TypeInner) TypeResolution {
	return TypeResolution{Value: inner}
}

// ResolveExpressionType resolves the type of an expression in a function.
//
//nolint:gocyclo,cyclop,funlen // Type resolution requires handling all expression kinds
func ResolveExpressionType(module *Module, fn *Function, handle ExpressionHandle) (TypeResolution, error) {
	if int(handle) >= len(fn.Expressions) {
		return TypeResolution{}, fmt.Errorf("expression handle %d out of range (max %d)", handle, len(fn.Expressions))
	}

	switch kind := fn.Expressions[handle].Kind.(type) {
	case Literal:
		switch kind.Value.(type) {
		case LiteralF32:
			return valueResolution(ScalarType{Kind: ScalarFloat}), nil
		case LiteralI32:
			return valueResolution(ScalarType{Kind: ScalarSint}), nil
		case LiteralU32:
			return valueResolution(ScalarType{Kind: ScalarUint}), nil
		case LiteralBool:
			return valueResolution(ScalarType{Kind: ScalarBool}), nil
		}
		return TypeResolution{}, fmt.Errorf("unknown literal %T", kind.Value)
	case ExprGlobalVariable:
		if int(kind.Variable) >= len(module.GlobalVariables) {
			return TypeResolution{}, fmt.Errorf("global variable %d out of range", kind.Variable)
		}
		return handleResolution(module.GlobalVariables[kind.Variable].Type), nil
	case ExprLocalVariable:
		if int(kind.Variable) >= len(fn.LocalVars) {
			return TypeResolution{}, fmt.Errorf("local variable %d out of range", kind.Variable)
		}
		return handleResolution(fn.LocalVars[kind.Variable].Type), nil
	case ExprFunctionArgument:
		if int(kind.Index) >= len(fn.Arguments) {
			return TypeResolution{}, fmt.Errorf("function argument index %d out of range", kind.Index)
		}
		return handleResolution(fn.Arguments[kind.Index].Type), nil
	case ExprCompose:
		return handleResolution(kind.Type), nil
	case ExprAccess:
		return resolveIndexed(module, fn, kind.Base, nil)
	case ExprAccessIndex:
		index := kind.Index
		return resolveIndexed(module, fn, kind.Base, &index)
	case ExprSwizzle:
		base, err := ResolveExpressionType(module, fn, kind.Vector)
		if err != nil {
			return TypeResolution{}, err
		}
		vec, ok := base.Inner(module).(VectorType)
		if !ok {
			return TypeResolution{}, fmt.Errorf("swizzle of non-vector %T", base.Inner(module))
		}
		if kind.Size == 1 {
			return valueResolution(ScalarType{Kind: vec.Scalar}), nil
		}
		return valueResolution(VectorType{Size: VectorSize(kind.Size), Scalar: vec.Scalar}), nil
	case ExprUnary:
		return ResolveExpressionType(module, fn, kind.Expr)
	case ExprBinary:
		return resolveBinary(module, fn, kind)
	case ExprSelect:
		return ResolveExpressionType(module, fn, kind.Accept)
	case ExprMath:
		switch kind.Fun {
		case MathDot, MathLength:
			return valueResolution(ScalarType{Kind: ScalarFloat}), nil
		}
		return ResolveExpressionType(module, fn, kind.Arg)
	case ExprDerivative:
		return ResolveExpressionType(module, fn, kind.Expr)
	case ExprImageSample:
		img, err := ResolveExpressionType(module, fn, kind.Image)
		if err != nil {
			return TypeResolution{}, err
		}
		sampler, ok := img.Inner(module).(SamplerType)
		if !ok {
			return TypeResolution{}, fmt.Errorf("sampling non-sampler %T", img.Inner(module))
		}
		if sampler.Shadow {
			return valueResolution(ScalarType{Kind: ScalarFloat}), nil
		}
		return valueResolution(VectorType{Size: Vec4, Scalar: sampler.Kind}), nil
	case ExprCall:
		if int(kind.Function) >= len(module.Functions) {
			return TypeResolution{}, fmt.Errorf("function %d out of range", kind.Function)
		}
		result := module.Functions[kind.Function].Result
		if result == nil {
			return TypeResolution{}, fmt.Errorf("call to void function %q used as a value", module.Functions[kind.Function].Name)
		}
		return handleResolution(*result), nil
	}
	return TypeResolution{}, fmt.Errorf("unknown expression kind %T", fn.Expressions[handle].Kind)
}

// resolveIndexed resolves Access and AccessIndex. index is nil for dynamic
// indexing, which cannot select a struct member.
func resolveIndexed(module *Module, fn *Function, base ExpressionHandle, index *uint32) (TypeResolution, error) {
	res, err := ResolveExpressionType(module, fn, base)
	if err != nil {
		return TypeResolution{}, err
	}
	switch t := res.Inner(module).(type) {
	case ArrayType:
		return handleResolution(t.Base), nil
	case VectorType:
		return valueResolution(ScalarType{Kind: t.Scalar}), nil
	case MatrixType:
		return valueResolution(VectorType{Size: t.Rows, Scalar: ScalarFloat}), nil
	case StructType:
		if index == nil {
			return TypeResolution{}, fmt.Errorf("dynamic index into struct")
		}
		if int(*index) >= len(t.Members) {
			return TypeResolution{}, fmt.Errorf("struct member %d out of range (%d members)", *index, len(t.Members))
		}
		return handleResolution(t.Members[*index].Type), nil
	}
	return TypeResolution{}, fmt.Errorf("cannot index %T", res.Inner(module))
}

func resolveBinary(module *Module, fn *Function, b ExprBinary) (TypeResolution, error) {
	left, err := ResolveExpressionType(module, fn, b.Left)
	if err != nil {
		return TypeResolution{}, err
	}
	right, err := ResolveExpressionType(module, fn, b.Right)
	if err != nil {
		return TypeResolution{}, err
	}
	if b.Op.IsComparison() {
		return valueResolution(ScalarType{Kind: ScalarBool}), nil
	}

	l, r := left.Inner(module), right.Inner(module)
	if b.Op == BinaryMultiply {
		switch lt := l.(type) {
		case MatrixType:
			if _, ok := r.(VectorType); ok {
				return valueResolution(VectorType{Size: lt.Rows, Scalar: ScalarFloat}), nil
			}
		case VectorType:
			if rt, ok := r.(MatrixType); ok {
				return valueResolution(VectorType{Size: rt.Columns, Scalar: ScalarFloat}), nil
			}
		}
	}
	// scalar op vector and scalar op matrix widen to the non-scalar operand
	if _, ok := l.(ScalarType); ok {
		return right, nil
	}
	return left, nil
}

// ComponentCount returns the number of scalar components of a numeric type,
// or 0 for non-numeric types.
func ComponentCount(inner TypeInner) int {
	switch t := inner.(type) {
	case ScalarType:
		return 1
	case VectorType:
		return int(t.Size)
	case MatrixType:
		return int(t.Columns) * int(t.Rows)
	}
	return 0
}
