// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"fmt"
	"strings"

	"github.com/gogpu/shaderlink/ir"
)

var binaryOperators = map[ir.BinaryOperator]string{
	ir.BinaryAdd:          "+",
	ir.BinarySubtract:     "-",
	ir.BinaryMultiply:     "*",
	ir.BinaryDivide:       "/",
	ir.BinaryModulo:       "%",
	ir.BinaryEqual:        "==",
	ir.BinaryNotEqual:     "!=",
	ir.BinaryLess:         "<",
	ir.BinaryLessEqual:    "<=",
	ir.BinaryGreater:      ">",
	ir.BinaryGreaterEqual: ">=",
	ir.BinaryAnd:          "&",
	ir.BinaryExclusiveOr:  "^",
	ir.BinaryInclusiveOr:  "|",
	ir.BinaryLogicalAnd:   "&&",
	ir.BinaryLogicalOr:    "||",
	ir.BinaryShiftLeft:    "<<",
	ir.BinaryShiftRight:   ">>",
}

var mathFunctions = map[ir.MathFunction]string{
	ir.MathAbs:       "abs",
	ir.MathMin:       "min",
	ir.MathMax:       "max",
	ir.MathClamp:     "clamp",
	ir.MathFloor:     "floor",
	ir.MathCeil:      "ceil",
	ir.MathRound:     "round",
	ir.MathFract:     "fract",
	ir.MathSqrt:      "sqrt",
	ir.MathSign:      "sign",
	ir.MathDot:       "dot",
	ir.MathLength:    "length",
	ir.MathNormalize: "normalize",
	ir.MathMix:       "mix",
	ir.MathStep:      "step",
	ir.MathExp2:      "exp2",
}

// writeExpression writes an expression and returns its GLSL representation.
func (w *Writer) writeExpression(handle ir.ExpressionHandle) (string, error) {
	if w.currentFunction == nil {
		return "", fmt.Errorf("no current function context")
	}
	if int(handle) >= len(w.currentFunction.Expressions) {
		return "", fmt.Errorf("invalid expression handle: %d", handle)
	}
	return w.writeExpressionKind(w.currentFunction.Expressions[handle].Kind, handle)
}

// writeExpressionKind writes the expression based on its kind.
//
//nolint:gocyclo,cyclop // Expression handling requires many cases
func (w *Writer) writeExpressionKind(kind ir.ExpressionKind, handle ir.ExpressionHandle) (string, error) {
	switch k := kind.(type) {
	case ir.Literal:
		return literalString(k.Value), nil
	case ir.ExprGlobalVariable:
		return w.writeGlobalVariable(k)
	case ir.ExprLocalVariable:
		return w.names[nameKey{kind: nameKeyLocal, handle1: uint32(w.currentFuncHandle), handle2: k.Variable}], nil
	case ir.ExprFunctionArgument:
		return w.names[nameKey{kind: nameKeyFunctionArgument, handle1: uint32(w.currentFuncHandle), handle2: k.Index}], nil
	case ir.ExprAccess:
		return w.writeAccess(k)
	case ir.ExprAccessIndex:
		return w.writeAccessIndex(k)
	case ir.ExprSwizzle:
		return w.writeSwizzle(k)
	case ir.ExprCompose:
		return w.writeCompose(k)
	case ir.ExprUnary:
		return w.writeUnary(k)
	case ir.ExprBinary:
		return w.writeBinary(k)
	case ir.ExprSelect:
		return w.writeSelect(k)
	case ir.ExprMath:
		return w.writeMath(k)
	case ir.ExprDerivative:
		return w.writeDerivative(k)
	case ir.ExprImageSample:
		return w.writeImageSample(k)
	case ir.ExprCall:
		return w.writeCallExpression(k.Function, k.Arguments)
	default:
		return "", fmt.Errorf("unsupported expression kind %T at [%d]", kind, handle)
	}
}

// literalString formats a literal value.
func literalString(v ir.LiteralValue) string {
	switch l := v.(type) {
	case ir.LiteralF32:
		return formatFloat(float32(l))
	case ir.LiteralI32:
		return fmt.Sprintf("%d", int32(l))
	case ir.LiteralU32:
		return fmt.Sprintf("%du", uint32(l))
	case ir.LiteralBool:
		if l {
			return "true"
		}
		return "false"
	default:
		return "0"
	}
}

func (w *Writer) writeGlobalVariable(g ir.ExprGlobalVariable) (string, error) {
	if int(g.Variable) >= len(w.module.GlobalVariables) {
		return "", fmt.Errorf("invalid global variable handle: %d", g.Variable)
	}
	gv := &w.module.GlobalVariables[g.Variable]
	if gv.Removed {
		return "", fmt.Errorf("reference to removed global %q", gv.Name)
	}
	return w.names[w.globalKey(g.Variable)], nil
}

func (w *Writer) writeAccess(a ir.ExprAccess) (string, error) {
	base, err := w.writeExpression(a.Base)
	if err != nil {
		return "", err
	}
	index, err := w.writeExpression(a.Index)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s[%s]", base, index), nil
}

// writeAccessIndex writes a constant index: a member name for structs,
// a bare member name for instanceless blocks, a subscript otherwise.
func (w *Writer) writeAccessIndex(a ir.ExprAccessIndex) (string, error) {
	if g, ok := w.currentFunction.Expressions[a.Base].Kind.(ir.ExprGlobalVariable); ok {
		gv := &w.module.GlobalVariables[g.Variable]
		if gv.Block && gv.Name == "" {
			st := w.module.Types[gv.Type].Inner.(ir.StructType)
			if int(a.Index) >= len(st.Members) {
				return "", fmt.Errorf("member %d out of range", a.Index)
			}
			return escapeKeyword(st.Members[a.Index].Name), nil
		}
	}

	base, err := w.writeExpression(a.Base)
	if err != nil {
		return "", err
	}
	res, err := ir.ResolveExpressionType(w.module, w.currentFunction, a.Base)
	if err != nil {
		return "", err
	}
	if st, ok := res.Inner(w.module).(ir.StructType); ok {
		if int(a.Index) >= len(st.Members) {
			return "", fmt.Errorf("member %d out of range", a.Index)
		}
		return fmt.Sprintf("%s.%s", base, escapeKeyword(st.Members[a.Index].Name)), nil
	}
	return fmt.Sprintf("%s[%d]", base, a.Index), nil
}

// writeSwizzle writes a swizzle expression.
func (w *Writer) writeSwizzle(s ir.ExprSwizzle) (string, error) {
	vector, err := w.writeExpression(s.Vector)
	if err != nil {
		return "", err
	}
	const components = "xyzw"
	var sb strings.Builder
	for i := uint8(0); i < s.Size; i++ {
		sb.WriteByte(components[s.Pattern[i]])
	}
	return fmt.Sprintf("%s.%s", vector, sb.String()), nil
}

// writeCompose writes a constructor; array constructors use the full
// array type name.
func (w *Writer) writeCompose(c ir.ExprCompose) (string, error) {
	components, err := w.writeExpressions(c.Components)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s(%s)", w.getTypeName(c.Type), strings.Join(components, ", ")), nil
}

func (w *Writer) writeUnary(u ir.ExprUnary) (string, error) {
	expr, err := w.writeExpression(u.Expr)
	if err != nil {
		return "", err
	}
	switch u.Op {
	case ir.UnaryNegate:
		return fmt.Sprintf("(-%s)", expr), nil
	case ir.UnaryLogicalNot:
		return fmt.Sprintf("(!%s)", expr), nil
	case ir.UnaryBitwiseNot:
		return fmt.Sprintf("(~%s)", expr), nil
	default:
		return "", fmt.Errorf("unsupported unary operator: %v", u.Op)
	}
}

// writeBinary writes a binary expression. Float remainder has no operator
// in GLSL and is written as mod().
func (w *Writer) writeBinary(b ir.ExprBinary) (string, error) {
	left, err := w.writeExpression(b.Left)
	if err != nil {
		return "", err
	}
	right, err := w.writeExpression(b.Right)
	if err != nil {
		return "", err
	}

	op, ok := binaryOperators[b.Op]
	if !ok {
		return "", fmt.Errorf("unsupported binary operator: %v", b.Op)
	}
	if b.Op == ir.BinaryModulo && w.isFloatExpression(b.Left) {
		return fmt.Sprintf("mod(%s, %s)", left, right), nil
	}
	return fmt.Sprintf("(%s %s %s)", left, op, right), nil
}

func (w *Writer) isFloatExpression(h ir.ExpressionHandle) bool {
	res, err := ir.ResolveExpressionType(w.module, w.currentFunction, h)
	if err != nil {
		return false
	}
	switch t := res.Inner(w.module).(type) {
	case ir.ScalarType:
		return t.Kind == ir.ScalarFloat
	case ir.VectorType:
		return t.Scalar == ir.ScalarFloat
	case ir.MatrixType:
		return true
	}
	return false
}

// writeSelect writes a select (ternary) expression.
func (w *Writer) writeSelect(s ir.ExprSelect) (string, error) {
	condition, err := w.writeExpression(s.Condition)
	if err != nil {
		return "", err
	}
	accept, err := w.writeExpression(s.Accept)
	if err != nil {
		return "", err
	}
	reject, err := w.writeExpression(s.Reject)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s ? %s : %s)", condition, accept, reject), nil
}

func (w *Writer) writeMath(m ir.ExprMath) (string, error) {
	name, ok := mathFunctions[m.Fun]
	if !ok {
		return "", fmt.Errorf("unsupported math function: %v", m.Fun)
	}
	handles := []ir.ExpressionHandle{m.Arg}
	if m.Arg1 != nil {
		handles = append(handles, *m.Arg1)
	}
	if m.Arg2 != nil {
		handles = append(handles, *m.Arg2)
	}
	args, err := w.writeExpressions(handles)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(args, ", ")), nil
}

func (w *Writer) writeDerivative(d ir.ExprDerivative) (string, error) {
	expr, err := w.writeExpression(d.Expr)
	if err != nil {
		return "", err
	}
	switch d.Axis {
	case ir.DerivativeX:
		return fmt.Sprintf("dFdx(%s)", expr), nil
	case ir.DerivativeY:
		return fmt.Sprintf("dFdy(%s)", expr), nil
	case ir.DerivativeWidth:
		return fmt.Sprintf("fwidth(%s)", expr), nil
	default:
		return "", fmt.Errorf("unsupported derivative axis: %v", d.Axis)
	}
}

// writeImageSample writes a texture lookup.
func (w *Writer) writeImageSample(s ir.ExprImageSample) (string, error) {
	image, err := w.writeExpression(s.Image)
	if err != nil {
		return "", err
	}
	coordinate, err := w.writeExpression(s.Coordinate)
	if err != nil {
		return "", err
	}

	level := ""
	if s.Level != nil {
		if level, err = w.writeExpression(*s.Level); err != nil {
			return "", err
		}
	}

	switch s.Function {
	case ir.SampleTexture:
		return fmt.Sprintf("texture(%s, %s)", image, coordinate), nil
	case ir.SampleTextureLod:
		if level == "" {
			return "", fmt.Errorf("textureLod without a level")
		}
		return fmt.Sprintf("textureLod(%s, %s, %s)", image, coordinate, level), nil
	case ir.SampleTexelFetch:
		if level == "" {
			level = "0"
		}
		return fmt.Sprintf("texelFetch(%s, %s, %s)", image, coordinate, level), nil
	default:
		return "", fmt.Errorf("unsupported sample function: %v", s.Function)
	}
}

func (w *Writer) writeCallExpression(fn ir.FunctionHandle, arguments []ir.ExpressionHandle) (string, error) {
	args, err := w.writeExpressions(arguments)
	if err != nil {
		return "", err
	}
	name, ok := w.names[nameKey{kind: nameKeyFunction, handle1: uint32(fn)}]
	if !ok {
		return "", fmt.Errorf("call to unknown function %d", fn)
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(args, ", ")), nil
}

func (w *Writer) writeExpressions(handles []ir.ExpressionHandle) ([]string, error) {
	out := make([]string, 0, len(handles))
	for _, h := range handles {
		s, err := w.writeExpression(h)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
