package ir

// Expression represents an expression in the AST.
// Expressions are side-effect free and are evaluated where they are
// referenced; each expression has at most one parent.
type Expression struct {
	Kind ExpressionKind
}

// ExpressionKind represents the different kinds of expressions.
type ExpressionKind interface {
	expressionKind()
}

// Literal represents a literal constant value.
type Literal struct {
	Value LiteralValue
}

func (Literal) expressionKind() {}

// LiteralValue represents the value of a literal.
type LiteralValue interface {
	literalValue()
}

// LiteralF32 represents a 32-bit float literal.
type LiteralF32 float32

func (LiteralF32) literalValue() {}

// LiteralU32 represents a 32-bit unsigned integer literal.
type LiteralU32 uint32

func (LiteralU32) literalValue() {}

// LiteralI32 represents a 32-bit signed integer literal.
type LiteralI32 int32

func (LiteralI32) literalValue() {}

// LiteralBool represents a boolean literal.
type LiteralBool bool

func (LiteralBool) literalValue() {}

// ExprGlobalVariable references a global variable.
type ExprGlobalVariable struct {
	Variable GlobalVariableHandle
}

func (ExprGlobalVariable) expressionKind() {}

// ExprLocalVariable references a local variable by index.
type ExprLocalVariable struct {
	Variable uint32
}

func (ExprLocalVariable) expressionKind() {}

// ExprFunctionArgument references a function parameter by index.
type ExprFunctionArgument struct {
	Index uint32
}

func (ExprFunctionArgument) expressionKind() {}

// ExprAccess indexes an array, vector or matrix with a dynamic index.
type ExprAccess struct {
	Base  ExpressionHandle
	Index ExpressionHandle
}

func (ExprAccess) expressionKind() {}

// ExprAccessIndex indexes an array, vector or matrix with a constant index,
// or selects a struct member.
type ExprAccessIndex struct {
	Base  ExpressionHandle
	Index uint32
}

func (ExprAccessIndex) expressionKind() {}

// SwizzleComponent names a vector component.
type SwizzleComponent uint8

const (
	SwizzleX SwizzleComponent = iota
	SwizzleY
	SwizzleZ
	SwizzleW
)

// ExprSwizzle selects components of a vector. Size 1 yields a scalar.
type ExprSwizzle struct {
	Size    uint8
	Vector  ExpressionHandle
	Pattern [4]SwizzleComponent
}

func (ExprSwizzle) expressionKind() {}

// ExprCompose is a constructor call: vec4(x), mat2(a, b), S(f, g), float(i).
type ExprCompose struct {
	Type       TypeHandle
	Components []ExpressionHandle
}

func (ExprCompose) expressionKind() {}

// UnaryOperator represents unary operators.
type UnaryOperator uint8

const (
	UnaryNegate UnaryOperator = iota
	UnaryLogicalNot
	UnaryBitwiseNot
)

// ExprUnary applies a unary operator.
type ExprUnary struct {
	Op   UnaryOperator
	Expr ExpressionHandle
}

func (ExprUnary) expressionKind() {}

// BinaryOperator represents binary operators.
type BinaryOperator uint8

const (
	BinaryAdd BinaryOperator = iota
	BinarySubtract
	BinaryMultiply
	BinaryDivide
	BinaryModulo
	BinaryEqual
	BinaryNotEqual
	BinaryLess
	BinaryLessEqual
	BinaryGreater
	BinaryGreaterEqual
	BinaryAnd
	BinaryExclusiveOr
	BinaryInclusiveOr
	BinaryLogicalAnd
	BinaryLogicalOr
	BinaryShiftLeft
	BinaryShiftRight
)

// IsComparison reports whether the operator yields a boolean.
func (op BinaryOperator) IsComparison() bool {
	switch op {
	case BinaryEqual, BinaryNotEqual, BinaryLess, BinaryLessEqual, BinaryGreater, BinaryGreaterEqual,
		BinaryLogicalAnd, BinaryLogicalOr:
		return true
	}
	return false
}

// ExprBinary applies a binary operator. Multiply between a matrix and a
// vector is the linear-algebra product in operand order.
type ExprBinary struct {
	Op    BinaryOperator
	Left  ExpressionHandle
	Right ExpressionHandle
}

func (ExprBinary) expressionKind() {}

// ExprSelect is the ternary operator.
type ExprSelect struct {
	Condition ExpressionHandle
	Accept    ExpressionHandle
	Reject    ExpressionHandle
}

func (ExprSelect) expressionKind() {}

// MathFunction represents built-in math functions.
type MathFunction uint8

const (
	MathAbs MathFunction = iota
	MathMin
	MathMax
	MathClamp
	MathFloor
	MathCeil
	MathRound
	MathFract
	MathSqrt
	MathSign
	MathDot
	MathLength
	MathNormalize
	MathMix
	MathStep
	MathExp2
)

// ExprMath calls a built-in math function with up to three arguments.
type ExprMath struct {
	Fun  MathFunction
	Arg  ExpressionHandle
	Arg1 *ExpressionHandle
	Arg2 *ExpressionHandle
}

func (ExprMath) expressionKind() {}

// DerivativeAxis selects dFdx, dFdy or fwidth.
type DerivativeAxis uint8

const (
	DerivativeX DerivativeAxis = iota
	DerivativeY
	DerivativeWidth
)

// ExprDerivative computes a screen-space derivative.
type ExprDerivative struct {
	Axis DerivativeAxis
	Expr ExpressionHandle
}

func (ExprDerivative) expressionKind() {}

// SampleFunction selects the texture lookup built-in.
type SampleFunction uint8

const (
	SampleTexture SampleFunction = iota
	SampleTextureLod
	SampleTexelFetch
)

// ExprImageSample samples a texture. Level is required for lod and fetch.
type ExprImageSample struct {
	Function   SampleFunction
	Image      ExpressionHandle
	Coordinate ExpressionHandle
	Level      *ExpressionHandle
}

func (ExprImageSample) expressionKind() {}

// ExprCall calls a user function that returns a value.
type ExprCall struct {
	Function  FunctionHandle
	Arguments []ExpressionHandle
}

func (ExprCall) expressionKind() {}

// ExpressionChildren returns the operand handles of an expression in
// evaluation order.
//
//nolint:gocyclo,cyclop // One case per expression kind
func ExpressionChildren(kind ExpressionKind) []ExpressionHandle {
	switch e := kind.(type) {
	case ExprAccess:
		return []ExpressionHandle{e.Base, e.Index}
	case ExprAccessIndex:
		return []ExpressionHandle{e.Base}
	case ExprSwizzle:
		return []ExpressionHandle{e.Vector}
	case ExprCompose:
		return e.Components
	case ExprUnary:
		return []ExpressionHandle{e.Expr}
	case ExprBinary:
		return []ExpressionHandle{e.Left, e.Right}
	case ExprSelect:
		return []ExpressionHandle{e.Condition, e.Accept, e.Reject}
	case ExprMath:
		out := []ExpressionHandle{e.Arg}
		if e.Arg1 != nil {
			out = append(out, *e.Arg1)
		}
		if e.Arg2 != nil {
			out = append(out, *e.Arg2)
		}
		return out
	case ExprDerivative:
		return []ExpressionHandle{e.Expr}
	case ExprImageSample:
		out := []ExpressionHandle{e.Image, e.Coordinate}
		if e.Level != nil {
			out = append(out, *e.Level)
		}
		return out
	case ExprCall:
		return e.Arguments
	}
	return nil
}
