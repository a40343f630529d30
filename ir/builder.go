package ir

// Builder appends expressions to one function of a module. It holds the
// function by handle because appending functions may move the arena.
type Builder struct {
	Module *Module
	Handle FunctionHandle
	Types  *TypeRegistry
}

// NewBuilder returns a builder for the given function.
func NewBuilder(module *Module, fn FunctionHandle, types *TypeRegistry) *Builder {
	if types == nil {
		types = NewTypeRegistry(module)
	}
	return &Builder{Module: module, Handle: fn, Types: types}
}

// Function returns the function being built.
func (b *Builder) Function() *Function {
	return &b.Module.Functions[b.Handle]
}

// Expr appends an expression.
func (b *Builder) Expr(kind ExpressionKind) ExpressionHandle {
	return b.Function().AddExpression(kind)
}

// Float appends a float literal.
func (b *Builder) Float(v float32) ExpressionHandle {
	return b.Expr(Literal{Value: LiteralF32(v)})
}

// Int appends an int literal.
func (b *Builder) Int(v int32) ExpressionHandle {
	return b.Expr(Literal{Value: LiteralI32(v)})
}

// Uint appends a uint literal.
func (b *Builder) Uint(v uint32) ExpressionHandle {
	return b.Expr(Literal{Value: LiteralU32(v)})
}

// Bool appends a bool literal.
func (b *Builder) Bool(v bool) ExpressionHandle {
	return b.Expr(Literal{Value: LiteralBool(v)})
}

// Global references a global variable.
func (b *Builder) Global(h GlobalVariableHandle) ExpressionHandle {
	return b.Expr(ExprGlobalVariable{Variable: h})
}

// Local references a local variable.
func (b *Builder) Local(index uint32) ExpressionHandle {
	return b.Expr(ExprLocalVariable{Variable: index})
}

// Argument references a function argument.
func (b *Builder) Argument(index uint32) ExpressionHandle {
	return b.Expr(ExprFunctionArgument{Index: index})
}

// NewLocal declares a local variable of the given type.
func (b *Builder) NewLocal(name string, typ TypeHandle) uint32 {
	return b.Function().AddLocal(name, typ)
}

// Swizzle selects components of a vector.
func (b *Builder) Swizzle(vector ExpressionHandle, components ...SwizzleComponent) ExpressionHandle {
	sw := ExprSwizzle{Size: uint8(len(components)), Vector: vector}
	copy(sw.Pattern[:], components)
	return b.Expr(sw)
}

// Field selects a struct member, or a constant vector/array element.
func (b *Builder) Field(base ExpressionHandle, index uint32) ExpressionHandle {
	return b.Expr(ExprAccessIndex{Base: base, Index: index})
}

// Index indexes an array, vector or matrix dynamically.
func (b *Builder) Index(base, index ExpressionHandle) ExpressionHandle {
	return b.Expr(ExprAccess{Base: base, Index: index})
}

// Binary applies a binary operator.
func (b *Builder) Binary(op BinaryOperator, left, right ExpressionHandle) ExpressionHandle {
	return b.Expr(ExprBinary{Op: op, Left: left, Right: right})
}

// Add returns left + right.
func (b *Builder) Add(left, right ExpressionHandle) ExpressionHandle {
	return b.Binary(BinaryAdd, left, right)
}

// Sub returns left - right.
func (b *Builder) Sub(left, right ExpressionHandle) ExpressionHandle {
	return b.Binary(BinarySubtract, left, right)
}

// Mul returns left * right.
func (b *Builder) Mul(left, right ExpressionHandle) ExpressionHandle {
	return b.Binary(BinaryMultiply, left, right)
}

// Div returns left / right.
func (b *Builder) Div(left, right ExpressionHandle) ExpressionHandle {
	return b.Binary(BinaryDivide, left, right)
}

// Unary applies a unary operator.
func (b *Builder) Unary(op UnaryOperator, e ExpressionHandle) ExpressionHandle {
	return b.Expr(ExprUnary{Op: op, Expr: e})
}

// Math calls a built-in math function with one to three arguments.
func (b *Builder) Math(fun MathFunction, args ...ExpressionHandle) ExpressionHandle {
	m := ExprMath{Fun: fun, Arg: args[0]}
	if len(args) > 1 {
		a := args[1]
		m.Arg1 = &a
	}
	if len(args) > 2 {
		a := args[2]
		m.Arg2 = &a
	}
	return b.Expr(m)
}

// Derivative computes dFdx, dFdy or fwidth.
func (b *Builder) Derivative(axis DerivativeAxis, e ExpressionHandle) ExpressionHandle {
	return b.Expr(ExprDerivative{Axis: axis, Expr: e})
}

// Compose calls a type constructor.
func (b *Builder) Compose(typ TypeHandle, components ...ExpressionHandle) ExpressionHandle {
	return b.Expr(ExprCompose{Type: typ, Components: components})
}

// Call calls a value-returning function.
func (b *Builder) Call(fn FunctionHandle, args ...ExpressionHandle) ExpressionHandle {
	return b.Expr(ExprCall{Function: fn, Arguments: args})
}

// Store builds an assignment statement.
func Store(pointer, value ExpressionHandle) Statement {
	return Statement{Kind: StmtStore{Pointer: pointer, Value: value}}
}

// If builds a conditional statement.
func If(cond ExpressionHandle, accept, reject Block) Statement {
	return Statement{Kind: StmtIf{Condition: cond, Accept: accept, Reject: reject}}
}

// Return builds a return statement.
func Return(value *ExpressionHandle) Statement {
	return Statement{Kind: StmtReturn{Value: value}}
}

// Kill builds a discard statement.
func Kill() Statement {
	return Statement{Kind: StmtKill{}}
}
