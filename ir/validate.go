package ir

import (
	"fmt"
)

// ValidationError represents a validation error.
type ValidationError struct {
	Message string
	// Optional context
	Function   string
	Expression *ExpressionHandle
	Statement  int
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Function != "" {
		if e.Expression != nil {
			return fmt.Sprintf("in function %s, expression %d: %s", e.Function, *e.Expression, e.Message)
		}
		if e.Statement >= 0 {
			return fmt.Sprintf("in function %s, statement %d: %s", e.Function, e.Statement, e.Message)
		}
		return fmt.Sprintf("in function %s: %s", e.Function, e.Message)
	}
	return e.Message
}

// Validator checks the structural invariants of a module.
type Validator struct {
	module  *Module
	errors  []ValidationError
	context validationContext
}

// validationContext holds current validation context.
type validationContext struct {
	function     *Function
	functionName string
	loopDepth    int
	statement    int
	parents      map[ExpressionHandle]int
}

// Validate checks the module for correctness.
// Returns validation errors if any, or nil if module is valid.
func Validate(module *Module) ([]ValidationError, error) {
	if module == nil {
		return nil, fmt.Errorf("module is nil")
	}

	v := &Validator{module: module}
	v.ValidateModule()

	if len(v.errors) > 0 {
		return v.errors, nil
	}
	return nil, nil
}

// ValidateModule validates the complete module.
func (v *Validator) ValidateModule() {
	v.validateTypes()
	v.validateGlobalVariables()
	v.validateFunctions()
	v.validateEntryPoint()
}

func (v *Validator) addError(msg string) {
	v.errors = append(v.errors, ValidationError{
		Message:   msg,
		Function:  v.context.functionName,
		Statement: -1,
	})
}

func (v *Validator) addStatementError(msg string) {
	v.errors = append(v.errors, ValidationError{
		Message:   msg,
		Function:  v.context.functionName,
		Statement: v.context.statement,
	})
}

func (v *Validator) addExpressionError(h ExpressionHandle, msg string) {
	v.errors = append(v.errors, ValidationError{
		Message:    msg,
		Function:   v.context.functionName,
		Expression: &h,
		Statement:  -1,
	})
}

func (v *Validator) isValidTypeHandle(h TypeHandle) bool {
	return int(h) < len(v.module.Types)
}

// validateTypes checks all type definitions.
//
//nolint:gocognit,gocyclo,cyclop // Type validation requires checking many type variants
func (v *Validator) validateTypes() {
	for i := range v.module.Types {
		handle := TypeHandle(i)
		typ := &v.module.Types[i]
		if typ.Inner == nil {
			v.addError(fmt.Sprintf("type %d has nil inner type", handle))
			continue
		}
		switch inner := typ.Inner.(type) {
		case VectorType:
			if inner.Size < Vec2 || inner.Size > Vec4 {
				v.addError(fmt.Sprintf("type %d: vector size must be 2, 3, or 4, got %d", handle, inner.Size))
			}
		case MatrixType:
			if inner.Columns < Vec2 || inner.Columns > Vec4 || inner.Rows < Vec2 || inner.Rows > Vec4 {
				v.addError(fmt.Sprintf("type %d: invalid matrix dimensions %dx%d", handle, inner.Columns, inner.Rows))
			}
		case ArrayType:
			if !v.isValidTypeHandle(inner.Base) {
				v.addError(fmt.Sprintf("type %d: array base type %d does not exist", handle, inner.Base))
			}
			if inner.Base == handle {
				v.addError(fmt.Sprintf("type %d: array has circular reference to itself", handle))
			}
		case StructType:
			if len(inner.Members) == 0 {
				v.addError(fmt.Sprintf("type %d: struct %q has no members", handle, typ.Name))
			}
			seen := make(map[string]bool, len(inner.Members))
			for _, member := range inner.Members {
				if !v.isValidTypeHandle(member.Type) || member.Type == handle {
					v.addError(fmt.Sprintf("type %d: member %q has invalid type %d", handle, member.Name, member.Type))
				}
				if seen[member.Name] {
					v.addError(fmt.Sprintf("type %d: duplicate member %q", handle, member.Name))
				}
				seen[member.Name] = true
			}
		}
	}
}

// validateGlobalVariables checks the symbol table.
//
//nolint:gocognit,gocyclo,cyclop // One rule per qualifier
func (v *Validator) validateGlobalVariables() {
	names := make(map[string]GlobalVariableHandle)
	for i := range v.module.GlobalVariables {
		g := &v.module.GlobalVariables[i]
		if g.Removed {
			continue
		}
		handle := GlobalVariableHandle(i)
		if !v.isValidTypeHandle(g.Type) {
			v.addError(fmt.Sprintf("global %q: type %d does not exist", g.Name, g.Type))
			continue
		}
		if g.Block {
			if _, ok := v.blockStruct(g.Type); !ok {
				v.addError(fmt.Sprintf("interface block %q is not a struct", g.Name))
			}
			if g.Qualifier != QualifierUniform && g.Qualifier != QualifierBuffer {
				v.addError(fmt.Sprintf("interface block %q must be uniform or buffer", g.Name))
			}
		}
		switch g.Qualifier {
		case QualifierConst, QualifierSpecConstant:
			if g.Init == nil {
				v.addError(fmt.Sprintf("constant %q has no initializer", g.Name))
			}
		}
		if g.Qualifier == QualifierSpecConstant && g.Layout.ConstantID < 0 {
			v.addError(fmt.Sprintf("specialization constant %q has no constant_id", g.Name))
		}
		if g.Name == "" {
			if !g.Block {
				v.addError(fmt.Sprintf("global %d has no name", handle))
			}
			continue
		}
		if prev, dup := names[g.Name]; dup {
			v.addError(fmt.Sprintf("global %q redeclared (handles %d and %d)", g.Name, prev, handle))
		}
		names[g.Name] = handle
	}
}

// blockStruct returns the struct type of a block, looking through arrays.
func (v *Validator) blockStruct(h TypeHandle) (StructType, bool) {
	for depth := 0; depth < 8 && v.isValidTypeHandle(h); depth++ {
		switch t := v.module.Types[h].Inner.(type) {
		case StructType:
			return t, true
		case ArrayType:
			h = t.Base
		default:
			return StructType{}, false
		}
	}
	return StructType{}, false
}

func (v *Validator) validateEntryPoint() {
	v.context = validationContext{}
	main := v.module.Main()
	if main == nil {
		v.addError(fmt.Sprintf("entry point handle %d does not exist", v.module.EntryPoint))
		return
	}
	if main.Name != "main" {
		v.addError(fmt.Sprintf("entry point is named %q, want main", main.Name))
	}
	if len(main.Arguments) != 0 || main.Result != nil {
		v.addError("main must take no arguments and return void")
	}
}

func (v *Validator) validateFunctions() {
	names := make(map[string]bool, len(v.module.Functions))
	for i := range v.module.Functions {
		fn := &v.module.Functions[i]
		if names[fn.Name] {
			v.context = validationContext{}
			v.addError(fmt.Sprintf("function %q redefined", fn.Name))
		}
		names[fn.Name] = true
		v.validateFunction(FunctionHandle(i), fn)
	}
}

func (v *Validator) validateFunction(handle FunctionHandle, fn *Function) {
	v.context = validationContext{
		function:     fn,
		functionName: fn.Name,
		parents:      make(map[ExpressionHandle]int),
	}
	for _, arg := range fn.Arguments {
		if !v.isValidTypeHandle(arg.Type) {
			v.addError(fmt.Sprintf("argument %q has invalid type %d", arg.Name, arg.Type))
		}
	}
	for _, local := range fn.LocalVars {
		if !v.isValidTypeHandle(local.Type) {
			v.addError(fmt.Sprintf("local %q has invalid type %d", local.Name, local.Type))
		}
	}
	if fn.Result != nil && !v.isValidTypeHandle(*fn.Result) {
		v.addError(fmt.Sprintf("result type %d does not exist", *fn.Result))
	}
	v.validateBlock(handle, fn.Body)
}

//nolint:gocognit,gocyclo,cyclop // One case per statement kind
func (v *Validator) validateBlock(handle FunctionHandle, block Block) {
	fn := v.context.function
	for i, stmt := range block {
		v.context.statement = i
		switch s := stmt.Kind.(type) {
		case StmtBlock:
			v.validateBlock(handle, s.Block)
		case StmtIf:
			v.validateExpression(s.Condition)
			if res, err := ResolveExpressionType(v.module, fn, s.Condition); err == nil {
				if sc, ok := res.Inner(v.module).(ScalarType); !ok || sc.Kind != ScalarBool {
					v.addStatementError("if condition must be a scalar bool")
				}
			}
			v.validateBlock(handle, s.Accept)
			v.validateBlock(handle, s.Reject)
		case StmtLoop:
			v.context.loopDepth++
			v.validateBlock(handle, s.Body)
			v.context.loopDepth--
		case StmtBreak, StmtContinue:
			if v.context.loopDepth == 0 {
				v.addStatementError("break or continue outside of a loop")
			}
		case StmtReturn:
			if (s.Value == nil) != (fn.Result == nil) {
				v.addStatementError("return value does not match function result")
			}
			if s.Value != nil {
				v.validateExpression(*s.Value)
			}
		case StmtKill:
			if v.module.Stage != StageFragment {
				v.addStatementError("discard is only valid in fragment shaders")
			}
		case StmtStore:
			v.validateExpression(s.Pointer)
			v.validateExpression(s.Value)
			v.validateLValue(s.Pointer)
		case StmtCall:
			if int(s.Function) >= len(v.module.Functions) {
				v.addStatementError(fmt.Sprintf("call to unknown function %d", s.Function))
			} else if s.Function == handle {
				v.addStatementError("recursive call")
			} else if want := len(v.module.Functions[s.Function].Arguments); want != len(s.Arguments) {
				v.addStatementError(fmt.Sprintf("call passes %d arguments, want %d", len(s.Arguments), want))
			}
			for _, arg := range s.Arguments {
				v.validateExpression(arg)
			}
		case StmtPlaceholder:
			if s.Name == "" {
				v.addStatementError("unnamed placeholder")
			}
		default:
			v.addStatementError(fmt.Sprintf("unknown statement kind %T", stmt.Kind))
		}
	}
}

// validateExpression checks an expression tree rooted at h. Every expression
// may appear at most once in the function's tree.
//
//nolint:gocognit,gocyclo,cyclop // One case per expression kind
func (v *Validator) validateExpression(h ExpressionHandle) {
	fn := v.context.function
	if int(h) >= len(fn.Expressions) {
		v.addExpressionError(h, fmt.Sprintf("expression handle out of range (%d expressions)", len(fn.Expressions)))
		return
	}
	v.context.parents[h]++
	if v.context.parents[h] > 1 {
		v.addExpressionError(h, "expression is referenced more than once in the tree")
		return
	}

	switch e := fn.Expressions[h].Kind.(type) {
	case nil:
		v.addExpressionError(h, "expression has no kind")
		return
	case Literal:
		if e.Value == nil {
			v.addExpressionError(h, "literal has no value")
		}
	case ExprGlobalVariable:
		if int(e.Variable) >= len(v.module.GlobalVariables) {
			v.addExpressionError(h, fmt.Sprintf("global variable %d does not exist", e.Variable))
		} else if v.module.GlobalVariables[e.Variable].Removed {
			v.addExpressionError(h, fmt.Sprintf("reference to removed global %q", v.module.GlobalVariables[e.Variable].Name))
		}
	case ExprLocalVariable:
		if int(e.Variable) >= len(fn.LocalVars) {
			v.addExpressionError(h, fmt.Sprintf("local variable %d does not exist", e.Variable))
		}
	case ExprFunctionArgument:
		if int(e.Index) >= len(fn.Arguments) {
			v.addExpressionError(h, fmt.Sprintf("argument %d does not exist", e.Index))
		}
	case ExprCompose:
		if !v.isValidTypeHandle(e.Type) {
			v.addExpressionError(h, fmt.Sprintf("constructor type %d does not exist", e.Type))
		}
		if len(e.Components) == 0 {
			v.addExpressionError(h, "constructor without arguments")
		}
	case ExprSwizzle:
		if e.Size < 1 || e.Size > 4 {
			v.addExpressionError(h, fmt.Sprintf("swizzle size %d", e.Size))
		}
	case ExprCall:
		if int(e.Function) >= len(v.module.Functions) {
			v.addExpressionError(h, fmt.Sprintf("call to unknown function %d", e.Function))
		}
	}

	for _, child := range ExpressionChildren(fn.Expressions[h].Kind) {
		v.validateExpression(child)
	}

	if _, err := ResolveExpressionType(v.module, fn, h); err != nil {
		v.addExpressionError(h, err.Error())
		return
	}
	if sw, ok := fn.Expressions[h].Kind.(ExprSwizzle); ok {
		v.validateSwizzleRange(h, sw)
	}
}

func (v *Validator) validateSwizzleRange(h ExpressionHandle, sw ExprSwizzle) {
	res, err := ResolveExpressionType(v.module, v.context.function, sw.Vector)
	if err != nil {
		return
	}
	vec, ok := res.Inner(v.module).(VectorType)
	if !ok {
		return
	}
	for i := uint8(0); i < sw.Size && i < 4; i++ {
		if uint8(sw.Pattern[i]) >= uint8(vec.Size) {
			v.addExpressionError(h, fmt.Sprintf("swizzle component %d out of range for vec%d", sw.Pattern[i], vec.Size))
		}
	}
}

// validateLValue checks that a store target is a writable variable access
// chain.
func (v *Validator) validateLValue(h ExpressionHandle) {
	fn := v.context.function
	for depth := 0; depth < 64; depth++ {
		if int(h) >= len(fn.Expressions) {
			return
		}
		switch e := fn.Expressions[h].Kind.(type) {
		case ExprLocalVariable, ExprFunctionArgument:
			return
		case ExprGlobalVariable:
			if int(e.Variable) >= len(v.module.GlobalVariables) {
				return
			}
			g := &v.module.GlobalVariables[e.Variable]
			switch g.Qualifier {
			case QualifierConst, QualifierSpecConstant, QualifierUniform, QualifierIn:
				v.addExpressionError(h, fmt.Sprintf("store to read-only variable %q", g.Name))
			}
			return
		case ExprAccess:
			h = e.Base
		case ExprAccessIndex:
			h = e.Base
		case ExprSwizzle:
			seen := [4]bool{}
			for i := uint8(0); i < e.Size && i < 4; i++ {
				if seen[e.Pattern[i]] {
					v.addExpressionError(h, "store through a swizzle with repeated components")
				}
				seen[e.Pattern[i]] = true
			}
			h = e.Vector
		default:
			v.addExpressionError(h, fmt.Sprintf("store target %T is not an l-value", e))
			return
		}
	}
}
