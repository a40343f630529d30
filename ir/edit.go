package ir

import "fmt"

// Edit is a deferred structural change to a module. Rewrite passes collect
// edits while walking the tree and apply them afterwards with ApplyEdits.
type Edit interface {
	edit()
}

// EditReplaceGlobal redirects every reference to Old to New.
type EditReplaceGlobal struct {
	Old GlobalVariableHandle
	New GlobalVariableHandle
}

func (EditReplaceGlobal) edit() {}

// EditReplaceExpression overwrites an expression node in place. Parents keep
// their handle; the previous children become unreachable.
type EditReplaceExpression struct {
	Function   FunctionHandle
	Expression ExpressionHandle
	Kind       ExpressionKind
}

func (EditReplaceExpression) edit() {}

// InsertPosition selects where EditInsertStatements places its block.
type InsertPosition uint8

const (
	// InsertAtStart prepends to the function body.
	InsertAtStart InsertPosition = iota
	// InsertAtEnd runs the statements before every return of the function
	// and at the end of its body.
	InsertAtEnd
)

// EditInsertStatements inserts statements into a function body.
type EditInsertStatements struct {
	Function   FunctionHandle
	Position   InsertPosition
	Statements Block
}

func (EditInsertStatements) edit() {}

// EditRemoveGlobal deletes a global declaration. The global must no longer be
// referenced once all edits are applied.
type EditRemoveGlobal struct {
	Variable GlobalVariableHandle
}

func (EditRemoveGlobal) edit() {}

// EditRetypeGlobal changes the declared type of a global.
type EditRetypeGlobal struct {
	Variable GlobalVariableHandle
	Type     TypeHandle
}

func (EditRetypeGlobal) edit() {}

// ApplyEdits applies edits in order.
func ApplyEdits(module *Module, edits []Edit) error {
	for i, e := range edits {
		if err := applyEdit(module, e); err != nil {
			return fmt.Errorf("edit %d (%T): %w", i, e, err)
		}
	}
	return nil
}

//nolint:gocyclo,cyclop // One case per edit kind
func applyEdit(module *Module, e Edit) error {
	switch e := e.(type) {
	case EditReplaceGlobal:
		if int(e.Old) >= len(module.GlobalVariables) || int(e.New) >= len(module.GlobalVariables) {
			return fmt.Errorf("global handle out of range")
		}
		for fi := range module.Functions {
			exprs := module.Functions[fi].Expressions
			for h := range exprs {
				if g, ok := exprs[h].Kind.(ExprGlobalVariable); ok && g.Variable == e.Old {
					exprs[h].Kind = ExprGlobalVariable{Variable: e.New}
				}
			}
		}
	case EditReplaceExpression:
		if int(e.Function) >= len(module.Functions) {
			return fmt.Errorf("function %d out of range", e.Function)
		}
		fn := &module.Functions[e.Function]
		if int(e.Expression) >= len(fn.Expressions) {
			return fmt.Errorf("expression %d out of range", e.Expression)
		}
		fn.Expressions[e.Expression].Kind = e.Kind
	case EditInsertStatements:
		if int(e.Function) >= len(module.Functions) {
			return fmt.Errorf("function %d out of range", e.Function)
		}
		fn := &module.Functions[e.Function]
		switch e.Position {
		case InsertAtStart:
			body := make(Block, 0, len(e.Statements)+len(fn.Body))
			body = append(body, e.Statements...)
			fn.Body = append(body, fn.Body...)
		case InsertAtEnd:
			insertAtEnd(fn, e.Statements)
		default:
			return fmt.Errorf("unknown insert position %d", e.Position)
		}
	case EditRemoveGlobal:
		if int(e.Variable) >= len(module.GlobalVariables) {
			return fmt.Errorf("global %d out of range", e.Variable)
		}
		module.GlobalVariables[e.Variable].Removed = true
	case EditRetypeGlobal:
		if int(e.Variable) >= len(module.GlobalVariables) {
			return fmt.Errorf("global %d out of range", e.Variable)
		}
		if int(e.Type) >= len(module.Types) {
			return fmt.Errorf("type %d out of range", e.Type)
		}
		module.GlobalVariables[e.Variable].Type = e.Type
	default:
		return fmt.Errorf("unknown edit kind")
	}
	return nil
}

// insertAtEnd places statements before each return and at the end of the
// body. The first placement uses the given statements; later ones use copies
// so the expression tree property holds.
func insertAtEnd(fn *Function, stmts Block) {
	used := false
	next := func() Block {
		if !used {
			used = true
			return stmts
		}
		return CopyBlock(fn, stmts)
	}

	var rewrite func(b Block) Block
	rewrite = func(b Block) Block {
		out := make(Block, 0, len(b))
		for _, stmt := range b {
			switch s := stmt.Kind.(type) {
			case StmtReturn:
				out = append(out, next()...)
			case StmtBlock:
				s.Block = rewrite(s.Block)
				stmt.Kind = s
			case StmtIf:
				s.Accept = rewrite(s.Accept)
				s.Reject = rewrite(s.Reject)
				stmt.Kind = s
			case StmtLoop:
				s.Body = rewrite(s.Body)
				stmt.Kind = s
			}
			out = append(out, stmt)
		}
		return out
	}

	body := rewrite(fn.Body)
	if n := len(body); n == 0 {
		body = append(body, next()...)
	} else if _, ok := body[n-1].Kind.(StmtReturn); !ok {
		body = append(body, next()...)
	}
	fn.Body = body
}

// CopyExpression deep-copies the expression tree rooted at h within fn and
// returns the handle of the copy.
func CopyExpression(fn *Function, h ExpressionHandle) ExpressionHandle {
	kind := fn.Expressions[h].Kind
	switch e := kind.(type) {
	case ExprAccess:
		e.Base = CopyExpression(fn, e.Base)
		e.Index = CopyExpression(fn, e.Index)
		kind = e
	case ExprAccessIndex:
		e.Base = CopyExpression(fn, e.Base)
		kind = e
	case ExprSwizzle:
		e.Vector = CopyExpression(fn, e.Vector)
		kind = e
	case ExprCompose:
		e.Components = copyHandles(fn, e.Components)
		kind = e
	case ExprUnary:
		e.Expr = CopyExpression(fn, e.Expr)
		kind = e
	case ExprBinary:
		e.Left = CopyExpression(fn, e.Left)
		e.Right = CopyExpression(fn, e.Right)
		kind = e
	case ExprSelect:
		e.Condition = CopyExpression(fn, e.Condition)
		e.Accept = CopyExpression(fn, e.Accept)
		e.Reject = CopyExpression(fn, e.Reject)
		kind = e
	case ExprMath:
		e.Arg = CopyExpression(fn, e.Arg)
		e.Arg1 = copyOptional(fn, e.Arg1)
		e.Arg2 = copyOptional(fn, e.Arg2)
		kind = e
	case ExprDerivative:
		e.Expr = CopyExpression(fn, e.Expr)
		kind = e
	case ExprImageSample:
		e.Image = CopyExpression(fn, e.Image)
		e.Coordinate = CopyExpression(fn, e.Coordinate)
		e.Level = copyOptional(fn, e.Level)
		kind = e
	case ExprCall:
		e.Arguments = copyHandles(fn, e.Arguments)
		kind = e
	}
	return fn.AddExpression(kind)
}

func copyHandles(fn *Function, hs []ExpressionHandle) []ExpressionHandle {
	out := make([]ExpressionHandle, len(hs))
	for i, h := range hs {
		out[i] = CopyExpression(fn, h)
	}
	return out
}

func copyOptional(fn *Function, h *ExpressionHandle) *ExpressionHandle {
	if h == nil {
		return nil
	}
	c := CopyExpression(fn, *h)
	return &c
}

// CopyBlock deep-copies a block, duplicating every expression it references.
func CopyBlock(fn *Function, b Block) Block {
	out := make(Block, len(b))
	for i, stmt := range b {
		switch s := stmt.Kind.(type) {
		case StmtBlock:
			s.Block = CopyBlock(fn, s.Block)
			stmt.Kind = s
		case StmtIf:
			s.Condition = CopyExpression(fn, s.Condition)
			s.Accept = CopyBlock(fn, s.Accept)
			s.Reject = CopyBlock(fn, s.Reject)
			stmt.Kind = s
		case StmtLoop:
			s.Body = CopyBlock(fn, s.Body)
			stmt.Kind = s
		case StmtReturn:
			s.Value = copyOptional(fn, s.Value)
			stmt.Kind = s
		case StmtStore:
			s.Pointer = CopyExpression(fn, s.Pointer)
			s.Value = CopyExpression(fn, s.Value)
			stmt.Kind = s
		case StmtCall:
			s.Arguments = copyHandles(fn, s.Arguments)
			stmt.Kind = s
		}
		out[i] = stmt
	}
	return out
}
