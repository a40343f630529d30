package ir

// Statement represents a statement in the AST.
// Statements have side effects and structured control flow, but do not produce values.
type Statement struct {
	Kind StatementKind
}

// StatementKind represents the different kinds of statements.
type StatementKind interface {
	statementKind()
}

// Block represents a sequence of statements executed in order.
type Block []Statement

// StmtBlock contains a nested scope.
type StmtBlock struct {
	Block Block
}

func (StmtBlock) statementKind() {}

// StmtIf conditionally executes one of two blocks based on the condition value.
type StmtIf struct {
	Condition ExpressionHandle // Must be a bool expression
	Accept    Block
	Reject    Block
}

func (StmtIf) statementKind() {}

// StmtLoop executes Body until a Break (or Return/Kill) leaves it.
type StmtLoop struct {
	Body Block
}

func (StmtLoop) statementKind() {}

// StmtBreak exits the innermost enclosing loop.
type StmtBreak struct{}

func (StmtBreak) statementKind() {}

// StmtContinue skips to the next iteration of the innermost enclosing loop.
type StmtContinue struct{}

func (StmtContinue) statementKind() {}

// StmtReturn returns from the function, possibly with a value.
type StmtReturn struct {
	Value *ExpressionHandle
}

func (StmtReturn) statementKind() {}

// StmtKill discards the fragment. Only valid in fragment shaders.
type StmtKill struct{}

func (StmtKill) statementKind() {}

// StmtStore assigns Value to the l-value expression Pointer.
type StmtStore struct {
	Pointer ExpressionHandle
	Value   ExpressionHandle
}

func (StmtStore) statementKind() {}

// StmtCall calls a function and discards any result.
type StmtCall struct {
	Function  FunctionHandle
	Arguments []ExpressionHandle
}

func (StmtCall) statementKind() {}

// StmtPlaceholder marks a position that the code generator replaces with
// backend-specific statements (for example transform feedback capture).
type StmtPlaceholder struct {
	Name string
}

func (StmtPlaceholder) statementKind() {}

// statementExpressions returns the expression roots a statement references
// directly (not those of nested blocks).
func statementExpressions(kind StatementKind) []ExpressionHandle {
	switch s := kind.(type) {
	case StmtIf:
		return []ExpressionHandle{s.Condition}
	case StmtReturn:
		if s.Value != nil {
			return []ExpressionHandle{*s.Value}
		}
	case StmtStore:
		return []ExpressionHandle{s.Pointer, s.Value}
	case StmtCall:
		return s.Arguments
	}
	return nil
}

// nestedBlocks returns the blocks nested directly in a statement.
func nestedBlocks(kind StatementKind) []Block {
	switch s := kind.(type) {
	case StmtBlock:
		return []Block{s.Block}
	case StmtIf:
		return []Block{s.Accept, s.Reject}
	case StmtLoop:
		return []Block{s.Body}
	}
	return nil
}

// WalkExpressions calls visit for every expression reachable from the
// function body, parents before children. Orphaned arena entries are not
// visited.
func (f *Function) WalkExpressions(visit func(ExpressionHandle)) {
	var walkExpr func(h ExpressionHandle)
	walkExpr = func(h ExpressionHandle) {
		visit(h)
		if int(h) >= len(f.Expressions) {
			return
		}
		for _, child := range ExpressionChildren(f.Expressions[h].Kind) {
			walkExpr(child)
		}
	}
	var walkBlock func(b Block)
	walkBlock = func(b Block) {
		for _, stmt := range b {
			for _, root := range statementExpressions(stmt.Kind) {
				walkExpr(root)
			}
			for _, nested := range nestedBlocks(stmt.Kind) {
				walkBlock(nested)
			}
		}
	}
	walkBlock(f.Body)
}

// ReferencesGlobal reports whether any reachable expression of the function
// references the global.
func (f *Function) ReferencesGlobal(handle GlobalVariableHandle) bool {
	found := false
	f.WalkExpressions(func(h ExpressionHandle) {
		if int(h) >= len(f.Expressions) {
			return
		}
		if g, ok := f.Expressions[h].Kind.(ExprGlobalVariable); ok && g.Variable == handle {
			found = true
		}
	})
	return found
}
