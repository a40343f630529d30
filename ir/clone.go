package ir

// Clone returns a deep copy of the module. Handles stay valid in the copy,
// so a compiled tree can be rewritten once per link while the original is
// kept for later relinks.
func (m *Module) Clone() *Module {
	out := *m
	out.Types = make([]Type, len(m.Types))
	for i, t := range m.Types {
		if st, ok := t.Inner.(StructType); ok {
			st.Members = append([]StructMember(nil), st.Members...)
			t.Inner = st
		}
		out.Types[i] = t
	}
	out.GlobalVariables = append([]GlobalVariable(nil), m.GlobalVariables...)
	out.Functions = make([]Function, len(m.Functions))
	for i := range m.Functions {
		out.Functions[i] = m.Functions[i].clone()
	}
	return &out
}

func (f *Function) clone() Function {
	out := *f
	out.Arguments = append([]FunctionArgument(nil), f.Arguments...)
	out.LocalVars = append([]LocalVariable(nil), f.LocalVars...)
	if f.Result != nil {
		r := *f.Result
		out.Result = &r
	}
	out.Expressions = make([]Expression, len(f.Expressions))
	for i, e := range f.Expressions {
		out.Expressions[i] = Expression{Kind: cloneExpressionKind(e.Kind)}
	}
	out.Body = cloneBlock(f.Body)
	return out
}

func cloneHandle(h *ExpressionHandle) *ExpressionHandle {
	if h == nil {
		return nil
	}
	c := *h
	return &c
}

func cloneExpressionKind(kind ExpressionKind) ExpressionKind {
	switch e := kind.(type) {
	case ExprCompose:
		e.Components = append([]ExpressionHandle(nil), e.Components...)
		return e
	case ExprCall:
		e.Arguments = append([]ExpressionHandle(nil), e.Arguments...)
		return e
	case ExprMath:
		e.Arg1 = cloneHandle(e.Arg1)
		e.Arg2 = cloneHandle(e.Arg2)
		return e
	case ExprImageSample:
		e.Level = cloneHandle(e.Level)
		return e
	}
	return kind
}

func cloneBlock(b Block) Block {
	if b == nil {
		return nil
	}
	out := make(Block, len(b))
	for i, stmt := range b {
		switch s := stmt.Kind.(type) {
		case StmtBlock:
			s.Block = cloneBlock(s.Block)
			stmt.Kind = s
		case StmtIf:
			s.Accept = cloneBlock(s.Accept)
			s.Reject = cloneBlock(s.Reject)
			stmt.Kind = s
		case StmtLoop:
			s.Body = cloneBlock(s.Body)
			stmt.Kind = s
		case StmtReturn:
			s.Value = cloneHandle(s.Value)
			stmt.Kind = s
		case StmtCall:
			s.Arguments = append([]ExpressionHandle(nil), s.Arguments...)
			stmt.Kind = s
		}
		out[i] = stmt
	}
	return out
}
