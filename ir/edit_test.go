package ir

import (
	"testing"
)

func TestApplyEdits_ReplaceGlobal(t *testing.T) {
	m := newTestModule(StageFragment)
	types := NewTypeRegistry(m)
	replacement := m.AddGlobal(GlobalVariable{Name: "flipped", Type: types.Vector(Vec4, ScalarFloat), Layout: NoLayout()})

	b := NewBuilder(m, 0, types)
	b.Function().Body = Block{Store(b.Global(1), b.Global(0))}

	if err := ApplyEdits(m, []Edit{EditReplaceGlobal{Old: 0, New: replacement}}); err != nil {
		t.Fatalf("ApplyEdits: %v", err)
	}
	if m.UsesGlobal(0) {
		t.Error("gl_FragCoord still referenced after replacement")
	}
	if !m.UsesGlobal(replacement) {
		t.Error("replacement global not referenced")
	}
	mustValidate(t, m)
}

func TestApplyEdits_InsertAtStartKeepsOrder(t *testing.T) {
	m := newTestModule(StageFragment)
	b := NewBuilder(m, 0, nil)
	original := Store(b.Global(1), b.Global(0))
	b.Function().Body = Block{original}

	inserted := Store(b.Swizzle(b.Global(1), SwizzleX), b.Float(1))
	if err := ApplyEdits(m, []Edit{EditInsertStatements{Function: 0, Position: InsertAtStart, Statements: Block{inserted}}}); err != nil {
		t.Fatalf("ApplyEdits: %v", err)
	}
	body := m.Functions[0].Body
	if len(body) != 2 {
		t.Fatalf("len(body) = %d, want 2", len(body))
	}
	if body[0].Kind.(StmtStore).Value != inserted.Kind.(StmtStore).Value {
		t.Error("inserted statement is not first")
	}
	mustValidate(t, m)
}

func TestApplyEdits_InsertAtEndRunsBeforeEveryReturn(t *testing.T) {
	m := newTestModule(StageFragment)
	types := NewTypeRegistry(m)
	flag := m.AddGlobal(GlobalVariable{Name: "flag", Type: types.Scalar(ScalarBool), Qualifier: QualifierUniform, Layout: NoLayout()})
	b := NewBuilder(m, 0, types)
	b.Function().Body = Block{
		If(b.Global(flag), Block{Return(nil)}, nil),
		Store(b.Global(1), b.Global(0)),
	}

	tail := Store(b.Swizzle(b.Global(1), SwizzleZ), b.Float(0.5))
	if err := ApplyEdits(m, []Edit{EditInsertStatements{Function: 0, Position: InsertAtEnd, Statements: Block{tail}}}); err != nil {
		t.Fatalf("ApplyEdits: %v", err)
	}

	body := m.Functions[0].Body
	if len(body) != 3 {
		t.Fatalf("len(body) = %d, want 3", len(body))
	}
	accept := body[0].Kind.(StmtIf).Accept
	if len(accept) != 2 {
		t.Fatalf("early return block has %d statements, want 2", len(accept))
	}
	if _, ok := accept[0].Kind.(StmtStore); !ok {
		t.Errorf("statement before return is %T, want StmtStore", accept[0].Kind)
	}
	// The copy placed before the early return must not share expressions
	// with the copy at the end of main.
	mustValidate(t, m)
}

func TestApplyEdits_RemoveAndRetype(t *testing.T) {
	m := newTestModule(StageFragment)
	types := NewTypeRegistry(m)
	unused := m.AddGlobal(GlobalVariable{Name: "unused", Type: 0, Qualifier: QualifierUniform, Layout: NoLayout()})
	vec2 := types.Vector(Vec2, ScalarFloat)

	err := ApplyEdits(m, []Edit{
		EditRemoveGlobal{Variable: unused},
		EditRetypeGlobal{Variable: 1, Type: vec2},
	})
	if err != nil {
		t.Fatalf("ApplyEdits: %v", err)
	}
	if !m.GlobalVariables[unused].Removed {
		t.Error("global not marked removed")
	}
	if _, found := m.FindGlobal("unused"); found {
		t.Error("FindGlobal returned a removed global")
	}
	if m.GlobalVariables[1].Type != vec2 {
		t.Errorf("color type = %d, want %d", m.GlobalVariables[1].Type, vec2)
	}
}

func TestApplyEdits_OutOfRange(t *testing.T) {
	m := newTestModule(StageFragment)
	tests := []struct {
		name string
		edit Edit
	}{
		{"replace global", EditReplaceGlobal{Old: 0, New: 99}},
		{"replace expression", EditReplaceExpression{Function: 0, Expression: 5, Kind: Literal{Value: LiteralF32(1)}}},
		{"insert into missing function", EditInsertStatements{Function: 3}},
		{"remove global", EditRemoveGlobal{Variable: 42}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ApplyEdits(m, []Edit{tt.edit}); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestCopyExpression_IsDeep(t *testing.T) {
	m := newTestModule(StageFragment)
	b := NewBuilder(m, 0, nil)
	orig := b.Add(b.Swizzle(b.Global(0), SwizzleX), b.Float(2))
	dup := CopyExpression(b.Function(), orig)

	if dup == orig {
		t.Fatal("copy returned the original handle")
	}
	fn := b.Function()
	o := fn.Expressions[orig].Kind.(ExprBinary)
	d := fn.Expressions[dup].Kind.(ExprBinary)
	if o.Left == d.Left || o.Right == d.Right {
		t.Error("copy shares operands with the original")
	}
}

func TestModuleClone_IsIndependent(t *testing.T) {
	m := newTestModule(StageFragment)
	types := NewTypeRegistry(m)
	flag := m.AddGlobal(GlobalVariable{Name: "flag", Type: types.Scalar(ScalarBool), Qualifier: QualifierUniform, Layout: NoLayout()})
	b := NewBuilder(m, 0, types)
	b.Function().Body = Block{
		If(b.Global(flag), Block{Store(b.Global(1), b.Global(0))}, nil),
	}

	c := m.Clone()
	mustValidate(t, c)

	tail := Store(b.Swizzle(b.Global(1), SwizzleZ), b.Float(0.5))
	if err := ApplyEdits(m, []Edit{
		EditInsertStatements{Function: 0, Position: InsertAtEnd, Statements: Block{tail}},
		EditRemoveGlobal{Variable: flag},
	}); err != nil {
		t.Fatalf("ApplyEdits: %v", err)
	}
	m.Functions[0].Body[0].Kind.(StmtIf).Accept[0] = Statement{Kind: StmtKill{}}

	if len(c.Functions[0].Body) != 1 {
		t.Errorf("clone body has %d statements, want 1", len(c.Functions[0].Body))
	}
	if _, ok := c.Functions[0].Body[0].Kind.(StmtIf).Accept[0].Kind.(StmtStore); !ok {
		t.Error("nested block of the clone changed")
	}
	if c.GlobalVariables[flag].Removed {
		t.Error("global of the clone was removed")
	}
	if len(c.Functions[0].Expressions) == len(m.Functions[0].Expressions) {
		t.Error("clone shares the expression arena")
	}
}
