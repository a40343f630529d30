package rewrite

import (
	"fmt"

	"github.com/gogpu/shaderlink/ir"
)

// exprRef addresses one expression node of one function.
type exprRef struct {
	fn   ir.FunctionHandle
	expr ir.ExpressionHandle
}

// globalRefs returns every arena node referencing g, reachable or not.
// Passes collect references before building their own statements so the
// statements they add keep reading the original variable.
func globalRefs(module *ir.Module, g ir.GlobalVariableHandle) []exprRef {
	var refs []exprRef
	for fi := range module.Functions {
		for h, e := range module.Functions[fi].Expressions {
			if ref, ok := e.Kind.(ir.ExprGlobalVariable); ok && ref.Variable == g {
				refs = append(refs, exprRef{fn: ir.FunctionHandle(fi), expr: ir.ExpressionHandle(h)})
			}
		}
	}
	return refs
}

// redirect returns edits pointing every node in refs at replacement.
func redirect(refs []exprRef, replacement ir.GlobalVariableHandle) []ir.Edit {
	edits := make([]ir.Edit, 0, len(refs))
	for _, r := range refs {
		edits = append(edits, ir.EditReplaceExpression{
			Function:   r.fn,
			Expression: r.expr,
			Kind:       ir.ExprGlobalVariable{Variable: replacement},
		})
	}
	return edits
}

type builtinDecl struct {
	name      string
	qualifier ir.StorageQualifier
	typ       func(t *ir.TypeRegistry) ir.TypeHandle
}

var builtinDecls = map[ir.BuiltinValue]builtinDecl{
	ir.BuiltinPosition:      {"gl_Position", ir.QualifierOut, vec4Type},
	ir.BuiltinFragCoord:     {"gl_FragCoord", ir.QualifierIn, vec4Type},
	ir.BuiltinPointCoord:    {"gl_PointCoord", ir.QualifierIn, vec2Type},
	ir.BuiltinVertexIndex:   {"gl_VertexIndex", ir.QualifierIn, intType},
	ir.BuiltinInstanceIndex: {"gl_InstanceIndex", ir.QualifierIn, intType},
}

// ensureBuiltin returns the declaration of a builtin, declaring it first if
// the shader never mentioned it.
func ensureBuiltin(module *ir.Module, types *ir.TypeRegistry, b ir.BuiltinValue) (ir.GlobalVariableHandle, error) {
	if h, ok := module.FindBuiltin(b); ok {
		return h, nil
	}
	decl, ok := builtinDecls[b]
	if !ok {
		return 0, fmt.Errorf("rewrite: cannot declare builtin %d", b)
	}
	return module.AddGlobal(ir.GlobalVariable{
		Name:      decl.name,
		Type:      decl.typ(types),
		Qualifier: decl.qualifier,
		Builtin:   b,
		Layout:    ir.NoLayout(),
		Precision: ir.PrecisionHigh,
	}), nil
}

// declareGlobal adds a private module-scope variable.
func declareGlobal(module *ir.Module, name string, typ ir.TypeHandle, q ir.StorageQualifier) ir.GlobalVariableHandle {
	return module.AddGlobal(ir.GlobalVariable{
		Name:      name,
		Type:      typ,
		Qualifier: q,
		Layout:    ir.NoLayout(),
		Precision: ir.PrecisionHigh,
	})
}

func mainBuilder(module *ir.Module, types *ir.TypeRegistry) *ir.Builder {
	return ir.NewBuilder(module, module.EntryPoint, types)
}

func xy(b *ir.Builder, v ir.ExpressionHandle) ir.ExpressionHandle {
	return b.Swizzle(v, ir.SwizzleX, ir.SwizzleY)
}

func zw(b *ir.Builder, v ir.ExpressionHandle) ir.ExpressionHandle {
	return b.Swizzle(v, ir.SwizzleZ, ir.SwizzleW)
}

func yx(b *ir.Builder, v ir.ExpressionHandle) ir.ExpressionHandle {
	return b.Swizzle(v, ir.SwizzleY, ir.SwizzleX)
}

func component(b *ir.Builder, v ir.ExpressionHandle, c ir.SwizzleComponent) ir.ExpressionHandle {
	return b.Swizzle(v, c)
}

func insert(module *ir.Module, pos ir.InsertPosition, stmts ...ir.Statement) error {
	return ir.ApplyEdits(module, []ir.Edit{ir.EditInsertStatements{
		Function:   module.EntryPoint,
		Position:   pos,
		Statements: stmts,
	}})
}
