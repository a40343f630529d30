package interp

import (
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/shaderlink/ir"
)

// maxLoopIterations bounds StmtLoop so a broken shader cannot hang a test.
const maxLoopIterations = 1 << 16

var (
	errDiscard  = errors.New("discard")
	errBreak    = errors.New("break")
	errContinue = errors.New("continue")
)

// Machine holds the global state of one shader invocation.
type Machine struct {
	module  *ir.Module
	globals []Value

	// Discarded is set once the fragment executes discard.
	Discarded bool

	// Derivative returns dFdx/dFdy/fwidth of v. The default returns zero.
	Derivative func(axis ir.DerivativeAxis, v Value) Value

	// Sample returns the texel for a texture lookup. The default returns
	// opaque black.
	Sample func(image Value, coord Value) Value
}

type frame struct {
	fn     *ir.Function
	locals []Value
	args   []Value
	result *Value
}

type returnSignal struct{}

func (returnSignal) Error() string { return "return" }

// New creates a machine with every global zero-initialized, constants set to
// their initializers.
func New(module *ir.Module) *Machine {
	m := &Machine{
		module:  module,
		globals: make([]Value, len(module.GlobalVariables)),
	}
	for i, g := range module.GlobalVariables {
		m.globals[i] = zeroValue(module, g.Type)
		if g.Init != nil {
			m.globals[i] = literalValue(g.Init)
		}
	}
	return m
}

// Set assigns a global by name. Instanceless blocks can be addressed by
// their block type name.
func (m *Machine) Set(name string, v Value) error {
	h, err := m.lookup(name)
	if err != nil {
		return err
	}
	m.globals[h] = v.clone()
	return nil
}

// SetField assigns one member of a struct-typed global (typically a uniform
// block) by member name.
func (m *Machine) SetField(name, member string, v Value) error {
	h, err := m.lookup(name)
	if err != nil {
		return err
	}
	st, ok := m.module.Types[m.module.GlobalVariables[h].Type].Inner.(ir.StructType)
	if !ok {
		return fmt.Errorf("global %q is not a struct", name)
	}
	for i, mem := range st.Members {
		if mem.Name == member {
			m.globals[h].Fields[i] = v.clone()
			return nil
		}
	}
	return fmt.Errorf("struct %q has no member %q", name, member)
}

// Get returns a global by name.
func (m *Machine) Get(name string) (Value, error) {
	h, err := m.lookup(name)
	if err != nil {
		return Value{}, err
	}
	return m.globals[h].clone(), nil
}

func (m *Machine) lookup(name string) (ir.GlobalVariableHandle, error) {
	if h, ok := m.module.FindGlobal(name); ok {
		return h, nil
	}
	for i, g := range m.module.GlobalVariables {
		if !g.Removed && g.Block && g.Name == "" && m.module.Types[g.Type].Name == name {
			return ir.GlobalVariableHandle(i), nil
		}
	}
	return 0, fmt.Errorf("no global named %q", name)
}

// Run executes main. A discard stops execution and sets Discarded.
func (m *Machine) Run() error {
	_, err := m.Call(m.module.EntryPoint)
	return err
}

// Call executes a function with the given arguments and returns its result.
func (m *Machine) Call(handle ir.FunctionHandle, args ...Value) (Value, error) {
	if int(handle) >= len(m.module.Functions) {
		return Value{}, fmt.Errorf("function %d out of range", handle)
	}
	fn := &m.module.Functions[handle]
	f := &frame{fn: fn, args: args, locals: make([]Value, len(fn.LocalVars))}
	for i, local := range fn.LocalVars {
		f.locals[i] = zeroValue(m.module, local.Type)
	}
	err := m.execBlock(f, fn.Body)
	var ret returnSignal
	switch {
	case err == nil || errors.As(err, &ret):
	case errors.Is(err, errDiscard):
		m.Discarded = true
		return Value{}, nil
	default:
		return Value{}, fmt.Errorf("%s: %w", fn.Name, err)
	}
	if f.result != nil {
		return *f.result, nil
	}
	return Value{}, nil
}

//nolint:gocyclo,cyclop // One case per statement kind
func (m *Machine) execBlock(f *frame, block ir.Block) error {
	for _, stmt := range block {
		switch s := stmt.Kind.(type) {
		case ir.StmtBlock:
			if err := m.execBlock(f, s.Block); err != nil {
				return err
			}
		case ir.StmtIf:
			cond, err := m.eval(f, s.Condition)
			if err != nil {
				return err
			}
			branch := s.Reject
			if cond.Truthy() {
				branch = s.Accept
			}
			if err := m.execBlock(f, branch); err != nil {
				return err
			}
		case ir.StmtLoop:
			if err := m.execLoop(f, s.Body); err != nil {
				return err
			}
		case ir.StmtBreak:
			return errBreak
		case ir.StmtContinue:
			return errContinue
		case ir.StmtReturn:
			if s.Value != nil {
				v, err := m.eval(f, *s.Value)
				if err != nil {
					return err
				}
				f.result = &v
			}
			return returnSignal{}
		case ir.StmtKill:
			return errDiscard
		case ir.StmtStore:
			v, err := m.eval(f, s.Value)
			if err != nil {
				return err
			}
			if err := m.store(f, s.Pointer, v); err != nil {
				return err
			}
		case ir.StmtCall:
			args, err := m.evalAll(f, s.Arguments)
			if err != nil {
				return err
			}
			if _, err := m.Call(s.Function, args...); err != nil {
				return err
			}
			if m.Discarded {
				return errDiscard
			}
		case ir.StmtPlaceholder:
			// backend-specific; nothing to evaluate
		default:
			return fmt.Errorf("unsupported statement %T", stmt.Kind)
		}
	}
	return nil
}

func (m *Machine) execLoop(f *frame, body ir.Block) error {
	for i := 0; i < maxLoopIterations; i++ {
		err := m.execBlock(f, body)
		switch {
		case err == nil, errors.Is(err, errContinue):
		case errors.Is(err, errBreak):
			return nil
		default:
			return err
		}
	}
	return fmt.Errorf("loop exceeded %d iterations", maxLoopIterations)
}

func (m *Machine) evalAll(f *frame, hs []ir.ExpressionHandle) ([]Value, error) {
	out := make([]Value, len(hs))
	for i, h := range hs {
		v, err := m.eval(f, h)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

//nolint:gocyclo,cyclop,funlen // One case per expression kind
func (m *Machine) eval(f *frame, h ir.ExpressionHandle) (Value, error) {
	if int(h) >= len(f.fn.Expressions) {
		return Value{}, fmt.Errorf("expression %d out of range", h)
	}
	switch e := f.fn.Expressions[h].Kind.(type) {
	case ir.Literal:
		return literalValue(e.Value), nil
	case ir.ExprGlobalVariable:
		return m.globals[e.Variable].clone(), nil
	case ir.ExprLocalVariable:
		return f.locals[e.Variable].clone(), nil
	case ir.ExprFunctionArgument:
		return f.args[e.Index].clone(), nil
	case ir.ExprAccessIndex:
		base, err := m.eval(f, e.Base)
		if err != nil {
			return Value{}, err
		}
		return index(base, int(e.Index))
	case ir.ExprAccess:
		base, err := m.eval(f, e.Base)
		if err != nil {
			return Value{}, err
		}
		idx, err := m.eval(f, e.Index)
		if err != nil {
			return Value{}, err
		}
		return index(base, int(idx.X()))
	case ir.ExprSwizzle:
		vec, err := m.eval(f, e.Vector)
		if err != nil {
			return Value{}, err
		}
		out := make([]float64, e.Size)
		for i := range out {
			out[i] = vec.component(int(e.Pattern[i]))
		}
		return Value{Comps: out}, nil
	case ir.ExprCompose:
		args, err := m.evalAll(f, e.Components)
		if err != nil {
			return Value{}, err
		}
		return compose(m.module, e.Type, args), nil
	case ir.ExprUnary:
		v, err := m.eval(f, e.Expr)
		if err != nil {
			return Value{}, err
		}
		return unary(e.Op, v), nil
	case ir.ExprBinary:
		l, err := m.eval(f, e.Left)
		if err != nil {
			return Value{}, err
		}
		r, err := m.eval(f, e.Right)
		if err != nil {
			return Value{}, err
		}
		return binary(e.Op, l, r)
	case ir.ExprSelect:
		cond, err := m.eval(f, e.Condition)
		if err != nil {
			return Value{}, err
		}
		if cond.Truthy() {
			return m.eval(f, e.Accept)
		}
		return m.eval(f, e.Reject)
	case ir.ExprMath:
		args, err := m.evalAll(f, ir.ExpressionChildren(e))
		if err != nil {
			return Value{}, err
		}
		return mathFunction(e.Fun, args)
	case ir.ExprDerivative:
		v, err := m.eval(f, e.Expr)
		if err != nil {
			return Value{}, err
		}
		if m.Derivative != nil {
			return m.Derivative(e.Axis, v), nil
		}
		return Value{Comps: make([]float64, len(v.Comps))}, nil
	case ir.ExprImageSample:
		img, err := m.eval(f, e.Image)
		if err != nil {
			return Value{}, err
		}
		coord, err := m.eval(f, e.Coordinate)
		if err != nil {
			return Value{}, err
		}
		if m.Sample != nil {
			return m.Sample(img, coord), nil
		}
		return Vec(0, 0, 0, 1), nil
	case ir.ExprCall:
		args, err := m.evalAll(f, e.Arguments)
		if err != nil {
			return Value{}, err
		}
		return m.Call(e.Function, args...)
	}
	return Value{}, fmt.Errorf("unsupported expression %T", f.fn.Expressions[h].Kind)
}

// store writes v through the l-value chain rooted at h.
func (m *Machine) store(f *frame, h ir.ExpressionHandle, v Value) error {
	target, err := m.reference(f, h)
	if err != nil {
		return err
	}
	return target(v)
}

// reference returns a setter for the l-value expression h.
func (m *Machine) reference(f *frame, h ir.ExpressionHandle) (func(Value) error, error) {
	switch e := f.fn.Expressions[h].Kind.(type) {
	case ir.ExprGlobalVariable:
		return func(v Value) error { m.globals[e.Variable] = v.clone(); return nil }, nil
	case ir.ExprLocalVariable:
		return func(v Value) error { f.locals[e.Variable] = v.clone(); return nil }, nil
	case ir.ExprFunctionArgument:
		return func(v Value) error { f.args[e.Index] = v.clone(); return nil }, nil
	case ir.ExprAccessIndex:
		return m.elementReference(f, e.Base, func() (int, error) { return int(e.Index), nil })
	case ir.ExprAccess:
		return m.elementReference(f, e.Base, func() (int, error) {
			idx, err := m.eval(f, e.Index)
			return int(idx.X()), err
		})
	case ir.ExprSwizzle:
		parentSet, err := m.reference(f, e.Vector)
		if err != nil {
			return nil, err
		}
		return func(v Value) error {
			cur, err := m.eval(f, e.Vector)
			if err != nil {
				return err
			}
			for i := 0; i < int(e.Size); i++ {
				cur.Comps[e.Pattern[i]] = v.component(i)
			}
			return parentSet(cur)
		}, nil
	}
	return nil, fmt.Errorf("expression %d is not an l-value", h)
}

func (m *Machine) elementReference(f *frame, base ir.ExpressionHandle, idx func() (int, error)) (func(Value) error, error) {
	parentSet, err := m.reference(f, base)
	if err != nil {
		return nil, err
	}
	return func(v Value) error {
		cur, err := m.eval(f, base)
		if err != nil {
			return err
		}
		i, err := idx()
		if err != nil {
			return err
		}
		switch {
		case cur.Fields != nil:
			if i < 0 || i >= len(cur.Fields) {
				return fmt.Errorf("index %d out of range", i)
			}
			cur.Fields[i] = v.clone()
		case cur.Cols > 0:
			rows := len(cur.Comps) / cur.Cols
			copy(cur.Comps[i*rows:(i+1)*rows], v.Comps)
		default:
			if i < 0 || i >= len(cur.Comps) {
				return fmt.Errorf("component %d out of range", i)
			}
			cur.Comps[i] = v.X()
		}
		return parentSet(cur)
	}, nil
}

func index(base Value, i int) (Value, error) {
	switch {
	case base.Fields != nil:
		if i < 0 || i >= len(base.Fields) {
			return Value{}, fmt.Errorf("index %d out of range (%d elements)", i, len(base.Fields))
		}
		return base.Fields[i].clone(), nil
	case base.Cols > 0:
		rows := len(base.Comps) / base.Cols
		if i < 0 || i >= base.Cols {
			return Value{}, fmt.Errorf("column %d out of range", i)
		}
		return Vec(base.Comps[i*rows : (i+1)*rows]...), nil
	default:
		if i < 0 || i >= len(base.Comps) {
			return Value{}, fmt.Errorf("component %d out of range", i)
		}
		return Float(base.Comps[i]), nil
	}
}

func literalValue(l ir.LiteralValue) Value {
	switch v := l.(type) {
	case ir.LiteralF32:
		return Float(float64(v))
	case ir.LiteralI32:
		return Float(float64(v))
	case ir.LiteralU32:
		return Float(float64(v))
	case ir.LiteralBool:
		return Bool(bool(v))
	}
	return Value{}
}

func zeroValue(module *ir.Module, h ir.TypeHandle) Value {
	if int(h) >= len(module.Types) {
		return Value{}
	}
	switch t := module.Types[h].Inner.(type) {
	case ir.ScalarType:
		return Float(0)
	case ir.VectorType:
		return Value{Comps: make([]float64, t.Size)}
	case ir.MatrixType:
		return Value{Comps: make([]float64, int(t.Columns)*int(t.Rows)), Cols: int(t.Columns)}
	case ir.ArrayType:
		fields := make([]Value, t.Size)
		for i := range fields {
			fields[i] = zeroValue(module, t.Base)
		}
		return Value{Fields: fields}
	case ir.StructType:
		fields := make([]Value, len(t.Members))
		for i, mem := range t.Members {
			fields[i] = zeroValue(module, mem.Type)
		}
		return Value{Fields: fields}
	}
	// opaque handles evaluate to their binding slot, which tests may set
	return Float(0)
}

func compose(module *ir.Module, h ir.TypeHandle, args []Value) Value {
	switch t := module.Types[h].Inner.(type) {
	case ir.ScalarType:
		return Float(args[0].X())
	case ir.VectorType:
		return Value{Comps: flatten(args, int(t.Size))}
	case ir.MatrixType:
		n := int(t.Columns) * int(t.Rows)
		if len(args) == 1 && len(args[0].Comps) == 1 {
			comps := make([]float64, n)
			for c := 0; c < int(t.Columns) && c < int(t.Rows); c++ {
				comps[c*int(t.Rows)+c] = args[0].X()
			}
			return Value{Comps: comps, Cols: int(t.Columns)}
		}
		return Value{Comps: flatten(args, n), Cols: int(t.Columns)}
	}
	fields := make([]Value, len(args))
	for i := range args {
		fields[i] = args[i].clone()
	}
	return Value{Fields: fields}
}

// flatten concatenates argument components to n values, splatting a single
// scalar argument.
func flatten(args []Value, n int) []float64 {
	out := make([]float64, 0, n)
	if len(args) == 1 && len(args[0].Comps) == 1 {
		for i := 0; i < n; i++ {
			out = append(out, args[0].X())
		}
		return out
	}
	for _, a := range args {
		for _, c := range a.Comps {
			if len(out) == n {
				return out
			}
			out = append(out, c)
		}
	}
	for len(out) < n {
		out = append(out, 0)
	}
	return out
}

func unary(op ir.UnaryOperator, v Value) Value {
	out := v.clone()
	for i, c := range out.Comps {
		switch op {
		case ir.UnaryNegate:
			out.Comps[i] = -c
		case ir.UnaryLogicalNot:
			if c == 0 {
				out.Comps[i] = 1
			} else {
				out.Comps[i] = 0
			}
		case ir.UnaryBitwiseNot:
			out.Comps[i] = float64(^int64(c))
		}
	}
	return out
}

//nolint:gocyclo,cyclop // One case per operator
func binary(op ir.BinaryOperator, l, r Value) (Value, error) {
	if op == ir.BinaryMultiply {
		if l.Cols > 0 && r.Cols == 0 && len(r.Comps) > 1 {
			return matTimesVec(l, r), nil
		}
		if r.Cols > 0 && l.Cols == 0 && len(l.Comps) > 1 {
			return vecTimesMat(l, r), nil
		}
	}
	switch op {
	case ir.BinaryEqual:
		return Bool(equalValues(l, r)), nil
	case ir.BinaryNotEqual:
		return Bool(!equalValues(l, r)), nil
	case ir.BinaryLogicalAnd:
		return Bool(l.Truthy() && r.Truthy()), nil
	case ir.BinaryLogicalOr:
		return Bool(l.Truthy() || r.Truthy()), nil
	case ir.BinaryLess:
		return Bool(l.X() < r.X()), nil
	case ir.BinaryLessEqual:
		return Bool(l.X() <= r.X()), nil
	case ir.BinaryGreater:
		return Bool(l.X() > r.X()), nil
	case ir.BinaryGreaterEqual:
		return Bool(l.X() >= r.X()), nil
	}

	n := len(l.Comps)
	if len(r.Comps) > n {
		n = len(r.Comps)
	}
	cols := l.Cols
	if cols == 0 {
		cols = r.Cols
	}
	out := Value{Comps: make([]float64, n), Cols: cols}
	for i := 0; i < n; i++ {
		a, b := broadcast(l, i), broadcast(r, i)
		switch op {
		case ir.BinaryAdd:
			out.Comps[i] = a + b
		case ir.BinarySubtract:
			out.Comps[i] = a - b
		case ir.BinaryMultiply:
			out.Comps[i] = a * b
		case ir.BinaryDivide:
			out.Comps[i] = a / b
		case ir.BinaryModulo:
			out.Comps[i] = math.Mod(a, b)
		case ir.BinaryAnd:
			out.Comps[i] = float64(int64(a) & int64(b))
		case ir.BinaryInclusiveOr:
			out.Comps[i] = float64(int64(a) | int64(b))
		case ir.BinaryExclusiveOr:
			out.Comps[i] = float64(int64(a) ^ int64(b))
		case ir.BinaryShiftLeft:
			out.Comps[i] = float64(int64(a) << uint(b))
		case ir.BinaryShiftRight:
			out.Comps[i] = float64(int64(a) >> uint(b))
		default:
			return Value{}, fmt.Errorf("unsupported binary operator %d", op)
		}
	}
	return out, nil
}

func broadcast(v Value, i int) float64 {
	if len(v.Comps) == 1 {
		return v.Comps[0]
	}
	return v.component(i)
}

func equalValues(l, r Value) bool {
	if len(l.Comps) != len(r.Comps) || len(l.Fields) != len(r.Fields) {
		return false
	}
	for i := range l.Comps {
		if l.Comps[i] != r.Comps[i] {
			return false
		}
	}
	for i := range l.Fields {
		if !equalValues(l.Fields[i], r.Fields[i]) {
			return false
		}
	}
	return true
}

// matTimesVec computes M * v: result[row] = sum over columns of M[col][row] * v[col].
func matTimesVec(mat, v Value) Value {
	rows := len(mat.Comps) / mat.Cols
	out := make([]float64, rows)
	for row := 0; row < rows; row++ {
		for col := 0; col < mat.Cols; col++ {
			out[row] += mat.Comps[col*rows+row] * v.component(col)
		}
	}
	return Value{Comps: out}
}

// vecTimesMat computes v * M: result[col] = dot(v, M[col]).
func vecTimesMat(v, mat Value) Value {
	rows := len(mat.Comps) / mat.Cols
	out := make([]float64, mat.Cols)
	for col := 0; col < mat.Cols; col++ {
		for row := 0; row < rows; row++ {
			out[col] += v.component(row) * mat.Comps[col*rows+row]
		}
	}
	return Value{Comps: out}
}

//nolint:gocyclo,cyclop // One case per math function
func mathFunction(fun ir.MathFunction, args []Value) (Value, error) {
	a := args[0]
	each := func(f func(x float64) float64) Value {
		out := a.clone()
		for i, c := range out.Comps {
			out.Comps[i] = f(c)
		}
		return out
	}
	each2 := func(f func(x, y float64) float64) Value {
		out := a.clone()
		for i, c := range out.Comps {
			out.Comps[i] = f(c, broadcast(args[1], i))
		}
		return out
	}
	switch fun {
	case ir.MathAbs:
		return each(math.Abs), nil
	case ir.MathFloor:
		return each(math.Floor), nil
	case ir.MathCeil:
		return each(math.Ceil), nil
	case ir.MathRound:
		return each(math.Round), nil
	case ir.MathFract:
		return each(func(x float64) float64 { return x - math.Floor(x) }), nil
	case ir.MathSqrt:
		return each(math.Sqrt), nil
	case ir.MathExp2:
		return each(math.Exp2), nil
	case ir.MathSign:
		return each(func(x float64) float64 {
			switch {
			case x > 0:
				return 1
			case x < 0:
				return -1
			}
			return 0
		}), nil
	case ir.MathMin:
		return each2(math.Min), nil
	case ir.MathMax:
		return each2(math.Max), nil
	case ir.MathStep:
		// step(edge, x)
		out := args[1].clone()
		for i, x := range out.Comps {
			if x < broadcast(a, i) {
				out.Comps[i] = 0
			} else {
				out.Comps[i] = 1
			}
		}
		return out, nil
	case ir.MathClamp:
		out := a.clone()
		for i, c := range out.Comps {
			out.Comps[i] = math.Min(math.Max(c, broadcast(args[1], i)), broadcast(args[2], i))
		}
		return out, nil
	case ir.MathMix:
		out := a.clone()
		for i, c := range out.Comps {
			t := broadcast(args[2], i)
			out.Comps[i] = c*(1-t) + broadcast(args[1], i)*t
		}
		return out, nil
	case ir.MathDot:
		sum := 0.0
		for i, c := range a.Comps {
			sum += c * args[1].component(i)
		}
		return Float(sum), nil
	case ir.MathLength:
		sum := 0.0
		for _, c := range a.Comps {
			sum += c * c
		}
		return Float(math.Sqrt(sum)), nil
	case ir.MathNormalize:
		l, _ := mathFunction(ir.MathLength, args)
		return each(func(x float64) float64 { return x / l.X() }), nil
	}
	return Value{}, fmt.Errorf("unsupported math function %d", fun)
}
