// Package expr implements NanoDB's expression tree and evaluation
// environment (spec §4.4).
//
// Node shapes and naming (VarRef, Literal, Unary, Binary, IsNull, FuncCall)
// are grounded on the teacher's internal/engine/parser.go AST, extended with
// the Between/Like/InList/InSubquery/ExistsSubquery/ScalarSubquery variants
// spec.md §4.4 requires but the teacher's parser folded into generic
// FuncCall/Binary nodes instead.
package expr

import (
	"github.com/nanodb-project/nanodb/internal/nerr"
	"github.com/nanodb-project/nanodb/internal/schema"
)

// Node is one expression tree node.
type Node interface {
	// Evaluate computes the node's value against env.
	Evaluate(env *Environment) (any, error)
	// ColumnName returns a best-effort display name, e.g. for an
	// unaliased projected expression.
	ColumnName() string
	// Simplify returns a constant-folded / identity-simplified
	// equivalent of the node (may return the receiver unchanged).
	Simplify() Node
	// Duplicate returns a deep copy of the node.
	Duplicate() Node
}

// VarRef refers to a column, optionally table-qualified.
type VarRef struct {
	TableName string
	ColName   string
}

func (v *VarRef) Evaluate(env *Environment) (any, error) {
	return env.Resolve(v.TableName, v.ColName)
}
func (v *VarRef) ColumnName() string { return v.ColName }
func (v *VarRef) Simplify() Node     { return v }
func (v *VarRef) Duplicate() Node    { d := *v; return &d }

// Literal holds a constant value (or nil for NULL).
type Literal struct {
	Val any
}

func (l *Literal) Evaluate(*Environment) (any, error) { return l.Val, nil }
func (l *Literal) ColumnName() string                 { return "?column?" }
func (l *Literal) Simplify() Node                     { return l }
func (l *Literal) Duplicate() Node                    { d := *l; return &d }

// Unary represents a unary operator: "-", "+", "NOT".
type Unary struct {
	Op   string
	Expr Node
}

func (u *Unary) Evaluate(env *Environment) (any, error) {
	v, err := u.Expr.Evaluate(env)
	if err != nil {
		return nil, err
	}
	return evalUnary(u.Op, v)
}
func (u *Unary) ColumnName() string { return u.Op + "(" + u.Expr.ColumnName() + ")" }
func (u *Unary) Simplify() Node {
	inner := u.Expr.Simplify()
	if lit, ok := inner.(*Literal); ok {
		if v, err := evalUnary(u.Op, lit.Val); err == nil {
			return &Literal{Val: v}
		}
	}
	return &Unary{Op: u.Op, Expr: inner}
}
func (u *Unary) Duplicate() Node { return &Unary{Op: u.Op, Expr: u.Expr.Duplicate()} }

// Binary represents a binary operator: arithmetic, comparison, AND/OR.
type Binary struct {
	Op          string
	Left, Right Node
}

func (b *Binary) Evaluate(env *Environment) (any, error) {
	// AND/OR short-circuit on a definitive NULL-safe result.
	switch b.Op {
	case "AND":
		l, err := b.Left.Evaluate(env)
		if err != nil {
			return nil, err
		}
		if lb, ok := l.(bool); ok && !lb {
			return false, nil
		}
		r, err := b.Right.Evaluate(env)
		if err != nil {
			return nil, err
		}
		return evalAnd(l, r), nil
	case "OR":
		l, err := b.Left.Evaluate(env)
		if err != nil {
			return nil, err
		}
		if lb, ok := l.(bool); ok && lb {
			return true, nil
		}
		r, err := b.Right.Evaluate(env)
		if err != nil {
			return nil, err
		}
		return evalOr(l, r), nil
	}

	l, err := b.Left.Evaluate(env)
	if err != nil {
		return nil, err
	}
	r, err := b.Right.Evaluate(env)
	if err != nil {
		return nil, err
	}
	return evalBinary(b.Op, l, r)
}
func (b *Binary) ColumnName() string { return b.Left.ColumnName() + " " + b.Op + " " + b.Right.ColumnName() }
func (b *Binary) Simplify() Node {
	l, r := b.Left.Simplify(), b.Right.Simplify()
	litL, okL := l.(*Literal)
	litR, okR := r.(*Literal)
	if okL && okR {
		if v, err := evalBinaryConst(b.Op, litL.Val, litR.Val); err == nil {
			return &Literal{Val: v}
		}
	}
	return &Binary{Op: b.Op, Left: l, Right: r}
}
func (b *Binary) Duplicate() Node {
	return &Binary{Op: b.Op, Left: b.Left.Duplicate(), Right: b.Right.Duplicate()}
}

func evalBinaryConst(op string, l, r any) (any, error) {
	switch op {
	case "AND":
		return evalAnd(l, r), nil
	case "OR":
		return evalOr(l, r), nil
	default:
		return evalBinary(op, l, r)
	}
}

// IsNullExpr represents IS [NOT] NULL.
type IsNullExpr struct {
	Expr   Node
	Negate bool
}

func (n *IsNullExpr) Evaluate(env *Environment) (any, error) {
	v, err := n.Expr.Evaluate(env)
	if err != nil {
		return nil, err
	}
	isNull := v == nil
	if n.Negate {
		return !isNull, nil
	}
	return isNull, nil
}
func (n *IsNullExpr) ColumnName() string {
	if n.Negate {
		return n.Expr.ColumnName() + " IS NOT NULL"
	}
	return n.Expr.ColumnName() + " IS NULL"
}
func (n *IsNullExpr) Simplify() Node  { return &IsNullExpr{Expr: n.Expr.Simplify(), Negate: n.Negate} }
func (n *IsNullExpr) Duplicate() Node { return &IsNullExpr{Expr: n.Expr.Duplicate(), Negate: n.Negate} }

// Between represents `Expr [NOT] BETWEEN Low AND High`.
type Between struct {
	Expr, Low, High Node
	Negate          bool
}

func (b *Between) Evaluate(env *Environment) (any, error) {
	v, err := b.Expr.Evaluate(env)
	if err != nil {
		return nil, err
	}
	lo, err := b.Low.Evaluate(env)
	if err != nil {
		return nil, err
	}
	hi, err := b.High.Evaluate(env)
	if err != nil {
		return nil, err
	}
	if v == nil || lo == nil || hi == nil {
		return nil, nil
	}
	cl, ok1 := CompareRuntime(v, lo)
	ch, ok2 := CompareRuntime(v, hi)
	if !ok1 || !ok2 {
		return nil, nerr.ErrTypeMismatch("BETWEEN operands are not comparable")
	}
	result := cl >= 0 && ch <= 0
	if b.Negate {
		return !result, nil
	}
	return result, nil
}
func (b *Between) ColumnName() string { return b.Expr.ColumnName() + " BETWEEN ..." }
func (b *Between) Simplify() Node {
	return &Between{Expr: b.Expr.Simplify(), Low: b.Low.Simplify(), High: b.High.Simplify(), Negate: b.Negate}
}
func (b *Between) Duplicate() Node {
	return &Between{Expr: b.Expr.Duplicate(), Low: b.Low.Duplicate(), High: b.High.Duplicate(), Negate: b.Negate}
}

// Like represents `Expr [NOT] LIKE Pattern` with SQL "%"/"_" wildcards.
type Like struct {
	Expr, Pattern Node
	Negate        bool
}

func (l *Like) Evaluate(env *Environment) (any, error) {
	v, err := l.Expr.Evaluate(env)
	if err != nil {
		return nil, err
	}
	p, err := l.Pattern.Evaluate(env)
	if err != nil {
		return nil, err
	}
	if v == nil || p == nil {
		return nil, nil
	}
	vs, ok1 := v.(string)
	ps, ok2 := p.(string)
	if !ok1 || !ok2 {
		return nil, nerr.ErrTypeMismatch("LIKE operands must be strings")
	}
	result := matchLike(vs, ps)
	if l.Negate {
		return !result, nil
	}
	return result, nil
}
func (l *Like) ColumnName() string { return l.Expr.ColumnName() + " LIKE " + l.Pattern.ColumnName() }
func (l *Like) Simplify() Node     { return &Like{Expr: l.Expr.Simplify(), Pattern: l.Pattern.Simplify(), Negate: l.Negate} }
func (l *Like) Duplicate() Node {
	return &Like{Expr: l.Expr.Duplicate(), Pattern: l.Pattern.Duplicate(), Negate: l.Negate}
}

// InList represents `Expr [NOT] IN (list...)`.
type InList struct {
	Expr   Node
	List   []Node
	Negate bool
}

func (in *InList) Evaluate(env *Environment) (any, error) {
	v, err := in.Expr.Evaluate(env)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	sawNull := false
	for _, item := range in.List {
		iv, err := item.Evaluate(env)
		if err != nil {
			return nil, err
		}
		if iv == nil {
			sawNull = true
			continue
		}
		if c, ok := CompareRuntime(v, iv); ok && c == 0 {
			if in.Negate {
				return false, nil
			}
			return true, nil
		}
	}
	if sawNull {
		return nil, nil
	}
	return in.Negate, nil
}
func (in *InList) ColumnName() string { return in.Expr.ColumnName() + " IN (...)" }
func (in *InList) Simplify() Node {
	list := make([]Node, len(in.List))
	for i, e := range in.List {
		list[i] = e.Simplify()
	}
	return &InList{Expr: in.Expr.Simplify(), List: list, Negate: in.Negate}
}
func (in *InList) Duplicate() Node {
	list := make([]Node, len(in.List))
	for i, e := range in.List {
		list[i] = e.Duplicate()
	}
	return &InList{Expr: in.Expr.Duplicate(), List: list, Negate: in.Negate}
}

// FuncCall represents a (scalar or aggregate) function call.
type FuncCall struct {
	Name     string
	Args     []Node
	Star     bool // COUNT(*)
	Distinct bool
}

func (f *FuncCall) Evaluate(env *Environment) (any, error) {
	args := make([]any, len(f.Args))
	for i, a := range f.Args {
		v, err := a.Evaluate(env)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return callScalar(f.Name, args)
}
func (f *FuncCall) ColumnName() string { return f.Name + "(...)" }
func (f *FuncCall) Simplify() Node {
	args := make([]Node, len(f.Args))
	for i, a := range f.Args {
		args[i] = a.Simplify()
	}
	return &FuncCall{Name: f.Name, Args: args, Star: f.Star, Distinct: f.Distinct}
}
func (f *FuncCall) Duplicate() Node {
	args := make([]Node, len(f.Args))
	for i, a := range f.Args {
		args[i] = a.Duplicate()
	}
	return &FuncCall{Name: f.Name, Args: args, Star: f.Star, Distinct: f.Distinct}
}

// Subquery is the minimal surface a planner's subquery plan node exposes to
// the expression evaluator, satisfied structurally by internal/plan's
// SubqueryPlan adapter — expr never imports internal/plan.
type Subquery interface {
	Initialize(parent *Environment) error
	GetNextTuple() (schema.Tuple, error)
	CleanUp() error
}

// ScalarSubquery evaluates to the single column of the single row its
// subquery plan produces (or NULL if it produces no rows).
type ScalarSubquery struct {
	Plan Subquery
}

func (s *ScalarSubquery) Evaluate(env *Environment) (any, error) {
	if err := s.Plan.Initialize(env); err != nil {
		return nil, err
	}
	defer s.Plan.CleanUp()
	t, err := s.Plan.GetNextTuple()
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, nil
	}
	v := t.ColumnValue(0)
	if t2, err := s.Plan.GetNextTuple(); err != nil {
		return nil, err
	} else if t2 != nil {
		return nil, nerr.ErrMultipleRowsFromScalar()
	}
	return v, nil
}
func (s *ScalarSubquery) ColumnName() string { return "(subquery)" }
func (s *ScalarSubquery) Simplify() Node     { return s }
func (s *ScalarSubquery) Duplicate() Node    { return s }

// InSubquery represents `Expr [NOT] IN (subquery)`.
type InSubquery struct {
	Expr   Node
	Plan   Subquery
	Negate bool
}

func (in *InSubquery) Evaluate(env *Environment) (any, error) {
	v, err := in.Expr.Evaluate(env)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	if err := in.Plan.Initialize(env); err != nil {
		return nil, err
	}
	defer in.Plan.CleanUp()

	sawNull := false
	for {
		t, err := in.Plan.GetNextTuple()
		if err != nil {
			return nil, err
		}
		if t == nil {
			break
		}
		rv := t.ColumnValue(0)
		if rv == nil {
			sawNull = true
			continue
		}
		if c, ok := CompareRuntime(v, rv); ok && c == 0 {
			if in.Negate {
				return false, nil
			}
			return true, nil
		}
	}
	if sawNull {
		return nil, nil
	}
	return in.Negate, nil
}
func (in *InSubquery) ColumnName() string { return in.Expr.ColumnName() + " IN (subquery)" }
func (in *InSubquery) Simplify() Node     { return in }
func (in *InSubquery) Duplicate() Node    { return in }

// ExistsSubquery represents `[NOT] EXISTS (subquery)`.
type ExistsSubquery struct {
	Plan   Subquery
	Negate bool
}

func (e *ExistsSubquery) Evaluate(env *Environment) (any, error) {
	if err := e.Plan.Initialize(env); err != nil {
		return nil, err
	}
	defer e.Plan.CleanUp()
	t, err := e.Plan.GetNextTuple()
	if err != nil {
		return nil, err
	}
	exists := t != nil
	if e.Negate {
		return !exists, nil
	}
	return exists, nil
}
func (e *ExistsSubquery) ColumnName() string { return "EXISTS (subquery)" }
func (e *ExistsSubquery) Simplify() Node     { return e }
func (e *ExistsSubquery) Duplicate() Node    { return e }
