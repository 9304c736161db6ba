package expr

import (
	"fmt"
	"strings"

	"github.com/nanodb-project/nanodb/internal/nerr"
)

var aggregateNames = map[string]bool{
	"COUNT": true, "SUM": true, "AVG": true, "MIN": true, "MAX": true,
}

// IsAggregateName reports whether name (case-insensitive) is a recognized
// aggregate function.
func IsAggregateName(name string) bool {
	return aggregateNames[strings.ToUpper(name)]
}

// ContainsAggregate reports whether e contains an aggregate function call
// anywhere in its tree — used by the planner to reject aggregates in
// WHERE/ON/GROUP BY with ErrAggregateInWrongPlace.
func ContainsAggregate(e Node) bool {
	found := false
	walk(e, func(n Node) {
		if f, ok := n.(*FuncCall); ok && IsAggregateName(f.Name) {
			found = true
		}
	})
	return found
}

func walk(e Node, visit func(Node)) {
	if e == nil {
		return
	}
	visit(e)
	switch n := e.(type) {
	case *Unary:
		walk(n.Expr, visit)
	case *Binary:
		walk(n.Left, visit)
		walk(n.Right, visit)
	case *IsNullExpr:
		walk(n.Expr, visit)
	case *Between:
		walk(n.Expr, visit)
		walk(n.Low, visit)
		walk(n.High, visit)
	case *Like:
		walk(n.Expr, visit)
		walk(n.Pattern, visit)
	case *InList:
		walk(n.Expr, visit)
		for _, item := range n.List {
			walk(item, visit)
		}
	case *InSubquery:
		walk(n.Expr, visit)
	case *FuncCall:
		for _, a := range n.Args {
			walk(a, visit)
		}
	}
}

// AggregateRewriter replaces aggregate function calls in a set of
// expression trees with generated `#AGGi` column references, recording each
// original call in Aggregates, per spec §4.4's aggregate rewriting pass.
type AggregateRewriter struct {
	Aggregates map[string]*FuncCall // "#AGG0" -> original call, insertion order via Order
	Order      []string
	next       int
}

// NewAggregateRewriter returns an empty rewriter.
func NewAggregateRewriter() *AggregateRewriter {
	return &AggregateRewriter{Aggregates: make(map[string]*FuncCall)}
}

// Rewrite walks e, replacing every aggregate call with a generated VarRef
// and recording the original FuncCall. Fails with ErrNestedAggregate if an
// aggregate call appears inside another aggregate's arguments.
func (r *AggregateRewriter) Rewrite(e Node) (Node, error) {
	return r.rewrite(e, false)
}

func (r *AggregateRewriter) rewrite(e Node, insideAggregate bool) (Node, error) {
	if e == nil {
		return nil, nil
	}
	switch n := e.(type) {
	case *FuncCall:
		if IsAggregateName(n.Name) {
			if insideAggregate {
				return nil, nerr.ErrNestedAggregate()
			}
			for _, a := range n.Args {
				if _, err := r.rewrite(a, true); err != nil {
					return nil, err
				}
			}
			name := fmt.Sprintf("#AGG%d", r.next)
			r.next++
			r.Aggregates[name] = n
			r.Order = append(r.Order, name)
			return &VarRef{ColName: name}, nil
		}
		args := make([]Node, len(n.Args))
		for i, a := range n.Args {
			rw, err := r.rewrite(a, insideAggregate)
			if err != nil {
				return nil, err
			}
			args[i] = rw
		}
		return &FuncCall{Name: n.Name, Args: args, Star: n.Star, Distinct: n.Distinct}, nil
	case *Unary:
		rw, err := r.rewrite(n.Expr, insideAggregate)
		if err != nil {
			return nil, err
		}
		return &Unary{Op: n.Op, Expr: rw}, nil
	case *Binary:
		l, err := r.rewrite(n.Left, insideAggregate)
		if err != nil {
			return nil, err
		}
		rt, err := r.rewrite(n.Right, insideAggregate)
		if err != nil {
			return nil, err
		}
		return &Binary{Op: n.Op, Left: l, Right: rt}, nil
	case *IsNullExpr:
		rw, err := r.rewrite(n.Expr, insideAggregate)
		if err != nil {
			return nil, err
		}
		return &IsNullExpr{Expr: rw, Negate: n.Negate}, nil
	case *Between:
		ex, err := r.rewrite(n.Expr, insideAggregate)
		if err != nil {
			return nil, err
		}
		lo, err := r.rewrite(n.Low, insideAggregate)
		if err != nil {
			return nil, err
		}
		hi, err := r.rewrite(n.High, insideAggregate)
		if err != nil {
			return nil, err
		}
		return &Between{Expr: ex, Low: lo, High: hi, Negate: n.Negate}, nil
	case *Like:
		ex, err := r.rewrite(n.Expr, insideAggregate)
		if err != nil {
			return nil, err
		}
		pat, err := r.rewrite(n.Pattern, insideAggregate)
		if err != nil {
			return nil, err
		}
		return &Like{Expr: ex, Pattern: pat, Negate: n.Negate}, nil
	case *InList:
		ex, err := r.rewrite(n.Expr, insideAggregate)
		if err != nil {
			return nil, err
		}
		list := make([]Node, len(n.List))
		for i, item := range n.List {
			rw, err := r.rewrite(item, insideAggregate)
			if err != nil {
				return nil, err
			}
			list[i] = rw
		}
		return &InList{Expr: ex, List: list, Negate: n.Negate}, nil
	case *InSubquery:
		// n.Plan is a sub-plan, not an expression tree: its own SELECT is
		// rewritten independently when that subquery is planned, so only
		// the left-hand probe expression is rewritten here.
		ex, err := r.rewrite(n.Expr, insideAggregate)
		if err != nil {
			return nil, err
		}
		return &InSubquery{Expr: ex, Plan: n.Plan, Negate: n.Negate}, nil
	case *ExistsSubquery, *ScalarSubquery:
		// Neither carries an expression child of its own — just a sub-plan
		// rewritten independently — so there is nothing here to recurse
		// into.
		return e, nil
	default:
		return e, nil
	}
}
