package plan

import (
	"github.com/nanodb-project/nanodb/internal/expr"
	"github.com/nanodb-project/nanodb/internal/schema"
	"github.com/nanodb-project/nanodb/internal/stats"
)

// singleColumnComparison recognizes a conjunct of the shape `col op literal`
// (or `literal op col`, normalized), returning the column index, the
// comparison operator, and the literal value. ok is false for anything else
// (multi-column, no-column, or a shape selectivityOf doesn't special-case).
func singleColumnComparison(e expr.Node, sch *schema.Schema) (colIdx int, op stats.CompareOp, val any, ok bool) {
	b, isBinary := e.(*expr.Binary)
	if !isBinary {
		return 0, 0, nil, false
	}
	var colNode *expr.VarRef
	var litNode *expr.Literal
	var swapped bool
	if v, isV := b.Left.(*expr.VarRef); isV {
		if l, isL := b.Right.(*expr.Literal); isL {
			colNode, litNode = v, l
		}
	}
	if colNode == nil {
		if v, isV := b.Right.(*expr.VarRef); isV {
			if l, isL := b.Left.(*expr.Literal); isL {
				colNode, litNode, swapped = v, l, true
			}
		}
	}
	if colNode == nil || litNode == nil {
		return 0, 0, nil, false
	}
	idx, err := sch.Resolve(colNode.TableName, colNode.ColName)
	if err != nil {
		return 0, 0, nil, false
	}
	cmpOp, ok := compareOpFor(b.Op, swapped)
	if !ok {
		return 0, 0, nil, false
	}
	return idx, cmpOp, litNode.Val, true
}

func compareOpFor(op string, swapped bool) (stats.CompareOp, bool) {
	switch op {
	case "=":
		return stats.Eq, true
	case "<>", "!=":
		return stats.Ne, true
	case "<":
		if swapped {
			return stats.Gt, true
		}
		return stats.Lt, true
	case "<=":
		if swapped {
			return stats.Ge, true
		}
		return stats.Le, true
	case ">":
		if swapped {
			return stats.Lt, true
		}
		return stats.Gt, true
	case ">=":
		if swapped {
			return stats.Le, true
		}
		return stats.Ge, true
	default:
		return 0, false
	}
}

// selectivityOf estimates the fraction of tbl's rows a predicate matches,
// per spec §4.5: single-column equality/inequality/range use the matching
// column's statistics; IS [NOT] NULL uses N(X)/T; AND/OR/NOT recurse and
// combine; anything else falls back to the neutral default.
func selectivityOf(e expr.Node, sch *schema.Schema, tbl *stats.TableStats) float64 {
	switch n := e.(type) {
	case *expr.Binary:
		switch n.Op {
		case "AND":
			return stats.AndSelectivity(selectivityOf(n.Left, sch, tbl), selectivityOf(n.Right, sch, tbl))
		case "OR":
			return stats.OrSelectivity(selectivityOf(n.Left, sch, tbl), selectivityOf(n.Right, sch, tbl))
		}
		if idx, op, v, ok := singleColumnComparison(e, sch); ok {
			cs := tbl.Columns[idx]
			t := sch.Columns[idx].Type
			switch op {
			case stats.Eq:
				return stats.EqualitySelectivity(cs)
			case stats.Ne:
				return stats.InequalitySelectivity(cs)
			default:
				return stats.RangeSelectivity(op, v, cs, t)
			}
		}
		return stats.NeutralSelectivity
	case *expr.Unary:
		if n.Op == "NOT" {
			return stats.NotSelectivity(selectivityOf(n.Expr, sch, tbl))
		}
		return stats.NeutralSelectivity
	case *expr.IsNullExpr:
		if v, isV := n.Expr.(*expr.VarRef); isV {
			if idx, err := sch.Resolve(v.TableName, v.ColName); err == nil {
				if n.Negate {
					return stats.IsNotNullSelectivity(tbl.Columns[idx], tbl.TupleCount)
				}
				return stats.IsNullSelectivity(tbl.Columns[idx], tbl.TupleCount)
			}
		}
		return stats.NeutralSelectivity
	default:
		return stats.NeutralSelectivity
	}
}

// updateStatsAfterPredicate returns a copy of tbl with per-column
// statistics tightened by every single-column conjunct in e, applied
// conjunct-by-conjunct (spec §4.5: later conjuncts see already-tightened
// stats).
func updateStatsAfterPredicate(e expr.Node, sch *schema.Schema, tbl *stats.TableStats) *stats.TableStats {
	out := tbl.Clone()
	for _, c := range expr.CollectConjuncts(e) {
		idx, op, v, ok := singleColumnComparison(c, sch)
		if !ok {
			continue
		}
		t := sch.Columns[idx].Type
		switch op {
		case stats.Eq:
			stats.UpdateAfterEquality(&out.Columns[idx], v)
		case stats.Lt, stats.Le, stats.Gt, stats.Ge:
			stats.UpdateAfterRange(&out.Columns[idx], op, v, t)
		}
	}
	return out
}
