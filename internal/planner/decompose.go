package planner

import (
	"github.com/nanodb-project/nanodb/internal/expr"
	"github.com/nanodb-project/nanodb/internal/nerr"
	"github.com/nanodb-project/nanodb/internal/plan"
)

// rawLeaf is one item decomposeFrom produces: exactly one of its fields is
// set, per spec §4.7 step 2's definition of a leaf (base table, nested
// SELECT, or opaque outer-join subtree).
type rawLeaf struct {
	table    *TableRef
	subquery *SubqueryRef
	opaque   *JoinItem // LEFT/RIGHT/FULL: planned whole, never broken apart
}

// decomposeFrom recursively walks f, collecting leaves and the ON/USING
// conjuncts attached to inner/cross joins along the way (spec §4.7 step 2).
// LEFT/RIGHT/FULL joins are not descended into — they become a single opaque
// leaf with their own pre-built plan (built later, in planLeaf).
func decomposeFrom(f FromItem) (leaves []rawLeaf, conjuncts []expr.Node) {
	switch n := f.(type) {
	case nil:
		return nil, nil
	case *TableRef:
		return []rawLeaf{{table: n}}, nil
	case *SubqueryRef:
		return []rawLeaf{{subquery: n}}, nil
	case *JoinItem:
		switch n.Type {
		case JoinKindInner, JoinKindCross:
			ll, lc := decomposeFrom(n.Left)
			rl, rc := decomposeFrom(n.Right)
			leaves = append(leaves, ll...)
			leaves = append(leaves, rl...)
			conjuncts = append(conjuncts, lc...)
			conjuncts = append(conjuncts, rc...)
			if n.On != nil {
				conjuncts = append(conjuncts, expr.CollectConjuncts(n.On)...)
			}
			return leaves, conjuncts
		default: // LEFT, RIGHT, FULL
			return []rawLeaf{{opaque: n}}, nil
		}
	default:
		return nil, nil
	}
}

// leafEntry is one planned leaf, paired with the set of table qualifiers its
// output schema covers (used by the DP join enumerator to test which
// conjuncts a candidate join may consume).
type leafEntry struct {
	node   plan.Node
	tables map[string]bool
}

func qualifierOf(t *TableRef) string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.Name
}

// planLeaves builds a plan.Node for every rawLeaf. pool holds every conjunct
// available for pushdown (ON/USING conjuncts from this FROM tree, plus, at
// the statement's top level, WHERE's own conjuncts); planLeaves removes from
// pool every conjunct it pushes into a base-table scan, leaving the rest for
// the DP join step. Base tables are the only leaf kind that receive pushdown
// here: a wholly-local conjunct against a subquery or opaque-join leaf is
// deliberately left in pool to be picked up by the final remaining-conjuncts
// SimpleFilter wrap instead (see DESIGN.md).
func (p *Planner) planLeaves(raws []rawLeaf, pool *conjunctPool) ([]leafEntry, error) {
	entries := make([]leafEntry, 0, len(raws))
	for _, rl := range raws {
		switch {
		case rl.table != nil:
			e, err := p.planTableLeaf(rl.table, pool)
			if err != nil {
				return nil, err
			}
			entries = append(entries, e)
		case rl.subquery != nil:
			e, err := p.planSubqueryLeaf(rl.subquery)
			if err != nil {
				return nil, err
			}
			entries = append(entries, e)
		case rl.opaque != nil:
			e, err := p.planOpaqueLeaf(rl.opaque)
			if err != nil {
				return nil, err
			}
			entries = append(entries, e)
		default:
			return nil, nerr.ErrUnsupportedConstruct("empty FROM leaf")
		}
	}
	return entries, nil
}

func (p *Planner) planTableLeaf(t *TableRef, pool *conjunctPool) (leafEntry, error) {
	file, err := p.Catalog.Lookup(t.Name)
	if err != nil {
		return leafEntry{}, err
	}
	qualifier := qualifierOf(t)
	local := pool.takeWhollyLocal(qualifier)
	scan := plan.NewFileScan(file, qualifier, expr.MakePredicate(local))
	return leafEntry{node: scan, tables: map[string]bool{qualifier: true}}, nil
}

func (p *Planner) planSubqueryLeaf(s *SubqueryRef) (leafEntry, error) {
	inner, err := p.MakePlan(s.Stmt)
	if err != nil {
		return leafEntry{}, err
	}
	renamed := plan.NewRename(inner, s.Alias)
	return leafEntry{node: renamed, tables: map[string]bool{s.Alias: true}}, nil
}

// planOpaqueLeaf fully plans a LEFT/RIGHT/FULL join subtree as one unit: its
// own FROM side is decomposed and DP-joined independently, using only its own
// ON conjuncts (no pushdown from the outer statement's WHERE), then wrapped
// in the matching NestedLoopJoin.
func (p *Planner) planOpaqueLeaf(j *JoinItem) (leafEntry, error) {
	node, tables, err := p.planJoinItem(j)
	if err != nil {
		return leafEntry{}, err
	}
	return leafEntry{node: node, tables: tables}, nil
}

// planJoinItem plans one JoinItem (of any kind) by decomposing and DP-joining
// each side, then joining the two results with the matching
// internal/plan.JoinType. A CROSS/INNER JoinItem reached here was nested
// inside a LEFT/RIGHT/FULL join's side (decomposeFrom doesn't flatten
// across an outer-join boundary), so it gets the same treatment.
func (p *Planner) planJoinItem(j *JoinItem) (plan.Node, map[string]bool, error) {
	leftRaws, leftConj := decomposeFrom(j.Left)
	rightRaws, rightConj := decomposeFrom(j.Right)

	pool := newConjunctPool(append(leftConj, rightConj...))
	leftLeaves, err := p.planLeaves(leftRaws, pool)
	if err != nil {
		return nil, nil, err
	}
	rightLeaves, err := p.planLeaves(rightRaws, pool)
	if err != nil {
		return nil, nil, err
	}

	dpConjuncts := pool.available()
	leftNode, leftTables, leftUsed, err := dpJoin(leftLeaves, dpConjuncts)
	if err != nil {
		return nil, nil, err
	}
	rightNode, rightTables, rightUsed, err := dpJoin(rightLeaves, dpConjuncts)
	if err != nil {
		return nil, nil, err
	}
	var leftover []expr.Node
	for _, c := range dpConjuncts {
		if !leftUsed[c] && !rightUsed[c] {
			leftover = append(leftover, c)
		}
	}
	if len(leftover) > 0 {
		leftNode = wrapRemaining(leftNode, leftTables, leftover)
		rightNode = wrapRemaining(rightNode, rightTables, leftover)
	}

	jt := joinTypeFor(j.Type)
	onPred := j.On
	combined := map[string]bool{}
	for t := range leftTables {
		combined[t] = true
	}
	for t := range rightTables {
		combined[t] = true
	}
	return plan.NewNestedLoopJoin(leftNode, rightNode, jt, onPred), combined, nil
}

// wrapRemaining folds any leftover conjuncts wholly covered by side's own
// tables into a SimpleFilter over side, so a predicate on one arm of an
// outer join (e.g. a USING clause naming a column on both sides) isn't
// silently lost. A conjunct wholly covered by side's tables is applied here
// exactly once: the other side's tables can't also cover it (the two sides
// are disjoint), so there's no risk of double-filtering.
func wrapRemaining(side plan.Node, tables map[string]bool, remaining []expr.Node) plan.Node {
	var mine []expr.Node
	for _, c := range remaining {
		if coveredBy(expr.ReferencedTables(c), tables) {
			mine = append(mine, c)
		}
	}
	if len(mine) == 0 {
		return side
	}
	return plan.NewSimpleFilter(side, expr.MakePredicate(mine))
}

func coveredBy(referenced, tables map[string]bool) bool {
	for t := range referenced {
		if !tables[t] {
			return false
		}
	}
	return true
}

func joinTypeFor(k JoinKind) plan.JoinType {
	switch k {
	case JoinKindLeft:
		return plan.JoinLeftOuter
	case JoinKindRight:
		return plan.JoinRightOuter
	case JoinKindFull:
		return plan.JoinFullOuter
	case JoinKindCross:
		return plan.JoinCross
	default:
		return plan.JoinInner
	}
}
