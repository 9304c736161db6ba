// Package planner binds a parsed SELECT statement to a fully prepared
// internal/plan tree: decomposing FROM into leaves and conjuncts, enumerating
// join orders by dynamic programming, and wrapping the chosen join in
// group/aggregate, project, distinct, and order/limit/offset nodes exactly as
// spec §4.7's makePlan algorithm describes.
//
// There is no separate AST package: the statement shapes below are the whole
// of what a front end needs to hand the planner, and nothing else in NanoDB
// builds or consumes them, so they live next to the code that walks them.
package planner

import (
	"github.com/nanodb-project/nanodb/internal/expr"
	"github.com/nanodb-project/nanodb/internal/heap"
)

// Catalog resolves a base table name to its open heap file. The planner
// never opens or creates files itself.
type Catalog interface {
	Lookup(table string) (*heap.File, error)
}

// SelectItem is one expression in a SELECT list, or a star expansion.
type SelectItem struct {
	Expr      expr.Node
	Alias     string
	Star      bool   // SELECT * or SELECT t.*
	StarTable string // qualifier for t.*; "" for a bare *
}

// OrderItem is one ORDER BY term.
type OrderItem struct {
	Expr expr.Node
	Desc bool
}

// FromItem is one node of a FROM-clause tree: a base table, a nested SELECT,
// or a join of two FromItems.
type FromItem interface {
	fromItem()
}

// TableRef names a base table, optionally aliased.
type TableRef struct {
	Name  string
	Alias string
}

func (*TableRef) fromItem() {}

// SubqueryRef is a derived table: `(SELECT ...) AS alias`.
type SubqueryRef struct {
	Stmt  *SelectStmt
	Alias string
}

func (*SubqueryRef) fromItem() {}

// JoinItem is one INNER/LEFT/RIGHT/FULL/CROSS join of two FromItems. An
// outer join (or semi/anti, when the statement source represents EXISTS/IN
// some other way) is planned as a single opaque leaf per spec §4.7 step 2 —
// decomposeFrom does not break it apart to feed the DP join enumerator.
type JoinItem struct {
	Left, Right FromItem
	Type        JoinKind
	On          expr.Node // nil for CROSS or a bare comma-join
}

func (*JoinItem) fromItem() {}

// JoinKind names the kind of join a JoinItem represents in the FROM tree,
// independent of internal/plan.JoinType (which the leaf-planning step maps
// this onto).
type JoinKind int

const (
	JoinKindInner JoinKind = iota
	JoinKindLeft
	JoinKindRight
	JoinKindFull
	JoinKindCross
)

// SelectStmt is a single SELECT statement (no set operations — UNION/
// INTERSECT/EXCEPT are out of scope).
type SelectStmt struct {
	Items    []SelectItem
	From     FromItem // nil for a FROM-less SELECT, e.g. SELECT 1+1
	Where    expr.Node
	GroupBy  []expr.Node
	Having   expr.Node
	OrderBy  []OrderItem
	Distinct bool

	// Limit < 0 means no LIMIT clause was present (unlimited); Limit == 0 is
	// a literal LIMIT 0, matching internal/plan.LimitOffset's sentinel.
	Limit  int
	Offset int

	// Explain, when set, diverts internal/session.ExecuteSelect from
	// draining the plan to instead returning its Describe(0) dump, per
	// spec.md §6's EXPLAIN <stmt>.
	Explain bool
}
