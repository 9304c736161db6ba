package planner

import (
	"github.com/nanodb-project/nanodb/internal/expr"
	"github.com/nanodb-project/nanodb/internal/nerr"
	"github.com/nanodb-project/nanodb/internal/plan"
	"github.com/nanodb-project/nanodb/internal/schema"
)

var errDisconnectedJoinGraph = nerr.ErrUnsupportedConstruct("disconnected join graph")

// Planner binds SelectStmts to internal/plan trees against a fixed Catalog,
// per spec §4.7's makePlan.
type Planner struct {
	Catalog Catalog
}

// New returns a Planner resolving base table names against catalog.
func New(catalog Catalog) *Planner {
	return &Planner{Catalog: catalog}
}

// MakePlan implements spec §4.7's makePlan entry point, following its nine
// construction steps in order, then calling Prepare() once on the finished
// tree so schemas/costs/stats propagate bottom-up before the caller hands
// the plan to the executor.
func (p *Planner) MakePlan(stmt *SelectStmt) (plan.Node, error) {
	if err := rejectMisplacedAggregates(stmt); err != nil {
		return nil, err
	}

	// Step 1: aggregate rewrite over SELECT, HAVING, ORDER BY.
	rewriter := expr.NewAggregateRewriter()
	items, err := rewriteSelectItems(rewriter, stmt.Items)
	if err != nil {
		return nil, err
	}
	having, err := rewriteOptional(rewriter, stmt.Having)
	if err != nil {
		return nil, err
	}
	order, err := rewriteOrderBy(rewriter, stmt.OrderBy)
	if err != nil {
		return nil, err
	}

	// Steps 2-5: decompose FROM, plan leaves, DP-join, wrap remaining
	// conjuncts.
	node, err := p.planFrom(stmt)
	if err != nil {
		return nil, err
	}

	// Step 6: GROUP BY / HAVING.
	if len(stmt.GroupBy) > 0 || len(rewriter.Order) > 0 {
		node = plan.NewHashedGroupAggregate(node, stmt.GroupBy, rewriter.Aggregates, rewriter.Order)
		if having != nil {
			node = plan.NewSimpleFilter(node, having)
		}
	}

	// Step 7: Project.
	node, err = buildProject(node, items)
	if err != nil {
		return nil, err
	}

	// Step 8: DISTINCT, via group-by on every projected column (spec §9's
	// sanctioned alternative to Sort+dedup — avoids a new plan-node type).
	if stmt.Distinct {
		if err := node.Prepare(); err != nil {
			return nil, err
		}
		node = distinctOverAllColumns(node)
	}

	// Step 9: ORDER BY / LIMIT / OFFSET.
	if len(order) > 0 {
		if err := node.Prepare(); err != nil {
			return nil, err
		}
		keys, err := buildSortKeys(node.Schema(), order)
		if err != nil {
			return nil, err
		}
		node = plan.NewSort(node, keys)
	}
	if stmt.Limit >= 0 || stmt.Offset > 0 {
		node = plan.NewLimitOffset(node, stmt.Limit, stmt.Offset)
	}

	if err := node.Prepare(); err != nil {
		return nil, err
	}
	return node, nil
}

// planFrom runs spec §4.7 steps 2-5 for a FROM-less SELECT (e.g.
// `SELECT 1+1`, planned over a single dummy row) or a real FROM clause,
// applying the top-level WHERE predicate's conjuncts as pushdown/DP-join
// candidates alongside the FROM tree's own ON/USING conjuncts.
func (p *Planner) planFrom(stmt *SelectStmt) (plan.Node, error) {
	if stmt.From == nil {
		dummySch := schema.New(nil)
		node := plan.Node(plan.NewTupleBag(dummySch, []schema.Tuple{schema.NewTupleLiteral(dummySch, nil)}))
		if stmt.Where != nil {
			node = plan.NewSimpleFilter(node, stmt.Where)
		}
		return node, nil
	}

	raws, onConjuncts := decomposeFrom(stmt.From)
	var whereConjuncts []expr.Node
	if stmt.Where != nil {
		whereConjuncts = expr.CollectConjuncts(stmt.Where)
	}
	pool := newConjunctPool(append(onConjuncts, whereConjuncts...))

	leaves, err := p.planLeaves(raws, pool)
	if err != nil {
		return nil, err
	}
	dpConjuncts := pool.available()
	node, _, used, err := dpJoin(leaves, dpConjuncts)
	if err != nil {
		return nil, err
	}

	// Step 5: any conjuncts not consumed during leaf pushdown or DP
	// enumeration wrap the result in a SimpleFilter.
	var leftover []expr.Node
	for _, c := range dpConjuncts {
		if !used[c] {
			leftover = append(leftover, c)
		}
	}
	if len(leftover) > 0 {
		node = plan.NewSimpleFilter(node, expr.MakePredicate(leftover))
	}
	return node, nil
}

func rejectMisplacedAggregates(stmt *SelectStmt) error {
	if stmt.Where != nil && expr.ContainsAggregate(stmt.Where) {
		return nerr.ErrAggregateInWrongPlace("WHERE")
	}
	for _, g := range stmt.GroupBy {
		if expr.ContainsAggregate(g) {
			return nerr.ErrAggregateInWrongPlace("GROUP BY")
		}
	}
	return checkJoinOnClauses(stmt.From)
}

func checkJoinOnClauses(f FromItem) error {
	j, ok := f.(*JoinItem)
	if !ok {
		return nil
	}
	if j.On != nil && expr.ContainsAggregate(j.On) {
		return nerr.ErrAggregateInWrongPlace("ON")
	}
	if err := checkJoinOnClauses(j.Left); err != nil {
		return err
	}
	return checkJoinOnClauses(j.Right)
}

func rewriteSelectItems(r *expr.AggregateRewriter, items []SelectItem) ([]SelectItem, error) {
	out := make([]SelectItem, len(items))
	for i, it := range items {
		out[i] = it
		if it.Star || it.Expr == nil {
			continue
		}
		rw, err := r.Rewrite(it.Expr)
		if err != nil {
			return nil, err
		}
		out[i].Expr = rw
	}
	return out, nil
}

func rewriteOptional(r *expr.AggregateRewriter, e expr.Node) (expr.Node, error) {
	if e == nil {
		return nil, nil
	}
	return r.Rewrite(e)
}

func rewriteOrderBy(r *expr.AggregateRewriter, order []OrderItem) ([]OrderItem, error) {
	out := make([]OrderItem, len(order))
	for i, o := range order {
		rw, err := r.Rewrite(o.Expr)
		if err != nil {
			return nil, err
		}
		out[i] = OrderItem{Expr: rw, Desc: o.Desc}
	}
	return out, nil
}
