package plan

import (
	"testing"

	"github.com/nanodb-project/nanodb/internal/buffer"
	"github.com/nanodb-project/nanodb/internal/expr"
	"github.com/nanodb-project/nanodb/internal/heap"
	"github.com/nanodb-project/nanodb/internal/page"
	"github.com/nanodb-project/nanodb/internal/schema"
)

func lSchema() *schema.Schema {
	return schema.New([]schema.ColumnInfo{
		{TableName: "l", Name: "a", Type: schema.ColumnType{Kind: schema.TInt}},
		{TableName: "l", Name: "b", Type: schema.ColumnType{Kind: schema.TInt}},
	})
}

func rSchema() *schema.Schema {
	return schema.New([]schema.ColumnInfo{
		{TableName: "r", Name: "c", Type: schema.ColumnType{Kind: schema.TInt}},
		{TableName: "r", Name: "d", Type: schema.ColumnType{Kind: schema.TVarChar}},
	})
}

func lit(i, j int64) schema.Tuple {
	return schema.NewTupleLiteral(lSchema(), []any{i, j})
}

func ritem(i int64, s string) schema.Tuple {
	return schema.NewTupleLiteral(rSchema(), []any{i, s})
}

func drain(t *testing.T, n Node) []schema.Tuple {
	t.Helper()
	if err := n.Prepare(); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if err := n.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	defer n.CleanUp()
	var out []schema.Tuple
	for {
		tup, err := n.GetNextTuple()
		if err != nil {
			t.Fatalf("getNextTuple: %v", err)
		}
		if tup == nil {
			break
		}
		out = append(out, tup)
	}
	return out
}

func TestSimpleFilterPredicate(t *testing.T) {
	bag := NewTupleBag(lSchema(), []schema.Tuple{lit(1, 10), lit(2, 20), lit(3, 30)})
	pred := &expr.Binary{Op: ">", Left: &expr.VarRef{TableName: "l", ColName: "b"}, Right: &expr.Literal{Val: int64(15)}}
	f := NewSimpleFilter(bag, pred)
	out := drain(t, f)
	if len(out) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(out))
	}
}

func TestProjectPassthroughAndExpr(t *testing.T) {
	bag := NewTupleBag(lSchema(), []schema.Tuple{lit(1, 10)})
	items := []ProjectItem{
		{Expr: &expr.VarRef{TableName: "l", ColName: "a"}, Alias: "a"},
		{Expr: &expr.Binary{Op: "+", Left: &expr.VarRef{TableName: "l", ColName: "b"}, Right: &expr.Literal{Val: int64(1)}}, Alias: "bplus1"},
	}
	p := NewProject(bag, items)
	out := drain(t, p)
	if len(out) != 1 {
		t.Fatalf("expected 1 row, got %d", len(out))
	}
	if out[0].ColumnValue(1) != int64(11) {
		t.Errorf("expected 11, got %v", out[0].ColumnValue(1))
	}
}

// S2: inner/outer joins on small tables.
func TestNestedLoopJoinInnerAndLeftOuter(t *testing.T) {
	lRows := []schema.Tuple{lit(1, 10), lit(1, 20), lit(3, 0), lit(5, 40)}
	rRows := []schema.Tuple{ritem(1, "a"), ritem(3, "b"), ritem(5, "c")}
	pred := &expr.Binary{Op: "=", Left: &expr.VarRef{TableName: "l", ColName: "a"}, Right: &expr.VarRef{TableName: "r", ColName: "c"}}

	inner := NewNestedLoopJoin(
		NewTupleBag(lSchema(), lRows),
		NewTupleBag(rSchema(), rRows),
		JoinInner, pred,
	)
	out := drain(t, inner)
	if len(out) != 4 {
		t.Fatalf("expected 4 inner matches, got %d", len(out))
	}

	left := NewNestedLoopJoin(
		NewTupleBag(lSchema(), []schema.Tuple{lit(1, 10), lit(2, 99)}),
		NewTupleBag(rSchema(), rRows),
		JoinLeftOuter, pred,
	)
	out2 := drain(t, left)
	if len(out2) != 2 {
		t.Fatalf("expected 1 match + 1 null-padded row, got %d", len(out2))
	}
	lastRow := out2[len(out2)-1]
	if lastRow.ColumnValue(2) != nil {
		t.Errorf("expected null-padded right side for unmatched left row, got %v", lastRow.ColumnValue(2))
	}
}

func TestNestedLoopJoinRightOuterEmptyRightEmitsNothing(t *testing.T) {
	lRows := []schema.Tuple{lit(1, 10)}
	pred := &expr.Binary{Op: "=", Left: &expr.VarRef{TableName: "l", ColName: "a"}, Right: &expr.VarRef{TableName: "r", ColName: "c"}}
	j := NewNestedLoopJoin(
		NewTupleBag(lSchema(), lRows),
		NewTupleBag(rSchema(), nil),
		JoinRightOuter, pred,
	)
	out := drain(t, j)
	if len(out) != 0 {
		t.Fatalf("expected 0 rows for right outer over empty right side, got %d", len(out))
	}
}

// FULL OUTER JOIN must emit both sides' unmatched rows, not just the
// left's: l has a row (a=9) with no match in r, and r has a row (c=7) with
// no match in l.
func TestNestedLoopJoinFullOuter(t *testing.T) {
	lRows := []schema.Tuple{lit(1, 10), lit(2, 20), lit(9, 90)}
	rRows := []schema.Tuple{ritem(1, "a"), ritem(2, "b"), ritem(7, "z")}
	pred := &expr.Binary{Op: "=", Left: &expr.VarRef{TableName: "l", ColName: "a"}, Right: &expr.VarRef{TableName: "r", ColName: "c"}}

	j := NewNestedLoopJoin(
		NewTupleBag(lSchema(), lRows),
		NewTupleBag(rSchema(), rRows),
		JoinFullOuter, pred,
	)
	out := drain(t, j)
	if len(out) != 4 {
		t.Fatalf("expected 2 matches + 1 left-unmatched + 1 right-unmatched = 4 rows, got %d", len(out))
	}

	var leftUnmatched, rightUnmatched int
	for _, row := range out {
		switch {
		case row.ColumnValue(0) == int64(9) && row.ColumnValue(2) == nil:
			leftUnmatched++
		case row.ColumnValue(0) == nil && row.ColumnValue(2) == int64(7):
			rightUnmatched++
		}
	}
	if leftUnmatched != 1 {
		t.Errorf("expected exactly 1 left-unmatched row (a=9, NULL-padded right), got %d", leftUnmatched)
	}
	if rightUnmatched != 1 {
		t.Errorf("expected exactly 1 right-unmatched row (c=7, NULL-padded left), got %d", rightUnmatched)
	}
}

func TestSortStableAscending(t *testing.T) {
	bag := NewTupleBag(lSchema(), []schema.Tuple{lit(3, 1), lit(1, 2), lit(2, 3)})
	s := NewSort(bag, []SortKey{{Expr: &expr.VarRef{TableName: "l", ColName: "a"}}})
	out := drain(t, s)
	want := []int64{1, 2, 3}
	for i, w := range want {
		if out[i].ColumnValue(0) != w {
			t.Errorf("position %d: expected %d, got %v", i, w, out[i].ColumnValue(0))
		}
	}
}

func TestHashedGroupAggregateCountSumAvg(t *testing.T) {
	bag := NewTupleBag(lSchema(), []schema.Tuple{lit(1, 10), lit(1, 20), lit(2, 5)})
	countCall := &expr.FuncCall{Name: "COUNT", Star: true}
	sumCall := &expr.FuncCall{Name: "SUM", Args: []expr.Node{&expr.VarRef{TableName: "l", ColName: "b"}}}
	g := NewHashedGroupAggregate(
		bag,
		[]expr.Node{&expr.VarRef{TableName: "l", ColName: "a"}},
		map[string]*expr.FuncCall{"#AGG0": countCall, "#AGG1": sumCall},
		[]string{"#AGG0", "#AGG1"},
	)
	out := drain(t, g)
	if len(out) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(out))
	}
	totals := map[int64][2]int64{}
	for _, row := range out {
		a := row.ColumnValue(0).(int64)
		cnt := row.ColumnValue(1).(int64)
		sum := row.ColumnValue(2).(int64)
		totals[a] = [2]int64{cnt, sum}
	}
	if totals[1] != [2]int64{2, 30} {
		t.Errorf("group a=1: expected count=2 sum=30, got %v", totals[1])
	}
	if totals[2] != [2]int64{1, 5} {
		t.Errorf("group a=2: expected count=1 sum=5, got %v", totals[2])
	}
}

func TestHashedGroupAggregateNoGroupByEmitsOneRow(t *testing.T) {
	bag := NewTupleBag(lSchema(), nil)
	countCall := &expr.FuncCall{Name: "COUNT", Star: true}
	g := NewHashedGroupAggregate(bag, nil, map[string]*expr.FuncCall{"#AGG0": countCall}, []string{"#AGG0"})
	out := drain(t, g)
	if len(out) != 1 {
		t.Fatalf("expected exactly 1 row for a bare aggregate over zero input rows, got %d", len(out))
	}
	if out[0].ColumnValue(0) != int64(0) {
		t.Errorf("expected COUNT(*)=0, got %v", out[0].ColumnValue(0))
	}
}

// S5: LIMIT/OFFSET.
func TestLimitOffsetScenarios(t *testing.T) {
	rows := []schema.Tuple{lit(1, 0), lit(2, 0), lit(3, 0), lit(4, 0), lit(5, 0)}

	out := drain(t, NewLimitOffset(NewTupleBag(lSchema(), rows), 2, 1))
	if len(out) != 2 || out[0].ColumnValue(0) != int64(2) || out[1].ColumnValue(0) != int64(3) {
		t.Fatalf("LIMIT 2 OFFSET 1: expected [2,3], got %v", out)
	}

	out2 := drain(t, NewLimitOffset(NewTupleBag(lSchema(), rows), 0, 1))
	if len(out2) != 0 {
		t.Fatalf("LIMIT 0 OFFSET 1: expected empty, got %d rows", len(out2))
	}

	out3 := drain(t, NewLimitOffset(NewTupleBag(lSchema(), rows), 3, 100))
	if len(out3) != 0 {
		t.Fatalf("LIMIT 3 OFFSET 100: expected empty, got %d rows", len(out3))
	}
}

func TestFileScanPushesPredicateAndSkipsNonMatches(t *testing.T) {
	mgr, err := page.NewManager(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	cache := buffer.New(buffer.Config{MaxPages: 16})
	sch := schema.New([]schema.ColumnInfo{{Name: "id", Type: schema.ColumnType{Kind: schema.TInt}}})
	hf, err := heap.Create(mgr, cache, "t.tbl", sch, page.DefaultPageSize)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range []int64{1, 2, 3, 4} {
		if _, err := hf.AddTuple([]any{v}); err != nil {
			t.Fatal(err)
		}
	}

	pred := &expr.Binary{Op: ">", Left: &expr.VarRef{TableName: "t", ColName: "id"}, Right: &expr.Literal{Val: int64(2)}}
	scan := NewFileScan(hf, "t", pred)
	out := drain(t, scan)
	if len(out) != 2 {
		t.Fatalf("expected 2 matching rows, got %d", len(out))
	}
}

func TestSubqueryPlanSatisfiesExprSubquery(t *testing.T) {
	bag := NewTupleBag(lSchema(), []schema.Tuple{lit(1, 10)})
	sp := NewSubqueryPlan(bag)
	var _ expr.Subquery = sp

	sc := &expr.ScalarSubquery{Plan: sp}
	env := expr.New(nil)
	v, err := sc.Evaluate(env)
	if err != nil {
		t.Fatal(err)
	}
	if v != int64(1) {
		t.Errorf("expected scalar subquery to yield 1, got %v", v)
	}
}

// TestSubqueryPlanCorrelatedReference exercises the EXISTS(... WHERE
// outer.a = inner.c) shape from scenario S6: the inner plan's predicate
// references a VarRef qualified by the outer table, which must resolve
// through the environment chain SubqueryPlan.Initialize wires up via
// SetParentEnv, not through the inner scan's own schema.
func TestSubqueryPlanCorrelatedReference(t *testing.T) {
	inner := NewSimpleFilter(
		NewTupleBag(rSchema(), []schema.Tuple{ritem(1, "x"), ritem(2, "y")}),
		&expr.Binary{
			Op:    "=",
			Left:  &expr.VarRef{TableName: "l", ColName: "a"},
			Right: &expr.VarRef{TableName: "r", ColName: "c"},
		},
	)
	sp := NewSubqueryPlan(inner)
	ex := &expr.ExistsSubquery{Plan: sp}

	outerEnv := expr.New(nil)
	outerEnv.AddScope(lSchema(), lit(1, 10))

	if err := sp.Plan.Prepare(); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	v, err := ex.Evaluate(outerEnv)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	b, ok := v.(bool)
	if !ok || !b {
		t.Errorf("expected EXISTS to find a correlated match (outer a=1, inner c=1), got %v", v)
	}

	outerEnv2 := expr.New(nil)
	outerEnv2.AddScope(lSchema(), lit(99, 10))
	v2, err := ex.Evaluate(outerEnv2)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if b2, ok := v2.(bool); !ok || b2 {
		t.Errorf("expected EXISTS to find no correlated match for outer a=99, got %v", v2)
	}
}
