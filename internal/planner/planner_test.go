package planner

import (
	"testing"

	"github.com/nanodb-project/nanodb/internal/buffer"
	"github.com/nanodb-project/nanodb/internal/expr"
	"github.com/nanodb-project/nanodb/internal/heap"
	"github.com/nanodb-project/nanodb/internal/nerr"
	"github.com/nanodb-project/nanodb/internal/page"
	"github.com/nanodb-project/nanodb/internal/plan"
	"github.com/nanodb-project/nanodb/internal/schema"
)

// mapCatalog is a test-only Catalog backed by a name -> *heap.File map.
type mapCatalog map[string]*heap.File

func (c mapCatalog) Lookup(name string) (*heap.File, error) {
	f, ok := c[name]
	if !ok {
		return nil, nerr.ErrFileNotFound(name)
	}
	return f, nil
}

func newTestHeap(t *testing.T, name string, sch *schema.Schema, rows [][]any) *heap.File {
	t.Helper()
	mgr, err := page.NewManager(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	cache := buffer.New(buffer.Config{MaxPages: 32})
	hf, err := heap.Create(mgr, cache, name+".tbl", sch, page.DefaultPageSize)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range rows {
		if _, err := hf.AddTuple(r); err != nil {
			t.Fatal(err)
		}
	}
	return hf
}

func intSchema(name, col string) *schema.Schema {
	return schema.New([]schema.ColumnInfo{{TableName: name, Name: col, Type: schema.ColumnType{Kind: schema.TInt}}})
}

func drainPlan(t *testing.T, n plan.Node) []schema.Tuple {
	t.Helper()
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

func varRef(table, col string) *expr.VarRef { return &expr.VarRef{TableName: table, ColName: col} }

// TestMakePlanThreeWayJoinWithWherePushdown exercises scenario S3: three
// single-column tables joined on a chain of equalities in WHERE, none of
// which are wholly local to one table, so they must be picked up by the DP
// enumerator rather than pushed into any single FileScan.
func TestMakePlanThreeWayJoinWithWherePushdown(t *testing.T) {
	lSch := schema.New([]schema.ColumnInfo{
		{TableName: "l", Name: "a", Type: schema.ColumnType{Kind: schema.TInt}},
		{TableName: "l", Name: "b", Type: schema.ColumnType{Kind: schema.TInt}},
	})
	rSch := schema.New([]schema.ColumnInfo{
		{TableName: "r", Name: "c", Type: schema.ColumnType{Kind: schema.TInt}},
		{TableName: "r", Name: "d", Type: schema.ColumnType{Kind: schema.TVarChar, MaxLen: 8}},
	})
	mSch := schema.New([]schema.ColumnInfo{
		{TableName: "m", Name: "e", Type: schema.ColumnType{Kind: schema.TInt}},
		{TableName: "m", Name: "f", Type: schema.ColumnType{Kind: schema.TInt}},
	})

	lf := newTestHeap(t, "l", lSch, [][]any{{int64(1), int64(10)}, {int64(1), int64(20)}, {int64(3), nil}, {int64(5), int64(40)}})
	rf := newTestHeap(t, "r", rSch, [][]any{{int64(1), "a"}, {int64(3), "b"}, {int64(5), "c"}})
	mf := newTestHeap(t, "m", mSch, [][]any{{int64(1), int64(100)}, {int64(5), int64(200)}})

	cat := mapCatalog{"l": lf, "r": rf, "m": mf}

	from := &JoinItem{
		Left:  &JoinItem{Left: &TableRef{Name: "l"}, Right: &TableRef{Name: "r"}, Type: JoinKindCross},
		Right: &TableRef{Name: "m"},
		Type:  JoinKindCross,
	}
	where := &expr.Binary{Op: "AND",
		Left:  &expr.Binary{Op: "=", Left: varRef("l", "a"), Right: varRef("r", "c")},
		Right: &expr.Binary{Op: "=", Left: varRef("l", "a"), Right: varRef("m", "e")},
	}
	stmt := &SelectStmt{
		Items: []SelectItem{
			{Expr: varRef("l", "a"), Alias: "a"}, {Expr: varRef("l", "b"), Alias: "b"},
			{Expr: varRef("r", "c"), Alias: "c"}, {Expr: varRef("r", "d"), Alias: "d"},
			{Expr: varRef("m", "e"), Alias: "e"}, {Expr: varRef("m", "f"), Alias: "f"},
		},
		From:  from,
		Where: where,
		Limit: -1,
	}

	p := New(cat)
	node, err := p.MakePlan(stmt)
	if err != nil {
		t.Fatalf("MakePlan: %v", err)
	}
	rows := drainPlan(t, node)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d: %+v", len(rows), rows)
	}
	seen := map[int64]bool{}
	for _, r := range rows {
		seen[r.ColumnValue(0).(int64)] = true
	}
	if !seen[1] || !seen[5] {
		t.Errorf("expected rows for a=1 (x2) and a=5, got %+v", rows)
	}
}

// TestMakePlanCorrelatedExists exercises scenario S6: a correlated EXISTS
// subquery whose inner predicate references the outer table's column.
func TestMakePlanCorrelatedExists(t *testing.T) {
	t1Sch := intSchema("t1", "a")
	t2Sch := intSchema("t2", "b")
	t1f := newTestHeap(t, "t1", t1Sch, [][]any{{int64(1)}, {int64(2)}, {int64(3)}})
	t2f := newTestHeap(t, "t2", t2Sch, [][]any{{int64(10)}, {int64(30)}})
	cat := mapCatalog{"t1": t1f, "t2": t2f}

	innerPlanner := New(cat)
	innerStmt := &SelectStmt{
		Items: []SelectItem{{Expr: varRef("t2", "b"), Alias: "b"}},
		From:  &TableRef{Name: "t2"},
		Where: &expr.Binary{
			Op:   "=",
			Left: &expr.Binary{Op: "*", Left: varRef("t1", "a"), Right: &expr.Literal{Val: int64(10)}},
			Right: varRef("t2", "b"),
		},
		Limit: -1,
	}
	innerNode, err := innerPlanner.MakePlan(innerStmt)
	if err != nil {
		t.Fatalf("inner MakePlan: %v", err)
	}
	sub := plan.NewSubqueryPlan(innerNode)
	exists := &expr.ExistsSubquery{Plan: sub}

	outerStmt := &SelectStmt{
		Items: []SelectItem{{Expr: varRef("t1", "a"), Alias: "a"}},
		From:  &TableRef{Name: "t1"},
		Where: exists,
		Limit: -1,
	}
	outerPlanner := New(cat)
	outerNode, err := outerPlanner.MakePlan(outerStmt)
	if err != nil {
		t.Fatalf("outer MakePlan: %v", err)
	}
	rows := drainPlan(t, outerNode)
	var got []int64
	for _, r := range rows {
		got = append(got, r.ColumnValue(0).(int64))
	}
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("expected [1 3], got %v", got)
	}
}

// TestMakePlanLimitZeroYieldsEmpty exercises scenario S5 at the planner
// level: a literal LIMIT 0 emits no rows regardless of the underlying data.
func TestMakePlanLimitZeroYieldsEmpty(t *testing.T) {
	sch := intSchema("t", "id")
	f := newTestHeap(t, "t", sch, [][]any{{int64(1)}, {int64(2)}, {int64(3)}})
	cat := mapCatalog{"t": f}
	stmt := &SelectStmt{
		Items:  []SelectItem{{Expr: varRef("t", "id"), Alias: "id"}},
		From:   &TableRef{Name: "t"},
		Limit:  0,
		Offset: 1,
	}
	node, err := New(cat).MakePlan(stmt)
	if err != nil {
		t.Fatalf("MakePlan: %v", err)
	}
	rows := drainPlan(t, node)
	if len(rows) != 0 {
		t.Errorf("expected 0 rows for LIMIT 0, got %d", len(rows))
	}
}

// TestMakePlanAggregateInWhereRejected checks the WHERE-clause failure mode
// spec §4.7 names explicitly.
func TestMakePlanAggregateInWhereRejected(t *testing.T) {
	sch := intSchema("t", "id")
	f := newTestHeap(t, "t", sch, nil)
	cat := mapCatalog{"t": f}
	stmt := &SelectStmt{
		Items: []SelectItem{{Expr: varRef("t", "id"), Alias: "id"}},
		From:  &TableRef{Name: "t"},
		Where: &expr.FuncCall{Name: "COUNT", Star: true},
		Limit: -1,
	}
	if _, err := New(cat).MakePlan(stmt); err == nil {
		t.Error("expected AggregateInWrongPlace error for aggregate in WHERE")
	}
}

// TestMakePlanDistinctDeduplicates exercises step 8's group-by-based
// DISTINCT over a projection with duplicate rows.
func TestMakePlanDistinctDeduplicates(t *testing.T) {
	sch := intSchema("t", "id")
	f := newTestHeap(t, "t", sch, [][]any{{int64(1)}, {int64(1)}, {int64(2)}})
	cat := mapCatalog{"t": f}
	stmt := &SelectStmt{
		Items:    []SelectItem{{Expr: varRef("t", "id"), Alias: "id"}},
		From:     &TableRef{Name: "t"},
		Distinct: true,
		Limit:    -1,
	}
	node, err := New(cat).MakePlan(stmt)
	if err != nil {
		t.Fatalf("MakePlan: %v", err)
	}
	rows := drainPlan(t, node)
	if len(rows) != 2 {
		t.Errorf("expected 2 distinct rows, got %d: %+v", len(rows), rows)
	}
}
