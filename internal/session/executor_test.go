package session

import (
	"sync"
	"testing"

	"github.com/nanodb-project/nanodb/internal/buffer"
	"github.com/nanodb-project/nanodb/internal/expr"
	"github.com/nanodb-project/nanodb/internal/heap"
	"github.com/nanodb-project/nanodb/internal/nerr"
	"github.com/nanodb-project/nanodb/internal/page"
	"github.com/nanodb-project/nanodb/internal/planner"
	"github.com/nanodb-project/nanodb/internal/schema"
)

type mapCatalog map[string]*heap.File

func (c mapCatalog) Lookup(name string) (*heap.File, error) {
	f, ok := c[name]
	if !ok {
		return nil, nerr.ErrFileNotFound(name)
	}
	return f, nil
}

func newTestFile(t *testing.T, name string, sch *schema.Schema, rows [][]any) *heap.File {
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

func idSchema(name string) *schema.Schema {
	return schema.New([]schema.ColumnInfo{
		{TableName: name, Name: "id", Type: schema.ColumnType{Kind: schema.TInt}},
		{TableName: name, Name: "n", Type: schema.ColumnType{Kind: schema.TInt}},
	})
}

func TestSessionExecuteSelect(t *testing.T) {
	f := newTestFile(t, "t", idSchema("t"), [][]any{{int64(1), int64(10)}, {int64(2), int64(20)}})
	cat := mapCatalog{"t": f}
	s := New(cat, &sync.RWMutex{})
	p := planner.New(cat)

	stmt := &planner.SelectStmt{
		Items: []planner.SelectItem{{Star: true}},
		From:  &planner.TableRef{Name: "t"},
		Limit: -1,
	}
	res := s.ExecuteSelect(p, stmt)
	if !res.Success {
		t.Fatalf("expected success, got %q", res.Message)
	}
	if len(res.Tuples) != 2 {
		t.Errorf("expected 2 tuples, got %d", len(res.Tuples))
	}
}

func TestSessionExecuteInsert(t *testing.T) {
	f := newTestFile(t, "t", idSchema("t"), nil)
	cat := mapCatalog{"t": f}
	s := New(cat, &sync.RWMutex{})

	res := s.ExecuteInsert("t", [][]any{{int64(1), int64(100)}, {int64(2), int64(200)}})
	if !res.Success || res.RowsAffected != 2 {
		t.Fatalf("expected 2 rows inserted, got %+v", res)
	}
	count := 0
	if err := f.Scan(func(*heap.PageTuple) bool { count++; return true }); err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("expected 2 rows in file, got %d", count)
	}
}

func TestSessionExecuteDeleteAndUpdate(t *testing.T) {
	f := newTestFile(t, "t", idSchema("t"), [][]any{
		{int64(1), int64(10)}, {int64(2), int64(20)}, {int64(3), int64(30)},
	})
	cat := mapCatalog{"t": f}
	s := New(cat, &sync.RWMutex{})

	delPred := &expr.Binary{Op: "=", Left: &expr.VarRef{TableName: "t", ColName: "id"}, Right: &expr.Literal{Val: int64(2)}}
	delRes := s.ExecuteDelete("t", delPred)
	if !delRes.Success || delRes.RowsAffected != 1 {
		t.Fatalf("expected 1 row deleted, got %+v", delRes)
	}

	updPred := &expr.Binary{Op: "=", Left: &expr.VarRef{TableName: "t", ColName: "id"}, Right: &expr.Literal{Val: int64(1)}}
	updRes := s.ExecuteUpdate("t", updPred, []Assignment{{Column: "n", Expr: &expr.Literal{Val: int64(999)}}})
	if !updRes.Success || updRes.RowsAffected != 1 {
		t.Fatalf("expected 1 row updated, got %+v", updRes)
	}

	var got []int64
	if err := f.Scan(func(pt *heap.PageTuple) bool {
		got = append(got, pt.ColumnValue(0).(int64), pt.ColumnValue(1).(int64))
		return true
	}); err != nil {
		t.Fatal(err)
	}
	if len(got) != 4 || got[0] != 1 || got[1] != 999 || got[2] != 3 || got[3] != 30 {
		t.Errorf("unexpected final rows: %v", got)
	}
}

func TestSessionExecuteSelectExplain(t *testing.T) {
	f := newTestFile(t, "t", idSchema("t"), [][]any{{int64(1), int64(10)}, {int64(2), int64(20)}})
	cat := mapCatalog{"t": f}
	s := New(cat, &sync.RWMutex{})
	p := planner.New(cat)

	stmt := &planner.SelectStmt{
		Items:   []planner.SelectItem{{Star: true}},
		From:    &planner.TableRef{Name: "t"},
		Limit:   -1,
		Explain: true,
	}
	res := s.ExecuteSelect(p, stmt)
	if !res.Success {
		t.Fatalf("expected success, got %q", res.Message)
	}
	if res.Explain == "" {
		t.Fatal("expected a non-empty plan description")
	}
	if res.Tuples != nil {
		t.Errorf("expected EXPLAIN to skip draining tuples, got %d", len(res.Tuples))
	}
}

func TestSessionCancelAbortsSelect(t *testing.T) {
	f := newTestFile(t, "t", idSchema("t"), [][]any{{int64(1), int64(10)}})
	cat := mapCatalog{"t": f}
	s := New(cat, &sync.RWMutex{})
	p := planner.New(cat)

	s.Cancel()
	stmt := &planner.SelectStmt{
		Items: []planner.SelectItem{{Star: true}},
		From:  &planner.TableRef{Name: "t"},
		Limit: -1,
	}
	res := s.ExecuteSelect(p, stmt)
	if res.Success {
		t.Error("expected cancellation to fail the command")
	}
}
