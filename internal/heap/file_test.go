package heap

import (
	"testing"

	"github.com/nanodb-project/nanodb/internal/buffer"
	"github.com/nanodb-project/nanodb/internal/page"
	"github.com/nanodb-project/nanodb/internal/schema"
)

func testSchema() *schema.Schema {
	return schema.New([]schema.ColumnInfo{
		{TableName: "people", Name: "id", Type: schema.ColumnType{Kind: schema.TInt}},
		{TableName: "people", Name: "name", Type: schema.ColumnType{Kind: schema.TVarChar, MaxLen: 64}, Nullable: true},
	})
}

func newTestHeapFile(t *testing.T) *File {
	t.Helper()
	mgr, err := page.NewManager(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	cache := buffer.New(buffer.Config{MaxPages: 16})
	f, err := Create(mgr, cache, "people.tbl", testSchema(), page.DefaultPageSize)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestAddAndScanTuples(t *testing.T) {
	f := newTestHeapFile(t)

	if _, err := f.AddTuple([]any{int64(1), "alice"}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.AddTuple([]any{int64(2), nil}); err != nil {
		t.Fatal(err)
	}

	var names []any
	if err := f.Scan(func(pt *PageTuple) bool {
		names = append(names, pt.ColumnValue(1))
		return true
	}); err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "alice" || names[1] != nil {
		t.Fatalf("unexpected scan result: %v", names)
	}
}

func TestDeleteTuple(t *testing.T) {
	f := newTestHeapFile(t)
	t1, err := f.AddTuple([]any{int64(1), "alice"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.AddTuple([]any{int64(2), "bob"}); err != nil {
		t.Fatal(err)
	}

	if err := f.DeleteTuple(t1.Ref()); err != nil {
		t.Fatal(err)
	}

	var got []any
	if err := f.Scan(func(pt *PageTuple) bool {
		got = append(got, pt.ColumnValue(0))
		return true
	}); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != int64(2) {
		t.Fatalf("expected only tuple 2 to remain, got %v", got)
	}

	if err := f.DeleteTuple(t1.Ref()); err == nil {
		t.Fatal("expected error deleting an already-deleted tuple")
	}
}

func TestUpdateTupleInPlaceAndRelocate(t *testing.T) {
	f := newTestHeapFile(t)
	t1, err := f.AddTuple([]any{int64(1), "alice"})
	if err != nil {
		t.Fatal(err)
	}

	newRef, err := f.UpdateTuple(t1.Ref(), []any{int64(1), "al"})
	if err != nil {
		t.Fatal(err)
	}
	if newRef != t1.Ref() {
		t.Errorf("expected in-place update to keep the same ref, got %+v vs %+v", newRef, t1.Ref())
	}

	longer, err := f.UpdateTuple(newRef, []any{int64(1), "alexandria-the-third-of-her-name"})
	if err != nil {
		t.Fatal(err)
	}

	got, err := f.GetFirstTuple()
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ColumnValue(1) != "alexandria-the-third-of-her-name" {
		t.Fatalf("expected updated value, got %+v", got)
	}
	_ = longer
}

func TestAnalyzePersistsStats(t *testing.T) {
	f := newTestHeapFile(t)
	for i := int64(1); i <= 5; i++ {
		if _, err := f.AddTuple([]any{i, "row"}); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.Analyze(); err != nil {
		t.Fatal(err)
	}
	st := f.Stats()
	if st.TupleCount != 5 {
		t.Fatalf("expected 5 tuples, got %d", st.TupleCount)
	}
	if st.Columns[0].Distinct != 5 {
		t.Errorf("expected 5 distinct ids, got %f", st.Columns[0].Distinct)
	}
}

func TestTupleTooLargeFails(t *testing.T) {
	f := newTestHeapFile(t)
	huge := make([]byte, page.DefaultPageSize*2)
	for i := range huge {
		huge[i] = 'x'
	}
	if _, err := f.AddTuple([]any{int64(1), string(huge)}); err == nil {
		t.Fatal("expected ErrTupleTooLarge for an oversized tuple")
	}
}

func TestOpenReopensSchemaAndStats(t *testing.T) {
	mgr, err := page.NewManager(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	cache := buffer.New(buffer.Config{MaxPages: 16})
	f, err := Create(mgr, cache, "reopen.tbl", testSchema(), page.DefaultPageSize)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.AddTuple([]any{int64(1), "alice"}); err != nil {
		t.Fatal(err)
	}
	if err := f.Analyze(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(mgr, cache, "reopen.tbl")
	if err != nil {
		t.Fatal(err)
	}
	if reopened.Schema().NumColumns() != 2 {
		t.Fatalf("expected 2 columns after reopen, got %d", reopened.Schema().NumColumns())
	}
	if reopened.Stats().TupleCount != 1 {
		t.Fatalf("expected persisted tuple count 1, got %d", reopened.Stats().TupleCount)
	}
}
