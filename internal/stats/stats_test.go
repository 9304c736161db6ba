package stats

import (
	"testing"

	"github.com/nanodb-project/nanodb/internal/schema"
)

func intCol() schema.ColumnInfo {
	return schema.ColumnInfo{TableName: "t", Name: "x", Type: schema.ColumnType{Kind: schema.TInt}}
}

func TestAnalyzeComputesBasicStats(t *testing.T) {
	sch := schema.New([]schema.ColumnInfo{intCol()})
	rows := [][]any{{int64(1)}, {int64(5)}, {nil}, {int64(5)}}

	ts := Analyze(sch, func(yield func([]any, int) bool) {
		for _, r := range rows {
			if !yield(r, 8) {
				return
			}
		}
	}, 1)

	if ts.TupleCount != 4 {
		t.Fatalf("expected 4 tuples, got %d", ts.TupleCount)
	}
	if ts.AvgTupleBytes != 8 {
		t.Fatalf("expected avg 8 bytes, got %f", ts.AvgTupleBytes)
	}
	col := ts.Columns[0]
	if col.Nulls != 1 {
		t.Errorf("expected 1 null, got %d", col.Nulls)
	}
	if col.Distinct != 2 {
		t.Errorf("expected 2 distinct values (1 and 5), got %f", col.Distinct)
	}
	if col.Min != int64(1) || col.Max != int64(5) {
		t.Errorf("expected MIN=1 MAX=5, got MIN=%v MAX=%v", col.Min, col.Max)
	}
}

func TestEqualitySelectivity(t *testing.T) {
	cs := ColumnStats{Distinct: 4}
	if got := EqualitySelectivity(cs); got != 0.25 {
		t.Errorf("expected 0.25, got %f", got)
	}
	if got := InequalitySelectivity(cs); got != 0.75 {
		t.Errorf("expected 0.75, got %f", got)
	}
}

func TestRangeSelectivityBounds(t *testing.T) {
	ct := schema.ColumnType{Kind: schema.TInt}
	cs := ColumnStats{HasMinMax: true, Min: int64(0), Max: int64(100)}

	if got := RangeSelectivity(Gt, int64(75), cs, ct); got != 0.25 {
		t.Errorf("expected 0.25, got %f", got)
	}
	if got := RangeSelectivity(Lt, int64(25), cs, ct); got != 0.25 {
		t.Errorf("expected 0.25, got %f", got)
	}
	for _, sel := range []float64{
		RangeSelectivity(Gt, int64(-50), cs, ct),
		RangeSelectivity(Gt, int64(150), cs, ct),
	} {
		if sel < 0 || sel > 1 {
			t.Errorf("selectivity %f out of [0,1]", sel)
		}
	}
}

func TestAndOrNotSelectivity(t *testing.T) {
	if got := AndSelectivity(0.5, 0.5); got != 0.25 {
		t.Errorf("expected 0.25, got %f", got)
	}
	if got := OrSelectivity(0.5, 0.5); got != 0.75 {
		t.Errorf("expected 0.75, got %f", got)
	}
	if got := NotSelectivity(0.3); got < 0.69999 || got > 0.70001 {
		t.Errorf("expected ~0.7, got %f", got)
	}
}

func TestUpdateAfterEqualityAndRange(t *testing.T) {
	ct := schema.ColumnType{Kind: schema.TInt}
	cs := ColumnStats{Distinct: 10, HasMinMax: true, Min: int64(0), Max: int64(100)}

	UpdateAfterEquality(&cs, int64(42))
	if cs.Distinct != 1 || cs.Min != int64(42) || cs.Max != int64(42) {
		t.Errorf("expected collapsed stats, got %+v", cs)
	}

	cs2 := ColumnStats{HasMinMax: true, Min: int64(0), Max: int64(100)}
	UpdateAfterRange(&cs2, Gt, int64(60), ct)
	if cs2.Min != int64(60) {
		t.Errorf("expected MIN shrunk to 60, got %v", cs2.Min)
	}
	if cs2.Max != int64(100) {
		t.Errorf("expected MAX unchanged at 100, got %v", cs2.Max)
	}
}

func TestDistinctTrackerApproximatesBeyondCap(t *testing.T) {
	d := newDistinctTracker()
	for i := 0; i < distinctSetCap+50; i++ {
		d.observe(i)
	}
	if d.count() < float64(distinctSetCap) {
		t.Errorf("expected approximate count at least %d, got %f", distinctSetCap, d.count())
	}
}
