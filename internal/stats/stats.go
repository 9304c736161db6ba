// Package stats implements NanoDB's table/column statistics and predicate
// selectivity estimation (spec §4.5).
//
// No teacher file computes selectivity or carries table/column statistics
// (tinySQL plans by executing everything directly), so this package is
// grounded on the GoDB/SimpleDB-teaching-database lineage retrieved under
// other_examples/, which shares NanoDB's own ancestry, and implemented
// directly against the selectivity formulas spec.md §4.5 gives.
package stats

import (
	"fmt"

	"github.com/nanodb-project/nanodb/internal/schema"
)

// neutralSelectivity is used for conjuncts that reference two columns or no
// column at all — no usable per-column statistic applies.
const neutralSelectivity = 0.1

// distinctSetCap bounds the per-column set used to track running distinct
// values during analyze(); beyond this the count falls back to an
// approximation rather than growing the set without bound.
const distinctSetCap = 1000

// ColumnStats holds per-column statistics: V(c) distinct non-null values,
// N(c) null count, and (for ordered types) MIN/MAX.
type ColumnStats struct {
	Distinct   float64
	Nulls      int64
	HasMinMax  bool
	Min, Max   any
	approx     bool
}

// TableStats holds table-level and per-column statistics: T(R) tuple count,
// A(R) average tuple size in bytes, B(R) data page count.
type TableStats struct {
	TupleCount    int64
	AvgTupleBytes float64
	NumDataPages  int64
	Columns       []ColumnStats
}

// Explain renders a human-readable summary for test assertions and
// diagnostics (spec.md's "cost/selectivity introspection for tests").
func (t *TableStats) Explain() string {
	s := fmt.Sprintf("T=%d A=%.1f B=%d", t.TupleCount, t.AvgTupleBytes, t.NumDataPages)
	for i, c := range t.Columns {
		s += fmt.Sprintf(" | col%d: V=%.1f N=%d", i, c.Distinct, c.Nulls)
		if c.HasMinMax {
			s += fmt.Sprintf(" MIN=%v MAX=%v", c.Min, c.Max)
		}
	}
	return s
}

// Clone returns a deep-enough copy of t so callers can tighten statistics
// without mutating the base (spec.md: "operators propagate updated versions
// without mutating the base").
func (t *TableStats) Clone() *TableStats {
	cols := make([]ColumnStats, len(t.Columns))
	copy(cols, t.Columns)
	return &TableStats{
		TupleCount:    t.TupleCount,
		AvgTupleBytes: t.AvgTupleBytes,
		NumDataPages:  t.NumDataPages,
		Columns:       cols,
	}
}

// distinctTracker accumulates V(c) during analyze(): an exact bounded set,
// falling back to an incrementing approximation once the set overflows
// distinctSetCap.
type distinctTracker struct {
	seen   map[any]struct{}
	approx int64
}

func newDistinctTracker() *distinctTracker {
	return &distinctTracker{seen: make(map[any]struct{})}
}

func (d *distinctTracker) observe(v any) {
	if d.seen == nil {
		d.approx++
		return
	}
	if _, ok := d.seen[v]; ok {
		return
	}
	if len(d.seen) >= distinctSetCap {
		// Overflow: stop tracking exactly and approximate by counting every
		// further observation as a new distinct value. This over-counts,
		// which is the conservative direction for a cardinality estimate.
		d.approx = int64(len(d.seen))
		d.seen = nil
		d.approx++
		return
	}
	d.seen[v] = struct{}{}
}

func (d *distinctTracker) count() float64 {
	if d.seen != nil {
		return float64(len(d.seen))
	}
	return float64(d.approx)
}

// Analyze recomputes TableStats from a full scan of rows, given the table's
// schema. rows yields one slice of column values per live tuple; the caller
// (internal/heap) drives the scan and reports each tuple's encoded byte
// length via tupleBytes.
func Analyze(sch *schema.Schema, rows func(yield func(values []any, tupleBytes int) bool), numDataPages int64) *TableStats {
	n := sch.NumColumns()
	trackers := make([]*distinctTracker, n)
	for i := range trackers {
		trackers[i] = newDistinctTracker()
	}
	cols := make([]ColumnStats, n)
	for i, c := range sch.Columns {
		cols[i].HasMinMax = c.Type.IsOrdered()
	}

	var tupleCount int64
	var totalBytes int64

	rows(func(values []any, tupleBytes int) bool {
		tupleCount++
		totalBytes += int64(tupleBytes)
		for i, v := range values {
			if v == nil {
				cols[i].Nulls++
				continue
			}
			trackers[i].observe(v)
			if cols[i].HasMinMax {
				if !cols[i].hasValue() {
					cols[i].Min, cols[i].Max = v, v
				} else {
					if schema.Compare(v, cols[i].Min, sch.Columns[i].Type) < 0 {
						cols[i].Min = v
					}
					if schema.Compare(v, cols[i].Max, sch.Columns[i].Type) > 0 {
						cols[i].Max = v
					}
				}
			}
		}
		return true
	})

	for i := range cols {
		cols[i].Distinct = trackers[i].count()
	}

	avg := 0.0
	if tupleCount > 0 {
		avg = float64(totalBytes) / float64(tupleCount)
	}
	return &TableStats{
		TupleCount:    tupleCount,
		AvgTupleBytes: avg,
		NumDataPages:  numDataPages,
		Columns:       cols,
	}
}

func (c *ColumnStats) hasValue() bool { return c.Min != nil }
