package plan

import "github.com/nanodb-project/nanodb/internal/stats"

// statsFromColumns adapts a plan node's per-column stats pointers (Stats,
// which may have nil entries for columns with no estimate) into a
// stats.TableStats the selectivity helpers can operate on.
func statsFromColumns(cols []*stats.ColumnStats, tupleCount int64) *stats.TableStats {
	out := &stats.TableStats{TupleCount: tupleCount, Columns: make([]stats.ColumnStats, len(cols))}
	for i, c := range cols {
		if c != nil {
			out.Columns[i] = *c
		}
	}
	return out
}

// ptrColumns converts a stats.TableStats column slice into the
// pointer-per-column shape Stats carries.
func ptrColumns(cols []stats.ColumnStats) []*stats.ColumnStats {
	out := make([]*stats.ColumnStats, len(cols))
	for i := range cols {
		c := cols[i]
		out[i] = &c
	}
	return out
}
