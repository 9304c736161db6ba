package plan

import (
	"github.com/nanodb-project/nanodb/internal/expr"
	"github.com/nanodb-project/nanodb/internal/heap"
	"github.com/nanodb-project/nanodb/internal/schema"
	"github.com/nanodb-project/nanodb/internal/stats"
)

// FileScan is the leaf node that pulls tuples from a heap file's scan,
// optionally pushing a predicate down so non-matching tuples are skipped
// before they ever reach a parent node, per spec §4.6.
type FileScan struct {
	base
	File      *heap.File
	TableName string // schema qualifier to present this scan's rows under
	Pred      expr.Node

	cur *heap.PageTuple
}

// NewFileScan builds a scan of f, presenting its rows qualified by
// tableName, filtered by pred (nil for none).
func NewFileScan(f *heap.File, tableName string, pred expr.Node) *FileScan {
	return &FileScan{File: f, TableName: tableName, Pred: pred}
}

func (s *FileScan) Prepare() error {
	s.sch = s.File.Schema().Rename(s.TableName)
	tbl := s.File.Stats()
	col := make([]*stats.ColumnStats, len(tbl.Columns))
	sel := 1.0
	if s.Pred != nil {
		sel = selectivityOf(s.Pred, s.sch, tbl)
		tbl = updateStatsAfterPredicate(s.Pred, s.sch, tbl)
	}
	for i := range tbl.Columns {
		c := tbl.Columns[i]
		col[i] = &c
	}
	s.stats = Stats{Columns: col}
	tuples := float64(tbl.TupleCount) * sel
	s.cost = Cost{
		Tuples:        tuples,
		AvgTupleBytes: tbl.AvgTupleBytes,
		CPUCost:       float64(tbl.TupleCount),
		BlockIOs:      float64(tbl.NumDataPages),
		LargeSeeks:    1,
	}
	return nil
}

func (s *FileScan) Initialize() error {
	t, err := s.File.GetFirstTuple()
	if err != nil {
		return err
	}
	s.cur = t
	return nil
}

func (s *FileScan) GetNextTuple() (schema.Tuple, error) {
	for s.cur != nil {
		t := s.cur
		next, err := s.File.GetNextTuple(t)
		if err != nil {
			return nil, err
		}
		s.cur = next

		if s.Pred == nil {
			return t, nil
		}
		env := expr.New(s.parentEnv)
		env.AddScope(s.sch, t)
		v, err := s.Pred.Evaluate(env)
		if err != nil {
			return nil, err
		}
		if b, ok := v.(bool); ok && b {
			return t, nil
		}
	}
	return nil, nil
}

func (s *FileScan) CleanUp() error {
	s.cur = nil
	return nil
}

func (s *FileScan) Describe(depth int) string {
	d := indent(depth)
	if s.Pred != nil {
		return d + "FileScan(" + s.TableName + ", pred=" + s.Pred.ColumnName() + ")"
	}
	return d + "FileScan(" + s.TableName + ")"
}
