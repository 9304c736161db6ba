package plan

import (
	"github.com/nanodb-project/nanodb/internal/expr"
	"github.com/nanodb-project/nanodb/internal/schema"
)

// SimpleFilter applies a predicate to its child's output, per spec §4.6.
type SimpleFilter struct {
	base
	Child Node
	Pred  expr.Node
}

func NewSimpleFilter(child Node, pred expr.Node) *SimpleFilter {
	return &SimpleFilter{Child: child, Pred: pred}
}

func (f *SimpleFilter) Prepare() error {
	if err := f.Child.Prepare(); err != nil {
		return err
	}
	f.sch = f.Child.Schema()
	childStats := f.Child.Stats()
	childCost := f.Child.Cost()

	tbl := statsFromColumns(childStats.Columns, int64(childCost.Tuples))
	sel := selectivityOf(f.Pred, f.sch, tbl)
	updated := updateStatsAfterPredicate(f.Pred, f.sch, tbl)
	f.stats = Stats{Columns: ptrColumns(updated.Columns)}
	f.cost = Cost{
		Tuples:        childCost.Tuples * sel,
		AvgTupleBytes: childCost.AvgTupleBytes,
		CPUCost:       childCost.CPUCost + childCost.Tuples,
		BlockIOs:      childCost.BlockIOs,
		LargeSeeks:    childCost.LargeSeeks,
	}
	return nil
}

func (f *SimpleFilter) SetParentEnv(parent *expr.Environment) {
	f.parentEnv = parent
	f.Child.SetParentEnv(parent)
}

func (f *SimpleFilter) Initialize() error { return f.Child.Initialize() }

func (f *SimpleFilter) GetNextTuple() (schema.Tuple, error) {
	for {
		t, err := f.Child.GetNextTuple()
		if err != nil || t == nil {
			return t, err
		}
		env := expr.New(f.parentEnv)
		env.AddScope(f.sch, t)
		v, err := f.Pred.Evaluate(env)
		if err != nil {
			return nil, err
		}
		if b, ok := v.(bool); ok && b {
			return t, nil
		}
	}
}

func (f *SimpleFilter) CleanUp() error { return f.Child.CleanUp() }

func (f *SimpleFilter) Describe(depth int) string {
	return indent(depth) + "SimpleFilter(" + f.Pred.ColumnName() + ")\n" + f.Child.Describe(depth+1)
}
