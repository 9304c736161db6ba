package plan

import (
	"github.com/nanodb-project/nanodb/internal/expr"
	"github.com/nanodb-project/nanodb/internal/schema"
)

// LimitOffset skips Offset tuples then emits at most Limit tuples. Limit < 0
// means no LIMIT clause was present (unlimited); Limit == 0 is a literal
// LIMIT 0 and emits nothing, per S5.
type LimitOffset struct {
	base
	Child  Node
	Limit  int
	Offset int

	skipped int
	emitted int
}

func NewLimitOffset(child Node, limit, offset int) *LimitOffset {
	return &LimitOffset{Child: child, Limit: limit, Offset: offset}
}

func (l *LimitOffset) Prepare() error {
	if err := l.Child.Prepare(); err != nil {
		return err
	}
	l.sch = l.Child.Schema()
	l.stats = l.Child.Stats()
	cc := l.Child.Cost()
	tuples := cc.Tuples - float64(l.Offset)
	if tuples < 0 {
		tuples = 0
	}
	switch {
	case l.Limit == 0:
		tuples = 0
	case l.Limit > 0 && tuples > float64(l.Limit):
		tuples = float64(l.Limit)
	}
	l.cost = Cost{
		Tuples:        tuples,
		AvgTupleBytes: cc.AvgTupleBytes,
		CPUCost:       cc.CPUCost,
		BlockIOs:      cc.BlockIOs,
		LargeSeeks:    cc.LargeSeeks,
	}
	return nil
}

func (l *LimitOffset) SetParentEnv(parent *expr.Environment) {
	l.parentEnv = parent
	l.Child.SetParentEnv(parent)
}

func (l *LimitOffset) Initialize() error {
	l.skipped, l.emitted = 0, 0
	return l.Child.Initialize()
}

func (l *LimitOffset) GetNextTuple() (schema.Tuple, error) {
	if l.Limit == 0 {
		return nil, nil
	}
	if l.Limit > 0 && l.emitted >= l.Limit {
		return nil, nil
	}
	for l.skipped < l.Offset {
		t, err := l.Child.GetNextTuple()
		if err != nil {
			return nil, err
		}
		if t == nil {
			return nil, nil
		}
		l.skipped++
	}
	t, err := l.Child.GetNextTuple()
	if err != nil || t == nil {
		return nil, err
	}
	l.emitted++
	return t, nil
}

func (l *LimitOffset) CleanUp() error { return l.Child.CleanUp() }

func (l *LimitOffset) Describe(depth int) string {
	return indent(depth) + "LimitOffset\n" + l.Child.Describe(depth+1)
}
