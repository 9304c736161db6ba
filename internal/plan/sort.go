package plan

import (
	"math"
	"sort"

	"github.com/nanodb-project/nanodb/internal/expr"
	"github.com/nanodb-project/nanodb/internal/schema"
)

// SortKey is one ORDER BY term.
type SortKey struct {
	Expr expr.Node
	Desc bool
}

// Sort buffers all of its child's tuples then emits them in
// stable-sorted order, per spec §4.6.
type Sort struct {
	base
	Child Node
	Keys  []SortKey

	buf []schema.Tuple
	pos int
}

func NewSort(child Node, keys []SortKey) *Sort {
	return &Sort{Child: child, Keys: keys}
}

func (s *Sort) Prepare() error {
	if err := s.Child.Prepare(); err != nil {
		return err
	}
	s.sch = s.Child.Schema()
	s.stats = s.Child.Stats()
	cc := s.Child.Cost()
	n := cc.Tuples
	logN := 0.0
	if n > 1 {
		logN = math.Log2(n)
	}
	s.cost = Cost{
		Tuples:        cc.Tuples,
		AvgTupleBytes: cc.AvgTupleBytes,
		CPUCost:       cc.CPUCost + n*logN,
		BlockIOs:      cc.BlockIOs,
		LargeSeeks:    cc.LargeSeeks,
	}
	return nil
}

func (s *Sort) SetParentEnv(parent *expr.Environment) {
	s.parentEnv = parent
	s.Child.SetParentEnv(parent)
}

func (s *Sort) Initialize() error {
	if err := s.Child.Initialize(); err != nil {
		return err
	}
	s.buf = s.buf[:0]
	for {
		t, err := s.Child.GetNextTuple()
		if err != nil {
			return err
		}
		if t == nil {
			break
		}
		s.buf = append(s.buf, t)
	}

	sort.SliceStable(s.buf, func(i, j int) bool {
		for _, k := range s.Keys {
			vi := evalSortKey(s.sch, s.buf[i], k.Expr, s.parentEnv)
			vj := evalSortKey(s.sch, s.buf[j], k.Expr, s.parentEnv)
			c := compareSortValues(vi, vj)
			if c == 0 {
				continue
			}
			if k.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	s.pos = 0
	return nil
}

func evalSortKey(sch *schema.Schema, t schema.Tuple, e expr.Node, parent *expr.Environment) any {
	env := expr.New(parent)
	env.AddScope(sch, t)
	v, err := e.Evaluate(env)
	if err != nil {
		return nil
	}
	return v
}

// compareSortValues orders NULLs first, then delegates to
// expr.CompareRuntime's numeric/string/bool rules for non-NULL values.
func compareSortValues(a, b any) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	if c, ok := expr.CompareRuntime(a, b); ok {
		return c
	}
	return 0
}

func (s *Sort) GetNextTuple() (schema.Tuple, error) {
	if s.pos >= len(s.buf) {
		return nil, nil
	}
	t := s.buf[s.pos]
	s.pos++
	return t, nil
}

func (s *Sort) CleanUp() error {
	s.buf = nil
	return s.Child.CleanUp()
}

func (s *Sort) ResultsOrderedBy() []OrderKey {
	out := make([]OrderKey, 0, len(s.Keys))
	for _, k := range s.Keys {
		if v, ok := k.Expr.(*expr.VarRef); ok {
			if idx, err := s.sch.Resolve(v.TableName, v.ColName); err == nil {
				out = append(out, OrderKey{ColIndex: idx, Desc: k.Desc})
			}
		}
	}
	return out
}

func (s *Sort) Describe(depth int) string {
	return indent(depth) + "Sort\n" + s.Child.Describe(depth+1)
}
