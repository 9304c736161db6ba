package plan

import (
	"fmt"
	"strings"

	"github.com/nanodb-project/nanodb/internal/expr"
	"github.com/nanodb-project/nanodb/internal/nerr"
	"github.com/nanodb-project/nanodb/internal/schema"
)

// aggregator accumulates one aggregate function's running state over a
// group's rows through add/getResult; newAggregator supplies its initial
// state.
type aggregator interface {
	add(v any)
	getResult() any
}

func newAggregator(call *expr.FuncCall) (aggregator, error) {
	name := strings.ToUpper(call.Name)
	switch name {
	case "COUNT":
		if call.Star {
			return &countAgg{countStar: true}, nil
		}
		return &countAgg{distinct: call.Distinct, seen: newDistinctSetIf(call.Distinct)}, nil
	case "SUM":
		return &sumAgg{distinct: call.Distinct, seen: newDistinctSetIf(call.Distinct)}, nil
	case "AVG":
		return &avgAgg{distinct: call.Distinct, seen: newDistinctSetIf(call.Distinct)}, nil
	case "MIN":
		return &minMaxAgg{isMin: true}, nil
	case "MAX":
		return &minMaxAgg{isMin: false}, nil
	default:
		return nil, nerr.ErrUnsupportedConstruct("aggregate function " + call.Name)
	}
}

func newDistinctSetIf(distinct bool) map[any]bool {
	if !distinct {
		return nil
	}
	return make(map[any]bool)
}

// countAgg implements COUNT(*)/COUNT(x)/COUNT(DISTINCT x). COUNT(*) counts
// every row; COUNT(x) counts non-NULL values of x.
type countAgg struct {
	countStar bool
	distinct  bool
	seen      map[any]bool
	n         int64
}

func (a *countAgg) add(v any) {
	if a.countStar {
		a.n++
		return
	}
	if v == nil {
		return
	}
	if a.distinct {
		if a.seen[v] {
			return
		}
		a.seen[v] = true
	}
	a.n++
}
func (a *countAgg) getResult() any { return a.n }

// sumAgg implements SUM(x)/SUM(DISTINCT x), ignoring NULLs.
type sumAgg struct {
	distinct bool
	seen     map[any]bool
	sum      float64
	anyInt   bool
	sawAny   bool
}

func (a *sumAgg) add(v any) {
	if v == nil {
		return
	}
	if a.distinct {
		if a.seen[v] {
			return
		}
		a.seen[v] = true
	}
	f, ok := asNumberLocal(v)
	if !ok {
		return
	}
	if !a.sawAny {
		a.anyInt = isIntLikeLocal(v)
	} else if !isIntLikeLocal(v) {
		a.anyInt = false
	}
	a.sawAny = true
	a.sum += f
}
func (a *sumAgg) getResult() any {
	if !a.sawAny {
		return nil
	}
	if a.anyInt {
		return int64(a.sum)
	}
	return a.sum
}

// avgAgg implements AVG(x)/AVG(DISTINCT x), ignoring NULLs.
type avgAgg struct {
	distinct bool
	seen     map[any]bool
	sum      float64
	n        int64
}

func (a *avgAgg) add(v any) {
	if v == nil {
		return
	}
	if a.distinct {
		if a.seen[v] {
			return
		}
		a.seen[v] = true
	}
	f, ok := asNumberLocal(v)
	if !ok {
		return
	}
	a.sum += f
	a.n++
}
func (a *avgAgg) getResult() any {
	if a.n == 0 {
		return nil
	}
	return a.sum / float64(a.n)
}

// minMaxAgg implements MIN(x)/MAX(x), ignoring NULLs.
type minMaxAgg struct {
	isMin bool
	cur   any
	set   bool
}

func (a *minMaxAgg) add(v any) {
	if v == nil {
		return
	}
	if !a.set {
		a.cur, a.set = v, true
		return
	}
	c, ok := expr.CompareRuntime(v, a.cur)
	if !ok {
		return
	}
	if (a.isMin && c < 0) || (!a.isMin && c > 0) {
		a.cur = v
	}
}
func (a *minMaxAgg) getResult() any {
	if !a.set {
		return nil
	}
	return a.cur
}

func asNumberLocal(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case float64:
		return x, true
	case float32:
		return float64(x), true
	default:
		return 0, false
	}
}

func isIntLikeLocal(v any) bool {
	switch v.(type) {
	case int64, int:
		return true
	default:
		return false
	}
}

// groupKey is a comparable representation of a tuple's group-by values,
// used as the map key for per-group aggregator state.
type groupKey string

func makeGroupKey(values []any) groupKey {
	var sb strings.Builder
	for i, v := range values {
		if i > 0 {
			sb.WriteByte('\x1f')
		}
		fmt.Fprintf(&sb, "%v\x1e%T", v, v)
	}
	return groupKey(sb.String())
}

// HashedGroupAggregate consumes all of its child's tuples, keyed by a set of
// group-by expressions, accumulating the aggregate calls recorded in
// Aggregates (as rewritten by expr.AggregateRewriter) per group. On
// end-of-input it emits one tuple per group: the group-by columns followed
// by the aggregate columns in Order, per spec §4.6.
type HashedGroupAggregate struct {
	base
	Child      Node
	GroupBy    []expr.Node
	Aggregates map[string]*expr.FuncCall
	Order      []string

	groups     map[groupKey][]any       // groupKey -> group-by values
	aggStates  map[groupKey][]aggregator // groupKey -> one aggregator per Order entry
	groupOrder []groupKey
	emitIdx    int
}

func NewHashedGroupAggregate(child Node, groupBy []expr.Node, aggregates map[string]*expr.FuncCall, order []string) *HashedGroupAggregate {
	return &HashedGroupAggregate{Child: child, GroupBy: groupBy, Aggregates: aggregates, Order: order}
}

func (g *HashedGroupAggregate) Prepare() error {
	if err := g.Child.Prepare(); err != nil {
		return err
	}
	childSch := g.Child.Schema()
	cols := make([]schema.ColumnInfo, 0, len(g.GroupBy)+len(g.Order))
	for _, e := range g.GroupBy {
		cols = append(cols, schema.ColumnInfo{Name: e.ColumnName(), Type: inferType(e, childSch)})
	}
	for _, name := range g.Order {
		cols = append(cols, schema.ColumnInfo{Name: name, Type: schema.ColumnType{Kind: schema.TDouble}})
	}
	g.sch = schema.New(cols)

	cc := g.Child.Cost()
	distinctGroups := cc.Tuples
	if distinctGroups > 1 {
		distinctGroups = distinctGroups / 2 // heuristic: group-by halves cardinality absent column stats
	}
	g.cost = Cost{
		Tuples:        distinctGroups,
		AvgTupleBytes: cc.AvgTupleBytes,
		CPUCost:       cc.CPUCost + cc.Tuples,
		BlockIOs:      cc.BlockIOs,
		LargeSeeks:    cc.LargeSeeks,
	}
	g.stats = Stats{}
	return nil
}

func (g *HashedGroupAggregate) SetParentEnv(parent *expr.Environment) {
	g.parentEnv = parent
	g.Child.SetParentEnv(parent)
}

func (g *HashedGroupAggregate) Initialize() error {
	if err := g.Child.Initialize(); err != nil {
		return err
	}
	g.groups = make(map[groupKey][]any)
	g.aggStates = make(map[groupKey][]aggregator)
	g.groupOrder = nil
	g.emitIdx = 0

	childSch := g.Child.Schema()
	for {
		t, err := g.Child.GetNextTuple()
		if err != nil {
			return err
		}
		if t == nil {
			break
		}
		env := expr.New(g.parentEnv)
		env.AddScope(childSch, t)

		groupVals := make([]any, len(g.GroupBy))
		for i, e := range g.GroupBy {
			v, err := e.Evaluate(env)
			if err != nil {
				return err
			}
			groupVals[i] = v
		}
		key := makeGroupKey(groupVals)
		states, ok := g.aggStates[key]
		if !ok {
			states = make([]aggregator, len(g.Order))
			for i, name := range g.Order {
				a, err := newAggregator(g.Aggregates[name])
				if err != nil {
					return err
				}
				states[i] = a
			}
			g.aggStates[key] = states
			g.groups[key] = groupVals
			g.groupOrder = append(g.groupOrder, key)
		}
		for i, name := range g.Order {
			call := g.Aggregates[name]
			var v any
			if !call.Star {
				argEnv := expr.New(g.parentEnv)
				argEnv.AddScope(childSch, t)
				if len(call.Args) > 0 {
					av, err := call.Args[0].Evaluate(argEnv)
					if err != nil {
						return err
					}
					v = av
				}
			}
			states[i].add(v)
		}
	}
	if len(g.groupOrder) == 0 && len(g.GroupBy) == 0 {
		// A bare aggregate with no GROUP BY always produces exactly one row,
		// even over zero input rows (e.g. COUNT(*) = 0).
		states := make([]aggregator, len(g.Order))
		for i, name := range g.Order {
			a, err := newAggregator(g.Aggregates[name])
			if err != nil {
				return err
			}
			states[i] = a
		}
		key := groupKey("")
		g.aggStates[key] = states
		g.groups[key] = nil
		g.groupOrder = append(g.groupOrder, key)
	}
	return nil
}

func (g *HashedGroupAggregate) GetNextTuple() (schema.Tuple, error) {
	if g.emitIdx >= len(g.groupOrder) {
		return nil, nil
	}
	key := g.groupOrder[g.emitIdx]
	g.emitIdx++

	groupVals := g.groups[key]
	states := g.aggStates[key]
	values := make([]any, 0, len(groupVals)+len(states))
	values = append(values, groupVals...)
	for _, a := range states {
		values = append(values, a.getResult())
	}
	return schema.NewTupleLiteral(g.sch, values), nil
}

func (g *HashedGroupAggregate) CleanUp() error {
	g.groups = nil
	g.aggStates = nil
	g.groupOrder = nil
	return g.Child.CleanUp()
}

func (g *HashedGroupAggregate) Describe(depth int) string {
	return indent(depth) + "HashedGroupAggregate\n" + g.Child.Describe(depth+1)
}
