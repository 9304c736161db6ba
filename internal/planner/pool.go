package planner

import "github.com/nanodb-project/nanodb/internal/expr"

// conjunctPool tracks a set of available predicate conjuncts as they're
// consumed by base-table pushdown and DP join-predicate selection, per
// spec §4.7 steps 3-5. expr.Node values are comparable (they wrap pointer
// types), so a plain map keyed by the conjunct itself tracks consumption
// without needing to stringify expressions.
type conjunctPool struct {
	all  []expr.Node
	used map[expr.Node]bool
}

func newConjunctPool(conjuncts []expr.Node) *conjunctPool {
	return &conjunctPool{all: conjuncts, used: make(map[expr.Node]bool)}
}

// takeWhollyLocal removes and returns every not-yet-used conjunct that
// references exactly one table, qualifier, from the pool.
func (p *conjunctPool) takeWhollyLocal(qualifier string) []expr.Node {
	var out []expr.Node
	for _, c := range p.all {
		if p.used[c] {
			continue
		}
		refs := expr.ReferencedTables(c)
		if len(refs) == 1 && refs[qualifier] {
			p.used[c] = true
			out = append(out, c)
		}
	}
	return out
}

// available returns every conjunct not yet consumed by takeWhollyLocal —
// i.e. everything left for the DP join step to consider (spec §4.7 step 4).
func (p *conjunctPool) available() []expr.Node {
	out := make([]expr.Node, 0, len(p.all))
	for _, c := range p.all {
		if !p.used[c] {
			out = append(out, c)
		}
	}
	return out
}
