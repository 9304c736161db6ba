package planner

import (
	"math/bits"

	"github.com/nanodb-project/nanodb/internal/expr"
	"github.com/nanodb-project/nanodb/internal/plan"
)

// bitEntry is the best plan found so far for a bitmask of leaves, per
// spec §4.7 step 4. used records exactly the conjuncts baked into node's
// own subtree along the winning path to this mask — NOT every conjunct
// that crossed some split considered and discarded, since a losing
// candidate's choices never actually apply to the final tree.
type bitEntry struct {
	node    plan.Node
	tables  map[string]bool
	cpuCost float64
	tuples  float64
	used    map[expr.Node]bool
}

// dpJoin enumerates join orders over leaves by dynamic programming, keyed by
// a bitmask of which leaves are covered, per spec §4.7 step 4: maintain the
// single lowest-cpuCost plan per bitmask, built by combining two disjoint
// already-solved sub-bitmasks whose conjuncts (drawn from conjuncts) cross
// the split. conjuncts is tried fresh at every split — a conjunct already
// baked into one side's subtree can never also cross that same split (its
// referenced tables lie wholly within that side), so no global consumption
// bookkeeping is needed; the returned used set names exactly what the
// winning mask's own tree ended up applying, for the caller's step-5
// remaining-conjuncts wrap.
func dpJoin(leaves []leafEntry, conjuncts []expr.Node) (plan.Node, map[string]bool, map[expr.Node]bool, error) {
	n := len(leaves)
	if n == 0 {
		return nil, map[string]bool{}, map[expr.Node]bool{}, nil
	}
	if n == 1 {
		if err := leaves[0].node.Prepare(); err != nil {
			return nil, nil, nil, err
		}
		return leaves[0].node, leaves[0].tables, map[expr.Node]bool{}, nil
	}

	best := make(map[int]*bitEntry, (1<<uint(n))-1)
	for i, l := range leaves {
		if err := l.node.Prepare(); err != nil {
			return nil, nil, nil, err
		}
		c := l.node.Cost()
		best[1<<uint(i)] = &bitEntry{node: l.node, tables: l.tables, cpuCost: c.CPUCost, tuples: c.Tuples, used: map[expr.Node]bool{}}
	}

	full := (1 << uint(n)) - 1
	for size := 2; size <= n; size++ {
		for mask := 1; mask <= full; mask++ {
			if bits.OnesCount(uint(mask)) != size {
				continue
			}
			entry, err := bestSplitFor(mask, best, conjuncts)
			if err != nil {
				return nil, nil, nil, err
			}
			if entry == nil {
				continue // no valid split found yet (shouldn't happen for a connected graph)
			}
			best[mask] = entry
		}
	}

	result, ok := best[full]
	if !ok {
		return nil, nil, nil, errDisconnectedJoinGraph
	}
	return result.node, result.tables, result.used, nil
}

// bestSplitFor tries every way to split mask into two non-empty, already-
// solved sub-bitmasks and returns the cheapest resulting join, per spec
// §4.7 step 4's tie-break: lowest CPUCost, then lowest tuples, then
// first-seen in this (deterministic, bitmask-order) iteration — a later
// candidate only replaces the current choice on a strict improvement.
func bestSplitFor(mask int, best map[int]*bitEntry, conjuncts []expr.Node) (*bitEntry, error) {
	var chosen *bitEntry
	for sub := (mask - 1) & mask; sub > 0; sub = (sub - 1) & mask {
		a, b := sub, mask^sub
		if a > b {
			continue // dedupe: each unordered {a,b} split considered once
		}
		ea, okA := best[a]
		eb, okB := best[b]
		if !okA || !okB {
			continue
		}
		usable := pickUsableConjuncts(conjuncts, ea.tables, eb.tables)
		cand := plan.NewNestedLoopJoin(ea.node, eb.node, plan.JoinInner, expr.MakePredicate(usable))
		if err := cand.Prepare(); err != nil {
			return nil, err
		}
		cc := cand.Cost()
		if chosen == nil || isStrictlyBetter(cc.CPUCost, cc.Tuples, chosen.cpuCost, chosen.tuples) {
			tables := make(map[string]bool, len(ea.tables)+len(eb.tables))
			for t := range ea.tables {
				tables[t] = true
			}
			for t := range eb.tables {
				tables[t] = true
			}
			used := make(map[expr.Node]bool, len(ea.used)+len(eb.used)+len(usable))
			for c := range ea.used {
				used[c] = true
			}
			for c := range eb.used {
				used[c] = true
			}
			for _, c := range usable {
				used[c] = true
			}
			chosen = &bitEntry{node: cand, tables: tables, cpuCost: cc.CPUCost, tuples: cc.Tuples, used: used}
		}
	}
	return chosen, nil
}

func isStrictlyBetter(cpuA, tuplesA, cpuB, tuplesB float64) bool {
	if cpuA != cpuB {
		return cpuA < cpuB
	}
	return tuplesA < tuplesB
}

// pickUsableConjuncts returns every conjunct whose referenced tables are
// covered by tablesA ∪ tablesB but not by tablesA alone nor tablesB alone —
// i.e. it crosses the split, per spec §4.7 step 4. A conjunct already baked
// into one side's own subtree necessarily has all its referenced tables on
// that one side, so it can never also cross a split involving that side;
// no explicit exclusion of already-used conjuncts is needed.
func pickUsableConjuncts(conjuncts []expr.Node, tablesA, tablesB map[string]bool) []expr.Node {
	var out []expr.Node
	for _, c := range conjuncts {
		refs := expr.ReferencedTables(c)
		if crossesSplit(refs, tablesA, tablesB) {
			out = append(out, c)
		}
	}
	return out
}

func crossesSplit(referenced, tablesA, tablesB map[string]bool) bool {
	touchesA, touchesB := false, false
	for t := range referenced {
		switch {
		case tablesA[t]:
			touchesA = true
		case tablesB[t]:
			touchesB = true
		default:
			return false // references a table outside this split entirely
		}
	}
	return touchesA && touchesB
}
