package plan

import (
	"github.com/nanodb-project/nanodb/internal/expr"
	"github.com/nanodb-project/nanodb/internal/schema"
	"github.com/nanodb-project/nanodb/internal/stats"
)

// JoinType names a NestedLoopJoin's matching/unmatched-row behavior, per
// spec §4.6.
type JoinType int

const (
	JoinInner JoinType = iota
	JoinLeftOuter
	JoinRightOuter
	JoinFullOuter
	JoinSemi
	JoinAnti
	JoinCross
)

// NestedLoopJoin loops the outer (left) child once, re-initializing the
// inner (right) child for every outer tuple, emitting tuples that satisfy
// Pred. Matched/unmatched bookkeeping and NULL-padding for outer joins are
// generalized from the teacher's bulk processNestedLoopJoin/
// addNullsForUnmatchedJoin helpers to a single-tuple-at-a-time pull.
//
// RightOuter is implemented by swapping sides at construction time and
// running the same left-outer algorithm (see DESIGN.md's Open Question
// decision); NewNestedLoopJoin performs that swap, so a constructed node's
// Type is never JoinRightOuter once built.
type NestedLoopJoin struct {
	base
	Left, Right Node
	Type        JoinType
	Pred        expr.Node

	leftTuple   schema.Tuple
	leftMatched bool

	// Full-outer tracking: unlike every other join type, a full outer join
	// must know which *right* rows were never matched across the *entire*
	// left scan, not just against the current left tuple. That requires
	// the right child's output to stay addressable by a stable index
	// across every left tuple's probe, so for JoinFullOuter the right
	// child is materialized once up front (rightRows) instead of being
	// re-initialized per left tuple, and rightMatched tracks which of
	// those rows have matched so far. leftDone/rightUnmatchedIdx drive the
	// final drain of right-unmatched rows once the left scan is exhausted.
	rightRows         []schema.Tuple
	rightMatched      []bool
	rightIdx          int
	leftDone          bool
	rightUnmatchedIdx int
}

// NewNestedLoopJoin builds a join of left and right. A JoinRightOuter type
// is rewritten to JoinLeftOuter with left and right swapped.
func NewNestedLoopJoin(left, right Node, typ JoinType, pred expr.Node) *NestedLoopJoin {
	if typ == JoinRightOuter {
		return &NestedLoopJoin{Left: right, Right: left, Type: JoinLeftOuter, Pred: pred}
	}
	return &NestedLoopJoin{Left: left, Right: right, Type: typ, Pred: pred}
}

func (j *NestedLoopJoin) Prepare() error {
	if err := j.Left.Prepare(); err != nil {
		return err
	}
	if err := j.Right.Prepare(); err != nil {
		return err
	}
	leftSch, rightSch := j.Left.Schema(), j.Right.Schema()
	switch j.Type {
	case JoinSemi, JoinAnti:
		j.sch = leftSch
	default:
		j.sch = schema.ConcatSchemas(leftSch, rightSch)
	}

	lc, rc := j.Left.Cost(), j.Right.Cost()
	lt, rt := lc.Tuples, rc.Tuples
	sel := 1.0
	if j.Pred != nil && j.Type != JoinCross {
		sel = selectivityOf(j.Pred, j.sch, joinedTableStats(j))
	}
	tuples := lt * rt * sel
	switch j.Type {
	case JoinLeftOuter:
		tuples += lt * (1 - sel) // conservative: every unmatched left row emitted once
	case JoinFullOuter:
		// both sides' unmatched rows are emitted once each.
		tuples += lt*(1-sel) + rt*(1-sel)
	}
	j.cost = Cost{
		Tuples:        tuples,
		AvgTupleBytes: lc.AvgTupleBytes + rc.AvgTupleBytes,
		CPUCost:       lc.CPUCost + rc.CPUCost*lt + lt*rt,
		BlockIOs:      lc.BlockIOs + rc.BlockIOs,
		LargeSeeks:    lc.LargeSeeks + rc.LargeSeeks,
	}
	j.stats = Stats{Columns: concatColumns(j.Left.Stats(), j.Right.Stats(), j.Type)}
	return nil
}

func joinedTableStats(j *NestedLoopJoin) *stats.TableStats {
	ls, rs := j.Left.Stats(), j.Right.Stats()
	cols := concatColumns(ls, rs, JoinInner)
	return statsFromColumns(cols, int64(j.Left.Cost().Tuples*j.Right.Cost().Tuples))
}

func concatColumns(l, r Stats, typ JoinType) []*stats.ColumnStats {
	if typ == JoinSemi || typ == JoinAnti {
		return l.Columns
	}
	out := make([]*stats.ColumnStats, 0, len(l.Columns)+len(r.Columns))
	out = append(out, l.Columns...)
	out = append(out, r.Columns...)
	return out
}

func (j *NestedLoopJoin) SetParentEnv(parent *expr.Environment) {
	j.parentEnv = parent
	j.Left.SetParentEnv(parent)
	j.Right.SetParentEnv(parent)
}

func (j *NestedLoopJoin) Initialize() error {
	if err := j.Left.Initialize(); err != nil {
		return err
	}
	t, err := j.Left.GetNextTuple()
	if err != nil {
		return err
	}
	j.leftTuple = t
	j.leftMatched = false

	if j.Type == JoinFullOuter {
		if err := j.materializeRight(); err != nil {
			return err
		}
		j.rightIdx = 0
		j.rightUnmatchedIdx = 0
		j.leftDone = j.leftTuple == nil
		return nil
	}

	if j.leftTuple == nil {
		return nil
	}
	return j.Right.Initialize()
}

// materializeRight drains the right child once into rightRows, so its
// output can be re-probed by index (and tracked as matched/unmatched)
// across every left tuple instead of being re-scanned from Initialize.
func (j *NestedLoopJoin) materializeRight() error {
	if err := j.Right.Initialize(); err != nil {
		return err
	}
	defer j.Right.CleanUp()
	j.rightRows = nil
	for {
		rt, err := j.Right.GetNextTuple()
		if err != nil {
			return err
		}
		if rt == nil {
			break
		}
		j.rightRows = append(j.rightRows, rt)
	}
	j.rightMatched = make([]bool, len(j.rightRows))
	return nil
}

func (j *NestedLoopJoin) GetNextTuple() (schema.Tuple, error) {
	if j.Type == JoinFullOuter {
		return j.getNextFullOuter()
	}
	for j.leftTuple != nil {
		rt, err := j.Right.GetNextTuple()
		if err != nil {
			return nil, err
		}
		if rt == nil {
			out, err := j.advanceLeft()
			if err != nil {
				return nil, err
			}
			if out != nil {
				return out, nil
			}
			continue
		}

		matched, err := j.matches(j.leftTuple, rt)
		if err != nil {
			return nil, err
		}
		if !matched {
			continue
		}
		j.leftMatched = true
		switch j.Type {
		case JoinSemi:
			emitted := j.leftTuple
			if _, err := j.advanceLeft(); err != nil {
				return nil, err
			}
			return emitted, nil
		case JoinAnti:
			continue // a match disqualifies this left tuple; keep scanning right to exhaust it
		default:
			return schema.Concat(j.leftTuple, rt), nil
		}
	}
	return nil, nil
}

// advanceLeft emits an unmatched-row tuple if the join type calls for one,
// then moves to the next left tuple (re-initializing the right child).
// JoinFullOuter never reaches here — it uses getNextFullOuter/
// advanceLeftFullOuter instead, since it needs to track right-side matches
// too.
func (j *NestedLoopJoin) advanceLeft() (schema.Tuple, error) {
	var unmatchedOut schema.Tuple
	if !j.leftMatched {
		switch j.Type {
		case JoinLeftOuter:
			unmatchedOut = schema.Concat(j.leftTuple, schema.NullPadded(j.Right.Schema()))
		case JoinAnti:
			unmatchedOut = j.leftTuple
		}
	}

	next, err := j.Left.GetNextTuple()
	if err != nil {
		return nil, err
	}
	j.leftTuple = next
	j.leftMatched = false
	if j.leftTuple != nil {
		if err := j.Right.Initialize(); err != nil {
			return nil, err
		}
	}
	return unmatchedOut, nil
}

// getNextFullOuter probes the materialized rightRows for each left tuple in
// turn, recording every match into rightMatched, then — once the left scan
// is exhausted — drains the right rows that were never matched, NULL-padded
// on the left, per spec §4.6's "both sides' unmatched tuples."
func (j *NestedLoopJoin) getNextFullOuter() (schema.Tuple, error) {
	for !j.leftDone {
		if j.rightIdx >= len(j.rightRows) {
			out, err := j.advanceLeftFullOuter()
			if err != nil {
				return nil, err
			}
			if out != nil {
				return out, nil
			}
			continue
		}

		idx := j.rightIdx
		j.rightIdx++
		matched, err := j.matches(j.leftTuple, j.rightRows[idx])
		if err != nil {
			return nil, err
		}
		if !matched {
			continue
		}
		j.leftMatched = true
		j.rightMatched[idx] = true
		return schema.Concat(j.leftTuple, j.rightRows[idx]), nil
	}

	for j.rightUnmatchedIdx < len(j.rightRows) {
		idx := j.rightUnmatchedIdx
		j.rightUnmatchedIdx++
		if j.rightMatched[idx] {
			continue
		}
		return schema.Concat(schema.NullPadded(j.Left.Schema()), j.rightRows[idx]), nil
	}
	return nil, nil
}

// advanceLeftFullOuter emits an unmatched-left-row tuple if the current
// left tuple never matched anything, then moves to the next left tuple,
// resetting the right-side probe index to re-scan rightRows from the top.
func (j *NestedLoopJoin) advanceLeftFullOuter() (schema.Tuple, error) {
	var unmatchedOut schema.Tuple
	if !j.leftMatched {
		unmatchedOut = schema.Concat(j.leftTuple, schema.NullPadded(j.Right.Schema()))
	}

	next, err := j.Left.GetNextTuple()
	if err != nil {
		return nil, err
	}
	j.leftTuple = next
	j.leftMatched = false
	j.rightIdx = 0
	if j.leftTuple == nil {
		j.leftDone = true
	}
	return unmatchedOut, nil
}

func (j *NestedLoopJoin) matches(l, r schema.Tuple) (bool, error) {
	if j.Pred == nil {
		return true, nil
	}
	env := expr.New(j.parentEnv)
	env.AddScope(j.Left.Schema(), l)
	env.AddScope(j.Right.Schema(), r)
	v, err := j.Pred.Evaluate(env)
	if err != nil {
		return false, err
	}
	b, _ := v.(bool)
	return b, nil
}

func (j *NestedLoopJoin) CleanUp() error {
	if err := j.Left.CleanUp(); err != nil {
		return err
	}
	if j.Type == JoinFullOuter {
		// Right was already drained and cleaned up by materializeRight.
		return nil
	}
	return j.Right.CleanUp()
}

func (j *NestedLoopJoin) Describe(depth int) string {
	d := indent(depth)
	label := "NestedLoopJoin"
	return d + label + "\n" + j.Left.Describe(depth+1) + "\n" + j.Right.Describe(depth+1)
}
