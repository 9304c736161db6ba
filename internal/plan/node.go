// Package plan implements NanoDB's demand-driven iterator plan-node
// framework (spec §4.6): file scan, filter, project, rename, nested-loop
// join, sort, hashed group/aggregate, limit/offset, and the subquery
// operator nodes referenced from internal/expr.
//
// The teacher's internal/engine/exec.go evaluates whole statements against
// in-memory row maps in bulk rather than pulling one tuple at a time; the
// pull-based getNextTuple/initialize/cleanUp protocol here instead follows
// the DbIterator lineage NanoDB itself descends from, while reusing the
// teacher's nested-loop join bookkeeping (matched-tracking, NULL-padding
// for unmatched outer rows) generalized to a single-tuple-at-a-time pull.
package plan

import (
	"github.com/nanodb-project/nanodb/internal/expr"
	"github.com/nanodb-project/nanodb/internal/schema"
	"github.com/nanodb-project/nanodb/internal/stats"
)

// Cost estimates a plan node's execution cost, per spec.md §3's Plan Cost.
type Cost struct {
	Tuples        float64
	AvgTupleBytes float64
	CPUCost       float64
	BlockIOs      float64
	LargeSeeks    float64
}

// OrderKey names one column a node's output is already sorted by.
type OrderKey struct {
	ColIndex int
	Desc     bool
}

// Stats carries the per-column statistics a node's output is estimated to
// have, aligned index-for-index with its Schema(). A nil entry means "no
// estimate available" for that column.
type Stats struct {
	Columns []*stats.ColumnStats
}

// Node is the capability set every plan node implements, per spec §4.6.
type Node interface {
	// Prepare computes and caches this node's schema, cost, and stats from
	// its children, preparing the children first (bottom-up). Must be
	// called before Initialize; calling it again recomputes the same
	// values from the children.
	Prepare() error
	// Initialize resets the node to the start of its output sequence.
	// Safe to call repeatedly (e.g. for a nested-loop join's inner child).
	Initialize() error
	// GetNextTuple returns the next output tuple, or (nil, nil) at end of
	// input.
	GetNextTuple() (schema.Tuple, error)
	// CleanUp releases resources held by this node and its children. Must
	// be safe to call after a failed Initialize/GetNextTuple.
	CleanUp() error

	Schema() *schema.Schema
	Cost() Cost
	Stats() Stats

	// ResultsOrderedBy reports the ordering of this node's output, if any.
	// Only Sort reports one; every other node returns nil.
	ResultsOrderedBy() []OrderKey

	// MarkSupported reports whether this node can remember and rewind to
	// a position via MarkCurrentPosition/ResetToLastMark. Only TupleBag
	// supports it; NestedLoopJoin does not use marks and re-Initializes
	// its inner child per outer tuple.
	MarkSupported() bool
	MarkCurrentPosition() error
	ResetToLastMark() error

	// Describe renders an indented EXPLAIN-style plan-tree fragment for
	// this node and its children, starting at the given indentation
	// depth.
	Describe(depth int) string

	// SetParentEnv chains this node's per-tuple evaluation environment to
	// parent and propagates it to children. A subquery operator
	// (ScalarSubquery/InSubquery/ExistsSubquery) calls this on its
	// sub-plan before Initialize, so a predicate anywhere in the sub-plan
	// that references an outer column resolves through parent, per
	// spec §4.4's correlated-subquery environment chain.
	SetParentEnv(parent *expr.Environment)
}

// base provides the shared bookkeeping (schema/cost/stats caching, the
// mark-not-supported default) that every concrete node embeds.
type base struct {
	sch       *schema.Schema
	cost      Cost
	stats     Stats
	parentEnv *expr.Environment
}

func (b *base) SetParentEnv(parent *expr.Environment) { b.parentEnv = parent }

func (b *base) Schema() *schema.Schema { return b.sch }
func (b *base) Cost() Cost             { return b.cost }
func (b *base) Stats() Stats           { return b.stats }

func (b *base) ResultsOrderedBy() []OrderKey { return nil }

func (b *base) MarkSupported() bool          { return false }
func (b *base) MarkCurrentPosition() error   { return errMarkUnsupported }
func (b *base) ResetToLastMark() error       { return errMarkUnsupported }

func indent(depth int) string {
	s := make([]byte, depth*2)
	for i := range s {
		s[i] = ' '
	}
	return string(s)
}
