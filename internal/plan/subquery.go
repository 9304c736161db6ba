package plan

import (
	"github.com/nanodb-project/nanodb/internal/expr"
	"github.com/nanodb-project/nanodb/internal/schema"
)

// SubqueryPlan adapts a prepared plan Node into the minimal expr.Subquery
// surface (Initialize/GetNextTuple/CleanUp) that ScalarSubquery/InSubquery/
// ExistsSubquery evaluate against, per spec §4.6's subquery operators.
//
// Correlated references resolve through Parent: Initialize calls
// s.Plan.SetParentEnv(parent) before s.Plan.Initialize(), so every
// predicate-evaluating node in the sub-plan builds its per-tuple
// environment with parent chained in (expr.New(parentEnv)); a VarRef
// inside the subquery that names an outer column walks up through
// Environment.Resolve to find it there. The whole sub-plan is
// re-Initialized per outer tuple (spec §4.6's "conservative default"),
// so a correlated predicate is re-evaluated fresh against each outer row.
type SubqueryPlan struct {
	Plan   Node
	Parent *expr.Environment
}

func NewSubqueryPlan(p Node) *SubqueryPlan {
	return &SubqueryPlan{Plan: p}
}

func (s *SubqueryPlan) Initialize(parent *expr.Environment) error {
	s.Parent = parent
	s.Plan.SetParentEnv(parent)
	return s.Plan.Initialize()
}

func (s *SubqueryPlan) GetNextTuple() (schema.Tuple, error) {
	return s.Plan.GetNextTuple()
}

func (s *SubqueryPlan) CleanUp() error {
	return s.Plan.CleanUp()
}
