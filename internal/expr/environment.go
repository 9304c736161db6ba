package expr

import (
	"strings"

	"github.com/nanodb-project/nanodb/internal/nerr"
	"github.com/nanodb-project/nanodb/internal/schema"
)

// scope binds one in-scope relation's schema to its current tuple.
type scope struct {
	sch   *schema.Schema
	tuple schema.Tuple
}

// Environment carries the ordered list of in-scope relations for expression
// evaluation, plus a pointer to an enclosing (parent) environment for
// correlated subquery evaluation, per spec §4.4.
type Environment struct {
	scopes []scope
	parent *Environment
}

// New returns an empty Environment, optionally chained to parent (pass nil
// for a top-level environment).
func New(parent *Environment) *Environment {
	return &Environment{parent: parent}
}

// AddScope binds sch to tuple for the remainder of this environment's
// lifetime (plan nodes call this once per child before evaluating).
func (e *Environment) AddScope(sch *schema.Schema, tuple schema.Tuple) {
	e.scopes = append(e.scopes, scope{sch: sch, tuple: tuple})
}

// Resolve looks up a (possibly qualified) column reference, searching this
// environment's own scopes first, then walking parent environments —
// enabling correlated references from a subquery back to its enclosing
// query.
func (e *Environment) Resolve(table, col string) (any, error) {
	if v, err, found := e.resolveLocal(table, col); found {
		return v, err
	}
	if e.parent != nil {
		return e.parent.Resolve(table, col)
	}
	return nil, nerr.ErrUnknownColumn(qualifiedName(table, col))
}

func (e *Environment) resolveLocal(table, col string) (value any, err error, found bool) {
	type hit struct {
		sc  scope
		idx int
	}
	var hits []hit
	for _, sc := range e.scopes {
		idx, rerr := sc.sch.Resolve(table, col)
		switch {
		case rerr == nil:
			hits = append(hits, hit{sc: sc, idx: idx})
		case isAmbiguous(rerr):
			return nil, rerr, true
		default:
			// unknown in this scope; keep searching other scopes.
		}
	}
	switch len(hits) {
	case 0:
		return nil, nil, false
	case 1:
		return hits[0].sc.tuple.ColumnValue(hits[0].idx), nil, true
	default:
		return nil, nerr.ErrAmbiguousColumn(qualifiedName(table, col)), true
	}
}

func isAmbiguous(err error) bool {
	return err != nil && strings.Contains(err.Error(), "ambiguous")
}

func qualifiedName(table, col string) string {
	if table == "" {
		return col
	}
	return table + "." + col
}
