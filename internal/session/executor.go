package session

import (
	"github.com/nanodb-project/nanodb/internal/expr"
	"github.com/nanodb-project/nanodb/internal/heap"
	"github.com/nanodb-project/nanodb/internal/nerr"
	"github.com/nanodb-project/nanodb/internal/plan"
	"github.com/nanodb-project/nanodb/internal/planner"
	"github.com/nanodb-project/nanodb/internal/schema"
)

// Assignment is one `column = expr` pair from an UPDATE statement's SET
// clause.
type Assignment struct {
	Column string
	Expr   expr.Node
}

// ExecuteSelect drives stmt's plan to completion, per spec §4.8:
// prepare/initialize, pull every tuple (checking the session's cancellation
// flag at each boundary), then clean up on every exit path.
func (s *Session) ExecuteSelect(p *planner.Planner, stmt *planner.SelectStmt) *Result {
	s.schemaLock.RLock()
	defer s.schemaLock.RUnlock()

	node, err := p.MakePlan(stmt)
	if err != nil {
		return fail(err)
	}
	if stmt.Explain {
		return &Result{Success: true, Explain: node.Describe(0)}
	}
	return s.drain(node)
}

// drain pulls node to completion, collecting every tuple into the result.
// node.CleanUp runs on every exit path — including a cancellation or a
// mid-scan error — so any page pins a plan node is holding at the moment
// of failure are still released (spec §5's scoped-acquisition rule, and
// testable property 3: pin count returns to 0 at command end).
func (s *Session) drain(node plan.Node) *Result {
	if err := node.Initialize(); err != nil {
		node.CleanUp()
		return fail(err)
	}
	defer node.CleanUp()

	var tuples []schema.Tuple
	for {
		if s.checkCancelled() {
			return fail(nerr.ErrCancelled())
		}
		t, err := node.GetNextTuple()
		if err != nil {
			return fail(err)
		}
		if t == nil {
			break
		}
		tuples = append(tuples, t)
	}
	return &Result{Success: true, Tuples: tuples, RowsAffected: len(tuples)}
}

// ExecuteInsert appends each of rows to table, per spec §4.8's
// values-producing-leaf description of INSERT: there is no source plan to
// scan, so each row is simply handed straight to the heap file.
func (s *Session) ExecuteInsert(table string, rows [][]any) *Result {
	s.schemaLock.RLock()
	defer s.schemaLock.RUnlock()

	file, err := s.catalog.Lookup(table)
	if err != nil {
		return fail(err)
	}
	n := 0
	for _, row := range rows {
		if s.checkCancelled() {
			return fail(nerr.ErrCancelled())
		}
		if _, err := file.AddTuple(row); err != nil {
			return fail(err)
		}
		n++
	}
	return okRows("inserted", n)
}

// ExecuteDelete scans table (pushing pred into the scan, same as a base
// leaf's pushdown in internal/planner), deleting every matching tuple by
// its page/slot reference.
func (s *Session) ExecuteDelete(table string, pred expr.Node) *Result {
	s.schemaLock.RLock()
	defer s.schemaLock.RUnlock()

	file, err := s.catalog.Lookup(table)
	if err != nil {
		return fail(err)
	}
	scan := plan.NewFileScan(file, table, pred)
	if err := scan.Prepare(); err != nil {
		return fail(err)
	}
	if err := scan.Initialize(); err != nil {
		scan.CleanUp()
		return fail(err)
	}
	defer scan.CleanUp()

	n := 0
	for {
		if s.checkCancelled() {
			return fail(nerr.ErrCancelled())
		}
		t, err := scan.GetNextTuple()
		if err != nil {
			return fail(err)
		}
		if t == nil {
			break
		}
		pt, ok := t.(*heap.PageTuple)
		if !ok {
			return fail(nerr.ErrUnsupportedConstruct("DELETE over a non-heap tuple source"))
		}
		if err := file.DeleteTuple(pt.Ref()); err != nil {
			return fail(err)
		}
		n++
	}
	return okRows("deleted", n)
}

// ExecuteUpdate scans table for rows matching pred, evaluating each
// assignment's expression against that row's environment, and replaces the
// row with the resulting values via heap.File.UpdateTuple.
func (s *Session) ExecuteUpdate(table string, pred expr.Node, assignments []Assignment) *Result {
	s.schemaLock.RLock()
	defer s.schemaLock.RUnlock()

	file, err := s.catalog.Lookup(table)
	if err != nil {
		return fail(err)
	}
	sch := file.Schema().Rename(table)

	scan := plan.NewFileScan(file, table, pred)
	if err := scan.Prepare(); err != nil {
		return fail(err)
	}
	if err := scan.Initialize(); err != nil {
		scan.CleanUp()
		return fail(err)
	}
	defer scan.CleanUp()

	n := 0
	for {
		if s.checkCancelled() {
			return fail(nerr.ErrCancelled())
		}
		t, err := scan.GetNextTuple()
		if err != nil {
			return fail(err)
		}
		if t == nil {
			break
		}
		pt, ok := t.(*heap.PageTuple)
		if !ok {
			return fail(nerr.ErrUnsupportedConstruct("UPDATE over a non-heap tuple source"))
		}
		newValues, err := applyAssignments(sch, pt, assignments)
		if err != nil {
			return fail(err)
		}
		if _, err := file.UpdateTuple(pt.Ref(), newValues); err != nil {
			return fail(err)
		}
		n++
	}
	return okRows("updated", n)
}

func applyAssignments(sch *schema.Schema, t schema.Tuple, assignments []Assignment) ([]any, error) {
	values := make([]any, sch.NumColumns())
	for i := range values {
		values[i] = t.ColumnValue(i)
	}
	env := expr.New(nil)
	env.AddScope(sch, t)
	for _, a := range assignments {
		idx, err := sch.Resolve("", a.Column)
		if err != nil {
			return nil, err
		}
		v, err := a.Expr.Evaluate(env)
		if err != nil {
			return nil, err
		}
		values[idx] = v
	}
	return values, nil
}
