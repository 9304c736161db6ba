package session

import "github.com/nanodb-project/nanodb/internal/schema"

// Result is the outcome of one command, per spec §4.8/§7: every command —
// successful or failed — yields exactly one of these for the client to
// render.
type Result struct {
	Success      bool
	Message      string
	RowsAffected int
	Tuples       []schema.Tuple

	// Explain holds the plan-tree dump for a command run with Explain: true;
	// empty for every other result.
	Explain string
}

func ok(msg string) *Result { return &Result{Success: true, Message: msg} }

func okRows(msg string, n int) *Result {
	return &Result{Success: true, Message: msg, RowsAffected: n}
}

func fail(err error) *Result { return &Result{Success: false, Message: err.Error()} }
