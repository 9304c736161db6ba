// Package nerr defines NanoDB's error-kind taxonomy.
//
// Every failure the core pipeline raises is a *nerr.Error carrying one of a
// fixed set of Kinds (see spec §7: Parse, Bind, Plan, Storage, Runtime,
// Transaction). Callers that need to branch on failure category use
// errors.As to recover a *nerr.Error and inspect its Kind; callers that just
// want to propagate use the ordinary error interface.
package nerr

import (
	"errors"
	"fmt"
)

// Kind categorizes a NanoDB error.
type Kind int

const (
	// Parse covers SQL syntax failures from the (out-of-scope) front end.
	Parse Kind = iota
	// Bind covers unknown/ambiguous columns and type mismatches.
	Bind
	// Plan covers planner-level failures (bad aggregate placement, etc).
	Plan
	// Storage covers file/page/tuple I/O failures.
	Storage
	// Runtime covers failures raised while pulling tuples.
	Runtime
	// Transaction covers transaction-state failures.
	Transaction
)

func (k Kind) String() string {
	switch k {
	case Parse:
		return "Parse"
	case Bind:
		return "Bind"
	case Plan:
		return "Plan"
	case Storage:
		return "Storage"
	case Runtime:
		return "Runtime"
	case Transaction:
		return "Transaction"
	default:
		return "Unknown"
	}
}

// Error is a NanoDB-specific, kind-tagged error.
type Error struct {
	Kind Kind
	Msg  string
	Err  error // optional wrapped cause
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error of the given kind.
func New(k Kind, format string, a ...any) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, a...)}
}

// Wrap builds an *Error of the given kind wrapping cause.
func Wrap(k Kind, cause error, format string, a ...any) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, a...), Err: cause}
}

// Is reports whether err is a NanoDB error of the given kind.
func Is(err error, k Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}

// Named, specific sentinel-style constructors used throughout the pipeline.
// These wrap New/Wrap so call sites read like spec.md's failure-mode names.

func ErrUnknownColumn(name string) error {
	return New(Bind, "unknown column %q", name)
}

func ErrAmbiguousColumn(name string) error {
	return New(Bind, "ambiguous column %q", name)
}

func ErrTypeMismatch(format string, a ...any) error {
	return New(Bind, format, a...)
}

func ErrNestedAggregate() error {
	return New(Plan, "aggregate function calls may not be nested")
}

func ErrAggregateInWrongPlace(clause string) error {
	return New(Plan, "aggregate function not allowed in %s", clause)
}

func ErrMultipleRowsFromScalar() error {
	return New(Runtime, "scalar subquery produced more than one row")
}

func ErrUnsupportedConstruct(what string) error {
	return New(Plan, "unsupported construct: %s", what)
}

func ErrTupleTooLarge(need, max int) error {
	return New(Storage, "tuple of %d bytes exceeds page capacity of %d bytes", need, max)
}

func ErrInvalidTuple(page uint32, slot int) error {
	return New(Storage, "invalid tuple reference (page %d, slot %d)", page, slot)
}

func ErrFileNotFound(name string) error {
	return New(Storage, "file not found: %s", name)
}

func ErrFileExists(name string) error {
	return New(Storage, "file already exists: %s", name)
}

func ErrBadPageSize(size int) error {
	return New(Storage, "invalid page size %d", size)
}

func ErrCancelled() error {
	return New(Runtime, "execution cancelled")
}

func ErrDivideByZero() error {
	return New(Runtime, "division by zero")
}

func ErrNotNullViolation(col string) error {
	return New(Runtime, "NULL not allowed in column %q", col)
}

func ErrNoActiveTransaction() error {
	return New(Transaction, "no active transaction")
}

func ErrAlreadyInTransaction() error {
	return New(Transaction, "a transaction is already active")
}
