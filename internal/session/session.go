// Package session implements NanoDB's command executor and per-client
// Session, per spec §4.8 and §5's concurrency model.
//
// The core pipeline is single-threaded within one command: a Session pulls
// a prepared internal/plan tree to completion, checking a cooperative
// cancellation flag at each getNextTuple boundary (spec §5's "suspension
// points: none within the core pipeline" — the flag is the only thing a
// concurrently-running goroutine can use to interrupt a session). Multiple
// sessions share one schema-wide read/write lock: DDL would take the write
// side (serial), DML and SELECT take the read side (concurrent across
// sessions) — grounded on the general read/write-lock-over-shared-state
// idiom in the teacher's internal/storage/concurrency.go, though that
// file's worker-pool/fan-out architecture is not adopted here: spec §5 is
// explicit that there is no intra-query parallelism in the core pipeline,
// so Session stays a plain synchronous puller, not a pipeline of
// goroutines.
package session

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/nanodb-project/nanodb/internal/nanolog"
	"github.com/nanodb-project/nanodb/internal/planner"
)

// Session is one client's execution context.
type Session struct {
	// ID identifies this session for log correlation, grounded on the
	// teacher's internal/storage/uuid_helpers.go ParseUUID/UUIDToBytes
	// pattern of treating uuid.UUID as the identity type throughout.
	ID uuid.UUID

	catalog    planner.Catalog
	schemaLock *sync.RWMutex

	cancelled atomic.Bool

	log *nanolog.Logger
}

// New returns a Session bound to catalog. schemaLock is shared by every
// session created against the same server, per spec §5's single
// schema-wide read/write lock.
func New(catalog planner.Catalog, schemaLock *sync.RWMutex) *Session {
	id := uuid.New()
	return &Session{
		ID:         id,
		catalog:    catalog,
		schemaLock: schemaLock,
		log:        nanolog.New("session " + shortID(id)),
	}
}

// Cancel sets the cooperative cancellation flag. The command currently
// running (if any) observes it at its next getNextTuple boundary and
// aborts with nerr.ErrCancelled. The flag stays set — and every further
// command this session attempts fails immediately — until the driving
// loop calls Reset, the same way a client must acknowledge a cancelled
// statement before reusing the connection.
func (s *Session) Cancel() { s.cancelled.Store(true) }

// Reset clears a prior cancellation, readying the session for its next
// command. The command pull-loop calls this once per command, before
// dispatching it.
func (s *Session) Reset() { s.cancelled.Store(false) }

func (s *Session) checkCancelled() bool { return s.cancelled.Load() }

func shortID(u uuid.UUID) string { return u.String()[:8] }
