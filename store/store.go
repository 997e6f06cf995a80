// Package store persists the outcome of a program run so a paused or
// completed session survives process restart (spec.md §9's resumability
// requirement, at the granularity this build supports: the program
// definition plus its last known status/result, not a binary mid-
// instruction snapshot — see DESIGN.md's "session resume granularity"
// entry). Grounded on storage.Storage's SaveRun/GetRun shape, generalized
// from one flow run's fields to one vibe-core session's.
package store

import (
	"context"
	"time"
)

// Status mirrors vm.Status without importing package vm, so store stays
// usable from a CLI that only has a session id and a database handle.
type Status string

const (
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Session is one persisted run: enough to list session history and to
// re-launch the same program from its entry point.
type Session struct {
	ID          string
	ModulePath  string
	ProgramJSON []byte
	Status      Status
	Result      string
	Error       string
	StartedAt   time.Time
	EndedAt     *time.Time
}

// Store is the persistence contract a `vibe` CLI invocation uses to
// record and recall sessions.
type Store interface {
	SaveSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	ListSessions(ctx context.Context) ([]*Session, error)
	DeleteSession(ctx context.Context, id string) error
	Close() error
}
