package model

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session ID has no persisted log
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionHalted is returned when an iteration is requested on a
// session that has already reached a terminal state
var ErrSessionHalted = errors.New("session already halted")

// EmptyPlanError means the planner could not produce a single new query.
// The session stays active; the caller decides what to do next.
type EmptyPlanError struct {
	Reason string
}

func (e *EmptyPlanError) Error() string {
	return fmt.Sprintf("empty plan: %s", e.Reason)
}

// PersistenceError wraps a failed session-log append. Fatal to the
// current phase: state must not advance past an unacknowledged append.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// ProviderError wraps a search or fetch capability failure. Absorbed at
// the worker-pool boundary after the retry budget is spent.
type ProviderError struct {
	Op     string // "search" or "fetch"
	Target string // query text or URL
	Err    error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s %q: %v", e.Op, e.Target, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
