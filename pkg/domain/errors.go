package domain

import (
	"errors"
	"fmt"
	"time"
)

// Not-found errors: terminal, never retried.
var (
	// ErrRunNotFound is returned when a run ID has no record in the store.
	ErrRunNotFound = errors.New("run not found")

	// ErrWorkflowNotFound is returned when a workflow name has no definition.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrInstanceNotFound is returned when a workflow instance ID is unknown.
	ErrInstanceNotFound = errors.New("workflow instance not found")
)

// ConcurrencyError marks errors caused by interleaved writers. This is the
// only class where retrying the whole operation (fresh versioned read,
// re-validate, re-write) is a generally correct response.
type ConcurrencyError interface {
	error
	concurrencyError()
}

// IsConcurrency reports whether err belongs to the concurrency class.
func IsConcurrency(err error) bool {
	var ce ConcurrencyError
	return errors.As(err, &ce)
}

// StaleReadError reports a versioned read that observed different
// modification timestamps before and after reading: a concurrent writer
// interleaved and the parsed content cannot be trusted.
type StaleReadError struct {
	Path string
}

func (e *StaleReadError) Error() string {
	return fmt.Sprintf("stale read: %s changed while being read, retry the load", e.Path)
}

func (e *StaleReadError) concurrencyError() {}

// StaleWriteError reports a versioned write whose token no longer matches
// the store file: another writer won the race since the read.
type StaleWriteError struct {
	Path     string
	Expected time.Time
	Actual   time.Time
}

func (e *StaleWriteError) Error() string {
	return fmt.Sprintf(
		"stale write: %s was modified since read (token %s, now %s); note the token is only as precise as the filesystem's timestamp granularity",
		e.Path, e.Expected.Format(time.RFC3339Nano), e.Actual.Format(time.RFC3339Nano))
}

func (e *StaleWriteError) concurrencyError() {}

// AlreadyClaimedError reports a claim attempt on a run held by another
// agent whose lease has not expired.
type AlreadyClaimedError struct {
	RunID   string
	Holder  string
	Expires time.Time
}

func (e *AlreadyClaimedError) Error() string {
	return fmt.Sprintf("run %s already claimed by %s until %s", e.RunID, e.Holder, e.Expires.Format(time.RFC3339))
}

func (e *AlreadyClaimedError) concurrencyError() {}

// LostRaceError reports a claim that appeared to succeed but whose
// re-verification found a different recorded owner.
type LostRaceError struct {
	RunID  string
	Winner string
}

func (e *LostRaceError) Error() string {
	return fmt.Sprintf("lost claim race on run %s to %s", e.RunID, e.Winner)
}

func (e *LostRaceError) concurrencyError() {}

// InvalidTransitionError is a validation error: the requested lifecycle
// transition is not in the table. It always carries the valid alternatives
// so callers can report them instead of silently coercing.
type InvalidTransitionError struct {
	From  State
	To    State
	Valid []State
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition %s -> %s (valid targets: %v)", e.From, e.To, e.Valid)
}

// MissingVersionError reports a versioned write attempted with a run that
// was not loaded through the versioned read path.
type MissingVersionError struct {
	RunID string
}

func (e *MissingVersionError) Error() string {
	return fmt.Sprintf("run %s carries no version token; load it with LoadVersioned before a versioned save", e.RunID)
}
