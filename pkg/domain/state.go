package domain

import "strings"

// State is a run lifecycle state. States are either flat ("proposed") or
// hierarchical with a single parent/child separator ("active/executing").
// A bare parent token ("active") is a query pattern, never a valid state.
type State string

const (
	StateProposed  State = "proposed"
	StateApproved  State = "approved"
	StateReady     State = "ready"
	StateComplete  State = "complete"
	StateAbandoned State = "abandoned"

	StateActiveExecuting  State = "active/executing"
	StateActivePaused     State = "active/paused"
	StateActiveCheckpoint State = "active/checkpoint"

	StateVerifyingTesting State = "verifying/testing"
	StateVerifyingPassed  State = "verifying/passed"
	StateVerifyingFailed  State = "verifying/failed"
)

// StateSeparator splits a hierarchical state into parent and child.
const StateSeparator = "/"

// AllStates lists every valid state value, in lifecycle order.
var AllStates = []State{
	StateProposed,
	StateApproved,
	StateReady,
	StateActiveExecuting,
	StateActivePaused,
	StateActiveCheckpoint,
	StateVerifyingTesting,
	StateVerifyingPassed,
	StateVerifyingFailed,
	StateComplete,
	StateAbandoned,
}

// Valid reports whether s is one of the declared state values.
// Parent tokens like "active" are not valid states.
func (s State) Valid() bool {
	for _, known := range AllStates {
		if s == known {
			return true
		}
	}
	return false
}

// Parent returns the parent token of a hierarchical state, or the state
// itself when flat.
func (s State) Parent() string {
	if i := strings.Index(string(s), StateSeparator); i >= 0 {
		return string(s)[:i]
	}
	return string(s)
}

// Matches reports whether s matches the given pattern. A pattern equal to a
// full state matches exactly; a bare parent token matches any child of that
// parent ("active" matches "active/executing").
func (s State) Matches(pattern string) bool {
	if string(s) == pattern {
		return true
	}
	return strings.Contains(string(s), StateSeparator) && s.Parent() == pattern
}

// PreExecution reports whether s is a state a run can hold before any
// execution has begun.
func (s State) PreExecution() bool {
	return s == StateProposed || s == StateApproved || s == StateReady
}

// Terminal reports whether s ends the lifecycle.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateAbandoned
}
