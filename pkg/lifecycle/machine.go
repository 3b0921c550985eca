// Package lifecycle implements the run state machine: a static adjacency
// table over the two-tier state values plus one structural rule, the
// pre-execution gate.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gardenfork/espalier/internal/logging"
	"github.com/gardenfork/espalier/pkg/domain"
	"github.com/gardenfork/espalier/pkg/ports"
)

// transitions is the static adjacency table, keyed by exact state value.
// Parent tokens are query patterns, never table keys.
var transitions = map[domain.State][]domain.State{
	domain.StateProposed: {domain.StateActiveExecuting},
	domain.StateApproved: {domain.StateActiveExecuting},
	domain.StateReady:    {domain.StateActiveExecuting},

	domain.StateActiveExecuting: {
		domain.StateActivePaused,
		domain.StateActiveCheckpoint,
		domain.StateVerifyingTesting,
		domain.StateAbandoned,
	},
	domain.StateActivePaused: {
		domain.StateActiveExecuting,
		domain.StateAbandoned,
	},
	domain.StateActiveCheckpoint: {
		domain.StateActiveExecuting,
		domain.StateVerifyingTesting,
		domain.StateAbandoned,
	},

	domain.StateVerifyingTesting: {
		domain.StateVerifyingPassed,
		domain.StateVerifyingFailed,
	},
	domain.StateVerifyingPassed: {domain.StateComplete},
	domain.StateVerifyingFailed: {
		domain.StateActiveExecuting,
		domain.StateAbandoned,
	},

	domain.StateComplete:  {},
	domain.StateAbandoned: {},
}

// CanTransition consults the adjacency table and the pre-execution gate:
// from proposed, approved, or ready a run may only enter active/executing.
// Execution always begins in the executing substate, so the gate holds even
// if the table were naively widened.
func CanTransition(from, to domain.State) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from.PreExecution() && to != domain.StateActiveExecuting {
		return false
	}
	for _, target := range transitions[from] {
		if target == to {
			return true
		}
	}
	return false
}

// ValidTargets returns the states reachable from the given state, after the
// pre-execution gate is applied.
func ValidTargets(from domain.State) []domain.State {
	var targets []domain.State
	for _, to := range transitions[from] {
		if CanTransition(from, to) {
			targets = append(targets, to)
		}
	}
	return targets
}

// Machine validates and applies lifecycle transitions against a run store.
type Machine struct {
	store  ports.RunStore
	logger *slog.Logger
}

// Option configures the Machine.
type Option func(*Machine)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) {
		m.logger = logger
	}
}

// NewMachine creates a state machine bound to a run store.
func NewMachine(store ports.RunStore, opts ...Option) *Machine {
	m := &Machine{
		store:  store,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Apply validates the transition, appends a transition record, updates the
// run state, and persists. An invalid transition is reported with the valid
// target list; it is never retried or coerced.
func (m *Machine) Apply(ctx context.Context, run *domain.Run, to domain.State, actor, reason string) error {
	if !CanTransition(run.State, to) {
		return &domain.InvalidTransitionError{
			From:  run.State,
			To:    to,
			Valid: ValidTargets(run.State),
		}
	}
	return m.record(ctx, run, to, actor, reason, false)
}

// Force applies the transition without validation. Forced transitions are
// the escalation path for operators; the record is marked so audits can
// tell it from normal transitions.
func (m *Machine) Force(ctx context.Context, run *domain.Run, to domain.State, actor, reason string) error {
	if !to.Valid() {
		return fmt.Errorf("cannot force transition to unknown state %q", to)
	}
	m.logger.Warn("forced transition", "run", run.ID, "from", run.State, "to", to, "by", actor)
	return m.record(ctx, run, to, actor, reason, true)
}

func (m *Machine) record(ctx context.Context, run *domain.Run, to domain.State, actor, reason string, forced bool) error {
	now := time.Now().UTC()
	run.Transitions = append(run.Transitions, domain.TransitionRecord{
		From:   run.State,
		To:     to,
		At:     now,
		By:     actor,
		Reason: reason,
		Forced: forced,
	})
	run.State = to
	run.Updated = now

	// Runs loaded through the versioned path keep their optimistic-lock
	// discipline; plain loads accept last-writer-wins.
	var err error
	if run.Version.IsZero() {
		err = m.store.Save(ctx, run)
	} else {
		err = m.store.SaveVersioned(ctx, run)
	}
	if err != nil {
		return err
	}

	m.logger.Info("run transitioned", "run", run.ID, "from", run.Transitions[len(run.Transitions)-1].From, "to", to, "by", actor)
	return nil
}
