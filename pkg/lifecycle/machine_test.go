package lifecycle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gardenfork/espalier/pkg/adapters/memory"
	"github.com/gardenfork/espalier/pkg/domain"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from domain.State
		to   domain.State
		want bool
	}{
		{"proposed to executing", domain.StateProposed, domain.StateActiveExecuting, true},
		{"approved to executing", domain.StateApproved, domain.StateActiveExecuting, true},
		{"ready to executing", domain.StateReady, domain.StateActiveExecuting, true},
		{"executing to paused", domain.StateActiveExecuting, domain.StateActivePaused, true},
		{"executing to checkpoint", domain.StateActiveExecuting, domain.StateActiveCheckpoint, true},
		{"executing to testing", domain.StateActiveExecuting, domain.StateVerifyingTesting, true},
		{"executing to abandoned", domain.StateActiveExecuting, domain.StateAbandoned, true},
		{"paused to executing", domain.StateActivePaused, domain.StateActiveExecuting, true},
		{"checkpoint to testing", domain.StateActiveCheckpoint, domain.StateVerifyingTesting, true},
		{"testing to passed", domain.StateVerifyingTesting, domain.StateVerifyingPassed, true},
		{"testing to failed", domain.StateVerifyingTesting, domain.StateVerifyingFailed, true},
		{"passed to complete", domain.StateVerifyingPassed, domain.StateComplete, true},
		{"failed back to executing", domain.StateVerifyingFailed, domain.StateActiveExecuting, true},
		{"failed to abandoned", domain.StateVerifyingFailed, domain.StateAbandoned, true},

		{"executing to complete skips verification", domain.StateActiveExecuting, domain.StateComplete, false},
		{"proposed to complete", domain.StateProposed, domain.StateComplete, false},
		{"testing to complete", domain.StateVerifyingTesting, domain.StateComplete, false},
		{"paused to testing", domain.StateActivePaused, domain.StateVerifyingTesting, false},
		{"complete is terminal", domain.StateComplete, domain.StateActiveExecuting, false},
		{"abandoned is terminal", domain.StateAbandoned, domain.StateProposed, false},
		{"self transition", domain.StateActiveExecuting, domain.StateActiveExecuting, false},
		{"unknown from", domain.State("limbo"), domain.StateActiveExecuting, false},
		{"unknown to", domain.StateProposed, domain.State("limbo"), false},
		{"parent token is not a state", domain.StateProposed, domain.State("active"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

// From any pre-execution state the only reachable state is active/executing,
// for every possible target.
func TestPreExecutionGate(t *testing.T) {
	preExec := []domain.State{domain.StateProposed, domain.StateApproved, domain.StateReady}

	for _, from := range preExec {
		for _, to := range domain.AllStates {
			ok := CanTransition(from, to)
			if to == domain.StateActiveExecuting {
				assert.True(t, ok, "%s -> %s must be allowed", from, to)
			} else {
				assert.False(t, ok, "%s -> %s must be rejected", from, to)
			}
		}
	}
}

func TestValidTargets(t *testing.T) {
	assert.Equal(t, []domain.State{domain.StateActiveExecuting}, ValidTargets(domain.StateProposed))
	assert.Equal(t, []domain.State{domain.StateComplete}, ValidTargets(domain.StateVerifyingPassed))
	assert.Empty(t, ValidTargets(domain.StateComplete))
	assert.Empty(t, ValidTargets(domain.State("limbo")))
}

func TestMachineApply(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	machine := NewMachine(store)

	run := domain.NewRun("plans/001-rollout.md", domain.StateReady)
	require.NoError(t, store.Save(ctx, run))

	require.NoError(t, machine.Apply(ctx, run, domain.StateActiveExecuting, "agent-a", "picking up"))
	assert.Equal(t, domain.StateActiveExecuting, run.State)

	stored, err := store.Load(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateActiveExecuting, stored.State)
	require.Len(t, stored.Transitions, 1)
	assert.Equal(t, domain.StateReady, stored.Transitions[0].From)
	assert.Equal(t, domain.StateActiveExecuting, stored.Transitions[0].To)
	assert.Equal(t, "agent-a", stored.Transitions[0].By)
	assert.False(t, stored.Transitions[0].Forced)
}

func TestMachineApplyInvalid(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	machine := NewMachine(store)

	run := domain.NewRun("plans/rollout.md", domain.StateProposed)
	require.NoError(t, store.Save(ctx, run))

	err := machine.Apply(ctx, run, domain.StateComplete, "agent-a", "")
	require.Error(t, err)

	var invalid *domain.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, domain.StateProposed, invalid.From)
	assert.Equal(t, domain.StateComplete, invalid.To)
	assert.Equal(t, []domain.State{domain.StateActiveExecuting}, invalid.Valid)

	// Rejected transitions leave the run untouched.
	assert.Equal(t, domain.StateProposed, run.State)
	assert.Empty(t, run.Transitions)
}

func TestMachineForce(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	machine := NewMachine(store)

	run := domain.NewRun("plans/rollout.md", domain.StateProposed)
	require.NoError(t, store.Save(ctx, run))

	require.NoError(t, machine.Force(ctx, run, domain.StateComplete, "operator", "manual override"))
	assert.Equal(t, domain.StateComplete, run.State)
	require.Len(t, run.Transitions, 1)
	assert.True(t, run.Transitions[0].Forced)
	assert.Equal(t, "manual override", run.Transitions[0].Reason)

	err := machine.Force(ctx, run, domain.State("limbo"), "operator", "")
	assert.Error(t, err)
}

func TestMachineApplyVersioned(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	machine := NewMachine(store)

	run := domain.NewRun("plans/rollout.md", domain.StateReady)
	require.NoError(t, store.Save(ctx, run))

	loaded, err := store.LoadVersioned(ctx, run.ID)
	require.NoError(t, err)

	// A concurrent writer invalidates the token; the versioned save must fail
	// rather than clobber.
	interloper, err := store.LoadVersioned(ctx, run.ID)
	require.NoError(t, err)
	require.NoError(t, store.SaveVersioned(ctx, interloper))

	err = machine.Apply(ctx, loaded, domain.StateActiveExecuting, "agent-a", "")
	require.Error(t, err)
	assert.True(t, domain.IsConcurrency(err))
}
