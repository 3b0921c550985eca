package espalier

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gardenfork/espalier/pkg/adapters/memory"
	"github.com/gardenfork/espalier/pkg/domain"
)

type staticPlans struct {
	checks []domain.Check
}

func (p *staticPlans) DeclaredChecks(ctx context.Context, planPath string) ([]domain.Check, error) {
	return p.checks, nil
}

// Walks one run through its whole life: created, claimed, executed,
// verified, completed.
func TestCoordinatorFullLifecycle(t *testing.T) {
	ctx := context.Background()
	plans := &staticPlans{checks: []domain.Check{
		{Name: "unit", Kind: domain.CheckKindCommand, Command: "make test"},
		{Name: "review", Kind: domain.CheckKindManual},
	}}
	coord := New(memory.NewStore(), WithPlanSource(plans))

	run, err := coord.CreateRun(ctx, "plans/001-rollout.md", domain.StateReady)
	require.NoError(t, err)

	_, err = coord.Claim(ctx, run.ID, "agent-a", time.Hour)
	require.NoError(t, err)

	_, err = coord.Transition(ctx, run.ID, domain.StateActiveExecuting, "agent-a", "")
	require.NoError(t, err)
	_, err = coord.Transition(ctx, run.ID, domain.StateVerifyingTesting, "agent-a", "")
	require.NoError(t, err)

	_, err = coord.RecordEvent(ctx, run.ID, domain.VerificationEvent{
		Type: domain.EventRunStarted, By: "agent-a",
	})
	require.NoError(t, err)
	exit := 0
	_, err = coord.RecordEvent(ctx, run.ID, domain.VerificationEvent{
		Type: domain.EventCheckExecuted, By: "agent-a", Check: "unit",
		Status: domain.CheckPass, ExitCode: &exit,
	})
	require.NoError(t, err)

	snap, aggregate, manualPending, err := coord.VerificationStatus(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, snap.Checks, 2)
	assert.Equal(t, domain.CheckPending, aggregate)
	assert.True(t, manualPending, "manual review still awaits sign-off")

	_, err = coord.RecordEvent(ctx, run.ID, domain.VerificationEvent{
		Type: domain.EventManualRecorded, By: "reviewer", Check: "review",
		Status: domain.CheckPass,
	})
	require.NoError(t, err)

	_, aggregate, manualPending, err = coord.VerificationStatus(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CheckPass, aggregate)
	assert.False(t, manualPending)

	_, err = coord.Transition(ctx, run.ID, domain.StateVerifyingPassed, "agent-a", "")
	require.NoError(t, err)
	final, err := coord.Transition(ctx, run.ID, domain.StateComplete, "agent-a", "")
	require.NoError(t, err)
	assert.Equal(t, domain.StateComplete, final.State)
	assert.Len(t, final.Transitions, 4)

	require.NoError(t, coord.Release(ctx, run.ID))
}

func TestCoordinatorRejectsInvalidTransition(t *testing.T) {
	ctx := context.Background()
	coord := New(memory.NewStore())

	run, err := coord.CreateRun(ctx, "plans/x.md", domain.StateProposed)
	require.NoError(t, err)

	_, err = coord.Transition(ctx, run.ID, domain.StateComplete, "agent-a", "")
	require.Error(t, err)

	var invalid *domain.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, []domain.State{domain.StateActiveExecuting}, invalid.Valid)
}

func TestCoordinatorForceTransition(t *testing.T) {
	ctx := context.Background()
	coord := New(memory.NewStore())

	run, err := coord.CreateRun(ctx, "plans/x.md", domain.StateProposed)
	require.NoError(t, err)

	forced, err := coord.ForceTransition(ctx, run.ID, domain.StateAbandoned, "operator", "dead plan")
	require.NoError(t, err)
	assert.Equal(t, domain.StateAbandoned, forced.State)
	require.Len(t, forced.Transitions, 1)
	assert.True(t, forced.Transitions[0].Forced)
}

func TestCoordinatorStatusWithoutPlanSource(t *testing.T) {
	ctx := context.Background()
	coord := New(memory.NewStore())

	run, err := coord.CreateRun(ctx, "plans/x.md", domain.StateReady)
	require.NoError(t, err)

	snap, aggregate, manualPending, err := coord.VerificationStatus(ctx, run.ID)
	require.NoError(t, err)
	assert.Empty(t, snap.Checks)
	assert.Equal(t, domain.CheckPass, aggregate, "no declared checks aggregates to pass")
	assert.False(t, manualPending)
}

func TestCoordinatorSweep(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	coord := New(store)

	run, err := coord.CreateRun(ctx, "plans/x.md", domain.StateReady)
	require.NoError(t, err)

	// An already-expired lease, as left behind by a crashed agent.
	at := time.Now().Add(-2 * time.Hour)
	expires := time.Now().Add(-time.Hour)
	stale, err := store.LoadVersioned(ctx, run.ID)
	require.NoError(t, err)
	stale.ClaimedBy = "crashed-agent"
	stale.ClaimedAt = &at
	stale.ClaimExpires = &expires
	require.NoError(t, store.SaveVersioned(ctx, stale))

	reclaimed, err := coord.SweepClaims(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{run.ID}, reclaimed)
}
