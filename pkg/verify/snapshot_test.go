package verify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gardenfork/espalier/pkg/domain"
)

func intp(v int) *int { return &v }

var declaredChecks = []domain.Check{
	{Name: "unit", Kind: domain.CheckKindCommand, Command: "make test"},
	{Name: "lint", Kind: domain.CheckKindCommand, Command: "make lint"},
	{Name: "review", Kind: domain.CheckKindManual},
}

func TestDeriveSnapshotLatestWins(t *testing.T) {
	events := []domain.VerificationEvent{
		{Type: domain.EventRunStarted, By: "agent-a"},
		{Type: domain.EventCheckExecuted, Check: "unit", Status: domain.CheckFail, ExitCode: intp(1), OutputTail: "3 failed"},
		{Type: domain.EventCheckExecuted, Check: "lint", Status: domain.CheckPass, ExitCode: intp(0)},
		{Type: domain.EventRunStarted, By: "agent-a"},
		{Type: domain.EventCheckExecuted, Check: "unit", Status: domain.CheckPass, ExitCode: intp(0)},
	}

	snap := DeriveSnapshot(events, declaredChecks)
	require.Len(t, snap.Checks, 3)

	byName := map[string]domain.CheckResult{}
	for _, c := range snap.Checks {
		byName[c.Name] = c
	}

	assert.Equal(t, domain.CheckPass, byName["unit"].Status)
	assert.Equal(t, 0, *byName["unit"].ExitCode)
	assert.Empty(t, byName["unit"].OutputTail)

	assert.Equal(t, domain.CheckPass, byName["lint"].Status)
	assert.Equal(t, domain.CheckPending, byName["review"].Status)
}

func TestDeriveSnapshotPure(t *testing.T) {
	events := []domain.VerificationEvent{
		{Type: domain.EventCheckExecuted, Check: "unit", Status: domain.CheckPass, At: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)},
	}

	first := DeriveSnapshot(events, declaredChecks)
	second := DeriveSnapshot(events, declaredChecks)
	assert.Equal(t, first, second)
}

// Undeclaring a check removes it from the snapshot while its events stay in
// the log untouched.
func TestDeriveSnapshotFollowsDeclaredSet(t *testing.T) {
	events := []domain.VerificationEvent{
		{Type: domain.EventCheckExecuted, Check: "unit", Status: domain.CheckPass},
		{Type: domain.EventCheckExecuted, Check: "retired", Status: domain.CheckFail},
	}

	snap := DeriveSnapshot(events, []domain.Check{{Name: "unit", Kind: domain.CheckKindCommand}})
	require.Len(t, snap.Checks, 1)
	assert.Equal(t, "unit", snap.Checks[0].Name)
	assert.Len(t, events, 2)
}

func TestDeriveSnapshotIgnoresNonStatusEvents(t *testing.T) {
	events := []domain.VerificationEvent{
		{Type: domain.EventRunStarted, Check: "unit", Status: domain.CheckFail},
	}

	snap := DeriveSnapshot(events, []domain.Check{{Name: "unit", Kind: domain.CheckKindCommand}})
	require.Len(t, snap.Checks, 1)
	assert.Equal(t, domain.CheckPending, snap.Checks[0].Status)
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name     string
		statuses []domain.CheckStatus
		want     domain.CheckStatus
	}{
		{"empty set passes", nil, domain.CheckPass},
		{"all pass", []domain.CheckStatus{domain.CheckPass, domain.CheckPass}, domain.CheckPass},
		{"one pending", []domain.CheckStatus{domain.CheckPass, domain.CheckPending}, domain.CheckPending},
		{"one fail wins", []domain.CheckStatus{domain.CheckPass, domain.CheckFail, domain.CheckPending}, domain.CheckFail},
		{"error counts as fail", []domain.CheckStatus{domain.CheckError}, domain.CheckFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := &Snapshot{}
			for i, status := range tt.statuses {
				snap.Checks = append(snap.Checks, domain.CheckResult{
					Name:   string(rune('a' + i)),
					Kind:   domain.CheckKindCommand,
					Status: status,
				})
			}
			assert.Equal(t, tt.want, Aggregate(snap))
		})
	}
}

func TestManualPending(t *testing.T) {
	snap := &Snapshot{Checks: []domain.CheckResult{
		{Name: "unit", Kind: domain.CheckKindCommand, Status: domain.CheckPass},
		{Name: "review", Kind: domain.CheckKindManual, Status: domain.CheckPending},
	}}
	assert.True(t, ManualPending(snap))

	snap.Checks[1].Status = domain.CheckPass
	assert.False(t, ManualPending(snap))

	auto := &Snapshot{Checks: []domain.CheckResult{
		{Name: "unit", Kind: domain.CheckKindCommand, Status: domain.CheckPending},
	}}
	assert.False(t, ManualPending(auto), "pending command checks are not manual sign-off")
}
