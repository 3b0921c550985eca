package verify

import "github.com/gardenfork/espalier/pkg/domain"

// Snapshot is the derived view of current check statuses. It is a pure
// projection of (events, declaredChecks): recomputable at any time, and
// never stored.
type Snapshot struct {
	Checks []domain.CheckResult `json:"checks"`
}

// DeriveSnapshot projects the latest outcome per declared check from the
// event stream. Checks no longer declared vanish from the snapshot while
// their events remain in the log for audit; declared checks with no
// matching event are pending.
func DeriveSnapshot(events []domain.VerificationEvent, declared []domain.Check) *Snapshot {
	snap := &Snapshot{Checks: make([]domain.CheckResult, 0, len(declared))}
	for _, check := range declared {
		result := domain.CheckResult{
			Name:   check.Name,
			Kind:   check.Kind,
			Status: domain.CheckPending,
		}
		// Latest status-bearing event for this check wins.
		for i := len(events) - 1; i >= 0; i-- {
			ev := events[i]
			if ev.Check != check.Name || !ev.Type.StatusBearing() {
				continue
			}
			result.Status = ev.Status
			result.ExitCode = ev.ExitCode
			result.OutputTail = ev.OutputTail
			result.By = ev.By
			result.At = ev.At
			break
		}
		snap.Checks = append(snap.Checks, result)
	}
	return snap
}

// Aggregate folds a snapshot into one status: fail if any check failed or
// errored, pass only when every check passed, pending otherwise. An empty
// check set aggregates to pass (vacuously satisfied).
func Aggregate(snap *Snapshot) domain.CheckStatus {
	status := domain.CheckPass
	for _, check := range snap.Checks {
		switch check.Status {
		case domain.CheckFail, domain.CheckError:
			return domain.CheckFail
		case domain.CheckPending:
			status = domain.CheckPending
		}
	}
	return status
}

// ManualPending reports whether any manual check still awaits a human
// assessment. It distinguishes "all automation passed, awaiting sign-off"
// from true completion.
func ManualPending(snap *Snapshot) bool {
	for _, check := range snap.Checks {
		if check.Kind == domain.CheckKindManual && check.Status == domain.CheckPending {
			return true
		}
	}
	return false
}
