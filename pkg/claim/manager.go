// Package claim grants time-bounded exclusive working rights over runs to
// agent identities. Ownership is a convention checked by mutating entry
// points, not a permission system: the store itself never denies a write.
package claim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gardenfork/espalier/internal/logging"
	"github.com/gardenfork/espalier/pkg/domain"
	"github.com/gardenfork/espalier/pkg/ports"
)

// DefaultTTL bounds a claim when the caller does not choose one.
const DefaultTTL = 30 * time.Minute

// Manager implements the claim/lease protocol over a run store.
type Manager struct {
	store  ports.RunStore
	locker ports.Locker // optional external claiming primitive
	logger *slog.Logger
	now    func() time.Time
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker serializes claim bodies under an external lease. The manager
// still re-verifies ownership after writing: the primitive is not atomic
// from this process's point of view.
func WithLocker(locker ports.Locker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithClock overrides the time source. Tests use this to force expiry.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a claim manager bound to a run store.
func NewManager(store ports.RunStore, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		logger: logging.NewNop(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// IsAvailable reports whether the run can be claimed: unclaimed, or held by
// an expired lease.
func (m *Manager) IsAvailable(run *domain.Run) bool {
	return !run.Claimed(m.now())
}

// Claim grants the agent exclusive working rights for the TTL. A run held
// by an unexpired lease is rejected with the current holder's identity.
// After writing, the record is re-read and the recorded owner confirmed; a
// non-erroring write is not trusted as proof of winning the race.
func (m *Manager) Claim(ctx context.Context, runID, agentID string, ttl time.Duration) (*domain.Run, error) {
	if agentID == "" {
		return nil, fmt.Errorf("agent ID cannot be empty")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	if m.locker != nil {
		unlock, ok, err := m.locker.TryLock(ctx, "claim:"+runID, ttl)
		if err != nil {
			return nil, fmt.Errorf("external claim primitive failed: %w", err)
		}
		if !ok {
			// Someone is mid-claim; read the record for the holder name.
			holder := "unknown"
			expires := m.now()
			if run, err := m.store.Load(ctx, runID); err == nil && run.ClaimedBy != "" {
				holder = run.ClaimedBy
				if run.ClaimExpires != nil {
					expires = *run.ClaimExpires
				}
			}
			return nil, &domain.AlreadyClaimedError{RunID: runID, Holder: holder, Expires: expires}
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("failed to release external claim lease (will expire via TTL)", "run", runID, "err", err)
			}
		}()
	}

	run, err := m.claimOnce(ctx, runID, agentID, ttl)
	if err != nil {
		if !domain.IsConcurrency(err) {
			return nil, err
		}
		// The versioned write lost to an interleaved writer. The rejection
		// must name who holds the run now, not just that tokens mismatched.
		current, loadErr := m.store.Load(ctx, runID)
		if loadErr != nil {
			return nil, err
		}
		if current.Claimed(m.now()) && current.ClaimedBy != agentID {
			return nil, &domain.LostRaceError{RunID: runID, Winner: current.ClaimedBy}
		}
		// The interleaved write was not a competing claim; one more attempt
		// against fresh state.
		run, err = m.claimOnce(ctx, runID, agentID, ttl)
		if err != nil {
			return nil, err
		}
	}

	// Race verification: trust the store, not the write.
	confirmed, err := m.store.Load(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm claim: %w", err)
	}
	if confirmed.ClaimedBy != agentID {
		return nil, &domain.LostRaceError{RunID: runID, Winner: confirmed.ClaimedBy}
	}

	m.logger.Info("run claimed", "run", runID, "agent", agentID, "expires", run.ClaimExpires)
	return run, nil
}

func (m *Manager) claimOnce(ctx context.Context, runID, agentID string, ttl time.Duration) (*domain.Run, error) {
	run, err := m.store.LoadVersioned(ctx, runID)
	if err != nil {
		return nil, err
	}

	now := m.now()
	if run.Claimed(now) && run.ClaimedBy != agentID {
		expires := now
		if run.ClaimExpires != nil {
			expires = *run.ClaimExpires
		}
		return nil, &domain.AlreadyClaimedError{RunID: runID, Holder: run.ClaimedBy, Expires: expires}
	}

	claimedAt := now
	expires := now.Add(ttl)
	run.ClaimedBy = agentID
	run.ClaimedAt = &claimedAt
	run.ClaimExpires = &expires
	run.Updated = now

	if err := m.store.SaveVersioned(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// Release clears the claim fields unconditionally. There is no ownership
// check: stuck claims must be clearable by anyone, including the sweeper.
func (m *Manager) Release(ctx context.Context, runID string) error {
	run, err := m.store.LoadVersioned(ctx, runID)
	if err != nil {
		return err
	}
	run.ClearClaim()
	run.Updated = m.now()
	if err := m.store.SaveVersioned(ctx, run); err != nil {
		return err
	}
	m.logger.Info("run released", "run", runID)
	return nil
}

// Sweep releases every claim whose lease has expired and returns the IDs of
// the reclaimed runs. This is how leases come back from crashed or
// abandoned agents; run it periodically or on demand.
func (m *Manager) Sweep(ctx context.Context) ([]string, error) {
	runs, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}

	now := m.now()
	var reclaimed []string
	for _, run := range runs {
		if run.ClaimedBy == "" || run.Claimed(now) {
			continue
		}
		if err := m.Release(ctx, run.ID); err != nil {
			// A concurrent writer beat the sweeper to this record; it will
			// be revisited on the next sweep.
			if domain.IsConcurrency(err) || errors.Is(err, domain.ErrRunNotFound) {
				continue
			}
			return reclaimed, err
		}
		m.logger.Info("expired claim swept", "run", run.ID, "holder", run.ClaimedBy)
		reclaimed = append(reclaimed, run.ID)
	}
	return reclaimed, nil
}

// Conflict names a run whose declared touched files intersect a candidate's.
type Conflict struct {
	RunID string
	Files []string
}

// Conflicts intersects the candidate's touched-files set against every
// currently active run. A non-empty result is a soft warning for the
// scheduling policy downstream, never a hard block.
func (m *Manager) Conflicts(ctx context.Context, candidate *domain.Run) ([]Conflict, error) {
	if len(candidate.FilesTouched) == 0 {
		return nil, nil
	}

	runs, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}

	touched := make(map[string]bool, len(candidate.FilesTouched))
	for _, f := range candidate.FilesTouched {
		touched[f] = true
	}

	var conflicts []Conflict
	for _, run := range runs {
		if run.ID == candidate.ID || !run.State.Matches("active") {
			continue
		}
		var overlap []string
		for _, f := range run.FilesTouched {
			if touched[f] {
				overlap = append(overlap, f)
			}
		}
		if len(overlap) > 0 {
			conflicts = append(conflicts, Conflict{RunID: run.ID, Files: overlap})
		}
	}
	return conflicts, nil
}

// Guard verifies the claim-holder convention before a run-specific
// mutation: the acting agent must hold an unexpired claim. Mutating entry
// points call this; the store itself enforces nothing.
func (m *Manager) Guard(run *domain.Run, agentID string) error {
	if !run.Claimed(m.now()) {
		return fmt.Errorf("run %s is not claimed; claim it before writing progress", run.ID)
	}
	if run.ClaimedBy != agentID {
		return fmt.Errorf("run %s is claimed by %s, not %s", run.ID, run.ClaimedBy, agentID)
	}
	return nil
}

// Blocked reports whether the run has dependencies not yet complete, and
// which ones.
func (m *Manager) Blocked(ctx context.Context, run *domain.Run) ([]string, error) {
	var blocking []string
	for _, depID := range run.DependsOn {
		dep, err := m.store.Load(ctx, depID)
		if err != nil {
			if errors.Is(err, domain.ErrRunNotFound) {
				blocking = append(blocking, depID)
				continue
			}
			return nil, err
		}
		if dep.State != domain.StateComplete {
			blocking = append(blocking, depID)
		}
	}
	return blocking, nil
}
