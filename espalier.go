package espalier

import (
	"context"
	"log/slog"
	"time"

	"github.com/gardenfork/espalier/internal/logging"
	"github.com/gardenfork/espalier/internal/metrics"
	"github.com/gardenfork/espalier/pkg/claim"
	"github.com/gardenfork/espalier/pkg/domain"
	"github.com/gardenfork/espalier/pkg/lifecycle"
	"github.com/gardenfork/espalier/pkg/ports"
	"github.com/gardenfork/espalier/pkg/verify"
)

// Coordinator is the high-level entry point for the espalier library. It
// ties the run store, the lifecycle state machine, the claim manager, and
// the verification recorder together behind one handle, the way a single
// agent process uses them.
type Coordinator struct {
	store    ports.RunStore
	machine  *lifecycle.Machine
	claims   *claim.Manager
	recorder *verify.Recorder
	plans    ports.PlanSource
	locker   ports.Locker
	logger   *slog.Logger
}

// Option configures the Coordinator.
type Option func(*Coordinator)

// WithLogger sets a structured logger shared by all components.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithLocker enables the external claiming primitive for claim attempts.
func WithLocker(locker ports.Locker) Option {
	return func(c *Coordinator) {
		c.locker = locker
	}
}

// WithPlanSource wires the plan-document boundary used to resolve declared
// checks for verification snapshots.
func WithPlanSource(plans ports.PlanSource) Option {
	return func(c *Coordinator) {
		c.plans = plans
	}
}

// New creates a Coordinator over the given run store.
func New(store ports.RunStore, opts ...Option) *Coordinator {
	c := &Coordinator{store: store}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.NewNop()
	}

	c.machine = lifecycle.NewMachine(store, lifecycle.WithLogger(c.logger))

	claimOpts := []claim.Option{claim.WithLogger(c.logger)}
	if c.locker != nil {
		claimOpts = append(claimOpts, claim.WithLocker(c.locker))
	}
	c.claims = claim.NewManager(store, claimOpts...)

	c.recorder = verify.NewRecorder(store, verify.WithLogger(c.logger))
	return c
}

// Store returns the underlying run store.
func (c *Coordinator) Store() ports.RunStore { return c.store }

// Claims returns the claim manager.
func (c *Coordinator) Claims() *claim.Manager { return c.claims }

// CreateRun creates and persists a new run for a plan document.
func (c *Coordinator) CreateRun(ctx context.Context, planPath string, initial domain.State) (*domain.Run, error) {
	run := domain.NewRun(planPath, initial)
	if err := c.store.Save(ctx, run); err != nil {
		return nil, err
	}
	c.logger.Info("run created", "run", run.ID, "plan", run.PlanRef(), "state", run.State)
	return run, nil
}

// Transition applies a validated lifecycle transition to a run loaded
// through the versioned path, so concurrent writers surface as
// concurrency-class errors instead of lost updates.
func (c *Coordinator) Transition(ctx context.Context, runID string, to domain.State, actor, reason string) (*domain.Run, error) {
	run, err := c.store.LoadVersioned(ctx, runID)
	if err != nil {
		return nil, err
	}
	if err := c.machine.Apply(ctx, run, to, actor, reason); err != nil {
		c.countTransition(err)
		return nil, err
	}
	c.countTransition(nil)
	return run, nil
}

// ForceTransition bypasses validation. The escalation path for operators;
// logged distinctly and marked on the record.
func (c *Coordinator) ForceTransition(ctx context.Context, runID string, to domain.State, actor, reason string) (*domain.Run, error) {
	run, err := c.store.LoadVersioned(ctx, runID)
	if err != nil {
		return nil, err
	}
	if err := c.machine.Force(ctx, run, to, actor, reason); err != nil {
		c.countTransition(err)
		return nil, err
	}
	c.countTransition(nil)
	return run, nil
}

// Claim grants the agent a lease on the run.
func (c *Coordinator) Claim(ctx context.Context, runID, agentID string, ttl time.Duration) (*domain.Run, error) {
	run, err := c.claims.Claim(ctx, runID, agentID, ttl)
	switch {
	case err == nil:
		metrics.Claims.WithLabelValues(metrics.OutcomeOK).Inc()
	case domain.IsConcurrency(err):
		metrics.Claims.WithLabelValues(metrics.OutcomeConflict).Inc()
	default:
		metrics.Claims.WithLabelValues(metrics.OutcomeRejected).Inc()
	}
	return run, err
}

// Release clears a run's claim.
func (c *Coordinator) Release(ctx context.Context, runID string) error {
	return c.claims.Release(ctx, runID)
}

// SweepClaims releases every expired claim and returns the reclaimed run
// IDs.
func (c *Coordinator) SweepClaims(ctx context.Context) ([]string, error) {
	reclaimed, err := c.claims.Sweep(ctx)
	metrics.SweptClaims.Add(float64(len(reclaimed)))
	return reclaimed, err
}

// RecordEvent appends a verification event to a run loaded fresh from the
// store.
func (c *Coordinator) RecordEvent(ctx context.Context, runID string, event domain.VerificationEvent) (*domain.Run, error) {
	run, err := c.store.LoadVersioned(ctx, runID)
	if err != nil {
		return nil, err
	}
	if err := c.recorder.Append(ctx, run, event); err != nil {
		return nil, err
	}
	metrics.VerificationEvents.WithLabelValues(string(event.Type)).Inc()
	return run, nil
}

// VerificationStatus derives the run's snapshot against the checks its plan
// currently declares, plus the aggregate and manual-pending rollups.
func (c *Coordinator) VerificationStatus(ctx context.Context, runID string) (*verify.Snapshot, domain.CheckStatus, bool, error) {
	run, err := c.store.Load(ctx, runID)
	if err != nil {
		return nil, "", false, err
	}

	var declared []domain.Check
	if c.plans != nil {
		declared, err = c.plans.DeclaredChecks(ctx, run.PlanPath)
		if err != nil {
			return nil, "", false, err
		}
	}

	snap := verify.DeriveSnapshot(run.Verification.Events, declared)
	return snap, verify.Aggregate(snap), verify.ManualPending(snap), nil
}

func (c *Coordinator) countTransition(err error) {
	switch {
	case err == nil:
		metrics.Transitions.WithLabelValues(metrics.OutcomeOK).Inc()
	case domain.IsConcurrency(err):
		metrics.StaleWrites.Inc()
		metrics.Transitions.WithLabelValues(metrics.OutcomeConflict).Inc()
	default:
		metrics.Transitions.WithLabelValues(metrics.OutcomeRejected).Inc()
	}
}
