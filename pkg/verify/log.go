// Package verify implements the event-sourced verification record: an
// append-only per-run event stream and a pure snapshot projection over it.
package verify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gardenfork/espalier/internal/logging"
	"github.com/gardenfork/espalier/pkg/domain"
	"github.com/gardenfork/espalier/pkg/ports"
)

// Recorder appends verification events to runs. Events are facts: never
// mutated, never removed.
type Recorder struct {
	store  ports.RunStore
	logger *slog.Logger
	now    func() time.Time
}

// Option configures the Recorder.
type Option func(*Recorder)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		r.now = now
	}
}

// NewRecorder creates a recorder bound to a run store.
func NewRecorder(store ports.RunStore, opts ...Option) *Recorder {
	r := &Recorder{
		store:  store,
		logger: logging.NewNop(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Append pushes an event onto the run's verification log and persists. The
// event's timestamp is filled in when zero.
func (r *Recorder) Append(ctx context.Context, run *domain.Run, event domain.VerificationEvent) error {
	if event.Type == "" {
		return fmt.Errorf("verification event needs a type")
	}
	if event.At.IsZero() {
		event.At = r.now()
	}

	run.Verification.Events = append(run.Verification.Events, event)
	run.Updated = r.now()

	var err error
	if run.Version.IsZero() {
		err = r.store.Save(ctx, run)
	} else {
		err = r.store.SaveVersioned(ctx, run)
	}
	if err != nil {
		return err
	}

	r.logger.Debug("verification event appended", "run", run.ID, "type", event.Type, "check", event.Check)
	return nil
}

// RunStarted appends the marker event for a new batch of check executions.
func (r *Recorder) RunStarted(ctx context.Context, run *domain.Run, actor string) error {
	return r.Append(ctx, run, domain.VerificationEvent{
		Type: domain.EventRunStarted,
		By:   actor,
	})
}

// CheckExecuted records a command-based check outcome.
func (r *Recorder) CheckExecuted(ctx context.Context, run *domain.Run, actor, check string, exitCode int, outputTail string) error {
	status := domain.CheckPass
	if exitCode != 0 {
		status = domain.CheckFail
	}
	return r.Append(ctx, run, domain.VerificationEvent{
		Type:       domain.EventCheckExecuted,
		By:         actor,
		Check:      check,
		Status:     status,
		ExitCode:   &exitCode,
		OutputTail: outputTail,
	})
}

// ManualRecorded records a human assessment of a manual check.
func (r *Recorder) ManualRecorded(ctx context.Context, run *domain.Run, actor, check string, passed bool, reason string) error {
	status := domain.CheckPass
	if !passed {
		status = domain.CheckFail
	}
	return r.Append(ctx, run, domain.VerificationEvent{
		Type:   domain.EventManualRecorded,
		By:     actor,
		Check:  check,
		Status: status,
		Reason: reason,
	})
}
