package domain

import "time"

// VerificationEventType tags the kind of fact a verification event records.
type VerificationEventType string

const (
	// EventRunStarted marks the beginning of a batch of check executions.
	EventRunStarted VerificationEventType = "run_started"
	// EventCheckExecuted records a command-based check's exit code and output.
	EventCheckExecuted VerificationEventType = "check_executed"
	// EventManualRecorded records a human assessment of a manual check.
	EventManualRecorded VerificationEventType = "manual_recorded"
)

// StatusBearing reports whether events of this type carry a check outcome
// that snapshot derivation should project.
func (t VerificationEventType) StatusBearing() bool {
	return t == EventCheckExecuted || t == EventManualRecorded
}

// VerificationEvent is one immutable fact in a run's verification history.
// Events are only ever appended; re-running verification accumulates new
// events rather than mutating old ones.
type VerificationEvent struct {
	Type VerificationEventType `json:"type"`
	At   time.Time             `json:"at"`
	By   string                `json:"by"`

	// Check names the declared check this event concerns. Empty for
	// run_started events.
	Check string `json:"check,omitempty"`

	Status     CheckStatus `json:"status,omitempty"`
	ExitCode   *int        `json:"exit_code,omitempty"`
	OutputTail string      `json:"output_tail,omitempty"`
	Reason     string      `json:"reason,omitempty"`
}

// VerificationLog is the append-only per-run event stream.
type VerificationLog struct {
	Events []VerificationEvent `json:"events"`
}
