package domain

import "time"

// CheckKind distinguishes automated from manually-assessed checks.
type CheckKind string

const (
	CheckKindCommand CheckKind = "command"
	CheckKindManual  CheckKind = "manual"
)

// CheckStatus is the derived status of a single check.
type CheckStatus string

const (
	CheckPending CheckStatus = "pending"
	CheckPass    CheckStatus = "pass"
	CheckFail    CheckStatus = "fail"
	CheckError   CheckStatus = "error"
)

// Check is a verification check declared by the external plan. The declared
// set is owned by the plan document and can change between verification
// runs; it is never persisted on the run record.
type Check struct {
	Name    string    `json:"name" mapstructure:"name"`
	Kind    CheckKind `json:"kind" mapstructure:"kind"`
	Command string    `json:"command,omitempty" mapstructure:"command"`
}

// CheckResult is one row of a verification snapshot: the latest outcome for
// a currently declared check, or pending when no event matches.
type CheckResult struct {
	Name       string      `json:"name"`
	Kind       CheckKind   `json:"kind"`
	Status     CheckStatus `json:"status"`
	ExitCode   *int        `json:"exit_code,omitempty"`
	OutputTail string      `json:"output_tail,omitempty"`
	By         string      `json:"by,omitempty"`
	At         time.Time   `json:"at,omitzero"`
}
