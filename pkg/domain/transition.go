package domain

import "time"

// TransitionRecord is one entry in a run's append-only lifecycle log.
// Records are never truncated or reordered.
type TransitionRecord struct {
	From State     `json:"from"`
	To   State     `json:"to"`
	At   time.Time `json:"at"`
	By   string    `json:"by"`

	// Reason is optional operator context for the transition.
	Reason string `json:"reason,omitempty"`

	// Forced marks a transition that bypassed validation. Forced entries are
	// logged distinctly so audits can tell them from normal transitions.
	Forced bool `json:"forced,omitempty"`
}
