package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateValid(t *testing.T) {
	for _, s := range AllStates {
		assert.True(t, s.Valid(), "%s", s)
	}
	assert.False(t, State("active").Valid(), "parent token is a pattern, not a state")
	assert.False(t, State("verifying").Valid())
	assert.False(t, State("limbo").Valid())
	assert.False(t, State("").Valid())
}

func TestStateParent(t *testing.T) {
	assert.Equal(t, "active", StateActiveExecuting.Parent())
	assert.Equal(t, "verifying", StateVerifyingFailed.Parent())
	assert.Equal(t, "proposed", StateProposed.Parent())
}

func TestStateMatches(t *testing.T) {
	tests := []struct {
		state   State
		pattern string
		want    bool
	}{
		{StateActiveExecuting, "active/executing", true},
		{StateActiveExecuting, "active", true},
		{StateActivePaused, "active", true},
		{StateActiveExecuting, "verifying", false},
		{StateProposed, "proposed", true},
		{StateProposed, "active", false},
		{StateVerifyingPassed, "verifying", true},
		{StateComplete, "complete", true},
		{StateActiveExecuting, "executing", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.Matches(tt.pattern), "%s ~ %s", tt.state, tt.pattern)
	}
}

func TestStateClasses(t *testing.T) {
	assert.True(t, StateProposed.PreExecution())
	assert.True(t, StateApproved.PreExecution())
	assert.True(t, StateReady.PreExecution())
	assert.False(t, StateActiveExecuting.PreExecution())

	assert.True(t, StateComplete.Terminal())
	assert.True(t, StateAbandoned.Terminal())
	assert.False(t, StateVerifyingPassed.Terminal())
}
