package chat

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateConnecting, StateAuthenticating, true},
		{StateConnecting, StateClosed, true},
		{StateConnecting, StateActive, false},
		{StateAuthenticating, StateAuthenticated, true},
		{StateAuthenticating, StateClosed, true},
		{StateAuthenticating, StateActive, false},
		{StateAuthenticated, StateActive, true},
		{StateAuthenticated, StateClosed, true},
		{StateAuthenticated, StateAuthenticating, false},
		{StateActive, StateClosed, true},
		{StateActive, StateAuthenticated, false},
		{StateClosed, StateConnecting, false},
		{StateClosed, StateClosed, false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestStateMachineRejectsIllegalTransition(t *testing.T) {
	var m stateMachine

	require.NoError(t, m.transition(StateAuthenticating))
	err := m.transition(StateActive)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.Equal(t, StateAuthenticating, m.current())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "active", StateActive.String())
	assert.Equal(t, "state(42)", State(42).String())
}
