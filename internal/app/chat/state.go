package chat

import (
	"errors"
	"fmt"
	"sync"
)

// State is a stage in a session's life.
type State int

const (
	StateConnecting State = iota
	StateAuthenticating
	StateAuthenticated
	StateActive
	StateClosed
)

var stateNames = map[State]string{
	StateConnecting:     "connecting",
	StateAuthenticating: "authenticating",
	StateAuthenticated:  "authenticated",
	StateActive:         "active",
	StateClosed:         "closed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ErrInvalidTransition is returned when a session is asked to move to a state its current
// state does not lead to.
var ErrInvalidTransition = errors.New("chat: invalid session state transition")

// transitions lists the legal next states. Closed is terminal.
var transitions = map[State][]State{
	StateConnecting:     {StateAuthenticating, StateClosed},
	StateAuthenticating: {StateAuthenticated, StateClosed},
	StateAuthenticated:  {StateActive, StateClosed},
	StateActive:         {StateClosed},
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// stateMachine guards a State with the transition table.
type stateMachine struct {
	mu    sync.Mutex
	state State
}

func (m *stateMachine) current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *stateMachine) transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !CanTransition(m.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.state, to)
	}
	m.state = to
	return nil
}
