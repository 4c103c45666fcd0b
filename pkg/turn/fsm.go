package turn

import (
	"sync"
	"time"
)

// StateChange represents a state transition event.
type StateChange struct {
	FromState State
	ToState   State
	Timestamp time.Time
	Reason    string
}

// StateListener observes turn state changes.
type StateListener interface {
	OnStateChange(event StateChange)
}

// ListenerFunc adapts a plain function to StateListener.
type ListenerFunc func(event StateChange)

func (f ListenerFunc) OnStateChange(event StateChange) { f(event) }

var validTransitions = map[State][]State{
	StateIdle:                  {StateAwaitingModelRound1},
	StateAwaitingModelRound1:   {StateDone, StateAwaitingToolExecution},
	StateAwaitingToolExecution: {StateAwaitingModelRound2},
	StateAwaitingModelRound2:   {StateDone},
}

// Machine tracks the progress of a single turn. One Machine per turn; it is not reused.
type Machine struct {
	mu        sync.Mutex
	current   State
	listeners []StateListener
}

func NewMachine(listeners ...StateListener) *Machine {
	m := &Machine{current: StateIdle}
	for _, l := range listeners {
		if l != nil {
			m.listeners = append(m.listeners, l)
		}
	}
	return m
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *Machine) AddListener(listener StateListener) {
	if listener == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, listener)
}

func transitionValid(from, to State) bool {
	if to == StateFailed {
		return !from.Terminal()
	}
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition moves to a new state with validation. Failed is reachable from
// every non-terminal state.
func (m *Machine) Transition(to State, reason string) error {
	m.mu.Lock()
	from := m.current
	if !transitionValid(from, to) {
		m.mu.Unlock()
		return &InvalidTransitionError{From: from, To: to}
	}
	m.current = to
	listeners := append([]StateListener(nil), m.listeners...)
	m.mu.Unlock()

	// listeners run outside the lock so they may read State()
	event := StateChange{FromState: from, ToState: to, Timestamp: time.Now(), Reason: reason}
	for _, l := range listeners {
		l.OnStateChange(event)
	}
	return nil
}

// Fail moves the turn to Failed unless it already finished.
func (m *Machine) Fail(reason string) error {
	return m.Transition(StateFailed, reason)
}

// InvalidTransitionError represents an invalid state transition attempt
type InvalidTransitionError struct {
	From State
	To   State
}

func (e *InvalidTransitionError) Error() string {
	return "invalid state transition from " + e.From.String() + " to " + e.To.String()
}
