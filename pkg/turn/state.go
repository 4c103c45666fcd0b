package turn

type State int

const (
	StateIdle State = iota
	StateAwaitingModelRound1
	StateAwaitingToolExecution
	StateAwaitingModelRound2
	StateDone
	StateFailed
)

// String returns the wire name of a State.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingModelRound1:
		return "awaiting_model_round1"
	case StateAwaitingToolExecution:
		return "awaiting_tool_execution"
	case StateAwaitingModelRound2:
		return "awaiting_model_round2"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}
