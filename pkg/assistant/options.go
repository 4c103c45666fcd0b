package assistant

import (
	"log/slog"
	"time"

	"github.com/harunnryd/flowlist/pkg/metrics"
	"github.com/harunnryd/flowlist/pkg/tools"
	"github.com/harunnryd/flowlist/pkg/turn"
)

const (
	DefaultPersona = "You are FlowList AI, a helpful productivity assistant. You can create tasks, habits, " +
		"and retrieve the user's task list to help them plan a schedule. If you use a tool, explain what you did. " +
		"For scheduling, fetch the tasks first, then suggest a time-blocked plan based on priorities."

	DefaultMaxHistory = 10

	// DefaultFallbackText replaces an empty answer when the model skipped tools.
	DefaultFallbackText = "I'm not sure how to help with that."
	// DefaultEmptyReplyText replaces an empty answer after tools ran.
	DefaultEmptyReplyText = "I've processed your request."
)

type Options struct {
	Persona string
	// MaxHistory caps how many prior messages are sent. Zero means DefaultMaxHistory.
	MaxHistory     int
	TurnTimeout    time.Duration
	FallbackText   string
	EmptyReplyText string
	Logger         *slog.Logger
	Observer       metrics.Observer
	// Listeners observe every turn handled by the orchestrator.
	Listeners []turn.StateListener
}

func (o Options) withDefaults() Options {
	if o.Persona == "" {
		o.Persona = DefaultPersona
	}
	if o.MaxHistory <= 0 {
		o.MaxHistory = DefaultMaxHistory
	}
	if o.FallbackText == "" {
		o.FallbackText = DefaultFallbackText
	}
	if o.EmptyReplyText == "" {
		o.EmptyReplyText = DefaultEmptyReplyText
	}
	o.Observer = metrics.OrNoop(o.Observer)
	return o
}

// Hooks receive events of a single turn, for incremental delivery.
type Hooks struct {
	State      turn.StateListener
	ToolResult func(tools.Result)
}
