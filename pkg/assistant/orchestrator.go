// Package assistant runs one conversational turn: it asks the model, executes
// any tool calls it issues and asks again for the final answer.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/harunnryd/flowlist/pkg/auth"
	"github.com/harunnryd/flowlist/pkg/errorsx"
	"github.com/harunnryd/flowlist/pkg/llm"
	"github.com/harunnryd/flowlist/pkg/logging"
	"github.com/harunnryd/flowlist/pkg/metrics"
	"github.com/harunnryd/flowlist/pkg/redact"
	"github.com/harunnryd/flowlist/pkg/resilience"
	"github.com/harunnryd/flowlist/pkg/tools"
	"github.com/harunnryd/flowlist/pkg/turn"
)

var errNoExecutor = errors.New("tool executor not configured")

// Reply is the outcome of one successful turn. Text is the final answer shown
// to the user; ToolResults is empty when round one answered directly.
type Reply struct {
	Text        string
	ToolResults []tools.Result
	Rounds      int
	Usage       llm.Usage
}

// Orchestrator is safe for concurrent use; no state is kept between turns.
type Orchestrator struct {
	adapter  llm.Adapter
	executor *tools.Executor
	opts     Options
	logger   *slog.Logger
}

// New wires an orchestrator around an injected model adapter and the executor
// whose registry defines the tools offered to the model. Zero Options fields
// take package defaults.
func New(adapter llm.Adapter, executor *tools.Executor, opts Options) *Orchestrator {
	opts = opts.withDefaults()
	return &Orchestrator{
		adapter:  adapter,
		executor: executor,
		opts:     opts,
		logger:   logging.NewComponentLogger(opts.Logger, "assistant"),
	}
}

// Tools returns the declarations offered to the model in round one.
func (o *Orchestrator) Tools() []llm.Tool {
	if o.executor == nil || o.executor.Registry() == nil {
		return nil
	}
	return o.executor.Registry().LLMTools()
}

// Respond runs one turn for user over prior, the conversation so far ending
// with the new user message. It fails with reason unauthorized for a zero
// identity and configuration for a missing credential, both before any model
// call; model and context failures surface as ai_service. At most two model
// rounds are made: round one with tools, round two without, only when round
// one asked for tools.
func (o *Orchestrator) Respond(ctx context.Context, prior []llm.Message, user auth.Identity) (Reply, error) {
	return o.RespondWithHooks(ctx, prior, user, Hooks{})
}

// RespondWithHooks is Respond with per-turn observers attached.
func (o *Orchestrator) RespondWithHooks(ctx context.Context, prior []llm.Message, user auth.Identity, hooks Hooks) (Reply, error) {
	start := time.Now()
	listeners := append([]turn.StateListener(nil), o.opts.Listeners...)
	if hooks.State != nil {
		listeners = append(listeners, hooks.State)
	}
	t := &turnRun{
		o:       o,
		machine: turn.NewMachine(listeners...),
		hooks:   hooks,
		user:    user,
	}

	reply, err := t.run(ctx, prior)
	if err != nil {
		reason := errorsx.Reason(err)
		o.advance(t.machine, turn.StateFailed, string(reason))
		o.logger.Warn("assistant_turn_failed",
			"user_id", user.UserID,
			"reason_code", string(reason),
			"rounds", reply.Rounds,
			"error", err.Error())
		o.opts.Observer.RecordEvent(metrics.MetricsEvent{
			Name:  metrics.EventTurnFailed,
			Time:  time.Now(),
			Value: float64(time.Since(start).Milliseconds()),
			Tags:  map[string]string{"reason_code": string(reason), "rounds": strconv.Itoa(reply.Rounds)},
		})
		return reply, err
	}

	o.logger.Info("assistant_turn_completed",
		"user_id", user.UserID,
		"rounds", reply.Rounds,
		"tool_calls", len(reply.ToolResults),
		"total_tokens", reply.Usage.TotalTokens,
		"duration_ms", time.Since(start).Milliseconds())
	o.opts.Observer.RecordEvent(metrics.MetricsEvent{
		Name:  metrics.EventTurnCompleted,
		Time:  time.Now(),
		Value: float64(time.Since(start).Milliseconds()),
		Tags:  map[string]string{"rounds": strconv.Itoa(reply.Rounds)},
		Fields: map[string]any{
			"tool_calls":   len(reply.ToolResults),
			"total_tokens": reply.Usage.TotalTokens,
		},
	})
	return reply, nil
}

// Outbound builds the round-one message list: the persona, then the most recent
// prior messages in their original order.
func (o *Orchestrator) Outbound(prior []llm.Message) []llm.Message {
	history := llm.LastN(prior, o.opts.MaxHistory)
	out := make([]llm.Message, 0, len(history)+1)
	out = append(out, llm.SystemMessage(o.opts.Persona))
	return append(out, history...)
}

func (o *Orchestrator) advance(m *turn.Machine, to turn.State, reason string) {
	if err := m.Transition(to, reason); err != nil {
		o.logger.Error("assistant_state_transition_invalid", "error", err.Error())
	}
}

type turnRun struct {
	o       *Orchestrator
	machine *turn.Machine
	hooks   Hooks
	user    auth.Identity
	reply   Reply
}

func (t *turnRun) run(ctx context.Context, prior []llm.Message) (Reply, error) {
	o := t.o
	if t.user.IsZero() {
		return t.reply, errorsx.New(errorsx.ReasonUnauthorized, "Unauthorized")
	}
	if err := llm.CheckCredentials(o.adapter); err != nil {
		return t.reply, errorsx.ReasonedError{Err: err, Reason: errorsx.ReasonConfiguration}
	}
	if o.executor == nil {
		return t.reply, errorsx.ReasonedError{Err: errNoExecutor, Reason: errorsx.ReasonConfiguration}
	}

	if o.opts.TurnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.TurnTimeout)
		defer cancel()
	}

	messages := o.Outbound(prior)
	o.logger.Debug("assistant_turn_started",
		"user_id", t.user.UserID,
		"history", len(messages)-1,
		"input", redact.Preview(lastUserText(messages), 120))

	o.advance(t.machine, turn.StateAwaitingModelRound1, "round_1")
	first, err := t.round(ctx, 1, llm.Request{
		Messages:   messages,
		Tools:      o.Tools(),
		ToolChoice: llm.ToolChoiceAuto,
	})
	if err != nil {
		return t.reply, err
	}

	if !first.HasToolCalls() {
		t.reply.Text = orDefault(first.Text, o.opts.FallbackText)
		o.advance(t.machine, turn.StateDone, "answered")
		return t.reply, nil
	}

	o.advance(t.machine, turn.StateAwaitingToolExecution, "tool_calls")
	o.logger.Info("assistant_tool_calls", "user_id", t.user.UserID, "tools", toolNames(first.ToolCalls))
	results := o.executor.ExecuteBatch(ctx, t.user, first.ToolCalls)
	t.reply.ToolResults = results
	if t.hooks.ToolResult != nil {
		for _, r := range results {
			t.hooks.ToolResult(r)
		}
	}
	if err := ctx.Err(); err != nil {
		return t.reply, aiServiceError(err)
	}

	followUp := make([]llm.Message, 0, len(messages)+1+len(results))
	followUp = append(followUp, messages...)
	followUp = append(followUp, llm.AssistantToolCallMessage(first.Text, first.ToolCalls))
	for _, r := range results {
		followUp = append(followUp, llm.ToolMessage(r.ToolCallID, r.ToolName, r.Content()))
	}

	o.advance(t.machine, turn.StateAwaitingModelRound2, "tool_results")
	second, err := t.round(ctx, 2, llm.Request{Messages: followUp, ToolChoice: llm.ToolChoiceNone})
	if err != nil {
		return t.reply, err
	}
	// a second round never executes tools
	t.reply.Text = orDefault(second.Text, o.opts.EmptyReplyText)
	o.advance(t.machine, turn.StateDone, "answered")
	return t.reply, nil
}

func (t *turnRun) round(ctx context.Context, n int, req llm.Request) (llm.Response, error) {
	o := t.o
	start := time.Now()
	resp, err := o.adapter.Generate(ctx, req)
	t.reply.Rounds = n
	status := "ok"
	if err != nil {
		status = "error"
		if resilience.IsRateLimit(err) {
			status = string(errorsx.ReasonLLMRateLimit)
		}
	}
	o.opts.Observer.RecordEvent(metrics.MetricsEvent{
		Name:  metrics.EventModelRound,
		Time:  time.Now(),
		Value: float64(time.Since(start).Milliseconds()),
		Tags:  map[string]string{"round": strconv.Itoa(n), "status": status, "provider": o.adapter.Name()},
	})
	if err != nil {
		o.logger.Error("assistant_round_failed", "round", n, "status", status, "error", err.Error())
		if cerr := ctx.Err(); cerr != nil && !errors.Is(err, cerr) {
			err = fmt.Errorf("%w: %w", cerr, err)
		}
		return llm.Response{}, aiServiceError(err)
	}
	t.reply.Usage = t.reply.Usage.Add(resp.Usage)
	return resp, nil
}

// aiServiceError keeps the underlying message while forcing the turn-level reason.
func aiServiceError(err error) error {
	return errorsx.ReasonedError{Err: err, Reason: errorsx.ReasonAIService}
}

func orDefault(text, fallback string) string {
	if strings.TrimSpace(text) == "" {
		return fallback
	}
	return text
}

func toolNames(calls []llm.ToolCall) []string {
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Name
	}
	return out
}

func lastUserText(msgs []llm.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == llm.RoleUser {
			return msgs[i].Content
		}
	}
	return ""
}
