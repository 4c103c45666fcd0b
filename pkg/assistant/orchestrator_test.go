package assistant

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/harunnryd/flowlist/pkg/auth"
	"github.com/harunnryd/flowlist/pkg/backend"
	"github.com/harunnryd/flowlist/pkg/errorsx"
	"github.com/harunnryd/flowlist/pkg/llm"
	"github.com/harunnryd/flowlist/pkg/metrics"
	"github.com/harunnryd/flowlist/pkg/providers/mock"
	"github.com/harunnryd/flowlist/pkg/resilience"
	"github.com/harunnryd/flowlist/pkg/store/memory"
	"github.com/harunnryd/flowlist/pkg/tools"
	"github.com/harunnryd/flowlist/pkg/turn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var alice = auth.Identity{UserID: "alice", Name: "Alice"}

type fixture struct {
	orch    *Orchestrator
	adapter *mock.LLMAdapter
	store   *memory.Store
	obs     *metrics.MemoryObserver
}

func newFixture(t *testing.T, preset tools.Preset, script ...mock.Step) fixture {
	t.Helper()
	reg, err := tools.FromPreset(preset)
	require.NoError(t, err)
	store := memory.New()
	return buildFixture(reg, store, backend.FromStore(store), Options{}, script...)
}

func buildFixture(reg *tools.Registry, store *memory.Store, services backend.Services, opts Options, script ...mock.Step) fixture {
	obs := metrics.NewMemoryObserver()
	adapter := mock.NewLLMAdapter(script...)
	opts.Observer = obs
	exec := tools.NewExecutor(reg, services, tools.WithObserver(obs))
	return fixture{orch: New(adapter, exec, opts), adapter: adapter, store: store, obs: obs}
}

func toolMessages(msgs []llm.Message) []llm.Message {
	var out []llm.Message
	for _, m := range msgs {
		if m.Role == llm.RoleTool {
			out = append(out, m)
		}
	}
	return out
}

func TestRespondRequiresIdentity(t *testing.T) {
	f := newFixture(t, tools.PresetMinimal, mock.ToolCalls(llm.ToolCall{ID: "c1", Name: "create_task", Arguments: `{"title":"x"}`}))

	var states []turn.State
	_, err := f.orch.RespondWithHooks(context.Background(), []llm.Message{llm.UserMessage("hi")}, auth.Identity{}, Hooks{
		State: turn.ListenerFunc(func(ev turn.StateChange) { states = append(states, ev.ToState) }),
	})
	require.Error(t, err)
	assert.True(t, errorsx.HasReason(err, errorsx.ReasonUnauthorized))
	assert.Equal(t, "Unauthorized", err.Error())
	assert.Zero(t, f.adapter.Calls())
	assert.Equal(t, []turn.State{turn.StateFailed}, states)
	assert.Empty(t, f.obs.Named(metrics.EventToolResult))
}

func TestRespondRequiresCredential(t *testing.T) {
	f := newFixture(t, tools.PresetMinimal, mock.Text("never"))
	f.adapter.WithCredentialError(llm.CredentialError{Message: "GROQ_API_KEY is missing in server environment."})

	_, err := f.orch.Respond(context.Background(), []llm.Message{llm.UserMessage("hi")}, alice)
	require.Error(t, err)
	assert.True(t, errorsx.HasReason(err, errorsx.ReasonConfiguration))
	assert.ErrorIs(t, err, llm.ErrMissingKey)
	assert.Equal(t, "GROQ_API_KEY is missing in server environment.", err.Error())
	assert.Zero(t, f.adapter.Calls())
}

func TestRespondNilAdapterIsConfigurationError(t *testing.T) {
	reg, err := tools.FromPreset(tools.PresetMinimal)
	require.NoError(t, err)
	orch := New(nil, tools.NewExecutor(reg, backend.FromStore(memory.New())), Options{})
	_, err = orch.Respond(context.Background(), nil, alice)
	assert.True(t, errorsx.HasReason(err, errorsx.ReasonConfiguration))
}

func TestRespondDirectAnswer(t *testing.T) {
	f := newFixture(t, tools.PresetMinimal, mock.Text("Hello! How can I help?"))

	reply, err := f.orch.Respond(context.Background(), []llm.Message{llm.UserMessage("hi")}, alice)
	require.NoError(t, err)
	assert.Equal(t, "Hello! How can I help?", reply.Text)
	assert.Equal(t, 1, reply.Rounds)
	assert.Empty(t, reply.ToolResults)

	reqs := f.adapter.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, llm.ToolChoiceAuto, reqs[0].ToolChoice)
	assert.Len(t, reqs[0].Tools, 3)
	require.Len(t, reqs[0].Messages, 2)
	assert.Equal(t, llm.SystemMessage(DefaultPersona), reqs[0].Messages[0])
	assert.Equal(t, llm.UserMessage("hi"), reqs[0].Messages[1])

	tasks, err := f.store.ListTasks(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.Empty(t, f.obs.Named(metrics.EventToolResult))
}

func TestRespondEmptyAnswersUseFallbacks(t *testing.T) {
	f := newFixture(t, tools.PresetMinimal, mock.Text("  "))
	reply, err := f.orch.Respond(context.Background(), []llm.Message{llm.UserMessage("?")}, alice)
	require.NoError(t, err)
	assert.Equal(t, DefaultFallbackText, reply.Text)

	f = newFixture(t, tools.PresetMinimal,
		mock.ToolCalls(llm.ToolCall{ID: "c1", Name: "get_pending_tasks", Arguments: "{}"}),
		mock.Text(""),
	)
	reply, err = f.orch.Respond(context.Background(), []llm.Message{llm.UserMessage("what's pending?")}, alice)
	require.NoError(t, err)
	assert.Equal(t, DefaultEmptyReplyText, reply.Text)
	assert.Equal(t, 2, reply.Rounds)
}

func TestRespondCustomFallbacks(t *testing.T) {
	reg, err := tools.FromPreset(tools.PresetMinimal)
	require.NoError(t, err)
	store := memory.New()
	f := buildFixture(reg, store, backend.FromStore(store), Options{FallbackText: "Say again?"}, mock.Text(""))
	reply, err := f.orch.Respond(context.Background(), []llm.Message{llm.UserMessage("?")}, alice)
	require.NoError(t, err)
	assert.Equal(t, "Say again?", reply.Text)
}

func TestRespondExecutesEveryToolCallInOrder(t *testing.T) {
	calls := []llm.ToolCall{
		{ID: "call_a", Name: "create_task", Arguments: `{"title":"Write report","priority":"HIGH"}`},
		{ID: "call_b", Name: "create_habit", Arguments: `{"title":"Read","frequency":"DAILY"}`},
		{ID: "call_c", Name: "get_pending_tasks", Arguments: ""},
	}
	f := newFixture(t, tools.PresetMinimal, mock.ToolCalls(calls...), mock.Text("All set."))

	prior := []llm.Message{llm.UserMessage("plan my day")}
	reply, err := f.orch.Respond(context.Background(), prior, alice)
	require.NoError(t, err)
	assert.Equal(t, "All set.", reply.Text)
	require.Len(t, reply.ToolResults, 3)
	assert.Len(t, f.obs.Named(metrics.EventToolResult), 3)

	reqs := f.adapter.Requests()
	require.Len(t, reqs, 2)
	second := reqs[1]
	assert.Empty(t, second.Tools)
	assert.Equal(t, llm.ToolChoiceNone, second.ToolChoice)

	// persona, history, assistant tool-call message, then one tool message per call
	require.Len(t, second.Messages, 2+1+3)
	assert.Equal(t, reqs[0].Messages, second.Messages[:2])
	asst := second.Messages[2]
	assert.Equal(t, llm.RoleAssistant, asst.Role)
	assert.Equal(t, calls, asst.ToolCalls)

	tms := toolMessages(second.Messages)
	require.Len(t, tms, 3)
	for i, c := range calls {
		assert.Equal(t, c.ID, tms[i].ToolCallID)
		assert.Equal(t, c.Name, tms[i].Name)
		assert.Equal(t, reply.ToolResults[i].Content(), tms[i].Content)
	}
	assert.Contains(t, tms[0].Content, `"success":"Task created!"`)

	habits, err := f.store.ListHabits(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, habits, 1)
}

func TestRespondUnknownToolStillAnswers(t *testing.T) {
	f := newFixture(t, tools.PresetMinimal,
		mock.ToolCalls(llm.ToolCall{ID: "c1", Name: "launch_rocket", Arguments: "{}"}),
		mock.Text("I can't do that."),
	)
	reply, err := f.orch.Respond(context.Background(), []llm.Message{llm.UserMessage("launch")}, alice)
	require.NoError(t, err)
	assert.Equal(t, "I can't do that.", reply.Text)

	tms := toolMessages(f.adapter.Requests()[1].Messages)
	require.Len(t, tms, 1)
	assert.JSONEq(t, `{"error":"unknown tool"}`, tms[0].Content)
	assert.True(t, errorsx.HasReason(reply.ToolResults[0].Err, errorsx.ReasonUnknownTool))
}

func TestRespondMalformedArgumentsStillAnswers(t *testing.T) {
	f := newFixture(t, tools.PresetMinimal,
		mock.ToolCalls(llm.ToolCall{ID: "c1", Name: "create_task", Arguments: `{"title":`}),
		mock.Text("Could you repeat that?"),
	)
	reply, err := f.orch.Respond(context.Background(), []llm.Message{llm.UserMessage("task")}, alice)
	require.NoError(t, err)
	assert.Equal(t, "Could you repeat that?", reply.Text)
	tms := toolMessages(f.adapter.Requests()[1].Messages)
	require.Len(t, tms, 1)
	assert.Contains(t, tms[0].Content, `"error":"malformed arguments"`)
}

func TestRespondTruncatesHistory(t *testing.T) {
	f := newFixture(t, tools.PresetMinimal, mock.Text("ok"))
	var prior []llm.Message
	for i := 0; i < 12; i++ {
		if i%2 == 0 {
			prior = append(prior, llm.UserMessage(fmt.Sprintf("m%d", i)))
		} else {
			prior = append(prior, llm.AssistantMessage(fmt.Sprintf("m%d", i)))
		}
	}

	_, err := f.orch.Respond(context.Background(), prior, alice)
	require.NoError(t, err)

	sent := f.adapter.Requests()[0].Messages
	require.Len(t, sent, 11)
	assert.Equal(t, llm.RoleSystem, sent[0].Role)
	assert.Equal(t, prior[2:], sent[1:])
	assert.Len(t, prior, 12, "caller history must not be modified")
}

func TestRespondCallerSystemMessagesCountTowardHistory(t *testing.T) {
	reg, err := tools.FromPreset(tools.PresetMinimal)
	require.NoError(t, err)
	store := memory.New()
	f := buildFixture(reg, store, backend.FromStore(store), Options{MaxHistory: 2, Persona: "be brief"}, mock.Text("ok"))

	prior := []llm.Message{llm.UserMessage("a"), llm.SystemMessage("note"), llm.UserMessage("b")}
	_, err = f.orch.Respond(context.Background(), prior, alice)
	require.NoError(t, err)
	assert.Equal(t, []llm.Message{llm.SystemMessage("be brief"), llm.SystemMessage("note"), llm.UserMessage("b")},
		f.adapter.Requests()[0].Messages)
}

func TestRespondRemindMeToBuyMilk(t *testing.T) {
	f := newFixture(t, tools.PresetMinimal,
		mock.ToolCalls(llm.ToolCall{ID: "call_1", Name: "create_task", Arguments: `{"title":"Buy milk","dueDate":"2024-05-02"}`}),
		mock.Text("I've added 'Buy milk' to your tasks for tomorrow."),
	)
	reply, err := f.orch.Respond(context.Background(), []llm.Message{llm.UserMessage("Remind me to buy milk tomorrow")}, alice)
	require.NoError(t, err)
	assert.Equal(t, "I've added 'Buy milk' to your tasks for tomorrow.", reply.Text)

	tasks, err := f.store.ListTasks(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Buy milk", tasks[0].Title)
	assert.Equal(t, backend.TaskTodo, tasks[0].Status)
	require.NotNil(t, tasks[0].DueDate)
	assert.Equal(t, "2024-05-02", tasks[0].DueDate.Format("2006-01-02"))
}

func TestRespondFinancialStatus(t *testing.T) {
	f := newFixture(t, tools.PresetExtended,
		mock.ToolCalls(llm.ToolCall{ID: "call_fin", Name: "get_financial_status", Arguments: "{}"}),
		mock.Text("Your balance is $120."),
	)
	ctx := context.Background()
	_, err := f.store.AddTransaction(ctx, "alice", backend.NewTransaction{Amount: 500, Type: backend.Income, Category: "Salary"})
	require.NoError(t, err)
	_, err = f.store.AddTransaction(ctx, "alice", backend.NewTransaction{Amount: 380, Type: backend.Expense, Category: "Rent"})
	require.NoError(t, err)

	reply, err := f.orch.Respond(ctx, []llm.Message{llm.UserMessage("How am I doing?")}, alice)
	require.NoError(t, err)
	assert.Equal(t, "Your balance is $120.", reply.Text)

	tms := toolMessages(f.adapter.Requests()[1].Messages)
	require.Len(t, tms, 1)
	assert.Equal(t, "call_fin", tms[0].ToolCallID)
	assert.JSONEq(t, `{"balance":120,"income":500,"expenses":380}`, tms[0].Content)
}

// staggered makes create_task finish only after create_habit has returned.
type staggered struct {
	*memory.Store
	fastDone chan struct{}
	mu       sync.Mutex
	finished []string
}

func (s *staggered) CreateTask(ctx context.Context, userID string, in backend.NewTask) (backend.Task, error) {
	select {
	case <-s.fastDone:
	case <-time.After(2 * time.Second):
	}
	s.done("task")
	return s.Store.CreateTask(ctx, userID, in)
}

func (s *staggered) CreateHabit(ctx context.Context, userID string, in backend.NewHabit) (backend.Habit, error) {
	defer close(s.fastDone)
	s.done("habit")
	return s.Store.CreateHabit(ctx, userID, in)
}

func (s *staggered) done(what string) {
	s.mu.Lock()
	s.finished = append(s.finished, what)
	s.mu.Unlock()
}

func TestRespondKeepsRequestOrderUnderStaggeredLatency(t *testing.T) {
	reg, err := tools.FromPreset(tools.PresetMinimal)
	require.NoError(t, err)
	slow := &staggered{Store: memory.New(), fastDone: make(chan struct{})}
	f := buildFixture(reg, slow.Store, backend.Services{Tasks: slow, Habits: slow}, Options{},
		mock.ToolCalls(
			llm.ToolCall{ID: "A", Name: "create_task", Arguments: `{"title":"slow"}`},
			llm.ToolCall{ID: "B", Name: "create_habit", Arguments: `{"title":"fast","frequency":"WEEKLY"}`},
		),
		mock.Text("done"),
	)

	var seen []string
	_, err = f.orch.RespondWithHooks(context.Background(), []llm.Message{llm.UserMessage("go")}, alice, Hooks{
		ToolResult: func(r tools.Result) { seen = append(seen, r.ToolCallID) },
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"habit", "task"}, slow.finished)
	assert.Equal(t, []string{"A", "B"}, seen)

	tms := toolMessages(f.adapter.Requests()[1].Messages)
	require.Len(t, tms, 2)
	assert.Equal(t, "A", tms[0].ToolCallID)
	assert.Equal(t, "B", tms[1].ToolCallID)
}

func TestRespondModelFailures(t *testing.T) {
	cases := []struct {
		name   string
		script []mock.Step
		rounds int
	}{
		{"round one", []mock.Step{mock.Fail(errors.New("connection refused"))}, 1},
		{"round two", []mock.Step{
			mock.ToolCalls(llm.ToolCall{ID: "c1", Name: "get_pending_tasks"}),
			mock.Fail(errors.New("connection refused")),
		}, 2},
		{"rate limited", []mock.Step{mock.Fail(resilience.RateLimitError{Provider: "openai", Message: "connection refused"})}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, tools.PresetMinimal, tc.script...)
			reply, err := f.orch.Respond(context.Background(), []llm.Message{llm.UserMessage("hi")}, alice)
			require.Error(t, err)
			assert.True(t, errorsx.HasReason(err, errorsx.ReasonAIService))
			assert.Contains(t, err.Error(), "connection refused")
			assert.Equal(t, tc.rounds, reply.Rounds)
			assert.Len(t, f.obs.Named(metrics.EventTurnFailed), 1)
			assert.Equal(t, tc.rounds, f.adapter.Calls(), "no retries")
		})
	}
}

func TestRespondTurnTimeout(t *testing.T) {
	reg, err := tools.FromPreset(tools.PresetMinimal)
	require.NoError(t, err)
	store := memory.New()
	f := buildFixture(reg, store, backend.FromStore(store), Options{TurnTimeout: 20 * time.Millisecond},
		mock.Step{Response: llm.Response{Text: "late"}, Delay: time.Second})

	_, err = f.orch.Respond(context.Background(), []llm.Message{llm.UserMessage("hi")}, alice)
	require.Error(t, err)
	assert.True(t, errorsx.HasReason(err, errorsx.ReasonAIService))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRespondCancelledDuringTools(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := newFixture(t, tools.PresetMinimal,
		mock.ToolCalls(llm.ToolCall{ID: "c1", Name: "create_task", Arguments: `{"title":"x"}`}),
		mock.Text("unreachable"),
	)
	_, err := f.orch.RespondWithHooks(ctx, []llm.Message{llm.UserMessage("hi")}, alice, Hooks{
		ToolResult: func(tools.Result) { cancel() },
	})
	require.Error(t, err)
	assert.True(t, errorsx.HasReason(err, errorsx.ReasonAIService))
	assert.Equal(t, 1, f.adapter.Calls())
}

func TestRespondStateTransitions(t *testing.T) {
	var mu sync.Mutex
	var states []turn.State
	listener := turn.ListenerFunc(func(ev turn.StateChange) {
		mu.Lock()
		states = append(states, ev.ToState)
		mu.Unlock()
	})
	reg, err := tools.FromPreset(tools.PresetMinimal)
	require.NoError(t, err)
	store := memory.New()
	f := buildFixture(reg, store, backend.FromStore(store), Options{Listeners: []turn.StateListener{listener}},
		mock.ToolCalls(llm.ToolCall{ID: "c1", Name: "get_pending_tasks"}),
		mock.Text("none pending"),
		mock.Text("hello"),
	)

	_, err = f.orch.Respond(context.Background(), []llm.Message{llm.UserMessage("pending?")}, alice)
	require.NoError(t, err)
	assert.Equal(t, []turn.State{
		turn.StateAwaitingModelRound1,
		turn.StateAwaitingToolExecution,
		turn.StateAwaitingModelRound2,
		turn.StateDone,
	}, states)

	states = nil
	_, err = f.orch.Respond(context.Background(), []llm.Message{llm.UserMessage("hi")}, alice)
	require.NoError(t, err)
	assert.Equal(t, []turn.State{turn.StateAwaitingModelRound1, turn.StateDone}, states)
}

func TestRespondRecordsMetricsAndUsage(t *testing.T) {
	first := mock.ToolCalls(llm.ToolCall{ID: "c1", Name: "get_pending_tasks"})
	first.Response.Usage = llm.Usage{PromptTokens: 10, CompletionTokens: 2, TotalTokens: 12}
	second := mock.Text("nothing pending")
	second.Response.Usage = llm.Usage{PromptTokens: 20, CompletionTokens: 3, TotalTokens: 23}
	f := newFixture(t, tools.PresetMinimal, first, second)

	reply, err := f.orch.Respond(context.Background(), []llm.Message{llm.UserMessage("pending?")}, alice)
	require.NoError(t, err)
	assert.Equal(t, llm.Usage{PromptTokens: 30, CompletionTokens: 5, TotalTokens: 35}, reply.Usage)

	rounds := f.obs.Named(metrics.EventModelRound)
	require.Len(t, rounds, 2)
	assert.Equal(t, "1", rounds[0].Tags["round"])
	assert.Equal(t, "2", rounds[1].Tags["round"])
	completed := f.obs.Named(metrics.EventTurnCompleted)
	require.Len(t, completed, 1)
	assert.Equal(t, "2", completed[0].Tags["rounds"])
}

func TestRespondConcurrentTurnsAreIndependent(t *testing.T) {
	reg, err := tools.FromPreset(tools.PresetMinimal)
	require.NoError(t, err)
	store := memory.New()
	// unscripted mock echoes the last user message
	f := buildFixture(reg, store, backend.FromStore(store), Options{})

	var wg sync.WaitGroup
	replies := make([]string, 8)
	for i := range replies {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := f.orch.Respond(context.Background(), []llm.Message{llm.UserMessage(fmt.Sprintf("q%d", i))}, alice)
			if err == nil {
				replies[i] = r.Text
			}
		}(i)
	}
	wg.Wait()
	for i, r := range replies {
		assert.Equal(t, fmt.Sprintf("mock reply to: q%d", i), r)
	}
}
