package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/harunnryd/flowlist/pkg/auth"
	"github.com/harunnryd/flowlist/pkg/backend"
	"github.com/harunnryd/flowlist/pkg/errorsx"
	"github.com/harunnryd/flowlist/pkg/llm"
	"github.com/harunnryd/flowlist/pkg/logging"
	"github.com/harunnryd/flowlist/pkg/metrics"
	"github.com/sourcegraph/conc/iter"
)

var errBackendUnavailable = errors.New("backend unavailable for this tool")

// Executor runs model-issued tool calls against the backend services. A failing
// call never aborts its batch; every outcome becomes a Result.
type Executor struct {
	registry    *Registry
	services    backend.Services
	concurrency int
	logger      *slog.Logger
	obs         metrics.Observer
	now         func() time.Time
}

type ExecutorOption func(*Executor)

// WithConcurrency bounds how many calls of one batch run at once.
func WithConcurrency(n int) ExecutorOption {
	return func(e *Executor) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

func WithLogger(l *slog.Logger) ExecutorOption {
	return func(e *Executor) { e.logger = logging.NewComponentLogger(l, "tools") }
}

func WithObserver(obs metrics.Observer) ExecutorOption {
	return func(e *Executor) { e.obs = metrics.OrNoop(obs) }
}

// WithClock overrides the time source used for habit completion.
func WithClock(now func() time.Time) ExecutorOption {
	return func(e *Executor) {
		if now != nil {
			e.now = now
		}
	}
}

func NewExecutor(registry *Registry, services backend.Services, opts ...ExecutorOption) *Executor {
	e := &Executor{
		registry:    registry,
		services:    services,
		concurrency: 4,
		logger:      logging.NewComponentLogger(nil, "tools"),
		obs:         metrics.NoopObserver{},
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Executor) Registry() *Registry { return e.registry }

// ExecuteBatch runs calls concurrently and returns one Result per call, in call order.
func (e *Executor) ExecuteBatch(ctx context.Context, user auth.Identity, calls []llm.ToolCall) []Result {
	if len(calls) == 0 {
		return nil
	}
	mapper := iter.Mapper[llm.ToolCall, Result]{MaxGoroutines: e.concurrency}
	return mapper.Map(calls, func(call *llm.ToolCall) Result {
		return e.Execute(ctx, user, *call)
	})
}

// Execute runs a single call.
func (e *Executor) Execute(ctx context.Context, user auth.Identity, call llm.ToolCall) (res Result) {
	start := time.Now()
	res = Result{ToolCallID: call.ID, ToolName: call.Name}
	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Error("tool_panic", "tool_name", call.Name, "panic", fmt.Sprint(rec), "stack", string(debug.Stack()))
			res.Payload = errorPayload("internal error")
			res.Err = errorsx.New(errorsx.ReasonToolFailed, fmt.Sprintf("panic: %v", rec))
		}
		e.record(res, time.Since(start))
	}()

	name, ok := ParseName(call.Name)
	if !ok || e.registry == nil || !e.registry.Has(name) {
		res.Payload = errorPayload("unknown tool")
		res.Err = errorsx.New(errorsx.ReasonUnknownTool, call.Name)
		return res
	}
	def, _ := e.registry.Lookup(name)

	args, err := parseArguments(def, call.Arguments)
	if err == nil {
		res.Payload, err = e.dispatch(ctx, user.UserID, name, args)
	}
	var argErr *ArgumentError
	switch {
	case err == nil:
	case errors.As(err, &argErr):
		res.Payload = map[string]any{"error": "malformed arguments", "detail": argErr.Detail}
		res.Err = errorsx.Wrap(err, errorsx.ReasonMalformedArguments)
	default:
		res.Payload = errorPayload(err.Error())
		res.Err = errorsx.Wrap(err, errorsx.ReasonToolFailed)
	}
	return res
}

// dispatch binds each tool to its backend action. Every known Name has a case.
func (e *Executor) dispatch(ctx context.Context, userID string, name Name, args map[string]any) (any, error) {
	tasks, habits, finance := e.services.Tasks, e.services.Habits, e.services.Finance

	switch name {
	case CreateTask:
		a, err := decode[CreateTaskArgs](name, args)
		if err != nil {
			return nil, err
		}
		if tasks == nil {
			return nil, errBackendUnavailable
		}
		t, err := tasks.CreateTask(ctx, userID, a.NewTask())
		if err != nil {
			return nil, err
		}
		return map[string]any{"success": "Task created!", "task": t}, nil

	case GetPendingTasks:
		if tasks == nil {
			return nil, errBackendUnavailable
		}
		all, err := tasks.ListTasks(ctx, userID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"tasks": backend.Pending(all)}, nil

	case CreateHabit:
		a, err := decode[CreateHabitArgs](name, args)
		if err != nil {
			return nil, err
		}
		if habits == nil {
			return nil, errBackendUnavailable
		}
		h, err := habits.CreateHabit(ctx, userID, backend.NewHabit{Title: a.Title, Frequency: backend.Frequency(a.Frequency)})
		if err != nil {
			return nil, err
		}
		return map[string]any{"success": "Habit created!", "habit": h}, nil

	case CompleteHabit:
		a, err := decode[CompleteHabitArgs](name, args)
		if err != nil {
			return nil, err
		}
		if habits == nil {
			return nil, errBackendUnavailable
		}
		h, err := habits.CompleteHabitToday(ctx, userID, a.HabitID, e.now())
		if err != nil {
			return nil, err
		}
		return map[string]any{"success": "Habit completed!", "habit": h}, nil

	case ListHabits:
		if habits == nil {
			return nil, errBackendUnavailable
		}
		hs, err := habits.ListHabits(ctx, userID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"habits": hs}, nil

	case AddTransaction:
		a, err := decode[AddTransactionArgs](name, args)
		if err != nil {
			return nil, err
		}
		if finance == nil {
			return nil, errBackendUnavailable
		}
		tx, err := finance.AddTransaction(ctx, userID, a.NewTransaction())
		if err != nil {
			return nil, err
		}
		return map[string]any{"success": "Transaction recorded!", "transaction": tx}, nil

	case GetFinancialStatus:
		if finance == nil {
			return nil, errBackendUnavailable
		}
		return finance.BalanceStatus(ctx, userID)

	case ListTransactions:
		a, err := decode[ListTransactionsArgs](name, args)
		if err != nil {
			return nil, err
		}
		if finance == nil {
			return nil, errBackendUnavailable
		}
		txs, err := finance.ListTransactions(ctx, userID)
		if err != nil {
			return nil, err
		}
		if a.Limit > 0 && len(txs) > a.Limit {
			txs = txs[:a.Limit]
		}
		return map[string]any{"transactions": txs}, nil

	case AddAccount:
		a, err := decode[AddAccountArgs](name, args)
		if err != nil {
			return nil, err
		}
		if finance == nil {
			return nil, errBackendUnavailable
		}
		acc, err := finance.AddAccount(ctx, userID, backend.NewAccount{
			Name:     a.Name,
			Type:     backend.AccountType(a.Type),
			Balance:  a.Balance,
			Currency: a.Currency,
		})
		if err != nil {
			return nil, err
		}
		return map[string]any{"success": "Account added!", "account": acc}, nil

	case ListAccounts:
		if finance == nil {
			return nil, errBackendUnavailable
		}
		accs, err := finance.ListAccounts(ctx, userID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"accounts": accs}, nil

	case GetNetWorth:
		if finance == nil {
			return nil, errBackendUnavailable
		}
		return finance.NetWorth(ctx, userID)

	case AddSavingsGoal:
		a, err := decode[AddSavingsGoalArgs](name, args)
		if err != nil {
			return nil, err
		}
		if finance == nil {
			return nil, errBackendUnavailable
		}
		g, err := finance.AddSavingsGoal(ctx, userID, backend.NewSavingsGoal{Name: a.Name, Target: a.Target, Deadline: a.deadline})
		if err != nil {
			return nil, err
		}
		return map[string]any{"success": "Savings goal created!", "goal": g}, nil

	case ListSavingsGoals:
		if finance == nil {
			return nil, errBackendUnavailable
		}
		gs, err := finance.ListSavingsGoals(ctx, userID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"goals": gs}, nil

	case UpdateSavingsGoal:
		a, err := decode[UpdateSavingsGoalArgs](name, args)
		if err != nil {
			return nil, err
		}
		if finance == nil {
			return nil, errBackendUnavailable
		}
		g, err := finance.UpdateSavingsGoal(ctx, userID, a.GoalID, a.Current)
		if err != nil {
			return nil, err
		}
		return map[string]any{"success": "Savings goal updated!", "goal": g}, nil

	default:
		return nil, fmt.Errorf("no handler bound for tool %q", name)
	}
}

func (e *Executor) record(res Result, elapsed time.Duration) {
	status := res.Status()
	if res.Err != nil {
		e.logger.Warn("tool_failed", "tool_name", res.ToolName, "tool_call_id", res.ToolCallID, "status", status, "error", res.Err.Error())
	} else {
		e.logger.Debug("tool_executed", "tool_name", res.ToolName, "tool_call_id", res.ToolCallID, "duration_ms", elapsed.Milliseconds())
	}
	e.obs.RecordEvent(metrics.MetricsEvent{
		Name:  metrics.EventToolResult,
		Time:  time.Now(),
		Value: float64(elapsed.Milliseconds()),
		Tags:  map[string]string{"tool_name": res.ToolName, "status": status},
	})
}
