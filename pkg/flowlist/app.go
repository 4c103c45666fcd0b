// Package flowlist assembles the assistant service from configuration.
package flowlist

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/harunnryd/flowlist/pkg/assistant"
	"github.com/harunnryd/flowlist/pkg/auth"
	"github.com/harunnryd/flowlist/pkg/backend"
	"github.com/harunnryd/flowlist/pkg/llm"
	"github.com/harunnryd/flowlist/pkg/logging"
	"github.com/harunnryd/flowlist/pkg/metrics"
	"github.com/harunnryd/flowlist/pkg/observers"
	"github.com/harunnryd/flowlist/pkg/redact"
	"github.com/harunnryd/flowlist/pkg/store/memory"
	"github.com/harunnryd/flowlist/pkg/store/sqlite"
	"github.com/harunnryd/flowlist/pkg/tools"
	"github.com/harunnryd/flowlist/pkg/turn"
)

type Options struct {
	Config    Config
	Providers *ProviderRegistry
	Logger    *slog.Logger
	// Store and Adapter replace the configured ones when set.
	Store     backend.Store
	Adapter   llm.Adapter
	Observers []metrics.Observer
	Listeners []turn.StateListener
}

type App struct {
	cfg       Config
	logger    *slog.Logger
	store     backend.Store
	adapter   llm.Adapter
	registry  *tools.Registry
	executor  *tools.Executor
	assistant *assistant.Orchestrator
	resolver  auth.Resolver
	stats     *observers.StatsObserver

	asyncObs    *metrics.AsyncObserver
	metricsFile *os.File
	closeOnce   sync.Once
	closeErr    error
}

func New(opts Options) (*App, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	redact.SetEnabled(cfg.Privacy.RedactPII)

	logger := opts.Logger
	if logger == nil {
		logger = logging.InitLogger(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)
	}
	app := &App{cfg: cfg, logger: logger, stats: observers.NewStatsObserver()}

	registry, err := tools.FromSelection(cfg.Assistant.Tools)
	if err != nil {
		return nil, fmt.Errorf("assistant.tools: %w", err)
	}
	app.registry = registry

	obs, err := app.buildObserver(opts.Observers)
	if err != nil {
		return nil, err
	}

	app.store = opts.Store
	if app.store == nil {
		if app.store, err = openStore(cfg.Store); err != nil {
			app.Close()
			return nil, err
		}
	}

	app.adapter = opts.Adapter
	if app.adapter == nil {
		providers := opts.Providers
		if providers == nil {
			providers = DefaultProviders()
		}
		if app.adapter, err = providers.BuildLLM(cfg.Vendors.LLM.Provider, cfg); err != nil {
			app.Close()
			return nil, err
		}
	}
	if setter, ok := app.adapter.(interface{ SetObserver(metrics.Observer) }); ok {
		setter.SetObserver(obs)
	}

	app.executor = tools.NewExecutor(registry, backend.FromStore(app.store),
		tools.WithConcurrency(cfg.Assistant.ToolConcurrency),
		tools.WithLogger(logger),
		tools.WithObserver(obs),
	)
	app.assistant = assistant.New(app.adapter, app.executor, assistant.Options{
		Persona:        cfg.Assistant.Persona,
		MaxHistory:     cfg.Assistant.MaxHistory,
		TurnTimeout:    cfg.Assistant.TurnTimeout(),
		FallbackText:   cfg.Assistant.FallbackText,
		EmptyReplyText: cfg.Assistant.EmptyReplyText,
		Logger:         logger,
		Observer:       obs,
		Listeners:      opts.Listeners,
	})

	switch strings.ToLower(cfg.Auth.Mode) {
	case "token":
		app.resolver = auth.NewTokenResolver(cfg.Auth.TokenMap())
	default:
		app.resolver = auth.HeaderResolver{}
	}

	logger.Info("flowlist_init",
		"environment", cfg.Environment,
		"llm_provider", cfg.Vendors.LLM.Provider,
		"store_driver", cfg.Store.Driver,
		"auth_mode", cfg.Auth.Mode,
		"tools", registry.Len(),
		"max_history", cfg.Assistant.MaxHistory,
	)
	return app, nil
}

func (a *App) buildObserver(extra []metrics.Observer) (metrics.Observer, error) {
	list := []metrics.Observer{
		observers.NewLoggerObserver(logging.NewComponentLogger(a.logger, "metrics")),
	}
	list = append(list, extra...)
	if path := strings.TrimSpace(a.cfg.Observability.MetricsPath); path != "" {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("metrics dir: %w", err)
			}
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open metrics file: %w", err)
		}
		a.metricsFile = f
		list = append(list, metrics.NewJSONLObserver(f))
	}
	a.asyncObs = metrics.NewAsyncObserver(metrics.NewMultiObserver(list...), a.cfg.Observability.MetricsBuffer)
	// stats stay synchronous so a snapshot reflects every finished turn
	return metrics.NewMultiObserver(a.stats, a.asyncObs), nil
}

func openStore(cfg StoreConfig) (backend.Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "sqlite":
		s, err := sqlite.Open(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, nil
	case "memory", "":
		return memory.New(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

func (a *App) Config() Config                     { return a.cfg }
func (a *App) Logger() *slog.Logger               { return a.logger }
func (a *App) Assistant() *assistant.Orchestrator { return a.assistant }
func (a *App) Registry() *tools.Registry          { return a.registry }
func (a *App) Resolver() auth.Resolver            { return a.resolver }
func (a *App) Store() backend.Store               { return a.store }
func (a *App) Stats() observers.Stats             { return a.stats.Snapshot() }

// Close drains pending metrics, then releases the metrics file and the store.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		var errs []error
		if a.asyncObs != nil {
			a.asyncObs.Close()
			if n := a.asyncObs.Dropped(); n > 0 {
				a.logger.Warn("metrics_events_dropped", "count", n)
			}
		}
		if a.metricsFile != nil {
			errs = append(errs, a.metricsFile.Close())
		}
		if a.store != nil {
			errs = append(errs, a.store.Close())
		}
		a.closeErr = errors.Join(errs...)
	})
	return a.closeErr
}
