package main

import (
	"context"
	"os"

	"github.com/harunnryd/flowlist/pkg/configutil"
	"github.com/harunnryd/flowlist/pkg/runner"
	"github.com/harunnryd/flowlist/pkg/transports/httpapi"
)

// ServeCmd starts the HTTP server.
// Usage: flowlist serve --addr :8080
type ServeCmd struct {
	Addr     string `short:"a" long:"addr" description:"listen address, overrides server.addr"`
	NoBanner bool   `long:"no-banner" description:"skip the startup banner"`

	root *Options
}

func (s *ServeCmd) Execute(_ []string) error {
	app, err := s.root.loadApp()
	if err != nil {
		return err
	}
	cfg := app.Config()
	addr := cfg.Server.Addr
	if s.Addr != "" {
		addr = s.Addr
	}

	srv := httpapi.New(httpapi.Config{
		Addr:           addr,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		ReadTimeout:    configutil.Millis(cfg.Server.ReadTimeoutMS, 0),
		WriteTimeout:   configutil.Millis(cfg.Server.WriteTimeoutMS, 0),
	}, app.Assistant(), app.Resolver(), httpapi.Options{
		Logger: app.Logger(),
		Stats:  func() any { return app.Stats() },
	})

	opts := runner.Options{
		DrainTimeout: configutil.Millis(cfg.Server.ShutdownTimeoutMS, 0),
		Hooks: runner.Hooks{
			OnStart: func() { app.Logger().Info("flowlist_serving", "addr", addr) },
			OnStop: func() {
				if err := app.Close(); err != nil {
					app.Logger().Warn("flowlist_close_failed", "error", err)
				}
			},
		},
	}
	if !s.NoBanner {
		opts.Banner = os.Stdout
		opts.Color = true
	}

	ctx, stop := runner.SignalContext(context.Background())
	defer stop()
	return runner.NewLifecycleRunner(srv, opts).Run(ctx)
}
