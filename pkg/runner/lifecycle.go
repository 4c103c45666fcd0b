package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

var ErrDrainTimeout = errors.New("drain timeout")

type Options struct {
	Hooks Hooks
	// DrainTimeout bounds graceful shutdown. Zero means 10s.
	DrainTimeout time.Duration
	// Banner receives the startup banner; nil disables it.
	Banner io.Writer
	Color  bool
}

type LifecycleRunner struct {
	state    int32
	service  Service
	opts     Options
	cancel   context.CancelFunc
	mu       sync.Mutex
	onceStop sync.Once
	stopErr  error
}

func NewLifecycleRunner(service Service, opts Options) *LifecycleRunner {
	if opts.DrainTimeout <= 0 {
		opts.DrainTimeout = 10 * time.Second
	}
	return &LifecycleRunner{state: int32(StateNew), service: service, opts: opts}
}

// Run serves until ctx is done, Stop is called or the service fails, then drains.
func (r *LifecycleRunner) Run(ctx context.Context) error {
	if !r.casState(StateNew, StateStarting) {
		return fmt.Errorf("runner: cannot start from state %s", r.State())
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()
	defer cancel()

	PrintBanner(r.opts.Banner, r.opts.Color)
	if r.opts.Hooks.OnStart != nil {
		r.opts.Hooks.OnStart()
	}

	served := make(chan error, 1)
	go func() { served <- r.service.Serve() }()
	r.setState(StateRunning)

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-served:
	}
	stopErr := r.stop()
	if serveErr != nil {
		return serveErr
	}
	return stopErr
}

func (r *LifecycleRunner) Stop() error {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return r.stop()
}

func (r *LifecycleRunner) State() State {
	return State(atomic.LoadInt32(&r.state))
}

func (r *LifecycleRunner) stop() error {
	r.onceStop.Do(func() {
		r.setState(StateDraining)
		ctx, cancel := context.WithTimeout(context.Background(), r.opts.DrainTimeout)
		defer cancel()
		if err := r.service.Drain(ctx); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				err = ErrDrainTimeout
			}
			r.stopErr = err
		}
		if r.opts.Hooks.OnStop != nil {
			r.opts.Hooks.OnStop()
		}
		r.setState(StateStopped)
	})
	return r.stopErr
}

func (r *LifecycleRunner) casState(from, to State) bool {
	return atomic.CompareAndSwapInt32(&r.state, int32(from), int32(to))
}

func (r *LifecycleRunner) setState(s State) {
	atomic.StoreInt32(&r.state, int32(s))
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
