package runner

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	stop     chan struct{}
	stopOnce sync.Once
	serveErr error
	drainFor time.Duration
	drained  bool
}

func newFake() *fakeService { return &fakeService{stop: make(chan struct{})} }

// release unblocks Serve; safe to call more than once.
func (f *fakeService) release() { f.stopOnce.Do(func() { close(f.stop) }) }

func (f *fakeService) Serve() error {
	if f.serveErr != nil {
		return f.serveErr
	}
	<-f.stop
	return nil
}

func (f *fakeService) Drain(ctx context.Context) error {
	f.drained = true
	select {
	case <-time.After(f.drainFor):
		f.release()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	svc := newFake()
	var started, stopped bool
	r := NewLifecycleRunner(svc, Options{Hooks: Hooks{
		OnStart: func() { started = true },
		OnStop:  func() { stopped = true },
	}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	require.Eventually(t, func() bool { return r.State() == StateRunning }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.True(t, started)
	assert.True(t, stopped)
	assert.True(t, svc.drained)
	assert.Equal(t, StateStopped, r.State())
}

func TestRunReturnsServeError(t *testing.T) {
	svc := newFake()
	svc.serveErr = errors.New("address already in use")
	r := NewLifecycleRunner(svc, Options{})
	err := r.Run(context.Background())
	assert.EqualError(t, err, "address already in use")
	assert.True(t, svc.drained)
	assert.Equal(t, StateStopped, r.State())
}

func TestReleaseIsIdempotent(t *testing.T) {
	svc := newFake()
	svc.release()
	assert.NotPanics(t, svc.release)
	require.NoError(t, svc.Drain(context.Background()))
	assert.NoError(t, svc.Serve())
}

func TestDrainTimeout(t *testing.T) {
	svc := newFake()
	svc.drainFor = time.Second
	t.Cleanup(svc.release)
	r := NewLifecycleRunner(svc, Options{DrainTimeout: 10 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, r.Run(ctx), ErrDrainTimeout)
}

func TestRunTwiceFails(t *testing.T) {
	svc := newFake()
	r := NewLifecycleRunner(svc, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, r.Run(ctx))
	assert.Error(t, r.Run(context.Background()))
}

func TestBannerIsWritten(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, false)
	assert.Contains(t, buf.String(), "Version: dev")
	PrintBanner(nil, false)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "draining", StateDraining.String())
	assert.Equal(t, "unknown", State(42).String())
}
