package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"formini/internal/metrics"
)

const (
	// DefaultTimeout bounds a single background notification attempt.
	DefaultTimeout = 20 * time.Second
	// SyncTimeout bounds a notification the request handler waits for.
	SyncTimeout = 3 * time.Second
)

// Dispatcher runs notifications with their own timeout, logs and counts the
// outcome, and never returns the failure to the caller.
type Dispatcher struct {
	logger      *slog.Logger
	metrics     *metrics.Metrics
	timeout     time.Duration
	syncTimeout time.Duration
	wg          sync.WaitGroup
}

// NewDispatcher creates a dispatcher. m may be nil. Synchronous sends use
// the smaller of timeout and SyncTimeout.
func NewDispatcher(logger *slog.Logger, m *metrics.Metrics, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{logger: logger, metrics: m, timeout: timeout, syncTimeout: min(timeout, SyncTimeout)}
}

// WithSyncTimeout overrides the bound applied by Send.
func (d *Dispatcher) WithSyncTimeout(timeout time.Duration) *Dispatcher {
	if timeout > 0 {
		d.syncTimeout = timeout
	}
	return d
}

// Send runs fn synchronously and reports whether it succeeded. The caller
// waits at most the sync timeout.
func (d *Dispatcher) Send(ctx context.Context, kind string, fn func(context.Context) error) bool {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.syncTimeout)
	defer cancel()
	return d.run(ctx, kind, fn)
}

// Go runs fn in the background. Wait blocks until every background send ends.
func (d *Dispatcher) Go(ctx context.Context, kind string, fn func(context.Context) error) {
	base := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(base, d.timeout)
		defer cancel()
		d.run(ctx, kind, fn)
	}()
}

// Wait blocks until all background sends have finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) run(ctx context.Context, kind string, fn func(context.Context) error) bool {
	err := fn(ctx)
	d.metrics.Notification(kind, err)
	if err != nil {
		d.logger.WarnContext(ctx, "notification not delivered", "kind", kind, "error", err)
		return false
	}
	d.logger.DebugContext(ctx, "notification delivered", "kind", kind)
	return true
}
