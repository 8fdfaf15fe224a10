package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrGateClosed is returned by Do after Shutdown.
var ErrGateClosed = errors.New("gate closed")

// Gate bounds how many pipelines run at once. Callers block until a slot
// is free and then run synchronously in their own goroutine.
type Gate struct {
	logger  *slog.Logger
	size    int64
	timeout time.Duration
	sem     *semaphore.Weighted

	mu       sync.RWMutex
	closed   bool
	inflight atomic.Int64
}

type Option func(*Gate)

func WithMaxConcurrent(n int) Option {
	return func(g *Gate) {
		if n > 0 {
			g.size = int64(n)
		}
	}
}

// WithTimeout bounds each run, including the wait for a slot.
func WithTimeout(d time.Duration) Option {
	return func(g *Gate) {
		if d > 0 {
			g.timeout = d
		}
	}
}

func NewGate(logger *slog.Logger, opts ...Option) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gate{
		logger:  logger,
		size:    4,
		timeout: 4 * time.Minute,
	}
	for _, o := range opts {
		o(g)
	}
	g.sem = semaphore.NewWeighted(g.size)
	return g
}

// Do waits for a slot and runs fn with a context bounded by the gate timeout.
func (g *Gate) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	g.mu.RLock()
	closed := g.closed
	g.mu.RUnlock()
	if closed {
		return ErrGateClosed
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	if err := g.sem.Acquire(ctx, 1); err != nil {
		g.logger.Warn("gate.acquire.failed", "error", err, "waited_ms", time.Since(start).Milliseconds())
		return err
	}
	defer g.sem.Release(1)

	n := g.inflight.Add(1)
	defer g.inflight.Add(-1)
	if wait := time.Since(start); wait > 100*time.Millisecond {
		g.logger.Info("gate.acquired", "waited_ms", wait.Milliseconds(), "inflight", n)
	}
	return fn(ctx)
}

// InFlight is the number of runs currently holding a slot.
func (g *Gate) InFlight() int {
	return int(g.inflight.Load())
}

// Shutdown rejects new runs and waits for in-flight ones to finish.
func (g *Gate) Shutdown(ctx context.Context) error {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()

	if err := g.sem.Acquire(ctx, g.size); err != nil {
		g.logger.Warn("gate.shutdown.timeout", "inflight", g.InFlight())
		return err
	}
	g.sem.Release(g.size)
	g.logger.Info("gate.shutdown.done")
	return nil
}
