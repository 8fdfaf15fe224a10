package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGate_BoundsConcurrency(t *testing.T) {
	g := NewGate(nil, WithMaxConcurrent(2))

	var running, peak atomic.Int32
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := g.Do(context.Background(), func(ctx context.Context) error {
				n := running.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				running.Add(-1)
				return nil
			})
			if err != nil {
				t.Errorf("Do: %v", err)
			}
		}()
	}
	wg.Wait()
	if p := peak.Load(); p > 2 || p == 0 {
		t.Errorf("peak concurrency = %d, want 1..2", p)
	}
}

func TestGate_PropagatesErrorAndTimeout(t *testing.T) {
	g := NewGate(nil, WithTimeout(20*time.Millisecond))

	boom := errors.New("boom")
	if err := g.Do(context.Background(), func(context.Context) error { return boom }); !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}

	err := g.Do(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestGate_WaitRespectsContext(t *testing.T) {
	g := NewGate(nil, WithMaxConcurrent(1))
	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = g.Do(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	called := false
	err := g.Do(ctx, func(context.Context) error { called = true; return nil })
	if !errors.Is(err, context.DeadlineExceeded) || called {
		t.Errorf("err = %v called = %v", err, called)
	}
	close(release)
}

func TestGate_Shutdown(t *testing.T) {
	g := NewGate(nil, WithMaxConcurrent(2))
	if err := g.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := g.Do(context.Background(), func(context.Context) error { return nil }); !errors.Is(err, ErrGateClosed) {
		t.Errorf("err = %v, want ErrGateClosed", err)
	}
}
