package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestConcurrencyCeiling(t *testing.T) {
	ctx := context.Background()
	p := New(Config{Size: 2})

	var running, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		err := p.Submit(ctx, func(context.Context) {
			defer wg.Done()
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			running.Add(-1)
		})
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	wg.Wait()

	if got := peak.Load(); got > 2 {
		t.Fatalf("peak concurrency = %d, want <= 2", got)
	}
}

func TestSubmitBlocksRespectsContext(t *testing.T) {
	p := New(Config{Size: 1})
	release := make(chan struct{})
	defer close(release)

	if err := p.Submit(context.Background(), func(context.Context) { <-release }); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := p.Submit(ctx, func(context.Context) {})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("saturated Submit err = %v, want DeadlineExceeded", err)
	}
}

func TestFuture(t *testing.T) {
	ctx := context.Background()
	p := New(Config{Size: 2})

	f, err := Submit(ctx, p, func(context.Context) (int, error) { return 42, nil })
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	v, err := f.Wait(ctx)
	if err != nil || v != 42 {
		t.Fatalf("Wait = (%d, %v), want (42, nil)", v, err)
	}

	boom := errors.New("boom")
	f2, err := Submit(ctx, p, func(context.Context) (int, error) { return 0, boom })
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := f2.Wait(ctx); !errors.Is(err, boom) {
		t.Fatalf("Wait err = %v, want boom", err)
	}
}

func TestFutureWaitHonorsContext(t *testing.T) {
	p := New(Config{Size: 1})
	release := make(chan struct{})
	defer close(release)

	f, err := Submit(context.Background(), p, func(context.Context) (int, error) {
		<-release
		return 1, nil
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := f.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait err = %v, want DeadlineExceeded", err)
	}
}

func TestShutdownDrainsAndRejects(t *testing.T) {
	ctx := context.Background()
	p := New(Config{Size: 4})

	var finished atomic.Int32
	for i := 0; i < 4; i++ {
		err := p.Submit(ctx, func(context.Context) {
			time.Sleep(20 * time.Millisecond)
			finished.Add(1)
		})
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	if err := p.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if got := finished.Load(); got != 4 {
		t.Fatalf("Shutdown returned before draining: finished=%d", got)
	}

	if err := p.Submit(ctx, func(context.Context) {}); !errors.Is(err, ErrShutdown) {
		t.Fatalf("Submit after Shutdown err = %v, want ErrShutdown", err)
	}
}

func TestShutdownIdempotent(t *testing.T) {
	ctx := context.Background()
	p := New(Config{Size: 1})
	if err := p.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := p.Shutdown(ctx); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
}

func TestDefaultSingleton(t *testing.T) {
	a := Default()
	b := Default()
	if a != b {
		t.Fatalf("Default returned distinct pools")
	}
	if a.Size() <= 0 {
		t.Fatalf("default pool size = %d", a.Size())
	}
}
