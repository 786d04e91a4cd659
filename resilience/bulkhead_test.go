package resilience

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// hold occupies one slot of b until the returned func is called.
func hold(t *testing.T, b *Bulkhead) func() {
	t.Helper()
	if !b.TryAcquire() {
		t.Fatal("expected a free slot")
	}
	return b.Release
}

func TestBulkhead_ConcurrencyNeverExceedsLimit(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{Enabled: true, MaxConcurrent: 3, MaxWait: time.Second})

	var current, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := b.Do(context.Background(), func(context.Context) error {
				n := current.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				current.Add(-1)
				return nil
			})
			if err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		}()
	}
	wg.Wait()

	if peak.Load() > 3 {
		t.Errorf("expected at most 3 concurrent calls, saw %d", peak.Load())
	}
	if b.InUse() != 0 || b.Available() != 3 {
		t.Errorf("expected all slots free, in use %d available %d", b.InUse(), b.Available())
	}
}

func TestBulkhead_RejectsWhenFull(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{Enabled: true, MaxConcurrent: 1})
	defer hold(t, b)()

	err := b.Acquire(context.Background())
	if !errors.Is(err, ErrBulkheadFull) {
		t.Errorf("expected ErrBulkheadFull, got %v", err)
	}
	if b.Rejected() != 1 {
		t.Errorf("expected 1 rejection, got %d", b.Rejected())
	}
}

func TestBulkhead_TimesOutWaiting(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{Enabled: true, MaxConcurrent: 1, MaxWait: 10 * time.Millisecond})
	defer hold(t, b)()

	start := time.Now()
	err := b.Acquire(context.Background())
	if !errors.Is(err, ErrBulkheadTimeout) {
		t.Fatalf("expected ErrBulkheadTimeout, got %v", err)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Error("expected to wait MaxWait before giving up")
	}
}

func TestBulkhead_WaitsForSlot(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{Enabled: true, MaxConcurrent: 1, MaxWait: time.Second})
	release := hold(t, b)
	time.AfterFunc(20*time.Millisecond, release)

	if err := b.Acquire(context.Background()); err != nil {
		t.Fatalf("expected slot after wait, got %v", err)
	}
	b.Release()
}

func TestBulkhead_ContextCancelWhileWaiting(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{Enabled: true, MaxConcurrent: 1, MaxWait: time.Second})
	defer hold(t, b)()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := b.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if b.Rejected() != 0 {
		t.Errorf("cancellation should not count as a rejection, got %d", b.Rejected())
	}
}

func TestBulkhead_DefaultSize(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{Enabled: true})
	if b.MaxConcurrent() != defaultBulkheadSize {
		t.Errorf("expected default size %d, got %d", defaultBulkheadSize, b.MaxConcurrent())
	}
}
