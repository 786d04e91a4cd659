package resilience

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// Bulkhead caps how many admitted calls a Manager runs at once. A call that
// finds every slot taken waits up to MaxWait, or fails immediately when
// MaxWait is zero.
type Bulkhead struct {
	slots    chan struct{}
	maxWait  time.Duration
	rejected atomic.Int64
}

// NewBulkhead creates a bulkhead with config.MaxConcurrent slots.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	size := config.MaxConcurrent
	if size <= 0 {
		size = defaultBulkheadSize
	}
	return &Bulkhead{
		slots:   make(chan struct{}, size),
		maxWait: config.MaxWait,
	}
}

// TryAcquire takes a slot without waiting.
func (b *Bulkhead) TryAcquire() bool {
	select {
	case b.slots <- struct{}{}:
		return true
	default:
		return false
	}
}

// Acquire takes a slot, waiting up to MaxWait. It returns ErrBulkheadFull,
// an error wrapping ErrBulkheadTimeout, or ctx.Err(). Every nil return must
// be paired with Release.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	if b.TryAcquire() {
		return nil
	}
	if b.maxWait <= 0 {
		b.rejected.Add(1)
		return ErrBulkheadFull
	}

	timer := time.NewTimer(b.maxWait)
	defer timer.Stop()

	select {
	case b.slots <- struct{}{}:
		return nil
	case <-timer.C:
		b.rejected.Add(1)
		return fmt.Errorf("%w after %s", ErrBulkheadTimeout, b.maxWait)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a slot taken by Acquire or TryAcquire.
func (b *Bulkhead) Release() {
	select {
	case <-b.slots:
	default:
		panic("resilience: Bulkhead.Release without Acquire")
	}
}

// Do runs fn inside a slot.
func (b *Bulkhead) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := b.Acquire(ctx); err != nil {
		return err
	}
	defer b.Release()
	return fn(ctx)
}

// InUse returns the number of occupied slots.
func (b *Bulkhead) InUse() int { return len(b.slots) }

// Available returns the number of free slots.
func (b *Bulkhead) Available() int { return cap(b.slots) - len(b.slots) }

// MaxConcurrent returns the slot count.
func (b *Bulkhead) MaxConcurrent() int { return cap(b.slots) }

// Rejected returns how many acquisitions failed for lack of a slot.
func (b *Bulkhead) Rejected() int64 { return b.rejected.Load() }
