package engine

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// Limiter bounds the number of logical operations in flight. Waiters are
// granted slots in FIFO order.
type Limiter struct {
	sem      *semaphore.Weighted
	capacity int
	inFlight atomic.Int64
	metrics  *metrics
}

// NewLimiter creates a Limiter with capacity slots. Capacity below 1 is
// treated as 1.
func NewLimiter(capacity int) *Limiter {
	if capacity < 1 {
		capacity = 1
	}
	return &Limiter{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: capacity,
	}
}

// Acquire blocks until a slot is free or ctx ends.
func (l *Limiter) Acquire(ctx context.Context) error {
	start := time.Now()
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	l.inFlight.Add(1)
	l.metrics.recordLimiterWait(ctx, time.Since(start))
	l.metrics.recordInFlight(ctx, 1)
	return nil
}

// Release returns a slot obtained by Acquire.
func (l *Limiter) Release() {
	l.inFlight.Add(-1)
	l.metrics.recordInFlight(context.Background(), -1)
	l.sem.Release(1)
}

// InFlight returns the number of held slots.
func (l *Limiter) InFlight() int {
	return int(l.inFlight.Load())
}

// Capacity returns the slot budget.
func (l *Limiter) Capacity() int {
	return l.capacity
}
