package scan

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// DefaultConcurrency is the admission gate capacity: the maximum number of
// probes in flight at once.
const DefaultConcurrency = 1000

// Limiter is a counting admission gate for in-flight probes. Any number of
// units of work may be queued on Acquire; at most Capacity hold a slot at
// once. The count can neither go negative nor exceed the capacity.
type Limiter struct {
	sem      *semaphore.Weighted
	capacity int
}

// NewLimiter creates a limiter with the given capacity.
func NewLimiter(capacity int) *Limiter {
	if capacity <= 0 {
		capacity = DefaultConcurrency
	}
	return &Limiter{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: capacity,
	}
}

// Acquire blocks until a slot is available. There is no acquire-side
// timeout: a caller waits as long as it takes, unless ctx is cancelled.
func (l *Limiter) Acquire(ctx context.Context) error {
	return l.sem.Acquire(ctx, 1)
}

// Release returns one slot. Callers pair every successful Acquire with
// exactly one Release, normally via defer.
func (l *Limiter) Release() {
	l.sem.Release(1)
}

// Capacity returns the configured slot count.
func (l *Limiter) Capacity() int {
	return l.capacity
}
