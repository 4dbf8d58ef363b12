package task

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Limiter bounds how many work units run simultaneously. It is an explicit,
// injectable object rather than a process-wide singleton so tests can
// instantiate isolated limiters and assert peak concurrency deterministically.
//
// The in-flight and peak counters only track successful acquisitions, so the
// peak is an exact upper bound on observed concurrency.
type Limiter struct {
	sem      *semaphore.Weighted
	capacity int64

	mu       sync.Mutex
	inFlight int
	peak     int
	withheld int64
}

// NewLimiter creates a Limiter that admits at most capacity concurrent
// holders. A capacity below 1 is clamped to 1.
func NewLimiter(capacity int) *Limiter {
	if capacity < 1 {
		capacity = 1
	}
	return &Limiter{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: int64(capacity),
	}
}

// Acquire blocks until a slot is available or the context is cancelled.
// Every successful Acquire must be paired with exactly one Release.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	l.mu.Lock()
	l.inFlight++
	if l.inFlight > l.peak {
		l.peak = l.inFlight
	}
	l.mu.Unlock()
	return nil
}

// Release returns a previously acquired slot.
func (l *Limiter) Release() {
	l.mu.Lock()
	l.inFlight--
	l.mu.Unlock()
	l.sem.Release(1)
}

// Run acquires a slot, runs fn, and releases the slot on all exit paths,
// including a panic inside fn. Returns ctx.Err() if the context is cancelled
// while waiting for a slot.
func (l *Limiter) Run(ctx context.Context, fn func() error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn()
}

// Capacity returns the configured (non-adaptive) capacity.
func (l *Limiter) Capacity() int {
	return int(l.capacity)
}

// InFlight returns the number of currently held slots.
func (l *Limiter) InFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inFlight
}

// Peak returns the highest number of simultaneously held slots observed.
func (l *Limiter) Peak() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.peak
}

// setWithheld adjusts the number of permits withheld from circulation toward
// target, shrinking the limiter's effective capacity without changing the
// acquire/release protocol. Withholding is opportunistic: permits currently
// held by running units are never revoked, they just are not re-admitted
// until released. Returns the number of permits actually withheld.
func (l *Limiter) setWithheld(target int64) int64 {
	if target < 0 {
		target = 0
	}
	if target > l.capacity-1 {
		// Always leave at least one admittable slot.
		target = l.capacity - 1
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for l.withheld < target {
		if !l.sem.TryAcquire(1) {
			break
		}
		l.withheld++
	}
	for l.withheld > target {
		l.sem.Release(1)
		l.withheld--
	}
	return l.withheld
}

// Withheld returns the number of permits currently withheld by the governor.
func (l *Limiter) Withheld() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return int(l.withheld)
}
