package task

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_ConcurrencyBound(t *testing.T) {
	t.Parallel()

	const capacity = 3
	const units = 20

	limiter := NewLimiter(capacity)
	var wg sync.WaitGroup

	for i := 0; i < units; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, limiter.Acquire(context.Background()))
			defer limiter.Release()
			time.Sleep(5 * time.Millisecond)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, limiter.Peak(), capacity,
		"at no point may more than C units hold a slot simultaneously")
	assert.Equal(t, 0, limiter.InFlight())
}

func TestLimiter_Run_ReleasesOnPanic(t *testing.T) {
	t.Parallel()

	limiter := NewLimiter(1)

	assert.Panics(t, func() {
		_ = limiter.Run(context.Background(), func() error {
			panic("unit blew up")
		})
	})

	// The slot must be free again despite the panic.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, limiter.Acquire(ctx))
	limiter.Release()
}

func TestLimiter_Acquire_CancelledWhileWaiting(t *testing.T) {
	t.Parallel()

	limiter := NewLimiter(1)
	require.NoError(t, limiter.Acquire(context.Background()))
	defer limiter.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := limiter.Acquire(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, 1, limiter.Peak())
}

func TestLimiter_ClampsInvalidCapacity(t *testing.T) {
	t.Parallel()

	limiter := NewLimiter(0)
	assert.Equal(t, 1, limiter.Capacity())
}

func TestLimiter_Withholding(t *testing.T) {
	t.Parallel()

	limiter := NewLimiter(3)

	assert.EqualValues(t, 2, limiter.setWithheld(2))
	assert.Equal(t, 2, limiter.Withheld())

	// Only one admittable slot remains.
	require.NoError(t, limiter.Acquire(context.Background()))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, limiter.Acquire(ctx))

	// Restoring makes the withheld permits admittable again.
	limiter.setWithheld(0)
	require.NoError(t, limiter.Acquire(context.Background()))
	limiter.Release()
	limiter.Release()
}

func TestLimiter_WithholdNeverClosesTheGate(t *testing.T) {
	t.Parallel()

	limiter := NewLimiter(2)

	// Asking for more than capacity-1 still leaves one admittable slot.
	assert.EqualValues(t, 1, limiter.setWithheld(10))
	require.NoError(t, limiter.Acquire(context.Background()))
	limiter.Release()
}

func TestLimiter_WithholdIsOpportunistic(t *testing.T) {
	t.Parallel()

	limiter := NewLimiter(2)
	require.NoError(t, limiter.Acquire(context.Background()))
	require.NoError(t, limiter.Acquire(context.Background()))

	// All permits are held by running units; nothing can be withheld now.
	assert.EqualValues(t, 0, limiter.setWithheld(1))

	limiter.Release()
	assert.EqualValues(t, 1, limiter.setWithheld(1))
	limiter.Release()
}
