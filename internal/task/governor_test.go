package task

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPressureGovernor_Evaluate(t *testing.T) {
	t.Parallel()

	t.Run("reduces capacity above threshold and restores below", func(t *testing.T) {
		t.Parallel()

		limiter := NewLimiter(3)
		sampler := &fakeSampler{used: 50}
		cfg := GovernorConfig{ThresholdPercent: 85, MinCapacity: 1}
		governor := NewPressureGovernor(limiter, sampler, cfg, testLogger())

		governor.Evaluate(context.Background())
		assert.Equal(t, 0, limiter.Withheld())

		sampler.set(92)
		governor.Evaluate(context.Background())
		assert.Equal(t, 2, limiter.Withheld(), "effective capacity lowered to MinCapacity")

		sampler.set(60)
		governor.Evaluate(context.Background())
		assert.Equal(t, 0, limiter.Withheld(), "capacity restored once the signal clears")
	})

	t.Run("sampling failure keeps the previous decision", func(t *testing.T) {
		t.Parallel()

		limiter := NewLimiter(3)
		sampler := &fakeSampler{used: 95}
		governor := NewPressureGovernor(limiter, sampler, DefaultGovernorConfig(), testLogger())

		governor.Evaluate(context.Background())
		assert.Equal(t, 2, limiter.Withheld())

		sampler.mu.Lock()
		sampler.err = errors.New("proc unavailable")
		sampler.mu.Unlock()

		governor.Evaluate(context.Background())
		assert.Equal(t, 2, limiter.Withheld())
	})

	t.Run("min capacity clamped to one", func(t *testing.T) {
		t.Parallel()

		limiter := NewLimiter(2)
		sampler := &fakeSampler{used: 99}
		cfg := GovernorConfig{ThresholdPercent: 85, MinCapacity: 0}
		governor := NewPressureGovernor(limiter, sampler, cfg, testLogger())

		governor.Evaluate(context.Background())
		assert.Equal(t, 1, limiter.Withheld(), "one slot always stays admittable")
	})
}
