package task

import (
	"context"
	"log/slog"
	"time"
)

// MemorySampler reports a process-wide memory pressure signal as a percentage
// of used memory. The production implementation lives in platform/sysinfo;
// tests inject a fake.
type MemorySampler interface {
	UsedPercent(ctx context.Context) (float64, error)
}

// GovernorConfig holds configuration for the adaptive capacity governor.
type GovernorConfig struct {
	// ThresholdPercent is the used-memory percentage above which effective
	// capacity is reduced.
	ThresholdPercent float64

	// MinCapacity is the effective capacity enforced while the signal is
	// above the threshold. Clamped to at least 1.
	MinCapacity int

	// SampleInterval defines how often the memory signal is sampled.
	// If zero, defaults to 15 seconds.
	SampleInterval time.Duration
}

// DefaultGovernorConfig returns a GovernorConfig with reasonable defaults.
func DefaultGovernorConfig() GovernorConfig {
	return GovernorConfig{
		ThresholdPercent: 85,
		MinCapacity:      1,
		SampleInterval:   15 * time.Second,
	}
}

// PressureGovernor lowers a Limiter's effective capacity while a process-wide
// memory signal is above a threshold, and restores it once the signal clears.
// It is a policy layered on top of the limiter's acquire/release contract:
// it withholds permits, it never revokes slots already held by running units.
type PressureGovernor struct {
	limiter *Limiter
	sampler MemorySampler
	config  GovernorConfig
	logger  *slog.Logger
}

// NewPressureGovernor creates a governor for the given limiter.
func NewPressureGovernor(
	limiter *Limiter,
	sampler MemorySampler,
	config GovernorConfig,
	logger *slog.Logger,
) *PressureGovernor {
	if config.SampleInterval <= 0 {
		config.SampleInterval = 15 * time.Second
	}
	if config.MinCapacity < 1 {
		config.MinCapacity = 1
	}
	return &PressureGovernor{
		limiter: limiter,
		sampler: sampler,
		config:  config,
		logger:  logger.With("component", "pressure_governor"),
	}
}

// Run samples the memory signal on a ticker until the context is cancelled.
// On shutdown all withheld permits are restored.
func (g *PressureGovernor) Run(ctx context.Context) {
	ticker := time.NewTicker(g.config.SampleInterval)
	defer ticker.Stop()
	defer g.limiter.setWithheld(0)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.Evaluate(ctx)
		}
	}
}

// Evaluate performs one sampling pass and adjusts the withheld permit count.
// Exported so tests can drive the governor without the ticker.
func (g *PressureGovernor) Evaluate(ctx context.Context) {
	used, err := g.sampler.UsedPercent(ctx)
	if err != nil {
		// A failed sample never changes capacity; the previous decision stands.
		g.logger.Warn("memory sampling failed", "error", err)
		return
	}

	var target int64
	if used >= g.config.ThresholdPercent {
		target = int64(g.limiter.Capacity() - g.config.MinCapacity)
	}

	before := g.limiter.Withheld()
	withheld := g.limiter.setWithheld(target)
	if int64(before) != withheld {
		g.logger.Info("adjusted effective concurrency",
			"used_percent", used,
			"threshold_percent", g.config.ThresholdPercent,
			"capacity", g.limiter.Capacity(),
			"withheld", withheld)
	}
}
