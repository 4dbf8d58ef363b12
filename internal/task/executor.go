package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v4"

	"github.com/palettekit/palette-api/internal/domain"
	"github.com/palettekit/palette-api/internal/generation"
)

// DefaultUnitTimeout is the hard per-unit time budget applied to each work
// unit independently of its siblings.
const DefaultUnitTimeout = 120 * time.Second

// Executor runs one work unit: render the base concept in the spec's palette
// and persist the result. It never lets a fault escape its boundary; every
// failure mode, panics included, is mapped into a failed Outcome with a
// classified reason. On failure no partial artifact is left persisted.
type Executor struct {
	renderer  generation.PaletteRenderer
	artifacts ArtifactStore
	timeout   time.Duration
	logger    *slog.Logger
}

// NewExecutor creates an Executor with the given per-unit timeout. A
// non-positive timeout falls back to DefaultUnitTimeout.
func NewExecutor(
	renderer generation.PaletteRenderer,
	artifacts ArtifactStore,
	timeout time.Duration,
	logger *slog.Logger,
) *Executor {
	if timeout <= 0 {
		timeout = DefaultUnitTimeout
	}
	return &Executor{
		renderer:  renderer,
		artifacts: artifacts,
		timeout:   timeout,
		logger:    logger.With("component", "work_unit_executor"),
	}
}

// Run executes one work specification under the executor's deadline and
// returns its Outcome. The deadline covers the whole
// render-then-persist sequence; expiring mid-flight converts the unit into a
// failed outcome with reason timeout without affecting sibling units.
func (e *Executor) Run(ctx context.Context, spec WorkSpec) (out Outcome) {
	start := time.Now()
	out = Outcome{Index: spec.Index, PaletteName: spec.Palette.Name}

	logger := e.logger.With(
		"task_id", spec.TaskID,
		"palette", spec.Palette.Name,
		"unit_index", spec.Index,
	)

	defer func() {
		out.Duration = time.Since(start)
		if r := recover(); r != nil {
			out.Succeeded = false
			out.Reason = ReasonUnknown
			out.Err = fmt.Errorf("work unit panicked: %v", r)
			logger.Error("work unit panicked", "panic", r)
		}
	}()

	unitCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	image, err := e.renderer.RenderPalette(unitCtx, spec.Base, spec.Palette)
	if err != nil {
		out.Reason = classify(unitCtx, err, ReasonUpstreamError)
		out.Err = fmt.Errorf("render palette %q: %w", spec.Palette.Name, err)
		logger.Warn("palette rendering failed", "reason", out.Reason, "error", err)
		return out
	}

	variation := &domain.PaletteVariation{
		ID:          uuid.New(),
		TaskID:      spec.TaskID,
		PaletteName: spec.Palette.Name,
		StorageKey:  shortuuid.New(),
		Image:       image,
		CreatedAt:   time.Now().UTC(),
	}

	if err := e.artifacts.SaveVariation(unitCtx, variation); err != nil {
		// Cleanup-on-abort: the save may have partially applied before the
		// deadline hit; make sure nothing persisted survives. Runs on a
		// context detached from the expired unit deadline.
		if delErr := e.artifacts.DeleteVariation(context.WithoutCancel(ctx), variation.ID); delErr != nil {
			logger.Warn("failed to clean up partial variation", "error", delErr)
		}

		out.Reason = classify(unitCtx, err, ReasonStorageError)
		out.Err = fmt.Errorf("persist variation %q: %w", spec.Palette.Name, err)
		logger.Warn("variation persistence failed", "reason", out.Reason, "error", err)
		return out
	}

	out.Succeeded = true
	out.VariationID = variation.ID
	logger.Info("work unit completed",
		"variation_id", variation.ID,
		"duration_ms", time.Since(start).Milliseconds())
	return out
}

// classify maps an error from a work unit step to a failure reason. A blown
// unit deadline always wins over the step-specific reason.
func classify(unitCtx context.Context, err error, fallback FailureReason) FailureReason {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(unitCtx.Err(), context.DeadlineExceeded) {
		return ReasonTimeout
	}
	return fallback
}
