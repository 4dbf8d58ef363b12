package task

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v4"

	"github.com/palettekit/palette-api/internal/domain"
	"github.com/palettekit/palette-api/internal/events"
	"github.com/palettekit/palette-api/internal/generation"
	"github.com/palettekit/palette-api/internal/store"
)

// OrchestratorConfig holds configuration for the fan-out orchestrator.
type OrchestratorConfig struct {
	// UnitTimeout is the hard per-unit time budget. It also bounds the base
	// concept generation step. If zero, defaults to DefaultUnitTimeout.
	UnitTimeout time.Duration

	// HeartbeatInterval defines how often updated_at is bumped while the
	// task is processing, so the sweeper can tell "slow but alive" from
	// "dead". If zero, defaults to 30 seconds.
	HeartbeatInterval time.Duration
}

// DefaultOrchestratorConfig returns an OrchestratorConfig with reasonable defaults.
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		UnitTimeout:       DefaultUnitTimeout,
		HeartbeatInterval: 30 * time.Second,
	}
}

// Orchestrator turns one claimed task into N independently-processed work
// units and finalizes the task from their aggregate. A single orchestrator
// instance serves any number of tasks; per-task state lives on the stack of
// each Run call.
type Orchestrator struct {
	store     Store
	artifacts ArtifactStore
	concepts  generation.ConceptGenerator
	executor  *Executor
	limiter   *Limiter
	publisher events.StatusPublisher
	config    OrchestratorConfig
	logger    *slog.Logger
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(
	taskStore Store,
	artifacts ArtifactStore,
	concepts generation.ConceptGenerator,
	renderer generation.PaletteRenderer,
	limiter *Limiter,
	publisher events.StatusPublisher,
	config OrchestratorConfig,
	logger *slog.Logger,
) *Orchestrator {
	if config.UnitTimeout <= 0 {
		config.UnitTimeout = DefaultUnitTimeout
	}
	if config.HeartbeatInterval <= 0 {
		config.HeartbeatInterval = 30 * time.Second
	}
	return &Orchestrator{
		store:     taskStore,
		artifacts: artifacts,
		concepts:  concepts,
		executor:  NewExecutor(renderer, artifacts, config.UnitTimeout, logger),
		limiter:   limiter,
		publisher: publisher,
		config:    config,
		logger:    logger.With("component", "orchestrator"),
	}
}

// Run is the orchestration entry point for one task id. It claims the task,
// generates and persists the base concept, fans the palette renderings out
// through the limiter, waits for all of them, and finalizes the task from the
// aggregate: at least one successful unit means completed, zero means failed.
//
// Run returns ErrClaimConflict when the task was already claimed or finalized
// (benign, triggers may be delivered more than once) and a non-nil error only
// for an internal fault that prevented it from reaching finalization. In that
// case the task is intentionally left in processing for the sweeper to
// reconcile rather than attempting in-process recovery.
func (o *Orchestrator) Run(ctx context.Context, taskID uuid.UUID) error {
	logger := o.logger.With("task_id", taskID)

	claimed, err := o.store.ClaimTask(ctx, taskID)
	if store.IsConflictError(err) {
		logger.Debug("task already claimed or finalized, skipping")
		return ErrClaimConflict
	}
	if err != nil {
		return fmt.Errorf("claim task: %w", err)
	}

	logger.Info("task claimed", "owner", claimed.Owner)
	o.publish(ctx, claimed)

	// Heartbeat until finalization so the sweeper sees the task as alive.
	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go o.heartbeatLoop(hbCtx, taskID)

	meta, err := claimed.ParseMetadata()
	if err != nil {
		o.fail(ctx, claimed, fmt.Sprintf("invalid task metadata: %v", err))
		return nil
	}

	baseID, base, err := o.generateBase(ctx, claimed, meta)
	if err != nil {
		o.fail(ctx, claimed, fmt.Sprintf("base concept generation failed: %v", err))
		return nil
	}

	specs := deriveSpecs(claimed.ID, meta, base)
	outcomes := o.fanOut(ctx, specs)

	succeeded := 0
	for _, out := range outcomes {
		if out.Succeeded {
			succeeded++
		}
	}
	failed := len(outcomes) - succeeded

	if succeeded == 0 {
		o.fail(ctx, claimed, summarizeFailures(outcomes))
		return nil
	}

	// Partial failure is not fatal: the batch's business meaning only
	// requires the aggregate. The base artifact is the designated primary.
	err = o.store.CompleteTask(ctx, taskID, baseID)
	if store.IsConflictError(err) {
		logger.Warn("completion lost a finalization race, leaving terminal state untouched")
		return nil
	}
	if err != nil {
		return fmt.Errorf("complete task: %w", err)
	}

	logger.Info("task completed",
		"variations_succeeded", succeeded,
		"variations_failed", failed)

	claimed.Status = domain.TaskStatusCompleted
	claimed.ResultRef = uuid.NullUUID{UUID: baseID, Valid: true}
	o.publish(ctx, claimed)
	return nil
}

// generateBase produces and persists the base concept image under the same
// time budget as a regular work unit. The persisted variation is the
// distinguished primary artifact result_ref points at.
func (o *Orchestrator) generateBase(
	ctx context.Context,
	t *domain.Task,
	meta domain.TaskMetadata,
) (uuid.UUID, []byte, error) {
	unitCtx, cancel := context.WithTimeout(ctx, o.config.UnitTimeout)
	defer cancel()

	image, err := o.concepts.GenerateConcept(unitCtx, meta.Prompt)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("generate concept: %w", err)
	}

	variation := &domain.PaletteVariation{
		ID:          uuid.New(),
		TaskID:      t.ID,
		PaletteName: domain.BaseVariationName,
		StorageKey:  shortuuid.New(),
		Image:       image,
		CreatedAt:   time.Now().UTC(),
	}
	if err := o.artifacts.SaveVariation(unitCtx, variation); err != nil {
		if delErr := o.artifacts.DeleteVariation(context.WithoutCancel(ctx), variation.ID); delErr != nil {
			o.logger.Warn("failed to clean up partial base variation",
				"task_id", t.ID, "error", delErr)
		}
		return uuid.Nil, nil, fmt.Errorf("persist base concept: %w", err)
	}

	return variation.ID, image, nil
}

// fanOut dispatches all specs concurrently, each gated by the limiter and
// bounded by its own timeout inside the executor. It is a full-barrier join:
// it waits for every unit to reach a terminal outcome, and a failing or slow
// unit never cancels its siblings.
func (o *Orchestrator) fanOut(ctx context.Context, specs []WorkSpec) []Outcome {
	outcomes := make([]Outcome, len(specs))
	var wg sync.WaitGroup

	for i := range specs {
		wg.Add(1)
		go func(i int, spec WorkSpec) {
			defer wg.Done()

			start := time.Now()
			if err := o.limiter.Acquire(ctx); err != nil {
				outcomes[i] = Outcome{
					Index:       spec.Index,
					PaletteName: spec.Palette.Name,
					Reason:      ReasonUnknown,
					Err:         fmt.Errorf("acquire concurrency slot: %w", err),
					Duration:    time.Since(start),
				}
				return
			}
			defer o.limiter.Release()

			outcomes[i] = o.executor.Run(ctx, spec)
		}(i, specs[i])
	}

	wg.Wait()
	return outcomes
}

// heartbeatLoop bumps the task's updated_at until the context is cancelled or
// the task leaves the processing state.
func (o *Orchestrator) heartbeatLoop(ctx context.Context, taskID uuid.UUID) {
	ticker := time.NewTicker(o.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := o.store.TouchTask(ctx, taskID)
			if store.IsConflictError(err) {
				// Task already finalized; nothing left to keep alive.
				return
			}
			if err != nil {
				o.logger.Warn("task heartbeat failed", "task_id", taskID, "error", err)
			}
		}
	}
}

// fail finalizes the task as failed via the same conditional-update
// discipline as completion. Losing the race to the sweeper is benign.
func (o *Orchestrator) fail(ctx context.Context, t *domain.Task, summary string) {
	err := o.store.FailTask(ctx, t.ID, domain.TaskStatusProcessing, summary)
	if store.IsConflictError(err) {
		o.logger.Warn("failure transition lost a finalization race",
			"task_id", t.ID)
		return
	}
	if err != nil {
		// Leave the task in processing; the sweeper will reconcile it.
		o.logger.Error("failed to finalize task as failed",
			"task_id", t.ID, "error", err)
		return
	}

	o.logger.Info("task failed", "task_id", t.ID, "error_summary", summary)

	t.Status = domain.TaskStatusFailed
	t.ErrorMessage = summary
	o.publish(ctx, t)
}

// publish notifies the status publisher, tolerating failures: notification is
// strictly best-effort and never affects the transition itself.
func (o *Orchestrator) publish(ctx context.Context, t *domain.Task) {
	if o.publisher == nil {
		return
	}
	if err := o.publisher.PublishStatusChange(ctx, events.NewStatusChange(t)); err != nil {
		o.logger.Warn("status publication failed",
			"task_id", t.ID, "status", t.Status, "error", err)
	}
}

// deriveSpecs builds the work specifications for one orchestration pass.
// Derivation is deterministic: unit i always corresponds to palette i of the
// task's metadata, so a re-claimed task fans out identically.
func deriveSpecs(taskID uuid.UUID, meta domain.TaskMetadata, base []byte) []WorkSpec {
	specs := make([]WorkSpec, len(meta.Palettes))
	for i, p := range meta.Palettes {
		specs[i] = WorkSpec{
			Index:   i,
			TaskID:  taskID,
			Palette: p,
			Base:    base,
		}
	}
	return specs
}

// summarizeFailures synthesizes a human-readable error summary enumerating
// per-unit failure reasons.
func summarizeFailures(outcomes []Outcome) string {
	parts := make([]string, 0, len(outcomes))
	for _, out := range outcomes {
		if out.Succeeded {
			continue
		}
		detail := "no detail"
		if out.Err != nil {
			detail = out.Err.Error()
		}
		parts = append(parts, fmt.Sprintf("%s: %s (%s)", out.PaletteName, out.Reason, detail))
	}
	return fmt.Sprintf("all %d palette renderings failed: %s",
		len(parts), strings.Join(parts, "; "))
}
