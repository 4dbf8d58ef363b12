package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/palettekit/palette-api/internal/domain"
	"github.com/palettekit/palette-api/internal/events"
	"github.com/palettekit/palette-api/internal/store"
)

// Failure summaries written by the sweeper. The two-threshold design gives
// operators distinct diagnostics for "never started" versus "started but died".
const (
	staleNeverClaimedMessage = "task was never claimed for processing"
	staleProcessingMessage   = "task processing timed out or the worker crashed"
)

// SweeperConfig holds configuration for the stale task sweeper.
type SweeperConfig struct {
	// Interval defines how often a sweep pass runs. If zero, defaults to
	// 5 minutes.
	Interval time.Duration

	// PendingAge is how long a task may sit in pending (by created_at)
	// before it is considered never claimed. If zero, defaults to 30 minutes.
	PendingAge time.Duration

	// ProcessingAge is how long a processing task may go without a heartbeat
	// (by updated_at) before it is considered dead. Should be at least twice
	// the per-unit timeout plus margin. If zero, defaults to 20 minutes.
	ProcessingAge time.Duration
}

// DefaultSweeperConfig returns a SweeperConfig with reasonable defaults.
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Interval:      5 * time.Minute,
		PendingAge:    30 * time.Minute,
		ProcessingAge: 20 * time.Minute,
	}
}

// SweepStats summarizes one sweep pass.
type SweepStats struct {
	// PendingFailed is the number of never-claimed tasks transitioned to failed.
	PendingFailed int

	// ProcessingFailed is the number of dead processing tasks transitioned to failed.
	ProcessingFailed int

	// Conflicts counts tasks that finalized between the scan and the
	// conditional transition. These are left untouched.
	Conflicts int
}

// Sweeper is a periodically-invoked reconciliation pass, independent of any
// single task's lifecycle, that force-fails tasks whose liveness timestamp
// has exceeded a status-specific threshold. Every transition uses the same
// conditional-update guard as normal orchestration, so sweeping is safe to
// run concurrently with active tasks and idempotent across repeated runs.
type Sweeper struct {
	store     Store
	publisher events.StatusPublisher
	config    SweeperConfig
	logger    *slog.Logger
}

// NewSweeper creates a Sweeper.
func NewSweeper(
	taskStore Store,
	publisher events.StatusPublisher,
	config SweeperConfig,
	logger *slog.Logger,
) *Sweeper {
	if config.Interval <= 0 {
		config.Interval = 5 * time.Minute
	}
	if config.PendingAge <= 0 {
		config.PendingAge = 30 * time.Minute
	}
	if config.ProcessingAge <= 0 {
		config.ProcessingAge = 20 * time.Minute
	}
	return &Sweeper{
		store:     taskStore,
		publisher: publisher,
		config:    config,
		logger:    logger.With("component", "stale_task_sweeper"),
	}
}

// Run executes sweep passes on a ticker until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats, err := s.Sweep(ctx)
			if err != nil {
				s.logger.Error("sweep pass failed", "error", err)
				continue
			}
			if stats.PendingFailed > 0 || stats.ProcessingFailed > 0 {
				s.logger.Info("sweep pass reconciled stale tasks",
					"pending_failed", stats.PendingFailed,
					"processing_failed", stats.ProcessingFailed,
					"conflicts", stats.Conflicts)
			}
		}
	}
}

// Sweep performs a single reconciliation pass: never-claimed pending tasks
// first, then processing tasks with an expired heartbeat. Exported so a
// scheduled-invocation mechanism (or a test) can drive passes directly.
func (s *Sweeper) Sweep(ctx context.Context) (SweepStats, error) {
	var stats SweepStats

	failed, conflicts, err := s.sweepStatus(
		ctx, domain.TaskStatusPending, s.config.PendingAge, staleNeverClaimedMessage)
	if err != nil {
		return stats, fmt.Errorf("sweep pending tasks: %w", err)
	}
	stats.PendingFailed = failed
	stats.Conflicts += conflicts

	failed, conflicts, err = s.sweepStatus(
		ctx, domain.TaskStatusProcessing, s.config.ProcessingAge, staleProcessingMessage)
	if err != nil {
		return stats, fmt.Errorf("sweep processing tasks: %w", err)
	}
	stats.ProcessingFailed = failed
	stats.Conflicts += conflicts

	return stats, nil
}

func (s *Sweeper) sweepStatus(
	ctx context.Context,
	status domain.TaskStatus,
	olderThan time.Duration,
	summary string,
) (failed, conflicts int, err error) {
	stale, err := s.store.FindStaleTasks(ctx, status, olderThan)
	if err != nil {
		return 0, 0, err
	}

	for _, t := range stale {
		err := s.store.FailTask(ctx, t.ID, status, summary)
		if store.IsConflictError(err) {
			// The task advanced between the scan and the transition; the
			// conditional guard left it untouched.
			conflicts++
			continue
		}
		if err != nil {
			s.logger.Error("failed to force-fail stale task",
				"task_id", t.ID, "status", status, "error", err)
			continue
		}

		failed++
		s.logger.Warn("force-failed stale task",
			"task_id", t.ID,
			"previous_status", status,
			"age_threshold", olderThan,
			"reason", summary)

		t.Status = domain.TaskStatusFailed
		t.ErrorMessage = summary
		s.publish(ctx, t)
	}

	return failed, conflicts, nil
}

func (s *Sweeper) publish(ctx context.Context, t *domain.Task) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishStatusChange(ctx, events.NewStatusChange(t)); err != nil {
		s.logger.Warn("status publication failed",
			"task_id", t.ID, "status", t.Status, "error", err)
	}
}
