package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/palettekit/palette-api/internal/domain"
	"github.com/palettekit/palette-api/internal/store"
	"github.com/palettekit/palette-api/internal/task"
)

// TriggerPublisher enqueues newly created tasks for orchestration.
type TriggerPublisher interface {
	PublishTaskTrigger(ctx context.Context, taskID uuid.UUID) error
}

// TaskCache is a read cache for terminal tasks. Implementations must only
// retain tasks in a terminal status.
type TaskCache interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Task, bool)
	Put(ctx context.Context, t *domain.Task)
}

// VariationReader retrieves persisted palette variations.
type VariationReader interface {
	GetVariation(ctx context.Context, id uuid.UUID) (*domain.PaletteVariation, error)
	ListVariations(ctx context.Context, taskID uuid.UUID) ([]*domain.PaletteVariation, error)
}

// TaskService handles task submission and retrieval for the API surface.
type TaskService struct {
	store      task.Store
	variations VariationReader
	triggers   TriggerPublisher
	cache      TaskCache
	logger     *slog.Logger
}

// NewTaskService creates a TaskService. cache may be nil to disable caching.
func NewTaskService(
	taskStore task.Store,
	variations VariationReader,
	triggers TriggerPublisher,
	taskCache TaskCache,
	logger *slog.Logger,
) *TaskService {
	return &TaskService{
		store:      taskStore,
		variations: variations,
		triggers:   triggers,
		cache:      taskCache,
		logger:     logger.With("component", "task_service"),
	}
}

// CreateGenerationTask validates the metadata, persists a pending task, and
// publishes its trigger. Trigger publication is best-effort: if it fails the
// task stays pending and is eventually failed by the sweeper, which is the
// documented contract for tasks that were never claimed.
func (s *TaskService) CreateGenerationTask(
	ctx context.Context,
	owner uuid.UUID,
	meta domain.TaskMetadata,
) (*domain.Task, error) {
	t, err := domain.NewPaletteTask(owner, meta)
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateTask(ctx, t); err != nil {
		return nil, fmt.Errorf("persist task: %w", err)
	}

	if err := s.triggers.PublishTaskTrigger(ctx, t.ID); err != nil {
		s.logger.Error("failed to publish task trigger",
			"task_id", t.ID, "error", err)
	} else {
		s.logger.Info("task accepted", "task_id", t.ID, "owner", owner,
			"palettes", len(meta.Palettes))
	}

	return t, nil
}

// GetTask retrieves a task for the given owner. Terminal tasks are served
// from and populated into the cache; they are immutable so cached copies
// never go stale. A task owned by someone else reads as ErrNotOwned.
func (s *TaskService) GetTask(ctx context.Context, owner, id uuid.UUID) (*domain.Task, error) {
	if s.cache != nil {
		if t, ok := s.cache.Get(ctx, id); ok {
			if t.Owner != owner {
				return nil, ErrNotOwned
			}
			return t, nil
		}
	}

	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}

	if t.Owner != owner {
		return nil, ErrNotOwned
	}

	if s.cache != nil && t.IsTerminal() {
		s.cache.Put(ctx, t)
	}
	return t, nil
}

// ListVariations returns the variations persisted so far for the owner's
// task, base concept included. The task lookup enforces ownership.
func (s *TaskService) ListVariations(
	ctx context.Context,
	owner, taskID uuid.UUID,
) ([]*domain.PaletteVariation, error) {
	if _, err := s.GetTask(ctx, owner, taskID); err != nil {
		return nil, err
	}

	variations, err := s.variations.ListVariations(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("list variations: %w", err)
	}
	return variations, nil
}

// GetVariation retrieves one variation for the owner, checking ownership
// through the parent task.
func (s *TaskService) GetVariation(
	ctx context.Context,
	owner, id uuid.UUID,
) (*domain.PaletteVariation, error) {
	v, err := s.variations.GetVariation(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrVariationNotFound
		}
		return nil, fmt.Errorf("get variation: %w", err)
	}

	if _, err := s.GetTask(ctx, owner, v.TaskID); err != nil {
		return nil, err
	}
	return v, nil
}
