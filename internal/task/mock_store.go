package task

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/palettekit/palette-api/internal/domain"
	"github.com/palettekit/palette-api/internal/store"
)

// MockTaskStore implements the Store interface in memory for testing. It
// enforces the same conditional-update semantics as the Postgres store, so
// race-oriented tests exercise the real guard behavior. Individual methods
// can be overridden through the *Fn fields.
type MockTaskStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*domain.Task

	CreateFn   func(ctx context.Context, t *domain.Task) error
	ClaimFn    func(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	CompleteFn func(ctx context.Context, id uuid.UUID, resultRef uuid.UUID) error
	FailFn     func(ctx context.Context, id uuid.UUID, expected domain.TaskStatus, errorMsg string) error
}

// NewMockTaskStore creates an empty MockTaskStore.
func NewMockTaskStore() *MockTaskStore {
	return &MockTaskStore{tasks: make(map[uuid.UUID]*domain.Task)}
}

// Seed inserts a task directly, bypassing validation. Test helper.
func (s *MockTaskStore) Seed(t *domain.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.tasks[t.ID] = &cp
}

// Snapshot returns a copy of the stored task. Test helper.
func (s *MockTaskStore) Snapshot(id uuid.UUID) (*domain.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, false
	}
	cp := *t
	return &cp, true
}

// CreateTask persists a new task.
func (s *MockTaskStore) CreateTask(ctx context.Context, t *domain.Task) error {
	if s.CreateFn != nil {
		return s.CreateFn(ctx, t)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tasks[t.ID]; exists {
		return store.ErrDuplicate
	}
	cp := *t
	s.tasks[t.ID] = &cp
	return nil
}

// GetTask retrieves a task by id.
func (s *MockTaskStore) GetTask(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	cp := *t
	return &cp, nil
}

// ClaimTask conditionally transitions pending to processing. A missing task
// maps to ErrConflict, matching the Postgres store: the conditional UPDATE
// cannot tell "gone" from "no longer pending", and both mean this invocation
// must not process the task.
func (s *MockTaskStore) ClaimTask(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	if s.ClaimFn != nil {
		return s.ClaimFn(ctx, id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrConflict
	}
	if t.Status != domain.TaskStatusPending {
		return nil, store.ErrConflict
	}
	t.Status = domain.TaskStatusProcessing
	t.UpdatedAt = time.Now().UTC()
	cp := *t
	return &cp, nil
}

// CompleteTask conditionally transitions processing to completed.
func (s *MockTaskStore) CompleteTask(ctx context.Context, id uuid.UUID, resultRef uuid.UUID) error {
	if s.CompleteFn != nil {
		return s.CompleteFn(ctx, id, resultRef)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return store.ErrTaskNotFound
	}
	if t.Status != domain.TaskStatusProcessing {
		return store.ErrConflict
	}
	t.Status = domain.TaskStatusCompleted
	t.ResultRef = uuid.NullUUID{UUID: resultRef, Valid: true}
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// FailTask conditionally transitions the expected status to failed.
func (s *MockTaskStore) FailTask(
	ctx context.Context,
	id uuid.UUID,
	expected domain.TaskStatus,
	errorMsg string,
) error {
	if s.FailFn != nil {
		return s.FailFn(ctx, id, expected, errorMsg)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return store.ErrTaskNotFound
	}
	if t.Status != expected {
		return store.ErrConflict
	}
	t.Status = domain.TaskStatusFailed
	t.ErrorMessage = errorMsg
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// TouchTask bumps updated_at while the task is still processing.
func (s *MockTaskStore) TouchTask(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return store.ErrTaskNotFound
	}
	if t.Status != domain.TaskStatusProcessing {
		return store.ErrConflict
	}
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// FindStaleTasks scans for tasks whose liveness timestamp is older than the
// cutoff: created_at for pending, updated_at for processing.
func (s *MockTaskStore) FindStaleTasks(
	_ context.Context,
	status domain.TaskStatus,
	olderThan time.Duration,
) ([]*domain.Task, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	s.mu.Lock()
	defer s.mu.Unlock()

	var stale []*domain.Task
	for _, t := range s.tasks {
		if t.Status != status {
			continue
		}
		ts := t.UpdatedAt
		if status == domain.TaskStatusPending {
			ts = t.CreatedAt
		}
		if ts.Before(cutoff) {
			cp := *t
			stale = append(stale, &cp)
		}
	}
	return stale, nil
}

// MockArtifactStore implements ArtifactStore in memory for testing.
type MockArtifactStore struct {
	mu         sync.Mutex
	variations map[uuid.UUID]*domain.PaletteVariation
	deleted    []uuid.UUID

	SaveFn func(ctx context.Context, v *domain.PaletteVariation) error
}

// NewMockArtifactStore creates an empty MockArtifactStore.
func NewMockArtifactStore() *MockArtifactStore {
	return &MockArtifactStore{variations: make(map[uuid.UUID]*domain.PaletteVariation)}
}

// SaveVariation persists a variation.
func (s *MockArtifactStore) SaveVariation(ctx context.Context, v *domain.PaletteVariation) error {
	if s.SaveFn != nil {
		if err := s.SaveFn(ctx, v); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *v
	s.variations[v.ID] = &cp
	return nil
}

// DeleteVariation removes a variation and records the deletion.
func (s *MockArtifactStore) DeleteVariation(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.variations, id)
	s.deleted = append(s.deleted, id)
	return nil
}

// GetVariation retrieves a variation by id.
func (s *MockArtifactStore) GetVariation(_ context.Context, id uuid.UUID) (*domain.PaletteVariation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.variations[id]
	if !ok {
		return nil, store.ErrVariationNotFound
	}
	cp := *v
	return &cp, nil
}

// ListVariations returns all variations for a task ordered by creation time.
func (s *MockArtifactStore) ListVariations(_ context.Context, taskID uuid.UUID) ([]*domain.PaletteVariation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.PaletteVariation
	for _, v := range s.variations {
		if v.TaskID == taskID {
			cp := *v
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Count returns the number of stored variations. Test helper.
func (s *MockArtifactStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.variations)
}

// Deleted returns the ids passed to DeleteVariation. Test helper.
func (s *MockArtifactStore) Deleted() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]uuid.UUID, len(s.deleted))
	copy(out, s.deleted)
	return out
}

// ByName returns the stored variation with the given palette name. Test helper.
func (s *MockArtifactStore) ByName(name string) (*domain.PaletteVariation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.variations {
		if v.PaletteName == name {
			cp := *v
			return &cp, true
		}
	}
	return nil, false
}
