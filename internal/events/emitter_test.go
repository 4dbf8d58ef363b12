package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palettekit/palette-api/internal/domain"
)

type recordingPublisher struct {
	mu      sync.Mutex
	changes []StatusChange
	err     error
}

func (p *recordingPublisher) PublishStatusChange(_ context.Context, change StatusChange) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, change)
	return p.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewStatusChange(t *testing.T) {
	t.Parallel()

	task := &domain.Task{
		ID:     uuid.New(),
		Owner:  uuid.New(),
		Status: domain.TaskStatusCompleted,
		ResultRef: uuid.NullUUID{
			UUID:  uuid.New(),
			Valid: true,
		},
	}

	change := NewStatusChange(task)
	assert.Equal(t, task.ID, change.TaskID)
	assert.Equal(t, task.Owner, change.Owner)
	assert.Equal(t, domain.TaskStatusCompleted, change.Status)
	require.NotNil(t, change.ResultRef)
	assert.Equal(t, task.ResultRef.UUID, *change.ResultRef)
	assert.False(t, change.OccurredAt.IsZero())

	failed := &domain.Task{
		ID:           uuid.New(),
		Owner:        task.Owner,
		Status:       domain.TaskStatusFailed,
		ErrorMessage: "all palette renderings failed",
	}
	change = NewStatusChange(failed)
	assert.Nil(t, change.ResultRef)
	assert.Equal(t, "all palette renderings failed", change.ErrorMessage)
}

func TestBroadcaster_PublishStatusChange(t *testing.T) {
	t.Parallel()

	t.Run("delivers to all publishers", func(t *testing.T) {
		t.Parallel()

		b := NewBroadcaster(testLogger())
		first := &recordingPublisher{}
		second := &recordingPublisher{}
		b.Register(first)
		b.Register(second)

		change := StatusChange{TaskID: uuid.New(), Status: domain.TaskStatusProcessing}
		require.NoError(t, b.PublishStatusChange(context.Background(), change))

		assert.Len(t, first.changes, 1)
		assert.Len(t, second.changes, 1)
	})

	t.Run("a failing publisher does not block the rest", func(t *testing.T) {
		t.Parallel()

		b := NewBroadcaster(testLogger())
		failing := &recordingPublisher{err: errors.New("bus unavailable")}
		healthy := &recordingPublisher{}
		b.Register(failing)
		b.Register(healthy)

		err := b.PublishStatusChange(context.Background(), StatusChange{TaskID: uuid.New()})
		assert.Error(t, err)
		assert.Len(t, healthy.changes, 1)
	})

	t.Run("no publishers is a no-op", func(t *testing.T) {
		t.Parallel()

		b := NewBroadcaster(testLogger())
		assert.NoError(t, b.PublishStatusChange(context.Background(), StatusChange{}))
	})
}
