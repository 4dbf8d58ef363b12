package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palettekit/palette-api/internal/domain"
)

func terminalTask(status domain.TaskStatus) *domain.Task {
	return &domain.Task{
		ID:        uuid.New(),
		Owner:     uuid.New(),
		Type:      domain.TaskTypePaletteGeneration,
		Status:    status,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
}

func TestTaskCache_TerminalTasksAreCached(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tc, err := NewTaskCache(100)
	require.NoError(t, err)
	defer tc.Close()

	completed := terminalTask(domain.TaskStatusCompleted)
	failed := terminalTask(domain.TaskStatusFailed)

	tc.Put(ctx, completed)
	tc.Put(ctx, failed)
	tc.c.Wait() // ristretto applies sets asynchronously

	got, ok := tc.Get(ctx, completed.ID)
	require.True(t, ok)
	assert.Equal(t, completed.ID, got.ID)
	assert.Equal(t, domain.TaskStatusCompleted, got.Status)

	got, ok = tc.Get(ctx, failed.ID)
	require.True(t, ok)
	assert.Equal(t, domain.TaskStatusFailed, got.Status)
}

func TestTaskCache_NonTerminalTasksAreIgnored(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tc, err := NewTaskCache(100)
	require.NoError(t, err)
	defer tc.Close()

	pending := terminalTask(domain.TaskStatusPending)
	processing := terminalTask(domain.TaskStatusProcessing)

	tc.Put(ctx, pending)
	tc.Put(ctx, processing)
	tc.Put(ctx, nil)
	tc.c.Wait()

	_, ok := tc.Get(ctx, pending.ID)
	assert.False(t, ok)
	_, ok = tc.Get(ctx, processing.ID)
	assert.False(t, ok)
}

func TestTaskCache_MissReturnsFalse(t *testing.T) {
	t.Parallel()

	tc, err := NewTaskCache(100)
	require.NoError(t, err)
	defer tc.Close()

	_, ok := tc.Get(context.Background(), uuid.New())
	assert.False(t, ok)
}
