package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palettekit/palette-api/internal/domain"
)

func testSpec() WorkSpec {
	return WorkSpec{
		Index:   0,
		TaskID:  uuid.New(),
		Palette: domain.Palette{Name: "ocean", Colors: []string{"#0a3d62"}},
		Base:    []byte("base image"),
	}
}

func TestExecutor_Run_Success(t *testing.T) {
	t.Parallel()

	artifacts := NewMockArtifactStore()
	executor := NewExecutor(&fakeRenderer{}, artifacts, time.Second, testLogger())

	out := executor.Run(context.Background(), testSpec())

	require.True(t, out.Succeeded)
	assert.NotEqual(t, uuid.Nil, out.VariationID)
	assert.Equal(t, "ocean", out.PaletteName)
	assert.NoError(t, out.Err)
	assert.Equal(t, 1, artifacts.Count())

	saved, ok := artifacts.ByName("ocean")
	require.True(t, ok)
	assert.NotEmpty(t, saved.StorageKey)
	assert.Equal(t, []byte("rendered:ocean"), saved.Image)
}

func TestExecutor_Run_TimeoutIsolation(t *testing.T) {
	t.Parallel()

	artifacts := NewMockArtifactStore()
	renderer := &fakeRenderer{delay: 5 * time.Second}
	timeout := 50 * time.Millisecond
	executor := NewExecutor(renderer, artifacts, timeout, testLogger())

	start := time.Now()
	out := executor.Run(context.Background(), testSpec())
	elapsed := time.Since(start)

	assert.False(t, out.Succeeded)
	assert.Equal(t, ReasonTimeout, out.Reason)
	assert.Error(t, out.Err)
	// The failed outcome must surface within timeout + epsilon, not after
	// the renderer's full hang.
	assert.Less(t, elapsed, timeout+500*time.Millisecond)
	assert.Equal(t, 0, artifacts.Count())
}

func TestExecutor_Run_UpstreamError(t *testing.T) {
	t.Parallel()

	artifacts := NewMockArtifactStore()
	renderer := &fakeRenderer{
		fn: func(context.Context, domain.Palette) ([]byte, error) {
			return nil, errors.New("model overloaded")
		},
	}
	executor := NewExecutor(renderer, artifacts, time.Second, testLogger())

	out := executor.Run(context.Background(), testSpec())

	assert.False(t, out.Succeeded)
	assert.Equal(t, ReasonUpstreamError, out.Reason)
	assert.Contains(t, out.Err.Error(), "model overloaded")
	assert.Equal(t, 0, artifacts.Count())
}

func TestExecutor_Run_StorageErrorCleansUp(t *testing.T) {
	t.Parallel()

	artifacts := NewMockArtifactStore()
	artifacts.SaveFn = func(context.Context, *domain.PaletteVariation) error {
		return errors.New("connection reset")
	}
	executor := NewExecutor(&fakeRenderer{}, artifacts, time.Second, testLogger())

	out := executor.Run(context.Background(), testSpec())

	assert.False(t, out.Succeeded)
	assert.Equal(t, ReasonStorageError, out.Reason)
	// Cleanup-on-abort: the partially persisted variation was deleted.
	require.Len(t, artifacts.Deleted(), 1)
	assert.Equal(t, 0, artifacts.Count())
}

func TestExecutor_Run_PanicNeverEscapes(t *testing.T) {
	t.Parallel()

	renderer := &fakeRenderer{
		fn: func(context.Context, domain.Palette) ([]byte, error) {
			panic("corrupt image buffer")
		},
	}
	executor := NewExecutor(renderer, NewMockArtifactStore(), time.Second, testLogger())

	var out Outcome
	assert.NotPanics(t, func() {
		out = executor.Run(context.Background(), testSpec())
	})
	assert.False(t, out.Succeeded)
	assert.Equal(t, ReasonUnknown, out.Reason)
	assert.Contains(t, out.Err.Error(), "panicked")
}

func TestExecutor_Run_RecordsDuration(t *testing.T) {
	t.Parallel()

	renderer := &fakeRenderer{delay: 20 * time.Millisecond}
	executor := NewExecutor(renderer, NewMockArtifactStore(), time.Second, testLogger())

	out := executor.Run(context.Background(), testSpec())
	assert.GreaterOrEqual(t, out.Duration, 20*time.Millisecond)
}
