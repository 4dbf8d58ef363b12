package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNotFoundError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"generic not found", ErrNotFound, true},
		{"task not found", ErrTaskNotFound, true},
		{"variation not found", ErrVariationNotFound, true},
		{"wrapped task not found", fmt.Errorf("get task: %w", ErrTaskNotFound), true},
		{"conflict", ErrConflict, false},
		{"unrelated", errors.New("connection refused"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, IsNotFoundError(tt.err))
		})
	}
}

func TestIsConflictError(t *testing.T) {
	t.Parallel()

	assert.True(t, IsConflictError(ErrConflict))
	assert.True(t, IsConflictError(fmt.Errorf("claim task: %w", ErrConflict)))
	assert.False(t, IsConflictError(ErrNotFound))
	assert.False(t, IsConflictError(nil))
}
