package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle state of a generation task.
type TaskStatus string

// Possible task status values. Pending and processing are non-terminal;
// completed and failed are terminal and immutable thereafter.
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// TaskTypePaletteGeneration is the task type for generating a base concept
// image plus one rendering per requested palette.
const TaskTypePaletteGeneration = "palette_generation"

// Task is the client-visible unit of background work. It mirrors the
// persisted tasks row: ResultRef is set if and only if the task completed,
// ErrorMessage is set if and only if it failed. UpdatedAt is the liveness
// signal the stale-task sweeper keys on, so it must advance on every status
// transition and periodically while a task is processing.
type Task struct {
	ID           uuid.UUID
	Owner        uuid.UUID
	Type         string
	Status       TaskStatus
	ResultRef    uuid.NullUUID
	ErrorMessage string
	Metadata     json.RawMessage
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewPaletteTask creates a pending palette generation task owned by the given
// principal. The metadata is validated and serialized so work specifications
// can be re-derived deterministically whenever the task is claimed.
func NewPaletteTask(owner uuid.UUID, meta TaskMetadata) (*Task, error) {
	if owner == uuid.Nil {
		return nil, fmt.Errorf("%w: owner is required", ErrValidation)
	}
	if err := meta.Validate(); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("%w: metadata: %v", ErrInvalidFormat, err)
	}

	now := time.Now().UTC()
	return &Task{
		ID:        uuid.New(),
		Owner:     owner,
		Type:      TaskTypePaletteGeneration,
		Status:    TaskStatusPending,
		Metadata:  raw,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsValid reports whether s is one of the known status values.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusProcessing, TaskStatusCompleted, TaskStatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether s is a terminal status.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// CanTransitionTo reports whether the state machine permits moving from s to
// next. Terminal states admit no further transitions; failed is reachable from
// both non-terminal states (the sweeper path uses pending → failed directly).
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	switch s {
	case TaskStatusPending:
		return next == TaskStatusProcessing || next == TaskStatusFailed
	case TaskStatusProcessing:
		return next == TaskStatusCompleted || next == TaskStatusFailed
	default:
		return false
	}
}

// IsTerminal reports whether the task has reached a terminal status.
func (t *Task) IsTerminal() bool {
	return t.Status.IsTerminal()
}

// ParseMetadata decodes and validates the task's metadata payload.
func (t *Task) ParseMetadata() (TaskMetadata, error) {
	var meta TaskMetadata
	if err := json.Unmarshal(t.Metadata, &meta); err != nil {
		return TaskMetadata{}, fmt.Errorf("%w: metadata: %v", ErrInvalidFormat, err)
	}
	if err := meta.Validate(); err != nil {
		return TaskMetadata{}, err
	}
	return meta, nil
}
