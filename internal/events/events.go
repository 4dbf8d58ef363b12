package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/palettekit/palette-api/internal/domain"
)

// StatusChange describes one task status transition. It is a read-only
// projection of the task entity, emitted on every transition so clients can
// be informed of progress without polling.
type StatusChange struct {
	// TaskID identifies the task that transitioned.
	TaskID uuid.UUID `json:"task_id"`

	// Owner is the principal the task belongs to.
	Owner uuid.UUID `json:"owner"`

	// Status is the status the task transitioned into.
	Status domain.TaskStatus `json:"status"`

	// ResultRef references the primary artifact; only set on completed.
	ResultRef *uuid.UUID `json:"result_ref,omitempty"`

	// ErrorMessage carries the failure summary; only set on failed.
	ErrorMessage string `json:"error_message,omitempty"`

	// OccurredAt is the timestamp of the transition.
	OccurredAt time.Time `json:"occurred_at"`
}

// NewStatusChange builds a StatusChange from a task's current state.
func NewStatusChange(t *domain.Task) StatusChange {
	change := StatusChange{
		TaskID:       t.ID,
		Owner:        t.Owner,
		Status:       t.Status,
		ErrorMessage: t.ErrorMessage,
		OccurredAt:   time.Now().UTC(),
	}
	if t.ResultRef.Valid {
		ref := t.ResultRef.UUID
		change.ResultRef = &ref
	}
	return change
}

// StatusPublisher defines an interface for components notified of task status
// transitions. Publishing is best-effort: a failing publisher must never
// affect the transition that triggered it.
type StatusPublisher interface {
	// PublishStatusChange delivers the change to interested consumers.
	PublishStatusChange(ctx context.Context, change StatusChange) error
}
