package task

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/palettekit/palette-api/internal/domain"
)

// ErrClaimConflict is returned by the orchestration entry point when the task
// was already claimed or finalized by another invocation (a redelivered
// trigger, a concurrent worker, or the sweeper). It signals a benign no-op,
// not a fault: the caller should acknowledge the trigger and move on.
var ErrClaimConflict = errors.New("task already claimed or finalized")

// Store defines the persistence contract the engine requires. Every status
// transition is a conditional update keyed on the expected prior status, so a
// lost race surfaces as store.ErrConflict rather than a lost update.
// Version: 1.0
type Store interface {
	// CreateTask persists a new task in pending status.
	CreateTask(ctx context.Context, t *domain.Task) error

	// GetTask retrieves a task by id.
	GetTask(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// ClaimTask transitions the task from pending to processing, but only if
	// it is still pending. Returns the claimed task on success and
	// store.ErrConflict if the task was already claimed or finalized.
	ClaimTask(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// CompleteTask transitions the task from processing to completed and sets
	// result_ref, but only if it is still processing.
	CompleteTask(ctx context.Context, id uuid.UUID, resultRef uuid.UUID) error

	// FailTask transitions the task to failed and sets error_message, but
	// only if the stored status still equals expected.
	FailTask(ctx context.Context, id uuid.UUID, expected domain.TaskStatus, errorMsg string) error

	// TouchTask bumps updated_at as a liveness heartbeat, but only while the
	// task is still processing.
	TouchTask(ctx context.Context, id uuid.UUID) error

	// FindStaleTasks returns tasks in the given non-terminal status whose
	// liveness timestamp is older than the cutoff. For pending tasks the
	// signal is created_at (never claimed); for processing tasks it is
	// updated_at (claimed but no heartbeat since).
	FindStaleTasks(ctx context.Context, status domain.TaskStatus, olderThan time.Duration) ([]*domain.Task, error)
}

// ArtifactStore persists derived palette variations as they complete.
// Version: 1.0
type ArtifactStore interface {
	// SaveVariation persists one rendered variation.
	SaveVariation(ctx context.Context, v *domain.PaletteVariation) error

	// DeleteVariation removes a variation. Used for cleanup-on-abort so a
	// failed work unit leaves no partial artifact behind.
	DeleteVariation(ctx context.Context, id uuid.UUID) error
}

// FailureReason classifies why a work unit failed.
type FailureReason string

const (
	ReasonTimeout       FailureReason = "timeout"
	ReasonUpstreamError FailureReason = "upstream_error"
	ReasonStorageError  FailureReason = "storage_error"
	ReasonUnknown       FailureReason = "unknown"
)

// WorkSpec describes one independent unit of work: render the base concept in
// one palette and persist the result. Specs are derived deterministically
// from the task's metadata at claim time and exist only for the lifetime of
// one orchestration pass.
type WorkSpec struct {
	Index   int
	TaskID  uuid.UUID
	Palette domain.Palette

	// Base is the base concept image the rendering derives from.
	Base []byte
}

// Outcome is the in-memory result of one work unit run. It is never
// persisted directly; the orchestrator folds the set of outcomes into the
// task's terminal fields.
type Outcome struct {
	Index       int
	PaletteName string
	Succeeded   bool
	VariationID uuid.UUID
	Reason      FailureReason
	Err         error
	Duration    time.Duration
}
