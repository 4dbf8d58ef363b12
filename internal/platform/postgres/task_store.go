package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/palettekit/palette-api/internal/domain"
	"github.com/palettekit/palette-api/internal/store"
)

// TaskStore implements the task.Store interface using PostgreSQL. All status
// transitions are expressed as conditional updates ("set status=X where
// status=Y"): strictly weaker than a lock but sufficient, because every
// transition in the engine is safe to lose a race on.
type TaskStore struct {
	db store.DBTX
}

// NewTaskStore creates a TaskStore backed by the given connection or transaction.
func NewTaskStore(db store.DBTX) *TaskStore {
	return &TaskStore{db: db}
}

const taskColumns = `id, owner, type, status, result_ref, error_message, metadata, created_at, updated_at`

// CreateTask inserts a new task row in pending status.
func (s *TaskStore) CreateTask(ctx context.Context, t *domain.Task) error {
	query := `
		INSERT INTO tasks (id, owner, type, status, result_ref, error_message, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		t.ID,
		t.Owner,
		t.Type,
		t.Status,
		nullableUUID(t.ResultRef),
		nullableString(t.ErrorMessage),
		[]byte(t.Metadata),
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save task: %w", MapError(err))
	}
	return nil
}

// GetTask retrieves a task by id.
func (s *TaskStore) GetTask(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	t, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if store.IsNotFoundError(MapError(err)) {
			return nil, store.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", MapError(err))
	}
	return t, nil
}

// ClaimTask transitions the task from pending to processing if and only if it
// is still pending. This is the idempotency boundary that makes redelivered
// triggers safe: the loser of the race gets store.ErrConflict and no task row.
func (s *TaskStore) ClaimTask(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	query := `
		UPDATE tasks
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
		RETURNING ` + taskColumns
	t, err := scanTask(s.db.QueryRowContext(ctx, query,
		domain.TaskStatusProcessing,
		time.Now().UTC(),
		id,
		domain.TaskStatusPending,
	))
	if err != nil {
		if store.IsNotFoundError(MapError(err)) {
			// Either the task does not exist or it is no longer pending;
			// both mean this invocation must not process it.
			return nil, store.ErrConflict
		}
		return nil, fmt.Errorf("failed to claim task: %w", MapError(err))
	}
	return t, nil
}

// CompleteTask transitions the task from processing to completed and sets
// result_ref, guarded on the prior status.
func (s *TaskStore) CompleteTask(ctx context.Context, id uuid.UUID, resultRef uuid.UUID) error {
	query := `
		UPDATE tasks
		SET status = $1, result_ref = $2, updated_at = $3
		WHERE id = $4 AND status = $5
	`
	return s.conditionalUpdate(ctx, query,
		domain.TaskStatusCompleted, resultRef, time.Now().UTC(), id, domain.TaskStatusProcessing)
}

// FailTask transitions the task to failed and sets error_message, guarded on
// the expected prior status. Used by both the orchestrator (from processing)
// and the sweeper (from pending or processing).
func (s *TaskStore) FailTask(
	ctx context.Context,
	id uuid.UUID,
	expected domain.TaskStatus,
	errorMsg string,
) error {
	query := `
		UPDATE tasks
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4 AND status = $5
	`
	return s.conditionalUpdate(ctx, query,
		domain.TaskStatusFailed, errorMsg, time.Now().UTC(), id, expected)
}

// TouchTask bumps updated_at as a heartbeat while the task is processing.
func (s *TaskStore) TouchTask(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE tasks
		SET updated_at = $1
		WHERE id = $2 AND status = $3
	`
	return s.conditionalUpdate(ctx, query,
		time.Now().UTC(), id, domain.TaskStatusProcessing)
}

// FindStaleTasks returns tasks in the given status whose liveness timestamp
// is older than the cutoff. Pending tasks are judged by created_at (never
// claimed), processing tasks by updated_at (no heartbeat since).
func (s *TaskStore) FindStaleTasks(
	ctx context.Context,
	status domain.TaskStatus,
	olderThan time.Duration,
) ([]*domain.Task, error) {
	column := "updated_at"
	if status == domain.TaskStatusPending {
		column = "created_at"
	}
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE status = $1 AND ` + column + ` < $2
		ORDER BY created_at ASC
	`
	cutoff := time.Now().UTC().Add(-olderThan)

	rows, err := s.db.QueryContext(ctx, query, status, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale tasks: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var tasks []*domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", MapError(err))
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task rows: %w", MapError(err))
	}
	return tasks, nil
}

// conditionalUpdate executes a guarded UPDATE and maps "zero rows affected"
// to store.ErrConflict.
func (s *TaskStore) conditionalUpdate(ctx context.Context, query string, args ...any) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", MapError(err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrConflict
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		t         domain.Task
		resultRef uuid.NullUUID
		errorMsg  sql.NullString
		metadata  []byte
	)
	err := row.Scan(
		&t.ID,
		&t.Owner,
		&t.Type,
		&t.Status,
		&resultRef,
		&errorMsg,
		&metadata,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.ResultRef = resultRef
	t.ErrorMessage = errorMsg.String
	t.Metadata = metadata
	return &t, nil
}

func nullableUUID(id uuid.NullUUID) any {
	if !id.Valid {
		return nil
	}
	return id.UUID
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
