package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/palettekit/palette-api/internal/domain"
	"github.com/palettekit/palette-api/internal/store"
)

// VariationStore implements the task.ArtifactStore interface using
// PostgreSQL. Each successfully rendered palette variation is persisted as
// one row, independently of its siblings, as soon as it completes.
type VariationStore struct {
	db store.DBTX
}

// NewVariationStore creates a VariationStore backed by the given connection
// or transaction.
func NewVariationStore(db store.DBTX) *VariationStore {
	return &VariationStore{db: db}
}

// SaveVariation persists one rendered variation.
func (s *VariationStore) SaveVariation(ctx context.Context, v *domain.PaletteVariation) error {
	if err := v.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO palette_variations (id, task_id, palette_name, storage_key, image, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		v.ID,
		v.TaskID,
		v.PaletteName,
		v.StorageKey,
		v.Image,
		v.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save palette variation: %w", MapError(err))
	}
	return nil
}

// DeleteVariation removes a variation row. Used for cleanup-on-abort;
// deleting a row that never persisted is a no-op, not an error.
func (s *VariationStore) DeleteVariation(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM palette_variations WHERE id = $1`
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete palette variation: %w", MapError(err))
	}
	return nil
}

// GetVariation retrieves one variation by id.
func (s *VariationStore) GetVariation(ctx context.Context, id uuid.UUID) (*domain.PaletteVariation, error) {
	query := `
		SELECT id, task_id, palette_name, storage_key, image, created_at
		FROM palette_variations
		WHERE id = $1
	`
	var v domain.PaletteVariation
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&v.ID,
		&v.TaskID,
		&v.PaletteName,
		&v.StorageKey,
		&v.Image,
		&v.CreatedAt,
	)
	if err != nil {
		if store.IsNotFoundError(MapError(err)) {
			return nil, store.ErrVariationNotFound
		}
		return nil, fmt.Errorf("failed to get palette variation: %w", MapError(err))
	}
	return &v, nil
}

// ListVariations returns all variations persisted for a task, base concept
// included, ordered by creation time.
func (s *VariationStore) ListVariations(ctx context.Context, taskID uuid.UUID) ([]*domain.PaletteVariation, error) {
	query := `
		SELECT id, task_id, palette_name, storage_key, image, created_at
		FROM palette_variations
		WHERE task_id = $1
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list palette variations: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var variations []*domain.PaletteVariation
	for rows.Next() {
		var v domain.PaletteVariation
		if err := rows.Scan(&v.ID, &v.TaskID, &v.PaletteName, &v.StorageKey, &v.Image, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan variation row: %w", MapError(err))
		}
		variations = append(variations, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating variation rows: %w", MapError(err))
	}
	return variations, nil
}
