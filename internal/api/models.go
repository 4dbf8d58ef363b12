package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/palettekit/palette-api/internal/domain"
)

// PaletteRequest is one named palette in a task submission.
type PaletteRequest struct {
	Name   string   `json:"name"   validate:"required,min=1"`
	Colors []string `json:"colors" validate:"required,min=1,dive,hexcolor"`
}

// CreateTaskRequest defines the payload for the task submission endpoint.
type CreateTaskRequest struct {
	Prompt   string           `json:"prompt"   validate:"required,min=1,max=2000"`
	Palettes []PaletteRequest `json:"palettes" validate:"required,min=1,max=10,dive"`
}

// Metadata converts the request into domain task metadata.
func (r CreateTaskRequest) Metadata() domain.TaskMetadata {
	palettes := make([]domain.Palette, len(r.Palettes))
	for i, p := range r.Palettes {
		palettes[i] = domain.Palette{Name: p.Name, Colors: p.Colors}
	}
	return domain.TaskMetadata{Prompt: r.Prompt, Palettes: palettes}
}

// TaskResponse represents the response data for a task.
type TaskResponse struct {
	ID           uuid.UUID  `json:"id"`
	Status       string     `json:"status"`
	ResultRef    *uuid.UUID `json:"result_ref,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// VariationResponse represents one rendered variation in listings. Image
// bytes are served by the dedicated image endpoint, not inlined here.
type VariationResponse struct {
	ID          uuid.UUID `json:"id"`
	PaletteName string    `json:"palette_name"`
	StorageKey  string    `json:"storage_key"`
	CreatedAt   time.Time `json:"created_at"`
}

// variationsToResponse converts domain variations to their listing form.
func variationsToResponse(variations []*domain.PaletteVariation) []VariationResponse {
	out := make([]VariationResponse, len(variations))
	for i, v := range variations {
		out[i] = VariationResponse{
			ID:          v.ID,
			PaletteName: v.PaletteName,
			StorageKey:  v.StorageKey,
			CreatedAt:   v.CreatedAt,
		}
	}
	return out
}

// taskToResponse converts a domain.Task to a TaskResponse.
func taskToResponse(t *domain.Task) TaskResponse {
	resp := TaskResponse{
		ID:           t.ID,
		Status:       string(t.Status),
		ErrorMessage: t.ErrorMessage,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
	if t.ResultRef.Valid {
		ref := t.ResultRef.UUID
		resp.ResultRef = &ref
	}
	return resp
}
