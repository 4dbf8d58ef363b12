package generation

import (
	"context"

	"github.com/palettekit/palette-api/internal/domain"
)

// ConceptGenerator defines the interface for producing the base concept image
// from a textual prompt. This interface is a boundary between the application
// core and external image-generation services, following the hexagonal
// architecture pattern.
type ConceptGenerator interface {
	// GenerateConcept creates the base concept image for the given prompt.
	// Returns the encoded image bytes or an error if generation fails
	// (see errors.go for specific types).
	GenerateConcept(ctx context.Context, prompt string) ([]byte, error)
}

// PaletteRenderer defines the interface for re-rendering a base concept image
// in a single color palette. Implementations are treated as opaque, fallible,
// time-bounded operations; callers enforce their own deadlines via ctx.
type PaletteRenderer interface {
	// RenderPalette produces a variation of the base image restricted to the
	// given palette. Returns the encoded image bytes or an error.
	RenderPalette(ctx context.Context, base []byte, palette domain.Palette) ([]byte, error)
}
