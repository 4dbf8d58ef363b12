package domain

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// Limits on a single generation request. MaxPalettes bounds the fan-out width
// of one task; each palette becomes one independent work unit.
const (
	MinPalettes      = 1
	MaxPalettes      = 10
	MaxPaletteColors = 12
	MaxPromptLength  = 2000
)

// BaseVariationName is the reserved palette name under which the base concept
// image is persisted. It cannot be used by a client-supplied palette.
const BaseVariationName = "base"

var hexColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Palette is a named list of hex colors to render the base concept in.
type Palette struct {
	Name   string   `json:"name"`
	Colors []string `json:"colors"`
}

// Validate checks the palette's name and colors.
func (p Palette) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: palette name cannot be empty", ErrValidation)
	}
	if p.Name == BaseVariationName {
		return fmt.Errorf("%w: palette name %q is reserved", ErrValidation, BaseVariationName)
	}
	if len(p.Colors) == 0 {
		return fmt.Errorf("%w: palette %q has no colors", ErrValidation, p.Name)
	}
	if len(p.Colors) > MaxPaletteColors {
		return fmt.Errorf("%w: palette %q exceeds %d colors", ErrValidation, p.Name, MaxPaletteColors)
	}
	for _, c := range p.Colors {
		if !hexColorPattern.MatchString(c) {
			return fmt.Errorf("%w: palette %q contains invalid color %q", ErrValidation, p.Name, c)
		}
	}
	return nil
}

// TaskMetadata is the opaque parameter bag persisted with a task. It carries
// everything needed to re-derive the work specifications if the task is
// re-claimed after a crash.
type TaskMetadata struct {
	Prompt   string    `json:"prompt"`
	Palettes []Palette `json:"palettes"`
}

// Validate checks the prompt and every palette, and that palette names are
// unique within the request.
func (m TaskMetadata) Validate() error {
	if m.Prompt == "" {
		return fmt.Errorf("%w: prompt cannot be empty", ErrEmptyContent)
	}
	if len(m.Prompt) > MaxPromptLength {
		return fmt.Errorf("%w: prompt exceeds %d characters", ErrValidation, MaxPromptLength)
	}
	if len(m.Palettes) < MinPalettes || len(m.Palettes) > MaxPalettes {
		return fmt.Errorf("%w: palette count must be between %d and %d",
			ErrValidation, MinPalettes, MaxPalettes)
	}
	seen := make(map[string]struct{}, len(m.Palettes))
	for _, p := range m.Palettes {
		if err := p.Validate(); err != nil {
			return err
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("%w: duplicate palette name %q", ErrValidation, p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	return nil
}

// PaletteVariation is a persisted derived artifact: one rendering of the base
// concept in a single palette, or the base concept itself under
// BaseVariationName.
type PaletteVariation struct {
	ID          uuid.UUID
	TaskID      uuid.UUID
	PaletteName string
	StorageKey  string
	Image       []byte
	CreatedAt   time.Time
}

// Validate checks the variation's required fields.
func (v *PaletteVariation) Validate() error {
	if v.ID == uuid.Nil {
		return fmt.Errorf("%w: variation id is required", ErrInvalidID)
	}
	if v.TaskID == uuid.Nil {
		return fmt.Errorf("%w: variation task id is required", ErrInvalidID)
	}
	if v.PaletteName == "" {
		return fmt.Errorf("%w: variation palette name cannot be empty", ErrValidation)
	}
	if len(v.Image) == 0 {
		return fmt.Errorf("%w: variation image cannot be empty", ErrEmptyContent)
	}
	return nil
}
