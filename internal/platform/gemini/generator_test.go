package gemini

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"

	"github.com/palettekit/palette-api/internal/config"
	"github.com/palettekit/palette-api/internal/generation"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewGenerator_ConfigValidation(t *testing.T) {
	t.Parallel()

	t.Run("missing api key", func(t *testing.T) {
		t.Parallel()
		_, err := NewGenerator(context.Background(), testLogger(),
			config.GenerationConfig{ModelName: "gemini-2.0-flash-exp-image-generation"})
		assert.ErrorIs(t, err, generation.ErrInvalidConfig)
	})

	t.Run("missing model name", func(t *testing.T) {
		t.Parallel()
		_, err := NewGenerator(context.Background(), testLogger(),
			config.GenerationConfig{GeminiAPIKey: "test-key"})
		assert.ErrorIs(t, err, generation.ErrInvalidConfig)
	})

	t.Run("nil logger", func(t *testing.T) {
		t.Parallel()
		_, err := NewGenerator(context.Background(), nil, config.GenerationConfig{
			GeminiAPIKey: "test-key",
			ModelName:    "gemini-2.0-flash-exp-image-generation",
		})
		assert.Error(t, err)
	})
}

func TestExtractImage(t *testing.T) {
	t.Parallel()

	image := []byte{0x89, 0x50, 0x4e, 0x47}

	t.Run("returns first inline image", func(t *testing.T) {
		t.Parallel()
		resp := &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []*genai.Part{
					{Text: "here is your image"},
					{InlineData: &genai.Blob{MIMEType: "image/png", Data: image}},
				}},
			}},
		}

		got, err := extractImage(resp)
		assert.NoError(t, err)
		assert.Equal(t, image, got)
	})

	t.Run("nil response", func(t *testing.T) {
		t.Parallel()
		_, err := extractImage(nil)
		assert.ErrorIs(t, err, generation.ErrInvalidResponse)
	})

	t.Run("no candidates", func(t *testing.T) {
		t.Parallel()
		_, err := extractImage(&genai.GenerateContentResponse{})
		assert.ErrorIs(t, err, generation.ErrInvalidResponse)
	})

	t.Run("safety block", func(t *testing.T) {
		t.Parallel()
		resp := &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}},
		}
		_, err := extractImage(resp)
		assert.ErrorIs(t, err, generation.ErrContentBlocked)
	})

	t.Run("text-only response", func(t *testing.T) {
		t.Parallel()
		resp := &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []*genai.Part{{Text: "cannot comply"}}},
			}},
		}
		_, err := extractImage(resp)
		assert.ErrorIs(t, err, generation.ErrInvalidResponse)
	})
}
