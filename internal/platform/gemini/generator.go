package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/palettekit/palette-api/internal/config"
	"github.com/palettekit/palette-api/internal/domain"
	"github.com/palettekit/palette-api/internal/generation"
)

// Generator talks to the Gemini API to produce the base concept image and to
// re-render it in individual palettes.
type Generator struct {
	client *genai.Client
	config config.GenerationConfig
	logger *slog.Logger
}

// NewGenerator creates a Generator with the provided configuration.
func NewGenerator(ctx context.Context, logger *slog.Logger, cfg config.GenerationConfig) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	return &Generator{
		client: client,
		config: cfg,
		logger: logger.With("component", "gemini_generator"),
	}, nil
}

// GenerateConcept produces the base concept image for the prompt.
func (g *Generator) GenerateConcept(ctx context.Context, prompt string) ([]byte, error) {
	if prompt == "" {
		return nil, fmt.Errorf("%w: empty prompt", generation.ErrGenerationFailed)
	}

	contents := []*genai.Content{
		genai.NewContentFromText(conceptPrompt(prompt), genai.RoleUser),
	}
	return g.callWithRetry(ctx, contents)
}

// RenderPalette re-renders the base image restricted to the given palette.
func (g *Generator) RenderPalette(
	ctx context.Context,
	base []byte,
	palette domain.Palette,
) ([]byte, error) {
	if len(base) == 0 {
		return nil, fmt.Errorf("%w: empty base image", generation.ErrGenerationFailed)
	}

	contents := []*genai.Content{
		{
			Role: genai.RoleUser,
			Parts: []*genai.Part{
				genai.NewPartFromBytes(base, "image/png"),
				genai.NewPartFromText(palettePrompt(palette)),
			},
		},
	}
	return g.callWithRetry(ctx, contents)
}

// callWithRetry performs the Gemini call with exponential backoff and jitter
// for transient failures. Permanent failures (safety blocks, malformed
// responses) are returned immediately.
func (g *Generator) callWithRetry(ctx context.Context, contents []*genai.Content) ([]byte, error) {
	maxRetries := g.config.MaxRetries
	if maxRetries < 0 {
		maxRetries = 3
	}
	baseDelaySeconds := g.config.RetryDelaySeconds
	if baseDelaySeconds < 1 {
		baseDelaySeconds = 2
	}

	genCfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for attempt := 0; ; attempt++ {
		resp, err := g.client.Models.GenerateContent(ctx, g.config.ModelName, contents, genCfg)

		var image []byte
		transient := false
		if err != nil {
			// API-level errors are assumed transient unless the context is done.
			transient = ctx.Err() == nil
			err = fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
		} else {
			image, err = extractImage(resp)
		}

		if err == nil {
			return image, nil
		}

		if errors.Is(err, generation.ErrContentBlocked) || errors.Is(err, generation.ErrInvalidResponse) {
			return nil, err
		}
		if !transient || attempt >= maxRetries {
			return nil, err
		}

		// delay = baseDelay * 2^attempt * (0.5 + rand(0, 0.5))
		backoff := float64(baseDelaySeconds) * math.Pow(2, float64(attempt))
		delay := time.Duration(backoff * (0.5 + rng.Float64()*0.5) * float64(time.Second))

		g.logger.Warn("Gemini call failed, retrying",
			"attempt", attempt+1,
			"max_attempts", maxRetries+1,
			"delay", delay,
			"error", err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", generation.ErrTransientFailure, ctx.Err())
		}
	}
}

// extractImage pulls the first inline image out of a generation response.
func extractImage(resp *genai.GenerateContentResponse) ([]byte, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return nil, fmt.Errorf("%w: finish reason safety", generation.ErrContentBlocked)
	}
	if candidate.Content == nil {
		return nil, fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	for _, part := range candidate.Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData.Data, nil
		}
	}
	return nil, fmt.Errorf("%w: response contained no image data", generation.ErrInvalidResponse)
}

func conceptPrompt(prompt string) string {
	return fmt.Sprintf(
		"Generate a single cohesive illustration of the following concept. "+
			"Produce exactly one image and no commentary.\n\nConcept: %s", prompt)
}

func palettePrompt(palette domain.Palette) string {
	return fmt.Sprintf(
		"Recolor the attached image using only the color palette %q (%s). "+
			"Preserve the composition and subject; change only the coloring. "+
			"Produce exactly one image and no commentary.",
		palette.Name, strings.Join(palette.Colors, ", "))
}
