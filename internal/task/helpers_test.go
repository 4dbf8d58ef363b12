package task

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/palettekit/palette-api/internal/domain"
	"github.com/palettekit/palette-api/internal/events"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func testMetadata(paletteCount int) domain.TaskMetadata {
	meta := domain.TaskMetadata{Prompt: "a quiet harbor town at dawn"}
	names := []string{"ocean", "sunset", "forest", "mono", "pastel", "neon", "ember", "slate", "plum", "gold"}
	for i := 0; i < paletteCount; i++ {
		meta.Palettes = append(meta.Palettes, domain.Palette{
			Name:   names[i%len(names)],
			Colors: []string{"#0a3d62", "#3c6382"},
		})
	}
	return meta
}

func seedPendingTask(t *testing.T, s *MockTaskStore, paletteCount int) *domain.Task {
	t.Helper()
	tk, err := domain.NewPaletteTask(uuid.New(), testMetadata(paletteCount))
	require.NoError(t, err)
	s.Seed(tk)
	return tk
}

// fakeRenderer implements generation.PaletteRenderer with per-palette
// programmable behavior.
type fakeRenderer struct {
	mu sync.Mutex
	// fn decides the result for one palette; nil means success.
	fn func(ctx context.Context, palette domain.Palette) ([]byte, error)
	// delay is applied before fn so tests can exercise timeouts and
	// concurrency windows.
	delay time.Duration

	calls int
}

func (r *fakeRenderer) RenderPalette(
	ctx context.Context,
	base []byte,
	palette domain.Palette,
) ([]byte, error) {
	r.mu.Lock()
	r.calls++
	fn := r.fn
	delay := r.delay
	r.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fn != nil {
		return fn(ctx, palette)
	}
	return []byte("rendered:" + palette.Name), nil
}

func (r *fakeRenderer) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// fakeConceptGenerator implements generation.ConceptGenerator.
type fakeConceptGenerator struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (g *fakeConceptGenerator) GenerateConcept(_ context.Context, prompt string) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return []byte("concept:" + prompt), nil
}

func (g *fakeConceptGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// fakeSampler implements MemorySampler with a settable reading.
type fakeSampler struct {
	mu   sync.Mutex
	used float64
	err  error
}

func (s *fakeSampler) UsedPercent(context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.used, s.err
}

func (s *fakeSampler) set(used float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.used = used
}

// collectingPublisher records published status changes.
type collectingPublisher struct {
	mu      sync.Mutex
	changes []events.StatusChange
}

func (p *collectingPublisher) PublishStatusChange(_ context.Context, change events.StatusChange) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, change)
	return nil
}

func (p *collectingPublisher) statuses() []domain.TaskStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.TaskStatus, len(p.changes))
	for i, c := range p.changes {
		out[i] = c.Status
	}
	return out
}
