package logger

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/palettekit/palette-api/internal/config"
)

func TestSetup(t *testing.T) {
	cases := []struct {
		name      string
		level     string
		wantDebug bool
		wantInfo  bool
	}{
		{"debug level", "debug", true, true},
		{"info level", "info", false, true},
		{"warn level", "warn", false, false},
		{"error level", "error", false, false},
		{"invalid falls back to info", "verbose", false, true},
		{"case insensitive", "DEBUG", true, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			logger := Setup(config.ServerConfig{Port: 8080, LogLevel: tc.level})

			assert.NotNil(t, logger)
			assert.Equal(t, tc.wantDebug, logger.Enabled(context.Background(), slog.LevelDebug))
			assert.Equal(t, tc.wantInfo, logger.Enabled(context.Background(), slog.LevelInfo))
		})
	}
}
