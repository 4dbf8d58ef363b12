package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database" validate:"required"`
	Auth       AuthConfig       `mapstructure:"auth" validate:"required"`
	NATS       NATSConfig       `mapstructure:"nats" validate:"required"`
	Generation GenerationConfig `mapstructure:"generation" validate:"required"`
	Worker     WorkerConfig     `mapstructure:"worker" validate:"required"`
	Sweeper    SweeperConfig    `mapstructure:"sweeper" validate:"required"`
}

// ServerConfig contains all HTTP server related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// AuthConfig contains authentication settings for the API surface.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
}

// NATSConfig contains message bus settings for task triggers and status
// change notifications.
type NATSConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// GenerationConfig contains settings for the image generation backend.
type GenerationConfig struct {
	GeminiAPIKey      string `mapstructure:"gemini_api_key" validate:"required"`
	ModelName         string `mapstructure:"model_name" validate:"required"`
	MaxRetries        int    `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds" validate:"gte=1,lte=60"`
}

// WorkerConfig contains settings for the fan-out engine: the concurrency
// limiter, per-unit timeouts, heartbeating, and the adaptive memory governor.
type WorkerConfig struct {
	Concurrency            int     `mapstructure:"concurrency" validate:"required,gte=1,lte=32"`
	MinConcurrency         int     `mapstructure:"min_concurrency" validate:"gte=1"`
	UnitTimeoutSeconds     int     `mapstructure:"unit_timeout_seconds" validate:"required,gte=1"`
	HeartbeatSeconds       int     `mapstructure:"heartbeat_seconds" validate:"required,gte=1"`
	MemoryThresholdPercent float64 `mapstructure:"memory_threshold_percent" validate:"gte=0,lte=100"`
	MemorySampleSeconds    int     `mapstructure:"memory_sample_seconds" validate:"gte=1"`
}

// UnitTimeout returns the per-unit time budget as a duration.
func (w WorkerConfig) UnitTimeout() time.Duration {
	return time.Duration(w.UnitTimeoutSeconds) * time.Second
}

// HeartbeatInterval returns the processing heartbeat period as a duration.
func (w WorkerConfig) HeartbeatInterval() time.Duration {
	return time.Duration(w.HeartbeatSeconds) * time.Second
}

// MemorySampleInterval returns the governor sampling period as a duration.
func (w WorkerConfig) MemorySampleInterval() time.Duration {
	return time.Duration(w.MemorySampleSeconds) * time.Second
}

// SweeperConfig contains settings for the stale task reconciliation pass.
type SweeperConfig struct {
	IntervalSeconds      int `mapstructure:"interval_seconds" validate:"required,gte=1"`
	PendingAgeMinutes    int `mapstructure:"pending_age_minutes" validate:"required,gte=1"`
	ProcessingAgeMinutes int `mapstructure:"processing_age_minutes" validate:"required,gte=1"`
}

// Interval returns the sweep period as a duration.
func (s SweeperConfig) Interval() time.Duration {
	return time.Duration(s.IntervalSeconds) * time.Second
}

// PendingAge returns the never-claimed threshold as a duration.
func (s SweeperConfig) PendingAge() time.Duration {
	return time.Duration(s.PendingAgeMinutes) * time.Minute
}

// ProcessingAge returns the dead-worker threshold as a duration.
func (s SweeperConfig) ProcessingAge() time.Duration {
	return time.Duration(s.ProcessingAgeMinutes) * time.Minute
}
