package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// envPrefix is the prefix for all environment variables consumed by the
// application, e.g. PALETTE_SERVER_PORT or PALETTE_DATABASE_URL.
const envPrefix = "PALETTE"

// Load configuration from environment variables and optionally a config file.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/palette-api")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// A missing config file is fine; env vars and defaults carry the load.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	// Required settings default to empty so viper registers the keys and
	// AutomaticEnv can populate them; validation rejects the empties.
	v.SetDefault("database.url", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("generation.gemini_api_key", "")

	v.SetDefault("nats.url", "nats://127.0.0.1:4222")

	v.SetDefault("generation.model_name", "gemini-2.0-flash-exp-image-generation")
	v.SetDefault("generation.max_retries", 3)
	v.SetDefault("generation.retry_delay_seconds", 2)

	v.SetDefault("worker.concurrency", 3)
	v.SetDefault("worker.min_concurrency", 1)
	v.SetDefault("worker.unit_timeout_seconds", 120)
	v.SetDefault("worker.heartbeat_seconds", 30)
	v.SetDefault("worker.memory_threshold_percent", 85)
	v.SetDefault("worker.memory_sample_seconds", 15)

	v.SetDefault("sweeper.interval_seconds", 300)
	v.SetDefault("sweeper.pending_age_minutes", 30)
	v.SetDefault("sweeper.processing_age_minutes", 20)
}
