package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// EnvPrefix is prepended to every environment variable the loader reads,
// e.g. TASKFLOW_DATABASE_URL for database.url.
const EnvPrefix = "TASKFLOW"

// defaults lists every known key. Registering a default is also what makes
// viper consider the matching environment variable during Unmarshal.
var defaults = map[string]any{
	"server.port":                         8080,
	"server.log_level":                    "info",
	"server.timezone":                     "UTC",
	"server.shutdown_timeout_seconds":     10,
	"database.url":                        "",
	"database.max_open_conns":             10,
	"database.max_idle_conns":             5,
	"database.auto_migrate":               false,
	"auth.jwt_secret":                     "",
	"auth.token_lifetime_minutes":         60,
	"auth.refresh_token_lifetime_minutes": 10080,
	"auth.bcrypt_cost":                    bcrypt.DefaultCost,
	"redis.url":                           "",
	"redis.cache_ttl_seconds":             30,
	"rate_limit.enabled":                  false,
	"rate_limit.requests":                 120,
	"rate_limit.window_seconds":           60,
	"search.max_query_length":             255,
	"sync.worker_count":                   2,
	"sync.queue_size":                     256,
	"sync.max_attempts":                   5,
	"sync.retry_backoff_seconds":          2,
	"sync.stuck_job_age_minutes":          5,
	"sync.check_interval_seconds":         60,
	"sync.reconcile_interval_seconds":     120,
	"sync.reconcile_grace_seconds":        60,
	"sync.reconcile_batch_size":           500,
}

// Load reads configuration from environment variables and an optional
// config.yaml in the working directory. Environment variables win over the
// file, the file wins over defaults. The result is validated before return.
func Load() (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks a Config against its struct tags.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
