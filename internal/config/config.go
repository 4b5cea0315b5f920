package config

// Config holds all application configuration, grouped by the component that
// consumes it.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"     validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"   validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth"       validate:"required"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Search    SearchConfig    `mapstructure:"search"     validate:"required"`
	Sync      SyncConfig      `mapstructure:"sync"       validate:"required"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port                   int    `mapstructure:"port"                     validate:"required,gt=0,lt=65536"`
	LogLevel               string `mapstructure:"log_level"                validate:"required,oneof=debug info warn error"`
	Timezone               string `mapstructure:"timezone"                 validate:"required,timezone"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds" validate:"gt=0"`
}

// DatabaseConfig contains PostgreSQL connection settings.
type DatabaseConfig struct {
	URL          string `mapstructure:"url"            validate:"required,url"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gt=0"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" validate:"gte=0"`
	AutoMigrate  bool   `mapstructure:"auto_migrate"`
}

// AuthConfig contains token signing and password hashing settings.
type AuthConfig struct {
	JWTSecret                   string `mapstructure:"jwt_secret"                     validate:"required,min=32"`
	TokenLifetimeMinutes        int    `mapstructure:"token_lifetime_minutes"         validate:"required,gt=0,lte=1440"`
	RefreshTokenLifetimeMinutes int    `mapstructure:"refresh_token_lifetime_minutes" validate:"required,gt=0,gtfield=TokenLifetimeMinutes"`
	BcryptCost                  int    `mapstructure:"bcrypt_cost"                    validate:"gte=4,lte=31"`
}

// RedisConfig configures the optional Redis backend. An empty URL disables the
// list cache, the rate limiter and token revocation.
type RedisConfig struct {
	URL             string `mapstructure:"url"               validate:"omitempty,url"`
	CacheTTLSeconds int    `mapstructure:"cache_ttl_seconds" validate:"gt=0"`
}

// Enabled reports whether a Redis backend is configured.
func (c RedisConfig) Enabled() bool {
	return c.URL != ""
}

// RateLimitConfig configures the sliding-window request limiter.
type RateLimitConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	Requests      int  `mapstructure:"requests"       validate:"gt=0"`
	WindowSeconds int  `mapstructure:"window_seconds" validate:"gt=0"`
}

// SearchConfig bounds search input.
type SearchConfig struct {
	MaxQueryLength int `mapstructure:"max_query_length" validate:"gte=2,lte=1000"`
}

// SyncConfig configures the background search index synchronization.
type SyncConfig struct {
	WorkerCount          int `mapstructure:"worker_count"           validate:"gt=0"`
	QueueSize            int `mapstructure:"queue_size"             validate:"gt=0"`
	MaxAttempts          int `mapstructure:"max_attempts"           validate:"gt=0"`
	RetryBackoffSeconds  int `mapstructure:"retry_backoff_seconds"  validate:"gte=0"`
	StuckJobAgeMinutes   int `mapstructure:"stuck_job_age_minutes"  validate:"gt=0"`
	CheckIntervalSeconds int `mapstructure:"check_interval_seconds" validate:"gt=0"`

	// Reconciliation repairs index rows whose change event never became a job.
	ReconcileIntervalSeconds int `mapstructure:"reconcile_interval_seconds" validate:"gt=0"`
	ReconcileGraceSeconds    int `mapstructure:"reconcile_grace_seconds"    validate:"gte=0"`
	ReconcileBatchSize       int `mapstructure:"reconcile_batch_size"       validate:"gt=0,lte=10000"`
}
