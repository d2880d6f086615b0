// Package config provides centralized configuration management for the importer.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
//
// Per-run settings (prefix, filter, sizes, ...) are command line flags and
// live in core.RunOptions; this package only holds deployment settings.
package config

import "time"

// Config holds all deployment configuration.
// All settings can be configured via environment variables.
type Config struct {
	Database    DatabaseConfig
	Fetch       FetchConfig
	Credentials CredentialsConfig
	Storage     StorageConfig
	Metrics     MetricsConfig
	Logging     LoggingConfig
}

// DatabaseConfig holds emoji registry connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// AutoMigrate creates the custom_emojis table when missing (default: true)
	AutoMigrate bool `env:"DB_AUTO_MIGRATE" default:"true"`
}

// FetchConfig bounds outbound requests.
type FetchConfig struct {
	// Timeout bounds a single image download (default: 30s)
	Timeout time.Duration `env:"FETCH_TIMEOUT" default:"30s"`

	// FeedTimeout bounds a source listing request (default: 60s)
	FeedTimeout time.Duration `env:"FETCH_FEED_TIMEOUT" default:"60s"`

	// MaxBytes is the largest accepted response or file (default: 10MB)
	MaxBytes int64 `env:"FETCH_MAX_BYTES" default:"10485760"`

	// UserAgent is sent with every HTTP request
	UserAgent string `env:"FETCH_USER_AGENT" default:"emojiimport/1.0"`
}

// CredentialsConfig holds provider API secrets. Each is only required by
// the sources that use it.
type CredentialsConfig struct {
	TwitchClientID    string `env:"TWITCH_CLIENT_ID"`
	TwitchAccessToken string `env:"TWITCH_ACCESS_TOKEN"`
	SlackToken        string `env:"SLACK_TOKEN"`
	DiscordBotToken   string `env:"DISCORD_BOT_TOKEN"`
}

// StorageConfig selects where image bytes are kept. With no bucket the
// bytes are stored inline in the registry table.
type StorageConfig struct {
	Bucket          string `env:"STORAGE_S3_BUCKET"`
	Endpoint        string `env:"STORAGE_S3_ENDPOINT"`
	Region          string `env:"STORAGE_S3_REGION" default:"us-east-1"`
	AccessKeyID     string `env:"STORAGE_S3_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"STORAGE_S3_SECRET_ACCESS_KEY"`
	Prefix          string `env:"STORAGE_S3_PREFIX" default:"emoji"`

	// PathStyle is required by MinIO and most S3-compatible servers (default: false)
	PathStyle bool `env:"STORAGE_S3_PATH_STYLE" default:"false"`
}

// Enabled reports whether object storage is configured.
func (s StorageConfig) Enabled() bool {
	return s.Bucket != ""
}

// MetricsConfig configures the Prometheus Pushgateway.
type MetricsConfig struct {
	// PushgatewayURL enables pushing run metrics when set
	PushgatewayURL string `env:"METRICS_PUSHGATEWAY_URL"`

	// Job is the Pushgateway job name (default: emojiimport)
	Job string `env:"METRICS_JOB" default:"emojiimport"`
}

// Enabled reports whether metrics should be pushed.
func (m MetricsConfig) Enabled() bool {
	return m.PushgatewayURL != ""
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}
