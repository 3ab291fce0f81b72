// Package config provides centralized configuration management for the service.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"

	"github.com/JonMunkholm/csvanomaly/internal/core"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Upload    UploadConfig
	Limits    LimitsConfig
	Detection DetectionConfig
	Breaker   BreakerConfig
	Rate      RateLimitConfig
	Security  SecurityConfig
	Logging   LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading the request body (default: 60s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"60s"`

	// WriteTimeout is the maximum duration for writing the response (default: 0, bounded by RequestTimeout)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 5m)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"5m"`
}

// DatabaseConfig holds the optional run history database settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Empty keeps run history in memory.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// HistoryCapacity is the number of runs kept when no database is configured (default: 200)
	HistoryCapacity int `env:"RUN_HISTORY_CAPACITY" default:"200"`
}

// UploadConfig holds detection concurrency settings.
type UploadConfig struct {
	// MaxConcurrent is the maximum number of detection runs in flight (default: 4)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long to wait for a run slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`

	// MaxMemory is the multipart form memory budget in bytes before spilling to disk (default: 32MB)
	MaxMemory int64 `env:"UPLOAD_MAX_MEMORY" default:"33554432"`
}

// LimitsConfig holds the sanitization limits. When File is set, its YAML
// values replace the ones read from the environment.
type LimitsConfig struct {
	// MaxFileSizeMB is the upload size limit in megabytes (default: 200)
	MaxFileSizeMB int64 `env:"LIMIT_MAX_FILE_SIZE_MB" default:"200" yaml:"max_file_size_mb"`

	// MaxRows is the maximum number of data rows (default: 1000000)
	MaxRows int `env:"LIMIT_MAX_ROWS" default:"1000000" yaml:"max_rows"`

	// MaxColumns is the maximum number of columns (default: 200)
	MaxColumns int `env:"LIMIT_MAX_COLUMNS" default:"200" yaml:"max_columns"`

	// MinNumericColumns is the minimum number of numeric columns for numeric detection (default: 1)
	MinNumericColumns int `env:"LIMIT_MIN_NUMERIC_COLUMNS" default:"1" yaml:"min_numeric_columns"`

	// File is an optional YAML file overriding the limits above
	File string `env:"LIMITS_FILE" yaml:"-"`
}

// DetectionConfig holds settings for the default collaborators.
type DetectionConfig struct {
	// Contamination is the expected share of anomalous rows (default: 0.1)
	Contamination float64 `env:"DETECT_CONTAMINATION" default:"0.1"`

	// Trees is the number of isolation trees (default: 100)
	Trees int `env:"DETECT_TREES" default:"100"`

	// SampleSize is the subsample size per tree (default: 256)
	SampleSize int `env:"DETECT_SAMPLE_SIZE" default:"256"`

	// Seed makes scoring reproducible (default: 42)
	Seed int64 `env:"DETECT_SEED" default:"42"`

	// Explainability enables per-feature attributions (default: true)
	Explainability bool `env:"DETECT_EXPLAINABILITY" default:"true"`

	// ExplainWorkers bounds the rows explained in parallel (default: 4)
	ExplainWorkers int `env:"DETECT_EXPLAIN_WORKERS" default:"4"`

	// Categorical enables the categorical detection endpoint (default: true)
	Categorical bool `env:"DETECT_CATEGORICAL" default:"true"`

	// Percentile is the default categorical threshold percentile (default: 95)
	Percentile float64 `env:"DETECT_PERCENTILE" default:"95"`
}

// BreakerConfig holds circuit breaker settings for the detection collaborators.
type BreakerConfig struct {
	// Failures is the number of consecutive failures that opens a breaker; negative disables (default: 5)
	Failures int `env:"BREAKER_FAILURES" default:"5"`

	// Timeout is how long a breaker stays open before probing again (default: 30s)
	Timeout time.Duration `env:"BREAKER_TIMEOUT" default:"30s"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// UploadLimit is requests per minute for detection endpoints (default: 10)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey enables X-API-Key authentication on /api routes (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// HistoryEnabled reports whether run history goes to PostgreSQL.
func (c *DatabaseConfig) HistoryEnabled() bool {
	return c.URL != ""
}

// CoreLimits converts the configured limits to the pipeline's Limits.
func (c *LimitsConfig) CoreLimits() core.Limits {
	return core.Limits{
		MaxFileSizeBytes:  c.MaxFileSizeMB * 1024 * 1024,
		MaxRows:           c.MaxRows,
		MaxColumns:        c.MaxColumns,
		MinNumericColumns: c.MinNumericColumns,
	}
}

// Settings converts the breaker config for the core guards.
func (c *BreakerConfig) Settings() core.BreakerSettings {
	return core.BreakerSettings{Failures: c.Failures, Timeout: c.Timeout}
}
