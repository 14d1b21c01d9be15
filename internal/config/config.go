// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server    ServerConfig
	Generator GeneratorConfig
	Store     StoreConfig
	Rate      RateLimitConfig
	Security  SecurityConfig
	Logging   LoggingConfig
	Metrics   MetricsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// GeneratorConfig holds the limits enforced on generation requests.
// The form controls use the same limits as their min/max attributes.
type GeneratorConfig struct {
	// MaxRows caps the number of rows per dataset (default: 100000)
	MaxRows int `env:"GEN_MAX_ROWS" default:"100000"`

	// MaxSubjects caps the number of distinct subject IDs (default: 1000)
	MaxSubjects int `env:"GEN_MAX_SUBJECTS" default:"1000"`

	// MaxCategories caps categories in a random configuration (default: 20)
	MaxCategories int `env:"GEN_MAX_CATEGORIES" default:"20"`

	// MaxTests caps tests per category in a random configuration (default: 10)
	MaxTests int `env:"GEN_MAX_TESTS" default:"10"`

	// MaxColumns caps the number of custom columns (default: 50)
	MaxColumns int `env:"GEN_MAX_COLUMNS" default:"50"`

	// PreviewRows is how many rows the preview page shows (default: 50)
	PreviewRows int `env:"GEN_PREVIEW_ROWS" default:"50"`

	// MaxConcurrent caps generations running at once (default: 4)
	MaxConcurrent int `env:"GEN_MAX_CONCURRENT" default:"4"`

	// MaxWait is how long a request waits for a generation slot (default: 10s)
	MaxWait time.Duration `env:"GEN_MAX_WAIT" default:"10s"`
}

// StoreConfig holds settings for the category/test configuration files.
type StoreConfig struct {
	// Dir is where saved configurations are written as CSV (default: ./configs)
	Dir string `env:"CONFIG_DIR" default:"configs"`

	// DefaultPath is an optional CSV used when nothing is uploaded
	DefaultPath string `env:"CONFIG_DEFAULT_PATH"`

	// Watch reloads DefaultPath when it changes on disk (default: false)
	Watch bool `env:"CONFIG_WATCH" default:"false"`

	// MaxFileSize is the maximum accepted upload size in bytes (default: 5MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"5242880"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// GenerateLimit is requests per minute for generation endpoints (default: 20)
	GenerateLimit int `env:"RATE_LIMIT_GENERATE" default:"20"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey protects /api routes with the X-API-Key header (default: false)
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

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	// Enabled mounts the metrics handler (default: true)
	Enabled bool `env:"METRICS_ENABLED" default:"true"`

	// Path is the route the metrics handler is mounted on (default: /metrics)
	Path string `env:"METRICS_PATH" default:"/metrics"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
