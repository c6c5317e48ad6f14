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
	Server   ServerConfig
	Database DatabaseConfig
	Project  ProjectConfig
	Export   ExportConfig
	History  HistoryConfig
	Security SecurityConfig
	Watch    WatchConfig
	Metrics  MetricsConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 127.0.0.1)
	Host string `env:"SERVER_HOST" default:"127.0.0.1"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 0 for SSE)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for API requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds the optional export history database settings.
// Without a URL, history is kept in memory.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections to keep open (default: 0)
	MinConns int `env:"DB_MIN_CONNS" default:"0"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// ProjectConfig names the project and schema sources loaded at startup.
type ProjectConfig struct {
	// Path is a .carp project document opened at startup
	Path string `env:"CARP_PROJECT"`

	// MapURL is the MAP JSON location; MapFile is used when it is empty
	MapURL  string `env:"CARP_MAP_URL"`
	MapFile string `env:"CARP_MAP_FILE"`

	// VocabularyURL is the Turtle vocabulary location; VocabularyFile is
	// used when it is empty
	VocabularyURL  string `env:"CARP_VOCABULARY_URL"`
	VocabularyFile string `env:"CARP_VOCABULARY_FILE"`

	// FetchTimeout bounds MAP and vocabulary downloads (default: 30s)
	FetchTimeout time.Duration `env:"FETCH_TIMEOUT" default:"30s"`
}

// MapSource returns the configured MAP location, URL first.
func (c *ProjectConfig) MapSource() string {
	if c.MapURL != "" {
		return c.MapURL
	}
	return c.MapFile
}

// VocabularySource returns the configured vocabulary location, URL first.
func (c *ProjectConfig) VocabularySource() string {
	if c.VocabularyURL != "" {
		return c.VocabularyURL
	}
	return c.VocabularyFile
}

// ExportConfig holds export settings.
type ExportConfig struct {
	// Username is written to the Avalon batch manifest
	Username string `env:"EXPORT_USERNAME" envAlt:"USER"`

	// LineEnding is platform, lf or crlf (default: platform)
	LineEnding string `env:"EXPORT_LINE_ENDING" default:"platform"`

	// Timeout bounds a single export run (default: 2h)
	Timeout time.Duration `env:"EXPORT_TIMEOUT" default:"2h"`
}

// HistoryConfig holds export history retention settings.
type HistoryConfig struct {
	// RetentionDays is how long history entries are kept (default: 90)
	RetentionDays int `env:"HISTORY_RETENTION_DAYS" default:"90"`

	// CheckInterval is how often to prune (default: 24h)
	CheckInterval time.Duration `env:"HISTORY_CHECK_INTERVAL" default:"24h"`

	// MemorySize bounds the in-memory history (default: 500)
	MemorySize int `env:"HISTORY_MEMORY_SIZE" default:"500"`
}

// MaxAge returns the retention period as a duration.
func (c *HistoryConfig) MaxAge() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey enables X-API-Key checks on /api routes (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`
}

// WatchConfig holds Files directory watching settings.
type WatchConfig struct {
	// Enabled rescans the project when its Files directory changes (default: true)
	Enabled bool `env:"WATCH_ENABLED" default:"true"`

	// Debounce is the quiet period before a rescan (default: 500ms)
	Debounce time.Duration `env:"WATCH_DEBOUNCE" default:"500ms"`
}

// MetricsConfig holds Prometheus endpoint settings.
type MetricsConfig struct {
	// Enabled exposes the metrics endpoint (default: true)
	Enabled bool `env:"METRICS_ENABLED" default:"true"`

	// Path is the metrics endpoint path (default: /metrics)
	Path string `env:"METRICS_PATH" default:"/metrics"`
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
