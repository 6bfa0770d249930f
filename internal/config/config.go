// Package config provides centralized configuration management for the
// mobility filter service. Settings come from environment variables (a .env
// file is honoured by the entry point) with defaults, and are validated on
// startup so misconfiguration fails fast.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Upload   UploadConfig
	Session  SessionConfig
	Filter   FilterConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
}

// AppConfig holds page-level presentation settings.
type AppConfig struct {
	// Title is shown in the browser tab and page header
	Title string `env:"APP_TITLE" default:"Mobility records filter"`

	// Icon is an emoji or short text shown before the title
	Icon string `env:"APP_ICON" default:"🌍"`

	// Footer is the line rendered at the bottom of every page
	Footer string `env:"APP_FOOTER" default:"Mobility records filter - data stays in your session only"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on; PORT is honoured for PaaS deployments
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"60s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 2m)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"2m"`
}

// UploadConfig holds file upload processing settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 200MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"209715200"`

	// MaxConcurrent is the maximum number of files parsed in parallel (default: 5)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long to wait for a parsing slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`

	// Timeout bounds a single parse (default: 5m)
	Timeout time.Duration `env:"UPLOAD_TIMEOUT" default:"5m"`
}

// SessionConfig holds per-browser state settings.
type SessionConfig struct {
	// CookieName is the session cookie name (default: mobility_session)
	CookieName string `env:"SESSION_COOKIE_NAME" default:"mobility_session"`

	// CookieSecure sets the Secure attribute; enable behind HTTPS
	CookieSecure bool `env:"SESSION_COOKIE_SECURE" default:"false"`

	// TTL is how long an idle session keeps its datasets (default: 2h)
	TTL time.Duration `env:"SESSION_TTL" default:"2h"`

	// MaxSessions caps live sessions; the least recently used is evicted
	MaxSessions int `env:"SESSION_MAX" default:"500"`

	// SweepInterval is how often expired sessions are evicted (default: 5m)
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" default:"5m"`
}

// FilterConfig holds filter pipeline settings.
type FilterConfig struct {
	// MinYear is the earliest year offered (default: 2023)
	MinYear int `env:"FILTER_MIN_YEAR" default:"2023"`

	// AllRegionsLabel is the pseudo-region meaning "no restriction"
	AllRegionsLabel string `env:"FILTER_ALL_REGIONS_LABEL" default:"All regions"`

	// Placeholder fills optional columns missing from the upload
	Placeholder string `env:"FILTER_PLACEHOLDER" default:"Not available"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 300)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"300"`

	// UploadLimit is requests per minute for upload endpoints (default: 20)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"20"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
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
	Enabled bool   `env:"METRICS_ENABLED" default:"true"`
	Path    string `env:"METRICS_PATH" default:"/metrics"`

	// Token, when set, must be presented as a bearer token to scrape
	Token string `env:"METRICS_TOKEN"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
