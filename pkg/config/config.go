package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/joho/godotenv"
)

// Environment name constants used in ENVIRONMENT config field.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTesting     = "testing"
)

// Config holds all configuration for the application
type Config struct {
	// HTTP
	HTTPAddr           string        `conf:"default::8080,env:HTTP_ADDR"`
	HTTPHandlerTimeout time.Duration `conf:"default:60s,env:HTTP_HANDLER_TIMEOUT"`
	RateLimitPerMinute int           `conf:"default:600,env:RATE_LIMIT_PER_MINUTE"`

	// Remote item store
	RemoteBaseURL string        `conf:"default:http://localhost:3000/api,env:REMOTE_BASE_URL"`
	RemoteTimeout time.Duration `conf:"default:30s,env:REMOTE_TIMEOUT"`
	RemoteDebug   bool          `conf:"default:false,env:REMOTE_DEBUG"`

	// Redis
	RedisURL      string `conf:"default:redis://localhost:6379,env:REDIS_URL"`
	RedisPoolSize int    `conf:"default:10,env:REDIS_POOL_SIZE"`

	// Item cache (read-through cache for single-item reads)
	ItemCacheEnabled bool          `conf:"default:true,env:ITEM_CACHE_ENABLED"`
	ItemCacheTTL     time.Duration `conf:"default:5m,env:ITEM_CACHE_TTL"`

	// Workspaces
	WorkspaceLimit int           `conf:"default:1024,env:WORKSPACE_LIMIT"`
	WorkspaceTTL   time.Duration `conf:"default:12h,env:WORKSPACE_TTL"`
	NoticeTTL      time.Duration `conf:"default:5s,env:NOTICE_TTL"`

	// Application
	LogLevel    string `conf:"default:info,env:LOG_LEVEL"`
	Environment string `conf:"default:development,enum:development|testing|production,env:ENVIRONMENT"`

	// Session
	SessionAuthKey       string `conf:"default:dev-auth-key-32-bytes-long!!!,env:SESSION_AUTH_KEY"`
	SessionEncryptionKey string `conf:"default:dev-encryption-key-32-bytes!!,env:SESSION_ENCRYPTION_KEY"`

	// CORS: comma-separated list of allowed origins; use * to allow all (dev only)
	CORSAllowedOrigins string `conf:"default:*,env:CORS_ALLOWED_ORIGINS"`

	// Observability
	ServiceName    string `conf:"default:lotdesk,env:SERVICE_NAME"`
	ServiceVersion string `conf:"default:dev,env:SERVICE_VERSION"`
	OtelEndpoint   string `conf:"env:OTEL_ENDPOINT"` // host:port, empty disables OTLP export
	SentryDSN      string `conf:"env:SENTRY_DSN,noprint"`
}

// Load reads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	var cfg Config
	_ = godotenv.Load()
	if _, err := conf.Parse("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}

// ValidateForProduction enforces security requirements when ENVIRONMENT=production.
// Returns an error if any critical settings are missing or unsafe.
// No-ops for non-production environments.
func ValidateForProduction(cfg *Config) error {
	if cfg.Environment != EnvProduction {
		return nil
	}

	var errs []string

	if len(cfg.SessionAuthKey) < 32 {
		errs = append(errs, fmt.Sprintf(
			"SESSION_AUTH_KEY must be at least 32 bytes (got %d); generate with: openssl rand -base64 32",
			len(cfg.SessionAuthKey),
		))
	}

	if len(cfg.SessionEncryptionKey) < 16 {
		errs = append(errs, fmt.Sprintf(
			"SESSION_ENCRYPTION_KEY must be at least 16 bytes (got %d); generate with: openssl rand -base64 16",
			len(cfg.SessionEncryptionKey),
		))
	}

	if cfg.LogLevel == "debug" {
		errs = append(errs, "LOG_LEVEL must not be 'debug' in production (may leak sensitive data)")
	}

	if cfg.CORSAllowedOrigins == "*" {
		errs = append(errs, "CORS_ALLOWED_ORIGINS must list explicit origins in production")
	}

	if u, err := url.Parse(cfg.RemoteBaseURL); err != nil || u.Scheme != "https" {
		errs = append(errs, "REMOTE_BASE_URL must be an https URL in production")
	}

	if cfg.RemoteDebug {
		errs = append(errs, "REMOTE_DEBUG must be off in production (dumps request bodies)")
	}

	if len(errs) == 0 {
		return nil
	}

	return fmt.Errorf("production config validation failed: %s", strings.Join(errs, "; "))
}
