// Package config loads gateway configuration from PORTICO_* environment
// variables and validates it before the server starts.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/porticohq/portico/pkg/observability"
)

// Config holds all gateway configuration
type Config struct {
	Server        ServerConfig
	Auth          AuthConfig
	Session       SessionConfig
	Guard         GuardConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// AuthConfig holds the upstream auth service configuration
type AuthConfig struct {
	// BaseURL of the auth backend the gateway proxies credentials to
	BaseURL        string
	RequestTimeout time.Duration

	// Optional OIDC single sign-on
	OIDCEnabled      bool
	OIDCIssuer       string
	OIDCClientID     string
	OIDCClientSecret string
	OIDCRedirectURL  string
}

// SessionConfig holds session persistence configuration
type SessionConfig struct {
	// StoreType selects the persistence backend: memory, filesystem,
	// sqlite, postgres, or redis
	StoreType string

	FilesystemDir string
	SQLiteDSN     string
	PostgresURL   string
	RedisURL      string

	// RefreshSchedule is a cron expression for periodic feature refreshes
	RefreshSchedule string
}

// GuardConfig holds route guard configuration
type GuardConfig struct {
	// DecisionCacheSize bounds the LRU cache of cookie decode results
	DecisionCacheSize int
	// RetryAfterSeconds is the hint returned while the session is restoring
	RetryAfterSeconds int
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Auth:          loadAuthConfig(),
		Session:       loadSessionConfig(),
		Guard:         loadGuardConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("PORTICO_HOST", "0.0.0.0"),
		Port:            getEnv("PORTICO_PORT", "8080"),
		ReadTimeout:     getEnvDuration("PORTICO_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("PORTICO_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("PORTICO_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("PORTICO_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("PORTICO_HEALTH_PORT", "9090"),
	}
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		BaseURL:          getEnv("PORTICO_AUTH_URL", "http://localhost:8000"),
		RequestTimeout:   getEnvDuration("PORTICO_AUTH_TIMEOUT", 10*time.Second),
		OIDCEnabled:      getEnvBool("PORTICO_OIDC_ENABLED", false),
		OIDCIssuer:       getEnv("PORTICO_OIDC_ISSUER", ""),
		OIDCClientID:     getEnv("PORTICO_OIDC_CLIENT_ID", ""),
		OIDCClientSecret: getEnv("PORTICO_OIDC_CLIENT_SECRET", ""),
		OIDCRedirectURL:  getEnv("PORTICO_OIDC_REDIRECT_URL", ""),
	}
}

func loadSessionConfig() SessionConfig {
	return SessionConfig{
		StoreType:       getEnv("PORTICO_SESSION_STORE", "memory"),
		FilesystemDir:   getEnv("PORTICO_SESSION_DIR", ""),
		SQLiteDSN:       getEnv("PORTICO_SESSION_SQLITE_DSN", ""),
		PostgresURL:     getEnv("PORTICO_SESSION_POSTGRES_URL", ""),
		RedisURL:        getEnv("PORTICO_SESSION_REDIS_URL", ""),
		RefreshSchedule: getEnv("PORTICO_FEATURE_REFRESH_SCHEDULE", "@every 5m"),
	}
}

func loadGuardConfig() GuardConfig {
	return GuardConfig{
		DecisionCacheSize: getEnvInt("PORTICO_GUARD_CACHE_SIZE", 1024),
		RetryAfterSeconds: getEnvInt("PORTICO_GUARD_RETRY_AFTER", 1),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           observability.ParseLogLevel(getEnv("PORTICO_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("PORTICO_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("PORTICO_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("PORTICO_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("PORTICO_OTEL_SERVICE_NAME", "portico-gateway"),
		OTelServiceVersion: getEnv("PORTICO_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("PORTICO_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Auth.BaseURL == "" {
		return fmt.Errorf("auth base URL is required")
	}
	if c.Auth.OIDCEnabled {
		if c.Auth.OIDCIssuer == "" || c.Auth.OIDCClientID == "" {
			return fmt.Errorf("OIDC issuer and client ID are required when OIDC is enabled")
		}
	}

	switch c.Session.StoreType {
	case "memory":
	case "filesystem":
		if c.Session.FilesystemDir == "" {
			return fmt.Errorf("session directory is required for filesystem store")
		}
	case "sqlite":
		if c.Session.SQLiteDSN == "" {
			return fmt.Errorf("sqlite DSN is required for sqlite store")
		}
	case "postgres":
		if c.Session.PostgresURL == "" {
			return fmt.Errorf("postgres URL is required for postgres store")
		}
	case "redis":
		if c.Session.RedisURL == "" {
			return fmt.Errorf("redis URL is required for redis store")
		}
	default:
		return fmt.Errorf("invalid session store type: %s (must be memory, filesystem, sqlite, postgres, or redis)", c.Session.StoreType)
	}

	if c.Guard.DecisionCacheSize <= 0 {
		return fmt.Errorf("guard cache size must be positive")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
