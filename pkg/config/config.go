package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/listling/listling/pkg/observability"
	"github.com/listling/listling/pkg/store"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Store configuration
	Store store.Config

	// Auth configuration
	Auth AuthConfig

	// Rate limit configuration
	RateLimit RateLimitConfig

	// Redis configuration (optional; enables distributed rate limiting)
	Redis RedisConfig

	// Observability configuration
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
	MaxBodyBytes    int64
	CORSOrigins     []string

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// AuthConfig holds token signing configuration
type AuthConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// RateLimitConfig holds rate limit quotas as "<count>/<unit>" strings
type RateLimitConfig struct {
	Enabled bool
	// Default applies to every route without an override
	Default string
	// Register covers POST /users, Login covers POST /users/token
	Register string
	Login    string
}

// RedisConfig holds the optional Redis connection settings
type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

// Enabled reports whether a Redis endpoint is configured
func (c RedisConfig) Enabled() bool {
	return c.URL != ""
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Store:         LoadStoreConfig(),
		Auth:          loadAuthConfig(),
		RateLimit:     loadRateLimitConfig(),
		Redis:         loadRedisConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	cfg := ServerConfig{
		Host:            getEnv("LISTLING_HOST", "0.0.0.0"),
		Port:            getEnv("LISTLING_PORT", "8080"),
		ReadTimeout:     getEnvDuration("LISTLING_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("LISTLING_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("LISTLING_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("LISTLING_SHUTDOWN_TIMEOUT", 30*time.Second),
		MaxBodyBytes:    getEnvInt64("LISTLING_MAX_BODY_BYTES", 1<<20),
		HealthPort:      getEnv("LISTLING_HEALTH_PORT", "9090"),
	}
	if origins := getEnv("LISTLING_CORS_ORIGINS", ""); origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
			}
		}
	}
	return cfg
}

// LoadStoreConfig loads store configuration from environment. It is
// exported for tools that need a database handle without the full server
// configuration.
func LoadStoreConfig() store.Config {
	cfg := store.DefaultConfig()

	if driver := getEnv("LISTLING_DB_DRIVER", ""); driver != "" {
		cfg.Driver = driver
	}
	if dsn := getEnv("LISTLING_DB_URL", ""); dsn != "" {
		cfg.DSN = dsn
	}
	if maxConns := getEnvInt("LISTLING_DB_MAX_CONNS", 0); maxConns > 0 {
		cfg.MaxOpenConns = maxConns
	}
	if idleConns := getEnvInt("LISTLING_DB_IDLE_CONNS", 0); idleConns > 0 {
		cfg.MaxIdleConns = idleConns
	}
	if lifetime := getEnvDuration("LISTLING_DB_CONN_LIFETIME", 0); lifetime > 0 {
		cfg.ConnMaxLifetime = lifetime
	}
	if timeout := getEnvDuration("LISTLING_DB_TIMEOUT", 0); timeout > 0 {
		cfg.ConnTimeout = timeout
	}

	return cfg
}

// loadAuthConfig loads token configuration from environment
func loadAuthConfig() AuthConfig {
	return AuthConfig{
		Secret:     getEnv("LISTLING_SECRET", ""),
		AccessTTL:  getEnvDuration("LISTLING_ACCESS_TTL", 15*time.Minute),
		RefreshTTL: getEnvDuration("LISTLING_REFRESH_TTL", 5*time.Hour),
	}
}

// loadRateLimitConfig loads rate limit quotas from environment
func loadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Enabled:  getEnvBool("LISTLING_RATELIMIT_ENABLED", true),
		Default:  getEnv("LISTLING_RATELIMIT_DEFAULT", "100/minute"),
		Register: getEnv("LISTLING_RATELIMIT_REGISTER", "10/minute"),
		Login:    getEnv("LISTLING_RATELIMIT_LOGIN", "10/minute"),
	}
}

// loadRedisConfig loads the optional Redis settings from environment
func loadRedisConfig() RedisConfig {
	return RedisConfig{
		URL:      getEnv("LISTLING_REDIS_URL", ""),
		Password: getEnv("LISTLING_REDIS_PASSWORD", ""),
		DB:       getEnvInt("LISTLING_REDIS_DB", 0),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("LISTLING_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("LISTLING_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("LISTLING_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("LISTLING_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("LISTLING_OTEL_SERVICE_NAME", "listling"),
		OTelServiceVersion: getEnv("LISTLING_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("LISTLING_OTEL_INSECURE", true),
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

	switch c.Store.Driver {
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("invalid db driver: %s (must be postgres or sqlite3)", c.Store.Driver)
	}
	if c.Store.DSN == "" {
		return fmt.Errorf("db url is required")
	}

	if c.Auth.Secret == "" {
		return fmt.Errorf("token secret is required (set LISTLING_SECRET)")
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= 0 {
		return fmt.Errorf("token lifetimes must be positive")
	}

	if c.RateLimit.Enabled {
		for name, quota := range map[string]string{
			"default":  c.RateLimit.Default,
			"register": c.RateLimit.Register,
			"login":    c.RateLimit.Login,
		} {
			if err := validateQuota(quota); err != nil {
				return fmt.Errorf("invalid %s rate limit: %w", name, err)
			}
		}
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

// validateQuota checks the "<count>/<unit>" quota format
func validateQuota(s string) error {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return fmt.Errorf("%q is not of the form <count>/<unit>", s)
	}
	if n, err := strconv.Atoi(parts[0]); err != nil || n <= 0 {
		return fmt.Errorf("%q has a non-positive count", s)
	}
	switch strings.ToLower(parts[1]) {
	case "second", "minute", "hour", "day":
		return nil
	}
	return fmt.Errorf("%q has an unknown unit", s)
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
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
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
