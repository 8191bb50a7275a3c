// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port      string
	Env       string // "development", "staging", "production"
	LogLevel  string
	LogFormat string // "text" or "json"

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Decision thresholds
	TrustedThreshold  int
	ReverifyThreshold int

	// Security
	AdminSecret    string // Admin API secret
	RateLimitRPS   int
	AllowedOrigins string // Comma-separated CORS origins, empty = same-origin only

	// Observability
	OTLPEndpoint string // OTLP/gRPC trace collector, empty disables tracing
}

const (
	DefaultPort              = "8080"
	DefaultEnv               = "development"
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
	DefaultRateLimit         = 100
	DefaultTrustedThreshold  = 70
	DefaultReverifyThreshold = 45
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnv("PORT", DefaultPort),
		Env:               getEnv("ENV", DefaultEnv),
		LogLevel:          getEnv("LOG_LEVEL", DefaultLogLevel),
		LogFormat:         getEnv("LOG_FORMAT", DefaultLogFormat),
		DatabaseURL:       os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		TrustedThreshold:  getEnvInt("TRUSTED_THRESHOLD", DefaultTrustedThreshold),
		ReverifyThreshold: getEnvInt("REVERIFY_THRESHOLD", DefaultReverifyThreshold),
		AdminSecret:       os.Getenv("ADMIN_SECRET"),
		RateLimitRPS:      getEnvInt("RATE_LIMIT_RPS", DefaultRateLimit),
		AllowedOrigins:    os.Getenv("ALLOWED_ORIGINS"),
		OTLPEndpoint:      os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is coherent
func (c *Config) Validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("PORT must be numeric, got %q", c.Port)
	}

	if c.TrustedThreshold <= c.ReverifyThreshold {
		return fmt.Errorf("TRUSTED_THRESHOLD (%d) must be greater than REVERIFY_THRESHOLD (%d)",
			c.TrustedThreshold, c.ReverifyThreshold)
	}

	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be positive, got %d", c.RateLimitRPS)
	}

	if c.IsProduction() && c.AdminSecret == "" {
		return fmt.Errorf("ADMIN_SECRET is required in production")
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
