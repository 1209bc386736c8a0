// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port      string
	Env       string // "development", "staging", "production"
	LogLevel  string
	LogFormat string // "text" or "json"

	// Model artifact shared by the training pipeline and the server
	ModelPath string

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Tracing
	OTLPEndpoint string // OTLP gRPC collector (optional, tracing is a no-op if not set)
}

const (
	DefaultPort      = "5000"
	DefaultEnv       = "development"
	DefaultLogFormat = "text"
	DefaultModelPath = "fraud_model.json"
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	env := getEnv("ENV", DefaultEnv)
	cfg := &Config{
		Port:         getEnv("PORT", DefaultPort),
		Env:          env,
		LogLevel:     getEnv("LOG_LEVEL", defaultLogLevel(env)),
		LogFormat:    getEnv("LOG_FORMAT", DefaultLogFormat),
		ModelPath:    getEnv("MODEL_PATH", DefaultModelPath),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	for _, r := range c.Port {
		if r < '0' || r > '9' {
			return fmt.Errorf("PORT must be numeric, got %q", c.Port)
		}
	}
	if strings.TrimSpace(c.ModelPath) == "" {
		return fmt.Errorf("MODEL_PATH is required")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
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

func defaultLogLevel(env string) string {
	if env == DefaultEnv {
		return "debug"
	}
	return "info"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
