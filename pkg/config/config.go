// Package config loads service configuration from the environment and an optional .env file.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Commerce CommerceConfig
	Flow     FlowConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	LogLevel           string
	CorsAllowedOrigins []string
	RedisURL           string
	NatsURL            string
}

type DatabaseConfig struct {
	URL string
}

// CommerceConfig points at an external commerce API. When BaseURL is empty, orders are
// read from the local database instead.
type CommerceConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type FlowConfig struct {
	CatalogCacheTTL time.Duration
	SeedFlows       bool
}

// IsProduction reports whether the service runs with GO_ENV=production.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "8080"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/support-flows.log"),
			LogLevel:           getEnv("LOG_LEVEL", "debug"),
			CorsAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3003"}),
			RedisURL:           getEnv("REDIS_URL", ""),
			NatsURL:            getEnv("NATS_URL", ""),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Commerce: CommerceConfig{
			BaseURL: getEnv("COMMERCE_API_URL", ""),
			APIKey:  getEnv("COMMERCE_API_KEY", ""),
			Timeout: getEnvAsDuration("COMMERCE_API_TIMEOUT", 10*time.Second),
		},
		Flow: FlowConfig{
			CatalogCacheTTL: getEnvAsDuration("FLOW_CACHE_TTL", 5*time.Minute),
			SeedFlows:       getEnvAsBool("SEED_FLOWS", true),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	value, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return value
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("Invalid duration in environment, using default", "key", key, "value", raw, "default", fallback)
		return fallback
	}
	return value
}

func getEnvAsList(key string, fallback []string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
