package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration for the server, worker and CLI.
type Config struct {
	DatabaseURL string
	ServerPort  string
	FrontendURL string

	JWTSecret string
	TokenTTL  time.Duration

	Environment string // "development" or "production"; controls the Secure cookie attribute
	EnableHSTS  bool

	RedisURL    string
	RabbitMQURL string

	EnableReminders     bool
	ReminderDays        int
	ReminderInterval    time.Duration
	ReminderBatchLimit  int
	ReminderAdminSecret string

	GoogleClientID string

	ServerDebugMode bool
	WorkerDebugMode bool

	OTELEnabled  bool
	OTELEndpoint string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),

		JWTSecret: getEnv("JWT_SECRET", ""),
		TokenTTL:  getEnvDuration("TOKEN_TTL", time.Hour),

		Environment: getEnv("ENVIRONMENT", "development"),
		EnableHSTS:  getEnvBool("ENABLE_HSTS", false),

		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RabbitMQURL: getEnv("RABBITMQ_URL", ""),

		EnableReminders:     getEnvBool("ENABLE_REMINDERS", false),
		ReminderDays:        getEnvInt("REMINDER_DAYS", 3),
		ReminderInterval:    getEnvDuration("REMINDER_INTERVAL", 24*time.Hour),
		ReminderBatchLimit:  getEnvInt("REMINDER_BATCH_LIMIT", 100),
		ReminderAdminSecret: getEnv("REMINDER_ADMIN_SECRET", ""),

		GoogleClientID: getEnv("GOOGLE_CLIENT_ID", ""),

		ServerDebugMode: getEnvBool("SERVER_DEBUG_MODE", false),
		WorkerDebugMode: getEnvBool("WORKER_DEBUG_MODE", false),

		OTELEnabled:  getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.RabbitMQURL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required for reminder job queueing")
	}

	return cfg, nil
}

// IsProduction reports whether the process runs with production hardening
// (Secure cookies, HSTS eligibility).
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}
