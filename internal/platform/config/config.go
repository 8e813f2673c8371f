// Package config builds runtime configuration from environment variables
// so main stays lean. Defaults suit local development; production
// deployments override through the environment.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures every tunable of the server process.
type Config struct {
	Addr     string
	LogLevel string

	JWTSigningKey string
	JWTIssuer     string
	TokenTTL      time.Duration

	LockoutThreshold int
	LockoutDuration  time.Duration
	StoreTimeout     time.Duration

	DatabaseURL    string
	MigrationsPath string
	RedisURL       string

	AuditQueueCapacity int
	AuditRetention     time.Duration
	SessionRetention   time.Duration
	SweepInterval      time.Duration
}

// FromEnv reads configuration from the environment.
func FromEnv() Config {
	return Config{
		Addr:     getString("AUTHGATE_ADDR", ":8080"),
		LogLevel: getString("AUTHGATE_LOG_LEVEL", "info"),

		// Development default only; production must override.
		JWTSigningKey: getString("AUTHGATE_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:     getString("AUTHGATE_JWT_ISSUER", "authgate"),
		TokenTTL:      getDuration("AUTHGATE_TOKEN_TTL", time.Hour),

		LockoutThreshold: getInt("AUTHGATE_LOCKOUT_THRESHOLD", 5),
		LockoutDuration:  getDuration("AUTHGATE_LOCKOUT_DURATION", 15*time.Minute),
		StoreTimeout:     getDuration("AUTHGATE_STORE_TIMEOUT", 3*time.Second),

		DatabaseURL:    os.Getenv("AUTHGATE_DATABASE_URL"),
		MigrationsPath: getString("AUTHGATE_MIGRATIONS_PATH", "file://migrations"),
		RedisURL:       os.Getenv("AUTHGATE_REDIS_URL"),

		AuditQueueCapacity: getInt("AUTHGATE_AUDIT_QUEUE_CAPACITY", 4096),
		AuditRetention:     getDuration("AUTHGATE_AUDIT_RETENTION", 90*24*time.Hour),
		SessionRetention:   getDuration("AUTHGATE_SESSION_RETENTION", 24*time.Hour),
		SweepInterval:      getDuration("AUTHGATE_SWEEP_INTERVAL", time.Hour),
	}
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
