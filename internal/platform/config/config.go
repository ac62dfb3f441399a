package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the resolver service reads from the
// environment. FromEnv applies development defaults so main stays lean;
// production deployments override via env vars.
type Config struct {
	Addr        string
	DatabaseURL string
	Redis       RedisConfig
	Kafka       KafkaConfig

	JWTSigningKey string
	// SchedulerSecretHash is the bcrypt hash of the shared secret batch
	// schedulers exchange for a JWT at /auth/token.
	SchedulerSecretHash string

	// Batch tuning for the resolution drivers.
	BatchSize int
	// MaxBatchIterations is the hard safety cap on driver loops so
	// pathological data cannot produce a runaway job.
	MaxBatchIterations int

	// CoordinateThresholdMeters is the distance under which two places with
	// coordinates are treated as duplicates.
	CoordinateThresholdMeters float64

	// PatternCacheTTL bounds staleness of the Redis-cached pattern registry.
	PatternCacheTTL time.Duration
}

// RedisConfig mirrors the go-redis options we care about.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the audit outbox publisher.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:                      envOr("RESOLVER_ADDR", ":8080"),
		DatabaseURL:               os.Getenv("DATABASE_URL"),
		JWTSigningKey:             envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		SchedulerSecretHash:       os.Getenv("SCHEDULER_SECRET_HASH"),
		BatchSize:                 envIntOr("RESOLVER_BATCH_SIZE", 200),
		MaxBatchIterations:        envIntOr("RESOLVER_MAX_BATCH_ITERATIONS", 50),
		CoordinateThresholdMeters: envFloatOr("RESOLVER_COORD_THRESHOLD_METERS", 100),
		PatternCacheTTL:           envDurationOr("PATTERN_CACHE_TTL", 5*time.Minute),
	}

	cfg.Redis = RedisConfig{
		URL:          os.Getenv("REDIS_URL"),
		PoolSize:     envIntOr("REDIS_POOL_SIZE", 10),
		MinIdleConns: envIntOr("REDIS_MIN_IDLE_CONNS", 2),
		DialTimeout:  envDurationOr("REDIS_DIAL_TIMEOUT", 5*time.Second),
		ReadTimeout:  envDurationOr("REDIS_READ_TIMEOUT", 3*time.Second),
		WriteTimeout: envDurationOr("REDIS_WRITE_TIMEOUT", 3*time.Second),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka = KafkaConfig{
			Brokers: splitCSV(brokers),
			Topic:   envOr("KAFKA_AUDIT_TOPIC", "trapper.audit.corrections"),
		}
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
