// Package config reads service configuration from the environment, loading a
// .env file first when one is present.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Kafka        KafkaConfig
	Temporal     TemporalConfig
	RateLimit    RateLimitConfig
	OTLPEndpoint string
	LogLevel     string
	// EnvFileLoaded is false when no .env file was found
	EnvFileLoaded bool
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	// URL is empty when the in-memory store should be used
	URL        string
	Migrate    bool
	SeedSample bool
}

type RedisConfig struct {
	// Addr is empty when idempotency keys are kept in process
	Addr           string
	IdempotencyTTL time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Enabled bool
}

type TemporalConfig struct {
	Host      string
	Namespace string
	TaskQueue string
	Enabled   bool
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// Load reads .env (if any) and the environment, applying defaults
func Load(envFiles ...string) *Config {
	loaded := godotenv.Load(envFiles...) == nil

	databaseURL := getEnv("DATABASE_URL", "")
	return &Config{
		Server: ServerConfig{
			Port:            getEnv("API_PORT", "8080"),
			ReadTimeout:     getDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			URL:        databaseURL,
			Migrate:    getBool("DATABASE_MIGRATE", true),
			SeedSample: getBool("SEED_SAMPLE_DATA", databaseURL == ""),
		},
		Redis: RedisConfig{
			Addr:           getEnv("REDIS_ADDR", ""),
			IdempotencyTTL: getDuration("IDEMPOTENCY_TTL", 24*time.Hour),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
			Enabled: getBool("KAFKA_ENABLED", false),
		},
		Temporal: TemporalConfig{
			Host:      getEnv("TEMPORAL_HOST", "localhost:7233"),
			Namespace: getEnv("TEMPORAL_NAMESPACE", "default"),
			TaskQueue: getEnv("TEMPORAL_TASK_QUEUE", "booking-notifications"),
			Enabled:   getBool("TEMPORAL_ENABLED", false),
		},
		RateLimit: RateLimitConfig{
			RPS:   getFloat("RATE_LIMIT_RPS", 100),
			Burst: getInt("RATE_LIMIT_BURST", 200),
		},
		OTLPEndpoint:  getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		EnvFileLoaded: loaded,
	}
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return v
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return v
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return v
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return v
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
