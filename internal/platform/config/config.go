// Package config loads process configuration from the environment. A .env
// file in the working directory is read first when present; real
// environment variables win over it.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	pkgstrings "escolinha/pkg/platform/strings"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config is the full process configuration.
type Config struct {
	Server   Server
	Store    Store
	Redis    RedisConfig
	Postgres PostgresConfig
	Kafka    KafkaConfig
	Token    TokenConfig
	Audit    AuditConfig
	Limit    RateLimitConfig
	Log      LogConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
	// Location is the school's time zone; "today" for attendance and
	// re-enrollment years is computed in it.
	Location *time.Location
}

// Store selects the tree store backend.
type Store struct {
	Backend string
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type PostgresConfig struct {
	URL      string
	MaxConns int32
}

type KafkaConfig struct {
	Brokers    []string
	ClientID   string
	AuditTopic string
	Partitions int32
	Replicas   int16
}

// Enabled reports whether any broker is configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// TokenConfig configures re-enrollment link tokens.
type TokenConfig struct {
	SigningKey string
	Issuer     string
	TTL        time.Duration
}

type AuditConfig struct {
	QueueSize int
}

// RateLimitConfig throttles the public link routes per client IP. A zero
// Requests disables the limiter.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

type LogConfig struct {
	Level string
}

const devSigningKey = "dev-secret-key-change-in-production"

// Load reads .env (if present) and then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	loc, err := time.LoadLocation(getEnv("ESCOLINHA_TIMEZONE", "America/Sao_Paulo"))
	if err != nil {
		return Config{}, fmt.Errorf("load timezone: %w", err)
	}

	cfg := Config{
		Server: Server{
			Addr:            getEnv("ESCOLINHA_ADDR", ":8080"),
			ShutdownTimeout: getDuration("ESCOLINHA_SHUTDOWN_TIMEOUT", 15*time.Second),
			Location:        loc,
		},
		Store: Store{Backend: strings.ToLower(getEnv("ESCOLINHA_STORE", BackendMemory))},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: PostgresConfig{
			URL:      os.Getenv("DATABASE_URL"),
			MaxConns: int32(getInt("DATABASE_MAX_CONNS", 10)),
		},
		Kafka: KafkaConfig{
			Brokers:    pkgstrings.SplitList(os.Getenv("KAFKA_BROKERS"), ","),
			ClientID:   getEnv("KAFKA_CLIENT_ID", "escolinha"),
			AuditTopic: getEnv("KAFKA_AUDIT_TOPIC", "escolinha.audit"),
			Partitions: int32(getInt("KAFKA_AUDIT_PARTITIONS", 3)),
			Replicas:   int16(getInt("KAFKA_AUDIT_REPLICAS", 1)),
		},
		Token: TokenConfig{
			SigningKey: getEnv("REMATRICULA_SIGNING_KEY", devSigningKey),
			Issuer:     getEnv("REMATRICULA_TOKEN_ISSUER", "escolinha"),
			TTL:        getDuration("REMATRICULA_TOKEN_TTL", 60*24*time.Hour),
		},
		Audit: AuditConfig{QueueSize: getInt("AUDIT_QUEUE_SIZE", 1024)},
		Limit: RateLimitConfig{
			Requests: getInt("PUBLIC_RATE_LIMIT", 30),
			Window:   getDuration("PUBLIC_RATE_WINDOW", time.Minute),
		},
		Log:   LogConfig{Level: getEnv("LOG_LEVEL", "info")},
	}
	return cfg, cfg.Validate()
}

// Validate checks that the selected backend has what it needs.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("ESCOLINHA_STORE=redis requires REDIS_URL")
		}
	case BackendPostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("ESCOLINHA_STORE=postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown ESCOLINHA_STORE %q", c.Store.Backend)
	}
	if c.Token.SigningKey == "" {
		return fmt.Errorf("REMATRICULA_SIGNING_KEY must not be empty")
	}
	return nil
}

// UsesDevSigningKey reports whether the built-in development key is active.
func (c Config) UsesDevSigningKey() bool {
	return c.Token.SigningKey == devSigningKey
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return v
}
