package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Engine   EngineConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is (e.g. postgres://localhost:5432/webinar?sslmode=disable)
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT signing and validation settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Reaction counter backends.
const (
	ReactionBackendMemory = "memory"
	ReactionBackendRedis  = "redis"
)

// EngineConfig tunes the interaction engine.
type EngineConfig struct {
	Store              string
	PresenceGrace      time.Duration
	ReactionRatePerSec float64
	ReactionBurst      int
	ReactionFlush      time.Duration
	ReactionBackend    string
	RetryAttempts      int
	RetryBackoff       time.Duration
	AutoCreateWebinars bool // memory store only: unknown webinar ids are created on first use
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// RedisEnabled reports whether a Redis address is configured.
func (c *Config) RedisEnabled() bool {
	return c.Redis.Addr != ""
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:3001"),
		},
		Database: DatabaseConfig{
			URL:      os.Getenv("DATABASE_URL"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "webinar"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 24),
		},
		Engine: EngineConfig{
			Store:              strings.ToLower(getEnv("ENGINE_STORE", StorePostgres)),
			PresenceGrace:      getEnvMillis("PRESENCE_GRACE_MS", 5000),
			ReactionRatePerSec: getEnvFloat("REACTION_RATE_PER_SEC", 5),
			ReactionBurst:      getEnvInt("REACTION_BURST", 10),
			ReactionFlush:      getEnvMillis("REACTION_FLUSH_MS", 250),
			ReactionBackend:    strings.ToLower(getEnv("REACTION_BACKEND", ReactionBackendMemory)),
			RetryAttempts:      getEnvInt("RETRY_ATTEMPTS", 3),
			RetryBackoff:       getEnvMillis("RETRY_BACKOFF_MS", 50),
			AutoCreateWebinars: getEnvBool("AUTO_CREATE_WEBINARS", false),
		},
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Engine.Store {
	case StorePostgres, StoreMemory:
	default:
		return fmt.Errorf("ENGINE_STORE must be %q or %q, got %q", StorePostgres, StoreMemory, c.Engine.Store)
	}
	switch c.Engine.ReactionBackend {
	case ReactionBackendMemory:
	case ReactionBackendRedis:
		if !c.RedisEnabled() {
			return fmt.Errorf("REACTION_BACKEND=redis requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("REACTION_BACKEND must be %q or %q, got %q", ReactionBackendMemory, ReactionBackendRedis, c.Engine.ReactionBackend)
	}
	if c.Engine.Store == StorePostgres && c.Database.URL == "" && c.Database.Host == "" {
		return fmt.Errorf("ENGINE_STORE=postgres requires DATABASE_URL or DB_HOST")
	}
	if c.Engine.ReactionRatePerSec <= 0 || c.Engine.ReactionBurst < 1 {
		return fmt.Errorf("REACTION_RATE_PER_SEC and REACTION_BURST must be positive")
	}
	if c.Engine.ReactionFlush <= 0 {
		return fmt.Errorf("REACTION_FLUSH_MS must be positive")
	}
	return nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvMillis(key string, fallback int) time.Duration {
	return time.Duration(getEnvInt(key, fallback)) * time.Millisecond
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
