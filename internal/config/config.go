package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Chung305/threadline/pkg/password"
)

type Config struct {
	Port        string
	Environment string // "development" or "production"

	DatabaseURL          string
	DBMaxOpenConns       int
	DBMaxIdleConns       int
	DBConnMaxLifetimeMin int

	RedisURL      string
	RedisPassword string

	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration

	Argon2 password.Params

	AllowedOrigins  []string
	CleanupInterval time.Duration
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Load reads configuration from the environment. Signing secrets have no
// fallback: a missing or shared secret fails startup in every environment,
// so a misconfigured deploy can never run on a known key.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        GetEnv("PORT", "8080"),
		Environment: GetEnv("ENVIRONMENT", "development"),

		DatabaseURL:          GetEnv("DATABASE_URL", ""),
		DBMaxOpenConns:       GetEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:       GetEnvAsInt("DB_MAX_IDLE_CONNS", 25),
		DBConnMaxLifetimeMin: GetEnvAsInt("DB_CONN_MAX_LIFETIME_MINUTES", 5),

		RedisURL:      GetEnv("REDIS_URL", ""),
		RedisPassword: GetEnv("REDIS_PASSWORD", ""),

		AccessTokenSecret:  os.Getenv("JWT_SECRET"),
		RefreshTokenSecret: os.Getenv("REFRESH_SECRET"),
		AccessTokenTTL:     GetEnvAsDuration("ACCESS_TOKEN_TTL", time.Hour),
		RefreshTokenTTL:    GetEnvAsDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),

		CleanupInterval: GetEnvAsDuration("CLEANUP_INTERVAL", time.Hour),
	}

	if cfg.AccessTokenSecret == "" {
		return nil, fmt.Errorf("config: JWT_SECRET is required")
	}
	if cfg.RefreshTokenSecret == "" {
		return nil, fmt.Errorf("config: REFRESH_SECRET is required")
	}
	if cfg.AccessTokenSecret == cfg.RefreshTokenSecret {
		return nil, fmt.Errorf("config: JWT_SECRET and REFRESH_SECRET must differ")
	}

	argon := password.DefaultParams()
	argon.MemoryKiB = uint32(GetEnvAsInt("ARGON2_MEMORY_KIB", int(argon.MemoryKiB)))
	argon.Iterations = uint32(GetEnvAsInt("ARGON2_ITERATIONS", int(argon.Iterations)))
	parallelism := GetEnvAsInt("ARGON2_PARALLELISM", int(argon.Parallelism))
	if parallelism < 1 || parallelism > 255 {
		return nil, fmt.Errorf("config: ARGON2_PARALLELISM out of range [1..255]")
	}
	argon.Parallelism = uint8(parallelism)
	cfg.Argon2 = argon

	for _, origin := range strings.Split(GetEnv("ALLOWED_ORIGINS", "http://localhost:3000"), ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
		}
	}

	return cfg, nil
}

func GetEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("[CONFIG] Invalid integer value for %s: %s, using default: %d", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}

func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("[CONFIG] Invalid duration value for %s: %s, using default: %s", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}
