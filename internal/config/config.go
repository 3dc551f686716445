package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port                  int    `env:"PORT" envDefault:"8080"`
	DatabaseURL           string `env:"DATABASE_URL,required"`
	RedisURL              string `env:"REDIS_URL"`
	StatusCacheTTLSeconds int    `env:"STATUS_CACHE_TTL_SECONDS" envDefault:"3600"`
	StatsIntervalSeconds  int    `env:"STATS_INTERVAL_SECONDS" envDefault:"60"`
	WSMaxMessageBytes     int64  `env:"WS_MAX_MESSAGE_BYTES" envDefault:"4096"`
	LogLevel              string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) StatusCacheTTL() time.Duration {
	return time.Duration(c.StatusCacheTTLSeconds) * time.Second
}

func (c *Config) StatsInterval() time.Duration {
	return time.Duration(c.StatsIntervalSeconds) * time.Second
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// CacheEnabled reports whether a Redis URL was configured for the status cache.
func (c *Config) CacheEnabled() bool {
	return c.RedisURL != ""
}

func (c *Config) Validate() error {
	if !strings.HasPrefix(c.DatabaseURL, "postgres://") &&
		!strings.HasPrefix(c.DatabaseURL, "postgresql://") &&
		!strings.HasPrefix(c.DatabaseURL, "sqlite://") {
		return fmt.Errorf("DATABASE_URL must start with postgres://, postgresql:// or sqlite://")
	}
	if c.StatsIntervalSeconds <= 0 {
		return fmt.Errorf("STATS_INTERVAL_SECONDS must be positive")
	}
	if c.WSMaxMessageBytes < 512 {
		return fmt.Errorf("WS_MAX_MESSAGE_BYTES must be at least 512")
	}
	if c.CacheEnabled() && strings.HasPrefix(c.RedisURL, "redis://") && !strings.Contains(c.RedisURL, "localhost") {
		log.Warn().Msg("REDIS_URL uses redis:// (not TLS) for a remote host: consider using rediss://")
	}
	return nil
}

// Load reads an optional .env file and then parses the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

type ClientConfig struct {
	ServerURL string `env:"SERVER_URL" envDefault:"ws://localhost:8080/ws"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"warn"`
}

func LoadClient() (*ClientConfig, error) {
	_ = godotenv.Load()

	var cfg ClientConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse client config: %w", err)
	}
	return &cfg, nil
}
