// Package config loads engine configuration from a YAML file with
// environment-variable overrides for deployment settings.
package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the market engine.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Database struct {
		URL             string `yaml:"url"`
		RedisURL        string `yaml:"redis_url"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"database"`

	Market struct {
		TickIntervalMS int             `yaml:"tick_interval_ms"`
		HistoryLength  int             `yaml:"history_length"`
		Seed           uint32          `yaml:"seed"`
		InitialCash    decimal.Decimal `yaml:"initial_cash"`
	} `yaml:"market"`

	Logging struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"` // empty → stdout
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
	} `yaml:"logging"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	cfg.Server.Port = "8080"
	cfg.Database.CacheTTLSeconds = 30
	cfg.Market.TickIntervalMS = 5000
	cfg.Market.HistoryLength = 50
	cfg.Market.InitialCash = decimal.NewFromInt(1000)
	cfg.Logging.Level = "info"
	cfg.Logging.MaxSizeMB = 10
	cfg.Logging.MaxBackups = 3
	return &cfg
}

// Load reads the YAML file at path (skipped when path is empty), applies
// environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Market.TickIntervalMS <= 0 {
		return fmt.Errorf("tick interval must be positive")
	}
	if c.Market.HistoryLength <= 0 {
		return fmt.Errorf("history length must be positive")
	}
	if c.Market.InitialCash.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("initial cash must be positive")
	}
	if c.Database.CacheTTLSeconds < 0 {
		return fmt.Errorf("cache TTL must not be negative")
	}
	return nil
}

// overrideWithEnv applies environment variables over file values.
func overrideWithEnv(cfg *Config) {
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Port = port
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cfg.Database.RedisURL = redisURL
	}
}
