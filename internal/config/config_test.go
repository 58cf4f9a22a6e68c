package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Market.HistoryLength != 50 {
		t.Errorf("expected default history length 50, got %d", cfg.Market.HistoryLength)
	}
	if !cfg.Market.InitialCash.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("expected default initial cash 1000, got %s", cfg.Market.InitialCash)
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: "9090"
market:
  tick_interval_ms: 2000
  history_length: 25
  initial_cash: "500"
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Market.TickIntervalMS != 2000 {
		t.Errorf("expected tick interval 2000, got %d", cfg.Market.TickIntervalMS)
	}
	if !cfg.Market.InitialCash.Equal(decimal.NewFromInt(500)) {
		t.Errorf("expected initial cash 500, got %s", cfg.Market.InitialCash)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected level debug, got %s", cfg.Logging.Level)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("DATABASE_URL", "postgres://example/engine")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("expected env port 7070, got %s", cfg.Server.Port)
	}
	if cfg.Database.URL != "postgres://example/engine" {
		t.Errorf("expected env database URL, got %s", cfg.Database.URL)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/does/not/exist.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero tick interval", func(c *Config) { c.Market.TickIntervalMS = 0 }},
		{"zero history length", func(c *Config) { c.Market.HistoryLength = 0 }},
		{"zero initial cash", func(c *Config) { c.Market.InitialCash = decimal.Zero }},
		{"empty port", func(c *Config) { c.Server.Port = "" }},
		{"negative cache ttl", func(c *Config) { c.Database.CacheTTLSeconds = -1 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
