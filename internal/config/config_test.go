package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	path := filepath.Join("testdata", "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Name != "watermellon-test" {
		t.Fatalf("unexpected App.Name: %s", cfg.App.Name)
	}
	if cfg.Exchange.Symbol != "BTCUSDT" {
		t.Fatalf("unexpected symbol: %s", cfg.Exchange.Symbol)
	}
	if cfg.Engine.Timeframe() != time.Minute {
		t.Fatalf("unexpected timeframe: %v", cfg.Engine.Timeframe())
	}
	if cfg.Engine.PollInterval() != 2*time.Second {
		t.Fatalf("unexpected poll interval: %v", cfg.Engine.PollInterval())
	}
	if cfg.Strategy.Mode != "dual" {
		t.Fatalf("unexpected strategy mode: %s", cfg.Strategy.Mode)
	}
	if cfg.Strategy.Dual.SurgeThreshold != 8 {
		t.Fatalf("unexpected surge threshold: %v", cfg.Strategy.Dual.SurgeThreshold)
	}
	if cfg.Risk.MaxFlipsPerHour != 4 {
		t.Fatalf("unexpected flip budget: %d", cfg.Risk.MaxFlipsPerHour)
	}
	if !cfg.Risk.RequireTrending {
		t.Fatalf("expected require_trending")
	}
	if cfg.Paper.QtyStep != "0.001" {
		t.Fatalf("unexpected qty step: %s", cfg.Paper.QtyStep)
	}
}

func TestEnvOverlayWins(t *testing.T) {
	t.Setenv("ASTER_API_KEY", "env-key")
	t.Setenv("ASTER_API_SECRET", "env-secret")

	cfg, err := Load(filepath.Join("testdata", "config.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Exchange.APIKey != "env-key" || cfg.Exchange.APISecret != "env-secret" {
		t.Fatalf("environment credentials not applied: %+v", cfg.Exchange)
	}
}

func TestLoadRejectsMissingSymbol(t *testing.T) {
	if _, err := Load(filepath.Join("testdata", "config.yaml")); err != nil {
		t.Fatalf("baseline should load: %v", err)
	}
	if _, err := Load(filepath.Join("testdata", "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
