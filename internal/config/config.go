// Package config exposes strongly typed application configuration loaded
// from YAML, with credentials overlaid from the environment.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/risk"
	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/strategy"
)

// App captures process-wide runtime settings.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
	StatePath   string `yaml:"state_path"`
}

// Exchange describes venue connectivity. Credentials normally arrive via
// the environment (ASTER_API_KEY / ASTER_API_SECRET), never from the YAML
// checked into a repo.
type Exchange struct {
	Symbol     string `yaml:"symbol"`
	QuoteAsset string `yaml:"quote_asset"`
	Provider   string `yaml:"provider"`
	StreamBase string `yaml:"stream_base"`
	RESTBase   string `yaml:"rest_base"`
	APIKey     string `yaml:"api_key"`
	APISecret  string `yaml:"api_secret"`
}

// Engine groups orchestration knobs.
type Engine struct {
	TimeframeSeconds int `yaml:"timeframe_seconds"`
	PollIntervalMs   int `yaml:"poll_interval_ms"`
}

// Timeframe returns the bar duration.
func (e Engine) Timeframe() time.Duration {
	if e.TimeframeSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(e.TimeframeSeconds) * time.Second
}

// PollInterval returns the authoritative poll cadence.
func (e Engine) PollInterval() time.Duration {
	if e.PollIntervalMs <= 0 {
		return 2 * time.Second
	}
	return time.Duration(e.PollIntervalMs) * time.Millisecond
}

// Strategy selects the active variant and its parameter bundles.
type Strategy struct {
	Mode  string               `yaml:"mode"`
	Trend strategy.TrendParams `yaml:"trend"`
	Dual  strategy.DualParams  `yaml:"dual"`
}

// Paper captures paper-venue settings.
type Paper struct {
	StartingCash float64 `yaml:"starting_cash"`
	QtyStep      string  `yaml:"qty_step"`
	FillsPath    string  `yaml:"fills_path"`
}

// Config collects every configuration leaf for easy unmarshaling.
type Config struct {
	App      App         `yaml:"app"`
	Exchange Exchange    `yaml:"exchange"`
	Engine   Engine      `yaml:"engine"`
	Strategy Strategy    `yaml:"strategy"`
	Risk     risk.Config `yaml:"risk"`
	Paper    Paper       `yaml:"paper"`
}

// secrets is the environment overlay for credentials.
type secrets struct {
	APIKey    string `envconfig:"ASTER_API_KEY"`
	APISecret string `envconfig:"ASTER_API_SECRET"`
}

// Load reads a YAML file and applies the environment overlay.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	cfg := Config{Risk: risk.DefaultConfig()}
	if err := yaml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	var sec secrets
	if err := envconfig.Process("", &sec); err != nil {
		return nil, fmt.Errorf("env overlay: %w", err)
	}
	if sec.APIKey != "" {
		cfg.Exchange.APIKey = sec.APIKey
	}
	if sec.APISecret != "" {
		cfg.Exchange.APISecret = sec.APISecret
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Exchange.Symbol == "" {
		return fmt.Errorf("exchange.symbol is required")
	}
	if c.Risk.MaxPositions > 1 {
		return fmt.Errorf("risk.max_positions must be at most 1")
	}
	if c.Risk.MaxPositionSize <= 0 {
		return fmt.Errorf("risk.max_position_size must be positive")
	}
	return nil
}
