// Package risk encodes the guard-rails between a strategy signal and the
// venue: the admission gate every entry must pass and the protective exit
// engine that can close a position regardless of what the strategy wants.
package risk

import "time"

// Config is the immutable risk configuration loaded once at startup.
type Config struct {
	MaxPositionSize float64 `yaml:"max_position_size"`
	Leverage        float64 `yaml:"leverage"`
	MaxPositions    int     `yaml:"max_positions"`
	MaxFlipsPerHour int     `yaml:"max_flips_per_hour"`

	StopLossPct      float64 `yaml:"stop_loss_pct"`
	UseStopLoss      bool    `yaml:"use_stop_loss"`
	EmergencyStopPct float64 `yaml:"emergency_stop_pct"`

	ADXThreshold    float64 `yaml:"adx_threshold"`
	RequireTrending bool    `yaml:"require_trending"`

	MinHoldSeconds int `yaml:"min_hold_seconds"`

	// Protective exit tuning.
	RSIExitOverbought   float64 `yaml:"rsi_exit_overbought"`
	RSIExitOversold     float64 `yaml:"rsi_exit_oversold"`
	RSIExitDwellSeconds int     `yaml:"rsi_exit_dwell_seconds"`

	ExhaustOverbought   float64 `yaml:"exhaust_overbought"`
	ExhaustOversold     float64 `yaml:"exhaust_oversold"`
	ExhaustMinProfitPct float64 `yaml:"exhaust_min_profit_pct"`

	TrailingActivatePct float64 `yaml:"trailing_activate_pct"`
	TrailingRetracePct  float64 `yaml:"trailing_retrace_pct"`
}

// DefaultConfig returns the reference risk tuning.
func DefaultConfig() Config {
	return Config{
		MaxPositionSize:     0.01,
		Leverage:            5,
		MaxPositions:        1,
		MaxFlipsPerHour:     4,
		StopLossPct:         2.0,
		UseStopLoss:         false,
		EmergencyStopPct:    5.0,
		ADXThreshold:        20,
		RequireTrending:     true,
		MinHoldSeconds:      300,
		RSIExitOverbought:   80,
		RSIExitOversold:     20,
		RSIExitDwellSeconds: 120,
		ExhaustOverbought:   75,
		ExhaustOversold:     25,
		ExhaustMinProfitPct: 0.5,
		TrailingActivatePct: 1.0,
		TrailingRetracePct:  0.5,
	}
}

// MinHold returns the minimum hold duration before a flip is allowed.
func (c Config) MinHold() time.Duration {
	return time.Duration(c.MinHoldSeconds) * time.Second
}

// RSIExitDwell returns the dwell time before the RSI extremity exit may
// fire.
func (c Config) RSIExitDwell() time.Duration {
	return time.Duration(c.RSIExitDwellSeconds) * time.Second
}
