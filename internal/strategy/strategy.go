// Package strategy turns closed bars into edge-triggered entry signals.
package strategy

import (
	"strings"

	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/position"
	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/signal"
)

// Strategy defines behaviour shared by strategy implementations used by the
// bot. Update consumes one closed bar and returns a signal on the bars
// where one fires; the engine holds a single instance selected at
// construction time.
type Strategy interface {
	Name() string
	Update(b signal.Bar) *signal.Signal
	Snapshot() Snapshot
}

// Snapshot exposes a strategy's indicator state for the admission gate and
// protective exits. Values are meaningless unless the matching Ready flag
// is set.
type Snapshot struct {
	RSI      float64
	RSIReady bool

	ADX       float64
	ADXReady  bool
	ADXWarmup float64

	ATR      float64
	ATRReady bool
}

// ExitAdviser is an optional capability: strategies that track their own
// exhaustion conditions can advise closing an open position independent of
// the protective exit engine.
type ExitAdviser interface {
	ExitAdvice(pos position.Position, b signal.Bar) *signal.ExitSignal
}

// Modes accepted by Build.
const (
	ModeTrend = "trend"
	ModeDual  = "dual"
)

// Build returns a strategy implementation matching the configured mode.
// Unknown or empty modes fall back to the trend follower.
func Build(mode string, trend TrendParams, dual DualParams) Strategy {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case ModeDual, "dual_system", "dualsystem":
		return NewDualSystem(dual)
	default:
		return NewTrendFollower(trend)
	}
}
