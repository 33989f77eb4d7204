package risk

import (
	"time"

	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/position"
	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/signal"
	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/strategy"
)

// Exit reason codes, in check priority order.
const (
	ExitRSIExtreme    = "rsi-extreme-exit"
	ExitStopLoss      = "stop-loss"
	ExitRSIExhaustion = "rsi-exhaustion"
	ExitTrailingStop  = "trailing-stop"
	ExitEmergencyStop = "emergency-stop"
)

// emergencyDwell guards the emergency stop against firing on the fill
// noise right after entry.
const emergencyDwell = 30 * time.Second

// Exit describes a protective close decision.
type Exit struct {
	Reason string
	Price  float64
	Ts     time.Time
}

// Protector is the protective exit engine. It runs on every bar close,
// before any entry signal is considered, and its decision bypasses the
// admission gate entirely. First matching check wins.
type Protector struct {
	cfg Config

	// The trend variant keeps the plain percentage stop as a legacy
	// fallback even when the explicit stop-loss flag is off.
	legacyStop bool

	trailActive bool
	highWater   float64
	lowWater    float64
}

// NewProtector builds the exit engine for the given strategy mode.
func NewProtector(cfg Config, mode string) *Protector {
	return &Protector{cfg: cfg, legacyStop: mode != strategy.ModeDual}
}

// Evaluate inspects an open position against the closed bar. A nil return
// means the position survives this bar.
func (p *Protector) Evaluate(pos position.Position, b signal.Bar, snap strategy.Snapshot, now time.Time) *Exit {
	if pos.IsFlat() {
		return nil
	}
	price := b.Close
	held := pos.HeldFor(now)

	// 1. RSI extremity, only after the position has had time to breathe.
	if snap.RSIReady && held >= p.cfg.RSIExitDwell() {
		if pos.Side == position.Long && snap.RSI >= p.cfg.RSIExitOverbought {
			return p.exit(ExitRSIExtreme, price, b)
		}
		if pos.Side == position.Short && snap.RSI <= p.cfg.RSIExitOversold {
			return p.exit(ExitRSIExtreme, price, b)
		}
	}

	// 2. Hard percentage stop, only when explicitly enabled.
	if p.cfg.UseStopLoss && p.stopHit(pos, price, p.cfg.StopLossPct) {
		return p.exit(ExitStopLoss, price, b)
	}

	// 3. RSI exhaustion, gated on a minimum profit buffer so it cannot
	// whipsaw a fresh entry.
	if snap.RSIReady && pos.UnrealizedPct(price) >= p.cfg.ExhaustMinProfitPct {
		if pos.Side == position.Long && snap.RSI >= p.cfg.ExhaustOverbought {
			return p.exit(ExitRSIExhaustion, price, b)
		}
		if pos.Side == position.Short && snap.RSI <= p.cfg.ExhaustOversold {
			return p.exit(ExitRSIExhaustion, price, b)
		}
	}

	// 4. Trailing stop: the watermark only arms once unrealized profit
	// clears the activation threshold.
	if ex := p.trailing(pos, price, b); ex != nil {
		return ex
	}

	// 5. Emergency stop: always on once the dwell guard elapses,
	// independent of the regular stop-loss.
	if p.cfg.EmergencyStopPct > 0 && held >= emergencyDwell &&
		p.stopHit(pos, price, p.cfg.EmergencyStopPct) {
		return p.exit(ExitEmergencyStop, price, b)
	}

	// 6. Legacy plain percentage stop for the simpler variant.
	if p.legacyStop && !p.cfg.UseStopLoss && p.cfg.StopLossPct > 0 &&
		p.stopHit(pos, price, p.cfg.StopLossPct) {
		return p.exit(ExitStopLoss, price, b)
	}

	return nil
}

// EmergencyThreshold returns the emergency stop price for a position
// opened at entry: entry*(1-pct/100) long, entry*(1+pct/100) short.
func (p *Protector) EmergencyThreshold(pos position.Position) float64 {
	if pos.Side == position.Short {
		return pos.EntryPrice * (1 + p.cfg.EmergencyStopPct/100)
	}
	return pos.EntryPrice * (1 - p.cfg.EmergencyStopPct/100)
}

// Reset clears trailing bookkeeping. Called after every close, whatever
// triggered it.
func (p *Protector) Reset() {
	p.trailActive = false
	p.highWater = 0
	p.lowWater = 0
}

func (p *Protector) trailing(pos position.Position, price float64, b signal.Bar) *Exit {
	if p.cfg.TrailingActivatePct <= 0 || p.cfg.TrailingRetracePct <= 0 {
		return nil
	}
	if !p.trailActive {
		if pos.UnrealizedPct(price) < p.cfg.TrailingActivatePct {
			return nil
		}
		p.trailActive = true
		p.highWater = price
		p.lowWater = price
	}

	if pos.Side == position.Long {
		if price > p.highWater {
			p.highWater = price
		}
		if price <= p.highWater*(1-p.cfg.TrailingRetracePct/100) {
			return p.exit(ExitTrailingStop, price, b)
		}
		return nil
	}

	if price < p.lowWater {
		p.lowWater = price
	}
	if price >= p.lowWater*(1+p.cfg.TrailingRetracePct/100) {
		return p.exit(ExitTrailingStop, price, b)
	}
	return nil
}

// stopHit reports whether price has crossed the percentage stop distance
// from entry, inclusive at the exact threshold.
func (p *Protector) stopHit(pos position.Position, price, pct float64) bool {
	if pos.EntryPrice == 0 || pct <= 0 {
		return false
	}
	if pos.Side == position.Long {
		return price <= pos.EntryPrice*(1-pct/100)
	}
	return price >= pos.EntryPrice*(1+pct/100)
}

func (p *Protector) exit(reason string, price float64, b signal.Bar) *Exit {
	return &Exit{Reason: reason, Price: price, Ts: b.End}
}
