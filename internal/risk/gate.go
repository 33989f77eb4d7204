package risk

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/indicator"
	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/position"
	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/signal"
	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/strategy"
)

// Skip reasons reported by the gate. The engine logs these and labels the
// skip metric with them.
const (
	SkipLossCooldown      = "loss-cooldown"
	SkipADXNotReady       = "adx-not-ready"
	SkipNotTrending       = "not-trending"
	SkipRiskReward        = "risk-reward"
	SkipRSIExtreme        = "rsi-extreme"
	SkipSameSide          = "same-side"
	SkipPostCloseCooldown = "post-close-cooldown"
	SkipFlipBudget        = "flip-budget"
	SkipMinHold           = "min-hold"
)

const (
	consecLossLimit  = 2
	lossCooldown     = time.Hour
	flipWindow       = time.Hour
	stopATRMult      = 1.5
	rewardRiskFloor  = 2.0
	swingWindowBars  = 10
	swingBufferPct   = 0.1 // of entry price
	rsiLongFloor     = 30.0
	rsiLongCeil      = 75.0
	rsiShortFloor    = 25.0
	rsiShortCeil     = 70.0
	closeCooldownTFs = 2
)

// Verdict is the gate's answer for one signal.
type Verdict struct {
	Admit  bool
	Reason string // skip reason when !Admit
	Flip   bool   // the opposite side is held and must be closed first
}

// Gate applies the ordered admission checks to every candidate signal. It
// owns the rolling flip history, the consecutive-loss counter and the
// recent swing window; none of that state is shared process-wide, so
// multiple instances never interfere.
type Gate struct {
	cfg       Config
	log       zerolog.Logger
	timeframe time.Duration

	// The dual-system variant refuses to trade before ADX is warm.
	needADXReady bool

	flips        []time.Time
	consecLosses int
	lastLossAt   time.Time
	lastCloseAt  time.Time

	recentHighs *indicator.Ring
	recentLows  *indicator.Ring
}

// NewGate builds a gate for the given strategy mode and bar timeframe.
func NewGate(cfg Config, mode string, timeframe time.Duration, log zerolog.Logger) *Gate {
	return &Gate{
		cfg:          cfg,
		log:          log,
		timeframe:    timeframe,
		needADXReady: mode == strategy.ModeDual,
		recentHighs:  indicator.NewRing(swingWindowBars),
		recentLows:   indicator.NewRing(swingWindowBars),
	}
}

// ObserveBar keeps the swing high/low window current. Called once per
// closed bar before any signal evaluation.
func (g *Gate) ObserveBar(b signal.Bar) {
	g.recentHighs.Push(b.High)
	g.recentLows.Push(b.Low)
}

// Admit runs the ordered checks. Any failure short-circuits with the
// failing check's reason.
func (g *Gate) Admit(sig *signal.Signal, snap strategy.Snapshot, pos position.Position, now time.Time) Verdict {
	// 1. Consecutive-loss cooldown.
	if g.consecLosses >= consecLossLimit {
		if now.Sub(g.lastLossAt) < lossCooldown {
			return g.skip(SkipLossCooldown, sig)
		}
		g.consecLosses = 0
	}

	// 2. Indicator readiness. Not a failure, just "not yet".
	if g.needADXReady && !snap.ADXReady {
		return g.skip(SkipADXNotReady, sig)
	}

	// 3. Market regime.
	if g.cfg.RequireTrending && !(snap.ADXReady && snap.ADX > g.cfg.ADXThreshold) {
		return g.skip(SkipNotTrending, sig)
	}

	// 4. Risk/reward projection.
	if snap.ATRReady && !g.rewardRiskOK(sig, snap.ATR) {
		return g.skip(SkipRiskReward, sig)
	}

	// 5. Momentum extremity.
	if snap.RSIReady {
		if sig.Direction == signal.Long && (snap.RSI < rsiLongFloor || snap.RSI > rsiLongCeil) {
			return g.skip(SkipRSIExtreme, sig)
		}
		if sig.Direction == signal.Short && (snap.RSI < rsiShortFloor || snap.RSI > rsiShortCeil) {
			return g.skip(SkipRSIExtreme, sig)
		}
	}

	// 6. Same-side no-op.
	if !pos.IsFlat() && pos.Direction() == sig.Direction {
		return g.skip(SkipSameSide, sig)
	}

	// 7. Post-close cooldown.
	if !g.lastCloseAt.IsZero() && now.Sub(g.lastCloseAt) < time.Duration(closeCooldownTFs)*g.timeframe {
		return g.skip(SkipPostCloseCooldown, sig)
	}

	flip := !pos.IsFlat() && pos.Direction() != sig.Direction

	if flip {
		// 8. Flip budget over the rolling hour.
		if g.flipsInWindow(now) >= g.cfg.MaxFlipsPerHour {
			return g.skip(SkipFlipBudget, sig)
		}
		// 9. Minimum hold time before reversing.
		if pos.HeldFor(now) < g.cfg.MinHold() {
			return g.skip(SkipMinHold, sig)
		}
	}

	return Verdict{Admit: true, Flip: flip}
}

// rewardRiskOK projects a stop at entry -/+ 1.5*ATR, tightened to the most
// recent swing low/high plus a small buffer when that sits closer, and a
// reward target at twice the risk distance. The trade must clear a 2.0
// reward:risk; a stop at or beyond entry fails outright. The reward is
// kept as a distance rather than a target price so the ratio cannot lose
// precision to cancellation.
func (g *Gate) rewardRiskOK(sig *signal.Signal, atr float64) bool {
	entry := sig.Price
	buffer := entry * swingBufferPct / 100

	var stop float64
	if sig.Direction == signal.Long {
		stop = entry - stopATRMult*atr
		if low, ok := g.recentLows.Min(); ok {
			if swing := low - buffer; swing > stop {
				stop = swing
			}
		}
		risk := entry - stop
		if risk <= 0 {
			return false
		}
		reward := 2 * risk
		return reward/risk >= rewardRiskFloor
	}

	stop = entry + stopATRMult*atr
	if high, ok := g.recentHighs.Max(); ok {
		if swing := high + buffer; swing < stop {
			stop = swing
		}
	}
	risk := stop - entry
	if risk <= 0 {
		return false
	}
	reward := 2 * risk
	return reward/risk >= rewardRiskFloor
}

// RecordFlip stamps one applied flip into the rolling window.
func (g *Gate) RecordFlip(now time.Time) {
	g.flips = append(g.flips, now)
	g.prune(now)
}

// RecordClose updates the loss streak and post-close cooldown after any
// position close. Wins reset the streak.
func (g *Gate) RecordClose(pnl float64, now time.Time) {
	g.lastCloseAt = now
	if pnl < 0 {
		g.consecLosses++
		g.lastLossAt = now
		return
	}
	g.consecLosses = 0
}

// ConsecutiveLosses returns the current losing-close streak.
func (g *Gate) ConsecutiveLosses() int { return g.consecLosses }

// FlipsInLastHour returns the pruned flip count.
func (g *Gate) FlipsInLastHour(now time.Time) int { return g.flipsInWindow(now) }

func (g *Gate) flipsInWindow(now time.Time) int {
	g.prune(now)
	return len(g.flips)
}

func (g *Gate) prune(now time.Time) {
	cutoff := now.Add(-flipWindow)
	kept := g.flips[:0]
	for _, at := range g.flips {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	g.flips = kept
}

func (g *Gate) skip(reason string, sig *signal.Signal) Verdict {
	g.log.Info().
		Str("reason", reason).
		Str("direction", string(sig.Direction)).
		Str("signal", sig.Reason).
		Msg("signal skipped")
	return Verdict{Reason: reason}
}
