package risk

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/position"
	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/signal"
	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/strategy"
)

var gateNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func readySnap() strategy.Snapshot {
	return strategy.Snapshot{
		RSI: 60, RSIReady: true,
		ADX: 30, ADXReady: true, ADXWarmup: 1,
		ATR: 1, ATRReady: true,
	}
}

func longSig() *signal.Signal {
	return &signal.Signal{Direction: signal.Long, Reason: "long-trigger", Price: 100, Ts: gateNow}
}

func shortSig() *signal.Signal {
	return &signal.Signal{Direction: signal.Short, Reason: "short-trigger", Price: 100, Ts: gateNow}
}

func newTestGate(cfg Config, mode string) *Gate {
	return NewGate(cfg, mode, time.Minute, zerolog.Nop())
}

func TestGateAdmitsCleanLong(t *testing.T) {
	g := newTestGate(DefaultConfig(), strategy.ModeTrend)
	v := g.Admit(longSig(), readySnap(), position.Position{}, gateNow)
	if !v.Admit {
		t.Fatalf("clean long rejected: %s", v.Reason)
	}
	if v.Flip {
		t.Fatal("flat entry flagged as flip")
	}
}

func TestGateLossCooldown(t *testing.T) {
	g := newTestGate(DefaultConfig(), strategy.ModeTrend)
	g.RecordClose(-5, gateNow)
	g.RecordClose(-3, gateNow)
	if got := g.ConsecutiveLosses(); got != 2 {
		t.Fatalf("consecutive losses = %d, want 2", got)
	}

	v := g.Admit(longSig(), readySnap(), position.Position{}, gateNow.Add(10*time.Minute))
	if v.Admit || v.Reason != SkipLossCooldown {
		t.Fatalf("got %+v, want %s skip", v, SkipLossCooldown)
	}

	// The cooldown lapses after an hour and the streak resets.
	v = g.Admit(longSig(), readySnap(), position.Position{}, gateNow.Add(61*time.Minute))
	if !v.Admit {
		t.Fatalf("rejected after cooldown elapsed: %s", v.Reason)
	}
	if got := g.ConsecutiveLosses(); got != 0 {
		t.Fatalf("streak not reset: %d", got)
	}
}

func TestGateWinResetsLossStreak(t *testing.T) {
	g := newTestGate(DefaultConfig(), strategy.ModeTrend)
	g.RecordClose(-5, gateNow)
	g.RecordClose(2, gateNow)
	if got := g.ConsecutiveLosses(); got != 0 {
		t.Fatalf("winning close left streak at %d", got)
	}
}

func TestGateLossCooldownBeatsIndicatorReadiness(t *testing.T) {
	g := newTestGate(DefaultConfig(), strategy.ModeDual)
	g.RecordClose(-1, gateNow)
	g.RecordClose(-1, gateNow)

	snap := readySnap()
	snap.ADXReady = false
	v := g.Admit(longSig(), snap, position.Position{}, gateNow.Add(time.Minute))
	if v.Reason != SkipLossCooldown {
		t.Fatalf("got %q, want the loss cooldown to be checked first", v.Reason)
	}
}

func TestGateADXReadiness(t *testing.T) {
	snap := readySnap()
	snap.ADXReady = false
	snap.ADX = 0

	// The dual variant refuses outright while ADX warms up.
	g := newTestGate(DefaultConfig(), strategy.ModeDual)
	if v := g.Admit(longSig(), snap, position.Position{}, gateNow); v.Reason != SkipADXNotReady {
		t.Fatalf("dual got %q, want %s", v.Reason, SkipADXNotReady)
	}

	// The trend variant falls through to the regime check instead.
	g = newTestGate(DefaultConfig(), strategy.ModeTrend)
	if v := g.Admit(longSig(), snap, position.Position{}, gateNow); v.Reason != SkipNotTrending {
		t.Fatalf("trend got %q, want %s", v.Reason, SkipNotTrending)
	}
}

func TestGateNotTrending(t *testing.T) {
	g := newTestGate(DefaultConfig(), strategy.ModeTrend)
	snap := readySnap()
	snap.ADX = 10 // below the default 20 threshold
	v := g.Admit(longSig(), snap, position.Position{}, gateNow)
	if v.Admit || v.Reason != SkipNotTrending {
		t.Fatalf("got %+v, want %s skip", v, SkipNotTrending)
	}

	cfg := DefaultConfig()
	cfg.RequireTrending = false
	g = newTestGate(cfg, strategy.ModeTrend)
	if v := g.Admit(longSig(), snap, position.Position{}, gateNow); !v.Admit {
		t.Fatalf("regime check applied with require_trending off: %s", v.Reason)
	}
}

func TestGateRiskRewardDegenerateStop(t *testing.T) {
	g := newTestGate(DefaultConfig(), strategy.ModeTrend)
	// A recent swing low above the entry pushes the projected stop past
	// the entry price, leaving no risk distance at all.
	g.ObserveBar(signal.Bar{High: 103, Low: 101})
	v := g.Admit(longSig(), readySnap(), position.Position{}, gateNow)
	if v.Admit || v.Reason != SkipRiskReward {
		t.Fatalf("got %+v, want %s skip", v, SkipRiskReward)
	}
}

func TestGateRiskRewardSwingTightensStop(t *testing.T) {
	g := newTestGate(DefaultConfig(), strategy.ModeTrend)
	// Swing low below the ATR stop leaves the ATR stop in charge; the
	// projected target is always twice the risk, so the trade clears.
	g.ObserveBar(signal.Bar{High: 101, Low: 97})
	v := g.Admit(longSig(), readySnap(), position.Position{}, gateNow)
	if !v.Admit {
		t.Fatalf("rejected with a healthy stop: %s", v.Reason)
	}
}

func TestGateRSIExtremes(t *testing.T) {
	g := newTestGate(DefaultConfig(), strategy.ModeTrend)

	snap := readySnap()
	snap.RSI = 76 // above the long ceiling of 75
	if v := g.Admit(longSig(), snap, position.Position{}, gateNow); v.Reason != SkipRSIExtreme {
		t.Fatalf("long RSI 76 got %q, want %s", v.Reason, SkipRSIExtreme)
	}

	snap.RSI = 29 // below the long floor of 30
	if v := g.Admit(longSig(), snap, position.Position{}, gateNow); v.Reason != SkipRSIExtreme {
		t.Fatalf("long RSI 29 got %q, want %s", v.Reason, SkipRSIExtreme)
	}

	snap.RSI = 71 // above the short ceiling of 70
	if v := g.Admit(shortSig(), snap, position.Position{}, gateNow); v.Reason != SkipRSIExtreme {
		t.Fatalf("short RSI 71 got %q, want %s", v.Reason, SkipRSIExtreme)
	}

	snap.RSI = 40
	if v := g.Admit(shortSig(), snap, position.Position{}, gateNow); !v.Admit {
		t.Fatalf("short RSI 40 rejected: %s", v.Reason)
	}
}

func TestGateSameSide(t *testing.T) {
	g := newTestGate(DefaultConfig(), strategy.ModeTrend)
	pos := position.Position{Side: position.Long, Size: 1, EntryPrice: 99, OpenedAt: gateNow.Add(-time.Hour)}
	v := g.Admit(longSig(), readySnap(), pos, gateNow)
	if v.Admit || v.Reason != SkipSameSide {
		t.Fatalf("got %+v, want %s skip", v, SkipSameSide)
	}
}

func TestGatePostCloseCooldown(t *testing.T) {
	g := newTestGate(DefaultConfig(), strategy.ModeTrend)
	g.RecordClose(5, gateNow) // a win, so no loss streak involved

	// Two timeframes (1m bars) must elapse after any close.
	v := g.Admit(longSig(), readySnap(), position.Position{}, gateNow.Add(time.Minute))
	if v.Admit || v.Reason != SkipPostCloseCooldown {
		t.Fatalf("got %+v, want %s skip", v, SkipPostCloseCooldown)
	}
	if v := g.Admit(longSig(), readySnap(), position.Position{}, gateNow.Add(3*time.Minute)); !v.Admit {
		t.Fatalf("rejected after cooldown: %s", v.Reason)
	}
}

func TestGateFlipBudget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxFlipsPerHour = 2
	cfg.MinHoldSeconds = 0
	g := newTestGate(cfg, strategy.ModeTrend)

	pos := position.Position{Side: position.Short, Size: 1, EntryPrice: 100, OpenedAt: gateNow.Add(-time.Hour)}

	g.RecordFlip(gateNow.Add(-10 * time.Minute))
	g.RecordFlip(gateNow.Add(-5 * time.Minute))
	v := g.Admit(longSig(), readySnap(), pos, gateNow)
	if v.Admit || v.Reason != SkipFlipBudget {
		t.Fatalf("got %+v, want %s skip", v, SkipFlipBudget)
	}

	// Old flips age out of the rolling hour.
	later := gateNow.Add(2 * time.Hour)
	if got := g.FlipsInLastHour(later); got != 0 {
		t.Fatalf("flips in window = %d after 2h, want 0", got)
	}
	pos.OpenedAt = later.Add(-time.Hour)
	v = g.Admit(longSig(), readySnap(), pos, later)
	if !v.Admit || !v.Flip {
		t.Fatalf("got %+v, want an admitted flip", v)
	}
}

func TestGateFlipChecksOnlyApplyToFlips(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxFlipsPerHour = 1
	g := newTestGate(cfg, strategy.ModeTrend)
	g.RecordFlip(gateNow.Add(-time.Minute))

	// Flat entry: the exhausted flip budget is irrelevant.
	v := g.Admit(longSig(), readySnap(), position.Position{}, gateNow)
	if !v.Admit {
		t.Fatalf("flat entry rejected on flip budget: %s", v.Reason)
	}
}

func TestGateMinHold(t *testing.T) {
	g := newTestGate(DefaultConfig(), strategy.ModeTrend)
	pos := position.Position{Side: position.Short, Size: 1, EntryPrice: 100, OpenedAt: gateNow.Add(-time.Minute)}

	// Default minimum hold is 300s; a one-minute-old position cannot flip.
	v := g.Admit(longSig(), readySnap(), pos, gateNow)
	if v.Admit || v.Reason != SkipMinHold {
		t.Fatalf("got %+v, want %s skip", v, SkipMinHold)
	}

	pos.OpenedAt = gateNow.Add(-10 * time.Minute)
	v = g.Admit(longSig(), readySnap(), pos, gateNow)
	if !v.Admit || !v.Flip {
		t.Fatalf("got %+v, want an admitted flip", v)
	}
}
