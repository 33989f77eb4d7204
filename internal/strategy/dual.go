package strategy

import (
	"math"

	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/indicator"
	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/position"
	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/signal"
)

// DualParams tunes the dual-system variant: a trend-bias sub-system and a
// momentum-surge sub-system sharing one indicator set.
type DualParams struct {
	FastLen      int `yaml:"fast_len"`
	MidLen       int `yaml:"mid_len"`
	SlowLen      int `yaml:"slow_len"`
	MicroFastLen int `yaml:"micro_fast_len"`
	MicroSlowLen int `yaml:"micro_slow_len"`
	RSILen       int `yaml:"rsi_len"`
	ADXLen       int `yaml:"adx_len"`
	ATRLen       int `yaml:"atr_len"`

	RSIBullMin float64 `yaml:"rsi_bull_min"`
	RSIBearMax float64 `yaml:"rsi_bear_max"`

	// Trend-bias suppression.
	MinBarsBetween int     `yaml:"min_bars_between"`
	MinMovePercent float64 `yaml:"min_move_percent"`

	// Momentum-surge thresholds.
	SurgeThreshold   float64 `yaml:"surge_threshold"`
	VolumeMultiplier float64 `yaml:"volume_multiplier"`
	VolumeWindow     int     `yaml:"volume_window"`

	// Exit-advice thresholds.
	FlattenThreshold     float64 `yaml:"flatten_threshold"`
	ExitVolumeMultiplier float64 `yaml:"exit_volume_multiplier"`
}

// DefaultDualParams returns the reference tuning.
func DefaultDualParams() DualParams {
	return DualParams{
		FastLen:              8,
		MidLen:               21,
		SlowLen:              50,
		MicroFastLen:         3,
		MicroSlowLen:         8,
		RSILen:               14,
		ADXLen:               14,
		ATRLen:               14,
		RSIBullMin:           55,
		RSIBearMax:           45,
		MinBarsBetween:       3,
		MinMovePercent:       0.15,
		SurgeThreshold:       8,
		VolumeMultiplier:     1.5,
		VolumeWindow:         20,
		FlattenThreshold:     2,
		ExitVolumeMultiplier: 0.7,
	}
}

func (p DualParams) withDefaults() DualParams {
	d := DefaultDualParams()
	if p.FastLen <= 0 {
		p.FastLen = d.FastLen
	}
	if p.MidLen <= 0 {
		p.MidLen = d.MidLen
	}
	if p.SlowLen <= 0 {
		p.SlowLen = d.SlowLen
	}
	if p.MicroFastLen <= 0 {
		p.MicroFastLen = d.MicroFastLen
	}
	if p.MicroSlowLen <= 0 {
		p.MicroSlowLen = d.MicroSlowLen
	}
	if p.RSILen <= 0 {
		p.RSILen = d.RSILen
	}
	if p.ADXLen <= 0 {
		p.ADXLen = d.ADXLen
	}
	if p.ATRLen < 2 {
		p.ATRLen = d.ATRLen
	}
	if p.RSIBullMin <= 0 {
		p.RSIBullMin = d.RSIBullMin
	}
	if p.RSIBearMax <= 0 {
		p.RSIBearMax = d.RSIBearMax
	}
	if p.MinBarsBetween <= 0 {
		p.MinBarsBetween = d.MinBarsBetween
	}
	if p.MinMovePercent <= 0 {
		p.MinMovePercent = d.MinMovePercent
	}
	if p.SurgeThreshold <= 0 {
		p.SurgeThreshold = d.SurgeThreshold
	}
	if p.VolumeMultiplier <= 0 {
		p.VolumeMultiplier = d.VolumeMultiplier
	}
	if p.VolumeWindow <= 0 {
		p.VolumeWindow = d.VolumeWindow
	}
	if p.FlattenThreshold <= 0 {
		p.FlattenThreshold = d.FlattenThreshold
	}
	if p.ExitVolumeMultiplier <= 0 {
		p.ExitVolumeMultiplier = d.ExitVolumeMultiplier
	}
	return p
}

// DualSystem runs two independent sub-systems per bar: trend-bias first,
// momentum-surge second. A trend-bias signal always wins the bar; the
// surge path is only consulted when trend-bias stayed quiet.
type DualSystem struct {
	params DualParams

	fast      *indicator.EMA
	mid       *indicator.EMA
	slow      *indicator.EMA
	microFast *indicator.EMA
	microSlow *indicator.EMA
	rsi       *indicator.RSI
	adx       *indicator.ADX
	atr       *indicator.ATR

	rsiHist *indicator.Ring
	volHist *indicator.Ring

	// Trend-bias edge and suppression state.
	prevLongLook   bool
	prevShortLook  bool
	barIndex       int
	lastSignalBar  int
	lastLongPrice  float64
	lastShortPrice float64
}

// NewDualSystem builds the dual-system variant.
func NewDualSystem(params DualParams) *DualSystem {
	params = params.withDefaults()
	atr, _ := indicator.NewATR(params.ATRLen)
	return &DualSystem{
		params:        params,
		fast:          indicator.NewEMA(params.FastLen),
		mid:           indicator.NewEMA(params.MidLen),
		slow:          indicator.NewEMA(params.SlowLen),
		microFast:     indicator.NewEMA(params.MicroFastLen),
		microSlow:     indicator.NewEMA(params.MicroSlowLen),
		rsi:           indicator.NewRSI(params.RSILen),
		adx:           indicator.NewADX(params.ADXLen),
		atr:           atr,
		rsiHist:       indicator.NewRing(8),
		volHist:       indicator.NewRing(params.VolumeWindow),
		lastSignalBar: -1 << 30,
	}
}

// Name returns the identifier used in logs and metrics.
func (s *DualSystem) Name() string { return ModeDual }

// Update feeds one closed bar through both sub-systems.
func (s *DualSystem) Update(b signal.Bar) *signal.Signal {
	s.barIndex++
	s.fast.Update(b.Close)
	s.mid.Update(b.Close)
	s.slow.Update(b.Close)
	s.microFast.Update(b.Close)
	s.microSlow.Update(b.Close)
	s.rsi.Update(b.Close)
	s.adx.Update(b)
	s.atr.Update(b)

	if s.rsi.Ready() {
		s.rsiHist.Push(s.rsi.Value())
	}

	avgVol := s.volHist.Mean()
	haveVol := s.volHist.Len() > 0
	s.volHist.Push(b.Volume)

	if !s.fast.Ready() || !s.mid.Ready() || !s.slow.Ready() || !s.rsi.Ready() {
		return nil
	}

	if sig := s.trendBias(b); sig != nil {
		return sig
	}
	return s.momentumSurge(b, avgVol, haveVol)
}

// trendBias is the first sub-system: main EMA stack plus a micro EMA pair
// agreeing in direction, RSI confirmation, edge-triggered, and suppressed
// when the last signal was too recent or price has not moved enough from
// the prior trigger prices.
func (s *DualSystem) trendBias(b signal.Bar) *signal.Signal {
	bull := s.fast.Value() > s.mid.Value() && s.mid.Value() > s.slow.Value()
	bear := s.fast.Value() < s.mid.Value() && s.mid.Value() < s.slow.Value()
	microBull := s.microFast.Ready() && s.microSlow.Ready() && s.microFast.Value() > s.microSlow.Value()
	microBear := s.microFast.Ready() && s.microSlow.Ready() && s.microFast.Value() < s.microSlow.Value()

	rsi := s.rsi.Value()
	longLook := bull && microBull && rsi > s.params.RSIBullMin
	shortLook := bear && microBear && rsi < s.params.RSIBearMax

	longTrig := longLook && !s.prevLongLook
	shortTrig := shortLook && !s.prevShortLook
	s.prevLongLook = longLook
	s.prevShortLook = shortLook

	if !longTrig && !shortTrig {
		return nil
	}
	if !s.cleared(b.Close) {
		return nil
	}

	trend := signal.TrendState{
		BullStack: bull,
		BearStack: bear,
		LongLook:  longLook,
		ShortLook: shortLook,
		LongTrig:  longTrig,
		ShortTrig: shortTrig,
	}
	s.lastSignalBar = s.barIndex
	if longTrig {
		s.lastLongPrice = b.Close
		return &signal.Signal{
			Direction: signal.Long, Reason: "trend-bias-long", Price: b.Close,
			RSI: rsi, ADX: s.adx.Value(), Trend: trend, Ts: b.End,
		}
	}
	s.lastShortPrice = b.Close
	return &signal.Signal{
		Direction: signal.Short, Reason: "trend-bias-short", Price: b.Close,
		RSI: rsi, ADX: s.adx.Value(), Trend: trend, Ts: b.End,
	}
}

// cleared applies the trend-bias suppression rules: enough bars since the
// last trend-bias signal and enough price travel from both prior trigger
// prices (each checked only when set).
func (s *DualSystem) cleared(price float64) bool {
	if s.barIndex-s.lastSignalBar < s.params.MinBarsBetween {
		return false
	}
	if s.lastLongPrice != 0 && movePct(price, s.lastLongPrice) < s.params.MinMovePercent {
		return false
	}
	if s.lastShortPrice != 0 && movePct(price, s.lastShortPrice) < s.params.MinMovePercent {
		return false
	}
	return true
}

// momentumSurge is the second sub-system: RSI momentum over the last three
// samples, a volume spike, bar color, and EMA stack direction must all
// align. Deliberately not edge-triggered.
func (s *DualSystem) momentumSurge(b signal.Bar, avgVol float64, haveVol bool) *signal.Signal {
	momentum, ok := s.rsiMomentum()
	if !ok {
		return nil
	}
	if math.Abs(momentum) < s.params.SurgeThreshold {
		return nil
	}
	if !haveVol || b.Volume < s.params.VolumeMultiplier*avgVol {
		return nil
	}

	bull := s.fast.Value() > s.mid.Value() && s.mid.Value() > s.slow.Value()
	bear := s.fast.Value() < s.mid.Value() && s.mid.Value() < s.slow.Value()
	trend := signal.TrendState{BullStack: bull, BearStack: bear}

	if momentum > 0 && b.Bullish() && bull {
		return &signal.Signal{
			Direction: signal.Long, Reason: "momentum-surge-long", Price: b.Close,
			RSI: s.rsi.Value(), ADX: s.adx.Value(), Trend: trend, Ts: b.End,
		}
	}
	if momentum < 0 && !b.Bullish() && bear {
		return &signal.Signal{
			Direction: signal.Short, Reason: "momentum-surge-short", Price: b.Close,
			RSI: s.rsi.Value(), ADX: s.adx.Value(), Trend: trend, Ts: b.End,
		}
	}
	return nil
}

// ExitAdvice checks an open position for RSI exhaustion: a reversal against
// the held direction wins over the flattening/volume-drop case when both
// hold on the same bar.
func (s *DualSystem) ExitAdvice(pos position.Position, b signal.Bar) *signal.ExitSignal {
	if pos.IsFlat() {
		return nil
	}
	momentum, ok := s.rsiMomentum()
	if !ok {
		return nil
	}

	adverse := (pos.Side == position.Long && momentum < 0) ||
		(pos.Side == position.Short && momentum > 0)
	if adverse {
		return &signal.ExitSignal{Reason: "rsi-reversal", Ts: b.End}
	}

	avgVol := s.volHist.Mean()
	flat := math.Abs(momentum) < s.params.FlattenThreshold
	volumeDrop := avgVol > 0 && b.Volume < s.params.ExitVolumeMultiplier*avgVol
	if flat && volumeDrop {
		return &signal.ExitSignal{Reason: "rsi-flattening-volume-drop", Ts: b.End}
	}
	return nil
}

// rsiMomentum returns RSI[last] - RSI[last-2]; ok is false until three RSI
// samples exist.
func (s *DualSystem) rsiMomentum() (float64, bool) {
	if s.rsiHist.Len() < 3 {
		return 0, false
	}
	last, _ := s.rsiHist.At(0)
	prev2, _ := s.rsiHist.At(2)
	return last - prev2, true
}

// Snapshot exposes indicator state for the gate and protective exits.
func (s *DualSystem) Snapshot() Snapshot {
	return Snapshot{
		RSI:       s.rsi.Value(),
		RSIReady:  s.rsi.Ready(),
		ADX:       s.adx.Value(),
		ADXReady:  s.adx.Ready(),
		ADXWarmup: s.adx.WarmupProgress(),
		ATR:       s.atr.Value(),
		ATRReady:  s.atr.Ready(),
	}
}

func movePct(price, ref float64) float64 {
	if ref == 0 {
		return math.MaxFloat64
	}
	return math.Abs(price-ref) / ref * 100
}
