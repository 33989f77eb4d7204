package strategy

import (
	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/indicator"
	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/signal"
)

// TrendParams tunes the trend-following variant.
type TrendParams struct {
	FastLen      int     `yaml:"fast_len"`
	MidLen       int     `yaml:"mid_len"`
	SlowLen      int     `yaml:"slow_len"`
	RSILen       int     `yaml:"rsi_len"`
	ADXLen       int     `yaml:"adx_len"`
	ATRLen       int     `yaml:"atr_len"`
	ADXThreshold float64 `yaml:"adx_threshold"`
	RSIMinLong   float64 `yaml:"rsi_min_long"`
	RSIMaxShort  float64 `yaml:"rsi_max_short"`
}

// DefaultTrendParams returns the reference tuning.
func DefaultTrendParams() TrendParams {
	return TrendParams{
		FastLen:      9,
		MidLen:       21,
		SlowLen:      50,
		RSILen:       14,
		ADXLen:       14,
		ATRLen:       14,
		ADXThreshold: 20,
		RSIMinLong:   50,
		RSIMaxShort:  50,
	}
}

func (p TrendParams) withDefaults() TrendParams {
	d := DefaultTrendParams()
	if p.FastLen <= 0 {
		p.FastLen = d.FastLen
	}
	if p.MidLen <= 0 {
		p.MidLen = d.MidLen
	}
	if p.SlowLen <= 0 {
		p.SlowLen = d.SlowLen
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
	if p.ADXThreshold <= 0 {
		p.ADXThreshold = d.ADXThreshold
	}
	if p.RSIMinLong <= 0 {
		p.RSIMinLong = d.RSIMinLong
	}
	if p.RSIMaxShort <= 0 {
		p.RSIMaxShort = d.RSIMaxShort
	}
	return p
}

// TrendFollower signals on the rising edge of an EMA-stack alignment backed
// by RSI, and only while ADX confirms a trending regime.
type TrendFollower struct {
	params TrendParams

	fast *indicator.EMA
	mid  *indicator.EMA
	slow *indicator.EMA
	rsi  *indicator.RSI
	adx  *indicator.ADX
	atr  *indicator.ATR

	prevLongLook  bool
	prevShortLook bool
}

// NewTrendFollower builds the trend-following variant.
func NewTrendFollower(params TrendParams) *TrendFollower {
	params = params.withDefaults()
	atr, _ := indicator.NewATR(params.ATRLen) // withDefaults guarantees >= 2
	return &TrendFollower{
		params: params,
		fast:   indicator.NewEMA(params.FastLen),
		mid:    indicator.NewEMA(params.MidLen),
		slow:   indicator.NewEMA(params.SlowLen),
		rsi:    indicator.NewRSI(params.RSILen),
		adx:    indicator.NewADX(params.ADXLen),
		atr:    atr,
	}
}

// Name returns the identifier used in logs and metrics.
func (s *TrendFollower) Name() string { return ModeTrend }

// Update feeds one closed bar through the indicator set and returns a
// signal on look-state rising edges.
func (s *TrendFollower) Update(b signal.Bar) *signal.Signal {
	s.fast.Update(b.Close)
	s.mid.Update(b.Close)
	s.slow.Update(b.Close)
	s.rsi.Update(b.Close)
	s.adx.Update(b)
	s.atr.Update(b)

	// Outside a trending regime the look state resets so a stale edge
	// cannot fire the moment ADX recovers.
	if !s.adx.Trending(s.params.ADXThreshold) {
		s.prevLongLook = false
		s.prevShortLook = false
		return nil
	}
	if !s.fast.Ready() || !s.mid.Ready() || !s.slow.Ready() || !s.rsi.Ready() {
		return nil
	}

	rsi := s.rsi.Value()
	bull := s.fast.Value() > s.mid.Value() && s.mid.Value() > s.slow.Value()
	bear := s.fast.Value() < s.mid.Value() && s.mid.Value() < s.slow.Value()

	longLook := bull && rsi > s.params.RSIMinLong && rsi > 55
	shortLook := bear && rsi < s.params.RSIMaxShort && rsi < 45

	longTrig := longLook && !s.prevLongLook
	shortTrig := shortLook && !s.prevShortLook
	s.prevLongLook = longLook
	s.prevShortLook = shortLook

	trend := signal.TrendState{
		BullStack: bull,
		BearStack: bear,
		LongLook:  longLook,
		ShortLook: shortLook,
		LongTrig:  longTrig,
		ShortTrig: shortTrig,
	}

	if longTrig {
		return &signal.Signal{
			Direction: signal.Long,
			Reason:    "long-trigger",
			Price:     b.Close,
			RSI:       rsi,
			ADX:       s.adx.Value(),
			Trend:     trend,
			Ts:        b.End,
		}
	}
	if shortTrig {
		return &signal.Signal{
			Direction: signal.Short,
			Reason:    "short-trigger",
			Price:     b.Close,
			RSI:       rsi,
			ADX:       s.adx.Value(),
			Trend:     trend,
			Ts:        b.End,
		}
	}
	return nil
}

// Snapshot exposes indicator state for the gate and protective exits.
func (s *TrendFollower) Snapshot() Snapshot {
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
