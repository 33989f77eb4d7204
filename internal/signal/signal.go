// Package signal standardizes payloads shared between data ingestion,
// aggregation, and strategy layers.
package signal

import "time"

// Tick models the essential pieces of market data consumed by the bar
// aggregator. Ticks are transient; nothing retains them past bar
// construction.
type Tick struct {
	Symbol string
	Price  float64
	Size   float64
	Ts     time.Time
}

// Bar is a fixed-duration OHLCV aggregate of ticks, sealed by the
// aggregator once its window elapses and immutable afterwards.
type Bar struct {
	Start  time.Time
	End    time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Bullish reports whether the bar closed above its open.
func (b Bar) Bullish() bool { return b.Close > b.Open }

// Direction expresses the side a signal wants the position on.
type Direction string

const (
	Long  Direction = "long"
	Short Direction = "short"
)

// Opposite returns the other direction.
func (d Direction) Opposite() Direction {
	if d == Long {
		return Short
	}
	return Long
}

// TrendState is the boolean trend snapshot captured at trigger time.
type TrendState struct {
	BullStack bool
	BearStack bool
	LongLook  bool
	ShortLook bool
	LongTrig  bool
	ShortTrig bool
}

// Signal expresses an entry bias produced by a strategy. Produced fresh per
// bar, never mutated after creation, consumed at most once by the gate.
type Signal struct {
	Direction Direction
	Reason    string
	Price     float64
	RSI       float64
	ADX       float64
	Trend     TrendState
	Ts        time.Time
}

// ExitSignal is a strategy-advised close, distinct from the protective
// exit engine's own triggers.
type ExitSignal struct {
	Reason string
	Ts     time.Time
}
