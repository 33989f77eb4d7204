package indicator

import (
	"fmt"
	"math"

	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/signal"
)

// ATR is a streaming Average True Range: a simple average seeds the first
// `length` true ranges, Wilder smoothing applies thereafter.
type ATR struct {
	length    int
	atr       float64
	count     int
	warmupSum float64
	prev      signal.Bar
	havePrev  bool
}

// NewATR creates an ATR engine. Lengths below 2 are rejected.
func NewATR(length int) (*ATR, error) {
	if length < 2 {
		return nil, fmt.Errorf("atr length must be >= 2, got %d", length)
	}
	return &ATR{length: length}, nil
}

// Update consumes the next bar.
func (a *ATR) Update(b signal.Bar) {
	if !a.havePrev {
		a.prev = b
		a.havePrev = true
		return
	}

	tr := trueRange(b, a.prev)
	a.prev = b

	if a.count < a.length {
		a.warmupSum += tr
		a.count++
		if a.count == a.length {
			a.atr = a.warmupSum / float64(a.length)
		}
		return
	}
	a.atr = (a.atr*float64(a.length-1) + tr) / float64(a.length)
}

// Ready reports whether the seed average has completed.
func (a *ATR) Ready() bool { return a.count >= a.length }

// Value returns the current ATR, 0 before Ready.
func (a *ATR) Value() float64 {
	if !a.Ready() {
		return 0
	}
	return a.atr
}

// trueRange is max(high-low, |high-prevClose|, |low-prevClose|).
func trueRange(cur, prev signal.Bar) float64 {
	highLow := cur.High - cur.Low
	highClose := math.Abs(cur.High - prev.Close)
	lowClose := math.Abs(cur.Low - prev.Close)
	return math.Max(highLow, math.Max(highClose, lowClose))
}
