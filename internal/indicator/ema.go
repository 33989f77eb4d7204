// Package indicator provides streaming technical indicators with explicit
// warm-up semantics. Each engine follows the same shape: Update consumes one
// input, Ready reports whether enough inputs have been seen for Value to be
// meaningful, and Value returns 0 before Ready.
package indicator

// EMA is a streaming Exponential Moving Average seeded with a simple
// average over the first `length` inputs.
type EMA struct {
	length     int
	multiplier float64
	ema        float64
	count      int
	warmupSum  float64
}

// NewEMA creates an EMA engine with the given length.
func NewEMA(length int) *EMA {
	if length < 1 {
		length = 1
	}
	return &EMA{
		length:     length,
		multiplier: 2.0 / float64(length+1),
	}
}

// Update consumes the next input value.
func (e *EMA) Update(v float64) {
	if e.count < e.length {
		e.warmupSum += v
		e.count++
		if e.count == e.length {
			e.ema = e.warmupSum / float64(e.length)
		}
		return
	}
	e.ema = (v-e.ema)*e.multiplier + e.ema
}

// Ready reports whether the warm-up average has completed.
func (e *EMA) Ready() bool { return e.count >= e.length }

// Value returns the current EMA, 0 before Ready.
func (e *EMA) Value() float64 {
	if !e.Ready() {
		return 0
	}
	return e.ema
}
