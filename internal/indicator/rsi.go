package indicator

// RSI is a streaming Relative Strength Index using Wilder-smoothed average
// gain/loss. Ready once `length` close-to-close deltas have been observed.
type RSI struct {
	length    int
	prevClose float64
	havePrev  bool

	avgGain float64
	avgLoss float64
	deltas  int
}

// NewRSI creates an RSI engine with the given length.
func NewRSI(length int) *RSI {
	if length < 1 {
		length = 1
	}
	return &RSI{length: length}
}

// Update consumes the next close price.
func (r *RSI) Update(close float64) {
	if !r.havePrev {
		r.prevClose = close
		r.havePrev = true
		return
	}

	change := close - r.prevClose
	r.prevClose = close

	gain, loss := 0.0, 0.0
	if change > 0 {
		gain = change
	} else {
		loss = -change
	}

	if r.deltas < r.length {
		// Seed with simple averages over the first `length` deltas.
		r.avgGain += gain
		r.avgLoss += loss
		r.deltas++
		if r.deltas == r.length {
			r.avgGain /= float64(r.length)
			r.avgLoss /= float64(r.length)
		}
		return
	}

	p := float64(r.length)
	r.avgGain = (r.avgGain*(p-1) + gain) / p
	r.avgLoss = (r.avgLoss*(p-1) + loss) / p
	r.deltas++
}

// Ready reports whether enough deltas have been seen.
func (r *RSI) Ready() bool { return r.deltas >= r.length }

// Value returns RSI in [0,100], 0 before Ready. A flat tape (no losses)
// reads 100, no gains reads 0.
func (r *RSI) Value() float64 {
	if !r.Ready() {
		return 0
	}
	if r.avgLoss == 0 {
		if r.avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := r.avgGain / r.avgLoss
	return 100 - 100/(1+rs)
}
