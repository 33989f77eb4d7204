package indicator

import (
	"math"

	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/signal"
)

// ADX is Wilder's Average Directional Index, a trend-strength gauge.
//
// Warm-up: the first update seeds the previous bar; smoothed TR/+DM/-DM
// averages seed after length+1 updates; DX values accumulate for another
// `length` updates. Ready becomes true on update 2*length+2, when the first
// Wilder-smoothed ADX is published.
type ADX struct {
	length   int
	prev     signal.Bar
	havePrev bool

	trN  float64
	pdmN float64
	mdmN float64

	adx   float64
	dxSum float64
	count int
	ready bool
}

// NewADX creates an ADX engine with the given length.
func NewADX(length int) *ADX {
	if length < 2 {
		length = 2
	}
	return &ADX{length: length}
}

// Update consumes the next bar.
func (a *ADX) Update(b signal.Bar) {
	if !a.havePrev {
		a.prev = b
		a.havePrev = true
		a.count = 1
		return
	}

	// Directional movement: only the larger of the two moves counts, and
	// both are zero when highs and lows move toward each other.
	upMove := b.High - a.prev.High
	downMove := a.prev.Low - b.Low
	var pdm, mdm float64
	if upMove > downMove && upMove > 0 {
		pdm = upMove
	}
	if downMove > upMove && downMove > 0 {
		mdm = downMove
	}

	tr := trueRange(b, a.prev)
	a.prev = b
	a.count++

	if a.count <= a.length+1 {
		a.trN += tr
		a.pdmN += pdm
		a.mdmN += mdm
		if a.count == a.length+1 {
			p := float64(a.length)
			a.trN /= p
			a.pdmN /= p
			a.mdmN /= p
		}
		return
	}

	p := float64(a.length)
	a.trN = (a.trN*(p-1) + tr) / p
	a.pdmN = (a.pdmN*(p-1) + pdm) / p
	a.mdmN = (a.mdmN*(p-1) + mdm) / p

	dx := a.dx()

	seedAt := 2*a.length + 1
	switch {
	case a.count < seedAt:
		a.dxSum += dx
	case a.count == seedAt:
		a.dxSum += dx
		a.adx = a.dxSum / p
	default:
		a.adx = (a.adx*(p-1) + dx) / p
		a.ready = true
	}
}

// dx computes the current DX value. When the denominator collapses to zero
// the DX is defined as the previous ADX, unchanged.
func (a *ADX) dx() float64 {
	if a.trN == 0 {
		return a.adx
	}
	pdi := 100 * (a.pdmN / a.trN)
	mdi := 100 * (a.mdmN / a.trN)
	den := pdi + mdi
	if den == 0 {
		return a.adx
	}
	return 100 * math.Abs(pdi-mdi) / den
}

// Ready reports whether a stable ADX has been published.
func (a *ADX) Ready() bool { return a.ready }

// Value returns the current ADX, 0 before Ready.
func (a *ADX) Value() float64 {
	if !a.ready {
		return 0
	}
	return a.adx
}

// WarmupProgress reports warm-up completion in [0,1); 1.0 once Ready.
func (a *ADX) WarmupProgress() float64 {
	if a.ready {
		return 1.0
	}
	need := float64(2*a.length + 2)
	progress := float64(a.count) / need
	if progress >= 1 {
		progress = 0.99
	}
	return progress
}

// Trending reports whether ADX is ready and above the given threshold.
func (a *ADX) Trending(threshold float64) bool {
	return a.ready && a.adx > threshold
}
