package indicator

import (
	"math"
	"testing"
	"time"

	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/signal"
)

func bar(i int, open, high, low, close float64) signal.Bar {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute)
	return signal.Bar{Start: start, End: start.Add(time.Minute), Open: open, High: high, Low: low, Close: close, Volume: 1}
}

func TestEMASeedsWithSimpleAverage(t *testing.T) {
	ema := NewEMA(3)
	for _, v := range []float64{10, 20, 30} {
		if ema.Ready() {
			t.Fatalf("ready before warm-up complete")
		}
		ema.Update(v)
	}
	if !ema.Ready() {
		t.Fatalf("expected ready after 3 updates")
	}
	if ema.Value() != 20 {
		t.Fatalf("expected SMA seed 20, got %v", ema.Value())
	}

	ema.Update(40)
	// alpha = 2/(3+1) = 0.5
	if math.Abs(ema.Value()-30) > 1e-9 {
		t.Fatalf("expected 30 after smoothing, got %v", ema.Value())
	}
}

func TestRSIStaysInRange(t *testing.T) {
	rsi := NewRSI(14)
	price := 100.0
	for i := 0; i < 200; i++ {
		// Alternate strong up and mild down moves.
		if i%3 == 0 {
			price -= 1.5
		} else {
			price += 2.0
		}
		rsi.Update(price)
		if !rsi.Ready() {
			continue
		}
		v := rsi.Value()
		if v < 0 || v > 100 {
			t.Fatalf("rsi out of range at update %d: %v", i, v)
		}
	}
	if !rsi.Ready() {
		t.Fatalf("expected rsi ready")
	}
	if rsi.Value() <= 50 {
		t.Fatalf("upward tape should read above 50, got %v", rsi.Value())
	}
}

func TestRSIAllGainsReadsHundred(t *testing.T) {
	rsi := NewRSI(5)
	for i := 0; i <= 5; i++ {
		rsi.Update(100 + float64(i))
	}
	if rsi.Value() != 100 {
		t.Fatalf("expected 100 on loss-free tape, got %v", rsi.Value())
	}
}

func TestATRRejectsShortLength(t *testing.T) {
	if _, err := NewATR(1); err == nil {
		t.Fatalf("expected error for length 1")
	}
	if _, err := NewATR(2); err != nil {
		t.Fatalf("length 2 should be accepted: %v", err)
	}
}

func TestATRSeedAndSmoothing(t *testing.T) {
	atr, err := NewATR(2)
	if err != nil {
		t.Fatalf("NewATR: %v", err)
	}

	atr.Update(bar(0, 100, 101, 99, 100)) // prev seed
	atr.Update(bar(1, 100, 102, 98, 101)) // TR = 4
	if atr.Ready() {
		t.Fatalf("ready too early")
	}
	atr.Update(bar(2, 101, 103, 101, 102)) // TR = 2
	if !atr.Ready() {
		t.Fatalf("expected ready after 2 true ranges")
	}
	if atr.Value() != 3 {
		t.Fatalf("expected seed average 3, got %v", atr.Value())
	}

	atr.Update(bar(3, 102, 108, 102, 107)) // TR = 6 -> (3*1+6)/2 = 4.5
	if math.Abs(atr.Value()-4.5) > 1e-9 {
		t.Fatalf("expected 4.5 after Wilder smoothing, got %v", atr.Value())
	}
}

func TestADXWarmupBoundary(t *testing.T) {
	for _, length := range []int{2, 3, 5, 14} {
		adx := NewADX(length)
		price := 100.0
		for i := 1; i <= 2*length+1; i++ {
			price += 1
			adx.Update(bar(i, price, price+1, price-1, price+0.5))
			if adx.Ready() {
				t.Fatalf("length %d: ready at update %d", length, i)
			}
			if adx.Value() != 0 {
				t.Fatalf("length %d: non-zero value before ready", length)
			}
			if p := adx.WarmupProgress(); p < 0 || p >= 1 {
				t.Fatalf("length %d: warmup progress out of [0,1): %v", length, p)
			}
		}
		price += 1
		adx.Update(bar(2*length+2, price, price+1, price-1, price+0.5))
		if !adx.Ready() {
			t.Fatalf("length %d: not ready at update %d", length, 2*length+2)
		}
		if adx.Value() <= 0 {
			t.Fatalf("length %d: expected positive adx on trending tape", length)
		}
		if adx.WarmupProgress() != 1.0 {
			t.Fatalf("length %d: expected progress 1.0 once ready", length)
		}
	}
}

func TestADXTrendingThreshold(t *testing.T) {
	adx := NewADX(3)
	price := 100.0
	for i := 0; i < 40; i++ {
		price += 2
		adx.Update(bar(i, price, price+1, price-0.5, price+0.8))
	}
	if !adx.Ready() {
		t.Fatalf("expected ready")
	}
	// A one-way tape drives ADX toward 100.
	if !adx.Trending(25) {
		t.Fatalf("expected trending above 25, adx=%v", adx.Value())
	}
	if adx.Trending(200) {
		t.Fatalf("threshold above 100 can never trend")
	}
}

func TestRingEvictsOldest(t *testing.T) {
	r := NewRing(3)
	for i := 1; i <= 5; i++ {
		r.Push(float64(i))
	}
	if r.Len() != 3 {
		t.Fatalf("expected len 3, got %d", r.Len())
	}
	newest, _ := r.At(0)
	oldest, _ := r.At(2)
	if newest != 5 || oldest != 3 {
		t.Fatalf("unexpected window: newest=%v oldest=%v", newest, oldest)
	}
	if _, ok := r.At(3); ok {
		t.Fatalf("At past len should report !ok")
	}
	if r.Mean() != 4 {
		t.Fatalf("expected mean 4, got %v", r.Mean())
	}
	if max, _ := r.Max(); max != 5 {
		t.Fatalf("expected max 5, got %v", max)
	}
	if min, _ := r.Min(); min != 3 {
		t.Fatalf("expected min 3, got %v", min)
	}
}
