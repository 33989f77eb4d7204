// Package bars converts irregular tick streams into fixed-duration OHLCV
// bars. Windows are bucketed from tick timestamps, not wall clock and not
// the venue's own candle cadence.
package bars

import (
	"time"

	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/signal"
)

// Aggregator maintains at most one in-progress bar per instance. It is not
// safe for concurrent use; the engine owns it on its event loop.
type Aggregator struct {
	interval time.Duration

	cur      signal.Bar
	open     bool
	lastSeal time.Time // end of the most recently sealed window
}

// New returns an aggregator producing bars of the given duration. Durations
// below one second are clamped to one second.
func New(interval time.Duration) *Aggregator {
	if interval < time.Second {
		interval = time.Second
	}
	return &Aggregator{interval: interval}
}

// Interval returns the configured bar duration.
func (a *Aggregator) Interval() time.Duration { return a.interval }

// Push folds one tick into the current window. When the tick's timestamp
// crosses the window boundary the previous bar is sealed and returned with
// ok=true; the tick then opens the next window. Ticks before the most
// recently sealed boundary are dropped so an already-sealed window can never
// reopen or re-close.
func (a *Aggregator) Push(t signal.Tick) (closed signal.Bar, ok bool) {
	if !a.lastSeal.IsZero() && t.Ts.Before(a.lastSeal) {
		// Late tick from a sealed window.
		return signal.Bar{}, false
	}

	start := t.Ts.Truncate(a.interval)

	if !a.open {
		a.openBar(start, t)
		return signal.Bar{}, false
	}

	boundary := a.cur.Start.Add(a.interval)
	if t.Ts.Before(a.cur.Start) {
		// Out-of-order tick behind the open window; ignore.
		return signal.Bar{}, false
	}
	if t.Ts.Before(boundary) {
		a.fold(t)
		return signal.Bar{}, false
	}

	// Boundary crossed: seal at the window edge. A tick far outside the
	// window (reconnect gap) simply closes this bar first; the next bar
	// starts at the tick's own bucket.
	a.cur.End = boundary
	closed = a.cur
	a.lastSeal = boundary
	a.openBar(start, t)
	return closed, true
}

// Current returns a copy of the in-progress bar, if any.
func (a *Aggregator) Current() (signal.Bar, bool) {
	if !a.open {
		return signal.Bar{}, false
	}
	return a.cur, true
}

func (a *Aggregator) openBar(start time.Time, t signal.Tick) {
	a.cur = signal.Bar{
		Start:  start,
		Open:   t.Price,
		High:   t.Price,
		Low:    t.Price,
		Close:  t.Price,
		Volume: t.Size,
	}
	a.open = true
}

func (a *Aggregator) fold(t signal.Tick) {
	if t.Price > a.cur.High {
		a.cur.High = t.Price
	}
	if t.Price < a.cur.Low {
		a.cur.Low = t.Price
	}
	a.cur.Close = t.Price
	a.cur.Volume += t.Size
}
