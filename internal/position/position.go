// Package position holds the bot's view of its single logical position and
// the reconciliation protocol that keeps it honest against the venue.
package position

import (
	"math"
	"time"

	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/signal"
)

// Side of a held position.
type Side string

const (
	Flat  Side = "flat"
	Long  Side = "long"
	Short Side = "short"
)

// FromDirection maps a signal direction onto a position side.
func FromDirection(d signal.Direction) Side {
	if d == signal.Short {
		return Short
	}
	return Long
}

// Position is one logical position view. Two instances exist at runtime:
// the local optimistic copy written on order submission and the
// authoritative copy written on each successful venue poll.
type Position struct {
	Side         Side
	Size         float64
	EntryPrice   float64
	OpenedAt     time.Time
	PendingOrder bool
}

// IsFlat reports whether no position is held.
func (p Position) IsFlat() bool { return p.Side == Flat || p.Side == "" || p.Size == 0 }

// Direction returns the signal direction of a non-flat position.
func (p Position) Direction() signal.Direction {
	if p.Side == Short {
		return signal.Short
	}
	return signal.Long
}

// UnrealizedPct returns the signed unrealized move from entry in percent of
// entry price; zero when flat or entry is unknown.
func (p Position) UnrealizedPct(price float64) float64 {
	if p.IsFlat() || p.EntryPrice == 0 {
		return 0
	}
	move := (price - p.EntryPrice) / p.EntryPrice * 100
	if p.Side == Short {
		move = -move
	}
	return move
}

// HeldFor returns how long the position has been open.
func (p Position) HeldFor(now time.Time) time.Duration {
	if p.IsFlat() || p.OpenedAt.IsZero() {
		return 0
	}
	return now.Sub(p.OpenedAt)
}

// Report is the authoritative position snapshot returned by the venue
// poller. PositionAmt is signed: positive long, negative short.
type Report struct {
	PositionAmt      float64
	EntryPrice       float64
	UnrealizedProfit float64
	Balances         map[string]float64
	At               time.Time
}

// Side derives the reported side from the signed amount.
func (r Report) Side() Side {
	switch {
	case r.PositionAmt > 0:
		return Long
	case r.PositionAmt < 0:
		return Short
	default:
		return Flat
	}
}

// Size returns the absolute reported position size.
func (r Report) Size() float64 { return math.Abs(r.PositionAmt) }
