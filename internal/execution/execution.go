// Package execution is the boundary to the venue that actually holds the
// position. The engine only ever talks to the Executor interface; the paper
// venue in this package is the reference implementation.
package execution

import (
	"context"
	"errors"
	"time"
)

// Recognized, recoverable error conditions. Anything else an executor
// returns propagates to the caller and aborts the current operation.
var (
	// ErrInsufficientBalance means the venue refused the entry for lack of
	// margin; the attempt is skipped and not retried automatically.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrReduceOnlyReject means the venue had no position to close. The
	// close is treated as already done on the venue side.
	ErrReduceOnlyReject = errors.New("reduce-only order rejected, no position to close")
)

// Side enumerates order directions.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Order is an entry request.
type Order struct {
	Symbol string
	Qty    float64
	Price  float64 // reference price for margin/fill computation
	Ts     time.Time
}

// CloseMeta carries the context of a close request.
type CloseMeta struct {
	Price float64
	Ts    time.Time
}

// Fill is one executed order, recorded for later inspection.
type Fill struct {
	Symbol string    `json:"symbol"`
	Side   Side      `json:"side"`
	Qty    float64   `json:"qty"`
	Price  float64   `json:"price"`
	Reason string    `json:"reason"`
	PnL    float64   `json:"pnl"`
	Ts     time.Time `json:"ts"`
}

// FillRecorder captures fills for later inspection.
type FillRecorder interface {
	Record(Fill)
}

// Executor submits orders to a venue. All calls are fallible and may block
// on network I/O, hence the contexts.
type Executor interface {
	EnterLong(ctx context.Context, o Order) error
	EnterShort(ctx context.Context, o Order) error
	ClosePosition(ctx context.Context, reason string, meta CloseMeta) error
}
