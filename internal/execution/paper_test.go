package execution

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

var fillTs = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestPaper(cash float64) *Paper {
	return NewPaper(zerolog.Nop(), cash, 5, "0.001", nil)
}

func TestPaperEntryAndClose(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger(4)
	p := NewPaper(zerolog.Nop(), 1000, 5, "0.001", ledger)

	if err := p.EnterLong(ctx, Order{Symbol: "BTCUSDT", Qty: 0.01, Price: 50000, Ts: fillTs}); err != nil {
		t.Fatalf("enter long: %v", err)
	}
	rep, err := p.Report(ctx)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if rep.PositionAmt != 0.01 || rep.EntryPrice != 50000 {
		t.Fatalf("report = %+v, want long 0.01 @ 50000", rep)
	}

	if err := p.ClosePosition(ctx, "take-profit", CloseMeta{Price: 51000, Ts: fillTs.Add(time.Minute)}); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := p.Cash(); got != 1010 {
		t.Fatalf("cash = %v, want 1010 after a +10 close", got)
	}

	fills := ledger.Snapshot()
	if len(fills) != 2 {
		t.Fatalf("recorded %d fills, want 2", len(fills))
	}
	if fills[0].Side != Buy || fills[0].Reason != "entry" {
		t.Fatalf("entry fill = %+v", fills[0])
	}
	if fills[1].Side != Sell || fills[1].Reason != "take-profit" || fills[1].PnL != 10 {
		t.Fatalf("close fill = %+v", fills[1])
	}
}

func TestPaperShortPnL(t *testing.T) {
	ctx := context.Background()
	p := newTestPaper(1000)
	if err := p.EnterShort(ctx, Order{Symbol: "BTCUSDT", Qty: 0.01, Price: 50000, Ts: fillTs}); err != nil {
		t.Fatalf("enter short: %v", err)
	}
	rep, _ := p.Report(ctx)
	if rep.PositionAmt != -0.01 {
		t.Fatalf("short report amt = %v, want -0.01", rep.PositionAmt)
	}
	// Price fell 1000: a short gains 10.
	if err := p.ClosePosition(ctx, "target", CloseMeta{Price: 49000, Ts: fillTs}); err != nil {
		t.Fatalf("close: %v", err)
	}
	stats := p.Stats()
	if stats.RealizedPnL != 10 || stats.Wins != 1 {
		t.Fatalf("stats = %+v, want one +10 win", stats)
	}
}

func TestPaperInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	p := newTestPaper(10)
	// 0.01 * 50000 / 5x = 100 margin against 10 cash.
	err := p.EnterLong(ctx, Order{Symbol: "BTCUSDT", Qty: 0.01, Price: 50000, Ts: fillTs})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("got %v, want ErrInsufficientBalance", err)
	}
	rep, _ := p.Report(ctx)
	if rep.PositionAmt != 0 {
		t.Fatalf("rejected entry left a position: %+v", rep)
	}
}

func TestPaperQuantizeFloorsToStep(t *testing.T) {
	ctx := context.Background()
	p := newTestPaper(100000)
	if err := p.EnterLong(ctx, Order{Symbol: "BTCUSDT", Qty: 0.0129, Price: 50000, Ts: fillTs}); err != nil {
		t.Fatalf("enter: %v", err)
	}
	rep, _ := p.Report(ctx)
	if rep.PositionAmt != 0.012 {
		t.Fatalf("quantized size = %v, want 0.012", rep.PositionAmt)
	}

	// A quantity below one step quantizes to zero and is rejected.
	p2 := newTestPaper(100000)
	if err := p2.EnterLong(ctx, Order{Symbol: "BTCUSDT", Qty: 0.0004, Price: 50000, Ts: fillTs}); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("sub-step qty got %v, want ErrInsufficientBalance", err)
	}
}

func TestPaperReduceOnlyReject(t *testing.T) {
	p := newTestPaper(1000)
	err := p.ClosePosition(context.Background(), "stop-loss", CloseMeta{Price: 100, Ts: fillTs})
	if !errors.Is(err, ErrReduceOnlyReject) {
		t.Fatalf("got %v, want ErrReduceOnlyReject", err)
	}
}

func TestPaperProfitFactor(t *testing.T) {
	ctx := context.Background()

	// No trades: profit factor 0.
	p := newTestPaper(1000)
	if pf := p.Stats().ProfitFactor; pf != 0 {
		t.Fatalf("no-trade profit factor = %v, want 0", pf)
	}

	// Wins only: +Inf.
	p.EnterLong(ctx, Order{Symbol: "X", Qty: 0.01, Price: 10000, Ts: fillTs})
	p.ClosePosition(ctx, "target", CloseMeta{Price: 11000, Ts: fillTs})
	if pf := p.Stats().ProfitFactor; !math.IsInf(pf, 1) {
		t.Fatalf("win-only profit factor = %v, want +Inf", pf)
	}

	// A win and a loss: grossWin / grossLoss.
	p.EnterLong(ctx, Order{Symbol: "X", Qty: 0.01, Price: 10000, Ts: fillTs})
	p.ClosePosition(ctx, "stop-loss", CloseMeta{Price: 9500, Ts: fillTs})
	stats := p.Stats()
	if stats.Trades != 2 || stats.Wins != 1 || stats.Losses != 1 {
		t.Fatalf("stats = %+v, want 1 win 1 loss", stats)
	}
	if pf := stats.ProfitFactor; pf != 2 {
		t.Fatalf("profit factor = %v, want 2 (10 won / 5 lost)", pf)
	}
}

func TestPaperMarkPriceDrivesUnrealized(t *testing.T) {
	ctx := context.Background()
	p := newTestPaper(1000)
	p.EnterLong(ctx, Order{Symbol: "BTCUSDT", Qty: 0.01, Price: 50000, Ts: fillTs})
	p.MarkPrice(50500)
	rep, _ := p.Report(ctx)
	if rep.UnrealizedProfit != 5 {
		t.Fatalf("unrealized = %v, want 5", rep.UnrealizedProfit)
	}
	if got := rep.Balances["USDT"]; got != 1000 {
		t.Fatalf("quote balance = %v, want 1000", got)
	}
}

func TestPaperEntryRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := newTestPaper(1000)
	if err := p.EnterLong(ctx, Order{Symbol: "X", Qty: 0.01, Price: 100, Ts: fillTs}); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}
