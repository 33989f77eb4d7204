package execution

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/position"
)

const quoteAsset = "USDT"

// Paper is a simulated perpetuals venue holding one position with isolated
// margin. It implements both the Executor interface and the poller's
// authoritative-report side, which makes it a full stand-in for a live
// venue in tests and dry runs.
type Paper struct {
	log zerolog.Logger

	mu       sync.Mutex
	symbol   string
	cash     float64
	leverage float64
	qtyStep  decimal.Decimal
	mark     float64

	pos position.Position

	realized  float64
	grossWin  float64
	grossLoss float64
	wins      int
	losses    int

	recorder FillRecorder
}

// Stats summarizes closed paper trades.
type Stats struct {
	Trades       int
	Wins         int
	Losses       int
	RealizedPnL  float64
	ProfitFactor float64
}

// NewPaper builds a paper venue with the given bankroll and leverage.
// qtyStep is the venue's quantity step as a decimal string (e.g. "0.001");
// order sizes are floored to it the way a live venue would.
func NewPaper(log zerolog.Logger, startingCash, leverage float64, qtyStep string, rec FillRecorder) *Paper {
	step, err := decimal.NewFromString(qtyStep)
	if err != nil || step.IsZero() || step.IsNegative() {
		step = decimal.NewFromFloat(0.001)
	}
	if leverage <= 0 {
		leverage = 1
	}
	return &Paper{
		log:      log,
		cash:     startingCash,
		leverage: leverage,
		qtyStep:  step,
		pos:      position.Position{Side: position.Flat},
		recorder: rec,
	}
}

// MarkPrice records the latest traded price, used for unrealized PnL in
// authoritative reports.
func (p *Paper) MarkPrice(price float64) {
	p.mu.Lock()
	p.mark = price
	p.mu.Unlock()
}

// EnterLong opens a long position.
func (p *Paper) EnterLong(ctx context.Context, o Order) error {
	return p.enter(ctx, position.Long, o)
}

// EnterShort opens a short position.
func (p *Paper) EnterShort(ctx context.Context, o Order) error {
	return p.enter(ctx, position.Short, o)
}

func (p *Paper) enter(ctx context.Context, side position.Side, o Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	qty := p.quantize(o.Qty)
	if qty <= 0 || o.Price <= 0 {
		return ErrInsufficientBalance
	}
	margin := qty * o.Price / p.leverage
	if margin > p.cash {
		return ErrInsufficientBalance
	}

	p.symbol = o.Symbol
	p.pos = position.Position{
		Side:       side,
		Size:       qty,
		EntryPrice: o.Price,
		OpenedAt:   o.Ts,
	}
	p.mark = o.Price

	fillSide := Buy
	if side == position.Short {
		fillSide = Sell
	}
	p.record(Fill{Symbol: o.Symbol, Side: fillSide, Qty: qty, Price: o.Price, Reason: "entry", Ts: o.Ts})
	p.log.Info().Str("side", string(side)).Float64("qty", qty).Float64("px", o.Price).Msg("paper entry filled")
	return nil
}

// ClosePosition closes the held position at the meta price. Closing while
// flat returns ErrReduceOnlyReject, mirroring a reduce-only rejection.
func (p *Paper) ClosePosition(ctx context.Context, reason string, meta CloseMeta) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pos.IsFlat() {
		return ErrReduceOnlyReject
	}

	pnl := (meta.Price - p.pos.EntryPrice) * p.pos.Size
	fillSide := Sell
	if p.pos.Side == position.Short {
		pnl = -pnl
		fillSide = Buy
	}

	p.cash += pnl
	p.realized += pnl
	if pnl >= 0 {
		p.grossWin += pnl
		p.wins++
	} else {
		p.grossLoss += -pnl
		p.losses++
	}

	p.record(Fill{Symbol: p.symbol, Side: fillSide, Qty: p.pos.Size, Price: meta.Price, Reason: reason, PnL: pnl, Ts: meta.Ts})
	p.log.Info().Str("reason", reason).Float64("px", meta.Price).Float64("pnl", pnl).Msg("paper close filled")

	p.pos = position.Position{Side: position.Flat}
	return nil
}

// Report returns the authoritative view a live venue would serve to the
// poller.
func (p *Paper) Report(ctx context.Context) (position.Report, error) {
	if err := ctx.Err(); err != nil {
		return position.Report{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	amt := p.pos.Size
	if p.pos.Side == position.Short {
		amt = -amt
	}
	unrealized := 0.0
	if !p.pos.IsFlat() && p.mark > 0 {
		unrealized = (p.mark - p.pos.EntryPrice) * p.pos.Size
		if p.pos.Side == position.Short {
			unrealized = -unrealized
		}
	}
	return position.Report{
		PositionAmt:      amt,
		EntryPrice:       p.pos.EntryPrice,
		UnrealizedProfit: unrealized,
		Balances:         map[string]float64{quoteAsset: p.cash},
		At:               time.Now().UTC(),
	}, nil
}

// Stats summarizes realized performance. With wins and no losses the
// profit factor reads +Inf; with no trades at all it reads 0.
func (p *Paper) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	pf := 0.0
	switch {
	case p.grossLoss > 0:
		pf = p.grossWin / p.grossLoss
	case p.wins > 0:
		pf = math.Inf(1)
	}
	return Stats{
		Trades:       p.wins + p.losses,
		Wins:         p.wins,
		Losses:       p.losses,
		RealizedPnL:  p.realized,
		ProfitFactor: pf,
	}
}

// Cash returns free margin.
func (p *Paper) Cash() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cash
}

// quantize floors qty to the venue's quantity step.
func (p *Paper) quantize(qty float64) float64 {
	d := decimal.NewFromFloat(qty)
	steps := d.Div(p.qtyStep).Floor()
	out, _ := steps.Mul(p.qtyStep).Float64()
	return out
}

func (p *Paper) record(f Fill) {
	if p.recorder != nil {
		p.recorder.Record(f)
	}
}
