// Package engine wires ticks and poll reports through the aggregation,
// strategy, admission, and protection stages in a fixed order. All shared
// state is confined to the single goroutine running the event loop, so no
// component below needs a lock of its own.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/bars"
	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/exchange"
	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/execution"
	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/metrics"
	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/position"
	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/risk"
	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/signal"
	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/state"
	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/strategy"
)

// markPricer is implemented by executors that track a mark price of their
// own (the paper venue does).
type markPricer interface {
	MarkPrice(float64)
}

// Options configures an engine instance.
type Options struct {
	Symbol       string
	Timeframe    time.Duration
	PollInterval time.Duration
	QuoteAsset   string
	Risk         risk.Config
	Log          zerolog.Logger
}

// Engine is the orchestrator. Construct with New, optionally Restore a
// persisted snapshot, register observers, then Run.
type Engine struct {
	log  zerolog.Logger
	opts Options

	agg     *bars.Aggregator
	strat   strategy.Strategy
	adviser strategy.ExitAdviser // nil when the variant has no exit advice
	gate    *risk.Gate
	protect *risk.Protector
	rec     *position.Reconciler
	exec    execution.Executor
	poller  exchange.Poller
	store   *state.Store

	observers []func(Event)

	lastBarClose time.Time

	stopOnce sync.Once
	stopFn   context.CancelFunc
}

// New builds an engine around the given collaborators. The gate, protector,
// and reconciler are owned by the engine; their state is never shared
// between instances.
func New(opts Options, strat strategy.Strategy, exec execution.Executor, poller exchange.Poller, store *state.Store) *Engine {
	if opts.Timeframe <= 0 {
		opts.Timeframe = time.Minute
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.QuoteAsset == "" {
		opts.QuoteAsset = "USDT"
	}

	e := &Engine{
		log:     opts.Log,
		opts:    opts,
		agg:     bars.New(opts.Timeframe),
		strat:   strat,
		gate:    risk.NewGate(opts.Risk, strat.Name(), opts.Timeframe, opts.Log),
		protect: risk.NewProtector(opts.Risk, strat.Name()),
		rec:     position.NewReconciler(opts.Log),
		exec:    exec,
		poller:  poller,
		store:   store,
	}
	if adviser, ok := strat.(strategy.ExitAdviser); ok {
		e.adviser = adviser
	}
	e.rec.OnFreeze(func(until time.Time) {
		metrics.FrozenGauge.Set(1)
		e.emit(Event{Kind: EventFreeze, Reason: "reconcile-mismatch", At: time.Now().UTC()})
	})
	return e
}

// Restore seeds the engine from a persisted snapshot. Call before Run.
func (e *Engine) Restore(snap state.Snapshot) {
	e.rec.SetLocal(snap.Position)
	e.lastBarClose = snap.LastBarCloseTime
	e.log.Info().
		Str("side", string(snap.Position.Side)).
		Time("last_bar_close", snap.LastBarCloseTime).
		Msg("restored persisted state")
}

// Position returns the current local position view.
func (e *Engine) Position() position.Position { return e.rec.Local() }

// Frozen reports whether the reconciler currently blocks new entries.
func (e *Engine) Frozen() bool { return e.rec.Frozen(time.Now().UTC()) }

// Run consumes ticks until the channel closes or the context is canceled.
// The poller fires on its fixed interval inside the same loop, so tick
// handling and reconciliation never observe each other half-applied.
func (e *Engine) Run(ctx context.Context, ticks <-chan signal.Tick) error {
	ctx, cancel := context.WithCancel(ctx)
	e.stopFn = cancel
	defer e.Stop()

	poll := time.NewTicker(e.opts.PollInterval)
	defer poll.Stop()

	e.log.Info().
		Str("symbol", e.opts.Symbol).
		Dur("timeframe", e.opts.Timeframe).
		Str("strategy", e.strat.Name()).
		Msg("engine started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case tk, ok := <-ticks:
			if !ok {
				return nil
			}
			e.onTick(ctx, tk)
		case <-poll.C:
			e.onPoll(ctx)
		}
	}
}

// Stop shuts the engine down. Idempotent; in-flight operations finish and
// their results are discarded.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		if e.stopFn != nil {
			e.stopFn()
		}
		e.emit(Event{Kind: EventStop, At: time.Now().UTC()})
		e.log.Info().Msg("engine stopped")
	})
}

func (e *Engine) onTick(ctx context.Context, tk signal.Tick) {
	if mp, ok := e.exec.(markPricer); ok {
		mp.MarkPrice(tk.Price)
	}

	bar, ok := e.agg.Push(tk)
	if !ok {
		return
	}
	e.onBarClose(ctx, bar)
}

// onBarClose runs the fixed per-bar order: indicators update, protective
// exits complete first (including their side effects), then the strategy
// signal faces the admission gate.
func (e *Engine) onBarClose(ctx context.Context, bar signal.Bar) {
	metrics.BarsTotal.WithLabelValues(e.opts.Symbol).Inc()
	e.lastBarClose = bar.End
	e.gate.ObserveBar(bar)

	sig := e.strat.Update(bar)
	snap := e.strat.Snapshot()

	pos := e.rec.Local()
	if !pos.IsFlat() {
		if ex := e.protect.Evaluate(pos, bar, snap, bar.End); ex != nil {
			metrics.ExitsTotal.WithLabelValues(ex.Reason).Inc()
			e.closePosition(ctx, ex.Reason, ex.Price, ex.Ts)
			pos = e.rec.Local()
		}
	}

	// Strategy-advised exits run after the protective pass, against
	// whatever position is still open.
	if e.adviser != nil && !pos.IsFlat() {
		if ex := e.adviser.ExitAdvice(pos, bar); ex != nil {
			metrics.ExitsTotal.WithLabelValues(ex.Reason).Inc()
			e.closePosition(ctx, ex.Reason, bar.Close, ex.Ts)
			pos = e.rec.Local()
		}
	}

	if sig == nil {
		return
	}
	metrics.SignalsTotal.WithLabelValues(e.strat.Name(), string(sig.Direction)).Inc()

	if e.rec.Frozen(time.Now().UTC()) {
		metrics.SkipsTotal.WithLabelValues("frozen").Inc()
		e.emit(Event{Kind: EventSkip, Reason: "frozen", Direction: sig.Direction, At: bar.End})
		e.log.Warn().Str("direction", string(sig.Direction)).Msg("signal dropped, trading frozen")
		return
	}

	verdict := e.gate.Admit(sig, snap, pos, bar.End)
	if !verdict.Admit {
		metrics.SkipsTotal.WithLabelValues(verdict.Reason).Inc()
		e.emit(Event{Kind: EventSkip, Reason: verdict.Reason, Direction: sig.Direction, At: bar.End})
		return
	}

	if verdict.Flip {
		if !e.closePosition(ctx, "flip", sig.Price, sig.Ts) {
			return
		}
		e.gate.RecordFlip(sig.Ts)
		metrics.FlipsTotal.Inc()
	}

	e.openPosition(ctx, sig)
}

func (e *Engine) openPosition(ctx context.Context, sig *signal.Signal) {
	order := execution.Order{
		Symbol: e.opts.Symbol,
		Qty:    e.opts.Risk.MaxPositionSize,
		Price:  sig.Price,
		Ts:     sig.Ts,
	}

	e.rec.MarkPending()
	var err error
	if sig.Direction == signal.Long {
		err = e.exec.EnterLong(ctx, order)
	} else {
		err = e.exec.EnterShort(ctx, order)
	}
	if err != nil {
		if errors.Is(err, execution.ErrInsufficientBalance) {
			e.log.Warn().Str("direction", string(sig.Direction)).Msg("entry skipped, insufficient balance")
			return
		}
		// Unrecognized execution failures abort this bar's signal
		// application.
		e.log.Error().Err(err).Str("direction", string(sig.Direction)).Msg("entry failed")
		return
	}

	pos := position.Position{
		Side:       position.FromDirection(sig.Direction),
		Size:       order.Qty,
		EntryPrice: sig.Price,
		OpenedAt:   sig.Ts,
	}
	e.rec.SetLocal(pos)
	e.protect.Reset()
	metrics.PositionSize.Set(pos.Size)
	e.persist()

	e.emit(Event{Kind: EventSignal, Reason: sig.Reason, Direction: sig.Direction, Position: pos, At: sig.Ts})
	e.emit(Event{Kind: EventPosition, Reason: sig.Reason, Direction: sig.Direction, Position: pos, At: sig.Ts})
	e.log.Info().
		Str("direction", string(sig.Direction)).
		Str("reason", sig.Reason).
		Float64("entry", sig.Price).
		Msg("position opened")
}

// closePosition hands a close to the executor. A reduce-only rejection
// means the venue is already flat, so the local view goes flat instead of
// surfacing an error.
func (e *Engine) closePosition(ctx context.Context, reason string, price float64, ts time.Time) bool {
	pos := e.rec.Local()
	if pos.IsFlat() {
		return true
	}

	err := e.exec.ClosePosition(ctx, reason, execution.CloseMeta{Price: price, Ts: ts})
	if err != nil && !errors.Is(err, execution.ErrReduceOnlyReject) {
		e.log.Error().Err(err).Str("reason", reason).Msg("close failed")
		return false
	}
	if errors.Is(err, execution.ErrReduceOnlyReject) {
		e.log.Warn().Str("reason", reason).Msg("close rejected as reduce-only, venue already flat")
	}

	pnl := (price - pos.EntryPrice) * pos.Size
	if pos.Side == position.Short {
		pnl = -pnl
	}
	e.gate.RecordClose(pnl, ts)
	e.rec.SetLocal(position.Position{Side: position.Flat})
	e.protect.Reset()
	metrics.PositionSize.Set(0)
	e.persist()

	e.emit(Event{Kind: EventPosition, Reason: reason, Position: e.rec.Local(), At: ts})
	e.log.Info().Str("reason", reason).Float64("exit", price).Float64("pnl", pnl).Msg("position closed")
	return true
}

// onPoll refreshes the authoritative view. Malformed or empty responses
// skip the cycle without touching state.
func (e *Engine) onPoll(ctx context.Context) {
	rep, err := e.poller.Report(ctx)
	if err != nil {
		e.log.Warn().Err(err).Msg("poll skipped")
		return
	}
	if len(rep.Balances) > 0 {
		if _, ok := rep.Balances[e.opts.QuoteAsset]; !ok {
			e.log.Warn().Str("asset", e.opts.QuoteAsset).Msg("quote asset missing from balance report, poll skipped")
			return
		}
	}

	outcome := e.rec.Apply(rep)
	if outcome == position.OutcomeMismatch {
		metrics.ReconcileFailures.Inc()
	}
	if !e.rec.Frozen(time.Now().UTC()) {
		metrics.FrozenGauge.Set(0)
	}
	metrics.PositionSize.Set(e.rec.Local().Size)
}

func (e *Engine) persist() {
	if e.store == nil {
		return
	}
	snap := state.Snapshot{Position: e.rec.Local(), LastBarCloseTime: e.lastBarClose}
	if err := e.store.Save(snap); err != nil {
		e.log.Warn().Err(err).Msg("state save failed")
	}
}
