// Binary trader runs the live bot loop: websocket ticks in, paper or live
// execution out, metrics on the side.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	ossignal "os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/config"
	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/engine"
	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/exchange"
	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/execution"
	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/metrics"
	sig "github.com/Mist-kail/AsterDEX-trading-watermellon/internal/signal"
	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/state"
	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/strategy"
	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/util"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config")
	flag.Parse()

	// .env is optional; real deployments set the variables directly.
	_ = godotenv.Load()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		bootLog := util.NewLogger("info")
		bootLog.Fatal().Err(err).Msg("load config")
	}
	log := util.NewLogger(cfg.App.LogLevel)

	_ = metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	feed := exchange.NewFeed(cfg.Exchange.Provider, cfg.Exchange.Symbol, log,
		exchange.WithStreamBase(cfg.Exchange.StreamBase))
	ticks := make(chan sig.Tick, 1024)
	go func() {
		if err := feed.Run(ctx, ticks); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("feed stopped")
		}
		cancel()
	}()

	var recorder execution.FillRecorder
	if cfg.Paper.FillsPath != "" {
		jsonl, err := execution.NewJSONLRecorder(cfg.Paper.FillsPath)
		if err != nil {
			log.Fatal().Err(err).Msg("open fills recorder")
		}
		defer jsonl.Close()
		recorder = jsonl
	}
	venue := execution.NewPaper(log, cfg.Paper.StartingCash, cfg.Risk.Leverage, cfg.Paper.QtyStep, recorder)

	// The paper venue doubles as the authoritative poller; a live
	// deployment swaps in the REST poller against real credentials.
	var poller exchange.Poller = venue
	if cfg.Exchange.APIKey != "" && cfg.Exchange.APISecret != "" {
		poller = exchange.NewRESTPoller(cfg.Exchange.RESTBase, cfg.Exchange.Symbol,
			cfg.Exchange.APIKey, cfg.Exchange.APISecret, log)
	}

	strat := strategy.Build(cfg.Strategy.Mode, cfg.Strategy.Trend, cfg.Strategy.Dual)
	store := state.NewStore(cfg.App.StatePath)

	eng := engine.New(engine.Options{
		Symbol:       cfg.Exchange.Symbol,
		Timeframe:    cfg.Engine.Timeframe(),
		PollInterval: cfg.Engine.PollInterval(),
		QuoteAsset:   cfg.Exchange.QuoteAsset,
		Risk:         cfg.Risk,
		Log:          log,
	}, strat, venue, poller, store)

	if snap, ok, err := store.Load(); err != nil {
		log.Warn().Err(err).Msg("state load failed, starting fresh")
	} else if ok {
		eng.Restore(snap)
	}

	eng.OnEvent(func(ev engine.Event) {
		switch ev.Kind {
		case engine.EventFreeze:
			log.Warn().Msg("trading frozen")
		case engine.EventPosition:
			log.Info().
				Str("side", string(ev.Position.Side)).
				Float64("size", ev.Position.Size).
				Str("reason", ev.Reason).
				Msg("position update")
		}
	})

	if err := eng.Run(ctx, ticks); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("engine exited")
	}

	stats := venue.Stats()
	log.Info().
		Int("trades", stats.Trades).
		Int("wins", stats.Wins).
		Int("losses", stats.Losses).
		Float64("realized_pnl", stats.RealizedPnL).
		Float64("profit_factor", stats.ProfitFactor).
		Msg("session summary")
}
