// Binary replay feeds recorded ticks from a CSV file through the full
// engine against the paper venue, printing what the live bot would have
// done. CSV rows are: unix_ms,price[,size].
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/config"
	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/engine"
	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/exchange"
	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/execution"
	sig "github.com/Mist-kail/AsterDEX-trading-watermellon/internal/signal"
	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/strategy"
	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/util"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config")
	ticksPath := flag.String("ticks", "", "CSV tick file (unix_ms,price[,size])")
	flag.Parse()

	log := util.NewConsoleLogger("info")
	if *ticksPath == "" {
		log.Fatal().Msg("-ticks is required")
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	log = util.NewConsoleLogger(cfg.App.LogLevel)

	venue := execution.NewPaper(log, cfg.Paper.StartingCash, cfg.Risk.Leverage, cfg.Paper.QtyStep, nil)
	strat := strategy.Build(cfg.Strategy.Mode, cfg.Strategy.Trend, cfg.Strategy.Dual)

	eng := engine.New(engine.Options{
		Symbol:       cfg.Exchange.Symbol,
		Timeframe:    cfg.Engine.Timeframe(),
		PollInterval: time.Hour, // replay reconciles once at most
		QuoteAsset:   cfg.Exchange.QuoteAsset,
		Risk:         cfg.Risk,
		Log:          log,
	}, strat, venue, exchange.Poller(venue), nil)

	eng.OnEvent(func(ev engine.Event) {
		switch ev.Kind {
		case engine.EventSignal:
			log.Info().Str("direction", string(ev.Direction)).Str("reason", ev.Reason).Msg("signal")
		case engine.EventPosition:
			log.Info().Str("side", string(ev.Position.Side)).Str("reason", ev.Reason).Msg("position")
		}
	})

	ticks := make(chan sig.Tick, 1024)
	go func() {
		defer close(ticks)
		if err := streamCSV(*ticksPath, cfg.Exchange.Symbol, ticks); err != nil {
			log.Error().Err(err).Msg("tick stream failed")
		}
		// Drain-and-stop: the engine exits when the channel closes.
	}()

	if err := eng.Run(context.Background(), ticks); err != nil {
		log.Error().Err(err).Msg("engine exited")
	}

	stats := venue.Stats()
	fmt.Printf("trades=%d wins=%d losses=%d pnl=%.4f pf=%.2f cash=%.2f\n",
		stats.Trades, stats.Wins, stats.Losses, stats.RealizedPnL, stats.ProfitFactor, venue.Cash())
}

func streamCSV(path, symbol string, out chan<- sig.Tick) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if len(rec) < 2 {
			continue
		}
		ms, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			continue // header row or junk
		}
		price, err := strconv.ParseFloat(rec[1], 64)
		if err != nil || price <= 0 {
			continue
		}
		size := 0.0
		if len(rec) > 2 {
			size, _ = strconv.ParseFloat(rec[2], 64)
		}
		out <- sig.Tick{
			Symbol: symbol,
			Price:  price,
			Size:   size,
			Ts:     time.UnixMilli(ms).UTC(),
		}
	}
}
