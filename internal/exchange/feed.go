// Package exchange hosts the connectors for market data and the
// authoritative position/balance poll.
package exchange

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/metrics"
	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/signal"
)

const (
	// ProviderStub emits deterministic synthetic ticks (useful for tests
	// and offline work).
	ProviderStub = "stub"
	// ProviderAster streams live trades from the AsterDEX futures
	// websocket (Binance-compatible stream format).
	ProviderAster = "aster"
)

const defaultStreamBase = "wss://fstream.asterdex.com"

// Feed represents a pluggable tick stream implementation. It pushes ticks
// in approximately chronological order and reconnects on its own; the bar
// aggregator downstream tolerates the resulting gaps.
type Feed struct {
	provider   string
	symbol     string
	log        zerolog.Logger
	streamBase string
	stubPeriod time.Duration
}

// Option configures Feed construction parameters.
type Option func(*Feed)

// WithStreamBase overrides the websocket base URL (testnet, alternate
// deployments).
func WithStreamBase(base string) Option {
	return func(f *Feed) {
		if base != "" {
			f.streamBase = strings.TrimSuffix(base, "/")
		}
	}
}

// WithStubPeriod overrides the synthetic tick cadence.
func WithStubPeriod(d time.Duration) Option {
	return func(f *Feed) {
		if d > 0 {
			f.stubPeriod = d
		}
	}
}

// NewFeed constructs a feed backed by the requested provider.
func NewFeed(provider, symbol string, log zerolog.Logger, opts ...Option) *Feed {
	if provider == "" {
		provider = ProviderStub
	}
	f := &Feed{
		provider:   strings.ToLower(provider),
		symbol:     strings.ToUpper(strings.TrimSpace(symbol)),
		log:        log,
		streamBase: defaultStreamBase,
		stubPeriod: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Symbol returns the tracked instrument.
func (f *Feed) Symbol() string { return f.symbol }

// Run pushes ticks onto the provided channel until the context is
// canceled.
func (f *Feed) Run(ctx context.Context, out chan<- signal.Tick) error {
	switch f.provider {
	case ProviderAster:
		return f.runAster(ctx, out)
	default:
		return f.runStub(ctx, out)
	}
}

// runStub walks a slow sine around a base price so every downstream stage
// sees both rising and falling tape.
func (f *Feed) runStub(ctx context.Context, out chan<- signal.Tick) error {
	ticker := time.NewTicker(f.stubPeriod)
	defer ticker.Stop()

	const base = 100.0
	i := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ts := <-ticker.C:
			i++
			px := base + 5*math.Sin(float64(i)/40) + 0.2*math.Sin(float64(i)/3)
			tick := signal.Tick{Symbol: f.symbol, Price: px, Size: 1, Ts: ts}
			select {
			case out <- tick:
				metrics.TicksTotal.WithLabelValues(f.symbol).Inc()
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
