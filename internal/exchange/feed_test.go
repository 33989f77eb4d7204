package exchange

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/signal"
)

func TestStubFeedEmitsTicks(t *testing.T) {
	f := NewFeed(ProviderStub, "btcusdt", zerolog.Nop(), WithStubPeriod(time.Millisecond))
	if f.Symbol() != "BTCUSDT" {
		t.Fatalf("symbol = %q, want upper-cased BTCUSDT", f.Symbol())
	}

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan signal.Tick, 64)
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx, out) }()

	var ticks []signal.Tick
	deadline := time.After(2 * time.Second)
	for len(ticks) < 5 {
		select {
		case tk := <-out:
			ticks = append(ticks, tk)
		case <-deadline:
			t.Fatalf("collected only %d ticks before deadline", len(ticks))
		}
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("feed returned %v, want context.Canceled", err)
	}

	for i, tk := range ticks {
		if tk.Symbol != "BTCUSDT" || tk.Price <= 0 || tk.Ts.IsZero() {
			t.Fatalf("tick %d malformed: %+v", i, tk)
		}
	}
	for i := 1; i < len(ticks); i++ {
		if ticks[i].Ts.Before(ticks[i-1].Ts) {
			t.Fatalf("ticks out of order: %v then %v", ticks[i-1].Ts, ticks[i].Ts)
		}
	}
}

func TestNewFeedDefaultsToStub(t *testing.T) {
	f := NewFeed("", "ethusdt", zerolog.Nop())
	if f.provider != ProviderStub {
		t.Fatalf("provider = %q, want %q", f.provider, ProviderStub)
	}
	if f.streamBase != defaultStreamBase {
		t.Fatalf("stream base = %q, want default", f.streamBase)
	}
}

func TestWithStreamBaseTrimsSlash(t *testing.T) {
	f := NewFeed(ProviderAster, "btcusdt", zerolog.Nop(), WithStreamBase("wss://example.test/"))
	if f.streamBase != "wss://example.test" {
		t.Fatalf("stream base = %q", f.streamBase)
	}
}

func TestParseStreamSymbol(t *testing.T) {
	cases := []struct {
		stream, fallback, want string
	}{
		{"btcusdt@aggTrade", "ETHUSDT", "BTCUSDT"},
		{"ethusdt@trade", "BTCUSDT", "ETHUSDT"},
		{"", "BTCUSDT", "BTCUSDT"},
		{"@aggTrade", "SOLUSDT", "SOLUSDT"},
	}
	for _, c := range cases {
		if got := parseStreamSymbol(c.stream, c.fallback); got != c.want {
			t.Fatalf("parseStreamSymbol(%q) = %q, want %q", c.stream, got, c.want)
		}
	}
}
