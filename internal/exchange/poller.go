package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Mist-kail/AsterDEX-trading-watermellon/internal/position"
)

// Poller serves the authoritative position and balance view on demand. The
// engine polls it on a fixed interval; a poll error means "skip this
// cycle", never corrupt state.
type Poller interface {
	Report(ctx context.Context) (position.Report, error)
}

const defaultRESTBase = "https://fapi.asterdex.com"

// RESTPoller polls the AsterDEX futures REST API (Binance-compatible
// endpoints) for the tracked symbol's position and the account balances.
type RESTPoller struct {
	base      string
	symbol    string
	apiKey    string
	apiSecret string
	client    *http.Client
	log       zerolog.Logger
}

// NewRESTPoller builds a live poller.
func NewRESTPoller(base, symbol, apiKey, apiSecret string, log zerolog.Logger) *RESTPoller {
	if base == "" {
		base = defaultRESTBase
	}
	return &RESTPoller{
		base:      strings.TrimSuffix(base, "/"),
		symbol:    strings.ToUpper(symbol),
		apiKey:    apiKey,
		apiSecret: apiSecret,
		client:    &http.Client{Timeout: 10 * time.Second},
		log:       log,
	}
}

type restPosition struct {
	Symbol           string `json:"symbol"`
	PositionAmt      string `json:"positionAmt"`
	EntryPrice       string `json:"entryPrice"`
	UnrealizedProfit string `json:"unRealizedProfit"`
}

type restBalance struct {
	Asset   string `json:"asset"`
	Balance string `json:"balance"`
}

// Report fetches position risk and balances. Empty or malformed responses
// surface as errors; the caller logs and skips the cycle.
func (p *RESTPoller) Report(ctx context.Context) (position.Report, error) {
	var positions []restPosition
	if err := p.signedGet(ctx, "/fapi/v2/positionRisk", url.Values{"symbol": {p.symbol}}, &positions); err != nil {
		return position.Report{}, fmt.Errorf("position risk: %w", err)
	}
	if len(positions) == 0 {
		return position.Report{}, fmt.Errorf("position risk: empty response for %s", p.symbol)
	}

	var balances []restBalance
	if err := p.signedGet(ctx, "/fapi/v2/balance", url.Values{}, &balances); err != nil {
		return position.Report{}, fmt.Errorf("balance: %w", err)
	}

	rep := position.Report{
		Balances: make(map[string]float64, len(balances)),
		At:       time.Now().UTC(),
	}
	for _, b := range balances {
		v, err := strconv.ParseFloat(b.Balance, 64)
		if err != nil {
			continue
		}
		rep.Balances[strings.ToUpper(b.Asset)] = v
	}

	pos := positions[0]
	amt, err := strconv.ParseFloat(pos.PositionAmt, 64)
	if err != nil {
		return position.Report{}, fmt.Errorf("malformed positionAmt %q", pos.PositionAmt)
	}
	entry, err := strconv.ParseFloat(pos.EntryPrice, 64)
	if err != nil {
		return position.Report{}, fmt.Errorf("malformed entryPrice %q", pos.EntryPrice)
	}
	upnl, err := strconv.ParseFloat(pos.UnrealizedProfit, 64)
	if err != nil {
		upnl = 0
	}

	rep.PositionAmt = amt
	rep.EntryPrice = entry
	rep.UnrealizedProfit = upnl
	return rep, nil
}

// signedGet performs a HMAC-SHA256 signed GET the way Binance-compatible
// futures APIs expect.
func (p *RESTPoller) signedGet(ctx context.Context, path string, query url.Values, out any) error {
	query.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	query.Set("recvWindow", "5000")

	mac := hmac.New(sha256.New, []byte(p.apiSecret))
	mac.Write([]byte(query.Encode()))
	query.Set("signature", hex.EncodeToString(mac.Sum(nil)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.base+path+"?"+query.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-MBX-APIKEY", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
