// Package mt5 talks to a local HTTP bridge sidecar fronting a MetaTrader 5
// terminal. MT5 exposes no native Go API, so the bridge translates plain
// JSON endpoints into terminal calls (candles, ticks, order_send, positions,
// deal history, account info).
package mt5

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"mt5-breakout-bot/internal/interfaces"
	"mt5-breakout-bot/internal/logger"
	"mt5-breakout-bot/internal/types"
)

// retcodeDone is MT5's TRADE_RETCODE_DONE.
const retcodeDone = 10009

type Params struct {
	Mode            string // DRY_RUN simulates order submission locally
	BridgeURL       string
	Timeout         time.Duration
	RatePerSecond   float64
	Magic           int
	DeviationPoints int
	UseTickStream   bool
	TickStale       time.Duration
}

type Client struct {
	p       Params
	base    string
	hc      *http.Client
	limiter *rate.Limiter
	stream  *tickStream

	// DRY_RUN keeps simulated fills here so OpenPositions and ModifyStops
	// reflect them. Without this a simulated position would vanish from the
	// live view one cycle after the fill and be reconciled as an unknown
	// close.
	simTicket atomic.Int64
	simMu     sync.Mutex
	simOpen   map[int64]types.VenuePosition
}

var _ interfaces.Venue = (*Client)(nil)

func New(p Params) *Client {
	base := strings.TrimRight(strings.TrimSpace(p.BridgeURL), "/")
	if base == "" {
		base = "http://127.0.0.1:8787"
	}
	if p.Timeout <= 0 {
		p.Timeout = 15 * time.Second
	}
	if p.RatePerSecond <= 0 {
		p.RatePerSecond = 5
	}
	c := &Client{
		p:       p,
		base:    base,
		hc:      &http.Client{Timeout: p.Timeout},
		limiter: rate.NewLimiter(rate.Limit(p.RatePerSecond), int(p.RatePerSecond)+1),
		simOpen: map[int64]types.VenuePosition{},
	}
	c.simTicket.Store(time.Now().Unix() * 1000)
	if p.UseTickStream {
		c.stream = newTickStream(base, p.TickStale)
	}
	return c
}

// Start verifies the bridge session. Per the error model this is the only
// failure treated as fatal by the caller.
func (c *Client) Start(ctx context.Context, symbols []string) error {
	if _, err := c.AccountEquity(ctx); err != nil {
		return fmt.Errorf("venue session: %w", err)
	}
	if c.stream != nil {
		c.stream.start(ctx, symbols)
	}
	return nil
}

func (c *Client) Stop(ctx context.Context) {
	if c.stream != nil {
		c.stream.stop()
	}
}

func (c *Client) Candles(ctx context.Context, symbol, timeframe string, count int) ([]types.Candle, error) {
	u := fmt.Sprintf("%s/candles?symbol=%s&timeframe=%s&count=%d",
		c.base, url.QueryEscape(symbol), url.QueryEscape(timeframe), count)
	var out struct {
		Candles []struct {
			Time   int64   `json:"time"`
			Open   float64 `json:"open"`
			High   float64 `json:"high"`
			Low    float64 `json:"low"`
			Close  float64 `json:"close"`
			Volume float64 `json:"volume"`
		} `json:"candles"`
	}
	if err := c.getJSON(ctx, u, &out); err != nil {
		return nil, err
	}
	cs := make([]types.Candle, 0, len(out.Candles))
	for _, b := range out.Candles {
		cs = append(cs, types.Candle{Ts: b.Time, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Vol: b.Volume})
	}
	return cs, nil
}

func (c *Client) Tick(ctx context.Context, symbol string) (types.Tick, error) {
	if c.stream != nil {
		if t, ok := c.stream.last(symbol); ok {
			return t, nil
		}
	}
	u := fmt.Sprintf("%s/tick?symbol=%s", c.base, url.QueryEscape(symbol))
	var out struct {
		Bid  float64 `json:"bid"`
		Ask  float64 `json:"ask"`
		Time int64   `json:"time"`
	}
	if err := c.getJSON(ctx, u, &out); err != nil {
		return types.Tick{}, err
	}
	if out.Bid <= 0 && out.Ask <= 0 {
		return types.Tick{}, fmt.Errorf("no tick for %s", symbol)
	}
	return types.Tick{Bid: out.Bid, Ask: out.Ask, Ts: out.Time}, nil
}

func (c *Client) SymbolSpec(ctx context.Context, symbol string) (types.SymbolSpec, error) {
	u := fmt.Sprintf("%s/symbol?symbol=%s", c.base, url.QueryEscape(symbol))
	var out struct {
		Point        float64 `json:"point"`
		Digits       int     `json:"digits"`
		ContractSize float64 `json:"contract_size"`
		VolumeMin    float64 `json:"volume_min"`
		VolumeMax    float64 `json:"volume_max"`
		VolumeStep   float64 `json:"volume_step"`
		StopsLevel   int     `json:"stops_level"`
	}
	if err := c.getJSON(ctx, u, &out); err != nil {
		return types.SymbolSpec{}, err
	}
	return types.SymbolSpec{
		Point:        out.Point,
		Digits:       out.Digits,
		ContractSize: out.ContractSize,
		VolumeMin:    out.VolumeMin,
		VolumeMax:    out.VolumeMax,
		VolumeStep:   out.VolumeStep,
		StopsLevel:   out.StopsLevel,
	}, nil
}

func (c *Client) SubmitOrder(ctx context.Context, req types.OrderReq) (types.OrderResult, error) {
	if c.p.Mode == "DRY_RUN" {
		ticket := c.simTicket.Add(1)
		c.simMu.Lock()
		c.simOpen[ticket] = types.VenuePosition{
			Ticket:     ticket,
			Symbol:     req.Symbol,
			Direction:  req.Direction,
			EntryPrice: req.Price,
			SL:         req.SL,
			TP:         req.TP,
			Volume:     req.Volume,
		}
		c.simMu.Unlock()
		logger.Info(ctx, "DRY_RUN order simulated",
			"symbol", req.Symbol, "direction", string(req.Direction),
			"volume", req.Volume, "price", req.Price, "ticket", ticket)
		return types.OrderResult{Ticket: ticket, ExecutedPrice: req.Price, Retcode: retcodeDone}, nil
	}

	body := map[string]any{
		"symbol":    req.Symbol,
		"type":      orderType(req.Direction),
		"volume":    req.Volume,
		"price":     req.Price,
		"sl":        req.SL,
		"tp":        req.TP,
		"deviation": c.p.DeviationPoints,
		"magic":     c.p.Magic,
		"comment":   req.Comment,
		"filling":   "FOK",
	}
	var out struct {
		Retcode int     `json:"retcode"`
		Ticket  int64   `json:"ticket"`
		Price   float64 `json:"price"`
		Comment string  `json:"comment"`
	}
	if err := c.postJSON(ctx, c.base+"/order", body, &out); err != nil {
		return types.OrderResult{}, err
	}
	res := types.OrderResult{Ticket: out.Ticket, ExecutedPrice: out.Price, Retcode: out.Retcode, Comment: out.Comment}
	if out.Retcode != retcodeDone {
		return res, fmt.Errorf("order rejected: retcode %d %s", out.Retcode, out.Comment)
	}
	return res, nil
}

func (c *Client) ModifyStops(ctx context.Context, ticket int64, symbol string, sl, tp float64) error {
	if c.p.Mode == "DRY_RUN" {
		c.simMu.Lock()
		if p, ok := c.simOpen[ticket]; ok {
			p.SL, p.TP = sl, tp
			c.simOpen[ticket] = p
		}
		c.simMu.Unlock()
		logger.Info(ctx, "DRY_RUN stop modify simulated", "ticket", ticket, "sl", sl, "tp", tp)
		return nil
	}
	body := map[string]any{
		"ticket": ticket,
		"symbol": symbol,
		"sl":     sl,
		"tp":     tp,
		"magic":  c.p.Magic,
	}
	var out struct {
		Retcode int    `json:"retcode"`
		Comment string `json:"comment"`
	}
	if err := c.postJSON(ctx, c.base+"/position/modify", body, &out); err != nil {
		return err
	}
	if out.Retcode != retcodeDone {
		return fmt.Errorf("modify rejected: retcode %d %s", out.Retcode, out.Comment)
	}
	return nil
}

func (c *Client) OpenPositions(ctx context.Context) ([]types.VenuePosition, error) {
	if c.p.Mode == "DRY_RUN" {
		c.simMu.Lock()
		defer c.simMu.Unlock()
		ps := make([]types.VenuePosition, 0, len(c.simOpen))
		for _, p := range c.simOpen {
			ps = append(ps, p)
		}
		return ps, nil
	}

	var out struct {
		Positions []struct {
			Ticket    int64   `json:"ticket"`
			Symbol    string  `json:"symbol"`
			Type      string  `json:"type"` // "BUY" or "SELL"
			PriceOpen float64 `json:"price_open"`
			SL        float64 `json:"sl"`
			TP        float64 `json:"tp"`
			Volume    float64 `json:"volume"`
		} `json:"positions"`
	}
	if err := c.getJSON(ctx, c.base+"/positions", &out); err != nil {
		return nil, err
	}
	ps := make([]types.VenuePosition, 0, len(out.Positions))
	for _, p := range out.Positions {
		dir := types.Long
		if p.Type == "SELL" {
			dir = types.Short
		}
		ps = append(ps, types.VenuePosition{
			Ticket:     p.Ticket,
			Symbol:     p.Symbol,
			Direction:  dir,
			EntryPrice: p.PriceOpen,
			SL:         p.SL,
			TP:         p.TP,
			Volume:     p.Volume,
		})
	}
	return ps, nil
}

func (c *Client) TradeHistory(ctx context.Context, from, to time.Time) ([]types.Deal, error) {
	// Simulated positions never close on their own, so DRY_RUN history is
	// always empty.
	if c.p.Mode == "DRY_RUN" {
		return nil, nil
	}

	u := fmt.Sprintf("%s/history?from=%d&to=%d", c.base, from.Unix(), to.Unix())
	var out struct {
		Deals []struct {
			PositionID int64   `json:"position_id"`
			Symbol     string  `json:"symbol"`
			Entry      int     `json:"entry"` // MT5 DEAL_ENTRY_*: 1 = out
			Price      float64 `json:"price"`
			Profit     float64 `json:"profit"`
			Volume     float64 `json:"volume"`
			Time       int64   `json:"time"`
		} `json:"deals"`
	}
	if err := c.getJSON(ctx, u, &out); err != nil {
		return nil, err
	}
	ds := make([]types.Deal, 0, len(out.Deals))
	for _, d := range out.Deals {
		ds = append(ds, types.Deal{
			PositionTicket: d.PositionID,
			Symbol:         d.Symbol,
			IsExit:         d.Entry == 1,
			Price:          d.Price,
			Profit:         d.Profit,
			Volume:         d.Volume,
			Ts:             d.Time,
		})
	}
	return ds, nil
}

func (c *Client) AccountEquity(ctx context.Context) (float64, error) {
	var out struct {
		Equity  float64 `json:"equity"`
		Balance float64 `json:"balance"`
	}
	if err := c.getJSON(ctx, c.base+"/account", &out); err != nil {
		return 0, err
	}
	return out.Equity, nil
}

func orderType(d types.Direction) string {
	if d == types.Short {
		return "SELL"
	}
	return "BUY"
}

func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("new request: %w (url=%s)", err, u)
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, u string, body any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("new request: %w (url=%s)", err, u)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("User-Agent", "breakoutbot/bridge")
	req.Header.Set("X-Request-Id", uuid.NewString())

	res, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		b, _ := io.ReadAll(res.Body)
		return fmt.Errorf("bridge %s: %d: %s", req.URL.Path, res.StatusCode, strings.TrimSpace(string(b)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}
