package mt5

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"mt5-breakout-bot/internal/logger"
	"mt5-breakout-bot/internal/types"
)

// tickStream keeps a last-tick cache fed by the bridge's websocket feed.
// Tick() serves from the cache while the entry is fresh, which keeps the
// monitor loop off the REST endpoint during tight polling.
type tickStream struct {
	base  string
	stale time.Duration

	mu    sync.RWMutex
	ticks map[string]cachedTick

	cancel context.CancelFunc
	done   chan struct{}
}

type cachedTick struct {
	tick types.Tick
	at   time.Time
}

type wireTick struct {
	Symbol string  `json:"symbol"`
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
	Time   int64   `json:"time"`
}

func newTickStream(base string, stale time.Duration) *tickStream {
	if stale <= 0 {
		stale = 1500 * time.Millisecond
	}
	return &tickStream{
		base:  base,
		stale: stale,
		ticks: make(map[string]cachedTick),
	}
}

func (ts *tickStream) start(ctx context.Context, symbols []string) {
	ctx, cancel := context.WithCancel(ctx)
	ts.cancel = cancel
	ts.done = make(chan struct{})
	go ts.run(ctx, symbols)
}

func (ts *tickStream) stop() {
	if ts.cancel != nil {
		ts.cancel()
		<-ts.done
	}
}

func (ts *tickStream) run(ctx context.Context, symbols []string) {
	defer close(ts.done)

	wsURL := strings.Replace(ts.base, "http", "ws", 1) +
		"/ws/ticks?symbols=" + url.QueryEscape(strings.Join(symbols, ","))

	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
		if err != nil {
			logger.Warn(ctx, "tick stream dial failed, falling back to REST ticks",
				"url", wsURL, "error", err, "retry_in", backoff.String())
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second
		logger.Info(ctx, "tick stream connected", "symbols", symbols)

		ts.readLoop(ctx, conn)
		_ = conn.Close()
	}
}

func (ts *tickStream) readLoop(ctx context.Context, conn *websocket.Conn) {
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				logger.Warn(ctx, "tick stream read failed, reconnecting", "error", err)
			}
			return
		}
		var wt wireTick
		if err := json.Unmarshal(msg, &wt); err != nil || wt.Symbol == "" {
			continue
		}
		ts.mu.Lock()
		ts.ticks[wt.Symbol] = cachedTick{
			tick: types.Tick{Bid: wt.Bid, Ask: wt.Ask, Ts: wt.Time},
			at:   time.Now(),
		}
		ts.mu.Unlock()
	}
}

// last returns the cached tick for symbol if it is still fresh.
func (ts *tickStream) last(symbol string) (types.Tick, bool) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	ct, ok := ts.ticks[symbol]
	if !ok || time.Since(ct.at) > ts.stale {
		return types.Tick{}, false
	}
	return ct.tick, true
}
