package interfaces

import (
	"context"
	"time"

	"mt5-breakout-bot/internal/types"
)

// Venue is the execution venue contract: market data, order submission and
// the authoritative trade history used for reconciliation.
type Venue interface {
	Candles(ctx context.Context, symbol, timeframe string, count int) ([]types.Candle, error)
	Tick(ctx context.Context, symbol string) (types.Tick, error)
	SymbolSpec(ctx context.Context, symbol string) (types.SymbolSpec, error)
	SubmitOrder(ctx context.Context, req types.OrderReq) (types.OrderResult, error)
	ModifyStops(ctx context.Context, ticket int64, symbol string, sl, tp float64) error
	OpenPositions(ctx context.Context) ([]types.VenuePosition, error)
	TradeHistory(ctx context.Context, from, to time.Time) ([]types.Deal, error)
	AccountEquity(ctx context.Context) (float64, error)
	Start(ctx context.Context, symbols []string) error
	Stop(ctx context.Context)
}
