package venueobs

import (
	"context"
	"fmt"
	"time"

	"mt5-breakout-bot/internal/interfaces"
	"mt5-breakout-bot/internal/logger"
	"mt5-breakout-bot/internal/trace"
	"mt5-breakout-bot/internal/types"
)

// observableVenue wraps a Venue with logging and tracing.
type observableVenue struct {
	venue interfaces.Venue
}

var _ interfaces.Venue = (*observableVenue)(nil)

// Wrap wraps a venue with observability middleware.
func Wrap(venue interfaces.Venue) interfaces.Venue {
	return &observableVenue{venue: venue}
}

func (ov *observableVenue) Candles(ctx context.Context, symbol, timeframe string, count int) ([]types.Candle, error) {
	ctx, span := trace.StartSpan(ctx, "venue.Candles")
	defer span.End()

	cs, err := ov.venue.Candles(ctx, symbol, timeframe, count)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch candles", err, "symbol", symbol, "timeframe", timeframe, "count", count)
		return nil, err
	}
	logger.DebugSkip(ctx, 1, "Candles fetched", "symbol", symbol, "count", len(cs))
	return cs, nil
}

func (ov *observableVenue) Tick(ctx context.Context, symbol string) (types.Tick, error) {
	ctx, span := trace.StartSpan(ctx, "venue.Tick")
	defer span.End()

	t, err := ov.venue.Tick(ctx, symbol)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch tick", err, "symbol", symbol)
		return types.Tick{}, err
	}
	logger.DebugSkip(ctx, 1, "Tick fetched", "symbol", symbol, "bid", t.Bid, "ask", t.Ask)
	return t, nil
}

func (ov *observableVenue) SymbolSpec(ctx context.Context, symbol string) (types.SymbolSpec, error) {
	ctx, span := trace.StartSpan(ctx, "venue.SymbolSpec")
	defer span.End()

	s, err := ov.venue.SymbolSpec(ctx, symbol)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch symbol spec", err, "symbol", symbol)
		return types.SymbolSpec{}, err
	}
	return s, nil
}

func (ov *observableVenue) SubmitOrder(ctx context.Context, req types.OrderReq) (types.OrderResult, error) {
	ctx, span := trace.StartSpan(ctx, "venue.SubmitOrder")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Submitting order",
		"symbol", req.Symbol,
		"direction", string(req.Direction),
		"volume", req.Volume,
		"price", req.Price,
		"sl", req.SL,
		"tp", req.TP,
	)

	res, err := ov.venue.SubmitOrder(ctx, req)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Order submission failed", err,
			"symbol", req.Symbol, "direction", string(req.Direction), "volume", req.Volume)
		return res, err
	}

	logger.InfoSkip(ctx, 1, "Order filled",
		"symbol", req.Symbol,
		"ticket", res.Ticket,
		"executed_price", res.ExecutedPrice,
	)
	return res, nil
}

func (ov *observableVenue) ModifyStops(ctx context.Context, ticket int64, symbol string, sl, tp float64) error {
	ctx, span := trace.StartSpan(ctx, "venue.ModifyStops")
	defer span.End()

	err := ov.venue.ModifyStops(ctx, ticket, symbol, sl, tp)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to modify stops", err, "ticket", ticket, "sl", sl, "tp", tp)
		return err
	}
	logger.InfoSkip(ctx, 1, "Stops modified", "ticket", ticket, "sl", sl, "tp", tp)
	return nil
}

func (ov *observableVenue) OpenPositions(ctx context.Context) ([]types.VenuePosition, error) {
	ctx, span := trace.StartSpan(ctx, "venue.OpenPositions")
	defer span.End()

	ps, err := ov.venue.OpenPositions(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch open positions", err)
		return nil, err
	}
	logger.DebugSkip(ctx, 1, "Open positions fetched", "count", len(ps))
	return ps, nil
}

func (ov *observableVenue) TradeHistory(ctx context.Context, from, to time.Time) ([]types.Deal, error) {
	ctx, span := trace.StartSpan(ctx, "venue.TradeHistory")
	defer span.End()

	ds, err := ov.venue.TradeHistory(ctx, from, to)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch trade history", err, "from", from, "to", to)
		return nil, err
	}
	logger.DebugSkip(ctx, 1, "Trade history fetched", "count", len(ds))
	return ds, nil
}

func (ov *observableVenue) AccountEquity(ctx context.Context) (float64, error) {
	ctx, span := trace.StartSpan(ctx, "venue.AccountEquity")
	defer span.End()

	eq, err := ov.venue.AccountEquity(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch account equity", err)
		return 0, err
	}
	logger.DebugSkip(ctx, 1, "Account equity fetched", "equity", eq)
	return eq, nil
}

func (ov *observableVenue) Start(ctx context.Context, symbols []string) error {
	ctx, span := trace.StartSpan(ctx, "venue.Start")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Starting venue session", "symbols", symbols)
	if err := ov.venue.Start(ctx, symbols); err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to start venue session", err)
		return fmt.Errorf("venue start failed: %w", err)
	}
	logger.InfoSkip(ctx, 1, "Venue session established")
	return nil
}

func (ov *observableVenue) Stop(ctx context.Context) {
	ctx, span := trace.StartSpan(ctx, "venue.Stop")
	defer span.End()

	ov.venue.Stop(ctx)
	logger.InfoSkip(ctx, 1, "Venue session stopped")
}
