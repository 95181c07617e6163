package engine

import (
	"context"
	"errors"
	"time"

	"mt5-breakout-bot/internal/interfaces"
	"mt5-breakout-bot/internal/logger"
)

// errCandleNotFound means the anchor candle is not (yet) in the venue's
// series. The detector is simply retried on the next cycle while the eval
// phase is active, then the phase closes without a trade.
var errCandleNotFound = errors.New("trap candle not found")

// trapDetector reads the high/low of the fixed-interval candle that opens
// exactly at the phase anchor time.
type trapDetector struct {
	venue       interfaces.Venue
	timeframe   string
	candleCount int
}

func newTrapDetector(venue interfaces.Venue, timeframe string) *trapDetector {
	return &trapDetector{venue: venue, timeframe: timeframe, candleCount: 96}
}

func (td *trapDetector) detect(ctx context.Context, symbol, phase string, anchor time.Time) (*TrapLevel, error) {
	candles, err := td.venue.Candles(ctx, symbol, td.timeframe, td.candleCount)
	if err != nil {
		return nil, err
	}

	// Exact open-time match only. A gap in the series must not be papered
	// over with a neighbouring candle.
	target := anchor.Unix()
	for i := len(candles) - 1; i >= 0; i-- {
		c := candles[i]
		if c.Ts == target {
			tl := &TrapLevel{
				Symbol:     symbol,
				Phase:      phase,
				High:       c.High,
				Low:        c.Low,
				CandleTs:   c.Ts,
				DetectedAt: time.Now(),
			}
			logger.Info(ctx, "Trap range detected",
				"symbol", symbol, "phase", phase,
				"high", tl.High, "low", tl.Low, "candle_time", anchor.Format("15:04"))
			return tl, nil
		}
		if c.Ts < target {
			break
		}
	}
	return nil, errCandleNotFound
}
