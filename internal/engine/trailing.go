package engine

import (
	"context"
	"fmt"
	"math"

	"mt5-breakout-bot/internal/interfaces"
	"mt5-breakout-bot/internal/logger"
	"mt5-breakout-bot/internal/types"
)

// trailingManager ratchets the stop of profitable open positions. Once the
// floating gain reaches distance × triggerRR the stop follows the price at
// a fixed gap, and it only ever tightens.
type trailingManager struct {
	venue     interfaces.Venue
	notifier  interfaces.Notifier
	enabled   bool
	distance  float64
	triggerRR float64
}

func newTrailingManager(venue interfaces.Venue, notifier interfaces.Notifier, enabled bool, distance, triggerRR float64) *trailingManager {
	return &trailingManager{
		venue:     venue,
		notifier:  notifier,
		enabled:   enabled,
		distance:  distance,
		triggerRR: triggerRR,
	}
}

func (tm *trailingManager) run(ctx context.Context, live []types.VenuePosition, st *dayState) {
	if !tm.enabled || tm.distance <= 0 {
		return
	}

	for _, vp := range live {
		pos, tracked := st.positions[vp.Ticket]
		if !tracked {
			continue
		}

		tick, err := tm.venue.Tick(ctx, vp.Symbol)
		if err != nil {
			logger.Debug(ctx, "Trailing skipped, no tick", "symbol", vp.Symbol, "error", err)
			continue
		}

		newSL, ok := tm.nextStop(vp, tick)
		if !ok {
			continue
		}

		if err := tm.venue.ModifyStops(ctx, vp.Ticket, vp.Symbol, newSL, vp.TP); err != nil {
			logger.Warn(ctx, "Trailing stop update failed",
				"ticket", vp.Ticket, "symbol", vp.Symbol, "sl", newSL, "error", err)
			continue
		}

		pos.SL = newSL
		tm.notifier.Notify(ctx, fmt.Sprintf("🔁 SL updated for %s (%s): new SL = %v",
			vp.Symbol, vp.Direction, newSL))
		logger.Info(ctx, "Trailing stop advanced",
			"ticket", vp.Ticket, "symbol", vp.Symbol, "old_sl", vp.SL, "new_sl", newSL)
	}
}

// nextStop returns the tightened stop for a position, or ok=false when the
// trail is not armed or would not improve the current stop.
func (tm *trailingManager) nextStop(vp types.VenuePosition, tick types.Tick) (float64, bool) {
	arm := tm.distance * tm.triggerRR

	if vp.Direction == types.Long {
		price := tick.Bid
		if price-vp.EntryPrice < arm {
			return 0, false
		}
		candidate := price - tm.distance
		if vp.SL != 0 {
			candidate = math.Max(vp.SL, candidate)
		}
		if vp.SL != 0 && candidate <= vp.SL {
			return 0, false
		}
		return candidate, true
	}

	price := tick.Ask
	if vp.EntryPrice-price < arm {
		return 0, false
	}
	candidate := price + tm.distance
	if vp.SL != 0 {
		candidate = math.Min(vp.SL, candidate)
	}
	if vp.SL != 0 && candidate >= vp.SL {
		return 0, false
	}
	return candidate, true
}
