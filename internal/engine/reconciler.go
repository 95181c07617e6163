package engine

import (
	"context"
	"fmt"
	"time"

	"mt5-breakout-bot/internal/interfaces"
	"mt5-breakout-bot/internal/logger"
	"mt5-breakout-bot/internal/metrics"
	"mt5-breakout-bot/internal/types"
)

// reconciler resolves tracked positions that the venue no longer reports.
// Per-ticket lifecycle: OPEN -> (venue stops reporting) -> RECONCILING ->
// CLOSED. A ticket in the notified set is never processed again, which
// makes closure emission exactly-once regardless of polling frequency.
type reconciler struct {
	venue    interfaces.Venue
	ledger   interfaces.Ledger
	notifier interfaces.Notifier
	loc      *time.Location
}

func newReconciler(venue interfaces.Venue, ledger interfaces.Ledger, notifier interfaces.Notifier, loc *time.Location) *reconciler {
	return &reconciler{venue: venue, ledger: ledger, notifier: notifier, loc: loc}
}

func (r *reconciler) run(ctx context.Context, now time.Time, live []types.VenuePosition, st *dayState) {
	if len(st.positions) == 0 {
		return
	}

	liveSet := make(map[int64]bool, len(live))
	for _, vp := range live {
		liveSet[vp.Ticket] = true
	}

	var deals []types.Deal
	fetched := false

	for ticket, pos := range st.positions {
		if liveSet[ticket] {
			continue
		}
		if st.notified[ticket] {
			st.removePosition(ticket)
			continue
		}

		// RECONCILING: resolve against today's trade history, fetched at
		// most once per cycle.
		if !fetched {
			var err error
			deals, err = r.venue.TradeHistory(ctx, startOfDay(now, r.loc), now)
			if err != nil {
				// Ticket stays tracked; retried next cycle.
				logger.ErrorWithErr(ctx, "Trade history unavailable, reconciliation deferred", err)
				return
			}
			fetched = true
		}

		deal, found := findExitDeal(deals, ticket, pos.Symbol)
		if found {
			r.closeResolved(ctx, st, pos, deal)
		} else {
			r.closeUnknown(ctx, st, pos)
		}
	}
}

func findExitDeal(deals []types.Deal, ticket int64, symbol string) (types.Deal, bool) {
	for _, d := range deals {
		if d.PositionTicket == ticket && d.IsExit && d.Symbol == symbol {
			return d, true
		}
	}
	return types.Deal{}, false
}

func (r *reconciler) closeResolved(ctx context.Context, st *dayState, pos *types.Position, deal types.Deal) {
	status := types.StatusGain
	if deal.Profit < 0 {
		status = types.StatusLoss
	}

	closePrice, profit := deal.Price, deal.Profit
	if err := r.ledger.RecordClose(pos.Ticket, &closePrice, &profit, status); err != nil {
		// Leave the ticket tracked and unnotified so the close is retried.
		logger.ErrorWithErr(ctx, "Failed to persist CLOSED ledger row", err, "ticket", pos.Ticket)
		return
	}

	emoji := "✅"
	if status == types.StatusLoss {
		emoji = "❌"
	}
	r.notifier.Notify(ctx, fmt.Sprintf("%s POSITION CLOSED: %s %s (%s)\nEntry: %v | Close: %v | Profit: %.2f",
		emoji, pos.Symbol, pos.Direction, status, pos.EntryPrice, deal.Price, deal.Profit))

	st.removePosition(pos.Ticket)
	st.notified[pos.Ticket] = true
	metrics.IncClosure(string(status))
	logger.Info(ctx, "Position reconciled",
		"ticket", pos.Ticket, "symbol", pos.Symbol, "status", string(status),
		"close_price", deal.Price, "profit", deal.Profit)
}

func (r *reconciler) closeUnknown(ctx context.Context, st *dayState, pos *types.Position) {
	// Manual close or an SL/TP fill not yet visible in history. Recorded
	// once with unknown outcome, never revisited.
	if err := r.ledger.RecordClose(pos.Ticket, nil, nil, types.StatusClosedUnknown); err != nil {
		logger.ErrorWithErr(ctx, "Failed to persist CLOSED_UNKNOWN ledger row", err, "ticket", pos.Ticket)
		return
	}

	r.notifier.Notify(ctx, fmt.Sprintf("ℹ️ POSITION CLOSED: %s %s ticket %d\nNo closing deal found in today's history.",
		pos.Symbol, pos.Direction, pos.Ticket))

	st.removePosition(pos.Ticket)
	st.notified[pos.Ticket] = true
	metrics.IncClosure(string(types.StatusClosedUnknown))
	logger.Warn(ctx, "Position closed with unknown outcome",
		"ticket", pos.Ticket, "symbol", pos.Symbol)
}
