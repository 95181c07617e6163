package engine

import (
	"context"
	"fmt"
	"time"

	"mt5-breakout-bot/internal/id"
	"mt5-breakout-bot/internal/interfaces"
	"mt5-breakout-bot/internal/logger"
	"mt5-breakout-bot/internal/metrics"
	"mt5-breakout-bot/internal/types"
)

// orderExecutor turns a trade plan into a venue position: it persists a
// pending-submission row, submits a fill-or-kill market order at the live
// tick, registers the position under the venue-issued ticket at the actual
// executed price, writes the OPEN ledger row and notifies the fill.
type orderExecutor struct {
	venue    interfaces.Venue
	ledger   interfaces.Ledger
	notifier interfaces.Notifier
}

func newOrderExecutor(venue interfaces.Venue, ledger interfaces.Ledger, notifier interfaces.Notifier) *orderExecutor {
	return &orderExecutor{venue: venue, ledger: ledger, notifier: notifier}
}

func (oe *orderExecutor) execute(ctx context.Context, plan tradePlan) (*types.Position, error) {
	tick, err := oe.venue.Tick(ctx, plan.Symbol)
	if err != nil {
		return nil, fmt.Errorf("submission tick: %w", err)
	}
	price := tick.Ask
	if plan.Direction == types.Short {
		price = tick.Bid
	}

	digits := plan.Spec.Digits
	req := types.OrderReq{
		Symbol:    plan.Symbol,
		Direction: plan.Direction,
		Volume:    plan.Volume,
		Price:     roundToDigits(price, digits),
		SL:        roundToDigits(plan.Stop, digits),
		TP:        roundToDigits(plan.Target, digits),
		Comment:   "breakout " + plan.Phase,
	}

	pending := types.PendingSubmission{
		ID:        id.New(),
		Symbol:    plan.Symbol,
		Phase:     plan.Phase,
		Direction: plan.Direction,
		Volume:    req.Volume,
		Price:     req.Price,
		SL:        req.SL,
		TP:        req.TP,
		RiskMoney: plan.RiskMoney,
		CreatedAt: time.Now(),
	}
	if err := oe.ledger.RecordPending(pending); err != nil {
		// Trading continues without the recovery marker rather than
		// missing the window.
		logger.ErrorWithErr(ctx, "Failed to persist pending submission", err, "symbol", plan.Symbol)
	}

	res, err := oe.venue.SubmitOrder(ctx, req)
	if rerr := oe.ledger.ResolvePending(pending.ID); rerr != nil {
		logger.Warn(ctx, "Failed to resolve pending submission", "id", pending.ID, "error", rerr)
	}
	if err != nil {
		metrics.IncOrderFailure(plan.Symbol)
		oe.notifier.Notify(ctx, fmt.Sprintf("❌ Order failed: %s %s vol %v\n%v",
			plan.Symbol, plan.Direction, req.Volume, err))
		return nil, err
	}

	pos := &types.Position{
		Ticket:     res.Ticket,
		Symbol:     plan.Symbol,
		Phase:      plan.Phase,
		Direction:  plan.Direction,
		EntryPrice: res.ExecutedPrice,
		SL:         req.SL,
		TP:         req.TP,
		Volume:     req.Volume,
		RiskMoney:  plan.RiskMoney,
		OpenedAt:   time.Now(),
	}

	if err := oe.ledger.RecordOpen(types.TradeRecord{
		Timestamp:  pos.OpenedAt,
		Ticket:     pos.Ticket,
		Symbol:     pos.Symbol,
		Direction:  pos.Direction,
		EntryPrice: pos.EntryPrice,
		SL:         pos.SL,
		TP:         pos.TP,
		Volume:     pos.Volume,
		RiskMoney:  pos.RiskMoney,
		Status:     types.StatusOpen,
	}); err != nil {
		logger.ErrorWithErr(ctx, "Failed to persist OPEN ledger row", err, "ticket", pos.Ticket)
	}

	metrics.IncOrder(plan.Symbol, string(plan.Direction))
	oe.notifier.Notify(ctx, fmt.Sprintf(
		"✅ ORDER FILLED: %s %s\nEntry: %v | SL: %v | TP: %v | Vol: %v | Ticket: %d",
		plan.Symbol, plan.Direction, pos.EntryPrice, pos.SL, pos.TP, pos.Volume, pos.Ticket))

	logger.Info(ctx, "Position opened",
		"symbol", pos.Symbol, "phase", pos.Phase, "direction", string(pos.Direction),
		"ticket", pos.Ticket, "entry", pos.EntryPrice, "sl", pos.SL, "tp", pos.TP,
		"volume", pos.Volume, "risk_money", pos.RiskMoney)
	return pos, nil
}
