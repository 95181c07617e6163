// Package eod sends the once-a-day trading summary after the configured
// cutoff time.
package eod

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mt5-breakout-bot/internal/interfaces"
	"mt5-breakout-bot/internal/logger"
	"mt5-breakout-bot/internal/types"
)

type Summarizer struct {
	ledger    interfaces.Ledger
	notifier  interfaces.Notifier
	cutoffMin int // minutes from local midnight
	loc       *time.Location

	lastSent time.Time // local midnight of the last day summarized
}

func New(ledger interfaces.Ledger, notifier interfaces.Notifier, cutoffMin int, loc *time.Location) *Summarizer {
	return &Summarizer{
		ledger:    ledger,
		notifier:  notifier,
		cutoffMin: cutoffMin,
		loc:       loc,
	}
}

// MaybeSend emits the daily summary once per day, on the first call at or
// after the cutoff.
func (s *Summarizer) MaybeSend(ctx context.Context, now time.Time) {
	local := now.In(s.loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	if day.Equal(s.lastSent) {
		return
	}
	if local.Hour()*60+local.Minute() < s.cutoffMin {
		return
	}

	trades, err := s.ledger.TradesClosedBetween(day, now)
	if err != nil {
		// Retried on the next cycle.
		logger.ErrorWithErr(ctx, "Daily summary query failed", err)
		return
	}
	if len(trades) == 0 {
		s.lastSent = day
		logger.Info(ctx, "Daily summary skipped, no closed trades", "day", day.Format("2006-01-02"))
		return
	}

	s.notifier.Notify(ctx, format(day, trades))
	s.lastSent = day
	logger.Info(ctx, "Daily summary sent", "day", day.Format("2006-01-02"), "closed_trades", len(trades))
}

func format(day time.Time, trades []types.TradeRecord) string {
	var gains, losses, unknown int
	var net float64
	for _, t := range trades {
		switch t.Status {
		case types.StatusGain:
			gains++
		case types.StatusLoss:
			losses++
		default:
			unknown++
		}
		if t.Profit != nil {
			net += *t.Profit
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 Daily summary %s\n", day.Format("2006-01-02"))
	fmt.Fprintf(&b, "Closed: %d (gains %d, losses %d", len(trades), gains, losses)
	if unknown > 0 {
		fmt.Fprintf(&b, ", unknown %d", unknown)
	}
	fmt.Fprintf(&b, ")\nNet P/L: %.2f", net)

	for _, t := range trades {
		profit := "n/a"
		if t.Profit != nil {
			profit = fmt.Sprintf("%.2f", *t.Profit)
		}
		fmt.Fprintf(&b, "\n• %s %s #%d: %s (%s)", t.Symbol, t.Direction, t.Ticket, profit, t.Status)
	}
	return b.String()
}
