package engine

import (
	"mt5-breakout-bot/internal/interfaces"
	"mt5-breakout-bot/internal/store"
)

func New(cfg *store.Config, venue interfaces.Venue, ledger interfaces.Ledger, notifier interfaces.Notifier, summary DailySummarizer) interfaces.Engine {
	return newEngine(cfg, venue, ledger, notifier, summary)
}
