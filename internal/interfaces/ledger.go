package interfaces

import (
	"time"

	"mt5-breakout-bot/internal/types"
)

// Ledger is the durable trade store, keyed by venue ticket. An OPEN row is
// later resolved in place by a close; duplicate close writes are suppressed.
type Ledger interface {
	RecordOpen(rec types.TradeRecord) error
	RecordClose(ticket int64, closePrice, profit *float64, status types.CloseStatus) error

	RecordPending(p types.PendingSubmission) error
	ResolvePending(id string) error
	ListPending() ([]types.PendingSubmission, error)

	GetTrade(ticket int64) (types.TradeRecord, error)
	TradesClosedBetween(from, to time.Time) ([]types.TradeRecord, error)

	Close() error
}
