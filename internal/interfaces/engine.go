package interfaces

import (
	"context"
	"time"
)

// Engine runs one full detection/execution/reconciliation cycle and reports
// how long the scheduler should sleep before the next one.
type Engine interface {
	Recover(ctx context.Context) error
	RunCycle(ctx context.Context, now time.Time)
	NextInterval(now time.Time) time.Duration
}
