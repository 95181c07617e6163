package ledger

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mt5-breakout-bot/internal/types"
)

func newTestLedger(t *testing.T) *SQLiteLedger {
	t.Helper()
	l, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func openRec(ticket int64) types.TradeRecord {
	return types.TradeRecord{
		Timestamp:  time.Now(),
		Ticket:     ticket,
		Symbol:     "EURUSD",
		Direction:  types.Long,
		EntryPrice: 1.1000,
		SL:         1.0950,
		TP:         1.1100,
		Volume:     0.10,
		RiskMoney:  100,
		Status:     types.StatusOpen,
	}
}

func TestOpenCloseLifecycle(t *testing.T) {
	t.Parallel()
	l := newTestLedger(t)

	require.NoError(t, l.RecordOpen(openRec(1001)))

	rec, err := l.GetTrade(1001)
	require.NoError(t, err)
	assert.Equal(t, types.StatusOpen, rec.Status)
	assert.Nil(t, rec.ClosePrice)
	assert.Nil(t, rec.Profit)

	closePrice, profit := 1.1100, 95.5
	require.NoError(t, l.RecordClose(1001, &closePrice, &profit, types.StatusGain))

	rec, err = l.GetTrade(1001)
	require.NoError(t, err)
	assert.Equal(t, types.StatusGain, rec.Status)
	require.NotNil(t, rec.ClosePrice)
	assert.Equal(t, 1.1100, *rec.ClosePrice)
	require.NotNil(t, rec.Profit)
	assert.Equal(t, 95.5, *rec.Profit)
}

func TestDuplicateOpenIsNoop(t *testing.T) {
	t.Parallel()
	l := newTestLedger(t)

	require.NoError(t, l.RecordOpen(openRec(2001)))

	dup := openRec(2001)
	dup.EntryPrice = 9.9999
	require.NoError(t, l.RecordOpen(dup))

	rec, err := l.GetTrade(2001)
	require.NoError(t, err)
	assert.Equal(t, 1.1000, rec.EntryPrice)
}

func TestDuplicateCloseIsSuppressed(t *testing.T) {
	t.Parallel()
	l := newTestLedger(t)

	require.NoError(t, l.RecordOpen(openRec(3001)))

	p1 := -12.0
	cp1 := 1.0950
	require.NoError(t, l.RecordClose(3001, &cp1, &p1, types.StatusLoss))

	// A second close for the same ticket must not overwrite the first.
	p2 := 500.0
	cp2 := 2.0
	require.NoError(t, l.RecordClose(3001, &cp2, &p2, types.StatusGain))

	rec, err := l.GetTrade(3001)
	require.NoError(t, err)
	assert.Equal(t, types.StatusLoss, rec.Status)
	assert.Equal(t, -12.0, *rec.Profit)
}

func TestCloseUnknownTicketInsertsClosedRow(t *testing.T) {
	t.Parallel()
	l := newTestLedger(t)

	require.NoError(t, l.RecordClose(4001, nil, nil, types.StatusClosedUnknown))

	rec, err := l.GetTrade(4001)
	require.NoError(t, err)
	assert.Equal(t, types.StatusClosedUnknown, rec.Status)
	assert.Nil(t, rec.ClosePrice)
	assert.Nil(t, rec.Profit)
}

func TestGetTradeNotFound(t *testing.T) {
	t.Parallel()
	l := newTestLedger(t)

	_, err := l.GetTrade(99999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTradesClosedBetween(t *testing.T) {
	t.Parallel()
	l := newTestLedger(t)

	require.NoError(t, l.RecordOpen(openRec(5001)))
	require.NoError(t, l.RecordOpen(openRec(5002)))
	require.NoError(t, l.RecordOpen(openRec(5003))) // stays open

	p := 10.0
	cp := 1.11
	require.NoError(t, l.RecordClose(5001, &cp, &p, types.StatusGain))
	require.NoError(t, l.RecordClose(5002, nil, nil, types.StatusClosedUnknown))

	now := time.Now()
	trades, err := l.TradesClosedBetween(now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, trades, 2)

	trades, err = l.TradesClosedBetween(now.Add(time.Hour), now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestPendingSubmissions(t *testing.T) {
	t.Parallel()
	l := newTestLedger(t)

	p := types.PendingSubmission{
		ID:        "01HVTESTULID00000000000000",
		Symbol:    "GBPUSD",
		Phase:     "morning",
		Direction: types.Short,
		Volume:    0.05,
		Price:     1.2500,
		SL:        1.2550,
		TP:        1.2400,
		RiskMoney: 50,
		CreatedAt: time.Now(),
	}
	require.NoError(t, l.RecordPending(p))

	got, err := l.ListPending()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, p.ID, got[0].ID)
	assert.Equal(t, types.Short, got[0].Direction)
	assert.Equal(t, 0.05, got[0].Volume)

	require.NoError(t, l.ResolvePending(p.ID))
	got, err = l.ListPending()
	require.NoError(t, err)
	assert.Empty(t, got)

	// Resolving an already-resolved id is harmless.
	assert.NoError(t, l.ResolvePending(p.ID))
}
