package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"mt5-breakout-bot/internal/types"
)

func TestRolloverKeepsPositionsAndNotified(t *testing.T) {
	t.Parallel()

	day1 := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	st := newDayState(day1)

	k := key{Symbol: "EURUSD", Phase: "morning"}
	st.setTrap(k, fxTrap())
	st.executed[k] = true
	st.closed[key{Symbol: "GBPUSD", Phase: "morning"}] = true
	st.addPosition(&types.Position{Ticket: 42, Symbol: "EURUSD"})
	st.notified[7] = true

	day2 := day1.AddDate(0, 0, 1)
	st.rollover(day2)

	assert.Equal(t, day2, st.day)
	assert.Empty(t, st.traps)
	assert.Empty(t, st.executed)
	assert.Empty(t, st.closed)

	assert.Contains(t, st.positions, int64(42), "open positions span midnight")
	assert.True(t, st.notified[7], "closure dedup survives rollover")
}

func TestClosePhaseDiscardsTrap(t *testing.T) {
	t.Parallel()

	st := newDayState(time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC))
	k := key{Symbol: "EURUSD", Phase: "morning"}
	st.setTrap(k, fxTrap())

	st.closePhase(k)

	assert.True(t, st.closed[k])
	assert.NotContains(t, st.traps, k)
}

func TestViewIsSnapshot(t *testing.T) {
	t.Parallel()

	st := newDayState(time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC))
	k := key{Symbol: "EURUSD", Phase: "morning"}
	st.setTrap(k, fxTrap())
	st.addPosition(&types.Position{Ticket: 1, Symbol: "GBPUSD"})

	v := st.view()
	assert.NotNil(t, v.traps[k])
	assert.True(t, v.openSymbols["GBPUSD"])
	assert.False(t, v.openSymbols["EURUSD"])

	// Mutating the state after the snapshot does not leak into the view.
	st.closePhase(k)
	st.executed[k] = true
	assert.NotNil(t, v.traps[k])
	assert.False(t, v.closed[k])
	assert.False(t, v.executed[k])
}

func TestViewTracksPositionChanges(t *testing.T) {
	t.Parallel()

	st := newDayState(time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC))
	assert.False(t, st.view().openSymbols["EURUSD"])

	st.addPosition(&types.Position{Ticket: 9, Symbol: "EURUSD"})
	assert.True(t, st.view().openSymbols["EURUSD"])
	assert.False(t, st.view().openSymbols["GBPUSD"])

	st.removePosition(9)
	assert.False(t, st.view().openSymbols["EURUSD"])
}
