package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"mt5-breakout-bot/internal/store"
)

func morningPhase() Phase {
	// 09:00 anchor, 09:15 eval, 09:20 entry, 11:30 end.
	return Phase{
		Name:       "morning",
		AnchorMin:  9 * 60,
		EvalMin:    9*60 + 15,
		EntryMin:   9*60 + 20,
		MonitorEnd: 11*60 + 30,
	}
}

func at(hour, min int) time.Time {
	return time.Date(2026, 9, 1, hour, min, 0, 0, time.UTC)
}

func TestPhaseClassify(t *testing.T) {
	t.Parallel()
	p := morningPhase()

	assert.Equal(t, PhaseIdle, p.Classify(at(0, 0)))
	assert.Equal(t, PhaseIdle, p.Classify(at(9, 14)))
	assert.Equal(t, PhaseTrapEval, p.Classify(at(9, 15)))
	assert.Equal(t, PhaseTrapEval, p.Classify(at(9, 19)))
	assert.Equal(t, PhaseMonitor, p.Classify(at(9, 20)))
	assert.Equal(t, PhaseMonitor, p.Classify(at(11, 30)))
	assert.Equal(t, PhaseDone, p.Classify(at(11, 31)))
	assert.Equal(t, PhaseDone, p.Classify(at(23, 59)))
}

func TestPhaseTimes(t *testing.T) {
	t.Parallel()
	p := morningPhase()
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, at(9, 0), p.AnchorTime(day))
	assert.Equal(t, at(9, 15), p.EvalTime(day))
	assert.Equal(t, at(9, 20), p.EntryStartTime(day))
	assert.Equal(t, at(11, 30), p.MonitorEndTime(day))
}

func TestPhasesFromConfig(t *testing.T) {
	t.Parallel()

	got := phasesFromConfig([]store.PhaseConfig{
		{Name: "morning", Anchor: "09:00", Eval: "09:15", EntryStart: "09:20", MonitorEnd: "11:30"},
		{Name: "afternoon", Anchor: "14:30", Eval: "14:45", EntryStart: "14:50", MonitorEnd: "17:00"},
	})

	assert.Len(t, got, 2)
	assert.Equal(t, morningPhase(), got[0])
	assert.Equal(t, "afternoon", got[1].Name)
	assert.Equal(t, 14*60+30, got[1].AnchorMin)
	assert.Equal(t, 17*60, got[1].MonitorEnd)
}

func TestPhaseStateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "IDLE", PhaseIdle.String())
	assert.Equal(t, "TRAP_EVAL", PhaseTrapEval.String())
	assert.Equal(t, "MONITOR", PhaseMonitor.String())
	assert.Equal(t, "DONE", PhaseDone.String())
}
