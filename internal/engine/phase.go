package engine

import (
	"time"

	"mt5-breakout-bot/internal/store"
)

// PhaseState is where a wall-clock instant falls inside one configured
// trap/monitor window.
type PhaseState int

const (
	PhaseIdle PhaseState = iota
	PhaseTrapEval
	PhaseMonitor
	PhaseDone
)

func (s PhaseState) String() string {
	switch s {
	case PhaseTrapEval:
		return "TRAP_EVAL"
	case PhaseMonitor:
		return "MONITOR"
	case PhaseDone:
		return "DONE"
	default:
		return "IDLE"
	}
}

// Phase is one scheduled window, all times as minutes from local midnight.
// Each phase is an independent namespace: overlapping configurations never
// share trap or execution state.
type Phase struct {
	Name       string
	AnchorMin  int
	EvalMin    int
	EntryMin   int
	MonitorEnd int
}

func phasesFromConfig(cfgs []store.PhaseConfig) []Phase {
	out := make([]Phase, 0, len(cfgs))
	for _, pc := range cfgs {
		// Clock strings were validated with the config.
		anchor, _ := store.ParseClock(pc.Anchor)
		eval, _ := store.ParseClock(pc.Eval)
		entry, _ := store.ParseClock(pc.EntryStart)
		end, _ := store.ParseClock(pc.MonitorEnd)
		out = append(out, Phase{
			Name:       pc.Name,
			AnchorMin:  anchor,
			EvalMin:    eval,
			EntryMin:   entry,
			MonitorEnd: end,
		})
	}
	return out
}

// Classify maps an instant to the phase state. The eval state is the whole
// [eval, entry_start) interval so a detector that missed a cycle (or found
// no candle yet) is retried on every tick until monitoring begins.
func (p Phase) Classify(now time.Time) PhaseState {
	m := now.Hour()*60 + now.Minute()
	switch {
	case m >= p.EntryMin && m <= p.MonitorEnd:
		return PhaseMonitor
	case m >= p.EvalMin && m < p.EntryMin:
		return PhaseTrapEval
	case m < p.EvalMin:
		return PhaseIdle
	default:
		return PhaseDone
	}
}

// AnchorTime is the open time of the trap candle for the given trading day.
func (p Phase) AnchorTime(day time.Time) time.Time {
	return day.Add(time.Duration(p.AnchorMin) * time.Minute)
}

func (p Phase) EvalTime(day time.Time) time.Time {
	return day.Add(time.Duration(p.EvalMin) * time.Minute)
}

func (p Phase) EntryStartTime(day time.Time) time.Time {
	return day.Add(time.Duration(p.EntryMin) * time.Minute)
}

func (p Phase) MonitorEndTime(day time.Time) time.Time {
	return day.Add(time.Duration(p.MonitorEnd) * time.Minute)
}
