package engine

import (
	"math"

	"mt5-breakout-bot/internal/types"
)

// tradePlan is a fully priced and sized entry decision, ready for the
// executor. Prices are pinned to the trap boundary; the executor submits at
// the live tick, which is the intended model/execution divergence.
type tradePlan struct {
	Symbol    string
	Phase     string
	Direction types.Direction
	Entry     float64
	Stop      float64
	Target    float64
	Volume    float64
	RiskMoney float64
	Spec      types.SymbolSpec
}

// classifyBreakout checks the live quote against the trap range. LONG is
// evaluated first, so if both boundaries are crossed simultaneously the
// signal resolves LONG.
func classifyBreakout(t types.Tick, trap *TrapLevel) (types.Direction, bool) {
	if t.Bid > trap.High {
		return types.Long, true
	}
	if t.Ask < trap.Low {
		return types.Short, true
	}
	return "", false
}

// planLevels computes entry/stop/target pinned to the trap boundaries.
// The stop is the opposite boundary unless that is closer than minStop, in
// which case it is pushed out to exactly minStop from entry. A stop that
// still lands on the wrong side of the entry (corrupt range) is forced to
// the minStop distance.
func planLevels(dir types.Direction, trap *TrapLevel, minStop, rewardRatio float64) (entry, stop, target float64) {
	if dir == types.Long {
		entry = trap.High
		stop = trap.Low
		if entry-stop < minStop {
			stop = entry - minStop
		}
		if stop >= entry {
			stop = entry - minStop
		}
		target = entry + (entry-stop)*rewardRatio
		return entry, stop, target
	}

	entry = trap.Low
	stop = trap.High
	if stop-entry < minStop {
		stop = entry + minStop
	}
	if stop <= entry {
		stop = entry + minStop
	}
	target = entry - (stop-entry)*rewardRatio
	return entry, stop, target
}

// minStopDistance resolves the effective minimum stop distance in price
// units: the larger of the configured floor and the venue's stops level.
func minStopDistance(configured float64, spec types.SymbolSpec) float64 {
	venueMin := float64(spec.StopsLevel) * spec.Point
	return math.Max(configured, venueMin)
}

// sizeVolume converts risk money into lots: raw volume is rounded to the
// nearest volume step (at the step's own precision) and then clamped to the
// instrument's bounds. A raw volume that rounds to zero is infeasible and
// reported as such; the caller drops the signal for the day.
func sizeVolume(riskMoney, entry, stop float64, spec types.SymbolSpec) (float64, bool) {
	stopPoints := math.Abs(entry-stop) / spec.Point
	if stopPoints <= 0 || spec.PointValue() <= 0 {
		return 0, false
	}
	raw := riskMoney / (stopPoints * spec.PointValue())
	vol := roundToStep(raw, spec.VolumeStep)
	if vol <= 0 {
		return 0, false
	}
	return clamp(vol, spec.VolumeMin, spec.VolumeMax), true
}
