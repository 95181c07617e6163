package engine

import (
	"math"
	"time"
)

func roundToDigits(x float64, digits int) float64 {
	pow := math.Pow(10, float64(digits))
	return math.Round(x*pow) / pow
}

// stepDecimals derives the decimal precision implied by a volume step,
// e.g. 0.01 -> 2, 0.1 -> 1, 1.0 -> 0.
func stepDecimals(step float64) int {
	d := 0
	for step < 1 && d < 8 {
		step *= 10
		d++
	}
	return d
}

// roundToStep rounds to the nearest multiple of step, then snaps to the
// step's decimal precision to shed float noise.
func roundToStep(x, step float64) float64 {
	if step <= 0 {
		return x
	}
	return roundToDigits(math.Round(x/step)*step, stepDecimals(step))
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if hi > 0 && x > hi {
		return hi
	}
	return x
}

// startOfDay is local midnight of t's calendar date.
func startOfDay(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}
