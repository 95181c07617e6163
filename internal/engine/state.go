package engine

import (
	"time"

	"mt5-breakout-bot/internal/types"
)

// key identifies one symbol inside one phase namespace for one day.
type key struct {
	Symbol string
	Phase  string
}

// TrapLevel is the cached reference range read from the trap candle.
type TrapLevel struct {
	Symbol     string
	Phase      string
	High       float64
	Low        float64
	CandleTs   int64
	DetectedAt time.Time
}

// dayState is the single per-day state record. It is owned by the engine
// and mutated only from the cycle loop, so no locking is needed.
type dayState struct {
	day time.Time // local midnight of the current trading day

	traps    map[key]*TrapLevel
	executed map[key]bool // one trade per symbol per phase per day
	closed   map[key]bool // phase consumed without a trade (infeasible, no-trade)

	// positions and notified outlive the trading day: positions may span
	// midnight, and closure notifications are exactly-once per ticket ever.
	positions map[int64]*types.Position
	notified  map[int64]bool
}

func newDayState(day time.Time) *dayState {
	return &dayState{
		day:       day,
		traps:     map[key]*TrapLevel{},
		executed:  map[key]bool{},
		closed:    map[key]bool{},
		positions: map[int64]*types.Position{},
		notified:  map[int64]bool{},
	}
}

// rollover clears day-scoped detection/execution state. Open positions and
// the notified set are deliberately kept.
func (s *dayState) rollover(day time.Time) {
	s.day = day
	s.traps = map[key]*TrapLevel{}
	s.executed = map[key]bool{}
	s.closed = map[key]bool{}
}

func (s *dayState) setTrap(k key, t *TrapLevel) {
	s.traps[k] = t
}

// closePhase permanently consumes the phase for the day and discards its trap.
func (s *dayState) closePhase(k key) {
	s.closed[k] = true
	delete(s.traps, k)
}

func (s *dayState) addPosition(p *types.Position) {
	s.positions[p.Ticket] = p
}

func (s *dayState) removePosition(ticket int64) {
	delete(s.positions, ticket)
}

// cycleView is the read-only snapshot handed to per-symbol tasks. Tasks
// never touch dayState directly; they report events back to the engine.
type cycleView struct {
	traps       map[key]*TrapLevel
	executed    map[key]bool
	closed      map[key]bool
	openSymbols map[string]bool
}

func (s *dayState) view() cycleView {
	v := cycleView{
		traps:       make(map[key]*TrapLevel, len(s.traps)),
		executed:    make(map[key]bool, len(s.executed)),
		closed:      make(map[key]bool, len(s.closed)),
		openSymbols: make(map[string]bool, len(s.positions)),
	}
	for k, t := range s.traps {
		v.traps[k] = t
	}
	for k, b := range s.executed {
		v.executed[k] = b
	}
	for k, b := range s.closed {
		v.closed[k] = b
	}
	for _, p := range s.positions {
		v.openSymbols[p.Symbol] = true
	}
	return v
}
