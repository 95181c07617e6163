package engine

import (
	"context"
	"fmt"
	"time"

	"mt5-breakout-bot/internal/interfaces"
	"mt5-breakout-bot/internal/logger"
	"mt5-breakout-bot/internal/metrics"
	"mt5-breakout-bot/internal/store"
	"mt5-breakout-bot/internal/types"
)

// DailySummarizer is the optional end-of-day summary hook checked once per
// cycle.
type DailySummarizer interface {
	MaybeSend(ctx context.Context, now time.Time)
}

type eventKind int

const (
	evTrap eventKind = iota
	evPhaseClosed
	evFilled
	evRejected
)

// event is a state mutation proposed by a symbol task. Tasks run
// concurrently but only read a snapshot; every mutation flows through
// applyEvent on the cycle goroutine, preserving the single-writer model.
type event struct {
	kind   eventKind
	key    key
	trap   *TrapLevel
	pos    *types.Position
	reason string
}

type Engine struct {
	cfg    *store.Config
	loc    *time.Location
	phases []Phase

	venue    interfaces.Venue
	ledger   interfaces.Ledger
	notifier interfaces.Notifier
	summary  DailySummarizer

	traps *trapDetector
	exec  *orderExecutor
	recon *reconciler
	trail *trailingManager

	st *dayState
}

var _ interfaces.Engine = (*Engine)(nil)

func newEngine(cfg *store.Config, venue interfaces.Venue, ledger interfaces.Ledger, notifier interfaces.Notifier, summary DailySummarizer) *Engine {
	loc := cfg.Location()
	return &Engine{
		cfg:      cfg,
		loc:      loc,
		phases:   phasesFromConfig(cfg.Phases),
		venue:    venue,
		ledger:   ledger,
		notifier: notifier,
		summary:  summary,
		traps:    newTrapDetector(venue, cfg.Timeframe),
		exec:     newOrderExecutor(venue, ledger, notifier),
		recon:    newReconciler(venue, ledger, notifier, loc),
		trail:    newTrailingManager(venue, notifier, cfg.Trailing.Enabled, cfg.Trailing.Distance, cfg.Trailing.TriggerRR),
		st:       newDayState(startOfDay(time.Now(), loc)),
	}
}

// Recover reconciles pending-submission rows left by a previous process
// against the venue's live positions before normal operation resumes. A
// pending row matching a live position adopts that position; anything else
// is reported and dropped.
func (e *Engine) Recover(ctx context.Context) error {
	pending, err := e.ledger.ListPending()
	if err != nil {
		return fmt.Errorf("list pending submissions: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	logger.Warn(ctx, "Unresolved pending submissions found", "count", len(pending))
	live, err := e.venue.OpenPositions(ctx)
	if err != nil {
		return fmt.Errorf("open positions for recovery: %w", err)
	}

	adopted := map[int64]bool{}
	for _, p := range pending {
		vp, ok := matchPending(p, live, adopted, e.st.positions)
		if ok {
			adopted[vp.Ticket] = true
			pos := &types.Position{
				Ticket:     vp.Ticket,
				Symbol:     vp.Symbol,
				Phase:      p.Phase,
				Direction:  vp.Direction,
				EntryPrice: vp.EntryPrice,
				SL:         vp.SL,
				TP:         vp.TP,
				Volume:     vp.Volume,
				RiskMoney:  p.RiskMoney,
				OpenedAt:   p.CreatedAt,
			}
			e.st.addPosition(pos)
			if startOfDay(p.CreatedAt, e.loc).Equal(e.st.day) {
				e.st.executed[key{Symbol: p.Symbol, Phase: p.Phase}] = true
			}
			if err := e.ledger.RecordOpen(types.TradeRecord{
				Timestamp:  pos.OpenedAt,
				Ticket:     pos.Ticket,
				Symbol:     pos.Symbol,
				Direction:  pos.Direction,
				EntryPrice: pos.EntryPrice,
				SL:         pos.SL,
				TP:         pos.TP,
				Volume:     pos.Volume,
				RiskMoney:  pos.RiskMoney,
				Status:     types.StatusOpen,
			}); err != nil {
				logger.ErrorWithErr(ctx, "Failed to persist recovered position", err, "ticket", pos.Ticket)
			}
			e.notifier.Notify(ctx, fmt.Sprintf("♻️ Recovered open position: %s %s ticket %d",
				pos.Symbol, pos.Direction, pos.Ticket))
			logger.Info(ctx, "Pending submission adopted", "id", p.ID, "ticket", pos.Ticket)
		} else {
			e.notifier.Notify(ctx, fmt.Sprintf("⚠️ Unresolved pending submission: %s %s vol %v (no matching venue position)",
				p.Symbol, p.Direction, p.Volume))
			logger.Warn(ctx, "Pending submission unresolved", "id", p.ID, "symbol", p.Symbol)
		}
		if err := e.ledger.ResolvePending(p.ID); err != nil {
			logger.Warn(ctx, "Failed to delete pending submission", "id", p.ID, "error", err)
		}
	}
	return nil
}

func matchPending(p types.PendingSubmission, live []types.VenuePosition, adopted map[int64]bool, tracked map[int64]*types.Position) (types.VenuePosition, bool) {
	for _, vp := range live {
		if adopted[vp.Ticket] {
			continue
		}
		if _, already := tracked[vp.Ticket]; already {
			continue
		}
		if vp.Symbol == p.Symbol && vp.Direction == p.Direction && vp.Volume == p.Volume {
			return vp, true
		}
	}
	return types.VenuePosition{}, false
}

// RunCycle performs one full scheduling cycle: date rollover, per-symbol
// detection/monitoring tasks, then reconciliation and trailing over every
// tracked ticket regardless of phase.
func (e *Engine) RunCycle(ctx context.Context, now time.Time) {
	metrics.IncCycle()
	e.maybeRollover(ctx, now)

	view := e.st.view()
	results := make(chan []event, len(e.cfg.Symbols))
	for _, sym := range e.cfg.Symbols {
		go func(symbol string) {
			taskCtx, cancel := context.WithTimeout(ctx, time.Duration(e.cfg.Poll.TaskTimeout)*time.Second)
			defer cancel()
			results <- e.symbolTask(taskCtx, symbol, now, view)
		}(sym)
	}
	for range e.cfg.Symbols {
		for _, ev := range <-results {
			e.applyEvent(ctx, ev)
		}
	}

	live, err := e.venue.OpenPositions(ctx)
	if err != nil {
		logger.ErrorWithErr(ctx, "Open positions unavailable, skipping reconciliation", err)
	} else {
		e.recon.run(ctx, now, live, e.st)
		e.trail.run(ctx, live, e.st)
	}

	if e.summary != nil {
		e.summary.MaybeSend(ctx, now)
	}
}

func (e *Engine) maybeRollover(ctx context.Context, now time.Time) {
	day := startOfDay(now, e.loc)
	if day.Equal(e.st.day) {
		return
	}
	carried := len(e.st.positions)
	e.st.rollover(day)
	logger.Info(ctx, "Trading day rolled over",
		"day", day.Format("2006-01-02"), "carried_positions", carried)
	e.notifier.Notify(ctx, fmt.Sprintf("🔁 New trading day %s", day.Format("2006-01-02")))
}

// symbolTask evaluates every phase for one symbol and returns the proposed
// state changes. It reads only the immutable view.
func (e *Engine) symbolTask(ctx context.Context, symbol string, now time.Time, view cycleView) []event {
	var evs []event
	day := startOfDay(now, e.loc)

	for _, ph := range e.phases {
		k := key{Symbol: symbol, Phase: ph.Name}
		if view.executed[k] || view.closed[k] {
			continue
		}

		switch ph.Classify(now.In(e.loc)) {
		case PhaseTrapEval:
			if view.traps[k] != nil {
				continue
			}
			tl, err := e.traps.detect(ctx, symbol, ph.Name, ph.AnchorTime(day))
			if err != nil {
				// DataUnavailable: retried every eval tick until the
				// window closes.
				logger.Debug(ctx, "Trap detection pending", "symbol", symbol, "phase", ph.Name, "error", err)
				continue
			}
			evs = append(evs, event{kind: evTrap, key: k, trap: tl})

		case PhaseMonitor:
			if ev, ok := e.monitorOnce(ctx, symbol, ph, view, k); ok {
				evs = append(evs, ev)
			}

		case PhaseDone:
			// Window closed without a trade.
			evs = append(evs, event{kind: evPhaseClosed, key: k, reason: "no_trade"})
		}
	}
	return evs
}

// monitorOnce samples the live quote against the cached trap range and, on
// a breakout, prices, sizes and submits the trade.
func (e *Engine) monitorOnce(ctx context.Context, symbol string, ph Phase, view cycleView, k key) (event, bool) {
	trap := view.traps[k]
	if trap == nil {
		return event{}, false
	}
	if !e.cfg.Execution.ReenterWhileOpen && view.openSymbols[symbol] {
		return event{}, false
	}

	tick, err := e.venue.Tick(ctx, symbol)
	if err != nil {
		logger.Debug(ctx, "No tick, monitor retried next cycle", "symbol", symbol, "error", err)
		return event{}, false
	}

	dir, signal := classifyBreakout(tick, trap)
	if !signal {
		return event{}, false
	}
	logger.Info(ctx, "Breakout detected",
		"symbol", symbol, "phase", ph.Name, "direction", string(dir),
		"bid", tick.Bid, "ask", tick.Ask, "trap_high", trap.High, "trap_low", trap.Low)

	spec, err := e.venue.SymbolSpec(ctx, symbol)
	if err != nil {
		logger.ErrorWithErr(ctx, "Symbol spec unavailable, signal retried next cycle", err, "symbol", symbol)
		return event{}, false
	}
	equity, err := e.venue.AccountEquity(ctx)
	if err != nil {
		logger.ErrorWithErr(ctx, "Equity unavailable, signal retried next cycle", err, "symbol", symbol)
		return event{}, false
	}
	metrics.SetEquity(equity)

	minStop := minStopDistance(e.cfg.Risk.MinStopPrice, spec)
	entry, stop, target := planLevels(dir, trap, minStop, e.cfg.Risk.RewardRatio)
	riskMoney := equity * e.cfg.Risk.Fraction

	volume, feasible := sizeVolume(riskMoney, entry, stop, spec)
	if !feasible {
		return event{kind: evPhaseClosed, key: k, reason: "sizing_infeasible"}, true
	}

	plan := tradePlan{
		Symbol:    symbol,
		Phase:     ph.Name,
		Direction: dir,
		Entry:     entry,
		Stop:      stop,
		Target:    target,
		Volume:    volume,
		RiskMoney: riskMoney,
		Spec:      spec,
	}
	pos, err := e.exec.execute(ctx, plan)
	if err != nil {
		return event{kind: evRejected, key: k}, true
	}
	return event{kind: evFilled, key: k, pos: pos}, true
}

// applyEvent is the only place dayState is mutated during a cycle.
func (e *Engine) applyEvent(ctx context.Context, ev event) {
	switch ev.kind {
	case evTrap:
		e.st.setTrap(ev.key, ev.trap)
		metrics.IncTrap(ev.key.Symbol, ev.key.Phase)

	case evPhaseClosed:
		e.st.closePhase(ev.key)
		metrics.IncDropped(ev.reason)
		switch ev.reason {
		case "sizing_infeasible":
			e.notifier.Notify(ctx, fmt.Sprintf("⚠️ %s %s: volume rounds to zero at current risk, trade skipped for today",
				ev.key.Symbol, ev.key.Phase))
		case "no_trade":
			e.notifier.Notify(ctx, fmt.Sprintf("ℹ️ %s %s: window closed without a trade",
				ev.key.Symbol, ev.key.Phase))
		}
		logger.Info(ctx, "Phase closed for the day",
			"symbol", ev.key.Symbol, "phase", ev.key.Phase, "reason", ev.reason)

	case evFilled:
		e.st.addPosition(ev.pos)
		e.st.executed[ev.key] = true
		delete(e.st.traps, ev.key)

	case evRejected:
		// The executed flag stays unset. Whether the phase remains
		// eligible this day is a configured policy.
		if !e.cfg.Execution.RetryOnReject {
			e.st.closePhase(ev.key)
			logger.Warn(ctx, "Order rejected, phase consumed",
				"symbol", ev.key.Symbol, "phase", ev.key.Phase)
		} else {
			logger.Warn(ctx, "Order rejected, will retry next cycle",
				"symbol", ev.key.Symbol, "phase", ev.key.Phase)
		}
	}
}

// NextInterval adapts the polling cadence to the nearest phase boundary:
// one-second ticks while any window is evaluating or monitoring, widening
// toward the configured maximum when nothing is close.
func (e *Engine) NextInterval(now time.Time) time.Duration {
	minIv := time.Duration(e.cfg.Poll.MinSeconds) * time.Second
	maxIv := time.Duration(e.cfg.Poll.MaxSeconds) * time.Second

	local := now.In(e.loc)
	day := startOfDay(now, e.loc)

	nearest := day.AddDate(0, 0, 1).Sub(local) // midnight rollover
	for _, ph := range e.phases {
		switch ph.Classify(local) {
		case PhaseTrapEval, PhaseMonitor:
			return minIv
		}
		for _, b := range []time.Time{ph.EvalTime(day), ph.EntryStartTime(day), ph.MonitorEndTime(day)} {
			if d := b.Sub(local); d > 0 && d < nearest {
				nearest = d
			}
		}
	}

	iv := nearest / 2
	if iv < minIv {
		iv = minIv
	}
	if iv > maxIv {
		iv = maxIv
	}
	return iv
}
