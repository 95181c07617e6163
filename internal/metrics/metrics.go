// Package metrics exposes the bot's Prometheus instrumentation:
//   - bot_cycles_total                       – control loop iterations
//   - bot_traps_detected_total{symbol,phase} – trap ranges cached
//   - bot_orders_total{symbol,direction}     – orders filled at the venue
//   - bot_order_failures_total{symbol}       – rejected/failed submissions
//   - bot_closures_total{status}             – position closures by status
//   - bot_signals_dropped_total{reason}      – sizing_infeasible | no_trade
//   - bot_equity                             – last observed account equity
//
// Served at /metrics in Prometheus text exposition format.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mt5-breakout-bot/internal/logger"
)

var (
	cycles = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_cycles_total",
		Help: "Control loop iterations",
	})

	traps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_traps_detected_total",
		Help: "Trap ranges detected and cached",
	}, []string{"symbol", "phase"})

	orders = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_orders_total",
		Help: "Orders filled at the venue",
	}, []string{"symbol", "direction"})

	orderFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_order_failures_total",
		Help: "Order submissions rejected or failed",
	}, []string{"symbol"})

	closures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_closures_total",
		Help: "Position closures by resolution status",
	}, []string{"status"})

	dropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_signals_dropped_total",
		Help: "Signals permanently dropped (sizing_infeasible, no_trade)",
	}, []string{"reason"})

	equity = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bot_equity",
		Help: "Last observed account equity",
	})
)

func init() {
	prometheus.MustRegister(cycles, traps, orders, orderFailures, closures, dropped, equity)
}

func IncCycle()                         { cycles.Inc() }
func IncTrap(symbol, phase string)      { traps.WithLabelValues(symbol, phase).Inc() }
func IncOrder(symbol, direction string) { orders.WithLabelValues(symbol, direction).Inc() }
func IncOrderFailure(symbol string)     { orderFailures.WithLabelValues(symbol).Inc() }
func IncClosure(status string)          { closures.WithLabelValues(status).Inc() }
func IncDropped(reason string)          { dropped.WithLabelValues(reason).Inc() }
func SetEquity(v float64)               { equity.Set(v) }

// Serve starts the /metrics HTTP server. An empty addr disables it.
func Serve(ctx context.Context, addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info(ctx, "Metrics server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn(ctx, "Metrics server stopped", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}
