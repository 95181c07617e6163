package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"mt5-breakout-bot/internal/engine"
	"mt5-breakout-bot/internal/eod"
	"mt5-breakout-bot/internal/ledger"
	"mt5-breakout-bot/internal/logger"
	"mt5-breakout-bot/internal/metrics"
	"mt5-breakout-bot/internal/notify/telegram"
	"mt5-breakout-bot/internal/store"
	"mt5-breakout-bot/internal/trace"
	"mt5-breakout-bot/internal/venue/mt5"
	"mt5-breakout-bot/internal/venue/venueobs"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the trading loop",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBot(cmd.Context())
	},
}

func runBot(ctx context.Context) error {
	// Optional .env for TELEGRAM_* and logger/trace settings.
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	if err := trace.Init(); err != nil {
		return fmt.Errorf("trace init: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := trace.Shutdown(sctx); err != nil {
			logger.Warn(sctx, "Trace shutdown failed", "error", err)
		}
	}()

	cfg, err := store.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", configPath, err)
	}
	logger.Info(ctx, "Config loaded",
		"mode", cfg.Mode, "symbols", cfg.Symbols, "phases", len(cfg.Phases),
		"timezone", cfg.Timezone)

	led, err := ledger.NewSQLite(cfg.Ledger.Path)
	if err != nil {
		return fmt.Errorf("open ledger %s: %w", cfg.Ledger.Path, err)
	}
	defer led.Close()

	notifier := telegram.New(os.Getenv("TELEGRAM_BOT_TOKEN"), os.Getenv("TELEGRAM_CHAT_ID"))
	if !notifier.Enabled() {
		logger.Warn(ctx, "Telegram credentials missing, notifications disabled")
	}

	venue := venueobs.Wrap(mt5.New(mt5.Params{
		Mode:            cfg.Mode,
		BridgeURL:       cfg.Venue.BridgeURL,
		Timeout:         time.Duration(cfg.Venue.TimeoutSeconds) * time.Second,
		RatePerSecond:   cfg.Venue.RatePerSecond,
		Magic:           cfg.Execution.Magic,
		DeviationPoints: cfg.Execution.DeviationPoints,
		UseTickStream:   cfg.Venue.UseTickStream,
		TickStale:       time.Duration(cfg.Venue.TickStaleMillis) * time.Millisecond,
	}))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Addr != "" {
		go metrics.Serve(ctx, cfg.Metrics.Addr)
	}

	// Session failure at startup is the one fatal venue error.
	if err := venue.Start(ctx, cfg.Symbols); err != nil {
		return fmt.Errorf("venue start: %w", err)
	}
	defer venue.Stop(context.Background())

	var summary engine.DailySummarizer
	if cfg.Summary.Enabled {
		cutoff, _ := store.ParseClock(cfg.Summary.Time)
		summary = eod.New(led, notifier, cutoff, cfg.Location())
	}

	eng := engine.New(cfg, venue, led, notifier, summary)
	if err := eng.Recover(ctx); err != nil {
		return fmt.Errorf("recovery: %w", err)
	}

	notifier.Notify(ctx, fmt.Sprintf("🤖 Breakout bot started (%s)\nSymbols: %v", cfg.Mode, cfg.Symbols))
	logger.Info(ctx, "Bot started", "mode", cfg.Mode)

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			notifier.Notify(context.Background(), "🛑 Breakout bot stopped")
			logger.Info(context.Background(), "Bot stopped")
			return nil
		case <-timer.C:
			now := time.Now()
			eng.RunCycle(ctx, now)
			next := eng.NextInterval(time.Now())
			logger.Debug(ctx, "Cycle complete", "next_interval", next.String())
			timer.Reset(next)
		}
	}
}
