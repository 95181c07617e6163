package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"mt5-breakout-bot/internal/ledger"
	"mt5-breakout-bot/internal/store"
	"mt5-breakout-bot/internal/types"
)

var ledgerDays int

var ledgerCmd = &cobra.Command{
	Use:   "ledger [ticket]",
	Short: "Print recently closed trades, or one trade by ticket",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := store.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("load config %s: %w", configPath, err)
		}
		led, err := ledger.NewSQLite(cfg.Ledger.Path)
		if err != nil {
			return fmt.Errorf("open ledger %s: %w", cfg.Ledger.Path, err)
		}
		defer led.Close()

		if len(args) == 1 {
			ticket, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid ticket %q", args[0])
			}
			trade, err := led.GetTrade(ticket)
			if err != nil {
				return err
			}
			printTrade(trade)
			return nil
		}

		now := time.Now()
		trades, err := led.TradesClosedBetween(now.AddDate(0, 0, -ledgerDays), now)
		if err != nil {
			return err
		}
		if len(trades) == 0 {
			fmt.Printf("no closed trades in the last %d day(s)\n", ledgerDays)
			return nil
		}
		for _, t := range trades {
			printTrade(t)
		}
		return nil
	},
}

func printTrade(t types.TradeRecord) {
	profit := "n/a"
	if t.Profit != nil {
		profit = fmt.Sprintf("%.2f", *t.Profit)
	}
	fmt.Printf("%s  #%-12d %-8s %-5s vol %-6v entry %-10v profit %-10s %s\n",
		t.Timestamp.Format("2006-01-02 15:04"), t.Ticket, t.Symbol,
		t.Direction, t.Volume, t.EntryPrice, profit, t.Status)
}

func init() {
	ledgerCmd.Flags().IntVar(&ledgerDays, "days", 7, "how many days back to list")
}
