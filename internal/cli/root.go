// Package cli wires the cobra command tree for the bot binary.
package cli

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "breakoutbot",
	Short:         "Intraday trap-candle breakout trading bot for MetaTrader 5",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config file")
	rootCmd.AddCommand(runCmd, versionCmd, ledgerCmd)
}

func Execute() error {
	return rootCmd.Execute()
}
