package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version is stamped by the build via -ldflags.
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the bot version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("breakoutbot %s (%s)\n", Version, runtime.Version())
	},
}
