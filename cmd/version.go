package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Both can be set with -ldflags at build time.
var (
	version = "unknown"
	commit  = "none"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("%s version: %s (commit %s, %s)\n", app, version, commit, runtime.Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
