package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

const Version = "0.1.0"

var rootVerbose bool

var rootCmd = &cobra.Command{
	Use:   "tether",
	Short: "Override-aware dependency resolver with deterministic lockfiles",
	Long: `tether resolves a manifest's dependency graph, applying root-level
overrides at any depth, and pins the result in tether.lock.yaml.

Repeated runs over unchanged inputs produce byte-identical lockfiles,
and frozen mode verifies the stored lockfile without mutating anything.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println("tether version " + Version)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "verbose output")
	rootCmd.AddCommand(versionCmd)
}

// newLogger creates the CLI logger. Verbose mode lowers the level to
// debug so per-package resolution is visible.
func newLogger(w io.Writer) *log.Logger {
	level := log.InfoLevel
	if rootVerbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}
