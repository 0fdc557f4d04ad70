package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/zinc-sig/tandem/internal/logging"
)

var (
	logLevel string
	noColor  bool
)

var rootCmd = &cobra.Command{
	Use:   "tandem",
	Short: "Differential testing of two programs on generated inputs",
	Long: `Tandem feeds the same generated or predefined inputs to two programs,
compares their outputs line by line, and optionally runs both under a memory
checker. Failing inputs are saved for replay.

Typical use: compare a reference solution against a candidate.`,
	SilenceUsage: true,
}

func Execute() {
	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		os.Exit(1)
	}
}

// newLogger builds the stderr logger from the persistent flags.
func newLogger() (*slog.Logger, error) {
	level, err := logging.ParseLevel(logLevel)
	if err != nil {
		return nil, err
	}
	return logging.New(os.Stderr, level, colorDisabled()), nil
}

// colorDisabled also honours NO_COLOR and non-terminal stdout, which
// fatih/color detects on its own.
func colorDisabled() bool {
	return noColor || color.NoColor
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable coloured output")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(listCmd)
}
