package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/zinc-sig/tandem/internal/output"
	"github.com/zinc-sig/tandem/internal/procreg"
	"github.com/zinc-sig/tandem/internal/runner"
)

var (
	execInputFile  string
	execOutputFile string
	execStderrFile string
	execVerbose    bool
	execTimeoutStr string
	execTimeout    time.Duration
)

var execCmd = &cobra.Command{
	Use:   "exec -i <input> [flags] -- <command> [args...]",
	Short: "Run one program on an input and print the result as JSON",
	Long: `Run a single program the same way tandem runs each target: the input file
is fed to stdin, stdout and stderr are captured, and the process group is
killed when the timeout passes. The result is printed as JSON.

The '--' separator is required to distinguish tandem flags from the target command.`,
	Example: `  tandem exec -i Failures/mismatch_0001.txt -- ./candidate
  tandem exec -i input.txt -o out.txt --timeout 2s -- python3 solution.py`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		execTimeout, err = parseTimeout(execTimeoutStr)
		return err
	},
	RunE: execCommand,
}

func execCommand(cmd *cobra.Command, args []string) error {
	if cmd.ArgsLenAtDash() == -1 {
		return errors.New("command separator '--' is required")
	}
	if len(args) == 0 {
		return errors.New("no command specified after '--'")
	}

	input, err := os.ReadFile(execInputFile)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}
	registry := procreg.New(logger)
	defer registry.KillAll()

	config := &runner.Config{
		Command: args[0],
		Args:    args[1:],
		Input:   string(input),
		Timeout: execTimeout,
		Verbose: execVerbose,
	}
	if execVerbose {
		runner.PrintPreExecution(os.Stderr, config, execInputFile)
	}

	result := runner.NewExecutor(registry, logger).Execute(runContext(cmd), config)

	if execVerbose {
		runner.PrintPostExecution(os.Stderr, result)
	}

	if err := writeCaptured(execOutputFile, result.Output); err != nil {
		return err
	}
	if err := writeCaptured(execStderrFile, result.Stderr); err != nil {
		return err
	}

	jsonResult := &output.Result{
		Command:       result.Command,
		Status:        string(result.Status),
		Input:         execInputFile,
		Output:        result.Output,
		Stderr:        result.Stderr,
		ExitCode:      result.ExitCode,
		ExecutionTime: result.ExecutionTime,
		TimedOut:      result.TimedOut,
	}
	if execTimeout > 0 {
		ms := execTimeout.Milliseconds()
		jsonResult.Timeout = &ms
	}
	return printJSON(jsonResult)
}

// parseTimeout accepts an empty string (no deadline) or a positive duration.
func parseTimeout(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout duration: %w", err)
	}
	if d <= 0 {
		return 0, errors.New("timeout must be positive")
	}
	return d, nil
}

// writeCaptured writes data to path, creating parent directories. An empty
// path is a no-op.
func writeCaptured(path, data string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func printJSON(v any) error {
	out, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON output: %w", err)
	}
	fmt.Fprintln(os.Stdout, string(out))
	return nil
}

func init() {
	execCmd.Flags().StringVarP(&execInputFile, "input", "i", "", "Input file fed to the command's stdin (required)")
	execCmd.Flags().StringVarP(&execOutputFile, "output", "o", "", "Also write the command's stdout to this file")
	execCmd.Flags().StringVarP(&execStderrFile, "stderr", "e", "", "Also write the command's stderr to this file")
	execCmd.Flags().BoolVarP(&execVerbose, "verbose", "v", false, "Print execution details and mirror stderr to the terminal")
	execCmd.Flags().StringVarP(&execTimeoutStr, "timeout", "t", "", "Timeout duration (e.g., 30s, 2m, 500ms)")

	_ = execCmd.MarkFlagRequired("input")
}
