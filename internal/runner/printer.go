package runner

import (
	"fmt"
	"io"
)

// PrintPreExecution prints command details before execution
func PrintPreExecution(w io.Writer, config *Config, inputPath string) {
	fmt.Fprintln(w, "========================================")
	fmt.Fprintln(w, "Tandem Execution Details")
	fmt.Fprintln(w, "========================================")
	fmt.Fprintf(w, "Command: %s\n", FullCommand(config.Command, config.Args))
	fmt.Fprintf(w, "Input:   %s (%d bytes)\n", inputPath, len(config.Input))
	if config.Timeout > 0 {
		fmt.Fprintf(w, "Timeout: %s\n", config.Timeout)
	} else {
		fmt.Fprintln(w, "Timeout: unlimited")
	}
	fmt.Fprintln(w, "----------------------------------------")
}

// PrintPostExecution prints execution results after command completion
func PrintPostExecution(w io.Writer, result *Result) {
	fmt.Fprintln(w, "----------------------------------------")
	fmt.Fprintln(w, "Execution Results:")
	fmt.Fprintln(w, "----------------------------------------")
	fmt.Fprintf(w, "Status:         %s\n", result.Status)
	fmt.Fprintf(w, "Exit Code:      %d\n", result.ExitCode)
	fmt.Fprintf(w, "Execution Time: %d ms\n", result.ExecutionTime)
	fmt.Fprintln(w, "========================================")
}
