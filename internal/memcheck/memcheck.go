// Package memcheck runs a target under an external memory checker (Dr. Memory
// style launcher) and extracts the error summary lines from its report.
package memcheck

import (
	"context"
	"fmt"
	"time"

	"github.com/zinc-sig/tandem/internal/runner"
)

const (
	slowdownFactor = 10
	graceInterval  = 1000 * time.Millisecond
	minTimeout     = 2000 * time.Millisecond
	minBaseline    = 10 * time.Millisecond
)

// DefaultFlags are passed to the checker before the "--" separator.
var DefaultFlags = []string{"-batch"}

// Executor is the process-running contract the checker is layered on.
type Executor interface {
	Execute(ctx context.Context, config *runner.Config) *runner.Result
}

type Config struct {
	Target  string
	Args    []string
	Input   string
	Timeout time.Duration
	Enabled bool
}

type Result struct {
	RawOutput    string
	HasErrors    bool
	ErrorDetails string
	Summary      []string // qualifying summary lines, trimmed
	LeakLines    []string // the definite-leak subset of Summary
	TimedOut     bool
	Execution    *runner.Result
}

// HasDefiniteLeaks reports whether the checker found at least one definite leak.
func (r *Result) HasDefiniteLeaks() bool {
	return len(r.LeakLines) > 0
}

// Failed reports whether the checker itself produced no usable report: it
// could not be started, or it exited non-zero without printing a summary.
func (r *Result) Failed() bool {
	if r.Execution == nil {
		return false
	}
	switch r.Execution.Status {
	case runner.StatusError:
		return true
	case runner.StatusFailed:
		return len(r.Summary) == 0
	}
	return false
}

type Checker struct {
	executor Executor
	path     string
	flags    []string
}

// NewChecker creates a checker launching the program at path. Nil flags
// select DefaultFlags.
func NewChecker(executor Executor, path string, flags []string) *Checker {
	if flags == nil {
		flags = DefaultFlags
	}
	return &Checker{executor: executor, path: path, flags: flags}
}

// Run executes config.Target under the checker. When checking is disabled
// the target runs directly and HasErrors is always false.
func (c *Checker) Run(ctx context.Context, config *Config) *Result {
	if !config.Enabled {
		execution := c.executor.Execute(ctx, &runner.Config{
			Command: config.Target,
			Args:    config.Args,
			Input:   config.Input,
			Timeout: config.Timeout,
		})
		return &Result{
			RawOutput: execution.Output,
			TimedOut:  execution.TimedOut,
			Execution: execution,
		}
	}

	args := make([]string, 0, len(c.flags)+2+len(config.Args))
	args = append(args, c.flags...)
	args = append(args, "--", config.Target)
	args = append(args, config.Args...)

	execution := c.executor.Execute(ctx, &runner.Config{
		Command: c.path,
		Args:    args,
		Input:   config.Input,
		Timeout: config.Timeout,
	})
	result := &Result{Execution: execution}

	switch execution.Status {
	case runner.StatusTimeout:
		result.TimedOut = true
		result.HasErrors = true
		result.ErrorDetails = fmt.Sprintf("memory checker exceeded timeout (%d ms)", config.Timeout.Milliseconds())
		return result
	case runner.StatusError, runner.StatusCancelled:
		result.HasErrors = true
		result.ErrorDetails = execution.Output
		return result
	}

	result.RawOutput = execution.Output + "\n" + execution.Stderr
	result.ErrorDetails = result.RawOutput
	result.HasErrors = !isBlank(result.RawOutput)
	result.Summary = SummaryLines(result.RawOutput)
	result.LeakLines = DefiniteLeaks(result.Summary)
	return result
}

// Timeout sizes the checked run's deadline from the unchecked run's elapsed
// time: ten times slower plus a grace interval, never below two seconds.
func Timeout(elapsed time.Duration) time.Duration {
	if elapsed <= 0 {
		elapsed = minBaseline
	}
	return max(elapsed*slowdownFactor+graceInterval, minTimeout)
}
