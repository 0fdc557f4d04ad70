package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/zinc-sig/tandem/internal/procreg"
)

// Status classifies how a single execution ended.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusTimeout   Status = "timeout"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
)

// waitDelay bounds how long Wait keeps draining pipes after the child is gone,
// in case an orphaned descendant still holds them open.
const waitDelay = 500 * time.Millisecond

type Config struct {
	Command string
	Args    []string
	Input   string
	Timeout time.Duration // zero means no deadline
	Verbose bool          // mirror the child's stderr to our stderr
}

type Result struct {
	Command       string
	Status        Status
	Output        string
	Stderr        string
	ExitCode      int
	ExecutionTime int64 // milliseconds
	TimedOut      bool
}

// Executor runs one external program per call. Every spawned process is
// tracked in the registry for the lifetime of the call.
type Executor struct {
	registry *procreg.Registry
	logger   *slog.Logger
}

func NewExecutor(registry *procreg.Registry, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Executor{registry: registry, logger: logger}
}

// Execute feeds config.Input to the program and waits for it to exit, for the
// deadline to pass, or for ctx to be cancelled. It never returns an error:
// spawn and I/O failures are reported as a sentinel Output so callers can
// compare it like any other text.
func (e *Executor) Execute(ctx context.Context, config *Config) *Result {
	result := &Result{
		Command:  FullCommand(config.Command, config.Args),
		ExitCode: -1,
	}

	cmd := exec.Command(config.Command, config.Args...)
	procreg.Prepare(cmd)
	cmd.Stdin = strings.NewReader(terminate(config.Input))
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if config.Verbose {
		cmd.Stderr = io.MultiWriter(&stderr, os.Stderr)
	}

	startTime := time.Now()
	defer func() {
		result.ExecutionTime = time.Since(startTime).Milliseconds()
	}()

	if err := cmd.Start(); err != nil {
		result.Status = StatusError
		result.Output = errorOutput(err)
		return result
	}
	pid := cmd.Process.Pid
	e.registry.Register(cmd.Process)
	defer e.registry.Unregister(pid)
	e.logger.Debug("process started", "pid", pid, "command", result.Command)

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var deadline <-chan time.Time
	if config.Timeout > 0 {
		timer := time.NewTimer(config.Timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	var err error
	select {
	case err = <-done:
	case <-deadline:
		e.logger.Debug("process timed out", "pid", pid, "timeout", config.Timeout)
		e.registry.Terminate(pid)
		<-done
		result.Status = StatusTimeout
		result.TimedOut = true
		result.Output = TimeoutOutput(config.Timeout)
		result.Stderr = stderr.String()
		return result
	case <-ctx.Done():
		e.registry.Terminate(pid)
		<-done
		result.Status = StatusCancelled
		result.Output = "[CANCELLED]"
		result.Stderr = stderr.String()
		return result
	}

	result.Output = stdout.String()
	result.Stderr = stderr.String()

	if err != nil && !errors.Is(err, exec.ErrWaitDelay) {
		var exitError *exec.ExitError
		if !errors.As(err, &exitError) {
			result.Status = StatusError
			result.Output = errorOutput(err)
			return result
		}
		if status, ok := exitError.Sys().(syscall.WaitStatus); ok {
			result.ExitCode = status.ExitStatus()
		} else {
			result.ExitCode = exitError.ExitCode()
		}
		result.Status = StatusFailed
		return result
	}

	result.ExitCode = 0
	result.Status = StatusSuccess
	return result
}

// TimeoutOutput is the sentinel Output of an execution killed at its deadline.
func TimeoutOutput(timeout time.Duration) string {
	return fmt.Sprintf("[TIMEOUT after %d ms]", timeout.Milliseconds())
}

// FullCommand joins the command and its arguments for display.
func FullCommand(command string, args []string) string {
	if len(args) == 0 {
		return command
	}
	return command + " " + strings.Join(args, " ")
}

// SplitArgs splits an argument string on whitespace. No shell quoting is
// interpreted.
func SplitArgs(s string) []string {
	return strings.Fields(s)
}

// terminate appends the newline line-oriented readers need to flush their
// last read.
func terminate(input string) string {
	if strings.HasSuffix(input, "\n") {
		return input
	}
	return input + "\n"
}

func errorOutput(err error) string {
	return fmt.Sprintf("[ERROR: %v]", err)
}
