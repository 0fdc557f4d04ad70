package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zinc-sig/tandem/internal/runner"
	"github.com/zinc-sig/tandem/internal/testcase"
)

// Command runs an external program for every test case and uses its stdout
// as the input.
type Command struct {
	opts  Options
	count int
}

func NewCommand(opts Options) (*Command, error) {
	if opts.Command == "" {
		return nil, errors.New("command generator requires a command")
	}
	if opts.Executor == nil {
		return nil, errors.New("command generator requires an executor")
	}
	return &Command{opts: opts}, nil
}

func (g *Command) Generate(ctx context.Context) (testcase.TestCase, error) {
	g.count++
	result := g.opts.Executor.Execute(ctx, &runner.Config{
		Command: g.opts.Command,
		Args:    g.opts.Args,
		Timeout: g.opts.Timeout,
	})

	switch result.Status {
	case runner.StatusSuccess:
	case runner.StatusCancelled:
		if err := ctx.Err(); err != nil {
			return testcase.TestCase{}, err
		}
		return testcase.TestCase{}, fmt.Errorf("generator %s was cancelled", result.Command)
	default:
		return testcase.TestCase{}, fmt.Errorf("generator %s ended with status %s: %s",
			result.Command, result.Status, strings.TrimSpace(result.Output+"\n"+result.Stderr))
	}

	return testcase.TestCase{
		Input: strings.TrimRight(result.Output, "\r\n"),
		Label: fmt.Sprintf("%s #%d", result.Command, g.count),
	}, nil
}
