// Package generator holds the test-case generators selectable by name.
package generator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/zinc-sig/tandem/internal/runner"
	"github.com/zinc-sig/tandem/internal/testcase"
)

// Executor runs an external generator program.
type Executor interface {
	Execute(ctx context.Context, config *runner.Config) *runner.Result
}

// Options configures every built-in generator; each one reads the fields it
// needs and ignores the rest.
type Options struct {
	Seed int64 // zero picks a time-based seed

	MinLines   int
	MaxLines   int
	MaxWords   int
	MinWordLen int
	MaxWordLen int
	Alphabet   string

	Command  string
	Args     []string
	Timeout  time.Duration
	Executor Executor
}

// DefaultOptions returns the bounds used when the configuration leaves them unset.
func DefaultOptions() Options {
	return Options{
		MinLines:   1,
		MaxLines:   8,
		MaxWords:   6,
		MinWordLen: 1,
		MaxWordLen: 10,
		Alphabet:   "abcdefghijklmnopqrstuvwxyz",
		Timeout:    5 * time.Second,
	}
}

// Factory builds a generator from options.
type Factory func(opts Options) (testcase.Generator, error)

var factories = make(map[string]Factory)

// Register adds a generator factory under name, replacing any previous one.
func Register(name string, factory Factory) {
	factories[name] = factory
}

// New creates the generator registered under name.
func New(name string, opts Options) (testcase.Generator, error) {
	factory, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown generator: %s (available: %v)", name, Names())
	}
	return factory(opts)
}

// Names lists the registered generators in sorted order.
func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	Register("lines", func(opts Options) (testcase.Generator, error) {
		return NewLines(opts)
	})
	Register("labeled", func(opts Options) (testcase.Generator, error) {
		return NewLabeled(opts)
	})
	Register("command", func(opts Options) (testcase.Generator, error) {
		return NewCommand(opts)
	})
}
