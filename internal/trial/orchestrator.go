// Package trial drives the differential test loop: both targets run on the
// same input, outputs are compared, and failing inputs are persisted.
package trial

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zinc-sig/tandem/internal/artifact"
	"github.com/zinc-sig/tandem/internal/compare"
	"github.com/zinc-sig/tandem/internal/memcheck"
	"github.com/zinc-sig/tandem/internal/runner"
	"github.com/zinc-sig/tandem/internal/testcase"
)

type Executor interface {
	Execute(ctx context.Context, config *runner.Config) *runner.Result
}

type MemoryChecker interface {
	Run(ctx context.Context, config *memcheck.Config) *memcheck.Result
}

// Source yields the test case for a 1-based trial index.
type Source interface {
	Get(ctx context.Context, index int) (testcase.TestCase, error)
}

type ArtifactStore interface {
	Save(ctx context.Context, category string, tc testcase.TestCase) (artifact.Artifact, error)
}

// Killer terminates every process still alive. *procreg.Registry satisfies it.
type Killer interface {
	KillAll()
}

// Reporter observes a run. Calls are made from the orchestrator goroutine
// only, in trial order.
type Reporter interface {
	RunStarted(config Config)
	TrialFinished(outcome *Outcome)
	RunFinished(stats *Stats)
}

type Target struct {
	Path string
	Args []string
}

type Config struct {
	A, B        Target
	Trials      int
	Timeout     time.Duration // per execution; zero means none
	StopOnFirst bool
	MemCheck    bool
}

// Deps are the collaborators of an Orchestrator. Checker is required only
// when memory checking is enabled; Store, Reporter, Killer and Logger are
// optional.
type Deps struct {
	Executor Executor
	Checker  MemoryChecker
	Source   Source
	Store    ArtifactStore
	Reporter Reporter
	Killer   Killer
	Logger   *slog.Logger
}

type Orchestrator struct {
	config Config
	deps   Deps
	logger *slog.Logger
}

func New(config Config, deps Deps) (*Orchestrator, error) {
	if config.Trials < 0 {
		return nil, fmt.Errorf("trials must not be negative, got %d", config.Trials)
	}
	if config.A.Path == "" || config.B.Path == "" {
		return nil, errors.New("both targets are required")
	}
	if deps.Executor == nil || deps.Source == nil {
		return nil, errors.New("executor and test case source are required")
	}
	if config.MemCheck && deps.Checker == nil {
		return nil, errors.New("memory checking is enabled but no checker was provided")
	}
	if deps.Reporter == nil {
		deps.Reporter = nopReporter{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Orchestrator{config: config, deps: deps, logger: logger}, nil
}

// Run executes the configured number of trials, one at a time. It returns
// ErrStopped when stop-on-first ended the run, the context error when the run
// was interrupted, and a *FaultError when a parallel execution panicked. The
// statistics cover every trial that completed. RunFinished is reported on
// every path, with Stats.Aborted set for interrupts and faults.
func (o *Orchestrator) Run(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	o.deps.Reporter.RunStarted(o.config)

	for i := 1; i <= o.config.Trials; i++ {
		if err := ctx.Err(); err != nil {
			return o.abort(stats, err)
		}

		outcome, err := o.runTrial(ctx, i)
		if err != nil {
			return o.abort(stats, err)
		}

		stats.record(outcome)
		o.deps.Reporter.TrialFinished(outcome)

		if o.config.StopOnFirst && !outcome.Passed() {
			stats.StoppedEarly = true
			o.logger.Debug("stopping at first difference", "trial", i, "kind", outcome.Kind)
			o.deps.Reporter.RunFinished(stats)
			return stats, ErrStopped
		}
	}

	o.deps.Reporter.RunFinished(stats)
	return stats, nil
}

func (o *Orchestrator) runTrial(ctx context.Context, index int) (*Outcome, error) {
	tc, err := o.deps.Source.Get(ctx, index)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("failed to obtain test case %d: %w", index, err)
	}

	outcome := &Outcome{Index: index, TestCase: tc, Timeout: o.config.Timeout}

	// A fault on one side cancels gctx, which kills the sibling's process.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(o.guard(index, SideA, func() {
		outcome.A = o.deps.Executor.Execute(gctx, o.runConfig(o.config.A, tc))
	}))
	g.Go(o.guard(index, SideB, func() {
		outcome.B = o.deps.Executor.Execute(gctx, o.runConfig(o.config.B, tc))
	}))
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if outcome.A.TimedOut {
		outcome.TimedOut = append(outcome.TimedOut, SideA)
	}
	if outcome.B.TimedOut {
		outcome.TimedOut = append(outcome.TimedOut, SideB)
	}
	if len(outcome.TimedOut) > 0 {
		outcome.Kind = KindTimeout
		o.persist(ctx, outcome, artifact.CategoryTimeout)
		return outcome, nil
	}

	verdict := compare.Lines(outcome.A.Output, outcome.B.Output, o.config.StopOnFirst)
	if !verdict.Equal {
		outcome.Kind = KindMismatch
		outcome.Diffs = verdict.Diffs
		o.persist(ctx, outcome, artifact.CategoryMismatch)
		return outcome, nil
	}

	outcome.Kind = KindPass
	if o.config.MemCheck {
		if err := o.checkMemory(ctx, outcome); err != nil {
			return nil, err
		}
	}
	return outcome, nil
}

// checkMemory runs both targets under the checker in parallel, each with a
// deadline derived from its own unchecked run time.
func (o *Orchestrator) checkMemory(ctx context.Context, outcome *Outcome) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(o.guard(outcome.Index, SideA, func() {
		outcome.MemA = o.deps.Checker.Run(gctx, o.memConfig(o.config.A, outcome.TestCase, outcome.A))
	}))
	g.Go(o.guard(outcome.Index, SideB, func() {
		outcome.MemB = o.deps.Checker.Run(gctx, o.memConfig(o.config.B, outcome.TestCase, outcome.B))
	}))
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, side := range []Side{SideA, SideB} {
		result := outcome.Memory(side)
		if !result.HasDefiniteLeaks() {
			continue
		}
		outcome.Leaks = append(outcome.Leaks, Leak{Side: side, Lines: result.LeakLines, Summary: result.Summary})
		category := artifact.CategoryLeakA
		if side == SideB {
			category = artifact.CategoryLeakB
		}
		o.persist(ctx, outcome, category)
	}
	return nil
}

func (o *Orchestrator) runConfig(target Target, tc testcase.TestCase) *runner.Config {
	return &runner.Config{
		Command: target.Path,
		Args:    target.Args,
		Input:   tc.Input,
		Timeout: o.config.Timeout,
	}
}

func (o *Orchestrator) memConfig(target Target, tc testcase.TestCase, unchecked *runner.Result) *memcheck.Config {
	return &memcheck.Config{
		Target:  target.Path,
		Args:    target.Args,
		Input:   tc.Input,
		Timeout: memcheck.Timeout(time.Duration(unchecked.ExecutionTime) * time.Millisecond),
		Enabled: true,
	}
}

// persist saves the failing input. A failed write is logged and the run goes on.
func (o *Orchestrator) persist(ctx context.Context, outcome *Outcome, category string) {
	if o.deps.Store == nil {
		return
	}
	saved, err := o.deps.Store.Save(ctx, category, outcome.TestCase)
	if err != nil {
		o.logger.Warn("failed to persist failing test case", "trial", outcome.Index, "category", category, "error", err)
		return
	}
	outcome.Artifacts = append(outcome.Artifacts, saved)
}

// guard converts a panic in fn into a *FaultError so that errgroup can
// surface it after both sides have joined.
func (o *Orchestrator) guard(index int, side Side, fn func()) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = &FaultError{Trial: index, Side: side, Value: r, Stack: debug.Stack()}
				o.logger.Error("execution fault", "trial", index, "side", side, "panic", r)
			}
		}()
		fn()
		return nil
	}
}

// abort drains the registry and closes the run for reporters before
// returning err.
func (o *Orchestrator) abort(stats *Stats, err error) (*Stats, error) {
	o.killAll()
	stats.Aborted = true
	o.deps.Reporter.RunFinished(stats)
	return stats, err
}

func (o *Orchestrator) killAll() {
	if o.deps.Killer != nil {
		o.deps.Killer.KillAll()
	}
}

type nopReporter struct{}

func (nopReporter) RunStarted(Config)      {}
func (nopReporter) TrialFinished(*Outcome) {}
func (nopReporter) RunFinished(*Stats)     {}
