package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/zinc-sig/tandem/internal/artifact"
	"github.com/zinc-sig/tandem/internal/config"
	"github.com/zinc-sig/tandem/internal/events"
	"github.com/zinc-sig/tandem/internal/generator"
	"github.com/zinc-sig/tandem/internal/memcheck"
	"github.com/zinc-sig/tandem/internal/metadata"
	"github.com/zinc-sig/tandem/internal/output"
	"github.com/zinc-sig/tandem/internal/procreg"
	"github.com/zinc-sig/tandem/internal/report"
	"github.com/zinc-sig/tandem/internal/runner"
	"github.com/zinc-sig/tandem/internal/testcase"
	"github.com/zinc-sig/tandem/internal/trial"
)

var (
	errTrialsFailed = errors.New("not all trials passed")
	errInterrupted  = errors.New("interrupted")
)

var (
	runConfigFile string
	runEnvFile    string

	runTrials       int
	runTimeoutStr   string
	runStopOnFirst  bool
	runMemCheck     bool
	runOnlyFailures bool
	runDebugLabel   bool
	runFailuresDir  string
	runPredefined   string
	runTargetA      string
	runTargetB      string
	runArgsA        string
	runArgsB        string
	runGenerator    string
	runSeed         int64

	runJSON       bool
	runFailOnDiff bool

	runMeta     []string
	runMetaFile string

	runUploadProvider string
	runUploadOpts     []string
	runWebhookURL     string
)

var runCmd = &cobra.Command{
	Use:   "run [flags]",
	Short: "Run two programs on the same inputs and compare their outputs",
	Long: `Run the differential test loop. Each trial takes the next predefined test
(if any) or a freshly generated one, runs both targets on it concurrently and
compares their outputs line by line. Passing trials are optionally checked for
memory leaks. Mismatches, timeouts and leaks are saved to the failures
directory.

Settings come from tandem.toml (or --config), then .env and TANDEM_*
environment variables, then the flags below.`,
	Example: `  tandem run --target-a ./reference --target-b ./candidate --trials 200
  tandem run --config tandem.toml --stop-on-first --memcheck
  tandem run --json --fail-on-diff --meta build=$BUILD_ID`,
	Args: cobra.NoArgs,
	RunE: runDifferential,
}

func runDifferential(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}

	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}

	meta, err := metadata.Build(os.Environ(), runMetaFile, runMeta)
	if err != nil {
		return fmt.Errorf("failed to build metadata: %w", err)
	}

	ctx, stop := signal.NotifyContext(runContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := procreg.New(logger)
	defer registry.KillAll()
	executor := runner.NewExecutor(registry, logger)

	source, err := buildSource(cfg, executor)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	logger = logger.With("run", runID)

	provider, err := buildUploadProvider(ctx, cfg.Upload)
	if err != nil {
		return err
	}
	store, err := artifact.NewStore(artifact.Config{
		Dir:          cfg.FailuresDir,
		IncludeLabel: cfg.DebugLabel,
		Upload:       provider,
		RunID:        runID,
		Compress:     cfg.Upload.Compress,
	}, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	// Human-readable progress goes to stderr when stdout carries JSON.
	var consoleOut io.Writer = os.Stdout
	if runJSON {
		consoleOut = os.Stderr
	}
	reporters := report.Multi{report.NewConsole(consoleOut, report.ConsoleOptions{
		OnlyFailures: cfg.PrintOnlyFailures,
		NoColor:      colorDisabled(),
	})}

	if cfg.Events.Enabled() {
		publisher, err := events.NewPublisher(ctx, cfg.Events)
		if err != nil {
			return fmt.Errorf("failed to create event publisher: %w", err)
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Warn("event publisher close failed", "error", err)
			}
		}()
		eventReporter := events.NewReporter(ctx, publisher, runID, logger)
		eventReporter.Metadata = meta
		reporters = append(reporters, eventReporter)
	}

	memCheck := cfg.MemCheckEnabled()
	if cfg.MemCheck.Enabled && !memCheck {
		logger.Info("memory checking skipped for this generator", "generator", cfg.Generator.Name)
	}

	trialConfig := trial.Config{
		A:           trial.Target{Path: cfg.TargetA.Path, Args: cfg.TargetA.ArgList()},
		B:           trial.Target{Path: cfg.TargetB.Path, Args: cfg.TargetB.ArgList()},
		Trials:      cfg.Trials,
		Timeout:     cfg.Timeout(),
		StopOnFirst: cfg.StopOnFirst,
		MemCheck:    memCheck,
	}
	deps := trial.Deps{
		Executor: executor,
		Source:   source,
		Store:    store,
		Reporter: reporters,
		Killer:   registry,
		Logger:   logger,
	}
	if memCheck {
		deps.Checker = memcheck.NewChecker(executor, cfg.MemCheck.Path, cfg.MemCheck.Flags)
	}
	orchestrator, err := trial.New(trialConfig, deps)
	if err != nil {
		return err
	}

	summary := &output.Summary{
		RunID:     runID,
		StartedAt: time.Now().UTC(),
		TargetA:   output.Target{Path: trialConfig.A.Path, Args: trialConfig.A.Args},
		TargetB:   output.Target{Path: trialConfig.B.Path, Args: trialConfig.B.Args},
		Generator: cfg.Generator.Name,
		MemCheck:  memCheck,
		Trials:    cfg.Trials,
		Metadata:  meta,
	}

	stats, runErr := orchestrator.Run(ctx)
	switch {
	case runErr == nil, errors.Is(runErr, trial.ErrStopped):
		runErr = nil
	case ctx.Err() != nil:
		summary.Interrupted = true
		logger.Warn("run interrupted", "completed", stats.TotalTrials)
	default:
		summary.Error = runErr.Error()
		logger.Error("run aborted", "error", runErr)
	}

	summary.Fill(stats)
	summary.Artifacts = store.Artifacts()
	summary.Finish(time.Now().UTC())

	if cfg.Webhook.URL != "" {
		deliverSummary(cfg.Webhook, summary, logger)
	}

	if runJSON {
		if err := printJSON(summary); err != nil {
			return err
		}
	}

	switch {
	case summary.Interrupted:
		return errInterrupted
	case runErr != nil:
		return runErr
	case runFailOnDiff && !summary.AllPassed:
		return errTrialsFailed
	}
	return nil
}

// loadRunConfig layers the config file, .env, TANDEM_* variables and the
// changed flags, then validates the result.
func loadRunConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := config.LoadDotEnv(runEnvFile); err != nil {
		return nil, err
	}

	path := runConfigFile
	if path == "" {
		if _, err := os.Stat(config.DefaultFile); err == nil {
			path = config.DefaultFile
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyUploadOptionEnv(os.Environ())

	if err := applyRunFlags(cmd, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("trials") {
		cfg.Trials = runTrials
	}
	if flags.Changed("timeout") {
		d, err := time.ParseDuration(runTimeoutStr)
		if err != nil {
			return fmt.Errorf("invalid timeout duration: %w", err)
		}
		if d < 0 {
			return errors.New("timeout must not be negative")
		}
		cfg.TimeoutMS = d.Milliseconds()
	}
	if flags.Changed("stop-on-first") {
		cfg.StopOnFirst = runStopOnFirst
	}
	if flags.Changed("memcheck") {
		cfg.MemCheck.Enabled = runMemCheck
	}
	if flags.Changed("only-failures") {
		cfg.PrintOnlyFailures = runOnlyFailures
	}
	if flags.Changed("debug-label") {
		cfg.DebugLabel = runDebugLabel
	}
	if flags.Changed("failures-dir") {
		cfg.FailuresDir = runFailuresDir
	}
	if flags.Changed("predefined") {
		cfg.PredefinedTests = runPredefined
	}
	if flags.Changed("target-a") {
		cfg.TargetA.Path = runTargetA
	}
	if flags.Changed("target-b") {
		cfg.TargetB.Path = runTargetB
	}
	if flags.Changed("args-a") {
		cfg.TargetA.Args = runArgsA
	}
	if flags.Changed("args-b") {
		cfg.TargetB.Args = runArgsB
	}
	if flags.Changed("generator") {
		cfg.Generator.Name = runGenerator
	}
	if flags.Changed("seed") {
		cfg.Generator.Seed = runSeed
	}
	if flags.Changed("upload-provider") {
		cfg.Upload.Provider = runUploadProvider
	}
	if len(runUploadOpts) > 0 {
		opts, err := metadata.ParsePairs(runUploadOpts)
		if err != nil {
			return fmt.Errorf("invalid --upload-opt: %w", err)
		}
		cfg.Upload.Options = metadata.Merge(cfg.Upload.Options, opts)
	}
	if flags.Changed("webhook-url") {
		cfg.Webhook.URL = runWebhookURL
	}
	return nil
}

// buildSource combines the predefined tests with the configured generator.
func buildSource(cfg *config.Config, executor generator.Executor) (*testcase.Source, error) {
	var predefined []testcase.TestCase
	if cfg.PredefinedTests != "" {
		var err error
		if predefined, err = testcase.LoadFile(cfg.PredefinedTests); err != nil {
			return nil, err
		}
	}

	g := cfg.Generator
	opts := generator.DefaultOptions()
	opts.Seed = g.Seed
	setPositive(&opts.MinLines, g.MinLines)
	setPositive(&opts.MaxLines, g.MaxLines)
	setPositive(&opts.MaxWords, g.MaxWords)
	setPositive(&opts.MinWordLen, g.MinWordLen)
	setPositive(&opts.MaxWordLen, g.MaxWordLen)
	if g.Alphabet != "" {
		opts.Alphabet = g.Alphabet
	}
	opts.Command = g.Command
	opts.Args = runner.SplitArgs(g.Args)
	if g.TimeoutMS > 0 {
		opts.Timeout = time.Duration(g.TimeoutMS) * time.Millisecond
	}
	opts.Executor = executor

	gen, err := generator.New(g.Name, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}
	return testcase.NewSource(predefined, gen), nil
}

func setPositive(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

// runContext falls back to the background context when the command was
// invoked without one.
func runContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func init() {
	f := runCmd.Flags()
	f.StringVarP(&runConfigFile, "config", "c", "", "Configuration file (default: ./"+config.DefaultFile+" when present)")
	f.StringVar(&runEnvFile, "env-file", ".env", "Environment file loaded before TANDEM_* variables are read")

	f.IntVarP(&runTrials, "trials", "n", 0, "Number of trials")
	f.StringVarP(&runTimeoutStr, "timeout", "t", "", "Per-execution timeout (e.g., 15s, 500ms, 0 disables)")
	f.BoolVar(&runStopOnFirst, "stop-on-first", false, "Stop at the first mismatch or timeout")
	f.BoolVar(&runMemCheck, "memcheck", false, "Run passing trials under the memory checker")
	f.BoolVar(&runOnlyFailures, "only-failures", false, "Show a progress bar instead of passing trials")
	f.BoolVar(&runDebugLabel, "debug-label", false, "Prefix saved failing inputs with their label")
	f.StringVar(&runFailuresDir, "failures-dir", "", "Directory for failing inputs")
	f.StringVar(&runPredefined, "predefined", "", "File of '---' separated inputs run before generated ones")
	f.StringVarP(&runTargetA, "target-a", "a", "", "First program (usually the reference)")
	f.StringVarP(&runTargetB, "target-b", "b", "", "Second program")
	f.StringVar(&runArgsA, "args-a", "", "Extra arguments for the first program")
	f.StringVar(&runArgsB, "args-b", "", "Extra arguments for the second program")
	f.StringVarP(&runGenerator, "generator", "g", "", "Test generator (see 'tandem list')")
	f.Int64Var(&runSeed, "seed", 0, "Generator seed (0 picks one from the clock)")

	f.BoolVar(&runJSON, "json", false, "Print the run summary as JSON on stdout")
	f.BoolVar(&runFailOnDiff, "fail-on-diff", false, "Exit non-zero when any trial failed")

	f.StringArrayVar(&runMeta, "meta", nil, "Metadata key=value attached to the summary (repeatable)")
	f.StringVar(&runMetaFile, "meta-file", "", "JSON or TOML file with metadata")

	f.StringVar(&runUploadProvider, "upload-provider", "", "Upload failing inputs with this provider (e.g., minio)")
	f.StringArrayVar(&runUploadOpts, "upload-opt", nil, "Upload option key=value (repeatable)")
	f.StringVar(&runWebhookURL, "webhook-url", "", "Send the run summary to this URL")
}
