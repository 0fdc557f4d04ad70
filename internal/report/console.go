// Package report renders run progress for humans.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/zinc-sig/tandem/internal/memcheck"
	"github.com/zinc-sig/tandem/internal/trial"
)

// maxDiffLines caps how many differing lines are printed for one trial.
const maxDiffLines = 20

const progressWidth = 30

type ConsoleOptions struct {
	// OnlyFailures replaces the per-trial OK lines with a progress bar.
	OnlyFailures bool
	NoColor      bool
}

// Console prints one block per trial and the final summary.
type Console struct {
	out  io.Writer
	opts ConsoleOptions

	total        int
	done         int
	start        time.Time
	progressOpen bool
	now          func() time.Time

	ok, fail, timeout, leak, warn, faint *color.Color
}

func NewConsole(out io.Writer, opts ConsoleOptions) *Console {
	c := &Console{
		out:     out,
		opts:    opts,
		now:     time.Now,
		ok:      color.New(color.FgGreen),
		fail:    color.New(color.FgRed),
		timeout: color.New(color.FgYellow),
		leak:    color.New(color.FgMagenta),
		warn:    color.New(color.FgYellow),
		faint:   color.New(color.Faint),
	}
	if opts.NoColor {
		for _, col := range []*color.Color{c.ok, c.fail, c.timeout, c.leak, c.warn, c.faint} {
			col.DisableColor()
		}
	}
	return c
}

func (c *Console) RunStarted(config trial.Config) {
	c.total = config.Trials
	c.done = 0
	c.start = c.now()

	mode := "off"
	if config.MemCheck {
		mode = "on"
	}
	c.faint.Fprintf(c.out, "Running %d trials: A=%s B=%s (timeout %s, memory check %s)\n",
		config.Trials, config.A.Path, config.B.Path, formatTimeout(config.Timeout), mode)
}

func (c *Console) TrialFinished(o *trial.Outcome) {
	c.done++

	if c.opts.OnlyFailures && o.Passed() && len(o.Leaks) == 0 && !memoryCheckFailed(o) {
		c.progress()
		return
	}
	c.clearProgress()

	switch o.Kind {
	case trial.KindPass:
		c.ok.Fprintf(c.out, "Test #%d: OK", o.Index)
		c.faint.Fprintf(c.out, " (A %d ms, B %d ms)\n", o.A.ExecutionTime, o.B.ExecutionTime)
	case trial.KindMismatch:
		c.fail.Fprintf(c.out, "Test #%d: MISMATCH", o.Index)
		fmt.Fprintf(c.out, " [%s]\n", o.TestCase.Label)
		c.printDiffs(o)
	case trial.KindTimeout:
		sides := make([]string, len(o.TimedOut))
		for i, side := range o.TimedOut {
			sides[i] = string(side)
		}
		c.timeout.Fprintf(c.out, "Test #%d: TIMEOUT", o.Index)
		fmt.Fprintf(c.out, " program %s exceeded %d ms [%s]\n", strings.Join(sides, " and "), o.Timeout.Milliseconds(), o.TestCase.Label)
	}

	c.printMemory(o, trial.SideA)
	c.printMemory(o, trial.SideB)

	for _, a := range o.Artifacts {
		c.faint.Fprintf(c.out, "  saved %s\n", a.Path)
	}
}

func (c *Console) RunFinished(stats *trial.Stats) {
	c.clearProgress()
	WriteSummary(c.out, stats, c.ok, c.fail)
}

func (c *Console) printDiffs(o *trial.Outcome) {
	for i, d := range o.Diffs {
		if i == maxDiffLines {
			c.faint.Fprintf(c.out, "  ... %d more differing lines\n", len(o.Diffs)-maxDiffLines)
			break
		}
		fmt.Fprintf(c.out, "  line %d:\n", d.Line+1)
		c.fail.Fprintf(c.out, "    A: %s\n", d.A)
		c.fail.Fprintf(c.out, "    B: %s\n", d.B)
	}
}

func (c *Console) printMemory(o *trial.Outcome, side trial.Side) {
	result := o.Memory(side)
	if result == nil {
		return
	}
	if result.TimedOut {
		c.warn.Fprintf(c.out, "  Memory check of program %s: %s\n", side, result.ErrorDetails)
		return
	}
	if result.Failed() {
		c.warn.Fprintf(c.out, "  Memory check of program %s failed: %s\n", side, strings.TrimSpace(result.ErrorDetails))
		return
	}
	if !result.HasDefiniteLeaks() {
		return
	}
	c.leak.Fprintf(c.out, "  Memory leak detected in program %s:\n", side)
	for _, line := range result.Summary {
		switch memcheck.Classify(line) {
		case memcheck.KindDefiniteLeak:
			c.fail.Fprintf(c.out, "    %s\n", line)
		case memcheck.KindPossibleLeak:
			c.warn.Fprintf(c.out, "    %s\n", line)
		default:
			fmt.Fprintf(c.out, "    %s\n", line)
		}
	}
}

func memoryCheckFailed(o *trial.Outcome) bool {
	for _, result := range []*memcheck.Result{o.MemA, o.MemB} {
		if result != nil && (result.TimedOut || result.Failed()) {
			return true
		}
	}
	return false
}

// progress redraws the single-line progress bar in place.
func (c *Console) progress() {
	filled := 0
	if c.total > 0 {
		filled = progressWidth * c.done / c.total
	}
	bar := strings.Repeat("#", filled) + strings.Repeat(".", progressWidth-filled)

	elapsed := c.now().Sub(c.start)
	rate := 0.0
	if elapsed > 0 {
		rate = float64(c.done) / elapsed.Seconds()
	}
	eta := "?"
	if rate > 0 {
		remaining := time.Duration(float64(c.total-c.done) / rate * float64(time.Second))
		eta = remaining.Round(time.Second).String()
	}

	fmt.Fprintf(c.out, "\r[%s] %d/%d  %.1f trials/s  ETA %s ", bar, c.done, c.total, rate, eta)
	c.progressOpen = true
}

func (c *Console) clearProgress() {
	if c.progressOpen {
		fmt.Fprintln(c.out)
		c.progressOpen = false
	}
}

func formatTimeout(d time.Duration) string {
	if d <= 0 {
		return "none"
	}
	return fmt.Sprintf("%d ms", d.Milliseconds())
}
