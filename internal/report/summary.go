package report

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/zinc-sig/tandem/internal/trial"
)

// WriteSummary prints the end-of-run counters and verdict. Nil colours
// print plain text.
func WriteSummary(w io.Writer, stats *trial.Stats, ok, fail *color.Color) {
	fmt.Fprintln(w)
	if stats.StoppedEarly {
		fmt.Fprintf(w, "Stopped at first difference after %d trials\n", stats.TotalTrials)
	}
	if stats.Aborted {
		fmt.Fprintf(w, "Run aborted after %d trials\n", stats.TotalTrials)
	}
	fmt.Fprintf(w, "Total mismatches: %d\n", stats.Mismatches)
	fmt.Fprintf(w, "Total leaks (sum of both programs): %d\n", stats.DefiniteLeaks)
	fmt.Fprintf(w, "Total timeouts: %d\n", stats.Timeouts)

	switch {
	case stats.Aborted && stats.AllPassed():
		return
	case stats.AllPassed():
		printColored(w, ok, "All tests passed.\n")
	default:
		printColored(w, fail, fmt.Sprintf("%d of %d tests failed.\n", stats.Mismatches+stats.Timeouts, stats.TotalTrials))
	}
}

func printColored(w io.Writer, c *color.Color, s string) {
	if c == nil {
		fmt.Fprint(w, s)
		return
	}
	c.Fprint(w, s)
}
