package trial

import (
	"fmt"
	"time"

	"github.com/zinc-sig/tandem/internal/artifact"
	"github.com/zinc-sig/tandem/internal/compare"
	"github.com/zinc-sig/tandem/internal/memcheck"
	"github.com/zinc-sig/tandem/internal/runner"
	"github.com/zinc-sig/tandem/internal/testcase"
)

// Side identifies one of the two targets.
type Side string

const (
	SideA Side = "A"
	SideB Side = "B"
)

// Kind is the terminal classification of a trial. Leaks are recorded on the
// outcome but never change its kind.
type Kind int

const (
	KindPass Kind = iota
	KindMismatch
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindPass:
		return "pass"
	case KindMismatch:
		return "mismatch"
	case KindTimeout:
		return "timeout"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Leak is a definite-leak finding for one side of a passing trial.
type Leak struct {
	Side    Side
	Lines   []string // definite-leak summary lines
	Summary []string // every qualifying summary line, possible leaks included
}

// Outcome is everything known about one completed trial.
type Outcome struct {
	Index    int // 1-based
	TestCase testcase.TestCase
	Kind     Kind

	A, B *runner.Result

	Diffs    []compare.Diff // set for KindMismatch
	TimedOut []Side         // set for KindTimeout
	Timeout  time.Duration

	MemA, MemB *memcheck.Result // set when memory checking ran
	Leaks      []Leak

	Artifacts []artifact.Artifact
}

// Passed reports whether the trial neither mismatched nor timed out.
func (o *Outcome) Passed() bool {
	return o.Kind == KindPass
}

// Memory returns the memory-check result for side, or nil.
func (o *Outcome) Memory(side Side) *memcheck.Result {
	if side == SideA {
		return o.MemA
	}
	return o.MemB
}

// Stats aggregates counters over a run. Only the orchestrator mutates it.
type Stats struct {
	TotalTrials   int
	Passed        int
	Mismatches    int
	Timeouts      int
	DefiniteLeaks int
	TotalTimeA    time.Duration
	TotalTimeB    time.Duration
	StoppedEarly  bool
	Aborted       bool // interrupted or ended by a fault
}

// AllPassed reports whether no trial mismatched or timed out. Leaks do not
// affect the verdict.
func (s *Stats) AllPassed() bool {
	return s.Mismatches == 0 && s.Timeouts == 0
}

func (s *Stats) record(o *Outcome) {
	s.TotalTrials++
	switch o.Kind {
	case KindPass:
		s.Passed++
	case KindMismatch:
		s.Mismatches++
	case KindTimeout:
		s.Timeouts++
	}
	s.DefiniteLeaks += len(o.Leaks)
	if o.A != nil {
		s.TotalTimeA += time.Duration(o.A.ExecutionTime) * time.Millisecond
	}
	if o.B != nil {
		s.TotalTimeB += time.Duration(o.B.ExecutionTime) * time.Millisecond
	}
}
