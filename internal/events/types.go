package events

import (
	"time"

	"github.com/zinc-sig/tandem/internal/compare"
)

const (
	MsgTypeRunStarted    = "run_started"
	MsgTypeTrialFinished = "trial_finished"
	MsgTypeRunFinished   = "run_finished"
)

// Text fields are trimmed to this rectangle before publishing.
const (
	MaxTextHeight = 40
	MaxTextWidth  = 80
	MaxDiffs      = 10
)

type Header struct {
	RunID   string    `json:"run_id"`
	MsgType string    `json:"msg_type"`
	Time    time.Time `json:"time"`
}

type RunStarted struct {
	Header
	Trials    int            `json:"trials"`
	TargetA   string         `json:"target_a"`
	TargetB   string         `json:"target_b"`
	TimeoutMS int64          `json:"timeout_ms"`
	MemCheck  bool           `json:"memory_check"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type TrialFinished struct {
	Header
	Trial      int                 `json:"trial"`
	Outcome    string              `json:"outcome"`
	Label      string              `json:"label"`
	TimedOut   []string            `json:"timed_out,omitempty"`
	Diffs      []compare.Diff      `json:"diffs,omitempty"`
	Leaks      map[string][]string `json:"leaks,omitempty"`
	WallMillis map[string]int64    `json:"wall_time_millis"`
	Artifacts  []string            `json:"artifacts,omitempty"`
}

type RunFinished struct {
	Header
	TotalTrials   int  `json:"total_trials"`
	Passed        int  `json:"passed"`
	Mismatches    int  `json:"mismatches"`
	Timeouts      int  `json:"timeouts"`
	DefiniteLeaks int  `json:"definite_leaks"`
	AllPassed     bool `json:"all_passed"`
	StoppedEarly  bool `json:"stopped_early"`
	Aborted       bool `json:"aborted"`
}
