package output

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/zinc-sig/tandem/internal/artifact"
	"github.com/zinc-sig/tandem/internal/trial"
)

type Target struct {
	Path string   `json:"path"`
	Args []string `json:"args,omitempty"`
}

// Summary describes a finished (or interrupted) differential run.
type Summary struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMS int64     `json:"duration_ms"`

	TargetA   Target `json:"target_a"`
	TargetB   Target `json:"target_b"`
	Generator string `json:"generator"`
	MemCheck  bool   `json:"memory_check"`

	Trials        int `json:"trials"`
	TotalTrials   int `json:"total_trials"`
	Passed        int `json:"passed"`
	Mismatches    int `json:"mismatches"`
	Timeouts      int `json:"timeouts"`
	DefiniteLeaks int `json:"definite_leaks"`

	PassRate  decimal.Decimal `json:"pass_rate"` // percent, two decimals
	MeanTimeA decimal.Decimal `json:"mean_time_a_ms"`
	MeanTimeB decimal.Decimal `json:"mean_time_b_ms"`

	AllPassed    bool   `json:"all_passed"`
	StoppedEarly bool   `json:"stopped_early"`
	Interrupted  bool   `json:"interrupted"`
	Error        string `json:"error,omitempty"`

	Artifacts []artifact.Artifact `json:"artifacts,omitempty"`
	Metadata  map[string]any      `json:"metadata,omitempty"`

	// Webhook status (only in local output, not sent to webhook)
	WebhookSent     bool   `json:"webhook_sent,omitempty"`
	WebhookAttempts int    `json:"webhook_attempts,omitempty"`
	WebhookError    string `json:"webhook_error,omitempty"`
}

// Fill copies the run counters from stats and derives the rates.
func (s *Summary) Fill(stats *trial.Stats) {
	s.TotalTrials = stats.TotalTrials
	s.Passed = stats.Passed
	s.Mismatches = stats.Mismatches
	s.Timeouts = stats.Timeouts
	s.DefiniteLeaks = stats.DefiniteLeaks
	s.AllPassed = stats.AllPassed()
	s.StoppedEarly = stats.StoppedEarly

	s.PassRate = PassRate(stats.Passed, stats.TotalTrials)
	s.MeanTimeA = MeanMillis(stats.TotalTimeA, stats.TotalTrials)
	s.MeanTimeB = MeanMillis(stats.TotalTimeB, stats.TotalTrials)
}

// Finish stamps the end time and duration.
func (s *Summary) Finish(at time.Time) {
	s.FinishedAt = at
	s.DurationMS = at.Sub(s.StartedAt).Milliseconds()
}

// PassRate returns passed/total as a percentage rounded to two places. An
// empty run counts as fully passed.
func PassRate(passed, total int) decimal.Decimal {
	if total == 0 {
		return decimal.NewFromInt(100)
	}
	return decimal.NewFromInt(int64(passed)).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(int64(total)), 2)
}

// MeanMillis returns total/n in milliseconds rounded to two places.
func MeanMillis(total time.Duration, n int) decimal.Decimal {
	if n == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(total.Microseconds()).
		DivRound(decimal.NewFromInt(int64(n)*1000), 2)
}
