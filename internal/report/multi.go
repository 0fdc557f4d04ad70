package report

import "github.com/zinc-sig/tandem/internal/trial"

// Multi forwards every call to each reporter in order.
type Multi []trial.Reporter

func (m Multi) RunStarted(config trial.Config) {
	for _, r := range m {
		r.RunStarted(config)
	}
}

func (m Multi) TrialFinished(outcome *trial.Outcome) {
	for _, r := range m {
		r.TrialFinished(outcome)
	}
}

func (m Multi) RunFinished(stats *trial.Stats) {
	for _, r := range m {
		r.RunFinished(stats)
	}
}
