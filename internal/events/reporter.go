package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"github.com/zinc-sig/tandem/internal/compare"
	"github.com/zinc-sig/tandem/internal/trial"
)

// Reporter publishes one event per run phase and per trial. Delivery
// failures are logged and never interrupt the run.
type Reporter struct {
	ctx       context.Context
	publisher Publisher
	runID     string
	logger    *slog.Logger
	now       func() time.Time

	// Metadata is echoed in the run_started event.
	Metadata map[string]any
}

func NewReporter(ctx context.Context, publisher Publisher, runID string, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Reporter{ctx: ctx, publisher: publisher, runID: runID, logger: logger, now: time.Now}
}

func (r *Reporter) header(msgType string) Header {
	return Header{RunID: r.runID, MsgType: msgType, Time: r.now().UTC()}
}

func (r *Reporter) RunStarted(config trial.Config) {
	r.send(RunStarted{
		Header:    r.header(MsgTypeRunStarted),
		Trials:    config.Trials,
		TargetA:   config.A.Path,
		TargetB:   config.B.Path,
		TimeoutMS: config.Timeout.Milliseconds(),
		MemCheck:  config.MemCheck,
		Metadata:  r.Metadata,
	})
}

func (r *Reporter) TrialFinished(o *trial.Outcome) {
	msg := TrialFinished{
		Header:     r.header(MsgTypeTrialFinished),
		Trial:      o.Index,
		Outcome:    o.Kind.String(),
		Label:      trimStrToRect(o.TestCase.Label, MaxTextHeight, MaxTextWidth),
		WallMillis: map[string]int64{},
	}
	if o.A != nil {
		msg.WallMillis[string(trial.SideA)] = o.A.ExecutionTime
	}
	if o.B != nil {
		msg.WallMillis[string(trial.SideB)] = o.B.ExecutionTime
	}
	for _, side := range o.TimedOut {
		msg.TimedOut = append(msg.TimedOut, string(side))
	}
	for i, d := range o.Diffs {
		if i == MaxDiffs {
			break
		}
		msg.Diffs = append(msg.Diffs, compare.Diff{
			Line: d.Line,
			A:    trimStrToRect(d.A, 1, MaxTextWidth),
			B:    trimStrToRect(d.B, 1, MaxTextWidth),
		})
	}
	if len(o.Leaks) > 0 {
		msg.Leaks = make(map[string][]string, len(o.Leaks))
		for _, leak := range o.Leaks {
			msg.Leaks[string(leak.Side)] = leak.Lines
		}
	}
	for _, a := range o.Artifacts {
		name := a.Path
		if a.Remote != "" {
			name = a.Remote
		}
		msg.Artifacts = append(msg.Artifacts, name)
	}
	r.send(msg)
}

func (r *Reporter) RunFinished(stats *trial.Stats) {
	r.send(RunFinished{
		Header:        r.header(MsgTypeRunFinished),
		TotalTrials:   stats.TotalTrials,
		Passed:        stats.Passed,
		Mismatches:    stats.Mismatches,
		Timeouts:      stats.Timeouts,
		DefiniteLeaks: stats.DefiniteLeaks,
		AllPassed:     stats.AllPassed(),
		StoppedEarly:  stats.StoppedEarly,
		Aborted:       stats.Aborted,
	})
}

func (r *Reporter) send(msg any) {
	b, err := json.Marshal(msg)
	if err != nil {
		r.logger.Warn("failed to marshal event", "error", err)
		return
	}
	if err := r.publisher.Publish(r.ctx, b); err != nil {
		r.logger.Warn("failed to publish event", "publisher", r.publisher.Name(), "error", err)
		return
	}
	r.logger.Debug("event published", "publisher", r.publisher.Name(), "bytes", len(b))
}
