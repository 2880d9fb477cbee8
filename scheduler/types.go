// Package scheduler implements ignition's four execution engines
// (parallel, sequential, dependency-aware, staged) over a shared
// per-signal execution primitive, plus the result/options types they
// all produce and consume.
package scheduler

import (
	"log/slog"
	"time"

	"github.com/randalmurphal/ignition/event"
	"github.com/randalmurphal/ignition/graph"
	"github.com/randalmurphal/ignition/metrics"
	"github.com/randalmurphal/ignition/policy"
	"github.com/randalmurphal/ignition/signal"
	"github.com/randalmurphal/ignition/timeout"
)

// StagePolicy governs how the staged scheduler decides to advance past a
// stage boundary.
type StagePolicy int

const (
	StageAllMustSucceed StagePolicy = iota
	StageFailFast
	StageBestEffort
	StageEarlyPromotion
)

// Options configures a scheduler run. Every field has a usable zero
// value: a zero GlobalTimeout sets no global deadline and a nil Policy
// never stops the run. Coordinator fills GlobalTimeout and Policy with
// its defaults before a scheduler ever sees them.
type Options struct {
	GlobalTimeout             time.Duration
	Policy                    policy.Policy
	Mode                      policy.ExecutionMode
	MaxDegreeOfParallelism    int // 0 = unbounded
	CancelOnGlobalTimeout     bool
	CancelIndividualOnTimeout bool
	CancelDependentsOnFailure bool
	StagePolicy               StagePolicy
	EarlyPromotionThreshold   float64
	StageModes                map[int]policy.ExecutionMode // per-stage inner mode; ModeParallel when unset
	TimeoutStrategy           timeout.Strategy
	Metrics                   metrics.Sink
	Listener                  event.Listener
	Hooks                     event.Hooks
	Logger                    *slog.Logger
	Graph                     *graph.Graph // required for ModeDependencyAware
}

// IgnitionResult is the aggregate outcome of one run.
type IgnitionResult struct {
	RunID         string
	TotalDuration time.Duration
	Results       []signal.Result
	TimedOut      bool
	Stages        []StageResult // non-nil only for staged runs
}

// StageResult reports one stage's outcome within a staged run.
type StageResult struct {
	Stage     int
	Duration  time.Duration
	Results   []signal.Result
	Succeeded int
	Failed    int
	TimedOut  int
	Completed bool
	Promoted  bool
}

func tally(results []signal.Result) (succeeded, failed, timedOut int) {
	for _, r := range results {
		switch r.Status {
		case signal.StatusSucceeded:
			succeeded++
		case signal.StatusFailed:
			failed++
		case signal.StatusTimedOut:
			timedOut++
		}
	}
	return
}
