// Package recording derives a serializable snapshot of a completed
// ignition run (Recording) and a Gantt-friendly sweep view over the
// same data (Timeline).
package recording

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/randalmurphal/ignition/policy"
	"github.com/randalmurphal/ignition/scheduler"
	"github.com/randalmurphal/ignition/signal"
)

// SchemaVersion is the stable Recording JSON schema version.
const SchemaVersion = "1.0"

// Config is the configuration snapshot embedded in a Recording.
type Config struct {
	ExecutionMode             string  `json:"executionMode"`
	Policy                    string  `json:"policy,omitempty"`
	GlobalTimeoutMs           float64 `json:"globalTimeoutMs"`
	CancelOnGlobalTimeout     bool    `json:"cancelOnGlobalTimeout"`
	CancelIndividualOnTimeout bool    `json:"cancelIndividualOnTimeout"`
	CancelDependentsOnFailure bool    `json:"cancelDependentsOnFailure"`
	MaxDegreeOfParallelism    int     `json:"maxDegreeOfParallelism,omitempty"`
	StagePolicy               string  `json:"stagePolicy,omitempty"`
	EarlyPromotionThreshold   float64 `json:"earlyPromotionThreshold,omitempty"`
}

// SignalRecord is one signal's entry in a Recording.
type SignalRecord struct {
	Name               string   `json:"name"`
	Status             string   `json:"status"`
	Stage              int      `json:"stage,omitempty"`
	StartMs            float64  `json:"startMs"`
	EndMs              float64  `json:"endMs"`
	DurationMs         float64  `json:"durationMs"`
	Dependencies       []string `json:"dependencies,omitempty"`
	FailedDependencies []string `json:"failedDependencies,omitempty"`
	CancelReason        string   `json:"cancelReason,omitempty"`
	CancelledBy         string   `json:"cancelledBy,omitempty"`
	FailureType         string   `json:"failureType,omitempty"`
	FailureMessage      string   `json:"failureMessage,omitempty"`
	ConfiguredTimeoutMs float64  `json:"configuredTimeoutMs,omitempty"`
}

// StageRecord is one stage's entry in a Recording.
type StageRecord struct {
	Stage       int     `json:"stage"`
	DurationMs  float64 `json:"durationMs"`
	Succeeded   int     `json:"succeeded"`
	Failed      int     `json:"failed"`
	TimedOut    int     `json:"timedOut"`
	Completed   bool    `json:"completed"`
	Promoted    bool    `json:"promoted"`
}

// Summary aggregates counts and extremes across executed signals.
type Summary struct {
	TotalsByStatus    map[string]int `json:"totalsByStatus"`
	MaxConcurrency    int            `json:"maxConcurrency"`
	SlowestSignal     string         `json:"slowestSignal,omitempty"`
	FastestSignal     string         `json:"fastestSignal,omitempty"`
	AverageDurationMs float64        `json:"averageDurationMs"`
}

// Recording is the serializable artifact derived from a completed run.
type Recording struct {
	SchemaVersion   string         `json:"schemaVersion"`
	TotalDurationMs float64        `json:"totalDurationMs"`
	TimedOut        bool           `json:"timedOut"`
	Config          Config         `json:"config,omitempty"`
	Signals         []SignalRecord `json:"signals"`
	Stages          []StageRecord  `json:"stages,omitempty"`
	Summary         Summary        `json:"summary"`
}

// DependencyLookup resolves a signal's declared dependency names, used
// only to populate SignalRecord.Dependencies; nil is treated as "no
// graph attached".
type DependencyLookup func(name string) []string

// FromResult builds a Recording from a completed run, its originating
// options, and (for DAG/staged-with-dependency-stages runs) a
// dependency lookup.
func FromResult(result scheduler.IgnitionResult, cfg Config, deps DependencyLookup) Recording {
	rec := Recording{
		SchemaVersion:   SchemaVersion,
		TotalDurationMs: msOf(result.TotalDuration),
		TimedOut:        result.TimedOut,
		Config:          cfg,
		Signals:         make([]SignalRecord, 0, len(result.Results)),
	}

	totals := make(map[string]int)
	var durations []float64
	var slowestName, fastestName string
	var slowestMs, fastestMs float64
	first := true

	for _, r := range result.Results {
		sr := SignalRecord{
			Name:                r.Name,
			Status:              r.Status.String(),
			StartMs:             msOf(r.StartedAt),
			EndMs:               msOf(r.CompletedAt),
			DurationMs:          msOf(r.Elapsed),
			FailedDependencies:  r.FailedDependencies,
			CancelledBy:         r.TriggeredBy,
		}
		if r.CancelReason != 0 {
			sr.CancelReason = r.CancelReason.String()
		}
		if r.Failure != nil {
			sr.FailureMessage = r.Failure.Error()
		}
		if deps != nil {
			sr.Dependencies = deps(r.Name)
		}
		rec.Signals = append(rec.Signals, sr)

		totals[r.Status.String()]++
		if r.Status == signal.StatusSucceeded || r.Status == signal.StatusFailed || r.Status == signal.StatusTimedOut {
			durations = append(durations, sr.DurationMs)
			if first || sr.DurationMs > slowestMs {
				slowestMs, slowestName = sr.DurationMs, sr.Name
			}
			if first || sr.DurationMs < fastestMs {
				fastestMs, fastestName = sr.DurationMs, sr.Name
			}
			first = false
		}
	}

	for _, sg := range result.Stages {
		rec.Stages = append(rec.Stages, StageRecord{
			Stage: sg.Stage, DurationMs: msOf(sg.Duration),
			Succeeded: sg.Succeeded, Failed: sg.Failed, TimedOut: sg.TimedOut,
			Completed: sg.Completed, Promoted: sg.Promoted,
		})
	}

	var sum float64
	for _, d := range durations {
		sum += d
	}
	avg := 0.0
	if len(durations) > 0 {
		avg = sum / float64(len(durations))
	}

	rec.Summary = Summary{
		TotalsByStatus:    totals,
		MaxConcurrency:    maxConcurrency(result.Results),
		SlowestSignal:     slowestName,
		FastestSignal:     fastestName,
		AverageDurationMs: avg,
	}
	return rec
}

// ConfigFromOptions snapshots the coordinator-facing options relevant to
// a recording.
func ConfigFromOptions(mode policy.ExecutionMode, pol string, sched scheduler.Options) Config {
	return Config{
		ExecutionMode:             mode.String(),
		Policy:                    pol,
		GlobalTimeoutMs:           msOf(sched.GlobalTimeout),
		CancelOnGlobalTimeout:     sched.CancelOnGlobalTimeout,
		CancelIndividualOnTimeout: sched.CancelIndividualOnTimeout,
		CancelDependentsOnFailure: sched.CancelDependentsOnFailure,
		MaxDegreeOfParallelism:    sched.MaxDegreeOfParallelism,
		StagePolicy:               stagePolicyName(sched.StagePolicy),
		EarlyPromotionThreshold:   sched.EarlyPromotionThreshold,
	}
}

func stagePolicyName(sp scheduler.StagePolicy) string {
	switch sp {
	case scheduler.StageFailFast:
		return "failFast"
	case scheduler.StageBestEffort:
		return "bestEffort"
	case scheduler.StageEarlyPromotion:
		return "earlyPromotion"
	default:
		return "allMustSucceed"
	}
}

func msOf(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}

// maxConcurrency sweeps (start, +1) and (end, -1) points in time order
// and returns the maximum running sum.
func maxConcurrency(results []signal.Result) int {
	type point struct {
		at    float64
		delta int
	}
	var points []point
	for _, r := range results {
		if r.Status == signal.StatusSkipped {
			continue
		}
		points = append(points, point{at: msOf(r.StartedAt), delta: 1})
		points = append(points, point{at: msOf(r.CompletedAt), delta: -1})
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i].at == points[j].at {
			return points[i].delta > points[j].delta // starts before ends at the same instant
		}
		return points[i].at < points[j].at
	})

	running, max := 0, 0
	for _, p := range points {
		running += p.delta
		if running > max {
			max = running
		}
	}
	return max
}

// Marshal serializes a Recording to its JSON wire form.
func Marshal(rec Recording) ([]byte, error) {
	return json.Marshal(rec)
}

// Unmarshal parses a Recording from its JSON wire form. Unknown fields
// are ignored per the schema contract.
func Unmarshal(data []byte) (Recording, error) {
	var rec Recording
	err := json.Unmarshal(data, &rec)
	return rec, err
}
