package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/ignition/internal/discovery"
	"github.com/randalmurphal/ignition/policy"
	"github.com/randalmurphal/ignition/recording"
	"github.com/randalmurphal/ignition/scheduler"
	"github.com/randalmurphal/ignition/signal"
)

func demoDefinitionOf(typ string) discovery.Definition {
	return discovery.Definition{Name: "sig", Type: typ, Timeout: discovery.Duration(100 * time.Millisecond)}
}

func TestParseExecutionMode(t *testing.T) {
	cases := map[string]policy.ExecutionMode{
		"sequential":      policy.ModeSequential,
		"dependencyAware": policy.ModeDependencyAware,
		"staged":          policy.ModeStaged,
		"parallel":        policy.ModeParallel,
		"garbage":         policy.ModeParallel,
	}
	for input, want := range cases {
		assert.Equal(t, want, parseExecutionMode(input), "input %q", input)
	}
}

func TestParsePolicy(t *testing.T) {
	assert.IsType(t, policy.FailFast{}, parsePolicy("failFast"))
	assert.IsType(t, policy.ContinueOnTimeout{}, parsePolicy("continueOnTimeout"))
	assert.IsType(t, policy.BestEffort{}, parsePolicy("bestEffort"))
	assert.IsType(t, policy.BestEffort{}, parsePolicy("garbage"))
}

func TestParseStagePolicy(t *testing.T) {
	cases := map[string]scheduler.StagePolicy{
		"failFast":       scheduler.StageFailFast,
		"bestEffort":     scheduler.StageBestEffort,
		"earlyPromotion": scheduler.StageEarlyPromotion,
		"allMustSucceed": scheduler.StageAllMustSucceed,
		"garbage":        scheduler.StageAllMustSucceed,
	}
	for input, want := range cases {
		assert.Equal(t, want, parseStagePolicy(input), "input %q", input)
	}
}

func TestDemoRegistryKnowsAllThreeTypes(t *testing.T) {
	reg := demoRegistry()
	for _, typ := range []string{"sleep", "fail", "never"} {
		factory, ok := reg[typ]
		require.True(t, ok, "expected a factory registered for %q", typ)
		_, err := factory(demoDefinitionOf(typ))
		require.NoError(t, err)
	}
}

func TestParseStatusRoundTripsAllStatuses(t *testing.T) {
	cases := map[string]signal.Status{
		"Succeeded": signal.StatusSucceeded,
		"Failed":    signal.StatusFailed,
		"TimedOut":  signal.StatusTimedOut,
		"Skipped":   signal.StatusSkipped,
		"Cancelled": signal.StatusCancelled,
		"Pending":   signal.StatusPending,
	}
	for input, want := range cases {
		assert.Equal(t, want, parseStatus(input), "input %q", input)
	}
}

func TestResultFromRecordingPreservesStageMembership(t *testing.T) {
	rec := recording.Recording{
		TotalDurationMs: 50,
		Signals: []recording.SignalRecord{
			{Name: "a", Status: "Succeeded", Stage: 0, DurationMs: 10},
			{Name: "b", Status: "Succeeded", Stage: 1, DurationMs: 20},
		},
		Stages: []recording.StageRecord{
			{Stage: 0, Completed: true},
			{Stage: 1, Completed: true},
		},
	}
	result := resultFromRecording(rec)
	require.Len(t, result.Stages, 2)
	assert.Len(t, result.Stages[0].Results, 1)
	assert.Equal(t, "a", result.Stages[0].Results[0].Name)
	assert.Len(t, result.Stages[1].Results, 1)
	assert.Equal(t, "b", result.Stages[1].Results[0].Name)
}

func TestDurationOfMs(t *testing.T) {
	assert.Equal(t, 250*time.Millisecond, durationOfMs(250))
}
