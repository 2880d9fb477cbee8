package health

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/randalmurphal/ignition/signal"
)

func TestEvaluateHealthyWhenAllSucceed(t *testing.T) {
	results := []signal.Result{
		{Name: "a", Status: signal.StatusSucceeded},
		{Name: "b", Status: signal.StatusSucceeded},
	}
	report := Evaluate(results, false)
	assert.Equal(t, StatusHealthy, report.Status)
	assert.Empty(t, report.FailedSignals)
	assert.Empty(t, report.TimedOutSignals)
}

func TestEvaluateUnhealthyOnFailure(t *testing.T) {
	results := []signal.Result{
		{Name: "a", Status: signal.StatusSucceeded},
		{Name: "b", Status: signal.StatusFailed},
	}
	report := Evaluate(results, false)
	assert.Equal(t, StatusUnhealthy, report.Status)
	assert.Equal(t, []string{"b"}, report.FailedSignals)
}

func TestEvaluateUnhealthyOnIndividualTimeout(t *testing.T) {
	results := []signal.Result{{Name: "a", Status: signal.StatusTimedOut}}
	report := Evaluate(results, false)
	assert.Equal(t, StatusUnhealthy, report.Status)
	assert.Equal(t, []string{"a"}, report.TimedOutSignals)
}

func TestEvaluateDegradedOnSoftGlobalTimeoutOnly(t *testing.T) {
	results := []signal.Result{{Name: "a", Status: signal.StatusSucceeded}}
	report := Evaluate(results, true)
	assert.Equal(t, StatusDegraded, report.Status)
}

func TestEvaluateFailurePrecedesSoftTimeout(t *testing.T) {
	results := []signal.Result{{Name: "a", Status: signal.StatusFailed}}
	report := Evaluate(results, true)
	assert.Equal(t, StatusUnhealthy, report.Status)
}
