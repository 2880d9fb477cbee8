package policy

import (
	"testing"

	"github.com/randalmurphal/ignition/signal"
)

func TestFailFastStopsOnFailureOrTimeout(t *testing.T) {
	p := FailFast{}
	if !p.ShouldContinue(Context{Completed: signal.Result{Status: signal.StatusSucceeded}}) {
		t.Fatal("expected FailFast to continue after a success")
	}
	if p.ShouldContinue(Context{Completed: signal.Result{Status: signal.StatusFailed}}) {
		t.Fatal("expected FailFast to stop after a failure")
	}
	if p.ShouldContinue(Context{Completed: signal.Result{Status: signal.StatusTimedOut}}) {
		t.Fatal("expected FailFast to stop after a timeout")
	}
}

func TestBestEffortAlwaysContinues(t *testing.T) {
	p := BestEffort{}
	if !p.ShouldContinue(Context{Completed: signal.Result{Status: signal.StatusFailed}}) {
		t.Fatal("expected BestEffort to always continue")
	}
}

func TestContinueOnTimeoutToleratesIndividualTimeouts(t *testing.T) {
	p := ContinueOnTimeout{}
	if !p.ShouldContinue(Context{Completed: signal.Result{Status: signal.StatusTimedOut}}) {
		t.Fatal("expected ContinueOnTimeout to tolerate an individual timeout")
	}
}

func TestContinueOnTimeoutStopsOnGlobalDeadlineWithoutConcurrentFailure(t *testing.T) {
	p := ContinueOnTimeout{}
	ctx := Context{
		GlobalDeadlineElapsed: true,
		Results:               []signal.Result{{Status: signal.StatusSucceeded}},
	}
	if p.ShouldContinue(ctx) {
		t.Fatal("expected ContinueOnTimeout to stop once the global deadline elapsed cleanly")
	}
}

func TestContinueOnTimeoutContinuesOnGlobalDeadlineWithConcurrentFailure(t *testing.T) {
	p := ContinueOnTimeout{}
	ctx := Context{
		GlobalDeadlineElapsed: true,
		Results:               []signal.Result{{Status: signal.StatusFailed}},
	}
	if !p.ShouldContinue(ctx) {
		t.Fatal("expected ContinueOnTimeout to continue when a failure raced the deadline")
	}
}

func TestFuncAdapter(t *testing.T) {
	var called bool
	p := Func(func(Context) bool { called = true; return false })
	if p.ShouldContinue(Context{}) {
		t.Fatal("expected Func adapter to return false")
	}
	if !called {
		t.Fatal("expected underlying function to be invoked")
	}
}

func TestExecutionModeString(t *testing.T) {
	cases := map[ExecutionMode]string{
		ModeParallel:        "parallel",
		ModeSequential:      "sequential",
		ModeDependencyAware: "dependencyAware",
		ModeStaged:          "staged",
		ExecutionMode(99):   "unknown",
	}
	for mode, want := range cases {
		if got := mode.String(); got != want {
			t.Errorf("mode %d: got %q, want %q", mode, got, want)
		}
	}
}
