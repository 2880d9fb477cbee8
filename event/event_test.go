package event

import (
	"testing"
	"time"

	"github.com/randalmurphal/ignition/signal"
)

type panicListener struct{}

func (panicListener) SignalStarted(string, time.Duration)  { panic("boom") }
func (panicListener) SignalCompleted(signal.Result)        { panic("boom") }
func (panicListener) GlobalTimeoutReached(time.Duration)   { panic("boom") }
func (panicListener) CoordinatorCompleted(string)          { panic("boom") }

func TestSafeListenerSwallowsPanics(t *testing.T) {
	var captured string
	safe := SafeListener{Inner: panicListener{}, OnError: func(method string, _ any) {
		captured = method
	}}

	safe.SignalStarted("sig", time.Second)
	if captured != "SignalStarted" {
		t.Fatalf("expected panic to be reported for SignalStarted, got %q", captured)
	}

	safe.CoordinatorCompleted("Completed")
	if captured != "CoordinatorCompleted" {
		t.Fatalf("expected panic to be reported for CoordinatorCompleted, got %q", captured)
	}
}

func TestSafeListenerNilInnerIsNoop(t *testing.T) {
	safe := SafeListener{}
	// Must not panic even though Inner is nil.
	safe.SignalStarted("sig", time.Second)
	safe.SignalCompleted(signal.Result{})
	safe.GlobalTimeoutReached(time.Second)
	safe.CoordinatorCompleted("Completed")
}

type panicHooks struct{}

func (panicHooks) BeforeIgnition()           { panic("boom") }
func (panicHooks) AfterIgnition()            { panic("boom") }
func (panicHooks) BeforeSignal(string)       { panic("boom") }
func (panicHooks) AfterSignal(signal.Result) { panic("boom") }

func TestSafeHooksSwallowsPanics(t *testing.T) {
	var calls int
	safe := SafeHooks{Inner: panicHooks{}, OnError: func(string, any) { calls++ }}

	safe.BeforeIgnition()
	safe.AfterIgnition()
	safe.BeforeSignal("sig")
	safe.AfterSignal(signal.Result{})

	if calls != 4 {
		t.Fatalf("expected all four hook panics to be caught, got %d", calls)
	}
}

func TestNopImplementationsDoNothing(t *testing.T) {
	var l Listener = NopListener{}
	var h Hooks = NopHooks{}
	l.SignalStarted("sig", time.Second)
	l.CoordinatorCompleted("Completed")
	h.BeforeIgnition()
	h.AfterSignal(signal.Result{})
}
