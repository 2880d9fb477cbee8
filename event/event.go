// Package event defines ignition's two observer surfaces: lifecycle
// events (fired at coordinator/signal boundaries) and lifecycle hooks
// (invoked around the run and each signal). They are deliberately
// distinct interfaces even though both are "just callbacks": events are
// a notification surface with at-most/exactly-once delivery guarantees
// runnable concurrently from any worker; hooks are invoked synchronously
// around the calls they wrap and may observe ordering the events do not
// promise.
package event

import (
	"time"

	"github.com/randalmurphal/ignition/signal"
)

// Listener receives ignition lifecycle events. signalStarted for a
// signal always precedes signalCompleted for that signal;
// coordinatorCompleted fires exactly once, after every signalCompleted
// for the run; globalTimeoutReached fires at most once. Implementations
// must return promptly — they run synchronously from whichever worker
// observed the transition, and the coordinator holds no internal locks
// while invoking them, but a slow listener still delays that worker.
type Listener interface {
	SignalStarted(name string, at time.Duration)
	SignalCompleted(result signal.Result)
	GlobalTimeoutReached(elapsed time.Duration)
	CoordinatorCompleted(state string)
}

// Hooks are optional observer callbacks distinct from Listener: each of
// the four methods fires at most once per run (BeforeIgnition/
// AfterIgnition) or once per signal (BeforeSignal/AfterSignal).
type Hooks interface {
	BeforeIgnition()
	AfterIgnition()
	BeforeSignal(name string)
	AfterSignal(result signal.Result)
}

// NopListener implements Listener with no-op methods.
type NopListener struct{}

func (NopListener) SignalStarted(string, time.Duration) {}
func (NopListener) SignalCompleted(signal.Result)       {}
func (NopListener) GlobalTimeoutReached(time.Duration)  {}
func (NopListener) CoordinatorCompleted(string)         {}

// NopHooks implements Hooks with no-op methods.
type NopHooks struct{}

func (NopHooks) BeforeIgnition()           {}
func (NopHooks) AfterIgnition()            {}
func (NopHooks) BeforeSignal(string)       {}
func (NopHooks) AfterSignal(signal.Result) {}

// SafeListener wraps a Listener so that a panicking method is caught and
// logged via onError rather than unwinding into coordinator code, per
// the "handler exceptions never change outcome" invariant.
type SafeListener struct {
	Inner   Listener
	OnError func(method string, recovered any)
}

func (s SafeListener) call(method string, fn func()) {
	defer func() {
		if r := recover(); r != nil && s.OnError != nil {
			s.OnError(method, r)
		}
	}()
	fn()
}

func (s SafeListener) SignalStarted(name string, at time.Duration) {
	if s.Inner == nil {
		return
	}
	s.call("SignalStarted", func() { s.Inner.SignalStarted(name, at) })
}

func (s SafeListener) SignalCompleted(result signal.Result) {
	if s.Inner == nil {
		return
	}
	s.call("SignalCompleted", func() { s.Inner.SignalCompleted(result) })
}

func (s SafeListener) GlobalTimeoutReached(elapsed time.Duration) {
	if s.Inner == nil {
		return
	}
	s.call("GlobalTimeoutReached", func() { s.Inner.GlobalTimeoutReached(elapsed) })
}

func (s SafeListener) CoordinatorCompleted(state string) {
	if s.Inner == nil {
		return
	}
	s.call("CoordinatorCompleted", func() { s.Inner.CoordinatorCompleted(state) })
}

// SafeHooks wraps Hooks the same way SafeListener wraps Listener.
type SafeHooks struct {
	Inner   Hooks
	OnError func(method string, recovered any)
}

func (h SafeHooks) call(method string, fn func()) {
	defer func() {
		if r := recover(); r != nil && h.OnError != nil {
			h.OnError(method, r)
		}
	}()
	fn()
}

func (h SafeHooks) BeforeIgnition() {
	if h.Inner == nil {
		return
	}
	h.call("BeforeIgnition", h.Inner.BeforeIgnition)
}

func (h SafeHooks) AfterIgnition() {
	if h.Inner == nil {
		return
	}
	h.call("AfterIgnition", h.Inner.AfterIgnition)
}

func (h SafeHooks) BeforeSignal(name string) {
	if h.Inner == nil {
		return
	}
	h.call("BeforeSignal", func() { h.Inner.BeforeSignal(name) })
}

func (h SafeHooks) AfterSignal(result signal.Result) {
	if h.Inner == nil {
		return
	}
	h.call("AfterSignal", func() { h.Inner.AfterSignal(result) })
}
