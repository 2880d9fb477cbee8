// Package policy decides, after each signal completion, whether a run
// should continue.
package policy

import (
	"time"

	"github.com/randalmurphal/ignition/signal"
)

// ExecutionMode names the scheduling strategy in effect, so a Policy can
// condition its decision on it.
type ExecutionMode int

const (
	ModeParallel ExecutionMode = iota
	ModeSequential
	ModeDependencyAware
	ModeStaged
)

func (m ExecutionMode) String() string {
	switch m {
	case ModeParallel:
		return "parallel"
	case ModeSequential:
		return "sequential"
	case ModeDependencyAware:
		return "dependencyAware"
	case ModeStaged:
		return "staged"
	default:
		return "unknown"
	}
}

// Context carries everything a Policy needs to decide whether to
// continue past the signal that just completed.
type Context struct {
	Completed        signal.Result
	Results          []signal.Result
	TotalSignalCount int
	Elapsed          time.Duration
	GlobalDeadlineElapsed bool
	Mode             ExecutionMode
}

// Policy decides whether execution should continue after a signal
// completes. Returning false tells the scheduler to stop accepting new
// work and surface an aggregate failure.
type Policy interface {
	ShouldContinue(ctx Context) bool
}

// Func adapts a plain function to the Policy interface.
type Func func(ctx Context) bool

// ShouldContinue implements Policy.
func (f Func) ShouldContinue(ctx Context) bool { return f(ctx) }

func failed(s signal.Status) bool {
	return s == signal.StatusFailed || s == signal.StatusTimedOut
}

// FailFast stops as soon as any signal fails or times out.
type FailFast struct{}

// ShouldContinue implements Policy.
func (FailFast) ShouldContinue(ctx Context) bool {
	return !failed(ctx.Completed.Status)
}

// BestEffort always continues, regardless of outcome.
type BestEffort struct{}

// ShouldContinue implements Policy.
func (BestEffort) ShouldContinue(Context) bool { return true }

// ContinueOnTimeout tolerates individual timeouts but stops cleanly once
// the global deadline has elapsed without a concurrent failure racing it.
type ContinueOnTimeout struct{}

// ShouldContinue implements Policy.
func (ContinueOnTimeout) ShouldContinue(ctx Context) bool {
	if ctx.GlobalDeadlineElapsed {
		for _, r := range ctx.Results {
			if r.Status == signal.StatusFailed {
				return true
			}
		}
		return false
	}
	return true
}
