// Package signal defines the addressable unit of startup readiness work
// that ignition coordinates: a name, an optional timeout, and a
// single-shot async wait operation.
package signal

import (
	"context"
	"time"

	"github.com/randalmurphal/ignition/scope"
)

// Status classifies how a signal's execution concluded.
type Status int

const (
	StatusSucceeded Status = iota
	StatusFailed
	StatusTimedOut
	StatusSkipped
	StatusCancelled

	// StatusPending marks a signal promoted past by an EarlyPromotion
	// stage boundary that was still running when the stage record was
	// captured; its final outcome is filled in asynchronously as the
	// straggler completes.
	StatusPending
)

func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "Succeeded"
	case StatusFailed:
		return "Failed"
	case StatusTimedOut:
		return "TimedOut"
	case StatusSkipped:
		return "Skipped"
	case StatusCancelled:
		return "Cancelled"
	case StatusPending:
		return "Pending"
	default:
		return "Unknown"
	}
}

// Wait is the async operation a signal performs. Implementations must
// return promptly once ctx is done.
type Wait func(ctx context.Context) error

// Signal is an immutable descriptor of one unit of readiness work. Two
// signals must not share a name; neither the coordinator nor the graph
// builder enforces this, but result lookup by name assumes it.
type Signal struct {
	Name    string
	Timeout time.Duration // zero means "no per-signal timeout declared"
	Wait    Wait

	// Stage is the integer partition used by the staged scheduler.
	// Signals with no explicit stage default to 0.
	Stage int

	// Scope, when non-nil, is cancelled when CancelScopeOnFailure is set
	// and this signal fails or times out.
	Scope                *scope.Scope
	CancelScopeOnFailure bool
}

// Result is the outcome of executing one signal.
type Result struct {
	Name       string
	Status     Status
	Elapsed    time.Duration
	Failure    error
	FailedDependencies []string

	CancelReason scope.Reason
	TriggeredBy  string

	// StartedAt and CompletedAt are monotonic offsets from run-start.
	// For StatusSkipped both are zero, per the data model invariant.
	StartedAt   time.Duration
	CompletedAt time.Duration
}
