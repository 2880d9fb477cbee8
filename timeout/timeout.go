// Package timeout provides the pluggable decision of a signal's effective
// timeout and whether expiry should cancel that signal's token.
package timeout

import (
	"time"

	"github.com/randalmurphal/ignition/signal"
)

// Options is the subset of coordinator options a Strategy may consult.
type Options struct {
	CancelIndividualOnTimeout bool
}

// Strategy decides the effective timeout for a signal's execution and
// whether expiry should cancel its token. It is consulted exactly once
// per execution, never re-consulted after the timeout has fired.
// Implementations must be deterministic and safe for concurrent use.
type Strategy interface {
	Timeout(s signal.Signal, opts Options) (effective *time.Duration, cancelOnTimeout bool)
}

// Default returns (s.Timeout, opts.CancelIndividualOnTimeout) unchanged,
// or no timeout at all if the signal declares none.
type Default struct{}

// Timeout implements Strategy.
func (Default) Timeout(s signal.Signal, opts Options) (*time.Duration, bool) {
	if s.Timeout <= 0 {
		return nil, opts.CancelIndividualOnTimeout
	}
	d := s.Timeout
	return &d, opts.CancelIndividualOnTimeout
}

// Func adapts a plain function to the Strategy interface.
type Func func(s signal.Signal, opts Options) (*time.Duration, bool)

// Timeout implements Strategy.
func (f Func) Timeout(s signal.Signal, opts Options) (*time.Duration, bool) {
	return f(s, opts)
}
