package scheduler

import "github.com/randalmurphal/ignition/signal"

// anyTimedOut reports whether any result classified as TimedOut. Per the
// soft-timeout-semantics invariant, IgnitionResult.TimedOut tracks this,
// not merely whether wall-clock exceeded the configured global timeout.
func anyTimedOut(results []signal.Result) bool {
	for _, r := range results {
		if r.Status == signal.StatusTimedOut {
			return true
		}
	}
	return false
}

// failuresOf collects every captured failure value, in result order.
func failuresOf(results []signal.Result) []FailureEntry {
	var out []FailureEntry
	for _, r := range results {
		if r.Failure != nil {
			out = append(out, FailureEntry{Name: r.Name, Err: r.Failure})
		}
	}
	return out
}
