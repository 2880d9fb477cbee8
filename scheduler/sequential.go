package scheduler

import (
	"context"

	"github.com/randalmurphal/ignition/policy"
	"github.com/randalmurphal/ignition/signal"
)

// RunSequential executes signals one at a time in registration order. A
// hard global timeout (CancelOnGlobalTimeout) stops the run and returns
// partial results; a soft one lets the in-flight signal finish and the
// loop continues. After each completion the Policy decides whether to
// proceed.
func RunSequential(callerCtx context.Context, signals []signal.Signal, clock *Clock, opts Options) (IgnitionResult, error) {
	runCtx, cancelRun := context.WithCancel(callerCtx)
	defer cancelRun()

	done := make(chan struct{})
	deadline := startGlobalDeadline(runCtx, cancelRun, clock, opts, done)

	results := make([]signal.Result, 0, len(signals))
	var policyStopped bool

	for _, s := range signals {
		r := executeOne(runCtx, s, clock, opts)
		results = append(results, r)

		if opts.Policy != nil {
			cont := opts.Policy.ShouldContinue(policy.Context{
				Completed:             r,
				Results:               append([]signal.Result(nil), results...),
				TotalSignalCount:      len(signals),
				Elapsed:               clock.Elapsed(),
				GlobalDeadlineElapsed: deadline.Elapsed(),
				Mode:                  opts.Mode,
			})
			if !cont {
				policyStopped = true
				cancelRun()
				break
			}
		}

		if runCtx.Err() != nil {
			// Hard global timeout fired mid-loop; stop issuing new
			// signals and return what completed.
			break
		}
	}

	close(done)

	result := IgnitionResult{
		TotalDuration: clock.Elapsed(),
		Results:       results,
		TimedOut:      anyTimedOut(results),
	}

	if policyStopped {
		if failures := failuresOf(results); len(failures) > 0 {
			return result, &AggregateError{Failures: failures}
		}
	}
	return result, nil
}
