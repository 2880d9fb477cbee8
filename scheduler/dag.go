package scheduler

import (
	"context"
	"strings"

	"github.com/randalmurphal/ignition/graph"
	"github.com/randalmurphal/ignition/policy"
	"github.com/randalmurphal/ignition/scope"
	"github.com/randalmurphal/ignition/signal"
	"golang.org/x/sync/semaphore"
)

type dagCompletion struct {
	result   signal.Result
	fromSkip bool
}

// RunDAG executes signals respecting g's dependency order: independent
// branches run concurrently; a dependent starts no earlier than the
// completion of its last dependency. A signal with a dependency that
// Failed, TimedOut, or was itself Skipped/Cancelled by this propagation
// is never started — it is classified Skipped (or
// Cancelled with reason DependencyFailed when CancelDependentsOnFailure
// is set) without consuming a parallelism permit.
func RunDAG(callerCtx context.Context, signals []signal.Signal, g *graph.Graph, clock *Clock, opts Options) (IgnitionResult, error) {
	runCtx, cancelRun := context.WithCancel(callerCtx)
	defer cancelRun()

	done := make(chan struct{})
	deadline := startGlobalDeadline(runCtx, cancelRun, clock, opts, done)
	defer close(done)

	var sem *semaphore.Weighted
	if opts.MaxDegreeOfParallelism > 0 {
		sem = semaphore.NewWeighted(int64(opts.MaxDegreeOfParallelism))
	}

	byName := make(map[string]signal.Signal, len(signals))
	for _, s := range signals {
		byName[s.Name] = s
	}

	pendingDeps := make(map[string]int, len(signals))
	for _, name := range g.Signals() {
		pendingDeps[name] = len(g.Dependencies(name))
	}

	unavailable := make(map[string]bool) // Failed, TimedOut, Skipped, or Cancelled
	dispatched := make(map[string]bool)
	resultsByName := make(map[string]signal.Result, len(signals))

	resultsCh := make(chan dagCompletion, len(signals))
	var accumulated []signal.Result
	var policyStopped bool
	doneCount := 0
	total := len(signals)

	dispatchReady := func() {
		for _, name := range g.Signals() {
			if dispatched[name] || pendingDeps[name] != 0 {
				continue
			}
			dispatched[name] = true

			var failedDeps []string
			for _, dep := range g.Dependencies(name) {
				if unavailable[dep] {
					failedDeps = append(failedDeps, dep)
				}
			}

			if len(failedDeps) > 0 {
				status := signal.StatusSkipped
				reason := scope.ReasonNone
				triggeredBy := ""
				if opts.CancelDependentsOnFailure {
					status = signal.StatusCancelled
					reason = scope.ReasonDependencyFailed
					triggeredBy = strings.Join(failedDeps, ",")
				}
				r := signal.Result{
					Name:               name,
					Status:             status,
					FailedDependencies: failedDeps,
					CancelReason:       reason,
					TriggeredBy:        triggeredBy,
				}
				if opts.Listener != nil {
					opts.Listener.SignalCompleted(r)
				}
				if opts.Metrics != nil {
					opts.Metrics.RecordSignalStatus(name, status)
				}
				resultsCh <- dagCompletion{result: r, fromSkip: true}
				continue
			}

			s := byName[name]
			go func(s signal.Signal) {
				if sem != nil {
					if err := sem.Acquire(runCtx, 1); err != nil {
						resultsCh <- dagCompletion{result: cancelledBeforeAcquire(s, runCtx, clock, opts, err)}
						return
					}
					defer sem.Release(1)
				}
				r := executeOne(runCtx, s, clock, opts)
				resultsCh <- dagCompletion{result: r}
			}(s)
		}
	}

	dispatchReady()

	for doneCount < total {
		c := <-resultsCh
		doneCount++
		resultsByName[c.result.Name] = c.result
		if !c.fromSkip {
			accumulated = append(accumulated, c.result)
		}

		if c.result.Status == signal.StatusFailed || c.result.Status == signal.StatusTimedOut || c.fromSkip {
			unavailable[c.result.Name] = true
		}

		for _, dependent := range g.Dependents(c.result.Name) {
			pendingDeps[dependent]--
		}

		if !c.fromSkip && opts.Policy != nil {
			cont := opts.Policy.ShouldContinue(policy.Context{
				Completed:             c.result,
				Results:               append([]signal.Result(nil), accumulated...),
				TotalSignalCount:      total,
				Elapsed:               clock.Elapsed(),
				GlobalDeadlineElapsed: deadline.Elapsed(),
				Mode:                  policy.ModeDependencyAware,
			})
			if !cont {
				policyStopped = true
				cancelRun()
			}
		}

		dispatchReady()
	}

	ordered := make([]signal.Result, 0, len(g.Signals()))
	for _, name := range g.Signals() {
		ordered = append(ordered, resultsByName[name])
	}

	result := IgnitionResult{
		TotalDuration: clock.Elapsed(),
		Results:       ordered,
		TimedOut:      anyTimedOut(ordered),
	}

	if policyStopped {
		if failures := failuresOf(ordered); len(failures) > 0 {
			return result, &AggregateError{Failures: failures}
		}
	}
	return result, nil
}
