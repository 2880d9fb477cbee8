package scheduler

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/randalmurphal/ignition/policy"
	"github.com/randalmurphal/ignition/signal"
	"golang.org/x/sync/semaphore"
)

// RunParallel starts one execution per signal, bounded by the optional
// parallelism gate, and races the aggregate completion against the
// global deadline. Results are returned in registration order regardless
// of completion order. The returned error is non-nil only when the
// Policy stopped the run early.
func RunParallel(callerCtx context.Context, signals []signal.Signal, clock *Clock, opts Options) (IgnitionResult, error) {
	runCtx, cancelRun := context.WithCancel(callerCtx)
	defer cancelRun()

	done := make(chan struct{})
	deadline := startGlobalDeadline(runCtx, cancelRun, clock, opts, done)

	var sem *semaphore.Weighted
	if opts.MaxDegreeOfParallelism > 0 {
		sem = semaphore.NewWeighted(int64(opts.MaxDegreeOfParallelism))
	}

	results := make([]signal.Result, len(signals))
	var mu sync.Mutex
	var completed []signal.Result
	var policyStopped atomic.Bool

	var wg sync.WaitGroup
	for i, s := range signals {
		wg.Add(1)
		go func(i int, s signal.Signal) {
			defer wg.Done()
			if sem != nil {
				if err := sem.Acquire(runCtx, 1); err != nil {
					results[i] = cancelledBeforeAcquire(s, runCtx, clock, opts, err)
					return
				}
				defer sem.Release(1)
			}
			r := executeOne(runCtx, s, clock, opts)
			results[i] = r

			if opts.Policy == nil {
				return
			}
			mu.Lock()
			completed = append(completed, r)
			snapshot := append([]signal.Result(nil), completed...)
			mu.Unlock()

			cont := opts.Policy.ShouldContinue(policy.Context{
				Completed:             r,
				Results:               snapshot,
				TotalSignalCount:      len(signals),
				Elapsed:               clock.Elapsed(),
				GlobalDeadlineElapsed: deadline.Elapsed(),
				Mode:                  opts.Mode,
			})
			if !cont {
				policyStopped.Store(true)
				cancelRun()
			}
		}(i, s)
	}

	wg.Wait()
	close(done)

	result := IgnitionResult{
		TotalDuration: clock.Elapsed(),
		Results:       results,
		TimedOut:      anyTimedOut(results),
	}

	if policyStopped.Load() {
		if failures := failuresOf(results); len(failures) > 0 {
			return result, &AggregateError{Failures: failures}
		}
	}
	return result, nil
}
