package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/randalmurphal/ignition/scope"
	"github.com/randalmurphal/ignition/signal"
	"github.com/randalmurphal/ignition/timeout"
)

// executeOne runs a single signal to completion and classifies the
// result. It is the primitive every scheduler drives: side effects are
// limited to the signal's own wait, the scope cancellation it may
// trigger, and hook/listener invocation.
func executeOne(parent context.Context, s signal.Signal, clock *Clock, opts Options) signal.Result {
	startedAt := clock.Elapsed()

	if opts.Listener != nil {
		opts.Listener.SignalStarted(s.Name, startedAt)
	}
	if opts.Hooks != nil {
		opts.Hooks.BeforeSignal(s.Name)
	}

	var scopeToken context.Context
	if s.Scope != nil {
		scopeToken = s.Scope.Token()
	}
	ctx, cancel := linkContext(parent, scopeToken)
	releaseOnReturn := true
	defer func() {
		if releaseOnReturn {
			cancel()
		}
	}()

	strategy := opts.TimeoutStrategy
	if strategy == nil {
		strategy = timeout.Default{}
	}
	effectiveTimeout, cancelOnTimeout := strategy.Timeout(s, timeout.Options{
		CancelIndividualOnTimeout: opts.CancelIndividualOnTimeout,
	})

	waitDone := make(chan error, 1)
	go func() {
		if s.Wait == nil {
			waitDone <- nil
			return
		}
		waitDone <- s.Wait(ctx)
	}()

	var result signal.Result
	result.Name = s.Name

	if effectiveTimeout != nil {
		timer := time.NewTimer(*effectiveTimeout)
		select {
		case err := <-waitDone:
			timer.Stop()
			classify(&result, s, parent, err)
		case <-timer.C:
			if cancelOnTimeout {
				cancel()
			} else {
				// Leave the signal's wait running; release the linked
				// source only once that wait returns.
				releaseOnReturn = false
				go func() {
					<-waitDone
					cancel()
				}()
			}
			if s.CancelScopeOnFailure && s.Scope != nil {
				s.Scope.Cancel(scope.ReasonBundleCancelled, s.Name)
			}
			result.Status = signal.StatusTimedOut
			result.CancelReason = scope.ReasonPerSignalTimeout
			result.TriggeredBy = s.Name
		}
	} else {
		err := <-waitDone
		classify(&result, s, parent, err)
	}

	result.StartedAt = startedAt
	result.CompletedAt = clock.Elapsed()
	result.Elapsed = result.CompletedAt - result.StartedAt

	if opts.Metrics != nil {
		opts.Metrics.RecordSignalDuration(s.Name, result.Elapsed)
		opts.Metrics.RecordSignalStatus(s.Name, result.Status)
	}
	if opts.Hooks != nil {
		opts.Hooks.AfterSignal(result)
	}
	if opts.Listener != nil {
		opts.Listener.SignalCompleted(result)
	}

	return result
}

// cancelledBeforeAcquire records a signal whose parallelism permit was
// never granted because runCtx was already cancelled when Acquire
// returned. It never started s.Wait, so no BeforeSignal/SignalStarted
// fires for it, but it is classified and reported through the same
// Metrics/Hooks/Listener path as any other finished signal so callers
// never see a signal silently missing from the result set.
func cancelledBeforeAcquire(s signal.Signal, runCtx context.Context, clock *Clock, opts Options, acquireErr error) signal.Result {
	at := clock.Elapsed()

	var result signal.Result
	result.Name = s.Name
	classify(&result, s, runCtx, acquireErr)
	result.StartedAt = at
	result.CompletedAt = at

	if opts.Metrics != nil {
		opts.Metrics.RecordSignalDuration(s.Name, result.Elapsed)
		opts.Metrics.RecordSignalStatus(s.Name, result.Status)
	}
	if opts.Hooks != nil {
		opts.Hooks.AfterSignal(result)
	}
	if opts.Listener != nil {
		opts.Listener.SignalCompleted(result)
	}
	return result
}

// classify attributes a wait outcome that wasn't a per-signal timeout:
// success, a cancellation (attributed by priority scope > global >
// external), or an ordinary failure.
func classify(result *signal.Result, s signal.Signal, parent context.Context, err error) {
	if err == nil {
		result.Status = signal.StatusSucceeded
		return
	}

	if isCancellation(err) {
		if s.Scope != nil && s.Scope.Cancelled() {
			reason, triggeredBy := s.Scope.Reason()
			result.Status = signal.StatusCancelled
			result.CancelReason = reason
			result.TriggeredBy = triggeredBy
			return
		}
		if parent.Err() != nil {
			result.Status = signal.StatusTimedOut
			result.CancelReason = scope.ReasonGlobalTimeout
			return
		}
		result.Status = signal.StatusTimedOut
		result.CancelReason = scope.ReasonExternalCancellation
		return
	}

	result.Failure = err
	result.Status = signal.StatusFailed
	if s.CancelScopeOnFailure && s.Scope != nil {
		s.Scope.Cancel(scope.ReasonBundleCancelled, s.Name)
	}
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
