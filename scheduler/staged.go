package scheduler

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/randalmurphal/ignition/policy"
	"github.com/randalmurphal/ignition/signal"
	"golang.org/x/sync/semaphore"
)

// RunStaged partitions signals by Stage (default 0) and runs stages in
// ascending order, each stage using its declared inner mode (parallel,
// sequential, or dependency-aware, per opts.StageModes) internally.
// StagePolicy decides whether a stage's outcome lets the run advance to
// the next stage; a halted run still records every later stage's
// signals as Skipped with zero duration.
func RunStaged(callerCtx context.Context, signals []signal.Signal, clock *Clock, opts Options) (IgnitionResult, error) {
	stageNums, byStage := partitionStages(signals)

	runCtx, cancelRun := context.WithCancel(callerCtx)
	defer cancelRun()

	done := make(chan struct{})
	deadline := startGlobalDeadline(runCtx, cancelRun, clock, opts, done)
	defer close(done)

	stragglers := newStragglerTracker()

	var stageResults []StageResult
	var failures []FailureEntry
	halted := false

	for _, stageNum := range stageNums {
		stageSignals := byStage[stageNum]

		if halted || runCtx.Err() != nil {
			skipped := make([]signal.Result, 0, len(stageSignals))
			for _, s := range stageSignals {
				skipped = append(skipped, signal.Result{Name: s.Name, Status: signal.StatusSkipped})
			}
			succ, fail, to := tally(skipped)
			stageResults = append(stageResults, StageResult{
				Stage: stageNum, Results: skipped,
				Succeeded: succ, Failed: fail, TimedOut: to, Completed: false,
			})
			continue
		}

		stageStart := clock.Elapsed()
		stageOpts := opts
		stageOpts.GlobalTimeout = 0 // the global deadline is already watched for the whole run

		var stageInner Options = stageOpts
		var stageRes IgnitionResult
		var stageErr error

		innerMode := opts.StageModes[stageNum] // zero value is ModeParallel
		switch innerMode {
		case policy.ModeSequential:
			stageRes, stageErr = RunSequential(runCtx, stageSignals, clock, stageInner)
		case policy.ModeDependencyAware:
			stageRes, stageErr = RunDAG(runCtx, stageSignals, opts.Graph, clock, stageInner)
		default:
			promoted := false
			if opts.StagePolicy == StageEarlyPromotion && opts.EarlyPromotionThreshold > 0 {
				stageRes, stageErr, promoted = runStageWithEarlyPromotion(runCtx, stageSignals, clock, stageInner, opts, stragglers)
			} else {
				stageRes, stageErr = RunParallel(runCtx, stageSignals, clock, stageInner)
			}
			if promoted {
				sr := StageResult{
					Stage: stageNum, Duration: clock.Elapsed() - stageStart,
					Results: stageRes.Results, Completed: true, Promoted: true,
				}
				sr.Succeeded, sr.Failed, sr.TimedOut = tally(stageRes.Results)
				stageResults = append(stageResults, sr)
				if stageErr != nil {
					failures = append(failures, failuresOf(stageRes.Results)...)
				}
				continue
			}
		}

		succ, fail, to := tally(stageRes.Results)
		stageDur := clock.Elapsed() - stageStart

		advance := decideStageAdvance(opts.StagePolicy, succ, fail, to, len(stageSignals))
		stageResults = append(stageResults, StageResult{
			Stage: stageNum, Duration: stageDur, Results: stageRes.Results,
			Succeeded: succ, Failed: fail, TimedOut: to, Completed: true,
		})

		if stageErr != nil {
			failures = append(failures, failuresOf(stageRes.Results)...)
		}

		if deadline.Elapsed() && opts.CancelOnGlobalTimeout {
			halted = true
			continue
		}
		if !advance {
			halted = true
			cancelRun()
		}
	}

	// Every promoted stage left StatusPending placeholders for signals
	// still running in the background. Block here, once, until every
	// straggler across the whole run has reported its real terminal
	// outcome, then patch those placeholders before anything is returned
	// to the caller — Run is one-shot and memoized, so this is the last
	// chance for a straggler's outcome to reach it.
	stragglers.wait()
	for i := range stageResults {
		if !stageResults[i].Promoted {
			continue
		}
		patched := false
		for j := range stageResults[i].Results {
			if stageResults[i].Results[j].Status != signal.StatusPending {
				continue
			}
			if real, ok := stragglers.get(stageResults[i].Results[j].Name); ok {
				stageResults[i].Results[j] = real
				patched = true
			}
		}
		if patched {
			stageResults[i].Succeeded, stageResults[i].Failed, stageResults[i].TimedOut = tally(stageResults[i].Results)
			failures = append(failures, failuresOf(stageResults[i].Results)...)
		}
	}

	var allResults []signal.Result
	for _, sr := range stageResults {
		allResults = append(allResults, sr.Results...)
	}

	result := IgnitionResult{
		TotalDuration: clock.Elapsed(),
		Results:       allResults,
		TimedOut:      anyTimedOut(allResults),
		Stages:        stageResults,
	}

	if halted && len(failures) > 0 {
		return result, &AggregateError{Failures: failures}
	}
	return result, nil
}

func partitionStages(signals []signal.Signal) ([]int, map[int][]signal.Signal) {
	byStage := make(map[int][]signal.Signal)
	for _, s := range signals {
		byStage[s.Stage] = append(byStage[s.Stage], s)
	}
	nums := make([]int, 0, len(byStage))
	for n := range byStage {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums, byStage
}

// decideStageAdvance applies opts.StagePolicy to one completed stage's
// tally. EarlyPromotion without a reached threshold falls back to
// AllMustSucceed-style gating for the purposes of this helper; the
// promotion path itself is handled by runStageWithEarlyPromotion before
// this is reached.
func decideStageAdvance(sp StagePolicy, succeeded, failed, timedOut, total int) bool {
	switch sp {
	case StageFailFast:
		return failed == 0 && timedOut == 0
	case StageBestEffort:
		return true
	case StageEarlyPromotion:
		return failed == 0 && timedOut == 0
	default: // StageAllMustSucceed
		return succeeded == total
	}
}

// stragglerTracker collects the real terminal outcomes of signals still
// running in the background after their stage was promoted past. Each
// straggler is tracked with wg.Add(1) before its stage hands control
// back to RunStaged, and published exactly once when it finishes;
// RunStaged waits on the whole tracker before returning so no straggler
// outcome is ever dropped, however many stages overlapped in the
// meantime.
type stragglerTracker struct {
	wg sync.WaitGroup
	mu sync.Mutex
	by map[string]signal.Result
}

func newStragglerTracker() *stragglerTracker {
	return &stragglerTracker{by: make(map[string]signal.Result)}
}

func (t *stragglerTracker) track(n int) {
	t.wg.Add(n)
}

func (t *stragglerTracker) publish(r signal.Result) {
	t.mu.Lock()
	t.by[r.Name] = r
	t.mu.Unlock()
	t.wg.Done()
}

func (t *stragglerTracker) wait() {
	t.wg.Wait()
}

func (t *stragglerTracker) get(name string) (signal.Result, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.by[name]
	return r, ok
}

// runStageWithEarlyPromotion runs a parallel stage but advances to the
// next stage as soon as ceil(total * threshold) signals have succeeded,
// leaving stragglers to finish in the background. Every straggler is
// registered with stragglers before the promoting goroutine returns, and
// published into it as each finishes — stragglers is owned by RunStaged,
// which blocks on it once for the whole run before constructing the
// final IgnitionResult, so a promoted signal's real outcome always
// reaches the result the caller holds. A hard global timeout always
// dominates: promotion never happens once the deadline has fired with
// CancelOnGlobalTimeout set.
func runStageWithEarlyPromotion(runCtx context.Context, stageSignals []signal.Signal, clock *Clock, stageOpts Options, runOpts Options, stragglers *stragglerTracker) (IgnitionResult, error, bool) {
	threshold := int(math.Ceil(float64(len(stageSignals)) * runOpts.EarlyPromotionThreshold))
	if threshold <= 0 || threshold >= len(stageSignals) {
		res, err := RunParallel(runCtx, stageSignals, clock, stageOpts)
		return res, err, false
	}

	var sem *semaphore.Weighted
	if runOpts.MaxDegreeOfParallelism > 0 {
		sem = semaphore.NewWeighted(int64(runOpts.MaxDegreeOfParallelism))
	}

	type partial struct {
		result signal.Result
		idx    int
	}
	resultsCh := make(chan partial, len(stageSignals))
	for i, s := range stageSignals {
		go func(i int, s signal.Signal) {
			if sem != nil {
				if err := sem.Acquire(runCtx, 1); err != nil {
					resultsCh <- partial{result: cancelledBeforeAcquire(s, runCtx, clock, stageOpts, err), idx: i}
					return
				}
				defer sem.Release(1)
			}
			resultsCh <- partial{result: executeOne(runCtx, s, clock, stageOpts), idx: i}
		}(i, s)
	}

	var mu sync.Mutex
	collected := make([]signal.Result, len(stageSignals))
	have := make([]bool, len(stageSignals))
	succeeded := 0
	gotten := 0

	for gotten < len(stageSignals) {
		p := <-resultsCh
		mu.Lock()
		collected[p.idx] = p.result
		have[p.idx] = true
		mu.Unlock()
		gotten++
		if p.result.Status == signal.StatusSucceeded {
			succeeded++
		}
		if succeeded >= threshold && runCtx.Err() == nil {
			mu.Lock()
			out := make([]signal.Result, len(stageSignals))
			copy(out, collected)
			var strayIdx []int
			for i := range out {
				if !have[i] {
					out[i] = signal.Result{Name: stageSignals[i].Name, Status: signal.StatusPending}
					strayIdx = append(strayIdx, i)
				}
			}
			mu.Unlock()

			stragglers.track(len(strayIdx))
			go func() {
				for range strayIdx {
					pp := <-resultsCh
					stragglers.publish(pp.result)
				}
			}()

			return IgnitionResult{Results: out}, nil, true
		}
	}

	return IgnitionResult{Results: collected}, nil, false
}
