// Package ignition sequences, times, and reports on the asynchronous
// initialization work ("signals") a long-running process must complete
// before it is safe to serve traffic. A Coordinator registers signals,
// an optional dependency graph, and options, then drives exactly one
// run under whichever of the four scheduling strategies the options
// select.
package ignition

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/randalmurphal/ignition/event"
	"github.com/randalmurphal/ignition/graph"
	"github.com/randalmurphal/ignition/ignerr"
	"github.com/randalmurphal/ignition/metrics"
	"github.com/randalmurphal/ignition/policy"
	"github.com/randalmurphal/ignition/scheduler"
	"github.com/randalmurphal/ignition/signal"
	"github.com/randalmurphal/ignition/timeout"
)

// State is the coordinator's lifecycle state. Transitions are one-shot
// and monotonic: NotStarted -> Running -> one of {Completed, Failed,
// TimedOut}.
type State int32

const (
	StateNotStarted State = iota
	StateRunning
	StateCompleted
	StateFailed
	StateTimedOut
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "NotStarted"
	case StateRunning:
		return "Running"
	case StateCompleted:
		return "Completed"
	case StateFailed:
		return "Failed"
	case StateTimedOut:
		return "TimedOut"
	default:
		return "Unknown"
	}
}

// Options configures a Coordinator's single run. The zero value is
// usable: it resolves to parallel mode, a 5s global timeout, and
// BestEffort policy, matching the defaults below.
type Options struct {
	GlobalTimeout             time.Duration
	Policy                    policy.Policy
	ExecutionMode             policy.ExecutionMode
	MaxDegreeOfParallelism    int
	CancelOnGlobalTimeout     bool
	CancelIndividualOnTimeout bool
	CancelDependentsOnFailure bool
	StagePolicy               scheduler.StagePolicy
	EarlyPromotionThreshold   float64
	StageModes                map[int]policy.ExecutionMode
	TimeoutStrategy           timeout.Strategy
	Metrics                   metrics.Sink
	Listener                  event.Listener
	Hooks                     event.Hooks
	Logger                    *slog.Logger
	Graph                     *graph.Graph // required when ExecutionMode is ModeDependencyAware
}

const defaultGlobalTimeout = 5 * time.Second

func (o Options) withDefaults() Options {
	if o.GlobalTimeout == 0 {
		o.GlobalTimeout = defaultGlobalTimeout
	}
	if o.Policy == nil {
		o.Policy = policy.BestEffort{}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

func (o Options) validate() error {
	if o.GlobalTimeout < 0 {
		return ignerr.NegativeTimeout("<global>")
	}
	if o.EarlyPromotionThreshold < 0 || o.EarlyPromotionThreshold > 1 {
		return ignerr.InvalidThreshold(o.EarlyPromotionThreshold)
	}
	if o.ExecutionMode == policy.ModeDependencyAware && o.Graph == nil {
		return ignerr.MissingGraph()
	}
	return nil
}

// Coordinator is a single-use, idempotent execution engine. Construct
// with New, which takes the signals, then call Run. Run is
// lazy and memoized: the first call executes the signals; every
// subsequent call (concurrent or not) observes the same result.
type Coordinator struct {
	opts    Options
	signals []signal.Signal

	mu      sync.Mutex
	started bool
	done    chan struct{}
	state   atomic.Int32
	result  scheduler.IgnitionResult
	runErr  error
}

// New constructs a Coordinator over the given signals and options.
// Signals are copied at construction; the coordinator owns them for the
// run's lifetime and callers must not mutate them afterward.
func New(signals []signal.Signal, opts Options) (*Coordinator, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	onHandlerPanic := func(method string, recovered any) {
		logger.Warn("event handler panicked, run continues unaffected",
			"method", method, "recovered", recovered)
	}
	opts.Listener = event.SafeListener{Inner: opts.Listener, OnError: onHandlerPanic}
	opts.Hooks = event.SafeHooks{Inner: opts.Hooks, OnError: onHandlerPanic}

	owned := append([]signal.Signal(nil), signals...)
	return &Coordinator{
		opts:    opts,
		signals: owned,
		done:    make(chan struct{}),
	}, nil
}

// State returns the coordinator's current state. Safe to call from any
// goroutine at any time; the read is lock-free.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// Run executes the coordinator's signals exactly once. The first caller
// drives execution; concurrent and later callers block until that run
// completes and then observe the identical result and error.
func (c *Coordinator) Run(ctx context.Context) (scheduler.IgnitionResult, error) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		<-c.done
		return c.result, c.runErr
	}
	c.started = true
	c.mu.Unlock()

	c.state.Store(int32(StateRunning))

	if c.opts.Hooks != nil {
		c.opts.Hooks.BeforeIgnition()
	}

	schedOpts := scheduler.Options{
		GlobalTimeout:             c.opts.GlobalTimeout,
		Policy:                    c.opts.Policy,
		Mode:                      c.opts.ExecutionMode,
		MaxDegreeOfParallelism:    c.opts.MaxDegreeOfParallelism,
		CancelOnGlobalTimeout:     c.opts.CancelOnGlobalTimeout,
		CancelIndividualOnTimeout: c.opts.CancelIndividualOnTimeout,
		CancelDependentsOnFailure: c.opts.CancelDependentsOnFailure,
		StagePolicy:               c.opts.StagePolicy,
		EarlyPromotionThreshold:   c.opts.EarlyPromotionThreshold,
		StageModes:                c.opts.StageModes,
		TimeoutStrategy:           c.opts.TimeoutStrategy,
		Metrics:                   c.opts.Metrics,
		Listener:                  c.opts.Listener,
		Hooks:                     c.opts.Hooks,
		Logger:                    c.opts.Logger,
		Graph:                     c.opts.Graph,
	}

	clock := scheduler.NewClock()

	var result scheduler.IgnitionResult
	var runErr error
	switch c.opts.ExecutionMode {
	case policy.ModeSequential:
		result, runErr = scheduler.RunSequential(ctx, c.signals, clock, schedOpts)
	case policy.ModeDependencyAware:
		result, runErr = scheduler.RunDAG(ctx, c.signals, c.opts.Graph, clock, schedOpts)
	case policy.ModeStaged:
		result, runErr = scheduler.RunStaged(ctx, c.signals, clock, schedOpts)
	default:
		result, runErr = scheduler.RunParallel(ctx, c.signals, clock, schedOpts)
	}

	result.RunID = uuid.New().String()

	if c.opts.Metrics != nil {
		c.opts.Metrics.RecordTotalDuration(result.TotalDuration)
	}

	final := classifyState(result, runErr)
	c.state.Store(int32(final))

	if c.opts.Hooks != nil {
		c.opts.Hooks.AfterIgnition()
	}
	if c.opts.Listener != nil {
		c.opts.Listener.CoordinatorCompleted(final.String())
	}

	c.mu.Lock()
	c.result = result
	c.runErr = runErr
	c.mu.Unlock()
	close(c.done)

	return result, runErr
}

// Result blocks until Run has produced a result (starting one is the
// caller's job; Result does not start a run on its own) and returns it.
func (c *Coordinator) Result() scheduler.IgnitionResult {
	<-c.done
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

func classifyState(result scheduler.IgnitionResult, runErr error) State {
	if result.TimedOut {
		return StateTimedOut
	}
	if runErr != nil {
		return StateFailed
	}
	for _, r := range result.Results {
		if r.Status == signal.StatusFailed {
			return StateFailed
		}
	}
	return StateCompleted
}
