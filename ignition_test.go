package ignition

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/randalmurphal/ignition/graph"
	"github.com/randalmurphal/ignition/policy"
	"github.com/randalmurphal/ignition/signal"
)

func succeedSignal(name string) signal.Signal {
	return signal.Signal{Name: name, Wait: func(context.Context) error { return nil }}
}

func TestNewRejectsNegativeTimeout(t *testing.T) {
	_, err := New(nil, Options{GlobalTimeout: -time.Second})
	if err == nil {
		t.Fatal("expected an error for a negative global timeout")
	}
}

func TestNewRejectsOutOfRangeThreshold(t *testing.T) {
	_, err := New(nil, Options{EarlyPromotionThreshold: 1.5})
	if err == nil {
		t.Fatal("expected an error for a threshold above 1")
	}
}

func TestNewRejectsDependencyAwareWithoutGraph(t *testing.T) {
	_, err := New(nil, Options{ExecutionMode: policy.ModeDependencyAware})
	if err == nil {
		t.Fatal("expected an error when dependency-aware mode has no graph")
	}
}

func TestRunIsMemoizedAcrossConcurrentCallers(t *testing.T) {
	var calls int32
	mu := sync.Mutex{}
	signals := []signal.Signal{{Name: "a", Wait: func(context.Context) error {
		mu.Lock()
		calls++
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		return nil
	}}}
	coord, err := New(signals, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var wg sync.WaitGroup
	runIDs := make([]string, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, _ := coord.Run(context.Background())
			runIDs[i] = result.RunID
		}(i)
	}
	wg.Wait()

	mu.Lock()
	if calls != 1 {
		t.Fatalf("expected the signal to run exactly once, ran %d times", calls)
	}
	mu.Unlock()

	for _, id := range runIDs {
		if id != runIDs[0] {
			t.Fatal("expected every caller to observe the identical cached RunID")
		}
	}
}

func TestStateTransitionsMonotonically(t *testing.T) {
	signals := []signal.Signal{succeedSignal("a")}
	coord, err := New(signals, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if coord.State() != StateNotStarted {
		t.Fatalf("expected NotStarted before Run, got %v", coord.State())
	}
	_, _ = coord.Run(context.Background())
	if coord.State() != StateCompleted {
		t.Fatalf("expected Completed after a successful run, got %v", coord.State())
	}
}

func TestStateReflectsFailure(t *testing.T) {
	signals := []signal.Signal{{Name: "a", Wait: func(context.Context) error { return errors.New("boom") }}}
	coord, err := New(signals, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, _ = coord.Run(context.Background())
	if coord.State() != StateFailed {
		t.Fatalf("expected Failed, got %v", coord.State())
	}
}

func TestStateReflectsTimeout(t *testing.T) {
	signals := []signal.Signal{{Name: "a", Wait: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}}
	coord, err := New(signals, Options{GlobalTimeout: 10 * time.Millisecond, CancelOnGlobalTimeout: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, _ = coord.Run(context.Background())
	if coord.State() != StateTimedOut {
		t.Fatalf("expected TimedOut, got %v", coord.State())
	}
}

func TestCoordinatorCompletedFiresEvenOnFailure(t *testing.T) {
	var completedWith string
	listener := &capturingListener{}
	signals := []signal.Signal{{Name: "a", Wait: func(context.Context) error { return errors.New("boom") }}}
	coord, err := New(signals, Options{Listener: listener})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, _ = coord.Run(context.Background())
	completedWith = listener.completedState
	if completedWith != StateFailed.String() {
		t.Fatalf("expected CoordinatorCompleted to report Failed, got %q", completedWith)
	}
}

type capturingListener struct {
	completedState string
}

func (l *capturingListener) SignalStarted(string, time.Duration) {}
func (l *capturingListener) SignalCompleted(signal.Result)       {}
func (l *capturingListener) GlobalTimeoutReached(time.Duration)  {}
func (l *capturingListener) CoordinatorCompleted(state string)   { l.completedState = state }

func TestRunDependencyAwareUsesGraph(t *testing.T) {
	b := graph.NewBuilder()
	b.AddSignal("a")
	b.AddSignal("b")
	b.DependsOn("b", "a")
	g, err := b.Build()
	if err != nil {
		t.Fatalf("unexpected graph error: %v", err)
	}
	signals := []signal.Signal{succeedSignal("a"), succeedSignal("b")}
	coord, err := New(signals, Options{ExecutionMode: policy.ModeDependencyAware, Graph: g})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result, runErr := coord.Run(context.Background())
	if runErr != nil {
		t.Fatalf("unexpected run error: %v", runErr)
	}
	if len(result.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(result.Results))
	}
}

type panicListener struct{}

func (panicListener) SignalStarted(string, time.Duration) { panic("boom: listener started") }
func (panicListener) SignalCompleted(signal.Result)       { panic("boom: listener completed") }
func (panicListener) GlobalTimeoutReached(time.Duration)  { panic("boom: listener timeout") }
func (panicListener) CoordinatorCompleted(string)         { panic("boom: listener coordinator") }

type panicHooks struct{}

func (panicHooks) BeforeIgnition()           { panic("boom: hooks before") }
func (panicHooks) AfterIgnition()            { panic("boom: hooks after") }
func (panicHooks) BeforeSignal(string)       { panic("boom: hooks before signal") }
func (panicHooks) AfterSignal(signal.Result) { panic("boom: hooks after signal") }

// A panicking caller-supplied Listener or Hooks must never crash the
// run: every method is wrapped in event.SafeListener/event.SafeHooks at
// construction, so the panic is recovered and logged, and the run
// completes exactly as it would without the handler.
func TestRunSurvivesPanickingListenerAndHooks(t *testing.T) {
	signals := []signal.Signal{succeedSignal("a"), succeedSignal("b")}
	coord, err := New(signals, Options{Listener: panicListener{}, Hooks: panicHooks{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, runErr := coord.Run(context.Background())
	if runErr != nil {
		t.Fatalf("unexpected run error: %v", runErr)
	}
	if len(result.Results) != 2 {
		t.Fatalf("expected 2 results despite panicking handlers, got %d", len(result.Results))
	}
	for _, r := range result.Results {
		if r.Status != signal.StatusSucceeded {
			t.Fatalf("expected %s to succeed, got %v", r.Name, r.Status)
		}
	}
	if coord.State() != StateCompleted {
		t.Fatalf("expected Completed despite panicking handlers, got %v", coord.State())
	}
}

func TestResultBlocksUntilRunCompletes(t *testing.T) {
	signals := []signal.Signal{{Name: "a", Wait: func(context.Context) error {
		time.Sleep(20 * time.Millisecond)
		return nil
	}}}
	coord, err := New(signals, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	go func() { _, _ = coord.Run(context.Background()) }()
	result := coord.Result()
	if len(result.Results) != 1 || result.Results[0].Status != signal.StatusSucceeded {
		t.Fatalf("expected Result to observe the completed run, got %+v", result)
	}
}
