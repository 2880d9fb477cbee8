// Package metrics defines ignition's metrics sink contract. Callers wire
// a concrete backend (Prometheus, statsd, ...); ignition itself ships
// only a thread-safe in-memory implementation useful for tests and the
// demo CLI.
package metrics

import (
	"sync"
	"time"

	"github.com/randalmurphal/ignition/signal"
)

// Sink is the metrics contract the coordinator calls into. Implementations
// must be safe for concurrent use; ignition makes no ordering guarantee
// between metric calls and lifecycle event emission.
type Sink interface {
	RecordSignalDuration(name string, d time.Duration)
	RecordSignalStatus(name string, status signal.Status)
	RecordTotalDuration(d time.Duration)
}

// Nop is a Sink that discards everything.
type Nop struct{}

func (Nop) RecordSignalDuration(string, time.Duration) {}
func (Nop) RecordSignalStatus(string, signal.Status)   {}
func (Nop) RecordTotalDuration(time.Duration)          {}

// Memory is a simple thread-safe in-memory Sink, handy for tests and the
// demo CLI's summary output.
type Memory struct {
	mu        sync.Mutex
	durations map[string]time.Duration
	statuses  map[string][]signal.Status
	total     time.Duration
}

// NewMemory returns an initialized Memory sink.
func NewMemory() *Memory {
	return &Memory{
		durations: make(map[string]time.Duration),
		statuses:  make(map[string][]signal.Status),
	}
}

func (m *Memory) RecordSignalDuration(name string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations[name] = d
}

func (m *Memory) RecordSignalStatus(name string, status signal.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[name] = append(m.statuses[name], status)
}

func (m *Memory) RecordTotalDuration(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total = d
}

// Duration returns the last recorded duration for name.
func (m *Memory) Duration(name string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.durations[name]
}

// Statuses returns the recorded status history for name.
func (m *Memory) Statuses(name string) []signal.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]signal.Status, len(m.statuses[name]))
	copy(out, m.statuses[name])
	return out
}

// Total returns the last recorded total run duration.
func (m *Memory) Total() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total
}
