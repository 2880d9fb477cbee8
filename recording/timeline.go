package recording

import (
	"sort"

	"github.com/randalmurphal/ignition/scheduler"
	"github.com/randalmurphal/ignition/signal"
)

// Event is one point in a Timeline's sweep: a signal starting or ending,
// tagged with how many signals were running just after the event (a
// start counts its own signal; an end no longer does).
type Event struct {
	SignalName  string  `json:"signalName"`
	AtMs        float64 `json:"atMs"`
	Kind        string  `json:"kind"` // "start" or "end"
	Concurrency int     `json:"concurrency"`
}

// StageBand marks a stage's occupied time range, for Gantt rendering.
type StageBand struct {
	Stage   int     `json:"stage"`
	StartMs float64 `json:"startMs"`
	EndMs   float64 `json:"endMs"`
}

// Marker flags a notable instant on the timeline (the configured global
// timeout, or the run's completion).
type Marker struct {
	Label string  `json:"label"`
	AtMs  float64 `json:"atMs"`
}

// Timeline is a Gantt-shaped view derived from the same data as a
// Recording.
type Timeline struct {
	Events         []Event     `json:"events"`
	StageBands     []StageBand `json:"stageBands,omitempty"`
	Markers        []Marker    `json:"markers,omitempty"`
	MaxConcurrency int         `json:"maxConcurrency"`
}

// BuildTimeline sweeps the run's signal start/end instants and derives
// concurrency at each, plus stage bands (when the run was staged) and
// global-timeout/completion markers.
func BuildTimeline(result scheduler.IgnitionResult, globalTimeout float64) Timeline {
	type sweepPoint struct {
		name  string
		at    float64
		delta int
		kind  string
	}

	var points []sweepPoint
	for _, r := range result.Results {
		if r.Status == signal.StatusSkipped {
			continue
		}
		points = append(points, sweepPoint{name: r.Name, at: msOf(r.StartedAt), delta: 1, kind: "start"})
		points = append(points, sweepPoint{name: r.Name, at: msOf(r.CompletedAt), delta: -1, kind: "end"})
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i].at == points[j].at {
			return points[i].delta > points[j].delta
		}
		return points[i].at < points[j].at
	})

	events := make([]Event, 0, len(points))
	running, maxConc := 0, 0
	for _, p := range points {
		running += p.delta
		if running > maxConc {
			maxConc = running
		}
		events = append(events, Event{SignalName: p.name, AtMs: p.at, Kind: p.kind, Concurrency: running})
	}

	var bands []StageBand
	for _, sg := range result.Stages {
		if len(sg.Results) == 0 {
			continue
		}
		start, end := msOf(sg.Results[0].StartedAt), msOf(sg.Results[0].CompletedAt)
		for _, r := range sg.Results {
			if s := msOf(r.StartedAt); s < start {
				start = s
			}
			if e := msOf(r.CompletedAt); e > end {
				end = e
			}
		}
		bands = append(bands, StageBand{Stage: sg.Stage, StartMs: start, EndMs: end})
	}

	markers := []Marker{{Label: "completed", AtMs: msOf(result.TotalDuration)}}
	if globalTimeout > 0 {
		markers = append(markers, Marker{Label: "globalTimeout", AtMs: globalTimeout})
	}

	return Timeline{
		Events:         events,
		StageBands:     bands,
		Markers:        markers,
		MaxConcurrency: maxConc,
	}
}
