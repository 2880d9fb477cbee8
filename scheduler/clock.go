package scheduler

import "time"

// Clock hands out monotonic offsets from run-start, the offsets every
// signal.Result and IgnitionResult timing field is expressed in.
type Clock struct {
	start time.Time
}

// NewClock starts a clock at the current instant.
func NewClock() *Clock {
	return &Clock{start: time.Now()}
}

// Elapsed returns the time elapsed since the clock started.
func (c *Clock) Elapsed() time.Duration {
	return time.Since(c.start)
}
