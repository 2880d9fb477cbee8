package scheduler

import (
	"strconv"
	"strings"
)

// FailureEntry pairs a signal name with the failure value it captured.
type FailureEntry struct {
	Name string
	Err  error
}

// AggregateError is surfaced to the caller when a Policy stops a run: it
// carries every captured failure value, in result order.
type AggregateError struct {
	Failures []FailureEntry
}

// Error implements the error interface.
func (e *AggregateError) Error() string {
	var b strings.Builder
	b.WriteString("ignition: policy stopped the run with ")
	if len(e.Failures) == 1 {
		b.WriteString("1 failure: ")
	} else {
		b.WriteString(strconv.Itoa(len(e.Failures)))
		b.WriteString(" failures: ")
	}
	for i, f := range e.Failures {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(f.Name)
		b.WriteString(": ")
		b.WriteString(f.Err.Error())
	}
	return b.String()
}
