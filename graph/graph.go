// Package graph builds and queries the immutable dependency DAG over
// ignition signals: topological order, cycle diagnostics, and O(1)
// dependency/dependent lookups, all computed once at construction.
package graph

import (
	"fmt"
	"strings"

	"github.com/randalmurphal/ignition/ignerr"
)

// Graph is an immutable DAG of signal names. The empty graph (no
// signals) is valid.
type Graph struct {
	order        []string            // topological order
	dependencies map[string][]string // a -> signals a depends on
	dependents   map[string][]string // b -> signals that depend on b
	index        map[string]bool     // membership
}

// Builder accumulates signals and dependency edges before Build validates
// and sorts them. A dependency edge (a, b) means "a depends on b".
type Builder struct {
	names []string
	seen  map[string]bool
	deps  map[string][]string
}

// NewBuilder returns an empty graph builder.
func NewBuilder() *Builder {
	return &Builder{seen: make(map[string]bool), deps: make(map[string][]string)}
}

// AddSignal registers a signal name, in registration order. Safe to call
// more than once for the same name (idempotent).
func (b *Builder) AddSignal(name string) *Builder {
	if !b.seen[name] {
		b.seen[name] = true
		b.names = append(b.names, name)
	}
	if _, ok := b.deps[name]; !ok {
		b.deps[name] = nil
	}
	return b
}

// DependsOn records that `name` depends on `on` (on must complete first).
func (b *Builder) DependsOn(name, on string) *Builder {
	b.AddSignal(name)
	b.deps[name] = append(b.deps[name], on)
	return b
}

// Build validates that every referenced dependency is a registered
// signal, computes the topological order via Kahn's algorithm draining
// zero-in-degree signals in registration order, and detects cycles via
// DFS over whatever remains unsorted.
func (b *Builder) Build() (*Graph, error) {
	for name, deps := range b.deps {
		for _, d := range deps {
			if !b.seen[d] {
				return nil, ignerr.UnresolvedDependency(name, d)
			}
		}
	}

	dependents := make(map[string][]string, len(b.names))
	inDegree := make(map[string]int, len(b.names))
	for _, n := range b.names {
		inDegree[n] = len(b.deps[n])
	}
	for n, deps := range b.deps {
		for _, d := range deps {
			dependents[d] = append(dependents[d], n)
		}
	}

	queue := make([]string, 0, len(b.names))
	for _, n := range b.names {
		if inDegree[n] == 0 {
			queue = append(queue, n)
		}
	}

	order := make([]string, 0, len(b.names))
	remaining := make(map[string]int, len(inDegree))
	for k, v := range inDegree {
		remaining[k] = v
	}

	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)
		for _, dep := range dependents[n] {
			remaining[dep]--
			if remaining[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(order) != len(b.names) {
		return nil, ignerr.CycleDetected(findCyclePath(b.names, b.deps))
	}

	index := make(map[string]bool, len(b.names))
	for _, n := range b.names {
		index[n] = true
	}

	return &Graph{
		order:        order,
		dependencies: b.deps,
		dependents:   dependents,
		index:        index,
	}, nil
}

// findCyclePath runs a plain DFS to produce one concrete cycle path, in
// the form "s1 -> s2 -> s3 -> s1".
func findCyclePath(names []string, deps map[string][]string) string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(names))
	var stack []string
	var cyclePath []string

	var visit func(n string) bool
	visit = func(n string) bool {
		color[n] = gray
		stack = append(stack, n)
		for _, d := range deps[n] {
			switch color[d] {
			case white:
				if visit(d) {
					return true
				}
			case gray:
				// Found the back edge; extract the cycle from the stack.
				start := 0
				for i, s := range stack {
					if s == d {
						start = i
						break
					}
				}
				cyclePath = append(append([]string(nil), stack[start:]...), d)
				return true
			}
		}
		stack = stack[:len(stack)-1]
		color[n] = black
		return false
	}

	for _, n := range names {
		if color[n] == white {
			if visit(n) {
				return strings.Join(cyclePath, " -> ")
			}
		}
	}
	return fmt.Sprintf("cycle among %v", names)
}

// Signals returns signal names in topological order.
func (g *Graph) Signals() []string { return g.order }

// Dependencies returns the signals `name` depends on.
func (g *Graph) Dependencies(name string) []string { return g.dependencies[name] }

// Dependents returns the signals that depend on `name`.
func (g *Graph) Dependents(name string) []string { return g.dependents[name] }

// Roots returns signals with no dependencies.
func (g *Graph) Roots() []string {
	var roots []string
	for _, n := range g.order {
		if len(g.dependencies[n]) == 0 {
			roots = append(roots, n)
		}
	}
	return roots
}

// Leaves returns signals with no dependents.
func (g *Graph) Leaves() []string {
	var leaves []string
	for _, n := range g.order {
		if len(g.dependents[n]) == 0 {
			leaves = append(leaves, n)
		}
	}
	return leaves
}

// Contains reports whether name is a registered signal.
func (g *Graph) Contains(name string) bool { return g.index[name] }

// Len returns the number of signals in the graph.
func (g *Graph) Len() int { return len(g.order) }
