package graph

import (
	"testing"

	"github.com/randalmurphal/ignition/ignerr"
)

func TestBuildTopologicalOrderFIFOTieBreak(t *testing.T) {
	b := NewBuilder()
	b.AddSignal("a")
	b.AddSignal("b")
	b.AddSignal("c")
	b.DependsOn("c", "a")
	b.DependsOn("c", "b")

	g, err := b.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	order := g.Signals()
	if len(order) != 3 || order[2] != "c" {
		t.Fatalf("expected c last, got %v", order)
	}
	// a and b are both zero-in-degree roots registered in that order.
	if order[0] != "a" || order[1] != "b" {
		t.Fatalf("expected FIFO tie-break order [a b c], got %v", order)
	}
}

func TestBuildDetectsCycle(t *testing.T) {
	b := NewBuilder()
	b.DependsOn("a", "b")
	b.DependsOn("b", "a")

	_, err := b.Build()
	if err == nil {
		t.Fatal("expected cycle error")
	}
	ierr, ok := err.(*ignerr.IgnitionError)
	if !ok {
		t.Fatalf("expected *ignerr.IgnitionError, got %T", err)
	}
	if ierr.Code != ignerr.CodeCycleDetected {
		t.Fatalf("expected CodeCycleDetected, got %v", ierr.Code)
	}
}

func TestBuildRejectsUnresolvedDependency(t *testing.T) {
	b := NewBuilder()
	b.DependsOn("a", "missing")

	_, err := b.Build()
	if err == nil {
		t.Fatal("expected unresolved-dependency error")
	}
	ierr, ok := err.(*ignerr.IgnitionError)
	if !ok || ierr.Code != ignerr.CodeUnresolvedDependency {
		t.Fatalf("expected CodeUnresolvedDependency, got %v", err)
	}
}

func TestDependenciesDependentsRootsLeaves(t *testing.T) {
	b := NewBuilder()
	b.AddSignal("a")
	b.AddSignal("b")
	b.DependsOn("c", "a")
	b.DependsOn("c", "b")
	b.AddSignal("d")

	g, err := b.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := g.Dependencies("c"); len(got) != 2 {
		t.Fatalf("expected 2 dependencies for c, got %v", got)
	}
	if got := g.Dependents("a"); len(got) != 1 || got[0] != "c" {
		t.Fatalf("expected a's only dependent to be c, got %v", got)
	}

	roots := g.Roots()
	if len(roots) != 3 { // a, b, d each have no dependencies
		t.Fatalf("expected 3 roots, got %v", roots)
	}

	leaves := g.Leaves()
	if len(leaves) != 2 { // c and d have no dependents; a and b are depended on by c
		t.Fatalf("expected 2 leaves, got %v", leaves)
	}

	if !g.Contains("c") || g.Contains("z") {
		t.Fatal("Contains behaved unexpectedly")
	}
	if g.Len() != 4 {
		t.Fatalf("expected Len 4, got %d", g.Len())
	}
}

func TestAddSignalIsIdempotent(t *testing.T) {
	b := NewBuilder()
	b.AddSignal("a")
	b.AddSignal("a")
	g, err := b.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Len() != 1 {
		t.Fatalf("expected a single signal, got %d", g.Len())
	}
}

func TestEmptyGraphIsValid(t *testing.T) {
	b := NewBuilder()
	g, err := b.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Len() != 0 {
		t.Fatalf("expected empty graph, got len %d", g.Len())
	}
}
