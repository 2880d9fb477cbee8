package ignerr

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestErrorIncludesWhyAndCause(t *testing.T) {
	cause := errors.New("underlying")
	e := &IgnitionError{Code: CodeNegativeTimeout, What: "bad timeout", Why: "signal x", Cause: cause}

	msg := e.Error()
	if !strings.Contains(msg, "bad timeout") || !strings.Contains(msg, "signal x") || !strings.Contains(msg, "underlying") {
		t.Fatalf("expected Error() to include What/Why/Cause, got %q", msg)
	}
}

func TestIsMatchesByCode(t *testing.T) {
	a := CycleDetected("a -> b -> a")
	b := CycleDetected("x -> y -> x")
	if !a.Is(b) {
		t.Fatal("expected two IgnitionErrors with the same code to match Is")
	}
	if a.Is(NegativeTimeout("sig")) {
		t.Fatal("expected errors.Is to reject a different code")
	}
}

func TestUnwrapReturnsCause(t *testing.T) {
	cause := errors.New("boom")
	e := &IgnitionError{Cause: cause}
	if !errors.Is(e, e) {
		t.Fatal("sanity: Is should match itself")
	}
	if errors.Unwrap(e) != cause {
		t.Fatal("expected Unwrap to return the recorded cause")
	}
}

func TestCategoryLookup(t *testing.T) {
	if CycleDetected("x").Category() != CategoryConflict {
		t.Fatal("expected cycle errors to categorize as Conflict")
	}
	if NegativeTimeout("x").Category() != CategoryBadRequest {
		t.Fatal("expected negative timeout to categorize as BadRequest")
	}
}

func TestMarshalJSONEmbedsCause(t *testing.T) {
	e := &IgnitionError{Code: CodeMissingGraph, What: "missing graph", Cause: errors.New("no graph set")}
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("unexpected marshal error: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unexpected unmarshal error: %v", err)
	}
	if out["cause"] != "no graph set" {
		t.Fatalf("expected embedded cause message, got %v", out["cause"])
	}
	if out["code"] != string(CodeMissingGraph) {
		t.Fatalf("expected code field to round-trip, got %v", out["code"])
	}
}

func TestConstructors(t *testing.T) {
	cases := []*IgnitionError{
		CycleDetected("a -> b -> a"),
		NegativeTimeout("sig"),
		InvalidThreshold(1.5),
		MissingGraph(),
		UnresolvedDependency("a", "b"),
		DuplicateSignal("a"),
	}
	for _, e := range cases {
		if e.Code == "" {
			t.Fatalf("expected non-empty code for %+v", e)
		}
		if e.Error() == "" {
			t.Fatalf("expected non-empty message for %+v", e)
		}
	}
}
