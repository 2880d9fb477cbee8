// Package discovery loads signal definitions from YAML files on disk so
// the demo CLI can assemble a run without hand-writing Go structs for
// every signal. Each definition names a "type" tag resolved against a
// caller-supplied registry of concrete Wait implementations.
package discovery

import (
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/randalmurphal/ignition/graph"
	"github.com/randalmurphal/ignition/signal"
)

// Definition is one signal's on-disk declaration.
type Definition struct {
	Name                 string   `yaml:"name"`
	Type                 string   `yaml:"type"`
	Timeout              Duration `yaml:"timeout"`
	Stage                int      `yaml:"stage"`
	DependsOn            []string `yaml:"depends_on"`
	CancelScopeOnFailure bool     `yaml:"cancel_scope_on_failure"`
}

// Duration unmarshals from a YAML scalar like "5s" using
// time.ParseDuration, since yaml.v3 has no built-in duration type.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// WaiterFactory builds the async wait operation for a definition whose
// Type matches the registry key it was looked up under.
type WaiterFactory func(def Definition) (signal.Wait, error)

// Registry maps a definition's Type tag to the factory that constructs
// its Wait.
type Registry map[string]WaiterFactory

// Discover globs root for YAML files matching pattern (doublestar
// syntax, e.g. "**/*.yaml"), parses each as a Definition, resolves its
// Type against reg, and returns the materialized signals alongside a
// graph.Builder pre-loaded with the declared dependency edges.
func Discover(root, pattern string, reg Registry) ([]signal.Signal, *graph.Builder, error) {
	fsys := os.DirFS(root)
	matches, err := doublestar.Glob(fsys, pattern)
	if err != nil {
		return nil, nil, fmt.Errorf("globbing signal definitions: %w", err)
	}

	builder := graph.NewBuilder()
	signals := make([]signal.Signal, 0, len(matches))

	for _, path := range matches {
		def, err := parseDefinition(fsys, path)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}

		factory, ok := reg[def.Type]
		if !ok {
			return nil, nil, fmt.Errorf("%s: no waiter registered for type %q", path, def.Type)
		}
		wait, err := factory(def)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: building waiter: %w", path, err)
		}

		signals = append(signals, signal.Signal{
			Name:                 def.Name,
			Timeout:              time.Duration(def.Timeout),
			Wait:                 wait,
			Stage:                def.Stage,
			CancelScopeOnFailure: def.CancelScopeOnFailure,
		})

		builder.AddSignal(def.Name)
		for _, dep := range def.DependsOn {
			builder.DependsOn(def.Name, dep)
		}
	}

	return signals, builder, nil
}

func parseDefinition(fsys fs.FS, path string) (Definition, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return Definition{}, err
	}
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return Definition{}, err
	}
	if def.Name == "" {
		return Definition{}, fmt.Errorf("missing required field: name")
	}
	return def, nil
}
