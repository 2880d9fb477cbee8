package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/randalmurphal/ignition"
	"github.com/randalmurphal/ignition/health"
	"github.com/randalmurphal/ignition/internal/config"
	"github.com/randalmurphal/ignition/internal/demosignals"
	"github.com/randalmurphal/ignition/internal/discovery"
	"github.com/randalmurphal/ignition/policy"
	"github.com/randalmurphal/ignition/scheduler"
	"github.com/randalmurphal/ignition/signal"
)

// demoRegistry resolves the "type" tag of a discovered YAML definition to
// a concrete signal.Wait. It covers the handful of synthetic signal
// shapes the demo CLI and its example signal directories use.
func demoRegistry() discovery.Registry {
	return discovery.Registry{
		"sleep": func(def discovery.Definition) (signal.Wait, error) {
			return demosignals.Sleep(time.Duration(def.Timeout) / 2), nil
		},
		"fail": func(def discovery.Definition) (signal.Wait, error) {
			return demosignals.Fail(time.Duration(def.Timeout)/2, "signal "+def.Name+" failed"), nil
		},
		"never": func(discovery.Definition) (signal.Wait, error) {
			return demosignals.Never(), nil
		},
	}
}

func parseExecutionMode(s string) policy.ExecutionMode {
	switch s {
	case "sequential":
		return policy.ModeSequential
	case "dependencyAware":
		return policy.ModeDependencyAware
	case "staged":
		return policy.ModeStaged
	default:
		return policy.ModeParallel
	}
}

func parsePolicy(s string) policy.Policy {
	switch s {
	case "failFast":
		return policy.FailFast{}
	case "continueOnTimeout":
		return policy.ContinueOnTimeout{}
	default:
		return policy.BestEffort{}
	}
}

func parseStagePolicy(s string) scheduler.StagePolicy {
	switch s {
	case "failFast":
		return scheduler.StageFailFast
	case "bestEffort":
		return scheduler.StageBestEffort
	case "earlyPromotion":
		return scheduler.StageEarlyPromotion
	default:
		return scheduler.StageAllMustSucceed
	}
}

// buildCoordinator discovers signals under dir and wires a Coordinator
// from the merged CLI configuration. Shared by run, record, and serve.
func buildCoordinator(ctx context.Context, dir string, extra ignition.Options) (*ignition.Coordinator, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	signals, builder, err := discovery.Discover(dir, "**/*.yaml", demoRegistry())
	if err != nil {
		return nil, fmt.Errorf("discovering signals: %w", err)
	}

	mode := parseExecutionMode(cfg.ExecutionMode)
	opts := ignition.Options{
		GlobalTimeout:             cfg.GlobalTimeout,
		Policy:                    parsePolicy(cfg.Policy),
		ExecutionMode:             mode,
		MaxDegreeOfParallelism:    cfg.MaxDegreeOfParallelism,
		CancelOnGlobalTimeout:     cfg.CancelOnGlobalTimeout,
		CancelIndividualOnTimeout: cfg.CancelIndividualOnTimeout,
		CancelDependentsOnFailure: cfg.CancelDependentsOnFailure,
		StagePolicy:               parseStagePolicy(cfg.StagePolicy),
		EarlyPromotionThreshold:   cfg.EarlyPromotionThreshold,
		Listener:                  extra.Listener,
		Hooks:                     extra.Hooks,
		Metrics:                   extra.Metrics,
	}

	if mode == policy.ModeDependencyAware || mode == policy.ModeStaged {
		g, err := builder.Build()
		if err != nil {
			return nil, fmt.Errorf("building dependency graph: %w", err)
		}
		opts.Graph = g
	}

	return ignition.New(signals, opts)
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <signals-dir>",
		Short: "Run a coordinator over a directory of YAML signal definitions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, err := buildCoordinator(cmd.Context(), args[0], ignition.Options{})
			if err != nil {
				return err
			}

			result, runErr := runWithSpinner(cmd.Context(), coord, "running signals...")

			if jsonOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if encErr := enc.Encode(result); encErr != nil {
					return encErr
				}
			} else {
				printSummary(coord.State(), result, isatty.IsTerminal(os.Stdout.Fd()))
			}

			return runErr
		},
	}
	return cmd
}

func printSummary(state ignition.State, result scheduler.IgnitionResult, colored bool) {
	header := fmt.Sprintf("ignition: %s (%.0fms)", state, float64(result.TotalDuration.Milliseconds()))
	if colored {
		header = "\033[1m" + header + "\033[0m"
	}
	fmt.Println(header)

	for _, r := range result.Results {
		fmt.Printf("  %-24s %-10s %6dms\n", r.Name, r.Status, r.Elapsed.Milliseconds())
	}

	report := health.Evaluate(result.Results, result.TimedOut)
	fmt.Printf("health: %s\n", report.Status)
}
