package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/randalmurphal/ignition"
	"github.com/randalmurphal/ignition/policy"
	"github.com/randalmurphal/ignition/recording"
	"github.com/randalmurphal/ignition/scheduler"
)

func newRecordCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "record <signals-dir>",
		Short: "Run a coordinator and save a Recording artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, err := buildCoordinator(cmd.Context(), args[0], ignition.Options{})
			if err != nil {
				return err
			}

			result, runErr := runWithSpinner(cmd.Context(), coord, "recording signals...")

			rec := recording.FromResult(result, recordConfigFor(result), nil)
			data, err := recording.Marshal(rec)
			if err != nil {
				return fmt.Errorf("marshaling recording: %w", err)
			}

			if output == "" || output == "-" {
				fmt.Println(string(data))
			} else if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}

			return runErr
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the recording to this file instead of stdout")
	cmd.AddCommand(newRecordQueryCmd())
	return cmd
}

// recordConfigFor derives a recording.Config purely from the result,
// since the demo CLI doesn't thread the originating scheduler.Options
// back out of ignition.Coordinator.
func recordConfigFor(result scheduler.IgnitionResult) recording.Config {
	mode := policy.ModeParallel
	if len(result.Stages) > 0 {
		mode = policy.ModeStaged
	}
	return recording.ConfigFromOptions(mode, "", scheduler.Options{})
}

func newRecordQueryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <recording.json> <path>",
		Short: "Evaluate a gjson path expression against a saved Recording",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			if !gjson.ValidBytes(data) {
				return fmt.Errorf("%s: not valid JSON", args[0])
			}
			result := gjson.GetBytes(data, args[1])
			if !result.Exists() {
				return fmt.Errorf("path %q matched nothing", args[1])
			}
			fmt.Println(result.String())
			return nil
		},
	}
}
