package cli

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/randalmurphal/ignition/internal/tui"
	"github.com/randalmurphal/ignition/recording"
	"github.com/randalmurphal/ignition/scheduler"
	"github.com/randalmurphal/ignition/signal"
)

func newTimelineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "timeline <recording.json>",
		Short: "View a saved Recording as a text Gantt chart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			rec, err := recording.Unmarshal(data)
			if err != nil {
				return fmt.Errorf("parsing %s: %w", args[0], err)
			}

			tl := recording.BuildTimeline(resultFromRecording(rec), rec.Config.GlobalTimeoutMs)
			model := tui.New(rec, tl)

			_, err = tea.NewProgram(model).Run()
			return err
		},
	}
}

// resultFromRecording reconstructs just enough of a scheduler.IgnitionResult
// from a saved Recording to feed recording.BuildTimeline, which sweeps raw
// StartedAt/CompletedAt durations rather than the Recording's own
// millisecond fields.
func resultFromRecording(rec recording.Recording) scheduler.IgnitionResult {
	result := scheduler.IgnitionResult{
		TotalDuration: durationOfMs(rec.TotalDurationMs),
		TimedOut:      rec.TimedOut,
	}
	byStage := make(map[int][]signal.Result)
	for _, sr := range rec.Signals {
		r := signal.Result{
			Name:        sr.Name,
			Status:      parseStatus(sr.Status),
			StartedAt:   durationOfMs(sr.StartMs),
			CompletedAt: durationOfMs(sr.EndMs),
			Elapsed:     durationOfMs(sr.DurationMs),
		}
		result.Results = append(result.Results, r)
		byStage[sr.Stage] = append(byStage[sr.Stage], r)
	}
	for _, stg := range rec.Stages {
		result.Stages = append(result.Stages, scheduler.StageResult{
			Stage:     stg.Stage,
			Duration:  durationOfMs(stg.DurationMs),
			Results:   byStage[stg.Stage],
			Succeeded: stg.Succeeded,
			Failed:    stg.Failed,
			TimedOut:  stg.TimedOut,
			Completed: stg.Completed,
			Promoted:  stg.Promoted,
		})
	}
	return result
}

func durationOfMs(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

func parseStatus(s string) signal.Status {
	switch s {
	case "Failed":
		return signal.StatusFailed
	case "TimedOut":
		return signal.StatusTimedOut
	case "Skipped":
		return signal.StatusSkipped
	case "Cancelled":
		return signal.StatusCancelled
	case "Pending":
		return signal.StatusPending
	default:
		return signal.StatusSucceeded
	}
}
