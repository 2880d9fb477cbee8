package cli

import (
	"context"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"github.com/randalmurphal/ignition"
	"github.com/randalmurphal/ignition/scheduler"
)

// runWithSpinner drives coord.Run in the background and, when stdout is a
// real terminal, shows a spinner until it finishes; otherwise it just
// blocks on the run directly. Either way it returns the coordinator's
// result and error.
func runWithSpinner(ctx context.Context, coord *ignition.Coordinator, label string) (scheduler.IgnitionResult, error) {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		return coord.Run(ctx)
	}
	if _, _, err := term.GetSize(int(os.Stdout.Fd())); err != nil {
		return coord.Run(ctx)
	}

	doneCh := make(chan runDone, 1)
	go func() {
		result, err := coord.Run(ctx)
		doneCh <- runDone{result: result, err: err}
	}()

	m := spinnerModel{spin: spinner.New(spinner.WithSpinner(spinner.Dot)), label: label, done: doneCh}
	program := tea.NewProgram(m)
	final, err := program.Run()
	if err != nil {
		res := <-doneCh
		return res.result, res.err
	}

	sm := final.(spinnerModel)
	return sm.result, sm.err
}

type spinnerModel struct {
	spin   spinner.Model
	label  string
	done   chan runDone
	result scheduler.IgnitionResult
	err    error
	ready  bool
}

type runDone struct {
	result scheduler.IgnitionResult
	err    error
}

func (m spinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, waitForRun(m.done))
}

func waitForRun(done chan runDone) tea.Cmd {
	return func() tea.Msg {
		return <-done
	}
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case runDone:
		m.result, m.err, m.ready = msg.result, msg.err, true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinnerModel) View() string {
	if m.ready {
		return ""
	}
	return m.spin.View() + " " + m.label + "\n"
}
