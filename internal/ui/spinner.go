package ui

import (
	"context"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
)

// isTerminal reports whether the spinner can be drawn on stderr.
var isTerminal = func() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

type doneMsg struct{}

type waitModel struct {
	spinner spinner.Model
	message string
	done    bool
}

func newWaitModel(message string) waitModel {
	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: SpinnerDot,
		FPS:    time.Second / 10,
	}
	s.Style = SpinnerStyle
	return waitModel{spinner: s, message: message}
}

func (m waitModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m waitModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m waitModel) View() string {
	if m.done {
		return ""
	}
	return m.spinner.View() + " " + SubtleStyle.Render(m.message) + "\n"
}

// Wait runs fn and shows a spinner with message on stderr until it returns.
// Without a terminal fn just runs.
func Wait[T any](ctx context.Context, message string, fn func(context.Context) (T, error)) (T, error) {
	if !isTerminal() {
		return fn(ctx)
	}

	p := tea.NewProgram(newWaitModel(message),
		tea.WithOutput(os.Stderr),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
		tea.WithContext(ctx),
	)

	var (
		result T
		err    error
	)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		result, err = fn(ctx)
		p.Send(doneMsg{})
	}()

	// the spinner is cosmetic, its errors do not matter
	_, _ = p.Run()
	<-finished
	return result, err
}
