package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// slowNetworkAfter is how long a call may run before the spinner starts
// telling the user the service is being slow.
const slowNetworkAfter = 5 * time.Second

type networkDoneMsg struct {
	err error
}

type networkSpinnerModel struct {
	spinner spinner.Model
	label   string
	call    tea.Cmd
	started time.Time
	slow    bool
	err     error
	done    bool
}

func newNetworkSpinnerModel(label string, call tea.Cmd) networkSpinnerModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("39"))),
	)

	return networkSpinnerModel{
		spinner: s,
		label:   label,
		call:    call,
		started: time.Now(),
	}
}

func (m networkSpinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.call)
}

func (m networkSpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if time.Since(m.started) > slowNetworkAfter {
			m.slow = true
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case networkDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m networkSpinnerModel) View() string {
	if m.done {
		return ""
	}
	if m.slow {
		return fmt.Sprintf("%s %s (the service is taking a while)", m.spinner.View(), m.label)
	}

	return fmt.Sprintf("%s %s", m.spinner.View(), m.label)
}

// runNetworkSpinner shows a spinner around a network-bound call. Pipes and
// test buffers get the call without any spinner frames.
func runNetworkSpinner(ctx context.Context, output io.Writer, label string, call func(context.Context) error) error {
	if !isTerminal(output) {
		return call(ctx)
	}

	callCmd := func() tea.Msg {
		return networkDoneMsg{err: call(ctx)}
	}

	p := tea.NewProgram(
		newNetworkSpinnerModel(label, callCmd),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	finalModel, err := p.Run()
	if err != nil {
		return err
	}

	result, ok := finalModel.(networkSpinnerModel)
	if !ok {
		return fmt.Errorf("unexpected final spinner model type %T", finalModel)
	}

	return result.err
}

func isTerminal(output io.Writer) bool {
	file, ok := output.(*os.File)
	return ok && isatty.IsTerminal(file.Fd())
}
