// Package tui renders the interactive scanning view and holds the color
// palette shared by the report renderers.
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/a2zusage/a2zusage/internal/core"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// ResultMsg reports that the provider at Index finished.
type ResultMsg struct {
	Index  int
	Result core.Result
}

// DoneMsg reports that every provider finished.
type DoneMsg struct{}

// Progress lists the providers being scanned with a spinner per pending
// row. It quits on DoneMsg or ctrl+c.
type Progress struct {
	names     []string
	results   []*core.Result
	finished  int
	frame     int
	done      bool
	cancelled bool
}

func NewProgress(names []string) Progress {
	return Progress{names: names, results: make([]*core.Result, len(names))}
}

// Cancelled reports whether the user interrupted the scan.
func (m Progress) Cancelled() bool { return m.cancelled }

func (m Progress) Init() tea.Cmd { return tickCmd() }

func (m Progress) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if m.done {
			return m, nil
		}
		m.frame++
		return m, tickCmd()

	case ResultMsg:
		if msg.Index < 0 || msg.Index >= len(m.results) {
			return m, nil
		}
		if m.results[msg.Index] == nil {
			m.finished++
		}
		res := msg.Result
		m.results[msg.Index] = &res
		return m, nil

	case DoneMsg:
		m.done = true
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.cancelled = true
			m.done = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m Progress) View() string {
	if m.done {
		return ""
	}
	var b strings.Builder
	b.WriteString(HeaderStyle.Render(fmt.Sprintf("Scanning AI tools... %d/%d", m.finished, len(m.names))))
	b.WriteString("\n\n")
	spin := spinnerStyle.Render(spinnerFrames[m.frame%len(spinnerFrames)])
	for i, name := range m.names {
		res := m.results[i]
		if res == nil {
			fmt.Fprintf(&b, "  %s %s\n", spin, DimStyle.Render(name))
			continue
		}
		fmt.Fprintf(&b, "  %s %s\n", StatusIcon(res.Status), ValueStyle.Render(name))
	}
	b.WriteString("\n")
	b.WriteString(DimStyle.Render("  ctrl+c to cancel"))
	b.WriteString("\n")
	return b.String()
}

// CollectFunc runs the providers, calling observe as each one finishes.
type CollectFunc func(ctx context.Context, observe func(index int, r core.Result)) []core.Result

// Scan runs collect while rendering Progress on out. When the user
// quits early, collect's context is cancelled and Scan returns
// context.Canceled alongside whatever results were gathered.
func Scan(ctx context.Context, in io.Reader, out io.Writer, names []string, collect CollectFunc) ([]core.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(NewProgress(names),
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
	)

	var results []core.Result
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		results = collect(ctx, func(i int, r core.Result) {
			program.Send(ResultMsg{Index: i, Result: r})
		})
		program.Send(DoneMsg{})
	}()

	final, runErr := program.Run()
	interrupted := ctx.Err() != nil
	cancel()
	<-collected

	if m, ok := final.(Progress); ok && m.Cancelled() {
		return results, context.Canceled
	}
	if interrupted {
		return results, ctx.Err()
	}
	if runErr != nil {
		return results, fmt.Errorf("rendering progress: %w", runErr)
	}
	return results, nil
}
