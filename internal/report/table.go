package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/ansi"
	"github.com/samber/lo"

	"github.com/a2zusage/a2zusage/internal/core"
	"github.com/a2zusage/a2zusage/internal/tui"
)

const Banner = "a2zusage - AI Coding Tools Usage Tracker"

var tableHeaders = []string{"Tool", "Status", "Today", "This Week", "This Month", "Total", "Est. Cost"}

// Options controls terminal rendering.
type Options struct {
	// Color keeps ANSI styling. Off for pipes and files.
	Color bool
	// Verbose appends the data source of each result.
	Verbose bool
}

func tableRow(r core.Result) []string {
	name := r.DisplayName
	if name == "" {
		name = r.Name
	}
	row := []string{name, tui.StatusBadge(r.Status)}
	if r.Usage == nil {
		return append(row, "-", "-", "-", "-", "-")
	}
	u := *r.Usage
	return append(row,
		windowCell(u.Today, r.Estimated),
		windowCell(u.ThisWeek, r.Estimated),
		windowCell(u.ThisMonth, r.Estimated),
		windowCell(u.Total, r.Estimated),
		FormatCost(u.Total.EstimatedCost),
	)
}

// Table renders results in registration order as a bordered table.
func Table(results []core.Result, opts Options) string {
	rows := lo.Map(results, func(r core.Result, _ int) []string { return tableRow(r) })

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(tui.BorderStyle).
		Headers(tableHeaders...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle().Padding(0, 1)
			switch {
			case row == table.HeaderRow:
				return style.Inherit(tui.HeaderStyle)
			case col == 0:
				return style.Inherit(tui.ValueStyle)
			case col >= 2:
				return style.Align(lipgloss.Right)
			}
			return style
		})

	out := t.String()
	if !opts.Color {
		out = ansi.Strip(out)
	}
	return out
}

// DataSources lists where each result was read from, one line per result.
func DataSources(results []core.Result, opts Options) string {
	var b strings.Builder
	b.WriteString(tui.SectionStyle.Render("Data Sources:"))
	b.WriteString("\n")
	for _, r := range results {
		source := r.DataSource
		if source == "" {
			source = "-"
		}
		mark := tui.CheckMark(r.IsActive())
		if !r.IsActive() {
			mark = tui.DimStyle.Render("○")
		}
		fmt.Fprintf(&b, "  %s %s: %s\n", mark, r.DisplayName, tui.DimStyle.Render(source))
		if r.Status == core.StatusUnsupported && r.Error != "" {
			fmt.Fprintf(&b, "      %s\n", tui.DimStyle.Render(r.Error))
		}
		if r.Status == core.StatusError {
			fmt.Fprintf(&b, "      %s\n", tui.FailStyle.Render(r.Error))
		}
	}
	out := b.String()
	if !opts.Color {
		out = ansi.Strip(out)
	}
	return out
}

// Render writes results in format f to w.
func Render(w io.Writer, f Format, results []core.Result, opts Options) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, results)
	case FormatCSV:
		return WriteCSV(w, results)
	case FormatTable, "":
		if _, err := fmt.Fprintln(w, Table(results, opts)); err != nil {
			return err
		}
		if lo.SomeBy(results, func(r core.Result) bool { return r.Estimated }) {
			if _, err := fmt.Fprintln(w, styled(tui.DimStyle, "~ estimated from a combined token count", opts)); err != nil {
				return err
			}
		}
		if opts.Verbose {
			_, err := fmt.Fprint(w, "\n"+DataSources(results, opts))
			return err
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q", f)
	}
}

func styled(style lipgloss.Style, s string, opts Options) string {
	if !opts.Color {
		return s
	}
	return style.Render(s)
}
