package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/a2zusage/a2zusage/internal/core"
)

// ─── Color Palette (Catppuccin Mocha) ───────────────────────────────────────

var (
	colorText    = lipgloss.Color("#CDD6F4") // primary text
	colorSubtext = lipgloss.Color("#A6ADC8") // secondary text
	colorDim     = lipgloss.Color("#585B70") // muted, borders

	colorAccent   = lipgloss.Color("#CBA6F7") // mauve – primary accent
	colorBlue     = lipgloss.Color("#89B4FA") // section headers
	colorSapphire = lipgloss.Color("#74C7EC") // links
	colorGreen    = lipgloss.Color("#A6E3A1") // active
	colorYellow   = lipgloss.Color("#F9E2AF") // missing key
	colorRed      = lipgloss.Color("#F38BA8") // error
	colorPeach    = lipgloss.Color("#FAB387") // auth issues
	colorLavender = lipgloss.Color("#B4BEFE") // titles

	colorBorder = colorDim
)

// ─── Reusable Styles ────────────────────────────────────────────────────────

var (
	BannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorLavender)

	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBlue)

	LabelStyle = lipgloss.NewStyle().
			Foreground(colorSubtext)

	ValueStyle = lipgloss.NewStyle().
			Foreground(colorText)

	DimStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	LinkStyle = lipgloss.NewStyle().
			Foreground(colorSapphire)

	OKStyle = lipgloss.NewStyle().
		Foreground(colorGreen)

	FailStyle = lipgloss.NewStyle().
			Foreground(colorRed)

	BorderStyle = lipgloss.NewStyle().
			Foreground(colorBorder)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(colorAccent)
)

// ─── Status Helpers ─────────────────────────────────────────────────────────

// StatusColor returns the accent color for a given status.
func StatusColor(s core.Status) lipgloss.Color {
	switch s {
	case core.StatusActive:
		return colorGreen
	case core.StatusNoKey:
		return colorYellow
	case core.StatusAuthRequired:
		return colorPeach
	case core.StatusError:
		return colorRed
	case core.StatusLinkOnly:
		return colorBlue
	default:
		return colorDim
	}
}

// StatusBadge renders the icon and short label of s in its color.
func StatusBadge(s core.Status) string {
	return lipgloss.NewStyle().
		Foreground(StatusColor(s)).
		Render(s.Icon() + " " + s.Label())
}

// StatusIcon renders only the icon of s in its color.
func StatusIcon(s core.Status) string {
	return lipgloss.NewStyle().Foreground(StatusColor(s)).Render(s.Icon())
}

// CheckMark renders ✓ or ✗ for a found/missing diagnostic.
func CheckMark(ok bool) string {
	if ok {
		return OKStyle.Render("✓")
	}
	return FailStyle.Render("✗")
}
