package indicator

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/lintstatus/presenter"
)

// Color palette.
var (
	primaryColor   = lipgloss.Color("#7C3AED") // Purple
	successColor   = lipgloss.Color("#10B981") // Green
	warningColor   = lipgloss.Color("#F59E0B") // Amber
	errorColor     = lipgloss.Color("#EF4444") // Red
	mutedColor     = lipgloss.Color("#6B7280") // Gray
	highlightColor = lipgloss.Color("#3B82F6") // Blue
)

var (
	// LabelStyle renders the indicator label.
	LabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	// NeutralStyle renders the idle status.
	NeutralStyle = lipgloss.NewStyle().
			Foreground(successColor)

	// BusyStyle renders running jobs.
	BusyStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	// ErrorStyle renders failed jobs.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	// TooltipStyle renders the per-job lines under the status line.
	TooltipStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			PaddingLeft(2)

	// SpinnerStyle renders the busy spinner.
	SpinnerStyle = lipgloss.NewStyle().
			Foreground(highlightColor)

	// HelpStyle for help text.
	HelpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1)
)

// ColorStyle returns the style for a color role.
func ColorStyle(c presenter.ColorRole) lipgloss.Style {
	switch c {
	case presenter.ColorBusy:
		return BusyStyle
	case presenter.ColorError:
		return ErrorStyle
	default:
		return NeutralStyle
	}
}

// Glyph returns the single-character rendering of an icon.
func Glyph(i presenter.Icon) string {
	switch i {
	case presenter.IconLoading:
		return "…"
	case presenter.IconSyncing:
		return "↻"
	case presenter.IconFixing:
		return "✎"
	case presenter.IconError:
		return "✗"
	default:
		return "✓"
	}
}
