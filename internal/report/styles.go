package report

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	successColor = lipgloss.Color("#8BC34A")
	errorColor   = lipgloss.Color("#e53935")
	mutedColor   = lipgloss.Color("#8a94a6")
	infoColor    = lipgloss.Color("#2196F3")
)

// styles holds the lipgloss styles used by the text renderer.
type styles struct {
	Title   lipgloss.Style
	Pass    lipgloss.Style
	Fail    lipgloss.Style
	Skipped lipgloss.Style
	Detail  lipgloss.Style
	Banner  lipgloss.Style
	Failure lipgloss.Style
}

// newStyles builds styles bound to w. With color off every style is plain.
func newStyles(w io.Writer, color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{plain, plain, plain, plain, plain, plain, plain}
	}

	re := lipgloss.NewRenderer(w)
	return styles{
		Title:   re.NewStyle().Bold(true).Foreground(infoColor),
		Pass:    re.NewStyle().Foreground(successColor),
		Fail:    re.NewStyle().Foreground(errorColor).Bold(true),
		Skipped: re.NewStyle().Foreground(mutedColor),
		Detail:  re.NewStyle().Foreground(mutedColor),
		Banner:  re.NewStyle().Bold(true).Foreground(successColor),
		Failure: re.NewStyle().Bold(true).Foreground(errorColor),
	}
}
