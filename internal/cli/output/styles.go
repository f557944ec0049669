package output

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Styles are the lipgloss styles used for terminal output. Off a terminal
// every style renders its input unchanged.
type Styles struct {
	Header1 lipgloss.Style
	Header2 lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
	Caret   lipgloss.Style
}

func newStyles(out io.Writer, isTTY bool) *Styles {
	if !isTTY {
		plain := lipgloss.NewStyle()
		return &Styles{
			Header1: plain, Header2: plain, Bold: plain, Muted: plain,
			Success: plain, Error: plain, Warning: plain, Info: plain, Caret: plain,
		}
	}
	lr := lipgloss.NewRenderer(out)
	return &Styles{
		Header1: lr.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Underline(true),
		Header2: lr.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
		Bold:    lr.NewStyle().Bold(true),
		Muted:   lr.NewStyle().Foreground(lipgloss.Color("8")),
		Success: lr.NewStyle().Foreground(lipgloss.Color("10")),
		Error:   lr.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		Warning: lr.NewStyle().Foreground(lipgloss.Color("11")),
		Info:    lr.NewStyle().Foreground(lipgloss.Color("12")),
		Caret:   lr.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
	}
}
