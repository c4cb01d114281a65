package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// styles renders command output. Every style is a no-op unless the output
// is a terminal.
type styles struct {
	Title   lipgloss.Style
	Answer  lipgloss.Style
	Source  lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}

func newStyles(w io.Writer) *styles {
	if !isTerminal(w) {
		plain := lipgloss.NewStyle()
		return &styles{plain, plain, plain, plain, plain, plain, plain}
	}

	return &styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")),
		Answer: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CDD6F4")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#45475A")).
			Padding(0, 1),
		Source: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#06B6D4")),
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C7086")),
		Success: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A6E3A1")),
		Warning: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F9E2AF")),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F38BA8")),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
