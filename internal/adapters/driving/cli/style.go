package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/term"

	"github.com/custodia-labs/parcelsync/internal/core/domain"
)

// palette holds the output styles. The zero value renders plain text.
type palette struct {
	title   lipgloss.Style
	header  lipgloss.Style
	muted   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
	border  lipgloss.Style
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// newPalette returns coloured styles when w is a terminal and plain
// styles otherwise.
func newPalette(w io.Writer) palette {
	if !isTerminal(w) {
		return palette{}
	}
	r := lipgloss.NewRenderer(w)
	return palette{
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED")),
		header:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("#06B6D4")),
		muted:   r.NewStyle().Foreground(lipgloss.Color("#6C7086")),
		success: r.NewStyle().Foreground(lipgloss.Color("#A6E3A1")),
		warning: r.NewStyle().Foreground(lipgloss.Color("#F9E2AF")),
		failure: r.NewStyle().Foreground(lipgloss.Color("#F38BA8")),
		border:  r.NewStyle().Foreground(lipgloss.Color("#45475A")),
	}
}

// status styles a delivery status by outcome.
func (p palette) status(s domain.Status) string {
	switch s {
	case domain.StatusDelivered:
		return p.success.Render(string(s))
	case domain.StatusFailed, domain.StatusReturned:
		return p.failure.Render(string(s))
	case domain.StatusInProgress:
		return p.warning.Render(string(s))
	default:
		return string(s)
	}
}

// table renders rows under headers with a rounded border.
func (p palette) table(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(p.border).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return p.header.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	return t.Render()
}
