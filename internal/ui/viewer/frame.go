package viewer

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailmirror/internal/theme"
)

// frame holds the terminal dimensions of the viewer. The header and the
// status bar take one line each.
type frame struct {
	width  int
	height int
}

// bodyHeight is the number of lines left for the scrolling record.
func (f frame) bodyHeight() int {
	if h := f.height - 2; h > 0 {
		return h
	}
	return 1
}

// bar renders a full-width bar with left and right aligned text.
func (f frame) bar(style lipgloss.Style, left, right string) string {
	leftRendered := style.Render(left)
	rightRendered := ""
	if right != "" {
		rightRendered = style.Render(right)
	}

	gap := f.width -
		lipgloss.Width(leftRendered) -
		lipgloss.Width(rightRendered)
	if gap < 0 {
		gap = 0
	}

	filler := lipgloss.NewStyle().
		Width(gap).
		Background(style.GetBackground()).
		Render("")

	return lipgloss.JoinHorizontal(lipgloss.Top, leftRendered, filler, rightRendered)
}

func (f frame) header(title, info string) string {
	return f.bar(theme.HeaderStyle, title, info)
}

func (f frame) statusBar(hints, position string) string {
	return f.bar(theme.StatusBarStyle, hints, position)
}

// render stacks header, body and status bar.
func (f frame) render(header, body, statusBar string) string {
	return lipgloss.JoinVertical(lipgloss.Left, header, body, statusBar)
}
