// Package ui holds the interactive prompts and the plain renderers used by
// the menu and the non-interactive commands.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailmirror/internal/model"
	"github.com/nhle/mailmirror/internal/theme"
)

// RenderStatus renders the cache summary shown above the menu.
func RenderStatus(st model.Status) string {
	account := st.Account
	if account == "" {
		account = theme.MutedStyle.Render("not set")
	}

	rows := [][2]string{
		{"Database", st.Database},
		{"Account", account},
		{"Records", fmt.Sprintf("%d", st.Count)},
		{"Oldest", st.Oldest.UTC().Format(model.TimeLayout)},
		{"Newest", st.Newest.UTC().Format(model.TimeLayout)},
		{"Filter", st.Filter.String()},
		{"Filtered", fmt.Sprintf("%d", st.Filtered)},
	}

	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		label := theme.LabelStyle.Width(10).Render(r[0] + ":")
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, label, " ", r[1]))
	}

	return theme.PanelStyle.Render(strings.Join(lines, "\n"))
}
