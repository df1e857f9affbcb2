package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/nhle/mailmirror/internal/export"
	"github.com/nhle/mailmirror/internal/model"
	"github.com/nhle/mailmirror/internal/theme"
)

// RenderPreview renders msgs as a table with every column truncated, the
// way they are confirmed before an export.
func RenderPreview(msgs []model.Message) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.ColorBorder)).
		Headers(export.PreviewColumns...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Foreground(theme.ColorBlue).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})

	for _, m := range msgs {
		t.Row(export.PreviewRow(m)...)
	}

	return t.Render()
}
