package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// RenderTable renders rows under headers with the first column highlighted.
func RenderTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorMuted)).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return HeaderStyle.Padding(0, 1)
			case col == 0:
				return KeyStyle.Padding(0, 1)
			default:
				return TextStyle.Padding(0, 1)
			}
		}).
		Headers(headers...).
		Rows(rows...)

	return t.String()
}
