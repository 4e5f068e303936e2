package components

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/kerbaras/mdex/pkg/app/styles"
	"github.com/samber/lo"
)

// Table renders rows under headers as a static bubbles table, each column as
// wide as its widest cell up to maxWidth.
func Table(headers []string, rows [][]string, maxWidth int) string {
	if maxWidth <= 0 {
		maxWidth = 60
	}

	columns := lo.Map(headers, func(h string, i int) table.Column {
		width := lipgloss.Width(h)
		for _, row := range rows {
			if i < len(row) {
				width = max(width, lipgloss.Width(row[i]))
			}
		}
		return table.Column{Title: h, Width: min(width, maxWidth)}
	})

	s := table.DefaultStyles()
	s.Header = styles.TableHeaderStyle.Padding(0, 1)
	s.Selected = lipgloss.NewStyle()

	// Styles first: the height is measured against the styled header.
	t := table.New(
		table.WithStyles(s),
		table.WithColumns(columns),
		table.WithRows(lo.Map(rows, func(r []string, _ int) table.Row { return table.Row(r) })),
		table.WithHeight(len(rows)+lipgloss.Height(s.Header.Render("x"))),
		table.WithFocused(false),
	)
	return t.View()
}
