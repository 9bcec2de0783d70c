package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	appsvcs "github.com/ghuser/lotdesk/services/lot/application/services"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	pendingRow  = cellStyle.Foreground(lipgloss.Color("#FF6B6B"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

// printTable writes the lots in collection order followed by the totals.
// Unconfirmed rows are highlighted.
func printTable(w io.Writer, c *appsvcs.Collection) {
	items := c.Items()

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "SALE", "TITLE", "CONSIGNOR", "LOW", "HIGH")
	for _, item := range items {
		t.Row(
			strconv.Itoa(item.ID),
			strconv.Itoa(item.SaleNumber),
			item.Title,
			item.Consignor,
			item.Estimate.Low.StringFixed(2),
			item.Estimate.High.StringFixed(2),
		)
	}
	t.StyleFunc(func(row, _ int) lipgloss.Style {
		switch {
		case row == table.HeaderRow:
			return headerStyle
		case row >= 0 && row < len(items) && !items[row].Confirmed():
			return pendingRow
		default:
			return cellStyle
		}
	})

	s := c.Summary()
	fmt.Fprintln(w, t.Render())
	fmt.Fprintln(w, footerStyle.Render(fmt.Sprintf("%d lots, estimate %s - %s",
		s.Count, s.LowTotal.StringFixed(2), s.HighTotal.StringFixed(2))))
}
