package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/manavault/internal/view"
)

var helpTitles = []string{"Views", "Navigation", "Catalog", "Cards", "Cart & Support", "Catalog admin", "Account", "General"}

// renderHelp renders the help overlay from the key map.
func (m Model) renderHelp() string {
	styles := m.theme.Styles()
	keyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(m.theme.Warning)).
		Width(10)

	groups := m.keys.FullHelp()
	columns := make([]string, 0, 2)
	var col strings.Builder
	for i, group := range groups {
		title := ""
		if i < len(helpTitles) {
			title = helpTitles[i]
		}
		col.WriteString(styles.AccentText.Bold(true).Render(title))
		col.WriteString("\n")
		for _, b := range group {
			col.WriteString(keyStyle.Render(b.Help().Key))
			col.WriteString(styles.Text.Render(b.Help().Desc))
			col.WriteString("\n")
		}
		col.WriteString("\n")
		if i == len(groups)/2-1 {
			columns = append(columns, col.String())
			col.Reset()
		}
	}
	columns = append(columns, col.String())

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Keyboard Shortcuts"))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", 30)))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, lipgloss.NewStyle().Width(36).Render(columns[0]), columns[len(columns)-1]))
	b.WriteString(styles.FaintText.Render("Any key: Close"))

	return overlay(m.theme, m.width, m.height, panel(m.theme, b.String(), 76))
}

// renderMenu renders the navigation menu overlay.
func (m Model) renderMenu() string {
	styles := m.theme.Styles()
	entries := menuViews()
	cursor := clamp(m.menuCursor, len(entries))
	current := m.nav.Current()

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Go to"))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", 24)))
	b.WriteString("\n\n")
	for i, v := range entries {
		row := fmt.Sprintf("%d  %s", i+1, v.Title())
		if v == view.Cart && m.cart.Count() > 0 {
			row += fmt.Sprintf(" (%d)", m.cart.Count())
		}
		if v == view.Support {
			if n := m.notify.UnreadCount(); n > 0 {
				row += fmt.Sprintf(" (%d new)", n)
			}
		}
		switch {
		case i == cursor:
			b.WriteString(styles.Selected.Render("▸ " + padRight(row, 22)))
		case v == current:
			b.WriteString(styles.AccentText.Render("  " + row))
		default:
			b.WriteString(styles.Text.Render("  " + row))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(fmt.Sprintf("%s: Open  •  %s/Esc: Close", m.keys.Confirm.Help().Key, m.keys.Menu.Help().Key)))
	return overlay(m.theme, m.width, m.height, panel(m.theme, b.String(), 36))
}
