package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/manavault/internal/market"
	"github.com/five82/manavault/internal/view"
)

const logo = `                              _ _
 _ __  __ _ _ _  __ ___ ____ _ _  _| | |_
| '  \/ _' | ' \/ _' \ V / _' | || | |  _|
|_|_|_\__,_|_||_\__,_|\_/\__,_|\_,_|_|\__|`

// renderHeader renders the status bar.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	compact := m.width < 100
	sep := bg.Spaces(2)

	parts := []string{bg.Render("manavault", styles.Logo)}

	if m.snapshot.IsOffline() {
		parts = append(parts, bg.Render("● OFFLINE", styles.DangerText.Bold(true)))
	} else if m.snapshot.LastError != nil {
		parts = append(parts, bg.Render("● DEGRADED", styles.WarningText.Bold(true)))
	} else {
		parts = append(parts, bg.Render("● ONLINE", styles.SuccessText))
	}

	parts = append(parts, bg.Render(m.nav.Current().Title(), styles.AccentText.Bold(true)))

	if user, ok := m.session.Current(); ok {
		label := "@" + user.Username
		if m.session.IsAdmin() {
			label += " (admin)"
		}
		parts = append(parts, bg.Render(label, styles.Text))

		cartLabel := "Cart:"
		if compact {
			cartLabel = "C:"
		}
		parts = append(parts,
			bg.Render(cartLabel, styles.MutedText)+bg.Space()+
				bg.Render(fmt.Sprintf("%d", m.cart.Count()), styles.Text)+bg.Space()+
				bg.Render(formatPrice(m.cart.Total()), styles.InfoText),
		)

		unreadStyle := styles.MutedText
		unread := m.notify.UnreadCount()
		if unread > 0 {
			unreadStyle = styles.WarningText
		}
		parts = append(parts, bg.Render(fmt.Sprintf("✉ %d", unread), unreadStyle))
	}

	if ts := m.formatTimestamp(); ts != "" && !compact {
		parts = append(parts, bg.Render(ts, styles.MutedText))
	}

	if m.snapshot.LastError != nil {
		maxErr := 60
		if compact {
			maxErr = 30
		}
		parts = append(parts,
			bg.Render(classifyConnectionError(m.snapshot.LastError), styles.DangerText.Bold(true))+bg.Space()+
				bg.Render(truncate(m.snapshot.LastError.Error(), maxErr), styles.DangerText),
		)
	}

	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.Surface)).
		Foreground(lipgloss.Color(m.theme.Text)).
		Width(m.width).
		Render(bg.Join(parts, sep))
}

// formatTimestamp formats the last refresh time with a relative indicator.
func (m Model) formatTimestamp() string {
	at := m.snapshot.LastUpdated
	if at.IsZero() {
		return ""
	}
	since := time.Since(at)
	out := at.Format("15:04:05")
	switch {
	case since < time.Minute:
		out += " (now)"
	case since < time.Hour:
		out += fmt.Sprintf(" (%dm ago)", int(since.Minutes()))
	case since < 24*time.Hour:
		out += fmt.Sprintf(" (%dh ago)", int(since.Hours()))
	}
	return out
}

// classifyConnectionError returns a short description of a refresh failure.
func classifyConnectionError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "OFFLINE"
	case strings.Contains(msg, "no such host"):
		return "HOST NOT FOUND"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return "TIMEOUT"
	case market.IsRejected(err):
		return fmt.Sprintf("HTTP %d", market.StatusCode(err))
	default:
		return "ERROR"
	}
}

type command struct{ key, desc string }

// commandsFor lists the hints shown for v.
func (m Model) commandsFor(v view.View) []command {
	if m.nav.State().SelectedCard != nil {
		return []command{{"a", "Cart"}, {"o", "Collect"}, {"j/k", "Scroll"}, {"Esc", "Close"}}
	}
	switch v {
	case view.Auth:
		return []command{{"Tab", "Next field"}, {"Enter", "Submit"}, {"Ctrl+N", "Register"}, {"Ctrl+F", "Forgot"}}
	case view.Catalog:
		cmds := []command{{"/", "Search"}, {"R/C/Y/S", "Filter"}, {"Enter", "Detail"}, {"a", "Cart"}, {"o", "Collect"}}
		if m.session.IsAdmin() {
			cmds = append(cmds, command{"n/e/x", "Card"}, command{"N/X", "Set"})
		}
		return cmds
	case view.Collection:
		return []command{{"+/-", "Qty"}, {"f", "Favorite"}, {"s", "Sell"}, {"x", "Remove"}}
	case view.Marketplace:
		return []command{{"a", "Cart"}, {"Enter", "Detail"}, {"x", "Withdraw"}}
	case view.Community:
		return []command{{"Enter", "Collection"}, {"h", "History"}}
	case view.OtherCollection, view.UserHistory:
		return []command{{"j/k", "Navigate"}, {"Esc", "Community"}}
	case view.Cart:
		return []command{{"+/-", "Qty"}, {"x", "Remove"}, {"D", "Clear"}, {"6", "Checkout"}}
	case view.Checkout:
		return []command{{"Enter", "Place order"}, {"Esc", "Back"}}
	case view.Support:
		return []command{{"Enter", "Mark read"}, {"A", "All read"}, {"PgUp/PgDn", "Logs"}}
	case view.Profile:
		cmds := []command{{"e", "Edit"}, {"p", "Password"}, {"D", "Delete"}, {"L", "Sign out"}}
		if m.session.IsAdmin() {
			cmds = append(cmds, command{"x", "Delete user"})
		}
		return cmds
	}
	return nil
}

// renderCommandBar renders the command hints bar.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	colon := bg.Sep(":")

	current := m.nav.Current()
	commands := m.commandsFor(current)
	if current != view.Auth {
		commands = append(commands, command{"m", "Menu"}, command{"?", "More"})
	}

	segments := make([]string, 0, len(commands)+2)
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}

	if current == view.Catalog && m.catalog.filter.Active() {
		segments = append(segments, bg.Render(describeFilter(m.catalog.filter), styles.AccentText))
	}

	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(strings.Join(segments, bg.Spaces(2)))
}

// renderStatus renders the transient status line under the content.
func (m Model) renderStatus() string {
	styles := m.theme.Styles()
	if m.status.text == "" {
		return ""
	}
	if m.status.danger {
		return styles.DangerText.Render("! " + truncate(m.status.text, m.width-2))
	}
	return styles.SuccessText.Render(truncate(m.status.text, m.width))
}
