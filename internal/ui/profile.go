package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/manavault/internal/market"
	"github.com/five82/manavault/internal/session"
	"github.com/five82/manavault/internal/view"
)

var errPasswordMismatch = errors.New("new passwords do not match")

// requestConfirmMsg asks the model to open a confirmation for action.
type requestConfirmMsg struct {
	title   string
	message string
	done    string
	action  view.Action
}

func (m *Model) handleProfileKey(msg tea.KeyMsg) tea.Cmd {
	user, ok := m.session.Current()
	if !ok {
		return nil
	}
	ctx, sess := m.ctx, m.session
	switch {
	case key.Matches(msg, m.keys.EditProfile):
		f := newForm("Edit profile",
			field{label: "Name", value: user.Name},
			field{label: "Username", value: user.Username, limit: 40},
			field{label: "Email", value: user.Email},
			field{label: "Avatar URL", value: user.Avatar, limit: 400},
		)
		f.hint = "Empty fields keep their current value."
		m.modal = newFormModal(f, func(values []string) (tea.Cmd, error) {
			p := session.Profile{Name: values[0], Username: values[1], Email: values[2], Avatar: values[3]}
			if err := sess.UpdateProfile(ctx, p); err != nil {
				return nil, err
			}
			return func() tea.Msg { return actionDoneMsg{status: "Profile updated"} }, nil
		})
	case key.Matches(msg, m.keys.ChangePassword):
		f := newForm("Change password",
			field{label: "Current", secret: true},
			field{label: "New", secret: true},
			field{label: "Repeat new", secret: true},
		)
		m.modal = newFormModal(f, func(values []string) (tea.Cmd, error) {
			current, next, repeat := values[0], values[1], values[2]
			if current == "" || next == "" {
				return nil, session.ErrMissingFields
			}
			if next != repeat {
				return nil, errPasswordMismatch
			}
			return func() tea.Msg {
				text, err := sess.ChangePassword(ctx, current, next)
				if err != nil {
					return actionDoneMsg{label: "Change password", err: accountProblem(err), alert: true}
				}
				return actionDoneMsg{status: text}
			}, nil
		})
	case key.Matches(msg, m.keys.DeleteUser):
		id := user.ID
		m.confirm("Delete account",
			"Delete your account? This cannot be undone and signs you out.",
			"Account deleted",
			func(ctx context.Context) error { return accountProblem(sess.DeleteAccount(ctx, id)) })
	case key.Matches(msg, m.keys.Delete):
		if !m.session.IsAdmin() {
			return nil
		}
		f := newForm("Delete user", field{label: "User ID", placeholder: "42"})
		m.modal = newFormModal(f, func(values []string) (tea.Cmd, error) {
			target := values[0]
			if target == "" {
				return nil, session.ErrMissingFields
			}
			return func() tea.Msg {
				return requestConfirmMsg{
					title:   "Delete user",
					message: fmt.Sprintf("Delete the account with id %s?", target),
					done:    "User " + target + " deleted",
					action:  func(ctx context.Context) error { return accountProblem(sess.DeleteAccount(ctx, target)) },
				}
			}, nil
		})
	case key.Matches(msg, m.keys.Logout):
		return func() tea.Msg {
			sess.Logout(ctx)
			return actionDoneMsg{status: "Signed out"}
		}
	}
	return nil
}

// accountProblem prefers the server's explanation of a rejected account
// change.
func accountProblem(err error) error {
	if err == nil {
		return nil
	}
	if msg := market.RejectionMessage(err); msg != "" {
		return errors.New(msg)
	}
	return err
}

func (m Model) renderProfile() string {
	styles := m.theme.Styles()
	user, ok := m.session.Current()
	if !ok {
		return styles.MutedText.Render("Not signed in.")
	}
	label := func(s string) string { return styles.MutedText.Render(padRight(s, 12)) }

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render(displayName(user)))
	if m.session.IsAdmin() {
		b.WriteString("  ")
		b.WriteString(styles.WarningText.Render("admin"))
	}
	b.WriteString("\n\n")
	rows := [][2]string{
		{"Username", "@" + user.Username},
		{"Email", user.Email},
		{"User ID", user.ID},
		{"Avatar", user.Avatar},
	}
	for _, r := range rows {
		if r[1] == "" {
			continue
		}
		b.WriteString(label(r[0]) + styles.Text.Render(r[1]) + "\n")
	}

	stats := m.collection.Stats()
	b.WriteString("\n")
	b.WriteString(label("Collection") + styles.Text.Render(fmt.Sprintf("%d cards, %s", stats.TotalCards, formatPrice(stats.TotalValue))) + "\n")
	b.WriteString(label("Listings") + styles.Text.Render(fmt.Sprintf("%d", len(listingsBy(m.snapshot.Listings, user.ID)))) + "\n")
	b.WriteString(label("Cart") + styles.Text.Render(fmt.Sprintf("%d items", m.cart.Count())) + "\n")

	b.WriteString("\n")
	hints := "e: Edit profile  •  p: Change password  •  D: Delete account  •  L: Sign out"
	if m.session.IsAdmin() {
		hints += "  •  x: Delete user"
	}
	b.WriteString(styles.FaintText.Render(hints))
	return b.String()
}
