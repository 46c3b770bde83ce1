package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/manavault/internal/view"
)

// Modal is the interface for modal dialogs.
// The Update method returns the updated modal, a command, and a bool indicating if the modal should close.
type Modal interface {
	Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool)
	View(theme Theme, width, height int) string
}

// confirmModal shows the pending confirmation of a view.Controller.
// Confirming runs the parked action in a command.
type confirmModal struct {
	ctx     context.Context
	nav     *view.Controller
	title   string
	message string
	done    string
}

func newConfirmModal(ctx context.Context, nav *view.Controller, done string) confirmModal {
	m := confirmModal{ctx: ctx, nav: nav, done: done}
	if p := nav.State().Pending; p != nil {
		m.title, m.message = p.Title, p.Message
	}
	return m
}

func (m confirmModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil, false
	}
	switch {
	case key.Matches(km, keys.Yes), key.Matches(km, keys.Confirm):
		ctx, nav, done, title := m.ctx, m.nav, m.done, m.title
		return m, func() tea.Msg {
			if err := nav.Confirm(ctx); err != nil {
				return actionDoneMsg{label: title, err: err}
			}
			return actionDoneMsg{status: done}
		}, true
	case key.Matches(km, keys.No), key.Matches(km, keys.Escape):
		m.nav.Cancel()
		return m, nil, true
	}
	return m, nil, false
}

func (m confirmModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	var b strings.Builder
	b.WriteString(styles.WarningText.Bold(true).Render(m.title))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", 40)))
	b.WriteString("\n\n")
	b.WriteString(styles.Text.Render(m.message))
	b.WriteString("\n\n")
	b.WriteString(styles.FaintText.Render("y/Enter: Confirm  •  n/Esc: Cancel"))
	return overlay(theme, width, height, panel(theme, b.String(), 50))
}

// alertModal blocks until acknowledged.
type alertModal struct {
	title   string
	message string
}

func (m alertModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	if km, ok := msg.(tea.KeyMsg); ok && (key.Matches(km, keys.Confirm) || key.Matches(km, keys.Escape)) {
		return m, nil, true
	}
	return m, nil, false
}

func (m alertModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	var b strings.Builder
	b.WriteString(styles.DangerText.Render(m.title))
	b.WriteString("\n\n")
	b.WriteString(styles.Text.Render(m.message))
	b.WriteString("\n\n")
	b.WriteString(styles.FaintText.Render("Enter: OK"))
	return overlay(theme, width, height, panel(theme, b.String(), 50))
}

// submitFunc turns form values into a command, or rejects them.
type submitFunc func(values []string) (tea.Cmd, error)

// formModal hosts a form as a dialog.
type formModal struct {
	form   form
	submit submitFunc
}

func newFormModal(f form, submit submitFunc) formModal {
	return formModal{form: f, submit: submit}
}

func (m formModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	if km, ok := msg.(tea.KeyMsg); ok && key.Matches(km, keys.Escape) {
		return m, nil, true
	}
	cmd, submitted := m.form.update(msg, keys)
	if !submitted {
		return m, cmd, false
	}
	next, err := m.submit(m.form.values())
	if err != nil {
		m.form.problem = err.Error()
		return m, nil, false
	}
	return m, next, true
}

func (m formModal) View(theme Theme, width, height int) string {
	return overlay(theme, width, height, panel(theme, m.form.view(theme), 60))
}
