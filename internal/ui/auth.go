package ui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/manavault/internal/market"
	"github.com/five82/manavault/internal/session"
	"github.com/five82/manavault/internal/view"
)

// authState holds the three sign-in sub-screens.
type authState struct {
	login    form
	register form
	forgot   form
	notice   string
	pending  bool
}

func newAuthState() authState {
	login := newForm("Sign in",
		field{label: "Username or email", placeholder: "planeswalker"},
		field{label: "Password", secret: true},
	)
	register := newForm("Create account",
		field{label: "Name", placeholder: "Jace Beleren"},
		field{label: "Username", placeholder: "jace", limit: 40},
		field{label: "Email", placeholder: "jace@example.com"},
		field{label: "Password", secret: true},
	)
	forgot := newForm("Reset password",
		field{label: "Email", placeholder: "jace@example.com"},
	)
	forgot.hint = "Enter the address you registered with."
	return authState{login: login, register: register, forgot: forgot}
}

// current returns the form of the active sub-screen.
func (a *authState) current(v view.AuthView) *form {
	switch v {
	case view.Register:
		return &a.register
	case view.ForgotPassword:
		return &a.forgot
	}
	return &a.login
}

type authDoneMsg struct {
	user     market.User
	signedIn bool
	notice   string
	err      error
}

func (m *Model) handleAuthKey(msg tea.KeyMsg) tea.Cmd {
	sub := m.nav.State().AuthView
	switch {
	case key.Matches(msg, m.keys.ToRegister):
		m.switchAuth(view.Register)
		return nil
	case key.Matches(msg, m.keys.ToForgot):
		m.switchAuth(view.ForgotPassword)
		return nil
	case key.Matches(msg, m.keys.Escape):
		m.switchAuth(view.Login)
		return nil
	}
	if m.auth.pending {
		return nil
	}

	f := m.auth.current(sub)
	cmd, submitted := f.update(msg, m.keys)
	if !submitted {
		return cmd
	}
	f.problem = ""
	return m.submitAuth(sub, f.values())
}

func (m *Model) switchAuth(v view.AuthView) {
	m.nav.SetAuthView(v)
	m.auth.current(v).problem = ""
	m.auth.notice = ""
}

func (m *Model) submitAuth(sub view.AuthView, values []string) tea.Cmd {
	ctx, sess := m.ctx, m.session
	switch sub {
	case view.Register:
		name, username, email, password := values[0], values[1], values[2], values[3]
		m.auth.pending = true
		return func() tea.Msg {
			user, err := sess.Register(ctx, name, username, email, password)
			return authDoneMsg{user: user, signedIn: err == nil, err: err}
		}
	case view.ForgotPassword:
		email := values[0]
		return func() tea.Msg {
			if err := sess.ResetPassword(email); err != nil {
				return authDoneMsg{err: err}
			}
			return authDoneMsg{notice: "If " + email + " is registered, a reset link is on its way."}
		}
	}
	identifier, password := values[0], values[1]
	if identifier == "" || password == "" {
		m.auth.login.problem = session.ErrMissingFields.Error()
		return nil
	}
	m.auth.pending = true
	return func() tea.Msg {
		user, err := sess.Login(ctx, identifier, password)
		return authDoneMsg{user: user, signedIn: err == nil, err: err}
	}
}

func (m *Model) handleAuthDone(msg authDoneMsg) tea.Cmd {
	m.auth.pending = false
	sub := m.nav.State().AuthView
	if msg.err != nil {
		m.auth.current(sub).problem = authProblem(msg.err)
		return nil
	}
	if msg.notice != "" {
		m.auth.forgot.reset()
		m.switchAuth(view.Login)
		m.auth.notice = msg.notice
		return nil
	}
	if !msg.signedIn {
		return nil
	}
	m.auth.login.reset()
	m.auth.register.reset()
	m.auth.notice = ""
	m.nav.AuthSucceeded(m.ctx)
	m.status = statusLine{text: "Welcome, " + displayName(msg.user)}
	if m.store == nil {
		return nil
	}
	return fetchSnapshotCmd(m.store)
}

// authProblem turns a sign-in failure into a line for the form.
func authProblem(err error) string {
	switch {
	case errors.Is(err, session.ErrInvalidCredentials):
		return "Invalid username or password."
	case errors.Is(err, session.ErrConflict):
		return "An account with that username or email already exists."
	case market.IsTransport(err):
		return "Cannot reach the server. Try again later."
	case market.IsRejected(err):
		if msg := market.RejectionMessage(err); msg != "" {
			return msg
		}
	}
	return err.Error()
}

func displayName(u market.User) string {
	if strings.TrimSpace(u.Name) != "" {
		return u.Name
	}
	return u.Username
}

func (m Model) renderAuth() string {
	styles := m.theme.Styles()
	sub := m.nav.State().AuthView
	f := m.auth.current(sub)

	var b strings.Builder
	b.WriteString(styles.Logo.Render(logo))
	b.WriteString("\n\n")
	if m.auth.notice != "" {
		b.WriteString(styles.SuccessText.Render(m.auth.notice))
		b.WriteString("\n\n")
	}
	b.WriteString(f.view(m.theme))
	b.WriteString("\n\n")
	if m.auth.pending {
		b.WriteString(styles.InfoText.Render("Signing in..."))
		b.WriteString("\n")
	}
	switch sub {
	case view.Login:
		b.WriteString(styles.MutedText.Render("Ctrl+N: Create account  •  Ctrl+F: Forgot password  •  Ctrl+C: Quit"))
	default:
		b.WriteString(styles.MutedText.Render("Esc: Back to sign in"))
	}
	return overlay(m.theme, m.width, m.contentHeight(), panel(m.theme, b.String(), 64))
}
