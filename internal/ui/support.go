package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap/zapcore"

	"github.com/five82/manavault/internal/logtail"
	"github.com/five82/manavault/internal/view"
)

const logTailLines = 500

// logLevels is the cycle order of the log level filter.
var logLevels = []zapcore.Level{zapcore.DebugLevel, zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel}

type supportState struct {
	logs     viewport.Model
	lines    []string
	minLevel zapcore.Level
	err      error
}

type logLinesMsg struct {
	lines []string
	err   error
}

func (m *Model) readLogsCmd() tea.Cmd {
	path := m.logPath
	if path == "" {
		return nil
	}
	return func() tea.Msg {
		lines, err := logtail.Read(path, logTailLines)
		return logLinesMsg{lines: lines, err: err}
	}
}

func (m *Model) handleLogLines(msg logLinesMsg) {
	m.support.err = msg.err
	if msg.err != nil {
		return
	}
	atBottom := m.support.logs.AtBottom() || len(m.support.lines) == 0
	m.support.lines = msg.lines
	m.support.logs.SetContent(m.formatLogs())
	if atBottom {
		m.support.logs.GotoBottom()
	}
}

// formatLogs renders the tail at or above the selected level.
func (m Model) formatLogs() string {
	entries := logtail.Filter(m.support.lines, m.support.minLevel)
	styles := m.theme.Styles()
	rendered := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Time.IsZero() {
			rendered = append(rendered, styles.MutedText.Render(e.Raw))
			continue
		}
		levelStyle := styles.MutedText
		switch {
		case e.Level >= zapcore.ErrorLevel:
			levelStyle = styles.DangerText
		case e.Level == zapcore.WarnLevel:
			levelStyle = styles.WarningText
		case e.Level == zapcore.InfoLevel:
			levelStyle = styles.InfoText
		}
		line := styles.FaintText.Render(e.Time.Format("15:04:05")) + " " +
			levelStyle.Render(fmt.Sprintf("%-5s", strings.ToUpper(e.Level.String()))) + " " +
			styles.Text.Render(e.Message)
		if e.Fields != "" {
			line += " " + styles.FaintText.Render(e.Fields)
		}
		rendered = append(rendered, line)
	}
	return strings.Join(rendered, "\n")
}

func (m *Model) handleSupportKey(msg tea.KeyMsg) tea.Cmd {
	notes := m.notify.For(m.session.UserID())
	switch {
	case key.Matches(msg, m.keys.MarkAllRead):
		m.notify.MarkAllRead()
		m.status = statusLine{text: "All notifications marked read"}
		return nil
	case key.Matches(msg, m.keys.LogLevel):
		i := 0
		for j, l := range logLevels {
			if l == m.support.minLevel {
				i = j
			}
		}
		m.support.minLevel = logLevels[(i+1)%len(logLevels)]
		m.support.logs.SetContent(m.formatLogs())
		m.support.logs.GotoBottom()
		return nil
	case key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown):
		var cmd tea.Cmd
		m.support.logs, cmd = m.support.logs.Update(msg)
		return cmd
	case key.Matches(msg, m.keys.Confirm):
		if len(notes) > 0 {
			m.notify.MarkRead(notes[clamp(m.cursors[view.Support], len(notes))].ID)
		}
		return nil
	}
	m.moveCursor(msg, view.Support, len(notes))
	return nil
}

func (m Model) renderSupport() string {
	styles := m.theme.Styles()
	notes := m.notify.For(m.session.UserID())
	height := m.contentHeight()
	listHeight := max(height-m.support.logs.Height-6, 3)

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Notifications"))
	b.WriteString(styles.MutedText.Render(fmt.Sprintf("  %d unread", m.notify.UnreadCount())))
	b.WriteString("\n")
	if len(notes) == 0 {
		b.WriteString(styles.MutedText.Render("  Nothing new."))
		b.WriteString("\n")
	} else {
		cursor := clamp(m.cursors[view.Support], len(notes))
		start, end := window(cursor, len(notes), listHeight)
		for i := start; i < end; i++ {
			n := notes[i]
			mark := "●"
			if n.Read {
				mark = " "
			}
			when := ""
			if t := n.ParsedDate(); !t.IsZero() {
				when = t.Local().Format("Jan 02 15:04")
			}
			row := fmt.Sprintf("%s %s %s", mark, cell(when, 12), n.Message)
			switch {
			case i == cursor:
				b.WriteString(styles.Selected.Render("▸ " + truncate(row, m.width-4)))
			case n.Read:
				b.WriteString("  " + styles.MutedText.Render(truncate(row, m.width-4)))
			default:
				b.WriteString("  " + styles.Text.Render(truncate(row, m.width-4)))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(styles.Text.Bold(true).Render("Application log"))
	b.WriteString(styles.MutedText.Render(fmt.Sprintf("  level ≥ %s", m.support.minLevel)))
	b.WriteString("\n")
	switch {
	case m.logPath == "":
		b.WriteString(styles.MutedText.Render("  Logging to file is disabled."))
	case m.support.err != nil:
		b.WriteString(styles.DangerText.Render("  " + m.support.err.Error()))
	case len(m.support.lines) == 0:
		b.WriteString(styles.MutedText.Render("  " + m.logPath + " is empty."))
	default:
		b.WriteString(lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(lipgloss.Color(m.theme.BorderMuted)).
			Render(m.support.logs.View()))
	}
	return b.String()
}
