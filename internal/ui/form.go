package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// field describes one form input.
type field struct {
	label       string
	placeholder string
	value       string
	secret      bool
	limit       int
}

// form is a vertical list of labelled text inputs.
type form struct {
	title   string
	hint    string
	labels  []string
	inputs  []textinput.Model
	focus   int
	problem string
}

func newForm(title string, fields ...field) form {
	f := form{title: title}
	for _, fd := range fields {
		in := textinput.New()
		in.Placeholder = fd.placeholder
		in.CharLimit = fd.limit
		if in.CharLimit == 0 {
			in.CharLimit = 120
		}
		in.Width = 36
		in.Prompt = ""
		if fd.secret {
			in.EchoMode = textinput.EchoPassword
			in.EchoCharacter = '•'
		}
		in.SetValue(fd.value)
		f.labels = append(f.labels, fd.label)
		f.inputs = append(f.inputs, in)
	}
	if len(f.inputs) > 0 {
		f.inputs[0].Focus()
	}
	return f
}

// value returns the trimmed value of field i.
func (f form) value(i int) string {
	if i < 0 || i >= len(f.inputs) {
		return ""
	}
	return strings.TrimSpace(f.inputs[i].Value())
}

// values returns every trimmed value in field order.
func (f form) values() []string {
	out := make([]string, len(f.inputs))
	for i := range f.inputs {
		out[i] = f.value(i)
	}
	return out
}

func (f *form) setFocus(i int) {
	if len(f.inputs) == 0 {
		return
	}
	f.inputs[f.focus].Blur()
	f.focus = (i + len(f.inputs)) % len(f.inputs)
	f.inputs[f.focus].Focus()
}

// reset clears every value and focuses the first field.
func (f *form) reset() {
	for i := range f.inputs {
		f.inputs[i].SetValue("")
	}
	f.problem = ""
	f.setFocus(0)
}

// update feeds msg to the form. It reports true when the form was
// submitted: enter on the last field, or ctrl+s anywhere.
func (f *form) update(msg tea.Msg, keys keyMap) (tea.Cmd, bool) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(km, keys.Submit):
			return nil, true
		case key.Matches(km, keys.Confirm):
			if f.focus == len(f.inputs)-1 {
				return nil, true
			}
			f.setFocus(f.focus + 1)
			return nil, false
		case key.Matches(km, keys.Tab), km.Type == tea.KeyDown:
			f.setFocus(f.focus + 1)
			return nil, false
		case key.Matches(km, keys.ShiftTab), km.Type == tea.KeyUp:
			f.setFocus(f.focus - 1)
			return nil, false
		}
	}
	if len(f.inputs) == 0 {
		return nil, false
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd, false
}

func (f form) view(theme Theme) string {
	styles := theme.Styles()
	width := 0
	for _, l := range f.labels {
		width = max(width, len([]rune(l)))
	}

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render(f.title))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", 40)))
	b.WriteString("\n\n")
	if f.hint != "" {
		b.WriteString(styles.MutedText.Render(f.hint))
		b.WriteString("\n\n")
	}
	for i, in := range f.inputs {
		label := padRight(f.labels[i]+":", width+2)
		if i == f.focus {
			label = styles.AccentText.Render(label)
		} else {
			label = styles.MutedText.Render(label)
		}
		b.WriteString(label)
		b.WriteString(in.View())
		b.WriteString("\n\n")
	}
	if f.problem != "" {
		b.WriteString(styles.DangerText.Render(f.problem))
		b.WriteString("\n\n")
	}
	b.WriteString(styles.FaintText.Render("Tab: Next  •  Enter: Submit on last field  •  Ctrl+S: Submit  •  Esc: Cancel"))
	return b.String()
}

// panel wraps content in the modal frame used across the UI.
func panel(theme Theme, content string, width int) string {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(theme.Accent)).
		Padding(1, 2).
		Width(width).
		Render(content)
}

// overlay centers block in a width×height area.
func overlay(theme Theme, width, height int, block string) string {
	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		block,
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(theme.Background)),
	)
}
