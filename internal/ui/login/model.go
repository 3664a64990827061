// Package login is the sign-in screen: it asks for an email address, then
// waits for the magic link to be opened or pasted.
package login

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/sprintwithfriends/internal/theme"
)

// RequestMsg asks the parent to send a magic link.
type RequestMsg struct{ Email string }

// PasteMsg asks the parent to sign in with a pasted link or code.
type PasteMsg struct{ Link string }

// RestartMsg abandons the pending link and returns to the email step.
type RestartMsg struct{}

// Stage is the step of the sign-in flow.
type Stage int

const (
	StageEmail Stage = iota
	StageSending
	StageWaiting
	StageVerifying
)

// Model is the sign-in screen.
type Model struct {
	stage   Stage
	email   textinput.Model
	paste   textinput.Model
	spinner spinner.Model
	sentTo  string
	watch   bool
	err     string
	width   int
}

// New creates the sign-in screen.
func New(width int) Model {
	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.Prompt = "Email: "
	email.CharLimit = 254
	email.Focus()

	paste := textinput.New()
	paste.Placeholder = "paste the link from the email, or the code from the browser"
	paste.Prompt = "Link: "

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.ColorBlue)

	return Model{email: email, paste: paste, spinner: sp, width: width}
}

// Init starts the cursor blink and spinner.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Stage returns the current step.
func (m Model) Stage() Stage { return m.stage }

// Waiting moves to the waiting step after a link was sent to email.
// inboxWatch notes that the inbox is being checked as well.
func (m *Model) Waiting(email string, inboxWatch bool) tea.Cmd {
	m.stage = StageWaiting
	m.sentTo = email
	m.watch = inboxWatch
	m.err = ""
	m.email.Blur()
	m.paste.SetValue("")
	return m.paste.Focus()
}

// Verifying shows progress while a link found or pasted is checked.
func (m *Model) Verifying() {
	m.stage = StageVerifying
	m.err = ""
}

// Fail reports err and returns to the step that can retry it.
func (m *Model) Fail(err error) tea.Cmd {
	m.err = err.Error()
	switch m.stage {
	case StageSending:
		m.stage = StageEmail
		m.paste.Blur()
		return m.email.Focus()
	case StageVerifying:
		m.stage = StageWaiting
		return m.paste.Focus()
	}
	return nil
}

// Reset returns to the email step, keeping the typed address.
func (m *Model) Reset() tea.Cmd {
	m.stage = StageEmail
	m.sentTo = ""
	m.err = ""
	m.paste.Blur()
	return m.email.Focus()
}

// SetWidth updates the screen width.
func (m *Model) SetWidth(width int) { m.width = width }

// Update handles input.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyEsc:
			if m.stage == StageWaiting {
				return m, func() tea.Msg { return RestartMsg{} }
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	switch m.stage {
	case StageEmail:
		m.email, cmd = m.email.Update(msg)
	case StageWaiting:
		m.paste, cmd = m.paste.Update(msg)
	}
	return m, cmd
}

func (m Model) submit() (Model, tea.Cmd) {
	switch m.stage {
	case StageEmail:
		email := strings.TrimSpace(m.email.Value())
		if email == "" {
			m.err = "Enter your email address"
			return m, nil
		}
		m.stage = StageSending
		m.err = ""
		return m, func() tea.Msg { return RequestMsg{Email: email} }

	case StageWaiting:
		link := strings.TrimSpace(m.paste.Value())
		if link == "" {
			return m, nil
		}
		m.Verifying()
		return m, func() tea.Msg { return PasteMsg{Link: link} }
	}
	return m, nil
}

// View renders the screen.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(theme.TitleStyle.Render("Sign in to SprintWithFriends"))
	b.WriteString("\n")

	switch m.stage {
	case StageEmail:
		b.WriteString("We'll email you a sign-in link. No password needed.\n\n")
		b.WriteString(m.email.View())
		b.WriteString("\n\n")
		b.WriteString(theme.HelpStyle.Render("enter: send link · ctrl+c: quit"))
	case StageSending:
		b.WriteString(m.spinner.View() + " Sending a sign-in link to " + strings.TrimSpace(m.email.Value()) + "...")
	case StageWaiting, StageVerifying:
		b.WriteString("Check your inbox. We sent a link to " + m.sentTo + ".\n")
		b.WriteString("Open it in a browser and you'll be signed in here.\n")
		if m.watch {
			b.WriteString(theme.HelpStyle.Render("Watching your inbox for the link too.") + "\n")
		}
		b.WriteString("\n")
		if m.stage == StageVerifying {
			b.WriteString(m.spinner.View() + " Signing in...")
		} else {
			b.WriteString(m.spinner.View() + " Waiting\n\n")
			b.WriteString(m.paste.View())
			b.WriteString("\n\n")
			b.WriteString(theme.HelpStyle.Render("enter: sign in with pasted link · esc: use another email"))
		}
	}

	if m.err != "" {
		b.WriteString("\n\n")
		b.WriteString(lipgloss.NewStyle().Foreground(theme.ColorRed).Render(m.err))
	}

	return theme.PanelStyle.Width(min(max(m.width-4, 40), 80)).Render(b.String())
}
