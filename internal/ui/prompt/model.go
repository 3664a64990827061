// Package prompt is a one-field form used for inviting a friend and for
// editing the display name.
package prompt

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/sprintwithfriends/internal/model"
	"github.com/nhle/sprintwithfriends/internal/theme"
)

// Kind identifies what a prompt collects.
type Kind int

const (
	KindInvite Kind = iota
	KindDisplayName
)

// SubmitMsg carries the entered value.
type SubmitMsg struct {
	Kind  Kind
	Value string
}

// CancelMsg is dispatched when the prompt is aborted.
type CancelMsg struct{}

type spec struct {
	heading     string
	title       string
	description string
	placeholder string
	validate    func(string) error
}

var specs = map[Kind]spec{
	KindInvite: {
		heading:     "Invite a Friend",
		title:       "Email",
		description: "They get a link to connect with you",
		placeholder: "friend@example.com",
		validate:    validateEmail,
	},
	KindDisplayName: {
		heading:     "Account",
		title:       "Display name",
		description: "Shown to your friends on shared boards",
		validate:    validateName,
	},
}

// Model is a single-input form.
type Model struct {
	form  *huh.Form
	kind  Kind
	value *string
	width int
}

// New creates an idle prompt.
func New(width int) Model {
	return Model{value: new(string), width: width}
}

// Start opens the prompt for kind with an initial value.
func (m *Model) Start(kind Kind, initial string) tea.Cmd {
	s := specs[kind]
	m.kind = kind
	*m.value = initial
	m.form = huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title(s.title).
			Description(s.description).
			Placeholder(s.placeholder).
			Value(m.value).
			Validate(s.validate),
	)).WithWidth(min(max(m.width-4, 40), 80))
	return m.form.Init()
}

// Update handles messages for the prompt.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.form = nil
		out := SubmitMsg{Kind: m.kind, Value: strings.TrimSpace(*m.value)}
		return m, func() tea.Msg { return out }
	case huh.StateAborted:
		m.form = nil
		return m, func() tea.Msg { return CancelMsg{} }
	}
	return m, cmd
}

// View renders the prompt.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}
	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(theme.TitleStyle.Render(specs[m.kind].heading) + "\n" + m.form.View())
}

// SetWidth updates the form width.
func (m *Model) SetWidth(width int) {
	m.width = width
}

func validateEmail(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("email is required")
	}
	if !model.ValidEmail(model.NormalizeEmail(s)) {
		return fmt.Errorf("enter a plain email address")
	}
	return nil
}

func validateName(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("display name is required")
	}
	if len([]rune(s)) > 60 {
		return fmt.Errorf("display name is too long")
	}
	return nil
}
