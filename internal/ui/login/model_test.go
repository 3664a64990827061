package login

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func typeText(m Model, s string) Model {
	for _, r := range s {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func enter(m Model) (Model, tea.Msg) {
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		return m, nil
	}
	return m, cmd()
}

func TestEmailRequestsLink(t *testing.T) {
	m := typeText(New(80), "ada@example.com")

	m, msg := enter(m)
	assert.Equal(t, RequestMsg{Email: "ada@example.com"}, msg)
	assert.Equal(t, StageSending, m.Stage())
}

func TestEmptyEmailIsRejected(t *testing.T) {
	m, msg := enter(New(80))
	assert.Nil(t, msg)
	assert.Equal(t, StageEmail, m.Stage())
	assert.Contains(t, m.View(), "Enter your email address")
}

func TestSendFailureReturnsToEmail(t *testing.T) {
	m := typeText(New(80), "ada@example.com")
	m, _ = enter(m)

	m.Fail(errors.New("mail is not configured"))
	assert.Equal(t, StageEmail, m.Stage())
	assert.Contains(t, m.View(), "mail is not configured")
}

func TestWaitingAcceptsPastedLink(t *testing.T) {
	m := typeText(New(80), "ada@example.com")
	m, _ = enter(m)
	m.Waiting("ada@example.com", true)
	assert.Contains(t, m.View(), "Check your inbox")
	assert.Contains(t, m.View(), "Watching your inbox")

	m = typeText(m, "abc.def.ghi")
	m, msg := enter(m)
	assert.Equal(t, PasteMsg{Link: "abc.def.ghi"}, msg)
	assert.Equal(t, StageVerifying, m.Stage())

	m.Fail(errors.New("invalid or expired link"))
	assert.Equal(t, StageWaiting, m.Stage())
}

func TestEscWhileWaitingRestarts(t *testing.T) {
	m := New(80)
	m.Waiting("ada@example.com", false)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, RestartMsg{}, cmd())
}
