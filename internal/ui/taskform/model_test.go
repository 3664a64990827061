package taskform

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/sprintwithfriends/internal/model"
)

var lanes = []model.Lane{
	{ID: "todo", BoardID: "b1", Name: model.LaneToDo},
	{ID: "done", BoardID: "b1", Name: model.LaneDone},
}

func TestStartResetsDefaults(t *testing.T) {
	m := New(80, 24)
	m.Start("b1", "todo", lanes)
	m.fb.title = "leftover"
	m.fb.points = 13
	m.fb.private = true

	m.Start("b1", "done", lanes)
	assert.Equal(t, "", m.fb.title)
	assert.Equal(t, model.DefaultPoints, m.fb.points)
	assert.False(t, m.fb.private)
	assert.Equal(t, "done", m.fb.laneID)
	assert.Contains(t, m.View(), "New Task")
}

func TestSubmitBuildsNewTask(t *testing.T) {
	m := New(80, 24)
	m.Start("b1", "todo", lanes)
	m.fb.title = "  Ship it "
	m.fb.description = "soon"
	m.fb.points = 5
	m.fb.private = true

	msg, ok := m.submit()().(SubmitMsg)
	require.True(t, ok)
	assert.Equal(t, model.NewTask{
		BoardID: "b1", LaneID: "todo", Title: "Ship it", Description: "soon", Points: 5, IsPrivate: true,
	}, msg.Task)
}

func TestCtrlCAborts(t *testing.T) {
	m := New(80, 24)
	m.Start("b1", "todo", lanes)

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	_, ok := cmd().(CancelMsg)
	assert.True(t, ok)
	assert.Empty(t, m.View())
}

func TestValidateRequired(t *testing.T) {
	v := validateRequired("Title")
	assert.EqualError(t, v("   "), "Title is required")
	assert.NoError(t, v("x"))
}
