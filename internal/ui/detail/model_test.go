package detail

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/sprintwithfriends/internal/board"
	"github.com/nhle/sprintwithfriends/internal/keys"
	"github.com/nhle/sprintwithfriends/internal/model"
)

func TestMaskedTaskHidesContent(t *testing.T) {
	desc := "rotate the signing keys"
	task := model.Task{ID: "t1", Title: "Fix login bug", Description: &desc, EstimatePoints: 8, CreatorID: "bob", IsPrivate: true}
	viewer := model.Identity{ID: "ada"}

	m := New(keys.DefaultKeyMap(), 80, 24)
	m.SetItem(Item{Task: task, Display: board.Visibility(task, viewer), Lane: model.LaneToDo, Creator: "Bob"})

	out := m.View()
	assert.Contains(t, out, model.PrivateTaskTitle)
	assert.Contains(t, out, "8 pts")
	assert.Contains(t, out, "Friend's task")
	assert.NotContains(t, out, "Fix login bug")
	assert.NotContains(t, out, desc)
}

func TestOwnTaskShowsDescription(t *testing.T) {
	desc := "rotate the signing keys"
	task := model.Task{ID: "t1", Title: "Fix login bug", Description: &desc, EstimatePoints: 8, CreatorID: "ada", IsPrivate: true}

	m := New(keys.DefaultKeyMap(), 80, 24)
	m.SetItem(Item{Task: task, Display: board.Visibility(task, model.Identity{ID: "ada"})})

	out := m.View()
	assert.Contains(t, out, "Fix login bug")
	assert.Contains(t, out, desc)
	assert.NotContains(t, out, "Friend's task")
}

func TestEscGoesBack(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 24)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	_, ok := cmd().(BackMsg)
	assert.True(t, ok)
}
