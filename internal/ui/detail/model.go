package detail

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/sprintwithfriends/internal/board"
	"github.com/nhle/sprintwithfriends/internal/keys"
	"github.com/nhle/sprintwithfriends/internal/model"
	"github.com/nhle/sprintwithfriends/internal/theme"
)

// BackMsg signals the parent to navigate back to the board.
type BackMsg struct{}

// Item is a task as the viewer is allowed to see it.
type Item struct {
	Task    model.Task
	Display board.Display
	Lane    string
	Creator string
}

// Model is the task detail view component.
type Model struct {
	item     *Item
	viewport viewport.Model
	keys     *keys.KeyMap
	width    int
	height   int
}

// New creates a new detail view model.
func New(keys *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     keys,
		width:    width,
		height:   height,
	}
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, m.keys.Cancel) {
		return m, func() tea.Msg { return BackMsg{} }
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the detail view.
func (m Model) View() string {
	if m.item == nil {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("No task selected")
	}
	return m.viewport.View()
}

// renderContent builds the detail content. Masked tasks show only what
// the board shows.
func (m Model) renderContent() string {
	if m.item == nil {
		return ""
	}

	it := m.item
	d := it.Display
	var sections []string

	title := d.Title
	if it.Task.IsPrivate {
		title = theme.LockGlyph + " " + title
	}
	if d.Masked {
		sections = append(sections, theme.MaskedStyle.Render(title))
	} else {
		sections = append(sections, lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).Render(title))
	}

	badges := []string{theme.PointsStyle.Render(fmt.Sprintf("%d pts", it.Task.EstimatePoints))}
	if it.Lane != "" {
		badges = append(badges, it.Lane)
	}
	if d.Foreign {
		badges = append(badges, theme.FriendBadgeStyle.Render("Friend's task"))
	}
	sections = append(sections, strings.Join(badges, "  "), "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)
	row := func(label, value string) {
		sections = append(sections, fmt.Sprintf("%s %s", metaStyle.Render(fmt.Sprintf("%-9s", label+":")), valStyle.Render(value)))
	}

	if it.Creator != "" {
		row("Creator", it.Creator)
	}
	if !d.Masked {
		if !it.Task.CreatedAt.IsZero() {
			row("Created", it.Task.CreatedAt.Format("2006-01-02 15:04"))
		}
		if !it.Task.UpdatedAt.IsZero() {
			row("Updated", it.Task.UpdatedAt.Format("2006-01-02 15:04"))
		}
	}

	sep := lipgloss.NewStyle().Foreground(theme.ColorSubtle).Render(strings.Repeat("─", max(0, min(m.width-4, 80))))
	sections = append(sections, "", sep, "")
	sections = append(sections, lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).Render("Description"))

	var body string
	switch {
	case d.Masked:
		body = theme.MaskedStyle.Render("Only the creator can see this task.")
	case d.Description == nil || *d.Description == "":
		body = theme.MaskedStyle.Render("No description")
	default:
		body = lipgloss.NewStyle().Width(max(20, m.width-4)).Render(*d.Description)
	}
	sections = append(sections, body)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetItem updates the task being displayed.
func (m *Model) SetItem(it Item) {
	m.item = &it
	m.viewport.SetContent(m.renderContent())
	m.viewport.GotoTop()
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	if m.item != nil {
		m.viewport.SetContent(m.renderContent())
	}
}
