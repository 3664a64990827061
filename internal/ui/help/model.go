package help

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/sprintwithfriends/internal/keys"
	"github.com/nhle/sprintwithfriends/internal/theme"
)

// groupTitles name the columns of KeyMap.FullHelp, in order.
var groupTitles = []string{"Board", "Moving tasks", "Actions", "General"}

var legend = [][2]string{
	{theme.LockGlyph, "private task, only its creator sees the title"},
	{"Friend's task", "created by a friend; read-only for you"},
	{"Committed", "points in To Do against the board's capacity"},
}

// Model is the help overlay view.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	width  int
	height int
}

// New creates a new help view model.
func New(keys *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.Width = width
	return Model{keys: keys, help: h, width: width, height: height}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the help view.
func (m Model) Update(tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the help overlay.
func (m Model) View() string {
	var columns []string
	for i, group := range m.keys.FullHelp() {
		title := ""
		if i < len(groupTitles) {
			title = groupTitles[i]
		}
		columns = append(columns, renderGroup(title, group))
	}
	bindings := lipgloss.JoinHorizontal(lipgloss.Top, columns...)
	if lipgloss.Width(bindings) > m.width-6 {
		bindings = lipgloss.JoinVertical(lipgloss.Left, columns...)
	}

	var lg strings.Builder
	for _, row := range legend {
		fmt.Fprintf(&lg, "%s  %s\n", theme.FriendBadgeStyle.Render(row[0]), theme.HelpStyle.Render(row[1]))
	}

	drag := theme.HelpStyle.Render(
		"Pick a task up with space or the mouse, choose a lane with h/l,\n" +
			"and drop it with space or enter. Only tasks you created can be moved.")

	m.help.Width = m.width - 6
	content := lipgloss.JoinVertical(lipgloss.Left,
		theme.TitleStyle.Render("Keyboard Shortcuts"),
		bindings,
		"",
		drag,
		"",
		strings.TrimRight(lg.String(), "\n"),
		"",
		m.help.ShortHelpView(m.keys.ShortHelp()),
	)

	return theme.PanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(content)
}

func renderGroup(title string, bindings []key.Binding) string {
	lines := []string{theme.LaneHeaderStyle.Render(title)}
	for _, b := range bindings {
		if !b.Enabled() {
			continue
		}
		h := b.Help()
		lines = append(lines, fmt.Sprintf("%-9s %s", h.Key, theme.HelpStyle.Render(h.Desc)))
	}
	return lipgloss.NewStyle().PaddingRight(3).Render(strings.Join(lines, "\n"))
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}
