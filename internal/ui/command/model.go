package command

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/sprintwithfriends/internal/theme"
)

// CommandMsg is emitted when the user executes a command.
type CommandMsg struct {
	Name string
	Arg  string
}

// CancelMsg is emitted when the palette is dismissed.
type CancelMsg struct{}

// Spec describes one palette command.
type Spec struct {
	Name    string
	Arg     string
	Summary string
}

// Commands lists what the palette understands.
var Commands = []Spec{
	{Name: "new", Summary: "create a task in the focused lane"},
	{Name: "invite", Arg: "<email>", Summary: "invite a friend by email"},
	{Name: "accept", Arg: "<token>", Summary: "accept an invitation"},
	{Name: "decline", Arg: "<token>", Summary: "decline an invitation"},
	{Name: "board", Arg: "<name|mine>", Summary: "open your board or a friend's"},
	{Name: "boards", Summary: "list the boards you can open"},
	{Name: "friends", Summary: "show friends and sent invites"},
	{Name: "name", Arg: "<display name>", Summary: "change your display name"},
	{Name: "account", Summary: "edit your account"},
	{Name: "refresh", Summary: "reload the board"},
	{Name: "signout", Summary: "sign out"},
	{Name: "quit", Summary: "quit"},
}

var aliases = map[string]string{
	"q":      "quit",
	"reload": "refresh",
	"task":   "new",
	"logout": "signout",
}

// Parse splits input into a command and its argument. Unknown commands
// return ok=false.
func Parse(input string) (CommandMsg, bool) {
	name, arg, _ := strings.Cut(strings.TrimSpace(input), " ")
	name = strings.ToLower(name)
	if a, ok := aliases[name]; ok {
		name = a
	}
	for _, c := range Commands {
		if c.Name == name {
			return CommandMsg{Name: name, Arg: strings.TrimSpace(arg)}, true
		}
	}
	return CommandMsg{}, false
}

// Model is the command palette view.
type Model struct {
	input  textinput.Model
	err    string
	width  int
	height int
}

// New creates a new command palette model.
func New(width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "type a command..."
	ti.Prompt = ": "
	ti.Focus()
	ti.Width = width - 6

	return Model{
		input:  ti,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the command palette.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "esc":
			m.input.Reset()
			m.err = ""
			return m, func() tea.Msg { return CancelMsg{} }
		case "enter":
			raw := strings.TrimSpace(m.input.Value())
			if raw == "" {
				return m, nil
			}
			cmd, ok := Parse(raw)
			if !ok {
				m.err = "unknown command: " + raw
				return m, nil
			}
			m.input.Reset()
			m.err = ""
			return m, func() tea.Msg { return cmd }
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the command palette with the matching commands below it.
func (m Model) View() string {
	title := theme.TitleStyle.Render("Command Palette")
	rows := []string{title, m.input.View()}
	if m.err != "" {
		rows = append(rows, lipgloss.NewStyle().Foreground(theme.ColorRed).Render(m.err))
	}
	rows = append(rows, "")

	prefix := ""
	if f := strings.Fields(m.input.Value()); len(f) > 0 {
		prefix = strings.ToLower(f[0])
	}
	for _, c := range Commands {
		if prefix != "" && !strings.HasPrefix(c.Name, prefix) {
			continue
		}
		usage := c.Name
		if c.Arg != "" {
			usage += " " + c.Arg
		}
		rows = append(rows, lipgloss.NewStyle().Width(28).Render(usage)+theme.HelpStyle.Render(c.Summary))
	}

	return theme.PanelStyle.
		Width(m.width - 4).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// SetSize updates the command palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}

// Focus gives keyboard focus to the text input.
func (m *Model) Focus() tea.Cmd {
	return m.input.Focus()
}
