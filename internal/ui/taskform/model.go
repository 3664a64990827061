package taskform

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/sprintwithfriends/internal/model"
	"github.com/nhle/sprintwithfriends/internal/theme"
)

// SubmitMsg is dispatched when the form is completed.
type SubmitMsg struct {
	Task model.NewTask
}

// CancelMsg is dispatched when the user aborts the form.
type CancelMsg struct{}

// formBindings holds field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	title       string
	description string
	points      int
	laneID      string
	private     bool
}

// Model is the new-task form.
type Model struct {
	form    *huh.Form
	fb      *formBindings
	boardID string
	lanes   []model.Lane
	width   int
	height  int
}

// New creates a task form.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{points: model.DefaultPoints},
		width:  width,
		height: height,
	}
}

// Start resets the form for a new task on boardID, preselecting laneID.
func (m *Model) Start(boardID, laneID string, lanes []model.Lane) tea.Cmd {
	m.boardID = boardID
	m.lanes = lanes
	*m.fb = formBindings{points: model.DefaultPoints, laneID: laneID}
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages for the form.
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
		return m, m.submit()
	case huh.StateAborted:
		m.form = nil
		return m, func() tea.Msg { return CancelMsg{} }
	}
	return m, cmd
}

// View renders the form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}
	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(theme.TitleStyle.Render("New Task") + "\n" + m.form.View())
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	points := make([]huh.Option[int], len(model.ValidPoints))
	for i, p := range model.ValidPoints {
		points[i] = huh.NewOption(fmt.Sprintf("%d", p), p)
	}

	fields := []huh.Field{
		huh.NewInput().
			Title("Title").
			Placeholder("What needs to be done?").
			Value(&m.fb.title).
			Validate(validateRequired("Title")),
		huh.NewText().
			Title("Description").
			Placeholder("Optional details...").
			Value(&m.fb.description),
		huh.NewSelect[int]().
			Title("Story points").
			Options(points...).
			Value(&m.fb.points),
	}
	if len(m.lanes) > 0 {
		lanes := make([]huh.Option[string], len(m.lanes))
		for i, l := range m.lanes {
			lanes[i] = huh.NewOption(l.Name, l.ID)
		}
		fields = append(fields, huh.NewSelect[string]().
			Title("Lane").
			Options(lanes...).
			Value(&m.fb.laneID))
	}
	fields = append(fields, huh.NewConfirm().
		Title("Private").
		Description("Friends see only \"" + model.PrivateTaskTitle + "\"").
		Affirmative("Private").
		Negative("Visible").
		Value(&m.fb.private))

	return huh.NewForm(
		huh.NewGroup(fields...),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) submit() tea.Cmd {
	t := model.NewTask{
		BoardID:     m.boardID,
		LaneID:      m.fb.laneID,
		Title:       strings.TrimSpace(m.fb.title),
		Description: strings.TrimSpace(m.fb.description),
		Points:      m.fb.points,
		IsPrivate:   m.fb.private,
	}
	return func() tea.Msg { return SubmitMsg{Task: t} }
}

func (m Model) formWidth() int {
	return min(max(m.width-4, 40), 100)
}

func (m Model) formHeight() int {
	return max(m.height-4, 10)
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}
