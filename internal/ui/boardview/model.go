// Package boardview renders a board's lanes and turns key and mouse
// gestures into drag operations on the board state.
package boardview

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/sprintwithfriends/internal/board"
	"github.com/nhle/sprintwithfriends/internal/keys"
	"github.com/nhle/sprintwithfriends/internal/model"
	"github.com/nhle/sprintwithfriends/internal/theme"
)

// OpenTaskMsg asks the parent to show a task's details.
type OpenTaskMsg struct {
	Task    model.Task
	Display board.Display
	Lane    string
	Creator string
}

// NewTaskMsg asks the parent to open the task form for a lane.
type NewTaskMsg struct {
	BoardID  string
	LaneID   string
	LaneName string
}

// Profiles resolves display names for task creators.
type Profiles interface {
	GetProfiles(ctx context.Context, viewer model.Identity, ids []string) ([]model.Profile, error)
}

type namesMsg struct {
	names map[string]string
	err   error
}

// Model is the board screen.
type Model struct {
	state    *board.State
	drag     *board.Drag
	profiles Profiles
	logger   *zap.Logger
	keys     *keys.KeyMap
	spinner  spinner.Model

	names map[string]string

	lane     int
	row      int
	dropLane int
	// mouseDrag is set while a drag started with the mouse is in progress.
	mouseDrag bool

	width  int
	height int
}

// New creates a board view over state.
func New(state *board.State, drag *board.Drag, profiles Profiles, logger *zap.Logger, km *keys.KeyMap, width, height int) Model {
	if logger == nil {
		logger = zap.NewNop()
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.HelpStyle
	return Model{
		state:    state,
		drag:     drag,
		profiles: profiles,
		logger:   logger.Named("boardview"),
		keys:     km,
		spinner:  sp,
		names:    map[string]string{},
		width:    width,
		height:   height,
	}
}

// Init activates the board.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.state.Activate(), m.spinner.Tick)
}

// State exposes the underlying board state.
func (m Model) State() *board.State { return m.state }

// Dragging reports whether a drag gesture is in progress.
func (m Model) Dragging() bool { return m.drag.Phase() == board.PhaseDragging }

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Reload issues a fresh load.
func (m Model) Reload() tea.Cmd {
	return m.state.Load()
}

// Switch shows another board.
func (m *Model) Switch(bc board.Context) tea.Cmd {
	m.drag.Cancel()
	m.mouseDrag = false
	m.lane, m.row = 0, 0
	return m.state.Switch(bc)
}

// FocusedLane returns the lane holding the cursor.
func (m Model) FocusedLane() (model.Lane, bool) {
	snap := m.state.Snapshot()
	if m.lane < 0 || m.lane >= len(snap.Lanes) {
		return model.Lane{}, false
	}
	return snap.Lanes[m.lane], true
}

// SelectedTask returns the task under the cursor.
func (m Model) SelectedTask() (model.Task, bool) {
	lane, ok := m.FocusedLane()
	if !ok {
		return model.Task{}, false
	}
	tasks := m.state.Snapshot().TasksIn(lane.ID)
	if m.row < 0 || m.row >= len(tasks) {
		return model.Task{}, false
	}
	return tasks[m.row], true
}

// NewTaskRequest builds the request for the focused lane.
func (m Model) NewTaskRequest() (NewTaskMsg, bool) {
	lane, ok := m.FocusedLane()
	if !ok {
		return NewTaskMsg{}, false
	}
	return NewTaskMsg{BoardID: lane.BoardID, LaneID: lane.ID, LaneName: lane.Name}, true
}

// Update handles board messages and user input.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case namesMsg:
		if msg.err != nil {
			// Names stay blank until the next load retries.
			m.logger.Warn("resolving creator names", zap.Error(msg.err))
			return m, nil
		}
		for id, name := range msg.names {
			m.names[id] = name
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case board.LoadedMsg:
		cmd := m.state.Update(msg)
		m.clamp()
		return m, tea.Batch(cmd, m.resolveNames())
	}

	cmd := tea.Batch(m.state.Update(msg), m.drag.Update(msg))
	m.clamp()
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	snap := m.state.Snapshot()

	if m.Dragging() {
		switch {
		case key.Matches(msg, m.keys.Left):
			m.dropLane = max(0, m.dropLane-1)
		case key.Matches(msg, m.keys.Right):
			m.dropLane = min(len(snap.Lanes)-1, m.dropLane+1)
		case key.Matches(msg, m.keys.Grab), key.Matches(msg, m.keys.Drop):
			return m.drop(snap, m.dropLane)
		case key.Matches(msg, m.keys.Cancel):
			m.drag.Cancel()
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Left):
		if m.lane > 0 {
			m.lane--
			m.row = 0
		}
	case key.Matches(msg, m.keys.Right):
		if m.lane < len(snap.Lanes)-1 {
			m.lane++
			m.row = 0
		}
	case key.Matches(msg, m.keys.Up):
		m.row = max(0, m.row-1)
	case key.Matches(msg, m.keys.Down):
		m.row++
		m.clamp()
	case key.Matches(msg, m.keys.Grab):
		if t, ok := m.SelectedTask(); ok {
			m.drag.OnDragStart(t.ID)
			m.dropLane = m.lane
		}
	case key.Matches(msg, m.keys.Open):
		if t, ok := m.SelectedTask(); ok {
			return m, m.open(snap, t)
		}
	case key.Matches(msg, m.keys.NewTask):
		if req, ok := m.NewTaskRequest(); ok {
			return m, func() tea.Msg { return req }
		}
	case key.Matches(msg, m.keys.Refresh):
		return m, m.state.Load()
	}
	return m, nil
}

func (m Model) drop(snap board.Snapshot, laneIdx int) (Model, tea.Cmd) {
	t, ok := m.drag.ActiveTask()
	if !ok {
		return m, nil
	}
	target := ""
	if laneIdx >= 0 && laneIdx < len(snap.Lanes) {
		target = snap.Lanes[laneIdx].ID
	}
	cmd := m.drag.OnDragEnd(t.ID, target)
	if cmd != nil {
		m.lane = laneIdx
		m.row = 0
	}
	return m, cmd
}

func (m Model) open(snap board.Snapshot, t model.Task) tea.Cmd {
	msg := OpenTaskMsg{
		Task:    t,
		Display: board.Visibility(t, m.state.Viewer()),
		Creator: m.displayName(t.CreatorID),
	}
	if t.LaneID != nil {
		if l, ok := snap.Lane(*t.LaneID); ok {
			msg.Lane = l.Name
		}
	}
	return func() tea.Msg { return msg }
}

func (m *Model) clamp() {
	snap := m.state.Snapshot()
	if len(snap.Lanes) == 0 {
		m.lane, m.row = 0, 0
		return
	}
	m.lane = min(max(0, m.lane), len(snap.Lanes)-1)
	n := len(snap.TasksIn(snap.Lanes[m.lane].ID))
	m.row = min(max(0, m.row), max(0, n-1))
}

func (m Model) displayName(userID string) string {
	if userID == m.state.Viewer().ID {
		return m.state.Viewer().DisplayName
	}
	if name, ok := m.names[userID]; ok {
		return name
	}
	return ""
}

// resolveNames looks up creators not seen before.
func (m Model) resolveNames() tea.Cmd {
	if m.profiles == nil {
		return nil
	}
	viewer := m.state.Viewer()
	seen := map[string]bool{viewer.ID: true}
	var ids []string
	for _, t := range m.state.Snapshot().Tasks {
		if _, known := m.names[t.CreatorID]; known || seen[t.CreatorID] {
			continue
		}
		seen[t.CreatorID] = true
		ids = append(ids, t.CreatorID)
	}
	if len(ids) == 0 {
		return nil
	}
	profiles := m.profiles
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		ps, err := profiles.GetProfiles(ctx, viewer, ids)
		if err != nil {
			return namesMsg{err: err}
		}
		names := make(map[string]string, len(ps))
		for _, p := range ps {
			names[p.ID] = p.Identity().DisplayName
		}
		return namesMsg{names: names}
	}
}
