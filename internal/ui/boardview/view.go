package boardview

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/sprintwithfriends/internal/board"
	"github.com/nhle/sprintwithfriends/internal/model"
	"github.com/nhle/sprintwithfriends/internal/theme"
)

// Vertical geometry of the board, relative to the top of the view.
const (
	laneTop      = 2 // below the title line and a blank line
	cardTop      = laneTop + 3
	cardHeight   = 3 // two text lines and a margin
	footerHeight = 2
	minLaneWidth = 18
	friendBadge  = "Friend's task"
)

// laneWidth is the outer width of one lane column.
func (m Model) laneWidth(lanes int) int {
	if lanes == 0 {
		return m.width
	}
	return max(minLaneWidth, m.width/lanes)
}

// visibleCards is how many cards fit in a lane column.
func (m Model) visibleCards() int {
	avail := m.height - cardTop - 1 - footerHeight
	return max(1, avail/cardHeight)
}

// laneStart is the index of the first card drawn in lane i.
func (m Model) laneStart(i, n int) int {
	if i != m.lane {
		return 0
	}
	vis := m.visibleCards()
	if m.row < vis || n <= vis {
		return 0
	}
	return m.row - vis + 1
}

// laneAt maps a column to a lane index, or -1.
func (m Model) laneAt(x, y int, lanes int) int {
	if lanes == 0 || y < laneTop || x < 0 {
		return -1
	}
	i := x / m.laneWidth(lanes)
	if i >= lanes {
		return -1
	}
	return i
}

// cardAt maps a position to a lane and card index.
func (m Model) cardAt(x, y int, snap board.Snapshot) (int, int, bool) {
	li := m.laneAt(x, y, len(snap.Lanes))
	if li < 0 || y < cardTop {
		return 0, 0, false
	}
	off := y - cardTop
	if off%cardHeight == cardHeight-1 {
		return 0, 0, false
	}
	tasks := snap.TasksIn(snap.Lanes[li].ID)
	idx := m.laneStart(li, len(tasks)) + off/cardHeight
	if idx >= len(tasks) || off/cardHeight >= m.visibleCards() {
		return 0, 0, false
	}
	return li, idx, true
}

func (m Model) handleMouse(msg tea.MouseMsg) (Model, tea.Cmd) {
	snap := m.state.Snapshot()
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return m, nil
		}
		li, idx, ok := m.cardAt(msg.X, msg.Y, snap)
		if !ok {
			if li := m.laneAt(msg.X, msg.Y, len(snap.Lanes)); li >= 0 {
				m.lane, m.row = li, 0
			}
			return m, nil
		}
		m.lane, m.row = li, idx
		t := snap.TasksIn(snap.Lanes[li].ID)[idx]
		m.drag.OnDragStart(t.ID)
		m.dropLane = li
		m.mouseDrag = true

	case tea.MouseActionMotion:
		if m.mouseDrag && m.Dragging() {
			m.dropLane = m.laneAt(msg.X, msg.Y, len(snap.Lanes))
		}

	case tea.MouseActionRelease:
		if !m.mouseDrag {
			return m, nil
		}
		m.mouseDrag = false
		if !m.Dragging() {
			return m, nil
		}
		li := m.laneAt(msg.X, msg.Y, len(snap.Lanes))
		if li < 0 {
			m.drag.Cancel()
			return m, nil
		}
		return m.drop(snap, li)
	}
	return m, nil
}

// View renders the board.
func (m Model) View() string {
	snap := m.state.Snapshot()
	if !snap.Loaded {
		return "\n  " + m.spinner.View() + " Loading board..."
	}

	var b strings.Builder
	b.WriteString(m.titleLine(snap))
	b.WriteString("\n\n")

	if len(snap.Lanes) == 0 {
		b.WriteString(theme.HelpStyle.Render("  This board has no lanes."))
		return b.String()
	}

	cols := make([]string, 0, len(snap.Lanes))
	w := m.laneWidth(len(snap.Lanes))
	for i, lane := range snap.Lanes {
		cols = append(cols, m.renderLane(i, lane, snap, w))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cols...))
	b.WriteString("\n")
	b.WriteString(m.footer(snap))
	return b.String()
}

func (m Model) titleLine(snap board.Snapshot) string {
	name := theme.LaneHeaderStyle.Render(snap.Board.Name)
	committed := snap.CommittedPoints()
	remaining := snap.RemainingPoints()
	capacity := fmt.Sprintf("Committed %s / %d pts", theme.PointsStyle.Render(fmt.Sprint(committed)), snap.Board.SprintCapacityPoints)
	left := theme.CapacityStyle(remaining).Render(fmt.Sprintf("%d remaining", remaining))

	status := theme.HelpStyle.Render("offline")
	if m.state.Live() {
		status = lipgloss.NewStyle().Foreground(theme.ColorGreen).Render("● live")
	}
	if m.state.Loading() {
		status = m.spinner.View() + " " + status
	}
	return fmt.Sprintf(" %s  %s  %s  %s", name, capacity, left, status)
}

func (m Model) renderLane(i int, lane model.Lane, snap board.Snapshot, width int) string {
	tasks := snap.TasksIn(lane.ID)
	inner := width - 4

	var b strings.Builder
	b.WriteString(theme.LaneHeaderStyle.Render(clip(lane.Name, inner)))
	b.WriteString("\n")
	points, _ := board.LanePoints(lane.ID, snap.Tasks)
	stats := fmt.Sprintf("%d tasks · %d pts", len(tasks), points)
	b.WriteString(theme.HelpStyle.Render(clip(stats, inner)))
	b.WriteString("\n")

	active, dragging := m.drag.ActiveTask()
	start := m.laneStart(i, len(tasks))
	end := min(len(tasks), start+m.visibleCards())
	for j := start; j < end; j++ {
		t := tasks[j]
		style := theme.CardStyle
		switch {
		case dragging && t.ID == active.ID:
			style = theme.DraggingCardStyle
		case !m.Dragging() && i == m.lane && j == m.row:
			style = theme.SelectedCardStyle
		}
		b.WriteString(style.Width(inner - 1).Render(m.renderCard(t, inner-2)))
		b.WriteString("\n")
	}
	if len(tasks) == 0 {
		b.WriteString(theme.HelpStyle.Render("empty"))
	}

	height := m.height - laneTop - footerHeight - 2
	ls := theme.LaneStyle
	switch {
	case m.Dragging() && i == m.dropLane:
		ls = theme.DropTargetLaneStyle
	case i == m.lane:
		ls = theme.FocusedLaneStyle
	}
	return ls.Width(width - 2).Height(max(1, height)).Render(b.String())
}

func (m Model) renderCard(t model.Task, width int) string {
	d := board.Visibility(t, m.state.Viewer())

	title := d.Title
	if t.IsPrivate {
		title = theme.LockGlyph + " " + title
	}
	title = clip(title, width)
	if d.Masked {
		title = theme.MaskedStyle.Render(title)
	}

	meta := []string{theme.PointsStyle.Render(fmt.Sprintf("%d pts", t.EstimatePoints))}
	if d.Foreign {
		badge := friendBadge
		if name := m.displayName(t.CreatorID); name != "" {
			badge += " · " + name
		}
		meta = append(meta, theme.FriendBadgeStyle.Render(badge))
	}
	if d.ShowAssignee && t.AssigneeID != nil {
		if name := m.displayName(*t.AssigneeID); name != "" {
			meta = append(meta, "@"+name)
		}
	}
	return title + "\n" + lipgloss.NewStyle().MaxWidth(width).Render(strings.Join(meta, " "))
}

func (m Model) footer(snap board.Snapshot) string {
	var parts []string
	if t, ok := m.drag.ActiveTask(); ok {
		target := "nowhere"
		if m.dropLane >= 0 && m.dropLane < len(snap.Lanes) {
			target = snap.Lanes[m.dropLane].Name
		}
		d := board.Visibility(t, m.state.Viewer())
		parts = append(parts, fmt.Sprintf("Moving %q to %s", d.Title, target))
	}
	if n := snap.Elsewhere(); n > 0 {
		parts = append(parts, fmt.Sprintf("%d more from friends' boards", n))
	}
	return theme.HelpStyle.Render(" " + strings.Join(parts, "  ·  "))
}

func clip(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r))+1 > width {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}
