// Package toast shows transient notices at the bottom of the screen.
package toast

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/sprintwithfriends/internal/model"
	"github.com/nhle/sprintwithfriends/internal/theme"
)

const maxVisible = 3

// ExpireMsg removes a toast once its time is up.
type ExpireMsg struct{ ID int }

type item struct {
	id        int
	notice    model.Notice
	scheduled bool
}

// Stack is a board.Notifier that queues notices for display. It is only
// touched from the Bubble Tea loop.
type Stack struct {
	items  []item
	nextID int
	short  time.Duration
	long   time.Duration
}

// New creates a Stack. Warnings and errors stay up for long, everything
// else for short.
func New(short, long time.Duration) *Stack {
	return &Stack{short: short, long: long}
}

// Notify queues n, dropping the oldest notice when the stack is full.
func (s *Stack) Notify(n model.Notice) {
	s.nextID++
	s.items = append(s.items, item{id: s.nextID, notice: n})
	if len(s.items) > maxVisible {
		s.items = s.items[len(s.items)-maxVisible:]
	}
}

// Schedule returns expiry timers for notices queued since the last call.
func (s *Stack) Schedule() tea.Cmd {
	var cmds []tea.Cmd
	for i := range s.items {
		if s.items[i].scheduled {
			continue
		}
		s.items[i].scheduled = true
		id := s.items[i].id
		ttl := s.short
		if lvl := s.items[i].notice.Level; lvl == model.NoticeWarning || lvl == model.NoticeError {
			ttl = s.long
		}
		cmds = append(cmds, tea.Tick(ttl, func(time.Time) tea.Msg { return ExpireMsg{ID: id} }))
	}
	return tea.Batch(cmds...)
}

// Update handles ExpireMsg and reports whether msg was consumed.
func (s *Stack) Update(msg tea.Msg) bool {
	e, ok := msg.(ExpireMsg)
	if !ok {
		return false
	}
	for i, it := range s.items {
		if it.id == e.ID {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	return true
}

// Notices returns the queued notices, oldest first.
func (s *Stack) Notices() []model.Notice {
	out := make([]model.Notice, len(s.items))
	for i, it := range s.items {
		out[i] = it.notice
	}
	return out
}

// Dismiss clears every notice.
func (s *Stack) Dismiss() {
	s.items = nil
}

// View renders the queued notices stacked vertically.
func (s *Stack) View(width int) string {
	if len(s.items) == 0 {
		return ""
	}
	rows := make([]string, 0, len(s.items))
	for _, it := range s.items {
		title := lipgloss.NewStyle().Bold(true).Render(it.notice.Title)
		body := title
		if it.notice.Detail != "" {
			body += "  " + it.notice.Detail
		}
		rows = append(rows, theme.NoticeStyle(it.notice.Level).Width(max(10, width-2)).Render(body))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}
