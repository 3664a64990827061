package app

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/sprintwithfriends/internal/board"
	"github.com/nhle/sprintwithfriends/internal/gateway"
	"github.com/nhle/sprintwithfriends/internal/model"
	"github.com/nhle/sprintwithfriends/internal/session"
	"github.com/nhle/sprintwithfriends/internal/ui/command"
	"github.com/nhle/sprintwithfriends/internal/ui/prompt"
)

// taskCreatedMsg is sent after a task is persisted.
type taskCreatedMsg struct {
	task *model.Task
	lane string
	err  error
}

// nameSavedMsg is sent after the display name is updated.
type nameSavedMsg struct {
	name string
	err  error
}

// boardChoice is a board the viewer can open, labelled by its owner.
type boardChoice struct {
	Board model.Board
	Label string
	Mine  bool
}

type boardsIntent int

const (
	boardsList boardsIntent = iota
	boardsNext
	boardsOpen
	boardsOwner
)

// boardsLoadedMsg carries the boards visible to the viewer.
type boardsLoadedMsg struct {
	intent  boardsIntent
	query   string
	owner   string
	choices []boardChoice
	err     error
}

func (m Model) createTask(in model.NewTask) tea.Cmd {
	gw, viewer := m.deps.Gateway, m.identity
	lane := ""
	if m.hasBoard {
		if l, ok := m.board.State().Snapshot().Lane(in.LaneID); ok {
			lane = l.Name
		}
	}
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		t, err := gw.CreateTask(ctx, viewer, in)
		return taskCreatedMsg{task: t, lane: lane, err: err}
	}
}

func (m Model) onTaskCreated(msg taskCreatedMsg) (Model, tea.Cmd) {
	if msg.err != nil {
		m.logger.Warn("creating task", zap.Error(msg.err))
		detail := "Failed to create task"
		if errors.Is(msg.err, gateway.ErrInvalidInput) {
			detail = "Check the title and story points"
		}
		m.notifyError(detail)
		return m, nil
	}
	d := "Task created"
	if msg.lane != "" {
		d = "Added to " + msg.lane
	}
	m.toasts.Notify(model.Notice{Level: model.NoticeSuccess, Title: "Task created", Detail: d})
	if !m.hasBoard {
		return m, nil
	}
	return m, m.board.Reload()
}

func (m Model) saveName(name string) tea.Cmd {
	gw, viewer := m.deps.Gateway, m.identity
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()
		p, err := gw.UpdateDisplayName(ctx, viewer, name)
		if err != nil {
			return nameSavedMsg{err: err}
		}
		return nameSavedMsg{name: p.Identity().DisplayName}
	}
}

// loadBoards lists the boards the viewer can open with their owners' names.
func (m Model) loadBoards(intent boardsIntent, query string) tea.Cmd {
	gw, viewer := m.deps.Gateway, m.identity
	return func() tea.Msg {
		ctx, cancel := withTimeout()
		defer cancel()

		boards, err := gw.ListBoards(ctx, viewer)
		if err != nil {
			return boardsLoadedMsg{intent: intent, err: err}
		}
		var owners []string
		for _, b := range boards {
			if b.OwnerID != viewer.ID && !slices.Contains(owners, b.OwnerID) {
				owners = append(owners, b.OwnerID)
			}
		}
		names := map[string]string{}
		if len(owners) > 0 {
			profiles, err := gw.GetProfiles(ctx, viewer, owners)
			if err != nil {
				return boardsLoadedMsg{intent: intent, err: err}
			}
			for _, p := range profiles {
				names[p.ID] = p.Identity().DisplayName
			}
		}

		choices := make([]boardChoice, 0, len(boards))
		for _, b := range boards {
			c := boardChoice{Board: b, Mine: b.OwnerID == viewer.ID}
			switch {
			case c.Mine:
				c.Label = "Mine"
			case names[b.OwnerID] != "":
				c.Label = names[b.OwnerID]
			default:
				c.Label = b.Name
			}
			choices = append(choices, c)
		}
		// Own board first.
		slices.SortStableFunc(choices, func(a, b boardChoice) int {
			switch {
			case a.Mine == b.Mine:
				return 0
			case a.Mine:
				return -1
			default:
				return 1
			}
		})
		msg := boardsLoadedMsg{intent: intent, query: query, choices: choices}
		if intent == boardsOwner {
			msg.owner = query
		}
		return msg
	}
}

func (m Model) onBoardsLoaded(msg boardsLoadedMsg) (Model, tea.Cmd) {
	if msg.err != nil {
		m.logger.Warn("listing boards", zap.Error(msg.err))
		m.notifyError("Failed to load boards")
		return m, nil
	}

	switch msg.intent {
	case boardsNext:
		if len(msg.choices) < 2 || !m.hasBoard {
			m.toasts.Notify(model.Notice{Level: model.NoticeInfo, Title: "Boards", Detail: "Invite a friend to see their board here"})
			return m, nil
		}
		current := m.board.State().Snapshot().Board.ID
		i := slices.IndexFunc(msg.choices, func(c boardChoice) bool { return c.Board.ID == current })
		next := msg.choices[(i+1)%len(msg.choices)]
		return m, m.showBoard(next)

	case boardsOwner:
		for _, c := range msg.choices {
			if c.Board.OwnerID == msg.owner {
				return m, m.showBoard(c)
			}
		}
		m.notifyError("That friend has no board yet")
		return m, nil

	case boardsOpen:
		q := strings.ToLower(msg.query)
		for _, c := range msg.choices {
			if strings.HasPrefix(strings.ToLower(c.Label), q) || strings.EqualFold(c.Board.Name, msg.query) {
				return m, m.showBoard(c)
			}
		}
		m.notifyError(fmt.Sprintf("No board matches %q", msg.query))
		return m, nil

	default:
		labels := make([]string, len(msg.choices))
		for i, c := range msg.choices {
			labels[i] = c.Label
		}
		m.toasts.Notify(model.Notice{Level: model.NoticeInfo, Title: "Boards", Detail: strings.Join(labels, ", ")})
		return m, nil
	}
}

// loadOwnerBoard opens the board owned by ownerID.
func (m Model) loadOwnerBoard(ownerID, name string) tea.Cmd {
	if ownerID == m.identity.ID {
		if !m.hasBoard {
			return nil
		}
		return m.board.Switch(board.Context{})
	}
	m.logger.Debug("opening friend's board", zap.String("owner", ownerID), zap.String("name", name))
	return m.loadBoards(boardsOwner, ownerID)
}

func (m *Model) showBoard(c boardChoice) tea.Cmd {
	if !m.hasBoard {
		return nil
	}
	bc := board.Context{BoardID: c.Board.ID}
	if c.Mine {
		bc = board.Context{}
	}
	return m.board.Switch(bc)
}

// executeCommand handles a command from the command palette.
func (m Model) executeCommand(c command.CommandMsg) (Model, tea.Cmd) {
	switch c.Name {
	case "new":
		if !m.hasBoard {
			return m, nil
		}
		req, ok := m.board.NewTaskRequest()
		if !ok {
			return m, nil
		}
		return m.openTaskForm(req)
	case "invite":
		if c.Arg == "" {
			return m.openPrompt(prompt.KindInvite, "")
		}
		return m, m.deps.Invites.SendCmd(m.identity, c.Arg)
	case "accept":
		return m, m.deps.Invites.AcceptCmd(m.identity, inviteToken(c.Arg))
	case "decline":
		return m, m.deps.Invites.DeclineCmd(m.identity, inviteToken(c.Arg))
	case "board":
		if c.Arg == "" || strings.EqualFold(c.Arg, "mine") {
			if !m.hasBoard {
				return m, nil
			}
			return m, m.board.Switch(board.Context{})
		}
		return m, m.loadBoards(boardsOpen, c.Arg)
	case "boards":
		return m, m.loadBoards(boardsList, "")
	case "friends":
		return m.openFriends()
	case "name":
		if c.Arg == "" {
			return m.openPrompt(prompt.KindDisplayName, m.identity.DisplayName)
		}
		return m, m.saveName(c.Arg)
	case "account":
		return m.openPrompt(prompt.KindDisplayName, m.identity.DisplayName)
	case "refresh":
		if !m.hasBoard {
			return m, nil
		}
		return m, m.board.Reload()
	case "signout":
		return m, session.SignOutCmd(m.deps.Session)
	case "quit":
		return m, m.quit()
	}
	return m, nil
}

// inviteToken accepts a bare token or an invitation URL.
func inviteToken(arg string) string {
	arg = strings.TrimSpace(arg)
	if u, err := url.Parse(arg); err == nil && u.Scheme != "" {
		return path.Base(strings.TrimSuffix(u.Path, "/"))
	}
	return arg
}
