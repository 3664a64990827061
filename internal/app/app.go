package app

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/sprintwithfriends/internal/board"
	"github.com/nhle/sprintwithfriends/internal/gateway"
	"github.com/nhle/sprintwithfriends/internal/inbox"
	"github.com/nhle/sprintwithfriends/internal/invitation"
	"github.com/nhle/sprintwithfriends/internal/keys"
	"github.com/nhle/sprintwithfriends/internal/model"
	"github.com/nhle/sprintwithfriends/internal/session"
	"github.com/nhle/sprintwithfriends/internal/ui"
	"github.com/nhle/sprintwithfriends/internal/ui/boardview"
	"github.com/nhle/sprintwithfriends/internal/ui/command"
	"github.com/nhle/sprintwithfriends/internal/ui/detail"
	"github.com/nhle/sprintwithfriends/internal/ui/friends"
	helpview "github.com/nhle/sprintwithfriends/internal/ui/help"
	"github.com/nhle/sprintwithfriends/internal/ui/login"
	"github.com/nhle/sprintwithfriends/internal/ui/prompt"
	"github.com/nhle/sprintwithfriends/internal/ui/taskform"
	"github.com/nhle/sprintwithfriends/internal/ui/toast"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewLogin ViewState = iota
	ViewBoard
	ViewDetail
	ViewHelp
	ViewCommand
	ViewTaskForm
	ViewPrompt
	ViewFriends
)

// Toast lifetimes.
const (
	noticeTTL      = 4 * time.Second
	errorNoticeTTL = 8 * time.Second
)

// Deps are the services the UI drives.
type Deps struct {
	Gateway gateway.Gateway
	Session *session.Provider
	Invites *invitation.Flow
	// Inbox is nil unless inbox watching is configured.
	Inbox  *inbox.Watcher
	Logger *zap.Logger
}

// Model is the root Bubble Tea model: it routes messages between the
// sign-in screen, the board, and the secondary views.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	deps         Deps
	logger       *zap.Logger
	keys         *keys.KeyMap
	toasts       *toast.Stack

	identity  model.Identity
	restoring bool
	signIn    *signIn

	board    boardview.Model
	hasBoard bool

	login       login.Model
	detail      detail.Model
	helpView    helpview.Model
	commandView command.Model
	taskForm    taskform.Model
	prompt      prompt.Model
	friends     friends.Model
	ready       bool
}

// New creates the root model.
func New(deps Deps) Model {
	k := keys.DefaultKeyMap()
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return Model{
		currentView: ViewLogin,
		layout:      ui.NewLayout(80, 24),
		deps:        deps,
		logger:      logger.Named("app"),
		keys:        k,
		toasts:      toast.New(noticeTTL, errorNoticeTTL),
		restoring:   true,
		login:       login.New(80),
		detail:      detail.New(k, 80, 22),
		helpView:    helpview.New(k, 80, 22),
		commandView: command.New(80, 22),
		taskForm:    taskform.New(80, 22),
		prompt:      prompt.New(80),
		friends:     friends.New(deps.Gateway, k, nil, 80, 22),
	}
}

// Init resumes a stored session, if any.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		session.RestoreCmd(m.deps.Session),
		m.login.Init(),
	)
}

// Identity returns the signed-in user.
func (m Model) Identity() model.Identity { return m.identity }

// CurrentView returns the active view.
func (m Model) CurrentView() ViewState { return m.currentView }

// Update handles messages and schedules expiry for any notices raised
// while handling them.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.update(msg)
	return next, tea.Batch(cmd, next.toasts.Schedule())
}

func (m Model) update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.login.SetWidth(w)
		m.detail.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		m.taskForm.SetSize(w, h)
		m.prompt.SetWidth(w)
		m.friends.SetSize(w, h)
		if m.hasBoard {
			m.board.SetSize(w, h)
		}
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case toast.ExpireMsg:
		m.toasts.Update(msg)
		return m, nil

	// === Session ===

	case session.ChangedMsg:
		return m.onIdentity(msg.Identity)

	case session.RestoreFailedMsg:
		m.restoring = false
		m.logger.Debug("no stored session", zap.Error(msg.Err))
		return m, nil

	case session.LinkSentMsg:
		return m.onLinkSent(msg.Pending)

	case awaitResultMsg:
		return m.onAwaitResult(msg)

	case session.ErrMsg:
		if m.currentView == ViewLogin {
			return m, m.login.Fail(msg.Err)
		}
		m.notifyError(msg.Err.Error())
		return m, nil

	case login.RequestMsg:
		return m, session.RequestLinkCmd(m.deps.Session, msg.Email)

	case login.PasteMsg:
		return m, session.PasteCmd(m.deps.Session, msg.Link)

	case login.RestartMsg:
		m.abandonSignIn()
		return m, m.login.Reset()

	case inbox.FoundMsg:
		return m.onInboxToken(msg)

	// === Board ===

	case boardview.OpenTaskMsg:
		m.detail.SetItem(detail.Item{Task: msg.Task, Display: msg.Display, Lane: msg.Lane, Creator: msg.Creator})
		m.switchTo(ViewDetail)
		return m, nil

	case boardview.NewTaskMsg:
		return m.openTaskForm(msg)

	case taskform.SubmitMsg:
		m.currentView = ViewBoard
		return m, m.createTask(msg.Task)

	case taskCreatedMsg:
		return m.onTaskCreated(msg)

	case boardsLoadedMsg:
		return m.onBoardsLoaded(msg)

	case nameSavedMsg:
		if msg.err != nil {
			m.logger.Warn("updating display name", zap.Error(msg.err))
			m.notifyError("Failed to update display name")
			return m, nil
		}
		m.toasts.Notify(model.Notice{Level: model.NoticeSuccess, Title: "Profile updated", Detail: "You are now " + msg.name})
		return m, session.RefreshCmd(m.deps.Session)

	// === Invitations ===

	case prompt.SubmitMsg:
		m.currentView = ViewBoard
		switch msg.Kind {
		case prompt.KindInvite:
			return m, m.deps.Invites.SendCmd(m.identity, msg.Value)
		case prompt.KindDisplayName:
			return m, m.saveName(msg.Value)
		}
		return m, nil

	case invitation.DoneMsg:
		m.toasts.Notify(msg.Outcome.Notice)
		if msg.Outcome.Err == nil && m.hasBoard {
			return m, m.board.Reload()
		}
		return m, nil

	// === Navigation ===

	case friends.OpenBoardMsg:
		m.back()
		return m, m.loadOwnerBoard(msg.OwnerID, msg.Name)

	case detail.BackMsg, taskform.CancelMsg, prompt.CancelMsg, command.CancelMsg, friends.BackMsg:
		m.back()
		return m, nil

	case command.CommandMsg:
		m.back()
		return m.executeCommand(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		if m.currentView == ViewBoard && m.hasBoard {
			msg.Y -= m.layout.HeaderHeight
			var cmd tea.Cmd
			m.board, cmd = m.board.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	return m.broadcast(msg)
}

// broadcast delivers results of background work. Board messages keep
// flowing while another view is in front.
func (m Model) broadcast(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd
	if m.hasBoard {
		var cmd tea.Cmd
		m.board, cmd = m.board.Update(msg)
		cmds = append(cmds, cmd)
	}
	if m.currentView != ViewBoard {
		var cmd tea.Cmd
		m, cmd = m.updateActiveView(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, m.quit()
	}

	switch m.currentView {
	case ViewBoard:
		if m.hasBoard && m.board.Dragging() {
			break
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, m.quit()
		case key.Matches(msg, m.keys.Help):
			m.switchTo(ViewHelp)
			return m, nil
		case key.Matches(msg, m.keys.Command):
			m.switchTo(ViewCommand)
			return m, m.commandView.Focus()
		case key.Matches(msg, m.keys.Invite):
			return m.openPrompt(prompt.KindInvite, "")
		case key.Matches(msg, m.keys.Account):
			return m.openPrompt(prompt.KindDisplayName, m.identity.DisplayName)
		case key.Matches(msg, m.keys.Boards):
			return m, m.loadBoards(boardsNext, "")
		case key.Matches(msg, m.keys.Friends):
			return m.openFriends()
		case key.Matches(msg, m.keys.Cancel):
			m.toasts.Dismiss()
			return m, nil
		}

	case ViewHelp:
		if key.Matches(msg, m.keys.Help) || key.Matches(msg, m.keys.Cancel) {
			m.back()
			return m, nil
		}

	case ViewTaskForm, ViewPrompt:
		if key.Matches(msg, m.keys.Cancel) {
			m.back()
			return m, nil
		}
	}

	return m.updateActiveView(msg)
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewLogin:
		m.login, cmd = m.login.Update(msg)
	case ViewBoard:
		if m.hasBoard {
			m.board, cmd = m.board.Update(msg)
		}
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewTaskForm:
		m.taskForm, cmd = m.taskForm.Update(msg)
	case ViewPrompt:
		m.prompt, cmd = m.prompt.Update(msg)
	case ViewFriends:
		m.friends, cmd = m.friends.Update(msg)
	}

	return m, cmd
}

func (m *Model) switchTo(v ViewState) {
	if m.currentView == v {
		return
	}
	m.previousView = m.currentView
	m.currentView = v
}

// back returns from a secondary view to the board.
func (m *Model) back() {
	if m.hasBoard {
		m.currentView = ViewBoard
		return
	}
	m.currentView = ViewLogin
}

func (m Model) openPrompt(kind prompt.Kind, initial string) (Model, tea.Cmd) {
	m.switchTo(ViewPrompt)
	return m, m.prompt.Start(kind, initial)
}

func (m Model) openFriends() (Model, tea.Cmd) {
	m.switchTo(ViewFriends)
	return m, m.friends.Load(m.identity)
}

func (m Model) openTaskForm(req boardview.NewTaskMsg) (Model, tea.Cmd) {
	if !m.hasBoard {
		return m, nil
	}
	m.switchTo(ViewTaskForm)
	return m, m.taskForm.Start(req.BoardID, req.LaneID, m.board.State().Snapshot().Lanes)
}

// onIdentity reacts to sign-in, sign-out, and profile refreshes.
func (m Model) onIdentity(id model.Identity) (Model, tea.Cmd) {
	m.restoring = false
	m.abandonSignIn()

	if id.ID == "" {
		m.identity = model.Identity{}
		m.closeBoard()
		m.toasts.Dismiss()
		m.currentView = ViewLogin
		return m, m.login.Reset()
	}

	bc := board.Context{}
	if m.hasBoard && m.identity.ID == id.ID {
		bc = m.board.State().Context()
	} else {
		m.toasts.Notify(model.Notice{Level: model.NoticeSuccess, Title: "Signed in", Detail: "Welcome, " + id.DisplayName})
	}
	m.identity = id
	m.logger.Info("signed in", zap.String("user_id", id.ID))

	cmd := m.openBoard(bc)
	if m.currentView == ViewLogin {
		m.currentView = ViewBoard
	}
	return m, cmd
}

// openBoard replaces the board view with one for bc.
func (m *Model) openBoard(bc board.Context) tea.Cmd {
	m.closeBoard()
	st := board.NewState(m.deps.Gateway, m.toasts, m.logger, m.identity, bc)
	m.board = boardview.New(st, board.NewDrag(st), m.deps.Gateway, m.logger, m.keys, m.layout.ContentWidth(), m.layout.ContentHeight())
	m.hasBoard = true
	return m.board.Init()
}

func (m *Model) closeBoard() {
	if !m.hasBoard {
		return
	}
	m.board.State().Deactivate()
	m.board = boardview.Model{}
	m.hasBoard = false
}

func (m *Model) notifyError(detail string) {
	m.toasts.Notify(model.Notice{Level: model.NoticeError, Title: "Error", Detail: detail})
}

func (m *Model) quit() tea.Cmd {
	m.abandonSignIn()
	m.closeBoard()
	return tea.Quit
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader("SprintWithFriends", m.status())
	notices := m.toasts.View(m.layout.ContentWidth())
	statusBar := m.layout.RenderStatusBar(m.keyHints())
	return m.layout.RenderWithFrame(header, m.renderContent(), notices, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewLogin:
		if m.restoring {
			return "\n  Restoring your session..."
		}
		return m.login.View()
	case ViewBoard:
		if m.hasBoard {
			return m.board.View()
		}
		return ""
	case ViewDetail:
		return m.detail.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewTaskForm:
		return m.taskForm.View()
	case ViewPrompt:
		return m.prompt.View()
	case ViewFriends:
		return m.friends.View()
	default:
		return ""
	}
}

// status is the right side of the header.
func (m Model) status() string {
	if m.identity.ID == "" {
		return "signed out"
	}
	if !m.hasBoard {
		return m.identity.DisplayName
	}
	state := "offline"
	if m.board.State().Live() {
		state = "live"
	}
	return fmt.Sprintf("%s · %s", m.identity.DisplayName, state)
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewLogin:
		return "enter continue | ctrl+c quit"
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | esc back"
	case ViewDetail:
		return "esc back | j/k scroll"
	case ViewFriends:
		return "enter open board | j/k move | esc back"
	case ViewTaskForm, ViewPrompt:
		return "enter submit | esc cancel"
	default:
		if m.hasBoard && m.board.Dragging() {
			return "h/l choose lane | space/enter drop | esc cancel"
		}
		return "q quit | ? help | space move | n new | i invite | f friends | tab boards | : command"
	}
}

// requestTimeout bounds app-level gateway calls.
const requestTimeout = 15 * time.Second

func withTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}
