// Package board holds the client-side state of one board view: the
// loaded snapshot, drag gestures that move tasks between lanes, and the
// per-viewer rendering rules for tasks.
//
// All mutation happens inside Update on the Bubble Tea event loop. Gateway
// calls run as tea.Cmds and report back as messages tagged with the
// activation epoch they were issued under; messages from an older epoch,
// or arriving after Deactivate, are dropped.
package board

import (
	"context"
	"fmt"
	"slices"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nhle/sprintwithfriends/internal/model"
	"github.com/nhle/sprintwithfriends/internal/realtime"
)

const (
	loadTimeout  = 15 * time.Second
	writeTimeout = 10 * time.Second
)

// Source is the part of the data gateway a board view reads and writes through.
type Source interface {
	EnsurePersonalBoard(ctx context.Context, viewer model.Identity) (*model.Board, error)
	GetBoard(ctx context.Context, viewer model.Identity, boardID string) (*model.Board, error)
	ListLanes(ctx context.Context, viewer model.Identity, boardID string) ([]model.Lane, error)
	ListTasks(ctx context.Context, viewer model.Identity, creatorIDs []string) ([]model.Task, error)
	ConnectedUserIDs(ctx context.Context, viewer model.Identity) ([]string, error)
	MoveTask(ctx context.Context, viewer model.Identity, taskID, laneID string) error
	Subscribe(ctx context.Context, viewer model.Identity, boardID string) (realtime.Feed, error)
}

// Notifier surfaces transient messages to the user.
type Notifier interface {
	Notify(n model.Notice)
}

// Context selects the board to show. An empty BoardID means the viewer's
// personal board, created on first use.
type Context struct {
	BoardID string
}

// LoadedMsg carries the result of a successful load.
type LoadedMsg struct {
	Epoch uint64
	Board model.Board
	Lanes []model.Lane
	Tasks []model.Task
}

// LoadFailedMsg reports a failed load.
type LoadFailedMsg struct {
	Epoch uint64
	Err   error
}

// RemoteChangeMsg is delivered for every realtime change on the board.
type RemoteChangeMsg struct {
	Epoch  uint64
	Change realtime.Change
}

type subscribedMsg struct {
	epoch uint64
	sub   realtime.Feed
	err   error
}

type subscriptionEndedMsg struct {
	epoch uint64
}

// State is the single owner of a board view's lanes and tasks.
type State struct {
	src    Source
	notify Notifier
	logger *zap.Logger
	viewer model.Identity
	bc     Context

	epoch       uint64
	active      bool
	inFlight    int
	snap        Snapshot
	sub         realtime.Feed
	subscribing bool
	offline     bool
}

// NewState returns an inactive board state for viewer.
func NewState(src Source, notify Notifier, logger *zap.Logger, viewer model.Identity, bc Context) *State {
	return &State{
		src:    src,
		notify: notify,
		logger: logger.Named("board"),
		viewer: viewer,
		bc:     bc,
	}
}

// Viewer returns the identity the board is shown to.
func (s *State) Viewer() model.Identity { return s.viewer }

// Context returns the selected board.
func (s *State) Context() Context { return s.bc }

// Active reports whether the state is between Activate and Deactivate.
func (s *State) Active() bool { return s.active }

// Loading reports whether a load issued in this activation is outstanding.
func (s *State) Loading() bool { return s.inFlight > 0 }

// Live reports whether realtime updates are being received.
func (s *State) Live() bool { return s.sub != nil }

// Snapshot returns a copy of the current board contents.
func (s *State) Snapshot() Snapshot {
	return s.snap.clone()
}

func (s *State) current(epoch uint64) bool {
	return s.active && epoch == s.epoch
}

// Activate starts the view: it loads the board and subscribes to its changes.
func (s *State) Activate() tea.Cmd {
	if s.active {
		return s.Load()
	}
	s.epoch++
	s.active = true
	s.inFlight = 0

	cmds := []tea.Cmd{s.Load()}
	if s.bc.BoardID != "" {
		cmds = append(cmds, s.subscribe(s.bc.BoardID))
	}
	return tea.Batch(cmds...)
}

// Deactivate releases the realtime subscription. Commands still in flight
// complete, but their results are ignored.
func (s *State) Deactivate() {
	if !s.active {
		return
	}
	s.active = false
	s.epoch++
	s.inFlight = 0
	s.subscribing = false
	if s.sub != nil {
		if err := s.sub.Close(); err != nil {
			s.logger.Warn("closing subscription", zap.Error(err))
		}
		s.sub = nil
	}
}

// Switch tears the view down and activates it for another board.
func (s *State) Switch(bc Context) tea.Cmd {
	s.Deactivate()
	s.bc = bc
	s.snap = Snapshot{}
	return s.Activate()
}

// Load fetches the board, its lanes, and every task created by the viewer
// or one of their connections. Loads are not serialized: whichever
// completes last defines the snapshot.
func (s *State) Load() tea.Cmd {
	if !s.active {
		return nil
	}
	s.inFlight++

	epoch, src, logger, viewer, boardID := s.epoch, s.src, s.logger, s.viewer, s.bc.BoardID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		msg, err := fetch(ctx, src, logger, viewer, boardID)
		if err != nil {
			return LoadFailedMsg{Epoch: epoch, Err: err}
		}
		msg.Epoch = epoch
		return msg
	}
}

func fetch(ctx context.Context, src Source, logger *zap.Logger, viewer model.Identity, boardID string) (LoadedMsg, error) {
	var (
		b   *model.Board
		err error
	)
	if boardID == "" {
		b, err = src.EnsurePersonalBoard(ctx, viewer)
	} else {
		b, err = src.GetBoard(ctx, viewer, boardID)
	}
	if err != nil {
		return LoadedMsg{}, fmt.Errorf("loading board: %w", err)
	}

	creators := []string{viewer.ID}
	connected, err := src.ConnectedUserIDs(ctx, viewer)
	if err != nil {
		logger.Warn("connected users unavailable, showing own tasks only", zap.Error(err))
	} else {
		creators = append(creators, connected...)
	}

	var (
		lanes []model.Lane
		tasks []model.Task
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		l, err := src.ListLanes(gctx, viewer, b.ID)
		if err != nil {
			return fmt.Errorf("loading lanes: %w", err)
		}
		lanes = l
		return nil
	})
	g.Go(func() error {
		t, err := src.ListTasks(gctx, viewer, creators)
		if err != nil {
			return fmt.Errorf("loading tasks: %w", err)
		}
		tasks = t
		return nil
	})
	if err := g.Wait(); err != nil {
		return LoadedMsg{}, err
	}

	return LoadedMsg{Board: *b, Lanes: lanes, Tasks: tasks}, nil
}

func (s *State) subscribe(boardID string) tea.Cmd {
	s.subscribing = true
	epoch, src, viewer := s.epoch, s.src, s.viewer
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		sub, err := src.Subscribe(ctx, viewer, boardID)
		return subscribedMsg{epoch: epoch, sub: sub, err: err}
	}
}

// waitForChange blocks on the subscription and reports the next change.
// It is re-armed after every delivery.
func waitForChange(sub realtime.Feed, epoch uint64) tea.Cmd {
	return func() tea.Msg {
		c, ok := <-sub.C()
		if !ok {
			return subscriptionEndedMsg{epoch: epoch}
		}
		return RemoteChangeMsg{Epoch: epoch, Change: c}
	}
}

// ApplyOptimisticLaneChange moves a task in the local snapshot only. It
// reports whether a task was changed; unknown ids are ignored.
func (s *State) ApplyOptimisticLaneChange(taskID, laneID string) bool {
	if !s.active {
		return false
	}
	i := slices.IndexFunc(s.snap.Tasks, func(t model.Task) bool { return t.ID == taskID })
	if i < 0 {
		return false
	}
	tasks := slices.Clone(s.snap.Tasks)
	lane := laneID
	tasks[i].LaneID = &lane
	s.snap.Tasks = tasks
	return true
}

// Update applies load results and realtime messages.
func (s *State) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case LoadedMsg:
		if !s.current(msg.Epoch) {
			return nil
		}
		s.settle()
		s.snap = Snapshot{Board: msg.Board, Lanes: msg.Lanes, Tasks: msg.Tasks, Loaded: true}
		if s.sub == nil && !s.subscribing {
			return s.subscribe(msg.Board.ID)
		}

	case LoadFailedMsg:
		if !s.current(msg.Epoch) {
			return nil
		}
		s.settle()
		s.logger.Error("loading board", zap.String("board_id", s.bc.BoardID), zap.Error(msg.Err))
		s.notify.Notify(model.Notice{Level: model.NoticeError, Title: "Error", Detail: "Failed to load board"})

	case RemoteChangeMsg:
		if !s.current(msg.Epoch) || s.sub == nil {
			return nil
		}
		s.logger.Debug("remote change",
			zap.String("table", msg.Change.Table), zap.String("op", msg.Change.Op), zap.String("row_id", msg.Change.RowID))
		return tea.Batch(s.Load(), waitForChange(s.sub, s.epoch))

	case subscribedMsg:
		if !s.current(msg.epoch) {
			if msg.err == nil && msg.sub != nil {
				msg.sub.Close()
			}
			return nil
		}
		s.subscribing = false
		if msg.err != nil {
			s.logger.Warn("subscribing to board changes", zap.Error(msg.err))
			if !s.offline {
				s.notify.Notify(model.Notice{Level: model.NoticeWarning, Title: "Offline", Detail: "Live updates are unavailable"})
			}
			s.offline = true
			return nil
		}
		s.offline = false
		s.sub = msg.sub
		// Changes made before the subscription was confirmed are picked up here.
		return tea.Batch(waitForChange(s.sub, s.epoch), s.Load())

	case subscriptionEndedMsg:
		if !s.current(msg.epoch) {
			return nil
		}
		s.logger.Warn("board subscription ended")
		s.sub = nil
	}
	return nil
}

func (s *State) settle() {
	if s.inFlight > 0 {
		s.inFlight--
	}
}

// commitMove issues the lane write for a drag.
func (s *State) commitMove(taskID, laneID string) tea.Cmd {
	epoch, src, viewer := s.epoch, s.src, s.viewer
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		err := src.MoveTask(ctx, viewer, taskID, laneID)
		return MoveResultMsg{Epoch: epoch, TaskID: taskID, LaneID: laneID, Err: err}
	}
}
