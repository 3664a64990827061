package board

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/sprintwithfriends/internal/gateway"
	"github.com/nhle/sprintwithfriends/internal/model"
	"github.com/nhle/sprintwithfriends/internal/realtime"
)

var (
	errOffline = errors.New("offline")
	errNetwork = errors.New("network unreachable")
)

var (
	ada = model.Identity{ID: "ada", Email: "ada@example.com", DisplayName: "Ada"}
	bob = model.Identity{ID: "bob", Email: "bob@example.com", DisplayName: "Bob"}
)

const (
	laneToDo  = "lane-todo"
	laneDoing = "lane-doing"
	laneDone  = "lane-done"
)

type move struct {
	viewer, taskID, laneID string
}

type fakeFeed struct {
	ch   chan realtime.Change
	once sync.Once
	mu   sync.Mutex
	done bool
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{ch: make(chan realtime.Change, 8)}
}

func (f *fakeFeed) C() <-chan realtime.Change { return f.ch }

func (f *fakeFeed) Close() error {
	f.once.Do(func() {
		f.mu.Lock()
		f.done = true
		f.mu.Unlock()
		close(f.ch)
	})
	return nil
}

func (f *fakeFeed) closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.done
}

// fakeSource mimics the gateway: it scopes tasks to the requested creators
// and refuses moves by anyone but the creator.
type fakeSource struct {
	mu        sync.Mutex
	board     model.Board
	lanes     []model.Lane
	tasks     []model.Task
	connected []string

	boardErr error
	connErr  error
	tasksErr error
	moveErr  error
	feed     *fakeFeed

	moves []move
	loads int
}

var _ Source = (*fakeSource)(nil)

func lanePtr(id string) *string { return &id }

func newFakeSource() *fakeSource {
	return &fakeSource{
		board: model.Board{ID: "board-ada", OwnerID: ada.ID, Name: "My Personal Board", SprintCapacityPoints: 20},
		lanes: []model.Lane{
			{ID: laneToDo, BoardID: "board-ada", Name: model.LaneToDo, Position: 0},
			{ID: laneDoing, BoardID: "board-ada", Name: model.LaneInProgress, Position: 1},
			{ID: laneDone, BoardID: "board-ada", Name: model.LaneDone, Position: 2},
		},
		tasks: []model.Task{
			{ID: "t-ada", BoardID: "board-ada", LaneID: lanePtr(laneToDo), Title: "Write docs", EstimatePoints: 5, CreatorID: ada.ID},
			{ID: "t-bob", BoardID: "board-ada", LaneID: lanePtr(laneToDo), Title: "Fix login bug", EstimatePoints: 8, CreatorID: bob.ID, IsPrivate: true},
		},
		connected: []string{bob.ID},
	}
}

func (f *fakeSource) EnsurePersonalBoard(_ context.Context, _ model.Identity) (*model.Board, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	if f.boardErr != nil {
		return nil, f.boardErr
	}
	b := f.board
	return &b, nil
}

func (f *fakeSource) GetBoard(ctx context.Context, viewer model.Identity, boardID string) (*model.Board, error) {
	b, err := f.EnsurePersonalBoard(ctx, viewer)
	if err != nil {
		return nil, err
	}
	if b.ID != boardID {
		return nil, gateway.ErrNotFound
	}
	return b, nil
}

func (f *fakeSource) ListLanes(_ context.Context, _ model.Identity, _ string) ([]model.Lane, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.lanes), nil
}

func (f *fakeSource) ListTasks(_ context.Context, _ model.Identity, creatorIDs []string) ([]model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tasksErr != nil {
		return nil, f.tasksErr
	}
	var out []model.Task
	for _, t := range f.tasks {
		if slices.Contains(creatorIDs, t.CreatorID) {
			l := *t.LaneID
			t.LaneID = &l
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeSource) ConnectedUserIDs(_ context.Context, _ model.Identity) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connErr != nil {
		return nil, f.connErr
	}
	return slices.Clone(f.connected), nil
}

func (f *fakeSource) MoveTask(_ context.Context, viewer model.Identity, taskID, laneID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moves = append(f.moves, move{viewer: viewer.ID, taskID: taskID, laneID: laneID})
	if f.moveErr != nil {
		return f.moveErr
	}
	for i, t := range f.tasks {
		if t.ID == taskID {
			if t.CreatorID != viewer.ID {
				return gateway.ErrPermissionDenied
			}
			f.tasks[i].LaneID = lanePtr(laneID)
			return nil
		}
	}
	return gateway.ErrNotFound
}

func (f *fakeSource) Subscribe(_ context.Context, _ model.Identity, _ string) (realtime.Feed, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.feed == nil {
		return nil, errOffline
	}
	return f.feed, nil
}

func (f *fakeSource) set(fn func(f *fakeSource)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeSource) recordedMoves() []move {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.moves)
}

type recorder struct {
	mu      sync.Mutex
	notices []model.Notice
}

func (r *recorder) Notify(n model.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recorder) at(level model.NoticeLevel) []model.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Notice
	for _, n := range r.notices {
		if n.Level == level {
			out = append(out, n)
		}
	}
	return out
}

type harness struct {
	src   *fakeSource
	notes *recorder
	state *State
	drag  *Drag
}

func newHarness(t *testing.T, src *fakeSource, viewer model.Identity) *harness {
	t.Helper()
	notes := &recorder{}
	st := NewState(src, notes, zap.NewNop(), viewer, Context{})
	t.Cleanup(st.Deactivate)
	return &harness{src: src, notes: notes, state: st, drag: NewDrag(st)}
}

// exec runs cmd synchronously, expanding batches. Only safe when no
// command blocks, i.e. without a realtime feed.
func exec(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, exec(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

// pump feeds cmd's messages, and everything they lead to, through Update.
func (h *harness) pump(cmd tea.Cmd) {
	queue := exec(cmd)
	for len(queue) > 0 {
		msg := queue[0]
		queue = queue[1:]
		queue = append(queue, exec(h.state.Update(msg))...)
		queue = append(queue, exec(h.drag.Update(msg))...)
	}
}

// loop is a small asynchronous runtime for tests that involve blocking
// commands such as realtime listeners.
type loop struct {
	state *State
	drag  *Drag
	msgs  chan tea.Msg
}

func newLoop(state *State, drag *Drag) *loop {
	return &loop{state: state, drag: drag, msgs: make(chan tea.Msg, 64)}
}

func (l *loop) run(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	go func() {
		if msg := cmd(); msg != nil {
			l.msgs <- msg
		}
	}()
}

// until processes messages until cond holds or the deadline passes.
func (l *loop) until(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for !cond() {
		select {
		case msg := <-l.msgs:
			if batch, ok := msg.(tea.BatchMsg); ok {
				for _, c := range batch {
					l.run(c)
				}
				continue
			}
			l.run(l.state.Update(msg))
			l.run(l.drag.Update(msg))
		case <-deadline:
			t.Fatal("condition not reached")
		}
	}
}
