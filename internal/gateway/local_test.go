package gateway_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/nhle/sprintwithfriends/internal/gateway"
	"github.com/nhle/sprintwithfriends/internal/model"
	"github.com/nhle/sprintwithfriends/internal/realtime"
	"github.com/nhle/sprintwithfriends/tests/testutil"
)

type world struct {
	env      testutil.GatewayEnv
	ada, bob model.Identity
	carol    model.Identity
	board    *model.Board
	lanes    []model.Lane
}

// newWorld has ada and bob connected, carol a stranger, and ada's board ready.
func newWorld(t *testing.T) world {
	t.Helper()
	env := testutil.NewTestGateway(t, nil)
	w := world{env: env}
	w.ada = testutil.NewProfile(t, env.Store, "ada@example.com", "Ada")
	w.bob = testutil.NewProfile(t, env.Store, "bob@example.com", "Bob")
	w.carol = testutil.NewProfile(t, env.Store, "carol@example.com", "Carol")
	testutil.Connect(t, env.Store, w.ada, w.bob)

	ctx := context.Background()
	b, err := env.Gateway.EnsurePersonalBoard(ctx, w.ada)
	require.NoError(t, err)
	w.board = b
	w.lanes, err = env.Gateway.ListLanes(ctx, w.ada, b.ID)
	require.NoError(t, err)
	require.Len(t, w.lanes, 3)
	return w
}

func (w world) addTask(t *testing.T, creator model.Identity, title string, points int, private bool) *model.Task {
	t.Helper()
	task, err := w.env.Gateway.CreateTask(context.Background(), creator, model.NewTask{
		BoardID: w.board.ID, LaneID: w.lanes[0].ID, Title: title, Points: points, IsPrivate: private,
	})
	require.NoError(t, err)
	return task
}

func TestRequiresViewer(t *testing.T) {
	w := newWorld(t)
	_, err := w.env.Gateway.EnsurePersonalBoard(context.Background(), model.Identity{})
	assert.ErrorIs(t, err, gateway.ErrUnauthenticated)
	assert.ErrorIs(t, w.env.Gateway.MoveTask(context.Background(), model.Identity{}, "t", "l"), gateway.ErrUnauthenticated)
}

func TestBoardAccessFollowsConnections(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	_, err := w.env.Gateway.GetBoard(ctx, w.bob, w.board.ID)
	assert.NoError(t, err)

	_, err = w.env.Gateway.GetBoard(ctx, w.carol, w.board.ID)
	assert.ErrorIs(t, err, gateway.ErrPermissionDenied)

	_, err = w.env.Gateway.CreateTask(ctx, w.carol, model.NewTask{BoardID: w.board.ID, Title: "x", Points: 1})
	assert.ErrorIs(t, err, gateway.ErrPermissionDenied)

	_, err = w.env.Gateway.EnsurePersonalBoard(ctx, w.bob)
	require.NoError(t, err)
	boards, err := w.env.Gateway.ListBoards(ctx, w.ada)
	require.NoError(t, err)
	require.Len(t, boards, 2)
	assert.Equal(t, w.board.ID, boards[0].ID)
}

func TestListTasksDropsCreatorsOutsideAudience(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	w.addTask(t, w.ada, "mine", 3, false)
	w.addTask(t, w.bob, "friend's", 5, true)

	tasks, err := w.env.Gateway.ListTasks(ctx, w.ada, []string{w.ada.ID, w.bob.ID, w.carol.ID})
	require.NoError(t, err)
	assert.Len(t, tasks, 2)

	tasks, err = w.env.Gateway.ListTasks(ctx, w.ada, []string{w.carol.ID})
	require.NoError(t, err)
	assert.Empty(t, tasks)

	// Tasks on a friend's own board surface too.
	bobBoard, err := w.env.Gateway.EnsurePersonalBoard(ctx, w.bob)
	require.NoError(t, err)
	bobLanes, err := w.env.Gateway.ListLanes(ctx, w.bob, bobBoard.ID)
	require.NoError(t, err)
	_, err = w.env.Gateway.CreateTask(ctx, w.bob, model.NewTask{BoardID: bobBoard.ID, LaneID: bobLanes[0].ID, Title: "elsewhere", Points: 2})
	require.NoError(t, err)

	tasks, err = w.env.Gateway.ListTasks(ctx, w.ada, []string{w.ada.ID, w.bob.ID})
	require.NoError(t, err)
	assert.Len(t, tasks, 3)
}

func TestMoveTaskConditionedOnCreator(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	task := w.addTask(t, w.ada, "mine", 3, false)

	sub, err := w.env.Gateway.Subscribe(ctx, w.bob, w.board.ID)
	require.NoError(t, err)
	defer sub.Close()

	err = w.env.Gateway.MoveTask(ctx, w.bob, task.ID, w.lanes[1].ID)
	assert.ErrorIs(t, err, gateway.ErrPermissionDenied)

	err = w.env.Gateway.MoveTask(ctx, w.ada, "missing", w.lanes[1].ID)
	assert.ErrorIs(t, err, gateway.ErrNotFound)

	err = w.env.Gateway.MoveTask(ctx, w.ada, task.ID, "no-such-lane")
	assert.ErrorIs(t, err, gateway.ErrInvalidInput)

	require.NoError(t, w.env.Gateway.MoveTask(ctx, w.ada, task.ID, w.lanes[2].ID))

	select {
	case c := <-sub.C():
		assert.Equal(t, realtime.TableTasks, c.Table)
		assert.Equal(t, task.ID, c.RowID)
		assert.Equal(t, w.ada.ID, c.ActorID)
	case <-time.After(2 * time.Second):
		t.Fatal("no change published")
	}

	tasks, err := w.env.Gateway.ListTasks(ctx, w.ada, []string{w.ada.ID})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.True(t, tasks[0].InLane(w.lanes[2].ID))
}

func TestSubscribeRequiresAccess(t *testing.T) {
	w := newWorld(t)
	_, err := w.env.Gateway.Subscribe(context.Background(), w.carol, w.board.ID)
	assert.ErrorIs(t, err, gateway.ErrPermissionDenied)
}

func TestGetProfilesLimitedToAudience(t *testing.T) {
	w := newWorld(t)
	profiles, err := w.env.Gateway.GetProfiles(context.Background(), w.ada, []string{w.bob.ID, w.carol.ID})
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "Bob", profiles[0].Name)
}

func TestUpdateDisplayName(t *testing.T) {
	w := newWorld(t)
	p, err := w.env.Gateway.UpdateDisplayName(context.Background(), w.carol, "Caz")
	require.NoError(t, err)
	assert.Equal(t, "Caz", p.Name)

	_, err = w.env.Gateway.UpdateDisplayName(context.Background(), w.carol, " ")
	assert.ErrorIs(t, err, gateway.ErrInvalidInput)
}

func TestSpansRecordErrors(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	env := testutil.NewTestGateway(t, tp)
	ada := testutil.NewProfile(t, env.Store, "ada@example.com", "")
	ctx := context.Background()

	_, err := env.Gateway.EnsurePersonalBoard(ctx, ada)
	require.NoError(t, err)
	_ = env.Gateway.MoveTask(ctx, ada, "missing", "lane")

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "gateway.EnsurePersonalBoard", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, "gateway.MoveTask", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}
