package gateway

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/nhle/sprintwithfriends/internal/model"
	"github.com/nhle/sprintwithfriends/internal/realtime"
	"github.com/nhle/sprintwithfriends/internal/store"
)

const instrumentationName = "github.com/nhle/sprintwithfriends/internal/gateway"

// Local implements Gateway on top of the shared store and the realtime broker.
type Local struct {
	store  store.Store
	pub    Publisher
	logger *zap.Logger
	tracer trace.Tracer
	now    func() time.Time

	boardName     string
	boardCapacity int
}

var _ Gateway = (*Local)(nil)

// Option configures a Local gateway.
type Option func(*Local)

// WithTracerProvider sets the provider spans are recorded with.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(l *Local) { l.tracer = tp.Tracer(instrumentationName) }
}

// WithBoardDefaults sets the name and capacity of new personal boards.
func WithBoardDefaults(name string, capacity int) Option {
	return func(l *Local) {
		l.boardName = name
		l.boardCapacity = capacity
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Local) { l.now = now }
}

// NewLocal returns a gateway backed by st and pub.
func NewLocal(st store.Store, pub Publisher, logger *zap.Logger, opts ...Option) *Local {
	l := &Local{
		store:         st,
		pub:           pub,
		logger:        logger.Named("gateway"),
		tracer:        otel.Tracer(instrumentationName),
		now:           time.Now,
		boardName:     "My Personal Board",
		boardCapacity: 20,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Local) start(ctx context.Context, name string, viewer model.Identity, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("swf.viewer_id", viewer.ID))
	return l.tracer.Start(ctx, "gateway."+name, trace.WithAttributes(attrs...))
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func requireViewer(viewer model.Identity) error {
	if viewer.IsZero() {
		return ErrUnauthenticated
	}
	return nil
}

// publish broadcasts a change. Failures only cost other clients a refresh,
// so they are logged rather than returned.
func (l *Local) publish(ctx context.Context, c realtime.Change) {
	c.At = l.now().UTC()
	if err := l.pub.Publish(ctx, c); err != nil {
		l.logger.Warn("publishing change",
			zap.String("table", c.Table), zap.String("board_id", c.BoardID), zap.Error(err))
	}
}

// audience returns viewer plus every accepted connection of viewer.
func (l *Local) audience(ctx context.Context, viewer model.Identity) ([]string, error) {
	ids, err := l.store.ConnectedUserIDs(ctx, viewer.ID)
	if err != nil {
		return nil, err
	}
	return append([]string{viewer.ID}, ids...), nil
}

// authorizeBoard loads a board the viewer may see: their own or one owned
// by a connection.
func (l *Local) authorizeBoard(ctx context.Context, viewer model.Identity, boardID string) (*model.Board, error) {
	b, err := l.store.GetBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if b.OwnerID == viewer.ID {
		return b, nil
	}
	ok, err := l.store.AreConnected(ctx, viewer.ID, b.OwnerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("board %s: %w", boardID, ErrPermissionDenied)
	}
	return b, nil
}

// EnsurePersonalBoard returns the viewer's board, creating it with the
// default lanes on first use.
func (l *Local) EnsurePersonalBoard(ctx context.Context, viewer model.Identity) (_ *model.Board, err error) {
	ctx, span := l.start(ctx, "EnsurePersonalBoard", viewer)
	defer func() { finish(span, err) }()

	if err := requireViewer(viewer); err != nil {
		return nil, err
	}
	b, created, err := l.store.EnsurePersonalBoard(ctx, viewer.ID, l.boardName, l.boardCapacity)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Bool("swf.board_created", created))
	if created {
		l.logger.Info("created personal board", zap.String("board_id", b.ID), zap.String("owner_id", viewer.ID))
		l.publish(ctx, realtime.Change{Table: realtime.TableBoards, Op: realtime.OpInsert, BoardID: b.ID, RowID: b.ID, ActorID: viewer.ID})
	}
	return b, nil
}

// GetBoard returns a board the viewer has access to.
func (l *Local) GetBoard(ctx context.Context, viewer model.Identity, boardID string) (_ *model.Board, err error) {
	ctx, span := l.start(ctx, "GetBoard", viewer, attribute.String("swf.board_id", boardID))
	defer func() { finish(span, err) }()

	if err := requireViewer(viewer); err != nil {
		return nil, err
	}
	return l.authorizeBoard(ctx, viewer, boardID)
}

// ListBoards returns the viewer's board followed by their connections' boards.
func (l *Local) ListBoards(ctx context.Context, viewer model.Identity) (_ []model.Board, err error) {
	ctx, span := l.start(ctx, "ListBoards", viewer)
	defer func() { finish(span, err) }()

	if err := requireViewer(viewer); err != nil {
		return nil, err
	}
	owners, err := l.audience(ctx, viewer)
	if err != nil {
		return nil, err
	}
	boards := make([]model.Board, 0, len(owners))
	for _, id := range owners {
		b, err := l.store.GetBoardByOwner(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		boards = append(boards, *b)
	}
	return boards, nil
}

// ListLanes returns the lanes of a board ordered by position.
func (l *Local) ListLanes(ctx context.Context, viewer model.Identity, boardID string) (_ []model.Lane, err error) {
	ctx, span := l.start(ctx, "ListLanes", viewer, attribute.String("swf.board_id", boardID))
	defer func() { finish(span, err) }()

	if err := requireViewer(viewer); err != nil {
		return nil, err
	}
	if _, err := l.authorizeBoard(ctx, viewer, boardID); err != nil {
		return nil, err
	}
	return l.store.GetLanes(ctx, boardID)
}

// Subscribe opens a realtime subscription for a board the viewer can see.
func (l *Local) Subscribe(ctx context.Context, viewer model.Identity, boardID string) (_ realtime.Feed, err error) {
	ctx, span := l.start(ctx, "Subscribe", viewer, attribute.String("swf.board_id", boardID))
	defer func() { finish(span, err) }()

	if err := requireViewer(viewer); err != nil {
		return nil, err
	}
	if _, err := l.authorizeBoard(ctx, viewer, boardID); err != nil {
		return nil, err
	}
	sub, err := l.pub.Subscribe(ctx, boardID)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// ListTasks returns the tasks created by any of creatorIDs. Creators
// outside the viewer's audience are silently dropped.
func (l *Local) ListTasks(
	ctx context.Context,
	viewer model.Identity,
	creatorIDs []string,
) (_ []model.Task, err error) {
	ctx, span := l.start(ctx, "ListTasks", viewer, attribute.Int("swf.creators", len(creatorIDs)))
	defer func() { finish(span, err) }()

	if err := requireViewer(viewer); err != nil {
		return nil, err
	}
	allowed, err := l.audience(ctx, viewer)
	if err != nil {
		return nil, err
	}
	visible := make([]string, 0, len(creatorIDs))
	for _, id := range creatorIDs {
		if slices.Contains(allowed, id) {
			visible = append(visible, id)
		}
	}
	return l.store.GetTasks(ctx, store.TaskFilter{CreatorIDs: visible})
}

// CreateTask adds a task created by the viewer at position 0.
func (l *Local) CreateTask(ctx context.Context, viewer model.Identity, in model.NewTask) (_ *model.Task, err error) {
	ctx, span := l.start(ctx, "CreateTask", viewer, attribute.String("swf.board_id", in.BoardID))
	defer func() { finish(span, err) }()

	if err := requireViewer(viewer); err != nil {
		return nil, err
	}
	if _, err := l.authorizeBoard(ctx, viewer, in.BoardID); err != nil {
		return nil, err
	}

	t := model.Task{
		BoardID:        in.BoardID,
		Title:          in.Title,
		EstimatePoints: in.Points,
		IsPrivate:      in.IsPrivate,
		CreatorID:      viewer.ID,
		Position:       0,
	}
	if in.LaneID != "" {
		t.LaneID = &in.LaneID
	}
	if in.Description != "" {
		t.Description = &in.Description
	}

	created, err := l.store.CreateTask(ctx, t)
	if err != nil {
		return nil, err
	}
	l.publish(ctx, realtime.Change{Table: realtime.TableTasks, Op: realtime.OpInsert, BoardID: created.BoardID, RowID: created.ID, ActorID: viewer.ID})
	return created, nil
}

// MoveTask sets a task's lane with a write conditioned on the viewer being
// its creator. A rejected write is classified after the fact.
func (l *Local) MoveTask(ctx context.Context, viewer model.Identity, taskID, laneID string) (err error) {
	ctx, span := l.start(ctx, "MoveTask", viewer,
		attribute.String("swf.task_id", taskID), attribute.String("swf.lane_id", laneID))
	defer func() { finish(span, err) }()

	if err := requireViewer(viewer); err != nil {
		return err
	}

	moveErr := l.store.MoveTaskByCreator(ctx, taskID, viewer.ID, laneID)
	if moveErr == nil {
		t, err := l.store.GetTaskByID(ctx, taskID)
		if err != nil {
			l.logger.Warn("reading moved task", zap.String("task_id", taskID), zap.Error(err))
			return nil
		}
		l.publish(ctx, realtime.Change{Table: realtime.TableTasks, Op: realtime.OpUpdate, BoardID: t.BoardID, RowID: taskID, ActorID: viewer.ID})
		return nil
	}
	if !errors.Is(moveErr, store.ErrNotFound) {
		return moveErr
	}

	t, err := l.store.GetTaskByID(ctx, taskID)
	if err != nil {
		return err
	}
	if t.CreatorID != viewer.ID {
		return fmt.Errorf("moving task %s: %w", taskID, ErrPermissionDenied)
	}
	return fmt.Errorf("lane %s is not on the task's board: %w", laneID, ErrInvalidInput)
}
