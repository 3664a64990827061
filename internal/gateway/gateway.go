// Package gateway is the data access boundary used by clients. It owns
// row-level authorization: callers pass the signed-in identity and trust
// whatever the gateway returns.
package gateway

import (
	"context"
	"errors"

	"github.com/nhle/sprintwithfriends/internal/model"
	"github.com/nhle/sprintwithfriends/internal/realtime"
	"github.com/nhle/sprintwithfriends/internal/store"
)

var (
	ErrNotFound          = store.ErrNotFound
	ErrInvalidInput      = store.ErrInvalid
	ErrInviteUnavailable = store.ErrInviteUnavailable
	ErrPermissionDenied  = errors.New("permission denied")
	ErrUnauthenticated   = errors.New("not signed in")
)

// Gateway is the remote data contract.
type Gateway interface {
	// === Boards ===

	EnsurePersonalBoard(ctx context.Context, viewer model.Identity) (*model.Board, error)
	GetBoard(ctx context.Context, viewer model.Identity, boardID string) (*model.Board, error)
	ListBoards(ctx context.Context, viewer model.Identity) ([]model.Board, error)
	ListLanes(ctx context.Context, viewer model.Identity, boardID string) ([]model.Lane, error)
	Subscribe(ctx context.Context, viewer model.Identity, boardID string) (realtime.Feed, error)

	// === Tasks ===

	// ListTasks returns every task created by one of creatorIDs, on any board.
	ListTasks(ctx context.Context, viewer model.Identity, creatorIDs []string) ([]model.Task, error)
	CreateTask(ctx context.Context, viewer model.Identity, in model.NewTask) (*model.Task, error)
	// MoveTask changes a task's lane only if viewer created it.
	MoveTask(ctx context.Context, viewer model.Identity, taskID, laneID string) error

	// === People ===

	ConnectedUserIDs(ctx context.Context, viewer model.Identity) ([]string, error)
	ListConnections(ctx context.Context, viewer model.Identity) ([]model.Connection, error)
	GetProfiles(ctx context.Context, viewer model.Identity, ids []string) ([]model.Profile, error)
	UpdateDisplayName(ctx context.Context, viewer model.Identity, name string) (*model.Profile, error)

	// === Invites ===

	CreateInvite(ctx context.Context, viewer model.Identity, email string) (*model.Invite, error)
	ListInvites(ctx context.Context, viewer model.Identity) ([]model.Invite, error)
	GetInvite(ctx context.Context, token string) (*model.InviteDetails, error)
	AcceptInvite(ctx context.Context, viewer model.Identity, token string) (*model.Connection, error)
	DeclineInvite(ctx context.Context, viewer model.Identity, token string) error
}

// Publisher is the realtime side of the gateway.
type Publisher interface {
	Publish(ctx context.Context, c realtime.Change) error
	Subscribe(ctx context.Context, boardID string) (*realtime.Subscription, error)
}
