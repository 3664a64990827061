package store

import (
	"context"
	"errors"
	"time"

	"github.com/nhle/sprintwithfriends/internal/model"
)

var (
	// ErrNotFound is returned when a lookup or conditioned write matches no row.
	ErrNotFound = errors.New("not found")

	// ErrInvalid wraps validation failures of caller-supplied values.
	ErrInvalid = errors.New("invalid input")

	// ErrInviteUnavailable is returned when an invite is no longer pending,
	// has expired, or is being accepted by its own inviter.
	ErrInviteUnavailable = errors.New("invite unavailable")
)

// TaskFilter selects tasks.
type TaskFilter struct {
	// BoardID restricts results to one board when set.
	BoardID string
	// CreatorIDs restricts results to tasks created by these users.
	// A nil slice means no restriction; an empty one matches nothing.
	CreatorIDs []string
}

// Store defines the persistence interface for profiles, boards, lanes,
// tasks, connections, and invites.
type Store interface {
	// === Profiles ===

	GetProfile(ctx context.Context, id string) (*model.Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (*model.Profile, error)
	GetOrCreateProfileByEmail(ctx context.Context, email string) (*model.Profile, error)
	GetProfiles(ctx context.Context, ids []string) ([]model.Profile, error)
	UpdateProfileName(ctx context.Context, id, name string) error

	// === Boards & Lanes ===

	EnsurePersonalBoard(ctx context.Context, ownerID, name string, capacity int) (*model.Board, bool, error)
	GetBoard(ctx context.Context, id string) (*model.Board, error)
	GetBoardByOwner(ctx context.Context, ownerID string) (*model.Board, error)
	GetLanes(ctx context.Context, boardID string) ([]model.Lane, error)
	GetLane(ctx context.Context, id string) (*model.Lane, error)

	// === Tasks ===

	CreateTask(ctx context.Context, task model.Task) (*model.Task, error)
	GetTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error)
	GetTaskByID(ctx context.Context, id string) (*model.Task, error)
	MoveTaskByCreator(ctx context.Context, taskID, creatorID, laneID string) error

	// === Connections ===

	ConnectedUserIDs(ctx context.Context, userID string) ([]string, error)
	AreConnected(ctx context.Context, a, b string) (bool, error)
	GetConnections(ctx context.Context, userID string) ([]model.Connection, error)

	// === Invites ===

	CreateInvite(ctx context.Context, inv model.Invite) (*model.Invite, error)
	GetInviteByToken(ctx context.Context, token string) (*model.Invite, error)
	GetInvitesByInviter(ctx context.Context, inviterID string) ([]model.Invite, error)
	AcceptInvite(ctx context.Context, token, userID string, now time.Time) (*model.Connection, error)
	DeclineInvite(ctx context.Context, token, userID string, now time.Time) error

	Close() error
}
