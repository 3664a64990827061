package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/sprintwithfriends/internal/model"
)

const inviteColumns = "id, board_id, invited_email, inviter_id, token, status, expires_at, created_at"

// CreateInvite inserts a pending invite. ID and token are generated when
// empty, and ExpiresAt defaults to model.InviteTTL from now.
func (s *SQLiteStore) CreateInvite(ctx context.Context, inv model.Invite) (*model.Invite, error) {
	inv.InvitedEmail = model.NormalizeEmail(inv.InvitedEmail)
	if !model.ValidEmail(inv.InvitedEmail) {
		return nil, fmt.Errorf("invited email %q: %w", inv.InvitedEmail, ErrInvalid)
	}
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	if inv.Token == "" {
		inv.Token = uuid.New().String()
	}
	now := time.Now().UTC()
	inv.CreatedAt = now
	inv.Status = model.InvitePending
	if inv.ExpiresAt.IsZero() {
		inv.ExpiresAt = now.Add(model.InviteTTL)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invites (`+inviteColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.BoardID, inv.InvitedEmail, inv.InviterID, inv.Token,
		inv.Status, inv.ExpiresAt.UTC(), inv.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating invite: %w", err)
	}
	return &inv, nil
}

// GetInviteByToken retrieves an invite by its token.
func (s *SQLiteStore) GetInviteByToken(ctx context.Context, token string) (*model.Invite, error) {
	var inv model.Invite
	err := s.db.GetContext(ctx, &inv, "SELECT "+inviteColumns+" FROM invites WHERE token = ?", token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("invite: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting invite: %w", err)
	}
	return &inv, nil
}

// GetInvitesByInviter lists the invites sent by inviterID, newest first.
func (s *SQLiteStore) GetInvitesByInviter(ctx context.Context, inviterID string) ([]model.Invite, error) {
	var invites []model.Invite
	err := s.db.SelectContext(ctx, &invites,
		"SELECT "+inviteColumns+" FROM invites WHERE inviter_id = ? ORDER BY created_at DESC", inviterID)
	if err != nil {
		return nil, fmt.Errorf("querying invites of %s: %w", inviterID, err)
	}
	return invites, nil
}

// AcceptInvite consumes a pending invite on behalf of userID and records an
// accepted connection between the inviter and userID. An invite is
// consumed at most once; later attempts get ErrInviteUnavailable.
func (s *SQLiteStore) AcceptInvite(
	ctx context.Context,
	token, userID string,
	now time.Time,
) (*model.Connection, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var inv model.Invite
	err = tx.GetContext(ctx, &inv, "SELECT "+inviteColumns+" FROM invites WHERE token = ?", token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("invite: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting invite: %w", err)
	}

	if inv.InviterID == userID {
		return nil, fmt.Errorf("accepting own invite: %w", ErrInviteUnavailable)
	}
	if inv.Status == model.InvitePending && inv.Expired(now) {
		if _, err := tx.ExecContext(ctx,
			"UPDATE invites SET status = 'expired' WHERE id = ? AND status = 'pending'", inv.ID); err != nil {
			return nil, fmt.Errorf("expiring invite: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("committing invite expiry: %w", err)
		}
		return nil, fmt.Errorf("invite expired: %w", ErrInviteUnavailable)
	}

	result, err := tx.ExecContext(ctx,
		"UPDATE invites SET status = 'accepted' WHERE id = ? AND status = 'pending'", inv.ID)
	if err != nil {
		return nil, fmt.Errorf("accepting invite: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return nil, fmt.Errorf("invite is %s: %w", inv.Status, ErrInviteUnavailable)
	}

	u1, u2 := orderedPair(inv.InviterID, userID)
	acceptedAt := now.UTC()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_connections (`+connectionColumns+`)
		VALUES (?, ?, ?, 'accepted', ?, ?, ?)
		ON CONFLICT (user1_id, user2_id) DO UPDATE SET
			status = 'accepted', accepted_at = excluded.accepted_at`,
		uuid.New().String(), u1, u2, inv.InviterID, acceptedAt, acceptedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("recording connection: %w", err)
	}

	var conn model.Connection
	err = tx.GetContext(ctx, &conn,
		"SELECT "+connectionColumns+" FROM user_connections WHERE user1_id = ? AND user2_id = ?", u1, u2)
	if err != nil {
		return nil, fmt.Errorf("reading connection: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing invite acceptance: %w", err)
	}
	return &conn, nil
}

// DeclineInvite marks a pending invite as declined on behalf of userID.
// The inviter cannot decline their own invite.
func (s *SQLiteStore) DeclineInvite(ctx context.Context, token, userID string, now time.Time) error {
	inv, err := s.GetInviteByToken(ctx, token)
	if err != nil {
		return err
	}
	if inv.InviterID == userID {
		return fmt.Errorf("declining own invite: %w", ErrInviteUnavailable)
	}
	if inv.Status == model.InvitePending && inv.Expired(now) {
		return fmt.Errorf("invite expired: %w", ErrInviteUnavailable)
	}
	result, err := s.db.ExecContext(ctx,
		"UPDATE invites SET status = 'declined' WHERE id = ? AND status = 'pending'", inv.ID)
	if err != nil {
		return fmt.Errorf("declining invite: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("invite is %s: %w", inv.Status, ErrInviteUnavailable)
	}
	return nil
}
