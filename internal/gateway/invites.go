package gateway

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/nhle/sprintwithfriends/internal/model"
	"github.com/nhle/sprintwithfriends/internal/realtime"
)

// CreateInvite records an invitation from the viewer to email. The email
// itself is sent separately.
func (l *Local) CreateInvite(ctx context.Context, viewer model.Identity, email string) (_ *model.Invite, err error) {
	ctx, span := l.start(ctx, "CreateInvite", viewer)
	defer func() { finish(span, err) }()

	if err := requireViewer(viewer); err != nil {
		return nil, err
	}
	email = model.NormalizeEmail(email)
	if !model.ValidEmail(email) {
		return nil, fmt.Errorf("email %q: %w", email, ErrInvalidInput)
	}
	if email == model.NormalizeEmail(viewer.Email) {
		return nil, fmt.Errorf("inviting yourself: %w", ErrInvalidInput)
	}

	b, _, err := l.store.EnsurePersonalBoard(ctx, viewer.ID, l.boardName, l.boardCapacity)
	if err != nil {
		return nil, err
	}
	inv, err := l.store.CreateInvite(ctx, model.Invite{
		BoardID:      b.ID,
		InvitedEmail: email,
		InviterID:    viewer.ID,
		ExpiresAt:    l.now().UTC().Add(model.InviteTTL),
	})
	if err != nil {
		return nil, err
	}
	l.logger.Info("created invite", zap.String("invite_id", inv.ID), zap.String("inviter_id", viewer.ID))
	return inv, nil
}

// ListInvites returns the invites the viewer has sent.
func (l *Local) ListInvites(ctx context.Context, viewer model.Identity) (_ []model.Invite, err error) {
	ctx, span := l.start(ctx, "ListInvites", viewer)
	defer func() { finish(span, err) }()

	if err := requireViewer(viewer); err != nil {
		return nil, err
	}
	return l.store.GetInvitesByInviter(ctx, viewer.ID)
}

// GetInvite looks up an invitation by token together with the inviter's
// profile. Anyone holding the token may read it.
func (l *Local) GetInvite(ctx context.Context, token string) (_ *model.InviteDetails, err error) {
	ctx, span := l.tracer.Start(ctx, "gateway.GetInvite")
	defer func() { finish(span, err) }()

	inv, err := l.store.GetInviteByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	inviter, err := l.store.GetProfile(ctx, inv.InviterID)
	if err != nil {
		return nil, err
	}
	if inv.Status == model.InvitePending && inv.Expired(l.now()) {
		inv.Status = model.InviteExpired
	}
	return &model.InviteDetails{Invite: *inv, Inviter: *inviter}, nil
}

// AcceptInvite connects the viewer with the inviter and consumes the invite.
func (l *Local) AcceptInvite(ctx context.Context, viewer model.Identity, token string) (_ *model.Connection, err error) {
	ctx, span := l.start(ctx, "AcceptInvite", viewer)
	defer func() { finish(span, err) }()

	if err := requireViewer(viewer); err != nil {
		return nil, err
	}
	conn, err := l.store.AcceptInvite(ctx, token, viewer.ID, l.now())
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("swf.connection_id", conn.ID))

	// Both users' boards now show each other's tasks.
	for _, owner := range []string{conn.User1ID, conn.User2ID} {
		b, err := l.store.GetBoardByOwner(ctx, owner)
		if err != nil {
			continue
		}
		l.publish(ctx, realtime.Change{Table: realtime.TableBoards, Op: realtime.OpUpdate, BoardID: b.ID, RowID: conn.ID, ActorID: viewer.ID})
	}
	return conn, nil
}

// DeclineInvite marks the invitation declined. Like accepting, it is
// refused to the inviter.
func (l *Local) DeclineInvite(ctx context.Context, viewer model.Identity, token string) (err error) {
	ctx, span := l.start(ctx, "DeclineInvite", viewer)
	defer func() { finish(span, err) }()

	if err := requireViewer(viewer); err != nil {
		return err
	}
	return l.store.DeclineInvite(ctx, token, viewer.ID, l.now())
}
