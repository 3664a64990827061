package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/sprintwithfriends/internal/model"
	"github.com/nhle/sprintwithfriends/internal/store"
	"github.com/nhle/sprintwithfriends/tests/testutil"
)

func TestCreateInviteNormalizesEmail(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	ada := testutil.NewProfile(t, s, "ada@example.com", "")
	fx := newBoard(t, s, ada)

	inv, err := s.CreateInvite(ctx, model.Invite{BoardID: fx.board.ID, InviterID: ada.ID, InvitedEmail: " Bob@Example.com "})
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", inv.InvitedEmail)
	assert.Equal(t, model.InvitePending, inv.Status)
	assert.NotEmpty(t, inv.Token)
	assert.WithinDuration(t, time.Now().Add(model.InviteTTL), inv.ExpiresAt, time.Minute)

	_, err = s.CreateInvite(ctx, model.Invite{BoardID: fx.board.ID, InviterID: ada.ID, InvitedEmail: "bob"})
	assert.ErrorIs(t, err, store.ErrInvalid)

	sent, err := s.GetInvitesByInviter(ctx, ada.ID)
	require.NoError(t, err)
	assert.Len(t, sent, 1)
}

func TestAcceptInviteConnectsUsers(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	ada := testutil.NewProfile(t, s, "ada@example.com", "")
	bob := testutil.NewProfile(t, s, "bob@example.com", "")
	fx := newBoard(t, s, ada)

	inv, err := s.CreateInvite(ctx, model.Invite{BoardID: fx.board.ID, InviterID: ada.ID, InvitedEmail: bob.Email})
	require.NoError(t, err)

	conn, err := s.AcceptInvite(ctx, inv.Token, bob.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, model.ConnectionAccepted, conn.Status)
	assert.Equal(t, bob.ID, conn.Other(ada.ID))
	assert.NotNil(t, conn.AcceptedAt)

	ok, err := s.AreConnected(ctx, bob.ID, ada.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ids, err := s.ConnectedUserIDs(ctx, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{bob.ID}, ids)

	got, err := s.GetInviteByToken(ctx, inv.Token)
	require.NoError(t, err)
	assert.Equal(t, model.InviteAccepted, got.Status)

	_, err = s.AcceptInvite(ctx, inv.Token, bob.ID, time.Now())
	assert.ErrorIs(t, err, store.ErrInviteUnavailable)
}

func TestAcceptInviteIsConsumedOnce(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	ada := testutil.NewProfile(t, s, "ada@example.com", "")
	bob := testutil.NewProfile(t, s, "bob@example.com", "")
	fx := newBoard(t, s, ada)

	inv, err := s.CreateInvite(ctx, model.Invite{BoardID: fx.board.ID, InviterID: ada.ID, InvitedEmail: bob.Email})
	require.NoError(t, err)

	var accepted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.AcceptInvite(ctx, inv.Token, bob.ID, time.Now()); err == nil {
				accepted.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), accepted.Load())
}

func TestAcceptInviteRejections(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	ada := testutil.NewProfile(t, s, "ada@example.com", "")
	bob := testutil.NewProfile(t, s, "bob@example.com", "")
	fx := newBoard(t, s, ada)

	t.Run("own invite", func(t *testing.T) {
		inv, err := s.CreateInvite(ctx, model.Invite{BoardID: fx.board.ID, InviterID: ada.ID, InvitedEmail: "x@example.com"})
		require.NoError(t, err)
		_, err = s.AcceptInvite(ctx, inv.Token, ada.ID, time.Now())
		assert.ErrorIs(t, err, store.ErrInviteUnavailable)
		assert.ErrorIs(t, s.DeclineInvite(ctx, inv.Token, ada.ID, time.Now()), store.ErrInviteUnavailable)

		got, err := s.GetInviteByToken(ctx, inv.Token)
		require.NoError(t, err)
		assert.Equal(t, model.InvitePending, got.Status)
	})

	t.Run("expired", func(t *testing.T) {
		inv, err := s.CreateInvite(ctx, model.Invite{BoardID: fx.board.ID, InviterID: ada.ID, InvitedEmail: bob.Email})
		require.NoError(t, err)
		_, err = s.AcceptInvite(ctx, inv.Token, bob.ID, time.Now().Add(model.InviteTTL+time.Hour))
		assert.ErrorIs(t, err, store.ErrInviteUnavailable)

		got, err := s.GetInviteByToken(ctx, inv.Token)
		require.NoError(t, err)
		assert.Equal(t, model.InviteExpired, got.Status)
	})

	t.Run("declined", func(t *testing.T) {
		inv, err := s.CreateInvite(ctx, model.Invite{BoardID: fx.board.ID, InviterID: ada.ID, InvitedEmail: bob.Email})
		require.NoError(t, err)
		require.NoError(t, s.DeclineInvite(ctx, inv.Token, bob.ID, time.Now()))
		_, err = s.AcceptInvite(ctx, inv.Token, bob.ID, time.Now())
		assert.ErrorIs(t, err, store.ErrInviteUnavailable)
		assert.ErrorIs(t, s.DeclineInvite(ctx, inv.Token, bob.ID, time.Now()), store.ErrInviteUnavailable)
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := s.AcceptInvite(ctx, "nope", bob.ID, time.Now())
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}
