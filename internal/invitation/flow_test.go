package invitation_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/sprintwithfriends/internal/gateway"
	"github.com/nhle/sprintwithfriends/internal/invitation"
	"github.com/nhle/sprintwithfriends/internal/model"
	"github.com/nhle/sprintwithfriends/internal/store"
	"github.com/nhle/sprintwithfriends/tests/testutil"
)

type fakeMailer struct {
	err  error
	sent []model.Invite
}

func (m *fakeMailer) SendInvitation(_ context.Context, inv model.Invite, _ model.Identity) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, inv)
	return nil
}

func (m *fakeMailer) InviteURL(token string) string {
	return "http://localhost:8787/invite/" + token
}

func TestSendEmailsInvitation(t *testing.T) {
	env := testutil.NewTestGateway(t, nil)
	ada := testutil.NewProfile(t, env.Store, "ada@example.com", "Ada")
	mail := &fakeMailer{}
	flow := invitation.New(env.Gateway, mail, nil)

	out := flow.Send(context.Background(), ada, " Bob@Example.com ")

	require.NoError(t, out.Err)
	require.NotNil(t, out.Invite)
	assert.True(t, out.Emailed)
	assert.Equal(t, model.NoticeSuccess, out.Notice.Level)
	assert.Equal(t, "Invitation sent to bob@example.com", out.Notice.Detail)
	require.Len(t, mail.sent, 1)
	assert.Equal(t, out.Invite.Token, mail.sent[0].Token)
}

func TestSendKeepsInviteWhenEmailFails(t *testing.T) {
	env := testutil.NewTestGateway(t, nil)
	ada := testutil.NewProfile(t, env.Store, "ada@example.com", "Ada")
	flow := invitation.New(env.Gateway, &fakeMailer{err: errors.New("smtp down")}, nil)

	out := flow.Send(context.Background(), ada, "bob@example.com")

	require.NoError(t, out.Err)
	assert.False(t, out.Emailed)
	assert.Equal(t, model.NoticeWarning, out.Notice.Level)
	assert.Contains(t, out.Notice.Detail, "email could not be sent")
	assert.Contains(t, out.Notice.Detail, out.Link)

	// The invite is still there and usable.
	inv, err := env.Store.GetInviteByToken(context.Background(), out.Invite.Token)
	require.NoError(t, err)
	assert.Equal(t, model.InvitePending, inv.Status)
}

func TestSendRejectsBadInput(t *testing.T) {
	env := testutil.NewTestGateway(t, nil)
	ada := testutil.NewProfile(t, env.Store, "ada@example.com", "Ada")
	mail := &fakeMailer{}
	flow := invitation.New(env.Gateway, mail, nil)

	for _, email := range []string{"nope", "ada@example.com"} {
		out := flow.Send(context.Background(), ada, email)
		assert.ErrorIs(t, out.Err, gateway.ErrInvalidInput, email)
		assert.Equal(t, model.NoticeError, out.Notice.Level)
	}
	assert.Empty(t, mail.sent)
}

func TestAcceptConsumesOnce(t *testing.T) {
	env := testutil.NewTestGateway(t, nil)
	ctx := context.Background()
	ada := testutil.NewProfile(t, env.Store, "ada@example.com", "Ada")
	bob := testutil.NewProfile(t, env.Store, "bob@example.com", "Bob")
	flow := invitation.New(env.Gateway, &fakeMailer{}, nil)

	sent := flow.Send(ctx, ada, bob.Email)
	require.NoError(t, sent.Err)

	out := flow.Accept(ctx, bob, sent.Invite.Token)
	require.NoError(t, out.Err)
	assert.Equal(t, "You are now connected with Ada", out.Notice.Detail)

	ok, err := env.Store.AreConnected(ctx, ada.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	again := flow.Accept(ctx, bob, sent.Invite.Token)
	assert.ErrorIs(t, again.Err, store.ErrInviteUnavailable)
	assert.Equal(t, "This invitation is no longer available", again.Notice.Detail)
}

func TestDecline(t *testing.T) {
	env := testutil.NewTestGateway(t, nil)
	ctx := context.Background()
	ada := testutil.NewProfile(t, env.Store, "ada@example.com", "Ada")
	bob := testutil.NewProfile(t, env.Store, "bob@example.com", "Bob")
	flow := invitation.New(env.Gateway, &fakeMailer{}, nil)

	sent := flow.Send(ctx, ada, bob.Email)
	require.NoError(t, sent.Err)

	out := flow.Decline(ctx, bob, sent.Invite.Token)
	require.NoError(t, out.Err)

	unknown := flow.Accept(ctx, bob, "missing-token")
	assert.ErrorIs(t, unknown.Err, gateway.ErrNotFound)
	assert.Equal(t, "Invitation not found", unknown.Notice.Detail)
}

func TestSendCmdDeliversDoneMsg(t *testing.T) {
	env := testutil.NewTestGateway(t, nil)
	ada := testutil.NewProfile(t, env.Store, "ada@example.com", "Ada")
	flow := invitation.New(env.Gateway, &fakeMailer{}, nil)

	msg := flow.SendCmd(ada, "bob@example.com")()
	done, ok := msg.(invitation.DoneMsg)
	require.True(t, ok)
	assert.True(t, done.Outcome.Emailed)
}
