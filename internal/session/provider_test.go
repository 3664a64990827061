package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nhle/sprintwithfriends/internal/credential"
	"github.com/nhle/sprintwithfriends/internal/realtime"
	"github.com/nhle/sprintwithfriends/internal/session"
	"github.com/nhle/sprintwithfriends/internal/store"
	"github.com/nhle/sprintwithfriends/tests/testutil"
)

type linkBox struct {
	mu    sync.Mutex
	sent  map[string]string
	fails error
}

func (b *linkBox) SendMagicLink(_ context.Context, email, tok string) error {
	if b.fails != nil {
		return b.fails
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sent == nil {
		b.sent = map[string]string{}
	}
	b.sent[email] = tok
	return nil
}

func (b *linkBox) token(email string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sent[email]
}

type env struct {
	provider *session.Provider
	store    *store.SQLiteStore
	broker   *realtime.Broker
	vault    *credential.Vault
	box      *linkBox
}

func newEnv(t *testing.T) env {
	t.Helper()
	st := testutil.NewTestStore(t)
	_, rc := testutil.NewTestRedis(t)
	broker := realtime.NewBroker(rc, zap.NewNop())
	vault := credential.NewVault(keyring.NewArrayKeyring(nil))
	box := &linkBox{}
	signer := session.NewSigner([]byte("test-secret"), "swf", 15*time.Minute, time.Hour)
	return env{
		provider: session.NewProvider(st, box, broker, vault, signer, zap.NewNop()),
		store:    st,
		broker:   broker,
		vault:    vault,
		box:      box,
	}
}

func TestMagicLinkSignInCreatesProfileOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, ok := e.provider.Current()
	require.False(t, ok)

	pending, err := e.provider.RequestMagicLink(ctx, "  Ada@Example.com ")
	require.NoError(t, err)
	defer pending.Close()
	assert.Equal(t, "ada@example.com", pending.Email)
	assert.True(t, pending.Live())

	tok := e.box.token("ada@example.com")
	require.NotEmpty(t, tok)

	id, err := e.provider.SignInWithLink(ctx, "http://localhost:8787/auth/verify?token="+tok)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", id.Email)

	cur, ok := e.provider.Current()
	require.True(t, ok)
	assert.Equal(t, id, cur)

	// A second link for the same address lands on the same profile.
	_, err = e.provider.RequestMagicLink(ctx, "ada@example.com")
	require.NoError(t, err)
	again, err := e.provider.SignInWithLink(ctx, e.box.token("ada@example.com"))
	require.NoError(t, err)
	assert.Equal(t, id.ID, again.ID)
}

func TestAwaitConfirmationReceivesClick(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pending, err := e.provider.RequestMagicLink(ctx, "bob@example.com")
	require.NoError(t, err)

	type result struct {
		id  string
		err error
	}
	done := make(chan result, 1)
	go func() {
		id, err := e.provider.AwaitConfirmation(ctx, pending)
		done <- result{id.ID, err}
	}()

	// What the landing server does when the link is opened.
	sessionTok, requestID, err := e.provider.VerifyLink(ctx, e.box.token("bob@example.com"))
	require.NoError(t, err)
	assert.Equal(t, pending.RequestID, requestID)
	require.NoError(t, e.broker.PublishLogin(ctx, requestID, sessionTok))

	r := <-done
	require.NoError(t, r.err)
	prof, err := e.store.GetProfileByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, prof.ID, r.id)
}

func TestRestoreAndSignOut(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.provider.Restore(ctx)
	require.ErrorIs(t, err, session.ErrNoSession)

	_, err = e.provider.RequestMagicLink(ctx, "ada@example.com")
	require.NoError(t, err)
	id, err := e.provider.SignInWithLink(ctx, e.box.token("ada@example.com"))
	require.NoError(t, err)

	stored, err := e.vault.Get(credential.KeySession)
	require.NoError(t, err)
	require.NotEmpty(t, stored)

	// A fresh provider over the same keyring resumes the session.
	signer := session.NewSigner([]byte("test-secret"), "swf", 15*time.Minute, time.Hour)
	fresh := session.NewProvider(e.store, e.box, nil, e.vault, signer, nil)
	restored, err := fresh.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, restored)

	require.NoError(t, fresh.SignOut())
	_, ok := fresh.Current()
	assert.False(t, ok)
	_, err = fresh.Restore(ctx)
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestRestoreDropsForgedSession(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.vault.Set(credential.KeySession, "forged"))

	_, err := e.provider.Restore(context.Background())
	require.ErrorIs(t, err, session.ErrInvalidToken)

	_, err = e.vault.Get(credential.KeySession)
	assert.ErrorIs(t, err, credential.ErrNotFound)
}

func TestRequestMagicLinkValidation(t *testing.T) {
	e := newEnv(t)
	_, err := e.provider.RequestMagicLink(context.Background(), "not-an-email")
	assert.Error(t, err)
	assert.Empty(t, e.box.sent)
}

func TestRefreshPicksUpNewName(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.provider.RequestMagicLink(ctx, "ada@example.com")
	require.NoError(t, err)
	id, err := e.provider.SignInWithLink(ctx, e.box.token("ada@example.com"))
	require.NoError(t, err)

	require.NoError(t, e.store.UpdateProfileName(ctx, id.ID, "Ada L."))
	got, err := e.provider.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", got.DisplayName)
}

func TestLinkWorksOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	pending, err := e.provider.RequestMagicLink(ctx, "ada@example.com")
	require.NoError(t, err)
	defer pending.Close()
	link := e.box.token("ada@example.com")

	_, _, err = e.provider.VerifyLink(ctx, link)
	require.NoError(t, err)

	_, _, err = e.provider.VerifyLink(ctx, link)
	assert.ErrorIs(t, err, session.ErrInvalidToken)
	_, err = e.provider.SignInWithLink(ctx, link)
	assert.ErrorIs(t, err, session.ErrInvalidToken)

	// A provider in another process shares the claim through Redis.
	signer := session.NewSigner([]byte("test-secret"), "swf", 15*time.Minute, time.Hour)
	other := session.NewProvider(e.store, e.box, e.broker, e.vault, signer, nil)
	_, _, err = other.VerifyLink(ctx, link)
	assert.ErrorIs(t, err, session.ErrInvalidToken)
}

func TestLinkWorksOnceWithoutWatcher(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	signer := session.NewSigner([]byte("test-secret"), "swf", 15*time.Minute, time.Hour)
	local := session.NewProvider(e.store, e.box, nil, e.vault, signer, nil)

	pending, err := local.RequestMagicLink(ctx, "ada@example.com")
	require.NoError(t, err)
	defer pending.Close()
	link := e.box.token("ada@example.com")

	_, err = local.SignInWithLink(ctx, link)
	require.NoError(t, err)
	_, err = local.SignInWithLink(ctx, link)
	assert.ErrorIs(t, err, session.ErrInvalidToken)
}

func TestSignInWithSessionCode(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	pending, err := e.provider.RequestMagicLink(ctx, "ada@example.com")
	require.NoError(t, err)
	defer pending.Close()

	// The landing page shows the session token when no terminal picked it up.
	code, _, err := e.provider.VerifyLink(ctx, e.box.token("ada@example.com"))
	require.NoError(t, err)

	id, err := e.provider.SignInWithLink(ctx, "  "+code+"\n")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", id.Email)
}
