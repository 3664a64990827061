package server_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"testing"
	"time"

	"github.com/99designs/keyring"
	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nhle/sprintwithfriends/internal/credential"
	"github.com/nhle/sprintwithfriends/internal/model"
	"github.com/nhle/sprintwithfriends/internal/server"
	"github.com/nhle/sprintwithfriends/internal/session"
	"github.com/nhle/sprintwithfriends/tests/testutil"
)

type nopMailer struct{}

func (nopMailer) SendMagicLink(context.Context, string, string) error { return nil }

type failingPublisher struct{}

func (failingPublisher) PublishLogin(context.Context, string, string) error {
	return errors.New("redis down")
}

type fixture struct {
	env      testutil.GatewayEnv
	signer   *session.Signer
	provider *session.Provider
	handler  http.Handler
}

func newFixture(t *testing.T, pub server.LoginPublisher) fixture {
	t.Helper()
	env := testutil.NewTestGateway(t, nil)
	signer := session.NewSigner([]byte("test-secret"), "swf", 15*time.Minute, time.Hour)
	vault := credential.NewVault(keyring.NewArrayKeyring(nil))
	provider := session.NewProvider(env.Store, nopMailer{}, env.Broker, vault, signer, zap.NewNop())
	if pub == nil {
		pub = env.Broker
	}
	srv := server.New(provider, pub, env.Gateway, zap.NewNop())
	return fixture{env: env, signer: signer, provider: provider, handler: srv.Handler()}
}

func (f fixture) do(t *testing.T, method, target, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f fixture) sessionFor(t *testing.T, id model.Identity) string {
	t.Helper()
	tok, err := f.signer.IssueSession(id.ID, id.Email)
	require.NoError(t, err)
	return tok
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestVerifyHandsSessionToWaitingClient(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	waiter, err := f.env.Broker.WatchLogin(ctx, "req-1")
	require.NoError(t, err)
	defer waiter.Close()

	link, err := f.signer.IssueLink("ada@example.com", "req-1")
	require.NoError(t, err)

	rec := f.do(t, http.MethodGet, "/auth/verify?token="+url.QueryEscape(link), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "signed in")

	sessionTok, err := waiter.Wait(ctx)
	require.NoError(t, err)
	id, err := f.provider.Authenticate(ctx, sessionTok)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", id.Email)
}

func TestVerifyRejectsBadLinks(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/auth/verify", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/auth/verify?token=forged", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "expired")
}

var pasteCode = regexp.MustCompile(`<pre[^>]*>([^<]+)</pre>`)

// verifyExpectingCode opens link and returns the paste code on the page.
func (f fixture) verifyExpectingCode(t *testing.T, link string) string {
	t.Helper()
	rec := f.do(t, http.MethodGet, "/auth/verify?token="+url.QueryEscape(link), "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.NotContains(t, body, "signed in")
	m := pasteCode.FindStringSubmatch(body)
	require.NotNil(t, m, "no paste code in %s", body)
	return m[1]
}

func TestVerifyFallsBackToPasteCode(t *testing.T) {
	f := newFixture(t, failingPublisher{})
	link, err := f.signer.IssueLink("ada@example.com", "req-2")
	require.NoError(t, err)

	code := f.verifyExpectingCode(t, link)
	id, err := f.provider.SignInWithLink(context.Background(), code)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", id.Email)
}

func TestVerifyWithoutWaitingClientShowsCode(t *testing.T) {
	f := newFixture(t, nil)
	link, err := f.signer.IssueLink("ada@example.com", "req-without-waiter")
	require.NoError(t, err)

	code := f.verifyExpectingCode(t, link)
	assert.NotEqual(t, link, code)
	id, err := f.provider.SignInWithLink(context.Background(), code)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", id.Email)
}

func TestVerifyRejectsReusedLink(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	waiter, err := f.env.Broker.WatchLogin(ctx, "req-3")
	require.NoError(t, err)
	defer waiter.Close()

	link, err := f.signer.IssueLink("ada@example.com", "req-3")
	require.NoError(t, err)

	rec := f.do(t, http.MethodGet, "/auth/verify?token="+url.QueryEscape(link), "")
	require.Equal(t, http.StatusOK, rec.Code)
	_, err = waiter.Wait(ctx)
	require.NoError(t, err)

	rec = f.do(t, http.MethodGet, "/auth/verify?token="+url.QueryEscape(link), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "expired")
}

func TestInviteEndpoints(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	ada := testutil.NewProfile(t, f.env.Store, "ada@example.com", "Ada")
	bob := testutil.NewProfile(t, f.env.Store, "bob@example.com", "Bob")

	inv, err := f.env.Gateway.CreateInvite(ctx, ada, bob.Email)
	require.NoError(t, err)

	rec := f.do(t, http.MethodGet, "/invite/"+inv.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var view map[string]any
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "pending", view["status"])
	assert.Equal(t, "Ada", view["inviter_name"])

	rec = f.do(t, http.MethodPost, "/invite/"+inv.Token+"/accept", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/invite/"+inv.Token+"/accept", "not.a.token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	bobSession := f.sessionFor(t, bob)
	rec = f.do(t, http.MethodPost, "/invite/"+inv.Token+"/accept", bobSession)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), ada.ID)

	rec = f.do(t, http.MethodPost, "/invite/"+inv.Token+"/accept", bobSession)
	assert.Equal(t, http.StatusGone, rec.Code)

	rec = f.do(t, http.MethodGet, "/invite/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeclineEndpoint(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	ada := testutil.NewProfile(t, f.env.Store, "ada@example.com", "Ada")
	bob := testutil.NewProfile(t, f.env.Store, "bob@example.com", "Bob")

	inv, err := f.env.Gateway.CreateInvite(ctx, ada, bob.Email)
	require.NoError(t, err)

	rec := f.do(t, http.MethodPost, "/invite/"+inv.Token+"/decline", f.sessionFor(t, bob))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	d, err := f.env.Gateway.GetInvite(ctx, inv.Token)
	require.NoError(t, err)
	assert.Equal(t, model.InviteDeclined, d.Invite.Status)
}
