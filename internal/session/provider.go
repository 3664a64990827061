// Package session signs users in with emailed magic links and keeps the
// resulting session in the keyring.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nhle/sprintwithfriends/internal/credential"
	"github.com/nhle/sprintwithfriends/internal/model"
	"github.com/nhle/sprintwithfriends/internal/realtime"
	"github.com/nhle/sprintwithfriends/internal/store"
)

// ErrNoSession is returned by Restore when nothing is stored.
var ErrNoSession = errors.New("no stored session")

// Directory resolves verified email addresses to profiles.
type Directory interface {
	GetOrCreateProfileByEmail(ctx context.Context, email string) (*model.Profile, error)
	GetProfile(ctx context.Context, id string) (*model.Profile, error)
}

// LinkMailer delivers magic links.
type LinkMailer interface {
	SendMagicLink(ctx context.Context, email, linkToken string) error
}

// LoginWatcher waits for the landing server to confirm a click. It also
// records which links have been used, across every process sharing it.
type LoginWatcher interface {
	WatchLogin(ctx context.Context, requestID string) (*realtime.LoginWaiter, error)
	ClaimLink(ctx context.Context, requestID string, ttl time.Duration) (bool, error)
}

// Pending is a sign-in whose link has been sent but not yet used.
type Pending struct {
	RequestID string
	Email     string
	waiter    *realtime.LoginWaiter
}

// Live reports whether the click will be picked up automatically.
func (p *Pending) Live() bool { return p.waiter != nil }

// Close abandons the wait.
func (p *Pending) Close() {
	if p.waiter != nil {
		_ = p.waiter.Close()
	}
}

// Provider owns the current identity. It is the only thing that changes it.
type Provider struct {
	dir     Directory
	mail    LinkMailer
	watcher LoginWatcher
	vault   *credential.Vault
	signer  *Signer
	logger  *zap.Logger

	mu      sync.RWMutex
	current model.Identity
	// used holds claimed request ids when there is no watcher.
	used map[string]time.Time
}

// NewProvider creates a Provider. watcher may be nil, in which case
// links must be pasted back by hand and are only single-use within this
// process.
func NewProvider(dir Directory, mail LinkMailer, watcher LoginWatcher, vault *credential.Vault, signer *Signer, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		dir:     dir,
		mail:    mail,
		watcher: watcher,
		vault:   vault,
		signer:  signer,
		logger:  logger,
		used:    map[string]time.Time{},
	}
}

// Current returns the signed-in identity, or ok=false.
func (p *Provider) Current() (model.Identity, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current, !p.current.IsZero()
}

// Restore resumes the session stored in the keyring.
func (p *Provider) Restore(ctx context.Context) (model.Identity, error) {
	tok, err := p.vault.Get(credential.KeySession)
	if errors.Is(err, credential.ErrNotFound) {
		return model.Identity{}, ErrNoSession
	}
	if err != nil {
		return model.Identity{}, err
	}
	id, err := p.adopt(ctx, tok)
	if errors.Is(err, ErrInvalidToken) {
		_ = p.vault.Delete(credential.KeySession)
	}
	return id, err
}

// RequestMagicLink emails a sign-in link to email. When a watcher is
// configured the returned Pending is already listening for the click.
func (p *Provider) RequestMagicLink(ctx context.Context, email string) (*Pending, error) {
	email = model.NormalizeEmail(email)
	if !model.ValidEmail(email) {
		return nil, fmt.Errorf("%q is not a valid email address", email)
	}

	pending := &Pending{RequestID: uuid.NewString(), Email: email}
	tok, err := p.signer.IssueLink(email, pending.RequestID)
	if err != nil {
		return nil, err
	}

	if p.watcher != nil {
		w, err := p.watcher.WatchLogin(ctx, pending.RequestID)
		if err != nil {
			p.logger.Warn("login watch unavailable, falling back to paste", zap.Error(err))
		} else {
			pending.waiter = w
		}
	}

	if err := p.mail.SendMagicLink(ctx, email, tok); err != nil {
		pending.Close()
		return nil, fmt.Errorf("sending sign-in link: %w", err)
	}
	p.logger.Info("sign-in link sent", zap.String("email", email), zap.String("request_id", pending.RequestID))
	return pending, nil
}

// VerifyLink exchanges a link token for a session token, creating the
// profile on first sign-in. Each link works once. It does not change the
// current identity.
func (p *Provider) VerifyLink(ctx context.Context, linkToken string) (sessionToken, requestID string, err error) {
	claims, err := p.signer.ParseLink(linkToken)
	if err != nil {
		return "", "", err
	}
	if err := p.claim(ctx, claims); err != nil {
		return "", "", err
	}
	prof, err := p.dir.GetOrCreateProfileByEmail(ctx, claims.Email)
	if err != nil {
		return "", "", fmt.Errorf("resolving profile for %s: %w", claims.Email, err)
	}
	sessionToken, err = p.signer.IssueSession(prof.ID, prof.Email)
	if err != nil {
		return "", "", err
	}
	return sessionToken, claims.RequestID, nil
}

// AwaitConfirmation blocks until the link in pending is clicked, then
// signs in with the session it carries.
func (p *Provider) AwaitConfirmation(ctx context.Context, pending *Pending) (model.Identity, error) {
	if !pending.Live() {
		return model.Identity{}, errors.New("sign-in is not being watched")
	}
	defer pending.Close()

	tok, err := pending.waiter.Wait(ctx)
	if err != nil {
		return model.Identity{}, err
	}
	return p.SignIn(ctx, tok)
}

// SignInWithLink completes a sign-in from a pasted link, link token, or
// the session code shown by the landing page.
func (p *Provider) SignInWithLink(ctx context.Context, link string) (model.Identity, error) {
	tok := extractToken(link)
	if _, err := p.signer.ParseSession(tok); err == nil {
		return p.SignIn(ctx, tok)
	}
	sessionToken, _, err := p.VerifyLink(ctx, tok)
	if err != nil {
		return model.Identity{}, err
	}
	return p.SignIn(ctx, sessionToken)
}

// SignIn adopts sessionToken as the current session and stores it.
func (p *Provider) SignIn(ctx context.Context, sessionToken string) (model.Identity, error) {
	id, err := p.adopt(ctx, sessionToken)
	if err != nil {
		return model.Identity{}, err
	}
	if err := p.vault.Set(credential.KeySession, sessionToken); err != nil {
		p.logger.Warn("session not persisted", zap.Error(err))
	}
	p.logger.Info("signed in", zap.String("user_id", id.ID))
	return id, nil
}

// Refresh reloads the current profile, e.g. after a display name change.
func (p *Provider) Refresh(ctx context.Context) (model.Identity, error) {
	cur, ok := p.Current()
	if !ok {
		return model.Identity{}, ErrNoSession
	}
	prof, err := p.dir.GetProfile(ctx, cur.ID)
	if err != nil {
		return model.Identity{}, err
	}
	id := prof.Identity()
	p.set(id)
	return id, nil
}

// SignOut forgets the session.
func (p *Provider) SignOut() error {
	p.set(model.Identity{})
	return p.vault.Delete(credential.KeySession)
}

// Authenticate checks a bearer session token without changing the
// current identity. The landing server uses it.
func (p *Provider) Authenticate(ctx context.Context, sessionToken string) (model.Identity, error) {
	claims, err := p.signer.ParseSession(sessionToken)
	if err != nil {
		return model.Identity{}, err
	}
	prof, err := p.dir.GetProfile(ctx, claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return model.Identity{}, fmt.Errorf("%w: unknown user", ErrInvalidToken)
	}
	if err != nil {
		return model.Identity{}, err
	}
	return prof.Identity(), nil
}

func (p *Provider) claim(ctx context.Context, claims LinkClaims) error {
	ttl := time.Until(claims.ExpiresAt)
	if p.watcher != nil {
		ok, err := p.watcher.ClaimLink(ctx, claims.RequestID, ttl)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: link already used", ErrInvalidToken)
		}
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	for id, exp := range p.used {
		if now.After(exp) {
			delete(p.used, id)
		}
	}
	if _, ok := p.used[claims.RequestID]; ok {
		return fmt.Errorf("%w: link already used", ErrInvalidToken)
	}
	p.used[claims.RequestID] = claims.ExpiresAt
	return nil
}

func (p *Provider) adopt(ctx context.Context, sessionToken string) (model.Identity, error) {
	id, err := p.Authenticate(ctx, sessionToken)
	if err != nil {
		return model.Identity{}, err
	}
	p.set(id)
	return id, nil
}

func (p *Provider) set(id model.Identity) {
	p.mu.Lock()
	p.current = id
	p.mu.Unlock()
}
