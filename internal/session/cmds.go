package session

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/sprintwithfriends/internal/model"
)

// ChangedMsg reports a new current identity. A zero Identity means
// signed out.
type ChangedMsg struct {
	Identity model.Identity
}

// RestoreFailedMsg is sent when no usable stored session exists.
type RestoreFailedMsg struct{ Err error }

// LinkSentMsg is sent once a magic link is on its way.
type LinkSentMsg struct{ Pending *Pending }

// ErrMsg carries a sign-in failure.
type ErrMsg struct{ Err error }

const requestTimeout = 30 * time.Second

// RestoreCmd resumes a stored session.
func RestoreCmd(p *Provider) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		id, err := p.Restore(ctx)
		if err != nil {
			return RestoreFailedMsg{Err: err}
		}
		return ChangedMsg{Identity: id}
	}
}

// RequestLinkCmd sends a magic link to email.
func RequestLinkCmd(p *Provider, email string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		pending, err := p.RequestMagicLink(ctx, email)
		if err != nil {
			return ErrMsg{Err: err}
		}
		return LinkSentMsg{Pending: pending}
	}
}

// AwaitCmd waits for the link in pending to be clicked. ctx bounds the wait.
func AwaitCmd(ctx context.Context, p *Provider, pending *Pending) tea.Cmd {
	return func() tea.Msg {
		id, err := p.AwaitConfirmation(ctx, pending)
		if err != nil {
			return ErrMsg{Err: err}
		}
		return ChangedMsg{Identity: id}
	}
}

// PasteCmd signs in with a link the user copied from the email.
func PasteCmd(p *Provider, link string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		id, err := p.SignInWithLink(ctx, link)
		if err != nil {
			return ErrMsg{Err: err}
		}
		return ChangedMsg{Identity: id}
	}
}

// RefreshCmd reloads the current profile.
func RefreshCmd(p *Provider) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		id, err := p.Refresh(ctx)
		if err != nil {
			return ErrMsg{Err: err}
		}
		return ChangedMsg{Identity: id}
	}
}

// SignOutCmd clears the session.
func SignOutCmd(p *Provider) tea.Cmd {
	return func() tea.Msg {
		if err := p.SignOut(); err != nil {
			return ErrMsg{Err: err}
		}
		return ChangedMsg{}
	}
}
