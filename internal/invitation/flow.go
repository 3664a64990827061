// Package invitation runs the invite workflows: send (record first, email
// best-effort), accept and decline.
package invitation

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/sprintwithfriends/internal/gateway"
	"github.com/nhle/sprintwithfriends/internal/model"
)

// Gateway is the subset of gateway.Gateway the flows need.
type Gateway interface {
	CreateInvite(ctx context.Context, viewer model.Identity, email string) (*model.Invite, error)
	GetInvite(ctx context.Context, token string) (*model.InviteDetails, error)
	AcceptInvite(ctx context.Context, viewer model.Identity, token string) (*model.Connection, error)
	DeclineInvite(ctx context.Context, viewer model.Identity, token string) error
}

// Mailer delivers invitation emails.
type Mailer interface {
	SendInvitation(ctx context.Context, inv model.Invite, inviter model.Identity) error
	InviteURL(token string) string
}

// Outcome is the result of one workflow run. Notice is always set.
type Outcome struct {
	Invite *model.Invite
	// Link is the shareable invitation URL once the invite exists.
	Link    string
	Emailed bool
	Notice  model.Notice
	Err     error
}

// DoneMsg delivers an Outcome to the Bubble Tea loop.
type DoneMsg struct{ Outcome Outcome }

const requestTimeout = 20 * time.Second

// Flow runs invitation workflows on behalf of the signed-in user.
type Flow struct {
	gw     Gateway
	mail   Mailer
	logger *zap.Logger
}

// New creates a Flow.
func New(gw Gateway, mail Mailer, logger *zap.Logger) *Flow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Flow{gw: gw, mail: mail, logger: logger}
}

// Send creates an invite for email and then tries to email it. A mail
// failure leaves the invite in place and reports the link instead.
func (f *Flow) Send(ctx context.Context, viewer model.Identity, email string) Outcome {
	inv, err := f.gw.CreateInvite(ctx, viewer, email)
	if err != nil {
		f.logger.Warn("creating invite failed", zap.Error(err))
		return Outcome{Err: err, Notice: model.Notice{
			Level:  model.NoticeError,
			Title:  "Error",
			Detail: createFailure(err),
		}}
	}

	out := Outcome{Invite: inv, Link: f.mail.InviteURL(inv.Token)}
	if err := f.mail.SendInvitation(ctx, *inv, viewer); err != nil {
		f.logger.Warn("invitation email failed",
			zap.String("invite_id", inv.ID), zap.Error(err))
		out.Notice = model.Notice{
			Level: model.NoticeWarning,
			Title: "Invitation created",
			Detail: "Invitation created but email could not be sent. " +
				"You can share the invitation link manually: " + out.Link,
		}
		return out
	}

	out.Emailed = true
	out.Notice = model.Notice{
		Level:  model.NoticeSuccess,
		Title:  "Invitation sent",
		Detail: "Invitation sent to " + inv.InvitedEmail,
	}
	return out
}

// Accept connects the viewer with the invite's sender.
func (f *Flow) Accept(ctx context.Context, viewer model.Identity, token string) Outcome {
	details, err := f.gw.GetInvite(ctx, token)
	if err == nil {
		_, err = f.gw.AcceptInvite(ctx, viewer, token)
	}
	if err != nil {
		f.logger.Warn("accepting invite failed", zap.Error(err))
		return Outcome{Err: err, Notice: model.Notice{
			Level:  model.NoticeError,
			Title:  "Error",
			Detail: respondFailure(err),
		}}
	}
	name := details.Inviter.Identity().DisplayName
	return Outcome{Invite: &details.Invite, Notice: model.Notice{
		Level:  model.NoticeSuccess,
		Title:  "Invitation accepted",
		Detail: "You are now connected with " + name,
	}}
}

// Decline turns the invitation down.
func (f *Flow) Decline(ctx context.Context, viewer model.Identity, token string) Outcome {
	if err := f.gw.DeclineInvite(ctx, viewer, token); err != nil {
		f.logger.Warn("declining invite failed", zap.Error(err))
		return Outcome{Err: err, Notice: model.Notice{
			Level:  model.NoticeError,
			Title:  "Error",
			Detail: respondFailure(err),
		}}
	}
	return Outcome{Notice: model.Notice{
		Level:  model.NoticeInfo,
		Title:  "Invitation declined",
		Detail: "The invitation was declined",
	}}
}

// SendCmd runs Send as a tea.Cmd.
func (f *Flow) SendCmd(viewer model.Identity, email string) tea.Cmd {
	return f.cmd(func(ctx context.Context) Outcome { return f.Send(ctx, viewer, email) })
}

// AcceptCmd runs Accept as a tea.Cmd.
func (f *Flow) AcceptCmd(viewer model.Identity, token string) tea.Cmd {
	return f.cmd(func(ctx context.Context) Outcome { return f.Accept(ctx, viewer, token) })
}

// DeclineCmd runs Decline as a tea.Cmd.
func (f *Flow) DeclineCmd(viewer model.Identity, token string) tea.Cmd {
	return f.cmd(func(ctx context.Context) Outcome { return f.Decline(ctx, viewer, token) })
}

func (f *Flow) cmd(run func(context.Context) Outcome) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return DoneMsg{Outcome: run(ctx)}
	}
}

func createFailure(err error) string {
	switch {
	case errors.Is(err, gateway.ErrInvalidInput):
		return "Enter a valid email address other than your own"
	case errors.Is(err, gateway.ErrUnauthenticated):
		return "Sign in to invite friends"
	default:
		return "Failed to create invitation"
	}
}

func respondFailure(err error) string {
	switch {
	case errors.Is(err, gateway.ErrNotFound):
		return "Invitation not found"
	case errors.Is(err, gateway.ErrInviteUnavailable):
		return "This invitation is no longer available"
	case errors.Is(err, gateway.ErrUnauthenticated):
		return "Sign in to respond to invitations"
	default:
		return "Failed to respond to invitation"
	}
}
