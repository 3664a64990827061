// Package mailer composes and sends the app's transactional emails.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/sprintwithfriends/internal/model"
)

// ErrNotConfigured is returned by Disabled.
var ErrNotConfigured = errors.New("outbound mail is not configured")

// Sender delivers a composed message.
type Sender interface {
	Send(ctx context.Context, from, to string, raw []byte) error
}

// Disabled is a Sender used when no SMTP relay is configured.
type Disabled struct{}

func (Disabled) Send(context.Context, string, string, []byte) error {
	return ErrNotConfigured
}

// Mailer renders the magic-link and invitation emails.
type Mailer struct {
	sender  Sender
	from    string
	baseURL string
	logger  *zap.Logger
	now     func() time.Time
}

// New creates a Mailer. baseURL is the public address of the landing
// server that links point at.
func New(sender Sender, from, baseURL string, logger *zap.Logger) *Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mailer{
		sender:  sender,
		from:    from,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
		now:     time.Now,
	}
}

// FromConfig picks an SMTP sender when a host is configured and Disabled
// otherwise.
func FromConfig(cfg model.MailConfig, password, baseURL string, logger *zap.Logger) *Mailer {
	var sender Sender = Disabled{}
	if cfg.SMTPHost != "" {
		sender = NewSMTPSender(SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.Username,
			Password: password,
			TLS:      cfg.TLS,
		})
	}
	return New(sender, cfg.From, baseURL, logger)
}

// VerifyURL is the link a magic-link email carries.
func (m *Mailer) VerifyURL(linkToken string) string {
	return m.baseURL + "/auth/verify?token=" + url.QueryEscape(linkToken)
}

// InviteURL is the shareable link for an invite token.
func (m *Mailer) InviteURL(token string) string {
	return m.baseURL + "/invite/" + url.PathEscape(token)
}

// SendMagicLink mails a sign-in link for linkToken to email.
func (m *Mailer) SendMagicLink(ctx context.Context, email, linkToken string) error {
	link := m.VerifyURL(linkToken)
	return m.send(ctx, Message{
		To:      email,
		Subject: "Your SprintWithFriends sign-in link",
		Text: "Click the link below to sign in to SprintWithFriends:\n\n" + link +
			"\n\nIf you did not ask to sign in you can ignore this email.\n",
		HTML: `<p>Click the link below to sign in to SprintWithFriends:</p>` +
			`<p><a href="` + link + `">Sign in</a></p>` +
			`<p>If you did not ask to sign in you can ignore this email.</p>`,
	})
}

// SendInvitation mails an invitation from inviter to inv.InvitedEmail.
func (m *Mailer) SendInvitation(ctx context.Context, inv model.Invite, inviter model.Identity) error {
	link := m.InviteURL(inv.Token)
	name := inviter.DisplayName
	if name == "" {
		name = inviter.Email
	}
	return m.send(ctx, Message{
		To:      inv.InvitedEmail,
		Subject: name + " invited you to SprintWithFriends",
		Text: fmt.Sprintf("%s wants to plan sprints with you on SprintWithFriends.\n\n"+
			"Open the invitation:\n%s\n\nThe invitation expires on %s.\n",
			name, link, inv.ExpiresAt.Format("Jan 2, 2006")),
		HTML: fmt.Sprintf(`<p><strong>%s</strong> wants to plan sprints with you on SprintWithFriends.</p>`+
			`<p><a href="%s">Open the invitation</a></p><p>The invitation expires on %s.</p>`,
			name, link, inv.ExpiresAt.Format("Jan 2, 2006")),
	})
}

func (m *Mailer) send(ctx context.Context, msg Message) error {
	raw, err := Compose(m.from, msg, m.now())
	if err != nil {
		return err
	}
	if err := m.sender.Send(ctx, m.from, msg.To, raw); err != nil {
		return fmt.Errorf("sending %q to %s: %w", msg.Subject, msg.To, err)
	}
	m.logger.Debug("mail sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}
