package mailer

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/sprintwithfriends/internal/model"
)

type captured struct {
	from, to string
	raw      []byte
}

type fakeSender struct {
	sent []captured
	err  error
}

func (f *fakeSender) Send(_ context.Context, from, to string, raw []byte) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, captured{from: from, to: to, raw: raw})
	return nil
}

func readText(t *testing.T, raw []byte) (subject string, text string) {
	t.Helper()
	mr, err := mail.CreateReader(strings.NewReader(string(raw)))
	require.NoError(t, err)
	defer mr.Close()

	subject, err = mr.Header.Subject()
	require.NoError(t, err)
	for {
		p, err := mr.NextPart()
		if err != nil {
			break
		}
		if h, ok := p.Header.(*mail.InlineHeader); ok {
			ct, _, _ := h.ContentType()
			if ct == "text/plain" {
				body, err := io.ReadAll(p.Body)
				require.NoError(t, err)
				text = string(body)
			}
		}
	}
	return subject, text
}

func TestSendMagicLink(t *testing.T) {
	fs := &fakeSender{}
	m := New(fs, "SprintWithFriends <no-reply@example.com>", "https://swf.example.com/", nil)

	require.NoError(t, m.SendMagicLink(context.Background(), "ada@example.com", "abc.def"))

	require.Len(t, fs.sent, 1)
	assert.Equal(t, "no-reply@example.com", envelopeAddr(fs.sent[0].from))
	assert.Equal(t, "ada@example.com", fs.sent[0].to)

	subject, text := readText(t, fs.sent[0].raw)
	assert.Contains(t, subject, "sign-in link")
	assert.Contains(t, text, "https://swf.example.com/auth/verify?token=abc.def")
}

func TestSendInvitation(t *testing.T) {
	fs := &fakeSender{}
	m := New(fs, "no-reply@example.com", "http://localhost:8787", nil)

	inv := model.Invite{
		Token:        "tok-1",
		InvitedEmail: "bob@example.com",
		ExpiresAt:    time.Date(2026, 1, 9, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, m.SendInvitation(context.Background(), inv,
		model.Identity{ID: "u1", Email: "ada@example.com", DisplayName: "Ada"}))

	require.Len(t, fs.sent, 1)
	subject, text := readText(t, fs.sent[0].raw)
	assert.Equal(t, "Ada invited you to SprintWithFriends", subject)
	assert.Contains(t, text, "http://localhost:8787/invite/tok-1")
	assert.Contains(t, text, "Jan 9, 2026")
}

func TestSendFailureIsWrapped(t *testing.T) {
	boom := errors.New("relay down")
	m := New(&fakeSender{err: boom}, "no-reply@example.com", "http://x", nil)

	err := m.SendMagicLink(context.Background(), "ada@example.com", "t")
	require.ErrorIs(t, err, boom)
}

func TestDisabledSender(t *testing.T) {
	m := FromConfig(model.MailConfig{From: "no-reply@example.com"}, "", "http://x", nil)
	err := m.SendMagicLink(context.Background(), "ada@example.com", "t")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestComposeRejectsBadAddress(t *testing.T) {
	_, err := Compose("no-reply@example.com", Message{To: "not an address"}, time.Now())
	assert.Error(t, err)
}
