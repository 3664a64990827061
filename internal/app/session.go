package app

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/sprintwithfriends/internal/inbox"
	"github.com/nhle/sprintwithfriends/internal/model"
	"github.com/nhle/sprintwithfriends/internal/session"
)

// awaitTimeout bounds how long a sent link is watched for.
const awaitTimeout = 15 * time.Minute

// inboxLookback covers clock skew between this machine and the mail server.
const inboxLookback = 2 * time.Minute

// signIn is a magic link in flight.
type signIn struct {
	pending *session.Pending
	cancel  context.CancelFunc
}

// awaitResultMsg reports the end of a wait on a pending link. Results for
// an abandoned sign-in are ignored.
type awaitResultMsg struct {
	pending *session.Pending
	msg     tea.Msg
}

func (m Model) onLinkSent(p *session.Pending) (Model, tea.Cmd) {
	m.abandonSignIn()

	ctx, cancel := context.WithTimeout(context.Background(), awaitTimeout)
	m.signIn = &signIn{pending: p, cancel: cancel}

	cmds := []tea.Cmd{m.login.Waiting(p.Email, m.deps.Inbox != nil)}
	if p.Live() {
		provider := m.deps.Session
		cmds = append(cmds, func() tea.Msg {
			return awaitResultMsg{pending: p, msg: session.AwaitCmd(ctx, provider, p)()}
		})
	}
	if m.deps.Inbox != nil {
		cmds = append(cmds, m.deps.Inbox.Start(time.Now().Add(-inboxLookback)))
	}
	m.toasts.Notify(model.Notice{Level: model.NoticeInfo, Title: "Sign-in link sent", Detail: "Check " + p.Email})
	return m, tea.Batch(cmds...)
}

func (m Model) onAwaitResult(msg awaitResultMsg) (Model, tea.Cmd) {
	if m.signIn == nil || m.signIn.pending != msg.pending {
		return m, nil
	}
	if e, ok := msg.msg.(session.ErrMsg); ok {
		if errors.Is(e.Err, context.Canceled) {
			return m, nil
		}
		m.logger.Warn("waiting for sign-in link", zap.Error(e.Err))
		if errors.Is(e.Err, context.DeadlineExceeded) {
			m.abandonSignIn()
			return m, m.login.Fail(errors.New("the sign-in link expired, request a new one"))
		}
		// The pasted link and the inbox still work.
		return m, nil
	}
	return m.update(msg.msg)
}

func (m Model) onInboxToken(msg inbox.FoundMsg) (Model, tea.Cmd) {
	if m.signIn == nil || m.currentView != ViewLogin || m.deps.Inbox == nil {
		return m, nil
	}
	m.login.Verifying()
	return m, tea.Batch(
		session.PasteCmd(m.deps.Session, msg.Token),
		m.deps.Inbox.Wait(),
	)
}

// abandonSignIn stops watching for a sent link.
func (m *Model) abandonSignIn() {
	if m.signIn == nil {
		return
	}
	m.signIn.cancel()
	m.signIn.pending.Close()
	m.signIn = nil
	if m.deps.Inbox != nil {
		m.deps.Inbox.Stop()
	}
}
