// Package inbox watches the user's mailbox for the sign-in email so the
// link does not have to be clicked or pasted by hand.
package inbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/mail"

	"github.com/nhle/sprintwithfriends/internal/session"
)

// ErrAuth is returned when the IMAP server rejects the credentials.
var ErrAuth = errors.New("IMAP authentication failed")

// subjectMarker matches the subject of the sign-in email.
const subjectMarker = "sign-in link"

// IMAPClient wraps go-imap v2 for finding sign-in emails.
type IMAPClient struct {
	host     string
	port     int
	username string
	password string
	tls      bool
}

// NewIMAPClient creates a new IMAP client configuration.
func NewIMAPClient(host string, port int, username, password string, tls bool) *IMAPClient {
	return &IMAPClient{
		host:     host,
		port:     port,
		username: username,
		password: password,
		tls:      tls,
	}
}

// connect dials, authenticates, and selects INBOX. The caller must log out.
func (c *IMAPClient) connect() (*imapclient.Client, error) {
	addr := net.JoinHostPort(c.host, strconv.Itoa(c.port))

	var client *imapclient.Client
	var err error
	if c.tls {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(c.username, c.password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("%w for %s: %v", ErrAuth, c.username, err)
	}
	if _, err := client.Select("INBOX", nil).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("selecting INBOX: %w", err)
	}
	return client, nil
}

// FindLinkTokens returns the sign-in tokens found in INBOX messages
// received since the given time, oldest first.
func (c *IMAPClient) FindLinkTokens(ctx context.Context, since time.Time) ([]string, error) {
	client, err := c.connect()
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	// Close the connection if ctx ends mid-command.
	stop := context.AfterFunc(ctx, func() { _ = client.Close() })
	defer stop()

	criteria := &imap.SearchCriteria{
		Since: since,
		Header: []imap.SearchCriteriaHeaderField{
			{Key: "Subject", Value: subjectMarker},
		},
	}
	searchData, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching messages: %w", err)
	}
	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchCmd := client.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	})
	defer fetchCmd.Close()

	var tokens []string
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}
		buf, err := msg.Collect()
		if err != nil {
			continue
		}
		if tok, ok := tokenFromMessage(buf.FindBodySection(bodySection)); ok {
			tokens = append(tokens, tok)
		}
	}

	if err := fetchCmd.Close(); err != nil {
		return tokens, fmt.Errorf("fetching messages: %w", err)
	}
	return tokens, nil
}

// tokenFromMessage parses a raw RFC 5322 message and looks for a sign-in
// link in its text parts.
func tokenFromMessage(raw []byte) (string, bool) {
	if raw == nil {
		return "", false
	}
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return session.FindLinkToken(string(raw))
	}
	defer mr.Close()

	var html string
	for {
		part, err := mr.NextPart()
		if err != nil {
			break
		}
		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := h.ContentType()
		body, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}
		switch {
		case strings.HasPrefix(contentType, "text/plain"):
			if tok, ok := session.FindLinkToken(string(body)); ok {
				return tok, true
			}
		case strings.HasPrefix(contentType, "text/html"):
			html = string(body)
		}
	}
	return session.FindLinkToken(html)
}
