package session

import (
	"net/url"
	"regexp"
	"strings"
)

// verifyLinkPattern finds a sign-in URL in free text such as an email body.
var verifyLinkPattern = regexp.MustCompile(`/auth/verify\?token=([A-Za-z0-9._%-]+)`)

// FindLinkToken returns the first link token in text, if any.
func FindLinkToken(text string) (string, bool) {
	m := verifyLinkPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	tok, err := url.QueryUnescape(m[1])
	if err != nil {
		return "", false
	}
	return tok, true
}

// extractToken accepts either a full sign-in URL or a bare token.
func extractToken(s string) string {
	s = strings.TrimSpace(s)
	if u, err := url.Parse(s); err == nil && u.Query().Has("token") {
		return u.Query().Get("token")
	}
	if tok, ok := FindLinkToken(s); ok {
		return tok
	}
	return s
}
