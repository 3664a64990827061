package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// ErrInvalidToken is returned for malformed, forged, expired, or
// wrong-audience tokens.
var ErrInvalidToken = errors.New("invalid or expired token")

const (
	audienceLink    = "swf-link"
	audienceSession = "swf-session"
)

// Signer mints and checks the HS256 tokens used for sign-in. A link token
// travels in the emailed URL and proves control of an address; a session
// token is what a signed-in client keeps.
type Signer struct {
	secret     []byte
	issuer     string
	linkTTL    time.Duration
	sessionTTL time.Duration
	parser     *jwt.Parser
	now        func() time.Time
}

// NewSigner creates a Signer.
func NewSigner(secret []byte, issuer string, linkTTL, sessionTTL time.Duration) *Signer {
	return &Signer{
		secret:     secret,
		issuer:     issuer,
		linkTTL:    linkTTL,
		sessionTTL: sessionTTL,
		// Time-based claims are checked against s.now below.
		parser: jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}), jwt.WithoutClaimsValidation()),
		now:    time.Now,
	}
}

// LinkClaims are carried by a magic-link token.
type LinkClaims struct {
	Email     string
	RequestID string
	ExpiresAt time.Time
}

// SessionClaims are carried by a session token.
type SessionClaims struct {
	UserID    string
	Email     string
	ExpiresAt time.Time
}

// IssueLink signs a link token for email. requestID identifies the client
// waiting for the click.
func (s *Signer) IssueLink(email, requestID string) (string, error) {
	now := s.now()
	return s.sign(jwt.MapClaims{
		"iss":   s.issuer,
		"aud":   audienceLink,
		"sub":   email,
		"jti":   requestID,
		"iat":   now.Unix(),
		"exp":   now.Add(s.linkTTL).Unix(),
		"email": email,
	})
}

// ParseLink checks a link token.
func (s *Signer) ParseLink(token string) (LinkClaims, error) {
	claims, err := s.parse(token, audienceLink)
	if err != nil {
		return LinkClaims{}, err
	}
	email, _ := claims["email"].(string)
	rid, _ := claims["jti"].(string)
	if email == "" {
		return LinkClaims{}, fmt.Errorf("%w: missing email", ErrInvalidToken)
	}
	if rid == "" {
		return LinkClaims{}, fmt.Errorf("%w: missing jti", ErrInvalidToken)
	}
	out := LinkClaims{Email: email, RequestID: rid}
	if exp, ok := claims["exp"].(float64); ok {
		out.ExpiresAt = time.Unix(int64(exp), 0)
	}
	return out, nil
}

// IssueSession signs a session token for a user.
func (s *Signer) IssueSession(userID, email string) (string, error) {
	now := s.now()
	return s.sign(jwt.MapClaims{
		"iss":   s.issuer,
		"aud":   audienceSession,
		"sub":   userID,
		"iat":   now.Unix(),
		"exp":   now.Add(s.sessionTTL).Unix(),
		"email": email,
	})
}

// ParseSession checks a session token.
func (s *Signer) ParseSession(token string) (SessionClaims, error) {
	claims, err := s.parse(token, audienceSession)
	if err != nil {
		return SessionClaims{}, err
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return SessionClaims{}, fmt.Errorf("%w: missing sub", ErrInvalidToken)
	}
	email, _ := claims["email"].(string)
	out := SessionClaims{UserID: sub, Email: email}
	if exp, ok := claims["exp"].(float64); ok {
		out.ExpiresAt = time.Unix(int64(exp), 0)
	}
	return out, nil
}

func (s *Signer) sign(claims jwt.MapClaims) (string, error) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return tok, nil
}

func (s *Signer) parse(token, audience string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	_, err := s.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	now := s.now().Unix()
	switch {
	case !claims.VerifyExpiresAt(now, true):
		return nil, fmt.Errorf("%w: expired", ErrInvalidToken)
	case !claims.VerifyAudience(audience, true):
		return nil, fmt.Errorf("%w: wrong audience", ErrInvalidToken)
	case !claims.VerifyIssuer(s.issuer, true):
		return nil, fmt.Errorf("%w: wrong issuer", ErrInvalidToken)
	}
	return claims, nil
}
