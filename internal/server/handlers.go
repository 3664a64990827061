package server

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/nhle/sprintwithfriends/internal/gateway"
	"github.com/nhle/sprintwithfriends/internal/realtime"
	"github.com/nhle/sprintwithfriends/internal/session"
)

var landingPage = template.Must(template.New("landing").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>SprintWithFriends</title></head>
<body style="font-family: sans-serif; max-width: 32rem; margin: 4rem auto">
<h1>{{.Heading}}</h1>
<p>{{.Body}}</p>
{{if .Code}}<p>Paste this into the sign-in screen:</p><pre style="white-space: pre-wrap; word-break: break-all">{{.Code}}</pre>{{end}}
</body></html>`))

type landing struct {
	Heading string
	Body    string
	Code    string
}

func render(c echo.Context, status int, page landing) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(status)
	return landingPage.Execute(c.Response(), page)
}

// verify handles the magic link. The waiting terminal receives the session
// through the login channel. If no terminal is listening, the page shows
// the session token so it can be pasted instead; the link itself is spent.
func (s *Server) verify(c echo.Context) error {
	linkToken := c.QueryParam("token")
	if linkToken == "" {
		return render(c, http.StatusBadRequest, landing{
			Heading: "Invalid link",
			Body:    "This sign-in link is incomplete.",
		})
	}

	ctx := c.Request().Context()
	sessionToken, requestID, err := s.auth.VerifyLink(ctx, linkToken)
	if errors.Is(err, session.ErrInvalidToken) {
		return render(c, http.StatusBadRequest, landing{
			Heading: "Link expired",
			Body:    "This sign-in link is invalid or has expired. Request a new one from the app.",
		})
	}
	if err != nil {
		s.logger.Error("verifying sign-in link", zap.Error(err))
		return render(c, http.StatusInternalServerError, landing{
			Heading: "Something went wrong",
			Body:    "We could not sign you in. Please try again.",
		})
	}

	if err := s.logins.PublishLogin(ctx, requestID, sessionToken); err != nil {
		if errors.Is(err, realtime.ErrNoListener) {
			s.logger.Info("no terminal waiting for sign-in", zap.String("request_id", requestID))
		} else {
			s.logger.Warn("login handoff failed", zap.String("request_id", requestID), zap.Error(err))
		}
		return render(c, http.StatusOK, landing{
			Heading: "Almost there",
			Body:    "We could not reach your terminal automatically.",
			Code:    sessionToken,
		})
	}
	return render(c, http.StatusOK, landing{
		Heading: "You're signed in",
		Body:    "Return to your terminal. You can close this tab.",
	})
}

type inviteView struct {
	Token        string    `json:"token"`
	Status       string    `json:"status"`
	InvitedEmail string    `json:"invited_email"`
	InviterName  string    `json:"inviter_name"`
	InviterEmail string    `json:"inviter_email"`
	ExpiresAt    time.Time `json:"expires_at"`
	AcceptHint   string    `json:"accept_hint"`
}

func (s *Server) getInvite(c echo.Context) error {
	token := c.Param("token")
	d, err := s.invites.GetInvite(c.Request().Context(), token)
	if err != nil {
		return gatewayError(err)
	}
	inviter := d.Inviter.Identity()
	return c.JSON(http.StatusOK, inviteView{
		Token:        d.Invite.Token,
		Status:       d.Invite.Status,
		InvitedEmail: d.Invite.InvitedEmail,
		InviterName:  inviter.DisplayName,
		InviterEmail: inviter.Email,
		ExpiresAt:    d.Invite.ExpiresAt,
		AcceptHint:   fmt.Sprintf("In the app, open the command palette and run: accept %s", d.Invite.Token),
	})
}

type connectionView struct {
	ID       string `json:"id"`
	FriendID string `json:"friend_id"`
	Status   string `json:"status"`
}

func (s *Server) acceptInvite(c echo.Context) error {
	viewer := viewerFrom(c)
	conn, err := s.invites.AcceptInvite(c.Request().Context(), viewer, c.Param("token"))
	if err != nil {
		return gatewayError(err)
	}
	return c.JSON(http.StatusOK, connectionView{
		ID:       conn.ID,
		FriendID: conn.Other(viewer.ID),
		Status:   conn.Status,
	})
}

func (s *Server) declineInvite(c echo.Context) error {
	if err := s.invites.DeclineInvite(c.Request().Context(), viewerFrom(c), c.Param("token")); err != nil {
		return gatewayError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// gatewayError maps gateway sentinels to HTTP errors.
func gatewayError(err error) error {
	var status int
	switch {
	case errors.Is(err, gateway.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, gateway.ErrInviteUnavailable):
		status = http.StatusGone
	case errors.Is(err, gateway.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, gateway.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, gateway.ErrPermissionDenied):
		status = http.StatusForbidden
	default:
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}
	return echo.NewHTTPError(status, err.Error())
}
