// Package server is the small HTTP surface emails link to: the magic-link
// landing page and the invitation endpoints.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/nhle/sprintwithfriends/internal/model"
)

// Verifier exchanges link tokens and checks session tokens.
type Verifier interface {
	VerifyLink(ctx context.Context, linkToken string) (sessionToken, requestID string, err error)
	Authenticate(ctx context.Context, sessionToken string) (model.Identity, error)
}

// LoginPublisher hands a verified session to the waiting client.
type LoginPublisher interface {
	PublishLogin(ctx context.Context, requestID, sessionToken string) error
}

// Invites is the gateway subset behind the invite endpoints.
type Invites interface {
	GetInvite(ctx context.Context, token string) (*model.InviteDetails, error)
	AcceptInvite(ctx context.Context, viewer model.Identity, token string) (*model.Connection, error)
	DeclineInvite(ctx context.Context, viewer model.Identity, token string) error
}

// Server owns the echo instance.
type Server struct {
	e       *echo.Echo
	auth    Verifier
	logins  LoginPublisher
	invites Invites
	logger  *zap.Logger
}

// New builds a Server with all routes registered.
func New(auth Verifier, logins LoginPublisher, invites Invites, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = sonicSerializer{}
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURIPath: true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("path", v.URIPath),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			logger.Info("request", fields...)
			return nil
		},
	}))

	s := &Server{e: e, auth: auth, logins: logins, invites: invites, logger: logger}
	s.register()
	return s
}

func (s *Server) register() {
	s.e.GET("/healthz", healthz)
	s.e.GET("/auth/verify", s.verify)

	inv := s.e.Group("/invite")
	inv.GET("/:token", s.getInvite)
	inv.POST("/:token/accept", s.acceptInvite, s.requireSession)
	inv.POST("/:token/decline", s.declineInvite, s.requireSession)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.e }

// Start serves on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.logger.Info("landing server listening", zap.String("addr", addr))
	if err := s.e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

func healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}

const viewerKey = "viewer"

// requireSession authenticates the bearer session token.
func (s *Server) requireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tok, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
		}
		id, err := s.auth.Authenticate(c.Request().Context(), tok)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid session").SetInternal(err)
		}
		c.Set(viewerKey, id)
		return next(c)
	}
}

func viewerFrom(c echo.Context) model.Identity {
	id, _ := c.Get(viewerKey).(model.Identity)
	return id
}

func bearerToken(header string) (string, bool) {
	scheme, tok, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	if strings.Count(tok, ".") != 2 {
		return "", false
	}
	return tok, true
}
