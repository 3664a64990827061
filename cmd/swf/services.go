package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/nhle/sprintwithfriends/internal/credential"
	"github.com/nhle/sprintwithfriends/internal/gateway"
	"github.com/nhle/sprintwithfriends/internal/inbox"
	"github.com/nhle/sprintwithfriends/internal/invitation"
	"github.com/nhle/sprintwithfriends/internal/logging"
	"github.com/nhle/sprintwithfriends/internal/mailer"
	"github.com/nhle/sprintwithfriends/internal/model"
	"github.com/nhle/sprintwithfriends/internal/realtime"
	"github.com/nhle/sprintwithfriends/internal/session"
	"github.com/nhle/sprintwithfriends/internal/store"
)

// services is everything both the TUI and the landing server run on.
type services struct {
	store    *store.SQLiteStore
	redis    *redis.Client
	broker   *realtime.Broker
	tracer   *sdktrace.TracerProvider
	gateway  *gateway.Local
	provider *session.Provider
	invites  *invitation.Flow
	inbox    *inbox.Watcher
}

func buildServices(cfg *model.AppConfig, logger *zap.Logger) (*services, error) {
	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	svc := &services{store: st}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	svc.redis = redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	if err := svc.redis.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable, live updates disabled until it is back", zap.Error(err))
	}
	cancel()
	svc.broker = realtime.NewBroker(svc.redis, logger)

	vault, err := credential.Open()
	if err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	secret := []byte(cfg.Auth.Secret)
	if len(secret) == 0 {
		if secret, err = vault.AuthSecret(); err != nil {
			_ = svc.Close()
			return nil, fmt.Errorf("loading auth secret: %w", err)
		}
	}
	signer := session.NewSigner(secret, cfg.Auth.Issuer, cfg.Auth.LinkTTL, cfg.Auth.SessionTTL)

	smtpPassword := optionalSecret(vault, credential.KeySMTPPassword, logger)
	mail := mailer.FromConfig(cfg.Mail, smtpPassword, cfg.Server.BaseURL, logger)

	svc.tracer = logging.NewTracerProvider(logger)
	svc.gateway = gateway.NewLocal(st, svc.broker, logger,
		gateway.WithTracerProvider(svc.tracer),
		gateway.WithBoardDefaults(cfg.Board.DefaultName, cfg.Board.DefaultCapacity),
	)
	svc.provider = session.NewProvider(st, mail, svc.broker, vault, signer, logger)
	svc.invites = invitation.New(svc.gateway, mail, logger)

	if cfg.Inbox.Enabled {
		password := optionalSecret(vault, credential.KeyIMAPPassword, logger)
		client := inbox.NewIMAPClient(cfg.Inbox.IMAPHost, cfg.Inbox.IMAPPort, cfg.Inbox.Username, password, cfg.Inbox.TLS)
		interval := time.Duration(cfg.Inbox.PollIntervalSec) * time.Second
		svc.inbox = inbox.NewWatcher(client, interval, logger)
	}
	return svc, nil
}

func optionalSecret(vault *credential.Vault, key string, logger *zap.Logger) string {
	v, err := vault.Get(key)
	if err != nil && !errors.Is(err, credential.ErrNotFound) {
		logger.Warn("reading credential", zap.String("key", key), zap.Error(err))
	}
	return v
}

// Close releases everything in reverse order of construction.
func (s *services) Close() error {
	var errs []error
	if s.tracer != nil {
		errs = append(errs, s.tracer.Shutdown(context.Background()))
	}
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	return errors.Join(errs...)
}
