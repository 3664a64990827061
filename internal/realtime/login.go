package realtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNoListener is returned by PublishLogin when no client is waiting on
// the request.
var ErrNoListener = errors.New("no client waiting for login")

const usedLinkPrefix = "swf:link-used:"

// LoginChannel returns the channel a pending sign-in waits on.
func LoginChannel(requestID string) string {
	return loginChannelPrefix + requestID
}

// PublishLogin hands a verified session token to the client waiting on
// requestID. It fails with ErrNoListener if nobody received it.
func (b *Broker) PublishLogin(ctx context.Context, requestID, sessionToken string) error {
	n, err := b.rc.Publish(ctx, LoginChannel(requestID), sessionToken).Result()
	if err != nil {
		return fmt.Errorf("publishing login %s: %w", requestID, err)
	}
	if n == 0 {
		return fmt.Errorf("publishing login %s: %w", requestID, ErrNoListener)
	}
	return nil
}

// ClaimLink marks requestID as used for ttl. It reports false if the
// request was already claimed.
func (b *Broker) ClaimLink(ctx context.Context, requestID string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = time.Second
	}
	ok, err := b.rc.SetNX(ctx, usedLinkPrefix+requestID, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claiming link %s: %w", requestID, err)
	}
	return ok, nil
}

// LoginWaiter is a confirmed subscription to one sign-in request.
type LoginWaiter struct {
	requestID string
	ps        *redis.PubSub
}

// WatchLogin subscribes to requestID. Subscribe before sending the link so
// that a fast click cannot be missed.
func (b *Broker) WatchLogin(ctx context.Context, requestID string) (*LoginWaiter, error) {
	ps := b.rc.Subscribe(ctx, LoginChannel(requestID))
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("subscribing to login %s: %w", requestID, err)
	}
	return &LoginWaiter{requestID: requestID, ps: ps}, nil
}

// Wait blocks until the session token for the request arrives or ctx ends.
func (w *LoginWaiter) Wait(ctx context.Context) (string, error) {
	msg, err := w.ps.ReceiveMessage(ctx)
	if err != nil {
		return "", fmt.Errorf("waiting for login %s: %w", w.requestID, err)
	}
	return msg.Payload, nil
}

// Close abandons the wait.
func (w *LoginWaiter) Close() error {
	return w.ps.Close()
}
