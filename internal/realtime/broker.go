// Package realtime carries change notifications between clients over
// Redis pub/sub.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Tables whose changes are broadcast.
const (
	TableTasks  = "tasks"
	TableLanes  = "lanes"
	TableBoards = "boards"
)

// Change operations.
const (
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)

const (
	boardChannelPrefix = "swf:board:"
	loginChannelPrefix = "swf:auth:"

	subscriptionBuffer = 32
)

// ErrClosed is returned by Subscription.Close when called twice.
var ErrClosed = errors.New("subscription closed")

// Change describes a row change on a board. Receivers treat it only as a
// signal that the board is stale.
type Change struct {
	Table   string    `json:"table"`
	Op      string    `json:"op"`
	BoardID string    `json:"board_id"`
	RowID   string    `json:"row_id"`
	ActorID string    `json:"actor_id,omitempty"`
	At      time.Time `json:"at"`
}

// BoardChannel returns the pub/sub channel for a board.
func BoardChannel(boardID string) string {
	return boardChannelPrefix + boardID
}

// Broker publishes and subscribes to board changes.
type Broker struct {
	rc     *redis.Client
	logger *zap.Logger
}

// Connect parses a redis:// URL and returns a client that has answered a PING.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rc := redis.NewClient(opts)
	if err := rc.Ping(ctx).Err(); err != nil {
		rc.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return rc, nil
}

// NewBroker wraps a Redis client.
func NewBroker(rc *redis.Client, logger *zap.Logger) *Broker {
	return &Broker{rc: rc, logger: logger.Named("realtime")}
}

// Publish broadcasts a change to subscribers of its board.
func (b *Broker) Publish(ctx context.Context, c Change) error {
	if c.At.IsZero() {
		c.At = time.Now().UTC()
	}
	data, err := sonic.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding change: %w", err)
	}
	if err := b.rc.Publish(ctx, BoardChannel(c.BoardID), data).Err(); err != nil {
		return fmt.Errorf("publishing change for board %s: %w", c.BoardID, err)
	}
	return nil
}

// Feed is a stream of changes owned by its consumer, who must Close it.
type Feed interface {
	C() <-chan Change
	Close() error
}

var _ Feed = (*Subscription)(nil)

// Subscription delivers changes for one board until closed.
type Subscription struct {
	BoardID string

	ch     chan Change
	ps     *redis.PubSub
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// C returns the delivery channel. It is closed once the subscription ends.
func (s *Subscription) C() <-chan Change {
	return s.ch
}

// Close releases the subscription and waits for its goroutine to exit.
func (s *Subscription) Close() error {
	err := ErrClosed
	s.once.Do(func() {
		s.cancel()
		err = s.ps.Close()
		<-s.done
	})
	return err
}

// Subscribe starts receiving changes for boardID. The subscription is
// confirmed by the server before Subscribe returns.
func (b *Broker) Subscribe(ctx context.Context, boardID string) (*Subscription, error) {
	ps := b.rc.Subscribe(ctx, BoardChannel(boardID))
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("subscribing to board %s: %w", boardID, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Subscription{
		BoardID: boardID,
		ch:      make(chan Change, subscriptionBuffer),
		ps:      ps,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go b.pump(ctx, s)
	return s, nil
}

func (b *Broker) pump(ctx context.Context, s *Subscription) {
	defer close(s.done)
	defer close(s.ch)

	msgs := s.ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var c Change
			if err := sonic.UnmarshalString(msg.Payload, &c); err != nil {
				b.logger.Warn("dropping malformed change", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			select {
			case s.ch <- c:
			case <-ctx.Done():
				return
			}
		}
	}
}
