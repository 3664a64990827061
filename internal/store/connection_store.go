package store

import (
	"context"
	"fmt"

	"github.com/nhle/sprintwithfriends/internal/model"
)

const connectionColumns = "id, user1_id, user2_id, status, invited_by, created_at, accepted_at"

// orderedPair returns a and b sorted so that the first sorts lower.
func orderedPair(a, b string) (string, string) {
	if a < b {
		return a, b
	}
	return b, a
}

// ConnectedUserIDs returns the ids of every user with an accepted
// connection to userID. userID itself is not included.
func (s *SQLiteStore) ConnectedUserIDs(ctx context.Context, userID string) ([]string, error) {
	ids := []string{}
	err := s.db.SelectContext(ctx, &ids, `
		SELECT CASE WHEN user1_id = ? THEN user2_id ELSE user1_id END
		FROM user_connections
		WHERE status = 'accepted' AND (user1_id = ? OR user2_id = ?)
		ORDER BY 1`,
		userID, userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying connections of %s: %w", userID, err)
	}
	return ids, nil
}

// AreConnected reports whether a and b have an accepted connection.
func (s *SQLiteStore) AreConnected(ctx context.Context, a, b string) (bool, error) {
	u1, u2 := orderedPair(a, b)
	var n int
	err := s.db.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM user_connections
		WHERE user1_id = ? AND user2_id = ? AND status = 'accepted'`, u1, u2)
	if err != nil {
		return false, fmt.Errorf("checking connection %s/%s: %w", a, b, err)
	}
	return n > 0, nil
}

// GetConnections returns all connections involving userID, newest first.
func (s *SQLiteStore) GetConnections(ctx context.Context, userID string) ([]model.Connection, error) {
	var conns []model.Connection
	err := s.db.SelectContext(ctx, &conns, `
		SELECT `+connectionColumns+` FROM user_connections
		WHERE user1_id = ? OR user2_id = ?
		ORDER BY created_at DESC`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("querying connections of %s: %w", userID, err)
	}
	return conns, nil
}
