package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/sprintwithfriends/internal/model"
)

const (
	boardColumns = "id, owner_id, name, visibility, sprint_capacity_points, created_at"
	laneColumns  = "id, board_id, name, position, created_at"
)

// EnsurePersonalBoard returns ownerID's board, creating it together with
// the default lanes when none exists. Concurrent callers converge on a
// single board: owner_id is unique and lanes are only inserted by the
// caller whose board insert took effect. The bool reports whether this
// call created the board.
func (s *SQLiteStore) EnsurePersonalBoard(
	ctx context.Context,
	ownerID, name string,
	capacity int,
) (*model.Board, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, fmt.Errorf("board name must not be empty: %w", ErrInvalid)
	}
	if capacity < 0 {
		return nil, false, fmt.Errorf("board capacity must not be negative: %w", ErrInvalid)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	boardID := uuid.New().String()
	result, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO boards (`+boardColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)`,
		boardID, ownerID, name, model.BoardVisibilityPrivate, capacity, now,
	)
	if err != nil {
		return nil, false, fmt.Errorf("creating board for %s: %w", ownerID, err)
	}

	created, _ := result.RowsAffected()
	if created == 1 {
		for i, laneName := range model.DefaultLaneNames {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO lanes (`+laneColumns+`) VALUES (?, ?, ?, ?, ?)`,
				uuid.New().String(), boardID, laneName, i, now,
			)
			if err != nil {
				return nil, false, fmt.Errorf("creating lane %q: %w", laneName, err)
			}
		}
	}

	var b model.Board
	if err := tx.GetContext(ctx, &b, "SELECT "+boardColumns+" FROM boards WHERE owner_id = ?", ownerID); err != nil {
		return nil, false, fmt.Errorf("reading board for %s: %w", ownerID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("committing board for %s: %w", ownerID, err)
	}
	return &b, created == 1, nil
}

// GetBoard retrieves a board by id.
func (s *SQLiteStore) GetBoard(ctx context.Context, id string) (*model.Board, error) {
	var b model.Board
	err := s.db.GetContext(ctx, &b, "SELECT "+boardColumns+" FROM boards WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("board %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting board %s: %w", id, err)
	}
	return &b, nil
}

// GetBoardByOwner retrieves the board owned by ownerID.
func (s *SQLiteStore) GetBoardByOwner(ctx context.Context, ownerID string) (*model.Board, error) {
	var b model.Board
	err := s.db.GetContext(ctx, &b, "SELECT "+boardColumns+" FROM boards WHERE owner_id = ?", ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("board of %s: %w", ownerID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting board of %s: %w", ownerID, err)
	}
	return &b, nil
}

// GetLanes returns the lanes of a board ordered by position.
func (s *SQLiteStore) GetLanes(ctx context.Context, boardID string) ([]model.Lane, error) {
	var lanes []model.Lane
	err := s.db.SelectContext(ctx, &lanes,
		"SELECT "+laneColumns+" FROM lanes WHERE board_id = ? ORDER BY position", boardID)
	if err != nil {
		return nil, fmt.Errorf("querying lanes of %s: %w", boardID, err)
	}
	return lanes, nil
}

// GetLane retrieves a lane by id.
func (s *SQLiteStore) GetLane(ctx context.Context, id string) (*model.Lane, error) {
	var l model.Lane
	err := s.db.GetContext(ctx, &l, "SELECT "+laneColumns+" FROM lanes WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lane %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting lane %s: %w", id, err)
	}
	return &l, nil
}
