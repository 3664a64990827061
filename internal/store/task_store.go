package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/sprintwithfriends/internal/model"
)

const taskColumns = `id, board_id, lane_id, title, description, assignee_id,
	estimate_points, is_private, creator_id, position, created_at, updated_at`

// CreateTask inserts a new task. Generates a UUID if ID is empty. Title and
// description are trimmed; an empty description is stored as NULL.
func (s *SQLiteStore) CreateTask(ctx context.Context, task model.Task) (*model.Task, error) {
	task.Title = strings.TrimSpace(task.Title)
	if task.Title == "" {
		return nil, fmt.Errorf("task title must not be empty: %w", ErrInvalid)
	}
	if !model.IsValidPoints(task.EstimatePoints) {
		return nil, fmt.Errorf("task points %d: %w", task.EstimatePoints, ErrInvalid)
	}
	if task.CreatorID == "" {
		return nil, fmt.Errorf("task creator must be set: %w", ErrInvalid)
	}
	if task.Description != nil {
		d := strings.TrimSpace(*task.Description)
		if d == "" {
			task.Description = nil
		} else {
			task.Description = &d
		}
	}
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now

	if task.LaneID != nil {
		var n int
		err := s.db.GetContext(ctx, &n,
			"SELECT COUNT(*) FROM lanes WHERE id = ? AND board_id = ?", *task.LaneID, task.BoardID)
		if err != nil {
			return nil, fmt.Errorf("checking lane %s: %w", *task.LaneID, err)
		}
		if n == 0 {
			return nil, fmt.Errorf("lane %s on board %s: %w", *task.LaneID, task.BoardID, ErrNotFound)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.BoardID, task.LaneID, task.Title, task.Description, task.AssigneeID,
		task.EstimatePoints, boolToInt(task.IsPrivate), task.CreatorID, task.Position,
		task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}
	return &task, nil
}

// GetTasks returns matching tasks ordered by position, then creation.
func (s *SQLiteStore) GetTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	if filter.CreatorIDs != nil && len(filter.CreatorIDs) == 0 {
		return []model.Task{}, nil
	}

	var conditions []string
	var args []interface{}
	if filter.BoardID != "" {
		conditions = append(conditions, "board_id = ?")
		args = append(args, filter.BoardID)
	}
	if filter.CreatorIDs != nil {
		conditions = append(conditions, "creator_id IN (?)")
		args = append(args, filter.CreatorIDs)
	}

	query := "SELECT " + taskColumns + " FROM tasks"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY position, created_at"

	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, fmt.Errorf("building tasks query: %w", err)
	}

	tasks := []model.Task{}
	if err := s.db.SelectContext(ctx, &tasks, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	return tasks, nil
}

// GetTaskByID retrieves a single task by its ID.
func (s *SQLiteStore) GetTaskByID(ctx context.Context, id string) (*model.Task, error) {
	var t model.Task
	err := s.db.GetContext(ctx, &t, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting task %s: %w", id, err)
	}
	return &t, nil
}

// MoveTaskByCreator sets the lane of a task in a single conditioned write.
// The row is only updated when creatorID created the task and laneID
// belongs to the task's board; otherwise ErrNotFound is returned and
// nothing changes.
func (s *SQLiteStore) MoveTaskByCreator(ctx context.Context, taskID, creatorID, laneID string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET lane_id = ?, updated_at = ?
		WHERE id = ? AND creator_id = ?
		  AND EXISTS (SELECT 1 FROM lanes WHERE lanes.id = ? AND lanes.board_id = tasks.board_id)`,
		laneID, time.Now().UTC(), taskID, creatorID, laneID,
	)
	if err != nil {
		return fmt.Errorf("moving task %s: %w", taskID, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("task %s for creator %s in lane %s: %w", taskID, creatorID, laneID, ErrNotFound)
	}
	return nil
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
