package model

import (
	"slices"
	"time"
)

// ValidPoints are the story point values a task may carry.
var ValidPoints = []int{1, 2, 3, 5, 8, 13}

// DefaultPoints is preselected when creating a task.
const DefaultPoints = 1

// PrivateTaskTitle replaces the title of a private task for everyone but its creator.
const PrivateTaskTitle = "Private task"

// IsValidPoints reports whether p is one of ValidPoints.
func IsValidPoints(p int) bool {
	return slices.Contains(ValidPoints, p)
}

// Task is a unit of work placed in a lane.
type Task struct {
	ID             string    `json:"id" db:"id"`
	BoardID        string    `json:"board_id" db:"board_id"`
	LaneID         *string   `json:"lane_id,omitempty" db:"lane_id"`
	Title          string    `json:"title" db:"title"`
	Description    *string   `json:"description,omitempty" db:"description"`
	AssigneeID     *string   `json:"assignee_id,omitempty" db:"assignee_id"`
	EstimatePoints int       `json:"estimate_points" db:"estimate_points"`
	IsPrivate      bool      `json:"is_private" db:"is_private"`
	CreatorID      string    `json:"creator_id" db:"creator_id"`
	Position       int       `json:"position" db:"position"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// InLane reports whether the task is placed in the given lane.
func (t Task) InLane(laneID string) bool {
	return t.LaneID != nil && *t.LaneID == laneID
}

// NewTask holds the user-entered fields of a task to be created.
type NewTask struct {
	BoardID     string
	LaneID      string
	Title       string
	Description string
	Points      int
	IsPrivate   bool
}
