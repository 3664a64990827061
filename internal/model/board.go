package model

import "time"

// Board visibility values.
const (
	BoardVisibilityPrivate = "private"
	BoardVisibilityShared  = "shared"
)

// Default lane names, in position order.
const (
	LaneToDo       = "To Do"
	LaneInProgress = "In Progress"
	LaneDone       = "Done"
)

// DefaultLaneNames is the lane set created with every personal board.
var DefaultLaneNames = []string{LaneToDo, LaneInProgress, LaneDone}

// Board is a user's sprint board.
type Board struct {
	ID                   string    `json:"id" db:"id"`
	OwnerID              string    `json:"owner_id" db:"owner_id"`
	Name                 string    `json:"name" db:"name"`
	Visibility           string    `json:"visibility" db:"visibility"`
	SprintCapacityPoints int       `json:"sprint_capacity_points" db:"sprint_capacity_points"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
}

// Lane is an ordered column of a board.
type Lane struct {
	ID        string    `json:"id" db:"id"`
	BoardID   string    `json:"board_id" db:"board_id"`
	Name      string    `json:"name" db:"name"`
	Position  int       `json:"position" db:"position"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
