package board

import (
	"slices"

	"github.com/nhle/sprintwithfriends/internal/model"
)

// Snapshot is a point-in-time copy of a board's contents.
type Snapshot struct {
	Board  model.Board
	Lanes  []model.Lane
	Tasks  []model.Task
	Loaded bool
}

func (s Snapshot) clone() Snapshot {
	s.Lanes = slices.Clone(s.Lanes)
	s.Tasks = slices.Clone(s.Tasks)
	return s
}

// Lane returns the lane with the given id.
func (s Snapshot) Lane(id string) (model.Lane, bool) {
	for _, l := range s.Lanes {
		if l.ID == id {
			return l, true
		}
	}
	return model.Lane{}, false
}

// LaneNamed returns the first lane called name.
func (s Snapshot) LaneNamed(name string) (model.Lane, bool) {
	for _, l := range s.Lanes {
		if l.Name == name {
			return l, true
		}
	}
	return model.Lane{}, false
}

// Task returns the task with the given id.
func (s Snapshot) Task(id string) (model.Task, bool) {
	for _, t := range s.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return model.Task{}, false
}

// TasksIn returns the tasks placed in laneID, in snapshot order.
func (s Snapshot) TasksIn(laneID string) []model.Task {
	var out []model.Task
	for _, t := range s.Tasks {
		if t.InLane(laneID) {
			out = append(out, t)
		}
	}
	return out
}

// Elsewhere counts loaded tasks that sit in none of this board's lanes,
// such as friends' tasks on their own boards.
func (s Snapshot) Elsewhere() int {
	n := 0
	for _, t := range s.Tasks {
		if t.LaneID == nil {
			n++
			continue
		}
		if _, ok := s.Lane(*t.LaneID); !ok {
			n++
		}
	}
	return n
}

// CommittedPoints is CommittedPoints over the snapshot.
func (s Snapshot) CommittedPoints() int {
	return CommittedPoints(s.Lanes, s.Tasks)
}

// RemainingPoints is RemainingPoints for the board's capacity.
func (s Snapshot) RemainingPoints() int {
	return RemainingPoints(s.Board.SprintCapacityPoints, s.CommittedPoints())
}
