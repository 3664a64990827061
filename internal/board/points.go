package board

import "github.com/nhle/sprintwithfriends/internal/model"

// CommittedPoints sums the estimates of tasks in the lane named "To Do".
func CommittedPoints(lanes []model.Lane, tasks []model.Task) int {
	todo := map[string]bool{}
	for _, l := range lanes {
		if l.Name == model.LaneToDo {
			todo[l.ID] = true
		}
	}
	sum := 0
	for _, t := range tasks {
		if t.LaneID != nil && todo[*t.LaneID] {
			sum += t.EstimatePoints
		}
	}
	return sum
}

// RemainingPoints is the capacity left after committed points, never below zero.
func RemainingPoints(capacity, committed int) int {
	return max(0, capacity-committed)
}

// LanePoints returns the point total and task count of a lane.
func LanePoints(laneID string, tasks []model.Task) (points, count int) {
	for _, t := range tasks {
		if t.InLane(laneID) {
			points += t.EstimatePoints
			count++
		}
	}
	return points, count
}
