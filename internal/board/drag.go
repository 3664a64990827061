package board

import (
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/sprintwithfriends/internal/model"
)

// Phase is the state of the drag controller.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDragging
	PhaseCommitting
)

func (p Phase) String() string {
	switch p {
	case PhaseDragging:
		return "dragging"
	case PhaseCommitting:
		return "committing"
	default:
		return "idle"
	}
}

// MoveResultMsg reports the outcome of a lane write issued by a drop.
type MoveResultMsg struct {
	Epoch  uint64
	TaskID string
	LaneID string
	Err    error
}

// Drag turns drag gestures into lane changes. Only a task's creator may
// move it; the write is issued first and the local snapshot follows once
// it succeeds.
type Drag struct {
	state *State

	dragging bool
	active   model.Task

	epoch   uint64
	pending int
}

// NewDrag returns an idle controller bound to state.
func NewDrag(state *State) *Drag {
	return &Drag{state: state}
}

// Phase returns the controller's current phase.
func (d *Drag) Phase() Phase {
	if d.dragging {
		return PhaseDragging
	}
	if d.epoch == d.state.epoch && d.pending > 0 {
		return PhaseCommitting
	}
	return PhaseIdle
}

// ActiveTask returns the task being dragged, for the drag preview.
func (d *Drag) ActiveTask() (model.Task, bool) {
	return d.active, d.dragging
}

// OnDragStart records taskID as the dragged task. Unknown ids leave the
// controller idle.
func (d *Drag) OnDragStart(taskID string) {
	t, ok := d.state.snap.Task(taskID)
	if !ok || !d.state.active {
		d.Cancel()
		return
	}
	d.dragging = true
	d.active = t
}

// Cancel abandons the gesture without side effects.
func (d *Drag) Cancel() {
	d.dragging = false
	d.active = model.Task{}
}

// OnDragEnd drops taskID onto targetLaneID. Dropping nowhere, onto
// something that is not a lane of this board, or onto the task's own lane
// does nothing. A task the viewer did not create is refused with a notice
// and no request. Otherwise the conditioned write is returned as a command.
func (d *Drag) OnDragEnd(taskID, targetLaneID string) tea.Cmd {
	d.Cancel()

	s := d.state
	if !s.active || targetLaneID == "" {
		return nil
	}
	if _, ok := s.snap.Lane(targetLaneID); !ok {
		return nil
	}
	task, ok := s.snap.Task(taskID)
	if ok && task.InLane(targetLaneID) {
		return nil
	}
	if !ok || task.CreatorID != s.viewer.ID {
		s.notify.Notify(model.Notice{
			Level:  model.NoticeError,
			Title:  "Permission denied",
			Detail: "You can only move your own tasks",
		})
		return nil
	}

	if d.epoch != s.epoch {
		d.epoch = s.epoch
		d.pending = 0
	}
	d.pending++
	return s.commitMove(taskID, targetLaneID)
}

// Update handles write results.
func (d *Drag) Update(msg tea.Msg) tea.Cmd {
	res, ok := msg.(MoveResultMsg)
	if !ok {
		return nil
	}
	s := d.state
	if !s.current(res.Epoch) {
		return nil
	}
	if d.epoch == res.Epoch && d.pending > 0 {
		d.pending--
	}

	if res.Err != nil {
		s.logger.Warn("moving task",
			zap.String("task_id", res.TaskID), zap.String("lane_id", res.LaneID), zap.Error(res.Err))
		s.notify.Notify(model.Notice{Level: model.NoticeError, Title: "Error", Detail: "Failed to move task"})
		return s.Load()
	}

	s.ApplyOptimisticLaneChange(res.TaskID, res.LaneID)
	s.notify.Notify(model.Notice{Level: model.NoticeSuccess, Title: "Task moved", Detail: "Task updated successfully"})
	return nil
}
