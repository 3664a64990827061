package board

import "github.com/nhle/sprintwithfriends/internal/model"

// Display is what a viewer gets to see of a task.
type Display struct {
	Title       string
	Description *string
	// Masked marks a private task hidden from the viewer, as opposed to
	// one that does not exist.
	Masked bool
	// Foreign is set when the viewer did not create the task.
	Foreign bool
	// ShowAssignee is false for masked tasks.
	ShowAssignee bool
}

// Visibility applies the creator-only privacy rule: a private task shows
// its content to its creator and to nobody else, the board owner included.
func Visibility(task model.Task, viewer model.Identity) Display {
	own := viewer.ID != "" && task.CreatorID == viewer.ID
	if task.IsPrivate && !own {
		return Display{Title: model.PrivateTaskTitle, Masked: true, Foreign: true}
	}

	d := Display{Title: task.Title, Foreign: !own, ShowAssignee: true}
	if task.Description != nil {
		desc := *task.Description
		d.Description = &desc
	}
	return d
}
