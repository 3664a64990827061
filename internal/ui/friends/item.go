package friends

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/sprintwithfriends/internal/model"
	"github.com/nhle/sprintwithfriends/internal/theme"
)

// FriendItem is an accepted connection.
type FriendItem struct {
	Profile model.Profile
	Since   time.Time
}

func (i FriendItem) FilterValue() string { return i.Profile.Identity().DisplayName }

// InviteItem is an invitation the viewer sent.
type InviteItem struct {
	Invite model.Invite
}

func (i InviteItem) FilterValue() string { return i.Invite.InvitedEmail }

// itemDelegate renders one line per entry.
type itemDelegate struct {
	now func() time.Time
}

func (d itemDelegate) Height() int { return 1 }

func (d itemDelegate) Spacing() int { return 0 }

func (d itemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	var line string
	switch it := item.(type) {
	case FriendItem:
		id := it.Profile.Identity()
		line = fmt.Sprintf("● %s  %s", id.DisplayName, theme.HelpStyle.Render(id.Email))
		if !it.Since.IsZero() {
			line += theme.HelpStyle.Render("  friends " + relativeTime(d.now(), it.Since))
		}
	case InviteItem:
		line = fmt.Sprintf("✉ %s  %s", it.Invite.InvitedEmail, inviteStatus(it.Invite, d.now()))
	default:
		return
	}

	if index == m.Index() {
		line = lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).Render("> " + line)
	} else {
		line = "  " + line
	}
	fmt.Fprint(w, line)
}

// inviteStatus describes where an invite stands at now.
func inviteStatus(inv model.Invite, now time.Time) string {
	switch {
	case inv.Status == model.InviteAccepted:
		return lipgloss.NewStyle().Foreground(theme.ColorGreen).Render("accepted")
	case inv.Status == model.InviteDeclined:
		return theme.HelpStyle.Render("declined")
	case inv.Expired(now):
		return theme.HelpStyle.Render("expired")
	default:
		left := inv.ExpiresAt.Sub(now)
		return lipgloss.NewStyle().Foreground(theme.ColorYellow).Render("pending · expires in " + shortDuration(left))
	}
}

// relativeTime returns a human-friendly "ago" string.
func relativeTime(now, t time.Time) string {
	d := now.Sub(t)
	if d < time.Minute {
		return "just now"
	}
	return shortDuration(d) + " ago"
}

func shortDuration(d time.Duration) string {
	switch {
	case d < time.Hour:
		return fmt.Sprintf("%dm", max(1, int(d.Minutes())))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	default:
		return fmt.Sprintf("%dw", int(d.Hours()/24/7))
	}
}
