// Package friends lists the viewer's connections and the invitations they
// have sent.
package friends

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/sprintwithfriends/internal/keys"
	"github.com/nhle/sprintwithfriends/internal/model"
	"github.com/nhle/sprintwithfriends/internal/theme"
)

const loadTimeout = 10 * time.Second

// Source is the gateway subset the view reads from.
type Source interface {
	ListConnections(ctx context.Context, viewer model.Identity) ([]model.Connection, error)
	ListInvites(ctx context.Context, viewer model.Identity) ([]model.Invite, error)
	GetProfiles(ctx context.Context, viewer model.Identity, ids []string) ([]model.Profile, error)
}

// LoadedMsg carries a fresh listing.
type LoadedMsg struct {
	Friends []FriendItem
	Invites []InviteItem
	Err     error
}

// OpenBoardMsg asks to show a friend's board.
type OpenBoardMsg struct {
	OwnerID string
	Name    string
}

// BackMsg returns to the board.
type BackMsg struct{}

// Model is the friends & invites view.
type Model struct {
	list    list.Model
	src     Source
	keys    *keys.KeyMap
	now     func() time.Time
	loading bool
	err     error
	width   int
	height  int
}

// New creates the view. now is used for invite expiry and may be nil.
func New(src Source, k *keys.KeyMap, now func() time.Time, width, height int) Model {
	if now == nil {
		now = time.Now
	}
	l := list.New(nil, itemDelegate{now: now}, width, height-2)
	l.Title = "Friends & invites"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.TitleStyle

	return Model{list: l, src: src, keys: k, now: now, width: width, height: height}
}

// Load fetches connections and sent invites for viewer.
func (m *Model) Load(viewer model.Identity) tea.Cmd {
	m.loading = true
	src := m.src
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		return load(ctx, src, viewer)
	}
}

func load(ctx context.Context, src Source, viewer model.Identity) LoadedMsg {
	conns, err := src.ListConnections(ctx, viewer)
	if err != nil {
		return LoadedMsg{Err: err}
	}
	invites, err := src.ListInvites(ctx, viewer)
	if err != nil {
		return LoadedMsg{Err: err}
	}

	since := map[string]time.Time{}
	var ids []string
	for _, c := range conns {
		if c.Status != model.ConnectionAccepted {
			continue
		}
		other := c.Other(viewer.ID)
		ids = append(ids, other)
		if c.AcceptedAt != nil {
			since[other] = *c.AcceptedAt
		}
	}

	var msg LoadedMsg
	if len(ids) > 0 {
		profiles, err := src.GetProfiles(ctx, viewer, ids)
		if err != nil {
			return LoadedMsg{Err: err}
		}
		for _, p := range profiles {
			msg.Friends = append(msg.Friends, FriendItem{Profile: p, Since: since[p.ID]})
		}
	}
	slices.SortFunc(msg.Friends, func(a, b FriendItem) int {
		return strings.Compare(strings.ToLower(a.Profile.Identity().DisplayName), strings.ToLower(b.Profile.Identity().DisplayName))
	})

	// Newest invite first.
	slices.SortFunc(invites, func(a, b model.Invite) int { return b.CreatedAt.Compare(a.CreatedAt) })
	for _, inv := range invites {
		msg.Invites = append(msg.Invites, InviteItem{Invite: inv})
	}
	return msg
}

// Update handles messages for the view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg:
		m.loading = false
		m.err = msg.Err
		if msg.Err != nil {
			return m, nil
		}
		items := make([]list.Item, 0, len(msg.Friends)+len(msg.Invites))
		for _, f := range msg.Friends {
			items = append(items, f)
		}
		for _, inv := range msg.Invites {
			items = append(items, inv)
		}
		return m, m.list.SetItems(items)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Cancel):
			return m, func() tea.Msg { return BackMsg{} }
		case key.Matches(msg, m.keys.Open):
			f, ok := m.list.SelectedItem().(FriendItem)
			if !ok {
				return m, nil
			}
			id := f.Profile.Identity()
			return m, func() tea.Msg { return OpenBoardMsg{OwnerID: id.ID, Name: id.DisplayName} }
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
}

// View renders the list, or a placeholder while empty.
func (m Model) View() string {
	placeholder := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	switch {
	case m.err != nil:
		return placeholder.Render("Could not load your friends.\nPress esc and try again.")
	case len(m.list.Items()) == 0 && m.loading:
		return placeholder.Render("Loading...")
	case len(m.list.Items()) == 0:
		return placeholder.Render("No friends yet.\n\nPress i on the board to invite someone.")
	}
	return m.list.View()
}
