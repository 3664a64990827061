package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/sprintwithfriends/internal/theme"
)

// Layout manages the terminal frame: header, content, notices, status bar.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
// HeaderHeight and StatusBarHeight default to 1.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height available for the main content area,
// accounting for the header and status bar.
func (l Layout) ContentHeight() int {
	return max(0, l.Height-l.HeaderHeight-l.StatusBarHeight)
}

// RenderHeader renders the title bar: app title on the left, the signed-in
// user and connection state on the right.
func (l Layout) RenderHeader(title, status string) string {
	return l.fill(theme.HeaderStyle, theme.HeaderStyle.Render(title), theme.HeaderStyle.Render(status))
}

// RenderStatusBar renders the bottom status bar with keyboard hints.
func (l Layout) RenderStatusBar(hints string) string {
	return l.fill(theme.StatusBarStyle, theme.StatusBarStyle.Render(hints), "")
}

func (l Layout) fill(style lipgloss.Style, left, right string) string {
	gap := max(0, l.Width-lipgloss.Width(left)-lipgloss.Width(right))
	filler := lipgloss.NewStyle().
		Width(gap).
		Background(style.GetBackground()).
		Render("")
	return lipgloss.JoinHorizontal(lipgloss.Top, left, filler, right)
}

// RenderWithFrame stacks header, content, notices, and status bar. The
// content is clipped so notices never push the status bar off screen.
func (l Layout) RenderWithFrame(header, content, notices, statusBar string) string {
	h := l.ContentHeight() - lipgloss.Height(notices)
	if notices == "" {
		h = l.ContentHeight()
	}
	body := lipgloss.NewStyle().Height(max(0, h)).MaxHeight(max(0, h)).Render(content)

	parts := []string{header, body}
	if notices != "" {
		parts = append(parts, notices)
	}
	parts = append(parts, statusBar)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
