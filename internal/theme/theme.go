package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/sprintwithfriends/internal/model"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for the application title bar.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// StatusBarStyle is used for the bottom status bar.
var StatusBarStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Background(ColorSubtle).
	Padding(0, 1)

// PanelStyle wraps full-screen secondary views (help, forms, detail).
var PanelStyle = lipgloss.NewStyle().
	Padding(1, 2).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// TitleStyle is the heading inside a panel.
var TitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	MarginBottom(1)

// HelpStyle is used for keyboard hints and secondary text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// LaneStyle frames a lane column.
var LaneStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder).
	Padding(0, 1)

// FocusedLaneStyle frames the lane holding the cursor.
var FocusedLaneStyle = LaneStyle.
	BorderForeground(ColorBlue)

// DropTargetLaneStyle frames the lane a dragged task would land in.
var DropTargetLaneStyle = LaneStyle.
	BorderForeground(ColorGreen).
	BorderStyle(lipgloss.DoubleBorder())

// LaneHeaderStyle renders a lane's name.
var LaneHeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite)

// CardStyle is a task card.
var CardStyle = lipgloss.NewStyle().
	Border(lipgloss.NormalBorder(), false, false, false, true).
	BorderForeground(ColorSubtle).
	PaddingLeft(1).
	MarginBottom(1)

// SelectedCardStyle highlights the card under the cursor.
var SelectedCardStyle = CardStyle.
	BorderForeground(ColorBlue).
	Bold(true)

// DraggingCardStyle marks the card being dragged.
var DraggingCardStyle = CardStyle.
	BorderForeground(ColorGreen).
	Foreground(ColorGreen)

// MaskedStyle renders the placeholder of a private task.
var MaskedStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// FriendBadgeStyle renders the "Friend's task" badge.
var FriendBadgeStyle = lipgloss.NewStyle().
	Foreground(ColorMagenta)

// PointsStyle renders a point estimate.
var PointsStyle = lipgloss.NewStyle().
	Foreground(ColorYellow).
	Bold(true)

// LockGlyph marks private tasks.
const LockGlyph = "🔒"

// CapacityStyle colors the remaining-points summary: red once the
// sprint is full.
func CapacityStyle(remaining int) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch {
	case remaining == 0:
		return base.Foreground(ColorRed)
	case remaining <= 3:
		return base.Foreground(ColorYellow)
	default:
		return base.Foreground(ColorGreen)
	}
}

// NoticeStyle returns the toast style for a notice level.
func NoticeStyle(level model.NoticeLevel) lipgloss.Style {
	base := lipgloss.NewStyle().
		Padding(0, 1).
		Border(lipgloss.RoundedBorder())

	switch level {
	case model.NoticeSuccess:
		return base.BorderForeground(ColorGreen)
	case model.NoticeWarning:
		return base.BorderForeground(ColorYellow)
	case model.NoticeError:
		return base.BorderForeground(ColorRed)
	default:
		return base.BorderForeground(ColorBlue)
	}
}

// Apply switches the palette for the configured theme name. "default"
// keeps the adaptive colors.
func Apply(name string) {
	if name != "mono" {
		return
	}
	mono := lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorBlue, ColorGreen, ColorYellow, ColorRed, ColorMagenta = mono, mono, mono, mono, mono
	HeaderStyle = HeaderStyle.Background(ColorSubtle)
	FocusedLaneStyle = LaneStyle.BorderStyle(lipgloss.ThickBorder())
	SelectedCardStyle = CardStyle.BorderForeground(ColorWhite).Bold(true).Underline(true)
	DraggingCardStyle = CardStyle.Reverse(true)
	PointsStyle = PointsStyle.Foreground(ColorWhite)
}
