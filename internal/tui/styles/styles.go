package styles

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	Amber     = lipgloss.Color("#E5A00D")
	SlateDark = lipgloss.Color("#1F2937")
	DimGray   = lipgloss.Color("#6B7280")
	LightGray = lipgloss.Color("#9CA3AF")
	White     = lipgloss.Color("#F9FAFB")
	Green     = lipgloss.Color("#10B981")
	Red       = lipgloss.Color("#EF4444")
)

// Text styles
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(White).
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(DimGray)

	AccentStyle = lipgloss.NewStyle().
			Foreground(Amber)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Red)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Green)
)

// Score and vote-state styles: positive, negative, and neutral are three
// distinct visual states.
var (
	ScorePositiveStyle = lipgloss.NewStyle().Foreground(Green)
	ScoreNegativeStyle = lipgloss.NewStyle().Foreground(Red)
	ScoreNeutralStyle  = lipgloss.NewStyle().Foreground(LightGray)

	UpvoteActiveStyle   = lipgloss.NewStyle().Foreground(Green).Bold(true)
	DownvoteActiveStyle = lipgloss.NewStyle().Foreground(Red).Bold(true)
	VoteIdleStyle       = lipgloss.NewStyle().Foreground(DimGray)

	FaveActiveStyle = lipgloss.NewStyle().Foreground(Red)
	FaveIdleStyle   = lipgloss.NewStyle().Foreground(DimGray)
)

// Score glyphs
const (
	ScoreUpGlyph      = "↑"
	ScoreDownGlyph    = "↓"
	ScoreNeutralGlyph = "↕"
)

// List item styles
var (
	SelectedItemStyle = lipgloss.NewStyle().
				Foreground(White).
				Background(SlateDark).
				Padding(0, 1)

	NormalItemStyle = lipgloss.NewStyle().
			Foreground(LightGray).
			Padding(0, 1)
)

// Control panel styles
var (
	PanelStyle = lipgloss.NewStyle().
			Foreground(LightGray)

	PanelActiveStyle = lipgloss.NewStyle().
				Foreground(Amber).
				Bold(true)

	NoticeStyle = lipgloss.NewStyle().
			Foreground(Green)

	WarningStyle = lipgloss.NewStyle().
			Foreground(Amber)
)

// Modal styles
var (
	ModalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Amber).
			Padding(1, 2)

	ModalTitleStyle = lipgloss.NewStyle().
			Foreground(White).
			Bold(true).
			MarginBottom(1)
)
