package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Layout constants
const (
	// Textarea
	MinTextareaHeight    = 1
	DefaultTextareaWidth = 80
	TextAreaPaddingLeft  = 1

	// Viewport
	MinViewportHeight = 1

	// Sidebar
	MinSidebarWidth = 20

	// Layout
	MessagePaddingLeft = 2
	FooterHeight       = 1

	// Modal
	ModalWidth               = 56
	ModalPaddingHorizontal   = 2
	ModalPaddingVertical     = 1
	LoginFormWidth           = 44
	LoginFormPaddingVertical = 1

	// Truncation
	TruncateSuffix = "…"
)

// Color palette
var (
	PrimaryColor   = lipgloss.Color("#7C3AED") // Purple
	SecondaryColor = lipgloss.Color("#06B6D4") // Cyan
	AccentColor    = lipgloss.Color("#F59E0B") // Amber
	SuccessColor   = lipgloss.Color("#10B981") // Green
	ErrorColor     = lipgloss.Color("#EF4444") // Red
	MutedColor     = lipgloss.Color("#6B7280") // Gray
	TextColor      = lipgloss.Color("#F9FAFB") // Light gray
	DimTextColor   = lipgloss.Color("#9CA3AF") // Dim gray
	BorderColor    = lipgloss.Color("#4B5563")
	DividerColor   = lipgloss.Color("#374151")
	SelectedBg     = lipgloss.Color("#343541")
)

// Header bar
var (
	TitleStyle = lipgloss.NewStyle().
			Background(PrimaryColor).
			Foreground(TextColor).
			Bold(true)

	StatusStyle = lipgloss.NewStyle().
			Foreground(DimTextColor).
			Background(PrimaryColor)
)

// Sidebar
var (
	SidebarStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, true, false, false).
			BorderForeground(BorderColor).
			PaddingRight(1)

	SidebarTitleStyle = lipgloss.NewStyle().
				Foreground(SecondaryColor).
				Bold(true).
				MarginBottom(1)

	ChatItemStyle = lipgloss.NewStyle().
			Foreground(DimTextColor).
			PaddingLeft(1)

	ActiveChatItemStyle = lipgloss.NewStyle().
				Foreground(TextColor).
				Bold(true).
				PaddingLeft(1)

	CursorChatItemStyle = lipgloss.NewStyle().
				Foreground(TextColor).
				Background(SelectedBg).
				PaddingLeft(1)

	SidebarFocusedStyle = lipgloss.NewStyle().
				Inherit(SidebarStyle).
				BorderForeground(PrimaryColor)
)

// Messages.
var (
	messageStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder())

	UserMessageStyle = lipgloss.NewStyle().
				Inherit(messageStyle).
				BorderForeground(PrimaryColor).
				MarginLeft(10)

	AIMessageStyle = lipgloss.NewStyle().
			Inherit(messageStyle).
			BorderForeground(SecondaryColor).
			MarginRight(10)

	UserLabelStyle = lipgloss.NewStyle().
			Foreground(SuccessColor).
			Bold(true)

	AILabelStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Bold(true)

	TimestampStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	EmptyStateStyle = lipgloss.NewStyle().
			Foreground(DimTextColor).
			Italic(true).
			PaddingLeft(MessagePaddingLeft)

	DimTextStyle = lipgloss.NewStyle().
			Foreground(DimTextColor)
)

// Error
var (
	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	ErrorPanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ErrorColor).
			Padding(ModalPaddingVertical, ModalPaddingHorizontal)
)

// Input area
var (
	TextAreaStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(PrimaryColor).
			PaddingLeft(TextAreaPaddingLeft)

	TextAreaBlurredStyle = lipgloss.NewStyle().
				Inherit(TextAreaStyle).
				BorderForeground(BorderColor)

	ReadOnlyFooterStyle = lipgloss.NewStyle().
				Foreground(DimTextColor).
				Italic(true).
				Border(lipgloss.RoundedBorder()).
				BorderForeground(BorderColor).
				PaddingLeft(TextAreaPaddingLeft)
)

// Spinner
var (
	SpinnerStyle = lipgloss.NewStyle().
		Foreground(SecondaryColor)
)

// Help text
var (
	HelpStyle = lipgloss.NewStyle().
		Foreground(MutedColor).
		Italic(true)
)

// Modals
var (
	ModalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(PrimaryColor).
			Padding(ModalPaddingVertical, ModalPaddingHorizontal).
			Width(ModalWidth)

	ConfirmBoxStyle = lipgloss.NewStyle().
			Inherit(ModalStyle).
			BorderForeground(AccentColor)

	ModalTitleStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Bold(true).
			MarginBottom(1)

	ConfirmTitleStyle = lipgloss.NewStyle().
				Foreground(AccentColor).
				Bold(true).
				MarginBottom(1)

	LinkStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Underline(true)
)

// Login form
var (
	LoginFormStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(PrimaryColor).
			Padding(LoginFormPaddingVertical, ModalPaddingHorizontal).
			Width(LoginFormWidth)

	LabelStyle = lipgloss.NewStyle().
			Foreground(DimTextColor)

	FocusedLabelStyle = lipgloss.NewStyle().
				Foreground(PrimaryColor).
				Bold(true)
)

// Viewport
var (
	ViewportStyle = lipgloss.NewStyle().Margin(0).Padding(0)
)

// Divider
var (
	DividerStyle = lipgloss.NewStyle().
		Foreground(DividerColor)
)

// MessageHorizontalFrameSize returns the horizontal frame size of AI messages.
func MessageHorizontalFrameSize() int {
	return AIMessageStyle.GetHorizontalFrameSize()
}

// Divider creates a horizontal divider of the specified width.
func Divider(width int) string {
	if width <= 0 {
		return ""
	}
	return DividerStyle.Render(strings.Repeat("─", width))
}

// Truncate truncates a string to maxLen runes, marking the cut with a suffix.
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 1 {
		return TruncateSuffix
	}
	return string(runes[:maxLen-1]) + TruncateSuffix
}
