package tui

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"text/template"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"go.dalton.dog/bubbleup"
	"golang.design/x/clipboard"

	"github.com/malonaz/navi/chat"
	"github.com/malonaz/navi/cli/tui/styles"
	"github.com/malonaz/navi/internal/configuration"
	"github.com/malonaz/navi/internal/debug"
	"github.com/malonaz/navi/internal/history"
	"github.com/malonaz/navi/internal/markdown"
	"github.com/malonaz/navi/internal/realtime"
	"github.com/malonaz/navi/session"
)

const (
	FocusTextarea FocusedComponent = iota
	FocusSidebar
)

var log *slog.Logger

type FocusedComponent int

// Channel is an open real-time channel to the assistant.
type Channel interface {
	SendMessage(ctx context.Context, chatID, content string) error
	Events() <-chan realtime.Event
	Err() error
	Close() error
}

// DialFunc opens a real-time channel.
type DialFunc func(ctx context.Context, endpoint string, jar http.CookieJar) (Channel, error)

// DialRealtime opens a Socket.IO channel.
func DialRealtime(ctx context.Context, endpoint string, jar http.CookieJar) (Channel, error) {
	channel, err := realtime.Dial(ctx, endpoint, jar)
	if err != nil {
		return nil, err
	}
	return channel, nil
}

var clipboardOnce sync.Once
var clipboardErr error

// CopyToClipboard writes text to the system clipboard.
func CopyToClipboard(text string) error {
	clipboardOnce.Do(func() { clipboardErr = clipboard.Init() })
	if clipboardErr != nil {
		return errors.Wrap(clipboardErr, "initializing clipboard")
	}
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}

// Options holds the dependencies of the application.
type Options struct {
	Config   *configuration.Config
	Chats    *chat.Store
	Sessions *session.Store
	Shared   chat.SharedClient
	// Jar holds the session cookies presented to the real-time channel.
	Jar     http.CookieJar
	History *history.History
	// Defaults to DialRealtime.
	Dial DialFunc
	// Defaults to CopyToClipboard.
	Copy func(text string) error
}

// Model is the Bubble Tea model of the application. It routes between the login,
// chat and shared chat screens.
type Model struct {
	// Core dependencies
	ctx      context.Context
	config   *configuration.Config
	chats    *chat.Store
	sessions *session.Store
	shared   chat.SharedClient
	jar      http.CookieJar
	dial     DialFunc
	copy     func(text string) error
	header   *template.Template

	// Routing
	route        Route
	initialRoute Route
	// Private route the user was redirected away from, opened after login.
	afterLogin *Route
	// Set until the session and the chat list are loaded.
	loading bool

	// Real-time channel, open while a chat view is displayed.
	channel    Channel
	connecting bool

	// Shared view state.
	sharedChat    *chat.Shared
	sharedErr     string
	sharedLoading bool

	// UI components
	textarea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *markdown.Renderer
	login    loginForm
	modal    *modal

	// UI state
	width            int
	height           int
	ready            bool
	quitting         bool
	windowFocused    bool
	focusedComponent FocusedComponent
	sidebarCursor    int

	// Alert notifications.
	alert bubbleup.AlertModel

	// Input history
	history           *history.History
	historyNavigating bool
}

// New creates the application model, which opens initialRoute once the session is loaded.
func New(ctx context.Context, opts *Options, initialRoute Route) (*Model, error) {
	log = debug.GetLogger()

	header, err := newHeaderTemplate(opts.Config.UI.HeaderTemplate)
	if err != nil {
		return nil, err
	}

	// Create textarea for input
	ta := textarea.New()
	ta.Placeholder = "Type your message... (Enter to send, Alt+Enter for a new line, Alt+P/N for history)"
	ta.Focus()
	ta.CharLimit = 0
	ta.SetWidth(styles.DefaultTextareaWidth)
	ta.SetHeight(styles.MinTextareaHeight)
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"))
	ta.Prompt = ""

	// Create spinner
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.SpinnerStyle

	alert := bubbleup.NewAlertModel(40, true, 2)

	renderer, err := markdown.NewRenderer(styles.DefaultTextareaWidth)
	if err != nil {
		return nil, err
	}

	dial := opts.Dial
	if dial == nil {
		dial = DialRealtime
	}
	copyFn := opts.Copy
	if copyFn == nil {
		copyFn = CopyToClipboard
	}

	m := &Model{
		ctx:              ctx,
		config:           opts.Config,
		chats:            opts.Chats,
		sessions:         opts.Sessions,
		shared:           opts.Shared,
		jar:              opts.Jar,
		dial:             dial,
		copy:             copyFn,
		header:           header,
		initialRoute:     initialRoute,
		loading:          true,
		textarea:         ta,
		spinner:          sp,
		renderer:         renderer,
		login:            newLoginForm(),
		windowFocused:    true,
		focusedComponent: FocusTextarea,
		alert:            *alert,
		history:          opts.History,
	}
	return m, nil
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		m.alert.Init(),
		m.loadSession(),
	)
}

// CurrentRoute returns the displayed route.
func (m *Model) CurrentRoute() Route {
	return m.route
}

// Close releases the real-time channel.
func (m *Model) Close() {
	m.closeRealtime()
}

// assistantName returns the name the user gave the assistant.
func (m *Model) assistantName() string {
	return m.sessions.AssistantName(m.config.UI.DefaultAssistantName)
}

// sidebarWidth returns the outer width of the sidebar.
func (m *Model) sidebarWidth() int {
	width := m.config.UI.SidebarWidth
	if width < styles.MinSidebarWidth {
		width = styles.MinSidebarWidth
	}
	if m.width > 0 && width > m.width/2 {
		width = m.width / 2
	}
	return width
}

// notify raises a toast.
func (m *Model) notify(text string) tea.Cmd {
	return m.alert.NewAlertCmd(bubbleup.InfoKey, text)
}

// notifyError raises an error toast.
func (m *Model) notifyError(text string) tea.Cmd {
	return m.alert.NewAlertCmd(bubbleup.ErrorKey, text)
}
