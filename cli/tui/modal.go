package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"

	"github.com/malonaz/navi/chat"
	"github.com/malonaz/navi/cli/tui/styles"
	"github.com/malonaz/navi/session"
)

type modalKind int

const (
	modalNewChat modalKind = iota
	modalRename
	modalDeleteConfirm
	modalShare
	modalLogoutConfirm
	modalAssistantName
)

type ModalKeyMap struct {
	Confirm key.Binding
	Cancel  key.Binding
	Yes     key.Binding
	No      key.Binding
}

var modalKeyMap = ModalKeyMap{
	Confirm: key.NewBinding(
		key.WithKeys("enter"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
	),
	Yes: key.NewBinding(
		key.WithKeys("y", "Y"),
	),
	No: key.NewBinding(
		key.WithKeys("n", "N"),
	),
}

// modal is a dialog drawn over the chat view.
type modal struct {
	kind  modalKind
	chat  chat.Chat
	input textinput.Model
	link  string
	err   string
	busy  bool
}

func newInputModal(kind modalKind, value, placeholder string, charLimit int) *modal {
	input := textinput.New()
	input.Prompt = "› "
	input.Placeholder = placeholder
	input.CharLimit = charLimit
	input.Width = styles.ModalWidth - 2*styles.ModalPaddingHorizontal - 4
	input.SetValue(value)
	input.CursorEnd()
	input.Focus()
	return &modal{kind: kind, input: input}
}

func (m *Model) openNewChatModal() tea.Cmd {
	m.modal = newInputModal(modalNewChat, "", "Chat title", 100)
	return textinput.Blink
}

func (m *Model) openRenameModal(c chat.Chat) tea.Cmd {
	m.modal = newInputModal(modalRename, c.Title, "Chat title", 100)
	m.modal.chat = c
	return textinput.Blink
}

func (m *Model) openDeleteModal(c chat.Chat) {
	m.modal = &modal{kind: modalDeleteConfirm, chat: c}
}

func (m *Model) openLogoutModal() {
	m.modal = &modal{kind: modalLogoutConfirm}
}

func (m *Model) openAssistantNameModal() tea.Cmd {
	m.modal = newInputModal(modalAssistantName, m.assistantName(), "Assistant name", session.MaxAssistantNameLength)
	return textinput.Blink
}

// shareChat copies the public link of a chat and shows it.
func (m *Model) shareChat(c chat.Chat) tea.Cmd {
	link, err := chat.ShareURL(m.config.WebBaseURL, c, m.sessions.UserID())
	if err != nil {
		log.Error("building share link", "chat_id", c.ID, "error", err)
		return m.notifyError("Failed to share chat")
	}
	m.modal = &modal{kind: modalShare, chat: c, link: link}
	if err := m.copy(link); err != nil {
		log.Warn("copying share link", "error", err)
		return m.notifyError("Could not access the clipboard")
	}
	return m.notify("Share link copied to clipboard!")
}

func (m *Model) updateModal(msg tea.KeyMsg) tea.Cmd {
	d := m.modal
	if d.busy {
		return nil
	}
	if key.Matches(msg, modalKeyMap.Cancel) {
		m.modal = nil
		return nil
	}

	switch d.kind {
	case modalShare:
		if key.Matches(msg, modalKeyMap.Confirm) {
			m.modal = nil
		}
		return nil

	case modalDeleteConfirm, modalLogoutConfirm:
		switch {
		case key.Matches(msg, modalKeyMap.No):
			m.modal = nil
		case key.Matches(msg, modalKeyMap.Yes), key.Matches(msg, modalKeyMap.Confirm):
			d.busy = true
			if d.kind == modalDeleteConfirm {
				return m.deleteChat(d.chat.ID)
			}
			return m.logOut()
		}
		return nil
	}

	if key.Matches(msg, modalKeyMap.Confirm) {
		value := strings.TrimSpace(d.input.Value())
		switch d.kind {
		case modalNewChat, modalRename:
			if value == "" {
				d.err = "Chat title cannot be empty"
				return nil
			}
			d.busy = true
			if d.kind == modalNewChat {
				return m.createChat(value, "")
			}
			return m.renameChat(d.chat.ID, value)

		case modalAssistantName:
			if value == "" {
				d.err = fmt.Sprintf("Name must be 1 to %d characters", session.MaxAssistantNameLength)
				return nil
			}
			d.busy = true
			return m.setAssistantName(value)
		}
	}

	var cmd tea.Cmd
	d.input, cmd = d.input.Update(msg)
	d.err = ""
	return cmd
}

// failModal keeps the modal open with an error.
func (m *Model) failModal(kind modalKind, text string) bool {
	if m.modal == nil || m.modal.kind != kind {
		return false
	}
	m.modal.busy = false
	m.modal.err = text
	return true
}

func (m *Model) closeModal(kind modalKind) {
	if m.modal != nil && m.modal.kind == kind {
		m.modal = nil
	}
}

func (m *Model) renderModal() string {
	d := m.modal
	var b strings.Builder
	style := styles.ModalStyle
	title := func(text string) {
		b.WriteString(styles.ModalTitleStyle.Render(text))
		b.WriteString("\n")
	}
	confirmTitle := func(text string) {
		style = styles.ConfirmBoxStyle
		b.WriteString(styles.ConfirmTitleStyle.Render(text))
		b.WriteString("\n")
	}

	help := "Enter to confirm · Esc to cancel"
	switch d.kind {
	case modalNewChat:
		title("New chat")
		b.WriteString(d.input.View())
	case modalRename:
		title("Rename chat")
		b.WriteString(d.input.View())
	case modalAssistantName:
		title("Name your assistant")
		b.WriteString(d.input.View())
	case modalDeleteConfirm:
		confirmTitle("Delete chat?")
		fmt.Fprintf(&b, "%q will be deleted permanently.", styles.Truncate(d.chat.Title, 40))
		help = "Y to delete · N or Esc to cancel"
	case modalLogoutConfirm:
		confirmTitle("Log out?")
		b.WriteString("You will need to log in again to access your chats.")
		help = "Y to log out · N or Esc to cancel"
	case modalShare:
		title("Share chat")
		b.WriteString("Anyone with this link can view the conversation:\n\n")
		b.WriteString(styles.LinkStyle.Render(d.link))
		help = "Enter or Esc to close"
	}
	b.WriteString("\n\n")
	switch {
	case d.busy:
		b.WriteString(m.spinner.View() + " Working...")
	case d.err != "":
		b.WriteString(styles.ErrorStyle.Render(d.err))
	default:
		b.WriteString(styles.HelpStyle.Render(help))
	}
	return lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, style.Render(b.String()))
}

// assistantNameErrorText returns the message shown for a failed assistant name update.
func (m *Model) assistantNameErrorText(err error) string {
	if errors.Is(err, session.ErrInvalidAssistantName) {
		return fmt.Sprintf("Name must be 1 to %d characters", session.MaxAssistantNameLength)
	}
	return m.sessions.Error()
}
