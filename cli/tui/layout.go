package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/malonaz/navi/cli/tui/styles"
)

const (
	headerHeight = 1
	statusHeight = 1
)

// adjustTextareaHeight resizes the textarea based on content line count.
func (m *Model) adjustTextareaHeight() {
	content := m.textarea.Value()
	lineCount := strings.Count(content, "\n") + 1

	newHeight := lineCount
	if newHeight < styles.MinTextareaHeight {
		newHeight = styles.MinTextareaHeight
	}
	if maxHeight := m.config.UI.MaxInputHeight; maxHeight > 0 && newHeight > maxHeight {
		newHeight = maxHeight
	}

	oldHeight := m.textarea.Height()
	if oldHeight != newHeight {
		m.textarea.SetHeight(newHeight)

		heightDiff := newHeight - oldHeight

		m.recalculateLayout()

		if heightDiff > 0 && m.ready {
			m.viewport.LineDown(heightDiff)
		}
	}
}

// mainWidth returns the width of the message column.
func (m *Model) mainWidth() int {
	if m.route.isChatView() {
		return m.width - m.sidebarWidth()
	}
	return m.width
}

// recalculateLayout adjusts viewport and textarea dimensions based on current state.
func (m *Model) recalculateLayout() {
	if m.width == 0 || m.height == 0 {
		return
	}

	viewportHeight := m.height - headerHeight
	switch {
	case m.route.isChatView():
		viewportHeight -= statusHeight + m.textarea.Height() + styles.TextAreaStyle.GetVerticalFrameSize()
	case m.route.Kind == RouteShared:
		viewportHeight -= lipgloss.Height(m.renderReadOnlyFooter())
	}
	if viewportHeight < styles.MinViewportHeight {
		viewportHeight = styles.MinViewportHeight
	}

	viewportWidth := m.mainWidth()
	rendererWidth := viewportWidth - styles.MessageHorizontalFrameSize()
	if rendererWidth < styles.MinSidebarWidth {
		rendererWidth = styles.MinSidebarWidth
	}
	if err := m.renderer.SetWidth(rendererWidth); err != nil {
		log.Error("resizing markdown renderer", "error", err)
	}

	if !m.ready {
		m.viewport = viewport.New(viewportWidth, viewportHeight)
		m.ready = true
		m.viewport.SetContent(m.renderMessages())
		m.viewport.GotoBottom()
	} else {
		m.viewport.Width = viewportWidth
		m.viewport.Height = viewportHeight
		m.viewport.SetContent(m.renderMessages())
	}

	m.textarea.SetWidth(viewportWidth - styles.TextAreaStyle.GetHorizontalFrameSize())
}

// refreshViewport re-renders the messages, following the bottom when asked to or when
// the viewport was already there.
func (m *Model) refreshViewport(gotoBottom bool) {
	if !m.ready {
		return
	}
	wasAtBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderMessages())
	if gotoBottom || wasAtBottom {
		m.viewport.GotoBottom()
	}
}
