package markdown

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	"github.com/pkg/errors"
)

// Renderer renders chat messages as terminal markdown. Rendered output is cached by
// message id, since messages never change once received.
type Renderer struct {
	mutex   sync.Mutex
	glamour *glamour.TermRenderer
	width   int
	cache   map[string]string
}

// NewRenderer creates a new markdown renderer wrapping at the given width.
func NewRenderer(width int) (*Renderer, error) {
	gr, err := newTermRenderer(width)
	if err != nil {
		return nil, err
	}
	return &Renderer{
		glamour: gr,
		width:   width,
		cache:   map[string]string{},
	}, nil
}

func newTermRenderer(width int) (*glamour.TermRenderer, error) {
	gr, err := glamour.NewTermRenderer(
		glamour.WithStyles(customStyle()),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, errors.Wrap(err, "creating glamour renderer")
	}
	return gr, nil
}

// Width returns the current wrap width.
func (r *Renderer) Width() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.width
}

// SetWidth updates the wrap width. The cache is dropped when the width changes.
func (r *Renderer) SetWidth(width int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.width == width {
		return nil
	}
	gr, err := newTermRenderer(width)
	if err != nil {
		return err
	}
	r.glamour = gr
	r.width = width
	r.cache = map[string]string{}
	return nil
}

// Render renders content. A non-empty key caches the output.
func (r *Renderer) Render(key, content string) string {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if key != "" {
		if md, ok := r.cache[key]; ok {
			return md
		}
	}

	blocks := ParseBlocks(content)
	rendered := make([]string, 0, len(blocks))
	for _, block := range blocks {
		rendered = append(rendered, r.renderBlock(block.md()))
	}
	md := strings.Join(rendered, "\n")

	if key != "" {
		r.cache[key] = md
	}
	return md
}

// Forget drops the cached output of a message.
func (r *Renderer) Forget(key string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	delete(r.cache, key)
}

// renderBlock renders a single block of markdown content, falling back to raw text.
func (r *Renderer) renderBlock(content string) string {
	rendered, err := r.glamour.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(rendered, "\n")
}

// customStyle returns a modified glamour style for cleaner output.
func customStyle() ansi.StyleConfig {
	style := styles.DraculaStyleConfig
	zero := uint(0)
	style.Document.Margin = &zero
	style.CodeBlock.Margin = &zero
	style.CodeBlock.Indent = &zero
	style.CodeBlock.Prefix = ""
	style.CodeBlock.BlockPrefix = ""

	style.Code.Margin = &zero
	style.Code.Indent = &zero
	style.Code.Prefix = ""
	style.Code.Suffix = ""

	style.Paragraph.BlockPrefix = ""
	style.Paragraph.BlockSuffix = ""

	return style
}
