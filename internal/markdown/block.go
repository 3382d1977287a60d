package markdown

import (
	"regexp"
	"strings"
)

var (
	// Group 1: language (optional). Group 2: code.
	codeBlockRegexp = regexp.MustCompile("(?sm)^```([a-zA-Z0-9_+-]*)\\n(.*?)^```")
)

// Block is a segment of a message: prose or a fenced code block.
type Block interface {
	md() string
	Content() string
	Language() string
}

// TextBlock is prose.
type TextBlock struct {
	Text string
}

func (b *TextBlock) md() string { return b.Text }

// Content returns the text.
func (b *TextBlock) Content() string { return b.Text }

// Language of prose is empty.
func (b *TextBlock) Language() string { return "" }

// CodeBlock is a fenced code block.
type CodeBlock struct {
	language string
	code     string
}

func (b *CodeBlock) md() string {
	return "```" + b.language + "\n" + b.code + "\n```"
}

// Content returns the code, without fences.
func (b *CodeBlock) Content() string { return b.code }

// Language returns the fence's language tag, "md" when absent.
func (b *CodeBlock) Language() string { return b.language }

// ParseBlocks splits markdown content into text and code blocks, in order.
func ParseBlocks(content string) []Block {
	var result []Block

	matches := codeBlockRegexp.FindAllStringSubmatchIndex(content, -1)
	lastEnd := 0
	for _, match := range matches {
		fullStart, fullEnd := match[0], match[1]
		langStart, langEnd := match[2], match[3]
		codeStart, codeEnd := match[4], match[5]

		if text := content[lastEnd:fullStart]; strings.TrimSpace(text) != "" {
			result = append(result, &TextBlock{Text: text})
		}

		language := "md"
		if langStart >= 0 && langEnd > langStart {
			language = content[langStart:langEnd]
		}
		var code string
		if codeStart >= 0 {
			code = content[codeStart:codeEnd]
		}
		result = append(result, &CodeBlock{
			language: language,
			code:     strings.ReplaceAll(strings.Trim(code, "\n"), "\t", "  "), // tabs break the layout.
		})
		lastEnd = fullEnd
	}

	if text := content[lastEnd:]; strings.TrimSpace(text) != "" {
		result = append(result, &TextBlock{Text: text})
	}
	return result
}

// LastCodeBlock returns the last code block of content, if any.
func LastCodeBlock(content string) (*CodeBlock, bool) {
	blocks := ParseBlocks(content)
	for i := len(blocks) - 1; i >= 0; i-- {
		if codeBlock, ok := blocks[i].(*CodeBlock); ok {
			return codeBlock, true
		}
	}
	return nil, false
}
