package markdown

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseBlocks(t *testing.T) {
	content := "Here is some code:\n```go\nfunc main() {\n\tfmt.Println(1)\n}\n```\nand a plain fence:\n```\nls -la\n```\n"

	blocks := ParseBlocks(content)
	require.Len(t, blocks, 4)

	require.Equal(t, "Here is some code:\n", blocks[0].Content())
	require.Equal(t, "go", blocks[1].Language())
	require.Equal(t, "func main() {\n  fmt.Println(1)\n}", blocks[1].Content())
	require.Equal(t, "\nand a plain fence:\n", blocks[2].Content())
	require.Equal(t, "md", blocks[3].Language())
	require.Equal(t, "ls -la", blocks[3].Content())
}

func TestParseBlocks_NoCode(t *testing.T) {
	require.Empty(t, ParseBlocks(""))
	require.Empty(t, ParseBlocks("  \n"))

	blocks := ParseBlocks("just *text*")
	require.Len(t, blocks, 1)
	require.Equal(t, "just *text*", blocks[0].Content())
	require.Equal(t, "", blocks[0].Language())
}

func TestLastCodeBlock(t *testing.T) {
	_, ok := LastCodeBlock("no code here")
	require.False(t, ok)

	block, ok := LastCodeBlock("```sh\necho 1\n```\ntext\n```python\nprint(2)\n```")
	require.True(t, ok)
	require.Equal(t, "python", block.Language())
	require.Equal(t, "print(2)", block.Content())
}

func TestRenderer_CachesByKey(t *testing.T) {
	renderer, err := NewRenderer(40)
	require.NoError(t, err)

	first := renderer.Render("m1", "**hello**")
	require.Contains(t, first, "hello")
	require.Equal(t, first, renderer.Render("m1", "something else"))

	renderer.Forget("m1")
	require.Contains(t, renderer.Render("m1", "something else"), "something")

	require.NoError(t, renderer.SetWidth(60))
	require.Equal(t, 60, renderer.Width())
	require.Contains(t, renderer.Render("m1", "fresh"), "fresh")
}
