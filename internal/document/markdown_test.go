package document

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSessionFence(t *testing.T) {
	tests := []struct {
		info string
		want bool
	}{
		{info: "repl", want: true},
		{info: "{.repl}", want: true},
		{info: "python repl-mode=true", want: true},
		{info: `{python repl-mode="true"}`, want: true},
		{info: "python repl-mode=false", want: false},
		{info: "python", want: false},
		{info: "replay", want: false},
		{info: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.info, func(t *testing.T) {
			assert.Equal(t, tt.want, isSessionFence(tt.info))
		})
	}
}

func render(t *testing.T, p *Processor, src string) string {
	t.Helper()
	out, err := p.RenderMarkdown(context.Background(), []byte(src))
	require.NoError(t, err)
	return string(out)
}

func TestRenderMarkdown_Plain(t *testing.T) {
	p := newTestProcessor(t, WithVariant(VariantPlain))
	src := "# Title\n\n```repl\nx = 10\nx\n```\n\nSome text.\n\n```python\nx = 99\n```\n\n```python repl-mode=true\nx * 2\n```\n"

	want := "# Title\n\n```pycon\n>>> x = 10\n>>> x\n10\n```\n\nSome text.\n\n```python\nx = 99\n```\n\n```pycon\n>>> x * 2\n20\n```\n"
	assert.Equal(t, want, render(t, p, src))
}

func TestRenderMarkdown_NestedFences(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "blockquote",
			src:  "> note\n>\n> ```repl\n> print(\"a\\n\\nb\")\n> ```\n> after\n",
			want: "> note\n>\n> ```pycon\n> >>> print(\"a\\n\\nb\")\n> a\n>\n> b\n> ```\n> after\n",
		},
		{
			name: "list item",
			src:  "- item\n\n  ```repl\n  1 + 1\n  ```\n- next\n",
			want: "- item\n\n  ```pycon\n  >>> 1 + 1\n  2\n  ```\n- next\n",
		},
		{
			name: "fence on the list marker line",
			src:  "- ```repl\n  1 + 1\n  ```\n- next\n",
			want: "- ```pycon\n  >>> 1 + 1\n  2\n  ```\n- next\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProcessor(t, WithVariant(VariantPlain))
			assert.Equal(t, tt.want, render(t, p, tt.src))
		})
	}
}

func TestRenderMarkdown_HighlightInBlockquote(t *testing.T) {
	p := newTestProcessor(t)
	src := "> ```repl\n> print(\"a\\n\\nb\")\n> ```\n\nAfter\n"

	out := render(t, p, src)
	body, tail, ok := strings.Cut(out, "\n\nAfter\n")
	require.True(t, ok, "got %q", out)
	assert.Empty(t, tail)
	for _, line := range strings.Split(body, "\n") {
		assert.True(t, strings.HasPrefix(line, ">"), "line %q left the blockquote", line)
	}
	assert.NotContains(t, out, "```")
}

func TestRenderMarkdown_Unchanged(t *testing.T) {
	p := newTestProcessor(t)
	src := "# Title\n\n```python\nprint(1)\n```\n"
	assert.Equal(t, src, render(t, p, src))
}

func TestRenderMarkdown_FrontMatter(t *testing.T) {
	p := newTestProcessor(t, WithVariant(VariantPlain))
	src := "---\ntitle: Demo\nrepl-highlight-style: monokai\n---\n\n```repl\n1\n```\n"

	out := render(t, p, src)
	assert.True(t, strings.HasPrefix(out, "---\ntitle: Demo\nrepl-highlight-style: monokai\n---\n\n```pycon\n>>> 1\n1\n```\n"), "got %q", out)
}

func TestRenderMarkdown_Highlight(t *testing.T) {
	p := newTestProcessor(t)
	src := "Before\n\n```repl\nprint(\"a\\n\\nb\")\n```\n\nAfter\n"

	out := render(t, p, src)
	assert.True(t, strings.HasPrefix(out, "Before\n\n<pre class=\"sourceCode pycon\"><code class=\"sourceCode pycon\">"), "got %q", out)
	assert.True(t, strings.HasSuffix(out, "</code></pre>\n\nAfter\n"), "got %q", out)
	assert.NotContains(t, out, "```")
}

func TestFrontMatter(t *testing.T) {
	tests := []struct {
		name       string
		src        string
		wantTheme  string
		wantOffset int
		wantErr    bool
	}{
		{name: "none", src: "# Title\n", wantOffset: 0},
		{name: "theme", src: "---\nrepl-highlight-style: github\n---\nbody", wantTheme: "github", wantOffset: 37},
		{name: "non string theme", src: "---\nrepl-highlight-style: [a]\n---\n", wantOffset: 34},
		{name: "unterminated", src: "---\ntitle: x\n", wantOffset: 0},
		{name: "invalid yaml", src: "---\nkey: [unclosed\n---\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta, offset, err := frontMatter([]byte(tt.src))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOffset, offset)
			assert.Equal(t, tt.wantTheme, themeFromFrontMatter(meta))
		})
	}
}

func TestParseVariant(t *testing.T) {
	v, err := ParseVariant("plain")
	require.NoError(t, err)
	assert.Equal(t, VariantPlain, v)

	_, err = ParseVariant("fancy")
	assert.Error(t, err)
}
