package highlight

import (
	"bytes"
	"strings"
	"testing"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/leapstack-labs/replmode/internal/repl"
	"github.com/leapstack-labs/replmode/internal/testutil"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var comparedTypes = []chroma.TokenType{
	chroma.Background,
	chroma.Text,
	chroma.Keyword,
	chroma.Name,
	chroma.NameFunction,
	chroma.LiteralString,
	chroma.LiteralNumberInteger,
	chroma.Comment,
	chroma.Operator,
	chroma.Generic,
	chroma.GenericPrompt,
	chroma.GenericTraceback,
	chroma.GenericError,
}

func TestDeriveStyle(t *testing.T) {
	for _, name := range []string{"monokai", "pygments", "github", "dracula"} {
		t.Run(name, func(t *testing.T) {
			base := styles.Get(name)
			derived, err := DeriveStyle(base)
			require.NoError(t, err)

			assert.Equal(t, Foreground(base), derived.Get(chroma.GenericOutput).Colour)
			for _, tt := range comparedTypes {
				assert.Equal(t, base.Get(tt), derived.Get(tt), "token type %s", tt)
			}
		})
	}
}

func TestDeriveStyle_NoForeground(t *testing.T) {
	base := chroma.MustNewStyle("bare", chroma.StyleEntries{
		chroma.Keyword: "bold #ff0000",
	})
	derived, err := DeriveStyle(base)
	require.NoError(t, err)

	assert.Equal(t, "#f8f8f2", derived.Get(chroma.GenericOutput).Colour.String())
	assert.Equal(t, base.Get(chroma.Keyword), derived.Get(chroma.Keyword))
}

func TestLookupStyle(t *testing.T) {
	tests := []struct {
		name     string
		theme    string
		wantOK   bool
		wantName string
	}{
		{name: "registered", theme: "monokai", wantOK: true, wantName: "monokai"},
		{name: "default alias", theme: "default", wantOK: true, wantName: "pygments"},
		{name: "case insensitive", theme: "Monokai", wantOK: true, wantName: "monokai"},
		{name: "unknown", theme: "no-such-theme", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ok := LookupStyle(tt.theme)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantName, s.Name)
			}
		})
	}
}

func TestTheme_FallsBack(t *testing.T) {
	logger, logs := testutil.NewCaptureLogger()
	s := Theme("no-such-theme", logger)
	assert.Equal(t, DefaultTheme, s.Name)
	assert.Contains(t, logs.String(), "unknown highlight theme")
	assert.Contains(t, logs.String(), "theme=no-such-theme")

	assert.Equal(t, DefaultTheme, Theme("", nil).Name)
}

func TestThemes(t *testing.T) {
	themes := Themes()
	require.NotEmpty(t, themes)

	var found bool
	for i, th := range themes {
		if i > 0 {
			assert.LessOrEqual(t, themes[i-1].Name, th.Name)
		}
		assert.NotEmpty(t, th.Foreground)
		if th.Name == "monokai" {
			found = true
		}
	}
	assert.True(t, found, "monokai should be listed")
}

func sampleTranscript() repl.Transcript {
	var t repl.Transcript
	t = append(t, repl.Build(
		repl.Turn{Lines: []string{"if x:", "    1", "else:", "    2"}},
		repl.Outcome{Status: repl.StatusComplete, Results: []string{"2"}},
	)...)
	t = append(t, repl.Build(
		repl.Turn{Lines: []string{"f()"}},
		repl.Outcome{
			Status:  repl.StatusComplete,
			Printed: "side",
			Errors:  "Traceback (most recent call last):\n  File \"<stdin>\", line 1, in <module>\nError: boom",
		},
	)...)
	return t
}

func newTestRenderer(t *testing.T, opts ...Option) *Renderer {
	t.Helper()
	r, err := NewRenderer(styles.Get("monokai"), opts...)
	require.NoError(t, err)
	return r
}

func TestRenderer_Tokens(t *testing.T) {
	r := newTestRenderer(t)
	tokens, err := r.Tokens(sampleTranscript())
	require.NoError(t, err)

	has := func(tt chroma.TokenType, value string) bool {
		for _, tok := range tokens {
			if tok.Type == tt && tok.Value == value {
				return true
			}
		}
		return false
	}

	assert.True(t, has(chroma.GenericPrompt, ">>> "))
	assert.True(t, has(chroma.GenericPrompt, "... "))
	assert.True(t, has(chroma.Keyword, "else"), "continuation lines are lexed with their turn")
	assert.True(t, has(chroma.Keyword, "if"))
	assert.True(t, has(chroma.LiteralNumberInteger, "2"))
	assert.True(t, has(chroma.GenericOutput, "side"))
	assert.True(t, has(chroma.GenericTraceback, "Traceback (most recent call last):"))
	assert.True(t, has(chroma.GenericError, "Error: boom"))

	var text strings.Builder
	for _, tok := range tokens {
		text.WriteString(tok.Value)
	}
	assert.Equal(t, sampleTranscript().String(), text.String())
}

func TestRenderer_TokensKeepBlankEcho(t *testing.T) {
	r := newTestRenderer(t)
	tr := repl.Transcript{
		{Kind: repl.PrimaryEcho, Text: "x = 1"},
		{Kind: repl.PrimaryEcho, Text: ""},
		{Kind: repl.PrimaryEcho, Text: "x"},
		{Kind: repl.ResultText, Text: "1"},
	}
	tokens, err := r.Tokens(tr)
	require.NoError(t, err)

	var text strings.Builder
	for _, tok := range tokens {
		text.WriteString(tok.Value)
	}
	assert.Equal(t, ">>> x = 1\n>>> \n>>> x\n1", text.String())
}

func TestRenderer_HTML(t *testing.T) {
	r := newTestRenderer(t)
	out, err := r.HTML(sampleTranscript())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, `<div class="sourceCode"><pre class="sourceCode pycon"><code class="sourceCode pycon">`))
	assert.True(t, strings.HasSuffix(out, `</code></pre></div>`))
	assert.Contains(t, out, "&gt;&gt;&gt; ")
	assert.Contains(t, out, "side")
	assert.Contains(t, out, "style=")
	assert.NotContains(t, out, "\n</code>", "no trailing newline inside the block")
}

func TestRenderer_Terminal(t *testing.T) {
	assert.Nil(t, TerminalFormatter(termenv.Ascii))

	r := newTestRenderer(t, WithFormatter(TerminalFormatter(termenv.ANSI256)))
	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, sampleTranscript()))
	assert.Contains(t, buf.String(), "\x1b[")
	assert.Contains(t, buf.String(), "side")
}

func TestWrap(t *testing.T) {
	assert.Equal(t,
		`<div class="sourceCode"><pre class="sourceCode pycon"><code class="sourceCode pycon">x</code></pre></div>`,
		WrapHTML("x"))
	assert.Equal(t, `<pre class="sourceCode pycon"><code class="sourceCode pycon">x</code></pre>`, WrapPre("x"))
}
