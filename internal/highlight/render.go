package highlight

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/leapstack-labs/replmode/internal/repl"
	"github.com/muesli/termenv"
)

// Renderer turns transcripts into highlighted markup.
type Renderer struct {
	style     *chroma.Style
	lexer     chroma.Lexer
	formatter chroma.Formatter
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithFormatter sets the chroma formatter. The default produces HTML with
// inline styles and no surrounding pre element.
func WithFormatter(f chroma.Formatter) Option {
	return func(r *Renderer) {
		if f != nil {
			r.formatter = f
		}
	}
}

// NewHTMLFormatter returns the formatter used for documents.
func NewHTMLFormatter() chroma.Formatter {
	return chromahtml.New(
		chromahtml.WithClasses(false),
		chromahtml.PreventSurroundingPre(true),
	)
}

// TerminalFormatter returns a formatter matching the colour depth of a
// terminal profile, or nil when the terminal has no colour.
func TerminalFormatter(profile termenv.Profile) chroma.Formatter {
	switch profile {
	case termenv.TrueColor:
		return formatters.Get("terminal16m")
	case termenv.ANSI256:
		return formatters.Get("terminal256")
	case termenv.ANSI:
		return formatters.Get("terminal16")
	default:
		return nil
	}
}

// NewRenderer creates a renderer for the given theme. Output text is
// recoloured with DeriveStyle.
func NewRenderer(base *chroma.Style, opts ...Option) (*Renderer, error) {
	style, err := DeriveStyle(base)
	if err != nil {
		return nil, fmt.Errorf("derive style %q: %w", base.Name, err)
	}
	lexer := lexers.Get("python")
	if lexer == nil {
		lexer = lexers.Fallback
	}
	r := &Renderer{
		style:     style,
		lexer:     lexer,
		formatter: NewHTMLFormatter(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Style returns the derived style the renderer formats with.
func (r *Renderer) Style() *chroma.Style {
	return r.style
}

// Render formats the transcript to w.
func (r *Renderer) Render(w io.Writer, t repl.Transcript) error {
	tokens, err := r.Tokens(t)
	if err != nil {
		return err
	}
	if err := r.formatter.Format(w, r.style, chroma.Literator(tokens...)); err != nil {
		return fmt.Errorf("format transcript: %w", err)
	}
	return nil
}

// HTML renders the transcript as a complete console code block.
func (r *Renderer) HTML(t repl.Transcript) (string, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, t); err != nil {
		return "", err
	}
	return WrapHTML(buf.String()), nil
}

// Tokens converts the transcript into one token stream. Runs of echoed
// source and body text are tokenised together so that continuation lines
// are lexed in the context of their turn; each result is lexed on its own.
// Physical lines are separated by newline tokens, with none at the end.
func (r *Renderer) Tokens(t repl.Transcript) ([]chroma.Token, error) {
	var (
		lines [][]chroma.Token
		group []repl.Line
	)
	flush := func() error {
		if len(group) == 0 {
			return nil
		}
		block, err := r.console(group)
		if err != nil {
			return err
		}
		lines = append(lines, block...)
		group = group[:0]
		return nil
	}

	for _, l := range t {
		if l.Kind != repl.ResultText {
			group = append(group, l)
			continue
		}
		if err := flush(); err != nil {
			return nil, err
		}
		toks, err := r.lex(l.Text)
		if err != nil {
			return nil, err
		}
		lines = append(lines, splitLines(toks)...)
	}
	if err := flush(); err != nil {
		return nil, err
	}

	return joinLines(lines), nil
}

// console tokenises a run of echo and body lines, one token slice per
// physical line.
func (r *Renderer) console(group []repl.Line) ([][]chroma.Token, error) {
	var (
		lines   [][]chroma.Token
		source  []string
		prompts []string
	)
	flushSource := func() error {
		if len(source) == 0 {
			return nil
		}
		toks, err := r.lex(strings.Join(source, "\n"))
		if err != nil {
			return err
		}
		code := splitLines(toks)
		for i, prompt := range prompts {
			line := []chroma.Token{{Type: chroma.GenericPrompt, Value: prompt}}
			if i < len(code) {
				line = append(line, code[i]...)
			}
			lines = append(lines, line)
		}
		source, prompts = nil, nil
		return nil
	}

	for _, l := range group {
		switch l.Kind {
		case repl.PrimaryEcho:
			if err := flushSource(); err != nil {
				return nil, err
			}
			source, prompts = append(source, l.Text), append(prompts, repl.PrimaryPrompt)
		case repl.ContinuationEcho:
			source, prompts = append(source, l.Text), append(prompts, repl.ContinuationPrompt)
		case repl.BodyText:
			if err := flushSource(); err != nil {
				return nil, err
			}
			lines = append(lines, bodyLines(l)...)
		}
	}
	if err := flushSource(); err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *Renderer) lex(text string) ([]chroma.Token, error) {
	it, err := r.lexer.Tokenise(nil, text)
	if err != nil {
		return nil, fmt.Errorf("tokenise: %w", err)
	}
	toks := it.Tokens()
	lines := splitLines(toks)
	// Lexers append a final newline; drop the empty line it leaves.
	want := strings.Count(text, "\n") + 1
	if len(lines) > want {
		lines = lines[:want]
	}
	return joinLines(lines), nil
}

// bodyLines tokenises printed or error text. Output is GenericOutput;
// error text is GenericTraceback except for its last line, the message,
// which is GenericError.
func bodyLines(l repl.Line) [][]chroma.Token {
	parts := strings.Split(l.Text, "\n")
	lines := make([][]chroma.Token, len(parts))
	for i, p := range parts {
		tt := chroma.GenericOutput
		if l.Stream != repl.StreamStdout {
			tt = chroma.GenericTraceback
			if i == len(parts)-1 {
				tt = chroma.GenericError
			}
		}
		if p != "" {
			lines[i] = []chroma.Token{{Type: tt, Value: p}}
		}
	}
	return lines
}

// splitLines breaks a token stream at newlines, dropping the newline
// characters themselves.
func splitLines(toks []chroma.Token) [][]chroma.Token {
	lines := [][]chroma.Token{nil}
	for _, tok := range toks {
		for i, part := range strings.Split(tok.Value, "\n") {
			if i > 0 {
				lines = append(lines, nil)
			}
			if part != "" {
				cur := len(lines) - 1
				lines[cur] = append(lines[cur], chroma.Token{Type: tok.Type, Value: part})
			}
		}
	}
	return lines
}

func joinLines(lines [][]chroma.Token) []chroma.Token {
	var out []chroma.Token
	for i, line := range lines {
		if i > 0 {
			out = append(out, chroma.Token{Type: chroma.Text, Value: "\n"})
		}
		out = append(out, line...)
	}
	return out
}

// WrapHTML wraps a highlighted fragment in the console code block markup.
func WrapHTML(fragment string) string {
	return `<div class="sourceCode"><pre class="sourceCode pycon"><code class="sourceCode pycon">` +
		fragment + `</code></pre></div>`
}

// WrapPre is WrapHTML without the outer div, for hosts that treat a
// leading pre element specially.
func WrapPre(fragment string) string {
	return `<pre class="sourceCode pycon"><code class="sourceCode pycon">` + fragment + `</code></pre>`
}
