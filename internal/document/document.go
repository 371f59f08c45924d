// Package document finds session-mode code in documents and replaces it
// with rendered console transcripts.
//
// Two document forms are supported: the Pandoc JSON AST, for use as a
// Pandoc or Quarto filter, and Markdown source. Each document gets one
// fresh runtime, so state carries over between its blocks but never
// between documents.
package document

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/replmode/internal/highlight"
	"github.com/leapstack-labs/replmode/internal/repl"
)

// ThemeKey is the metadata key that selects the highlight theme.
const ThemeKey = "repl-highlight-style"

// Variant selects what a session-mode block is replaced with.
type Variant string

const (
	// VariantHighlight produces themed HTML.
	VariantHighlight Variant = "highlight"
	// VariantPlain produces a console code block.
	VariantPlain Variant = "plain"
)

// ParseVariant validates a variant name.
func ParseVariant(s string) (Variant, error) {
	switch v := Variant(s); v {
	case VariantHighlight, VariantPlain:
		return v, nil
	default:
		return "", fmt.Errorf("unknown variant %q (want %q or %q)", s, VariantHighlight, VariantPlain)
	}
}

// RuntimeFactory creates the runtime for one document.
type RuntimeFactory func() (repl.Runtime, error)

// Processor rewrites documents.
type Processor struct {
	newRuntime RuntimeFactory
	variant    Variant
	theme      string
	logger     *slog.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithVariant sets the produced artifact.
func WithVariant(v Variant) Option {
	return func(p *Processor) {
		p.variant = v
	}
}

// WithDefaultTheme sets the theme used when a document does not name one.
func WithDefaultTheme(name string) Option {
	return func(p *Processor) {
		if name != "" {
			p.theme = name
		}
	}
}

// WithLogger sets the processor logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewProcessor creates a processor that runs blocks in runtimes made by
// newRuntime.
func NewProcessor(newRuntime RuntimeFactory, opts ...Option) *Processor {
	p := &Processor{
		newRuntime: newRuntime,
		variant:    VariantHighlight,
		theme:      highlight.DefaultTheme,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// cellRenderer renders the session-mode blocks of one document.
type cellRenderer struct {
	engine   *repl.Engine
	variant  Variant
	renderer *highlight.Renderer
	logger   *slog.Logger
	cells    int
}

// begin prepares the rendering of one document. theme is the document's
// own theme selection, empty when it has none.
func (p *Processor) begin(theme string) (*cellRenderer, error) {
	rt, err := p.newRuntime()
	if err != nil {
		return nil, fmt.Errorf("create runtime: %w", err)
	}
	c := &cellRenderer{
		engine:  repl.NewEngine(rt, repl.WithLogger(p.logger)),
		variant: p.variant,
		logger:  p.logger,
	}
	if p.variant == VariantHighlight {
		if theme == "" {
			theme = p.theme
		}
		c.renderer, err = highlight.NewRenderer(highlight.Theme(theme, p.logger))
		if err != nil {
			return nil, err
		}
	}
	return c, nil
}

// run executes one block in the document's session.
func (c *cellRenderer) run(ctx context.Context, source string) (repl.Transcript, error) {
	c.cells++
	t, err := c.engine.Run(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("cell %d: %w", c.cells, err)
	}
	c.logger.Debug("rendered cell", "cell", c.cells, "lines", len(t))
	return t, nil
}

// fragment renders a transcript for the highlight variant, without the
// surrounding code block markup.
func (c *cellRenderer) fragment(t repl.Transcript) (string, error) {
	var sb strings.Builder
	if err := c.renderer.Render(&sb, t); err != nil {
		return "", err
	}
	return sb.String(), nil
}
