package repl

import (
	"context"
	"fmt"
	"log/slog"
)

// Engine segments source and runs every turn through one Runtime, so
// consecutive Run calls share the runtime's namespace.
type Engine struct {
	rt     Runtime
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an engine over rt.
func NewEngine(rt Runtime, opts ...Option) *Engine {
	e := &Engine{
		rt:     rt,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes source turn by turn and returns the session transcript.
// Failures inside a turn are part of the transcript. The returned error is
// set when ctx is done before all turns ran or the runtime itself fails;
// the transcript then holds the turns completed so far.
func (e *Engine) Run(ctx context.Context, source string) (Transcript, error) {
	turns := Segment(source, e.rt)
	e.logger.Debug("segmented source", "turns", len(turns))

	var t Transcript
	for i, turn := range turns {
		if err := ctx.Err(); err != nil {
			return t, err
		}
		out, err := e.rt.Execute(ctx, turn)
		if err != nil {
			return t, fmt.Errorf("turn %d: %w", i+1, err)
		}
		e.logger.Debug("executed turn",
			"index", i,
			"lines", len(turn.Lines),
			"flush", turn.Reason.String(),
			"status", out.Status.String(),
			"results", len(out.Results),
		)
		t = append(t, Build(turn, out)...)
	}
	return t, nil
}
