package starlark

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/leapstack-labs/replmode/internal/macro"
	"github.com/leapstack-labs/replmode/internal/repl"
	"go.starlark.net/lib/json"
	"go.starlark.net/lib/math"
	"go.starlark.net/lib/time"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
	"go.starlark.net/syntax"
)

// ErrNotFound is returned when a module name is not known to the session.
var ErrNotFound = errors.New("module not found")

// LastResult is the global bound to the most recently displayed value.
const LastResult = "_"

// stdModules are loadable by name in every session.
var stdModules = map[string]*starlarkstruct.Module{
	"json": json.Module,
	"math": math.Module,
	"time": time.Module,
}

// StdModules returns the names of the modules every session can load.
func StdModules() []string {
	names := make([]string, 0, len(stdModules))
	for name := range stdModules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Session is one persistent console namespace. It is not safe for
// concurrent use; independent sessions share nothing.
type Session struct {
	name    string
	opts    *syntax.FileOptions
	globals starlark.StringDict
	modules map[string]starlark.StringDict
	sink    OutputSink
	logger  *slog.Logger
}

var _ repl.Runtime = (*Session)(nil)

// Option configures a Session.
type Option func(*sessionConfig)

type sessionConfig struct {
	name     string
	logger   *slog.Logger
	globals  starlark.StringDict
	registry *macro.Registry
	preload  []string
}

// WithName sets the file name used in diagnostics.
func WithName(name string) Option {
	return func(c *sessionConfig) {
		c.name = name
	}
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *sessionConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithGlobals seeds the namespace with extra values.
func WithGlobals(globals starlark.StringDict) Option {
	return func(c *sessionConfig) {
		for k, v := range globals {
			c.globals[k] = v
		}
	}
}

// WithMacroRegistry makes helper modules available, both bound by
// namespace and loadable as "<namespace>.star".
func WithMacroRegistry(registry *macro.Registry) Option {
	return func(c *sessionConfig) {
		c.registry = registry
	}
}

// WithPreload binds the named standard modules before the first turn.
func WithPreload(names ...string) Option {
	return func(c *sessionConfig) {
		c.preload = append(c.preload, names...)
	}
}

// NewSession creates a session with a fresh namespace.
func NewSession(opts ...Option) (*Session, error) {
	cfg := &sessionConfig{
		name:    DefaultFilename,
		logger:  slog.New(slog.DiscardHandler),
		globals: make(starlark.StringDict),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	s := &Session{
		name: cfg.name,
		opts: fileOptions(),
		globals: starlark.StringDict{
			"struct": starlark.NewBuiltin("struct", starlarkstruct.Make),
		},
		modules: make(map[string]starlark.StringDict, len(stdModules)),
		logger:  cfg.logger,
	}

	for name, mod := range stdModules {
		members := make(starlark.StringDict, len(mod.Members)+1)
		for k, v := range mod.Members {
			members[k] = v
		}
		members[name] = mod
		s.modules[name] = members
	}

	if cfg.registry != nil {
		for _, ns := range cfg.registry.Namespaces() {
			m := cfg.registry.Get(ns)
			s.modules[m.LoadName()] = m.Exports
		}
		for name, v := range cfg.registry.ToStarlarkDict() {
			s.globals[name] = v
		}
	}

	for _, name := range cfg.preload {
		mod, ok := stdModules[name]
		if !ok {
			return nil, fmt.Errorf("preload %q: %w", name, ErrNotFound)
		}
		s.globals[name] = mod
	}

	for k, v := range cfg.globals {
		s.globals[k] = v
	}
	return s, nil
}

// Globals returns the session namespace. Callers must not modify it while
// a turn runs.
func (s *Session) Globals() starlark.StringDict {
	return s.globals
}

// Probe classifies source with the session's dialect options.
func (s *Session) Probe(source string) repl.Verdict {
	_, v := parseChunk(s.opts, s.name, source)
	return v
}

// Execute runs one turn. The turn is parsed with a trailing blank line so
// that open compound statements are closed the way a console closes them.
func (s *Session) Execute(ctx context.Context, turn repl.Turn) (repl.Outcome, error) {
	lines := append(turn.Lines[:len(turn.Lines):len(turn.Lines)], "")
	f, v := parseChunk(s.opts, s.name, strings.Join(lines, "\n"))
	switch v.Status {
	case repl.StatusInvalid:
		return repl.Outcome{Status: repl.StatusInvalid, Diagnostic: v.Diagnostic}, nil
	case repl.StatusIncomplete:
		return repl.Outcome{Status: repl.StatusIncomplete}, nil
	}
	if len(f.Stmts) == 0 {
		return repl.Outcome{Status: repl.StatusComplete}, nil
	}

	instrument(f.Stmts)
	hook := &displayHook{}

	stdout, stderr, err := s.sink.Capture(func(stdout, stderr io.Writer) {
		thread := s.newThread(stdout)
		stop := context.AfterFunc(ctx, func() {
			thread.Cancel(context.Cause(ctx).Error())
		})
		defer stop()

		s.globals[displayHookName] = hook.builtin()
		defer delete(s.globals, displayHookName)

		if err := starlark.ExecREPLChunk(f, thread, s.globals); err != nil {
			s.logger.Debug("turn failed", "err", err)
			_, _ = io.WriteString(stderr, formatError(err, lines))
		}
	})
	if err != nil {
		return repl.Outcome{}, fmt.Errorf("execute turn: %w", err)
	}

	if hook.last != nil {
		s.globals[LastResult] = hook.last
	}
	return repl.Outcome{
		Status:  repl.StatusComplete,
		Printed: stdout,
		Errors:  stderr,
		Results: hook.reprs,
	}, nil
}

func (s *Session) newThread(stdout io.Writer) *starlark.Thread {
	return &starlark.Thread{
		Name: s.name,
		Print: func(_ *starlark.Thread, msg string) {
			_, _ = io.WriteString(stdout, msg+"\n")
		},
		Load: s.load,
	}
}

func (s *Session) load(_ *starlark.Thread, module string) (starlark.StringDict, error) {
	if members, ok := s.modules[module]; ok {
		return members, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, module)
}
