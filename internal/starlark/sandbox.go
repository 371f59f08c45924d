package starlark

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// ErrSinkBusy is returned when an OutputSink is acquired while another
// capture is still running.
var ErrSinkBusy = errors.New("output sink already acquired")

// OutputSink captures what a running chunk prints. It is held by at most
// one capture at a time; a nested or concurrent acquisition fails instead
// of waiting.
type OutputSink struct {
	busy atomic.Bool
}

// Capture runs fn with fresh stdout and stderr buffers and returns their
// contents. The sink is released on every exit path. A panic raised by fn
// is recovered and reported on stderr.
func (s *OutputSink) Capture(fn func(stdout, stderr io.Writer)) (stdout, stderr string, err error) {
	if !s.busy.CompareAndSwap(false, true) {
		return "", "", ErrSinkBusy
	}
	defer s.busy.Store(false)

	var out, errOut strings.Builder
	func() {
		defer func() {
			if r := recover(); r != nil {
				fmt.Fprintf(&errOut, "Traceback (most recent call last):\nError: panic: %v", r)
			}
		}()
		fn(&out, &errOut)
	}()
	return out.String(), errOut.String(), nil
}

// Busy reports whether a capture is running.
func (s *OutputSink) Busy() bool {
	return s.busy.Load()
}

// displayHookName is the global the display hook is bound to while a
// chunk runs.
const displayHookName = "__displayhook__"

// displayHook records the repr of every non-None expression statement.
type displayHook struct {
	reprs []string
	last  starlark.Value
}

func (h *displayHook) builtin() *starlark.Builtin {
	return starlark.NewBuiltin(displayHookName, func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var v starlark.Value
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &v); err != nil {
			return nil, err
		}
		if v != starlark.None {
			h.reprs = append(h.reprs, v.String())
			h.last = v
		}
		return starlark.None, nil
	})
}

// instrument routes every expression statement of stmts through the
// display hook, descending into if, for and while bodies but not into
// function definitions.
func instrument(stmts []syntax.Stmt) {
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *syntax.ExprStmt:
			start, end := s.X.Span()
			s.X = &syntax.CallExpr{
				Fn:     &syntax.Ident{NamePos: start, Name: displayHookName},
				Lparen: start,
				Args:   []syntax.Expr{s.X},
				Rparen: end,
			}
		case *syntax.IfStmt:
			instrument(s.True)
			instrument(s.False)
		case *syntax.ForStmt:
			instrument(s.Body)
		case *syntax.WhileStmt:
			instrument(s.Body)
		}
	}
}
