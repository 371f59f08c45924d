package starlark

import (
	"errors"
	"fmt"
	"strings"

	"go.starlark.net/resolve"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// syntaxDiagnostic renders a parse failure the way an interactive console
// does: location, offending line, caret, message.
func syntaxDiagnostic(lines []string, pos syntax.Position, msg string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "  File %q, line %d\n", pos.Filename(), pos.Line)
	if i := int(pos.Line) - 1; i >= 0 && i < len(lines) {
		src := lines[i]
		trimmed := strings.TrimLeft(src, " \t")
		col := int(pos.Col) - 1 - (len(src) - len(trimmed))
		if col < 0 {
			col = 0
		}
		if col > len(trimmed) {
			col = len(trimmed)
		}
		fmt.Fprintf(&sb, "    %s\n", trimmed)
		fmt.Fprintf(&sb, "    %s^\n", strings.Repeat(" ", col))
	}
	sb.WriteString("SyntaxError: " + msg)
	return sb.String()
}

// formatError renders an error returned while running a chunk.
// Unbound names become NameErrors, other resolve failures SyntaxErrors,
// and evaluation failures a traceback of the Starlark call stack.
func formatError(err error, lines []string) string {
	var (
		list    resolve.ErrorList
		evalErr *starlark.EvalError
	)
	switch {
	case errors.As(err, &list):
		parts := make([]string, 0, len(list))
		for _, e := range list {
			parts = append(parts, resolveDiagnostic(e, lines))
		}
		return strings.Join(parts, "\n")
	case errors.As(err, &evalErr):
		return traceback(evalErr)
	default:
		return "Error: " + err.Error()
	}
}

func resolveDiagnostic(e resolve.Error, lines []string) string {
	if strings.HasPrefix(e.Msg, "undefined:") {
		return fmt.Sprintf("Traceback (most recent call last):\n  File %q, line %d, in <module>\nNameError: %s",
			e.Pos.Filename(), e.Pos.Line, e.Msg)
	}
	return syntaxDiagnostic(lines, e.Pos, e.Msg)
}

func traceback(e *starlark.EvalError) string {
	var sb strings.Builder
	sb.WriteString("Traceback (most recent call last):\n")
	for _, fr := range e.CallStack {
		if !fr.Pos.IsValid() {
			continue
		}
		name := fr.Name
		if name == "<toplevel>" {
			name = "<module>"
		}
		fmt.Fprintf(&sb, "  File %q, line %d, in %s\n", fr.Pos.Filename(), fr.Pos.Line, name)
	}
	sb.WriteString("Error: " + e.Msg)
	return sb.String()
}
