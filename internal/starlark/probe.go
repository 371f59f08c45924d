package starlark

import (
	"errors"
	"strings"

	"github.com/leapstack-labs/replmode/internal/repl"
	"go.starlark.net/syntax"
)

// DefaultFilename names the source of interactive chunks in diagnostics.
const DefaultFilename = "<stdin>"

// errNeedMore is what the line reader reports once the buffered lines are
// used up. The parser turns it into a syntax.Error carrying its message.
var errNeedMore = errors.New("unexpected end of input")

// fileOptions enables the dialect features a console user expects.
func fileOptions() *syntax.FileOptions {
	return &syntax.FileOptions{
		Set:               true,
		While:             true,
		TopLevelControl:   true,
		GlobalReassign:    true,
		LoadBindsGlobally: true,
		Recursion:         true,
	}
}

// Probe reports whether source is a complete statement, the start of one,
// or invalid, using the default dialect options.
func Probe(source string) repl.Verdict {
	_, v := parseChunk(fileOptions(), DefaultFilename, source)
	return v
}

// parseChunk parses source as one console chunk: a single simple or
// compound statement. Lines after the statement that hold code make the
// chunk invalid.
func parseChunk(opts *syntax.FileOptions, filename, source string) (*syntax.File, repl.Verdict) {
	lines := strings.Split(source, "\n")
	next := 0
	readline := func() ([]byte, error) {
		if next >= len(lines) {
			return nil, errNeedMore
		}
		line := lines[next] + "\n"
		next++
		return []byte(line), nil
	}

	f, err := opts.ParseCompoundStmt(filename, readline)
	if err != nil {
		var serr syntax.Error
		if errors.As(err, &serr) {
			if serr.Msg == errNeedMore.Error() {
				return nil, repl.Verdict{Status: repl.StatusIncomplete}
			}
			return nil, invalid(lines, serr.Pos, serr.Msg)
		}
		return nil, repl.Verdict{Status: repl.StatusInvalid, Diagnostic: "SyntaxError: " + err.Error()}
	}

	last := 0
	if n := len(f.Stmts); n > 0 {
		_, end := f.Stmts[n-1].Span()
		last = int(end.Line)
	}
	for i := last; i < len(lines); i++ {
		if isCode(lines[i]) {
			pos := syntax.MakePosition(&filename, int32(i+1), 1)
			return nil, invalid(lines, pos, "multiple statements found while compiling a single statement")
		}
	}
	return f, repl.Verdict{Status: repl.StatusComplete}
}

func invalid(lines []string, pos syntax.Position, msg string) repl.Verdict {
	return repl.Verdict{
		Status:     repl.StatusInvalid,
		Diagnostic: syntaxDiagnostic(lines, pos, msg),
	}
}

// isCode reports whether line holds anything besides blanks and a comment.
func isCode(line string) bool {
	trimmed := strings.TrimSpace(line)
	return trimmed != "" && !strings.HasPrefix(trimmed, "#")
}
