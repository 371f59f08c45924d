package repl_test

import (
	"strings"
	"testing"

	"github.com/leapstack-labs/replmode/internal/repl"
	"github.com/leapstack-labs/replmode/internal/starlark"
	"github.com/stretchr/testify/assert"
)

func TestSegment(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		want    [][]string
		reasons []repl.FlushReason
	}{
		{
			name:    "single statement",
			source:  "x = 42",
			want:    [][]string{{"x = 42"}},
			reasons: []repl.FlushReason{repl.FlushComplete},
		},
		{
			name:    "statement per line",
			source:  "x = 10\nx\nx * 2",
			want:    [][]string{{"x = 10"}, {"x"}, {"x * 2"}},
			reasons: []repl.FlushReason{repl.FlushComplete, repl.FlushComplete, repl.FlushComplete},
		},
		{
			name:    "function then call",
			source:  "def f():\n    return 1\nf()",
			want:    [][]string{{"def f():", "    return 1"}, {"f()"}},
			reasons: []repl.FlushReason{repl.FlushDangling, repl.FlushComplete},
		},
		{
			name:    "if elif else is one turn",
			source:  "if x > 0:\n    a = 1\nelif x < 0:\n    a = 2\nelse:\n    a = 3",
			want:    [][]string{{"if x > 0:", "    a = 1", "elif x < 0:", "    a = 2", "else:", "    a = 3"}},
			reasons: []repl.FlushReason{repl.FlushTrailing},
		},
		{
			name:   "loop then statement",
			source: "for i in range(2):\n    i\nprint(\"done\")",
			want:   [][]string{{"for i in range(2):", "    i"}, {`print("done")`}},
		},
		{
			name:   "triple quoted literal spans lines",
			source: "s = \"\"\"\nhello\n\"\"\"\ns",
			want:   [][]string{{`s = """`, "hello", `"""`}, {"s"}},
		},
		{
			name:   "single quoted triple literal spans an unindented line",
			source: "t = '''x\ny\n'''\nt",
			want:   [][]string{{"t = '''x", "y", "'''"}, {"t"}},
		},
		{
			name:    "blank line is its own turn",
			source:  "x = 1\n\ny = 2",
			want:    [][]string{{"x = 1"}, {""}, {"y = 2"}},
			reasons: []repl.FlushReason{repl.FlushComplete, repl.FlushComplete, repl.FlushComplete},
		},
		{
			name:   "blank line closes a block",
			source: "def f():\n    return 1\n\nf()",
			want:   [][]string{{"def f():", "    return 1", ""}, {"f()"}},
		},
		{
			name:    "invalid line is flushed alone",
			source:  "def\nx = 1",
			want:    [][]string{{"def"}, {"x = 1"}},
			reasons: []repl.FlushReason{repl.FlushInvalid, repl.FlushComplete},
		},
		{
			name:   "crlf line endings",
			source: "x = 1\r\nx\r\n",
			want:   [][]string{{"x = 1"}, {"x"}},
		},
		{
			name:   "surrounding whitespace is trimmed",
			source: "\n\n  x = 1\n\n",
			want:   [][]string{{"x = 1"}},
		},
		{
			name:   "empty source",
			source: " \n\t\n",
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			turns := repl.Segment(tt.source, repl.ProberFunc(starlark.Probe))

			var got [][]string
			var reasons []repl.FlushReason
			for _, turn := range turns {
				got = append(got, turn.Lines)
				reasons = append(reasons, turn.Reason)
			}
			assert.Equal(t, tt.want, got)
			if tt.reasons != nil {
				assert.Equal(t, tt.reasons, reasons)
			}
		})
	}
}

func TestSegment_ContinuationKeywordsSkipDanglingCheck(t *testing.T) {
	var probed []string
	p := repl.ProberFunc(func(source string) repl.Verdict {
		probed = append(probed, source)
		return starlark.Probe(source)
	})

	turns := repl.Segment("if x:\n    a = 1\nelse:\n    a = 2", p)
	assert.Len(t, turns, 1)
	assert.NotContains(t, probed[2:], "if x:\n    a = 1", "else must not trigger a probe of the bare buffer")
}

// strictLiteralProber reports an unterminated triple-quoted literal as
// invalid, the way CPython's compiler does, and classifies everything else
// with starlark.Probe.
func strictLiteralProber(source string) repl.Verdict {
	if strings.Count(source, `"""`)%2 == 1 || strings.Count(source, `'''`)%2 == 1 {
		return repl.Verdict{Status: repl.StatusInvalid, Diagnostic: "SyntaxError: unterminated triple-quoted string literal"}
	}
	return starlark.Probe(source)
}

func TestSegment_InvalidWhileLiteralOpen(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		want    [][]string
		reasons []repl.FlushReason
	}{
		{
			name:    "double quoted literal",
			source:  "s = \"\"\"a\nb\nc\"\"\"\ns",
			want:    [][]string{{`s = """a`, "b", `c"""`}, {"s"}},
			reasons: []repl.FlushReason{repl.FlushComplete, repl.FlushComplete},
		},
		{
			name:    "single quoted literal across unindented line",
			source:  "x = '''a\nb\n'''\nx",
			want:    [][]string{{"x = '''a", "b", "'''"}, {"x"}},
			reasons: []repl.FlushReason{repl.FlushComplete, repl.FlushComplete},
		},
		{
			name:    "literal inside a function body",
			source:  "def f():\n    return '''a\nb'''\nf()",
			want:    [][]string{{"def f():", "    return '''a", "b'''"}, {"f()"}},
			reasons: []repl.FlushReason{repl.FlushDangling, repl.FlushComplete},
		},
		{
			name:    "closed literal then a bad line",
			source:  "s = \"\"\"a\"\"\"\ndef",
			want:    [][]string{{`s = """a"""`}, {"def"}},
			reasons: []repl.FlushReason{repl.FlushComplete, repl.FlushInvalid},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			turns := repl.Segment(tt.source, repl.ProberFunc(strictLiteralProber))

			var got [][]string
			var reasons []repl.FlushReason
			for _, turn := range turns {
				got = append(got, turn.Lines)
				reasons = append(reasons, turn.Reason)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.reasons, reasons)
		})
	}
}
