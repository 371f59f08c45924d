package repl

import "strings"

// continuationKeywords open clauses that extend the preceding compound
// statement instead of starting a new one.
var continuationKeywords = map[string]bool{
	"else":    true,
	"elif":    true,
	"except":  true,
	"finally": true,
	"case":    true,
}

// Segment splits source into turns, the way an interactive console would
// group the lines if they were typed one by one.
//
// Each line is appended to a pending buffer which is probed after every
// append. A complete buffer is flushed unless the next line continues it
// (else, elif, ...). An invalid buffer is flushed with its diagnostic left
// for the executor to report, except while a triple-quoted literal is
// still open. A still-open buffer is also flushed when an unindented line
// arrives that cannot continue it.
func Segment(source string, p Prober) []Turn {
	source = strings.TrimSpace(strings.ReplaceAll(source, "\r\n", "\n"))
	if source == "" {
		return nil
	}
	lines := strings.Split(source, "\n")

	var (
		turns  []Turn
		buffer []string
	)
	flush := func(reason FlushReason) {
		turns = append(turns, Turn{Lines: buffer, Reason: reason})
		buffer = nil
	}

	for i, line := range lines {
		if len(buffer) > 0 && startsStatement(line) {
			v := p.Probe(strings.Join(buffer, "\n"))
			if v.Status == StatusIncomplete && !openTripleQuote(buffer) {
				flush(FlushDangling)
			}
		}

		buffer = append(buffer, line)
		v := p.Probe(strings.Join(buffer, "\n"))

		switch v.Status {
		case StatusInvalid:
			if openTripleQuote(buffer) {
				continue
			}
			flush(FlushInvalid)
		case StatusComplete:
			if i+1 < len(lines) && isContinuation(lines[i+1]) {
				continue
			}
			flush(FlushComplete)
		}
	}

	if len(buffer) > 0 {
		flush(FlushTrailing)
	}
	return turns
}

// startsStatement reports whether line can only begin a new statement:
// non-blank, unindented and not a continuation clause.
func startsStatement(line string) bool {
	if strings.TrimSpace(line) == "" {
		return false
	}
	if line[0] == ' ' || line[0] == '\t' {
		return false
	}
	return !isContinuation(line)
}

// isContinuation reports whether the first token of line, without a
// trailing colon, is a continuation keyword.
func isContinuation(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	return continuationKeywords[strings.TrimSuffix(fields[0], ":")]
}

// openTripleQuote reports whether the buffer holds an odd number of either
// triple-quote delimiter.
func openTripleQuote(buffer []string) bool {
	text := strings.Join(buffer, "\n")
	return strings.Count(text, `"""`)%2 == 1 || strings.Count(text, `'''`)%2 == 1
}
