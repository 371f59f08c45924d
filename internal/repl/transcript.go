package repl

import "strings"

// ResultMarker prefixes result lines in Transcript.Marked output.
const ResultMarker = "\x00REPR\x00"

// LineKind tags a transcript line.
type LineKind int

const (
	// PrimaryEcho is the first source line of a turn.
	PrimaryEcho LineKind = iota
	// ContinuationEcho is any later source line of a turn.
	ContinuationEcho
	// BodyText is printed output or error text.
	BodyText
	// ResultText is the representation of a displayed value.
	ResultText
)

func (k LineKind) String() string {
	switch k {
	case PrimaryEcho:
		return "primary"
	case ContinuationEcho:
		return "continuation"
	case BodyText:
		return "body"
	case ResultText:
		return "result"
	default:
		return "unknown"
	}
}

// Stream says where body text came from.
type Stream int

const (
	StreamStdout Stream = iota
	StreamStderr
	StreamDiagnostic
)

// Line is one entry of a transcript. Text never carries a prompt; body
// text may span several physical lines.
type Line struct {
	Kind   LineKind
	Text   string
	Stream Stream
}

// Transcript is the ordered record of a session.
type Transcript []Line

// Build lays out one executed turn: its echoed source, then printed
// output, then error text or the diagnostic, then every result.
func Build(turn Turn, out Outcome) Transcript {
	t := make(Transcript, 0, len(turn.Lines)+2+len(out.Results))
	for i, line := range turn.Lines {
		kind := ContinuationEcho
		if i == 0 {
			kind = PrimaryEcho
		}
		t = append(t, Line{Kind: kind, Text: line})
	}

	t = t.body(out.Printed, StreamStdout)
	if out.Status == StatusInvalid {
		t = t.body(out.Diagnostic, StreamDiagnostic)
		return t
	}
	t = t.body(out.Errors, StreamStderr)

	if out.Status != StatusComplete {
		return t
	}
	for _, r := range out.Results {
		t = append(t, Line{Kind: ResultText, Text: r})
	}
	return t
}

func (t Transcript) body(text string, stream Stream) Transcript {
	text = strings.TrimRight(text, " \t\r\n")
	if text == "" {
		return t
	}
	return append(t, Line{Kind: BodyText, Text: text, Stream: stream})
}

// String renders the transcript as plain console text.
func (t Transcript) String() string {
	return t.render("")
}

// Marked renders the transcript like String, with ResultMarker in front
// of every result line.
func (t Transcript) Marked() string {
	return t.render(ResultMarker)
}

func (t Transcript) render(marker string) string {
	var sb strings.Builder
	for i, l := range t {
		if i > 0 {
			sb.WriteByte('\n')
		}
		switch l.Kind {
		case PrimaryEcho:
			sb.WriteString(PrimaryPrompt)
		case ContinuationEcho:
			sb.WriteString(ContinuationPrompt)
		case ResultText:
			sb.WriteString(marker)
		}
		sb.WriteString(l.Text)
	}
	return sb.String()
}

// Results returns the text of every result line.
func (t Transcript) Results() []string {
	var out []string
	for _, l := range t {
		if l.Kind == ResultText {
			out = append(out, l.Text)
		}
	}
	return out
}
