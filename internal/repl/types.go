// Package repl turns source text into the transcript of an interactive
// read-eval-print session.
//
// Source is split into turns by Segment, each turn is run by an Executor
// that owns the persistent namespace, and Build lays out the echoed
// source, printed output, diagnostics and results of every turn.
package repl

import (
	"context"
	"strings"
)

// Prompt markers echoed in front of source lines.
const (
	PrimaryPrompt      = ">>> "
	ContinuationPrompt = "... "
)

// Status is the verdict of the parse probe on a prefix of source.
type Status int

const (
	// StatusComplete means the prefix forms a whole statement.
	StatusComplete Status = iota
	// StatusInvalid means no continuation can make the prefix valid.
	StatusInvalid
	// StatusIncomplete means the prefix needs more lines.
	StatusIncomplete
)

func (s Status) String() string {
	switch s {
	case StatusComplete:
		return "complete"
	case StatusInvalid:
		return "invalid"
	case StatusIncomplete:
		return "incomplete"
	default:
		return "unknown"
	}
}

// Verdict is what a Prober reports for a source prefix.
// Diagnostic is set only for StatusInvalid.
type Verdict struct {
	Status     Status
	Diagnostic string
}

// Prober classifies a source prefix without running it.
type Prober interface {
	Probe(source string) Verdict
}

// ProberFunc adapts a plain function to the Prober interface.
type ProberFunc func(source string) Verdict

// Probe implements Prober.
func (f ProberFunc) Probe(source string) Verdict {
	return f(source)
}

// FlushReason records why the segmenter closed a turn.
type FlushReason int

const (
	// FlushComplete closes a turn the probe accepted.
	FlushComplete FlushReason = iota
	// FlushInvalid closes a turn the probe rejected.
	FlushInvalid
	// FlushDangling closes a buffer that was still open when an
	// unindented line arrived.
	FlushDangling
	// FlushTrailing closes whatever is left at end of input.
	FlushTrailing
)

func (r FlushReason) String() string {
	switch r {
	case FlushComplete:
		return "complete"
	case FlushInvalid:
		return "invalid"
	case FlushDangling:
		return "dangling"
	case FlushTrailing:
		return "trailing"
	default:
		return "unknown"
	}
}

// Turn is one group of source lines submitted together.
type Turn struct {
	Lines  []string
	Reason FlushReason
}

// Source joins the turn's lines.
func (t Turn) Source() string {
	return strings.Join(t.Lines, "\n")
}

// Outcome is the result of executing one turn.
// Results is non-empty only when Status is StatusComplete.
type Outcome struct {
	Status     Status
	Diagnostic string
	Printed    string
	Errors     string
	Results    []string
}

// Executor runs turns against a persistent namespace. Failures of the
// executed code are reported in the Outcome; the error is reserved for
// problems with the executor itself.
type Executor interface {
	Execute(ctx context.Context, turn Turn) (Outcome, error)
}

// Runtime is an Executor that can also probe source, which is all the
// Engine needs from a language session.
type Runtime interface {
	Prober
	Executor
}
