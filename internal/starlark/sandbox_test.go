package starlark

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/syntax"
)

func TestOutputSink_Capture(t *testing.T) {
	var sink OutputSink

	stdout, stderr, err := sink.Capture(func(out, errOut io.Writer) {
		_, _ = io.WriteString(out, "printed\n")
		_, _ = io.WriteString(errOut, "failed\n")
		assert.True(t, sink.Busy())

		_, _, nested := sink.Capture(func(_, _ io.Writer) {
			t.Error("nested capture must not run")
		})
		assert.ErrorIs(t, nested, ErrSinkBusy)
	})
	require.NoError(t, err)
	assert.Equal(t, "printed\n", stdout)
	assert.Equal(t, "failed\n", stderr)
	assert.False(t, sink.Busy())
}

func TestOutputSink_ReleasesAfterPanic(t *testing.T) {
	var sink OutputSink

	stdout, stderr, err := sink.Capture(func(out, _ io.Writer) {
		_, _ = io.WriteString(out, "before")
		panic("boom")
	})
	require.NoError(t, err)
	assert.Equal(t, "before", stdout)
	assert.Contains(t, stderr, "Error: panic: boom")
	assert.False(t, sink.Busy())

	_, _, err = sink.Capture(func(_, _ io.Writer) {})
	assert.NoError(t, err)
}

func TestInstrument(t *testing.T) {
	src := "x\nif x:\n    y\nelif z:\n    w\nfor i in x:\n    i\ndef f():\n    v\n"
	f, err := fileOptions().Parse("test.star", src, 0)
	require.NoError(t, err)

	instrument(f.Stmts)

	var hooked []string
	syntax.Walk(f, func(n syntax.Node) bool {
		call, ok := n.(*syntax.CallExpr)
		if !ok {
			return true
		}
		if fn, ok := call.Fn.(*syntax.Ident); ok && fn.Name == displayHookName {
			hooked = append(hooked, call.Args[0].(*syntax.Ident).Name)
		}
		return true
	})
	assert.Equal(t, []string{"x", "y", "w", "i"}, hooked)
}
