package macro

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribe(t *testing.T) {
	src := `"""Text helpers."""

def shout(s, mark = "!"):
    """Upper-cases s.

    The mark is appended.
    """
    return s.upper() + mark

def join_all(*parts, sep = ", ", **opts):
    return sep.join(parts)

def offset(n, by = -1, seen = [], cfg = {}, pair = ()):
    return n + by

def _hidden():
    pass

VALUE = 1
`
	doc, err := Describe("/macros/text.star", []byte(src))
	require.NoError(t, err)

	assert.Equal(t, "text", doc.Namespace)
	require.Len(t, doc.Functions, 3)

	tests := []struct {
		signature string
		summary   string
		line      int
	}{
		{signature: `shout(s, mark="!")`, summary: "Upper-cases s.", line: 3},
		{signature: `join_all(*parts, sep=", ", **opts)`, summary: "", line: 10},
		{signature: `offset(n, by=-1, seen=[], cfg={}, pair=())`, summary: "", line: 13},
	}
	for i, tt := range tests {
		t.Run(tt.signature, func(t *testing.T) {
			fn := doc.Functions[i]
			assert.Equal(t, tt.signature, fn.Signature())
			assert.Equal(t, tt.summary, fn.Summary())
			assert.Equal(t, tt.line, fn.Line)
		})
	}
	assert.Contains(t, doc.Functions[0].Docstring, "The mark is appended.")
}

func TestDescribe_SyntaxError(t *testing.T) {
	_, err := Describe("/macros/bad.star", []byte("def bad(:\n"))

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "/macros/bad.star", loadErr.File)
}

func TestDescribeDir(t *testing.T) {
	dir := macrosDir(t, map[string]string{
		"units.star": "def km(m):\n    \"\"\"Metres to kilometres.\"\"\"\n    return m / 1000\n",
		"money.star": "def cents(d):\n    return d * 100\n",
	})

	docs, err := DescribeDir(dir)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "money", docs[0].Namespace)
	assert.Equal(t, "units", docs[1].Namespace)
	assert.Equal(t, "Metres to kilometres.", docs[1].Functions[0].Summary())
}

func TestDescribeDir_Missing(t *testing.T) {
	docs, err := DescribeDir("/nonexistent/macros")
	require.NoError(t, err)
	assert.Empty(t, docs)
}
