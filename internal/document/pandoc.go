package document

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/leapstack-labs/replmode/internal/highlight"
)

// Pandoc JSON AST nodes are decoded generically: every element is an
// object with a "t" tag and an optional "c" payload.
type node = map[string]any

// cellLocators find the source of a session-mode cell in its children:
// a cell-code Div holding a CodeBlock, or a cell-code CodeBlock directly.
var cellLocators = []Locator[node]{
	LocatorFunc[node](nestedCellCode),
	LocatorFunc[node](directCellCode),
}

func nestedCellCode(child node) (string, bool) {
	if tag(child) != "Div" || !hasClass(child, "cell-code") {
		return "", false
	}
	for _, b := range divBlocks(child) {
		if n, ok := b.(node); ok && tag(n) == "CodeBlock" {
			return codeText(n)
		}
	}
	return "", false
}

func directCellCode(child node) (string, bool) {
	if tag(child) != "CodeBlock" || !hasClass(child, "cell-code") {
		return "", false
	}
	return codeText(child)
}

// FilterPandoc reads a Pandoc JSON document from r, replaces every
// session-mode cell and writes the document to w.
func (p *Processor) FilterPandoc(ctx context.Context, r io.Reader, w io.Writer) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return &FilterError{Stage: "decode", Err: err}
	}
	blocks, ok := doc["blocks"].([]any)
	if !ok {
		return &FilterError{Stage: "decode", Err: fmt.Errorf("document has no block list")}
	}

	c, err := p.begin(metaTheme(doc["meta"]))
	if err != nil {
		return err
	}
	f := &pandocFilter{ctx: ctx, cells: c}
	if doc["blocks"], err = f.walk(blocks); err != nil {
		return err
	}
	p.logger.Info("filtered document", "cells", c.cells)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return &FilterError{Stage: "encode", Err: err}
	}
	return nil
}

type pandocFilter struct {
	ctx   context.Context
	cells *cellRenderer
}

// walk visits every element under v in document order and replaces the
// session-mode cells it finds.
func (f *pandocFilter) walk(v any) (any, error) {
	switch x := v.(type) {
	case []any:
		for i := range x {
			nv, err := f.walk(x[i])
			if err != nil {
				return nil, err
			}
			x[i] = nv
		}
		return x, nil
	case node:
		if _, ok := x["t"].(string); !ok {
			return x, nil
		}
		if isSessionCell(x) {
			for _, b := range divBlocks(x) {
				child, ok := b.(node)
				if !ok {
					continue
				}
				if src, ok := firstMatch(child, cellLocators...); ok {
					return f.replace(src)
				}
			}
			return x, nil
		}
		if c, ok := x["c"]; ok {
			nc, err := f.walk(c)
			if err != nil {
				return nil, err
			}
			x["c"] = nc
		}
		return x, nil
	default:
		return v, nil
	}
}

func (f *pandocFilter) replace(source string) (any, error) {
	t, err := f.cells.run(f.ctx, source)
	if err != nil {
		return nil, err
	}
	if f.cells.variant == VariantPlain {
		return node{
			"t": "CodeBlock",
			"c": []any{attrs("pycon"), t.String()},
		}, nil
	}
	frag, err := f.cells.fragment(t)
	if err != nil {
		return nil, err
	}
	return node{
		"t": "RawBlock",
		"c": []any{"html", highlight.WrapHTML(frag)},
	}, nil
}

// isSessionCell reports whether n is a Div with class cell and
// repl-mode="true".
func isSessionCell(n node) bool {
	if tag(n) != "Div" || !hasClass(n, "cell") {
		return false
	}
	for _, kv := range attrPairs(n) {
		if kv[0] == "repl-mode" {
			return kv[1] == "true"
		}
	}
	return false
}

func tag(n node) string {
	t, _ := n["t"].(string)
	return t
}

// attr returns the Attr triple [id, classes, key-values] of a Div or
// CodeBlock.
func attr(n node) []any {
	c, ok := n["c"].([]any)
	if !ok || len(c) == 0 {
		return nil
	}
	a, _ := c[0].([]any)
	if len(a) != 3 {
		return nil
	}
	return a
}

func hasClass(n node, class string) bool {
	a := attr(n)
	if a == nil {
		return false
	}
	classes, _ := a[1].([]any)
	for _, c := range classes {
		if c == class {
			return true
		}
	}
	return false
}

func attrPairs(n node) [][2]string {
	a := attr(n)
	if a == nil {
		return nil
	}
	raw, _ := a[2].([]any)
	pairs := make([][2]string, 0, len(raw))
	for _, r := range raw {
		kv, ok := r.([]any)
		if !ok || len(kv) != 2 {
			continue
		}
		k, _ := kv[0].(string)
		v, _ := kv[1].(string)
		pairs = append(pairs, [2]string{k, v})
	}
	return pairs
}

func divBlocks(n node) []any {
	c, ok := n["c"].([]any)
	if !ok || len(c) < 2 {
		return nil
	}
	blocks, _ := c[1].([]any)
	return blocks
}

func codeText(n node) (string, bool) {
	c, ok := n["c"].([]any)
	if !ok || len(c) < 2 {
		return "", false
	}
	s, ok := c[1].(string)
	return s, ok
}

func attrs(classes ...string) []any {
	cs := make([]any, len(classes))
	for i, c := range classes {
		cs[i] = c
	}
	return []any{"", cs, []any{}}
}

// metaTheme reads the theme from document metadata. Only string values
// count; anything else selects the default.
func metaTheme(meta any) string {
	m, ok := meta.(node)
	if !ok {
		return ""
	}
	v, ok := m[ThemeKey].(node)
	if !ok {
		return ""
	}
	switch tag(v) {
	case "MetaString":
		s, _ := v["c"].(string)
		return strings.TrimSpace(s)
	case "MetaInlines":
		inlines, _ := v["c"].([]any)
		return strings.TrimSpace(stringify(inlines))
	default:
		return ""
	}
}

// stringify flattens inline elements to their text.
func stringify(inlines []any) string {
	var sb strings.Builder
	for _, in := range inlines {
		n, ok := in.(node)
		if !ok {
			continue
		}
		switch tag(n) {
		case "Str":
			s, _ := n["c"].(string)
			sb.WriteString(s)
		case "Space", "SoftBreak", "LineBreak":
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}

// FilterError reports a document that cannot be processed.
type FilterError struct {
	Stage string
	Err   error
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("pandoc filter %s: %v", e.Stage, e.Err)
}

func (e *FilterError) Unwrap() error {
	return e.Err
}
