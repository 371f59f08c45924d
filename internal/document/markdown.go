package document

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/leapstack-labs/replmode/internal/highlight"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"
)

// fence is a located session-mode fenced code block: the byte range it
// occupies in the document body and its source.
type fence struct {
	start, end int
	source     string
	// first and rest are the container markers (blockquote ">", list
	// indentation) in front of the opening line and the lines after it.
	first, rest string
}

// fenceLocator matches fenced code blocks whose language is "repl" or
// whose info string sets repl-mode=true.
func fenceLocator(body []byte) Locator[*ast.FencedCodeBlock] {
	return LocatorFunc[*ast.FencedCodeBlock](func(n *ast.FencedCodeBlock) (string, bool) {
		if n.Info == nil || !isSessionFence(string(n.Info.Segment.Value(body))) {
			return "", false
		}
		var sb strings.Builder
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			sb.Write(seg.Value(body))
		}
		return sb.String(), true
	})
}

// isSessionFence inspects a fence info string such as "repl",
// "{python repl-mode=true}" or "python repl-mode=\"true\"".
func isSessionFence(info string) bool {
	fields := strings.Fields(strings.NewReplacer("{", " ", "}", " ").Replace(info))
	if len(fields) == 0 {
		return false
	}
	if strings.TrimPrefix(fields[0], ".") == "repl" {
		return true
	}
	for _, f := range fields[1:] {
		k, v, ok := strings.Cut(f, "=")
		if ok && k == "repl-mode" && strings.Trim(v, `"'`) == "true" {
			return true
		}
	}
	return false
}

// RenderMarkdown replaces every session-mode fenced code block of src
// with its transcript and leaves everything else byte for byte intact.
// The theme comes from the YAML front matter key repl-highlight-style.
func (p *Processor) RenderMarkdown(ctx context.Context, src []byte) ([]byte, error) {
	meta, offset, err := frontMatter(src)
	if err != nil {
		return nil, err
	}
	body := src[offset:]

	fences := locateFences(body)
	if len(fences) == 0 {
		return src, nil
	}

	c, err := p.begin(themeFromFrontMatter(meta))
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	out.Grow(len(src))
	out.Write(src[:offset])
	last := 0
	for _, f := range fences {
		out.Write(body[last:f.start])
		t, err := c.run(ctx, f.source)
		if err != nil {
			return nil, err
		}
		var block string
		if c.variant == VariantPlain {
			block = fmt.Sprintf("```pycon\n%s\n```\n", t.String())
		} else {
			frag, err := c.fragment(t)
			if err != nil {
				return nil, err
			}
			// A leading pre element keeps the HTML block open across blank
			// lines in program output.
			block = highlight.WrapPre(frag) + "\n"
		}
		writeContained(&out, block, f.first, f.rest)
		last = f.end
	}
	out.Write(body[last:])
	p.logger.Info("rendered markdown", "cells", c.cells)
	return out.Bytes(), nil
}

// locateFences parses body and returns its session-mode fences in order.
func locateFences(body []byte) []fence {
	doc := goldmark.New().Parser().Parse(text.NewReader(body))
	loc := fenceLocator(body)

	var fences []fence
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fcb, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		src, ok := loc.Locate(fcb)
		if !ok {
			return ast.WalkSkipChildren, nil
		}
		f := fenceBounds(body, fcb)
		f.source = src
		fences = append(fences, f)
		return ast.WalkSkipChildren, nil
	})
	return fences
}

// fenceBounds returns the byte range from the start of the opening fence
// line to the end of the closing fence line, along with the container
// markers the fence is nested in.
func fenceBounds(body []byte, n *ast.FencedCodeBlock) fence {
	start := lineStart(body, n.Info.Segment.Start)
	opening := body[start:n.Info.Segment.Start]
	var first string
	if i := bytes.IndexAny(opening, "`~"); i > 0 {
		first = string(opening[:i])
	}

	pos := lineEnd(body, n.Info.Segment.Stop)
	if lines := n.Lines(); lines.Len() > 0 {
		pos = lines.At(lines.Len() - 1).Stop
		if pos > 0 && body[pos-1] != '\n' {
			pos = lineEnd(body, pos)
		}
	}

	closing := strings.TrimLeft(string(body[pos:lineEnd(body, pos)]), " \t>")
	if strings.HasPrefix(closing, "```") || strings.HasPrefix(closing, "~~~") {
		pos = lineEnd(body, pos)
	}
	return fence{start: start, end: pos, first: first, rest: continuation(first)}
}

// continuation turns the markers of an opening line into those of the
// lines that follow it: blockquote markers stay, list markers become
// indentation.
func continuation(prefix string) string {
	b := []byte(prefix)
	for i, c := range b {
		if c != '>' && c != ' ' && c != '\t' {
			b[i] = ' '
		}
	}
	return string(b)
}

// writeContained writes block with first in front of its first line and
// rest in front of every other line. Blank lines keep only the markers.
func writeContained(out *bytes.Buffer, block, first, rest string) {
	prefix := first
	for _, line := range strings.SplitAfter(block, "\n") {
		if line == "" {
			break
		}
		if line == "\n" {
			out.WriteString(strings.TrimRight(prefix, " \t"))
		} else {
			out.WriteString(prefix)
		}
		out.WriteString(line)
		prefix = rest
	}
}

func lineStart(b []byte, i int) int {
	return bytes.LastIndexByte(b[:i], '\n') + 1
}

// lineEnd returns the index just past the newline ending the line that
// contains i, or len(b).
func lineEnd(b []byte, i int) int {
	if j := bytes.IndexByte(b[i:], '\n'); j >= 0 {
		return i + j + 1
	}
	return len(b)
}

// frontMatter splits off a leading YAML front matter block. It returns the
// decoded mapping and the offset where the body starts.
func frontMatter(src []byte) (map[string]any, int, error) {
	if !bytes.HasPrefix(src, []byte("---\n")) && !bytes.HasPrefix(src, []byte("---\r\n")) {
		return nil, 0, nil
	}
	first := lineEnd(src, 0)
	for i := first; i < len(src); {
		next := lineEnd(src, i)
		line := strings.TrimRight(string(src[i:next]), "\r\n")
		if line == "---" || line == "..." {
			var meta map[string]any
			if err := yaml.Unmarshal(src[first:i], &meta); err != nil {
				return nil, 0, fmt.Errorf("parse front matter: %w", err)
			}
			return meta, next, nil
		}
		i = next
	}
	return nil, 0, nil
}

func themeFromFrontMatter(meta map[string]any) string {
	s, _ := meta[ThemeKey].(string)
	return strings.TrimSpace(s)
}
