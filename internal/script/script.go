// Package script reads story scripts written in markdown. Every level two
// heading starts a passage; the passage's prose is what gets narrated.
package script

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ErrEmpty is returned for a script without any passages.
var ErrEmpty = errors.New("script has no passages")

// Passage is one screen of the story.
type Passage struct {
	Title string

	// Markdown is the passage source, heading included, for rendering.
	Markdown string

	// Narration is the plain prose read aloud. Code and HTML are skipped.
	Narration string
}

// Script is a parsed story.
type Script struct {
	Title    string
	Passages []Passage
}

// Load reads and parses the script at path. A leading ~ is expanded.
func Load(path string) (*Script, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("unable to expand %s: %w", path, err)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, fmt.Errorf("unable to read script: %w", err)
	}
	return Parse(data)
}

// Parse splits markdown source into passages.
func Parse(source []byte) (*Script, error) {
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	s := &Script{}
	var (
		cur       *Passage
		curStart  int
		narration []string
	)

	flush := func(end int) {
		if cur == nil {
			return
		}
		cur.Markdown = strings.TrimSpace(string(source[curStart:end]))
		cur.Narration = strings.Join(narration, "\n\n")
		if cur.Markdown != "" {
			s.Passages = append(s.Passages, *cur)
		}
		cur, narration = nil, nil
	}

	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		if h, ok := node.(*ast.Heading); ok && h.Level <= 2 {
			start := lineStart(source, h)
			if h.Level == 1 && s.Title == "" && cur == nil {
				s.Title = extractText(h, source)
				continue
			}
			flush(start)
			cur = &Passage{Title: extractText(h, source)}
			curStart = start
			continue
		}

		if cur == nil {
			// Prose before the first passage heading forms a prologue.
			cur = &Passage{Title: s.Title}
			curStart = blockStart(source, node)
		}
		if t := blockText(node, source); t != "" {
			narration = append(narration, t)
		}
	}
	flush(len(source))

	if len(s.Passages) == 0 {
		return nil, ErrEmpty
	}
	return s, nil
}

// blockText returns the speakable text of a block node.
func blockText(node ast.Node, source []byte) string {
	switch n := node.(type) {
	case *ast.Paragraph, *ast.Heading, *ast.TextBlock:
		return extractText(n, source)
	case *ast.List, *ast.ListItem, *ast.Blockquote:
		var parts []string
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if t := blockText(c, source); t != "" {
				parts = append(parts, t)
			}
		}
		return strings.Join(parts, "\n")
	default:
		// Code blocks, HTML and thematic breaks are not narrated.
		return ""
	}
}

func extractText(node ast.Node, source []byte) string {
	var b strings.Builder
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		switch n := c.(type) {
		case *ast.Text:
			b.Write(n.Segment.Value(source))
			if n.SoftLineBreak() || n.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(n.Value)
		case *ast.CodeSpan, *ast.RawHTML:
			// skipped
		default:
			b.WriteString(extractText(c, source))
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// lineStart returns the offset of the start of the line holding the first
// line of a block.
func lineStart(source []byte, node ast.Node) int {
	lines := node.Lines()
	if lines == nil || lines.Len() == 0 {
		return 0
	}
	pos := lines.At(0).Start
	if i := bytes.LastIndexByte(source[:pos], '\n'); i >= 0 {
		return i + 1
	}
	return 0
}

// blockStart is lineStart for container blocks, which carry no lines of
// their own.
func blockStart(source []byte, node ast.Node) int {
	for n := node; n != nil; n = n.FirstChild() {
		if n.Type() != ast.TypeBlock {
			break
		}
		if lines := n.Lines(); lines != nil && lines.Len() > 0 {
			return lineStart(source, n)
		}
	}
	return 0
}
