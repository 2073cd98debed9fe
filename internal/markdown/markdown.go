// Package markdown renders page bodies to HTML fragments with goldmark and
// extracts link references for analysis.
package markdown

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Options controls how markdown is parsed and rendered.
type Options struct {
	// GFM enables GitHub flavored markdown (tables, strikethrough, task
	// lists, autolinks).
	GFM bool

	// RawHTML passes inline and block HTML through unescaped.
	RawHTML bool

	// Highlight enables chroma syntax highlighting of fenced code.
	Highlight bool
	// HighlightStyle names the chroma style, e.g. "github".
	HighlightStyle string

	// Extensions are additional goldmark extenders, applied after the
	// built-in ones.
	Extensions []goldmark.Extender
}

// Heading is a rendered section heading.
type Heading struct {
	Level int
	ID    string
	Text  string
}

// Document is a rendered markdown body.
type Document struct {
	HTML     []byte
	Headings []Heading
}

// Title returns the text of the first level-one heading, if any.
func (d Document) Title() string {
	for _, h := range d.Headings {
		if h.Level == 1 {
			return h.Text
		}
	}
	return ""
}

// Renderer converts markdown to HTML. It is safe for concurrent use.
type Renderer struct {
	md goldmark.Markdown
}

// New builds a Renderer for opts.
func New(opts Options) *Renderer {
	var exts []goldmark.Extender
	if opts.GFM {
		exts = append(exts, extension.GFM)
	}
	exts = append(exts, opts.Extensions...)

	rendererOpts := []renderer.Option{
		renderer.WithNodeRenderers(util.Prioritized(newCodeBlockRenderer(opts), 200)),
	}
	if opts.RawHTML {
		rendererOpts = append(rendererOpts, html.WithUnsafe())
	}

	md := goldmark.New(
		goldmark.WithExtensions(exts...),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(rendererOpts...),
	)
	return &Renderer{md: md}
}

// Render converts a markdown body (front matter already removed) to an HTML
// fragment.
func (r *Renderer) Render(body []byte) (Document, error) {
	ctx := parser.NewContext()
	root := r.md.Parser().Parse(text.NewReader(body), parser.WithContext(ctx))

	var buf bytes.Buffer
	if err := r.md.Renderer().Render(&buf, body, root); err != nil {
		return Document{}, fmt.Errorf("render markdown: %w", err)
	}
	return Document{HTML: buf.Bytes(), Headings: collectHeadings(root, body)}, nil
}

func collectHeadings(root gmast.Node, source []byte) []Heading {
	var headings []Heading
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		h, ok := n.(*gmast.Heading)
		if !ok {
			return gmast.WalkContinue, nil
		}
		heading := Heading{Level: h.Level, Text: nodeText(h, source)}
		if id, ok := h.AttributeString("id"); ok {
			switch v := id.(type) {
			case []byte:
				heading.ID = string(v)
			case string:
				heading.ID = v
			}
		}
		headings = append(headings, heading)
		return gmast.WalkSkipChildren, nil
	})
	return headings
}

// nodeText concatenates the literal text below n.
func nodeText(n gmast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = gmast.Walk(n, func(c gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *gmast.Text:
			buf.Write(t.Segment.Value(source))
			if t.SoftLineBreak() {
				buf.WriteByte(' ')
			}
		case *gmast.String:
			buf.Write(t.Value)
		case *gmast.CodeSpan:
			for child := t.FirstChild(); child != nil; child = child.NextSibling() {
				if txt, ok := child.(*gmast.Text); ok {
					buf.Write(txt.Segment.Value(source))
				}
			}
			return gmast.WalkSkipChildren, nil
		}
		return gmast.WalkContinue, nil
	})
	return buf.String()
}
