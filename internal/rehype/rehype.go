// Package rehype runs the configured HTML transforms over fragments rendered
// from markdown. Transforms are applied in configuration order; each one
// mutates the tree produced by the previous.
package rehype

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/ahmadMuhammadGd/nanosite/internal/config"
	"github.com/ahmadMuhammadGd/nanosite/internal/plugin"
)

// Transform rewrites an HTML tree in place. root is a synthetic <body>
// element holding the fragment's top-level nodes.
type Transform interface {
	Name() string
	Apply(ctx context.Context, root *html.Node) error
}

// Factory is the registry entry for a transform.
type Factory interface {
	plugin.Plugin
	New(options map[string]any) (Transform, error)
}

// Pipeline applies transforms in order.
type Pipeline struct {
	transforms []Transform
}

// NewPipeline instantiates the configured transforms from registry. Options
// are deep copied before they reach a factory.
func NewPipeline(registry *plugin.Registry, plugins []config.RehypePluginConfig) (*Pipeline, error) {
	p := &Pipeline{}
	for _, pc := range plugins {
		entry, err := registry.Get(pc.Name)
		if err != nil {
			return nil, plugin.NewPluginError(pc.Name, "lookup", err)
		}
		factory, ok := entry.(Factory)
		if !ok || entry.Metadata().Type != plugin.PluginTypeRehype {
			return nil, plugin.NewPluginError(pc.Name, "lookup", fmt.Errorf("%s is not a rehype transform", entry.Metadata()))
		}
		opts := config.CloneOptions(pc.Options)
		if err := factory.Validate(opts); err != nil {
			return nil, plugin.NewPluginError(pc.Name, "validate", err)
		}
		t, err := factory.New(opts)
		if err != nil {
			return nil, plugin.NewPluginError(pc.Name, "init", err)
		}
		p.transforms = append(p.transforms, t)
	}
	return p, nil
}

// NewPipelineFromTransforms builds a pipeline from ready transforms.
func NewPipelineFromTransforms(transforms ...Transform) *Pipeline {
	return &Pipeline{transforms: transforms}
}

// Names returns the transform names in application order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.transforms))
	for i, t := range p.transforms {
		names[i] = t.Name()
	}
	return names
}

// Len returns the number of transforms.
func (p *Pipeline) Len() int { return len(p.transforms) }

// Process parses fragment, applies every transform and renders the result.
func (p *Pipeline) Process(ctx context.Context, fragment []byte) ([]byte, error) {
	if len(p.transforms) == 0 {
		return fragment, nil
	}
	root, err := ParseFragment(fragment)
	if err != nil {
		return nil, err
	}
	for _, t := range p.transforms {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := t.Apply(ctx, root); err != nil {
			return nil, plugin.NewPluginError(t.Name(), "transform", err)
		}
	}
	return RenderChildren(root)
}

// ParseFragment parses an HTML fragment in <body> context and returns a
// synthetic body element holding the parsed nodes.
func ParseFragment(fragment []byte) (*html.Node, error) {
	root := newBody()
	nodes, err := html.ParseFragment(bytes.NewReader(fragment), newBody())
	if err != nil {
		return nil, fmt.Errorf("parse html fragment: %w", err)
	}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return root, nil
}

// RenderChildren renders the children of root.
func RenderChildren(root *html.Node) ([]byte, error) {
	var buf bytes.Buffer
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return nil, fmt.Errorf("render html: %w", err)
		}
	}
	return buf.Bytes(), nil
}

func newBody() *html.Node {
	return &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
}

// Walk calls fn for every element below root in document order. Returning
// false from fn skips the element's children.
func Walk(root *html.Node, fn func(*html.Node) bool) {
	for c := root.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type != html.ElementNode || fn(c) {
			Walk(c, fn)
		}
		c = next
	}
}

// Attr returns the value of the attribute key on n.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets or replaces the attribute key on n.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// HasClass reports whether n's class list contains class.
func HasClass(n *html.Node, class string) bool {
	v, ok := Attr(n, "class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

// TextContent concatenates all text below n.
func TextContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
