package integrations

import (
	"bytes"
	"context"
	"path"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/ahmadMuhammadGd/nanosite/internal/config"
	"github.com/ahmadMuhammadGd/nanosite/internal/logfields"
	"github.com/ahmadMuhammadGd/nanosite/internal/plugin"
	"github.com/ahmadMuhammadGd/nanosite/internal/search"
)

const (
	pagefindBodyAttr   = "data-pagefind-body"
	pagefindIgnoreAttr = "data-pagefind-ignore"
	defaultExcerptLen  = 30
)

// PagefindOptions configures the pagefind integration.
type PagefindOptions struct {
	// ExcerptWords bounds the stored excerpt.
	ExcerptWords int `mapstructure:"excerptWords"`
}

// Pagefind writes a static search index over the built pages.
type Pagefind struct {
	opts PagefindOptions
}

func (p *Pagefind) Name() string { return config.IntegrationPagefind }

func (p *Pagefind) ConfigSetup(*SetupContext) error { return nil }

// BuildDone indexes every page. When any page marks a region with
// data-pagefind-body only marked regions are indexed and unmarked pages are
// skipped.
func (p *Pagefind) BuildDone(ctx context.Context, br *BuildResult) error {
	type parsed struct {
		out  PageOutput
		root *html.Node
	}
	docs := make([]parsed, 0, len(br.Pages))
	scoped := false
	for _, po := range br.Pages {
		data, err := br.ReadPage(po)
		if err != nil {
			return err
		}
		root, err := html.Parse(bytes.NewReader(data))
		if err != nil {
			return err
		}
		if len(findAll(root, func(n *html.Node) bool { return hasAttr(n, pagefindBodyAttr) })) > 0 {
			scoped = true
		}
		docs = append(docs, parsed{out: po, root: root})
	}

	b := search.NewBuilder()
	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		var regions []*html.Node
		if scoped {
			regions = findAll(d.root, func(n *html.Node) bool { return hasAttr(n, pagefindBodyAttr) })
		} else {
			regions = findAll(d.root, func(n *html.Node) bool { return n.Type == html.ElementNode && n.DataAtom == atom.Body })
		}
		if len(regions) == 0 {
			continue
		}
		var text strings.Builder
		for _, r := range regions {
			indexText(r, &text)
		}
		words := strings.Fields(text.String())
		title := d.out.Title
		if title == "" {
			title = pageTitle(d.root)
		}
		b.Add(search.Page{
			URL:         d.out.URLPath,
			Title:       title,
			Excerpt:     excerpt(words, p.opts.ExcerptWords),
			Fingerprint: d.out.Fingerprint,
		}, strings.Join(words, " "))
	}

	entry, index, err := b.Files()
	if err != nil {
		return err
	}
	if err := br.WriteFile(path.Join(search.Dir, search.EntryFile), entry); err != nil {
		return err
	}
	if err := br.WriteFile(path.Join(search.Dir, search.IndexFile), index); err != nil {
		return err
	}
	br.Logger.Info("Search index written", logfields.Path(search.Dir), logfields.Count(b.Len()))
	return nil
}

func hasAttr(n *html.Node, key string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

// findAll returns the outermost nodes matching fn.
func findAll(root *html.Node, fn func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if fn(n) {
			out = append(out, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func skipForIndex(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Template, atom.Noscript, atom.Svg, atom.Head:
		return true
	}
	return hasAttr(n, pagefindIgnoreAttr)
}

func indexText(n *html.Node, b *strings.Builder) {
	if skipForIndex(n) {
		return
	}
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		b.WriteByte(' ')
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		indexText(c, b)
	}
}

func pageTitle(root *html.Node) string {
	for _, a := range []atom.Atom{atom.Title, atom.H1} {
		nodes := findAll(root, func(n *html.Node) bool { return n.Type == html.ElementNode && n.DataAtom == a })
		if len(nodes) == 0 {
			continue
		}
		var b strings.Builder
		indexText(nodes[0], &b)
		if t := strings.Join(strings.Fields(b.String()), " "); t != "" {
			return t
		}
	}
	return ""
}

func excerpt(words []string, limit int) string {
	if limit <= 0 {
		limit = defaultExcerptLen
	}
	if len(words) <= limit {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:limit], " ") + "…"
}

type pagefindFactory struct{}

func (pagefindFactory) Metadata() plugin.PluginMetadata {
	return plugin.PluginMetadata{
		Name:         config.IntegrationPagefind,
		Version:      "v1.0.0",
		Type:         plugin.PluginTypeIntegration,
		Description:  "Writes a static full-text search index of the built pages",
		Capabilities: []plugin.PluginCapability{plugin.CapabilitySearch},
	}
}

func (pagefindFactory) Validate(options map[string]any) error {
	var o PagefindOptions
	return plugin.DecodeOptions(options, &o)
}

func (pagefindFactory) New(options map[string]any) (Integration, error) {
	var o PagefindOptions
	if err := plugin.DecodeOptions(options, &o); err != nil {
		return nil, err
	}
	return &Pagefind{opts: o}, nil
}
