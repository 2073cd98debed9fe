package rehype

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/ahmadMuhammadGd/nanosite/internal/config"
	"github.com/ahmadMuhammadGd/nanosite/internal/plugin"
)

// ExternalLinksOptions configures the external-links transform.
type ExternalLinksOptions struct {
	// Target is the browsing context for external links, e.g. "_blank".
	// Empty leaves target untouched.
	Target string `mapstructure:"target"`

	// Rel replaces the rel attribute of external links.
	Rel []string `mapstructure:"rel"`

	// Content is appended as the last child of every external link.
	Content *LinkContent `mapstructure:"content"`

	// Protocols are the schemes that make an absolute URL external.
	Protocols []string `mapstructure:"protocols"`
}

// LinkContent is a node appended to external links. Only text nodes are
// supported.
type LinkContent struct {
	Type  string `mapstructure:"type"`
	Value string `mapstructure:"value"`
}

var defaultRel = []string{"nofollow"}
var defaultProtocols = []string{"http", "https"}

// ParseExternalLinksOptions decodes options. A missing rel defaults to
// nofollow; an explicit empty list disables rel rewriting.
func ParseExternalLinksOptions(options map[string]any) (ExternalLinksOptions, error) {
	var o ExternalLinksOptions
	if err := plugin.DecodeOptions(options, &o); err != nil {
		return o, err
	}
	if _, set := options["rel"]; !set {
		o.Rel = slices.Clone(defaultRel)
	}
	var rel []string
	for _, r := range o.Rel {
		rel = append(rel, strings.Fields(r)...)
	}
	o.Rel = rel
	if len(o.Protocols) == 0 {
		o.Protocols = slices.Clone(defaultProtocols)
	}
	for i, p := range o.Protocols {
		o.Protocols[i] = strings.TrimSuffix(strings.ToLower(p), ":")
	}
	if o.Content != nil && o.Content.Type != "" && o.Content.Type != "text" {
		return o, fmt.Errorf("content type %q is not supported, use text", o.Content.Type)
	}
	return o, nil
}

// ExternalLinks marks links to other sites.
type ExternalLinks struct {
	opts ExternalLinksOptions
}

// NewExternalLinks returns the transform for opts.
func NewExternalLinks(opts ExternalLinksOptions) *ExternalLinks {
	return &ExternalLinks{opts: opts}
}

func (e *ExternalLinks) Name() string { return config.RehypeExternalLinks }

// Apply rewrites every external <a href>.
func (e *ExternalLinks) Apply(_ context.Context, root *html.Node) error {
	Walk(root, func(n *html.Node) bool {
		if n.DataAtom != atom.A {
			return true
		}
		href, ok := Attr(n, "href")
		if !ok || !e.isExternal(href) {
			return true
		}
		if e.opts.Target != "" {
			SetAttr(n, "target", e.opts.Target)
		}
		if len(e.opts.Rel) > 0 {
			SetAttr(n, "rel", strings.Join(e.opts.Rel, " "))
		}
		if e.opts.Content != nil && e.opts.Content.Value != "" {
			n.AppendChild(&html.Node{Type: html.TextNode, Data: e.opts.Content.Value})
		}
		return false
	})
	return nil
}

// isExternal reports whether href is an absolute URL with a configured
// scheme or a protocol-relative URL ("//host/path").
func (e *ExternalLinks) isExternal(href string) bool {
	href = strings.TrimSpace(href)
	u, err := url.Parse(href)
	if err != nil {
		return false
	}
	if u.Scheme == "" && strings.HasPrefix(href, "//") {
		return u.Host != ""
	}
	if !u.IsAbs() {
		return false
	}
	return slices.Contains(e.opts.Protocols, strings.ToLower(u.Scheme))
}

type externalLinksFactory struct{}

func (externalLinksFactory) Metadata() plugin.PluginMetadata {
	return plugin.PluginMetadata{
		Name:         config.RehypeExternalLinks,
		Version:      "v1.0.0",
		Type:         plugin.PluginTypeRehype,
		Description:  "Adds target, rel and a trailing marker to links pointing off-site",
		Capabilities: []plugin.PluginCapability{plugin.CapabilityLinks},
	}
}

func (externalLinksFactory) Validate(options map[string]any) error {
	_, err := ParseExternalLinksOptions(options)
	return err
}

func (externalLinksFactory) New(options map[string]any) (Transform, error) {
	opts, err := ParseExternalLinksOptions(options)
	if err != nil {
		return nil, err
	}
	return NewExternalLinks(opts), nil
}
