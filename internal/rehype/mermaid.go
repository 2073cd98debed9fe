package rehype

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/ahmadMuhammadGd/nanosite/internal/config"
	"github.com/ahmadMuhammadGd/nanosite/internal/foundation/normalization"
	"github.com/ahmadMuhammadGd/nanosite/internal/logfields"
	"github.com/ahmadMuhammadGd/nanosite/internal/plugin"
)

// MermaidStrategy selects how diagrams are emitted.
type MermaidStrategy string

const (
	// StrategyInlineSVG replaces the block with the rendered <svg>.
	StrategyInlineSVG MermaidStrategy = "inline-svg"
	// StrategyImgSVG replaces the block with an <img> carrying an SVG data URL.
	StrategyImgSVG MermaidStrategy = "img-svg"
	// StrategyPreMermaid rewrites the block to <pre class="mermaid"> for
	// client-side rendering.
	StrategyPreMermaid MermaidStrategy = "pre-mermaid"
)

var strategyNormalizer = normalization.WithCustomNormalizer(map[string]MermaidStrategy{
	"inline-svg":  StrategyInlineSVG,
	"img-svg":     StrategyImgSVG,
	"pre-mermaid": StrategyPreMermaid,
}, "", normalization.Identifier)

// MermaidOptions configures the mermaid transform.
type MermaidOptions struct {
	Strategy      string        `mapstructure:"strategy"`
	LaunchOptions LaunchOptions `mapstructure:"launchOptions"`
	// ErrorFallback is "pre-mermaid" (default) or "error".
	ErrorFallback string `mapstructure:"errorFallback"`
	// Theme is passed to the renderer, e.g. "default" or "dark".
	Theme string `mapstructure:"theme"`
}

// LaunchOptions locate the diagram renderer.
type LaunchOptions struct {
	// ExecutablePath is the renderer binary. Nil resolves it from PATH.
	ExecutablePath *string `mapstructure:"executablePath"`
	// Args are extra command line arguments.
	Args []string `mapstructure:"args"`
	// Retries is how often a failed render is retried. Nil means two.
	Retries *int `mapstructure:"retries"`
}

// ParseMermaidOptions decodes and checks options.
func ParseMermaidOptions(options map[string]any) (MermaidOptions, MermaidStrategy, error) {
	var o MermaidOptions
	if err := plugin.DecodeOptions(options, &o); err != nil {
		return o, "", err
	}
	strategy := StrategyInlineSVG
	if o.Strategy != "" {
		s, err := strategyNormalizer.NormalizeWithError(o.Strategy)
		if err != nil {
			return o, "", fmt.Errorf("strategy: %w", err)
		}
		strategy = s
	}
	if r := o.LaunchOptions.Retries; r != nil && *r < 0 {
		return o, "", fmt.Errorf("launchOptions.retries must not be negative, got %d", *r)
	}
	switch o.ErrorFallback {
	case "":
		o.ErrorFallback = string(StrategyPreMermaid)
	case string(StrategyPreMermaid), "error":
	default:
		return o, "", fmt.Errorf("errorFallback must be pre-mermaid or error, got %q", o.ErrorFallback)
	}
	return o, strategy, nil
}

// Mermaid renders ```mermaid fences.
type Mermaid struct {
	strategy MermaidStrategy
	opts     MermaidOptions
	renderer Renderer
}

// NewMermaid returns the transform. renderer may be nil for the
// pre-mermaid strategy.
func NewMermaid(opts MermaidOptions, strategy MermaidStrategy, renderer Renderer) *Mermaid {
	return &Mermaid{strategy: strategy, opts: opts, renderer: renderer}
}

func (m *Mermaid) Name() string { return config.RehypeMermaid }

// Apply replaces every <pre><code class="language-mermaid"> block and every
// authored <pre class="mermaid">.
func (m *Mermaid) Apply(ctx context.Context, root *html.Node) error {
	var blocks []*html.Node
	Walk(root, func(n *html.Node) bool {
		if isMermaidBlock(n) {
			blocks = append(blocks, n)
			return false
		}
		return true
	})

	for _, pre := range blocks {
		source := TextContent(pre)
		if m.strategy == StrategyPreMermaid {
			if !HasClass(pre, "mermaid") {
				replace(pre, preMermaid(source))
			}
			continue
		}
		nodes, err := m.render(ctx, source)
		if err != nil {
			if m.opts.ErrorFallback == "error" {
				return err
			}
			slog.Warn("Mermaid render failed, falling back to client rendering",
				logfields.Transform(config.RehypeMermaid), logfields.Error(err))
			replace(pre, preMermaid(source))
			continue
		}
		replace(pre, nodes...)
	}
	return nil
}

func (m *Mermaid) render(ctx context.Context, source string) ([]*html.Node, error) {
	if m.renderer == nil {
		return nil, ErrRendererUnavailable
	}
	svg, err := m.renderer.Render(ctx, source, RenderOptions{Theme: m.opts.Theme})
	if err != nil {
		return nil, err
	}
	svg = stripXMLProlog(svg)

	if m.strategy == StrategyImgSVG {
		img := &html.Node{Type: html.ElementNode, Data: "img", DataAtom: atom.Img}
		SetAttr(img, "src", "data:image/svg+xml;base64,"+base64.StdEncoding.EncodeToString(svg))
		SetAttr(img, "alt", "mermaid diagram")
		return []*html.Node{img}, nil
	}

	frag, err := ParseFragment(svg)
	if err != nil {
		return nil, err
	}
	var nodes []*html.Node
	for c := frag.FirstChild; c != nil; {
		next := c.NextSibling
		frag.RemoveChild(c)
		nodes = append(nodes, c)
		c = next
	}
	if len(nodes) == 0 {
		return nil, errors.New("renderer produced no output")
	}
	return nodes, nil
}

func isMermaidBlock(n *html.Node) bool {
	if n.DataAtom != atom.Pre {
		return false
	}
	if HasClass(n, "mermaid") {
		return true
	}
	code := n.FirstChild
	for code != nil && code.Type == html.TextNode && strings.TrimSpace(code.Data) == "" {
		code = code.NextSibling
	}
	return code != nil && code.DataAtom == atom.Code && HasClass(code, "language-mermaid")
}

func preMermaid(source string) *html.Node {
	pre := &html.Node{Type: html.ElementNode, Data: "pre", DataAtom: atom.Pre}
	SetAttr(pre, "class", "mermaid")
	pre.AppendChild(&html.Node{Type: html.TextNode, Data: source})
	return pre
}

// replace substitutes old with nodes in its parent.
func replace(old *html.Node, nodes ...*html.Node) {
	parent := old.Parent
	for _, n := range nodes {
		parent.InsertBefore(n, old)
	}
	parent.RemoveChild(old)
}

func stripXMLProlog(svg []byte) []byte {
	s := strings.TrimSpace(string(svg))
	if strings.HasPrefix(s, "<?xml") {
		if i := strings.Index(s, "?>"); i >= 0 {
			s = strings.TrimSpace(s[i+2:])
		}
	}
	return []byte(s)
}

type mermaidFactory struct{}

func (mermaidFactory) Metadata() plugin.PluginMetadata {
	return plugin.PluginMetadata{
		Name:         config.RehypeMermaid,
		Version:      "v1.0.0",
		Type:         plugin.PluginTypeRehype,
		Description:  "Renders mermaid code fences to SVG",
		Capabilities: []plugin.PluginCapability{plugin.CapabilityMermaid},
	}
}

func (mermaidFactory) Validate(options map[string]any) error {
	_, _, err := ParseMermaidOptions(options)
	return err
}

func (mermaidFactory) New(options map[string]any) (Transform, error) {
	opts, strategy, err := ParseMermaidOptions(options)
	if err != nil {
		return nil, err
	}
	var renderer Renderer
	if strategy != StrategyPreMermaid {
		renderer = NewCLIRenderer(opts.LaunchOptions)
	}
	return NewMermaid(opts, strategy, renderer), nil
}
