package integrations

import (
	"context"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/ahmadMuhammadGd/nanosite/internal/config"
	"github.com/ahmadMuhammadGd/nanosite/internal/plugin"
)

// MDXOptions configures the mdx integration.
type MDXOptions struct {
	// GFM enables tables, strikethrough, task lists and autolinks.
	GFM *bool `mapstructure:"gfm"`
	// Smartypants enables typographic punctuation.
	Smartypants *bool `mapstructure:"smartypants"`
}

// MDX enables .mdx pages with extended markdown and embedded HTML.
type MDX struct {
	opts MDXOptions
}

func (m *MDX) Name() string { return config.IntegrationMDX }

func (m *MDX) ConfigSetup(sc *SetupContext) error {
	exts := []goldmark.Extender{extension.Footnote, extension.DefinitionList}
	if m.opts.GFM == nil || *m.opts.GFM {
		exts = append(exts, extension.GFM)
	}
	if m.opts.Smartypants == nil || *m.opts.Smartypants {
		exts = append(exts, extension.Typographer)
	}
	sc.AddPageType(PageType{Ext: ".mdx", Extensions: exts, RawHTML: true})
	return nil
}

func (m *MDX) BuildDone(context.Context, *BuildResult) error { return nil }

type mdxFactory struct{}

func (mdxFactory) Metadata() plugin.PluginMetadata {
	return plugin.PluginMetadata{
		Name:         config.IntegrationMDX,
		Version:      "v1.0.0",
		Type:         plugin.PluginTypeIntegration,
		Description:  "Builds .mdx pages with footnotes, definition lists, typography and embedded HTML",
		Capabilities: []plugin.PluginCapability{plugin.CapabilityMarkdown},
	}
}

func (mdxFactory) Validate(options map[string]any) error {
	var o MDXOptions
	return plugin.DecodeOptions(options, &o)
}

func (mdxFactory) New(options map[string]any) (Integration, error) {
	var o MDXOptions
	if err := plugin.DecodeOptions(options, &o); err != nil {
		return nil, err
	}
	return &MDX{opts: o}, nil
}
