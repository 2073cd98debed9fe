package config

import "github.com/ahmadMuhammadGd/nanosite/internal/foundation/normalization"

// HighlightMode selects the code block highlighter.
type HighlightMode string

const (
	HighlightChroma HighlightMode = "chroma"
	HighlightNone   HighlightMode = "none"
)

var highlightNormalizer = normalization.NewNormalizer(map[string]HighlightMode{
	"chroma": HighlightChroma,
	"none":   HighlightNone,
	"false":  HighlightNone,
}, "")

// NormalizeHighlightMode returns the canonical highlight mode or "" when unknown.
func NormalizeHighlightMode(raw string) HighlightMode {
	return highlightNormalizer.Normalize(raw)
}

// BuildFormat controls how routes map to output files.
type BuildFormat string

const (
	// BuildFormatDirectory writes /blog/post/ as blog/post/index.html.
	BuildFormatDirectory BuildFormat = "directory"
	// BuildFormatFile writes /blog/post as blog/post.html.
	BuildFormatFile BuildFormat = "file"
)

var buildFormatNormalizer = normalization.NewNormalizer(map[string]BuildFormat{
	"directory": BuildFormatDirectory,
	"file":      BuildFormatFile,
}, "")

// NormalizeBuildFormat returns the canonical build format or "" when unknown.
func NormalizeBuildFormat(raw string) BuildFormat {
	return buildFormatNormalizer.Normalize(raw)
}

// Canonical integration names.
const (
	IntegrationMDX      = "mdx"
	IntegrationSitemap  = "sitemap"
	IntegrationTailwind = "tailwind"
	IntegrationPagefind = "pagefind"
)

// Canonical rehype transform names.
const (
	RehypeMermaid       = "mermaid"
	RehypeExternalLinks = "external-links"
)

// pluginAliases maps package-style spellings onto canonical plugin names so
// configurations ported from JavaScript tooling keep working.
var pluginAliases = map[string]string{
	"@astrojs/mdx":          IntegrationMDX,
	"@astrojs/sitemap":      IntegrationSitemap,
	"@astrojs/tailwind":     IntegrationTailwind,
	"astro-pagefind":        IntegrationPagefind,
	"rehype-mermaid":        RehypeMermaid,
	"rehype-external-links": RehypeExternalLinks,
	"externallinks":         RehypeExternalLinks,
}

// CanonicalPluginName normalizes a plugin identifier and resolves aliases.
func CanonicalPluginName(raw string) string {
	id := normalization.Identifier(raw)
	if canonical, ok := pluginAliases[id]; ok {
		return canonical
	}
	return id
}
