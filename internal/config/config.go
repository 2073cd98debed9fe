// Package config defines the nanosite site configuration record and its
// loader.
//
// The record mirrors a declarative site configuration: the absolute site
// URL, the ordered integrations to activate, and the ordered markdown HTML
// transforms ("rehype plugins") with their options. It is built once per
// build invocation and treated as immutable afterwards; consumers that need
// option maps receive deep copies.
package config

import "runtime"

// Config represents the site configuration.
type Config struct {
	// Site is the absolute URL the site is deployed to. Sitemap entries and
	// canonical links are resolved against it.
	Site string `yaml:"site"`

	// Integrations are activated in declaration order.
	Integrations []IntegrationConfig `yaml:"integrations"`

	Markdown MarkdownConfig `yaml:"markdown"`

	Meta    MetaConfig    `yaml:"meta,omitempty"`
	Content ContentConfig `yaml:"content,omitempty"`
	Output  OutputConfig  `yaml:"output,omitempty"`
	Build   BuildConfig   `yaml:"build,omitempty"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
	Server  ServerConfig  `yaml:"server,omitempty"`

	// Root is the project directory relative paths are resolved against.
	// Load sets it to the directory containing the configuration file.
	Root string `yaml:"-"`
}

// IntegrationConfig activates one integration. In YAML it is written either
// as a bare name (`- sitemap`) or as a mapping with options.
type IntegrationConfig struct {
	Name    string         `yaml:"name"`
	Options map[string]any `yaml:"options,omitempty"`
}

// RehypePluginConfig is one (transform, options) pair of the markdown HTML
// pipeline. In YAML it is written as a bare name, a two element sequence
// (`- [external-links, {target: _blank}]`) or a mapping with options.
type RehypePluginConfig struct {
	Name    string         `yaml:"name"`
	Options map[string]any `yaml:"options,omitempty"`
}

// MarkdownConfig configures markdown rendering.
type MarkdownConfig struct {
	// RehypePlugins are applied in sequence to the HTML rendered from markdown.
	RehypePlugins []RehypePluginConfig `yaml:"rehypePlugins"`

	// SyntaxHighlight selects the fenced code highlighter: "chroma" or "none".
	SyntaxHighlight HighlightMode `yaml:"syntaxHighlight,omitempty"`
	// HighlightStyle is the chroma style name.
	HighlightStyle string `yaml:"highlightStyle,omitempty"`
	// GFM toggles GitHub flavored markdown for plain .md pages (default on).
	GFM *bool `yaml:"gfm,omitempty"`
	// RawHTML passes inline and block HTML in .md pages through (default on).
	RawHTML *bool `yaml:"rawHTML,omitempty"`
}

// MetaConfig carries site-wide page metadata used by the layout.
type MetaConfig struct {
	Title       string `yaml:"title,omitempty"`
	Description string `yaml:"description,omitempty"`
	Author      string `yaml:"author,omitempty"`
	Lang        string `yaml:"lang,omitempty"`
}

// ContentConfig controls content discovery.
type ContentConfig struct {
	Dir       string   `yaml:"dir,omitempty"`       // markdown content root, default src/content
	PublicDir string   `yaml:"publicDir,omitempty"` // copied verbatim to the output, default public
	Ignore    []string `yaml:"ignore,omitempty"`    // glob patterns relative to Dir
	Drafts    bool     `yaml:"drafts,omitempty"`    // include pages marked draft
}

// OutputConfig controls where the site is written.
type OutputConfig struct {
	Dir   string `yaml:"dir,omitempty"`   // default dist
	Clean *bool  `yaml:"clean,omitempty"` // remove previous output first, default true
}

// ShouldClean reports whether the output directory is emptied before a build.
func (o OutputConfig) ShouldClean() bool {
	return o.Clean == nil || *o.Clean
}

// BuildConfig controls the build pipeline.
type BuildConfig struct {
	Concurrency int         `yaml:"concurrency,omitempty"` // parallel page renders, 0 means GOMAXPROCS
	Format      BuildFormat `yaml:"format,omitempty"`      // directory|file
}

// Workers returns the effective render parallelism.
func (b BuildConfig) Workers() int {
	if b.Concurrency > 0 {
		return b.Concurrency
	}
	return runtime.GOMAXPROCS(0)
}

// LoggingConfig selects log level and handler format.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level,omitempty"`
	Format LogFormat `yaml:"format,omitempty"`
}

// ServerConfig configures the preview server.
type ServerConfig struct {
	Host        string `yaml:"host,omitempty"`
	Port        int    `yaml:"port,omitempty"`
	MetricsPath string `yaml:"metricsPath,omitempty"`
}

// HasIntegration reports whether the named integration is active.
func (c *Config) HasIntegration(name string) bool {
	for _, in := range c.Integrations {
		if in.Name == name {
			return true
		}
	}
	return false
}

// IntegrationNames returns the active integration names in order.
func (c *Config) IntegrationNames() []string {
	names := make([]string, len(c.Integrations))
	for i, in := range c.Integrations {
		names[i] = in.Name
	}
	return names
}

// RehypePluginNames returns the configured transform names in order.
func (c *Config) RehypePluginNames() []string {
	names := make([]string, len(c.Markdown.RehypePlugins))
	for i, p := range c.Markdown.RehypePlugins {
		names[i] = p.Name
	}
	return names
}
