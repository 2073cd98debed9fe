package config

import "fmt"

// DefaultSite is the deployment URL of the default record.
const DefaultSite = "https://ahmadmuhammadgd.github.io"

// Default returns the reference site configuration: four integrations and
// the mermaid and external-links transforms, with every ambient section at
// its default.
func Default() *Config {
	cfg := &Config{
		Site: DefaultSite,
		Integrations: []IntegrationConfig{
			{Name: IntegrationMDX},
			{Name: IntegrationSitemap},
			{Name: IntegrationTailwind},
			{Name: IntegrationPagefind},
		},
		Markdown: MarkdownConfig{
			RehypePlugins: []RehypePluginConfig{
				{
					Name: RehypeMermaid,
					Options: map[string]any{
						"launchOptions": map[string]any{
							"executablePath": nil,
						},
					},
				},
				{
					Name: RehypeExternalLinks,
					Options: map[string]any{
						"target": "_blank",
						"content": map[string]any{
							"type":  "text",
							"value": " 🔗",
						},
						"rel": []any{"nofollow"},
					},
				},
			},
		},
	}
	// The built-in appliers only fill unset fields and never fail.
	if err := applyDefaults(cfg); err != nil {
		panic(fmt.Sprintf("config: default record: %v", err))
	}
	return cfg
}

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

// MarkdownDefaultApplier handles markdown rendering defaults.
type MarkdownDefaultApplier struct{}

func (m *MarkdownDefaultApplier) Domain() string { return "markdown" }

func (m *MarkdownDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Markdown.SyntaxHighlight == "" {
		cfg.Markdown.SyntaxHighlight = HighlightChroma
	}
	if cfg.Markdown.HighlightStyle == "" {
		cfg.Markdown.HighlightStyle = "github"
	}
	if cfg.Markdown.GFM == nil {
		on := true
		cfg.Markdown.GFM = &on
	}
	if cfg.Markdown.RawHTML == nil {
		on := true
		cfg.Markdown.RawHTML = &on
	}
	return nil
}

// ContentDefaultApplier handles content discovery defaults.
type ContentDefaultApplier struct{}

func (c *ContentDefaultApplier) Domain() string { return "content" }

func (c *ContentDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Content.Dir == "" {
		cfg.Content.Dir = "src/content"
	}
	if cfg.Content.PublicDir == "" {
		cfg.Content.PublicDir = "public"
	}
	return nil
}

// MetaDefaultApplier handles page metadata defaults.
type MetaDefaultApplier struct{}

func (m *MetaDefaultApplier) Domain() string { return "meta" }

func (m *MetaDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Meta.Lang == "" {
		cfg.Meta.Lang = "en"
	}
	return nil
}

// OutputDefaultApplier handles output defaults.
type OutputDefaultApplier struct{}

func (o *OutputDefaultApplier) Domain() string { return "output" }

func (o *OutputDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = "dist"
	}
	return nil
}

// BuildDefaultApplier handles build pipeline defaults.
type BuildDefaultApplier struct{}

func (b *BuildDefaultApplier) Domain() string { return "build" }

func (b *BuildDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Build.Concurrency < 0 {
		cfg.Build.Concurrency = 0
	}
	if cfg.Build.Format == "" {
		cfg.Build.Format = BuildFormatDirectory
	}
	return nil
}

// LoggingDefaultApplier handles logging defaults.
type LoggingDefaultApplier struct{}

func (l *LoggingDefaultApplier) Domain() string { return "logging" }

func (l *LoggingDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = LogLevelInfo
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = LogFormatText
	}
	return nil
}

// ServerDefaultApplier handles preview server defaults.
type ServerDefaultApplier struct{}

func (s *ServerDefaultApplier) Domain() string { return "server" }

func (s *ServerDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 4321
	}
	if cfg.Server.MetricsPath == "" {
		cfg.Server.MetricsPath = "/metrics"
	}
	return nil
}

// defaultAppliers run in this order.
func defaultAppliers() []DefaultApplier {
	return []DefaultApplier{
		&MarkdownDefaultApplier{},
		&ContentDefaultApplier{},
		&MetaDefaultApplier{},
		&OutputDefaultApplier{},
		&BuildDefaultApplier{},
		&LoggingDefaultApplier{},
		&ServerDefaultApplier{},
	}
}

// applyDefaults fills every unset ambient field.
func applyDefaults(cfg *Config) error {
	for _, applier := range defaultAppliers() {
		if err := applier.ApplyDefaults(cfg); err != nil {
			return err
		}
	}
	return nil
}
