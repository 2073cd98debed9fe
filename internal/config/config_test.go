package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cast"
	"github.com/stretchr/testify/require"

	derrors "github.com/ahmadMuhammadGd/nanosite/internal/foundation/errors"
)

func externalLinkOptions(t *testing.T, cfg *Config) map[string]any {
	t.Helper()
	for _, p := range cfg.Markdown.RehypePlugins {
		if p.Name == RehypeExternalLinks {
			return p.Options
		}
	}
	t.Fatalf("external-links transform not configured")
	return nil
}

func TestDefaultIsCompleteAndValid(t *testing.T) {
	var cfg *Config
	require.NotPanics(t, func() { cfg = Default() })
	require.NoError(t, cfg.Validate())
	require.Equal(t, "src/content", cfg.Content.Dir)
	require.Equal(t, "dist", cfg.Output.Dir)
	require.True(t, *cfg.Markdown.RawHTML)
}

func TestDefaultLiteralRecord(t *testing.T) {
	cfg := Default()

	require.Equal(t, "https://ahmadmuhammadgd.github.io", cfg.Site)
	require.Equal(t, []string{"mdx", "sitemap", "tailwind", "pagefind"}, cfg.IntegrationNames())
	require.Equal(t, []string{"mermaid", "external-links"}, cfg.RehypePluginNames())

	mermaid := cfg.Markdown.RehypePlugins[0].Options
	launch, ok := mermaid["launchOptions"].(map[string]any)
	require.True(t, ok)
	exe, present := launch["executablePath"]
	require.True(t, present)
	require.Nil(t, exe)

	ext := externalLinkOptions(t, cfg)
	require.Equal(t, "_blank", ext["target"])
	require.Contains(t, cast.ToStringSlice(ext["rel"]), "nofollow")
	content := ext["content"].(map[string]any)
	require.Equal(t, "text", content["type"])
	require.Equal(t, " 🔗", content["value"])

	require.NoError(t, cfg.Validate())
}

func TestInitThenLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nanosite.yaml")

	require.NoError(t, Init(path, false))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, dir, cfg.Root)
	require.Equal(t, DefaultSite, cfg.Site)
	require.Equal(t, []string{"mdx", "sitemap", "tailwind", "pagefind"}, cfg.IntegrationNames())
	require.Equal(t, []string{"mermaid", "external-links"}, cfg.RehypePluginNames())

	ext := externalLinkOptions(t, cfg)
	require.Equal(t, "_blank", ext["target"])
	require.Equal(t, []string{"nofollow"}, cast.ToStringSlice(ext["rel"]))

	launch := cfg.Markdown.RehypePlugins[0].Options["launchOptions"].(map[string]any)
	require.Contains(t, launch, "executablePath")
	require.Nil(t, launch["executablePath"])
}

func TestInitRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nanosite.yaml")
	require.NoError(t, os.WriteFile(path, []byte("site: https://x.test\n"), 0o600))

	err := Init(path, false)
	require.Error(t, err)
	require.True(t, derrors.HasCategory(err, derrors.CategoryValidation))

	require.NoError(t, Init(path, true))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), DefaultSite)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	require.True(t, derrors.HasCategory(err, derrors.CategoryNotFound))
}

func TestParsePluginEntryForms(t *testing.T) {
	yml := `
site: https://example.com
integrations:
  - "@astrojs/mdx"
  - name: sitemap
    options:
      changefreq: weekly
  - tailwind: {applyBaseStyles: false}
  - Pagefind
markdown:
  rehypePlugins:
    - [rehype-mermaid, {launchOptions: {executablePath: null}}]
    - name: external_links
      options:
        target: _self
        rel: [nofollow, noopener]
`
	cfg, err := Parse([]byte(yml))
	require.NoError(t, err)
	require.Equal(t, []string{"mdx", "sitemap", "tailwind", "pagefind"}, cfg.IntegrationNames())
	require.Equal(t, "weekly", cfg.Integrations[1].Options["changefreq"])
	require.Equal(t, false, cfg.Integrations[2].Options["applyBaseStyles"])
	require.Nil(t, cfg.Integrations[3].Options)

	require.Equal(t, []string{"mermaid", "external-links"}, cfg.RehypePluginNames())
	require.Equal(t, []string{"nofollow", "noopener"}, cast.ToStringSlice(cfg.Markdown.RehypePlugins[1].Options["rel"]))
}

func TestParseExpandsEnvironment(t *testing.T) {
	t.Setenv("NANOSITE_TEST_SITE", "https://env.example.org")
	cfg, err := Parse([]byte("site: ${NANOSITE_TEST_SITE}\nintegrations: [sitemap]\n"))
	require.NoError(t, err)
	require.Equal(t, "https://env.example.org", cfg.Site)
}

func TestLoadReadsDotEnvWithoutOverriding(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("NANOSITE_DOTENV_SITE=https://dotenv.example\nNANOSITE_DOTENV_TITLE=from-file\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nanosite.yaml"), []byte("site: $NANOSITE_DOTENV_SITE\nmeta:\n  title: $NANOSITE_DOTENV_TITLE\n"), 0o600))
	t.Setenv("NANOSITE_DOTENV_TITLE", "from-process")
	t.Cleanup(func() { _ = os.Unsetenv("NANOSITE_DOTENV_SITE") })

	cfg, err := Load(filepath.Join(dir, "nanosite.yaml"))
	require.NoError(t, err)
	require.Equal(t, "https://dotenv.example", cfg.Site)
	require.Equal(t, "from-process", cfg.Meta.Title)
}

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("site: https://example.com\n"))
	require.NoError(t, err)
	require.Equal(t, "src/content", cfg.Content.Dir)
	require.Equal(t, "public", cfg.Content.PublicDir)
	require.Equal(t, "dist", cfg.Output.Dir)
	require.True(t, cfg.Output.ShouldClean())
	require.Equal(t, BuildFormatDirectory, cfg.Build.Format)
	require.Positive(t, cfg.Build.Workers())
	require.Equal(t, HighlightChroma, cfg.Markdown.SyntaxHighlight)
	require.Equal(t, "github", cfg.Markdown.HighlightStyle)
	require.True(t, *cfg.Markdown.GFM)
	require.True(t, *cfg.Markdown.RawHTML)
	require.Equal(t, LogLevelInfo, cfg.Logging.Level)
	require.Equal(t, 4321, cfg.Server.Port)
	require.Equal(t, "/metrics", cfg.Server.MetricsPath)
	require.Equal(t, "en", cfg.Meta.Lang)
}

func TestParseNormalizesEnums(t *testing.T) {
	yml := `
site: https://example.com
markdown:
  syntaxHighlight: " Chroma "
build:
  format: FILE
logging:
  level: WARNING
  format: JSON
server:
  metricsPath: stats
`
	cfg, err := Parse([]byte(yml))
	require.NoError(t, err)
	require.Equal(t, HighlightChroma, cfg.Markdown.SyntaxHighlight)
	require.Equal(t, BuildFormatFile, cfg.Build.Format)
	require.Equal(t, LogLevelWarn, cfg.Logging.Level)
	require.Equal(t, LogFormatJSON, cfg.Logging.Format)
	require.Equal(t, "/stats", cfg.Server.MetricsPath)
}

func TestValidationFailures(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		field string
	}{
		{"relative site", "site: /blog\n", "site"},
		{"site without host", "site: https://\n", "site"},
		{"ftp site", "site: ftp://example.com\n", "site"},
		{"sitemap needs site", "integrations: [sitemap]\n", "site"},
		{"unknown integration", "site: https://e.com\nintegrations: [react]\n", "integrations[0]"},
		{"duplicate integration", "site: https://e.com\nintegrations: [mdx, mdx]\n", "integrations[1]"},
		{"empty integration", "site: https://e.com\nintegrations: ['']\n", "integrations[0]"},
		{"unknown transform", "site: https://e.com\nmarkdown:\n  rehypePlugins: [slug]\n", "markdown.rehypePlugins[0]"},
		{"bad target", "site: https://e.com\nmarkdown:\n  rehypePlugins: [[external-links, {target: [a]}]]\n", "markdown.rehypePlugins[0].target"},
		{"bad content type", "site: https://e.com\nmarkdown:\n  rehypePlugins: [[external-links, {content: {type: element}}]]\n", "markdown.rehypePlugins[0].content.type"},
		{"bad executable", "site: https://e.com\nmarkdown:\n  rehypePlugins: [[mermaid, {launchOptions: {executablePath: 3}}]]\n", "markdown.rehypePlugins[0].launchOptions.executablePath"},
		{"bad entry limit", "site: https://e.com\nintegrations: [{sitemap: {entryLimit: 0}}]\n", "integrations[0].entryLimit"},
		{"bad priority", "site: https://e.com\nintegrations: [{sitemap: {priority: 2}}]\n", "integrations[0].priority"},
		{"bad format", "site: https://e.com\nbuild:\n  format: flat\n", "build.format"},
		{"bad log level", "site: https://e.com\nlogging:\n  level: loud\n", "logging.level"},
		{"bad port", "site: https://e.com\nserver:\n  port: 70000\n", "server.port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			ce, ok := derrors.AsClassified(err)
			require.True(t, ok, "expected classified error, got %v", err)
			require.Equal(t, derrors.CategoryValidation, ce.Category())
			field, _ := ce.Context().GetString("field")
			require.Equal(t, tt.field, field)
		})
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("site: https://e.com\nsiteurl: nope\n"))
	require.Error(t, err)
	require.True(t, derrors.HasCategory(err, derrors.CategoryConfig))
}

func TestParseRejectsMalformedTuple(t *testing.T) {
	_, err := Parse([]byte("site: https://e.com\nmarkdown:\n  rehypePlugins: [[mermaid, {}, extra]]\n"))
	require.Error(t, err)
}

func TestCloneIsDeep(t *testing.T) {
	cfg := Default()
	clone := cfg.Clone()

	ext := externalLinkOptions(t, clone)
	ext["target"] = "_self"
	ext["content"].(map[string]any)["value"] = "!"
	ext["rel"].([]any)[0] = "noopener"
	clone.Integrations[0].Name = "changed"

	orig := externalLinkOptions(t, cfg)
	require.Equal(t, "_blank", orig["target"])
	require.Equal(t, " 🔗", orig["content"].(map[string]any)["value"])
	require.Equal(t, "nofollow", orig["rel"].([]any)[0])
	require.Equal(t, IntegrationMDX, cfg.Integrations[0].Name)
}

func TestIntegrationOptionsReturnsCopy(t *testing.T) {
	cfg, err := Parse([]byte("site: https://e.com\nintegrations: [{sitemap: {changefreq: daily}}]\n"))
	require.NoError(t, err)

	opts := cfg.IntegrationOptions(IntegrationSitemap)
	opts["changefreq"] = "never"
	require.Equal(t, "daily", cfg.Integrations[0].Options["changefreq"])
	require.Nil(t, cfg.IntegrationOptions(IntegrationPagefind))
}

func TestSnapshotIgnoresLoggingAndServer(t *testing.T) {
	a := Default()
	b := Default()
	b.Logging.Level = LogLevelDebug
	b.Server.Port = 9000
	require.Equal(t, a.Snapshot(), b.Snapshot())

	b.Site = "https://other.example"
	require.NotEqual(t, a.Snapshot(), b.Snapshot())
}

func TestCanonicalPluginName(t *testing.T) {
	require.Equal(t, "external-links", CanonicalPluginName("rehype-external-links"))
	require.Equal(t, "external-links", CanonicalPluginName("External_Links"))
	require.Equal(t, "pagefind", CanonicalPluginName("astro-pagefind"))
	require.Equal(t, "mdx", CanonicalPluginName(" @astrojs/mdx "))
	require.Equal(t, "custom", CanonicalPluginName("custom"))
}
