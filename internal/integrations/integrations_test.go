package integrations

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/ahmadMuhammadGd/nanosite/internal/config"
	"github.com/ahmadMuhammadGd/nanosite/internal/plugin"
	"github.com/ahmadMuhammadGd/nanosite/internal/search"
)

const outDir = "/site/dist"

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRegistry(t *testing.T) *plugin.Registry {
	t.Helper()
	r := plugin.NewRegistry()
	require.NoError(t, RegisterBuiltins(r))
	return r
}

func writePage(t *testing.T, fs afero.Fs, p PageOutput, body string) {
	t.Helper()
	full := filepath.Join(outDir, filepath.FromSlash(p.File))
	require.NoError(t, fs.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, afero.WriteFile(fs, full, []byte(body), 0o644))
}

func TestLoadDefaultIntegrationsInOrder(t *testing.T) {
	cfg := config.Default()
	set, err := Load(newRegistry(t), cfg)
	require.NoError(t, err)
	require.Equal(t, []string{"mdx", "sitemap", "tailwind", "pagefind"}, set.Names())
}

func TestLoadUnknownIntegration(t *testing.T) {
	cfg := config.Default()
	cfg.Integrations = append(cfg.Integrations, config.IntegrationConfig{Name: "partytown"})

	_, err := Load(newRegistry(t), cfg)
	var pe *plugin.PluginError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, "partytown", pe.PluginName)
	require.Equal(t, "lookup", pe.Operation)
}

func TestLoadRejectsRehypePluginAsIntegration(t *testing.T) {
	r := newRegistry(t)
	require.NoError(t, r.Register(&fakeRehype{}))
	cfg := config.Default()
	cfg.Integrations = []config.IntegrationConfig{{Name: "fake-rehype"}}

	_, err := Load(r, cfg)
	require.ErrorContains(t, err, "is not an integration")
}

func TestLoadInvalidOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Integrations = []config.IntegrationConfig{{Name: "sitemap", Options: map[string]any{"priority": 2.0}}}

	_, err := Load(newRegistry(t), cfg)
	var pe *plugin.PluginError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, "validate", pe.Operation)
}

func TestSetupHooksRunInOrder(t *testing.T) {
	var calls []string
	set := NewSet(&recording{name: "a", calls: &calls}, &recording{name: "b", calls: &calls})
	sc := NewSetupContext(config.Default(), afero.NewMemMapFs(), quietLogger())
	require.NoError(t, set.ConfigSetup(sc))

	br := NewBuildResult(config.Default(), afero.NewMemMapFs(), outDir, nil, quietLogger())
	require.NoError(t, set.BuildDone(context.Background(), br))
	require.Equal(t, []string{"a:setup", "b:setup", "a:done", "b:done"}, calls)
}

func TestBuildDoneStopsAtFirstError(t *testing.T) {
	var calls []string
	boom := errors.New("boom")
	set := NewSet(&recording{name: "a", calls: &calls, err: boom}, &recording{name: "b", calls: &calls})
	br := NewBuildResult(config.Default(), afero.NewMemMapFs(), outDir, nil, quietLogger())

	err := set.BuildDone(context.Background(), br)
	require.ErrorIs(t, err, boom)
	var pe *plugin.PluginError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, HookBuildDone, pe.Operation)
	require.Equal(t, []string{"a:done"}, calls)
}

func TestBuildDoneHonoursCancellation(t *testing.T) {
	var calls []string
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	set := NewSet(&recording{name: "a", calls: &calls})
	br := NewBuildResult(config.Default(), afero.NewMemMapFs(), outDir, nil, quietLogger())

	require.ErrorIs(t, set.BuildDone(ctx, br), context.Canceled)
	require.Empty(t, calls)
}

func TestSetupContextWorksOnCopy(t *testing.T) {
	cfg := config.Default()
	sc := NewSetupContext(cfg, afero.NewMemMapFs(), quietLogger())
	sc.Config.Site = "https://changed.example"
	require.Equal(t, config.DefaultSite, cfg.Site)
}

func TestAddPageTypeReplacesSameExtension(t *testing.T) {
	sc := NewSetupContext(config.Default(), afero.NewMemMapFs(), quietLogger())
	sc.AddPageType(PageType{Ext: ".MDX"})
	sc.AddPageType(PageType{Ext: ".mdx", RawHTML: true})
	require.Len(t, sc.PageTypes(), 1)
	require.True(t, sc.PageTypes()[0].RawHTML)
}

func TestHeadElementString(t *testing.T) {
	el := Link("stylesheet", "/a.css?x=1&y=2", [2]string{"media", "print"})
	require.Equal(t, `<link rel="stylesheet" href="/a.css?x=1&amp;y=2" media="print">`, el.String())
}

func TestMDXRegistersPageType(t *testing.T) {
	in, err := mdxFactory{}.New(map[string]any{"smartypants": false})
	require.NoError(t, err)
	sc := NewSetupContext(config.Default(), afero.NewMemMapFs(), quietLogger())
	require.NoError(t, in.ConfigSetup(sc))

	pts := sc.PageTypes()
	require.Len(t, pts, 1)
	require.Equal(t, ".mdx", pts[0].Ext)
	require.True(t, pts[0].RawHTML)
	// footnotes, definition lists and GFM; typographer disabled
	require.Len(t, pts[0].Extensions, 3)
}

func TestSitemapRequiresSite(t *testing.T) {
	cfg := config.Default()
	cfg.Site = ""
	in, err := sitemapFactory{}.New(nil)
	require.NoError(t, err)
	require.Error(t, in.ConfigSetup(NewSetupContext(cfg, afero.NewMemMapFs(), quietLogger())))
}

func TestSitemapWritesIndexAndChunks(t *testing.T) {
	fs := afero.NewMemMapFs()
	pages := []PageOutput{
		{Route: "/", URLPath: "/", Date: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
		{Route: "/blog/post/", URLPath: "/blog/post/"},
		{Route: "/drafts/wip/", URLPath: "/drafts/wip/"},
	}
	in, err := sitemapFactory{}.New(map[string]any{
		"filter":      []any{"/drafts/**"},
		"entryLimit":  1,
		"customPages": []any{"https://ahmadmuhammadgd.github.io/extra/"},
	})
	require.NoError(t, err)

	sc := NewSetupContext(config.Default(), fs, quietLogger())
	require.NoError(t, in.ConfigSetup(sc))
	require.Equal(t, `<link rel="sitemap" href="/sitemap-index.xml">`, sc.HeadElements()[0].String())

	br := NewBuildResult(config.Default(), fs, outDir, pages, quietLogger())
	require.NoError(t, in.BuildDone(context.Background(), br))
	require.Equal(t, []string{"sitemap-0.xml", "sitemap-1.xml", "sitemap-2.xml", SitemapIndexFile}, br.Written())

	index, err := afero.ReadFile(fs, filepath.Join(outDir, SitemapIndexFile))
	require.NoError(t, err)
	require.Contains(t, string(index), "<loc>https://ahmadmuhammadgd.github.io/sitemap-2.xml</loc>")

	first, err := afero.ReadFile(fs, filepath.Join(outDir, "sitemap-0.xml"))
	require.NoError(t, err)
	require.Contains(t, string(first), "<loc>https://ahmadmuhammadgd.github.io/</loc>")
	require.Contains(t, string(first), "<lastmod>2024-03-01</lastmod>")

	all := ""
	for _, f := range br.Written() {
		data, err := afero.ReadFile(fs, filepath.Join(outDir, f))
		require.NoError(t, err)
		all += string(data)
	}
	require.NotContains(t, all, "/drafts/wip/")
	require.Contains(t, all, "/extra/")
}

func TestSitemapOptionErrors(t *testing.T) {
	for _, opts := range []map[string]any{
		{"entryLimit": -1},
		{"changefreq": "sometimes"},
		{"priority": 1.5},
		{"unknown": true},
	} {
		require.Error(t, sitemapFactory{}.Validate(opts), opts)
	}
}

func TestPurgeCSS(t *testing.T) {
	src := []byte(`/* c */ .a { color: red } .b { color: blue } p { margin: 0 }
.md\:flex { display: flex }
@media (min-width: 768px) { .b { display: none } .a { display: block } }`)
	out, err := purgeCSS(src, map[string]bool{"a": true, "md:flex": true})
	require.NoError(t, err)

	s := string(out)
	require.Contains(t, s, ".a{")
	require.Contains(t, s, "p{")
	require.Contains(t, s, `.md\:flex{`)
	require.Contains(t, s, "@media")
	require.NotContains(t, s, ".b")
	require.NotContains(t, s, "/* c */")
}

func TestSelectorClasses(t *testing.T) {
	require.Equal(t, []string{"hover:underline"}, selectorClasses(`.hover\:underline:hover`))
	require.Equal(t, []string{"prose", "mermaid"}, selectorClasses(".prose .mermaid"))
	require.Nil(t, selectorClasses(`a[href=".pdf"]`))
}

func TestUsedClasses(t *testing.T) {
	used := map[string]bool{}
	require.NoError(t, usedClasses([]byte(`<div class="flex  md:flex"><p class="prose">x</p></div>`), used))
	require.Equal(t, map[string]bool{"flex": true, "md:flex": true, "prose": true}, used)
}

func TestTailwindPurgesAndLinksStylesheet(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := config.Default()
	cfg.Root = "/site"
	require.NoError(t, afero.WriteFile(fs, "/site/src/styles/site.css", []byte(".brand { color: teal } .unused-x { color: red }"), 0o644))

	in, err := tailwindFactory{}.New(map[string]any{
		"input":    []any{"src/styles/site.css"},
		"safelist": []any{"hidden"},
	})
	require.NoError(t, err)
	sc := NewSetupContext(cfg, fs, quietLogger())
	require.NoError(t, in.ConfigSetup(sc))

	head := sc.HeadElements()
	require.Len(t, head, 1)
	href := head[0].Attrs[1][1]
	require.True(t, strings.HasPrefix(href, "/_assets/tailwind."), href)
	require.True(t, strings.HasSuffix(href, ".css"), href)

	page := PageOutput{Route: "/", URLPath: "/", File: "index.html"}
	writePage(t, fs, page, `<html><body class="container"><h1 class="brand font-bold">Hi</h1></body></html>`)
	br := NewBuildResult(cfg, fs, outDir, []PageOutput{page}, quietLogger())
	require.NoError(t, in.BuildDone(context.Background(), br))

	css, err := afero.ReadFile(fs, filepath.Join(outDir, strings.TrimPrefix(href, "/")))
	require.NoError(t, err)
	s := string(css)
	require.Contains(t, s, ".brand{color:teal}")
	require.Contains(t, s, ".font-bold{")
	require.Contains(t, s, ".container{")
	require.Contains(t, s, ".hidden{")
	require.NotContains(t, s, "unused-x")
	require.NotContains(t, s, ".grid{")
}

func TestTailwindWithoutBaseStyles(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := config.Default()
	cfg.Root = "/site"
	in, err := tailwindFactory{}.New(map[string]any{"applyBaseStyles": false})
	require.NoError(t, err)
	require.NoError(t, in.ConfigSetup(NewSetupContext(cfg, fs, quietLogger())))
	require.Empty(t, in.(*Tailwind).source)
}

func TestTailwindMissingInput(t *testing.T) {
	cfg := config.Default()
	cfg.Root = "/site"
	in, err := tailwindFactory{}.New(map[string]any{"input": []any{"missing.css"}})
	require.NoError(t, err)
	require.Error(t, in.ConfigSetup(NewSetupContext(cfg, afero.NewMemMapFs(), quietLogger())))
}

func TestPagefindIndexesBody(t *testing.T) {
	fs := afero.NewMemMapFs()
	pages := []PageOutput{
		{Route: "/", URLPath: "/", File: "index.html", Fingerprint: "fp1"},
		{Route: "/guide/", URLPath: "/guide/", File: "guide/index.html", Title: "Guide"},
	}
	writePage(t, fs, pages[0], `<html><head><title>Home page</title><style>.x{}</style></head>
<body><nav data-pagefind-ignore>Navigation menu</nav><p>Welcome to the kitchen</p><script>var hidden = 1</script></body></html>`)
	writePage(t, fs, pages[1], `<html><body><h1>Guide</h1><p>Kitchen recipes and baking</p></body></html>`)

	in, err := pagefindFactory{}.New(nil)
	require.NoError(t, err)
	br := NewBuildResult(config.Default(), fs, outDir, pages, quietLogger())
	require.NoError(t, in.BuildDone(context.Background(), br))

	ix, err := search.Load(fs, outDir)
	require.NoError(t, err)

	res := ix.Search("kitchen")
	require.Len(t, res, 2)
	require.Empty(t, ix.Search("navigation"))
	require.Empty(t, ix.Search("hidden"))

	res = ix.Search("welcome")
	require.Len(t, res, 1)
	require.Equal(t, "Home page", res[0].Page.Title)
	require.Equal(t, "fp1", res[0].Page.Fingerprint)
}

func TestPagefindScopedBody(t *testing.T) {
	fs := afero.NewMemMapFs()
	pages := []PageOutput{
		{Route: "/a/", URLPath: "/a/", File: "a/index.html"},
		{Route: "/b/", URLPath: "/b/", File: "b/index.html"},
	}
	writePage(t, fs, pages[0], `<html><body><header>Header text</header><main data-pagefind-body><p>Alpha article</p></main></body></html>`)
	writePage(t, fs, pages[1], `<html><body><p>Beta article</p></body></html>`)

	in, err := pagefindFactory{}.New(nil)
	require.NoError(t, err)
	br := NewBuildResult(config.Default(), fs, outDir, pages, quietLogger())
	require.NoError(t, in.BuildDone(context.Background(), br))

	ix, err := search.Load(fs, outDir)
	require.NoError(t, err)
	require.Len(t, ix.Search("article"), 1)
	require.Empty(t, ix.Search("header"))
	require.Empty(t, ix.Search("beta"))
}

func TestExcerpt(t *testing.T) {
	require.Equal(t, "a b", excerpt([]string{"a", "b"}, 5))
	require.Equal(t, "a b…", excerpt([]string{"a", "b", "c"}, 2))
}

type recording struct {
	name  string
	calls *[]string
	err   error
}

func (r *recording) Name() string { return r.name }

func (r *recording) ConfigSetup(*SetupContext) error {
	*r.calls = append(*r.calls, r.name+":setup")
	return r.err
}

func (r *recording) BuildDone(context.Context, *BuildResult) error {
	*r.calls = append(*r.calls, r.name+":done")
	return r.err
}

type fakeRehype struct {
	plugin.BasePlugin
}

func (f *fakeRehype) Metadata() plugin.PluginMetadata {
	return plugin.PluginMetadata{Name: "fake-rehype", Version: "v0.0.1", Type: plugin.PluginTypeRehype}
}
