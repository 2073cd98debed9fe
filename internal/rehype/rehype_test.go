package rehype

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/ahmadMuhammadGd/nanosite/internal/config"
	"github.com/ahmadMuhammadGd/nanosite/internal/plugin"
)

func process(t *testing.T, p *Pipeline, in string) string {
	t.Helper()
	out, err := p.Process(context.Background(), []byte(in))
	require.NoError(t, err)
	return string(out)
}

func TestDefaultPipelineFromConfig(t *testing.T) {
	cfg := config.Default()
	p, err := NewPipeline(plugin.DefaultRegistry(), cfg.Markdown.RehypePlugins)
	require.NoError(t, err)
	require.Equal(t, []string{"mermaid", "external-links"}, p.Names())
}

func TestExternalLinksDefaultOptions(t *testing.T) {
	cfg := config.Default()
	p, err := NewPipeline(plugin.DefaultRegistry(), cfg.Markdown.RehypePlugins[1:])
	require.NoError(t, err)

	out := process(t, p, `<p><a href="https://go.dev/doc">Go</a> and <a href="/about/">about</a></p>`)
	require.Equal(t, `<p><a href="https://go.dev/doc" target="_blank" rel="nofollow">Go 🔗</a> and <a href="/about/">about</a></p>`, out)
}

func TestExternalLinksRules(t *testing.T) {
	tests := []struct {
		name string
		opts map[string]any
		in   string
		want string
	}{
		{
			name: "rel defaults to nofollow",
			opts: map[string]any{},
			in:   `<a href="http://x.test">x</a>`,
			want: `<a href="http://x.test" rel="nofollow">x</a>`,
		},
		{
			name: "explicit empty rel disables",
			opts: map[string]any{"rel": []any{}},
			in:   `<a href="http://x.test" rel="me">x</a>`,
			want: `<a href="http://x.test" rel="me">x</a>`,
		},
		{
			name: "rel replaced and split",
			opts: map[string]any{"rel": "nofollow noopener"},
			in:   `<a href="https://x.test" rel="me">x</a>`,
			want: `<a href="https://x.test" rel="nofollow noopener">x</a>`,
		},
		{
			name: "existing target overwritten",
			opts: map[string]any{"target": "_blank", "rel": []any{}},
			in:   `<a href="https://x.test" target="_self">x</a>`,
			want: `<a href="https://x.test" target="_blank">x</a>`,
		},
		{
			name: "protocol-relative url is external",
			opts: map[string]any{"target": "_blank"},
			in:   `<a href="//example.com/x">x</a><a href="/local">l</a>`,
			want: `<a href="//example.com/x" target="_blank" rel="nofollow">x</a><a href="/local">l</a>`,
		},
		{
			name: "mailto is not external by default",
			opts: map[string]any{"target": "_blank"},
			in:   `<a href="mailto:me@x.test">mail</a>`,
			want: `<a href="mailto:me@x.test">mail</a>`,
		},
		{
			name: "custom protocols",
			opts: map[string]any{"protocols": []any{"mailto"}, "rel": []any{}, "target": "_blank"},
			in:   `<a href="mailto:me@x.test">mail</a><a href="https://x.test">web</a>`,
			want: `<a href="mailto:me@x.test" target="_blank">mail</a><a href="https://x.test">web</a>`,
		},
		{
			name: "relative and fragment links untouched",
			opts: map[string]any{"target": "_blank", "content": map[string]any{"type": "text", "value": "!"}},
			in:   `<a href="../post/">p</a><a href="#top">t</a><a>none</a>`,
			want: `<a href="../post/">p</a><a href="#top">t</a><a>none</a>`,
		},
		{
			name: "content appended after nested markup",
			opts: map[string]any{"content": map[string]any{"type": "text", "value": " ↗"}, "rel": []any{}},
			in:   `<a href="https://x.test"><em>x</em></a>`,
			want: `<a href="https://x.test"><em>x</em> ↗</a>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := ParseExternalLinksOptions(tt.opts)
			require.NoError(t, err)
			p := NewPipelineFromTransforms(NewExternalLinks(opts))
			require.Equal(t, tt.want, process(t, p, tt.in))
		})
	}
}

func TestExternalLinksOptionErrors(t *testing.T) {
	_, err := ParseExternalLinksOptions(map[string]any{"content": map[string]any{"type": "element"}})
	require.Error(t, err)

	_, err = ParseExternalLinksOptions(map[string]any{"targett": "_blank"})
	require.Error(t, err)
}

type fakeRenderer struct {
	svg   string
	err   error
	calls []string
}

func (f *fakeRenderer) Render(_ context.Context, source string, _ RenderOptions) ([]byte, error) {
	f.calls = append(f.calls, source)
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.svg), nil
}

const mermaidBlock = `<pre><code class="language-mermaid">graph TD; A--&gt;B
</code></pre>`

func TestMermaidInlineSVG(t *testing.T) {
	r := &fakeRenderer{svg: `<?xml version="1.0"?><svg id="d"><g></g></svg>`}
	m := NewMermaid(MermaidOptions{ErrorFallback: "pre-mermaid"}, StrategyInlineSVG, r)

	out := process(t, NewPipelineFromTransforms(m), "<p>before</p>"+mermaidBlock+"<p>after</p>")
	require.Equal(t, `<p>before</p><svg id="d"><g></g></svg><p>after</p>`, out)
	require.Equal(t, []string{"graph TD; A-->B\n"}, r.calls)
}

func TestMermaidImgSVG(t *testing.T) {
	r := &fakeRenderer{svg: `<svg></svg>`}
	m := NewMermaid(MermaidOptions{}, StrategyImgSVG, r)

	out := process(t, NewPipelineFromTransforms(m), mermaidBlock)
	require.Equal(t, `<img src="data:image/svg+xml;base64,PHN2Zz48L3N2Zz4=" alt="mermaid diagram"/>`, out)
}

func TestMermaidPreStrategy(t *testing.T) {
	m := NewMermaid(MermaidOptions{}, StrategyPreMermaid, nil)
	out := process(t, NewPipelineFromTransforms(m), mermaidBlock+`<pre><code class="language-go">x</code></pre>`)
	require.Equal(t, `<pre class="mermaid">graph TD; A--&gt;B
</pre><pre><code class="language-go">x</code></pre>`, out)
}

func TestMermaidAuthoredPreBlocks(t *testing.T) {
	authored := `<pre class="mermaid" id="flow">graph LR; X--&gt;Y</pre>`

	r := &fakeRenderer{svg: `<svg id="d"></svg>`}
	m := NewMermaid(MermaidOptions{ErrorFallback: "pre-mermaid"}, StrategyInlineSVG, r)
	out := process(t, NewPipelineFromTransforms(m), authored)
	require.Equal(t, `<svg id="d"></svg>`, out)
	require.Equal(t, []string{"graph LR; X-->Y"}, r.calls)

	pre := NewMermaid(MermaidOptions{}, StrategyPreMermaid, nil)
	require.Equal(t, authored, process(t, NewPipelineFromTransforms(pre), authored))
}

func TestMermaidFallbackOnRenderFailure(t *testing.T) {
	opts, strategy, err := ParseMermaidOptions(nil)
	require.NoError(t, err)
	require.Equal(t, StrategyInlineSVG, strategy)

	m := NewMermaid(opts, strategy, &fakeRenderer{err: ErrRendererUnavailable})
	out := process(t, NewPipelineFromTransforms(m), mermaidBlock)
	require.Contains(t, out, `<pre class="mermaid">`)
}

func TestMermaidErrorFallbackFails(t *testing.T) {
	opts, strategy, err := ParseMermaidOptions(map[string]any{"errorFallback": "error"})
	require.NoError(t, err)

	boom := errors.New("boom")
	m := NewMermaid(opts, strategy, &fakeRenderer{err: boom})
	_, err = NewPipelineFromTransforms(m).Process(context.Background(), []byte(mermaidBlock))
	require.ErrorIs(t, err, boom)

	var pe *plugin.PluginError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, "mermaid", pe.PluginName)
}

func TestMermaidOptions(t *testing.T) {
	exe := "/opt/mmdc"
	opts, strategy, err := ParseMermaidOptions(map[string]any{
		"strategy":      "IMG_SVG",
		"launchOptions": map[string]any{"executablePath": exe, "args": []any{"--scale", "2"}},
	})
	require.NoError(t, err)
	require.Equal(t, StrategyImgSVG, strategy)
	require.Equal(t, exe, *opts.LaunchOptions.ExecutablePath)
	require.Equal(t, []string{"--scale", "2"}, opts.LaunchOptions.Args)

	_, _, err = ParseMermaidOptions(map[string]any{"strategy": "png"})
	require.Error(t, err)
	_, _, err = ParseMermaidOptions(map[string]any{"errorFallback": "ignore"})
	require.Error(t, err)
	_, _, err = ParseMermaidOptions(map[string]any{"launchOptions": map[string]any{"retries": -1}})
	require.Error(t, err)
}

// flakyRenderer is a shell script that fails on its first run and writes a
// diagram on the second.
const flakyRenderer = `#!/bin/sh
marker="$(dirname "$0")/ran"
if [ ! -f "$marker" ]; then
  touch "$marker"
  echo "browser crashed" >&2
  exit 1
fi
while [ $# -gt 0 ]; do
  if [ "$1" = "--output" ]; then out="$2"; fi
  shift
done
echo '<svg id="ok"></svg>' > "$out"
`

func TestCLIRendererRetriesFailedRun(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script renderer")
	}
	exe := filepath.Join(t.TempDir(), "mmdc")
	require.NoError(t, os.WriteFile(exe, []byte(flakyRenderer), 0o755))

	svg, err := NewCLIRenderer(LaunchOptions{ExecutablePath: &exe}).Render(context.Background(), "graph TD", RenderOptions{})
	require.NoError(t, err)
	require.Contains(t, string(svg), `id="ok"`)

	_ = os.Remove(filepath.Join(filepath.Dir(exe), "ran"))
	none := 0
	_, err = NewCLIRenderer(LaunchOptions{ExecutablePath: &exe, Retries: &none}).Render(context.Background(), "graph TD", RenderOptions{})
	require.ErrorContains(t, err, "browser crashed")
}

func TestCLIRendererMissingBinary(t *testing.T) {
	missing := "/nonexistent/nanosite-mmdc"
	r := NewCLIRenderer(LaunchOptions{ExecutablePath: &missing})
	_, err := r.Render(context.Background(), "graph TD", RenderOptions{})
	require.ErrorIs(t, err, ErrRendererUnavailable)
}

func TestPipelineOrderIsConfigOrder(t *testing.T) {
	reg := plugin.NewRegistry()
	require.NoError(t, RegisterBuiltins(reg))

	p, err := NewPipeline(reg, []config.RehypePluginConfig{
		{Name: "mermaid", Options: map[string]any{"strategy": "pre-mermaid"}},
		{Name: "external-links", Options: map[string]any{"rel": []any{}, "target": "_blank"}},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"mermaid", "external-links"}, p.Names())
}

func TestPipelineRejectsUnknownAndWrongType(t *testing.T) {
	reg := plugin.NewRegistry()
	require.NoError(t, RegisterBuiltins(reg))

	_, err := NewPipeline(reg, []config.RehypePluginConfig{{Name: "slug"}})
	require.Error(t, err)

	reg.MustRegister(&integrationStub{})
	_, err = NewPipeline(reg, []config.RehypePluginConfig{{Name: "stub"}})
	require.Error(t, err)

	_, err = NewPipeline(reg, []config.RehypePluginConfig{{Name: "external-links", Options: map[string]any{"bogus": 1}}})
	var pe *plugin.PluginError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, "validate", pe.Operation)
}

func TestPipelineDoesNotMutateConfigOptions(t *testing.T) {
	cfg := config.Default()
	before := cfg.Clone()
	_, err := NewPipeline(plugin.DefaultRegistry(), cfg.Markdown.RehypePlugins)
	require.NoError(t, err)
	require.Equal(t, before.Markdown.RehypePlugins, cfg.Markdown.RehypePlugins)
}

func TestPipelineHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewPipelineFromTransforms(NewMermaid(MermaidOptions{}, StrategyPreMermaid, nil))
	_, err := p.Process(ctx, []byte("<p>x</p>"))
	require.ErrorIs(t, err, context.Canceled)
}

type integrationStub struct{ plugin.BasePlugin }

func (integrationStub) Metadata() plugin.PluginMetadata {
	return plugin.PluginMetadata{Name: "stub", Version: "v0", Type: plugin.PluginTypeIntegration}
}

func TestHelpers(t *testing.T) {
	root, err := ParseFragment([]byte(`<div class="a b">one <span>two</span></div>`))
	require.NoError(t, err)
	div := root.FirstChild
	require.Equal(t, html.ElementNode, div.Type)
	require.True(t, HasClass(div, "b"))
	require.False(t, HasClass(div, "c"))
	require.Equal(t, "one two", TextContent(div))

	SetAttr(div, "id", "x")
	v, ok := Attr(div, "id")
	require.True(t, ok)
	require.Equal(t, "x", v)
}
