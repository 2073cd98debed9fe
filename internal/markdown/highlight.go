package markdown

import (
	"bytes"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

// MermaidLanguage is the fence info string left untouched for the diagram
// transform.
const MermaidLanguage = "mermaid"

// codeBlockRenderer renders fenced code blocks. Mermaid fences and, when
// highlighting is off, every fence are written as
// <pre><code class="language-x">; everything else goes through chroma.
type codeBlockRenderer struct {
	highlight bool
	style     *chroma.Style
	formatter *chromahtml.Formatter
}

func newCodeBlockRenderer(opts Options) *codeBlockRenderer {
	style := styles.Get(opts.HighlightStyle)
	if style == nil {
		style = styles.Fallback
	}
	return &codeBlockRenderer{
		highlight: opts.Highlight,
		style:     style,
		formatter: chromahtml.New(chromahtml.TabWidth(4)),
	}
}

// RegisterFuncs implements renderer.NodeRenderer.
func (r *codeBlockRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(gmast.KindFencedCodeBlock, r.renderFencedCodeBlock)
}

func (r *codeBlockRenderer) renderFencedCodeBlock(w util.BufWriter, source []byte, node gmast.Node, entering bool) (gmast.WalkStatus, error) {
	if !entering {
		return gmast.WalkContinue, nil
	}
	n := node.(*gmast.FencedCodeBlock)
	lang := string(n.Language(source))

	var code bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		code.Write(seg.Value(source))
	}

	if r.highlight && lang != "" && lang != MermaidLanguage {
		if ok := r.writeHighlighted(w, lang, code.String()); ok {
			return gmast.WalkSkipChildren, nil
		}
	}

	_, _ = w.WriteString("<pre><code")
	if lang != "" {
		_, _ = w.WriteString(` class="language-`)
		_, _ = w.Write(util.EscapeHTML([]byte(lang)))
		_ = w.WriteByte('"')
	}
	_ = w.WriteByte('>')
	_, _ = w.Write(util.EscapeHTML(code.Bytes()))
	_, _ = w.WriteString("</code></pre>\n")
	return gmast.WalkSkipChildren, nil
}

// writeHighlighted formats code with chroma. It reports false when the
// language is unknown or tokenising fails so the caller emits a plain block.
func (r *codeBlockRenderer) writeHighlighted(w util.BufWriter, lang, code string) bool {
	lexer := lexers.Get(lang)
	if lexer == nil {
		return false
	}
	lexer = chroma.Coalesce(lexer)
	it, err := lexer.Tokenise(nil, code)
	if err != nil {
		return false
	}
	var buf bytes.Buffer
	if err := r.formatter.Format(&buf, r.style, it); err != nil {
		return false
	}
	_, _ = w.Write(buf.Bytes())
	_ = w.WriteByte('\n')
	return true
}
