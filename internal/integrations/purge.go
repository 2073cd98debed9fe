package integrations

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"golang.org/x/net/html"
)

// usedClasses collects every class name in an HTML document.
func usedClasses(doc []byte, into map[string]bool) error {
	z := html.NewTokenizer(bytes.NewReader(doc))
	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return nil
			}
			return z.Err()
		case html.StartTagToken, html.SelfClosingTagToken:
			for {
				key, val, more := z.TagAttr()
				if string(key) == "class" {
					for _, c := range strings.Fields(string(val)) {
						into[c] = true
					}
				}
				if !more {
					break
				}
			}
		}
	}
}

// purgeCSS drops selectors whose class names are not all in used. Rulesets
// left without selectors are removed; at-rules are kept.
func purgeCSS(src []byte, used map[string]bool) ([]byte, error) {
	p := css.NewParser(parse.NewInput(bytes.NewReader(src)), false)
	var out bytes.Buffer
	var selectors []string

	for {
		gt, _, data := p.Next()
		switch gt {
		case css.ErrorGrammar:
			if errors.Is(p.Err(), io.EOF) {
				return out.Bytes(), nil
			}
			return nil, p.Err()
		case css.CommentGrammar:
			continue
		case css.QualifiedRuleGrammar:
			selectors = append(selectors, joinValues(p.Values()))
		case css.BeginRulesetGrammar:
			selectors = append(selectors, joinValues(p.Values()))
			var kept []string
			for _, sel := range selectors {
				if selectorUsed(sel, used) {
					kept = append(kept, sel)
				}
			}
			selectors = selectors[:0]
			if len(kept) == 0 {
				skipRuleset(p)
				continue
			}
			out.WriteString(strings.Join(kept, ","))
			out.WriteByte('{')
		case css.EndRulesetGrammar:
			out.WriteByte('}')
		case css.DeclarationGrammar, css.CustomPropertyGrammar:
			out.Write(data)
			out.WriteByte(':')
			out.WriteString(joinValues(p.Values()))
			out.WriteByte(';')
		case css.AtRuleGrammar:
			out.Write(data)
			if v := joinValues(p.Values()); v != "" {
				out.WriteByte(' ')
				out.WriteString(v)
			}
			out.WriteByte(';')
		case css.BeginAtRuleGrammar:
			out.Write(data)
			if v := joinValues(p.Values()); v != "" {
				out.WriteByte(' ')
				out.WriteString(v)
			}
			out.WriteByte('{')
		case css.EndAtRuleGrammar:
			out.WriteByte('}')
		default:
			out.Write(data)
		}
	}
}

// skipRuleset consumes grammar up to the end of the current ruleset.
func skipRuleset(p *css.Parser) {
	for {
		gt, _, _ := p.Next()
		if gt == css.EndRulesetGrammar || gt == css.ErrorGrammar {
			return
		}
	}
}

func joinValues(values []css.Token) string {
	var b strings.Builder
	for _, v := range values {
		b.Write(v.Data)
	}
	return strings.TrimSpace(b.String())
}

// selectorUsed reports whether every class in sel is used.
func selectorUsed(sel string, used map[string]bool) bool {
	for _, c := range selectorClasses(sel) {
		if !used[c] {
			return false
		}
	}
	return true
}

// selectorClasses extracts unescaped class names from a selector,
// e.g. `.md\:flex:hover` yields "md:flex".
func selectorClasses(sel string) []string {
	var classes []string
	inAttr := false
	for i := 0; i < len(sel); i++ {
		switch c := sel[i]; {
		case c == '[':
			inAttr = true
		case c == ']':
			inAttr = false
		case c == '.' && !inAttr:
			var name strings.Builder
			j := i + 1
			for j < len(sel) {
				ch := sel[j]
				if ch == '\\' && j+1 < len(sel) {
					name.WriteByte(sel[j+1])
					j += 2
					continue
				}
				if isIdentByte(ch) {
					name.WriteByte(ch)
					j++
					continue
				}
				break
			}
			if name.Len() > 0 {
				classes = append(classes, name.String())
			}
			i = j - 1
		}
	}
	return classes
}

func isIdentByte(c byte) bool {
	return c == '-' || c == '_' || c >= 0x80 ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
