// Package search holds the static search index written by the pagefind
// integration and the query engine used by `nanosite search`.
package search

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MinTermLength is the shortest indexed term, in runes.
const MinTermLength = 2

// Fold lower-cases s and strips diacritics so "Café" and "cafe" match.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return cases.Fold().String(out)
}

// Tokenize splits text into folded terms. Letters and digits form terms;
// everything else separates them.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(Fold(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	terms := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= MinTermLength {
			terms = append(terms, f)
		}
	}
	return terms
}
