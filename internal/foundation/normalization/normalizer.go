// Package normalization maps loosely written configuration values onto
// canonical enum values.
package normalization

import (
	"fmt"
	"sort"
	"strings"
)

// Normalizer provides type-safe string-to-enum normalization with error handling.
type Normalizer[T comparable] struct {
	validValues  map[string]T
	defaultValue T
	validKeys    []string // Cached for error messages
	normalize    Func
}

// Func allows custom normalization behavior.
type Func func(string) string

// NewNormalizer creates a normalizer with a map of valid string->value pairs.
// Keys are normalized by trimming and lower-casing.
func NewNormalizer[T comparable](values map[string]T, defaultValue T) *Normalizer[T] {
	return WithCustomNormalizer(values, defaultValue, defaultNormalization)
}

// WithCustomNormalizer creates a normalizer with custom string normalization.
func WithCustomNormalizer[T comparable](values map[string]T, defaultValue T, normalizer Func) *Normalizer[T] {
	normalized := make(map[string]T, len(values))
	validKeys := make([]string, 0, len(values))

	for k, v := range values {
		normalizedKey := normalizer(k)
		normalized[normalizedKey] = v
		validKeys = append(validKeys, normalizedKey)
	}

	// Sort keys for consistent error messages
	sort.Strings(validKeys)

	return &Normalizer[T]{
		validValues:  normalized,
		defaultValue: defaultValue,
		validKeys:    validKeys,
		normalize:    normalizer,
	}
}

// Normalize attempts to convert a string to the enum type.
// Returns the default value if the string is not recognized.
func (n *Normalizer[T]) Normalize(raw string) T {
	if value, exists := n.validValues[n.normalize(raw)]; exists {
		return value
	}
	return n.defaultValue
}

// NormalizeWithError attempts to convert a string to the enum type.
// Returns an error if the string is not recognized.
func (n *Normalizer[T]) NormalizeWithError(raw string) (T, error) {
	if value, exists := n.validValues[n.normalize(raw)]; exists {
		return value, nil
	}

	var zero T
	return zero, fmt.Errorf("invalid value %q, valid options: %v", raw, n.validKeys)
}

// NormalizeWithWarning converts raw and reports whether the written form
// differed from its canonical spelling.
func (n *Normalizer[T]) NormalizeWithWarning(fieldName, raw string) (T, string) {
	value := n.Normalize(raw)
	cleaned := n.normalize(raw)
	if cleaned != raw {
		return value, fmt.Sprintf("normalized %s from '%s' to '%s'", fieldName, raw, cleaned)
	}
	return value, ""
}

// IsValid reports whether raw maps onto a known value.
func (n *Normalizer[T]) IsValid(raw string) bool {
	_, ok := n.validValues[n.normalize(raw)]
	return ok
}

// ValidKeys returns all valid normalized keys.
func (n *Normalizer[T]) ValidKeys() []string {
	result := make([]string, len(n.validKeys))
	copy(result, n.validKeys)
	return result
}

// defaultNormalization provides standard string normalization.
func defaultNormalization(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Identifier normalizes plugin-style identifiers: case folded, trimmed, and
// with '_' and ' ' treated as '-'.
func Identifier(s string) string {
	s = defaultNormalization(s)
	return strings.NewReplacer("_", "-", " ", "-").Replace(s)
}
