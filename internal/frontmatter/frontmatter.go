// Package frontmatter splits YAML front matter from markdown pages and
// decodes the fields the site layout understands.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// ErrMissingClosingDelimiter indicates the document started with a YAML
// front matter delimiter but did not contain a closing delimiter.
var ErrMissingClosingDelimiter = errors.New("yaml frontmatter start delimiter found but closing delimiter is missing")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Split separates YAML front matter (`---` delimited) from the markdown body.
// Both LF and CRLF line endings are accepted. If the document does not start
// with a delimiter, had is false and body is the full input.
func Split(content []byte) (frontmatter []byte, body []byte, had bool, err error) {
	content = bytes.TrimPrefix(content, utf8BOM)
	nl := detectNewline(content)

	open := []byte("---" + nl)
	if !bytes.HasPrefix(content, open) {
		return nil, content, false, nil
	}
	rest := content[len(open):]

	// Empty block: the closing delimiter immediately follows.
	if bytes.HasPrefix(rest, open) {
		return []byte{}, rest[len(open):], true, nil
	}
	if bytes.Equal(rest, []byte("---")) {
		return []byte{}, []byte{}, true, nil
	}

	closeSeq := []byte(nl + "---" + nl)
	if idx := bytes.Index(rest, closeSeq); idx >= 0 {
		return rest[:idx+len(nl)], rest[idx+len(closeSeq):], true, nil
	}
	// Closing delimiter at end of file without trailing newline.
	if tail := []byte(nl + "---"); bytes.HasSuffix(rest, tail) {
		return rest[:len(rest)-len(tail)+len(nl)], []byte{}, true, nil
	}
	return nil, nil, false, ErrMissingClosingDelimiter
}

// ParseYAML parses raw YAML front matter (without delimiters) into a map.
func ParseYAML(frontmatter []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(frontmatter)) == 0 {
		return map[string]any{}, nil
	}

	var fields map[string]any
	if err := yaml.Unmarshal(frontmatter, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

// Matter holds the page fields the build consumes. Unrecognized keys are
// kept in Params.
type Matter struct {
	Title       string
	Description string
	Date        time.Time
	Draft       bool
	Tags        []string
	Params      map[string]any
}

// Parse splits content and decodes its front matter.
func Parse(content []byte) (Matter, []byte, error) {
	raw, body, had, err := Split(content)
	if err != nil {
		return Matter{}, nil, err
	}
	if !had {
		return Matter{Params: map[string]any{}}, body, nil
	}
	fields, err := ParseYAML(raw)
	if err != nil {
		return Matter{}, nil, fmt.Errorf("parse front matter: %w", err)
	}
	m, err := Decode(fields)
	if err != nil {
		return Matter{}, nil, err
	}
	return m, body, nil
}

// Decode converts a front matter map into Matter. Values are coerced
// loosely: `draft: "yes"` is rejected but `draft: "true"` is accepted, and
// `tags: "a, b"` becomes two tags.
func Decode(fields map[string]any) (Matter, error) {
	m := Matter{Params: map[string]any{}}
	for k, v := range fields {
		var err error
		switch strings.ToLower(k) {
		case "title":
			m.Title, err = cast.ToStringE(v)
		case "description":
			m.Description, err = cast.ToStringE(v)
		case "date", "pubdate":
			if v != nil {
				m.Date, err = cast.ToTimeE(v)
			}
		case "draft":
			m.Draft, err = cast.ToBoolE(v)
		case "tags":
			m.Tags, err = decodeTags(v)
		default:
			m.Params[k] = v
		}
		if err != nil {
			return Matter{}, fmt.Errorf("front matter field %q: %w", k, err)
		}
	}
	return m, nil
}

func decodeTags(v any) ([]string, error) {
	if s, ok := v.(string); ok {
		var tags []string
		for _, part := range strings.Split(s, ",") {
			if t := strings.TrimSpace(part); t != "" {
				tags = append(tags, t)
			}
		}
		return tags, nil
	}
	return cast.ToStringSliceE(v)
}

func detectNewline(content []byte) string {
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}
