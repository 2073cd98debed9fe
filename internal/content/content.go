// Package content discovers markdown pages below the content directory and
// derives their routes.
package content

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"github.com/inful/mdfp"
	"github.com/spf13/afero"
	"github.com/spf13/cast"

	"github.com/ahmadMuhammadGd/nanosite/internal/config"
	derrors "github.com/ahmadMuhammadGd/nanosite/internal/foundation/errors"
	"github.com/ahmadMuhammadGd/nanosite/internal/frontmatter"
	"github.com/ahmadMuhammadGd/nanosite/internal/logfields"
)

// Page is one markdown source file.
type Page struct {
	// SourcePath is the slash separated path relative to the content directory.
	SourcePath string
	// Ext is the lower-cased file extension including the dot.
	Ext string
	// Route is the URL path, always starting and ending with "/".
	Route string

	Title       string
	Description string
	Date        time.Time
	Draft       bool
	Tags        []string
	Params      map[string]any

	// Body is the markdown with front matter removed.
	Body []byte
	// Fingerprint identifies the page content (front matter and body).
	Fingerprint string
}

// Discover walks the content directory below root and returns the pages whose
// extension is in extensions, sorted by route. A missing content directory
// yields no pages.
func Discover(fsys afero.Fs, root string, cfg config.ContentConfig, extensions []string) ([]*Page, error) {
	dir := cfg.Dir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}
	exists, err := afero.DirExists(fsys, dir)
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryFileSystem, "stat content directory").
			WithContext("path", dir).Build()
	}
	if !exists {
		slog.Warn("Content directory not found", logfields.Path(dir))
		return nil, nil
	}

	ignores, err := compileIgnores(cfg.Ignore)
	if err != nil {
		return nil, err
	}
	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(ext)] = true
	}

	var pages []*Page
	routes := make(map[string]string)
	walkErr := afero.Walk(fsys, dir, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}
		name := info.Name()
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || matchesAny(ignores, rel) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() || !allowed[strings.ToLower(filepath.Ext(name))] {
			return nil
		}

		page, err := load(fsys, p, rel)
		if err != nil {
			return err
		}
		if page.Draft && !cfg.Drafts {
			slog.Debug("Skipping draft", logfields.Page(rel))
			return nil
		}
		if other, dup := routes[page.Route]; dup {
			return derrors.ValidationError(fmt.Sprintf("route %s is produced by both %s and %s", page.Route, other, rel)).
				WithContext("page", rel).Build()
		}
		routes[page.Route] = rel
		pages = append(pages, page)
		return nil
	})
	if walkErr != nil {
		if derrors.IsClassified(walkErr) {
			return nil, walkErr
		}
		return nil, derrors.WrapError(walkErr, derrors.CategoryFileSystem, "walk content directory").
			WithContext("path", dir).Build()
	}

	sort.Slice(pages, func(i, j int) bool { return pages[i].Route < pages[j].Route })
	return pages, nil
}

func load(fsys afero.Fs, p, rel string) (*Page, error) {
	data, err := afero.ReadFile(fsys, p)
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryFileSystem, "read page").WithContext("page", rel).Build()
	}
	raw, body, _, err := frontmatter.Split(data)
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryMarkdown, "split front matter").WithContext("page", rel).Build()
	}
	fields, err := frontmatter.ParseYAML(raw)
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryMarkdown, "parse front matter").WithContext("page", rel).Build()
	}
	m, err := frontmatter.Decode(fields)
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryMarkdown, "decode front matter").WithContext("page", rel).Build()
	}

	page := &Page{
		SourcePath:  rel,
		Ext:         strings.ToLower(path.Ext(rel)),
		Title:       m.Title,
		Description: m.Description,
		Date:        m.Date,
		Draft:       m.Draft,
		Tags:        m.Tags,
		Params:      m.Params,
		Body:        body,
		Fingerprint: mdfp.CalculateFingerprintFromParts(strings.TrimSuffix(string(raw), "\n"), string(body)),
	}
	page.Route = Route(rel, cast.ToString(m.Params["slug"]))
	return page, nil
}

// Route derives the URL path for a content file. "index" files map to their
// directory; slug, when set, replaces the file name segment.
func Route(rel, slug string) string {
	rel = filepath.ToSlash(rel)
	dir, file := path.Split(rel)
	name := strings.TrimSuffix(file, path.Ext(file))
	if slug != "" {
		name = strings.Trim(slug, "/")
	}
	var p string
	if name == "index" || name == "" {
		p = dir
	} else {
		p = dir + name
	}
	p = strings.Trim(p, "/")
	if p == "" {
		return "/"
	}
	return "/" + p + "/"
}

func compileIgnores(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, derrors.WrapError(err, derrors.CategoryValidation, "invalid ignore pattern").
				WithContext("pattern", pattern).Build()
		}
		out = append(out, g)
	}
	return out, nil
}

func matchesAny(globs []glob.Glob, rel string) bool {
	for _, g := range globs {
		if g.Match(rel) {
			return true
		}
	}
	return false
}
