package linkverify

import (
	"bytes"
	"context"
	"io/fs"
	"net/url"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/ahmadMuhammadGd/nanosite/internal/foundation/errors"
)

// BrokenLink is an internal link whose target is missing from the output.
type BrokenLink struct {
	// Page is the slash separated HTML file containing the link.
	Page   string
	Link   *Link
	Target string
}

// Report is the result of checking a built site.
type Report struct {
	Pages   int
	Checked int
	Broken  []BrokenLink
}

// CheckSite parses every HTML file below outDir and verifies that internal
// links resolve to a file. site is the configured site URL; absolute links
// to its host are treated as internal.
func CheckSite(ctx context.Context, fsys afero.Fs, outDir, site string) (*Report, error) {
	report := &Report{}
	var pages []string
	err := afero.Walk(fsys, outDir, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.EqualFold(filepath.Ext(p), ".html") {
			pages = append(pages, p)
		}
		return nil
	})
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "walk output directory").
			WithContext("path", outDir).Build()
	}
	sort.Strings(pages)

	for _, p := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rel, err := filepath.Rel(outDir, p)
		if err != nil {
			return nil, err
		}
		rel = filepath.ToSlash(rel)
		data, err := afero.ReadFile(fsys, p)
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryFileSystem, "read page").
				WithContext("page", rel).Build()
		}
		links, err := ExtractLinksFromReader(bytes.NewReader(data), site)
		if err != nil {
			return nil, err
		}
		report.Pages++
		for _, l := range links {
			if !ShouldVerifyLink(l) {
				continue
			}
			report.Checked++
			target, ok := resolve(rel, l.URL)
			if !ok || !exists(fsys, outDir, target) {
				report.Broken = append(report.Broken, BrokenLink{Page: rel, Link: l, Target: target})
			}
		}
	}
	return report, nil
}

// resolve maps a link found on page to an output-relative path.
func resolve(page, link string) (string, bool) {
	u, err := url.Parse(link)
	if err != nil {
		return "", false
	}
	p := u.Path
	if p == "" {
		return page, true
	}
	if !strings.HasPrefix(p, "/") {
		p = path.Join("/", path.Dir(page), p)
		if strings.HasSuffix(u.Path, "/") {
			p += "/"
		}
	}
	if strings.HasSuffix(p, "/") {
		p += "index.html"
	}
	return strings.TrimPrefix(path.Clean(p), "/"), true
}

func exists(fsys afero.Fs, outDir, target string) bool {
	full := filepath.Join(outDir, filepath.FromSlash(target))
	st, err := fsys.Stat(full)
	if err != nil {
		return false
	}
	if st.IsDir() {
		ok, _ := afero.Exists(fsys, filepath.Join(full, "index.html"))
		return ok
	}
	return true
}
