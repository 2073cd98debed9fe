package site

import (
	"bytes"
	"context"
	"html/template"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/ahmadMuhammadGd/nanosite/internal/config"
	derrors "github.com/ahmadMuhammadGd/nanosite/internal/foundation/errors"
	"github.com/ahmadMuhammadGd/nanosite/internal/integrations"
	"github.com/ahmadMuhammadGd/nanosite/internal/logfields"
	"github.com/ahmadMuhammadGd/nanosite/internal/version"
)

const pageTemplate = `<!DOCTYPE html>
<html lang="{{ .Lang }}">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta name="generator" content="nanosite {{ .Version }}">
<title>{{ .Title }}{{ if and .SiteTitle (ne .SiteTitle .Title) }} | {{ .SiteTitle }}{{ end }}</title>
{{- with .Description }}
<meta name="description" content="{{ . }}">
{{- end }}
{{- with .Author }}
<meta name="author" content="{{ . }}">
{{- end }}
{{- with .Canonical }}
<link rel="canonical" href="{{ . }}">
{{- end }}
{{- range .Head }}
{{ . }}
{{- end }}
</head>
<body>
<main class="prose mx-auto px-4 py-8">
<article>
{{- if not .Date.IsZero }}
<time datetime="{{ .Date.Format "2006-01-02" }}">{{ .Date.Format "January 2, 2006" }}</time>
{{- end }}
{{ .Content }}
{{- with .Tags }}
<ul class="tags">{{ range . }}<li>{{ . }}</li>{{ end }}</ul>
{{- end }}
</article>
</main>
</body>
</html>
`

var pageLayout = template.Must(template.New("page").Parse(pageTemplate))

type layoutData struct {
	Lang        string
	Version     string
	Title       string
	SiteTitle   string
	Description string
	Author      string
	Canonical   string
	Head        []template.HTML
	Date        time.Time
	Tags        []string
	Content     template.HTML
}

// OutputFile maps a route to its output file and URL path for the build
// format.
func OutputFile(route string, format config.BuildFormat) (file, urlPath string) {
	trimmed := strings.Trim(route, "/")
	if trimmed == "" {
		return "index.html", "/"
	}
	if format == config.BuildFormatFile {
		return trimmed + ".html", "/" + trimmed + ".html"
	}
	return path.Join(trimmed, "index.html"), "/" + trimmed + "/"
}

func (b *Builder) stageLayout(ctx context.Context, bs *buildState) error {
	outDir := bs.report.OutDir
	if err := b.prepareOutput(bs, outDir); err != nil {
		return err
	}
	copied, err := b.copyPublic(outDir)
	if err != nil {
		return err
	}
	bs.report.Files = append(bs.report.Files, copied...)

	head := make([]template.HTML, 0, len(bs.setup.HeadElements()))
	for _, el := range bs.setup.HeadElements() {
		// #nosec G203 -- attributes are escaped by HeadElement.String
		head = append(head, template.HTML(el.String()))
	}

	bs.outputs = make([]integrations.PageOutput, 0, len(bs.rendered))
	for _, rp := range bs.rendered {
		if err := ctx.Err(); err != nil {
			return err
		}
		file, urlPath := OutputFile(rp.page.Route, bs.cfg.Build.Format)
		data := layoutData{
			Lang:        bs.cfg.Meta.Lang,
			Version:     version.Version,
			Title:       rp.title,
			SiteTitle:   bs.cfg.Meta.Title,
			Description: rp.page.Description,
			Author:      bs.cfg.Meta.Author,
			Head:        head,
			Date:        rp.page.Date,
			Tags:        rp.page.Tags,
			// #nosec G203 -- rendered markdown, raw HTML only for page types that opt in
			Content: template.HTML(rp.html),
		}
		if data.Title == "" {
			data.Title = bs.cfg.Meta.Title
		}
		if data.Description == "" {
			data.Description = bs.cfg.Meta.Description
		}
		if bs.cfg.Site != "" {
			data.Canonical = strings.TrimSuffix(bs.cfg.Site, "/") + urlPath
		}

		var buf bytes.Buffer
		if err := pageLayout.Execute(&buf, data); err != nil {
			return derrors.WrapError(err, derrors.CategoryInternal, "execute page layout").
				WithContext("page", rp.page.SourcePath).Build()
		}
		full := filepath.Join(outDir, filepath.FromSlash(file))
		if err := writeFile(b.fs, full, buf.Bytes()); err != nil {
			return derrors.WrapError(err, derrors.CategoryFileSystem, "write page").
				WithContext("page", rp.page.SourcePath).WithContext("path", full).Build()
		}
		bs.report.Files = append(bs.report.Files, file)
		bs.outputs = append(bs.outputs, integrations.PageOutput{
			Route:       rp.page.Route,
			URLPath:     urlPath,
			File:        file,
			Title:       data.Title,
			Description: data.Description,
			Date:        rp.page.Date,
			Fingerprint: rp.page.Fingerprint,
			Draft:       rp.page.Draft,
		})
	}
	bs.report.Pages = len(bs.outputs)
	bs.logger.Info("Pages written", logfields.Count(len(bs.outputs)), logfields.Path(outDir))
	return nil
}

// prepareOutput empties the output directory when output.clean is set. It
// refuses to remove the project root or a directory containing content.
func (b *Builder) prepareOutput(bs *buildState, outDir string) error {
	if bs.cfg.Output.ShouldClean() {
		root := filepath.Clean(b.projectPath("."))
		contentDir := filepath.Clean(b.projectPath(bs.cfg.Content.Dir))
		clean := filepath.Clean(outDir)
		if clean == root || clean == string(filepath.Separator) || isWithin(contentDir, clean) {
			return derrors.ValidationError("refusing to clean output directory").
				WithContext("path", outDir).Build()
		}
		if err := b.fs.RemoveAll(outDir); err != nil {
			return derrors.WrapError(err, derrors.CategoryFileSystem, "clean output directory").
				WithContext("path", outDir).Build()
		}
	}
	if err := b.fs.MkdirAll(outDir, 0o755); err != nil {
		return derrors.WrapError(err, derrors.CategoryFileSystem, "create output directory").
			WithContext("path", outDir).Build()
	}
	return nil
}

// copyPublic copies the public directory verbatim into outDir.
func (b *Builder) copyPublic(outDir string) ([]string, error) {
	if b.cfg.Content.PublicDir == "" {
		return nil, nil
	}
	src := b.projectPath(b.cfg.Content.PublicDir)
	exists, err := afero.DirExists(b.fs, src)
	if err != nil || !exists {
		return nil, err
	}
	var copied []string
	err = afero.Walk(b.fs, src, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		data, err := afero.ReadFile(b.fs, p)
		if err != nil {
			return err
		}
		if err := writeFile(b.fs, filepath.Join(outDir, rel), data); err != nil {
			return err
		}
		copied = append(copied, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryFileSystem, "copy public directory").
			WithContext("path", src).Build()
	}
	return copied, nil
}

func writeFile(fsys afero.Fs, full string, data []byte) error {
	if err := fsys.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(fsys, full, data, 0o644)
}

// isWithin reports whether p is dir or below it.
func isWithin(p, dir string) bool {
	rel, err := filepath.Rel(dir, p)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator))
}
