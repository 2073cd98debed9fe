// Package integrations implements the build hooks activated by the site
// configuration's integrations list. Hooks are dispatched to integrations in
// declaration order.
package integrations

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/yuin/goldmark"

	"github.com/ahmadMuhammadGd/nanosite/internal/config"
	"github.com/ahmadMuhammadGd/nanosite/internal/logfields"
	"github.com/ahmadMuhammadGd/nanosite/internal/plugin"
)

// Hook names used in errors and logs.
const (
	HookConfigSetup = "config:setup"
	HookBuildDone   = "build:done"
)

// Integration is an activated integration.
type Integration interface {
	Name() string

	// ConfigSetup runs before content discovery. It may register page types
	// and head elements.
	ConfigSetup(sc *SetupContext) error

	// BuildDone runs after every page has been written.
	BuildDone(ctx context.Context, br *BuildResult) error
}

// Factory is the registry entry for an integration.
type Factory interface {
	plugin.Plugin
	New(options map[string]any) (Integration, error)
}

// PageType is a content file extension and how to render it.
type PageType struct {
	// Ext includes the leading dot, e.g. ".mdx".
	Ext string
	// Extensions are goldmark extenders used for pages of this type.
	Extensions []goldmark.Extender
	// RawHTML passes embedded HTML through.
	RawHTML bool
}

// HeadElement is a void element injected into every page <head>.
type HeadElement struct {
	Tag   string
	Attrs [][2]string
}

// Link returns a <link> head element.
func Link(rel, href string, extra ...[2]string) HeadElement {
	return HeadElement{Tag: "link", Attrs: append([][2]string{{"rel", rel}, {"href", href}}, extra...)}
}

// String renders the element as HTML.
func (h HeadElement) String() string {
	var b strings.Builder
	b.WriteString("<")
	b.WriteString(h.Tag)
	for _, a := range h.Attrs {
		fmt.Fprintf(&b, ` %s="%s"`, a[0], html.EscapeString(a[1]))
	}
	b.WriteString(">")
	return b.String()
}

// SetupContext is handed to ConfigSetup.
type SetupContext struct {
	// Config is a private copy of the site configuration.
	Config *config.Config
	// Fs is the project file system; relative paths resolve against Config.Root.
	Fs     afero.Fs
	Logger *slog.Logger

	pageTypes []PageType
	head      []HeadElement
}

// NewSetupContext returns a context over a copy of cfg.
func NewSetupContext(cfg *config.Config, fs afero.Fs, logger *slog.Logger) *SetupContext {
	if logger == nil {
		logger = slog.Default()
	}
	return &SetupContext{Config: cfg.Clone(), Fs: fs, Logger: logger}
}

// AddPageType registers a content extension. A later registration for the
// same extension replaces the earlier one.
func (sc *SetupContext) AddPageType(pt PageType) {
	pt.Ext = strings.ToLower(pt.Ext)
	for i, existing := range sc.pageTypes {
		if existing.Ext == pt.Ext {
			sc.pageTypes[i] = pt
			return
		}
	}
	sc.pageTypes = append(sc.pageTypes, pt)
}

// InjectHead adds an element to every page head.
func (sc *SetupContext) InjectHead(el HeadElement) {
	sc.head = append(sc.head, el)
}

// PageTypes returns the registered page types in registration order.
func (sc *SetupContext) PageTypes() []PageType { return sc.pageTypes }

// HeadElements returns the injected head elements in injection order.
func (sc *SetupContext) HeadElements() []HeadElement { return sc.head }

// ProjectPath resolves p against the project root.
func (sc *SetupContext) ProjectPath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(sc.Config.Root, filepath.FromSlash(p))
}

// PageOutput describes a written page.
type PageOutput struct {
	Route string
	// URLPath is the path the page is served at, e.g. "/blog/post/".
	URLPath string
	// File is the slash separated output path relative to the output
	// directory, e.g. "blog/post/index.html".
	File        string
	Title       string
	Description string
	Date        time.Time
	Fingerprint string
	// Draft pages are written only when drafts are enabled and never
	// listed in the sitemap.
	Draft bool
}

// BuildResult is handed to BuildDone.
type BuildResult struct {
	Config *config.Config
	// Fs holds the output; OutDir is the output directory on it.
	Fs     afero.Fs
	OutDir string
	Pages  []PageOutput
	Logger *slog.Logger

	written []string
}

// NewBuildResult returns a result over a copy of cfg.
func NewBuildResult(cfg *config.Config, fs afero.Fs, outDir string, pages []PageOutput, logger *slog.Logger) *BuildResult {
	if logger == nil {
		logger = slog.Default()
	}
	return &BuildResult{Config: cfg.Clone(), Fs: fs, OutDir: outDir, Pages: pages, Logger: logger}
}

// WriteFile writes data to rel below the output directory.
func (br *BuildResult) WriteFile(rel string, data []byte) error {
	full := filepath.Join(br.OutDir, filepath.FromSlash(rel))
	if err := br.Fs.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	if err := afero.WriteFile(br.Fs, full, data, 0o644); err != nil {
		return err
	}
	br.written = append(br.written, path.Clean(rel))
	return nil
}

// ReadPage returns the HTML written for p.
func (br *BuildResult) ReadPage(p PageOutput) ([]byte, error) {
	return afero.ReadFile(br.Fs, filepath.Join(br.OutDir, filepath.FromSlash(p.File)))
}

// Written returns the files integrations added, in write order.
func (br *BuildResult) Written() []string { return br.written }

// AbsoluteURL resolves a root-relative URL path against the site URL.
func (br *BuildResult) AbsoluteURL(urlPath string) string {
	return strings.TrimSuffix(br.Config.Site, "/") + "/" + strings.TrimPrefix(urlPath, "/")
}

// Set is the ordered list of active integrations.
type Set struct {
	items []Integration
}

// Load instantiates the integrations named in cfg, in order.
func Load(registry *plugin.Registry, cfg *config.Config) (*Set, error) {
	s := &Set{}
	for _, ic := range cfg.Integrations {
		entry, err := registry.Get(ic.Name)
		if err != nil {
			return nil, plugin.NewPluginError(ic.Name, "lookup", err)
		}
		factory, ok := entry.(Factory)
		if !ok || entry.Metadata().Type != plugin.PluginTypeIntegration {
			return nil, plugin.NewPluginError(ic.Name, "lookup", fmt.Errorf("%s is not an integration", entry.Metadata()))
		}
		opts := config.CloneOptions(ic.Options)
		if err := factory.Validate(opts); err != nil {
			return nil, plugin.NewPluginError(ic.Name, "validate", err)
		}
		in, err := factory.New(opts)
		if err != nil {
			return nil, plugin.NewPluginError(ic.Name, "init", err)
		}
		s.items = append(s.items, in)
	}
	return s, nil
}

// NewSet wraps ready integrations.
func NewSet(items ...Integration) *Set {
	return &Set{items: items}
}

// Names returns integration names in dispatch order.
func (s *Set) Names() []string {
	names := make([]string, len(s.items))
	for i, in := range s.items {
		names[i] = in.Name()
	}
	return names
}

// ConfigSetup dispatches the setup hook in order and stops at the first error.
func (s *Set) ConfigSetup(sc *SetupContext) error {
	for _, in := range s.items {
		sc.Logger.Debug("Running integration hook", logfields.Integration(in.Name()), slog.String("hook", HookConfigSetup))
		if err := in.ConfigSetup(sc); err != nil {
			return plugin.NewPluginError(in.Name(), HookConfigSetup, err)
		}
	}
	return nil
}

// BuildDone dispatches the build hook in order and stops at the first error.
func (s *Set) BuildDone(ctx context.Context, br *BuildResult) error {
	for _, in := range s.items {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		if err := in.BuildDone(ctx, br); err != nil {
			return plugin.NewPluginError(in.Name(), HookBuildDone, err)
		}
		br.Logger.Debug("Integration finished", logfields.Integration(in.Name()),
			slog.String("hook", HookBuildDone), logfields.Since(start))
	}
	return nil
}
