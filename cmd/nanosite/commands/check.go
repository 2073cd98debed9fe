package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/ahmadMuhammadGd/nanosite/internal/config"
	derrors "github.com/ahmadMuhammadGd/nanosite/internal/foundation/errors"
	"github.com/ahmadMuhammadGd/nanosite/internal/integrations"
	"github.com/ahmadMuhammadGd/nanosite/internal/linkverify"
	"github.com/ahmadMuhammadGd/nanosite/internal/plugin"
	"github.com/ahmadMuhammadGd/nanosite/internal/rehype"
	"github.com/ahmadMuhammadGd/nanosite/internal/site"
)

// CheckCmd implements the 'check' command.
type CheckCmd struct {
	Links bool `help:"Build in memory and verify that internal links resolve"`
}

func (c *CheckCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	registry := plugin.DefaultRegistry()
	if _, err := integrations.Load(registry, cfg); err != nil {
		return derrors.WrapError(err, derrors.CategoryIntegration, "resolve integrations").Build()
	}
	pipeline, err := rehype.NewPipeline(registry, cfg.Markdown.RehypePlugins)
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryTransform, "resolve transforms").Build()
	}

	w := g.out()
	printPipeline(w, cfg, registry, pipeline)
	if !c.Links {
		return nil
	}
	return checkLinks(g, cfg, w)
}

func printPipeline(w io.Writer, cfg *config.Config, registry *plugin.Registry, pipeline *rehype.Pipeline) {
	_, _ = fmt.Fprintf(w, "site: %s\n", cfg.Site)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "\nintegrations:")
	for i, name := range cfg.IntegrationNames() {
		describe(tw, i, name, registry)
	}
	_, _ = fmt.Fprintln(tw, "\nrehype plugins:")
	for i, name := range pipeline.Names() {
		describe(tw, i, name, registry)
	}
	_ = tw.Flush()
}

func describe(w io.Writer, i int, name string, registry *plugin.Registry) {
	p, err := registry.Get(name)
	if err != nil {
		_, _ = fmt.Fprintf(w, "  %d.\t%s\t(unregistered)\n", i+1, name)
		return
	}
	md := p.Metadata()
	caps := make([]string, 0, len(md.Capabilities))
	for _, c := range md.Capabilities {
		caps = append(caps, c.String())
	}
	_, _ = fmt.Fprintf(w, "  %d.\t%s\t%s\t[%s]\t%s\n", i+1, md.Name, md.Version, strings.Join(caps, ","), md.Description)
}

// checkLinks builds into an in-memory layer over the project and verifies
// the internal links of the result. The output goes to a fresh directory so
// files left by an earlier build on disk cannot satisfy a link.
func checkLinks(g *Global, cfg *config.Config, w io.Writer) error {
	fs := afero.NewCopyOnWriteFs(afero.NewReadOnlyFs(afero.NewOsFs()), afero.NewMemMapFs())
	ctx, cancel := signalContext()
	defer cancel()

	outDir := filepath.Join(os.TempDir(), "nanosite-check-"+uuid.NewString())
	b := site.NewBuilder(cfg, fs, site.WithLogger(g.logger()), site.WithOutputDir(outDir))
	if _, err := b.Build(ctx); err != nil {
		return err
	}
	report, err := linkverify.CheckSite(ctx, fs, b.OutputDir(), cfg.Site)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "\nlinks: %d checked on %d pages, %d broken\n", report.Checked, report.Pages, len(report.Broken))
	for _, bl := range report.Broken {
		_, _ = fmt.Fprintf(w, "  %s: %s -> %s\n", bl.Page, bl.Link.URL, bl.Target)
	}
	if len(report.Broken) > 0 {
		return derrors.ValidationError(fmt.Sprintf("%d broken internal links", len(report.Broken))).
			WithContext("pages", report.Pages).Build()
	}
	return nil
}
