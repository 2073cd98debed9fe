package commands

import (
	"fmt"

	"github.com/spf13/afero"

	"github.com/ahmadMuhammadGd/nanosite/internal/site"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Output string `short:"o" name:"output" help:"Output directory (overrides output.dir)"`
	Drafts bool   `help:"Include pages marked as draft"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	if b.Drafts {
		cfg.Content.Drafts = true
	}
	opts := []site.Option{site.WithLogger(g.logger())}
	if b.Output != "" {
		opts = append(opts, site.WithOutputDir(b.Output))
	}

	ctx, cancel := signalContext()
	defer cancel()
	report, err := site.NewBuilder(cfg, afero.NewOsFs(), opts...).Build(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(g.out(), "Built %s\n%s\n", report.OutDir, report.Summary())
	return nil
}
