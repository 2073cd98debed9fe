package commands

import (
	"github.com/spf13/afero"

	"github.com/ahmadMuhammadGd/nanosite/internal/preview"
)

// PreviewCmd implements the 'preview' command.
type PreviewCmd struct {
	Port int `short:"p" help:"Port to listen on (overrides server.port)"`
}

func (p *PreviewCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	srv := preview.New(cfg, afero.NewOsFs(), preview.Options{
		ConfigPath: root.Config,
		Port:       p.Port,
		Logger:     g.logger(),
	})
	return srv.Run(ctx)
}
