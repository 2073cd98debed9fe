package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"github.com/ahmadMuhammadGd/nanosite/cmd/nanosite/commands"
	derrors "github.com/ahmadMuhammadGd/nanosite/internal/foundation/errors"
	"github.com/ahmadMuhammadGd/nanosite/internal/version"

	// Built-in integrations and transforms register themselves.
	_ "github.com/ahmadMuhammadGd/nanosite/internal/integrations"
	_ "github.com/ahmadMuhammadGd/nanosite/internal/rehype"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("nanosite"),
		kong.Description("Build a static site from markdown with ordered integrations and HTML transforms."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)
	err := parser.Run(&commands.Global{Logger: slog.Default()}, cli)
	derrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
}
