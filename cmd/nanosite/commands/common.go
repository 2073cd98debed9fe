package commands

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/ahmadMuhammadGd/nanosite/internal/config"
)

// Global carries state shared by subcommands.
type Global struct {
	Logger *slog.Logger
	// Stdout receives user-facing output; nil means os.Stdout.
	Stdout io.Writer
}

func (g *Global) out() io.Writer {
	if g == nil || g.Stdout == nil {
		return os.Stdout
	}
	return g.Stdout
}

func (g *Global) logger() *slog.Logger {
	if g == nil || g.Logger == nil {
		return slog.Default()
	}
	return g.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"nanosite.yaml" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" help:"Build the site into the output directory"`
	Init    InitCmd    `cmd:"" help:"Write the default configuration file"`
	Check   CheckCmd   `cmd:"" help:"Validate the configuration and print the resolved pipeline"`
	Search  SearchCmd  `cmd:"" help:"Query the search index of a built site"`
	Preview PreviewCmd `cmd:"" help:"Serve the site locally and rebuild on change"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// loadConfig reads the configuration and applies its logging section unless
// --verbose already forced debug output.
func loadConfig(g *Global, root *CLI) (*config.Config, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, err
	}
	if !root.Verbose {
		opts := &slog.HandlerOptions{Level: cfg.Logging.Level.SlogLevel()}
		var h slog.Handler = slog.NewTextHandler(os.Stderr, opts)
		if cfg.Logging.Format == config.LogFormatJSON {
			h = slog.NewJSONHandler(os.Stderr, opts)
		}
		logger := slog.New(h)
		slog.SetDefault(logger)
		if g != nil {
			g.Logger = logger
		}
	}
	return cfg, nil
}

// signalContext returns a context canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
