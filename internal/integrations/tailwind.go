package integrations

import (
	"context"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"fmt"
	"path"

	"github.com/spf13/afero"
	"github.com/tdewolff/minify/v2"
	mincss "github.com/tdewolff/minify/v2/css"

	"github.com/ahmadMuhammadGd/nanosite/internal/config"
	"github.com/ahmadMuhammadGd/nanosite/internal/logfields"
	"github.com/ahmadMuhammadGd/nanosite/internal/plugin"
)

//go:embed assets/base.css
var baseStylesheet []byte

// AssetsDir holds generated stylesheets below the output directory.
const AssetsDir = "_assets"

// TailwindOptions configures the tailwind integration.
type TailwindOptions struct {
	// ApplyBaseStyles prepends the bundled reset and utilities.
	ApplyBaseStyles *bool `mapstructure:"applyBaseStyles"`
	// Input lists stylesheets relative to the project root.
	Input []string `mapstructure:"input"`
	// Safelist names classes that are never purged.
	Safelist []string `mapstructure:"safelist"`
}

// Tailwind bundles, purges and minifies the site stylesheet.
type Tailwind struct {
	opts   TailwindOptions
	source []byte
	file   string
}

func (t *Tailwind) Name() string { return config.IntegrationTailwind }

// ConfigSetup reads the stylesheet sources and links the output file, named
// after the source hash, from every page.
func (t *Tailwind) ConfigSetup(sc *SetupContext) error {
	var src []byte
	if t.opts.ApplyBaseStyles == nil || *t.opts.ApplyBaseStyles {
		src = append(src, baseStylesheet...)
	}
	for _, in := range t.opts.Input {
		data, err := afero.ReadFile(sc.Fs, sc.ProjectPath(in))
		if err != nil {
			return fmt.Errorf("read stylesheet %s: %w", in, err)
		}
		src = append(src, '\n')
		src = append(src, data...)
	}
	t.source = src

	sum := sha256.Sum256(src)
	t.file = path.Join(AssetsDir, "tailwind."+hex.EncodeToString(sum[:4])+".css")
	sc.InjectHead(Link("stylesheet", "/"+t.file))
	return nil
}

// BuildDone purges rules for classes no page uses and writes the result.
func (t *Tailwind) BuildDone(_ context.Context, br *BuildResult) error {
	used := make(map[string]bool)
	for _, c := range t.opts.Safelist {
		used[c] = true
	}
	for _, p := range br.Pages {
		doc, err := br.ReadPage(p)
		if err != nil {
			return err
		}
		if err := usedClasses(doc, used); err != nil {
			return fmt.Errorf("scan %s: %w", p.File, err)
		}
	}

	purged, err := purgeCSS(t.source, used)
	if err != nil {
		return fmt.Errorf("purge stylesheet: %w", err)
	}
	m := minify.New()
	m.AddFunc("text/css", mincss.Minify)
	out, err := m.Bytes("text/css", purged)
	if err != nil {
		return fmt.Errorf("minify stylesheet: %w", err)
	}
	if err := br.WriteFile(t.file, out); err != nil {
		return err
	}
	br.Logger.Info("Stylesheet written", logfields.Path(t.file),
		logfields.Count(len(used)))
	return nil
}

type tailwindFactory struct{}

func (tailwindFactory) Metadata() plugin.PluginMetadata {
	return plugin.PluginMetadata{
		Name:         config.IntegrationTailwind,
		Version:      "v1.0.0",
		Type:         plugin.PluginTypeIntegration,
		Description:  "Bundles base styles and site stylesheets, purging unused class rules",
		Capabilities: []plugin.PluginCapability{plugin.CapabilityStyles},
	}
}

func (tailwindFactory) Validate(options map[string]any) error {
	var o TailwindOptions
	return plugin.DecodeOptions(options, &o)
}

func (tailwindFactory) New(options map[string]any) (Integration, error) {
	var o TailwindOptions
	if err := plugin.DecodeOptions(options, &o); err != nil {
		return nil, err
	}
	return &Tailwind{opts: o}, nil
}
