package rehype

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ahmadMuhammadGd/nanosite/internal/retry"
)

// ErrRendererUnavailable means no diagram renderer binary could be found.
var ErrRendererUnavailable = errors.New("mermaid renderer unavailable")

// DefaultRendererBinary is looked up on PATH when no executable is configured.
const DefaultRendererBinary = "mmdc"

// RenderOptions tune a single diagram render.
type RenderOptions struct {
	Theme string
}

// Renderer turns mermaid source into SVG.
type Renderer interface {
	Render(ctx context.Context, source string, opts RenderOptions) ([]byte, error)
}

// CLIRenderer renders diagrams with the mermaid command line tool.
type CLIRenderer struct {
	launch LaunchOptions
	policy retry.Policy

	once sync.Once
	path string
	err  error
}

// NewCLIRenderer returns a renderer for launch. The binary is resolved on
// first use. A failing run is retried launch.Retries times (two when unset).
func NewCLIRenderer(launch LaunchOptions) *CLIRenderer {
	retries := -1
	if launch.Retries != nil {
		retries = *launch.Retries
	}
	return &CLIRenderer{launch: launch, policy: retry.NewPolicy(retry.BackoffLinear, 0, 0, retries)}
}

func (r *CLIRenderer) resolve() (string, error) {
	r.once.Do(func() {
		if r.launch.ExecutablePath != nil && *r.launch.ExecutablePath != "" {
			r.path, r.err = exec.LookPath(*r.launch.ExecutablePath)
		} else {
			r.path, r.err = exec.LookPath(DefaultRendererBinary)
		}
		if r.err != nil {
			r.err = fmt.Errorf("%w: %v", ErrRendererUnavailable, r.err)
		}
	})
	return r.path, r.err
}

// Render writes source to a temporary file and runs the CLI on it.
func (r *CLIRenderer) Render(ctx context.Context, source string, opts RenderOptions) ([]byte, error) {
	bin, err := r.resolve()
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "nanosite-mermaid-")
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.RemoveAll(dir) }()

	in := filepath.Join(dir, "diagram.mmd")
	out := filepath.Join(dir, "diagram.svg")
	if err := os.WriteFile(in, []byte(source), 0o600); err != nil {
		return nil, err
	}

	args := []string{"--input", in, "--output", out, "--quiet"}
	if opts.Theme != "" {
		args = append(args, "--theme", opts.Theme)
	}
	args = append(args, r.launch.Args...)

	var svg []byte
	err = r.policy.Do(ctx, func(int) error {
		// #nosec G204 -- binary comes from site configuration or PATH
		cmd := exec.CommandContext(ctx, bin, args...)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			if ctx.Err() != nil {
				return retry.Permanent(ctx.Err())
			}
			return fmt.Errorf("%s: %w: %s", filepath.Base(bin), err, strings.TrimSpace(stderr.String()))
		}
		var readErr error
		svg, readErr = os.ReadFile(out) // #nosec G304 -- path inside our temp dir
		return readErr
	})
	return svg, err
}
