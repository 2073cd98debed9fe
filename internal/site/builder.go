package site

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/ahmadMuhammadGd/nanosite/internal/config"
	"github.com/ahmadMuhammadGd/nanosite/internal/content"
	derrors "github.com/ahmadMuhammadGd/nanosite/internal/foundation/errors"
	"github.com/ahmadMuhammadGd/nanosite/internal/integrations"
	"github.com/ahmadMuhammadGd/nanosite/internal/logfields"
	"github.com/ahmadMuhammadGd/nanosite/internal/metrics"
	"github.com/ahmadMuhammadGd/nanosite/internal/plugin"
	"github.com/ahmadMuhammadGd/nanosite/internal/rehype"
)

// Builder builds a site from a configuration.
type Builder struct {
	cfg      *config.Config
	fs       afero.Fs
	registry *plugin.Registry
	recorder metrics.Recorder
	logger   *slog.Logger
	outDir   string
}

// Option configures a Builder.
type Option func(*Builder)

// WithRegistry resolves integrations and transforms from r instead of the
// default registry.
func WithRegistry(r *plugin.Registry) Option {
	return func(b *Builder) { b.registry = r }
}

// WithRecorder reports stage and page metrics to r.
func WithRecorder(r metrics.Recorder) Option {
	return func(b *Builder) { b.recorder = r }
}

// WithLogger sets the build logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// WithOutputDir overrides output.dir.
func WithOutputDir(dir string) Option {
	return func(b *Builder) { b.outDir = dir }
}

// NewBuilder returns a builder over a copy of cfg. Relative directories
// resolve against cfg.Root on fs.
func NewBuilder(cfg *config.Config, fs afero.Fs, opts ...Option) *Builder {
	b := &Builder{
		cfg:      cfg.Clone(),
		fs:       fs,
		registry: plugin.DefaultRegistry(),
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
		outDir:   cfg.Output.Dir,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.recorder == nil {
		b.recorder = metrics.NoopRecorder{}
	}
	return b
}

// OutputDir returns the resolved output directory.
func (b *Builder) OutputDir() string {
	return b.projectPath(b.outDir)
}

func (b *Builder) projectPath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(b.cfg.Root, filepath.FromSlash(p))
}

type buildState struct {
	cfg    *config.Config
	logger *slog.Logger
	report *Report

	set      *integrations.Set
	setup    *integrations.SetupContext
	pipeline *rehype.Pipeline
	pages    []*content.Page
	rendered []renderedPage
	outputs  []integrations.PageOutput
}

// Build runs every stage and returns the report. On failure the report is
// still returned, with Outcome set.
func (b *Builder) Build(ctx context.Context) (*Report, error) {
	id := uuid.NewString()
	bs := &buildState{
		cfg:    b.cfg,
		logger: b.logger.With(logfields.BuildID(id)),
		report: newReport(id),
	}
	bs.report.OutDir = b.OutputDir()
	bs.logger.Info("Build started", logfields.Path(bs.report.OutDir))

	err := b.runStages(ctx, bs, []stage{
		{StageSetup, b.stageSetup},
		{StageDiscover, b.stageDiscover},
		{StageRender, b.stageRender},
		{StageLayout, b.stageLayout},
		{StageIntegrations, b.stageIntegrations},
	})

	r := bs.report
	r.End = time.Now()
	b.recorder.ObserveBuildDuration(r.Duration())
	switch {
	case err == nil:
		r.Outcome = OutcomeSuccess
		b.recorder.IncBuildOutcome(metrics.BuildOutcomeSuccess)
		b.recorder.SetPagesBuilt(r.Pages)
		bs.logger.Info("Build complete", logfields.Count(r.Pages), logfields.Since(r.Start))
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		r.Outcome = OutcomeCanceled
		b.recorder.IncBuildOutcome(metrics.BuildOutcomeCanceled)
		bs.logger.Warn("Build canceled", logfields.Error(err))
	default:
		r.Outcome = OutcomeFailed
		b.recorder.IncBuildOutcome(metrics.BuildOutcomeFailed)
		bs.logger.Error("Build failed", logfields.Error(err))
	}
	return r, err
}

func (b *Builder) stageSetup(_ context.Context, bs *buildState) error {
	set, err := integrations.Load(b.registry, bs.cfg)
	if err != nil {
		return b.pluginFailure(err, derrors.CategoryIntegration)
	}
	sc := integrations.NewSetupContext(bs.cfg, b.fs, bs.logger)
	if err := set.ConfigSetup(sc); err != nil {
		return b.pluginFailure(err, derrors.CategoryIntegration)
	}
	pipeline, err := rehype.NewPipeline(b.registry, bs.cfg.Markdown.RehypePlugins)
	if err != nil {
		return b.pluginFailure(err, derrors.CategoryTransform)
	}
	bs.set, bs.setup, bs.pipeline = set, sc, pipeline
	bs.report.Integrations = set.Names()
	bs.report.Transforms = pipeline.Names()
	return nil
}

func (b *Builder) stageDiscover(_ context.Context, bs *buildState) error {
	exts := []string{".md"}
	for _, pt := range bs.setup.PageTypes() {
		exts = append(exts, pt.Ext)
	}
	pages, err := content.Discover(b.fs, bs.cfg.Root, bs.cfg.Content, exts)
	if err != nil {
		return err
	}
	bs.pages = pages
	bs.logger.Info("Content discovered", logfields.Count(len(pages)))
	return nil
}

func (b *Builder) stageIntegrations(ctx context.Context, bs *buildState) error {
	br := integrations.NewBuildResult(bs.cfg, b.fs, bs.report.OutDir, bs.outputs, bs.logger)
	if err := bs.set.BuildDone(ctx, br); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return b.pluginFailure(err, derrors.CategoryIntegration)
	}
	bs.report.Files = append(bs.report.Files, br.Written()...)
	return nil
}

// pluginFailure counts plugin errors and classifies err under cat.
func (b *Builder) pluginFailure(err error, cat derrors.ErrorCategory) error {
	pe, ok := b.countPluginFailure(err)
	if !ok || derrors.IsClassified(err) {
		return err
	}
	return derrors.WrapError(err, cat, "plugin failed").
		WithContext("plugin", pe.PluginName).
		WithContext("operation", pe.Operation).
		Fatal().Build()
}

func (b *Builder) countPluginFailure(err error) (*plugin.PluginError, bool) {
	var pe *plugin.PluginError
	if !errors.As(err, &pe) {
		return nil, false
	}
	b.recorder.IncPluginFailure(pe.PluginName, pe.Operation)
	return pe, true
}
