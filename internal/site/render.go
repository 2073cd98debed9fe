package site

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ahmadMuhammadGd/nanosite/internal/config"
	"github.com/ahmadMuhammadGd/nanosite/internal/content"
	derrors "github.com/ahmadMuhammadGd/nanosite/internal/foundation/errors"
	"github.com/ahmadMuhammadGd/nanosite/internal/integrations"
	"github.com/ahmadMuhammadGd/nanosite/internal/logfields"
	"github.com/ahmadMuhammadGd/nanosite/internal/markdown"
)

type renderedPage struct {
	page  *content.Page
	title string
	html  []byte
}

// renderers returns one markdown renderer per page extension.
func renderers(cfg *config.Config, pageTypes []integrations.PageType) map[string]*markdown.Renderer {
	base := markdown.Options{
		GFM:            cfg.Markdown.GFM == nil || *cfg.Markdown.GFM,
		RawHTML:        cfg.Markdown.RawHTML == nil || *cfg.Markdown.RawHTML,
		Highlight:      cfg.Markdown.SyntaxHighlight == config.HighlightChroma,
		HighlightStyle: cfg.Markdown.HighlightStyle,
	}
	out := map[string]*markdown.Renderer{".md": markdown.New(base)}
	for _, pt := range pageTypes {
		opts := base
		opts.GFM = false
		opts.RawHTML = opts.RawHTML || pt.RawHTML
		opts.Extensions = pt.Extensions
		out[pt.Ext] = markdown.New(opts)
	}
	return out
}

func (b *Builder) stageRender(ctx context.Context, bs *buildState) error {
	rs := renderers(bs.cfg, bs.setup.PageTypes())
	results := make([]renderedPage, len(bs.pages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bs.cfg.Build.Workers())
	for i, p := range bs.pages {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			rp, err := b.renderPage(gctx, bs, rs, p)
			if err != nil {
				return err
			}
			results[i] = rp
			b.recorder.ObservePageRender(time.Since(start))
			bs.logger.Debug("Page rendered", logfields.Page(p.SourcePath), logfields.Since(start))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	bs.rendered = results
	return nil
}

func (b *Builder) renderPage(ctx context.Context, bs *buildState, rs map[string]*markdown.Renderer, p *content.Page) (renderedPage, error) {
	r, ok := rs[p.Ext]
	if !ok {
		return renderedPage{}, derrors.InternalError("no renderer for page type").
			WithContext("page", p.SourcePath).WithContext("ext", p.Ext).Build()
	}
	doc, err := r.Render(p.Body)
	if err != nil {
		return renderedPage{}, derrors.WrapError(err, derrors.CategoryMarkdown, "render markdown").
			WithContext("page", p.SourcePath).Fatal().Build()
	}
	out, err := bs.pipeline.Process(ctx, doc.HTML)
	if err != nil {
		if ctx.Err() != nil {
			return renderedPage{}, err
		}
		b.countPluginFailure(err)
		return renderedPage{}, derrors.WrapError(err, derrors.CategoryTransform, "transform page").
			WithContext("page", p.SourcePath).Fatal().Build()
	}

	title := p.Title
	if title == "" {
		title = doc.Title()
	}
	return renderedPage{page: p, title: title, html: out}, nil
}
