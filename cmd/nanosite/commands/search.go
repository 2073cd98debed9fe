package commands

import (
	"fmt"

	"github.com/spf13/afero"

	derrors "github.com/ahmadMuhammadGd/nanosite/internal/foundation/errors"
	"github.com/ahmadMuhammadGd/nanosite/internal/search"
	"github.com/ahmadMuhammadGd/nanosite/internal/site"
)

// SearchCmd implements the 'search' command. It queries the index a
// previous build wrote.
type SearchCmd struct {
	Query string `arg:"" help:"Search terms"`
	Dir   string `help:"Built site directory (defaults to output.dir)" type:"path"`
	Limit int    `short:"n" default:"10" help:"Maximum number of results"`
}

func (s *SearchCmd) Run(g *Global, root *CLI) error {
	dir := s.Dir
	if dir == "" {
		cfg, err := loadConfig(g, root)
		if err != nil {
			return err
		}
		dir = site.NewBuilder(cfg, afero.NewOsFs()).OutputDir()
	}

	ix, err := search.Load(afero.NewOsFs(), dir)
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryNotFound, "load search index").
			WithContext("dir", dir).Build()
	}

	w := g.out()
	results := ix.Search(s.Query)
	if len(results) == 0 {
		_, _ = fmt.Fprintf(w, "No results for %q\n", s.Query)
		return nil
	}
	if s.Limit > 0 && len(results) > s.Limit {
		results = results[:s.Limit]
	}
	for _, r := range results {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", r.URL, r.Title)
		if r.Excerpt != "" {
			_, _ = fmt.Fprintf(w, "\t%s\n", r.Excerpt)
		}
	}
	return nil
}
