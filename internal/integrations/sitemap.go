package integrations

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"slices"

	"github.com/gobwas/glob"

	"github.com/ahmadMuhammadGd/nanosite/internal/config"
	"github.com/ahmadMuhammadGd/nanosite/internal/logfields"
	"github.com/ahmadMuhammadGd/nanosite/internal/plugin"
)

const (
	sitemapXMLNS        = "http://www.sitemaps.org/schemas/sitemap/0.9"
	SitemapIndexFile    = "sitemap-index.xml"
	defaultEntryLimit   = 45000
	sitemapLastmodStyle = "2006-01-02"
)

var changefreqs = []string{"always", "hourly", "daily", "weekly", "monthly", "yearly", "never"}

// SitemapOptions configures the sitemap integration.
type SitemapOptions struct {
	// Filter lists route globs to leave out, e.g. "/drafts/**".
	Filter     []string `mapstructure:"filter"`
	Changefreq string   `mapstructure:"changefreq"`
	Priority   *float64 `mapstructure:"priority"`
	EntryLimit int      `mapstructure:"entryLimit"`
	// CustomPages are extra absolute URLs to list.
	CustomPages []string `mapstructure:"customPages"`
}

type sitemapURL struct {
	Loc        string   `xml:"loc"`
	Lastmod    string   `xml:"lastmod,omitempty"`
	Changefreq string   `xml:"changefreq,omitempty"`
	Priority   *float64 `xml:"priority,omitempty"`
}

type urlset struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapRef struct {
	Loc string `xml:"loc"`
}

type sitemapIndex struct {
	XMLName  xml.Name     `xml:"sitemapindex"`
	XMLNS    string       `xml:"xmlns,attr"`
	Sitemaps []sitemapRef `xml:"sitemap"`
}

// Sitemap writes sitemap-N.xml chunks and a sitemap index.
type Sitemap struct {
	opts   SitemapOptions
	filter []glob.Glob
}

func parseSitemapOptions(options map[string]any) (SitemapOptions, []glob.Glob, error) {
	var o SitemapOptions
	if err := plugin.DecodeOptions(options, &o); err != nil {
		return o, nil, err
	}
	if o.EntryLimit == 0 {
		o.EntryLimit = defaultEntryLimit
	}
	if o.EntryLimit < 0 {
		return o, nil, fmt.Errorf("entryLimit must be positive, got %d", o.EntryLimit)
	}
	if o.Changefreq != "" && !slices.Contains(changefreqs, o.Changefreq) {
		return o, nil, fmt.Errorf("changefreq %q is not one of %v", o.Changefreq, changefreqs)
	}
	if o.Priority != nil && (*o.Priority < 0 || *o.Priority > 1) {
		return o, nil, fmt.Errorf("priority must be between 0 and 1, got %v", *o.Priority)
	}
	globs := make([]glob.Glob, 0, len(o.Filter))
	for _, f := range o.Filter {
		g, err := glob.Compile(f, '/')
		if err != nil {
			return o, nil, fmt.Errorf("filter %q: %w", f, err)
		}
		globs = append(globs, g)
	}
	return o, globs, nil
}

func (s *Sitemap) Name() string { return config.IntegrationSitemap }

func (s *Sitemap) ConfigSetup(sc *SetupContext) error {
	if sc.Config.Site == "" {
		return errors.New("the sitemap integration requires site to be set")
	}
	sc.InjectHead(Link("sitemap", "/"+SitemapIndexFile))
	return nil
}

func (s *Sitemap) BuildDone(_ context.Context, br *BuildResult) error {
	var urls []sitemapURL
	for _, p := range br.Pages {
		if p.Draft || s.excluded(p.Route) {
			continue
		}
		u := sitemapURL{Loc: br.AbsoluteURL(p.URLPath), Changefreq: s.opts.Changefreq, Priority: s.opts.Priority}
		if !p.Date.IsZero() {
			u.Lastmod = p.Date.UTC().Format(sitemapLastmodStyle)
		}
		urls = append(urls, u)
	}
	for _, custom := range s.opts.CustomPages {
		urls = append(urls, sitemapURL{Loc: custom, Changefreq: s.opts.Changefreq, Priority: s.opts.Priority})
	}

	index := sitemapIndex{XMLNS: sitemapXMLNS}
	for i := 0; i == 0 || i*s.opts.EntryLimit < len(urls); i++ {
		end := min((i+1)*s.opts.EntryLimit, len(urls))
		name := fmt.Sprintf("sitemap-%d.xml", i)
		data, err := marshalXML(urlset{XMLNS: sitemapXMLNS, URLs: urls[i*s.opts.EntryLimit : end]})
		if err != nil {
			return err
		}
		if err := br.WriteFile(name, data); err != nil {
			return err
		}
		index.Sitemaps = append(index.Sitemaps, sitemapRef{Loc: br.AbsoluteURL(name)})
	}

	data, err := marshalXML(index)
	if err != nil {
		return err
	}
	if err := br.WriteFile(SitemapIndexFile, data); err != nil {
		return err
	}
	br.Logger.Info("Sitemap written", logfields.Count(len(urls)), logfields.Path(SitemapIndexFile))
	return nil
}

func (s *Sitemap) excluded(route string) bool {
	for _, g := range s.filter {
		if g.Match(route) {
			return true
		}
	}
	return false
}

func marshalXML(v any) ([]byte, error) {
	data, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), append(data, '\n')...), nil
}

type sitemapFactory struct{}

func (sitemapFactory) Metadata() plugin.PluginMetadata {
	return plugin.PluginMetadata{
		Name:         config.IntegrationSitemap,
		Version:      "v1.0.0",
		Type:         plugin.PluginTypeIntegration,
		Description:  "Writes sitemap-index.xml and chunked sitemaps with absolute URLs",
		Capabilities: []plugin.PluginCapability{plugin.CapabilitySitemap},
	}
}

func (sitemapFactory) Validate(options map[string]any) error {
	_, _, err := parseSitemapOptions(options)
	return err
}

func (sitemapFactory) New(options map[string]any) (Integration, error) {
	o, globs, err := parseSitemapOptions(options)
	if err != nil {
		return nil, err
	}
	return &Sitemap{opts: o, filter: globs}, nil
}
