package config

import (
	"fmt"
	"strings"
)

// NormalizationResult captures adjustments made while canonicalizing a
// loaded configuration.
type NormalizationResult struct {
	Warnings []string
}

// NormalizeConfig canonicalizes plugin names and enum spellings in place.
// Unknown enum values are left untouched for Validate to report.
func NormalizeConfig(c *Config) (*NormalizationResult, error) {
	if c == nil {
		return nil, fmt.Errorf("config nil")
	}
	res := &NormalizationResult{}

	c.Site = strings.TrimSpace(c.Site)

	for i := range c.Integrations {
		in := &c.Integrations[i]
		res.warnChanged(fmt.Sprintf("integrations[%d]", i), in.Name, setName(&in.Name))
	}
	for i := range c.Markdown.RehypePlugins {
		p := &c.Markdown.RehypePlugins[i]
		res.warnChanged(fmt.Sprintf("markdown.rehypePlugins[%d]", i), p.Name, setName(&p.Name))
	}

	if c.Markdown.SyntaxHighlight != "" {
		raw := string(c.Markdown.SyntaxHighlight)
		if hm := NormalizeHighlightMode(raw); hm != "" {
			res.warnChanged("markdown.syntaxHighlight", raw, string(hm))
			c.Markdown.SyntaxHighlight = hm
		}
	}
	if c.Build.Format != "" {
		raw := string(c.Build.Format)
		if bf := NormalizeBuildFormat(raw); bf != "" {
			res.warnChanged("build.format", raw, string(bf))
			c.Build.Format = bf
		}
	}
	if c.Logging.Level != "" {
		raw := string(c.Logging.Level)
		if logLevelNormalizer.IsValid(raw) {
			lvl := NormalizeLogLevel(raw)
			res.warnChanged("logging.level", raw, string(lvl))
			c.Logging.Level = lvl
		}
	}
	if c.Logging.Format != "" {
		raw := string(c.Logging.Format)
		if logFormatNormalizer.IsValid(raw) {
			f := NormalizeLogFormat(raw)
			res.warnChanged("logging.format", raw, string(f))
			c.Logging.Format = f
		}
	}
	if c.Server.MetricsPath != "" && !strings.HasPrefix(c.Server.MetricsPath, "/") {
		old := c.Server.MetricsPath
		c.Server.MetricsPath = "/" + old
		res.warnChanged("server.metricsPath", old, c.Server.MetricsPath)
	}
	return res, nil
}

func setName(name *string) string {
	*name = CanonicalPluginName(*name)
	return *name
}

func (r *NormalizationResult) warnChanged(field, from, to string) {
	if from != to {
		r.Warnings = append(r.Warnings, fmt.Sprintf("normalized %s from '%s' to '%s'", field, from, to))
	}
}
