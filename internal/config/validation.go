package config

import (
	"fmt"
	"net/url"
	"slices"

	"github.com/gobwas/glob"

	derrors "github.com/ahmadMuhammadGd/nanosite/internal/foundation/errors"
)

// KnownIntegrations lists the integrations this build understands.
var KnownIntegrations = []string{IntegrationMDX, IntegrationSitemap, IntegrationTailwind, IntegrationPagefind}

// KnownRehypePlugins lists the markdown HTML transforms this build understands.
var KnownRehypePlugins = []string{RehypeMermaid, RehypeExternalLinks}

// Validate checks the configuration structure: the site URL, plugin names,
// plugin option shapes and ambient enums.
func (c *Config) Validate() error {
	v := &configurationValidator{config: c}
	return v.validate()
}

type configurationValidator struct {
	config *Config
}

func (cv *configurationValidator) validate() error {
	if err := cv.validateSite(); err != nil {
		return err
	}
	if err := cv.validateIntegrations(); err != nil {
		return err
	}
	if err := cv.validateRehypePlugins(); err != nil {
		return err
	}
	if err := cv.validateContent(); err != nil {
		return err
	}
	if err := cv.validateAmbient(); err != nil {
		return err
	}
	return nil
}

func (cv *configurationValidator) validateSite() error {
	site := cv.config.Site
	if site == "" {
		if cv.config.HasIntegration(IntegrationSitemap) {
			return invalid("site", "site is required when the sitemap integration is active")
		}
		return nil
	}
	u, err := url.Parse(site)
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryValidation, "site must be an absolute URL").
			WithContext("field", "site").WithContext("value", site).Fatal().Build()
	}
	if u.Scheme == "" || u.Host == "" {
		return invalid("site", fmt.Sprintf("site must be an absolute URL with scheme and host, got %q", site))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return invalid("site", fmt.Sprintf("site scheme must be http or https, got %q", u.Scheme))
	}
	return nil
}

func (cv *configurationValidator) validateIntegrations() error {
	seen := make(map[string]bool)
	for i, in := range cv.config.Integrations {
		field := fmt.Sprintf("integrations[%d]", i)
		if in.Name == "" {
			return invalid(field, "integration name cannot be empty")
		}
		if seen[in.Name] {
			return invalid(field, fmt.Sprintf("duplicate integration: %s", in.Name))
		}
		seen[in.Name] = true
		if !slices.Contains(KnownIntegrations, in.Name) {
			return invalid(field, fmt.Sprintf("unknown integration %q, valid options: %v", in.Name, KnownIntegrations))
		}
		if err := validateIntegrationOptions(field, in); err != nil {
			return err
		}
	}
	return nil
}

func (cv *configurationValidator) validateRehypePlugins() error {
	for i, p := range cv.config.Markdown.RehypePlugins {
		field := fmt.Sprintf("markdown.rehypePlugins[%d]", i)
		if p.Name == "" {
			return invalid(field, "rehype plugin name cannot be empty")
		}
		if !slices.Contains(KnownRehypePlugins, p.Name) {
			return invalid(field, fmt.Sprintf("unknown rehype plugin %q, valid options: %v", p.Name, KnownRehypePlugins))
		}
		if err := validateRehypeOptions(field, p); err != nil {
			return err
		}
	}
	return nil
}

func (cv *configurationValidator) validateContent() error {
	for _, pattern := range cv.config.Content.Ignore {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			return derrors.WrapError(err, derrors.CategoryValidation, "invalid ignore pattern").
				WithContext("field", "content.ignore").WithContext("value", pattern).Fatal().Build()
		}
	}
	return nil
}

func (cv *configurationValidator) validateAmbient() error {
	c := cv.config
	if !highlightNormalizer.IsValid(string(c.Markdown.SyntaxHighlight)) {
		return invalid("markdown.syntaxHighlight", fmt.Sprintf("invalid value %q, valid options: %v", c.Markdown.SyntaxHighlight, highlightNormalizer.ValidKeys()))
	}
	if !buildFormatNormalizer.IsValid(string(c.Build.Format)) {
		return invalid("build.format", fmt.Sprintf("invalid value %q, valid options: %v", c.Build.Format, buildFormatNormalizer.ValidKeys()))
	}
	if !logLevelNormalizer.IsValid(string(c.Logging.Level)) {
		return invalid("logging.level", fmt.Sprintf("invalid value %q, valid options: %v", c.Logging.Level, logLevelNormalizer.ValidKeys()))
	}
	if !logFormatNormalizer.IsValid(string(c.Logging.Format)) {
		return invalid("logging.format", fmt.Sprintf("invalid value %q, valid options: %v", c.Logging.Format, logFormatNormalizer.ValidKeys()))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return invalid("server.port", fmt.Sprintf("port must be between 1 and 65535, got %d", c.Server.Port))
	}
	return nil
}

func invalid(field, message string) error {
	return derrors.ValidationError(message).WithContext("field", field).Build()
}
