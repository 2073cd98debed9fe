package config

import "slices"

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	out := *c
	out.Integrations = make([]IntegrationConfig, len(c.Integrations))
	for i, in := range c.Integrations {
		out.Integrations[i] = IntegrationConfig{Name: in.Name, Options: CloneOptions(in.Options)}
	}
	out.Markdown.RehypePlugins = make([]RehypePluginConfig, len(c.Markdown.RehypePlugins))
	for i, p := range c.Markdown.RehypePlugins {
		out.Markdown.RehypePlugins[i] = RehypePluginConfig{Name: p.Name, Options: CloneOptions(p.Options)}
	}
	if c.Markdown.GFM != nil {
		v := *c.Markdown.GFM
		out.Markdown.GFM = &v
	}
	if c.Markdown.RawHTML != nil {
		v := *c.Markdown.RawHTML
		out.Markdown.RawHTML = &v
	}
	if c.Output.Clean != nil {
		v := *c.Output.Clean
		out.Output.Clean = &v
	}
	out.Content.Ignore = slices.Clone(c.Content.Ignore)
	return &out
}

// CloneOptions deep copies a plugin option map.
func CloneOptions(opts map[string]any) map[string]any {
	if opts == nil {
		return nil
	}
	out := make(map[string]any, len(opts))
	for k, v := range opts {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneOptions(t)
	case map[any]any:
		m := make(map[any]any, len(t))
		for k, vv := range t {
			m[k] = cloneValue(vv)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, vv := range t {
			s[i] = cloneValue(vv)
		}
		return s
	case []string:
		return slices.Clone(t)
	default:
		return v
	}
}

// IntegrationOptions returns a copy of the named integration's options, or
// nil when it is not active.
func (c *Config) IntegrationOptions(name string) map[string]any {
	for _, in := range c.Integrations {
		if in.Name == name {
			return CloneOptions(in.Options)
		}
	}
	return nil
}
