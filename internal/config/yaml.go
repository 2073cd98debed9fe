package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// pluginEntry is the shared decoded form of integration and rehype entries.
type pluginEntry struct {
	Name    string         `yaml:"name"`
	Options map[string]any `yaml:"options,omitempty"`
}

// decodePluginEntry accepts the three supported spellings of a plugin entry:
//
//	- sitemap                          # bare name
//	- [external-links, {target: x}]    # (name, options) tuple
//	- {name: sitemap, options: {...}}  # explicit mapping
//	- {sitemap: {...}}                 # single-key shorthand
func decodePluginEntry(node *yaml.Node) (pluginEntry, error) {
	var entry pluginEntry
	switch node.Kind {
	case yaml.ScalarNode:
		if err := node.Decode(&entry.Name); err != nil {
			return entry, err
		}
	case yaml.SequenceNode:
		if len(node.Content) == 0 || len(node.Content) > 2 {
			return entry, fmt.Errorf("line %d: plugin tuple must be [name] or [name, options], got %d elements", node.Line, len(node.Content))
		}
		if err := node.Content[0].Decode(&entry.Name); err != nil {
			return entry, fmt.Errorf("line %d: plugin name: %w", node.Line, err)
		}
		if len(node.Content) == 2 {
			if err := decodeOptions(node.Content[1], &entry.Options); err != nil {
				return entry, err
			}
		}
	case yaml.MappingNode:
		if hasKey(node, "name") {
			var raw struct {
				Name    string    `yaml:"name"`
				Options yaml.Node `yaml:"options"`
			}
			if err := node.Decode(&raw); err != nil {
				return entry, err
			}
			entry.Name = raw.Name
			if raw.Options.Kind != 0 {
				if err := decodeOptions(&raw.Options, &entry.Options); err != nil {
					return entry, err
				}
			}
			return entry, nil
		}
		if len(node.Content) != 2 {
			return entry, fmt.Errorf("line %d: plugin mapping must have a name key or a single plugin key", node.Line)
		}
		if err := node.Content[0].Decode(&entry.Name); err != nil {
			return entry, err
		}
		if err := decodeOptions(node.Content[1], &entry.Options); err != nil {
			return entry, err
		}
	default:
		return entry, fmt.Errorf("line %d: unsupported plugin entry", node.Line)
	}
	return entry, nil
}

func decodeOptions(node *yaml.Node, out *map[string]any) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: plugin options must be a mapping", node.Line)
	}
	return node.Decode(out)
}

func hasKey(node *yaml.Node, key string) bool {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return true
		}
	}
	return false
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (i *IntegrationConfig) UnmarshalYAML(node *yaml.Node) error {
	entry, err := decodePluginEntry(node)
	if err != nil {
		return fmt.Errorf("integration: %w", err)
	}
	i.Name, i.Options = entry.Name, entry.Options
	return nil
}

// MarshalYAML writes integrations without options as a bare name.
func (i IntegrationConfig) MarshalYAML() (any, error) {
	if len(i.Options) == 0 {
		return i.Name, nil
	}
	return map[string]any{i.Name: i.Options}, nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *RehypePluginConfig) UnmarshalYAML(node *yaml.Node) error {
	entry, err := decodePluginEntry(node)
	if err != nil {
		return fmt.Errorf("rehype plugin: %w", err)
	}
	r.Name, r.Options = entry.Name, entry.Options
	return nil
}

// MarshalYAML writes transforms as (name, options) tuples.
func (r RehypePluginConfig) MarshalYAML() (any, error) {
	if r.Options == nil {
		return []any{r.Name}, nil
	}
	return []any{r.Name, r.Options}, nil
}
