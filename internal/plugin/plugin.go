// Package plugin provides the registry shared by nanosite's two plugin
// families: integrations, which hook into the build lifecycle, and rehype
// transforms, which rewrite the HTML rendered from markdown.
//
// Concrete families live in their own packages and register a factory that
// implements Plugin. The registry only knows names, metadata and option
// validation; instantiation is family specific.
package plugin

import (
	"fmt"
)

// Plugin describes a registered plugin.
type Plugin interface {
	// Metadata returns the plugin's identity.
	Metadata() PluginMetadata

	// Validate checks options as written in the site configuration.
	Validate(options map[string]any) error
}

// PluginMetadata describes a plugin's identity and capabilities.
type PluginMetadata struct {
	// Name is the unique plugin identifier used in configuration (e.g. "sitemap").
	Name string

	// Version is the semantic version of the implementation.
	Version string

	// Type identifies the plugin family.
	Type PluginType

	// Description provides a human-readable summary of the plugin's purpose.
	Description string

	// Capabilities lists optional features this plugin provides.
	Capabilities []PluginCapability
}

// String returns a human-readable representation of the plugin metadata.
func (m PluginMetadata) String() string {
	return fmt.Sprintf("%s@%s (%s)", m.Name, m.Version, m.Type)
}

// Validate checks if the plugin metadata is valid.
func (m PluginMetadata) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("plugin name is required")
	}
	if m.Version == "" {
		return fmt.Errorf("plugin version is required")
	}
	if !m.Type.IsValid() {
		return fmt.Errorf("invalid plugin type: %s", m.Type)
	}
	return nil
}

// HasCapability reports whether the plugin advertises c.
func (m PluginMetadata) HasCapability(c PluginCapability) bool {
	for _, have := range m.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// BasePlugin provides a permissive Validate. Plugins can embed it when they
// accept any options.
type BasePlugin struct{}

// Validate accepts any configuration.
func (b *BasePlugin) Validate(map[string]any) error {
	return nil
}
