package plugin

import "fmt"

// PluginType identifies the category of plugin.
type PluginType string

const (
	// PluginTypeIntegration hooks into the build lifecycle.
	PluginTypeIntegration PluginType = "integration"

	// PluginTypeRehype transforms the HTML tree rendered from markdown.
	PluginTypeRehype PluginType = "rehype"
)

// IsValid returns true if the plugin type is recognized.
func (t PluginType) IsValid() bool {
	switch t {
	case PluginTypeIntegration, PluginTypeRehype:
		return true
	default:
		return false
	}
}

// String returns the string representation of the plugin type.
func (t PluginType) String() string {
	return string(t)
}

// PluginCapability describes optional features a plugin may provide.
type PluginCapability string

const (
	// CapabilitySearch indicates the plugin produces a search index.
	CapabilitySearch PluginCapability = "search"

	// CapabilitySitemap indicates the plugin writes sitemap files.
	CapabilitySitemap PluginCapability = "sitemap"

	// CapabilityStyles indicates the plugin contributes stylesheets.
	CapabilityStyles PluginCapability = "styles"

	// CapabilityMarkdown indicates the plugin extends markdown parsing.
	CapabilityMarkdown PluginCapability = "markdown"

	// CapabilityMermaid indicates the plugin renders Mermaid diagrams.
	CapabilityMermaid PluginCapability = "mermaid"

	// CapabilityLinks indicates the plugin rewrites links.
	CapabilityLinks PluginCapability = "links"
)

// String returns the string representation of the capability.
func (c PluginCapability) String() string {
	return string(c)
}

// PluginError represents an error that occurred within a plugin.
type PluginError struct {
	// PluginName identifies which plugin failed.
	PluginName string

	// Operation describes what the plugin was doing when it failed.
	Operation string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *PluginError) Error() string {
	return fmt.Sprintf("plugin %s failed during %s: %v", e.PluginName, e.Operation, e.Err)
}

// Unwrap returns the underlying error for error inspection.
func (e *PluginError) Unwrap() error {
	return e.Err
}

// NewPluginError creates a new plugin error.
func NewPluginError(pluginName, operation string, err error) *PluginError {
	return &PluginError{
		PluginName: pluginName,
		Operation:  operation,
		Err:        err,
	}
}
