package rehype

import "github.com/ahmadMuhammadGd/nanosite/internal/plugin"

// RegisterBuiltins adds the built-in transforms to registry.
func RegisterBuiltins(registry *plugin.Registry) error {
	for _, f := range []Factory{mermaidFactory{}, externalLinksFactory{}} {
		if err := registry.Register(f); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	// Register the built-in transforms in the global plugin registry
	if err := RegisterBuiltins(plugin.DefaultRegistry()); err != nil {
		_ = err
	}
}
