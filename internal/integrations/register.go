package integrations

import "github.com/ahmadMuhammadGd/nanosite/internal/plugin"

// RegisterBuiltins adds the built-in integrations to registry.
func RegisterBuiltins(registry *plugin.Registry) error {
	for _, f := range []Factory{mdxFactory{}, sitemapFactory{}, tailwindFactory{}, pagefindFactory{}} {
		if err := registry.Register(f); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	// Register the built-in integrations in the global plugin registry
	if err := RegisterBuiltins(plugin.DefaultRegistry()); err != nil {
		_ = err
	}
}
