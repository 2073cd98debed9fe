package plugin

import (
	"fmt"
	"sort"
	"sync"
)

// Registry manages plugin registration and discovery.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]Plugin
}

// NewRegistry creates a new empty plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		plugins: make(map[string]Plugin),
	}
}

// Register adds a plugin to the registry.
// Returns an error if a plugin with the same name already exists.
func (r *Registry) Register(plugin Plugin) error {
	if plugin == nil {
		return fmt.Errorf("cannot register nil plugin")
	}

	metadata := plugin.Metadata()
	if err := metadata.Validate(); err != nil {
		return fmt.Errorf("invalid plugin metadata: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, exists := r.plugins[metadata.Name]; exists {
		return fmt.Errorf("plugin %s already registered as %s", metadata.Name, existing.Metadata())
	}

	r.plugins[metadata.Name] = plugin
	return nil
}

// MustRegister is Register for package init functions.
func (r *Registry) MustRegister(plugin Plugin) {
	if err := r.Register(plugin); err != nil {
		panic(err)
	}
}

// Get retrieves a plugin by name.
func (r *Registry) Get(name string) (Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	plugin, ok := r.plugins[name]
	if !ok {
		return nil, fmt.Errorf("plugin %s not found", name)
	}
	return plugin, nil
}

// Has checks if a plugin is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.plugins[name]
	return ok
}

// List returns all registered plugins ordered by name.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, 0, len(r.plugins))
	for _, plugin := range r.plugins {
		result = append(result, plugin)
	}
	sortByName(result)
	return result
}

// ListByType returns all plugins of a specific type ordered by name.
func (r *Registry) ListByType(pluginType PluginType) []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []Plugin
	for _, plugin := range r.plugins {
		if plugin.Metadata().Type == pluginType {
			result = append(result, plugin)
		}
	}
	sortByName(result)
	return result
}

// Names returns the registered names of a type, sorted.
func (r *Registry) Names(pluginType PluginType) []string {
	plugins := r.ListByType(pluginType)
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Metadata().Name
	}
	return names
}

// Unregister removes a plugin from the registry.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.plugins[name]; !ok {
		return fmt.Errorf("plugin %s not found", name)
	}
	delete(r.plugins, name)
	return nil
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

func sortByName(plugins []Plugin) {
	sort.Slice(plugins, func(i, j int) bool {
		return plugins[i].Metadata().Name < plugins[j].Metadata().Name
	})
}

// globalRegistry is the default plugin registry used throughout the application.
var globalRegistry = NewRegistry()

// DefaultRegistry returns the global plugin registry.
func DefaultRegistry() *Registry {
	return globalRegistry
}

// Register adds a plugin to the global registry.
func Register(plugin Plugin) error {
	return globalRegistry.Register(plugin)
}

// Get retrieves a plugin from the global registry.
func Get(name string) (Plugin, error) {
	return globalRegistry.Get(name)
}

// ListByType returns plugins of a specific type from the global registry.
func ListByType(pluginType PluginType) []Plugin {
	return globalRegistry.ListByType(pluginType)
}
