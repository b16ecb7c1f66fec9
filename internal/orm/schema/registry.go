package schema

import (
	"fmt"
	"sort"
	"sync"
)

// Registry manages all resources known to the application
type Registry struct {
	resources map[string]*Resource
	mu        sync.RWMutex
}

// NewRegistry creates a new resource registry
func NewRegistry() *Registry {
	return &Registry{
		resources: make(map[string]*Resource),
	}
}

// Register validates and registers a resource
func (r *Registry) Register(resource *Resource) error {
	if resource == nil {
		return fmt.Errorf("cannot register nil resource")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.resources[resource.Name]; exists {
		return fmt.Errorf("resource %s is already registered", resource.Name)
	}

	if err := resource.Validate(); err != nil {
		return fmt.Errorf("schema validation failed for %s: %w", resource.Name, err)
	}

	r.resources[resource.Name] = resource
	return nil
}

// Get retrieves a resource by name
func (r *Registry) Get(name string) (*Resource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	resource, exists := r.resources[name]
	return resource, exists
}

// All returns a copy of all registered resources
func (r *Registry) All() map[string]*Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*Resource, len(r.resources))
	for k, v := range r.resources {
		result[k] = v
	}
	return result
}

// List returns the sorted names of all registered resources
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.resources))
	for name := range r.resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateRelationships checks that every relationship targets a registered resource
func (r *Registry) ValidateRelationships() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range sortedKeys(r.resources) {
		resource := r.resources[name]
		for field, rel := range resource.Relationships {
			if _, ok := r.resources[rel.TargetResource]; !ok {
				return fmt.Errorf("relationship %s.%s targets unknown resource %s", name, field, rel.TargetResource)
			}
		}
	}
	return nil
}

// Count returns the number of registered resources
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.resources)
}

// Exists checks if a resource exists
func (r *Registry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.resources[name]
	return exists
}

// Clear removes all registered resources (useful for testing)
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.resources = make(map[string]*Resource)
}

func sortedKeys(m map[string]*Resource) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
