// Package relationships eager loads associated records into nested batches so
// that every group present in a result set can be encoded at once.
package relationships

import (
	"sync"

	"github.com/conduit-lang/routable/internal/orm/schema"
	"github.com/conduit-lang/routable/internal/orm/store"
)

// DefaultMaxDepth bounds nested includes such as "author.posts.comments"
const DefaultMaxDepth = 10

// Loader attaches associated records with one store read per relationship
type Loader struct {
	store     store.Store
	resources *schema.Registry
	maxDepth  int
}

// NewLoader creates a new relationship loader reading through st
func NewLoader(st store.Store, resources *schema.Registry) *Loader {
	return &Loader{
		store:     st,
		resources: resources,
		maxDepth:  DefaultMaxDepth,
	}
}

// LoadContext tracks loading state to prevent circular references
type LoadContext struct {
	visited  map[string]bool
	depth    int
	maxDepth int
	mu       sync.Mutex
}

// NewLoadContext creates a new load context with the given max depth
func NewLoadContext(maxDepth int) *LoadContext {
	return &LoadContext{
		visited:  make(map[string]bool),
		maxDepth: maxDepth,
	}
}

// enter marks resource as being loaded one level deeper. It returns false
// when the resource is already on the current path.
func (lc *LoadContext) enter(resource string) (bool, error) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if lc.depth+1 > lc.maxDepth {
		return false, ErrMaxDepthExceeded
	}
	if lc.visited[resource] {
		return false, nil
	}
	lc.depth++
	lc.visited[resource] = true
	return true, nil
}

func (lc *LoadContext) leave(resource string) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	lc.depth--
	delete(lc.visited, resource)
}
