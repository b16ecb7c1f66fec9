package routing

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Registry holds the connected route templates and matches incoming paths
// against them using chi
type Registry struct {
	mux     *chi.Mux
	routes  map[string]*Template
	order   []*Template
	baseURL string
	mu      sync.RWMutex
}

// NewRegistry creates a registry. baseURL is prefixed to full URLs.
func NewRegistry(baseURL string) *Registry {
	return &Registry{
		mux:     chi.NewRouter(),
		routes:  make(map[string]*Template),
		order:   make([]*Template, 0),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// BaseURL returns the configured full-base prefix
func (r *Registry) BaseURL() string {
	return r.baseURL
}

// Connect parses and registers a route template
func (r *Registry) Connect(pattern string, defaults map[string]string) (*Template, error) {
	tpl, err := ParseTemplate(pattern, defaults)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.routes[pattern]; exists {
		return nil, fmt.Errorf("%w: %s is already connected", ErrInvalidTemplate, pattern)
	}

	r.mux.Get(pattern, func(http.ResponseWriter, *http.Request) {})
	r.routes[pattern] = tpl
	r.order = append(r.order, tpl)
	return tpl, nil
}

// Lookup returns the template registered under pattern
func (r *Registry) Lookup(pattern string) (*Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tpl, ok := r.routes[pattern]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRouteNotFound, pattern)
	}
	return tpl, nil
}

// Match finds the template an incoming path is routed to, together with the
// matched placeholder values ("*" holds the wildcard remainder)
func (r *Registry) Match(path string) (*Template, map[string]string, bool) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	rctx := chi.NewRouteContext()
	if !r.mux.Match(rctx, http.MethodGet, path) || len(rctx.RoutePatterns) == 0 {
		return nil, nil, false
	}

	tpl, ok := r.routes[rctx.RoutePatterns[len(rctx.RoutePatterns)-1]]
	if !ok {
		return nil, nil, false
	}

	params := make(map[string]string, len(rctx.URLParams.Keys))
	for i, key := range rctx.URLParams.Keys {
		params[key] = rctx.URLParams.Values[i]
	}
	return tpl, params, true
}

// Routes returns the connected templates in registration order
func (r *Registry) Routes() []*Template {
	r.mu.RLock()
	defer r.mu.RUnlock()

	routes := make([]*Template, len(r.order))
	copy(routes, r.order)
	return routes
}

// URL assembles the path for tpl, prefixed with the base URL when full is set
func (r *Registry) URL(tpl *Template, values map[string]string, pass []string, full bool) (string, error) {
	path, err := tpl.Build(values, pass)
	if err != nil {
		return "", err
	}
	if full {
		return r.baseURL + path, nil
	}
	return path, nil
}
