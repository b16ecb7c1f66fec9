// Package routable encodes records as route paths and resolves paths back to
// records. Records may form a single-parent hierarchy whose chain of recursor
// values becomes the trailing path segments.
package routable

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/conduit-lang/routable/internal/orm/query"
	"github.com/conduit-lang/routable/internal/orm/relationships"
	"github.com/conduit-lang/routable/internal/orm/schema"
	"github.com/conduit-lang/routable/internal/orm/store"
	"github.com/conduit-lang/routable/internal/routing"
)

// Behavior binds groups of records to route templates
type Behavior struct {
	resources *schema.Registry
	routes    *routing.Registry
	store     store.Store
	loader    *relationships.Loader
	logger    *zap.Logger

	groups    map[string]*Group
	groupKeys []string
	mu        sync.RWMutex
}

// Option configures a Behavior
type Option func(*Behavior)

// WithLogger sets the logger soft outcomes are reported to
func WithLogger(logger *zap.Logger) Option {
	return func(b *Behavior) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithGroupKeys adds names the pointer index treats as groups besides the
// registered resources
func WithGroupKeys(keys ...string) Option {
	return func(b *Behavior) {
		b.groupKeys = append(b.groupKeys, keys...)
	}
}

// New creates a Behavior reading through st
func New(resources *schema.Registry, routes *routing.Registry, st store.Store, opts ...Option) *Behavior {
	b := &Behavior{
		resources: resources,
		routes:    routes,
		store:     st,
		logger:    zap.NewNop(),
		groups:    make(map[string]*Group),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.loader = relationships.NewLoader(st, resources)
	return b
}

// Setup validates cfg and binds the group. Setting up a group again replaces it.
func (b *Behavior) Setup(cfg GroupConfig) (*Group, error) {
	g, err := newGroup(cfg, b.resources, b.routes)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.groups[g.Name] = g
	b.mu.Unlock()

	b.logger.Debug("group bound",
		zap.String("group", g.Name),
		zap.String("route", g.Route.Pattern),
		zap.Strings("fields", g.Fields),
		zap.Bool("recursive", g.Recursive))
	return g, nil
}

// Group returns a bound group
func (b *Behavior) Group(name string) (*Group, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	g, ok := b.groups[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGroup, name)
	}
	return g, nil
}

// Groups returns the names of the bound groups, sorted
func (b *Behavior) Groups() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, 0, len(b.groups))
	for name := range b.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (b *Behavior) knownGroups() map[string]bool {
	known := make(map[string]bool)
	for _, name := range b.resources.List() {
		known[name] = true
	}
	for _, name := range b.groupKeys {
		known[name] = true
	}
	b.mu.RLock()
	for name := range b.groups {
		known[name] = true
	}
	b.mu.RUnlock()
	return known
}

// EncodeBatch writes the virtual field of every record of group found
// anywhere in batch and returns the same batch
func (b *Behavior) EncodeBatch(ctx context.Context, group string, batch Batch, full FullBase) (Batch, error) {
	g, err := b.Group(group)
	if err != nil {
		return batch, err
	}
	idx := buildIndex(batch, g.Resource.PrimaryKey, b.knownGroups())
	b.encodeGroup(ctx, g, idx, full)
	return batch, nil
}

// EncodeAll encodes every bound group present in batch
func (b *Behavior) EncodeAll(ctx context.Context, batch Batch, full FullBase) Batch {
	known := b.knownGroups()
	indexes := make(map[string]*PointerIndex)
	for _, name := range b.Groups() {
		g, err := b.Group(name)
		if err != nil {
			continue
		}
		pk := g.Resource.PrimaryKey
		idx, ok := indexes[pk]
		if !ok {
			idx = buildIndex(batch, pk, known)
			indexes[pk] = idx
		}
		b.encodeGroup(ctx, g, idx, full)
	}
	return batch
}

// PathEntry is the encoded path of one record; Path is nil when the record
// has no route
type PathEntry struct {
	ID   interface{}
	Path interface{}
}

// PathList is an ordered identity to path mapping
type PathList []PathEntry

// ToMap keys the list by normalised identity
func (l PathList) ToMap() map[string]interface{} {
	m := make(map[string]interface{}, len(l))
	for _, e := range l {
		if key, ok := idKey(e.ID); ok {
			m[key] = e.Path
		}
	}
	return m
}

// Get returns the path of id
func (l PathList) Get(id interface{}) (interface{}, bool) {
	want, ok := idKey(id)
	if !ok {
		return nil, false
	}
	for _, e := range l {
		if key, ok := idKey(e.ID); ok && key == want {
			return e.Path, true
		}
	}
	return nil, false
}

// GeneratePathMap encodes every record of group matching extra and the group
// scope as a path
func (b *Behavior) GeneratePathMap(ctx context.Context, group string, extra *query.PredicateGroup) (PathList, error) {
	return b.generate(ctx, group, extra, FullOff)
}

// GenerateURLMap is GeneratePathMap with the base URL prefixed
func (b *Behavior) GenerateURLMap(ctx context.Context, group string, extra *query.PredicateGroup) (PathList, error) {
	return b.generate(ctx, group, extra, FullOn)
}

func (b *Behavior) generate(ctx context.Context, group string, extra *query.PredicateGroup, full FullBase) (PathList, error) {
	g, err := b.Group(group)
	if err != nil {
		return nil, err
	}

	res := g.Resource
	cond := query.And(query.Qualify(extra, res.Name, res.IsComputed), g.Scope)
	rows, err := b.store.FetchWhere(ctx, res, cond, g.projectFields(true, true))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", group, err)
	}

	batch := wrap(g.Name, rows)
	b.encodeGroup(ctx, g, buildIndex(batch, res.PrimaryKey, b.knownGroups()), full)

	list := make(PathList, 0, len(rows))
	for _, row := range rows {
		list = append(list, PathEntry{ID: row[res.PrimaryKey], Path: row[g.Virtual]})
	}
	return list, nil
}

// Resolve returns the identity of the record of group addressed by input, a
// path string or an ordered segment list
func (b *Behavior) Resolve(ctx context.Context, group string, input interface{}) (interface{}, bool, error) {
	record, ok, err := b.ResolveRecord(ctx, group, input)
	if err != nil || !ok {
		return nil, false, err
	}
	g, _ := b.Group(group)
	return record[g.Resource.PrimaryKey], true, nil
}

// ResolveRecord is Resolve returning the matched record
func (b *Behavior) ResolveRecord(ctx context.Context, group string, input interface{}) (Record, bool, error) {
	g, err := b.Group(group)
	if err != nil {
		return nil, false, err
	}
	return b.resolve(ctx, g, input)
}

// Find fetches the records of group matching cond, eager loads includes and
// encodes every bound group in the resulting batch
func (b *Behavior) Find(ctx context.Context, group string, cond *query.PredicateGroup, includes ...string) (Batch, error) {
	res, ok := b.resources.Get(group)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGroup, group)
	}

	rows, err := b.store.FetchWhere(ctx, res, query.Qualify(cond, res.Name, res.IsComputed), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", group, err)
	}
	if len(includes) > 0 {
		if err := b.loader.EagerLoad(ctx, rows, res, includes); err != nil {
			return nil, fmt.Errorf("failed to load associations of %s: %w", group, err)
		}
	}

	return b.EncodeAll(ctx, wrap(res.Name, rows), FullDefault), nil
}

// Match is a record found by Serve
type Match struct {
	Group  string
	ID     interface{}
	Record Record
}

// Serve routes path to its template and resolves it against every group bound
// to that template, in name order
func (b *Behavior) Serve(ctx context.Context, path string) (*Match, bool, error) {
	tpl, _, ok := b.routes.Match(path)
	if !ok {
		return nil, false, nil
	}

	for _, name := range b.Groups() {
		g, err := b.Group(name)
		if err != nil || g.Route != tpl {
			continue
		}
		record, found, err := b.resolve(ctx, g, path)
		if err != nil {
			return nil, false, err
		}
		if found {
			return &Match{Group: name, ID: record[g.Resource.PrimaryKey], Record: record}, true, nil
		}
	}
	return nil, false, nil
}
