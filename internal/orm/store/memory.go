package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/conduit-lang/routable/internal/orm/query"
	"github.com/conduit-lang/routable/internal/orm/schema"
)

// ComputeFunc derives a computed field from a stored row
type ComputeFunc func(row map[string]interface{}) interface{}

// MemoryStore is an in-memory Store implementation for testing and fixtures.
// Rows are kept per resource in insertion order and copied on read.
type MemoryStore struct {
	mu       sync.RWMutex
	rows     map[string][]map[string]interface{}
	computed map[string]map[string]ComputeFunc
	maxDepth int
	failures map[string]error
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows:     make(map[string][]map[string]interface{}),
		computed: make(map[string]map[string]ComputeFunc),
		maxDepth: DefaultMaxDepth,
		failures: make(map[string]error),
	}
}

// SetMaxDepth bounds the ancestor walk like WithMaxDepth does for SQLStore
func (m *MemoryStore) SetMaxDepth(depth int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if depth > 0 {
		m.maxDepth = depth
	}
}

// Insert appends rows to the resource's table
func (m *MemoryStore) Insert(resource string, rows ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, row := range rows {
		m.rows[resource] = append(m.rows[resource], copyRow(row))
	}
}

// Update sets field on every row of resource whose primary key equals id
func (m *MemoryStore) Update(resource, pk string, id interface{}, field string, value interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()

	match := query.Where(query.Eq(pk, id))
	for _, row := range m.rows[resource] {
		if match.Evaluate(row) {
			row[field] = value
		}
	}
}

// Compute registers the evaluator of a computed field
func (m *MemoryStore) Compute(resource, field string, fn ComputeFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.computed[resource] == nil {
		m.computed[resource] = make(map[string]ComputeFunc)
	}
	m.computed[resource][field] = fn
}

// FailOn makes the named operation ("fetch" or "ancestors") return err
func (m *MemoryStore) FailOn(operation string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err == nil {
		delete(m.failures, operation)
		return
	}
	m.failures[operation] = err
}

// FetchWhere implements Store
func (m *MemoryStore) FetchWhere(
	_ context.Context,
	res *schema.Resource,
	cond *query.PredicateGroup,
	fields []string,
) ([]map[string]interface{}, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.failures["fetch"]; err != nil {
		return nil, err
	}

	for _, ref := range append(append([]string(nil), fields...), cond.Fields()...) {
		if alias, _, ok := strings.Cut(ref, "."); ok && alias != res.Name {
			return nil, fmt.Errorf("%w: %s", ErrUnknownField, ref)
		}
	}

	results := make([]map[string]interface{}, 0)
	for _, stored := range m.rows[res.Name] {
		row := m.materialize(res.Name, stored)
		if !cond.Evaluate(row) {
			continue
		}
		if len(fields) == 0 {
			results = append(results, row)
			continue
		}

		projected := make(map[string]interface{}, len(fields))
		for _, ref := range fields {
			name := ref
			if i := strings.LastIndex(ref, "."); i >= 0 {
				name = ref[i+1:]
			}
			value, ok := row[name]
			if !ok {
				return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, res.Name, name)
			}
			projected[name] = value
		}
		results = append(results, projected)
	}
	return results, nil
}

// Ancestors implements Store by following parentField through the stored rows
func (m *MemoryStore) Ancestors(
	_ context.Context,
	res *schema.Resource,
	parentField string,
	startID interface{},
) ([]interface{}, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.failures["ancestors"]; err != nil {
		return nil, err
	}

	var chain []interface{}
	current := m.find(res, startID)
	for depth := 0; current != nil; depth++ {
		parent := current[parentField]
		if parent == nil {
			break
		}
		if depth >= m.maxDepth {
			return nil, fmt.Errorf("%w: %s %v deeper than %d", ErrMaxDepthExceeded, res.Name, startID, m.maxDepth)
		}
		chain = append(chain, parent)
		current = m.find(res, parent)
	}

	// root first
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

func (m *MemoryStore) find(res *schema.Resource, id interface{}) map[string]interface{} {
	match := query.Where(query.Eq(res.PrimaryKey, id))
	for _, row := range m.rows[res.Name] {
		if match.Evaluate(row) {
			return row
		}
	}
	return nil
}

func (m *MemoryStore) materialize(resource string, stored map[string]interface{}) map[string]interface{} {
	row := copyRow(stored)
	for name, fn := range m.computed[resource] {
		row[name] = fn(stored)
	}
	return row
}

func copyRow(row map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}
