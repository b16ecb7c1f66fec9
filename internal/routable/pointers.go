package routable

import (
	"sort"
)

// Record is a single row of a group. Associated records are nested under
// their field name as a Record (belongs to) or a list of Records (has many).
type Record = map[string]interface{}

// Batch is a result set: one entry per row, each mapping group names to records
type Batch = []map[string]interface{}

// PointerIndex groups the records of a nested batch by group and identity.
// Records are shared with the batch, so writes through the index land in it.
type PointerIndex struct {
	groups map[string]*groupIndex
}

type groupIndex struct {
	order   []string
	records map[string]Record
}

// buildIndex walks batch and indexes every record carrying primaryKey under
// the nearest enclosing recognised group name
func buildIndex(batch Batch, primaryKey string, known map[string]bool) *PointerIndex {
	idx := &PointerIndex{groups: make(map[string]*groupIndex)}
	for _, row := range batch {
		idx.walk(row, "", primaryKey, known)
	}
	return idx
}

func (p *PointerIndex) walk(node interface{}, group, primaryKey string, known map[string]bool) {
	switch v := node.(type) {
	case map[string]interface{}:
		if group != "" {
			if id, ok := v[primaryKey]; ok {
				p.add(group, id, v)
			}
		}
		for _, key := range sortedKeys(v) {
			child := v[key]
			if !isContainer(child) {
				continue
			}
			next := group
			if known[key] {
				next = key
			}
			p.walk(child, next, primaryKey, known)
		}
	case []map[string]interface{}:
		for _, item := range v {
			p.walk(item, group, primaryKey, known)
		}
	case []interface{}:
		for _, item := range v {
			p.walk(item, group, primaryKey, known)
		}
	}
}

func (p *PointerIndex) add(group string, id interface{}, record Record) {
	key, ok := idKey(id)
	if !ok {
		return
	}
	gi, ok := p.groups[group]
	if !ok {
		gi = &groupIndex{records: make(map[string]Record)}
		p.groups[group] = gi
	}
	if _, exists := gi.records[key]; !exists {
		gi.order = append(gi.order, key)
	}
	gi.records[key] = record
}

// Get returns the record of group with identity id
func (p *PointerIndex) Get(group string, id interface{}) (Record, bool) {
	gi, ok := p.groups[group]
	if !ok {
		return nil, false
	}
	key, ok := idKey(id)
	if !ok {
		return nil, false
	}
	record, ok := gi.records[key]
	return record, ok
}

// Records returns the records of group in first-seen order
func (p *PointerIndex) Records(group string) []Record {
	gi, ok := p.groups[group]
	if !ok {
		return nil
	}
	records := make([]Record, 0, len(gi.order))
	for _, key := range gi.order {
		records = append(records, gi.records[key])
	}
	return records
}

// Len returns the number of indexed records of group
func (p *PointerIndex) Len(group string) int {
	if gi, ok := p.groups[group]; ok {
		return len(gi.order)
	}
	return 0
}

// Groups returns the names of the indexed groups, sorted
func (p *PointerIndex) Groups() []string {
	names := make([]string, 0, len(p.groups))
	for name := range p.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func isContainer(v interface{}) bool {
	switch v.(type) {
	case map[string]interface{}, []map[string]interface{}, []interface{}:
		return true
	}
	return false
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
