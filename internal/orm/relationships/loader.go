package relationships

import (
	"context"
	"fmt"
	"strings"

	"github.com/conduit-lang/routable/internal/orm/query"
	"github.com/conduit-lang/routable/internal/orm/schema"
)

// EagerLoad attaches the included associations to records in place.
// Includes may be nested with dots ("author.posts").
func (l *Loader) EagerLoad(
	ctx context.Context,
	records []map[string]interface{},
	resource *schema.Resource,
	includes []string,
) error {
	if len(records) == 0 {
		return nil
	}
	return l.EagerLoadWithContext(ctx, records, resource, includes, NewLoadContext(l.maxDepth))
}

// EagerLoadWithContext loads relationships with circular reference prevention
func (l *Loader) EagerLoadWithContext(
	ctx context.Context,
	records []map[string]interface{},
	resource *schema.Resource,
	includes []string,
	loadCtx *LoadContext,
) error {
	if len(records) == 0 {
		return nil
	}

	entered, err := loadCtx.enter(resource.Name)
	if err != nil {
		return err
	}
	if !entered {
		// already loading this resource further up the path
		return nil
	}
	defer loadCtx.leave(resource.Name)

	for _, include := range includes {
		relation, nested := parseInclude(include)

		rel, ok := resource.Relationships[relation]
		if !ok {
			return fmt.Errorf("%w: %s.%s", ErrUnknownRelationship, resource.Name, relation)
		}

		target, ok := l.resources.Get(rel.TargetResource)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownResource, rel.TargetResource)
		}

		if err := l.loadRelationship(ctx, records, rel, resource, target); err != nil {
			return fmt.Errorf("failed to load relationship %s: %w", relation, err)
		}

		if len(nested) > 0 {
			children := extractNestedRecords(records, rel, target.PrimaryKey)
			if err := l.EagerLoadWithContext(ctx, children, target, nested, loadCtx); err != nil {
				return err
			}
		}
	}

	return nil
}

func (l *Loader) loadRelationship(
	ctx context.Context,
	records []map[string]interface{},
	rel *schema.Relationship,
	resource, target *schema.Resource,
) error {
	switch rel.Type {
	case schema.RelationshipBelongsTo:
		return l.loadBelongsTo(ctx, records, rel, target)
	case schema.RelationshipHasMany:
		return l.loadHasMany(ctx, records, rel, resource, target)
	default:
		return fmt.Errorf("%w: %s", ErrInvalidRelationType, rel.Type)
	}
}

// loadBelongsTo collects the distinct foreign keys, reads the targets in one
// IN query and attaches each under the relationship field (nil when missing)
func (l *Loader) loadBelongsTo(
	ctx context.Context,
	records []map[string]interface{},
	rel *schema.Relationship,
	target *schema.Resource,
) error {
	fk := rel.ForeignKey
	if fk == "" {
		fk = schema.DefaultForeignKey(rel.TargetResource)
	}

	ids := distinctIDs(records, fk)
	if len(ids) == 0 {
		for _, record := range records {
			record[rel.FieldName] = nil
		}
		return nil
	}

	cond := query.Where(query.In(target.Name+"."+target.PrimaryKey, ids))
	results, err := l.store.FetchWhere(ctx, target, cond, nil)
	if err != nil {
		return fmt.Errorf("failed to query belongs_to relationship: %w", err)
	}

	related := make(map[string]map[string]interface{}, len(results))
	for _, result := range results {
		if key, ok := idToString(result[target.PrimaryKey]); ok {
			related[key] = result
		}
	}

	for _, record := range records {
		record[rel.FieldName] = nil
		if key, ok := idToString(record[fk]); ok {
			if parent, found := related[key]; found {
				record[rel.FieldName] = parent
			}
		}
	}
	return nil
}

// loadHasMany reads the children of every record in one IN query on the
// foreign key and attaches them as a list (empty, never nil)
func (l *Loader) loadHasMany(
	ctx context.Context,
	records []map[string]interface{},
	rel *schema.Relationship,
	resource, target *schema.Resource,
) error {
	fk := rel.ForeignKey
	if fk == "" {
		fk = schema.DefaultForeignKey(resource.Name)
	}

	ids := distinctIDs(records, resource.PrimaryKey)
	if len(ids) == 0 {
		return nil
	}

	cond := query.Where(query.In(target.Name+"."+fk, ids))
	results, err := l.store.FetchWhere(ctx, target, cond, nil)
	if err != nil {
		return fmt.Errorf("failed to query has_many relationship: %w", err)
	}

	grouped := make(map[string][]map[string]interface{})
	for _, result := range results {
		if key, ok := idToString(result[fk]); ok {
			grouped[key] = append(grouped[key], result)
		}
	}

	for _, record := range records {
		children := []map[string]interface{}{}
		if key, ok := idToString(record[resource.PrimaryKey]); ok {
			if found, exists := grouped[key]; exists {
				children = found
			}
		}
		record[rel.FieldName] = children
	}
	return nil
}

// parseInclude splits "author.posts.comments" into ("author", ["posts.comments"])
func parseInclude(include string) (string, []string) {
	if head, rest, ok := strings.Cut(include, "."); ok {
		return head, []string{rest}
	}
	return include, nil
}

// extractNestedRecords collects the distinct associated records attached by rel
func extractNestedRecords(records []map[string]interface{}, rel *schema.Relationship, pk string) []map[string]interface{} {
	var nested []map[string]interface{}
	seen := make(map[string]bool)

	add := func(record map[string]interface{}) {
		key, ok := idToString(record[pk])
		if !ok || seen[key] {
			return
		}
		seen[key] = true
		nested = append(nested, record)
	}

	for _, record := range records {
		switch v := record[rel.FieldName].(type) {
		case map[string]interface{}:
			add(v)
		case []map[string]interface{}:
			for _, child := range v {
				add(child)
			}
		}
	}
	return nested
}

func distinctIDs(records []map[string]interface{}, field string) []interface{} {
	var ids []interface{}
	seen := make(map[string]bool)
	for _, record := range records {
		key, ok := idToString(record[field])
		if !ok || seen[key] {
			continue
		}
		seen[key] = true
		ids = append(ids, record[field])
	}
	return ids
}

// idToString converts an ID to a comparable key. Supports the id types the
// drivers return: string, the integer kinds and []byte.
func idToString(id interface{}) (string, bool) {
	switch v := id.(type) {
	case nil:
		return "", false
	case string:
		return v, v != ""
	case []byte:
		return string(v), len(v) > 0
	case int:
		return fmt.Sprintf("%d", v), true
	case int64:
		return fmt.Sprintf("%d", v), true
	case int32:
		return fmt.Sprintf("%d", v), true
	case uint:
		return fmt.Sprintf("%d", v), true
	case uint64:
		return fmt.Sprintf("%d", v), true
	default:
		return fmt.Sprintf("%v", v), true
	}
}
