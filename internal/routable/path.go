package routable

import (
	"context"

	"go.uber.org/zap"

	"github.com/conduit-lang/routable/internal/orm/query"
)

// recursivePath builds the root-to-leaf recursor segments of record.
//
// ok is false when the path is invalidated: an ancestor exists but is not
// fetchable under the applied scope, or the parent chain loops. An empty
// path with ok true means no hierarchy prefix is needed.
func (b *Behavior) recursivePath(ctx context.Context, g *Group, idx *PointerIndex, record Record) (path []string, ok bool) {
	recursor := g.recursor()
	if g.Parent == "" || recursor == "" {
		return []string{}, true
	}

	parentID, hasParent := record[g.Parent]
	if !hasParent {
		return []string{}, true
	}
	own, hasOwn := record[recursor]
	if !hasOwn || own == nil {
		return []string{}, true
	}

	pk := g.Resource.PrimaryKey
	visited := make(map[string]bool)
	if key, ok := idKey(record[pk]); ok {
		visited[key] = true
	}

	reversed := []string{segmentValue(own)}
	for !isEmptyID(parentID) {
		parent, found := idx.Get(g.Name, parentID)
		if !found {
			break
		}
		key, _ := idKey(parentID)
		if visited[key] {
			b.logger.Debug("parent chain loops",
				zap.String("group", g.Name),
				zap.Any("id", record[pk]))
			return nil, false
		}
		visited[key] = true

		reversed = append(reversed, segmentValue(parent[recursor]))
		parentID = parent[g.Parent]
	}

	path = make([]string, len(reversed))
	for i, seg := range reversed {
		path[len(reversed)-1-i] = seg
	}

	if isEmptyID(parentID) {
		return path, true
	}

	// the index ran out before the root: ask the store for the full chain
	chain := b.ancestry(ctx, g, record[pk])
	if len(chain) == 0 {
		return path, true
	}

	var scope *query.PredicateGroup
	if g.CascadingScope {
		scope = g.Scope
	}
	cond := query.And(query.Where(query.In(g.fieldRef(pk), chain)), scope)

	rows, err := b.store.FetchWhere(ctx, g.Resource, cond, g.projectFields(true, false))
	if err != nil {
		b.logger.Debug("ancestor fetch failed",
			zap.String("group", g.Name),
			zap.Any("id", record[pk]),
			zap.Error(err))
		rows = nil
	}

	if len(rows) != len(chain) {
		b.logger.Debug("ancestry incomplete under scope",
			zap.String("group", g.Name),
			zap.Any("id", record[pk]),
			zap.Int("ancestors", len(chain)),
			zap.Int("fetched", len(rows)))
		return nil, false
	}

	byID := make(map[string]Record, len(rows))
	for _, row := range rows {
		if key, ok := idKey(row[pk]); ok {
			byID[key] = row
		}
	}

	// the chain already holds the ancestors walked in the index, so the path is
	// rebuilt from it rather than prepended to the partial one
	path = make([]string, 0, len(chain)+1)
	for _, id := range chain {
		key, _ := idKey(id)
		ancestor, found := byID[key]
		if !found {
			return nil, false
		}
		path = append(path, segmentValue(ancestor[recursor]))
	}
	return append(path, segmentValue(own)), true
}
