package routable

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/conduit-lang/routable/internal/orm/query"
)

// splitInput normalises a path string or segment list
func splitInput(input interface{}) ([]string, error) {
	switch v := input.(type) {
	case string:
		segments := make([]string, 0)
		for _, part := range strings.Split(v, "/") {
			if part != "" {
				segments = append(segments, part)
			}
		}
		return segments, nil
	case []string:
		return append([]string(nil), v...), nil
	case []interface{}:
		segments := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: segment %v is %T, not a string", ErrInvalidInput, item, item)
			}
			segments = append(segments, s)
		}
		return segments, nil
	default:
		return nil, fmt.Errorf("%w: expected a path string or segment list, got %T", ErrInvalidInput, input)
	}
}

// resolve finds the record whose encoded path equals the given path
func (b *Behavior) resolve(ctx context.Context, g *Group, input interface{}) (Record, bool, error) {
	segments, err := splitInput(input)
	if err != nil {
		return nil, false, err
	}
	canonical := "/" + strings.Join(segments, "/")

	values, pass, ok := g.Route.Bind(segments)
	if !ok {
		return nil, false, nil
	}

	matches := query.NewPredicateGroup(false)
	for _, f := range g.keyFields() {
		if v, bound := values[f]; bound {
			matches.AddCondition(query.Eq(g.fieldRef(f), v))
		}
	}

	cond := matches
	if g.Recursive && len(pass) > 0 {
		last := pass[len(pass)-1]
		if decoded, err := url.PathUnescape(last); err == nil {
			last = decoded
		}
		cond = query.And(matches, query.Where(query.Eq(g.fieldRef(g.recursor()), last)))
	}
	cond = query.And(cond, g.Scope)

	rows, err := b.store.FetchWhere(ctx, g.Resource, cond, g.projectFields(true, true))
	if err != nil {
		b.logger.Debug("candidate fetch failed",
			zap.String("group", g.Name),
			zap.String("path", canonical),
			zap.Error(err))
		return nil, false, nil
	}
	if len(rows) == 0 {
		return nil, false, nil
	}

	batch := wrap(g.Name, rows)
	b.encodeGroup(ctx, g, buildIndex(batch, g.Resource.PrimaryKey, b.knownGroups()), FullOff)

	for _, row := range rows {
		if path, ok := row[g.Virtual].(string); ok && path == canonical {
			return row, true, nil
		}
	}
	return nil, false, nil
}

// wrap turns flat rows of one group into a batch
func wrap(group string, rows []map[string]interface{}) Batch {
	batch := make(Batch, 0, len(rows))
	for _, row := range rows {
		batch = append(batch, map[string]interface{}{group: row})
	}
	return batch
}
