package routable

import (
	"context"

	"go.uber.org/zap"
)

// ancestry asks the store for the ancestor chain of id, root first. A failed
// lookup is reported as an empty chain. Parent references the index walk treats
// as empty (0, "0") end the chain there, so ids above them are dropped.
func (b *Behavior) ancestry(ctx context.Context, g *Group, id interface{}) []interface{} {
	ids, err := b.store.Ancestors(ctx, g.Resource, g.Parent, id)
	if err != nil {
		b.logger.Debug("ancestry lookup failed",
			zap.String("group", g.Name),
			zap.Any("id", id),
			zap.Error(err))
		return nil
	}
	for i := len(ids) - 1; i >= 0; i-- {
		if isEmptyID(ids[i]) {
			return ids[i+1:]
		}
	}
	return ids
}
