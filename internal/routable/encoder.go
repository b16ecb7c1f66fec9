package routable

import (
	"context"

	"go.uber.org/zap"
)

// FullBase selects whether encoded paths are prefixed with the base URL
type FullBase int

const (
	// FullDefault follows the group's full setting
	FullDefault FullBase = iota
	// FullOn always produces full URLs
	FullOn
	// FullOff always produces paths
	FullOff
)

func (f FullBase) resolve(groupDefault bool) bool {
	switch f {
	case FullOn:
		return true
	case FullOff:
		return false
	default:
		return groupDefault
	}
}

// encodeGroup writes the virtual field of every indexed record of g.
// If the sampled record lacks a configured field nothing is written.
func (b *Behavior) encodeGroup(ctx context.Context, g *Group, idx *PointerIndex, full FullBase) {
	records := idx.Records(g.Name)
	if len(records) == 0 {
		return
	}

	sample := records[0]
	for _, f := range g.Fields {
		if _, ok := sample[f]; !ok {
			b.logger.Debug("batch lacks routable field",
				zap.String("group", g.Name),
				zap.String("field", f))
			return
		}
	}

	fullBase := full.resolve(g.Full)
	for _, record := range records {
		record[g.Virtual] = b.encodeRecord(ctx, g, idx, record, fullBase)
	}
}

// encodeRecord returns the path or URL of record, or nil when it has none
func (b *Behavior) encodeRecord(ctx context.Context, g *Group, idx *PointerIndex, record Record, fullBase bool) interface{} {
	if g.Link != "" && isTruthy(record[g.Link]) {
		return record[g.Link]
	}
	if g.Home != "" && isTruthy(record[g.Home]) {
		return "/"
	}

	values := make(map[string]string, len(g.Fields))
	for _, f := range g.keyFields() {
		if v, ok := record[f]; ok {
			values[f] = segmentValue(v)
		}
	}

	var pass []string
	if g.Recursive {
		path, ok := b.recursivePath(ctx, g, idx, record)
		if !ok {
			return nil
		}
		pass = path
	}

	url, err := b.routes.URL(g.Route, values, pass, fullBase)
	if err != nil {
		b.logger.Debug("route assembly failed",
			zap.String("group", g.Name),
			zap.Any("id", record[g.Resource.PrimaryKey]),
			zap.Error(err))
		return nil
	}
	return url
}
