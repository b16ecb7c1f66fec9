// Package store executes projected, conditioned reads and ancestor lookups
// against a SQL database on behalf of the routable codec.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/conduit-lang/routable/internal/orm/query"
	"github.com/conduit-lang/routable/internal/orm/schema"
)

// DefaultMaxDepth bounds the recursive ancestor walk
const DefaultMaxDepth = 64

// Querier is an interface for executing SQL queries, allowing for testing and instrumentation
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// Store is the read contract the codec consumes
type Store interface {
	// FetchWhere returns the rows of res matching cond, projected to fields.
	// fields are "Alias.column" references or bare computed field names; nil
	// selects every declared column plus the computed fields.
	FetchWhere(ctx context.Context, res *schema.Resource, cond *query.PredicateGroup, fields []string) ([]map[string]interface{}, error)

	// Ancestors returns the ids of startID's ancestors, root first, ending
	// with its immediate parent. Empty when startID has no parent.
	Ancestors(ctx context.Context, res *schema.Resource, parentField string, startID interface{}) ([]interface{}, error)
}

// SQLStore implements Store over database/sql
type SQLStore struct {
	db       Querier
	style    query.Placeholder
	maxDepth int
	logger   *zap.Logger
}

// Option configures a SQLStore
type Option func(*SQLStore)

// WithPlaceholder sets the bind parameter syntax (default $N)
func WithPlaceholder(style query.Placeholder) Option {
	return func(s *SQLStore) { s.style = style }
}

// WithMaxDepth bounds the ancestor walk
func WithMaxDepth(depth int) Option {
	return func(s *SQLStore) {
		if depth > 0 {
			s.maxDepth = depth
		}
	}
}

// WithLogger sets the logger used for query tracing
func WithLogger(logger *zap.Logger) Option {
	return func(s *SQLStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSQLStore creates a store over db
func NewSQLStore(db Querier, opts ...Option) *SQLStore {
	s := &SQLStore{
		db:       db,
		style:    query.Dollar,
		maxDepth: DefaultMaxDepth,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchWhere implements Store
func (s *SQLStore) FetchWhere(
	ctx context.Context,
	res *schema.Resource,
	cond *query.PredicateGroup,
	fields []string,
) ([]map[string]interface{}, error) {
	qb := query.NewSelect(res, s.style).Fields(fields...).Where(cond)
	if !res.IsComputed(res.PrimaryKey) && res.HasColumn(res.PrimaryKey) {
		qb.OrderBy(res.Name+"."+res.PrimaryKey, "ASC")
	}

	sqlText, args, err := qb.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build query for %s: %w", res.Name, err)
	}

	s.logger.Debug("fetch",
		zap.String("resource", res.Name),
		zap.String("sql", sqlText),
		zap.Int("args", len(args)))

	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", res.Name, ConvertDBError(err))
	}
	defer rows.Close()

	records, err := scanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", res.Name, ConvertDBError(err))
	}
	return records, nil
}

// Ancestors implements Store with a recursive CTE following parentField from
// startID. A parent id pointing at a missing row is still reported. A chain
// still unresolved at max depth fails with ErrMaxDepthExceeded instead of
// being cut short.
func (s *SQLStore) Ancestors(
	ctx context.Context,
	res *schema.Resource,
	parentField string,
	startID interface{},
) ([]interface{}, error) {
	if !res.HasColumn(parentField) || res.IsComputed(parentField) {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, res.Name, parentField)
	}

	sqlText, args := s.ancestorsSQL(res, parentField, startID)

	s.logger.Debug("ancestors",
		zap.String("resource", res.Name),
		zap.Any("id", startID),
		zap.String("sql", sqlText))

	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ancestors of %s %v: %w", res.Name, startID, ConvertDBError(err))
	}
	defer rows.Close()

	var ids []interface{}
	for rows.Next() {
		var (
			id    interface{}
			depth int64
		)
		if err := rows.Scan(&id, &depth); err != nil {
			return nil, fmt.Errorf("failed to scan ancestor id: %w", err)
		}
		// the row at the bound still has a parent the walk never reached
		if depth >= int64(s.maxDepth) {
			return nil, fmt.Errorf("%w: %s %v deeper than %d", ErrMaxDepthExceeded, res.Name, startID, s.maxDepth)
		}
		ids = append(ids, normalizeValue(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ancestors: %w", ConvertDBError(err))
	}
	return ids, nil
}

func (s *SQLStore) ancestorsSQL(res *schema.Resource, parentField string, startID interface{}) (string, []interface{}) {
	w := query.NewWriter(s.style, nil)
	table := pq.QuoteIdentifier(res.TableName)
	pk := pq.QuoteIdentifier(res.PrimaryKey)
	parent := pq.QuoteIdentifier(parentField)

	start := w.Bind(startID)
	limit := w.Bind(s.maxDepth)

	sqlText := fmt.Sprintf(`WITH RECURSIVE "ancestry" ("node", "parent", "depth") AS (`+
		`SELECT "t".%[2]s, "t".%[3]s, 0 FROM %[1]s AS "t" WHERE "t".%[2]s = %[4]s`+
		` UNION ALL `+
		`SELECT "t".%[2]s, "t".%[3]s, "a"."depth" + 1 FROM %[1]s AS "t" JOIN "ancestry" AS "a" ON "t".%[2]s = "a"."parent" WHERE "a"."depth" < %[5]s`+
		`) SELECT "parent", "depth" FROM "ancestry" WHERE "parent" IS NOT NULL ORDER BY "depth" DESC`,
		table, pk, parent, start, limit)

	return sqlText, w.Args()
}
