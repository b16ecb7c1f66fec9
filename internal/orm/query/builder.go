// Package query provides query building functionality for the routable ORM layer
package query

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/lib/pq"

	"github.com/conduit-lang/routable/internal/orm/schema"
)

// ErrUnknownField is returned when a field reference cannot be resolved to a
// column or computed field of the resource
var ErrUnknownField = errors.New("unknown field")

// Placeholder selects the bind parameter syntax of the target database
type Placeholder int

const (
	// Dollar renders $1, $2, ... (PostgreSQL)
	Dollar Placeholder = iota
	// Question renders ? (SQLite, MySQL)
	Question
)

// Format renders the n-th (1-based) placeholder
func (p Placeholder) Format(n int) string {
	if p == Question {
		return "?"
	}
	return fmt.Sprintf("$%d", n)
}

// ParsePlaceholder maps a database/sql driver name to its placeholder syntax
func ParsePlaceholder(driver string) Placeholder {
	switch driver {
	case "sqlite3", "sqlite", "mysql":
		return Question
	default:
		return Dollar
	}
}

// Writer accumulates bind arguments while rendering SQL fragments
type Writer struct {
	style   Placeholder
	resolve func(field string) (string, error)
	counter int
	args    []interface{}
}

// NewWriter creates a Writer. resolve maps field references to SQL column
// expressions; nil quotes the reference as a plain identifier.
func NewWriter(style Placeholder, resolve func(field string) (string, error)) *Writer {
	return &Writer{style: style, resolve: resolve, counter: 1}
}

// Bind records value as the next argument and returns its placeholder
func (w *Writer) Bind(value interface{}) string {
	w.args = append(w.args, value)
	p := w.style.Format(w.counter)
	w.counter++
	return p
}

// Args returns the bound arguments in placeholder order
func (w *Writer) Args() []interface{} {
	return w.args
}

func (w *Writer) column(field string) (string, error) {
	if w.resolve == nil {
		if !isValidQualifiedIdentifier(field) {
			return "", fmt.Errorf("%w: %s", ErrUnknownField, field)
		}
		return quoteQualified(field), nil
	}
	return w.resolve(field)
}

// SelectBuilder builds a SELECT over a single resource with an explicit projection
type SelectBuilder struct {
	resource *schema.Resource
	style    Placeholder
	fields   []string
	where    *PredicateGroup
	orderBy  []string
	limit    *int
}

// NewSelect creates a new select builder for the given resource
func NewSelect(resource *schema.Resource, style Placeholder) *SelectBuilder {
	return &SelectBuilder{
		resource: resource,
		style:    style,
		fields:   make([]string, 0),
		orderBy:  make([]string, 0),
	}
}

// Fields sets the projection. References are "Alias.column" or bare names;
// bare computed field names render as their expression.
func (b *SelectBuilder) Fields(refs ...string) *SelectBuilder {
	b.fields = append(b.fields, refs...)
	return b
}

// Where adds a predicate group, combined conjunctively with earlier ones
func (b *SelectBuilder) Where(pg *PredicateGroup) *SelectBuilder {
	b.where = And(b.where, pg)
	return b
}

// OrderBy adds an ORDER BY clause
func (b *SelectBuilder) OrderBy(field string, direction string) *SelectBuilder {
	dir := strings.ToUpper(direction)
	if dir != "ASC" && dir != "DESC" {
		dir = "ASC"
	}
	b.orderBy = append(b.orderBy, field+" "+dir)
	return b
}

// Limit sets the LIMIT clause
func (b *SelectBuilder) Limit(n int) *SelectBuilder {
	b.limit = &n
	return b
}

// ToSQL generates the SQL query and parameter bindings
func (b *SelectBuilder) ToSQL() (string, []interface{}, error) {
	var sql strings.Builder
	w := NewWriter(b.style, b.Column)

	selectList, err := b.selectList()
	if err != nil {
		return "", nil, err
	}

	sql.WriteString("SELECT ")
	sql.WriteString(strings.Join(selectList, ", "))
	sql.WriteString(fmt.Sprintf(" FROM %s AS %s",
		pq.QuoteIdentifier(b.resource.TableName),
		pq.QuoteIdentifier(b.resource.Name)))

	if !b.where.IsEmpty() {
		where, err := b.where.ToSQL(w)
		if err != nil {
			return "", nil, fmt.Errorf("failed to build condition: %w", err)
		}
		sql.WriteString(" WHERE ")
		sql.WriteString(where)
	}

	if len(b.orderBy) > 0 {
		parts := make([]string, 0, len(b.orderBy))
		for _, clause := range b.orderBy {
			field, dir, _ := strings.Cut(clause, " ")
			col, err := b.Column(field)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, col+" "+dir)
		}
		sql.WriteString(" ORDER BY ")
		sql.WriteString(strings.Join(parts, ", "))
	}

	if b.limit != nil {
		sql.WriteString(" LIMIT ")
		sql.WriteString(w.Bind(*b.limit))
	}

	return sql.String(), w.Args(), nil
}

// Column resolves a field reference to a SQL expression
func (b *SelectBuilder) Column(ref string) (string, error) {
	name := ref
	if alias, col, ok := strings.Cut(ref, "."); ok {
		if alias != b.resource.Name {
			return "", fmt.Errorf("%w: %s (resource is %s)", ErrUnknownField, ref, b.resource.Name)
		}
		name = col
	}

	if computed, ok := b.resource.Computed[name]; ok {
		return "(" + computed.Expression + ")", nil
	}

	if !isValidIdentifier(name) || !b.resource.HasColumn(name) {
		return "", fmt.Errorf("%w: %s.%s", ErrUnknownField, b.resource.Name, name)
	}

	return pq.QuoteIdentifier(b.resource.Name) + "." + pq.QuoteIdentifier(name), nil
}

// selectList renders the projection, aliasing every column to its bare name
func (b *SelectBuilder) selectList() ([]string, error) {
	refs := b.fields
	if len(refs) == 0 {
		if len(b.resource.Columns) == 0 {
			refs = []string{"*"}
		} else {
			refs = append(refs, b.resource.Columns...)
		}
		refs = append(refs, sortedComputed(b.resource)...)
	}

	list := make([]string, 0, len(refs))
	seen := make(map[string]bool, len(refs))
	for _, ref := range refs {
		if ref == "*" {
			list = append(list, pq.QuoteIdentifier(b.resource.Name)+".*")
			continue
		}

		name := columnName(ref)
		if seen[name] {
			continue
		}
		seen[name] = true

		col, err := b.Column(ref)
		if err != nil {
			return nil, err
		}
		list = append(list, fmt.Sprintf("%s AS %s", col, pq.QuoteIdentifier(name)))
	}
	return list, nil
}

func sortedComputed(resource *schema.Resource) []string {
	names := make([]string, 0, len(resource.Computed))
	for name := range resource.Computed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// quoteQualified quotes each dot-separated part of an identifier
func quoteQualified(identifier string) string {
	parts := strings.Split(identifier, ".")
	for i, part := range parts {
		parts[i] = pq.QuoteIdentifier(part)
	}
	return strings.Join(parts, ".")
}

// isValidQualifiedIdentifier accepts "column" or "table.column"
func isValidQualifiedIdentifier(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return false
	}
	for _, part := range parts {
		if !isValidIdentifier(part) {
			return false
		}
	}
	return true
}

// isValidIdentifier checks if a string is a valid SQL identifier
func isValidIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for _, char := range s {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '_') {
			return false
		}
	}
	return true
}
