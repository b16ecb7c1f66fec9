// Package schema describes the stored resources (groups) that routable records
// come from: their table, alias, primary key, declared columns, computed fields and
// associations.
package schema

import (
	"fmt"
	"strings"
)

// RelationType identifies how two resources are associated
type RelationType int

const (
	// RelationshipBelongsTo attaches a single parent record (foreign key on this resource)
	RelationshipBelongsTo RelationType = iota
	// RelationshipHasMany attaches a list of child records (foreign key on the target)
	RelationshipHasMany
)

// String returns the string representation of the relation type
func (r RelationType) String() string {
	switch r {
	case RelationshipBelongsTo:
		return "belongs_to"
	case RelationshipHasMany:
		return "has_many"
	default:
		return "unknown"
	}
}

// ParseRelationType converts a string to a RelationType
func ParseRelationType(s string) (RelationType, error) {
	switch s {
	case "belongs_to":
		return RelationshipBelongsTo, nil
	case "has_many":
		return RelationshipHasMany, nil
	default:
		return 0, fmt.Errorf("unknown relationship type: %s", s)
	}
}

// Relationship describes an association that can be eager loaded into a nested batch
type Relationship struct {
	Type           RelationType
	TargetResource string
	// FieldName is the key the associated record(s) are attached under.
	// Defaults to the target resource name so nested batches stay tagged by group.
	FieldName string
	// ForeignKey defaults to DefaultForeignKey of the owning side
	ForeignKey string
}

// ComputedField is a field evaluated by the database on read (never a real column)
type ComputedField struct {
	Name       string
	Expression string
}

// Resource describes a stored group of records
type Resource struct {
	// Name is the alias used to qualify columns and to tag records in result batches
	Name       string
	TableName  string
	PrimaryKey string

	// Columns lists the declared real columns. Empty means "unknown, select *".
	Columns []string

	Computed      map[string]*ComputedField
	Relationships map[string]*Relationship
}

// NewResource creates a new Resource with conventional defaults
func NewResource(name string) *Resource {
	return &Resource{
		Name:          name,
		TableName:     toTableName(name),
		PrimaryKey:    "id",
		Columns:       make([]string, 0),
		Computed:      make(map[string]*ComputedField),
		Relationships: make(map[string]*Relationship),
	}
}

// WithTable overrides the conventional table name
func (r *Resource) WithTable(table string) *Resource {
	r.TableName = table
	return r
}

// WithColumns declares the real columns of the resource
func (r *Resource) WithColumns(columns ...string) *Resource {
	r.Columns = append(r.Columns, columns...)
	return r
}

// AddComputed registers a computed field evaluated by the given SQL expression
func (r *Resource) AddComputed(name, expression string) *Resource {
	r.Computed[name] = &ComputedField{Name: name, Expression: expression}
	return r
}

// AddRelationship registers an association under its field name
func (r *Resource) AddRelationship(rel *Relationship) *Resource {
	if rel.FieldName == "" {
		rel.FieldName = rel.TargetResource
	}
	r.Relationships[rel.FieldName] = rel
	return r
}

// IsComputed returns true if name is a computed field of the resource
func (r *Resource) IsComputed(name string) bool {
	_, ok := r.Computed[name]
	return ok
}

// HasColumn returns true if the column was declared. Resources without
// declared columns accept any name.
func (r *Resource) HasColumn(name string) bool {
	if len(r.Columns) == 0 {
		return true
	}
	for _, col := range r.Columns {
		if col == name {
			return true
		}
	}
	return false
}

// Validate checks the structural integrity of the resource
func (r *Resource) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("resource name is required")
	}
	if !isValidIdentifier(r.Name) {
		return fmt.Errorf("invalid resource name: %s", r.Name)
	}
	if r.TableName == "" || !isValidIdentifier(r.TableName) {
		return fmt.Errorf("invalid table name for resource %s: %q", r.Name, r.TableName)
	}
	if r.PrimaryKey == "" {
		return fmt.Errorf("resource %s has no primary key", r.Name)
	}
	for name, computed := range r.Computed {
		if strings.TrimSpace(computed.Expression) == "" {
			return fmt.Errorf("computed field %s.%s has no expression", r.Name, name)
		}
		if r.HasColumn(name) && len(r.Columns) > 0 {
			return fmt.Errorf("computed field %s.%s shadows a column", r.Name, name)
		}
	}
	for name, rel := range r.Relationships {
		if rel.TargetResource == "" {
			return fmt.Errorf("relationship %s.%s has no target resource", r.Name, name)
		}
	}
	return nil
}

// DefaultForeignKey returns the conventional foreign key referencing resourceName
func DefaultForeignKey(resourceName string) string {
	return toSnakeCase(resourceName) + "_id"
}

// toTableName converts a resource name to a table name (snake_case plural)
func toTableName(resourceName string) string {
	return pluralize(toSnakeCase(resourceName))
}

// toSnakeCase converts a string to snake_case
func toSnakeCase(s string) string {
	var result []rune
	runes := []rune(s)

	for i, r := range runes {
		if i > 0 && r >= 'A' && r <= 'Z' {
			prev := runes[i-1]
			if prev >= 'a' && prev <= 'z' {
				result = append(result, '_')
			} else if i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z' {
				result = append(result, '_')
			}
		}
		if r >= 'A' && r <= 'Z' {
			result = append(result, r+('a'-'A'))
		} else {
			result = append(result, r)
		}
	}
	return string(result)
}

// pluralize adds simple pluralization
func pluralize(s string) string {
	if strings.HasSuffix(s, "s") ||
		strings.HasSuffix(s, "x") ||
		strings.HasSuffix(s, "z") {
		return s + "es"
	}
	if strings.HasSuffix(s, "y") {
		return s[:len(s)-1] + "ies"
	}
	return s + "s"
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
