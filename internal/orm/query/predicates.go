// Package query provides predicate construction for WHERE clauses
package query

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Operator represents a comparison operator
type Operator int

const (
	OpEqual Operator = iota
	OpNotEqual
	OpGreaterThan
	OpGreaterThanOrEqual
	OpLessThan
	OpLessThanOrEqual
	OpIn
	OpNotIn
	OpLike
	OpIsNull
	OpIsNotNull
	OpBetween
)

// String returns the string representation of the operator
func (o Operator) String() string {
	switch o {
	case OpEqual:
		return "="
	case OpNotEqual:
		return "!="
	case OpGreaterThan:
		return ">"
	case OpGreaterThanOrEqual:
		return ">="
	case OpLessThan:
		return "<"
	case OpLessThanOrEqual:
		return "<="
	case OpIn:
		return "IN"
	case OpNotIn:
		return "NOT IN"
	case OpLike:
		return "LIKE"
	case OpIsNull:
		return "IS NULL"
	case OpIsNotNull:
		return "IS NOT NULL"
	case OpBetween:
		return "BETWEEN"
	default:
		return "UNKNOWN"
	}
}

// Condition represents a WHERE condition
type Condition struct {
	Field    string
	Operator Operator
	Value    interface{}
	Or       bool // true for OR, false for AND
}

// Eq builds an equality condition. A nil value becomes IS NULL.
func Eq(field string, value interface{}) *Condition {
	if value == nil {
		return &Condition{Field: field, Operator: OpIsNull}
	}
	return &Condition{Field: field, Operator: OpEqual, Value: value}
}

// In builds an IN condition
func In(field string, values []interface{}) *Condition {
	return &Condition{Field: field, Operator: OpIn, Value: values}
}

// PredicateGroup represents a group of predicates combined with AND/OR
type PredicateGroup struct {
	Conditions []*Condition
	Groups     []*PredicateGroup
	Or         bool // true for OR, false for AND
}

// NewPredicateGroup creates a new predicate group
func NewPredicateGroup(or bool) *PredicateGroup {
	return &PredicateGroup{
		Conditions: make([]*Condition, 0),
		Groups:     make([]*PredicateGroup, 0),
		Or:         or,
	}
}

// Where creates an AND group of the given conditions
func Where(conds ...*Condition) *PredicateGroup {
	pg := NewPredicateGroup(false)
	for _, cond := range conds {
		pg.AddCondition(cond)
	}
	return pg
}

// FromMap creates an AND group of equality conditions, one per key in sorted
// key order. Slice values become IN conditions.
func FromMap(fields map[string]interface{}) *PredicateGroup {
	if len(fields) == 0 {
		return nil
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pg := NewPredicateGroup(false)
	for _, k := range keys {
		switch v := fields[k].(type) {
		case []interface{}:
			pg.AddCondition(In(k, v))
		case []string:
			values := make([]interface{}, len(v))
			for i := range v {
				values[i] = v[i]
			}
			pg.AddCondition(In(k, values))
		default:
			pg.AddCondition(Eq(k, v))
		}
	}
	return pg
}

// And combines groups conjunctively, skipping nil and empty ones.
// Returns nil when nothing remains.
func And(groups ...*PredicateGroup) *PredicateGroup {
	var parts []*PredicateGroup
	for _, g := range groups {
		if !g.IsEmpty() {
			parts = append(parts, g)
		}
	}

	switch len(parts) {
	case 0:
		return nil
	case 1:
		return parts[0]
	}

	root := NewPredicateGroup(false)
	for _, g := range parts {
		root.AddGroup(g)
	}
	return root
}

// AddCondition adds a condition to the group
func (pg *PredicateGroup) AddCondition(cond *Condition) {
	pg.Conditions = append(pg.Conditions, cond)
}

// AddGroup adds a nested group
func (pg *PredicateGroup) AddGroup(group *PredicateGroup) {
	pg.Groups = append(pg.Groups, group)
}

// IsEmpty reports whether the group holds no predicates. A nil group is empty.
func (pg *PredicateGroup) IsEmpty() bool {
	if pg == nil {
		return true
	}
	if len(pg.Conditions) > 0 {
		return false
	}
	for _, g := range pg.Groups {
		if !g.IsEmpty() {
			return false
		}
	}
	return true
}

// Fields returns every field referenced by the group, in order of appearance
func (pg *PredicateGroup) Fields() []string {
	if pg == nil {
		return nil
	}
	var fields []string
	for _, cond := range pg.Conditions {
		fields = append(fields, cond.Field)
	}
	for _, g := range pg.Groups {
		fields = append(fields, g.Fields()...)
	}
	return fields
}

// ToSQL converts the predicate group to SQL, binding values through w
func (pg *PredicateGroup) ToSQL(w *Writer) (string, error) {
	if pg.IsEmpty() {
		return "", nil
	}

	parts := make([]string, 0)

	for _, cond := range pg.Conditions {
		sql, err := conditionToSQL(cond, w)
		if err != nil {
			return "", err
		}
		parts = append(parts, sql)
	}

	for _, group := range pg.Groups {
		sql, err := group.ToSQL(w)
		if err != nil {
			return "", err
		}
		if sql != "" {
			parts = append(parts, fmt.Sprintf("(%s)", sql))
		}
	}

	if len(parts) == 0 {
		return "", nil
	}

	connector := " AND "
	if pg.Or {
		connector = " OR "
	}

	return strings.Join(parts, connector), nil
}

// Evaluate reports whether record satisfies the group. Fields qualified as
// "Alias.column" are looked up by column. Comparison is loose, the way SQL
// compares a text parameter against a numeric column.
func (pg *PredicateGroup) Evaluate(record map[string]interface{}) bool {
	if pg.IsEmpty() {
		return true
	}

	results := make([]bool, 0, len(pg.Conditions)+len(pg.Groups))
	for _, cond := range pg.Conditions {
		results = append(results, cond.Evaluate(record))
	}
	for _, g := range pg.Groups {
		if g.IsEmpty() {
			continue
		}
		results = append(results, g.Evaluate(record))
	}

	for _, r := range results {
		if pg.Or && r {
			return true
		}
		if !pg.Or && !r {
			return false
		}
	}
	return !pg.Or
}

// Evaluate reports whether record satisfies the condition
func (c *Condition) Evaluate(record map[string]interface{}) bool {
	value, ok := record[columnName(c.Field)]
	if !ok {
		return false
	}

	switch c.Operator {
	case OpEqual:
		return value != nil && looseEqual(value, c.Value)
	case OpNotEqual:
		return value != nil && !looseEqual(value, c.Value)
	case OpGreaterThan:
		return value != nil && compare(value, c.Value) > 0
	case OpGreaterThanOrEqual:
		return value != nil && compare(value, c.Value) >= 0
	case OpLessThan:
		return value != nil && compare(value, c.Value) < 0
	case OpLessThanOrEqual:
		return value != nil && compare(value, c.Value) <= 0
	case OpIn, OpNotIn:
		values, _ := c.Value.([]interface{})
		found := false
		for _, v := range values {
			if value != nil && looseEqual(value, v) {
				found = true
				break
			}
		}
		if c.Operator == OpIn {
			return found
		}
		return value != nil && !found
	case OpLike:
		return value != nil && likeMatch(normalize(value), normalize(c.Value))
	case OpIsNull:
		return value == nil
	case OpIsNotNull:
		return value != nil
	case OpBetween:
		values, ok := c.Value.([]interface{})
		if !ok || len(values) != 2 || value == nil {
			return false
		}
		return compare(value, values[0]) >= 0 && compare(value, values[1]) <= 0
	default:
		return false
	}
}

// conditionToSQL converts a condition to SQL with parameterized values
func conditionToSQL(cond *Condition, w *Writer) (string, error) {
	column, err := w.column(cond.Field)
	if err != nil {
		return "", err
	}

	switch cond.Operator {
	case OpEqual, OpNotEqual, OpGreaterThan, OpGreaterThanOrEqual,
		OpLessThan, OpLessThanOrEqual, OpLike:
		return fmt.Sprintf("%s %s %s", column, cond.Operator.String(), w.Bind(cond.Value)), nil

	case OpIn, OpNotIn:
		values, ok := cond.Value.([]interface{})
		if !ok {
			return "", fmt.Errorf("%s operator requires []interface{} value", cond.Operator)
		}
		if len(values) == 0 {
			// IN with empty list is always false, NOT IN always true
			if cond.Operator == OpIn {
				return "1 = 0", nil
			}
			return "1 = 1", nil
		}

		placeholders := make([]string, len(values))
		for i, v := range values {
			placeholders[i] = w.Bind(v)
		}
		return fmt.Sprintf("%s %s (%s)", column, cond.Operator, strings.Join(placeholders, ", ")), nil

	case OpIsNull, OpIsNotNull:
		return fmt.Sprintf("%s %s", column, cond.Operator), nil

	case OpBetween:
		values, ok := cond.Value.([]interface{})
		if !ok || len(values) != 2 {
			return "", fmt.Errorf("BETWEEN operator requires [min, max] values")
		}
		min := w.Bind(values[0])
		max := w.Bind(values[1])
		return fmt.Sprintf("%s BETWEEN %s AND %s", column, min, max), nil

	default:
		return "", fmt.Errorf("unsupported operator: %v", cond.Operator)
	}
}

// ParseCondition parses an expression like "status = published", "views > 100"
// or "parent_id IS NULL" into a Condition
func ParseCondition(expr string) (*Condition, error) {
	expr = strings.TrimSpace(expr)

	parts := strings.SplitN(expr, " ", 2)
	if len(parts) < 2 {
		return nil, fmt.Errorf("invalid condition format: %s", expr)
	}

	field := strings.TrimSpace(parts[0])
	rest := strings.TrimSpace(parts[1])

	upper := strings.ToUpper(rest)
	switch upper {
	case "IS NULL":
		return &Condition{Field: field, Operator: OpIsNull}, nil
	case "IS NOT NULL":
		return &Condition{Field: field, Operator: OpIsNotNull}, nil
	}

	opParts := strings.SplitN(rest, " ", 2)
	if len(opParts) < 2 {
		return nil, fmt.Errorf("invalid condition format: %s", expr)
	}

	op, err := parseOperatorString(opParts[0])
	if err != nil {
		return nil, err
	}
	valueStr := strings.TrimSpace(opParts[1])

	if op == OpNotIn {
		// "NOT IN (a, b)"
		if !strings.HasPrefix(strings.ToUpper(valueStr), "IN") {
			return nil, fmt.Errorf("invalid condition format: %s", expr)
		}
		valueStr = strings.TrimSpace(valueStr[2:])
	}

	switch op {
	case OpIn, OpNotIn:
		list := strings.Trim(valueStr, "()")
		var values []interface{}
		for _, item := range strings.Split(list, ",") {
			values = append(values, parseLiteralValue(strings.TrimSpace(item)))
		}
		return &Condition{Field: field, Operator: op, Value: values}, nil
	case OpBetween:
		i := strings.Index(strings.ToUpper(valueStr), " AND ")
		if i < 0 {
			return nil, fmt.Errorf("BETWEEN requires two bounds: %s", expr)
		}
		return &Condition{
			Field:    field,
			Operator: op,
			Value:    []interface{}{parseLiteralValue(valueStr[:i]), parseLiteralValue(valueStr[i+5:])},
		}, nil
	}

	return &Condition{Field: field, Operator: op, Value: parseLiteralValue(valueStr)}, nil
}

// parseOperatorString converts an operator string to an Operator type
func parseOperatorString(opStr string) (Operator, error) {
	opStr = strings.ToUpper(opStr)
	switch opStr {
	case "=", "==":
		return OpEqual, nil
	case "!=", "<>":
		return OpNotEqual, nil
	case "<":
		return OpLessThan, nil
	case "<=":
		return OpLessThanOrEqual, nil
	case ">":
		return OpGreaterThan, nil
	case ">=":
		return OpGreaterThanOrEqual, nil
	case "IN":
		return OpIn, nil
	case "NOT":
		// "NOT IN"
		return OpNotIn, nil
	case "LIKE":
		return OpLike, nil
	case "BETWEEN":
		return OpBetween, nil
	default:
		return OpEqual, fmt.Errorf("unknown operator: %s", opStr)
	}
}

// parseLiteralValue parses a literal value from a string
func parseLiteralValue(valueStr string) interface{} {
	valueStr = strings.TrimSpace(valueStr)
	if len(valueStr) >= 2 && (valueStr[0] == '\'' || valueStr[0] == '"') && valueStr[len(valueStr)-1] == valueStr[0] {
		return valueStr[1 : len(valueStr)-1]
	}

	if valueStr == "true" {
		return true
	}
	if valueStr == "false" {
		return false
	}

	if i, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return i
	}

	if strings.Contains(valueStr, ".") {
		if f, err := strconv.ParseFloat(valueStr, 64); err == nil {
			return f
		}
	}

	return valueStr
}

// columnName strips an "Alias." qualifier
func columnName(field string) string {
	if i := strings.LastIndex(field, "."); i >= 0 {
		return field[i+1:]
	}
	return field
}

// normalize renders a scalar the way a SQL engine would compare it as text
func normalize(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case bool:
		if val {
			return "1"
		}
		return "0"
	case []byte:
		return string(val)
	case float32:
		return normalize(float64(val))
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

func looseEqual(a, b interface{}) bool {
	return normalize(a) == normalize(b)
}

func compare(a, b interface{}) int {
	as, bs := normalize(a), normalize(b)
	af, aerr := strconv.ParseFloat(as, 64)
	bf, berr := strconv.ParseFloat(bs, 64)
	if aerr == nil && berr == nil {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(as, bs)
}

// likeMatch implements SQL LIKE with % and _ wildcards
func likeMatch(s, pattern string) bool {
	if pattern == "" {
		return s == ""
	}
	switch pattern[0] {
	case '%':
		for i := 0; i <= len(s); i++ {
			if likeMatch(s[i:], pattern[1:]) {
				return true
			}
		}
		return false
	case '_':
		return s != "" && likeMatch(s[1:], pattern[1:])
	default:
		return s != "" && s[0] == pattern[0] && likeMatch(s[1:], pattern[1:])
	}
}
