package query

import (
	"fmt"
	"strings"
)

// CompileScope turns a scope definition from configuration into a predicate
// group. Accepted shapes:
//
//	map[string]interface{}  equality per key ("flag: 1"), slices become IN
//	[]string / []interface{} conjunction of expressions ("views > 10")
//	string                  a single expression
//
// A nil definition compiles to a nil (empty) group.
func CompileScope(def interface{}) (*PredicateGroup, error) {
	switch v := def.(type) {
	case nil:
		return nil, nil
	case *PredicateGroup:
		return v, nil
	case map[string]interface{}:
		return FromMap(v), nil
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(v))
		for k, val := range v {
			m[fmt.Sprint(k)] = val
		}
		return FromMap(m), nil
	case string:
		return compileExpressions([]string{v})
	case []string:
		return compileExpressions(v)
	case []interface{}:
		exprs := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("scope expression must be a string, got %T", item)
			}
			exprs = append(exprs, s)
		}
		return compileExpressions(exprs)
	default:
		return nil, fmt.Errorf("unsupported scope definition %T", def)
	}
}

func compileExpressions(exprs []string) (*PredicateGroup, error) {
	pg := NewPredicateGroup(false)
	for _, expr := range exprs {
		if strings.TrimSpace(expr) == "" {
			continue
		}
		cond, err := ParseCondition(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid scope %q: %w", expr, err)
		}
		pg.AddCondition(cond)
	}
	if pg.IsEmpty() {
		return nil, nil
	}
	return pg, nil
}

// Qualify returns a copy of the group with every unqualified field that is not
// in bare prefixed with alias. Computed fields stay bare.
func Qualify(pg *PredicateGroup, alias string, bare func(field string) bool) *PredicateGroup {
	if pg == nil {
		return nil
	}
	out := NewPredicateGroup(pg.Or)
	for _, cond := range pg.Conditions {
		c := *cond
		if !strings.Contains(c.Field, ".") && (bare == nil || !bare(c.Field)) {
			c.Field = alias + "." + c.Field
		}
		out.AddCondition(&c)
	}
	for _, g := range pg.Groups {
		out.AddGroup(Qualify(g, alias, bare))
	}
	return out
}
