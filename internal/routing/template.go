// Package routing keeps the route templates records are addressed by and
// assembles paths and URLs from them.
package routing

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Template is a parsed route pattern such as "/{year}/{title}/{id:[0-9]+}" or "/*".
// Placeholders occupy whole segments; a trailing "*" accepts any number of
// extra ("passed") segments and marks the template hierarchical.
type Template struct {
	Pattern  string
	Params   []string
	Defaults map[string]string
	Wildcard bool

	segments []segment
}

type segment struct {
	literal string
	param   string
	pattern *regexp.Regexp
}

// ParseTemplate parses a chi-style pattern
func ParseTemplate(pattern string, defaults map[string]string) (*Template, error) {
	if !strings.HasPrefix(pattern, "/") {
		return nil, fmt.Errorf("%w: %q must start with /", ErrInvalidTemplate, pattern)
	}

	tpl := &Template{
		Pattern:  pattern,
		Params:   make([]string, 0),
		Defaults: make(map[string]string, len(defaults)),
	}
	for k, v := range defaults {
		tpl.Defaults[k] = v
	}

	body := strings.TrimPrefix(pattern, "/")
	if body == "" {
		return tpl, nil
	}

	parts := strings.Split(body, "/")
	seen := make(map[string]bool)
	for i, part := range parts {
		switch {
		case part == "*":
			if i != len(parts)-1 {
				return nil, fmt.Errorf("%w: %q wildcard must be the last segment", ErrInvalidTemplate, pattern)
			}
			tpl.Wildcard = true

		case strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}"):
			name, expr, hasExpr := strings.Cut(part[1:len(part)-1], ":")
			if name == "" || strings.ContainsAny(name, "{}*") {
				return nil, fmt.Errorf("%w: %q has an unnamed placeholder", ErrInvalidTemplate, pattern)
			}
			if seen[name] {
				return nil, fmt.Errorf("%w: %q repeats placeholder %s", ErrInvalidTemplate, pattern, name)
			}
			seen[name] = true

			seg := segment{param: name}
			if hasExpr {
				re, err := regexp.Compile("^(?:" + expr + ")$")
				if err != nil {
					return nil, fmt.Errorf("%w: %q placeholder %s: %v", ErrInvalidTemplate, pattern, name, err)
				}
				seg.pattern = re
			}
			tpl.segments = append(tpl.segments, seg)
			tpl.Params = append(tpl.Params, name)

		case part == "" || strings.ContainsAny(part, "{}*"):
			return nil, fmt.Errorf("%w: %q has a malformed segment %q", ErrInvalidTemplate, pattern, part)

		default:
			tpl.segments = append(tpl.segments, segment{literal: part})
		}
	}

	return tpl, nil
}

// Build assembles a path from placeholder values and passed segments.
// Placeholder values are inserted verbatim; passed segments are path-escaped.
func (t *Template) Build(values map[string]string, pass []string) (string, error) {
	parts := make([]string, 0, len(t.segments)+len(pass))

	for _, seg := range t.segments {
		if seg.param == "" {
			parts = append(parts, seg.literal)
			continue
		}
		value, ok := values[seg.param]
		if !ok {
			value, ok = t.Defaults[seg.param]
		}
		if !ok {
			return "", fmt.Errorf("%w: %s in %s", ErrMissingParam, seg.param, t.Pattern)
		}
		parts = append(parts, value)
	}

	if t.Wildcard {
		for _, p := range pass {
			parts = append(parts, url.PathEscape(p))
		}
	}

	if len(parts) == 0 {
		return "/", nil
	}
	return "/" + strings.Join(parts, "/"), nil
}

// Bind splits path segments into placeholder values and passed segments.
// Literal segments must match. ok is false on a literal mismatch, a value
// rejected by its placeholder constraint, or passed segments on a template
// without a wildcard. Fewer segments than the template declares is not an error.
func (t *Template) Bind(parts []string) (values map[string]string, pass []string, ok bool) {
	values = make(map[string]string, len(t.Params))
	i := 0
	for _, seg := range t.segments {
		if i >= len(parts) {
			return values, nil, true
		}
		part := parts[i]
		i++
		if seg.param == "" {
			if part != seg.literal {
				return nil, nil, false
			}
			continue
		}
		if seg.pattern != nil && !seg.pattern.MatchString(part) {
			return nil, nil, false
		}
		values[seg.param] = part
	}

	pass = append([]string(nil), parts[i:]...)
	if len(pass) > 0 && !t.Wildcard {
		return nil, nil, false
	}
	return values, pass, true
}

// Accepts reports whether value satisfies the placeholder's constraint.
// Unconstrained and unknown placeholders accept anything.
func (t *Template) Accepts(param, value string) bool {
	for _, seg := range t.segments {
		if seg.param == param && seg.pattern != nil {
			return seg.pattern.MatchString(value)
		}
	}
	return true
}
