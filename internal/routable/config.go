package routable

import (
	"fmt"
	"strings"

	"github.com/conduit-lang/routable/internal/orm/query"
	"github.com/conduit-lang/routable/internal/orm/schema"
	"github.com/conduit-lang/routable/internal/routing"
)

const (
	defaultVirtual = "routable"
	defaultParent  = "parent_id"
)

// GroupConfig is the user-facing configuration of one routable group
type GroupConfig struct {
	// Name of the resource (group) the records belong to
	Name string `mapstructure:"name"`
	// Route is the pattern of a connected route template
	Route string `mapstructure:"route"`
	// Fields are the data fields in template order, a string or a list.
	// The last one is the recursor of hierarchical groups.
	Fields interface{} `mapstructure:"fields"`
	// Scope limits which records are routable (see query.CompileScope)
	Scope          interface{} `mapstructure:"scope"`
	CascadingScope bool        `mapstructure:"cascading_scope"`
	// Recursive defaults to true and is narrowed to whether the route ends in a wildcard
	Recursive *bool  `mapstructure:"recursive"`
	Virtual   string `mapstructure:"virtual"`
	Parent    string `mapstructure:"parent"`
	Link      string `mapstructure:"link"`
	Home      string `mapstructure:"home"`
	Full      bool   `mapstructure:"full"`
}

// Group is a validated, bound group configuration
type Group struct {
	Name           string
	Resource       *schema.Resource
	Route          *routing.Template
	Fields         []string
	Scope          *query.PredicateGroup
	CascadingScope bool
	Recursive      bool
	Virtual        string
	Parent         string
	Link           string
	Home           string
	Full           bool
}

// newGroup validates cfg against the resource and route registries
func newGroup(cfg GroupConfig, resources *schema.Registry, routes *routing.Registry) (*Group, error) {
	res, ok := resources.Get(cfg.Name)
	if !ok {
		return nil, fmt.Errorf("%w: group %s has no registered resource", ErrConfiguration, cfg.Name)
	}

	fields, err := normalizeFields(cfg.Fields)
	if err != nil {
		return nil, fmt.Errorf("%w: fields of group %s: %v", ErrConfiguration, cfg.Name, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: fields for group %s were not configured", ErrConfiguration, cfg.Name)
	}

	if cfg.Route == "" {
		return nil, fmt.Errorf("%w: route for group %s was not configured", ErrConfiguration, cfg.Name)
	}
	tpl, err := routes.Lookup(cfg.Route)
	if err != nil {
		return nil, fmt.Errorf("%w: route %s for group %s could not be found", ErrConfiguration, cfg.Route, cfg.Name)
	}

	scope, err := query.CompileScope(cfg.Scope)
	if err != nil {
		return nil, fmt.Errorf("%w: scope of group %s: %v", ErrConfiguration, cfg.Name, err)
	}

	g := &Group{
		Name:           cfg.Name,
		Resource:       res,
		Route:          tpl,
		Fields:         fields,
		Scope:          query.Qualify(scope, res.Name, res.IsComputed),
		CascadingScope: cfg.CascadingScope,
		Recursive:      true,
		Virtual:        cfg.Virtual,
		Parent:         cfg.Parent,
		Link:           cfg.Link,
		Home:           cfg.Home,
		Full:           cfg.Full,
	}

	if cfg.Recursive != nil {
		g.Recursive = *cfg.Recursive
	}
	if g.Recursive {
		g.Recursive = tpl.Wildcard
	}
	if g.Recursive && g.Parent == "" {
		g.Parent = defaultParent
	}
	if g.Virtual == "" {
		g.Virtual = defaultVirtual
	}

	return g, nil
}

// recursor returns the field that builds hierarchical segments
func (g *Group) recursor() string {
	if !g.Recursive {
		return ""
	}
	return g.Fields[len(g.Fields)-1]
}

// keyFields returns the data fields assigned to named placeholders
func (g *Group) keyFields() []string {
	if g.Recursive {
		return g.Fields[:len(g.Fields)-1]
	}
	return g.Fields
}

// normalizeFields accepts a single field or a list and removes duplicates,
// keeping the first occurrence
func normalizeFields(raw interface{}) ([]string, error) {
	var list []string
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		list = []string{v}
	case []string:
		list = v
	case []interface{}:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("field name must be a string, got %T", item)
			}
			list = append(list, s)
		}
	default:
		return nil, fmt.Errorf("unsupported fields value %T", raw)
	}

	seen := make(map[string]bool, len(list))
	fields := make([]string, 0, len(list))
	for _, f := range list {
		f = strings.TrimSpace(f)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		fields = append(fields, f)
	}
	return fields, nil
}
