package routable

// projectFields lists the field references needed to encode or decode records
// of the group. Real columns are qualified with the group alias; computed
// fields are passed bare.
func (g *Group) projectFields(includeIdentity, includeOptionKeys bool) []string {
	names := append([]string(nil), g.Fields...)
	if includeIdentity {
		names = append(names, g.Resource.PrimaryKey)
	}
	if includeOptionKeys {
		for _, f := range []string{g.Parent, g.Link, g.Home} {
			if f != "" {
				names = append(names, f)
			}
		}
	}

	refs := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		ref := name
		if !g.Resource.IsComputed(name) {
			ref = g.Resource.Name + "." + name
		}
		if seen[ref] {
			continue
		}
		seen[ref] = true
		refs = append(refs, ref)
	}
	return refs
}

// fieldRef qualifies a single field the way projectFields does
func (g *Group) fieldRef(name string) string {
	if g.Resource.IsComputed(name) {
		return name
	}
	return g.Resource.Name + "." + name
}
