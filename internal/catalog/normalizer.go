package catalog

import "strings"

// Normalize resolves a legacy ability spelling to its canonical form. Unknown
// abilities are returned unchanged.
func (c *Catalog) Normalize(a string) string {
	a = strings.TrimSpace(a)
	if canonical, ok := c.aliases[a]; ok {
		return canonical
	}
	return a
}

// NormalizeList normalizes every entry, dropping empties and duplicates.
func (c *Catalog) NormalizeList(abilities []string) []string {
	seen := make(map[string]struct{}, len(abilities))
	out := make([]string, 0, len(abilities))
	for _, a := range abilities {
		a = c.Normalize(a)
		if a == "" {
			continue
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}

// ExpandRequestedAbilities returns each requested ability together with its
// canonical spelling so either form validates.
func (c *Catalog) ExpandRequestedAbilities(abilities []string) []string {
	seen := make(map[string]struct{}, len(abilities)*2)
	out := make([]string, 0, len(abilities)*2)
	add := func(a string) {
		if a == "" {
			return
		}
		if _, ok := seen[a]; ok {
			return
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	for _, a := range abilities {
		a = strings.TrimSpace(a)
		add(a)
		add(c.Normalize(a))
	}
	return out
}
