package ability

// Implications is the fixed cross-feature alias table applied by the resolver.
// Holding the key grants every listed ability as well.
var Implications = map[string][]string{
	"reports.view":   {"dashboard.view"},
	"tenants.manage": {"tenants.delete", "tenants.update", "tenants.impersonate"},
}

// Closure is the effective grant view over a resolved set of held abilities.
// Manage and alias implications are evaluated on demand instead of being
// materialised, so the ability space does not have to be known up front.
type Closure struct {
	held    Set
	implied Set
}

// NewClosure builds the closure over the held abilities.
func NewClosure(held Set) Closure {
	implied := make(Set)
	for source, targets := range Implications {
		if held.Has(source) {
			implied.Add(targets...)
		}
	}
	return Closure{held: held, implied: implied}
}

// All reports whether the wildcard is held.
func (c Closure) All() bool {
	return c.held.Has(Wildcard)
}

// Held returns the literal abilities the closure was built from.
func (c Closure) Held() Set {
	return c.held
}

// Allows reports whether ability a is granted. Managers grant down within a
// feature: feature.manage allows every feature.* ability, never the reverse.
func (c Closure) Allows(a string) bool {
	if a == "" {
		return false
	}
	if c.held.Has(Wildcard) || c.held.Has(a) || c.implied.Has(a) {
		return true
	}
	if manage := Manage(a); manage != "" && c.held.Has(manage) {
		return true
	}
	return false
}

// AllowsAny reports whether any of the abilities is granted.
func (c Closure) AllowsAny(abilities []string) bool {
	for _, a := range abilities {
		if c.Allows(a) {
			return true
		}
	}
	return false
}
