package usage

import (
	"strings"

	"github.com/panbanda/dormant/pkg/symbol"
)

// InheritanceChecker answers name-based questions about a type's ancestry.
type InheritanceChecker interface {
	// InheritsFromOrImplements reports whether typ, one of its base types, or
	// any interface it implements matches target.
	InheritsFromOrImplements(typ *symbol.Symbol, target string) bool
	// MatchesAnyMetadataName reports whether typ itself matches one of names.
	MatchesAnyMetadataName(typ *symbol.Symbol, names ...string) bool
}

// TypeInheritanceChecker resolves base types and interfaces through a lookup.
type TypeInheritanceChecker struct {
	symbols symbol.Lookup
}

// NewTypeInheritanceChecker creates a checker over symbols.
func NewTypeInheritanceChecker(symbols symbol.Lookup) *TypeInheritanceChecker {
	return &TypeInheritanceChecker{symbols: symbols}
}

// InheritsFromOrImplements walks the base chain first, then the transitive
// interface set.
func (c *TypeInheritanceChecker) InheritsFromOrImplements(typ *symbol.Symbol, target string) bool {
	if typ == nil || target == "" {
		return false
	}

	seen := make(map[symbol.ID]bool)
	for current := typ; current != nil && !seen[current.ID]; current = c.symbols.Symbol(current.BaseType) {
		seen[current.ID] = true
		if matchesName(current, target) {
			return true
		}
	}

	for _, iface := range AllInterfaces(c.symbols, typ) {
		if matchesName(iface, target) {
			return true
		}
	}
	return false
}

// MatchesAnyMetadataName does not walk the base chain.
func (c *TypeInheritanceChecker) MatchesAnyMetadataName(typ *symbol.Symbol, names ...string) bool {
	if typ == nil {
		return false
	}
	for _, name := range names {
		if name != "" && matchesName(typ, name) {
			return true
		}
	}
	return false
}

// matchesName tries the exact qualified name, then the metadata name, then a
// qualified-name suffix. The suffix rule lets callers pass partially
// qualified names such as "Mvc.ApiControllerAttribute".
func matchesName(typ *symbol.Symbol, target string) bool {
	if typ.QualifiedName == target {
		return true
	}
	if typ.Metadata() == target || typ.Name == target {
		return true
	}
	return strings.HasSuffix(typ.QualifiedName, target)
}

// AllInterfaces returns every interface typ implements: those declared on typ
// and on each of its base types, plus their base interfaces. Each interface
// appears once.
func AllInterfaces(symbols symbol.Lookup, typ *symbol.Symbol) []*symbol.Symbol {
	if typ == nil {
		return nil
	}

	var out []*symbol.Symbol
	seen := make(map[symbol.ID]bool)
	var visit func(id symbol.ID)
	visit = func(id symbol.ID) {
		if seen[id] {
			return
		}
		iface := symbols.Symbol(id)
		if iface == nil {
			return
		}
		seen[id] = true
		out = append(out, iface)
		for _, parent := range iface.Interfaces {
			visit(parent)
		}
	}

	walked := make(map[symbol.ID]bool)
	for current := typ; current != nil && !walked[current.ID]; current = symbols.Symbol(current.BaseType) {
		walked[current.ID] = true
		for _, id := range current.Interfaces {
			visit(id)
		}
	}
	return out
}
