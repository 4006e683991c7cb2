package usage

import "github.com/panbanda/dormant/pkg/symbol"

// InterfaceDispatcher finds the member of a type that implements an
// interface member. A Compilation that implements it replaces the default
// SignatureDispatcher.
type InterfaceDispatcher interface {
	FindImplementationForInterfaceMember(typ, member *symbol.Symbol) *symbol.Symbol
}

// SignatureDispatcher matches implementations by name, kind and arity. It does
// not compare parameter types, so overloads of equal arity resolve to the
// first declared.
type SignatureDispatcher struct {
	symbols symbol.Lookup
}

// NewSignatureDispatcher creates a dispatcher over symbols.
func NewSignatureDispatcher(symbols symbol.Lookup) *SignatureDispatcher {
	return &SignatureDispatcher{symbols: symbols}
}

// FindImplementationForInterfaceMember returns nil when member is not a
// member of an interface typ implements.
func (d *SignatureDispatcher) FindImplementationForInterfaceMember(typ, member *symbol.Symbol) *symbol.Symbol {
	if typ == nil || member == nil {
		return nil
	}
	if !d.implements(typ, member.ContainingType) {
		return nil
	}

	seen := make(map[symbol.ID]bool)
	for current := typ; current != nil && !seen[current.ID]; current = d.symbols.Symbol(current.BaseType) {
		seen[current.ID] = true
		if impl := d.explicitImpl(current, member); impl != nil {
			return impl
		}
		if impl := d.implicitImpl(current, member); impl != nil {
			return impl
		}
	}
	return nil
}

func (d *SignatureDispatcher) implements(typ *symbol.Symbol, iface symbol.ID) bool {
	if !iface.Valid() {
		return false
	}
	for _, candidate := range AllInterfaces(d.symbols, typ) {
		if candidate.ID == iface {
			return true
		}
	}
	return false
}

func (d *SignatureDispatcher) explicitImpl(typ, member *symbol.Symbol) *symbol.Symbol {
	for _, id := range typ.Members {
		m := d.symbols.Symbol(id)
		if m == nil {
			continue
		}
		for _, target := range m.ExplicitInterfaceImplementations {
			if target == member.ID {
				return m
			}
		}
	}
	return nil
}

func (d *SignatureDispatcher) implicitImpl(typ, member *symbol.Symbol) *symbol.Symbol {
	for _, id := range typ.Members {
		m := d.symbols.Symbol(id)
		if m == nil || m.IsStatic || len(m.ExplicitInterfaceImplementations) > 0 {
			continue
		}
		if m.Accessibility != symbol.AccessPublic {
			continue
		}
		if m.Kind == member.Kind && m.Name == member.Name && m.Arity() == member.Arity() {
			return m
		}
	}
	return nil
}
