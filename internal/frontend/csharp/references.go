package csharp

import (
	"github.com/panbanda/dormant/pkg/operation"
	"github.com/panbanda/dormant/pkg/symbol"
)

// Reference resolution over-approximates: a site that cannot be bound to a
// single symbol references every plausible candidate.

func (b *binder) resolveRefs(f *FileFacts) {
	for i := range f.Refs {
		site := &f.Refs[i]
		ctx := b.types[site.Scope]
		loc := location(f.Path, site.Span)

		switch site.Kind {
		case RefInvoke:
			b.resolveInvoke(site, ctx, f.Usings, loc)
		case RefNew:
			b.resolveNew(site, ctx, f.Usings, loc)
		case RefMember:
			b.resolveMember(site, ctx, f.Usings, loc)
		case RefName:
			for _, m := range b.membersNamed(b.enclosing(ctx), site.Name, isValueMember) {
				b.emit(operation.ForMember(m, loc))
			}
		case RefTypeOf:
			if typ := b.resolveTypeText(site.Name, ctx, f.Usings); typ.Valid() {
				b.emit(operation.TypeOf(typ, loc))
			}
		case RefCast:
			if typ := b.resolveTypeText(site.Name, ctx, f.Usings); typ.Valid() {
				b.emit(operation.Conversion(typ, loc))
			}
		}
	}
}

func (b *binder) emit(op operation.Operation) {
	b.ops = append(b.ops, op)
}

func (b *binder) resolveInvoke(site *RefSite, ctx *boundType, usings []string, loc symbol.Location) {
	scope, bound := b.receiverScope(site.Receiver, ctx, usings)

	if site.Name == ".ctor" {
		if len(scope) == 0 {
			return
		}
		for _, c := range preferArity(constructors(b.table, scope[0]), site.ArgCount) {
			b.emit(operation.Invocation(c.ID, loc))
		}
		return
	}

	methods := b.membersNamed(scope, site.Name, isOrdinaryMethod)
	if len(methods) == 0 && !bound {
		methods = b.globalMembers(site.Name, isOrdinaryMethod)
	}
	if len(methods) > 0 {
		for _, m := range preferArity(methods, site.ArgCount) {
			b.emit(operation.Invocation(m.ID, loc))
		}
		return
	}

	// Invoking a delegate-typed field, property or event.
	members := b.membersNamed(scope, site.Name, isValueMember)
	if len(members) == 0 && !bound {
		members = b.globalMembers(site.Name, isValueMember)
	}
	for _, m := range members {
		b.emit(operation.ForMember(m, loc))
	}
}

func (b *binder) resolveNew(site *RefSite, ctx *boundType, usings []string, loc symbol.Location) {
	typID := b.resolveTypeText(site.Name, ctx, usings)
	typ := b.table.Symbol(typID)
	if typ == nil {
		return
	}
	ctors := preferArity(constructors(b.table, typ), site.ArgCount)
	if len(ctors) == 0 {
		b.emit(operation.ObjectCreation(symbol.NoID, typ.ID, loc))
		return
	}
	for _, c := range ctors {
		b.emit(operation.ObjectCreation(c.ID, typ.ID, loc))
	}
}

func (b *binder) resolveMember(site *RefSite, ctx *boundType, usings []string, loc symbol.Location) {
	scope, bound := b.receiverScope(site.Receiver, ctx, usings)
	members := b.membersNamed(scope, site.Name, isValueMember)
	if len(members) == 0 && !bound {
		members = b.globalMembers(site.Name, isValueMember)
	}
	for _, m := range members {
		b.emit(operation.ForMember(m, loc))
	}
}

// receiverScope returns the types to search for a member accessed through
// receiver. bound is true when the receiver pins the lookup to those types.
func (b *binder) receiverScope(receiver string, ctx *boundType, usings []string) ([]*symbol.Symbol, bool) {
	switch receiver {
	case "":
		return b.enclosing(ctx), false
	case ReceiverThis:
		if ctx == nil {
			return nil, true
		}
		return b.chain(ctx.sym), true
	case ReceiverBase:
		if ctx == nil {
			return nil, true
		}
		return b.chain(b.table.Symbol(ctx.sym.BaseType)), true
	case "?":
		return nil, false
	}
	if typ := b.table.Symbol(b.resolveTypeText(receiver, ctx, usings)); typ != nil {
		return b.chain(typ), false
	}
	return nil, false
}

func (b *binder) resolveTypeText(text string, ctx *boundType, usings []string) symbol.ID {
	name, arity := parseTypeName(text)
	if name == "" {
		return symbol.NoID
	}
	if ctx != nil {
		usings = appendUniqueStrings(append([]string(nil), usings...), ctx.usings)
	}
	return b.resolveType(name, arity, ctx, usings)
}

// chain returns typ followed by its base types.
func (b *binder) chain(typ *symbol.Symbol) []*symbol.Symbol {
	var out []*symbol.Symbol
	seen := make(map[symbol.ID]bool)
	for typ != nil && !seen[typ.ID] {
		seen[typ.ID] = true
		out = append(out, typ)
		typ = b.table.Symbol(typ.BaseType)
	}
	return out
}

// enclosing returns the base chains of ctx and every type containing it,
// innermost first.
func (b *binder) enclosing(ctx *boundType) []*symbol.Symbol {
	var out []*symbol.Symbol
	for outer := ctx; outer != nil; outer = b.byID[outer.sym.ContainingType] {
		out = append(out, b.chain(outer.sym)...)
	}
	return out
}

func (b *binder) membersNamed(types []*symbol.Symbol, name string, keep func(*symbol.Symbol) bool) []*symbol.Symbol {
	var out []*symbol.Symbol
	for _, typ := range types {
		for _, m := range symbol.Resolve(b.table, typ.Members) {
			if m.Name == name && keep(m) {
				out = append(out, m)
			}
		}
	}
	return out
}

func (b *binder) globalMembers(name string, keep func(*symbol.Symbol) bool) []*symbol.Symbol {
	var out []*symbol.Symbol
	for _, id := range b.members[nameHash(name)] {
		if m := b.table.Symbol(id); m != nil && m.Name == name && keep(m) {
			out = append(out, m)
		}
	}
	return out
}

// implicitCalls references what the runtime or compiler invokes without a
// call site: the entry point, static constructors and the parameterless
// constructor of each source base class.
func (b *binder) implicitCalls(entry symbol.ID) {
	if main := b.table.Symbol(entry); main != nil {
		if loc, ok := main.FirstSourceLocation(); ok {
			b.emit(operation.Invocation(entry, loc))
		}
	}
	for _, bt := range b.order {
		loc, ok := bt.sym.FirstSourceLocation()
		if !ok {
			continue
		}
		for _, m := range symbol.Resolve(b.table, bt.sym.Members) {
			if m.MethodKind == symbol.MethodKindStaticConstructor {
				b.emit(operation.Invocation(m.ID, loc))
			}
		}
		base := b.byID[bt.sym.BaseType]
		if base == nil {
			continue
		}
		for _, c := range constructors(b.table, base.sym) {
			if c.Arity() == 0 {
				b.emit(operation.Invocation(c.ID, loc))
			}
		}
	}
}

func constructors(l symbol.Lookup, typ *symbol.Symbol) []*symbol.Symbol {
	var out []*symbol.Symbol
	for _, m := range symbol.Resolve(l, typ.Members) {
		if m.MethodKind == symbol.MethodKindConstructor {
			out = append(out, m)
		}
	}
	return out
}

// preferArity keeps the candidates whose parameter count matches args. When
// none match, optional or params arguments may be in play and every
// candidate is kept.
func preferArity(cands []*symbol.Symbol, args int) []*symbol.Symbol {
	var exact []*symbol.Symbol
	for _, c := range cands {
		if c.Arity() == args {
			exact = append(exact, c)
		}
	}
	if len(exact) > 0 {
		return exact
	}
	return cands
}

func isOrdinaryMethod(s *symbol.Symbol) bool {
	return s.Kind == symbol.KindMethod &&
		s.MethodKind != symbol.MethodKindConstructor &&
		s.MethodKind != symbol.MethodKindStaticConstructor
}

func isValueMember(s *symbol.Symbol) bool {
	return s.Kind != symbol.KindType &&
		s.MethodKind != symbol.MethodKindConstructor &&
		s.MethodKind != symbol.MethodKindStaticConstructor
}
