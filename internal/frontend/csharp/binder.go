package csharp

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/panbanda/dormant/pkg/operation"
	"github.com/panbanda/dormant/pkg/symbol"
)

var (
	interfaceName = regexp.MustCompile(`^I[A-Z]`)
	arityMarker   = regexp.MustCompile("`\\d+")
)

// boundType is a source type while binding.
type boundType struct {
	sym       *symbol.Symbol
	key       string
	namespace string
	usings    []string
	decls     []declSite
}

type declSite struct {
	path string
	decl *TypeDecl
}

type binder struct {
	table   *symbol.Table
	catalog *catalogIndex
	logger  *slog.Logger

	types     map[string]*boundType
	order     []*boundType
	byID      map[symbol.ID]*boundType
	typeNames map[uint64][]symbol.ID
	members   map[uint64][]symbol.ID
	meta      map[string]symbol.ID
	stubs     map[string]symbol.ID
	syntax    map[symbol.ID]*MemberDecl

	declared []symbol.ID
	ops      []operation.Operation
}

// Bind resolves the facts of every file into one compilation. Facts are
// processed in path order so symbol IDs are stable across runs.
func Bind(files []*FileFacts, logger *slog.Logger) *Compilation {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	sorted := append([]*FileFacts(nil), files...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	b := &binder{
		table:     symbol.NewTable(),
		catalog:   newCatalogIndex(),
		logger:    logger,
		types:     make(map[string]*boundType),
		byID:      make(map[symbol.ID]*boundType),
		typeNames: make(map[uint64][]symbol.ID),
		members:   make(map[uint64][]symbol.ID),
		meta:      make(map[string]symbol.ID),
		stubs:     make(map[string]symbol.ID),
		syntax:    make(map[symbol.ID]*MemberDecl),
	}

	for _, f := range sorted {
		b.declareTypes(f)
	}
	for _, bt := range b.order {
		b.declareMembers(bt)
	}
	for _, bt := range b.order {
		b.bindBases(bt)
		b.bindAttributes(bt)
	}
	for _, bt := range b.order {
		b.bindMemberLinks(bt)
	}
	for _, f := range sorted {
		b.resolveRefs(f)
	}
	entry := b.entryPoint()
	b.implicitCalls(entry)

	comp := &Compilation{
		table:      b.table,
		entry:      entry,
		declared:   b.declared,
		operations: b.ops,
		files:      len(sorted),
	}
	logger.Debug("bound compilation",
		"files", comp.files,
		"symbols", b.table.Len(),
		"declared", len(comp.declared),
		"operations", len(comp.operations))
	return comp
}

func nameHash(name string) uint64 {
	return xxhash.Sum64String(name)
}

func (b *binder) declareTypes(f *FileFacts) {
	for i := range f.Types {
		decl := &f.Types[i]
		loc := location(f.Path, decl.Span)

		if bt, ok := b.types[decl.Key]; ok {
			bt.decls = append(bt.decls, declSite{path: f.Path, decl: decl})
			bt.sym.Locations = append(bt.sym.Locations, loc)
			bt.usings = appendUniqueStrings(bt.usings, f.Usings)
			bt.sym.Accessibility = accessibilityOf(decl.Modifiers, bt.sym.Accessibility)
			mergeTypeModifiers(bt.sym, decl.Modifiers)
			continue
		}

		qualified := strings.ReplaceAll(stripArity(decl.Key), "+", ".")
		sym := &symbol.Symbol{
			Kind:          symbol.KindType,
			TypeKind:      typeKindOf(decl),
			Name:          decl.Name,
			MetadataName:  metadataName(decl.Name, decl.Arity),
			QualifiedName: qualified,
			DisplayName:   qualified,
			Locations:     []symbol.Location{loc},
		}

		defaultAccess := symbol.AccessInternal
		var outer *boundType
		if decl.Outer != "" {
			outer = b.types[decl.Outer]
			defaultAccess = symbol.AccessPrivate
			if outer != nil && outer.sym.IsInterface() {
				defaultAccess = symbol.AccessPublic
			}
		}
		sym.Accessibility = accessibilityOf(decl.Modifiers, defaultAccess)
		mergeTypeModifiers(sym, decl.Modifiers)

		id := b.table.Add(sym)
		if outer != nil {
			sym.ContainingType = outer.sym.ID
			outer.sym.Members = append(outer.sym.Members, id)
		}

		bt := &boundType{
			sym:       sym,
			key:       decl.Key,
			namespace: decl.Namespace,
			usings:    appendUniqueStrings(nil, f.Usings),
			decls:     []declSite{{path: f.Path, decl: decl}},
		}
		b.types[decl.Key] = bt
		b.byID[id] = bt
		b.order = append(b.order, bt)
		h := nameHash(sym.MetadataName)
		b.typeNames[h] = append(b.typeNames[h], id)
		b.declared = append(b.declared, id)
	}
}

func typeKindOf(decl *TypeDecl) symbol.TypeKind {
	switch decl.Kind {
	case "class":
		return symbol.TypeKindClass
	case "struct":
		return symbol.TypeKindStruct
	case "interface":
		return symbol.TypeKindInterface
	case "enum":
		return symbol.TypeKindEnum
	case "record":
		for _, m := range decl.Modifiers {
			if m == "struct" {
				return symbol.TypeKindStruct
			}
		}
		return symbol.TypeKindRecord
	case "delegate":
		return symbol.TypeKindDelegate
	default:
		return symbol.TypeKindNone
	}
}

func mergeTypeModifiers(sym *symbol.Symbol, mods []string) {
	for _, m := range mods {
		switch m {
		case "static":
			sym.IsStatic = true
		case "abstract":
			sym.IsAbstract = true
		}
	}
	if sym.TypeKind == symbol.TypeKindInterface {
		sym.IsAbstract = true
	}
}

func (b *binder) declareMembers(bt *boundType) {
	typ := bt.sym
	hasInstanceCtor := false

	for _, site := range bt.decls {
		for i := range site.decl.Members {
			m := &site.decl.Members[i]
			sym := b.memberSymbol(bt, m)
			sym.Locations = []symbol.Location{location(site.path, m.Span)}
			if sym.MethodKind == symbol.MethodKindConstructor {
				hasInstanceCtor = true
			}
			b.addMember(typ, sym)
			b.syntax[sym.ID] = m
			b.declared = append(b.declared, sym.ID)
		}
	}

	switch typ.TypeKind {
	case symbol.TypeKindClass, symbol.TypeKindStruct, symbol.TypeKindRecord:
		if hasInstanceCtor || typ.IsStatic {
			return
		}
		access := symbol.AccessPublic
		if typ.IsAbstract {
			access = symbol.AccessProtected
		}
		ctor := &symbol.Symbol{
			Kind:                 symbol.KindMethod,
			MethodKind:           symbol.MethodKindConstructor,
			Name:                 ".ctor",
			QualifiedName:        typ.QualifiedName + "..ctor",
			DisplayName:          typ.QualifiedName + "." + typ.Name + "()",
			Accessibility:        access,
			IsImplicitlyDeclared: true,
		}
		b.addMember(typ, ctor)
		b.declared = append(b.declared, ctor.ID)
	}
}

func (b *binder) addMember(typ, sym *symbol.Symbol) {
	sym.ContainingType = typ.ID
	id := b.table.Add(sym)
	typ.Members = append(typ.Members, id)
	h := nameHash(sym.Name)
	b.members[h] = append(b.members[h], id)
}

func (b *binder) memberSymbol(bt *boundType, m *MemberDecl) *symbol.Symbol {
	typ := bt.sym
	sym := &symbol.Symbol{
		Name:       m.Name,
		Parameters: append([]string(nil), m.Parameters...),
	}

	defaultAccess := symbol.AccessPrivate
	if typ.TypeKind == symbol.TypeKindInterface || typ.TypeKind == symbol.TypeKindEnum {
		defaultAccess = symbol.AccessPublic
	}
	if m.ExplicitInterface != "" {
		defaultAccess = symbol.AccessPrivate
	}
	sym.Accessibility = accessibilityOf(m.Modifiers, defaultAccess)

	for _, mod := range m.Modifiers {
		switch mod {
		case "static", "const":
			sym.IsStatic = true
		case "abstract":
			sym.IsAbstract = true
		case "override":
			sym.IsOverride = true
		}
	}

	displayName := typ.QualifiedName + "." + m.Name
	switch m.Kind {
	case MemberMethod:
		sym.Kind = symbol.KindMethod
		sym.MethodKind = symbol.MethodKindOrdinary
		if typ.IsInterface() && !sym.IsStatic {
			sym.IsAbstract = true
		}
		displayName += "(" + strings.Join(m.Parameters, ", ") + ")"
	case MemberConstructor:
		sym.Kind = symbol.KindMethod
		sym.MethodKind = symbol.MethodKindConstructor
		sym.Name = ".ctor"
		if sym.IsStatic {
			sym.MethodKind = symbol.MethodKindStaticConstructor
			sym.Name = ".cctor"
			sym.Accessibility = symbol.AccessPrivate
		}
		displayName = typ.QualifiedName + "." + typ.Name + "(" + strings.Join(m.Parameters, ", ") + ")"
	case MemberDestructor:
		sym.Kind = symbol.KindMethod
		sym.MethodKind = symbol.MethodKindDestructor
		sym.IsOverride = true
		sym.Accessibility = symbol.AccessProtected
		displayName = typ.QualifiedName + ".~" + typ.Name + "()"
	case MemberProperty, MemberIndexer:
		sym.Kind = symbol.KindProperty
		if m.Kind == MemberIndexer {
			displayName = typ.QualifiedName + ".this[" + strings.Join(m.Parameters, ", ") + "]"
		}
	case MemberField:
		sym.Kind = symbol.KindField
	case MemberEnumValue:
		sym.Kind = symbol.KindField
		sym.IsStatic = true
		sym.Accessibility = symbol.AccessPublic
	case MemberEvent:
		sym.Kind = symbol.KindEvent
	}

	sym.QualifiedName = typ.QualifiedName + "." + sym.Name
	sym.DisplayName = displayName
	return sym
}

func accessibilityOf(mods []string, fallback symbol.Accessibility) symbol.Accessibility {
	var public, private, protected, internal, file bool
	for _, m := range mods {
		switch m {
		case "public":
			public = true
		case "private":
			private = true
		case "protected":
			protected = true
		case "internal":
			internal = true
		case "file":
			file = true
		}
	}
	switch {
	case public:
		return symbol.AccessPublic
	case private && protected:
		return symbol.AccessProtectedAndInternal
	case protected && internal:
		return symbol.AccessProtectedOrInternal
	case protected:
		return symbol.AccessProtected
	case internal, file:
		return symbol.AccessInternal
	case private:
		return symbol.AccessPrivate
	default:
		return fallback
	}
}

func (b *binder) bindBases(bt *boundType) {
	typ := bt.sym
	if typ.TypeKind == symbol.TypeKindEnum || typ.TypeKind == symbol.TypeKindDelegate {
		return
	}

	var bases []string
	for _, site := range bt.decls {
		bases = appendUniqueStrings(bases, site.decl.Bases)
	}

	classLike := typ.TypeKind == symbol.TypeKindClass || typ.TypeKind == symbol.TypeKindRecord
	for i, text := range bases {
		id := b.resolveTypeOrStub(text, bt, bt.usings, classLike && i == 0)
		if !id.Valid() || id == typ.ID {
			continue
		}
		base := b.table.Symbol(id)
		if classLike && i == 0 && !base.IsInterface() {
			typ.BaseType = id
			continue
		}
		typ.Interfaces = appendUniqueIDs(typ.Interfaces, id)
	}

	if classLike && !typ.BaseType.Valid() && typ.QualifiedName != "System.Object" {
		typ.BaseType = b.metaByName("System.Object")
	}
}

func (b *binder) bindAttributes(bt *boundType) {
	resolve := func(names []string) []symbol.Attribute {
		out := make([]symbol.Attribute, 0, len(names))
		for _, n := range names {
			out = append(out, symbol.Attribute{TypeName: b.attributeTypeName(n, bt)})
		}
		return out
	}

	seen := make(map[string]bool)
	for _, site := range bt.decls {
		for _, a := range resolve(site.decl.Attributes) {
			if !seen[a.TypeName] {
				seen[a.TypeName] = true
				bt.sym.Attributes = append(bt.sym.Attributes, a)
			}
		}
	}

	for _, sym := range b.sourceMembers(bt) {
		if decl := b.syntax[sym.ID]; decl != nil {
			sym.Attributes = resolve(decl.Attributes)
		}
	}
}

// attributeTypeName resolves an attribute as written, trying the name with
// and without the Attribute suffix.
func (b *binder) attributeTypeName(written string, bt *boundType) string {
	name, arity := parseTypeName(written)
	if name == "" {
		return written
	}
	candidates := []string{name}
	if !strings.HasSuffix(name, "Attribute") {
		candidates = []string{name + "Attribute", name}
	}
	for _, c := range candidates {
		if id := b.resolveType(c, arity, bt, bt.usings); id.Valid() {
			return b.table.Symbol(id).QualifiedName
		}
	}
	return candidates[0]
}

// sourceMembers returns the non-type members of a source type.
func (b *binder) sourceMembers(bt *boundType) []*symbol.Symbol {
	var out []*symbol.Symbol
	for _, sym := range symbol.Resolve(b.table, bt.sym.Members) {
		if sym.Kind != symbol.KindType {
			out = append(out, sym)
		}
	}
	return out
}

func (b *binder) bindMemberLinks(bt *boundType) {
	for _, sym := range b.sourceMembers(bt) {
		if sym.IsOverride {
			sym.OverriddenSymbol = b.findOverridden(bt.sym, sym)
		}
		if decl := b.syntax[sym.ID]; decl != nil && decl.ExplicitInterface != "" {
			if impl := b.findExplicitTarget(bt, decl.ExplicitInterface, sym); impl.Valid() {
				sym.ExplicitInterfaceImplementations = []symbol.ID{impl}
			}
		}
	}
}

// findOverridden walks the base chain of typ for a member with the same
// name, kind and arity as member.
func (b *binder) findOverridden(typ, member *symbol.Symbol) symbol.ID {
	seen := make(map[symbol.ID]bool)
	for id := typ.BaseType; id.Valid() && !seen[id]; {
		seen[id] = true
		base := b.table.Symbol(id)
		if base == nil {
			break
		}
		if found := b.matchingMember(base, member); found.Valid() {
			return found
		}
		id = base.BaseType
	}
	return symbol.NoID
}

func (b *binder) matchingMember(typ, member *symbol.Symbol) symbol.ID {
	for _, cand := range symbol.Resolve(b.table, typ.Members) {
		if cand.Name == member.Name && cand.Kind == member.Kind && cand.Arity() == member.Arity() {
			return cand.ID
		}
	}
	return symbol.NoID
}

func (b *binder) findExplicitTarget(bt *boundType, ifaceText string, member *symbol.Symbol) symbol.ID {
	id := b.resolveTypeOrStub(ifaceText, bt, bt.usings, false)
	iface := b.table.Symbol(id)
	if iface == nil {
		return symbol.NoID
	}
	if found := b.matchingMember(iface, member); found.Valid() {
		return found
	}
	if len(iface.Locations) > 0 {
		return symbol.NoID
	}

	// The interface is external; synthesize the member it must declare.
	stub := &symbol.Symbol{
		Kind:          member.Kind,
		MethodKind:    member.MethodKind,
		Name:          member.Name,
		QualifiedName: iface.QualifiedName + "." + member.Name,
		Accessibility: symbol.AccessPublic,
		IsAbstract:    true,
		Parameters:    append([]string(nil), member.Parameters...),
	}
	b.addMember(iface, stub)
	return stub.ID
}

// resolveType finds a type by written name. Source types win over the
// framework catalog. It returns NoID when neither knows the name.
func (b *binder) resolveType(name string, arity int, ctx *boundType, usings []string) symbol.ID {
	if id := b.resolveSourceType(name, arity, ctx, usings); id.Valid() {
		return id
	}
	if mt := b.catalog.lookup(name, arity, usings); mt != nil {
		return b.metaSymbol(mt)
	}
	return symbol.NoID
}

func (b *binder) resolveSourceType(name string, arity int, ctx *boundType, usings []string) symbol.ID {
	simple := lastSegment(name)
	dotted := strings.Contains(name, ".")

	best, bestScore := symbol.NoID, -1
	for _, id := range b.typeNames[nameHash(metadataName(simple, arity))] {
		bt := b.byID[id]
		if bt == nil || bt.sym.MetadataName != metadataName(simple, arity) {
			continue
		}
		if dotted && bt.sym.QualifiedName != name && !strings.HasSuffix(bt.sym.QualifiedName, "."+name) {
			continue
		}
		score := b.visibilityScore(bt, ctx, usings)
		if score > bestScore {
			best, bestScore = id, score
		}
	}
	return best
}

// visibilityScore ranks how directly a candidate type is visible from ctx.
func (b *binder) visibilityScore(cand, ctx *boundType, usings []string) int {
	for outer := ctx; outer != nil; outer = b.byID[outer.sym.ContainingType] {
		if cand == outer || cand.sym.ContainingType == outer.sym.ID {
			return 4
		}
	}
	if ctx != nil {
		if cand.namespace == ctx.namespace {
			return 3
		}
		if cand.namespace == "" || strings.HasPrefix(ctx.namespace, cand.namespace+".") {
			return 2
		}
	}
	for _, u := range usings {
		if cand.namespace == u {
			return 1
		}
	}
	return 0
}

// resolveTypeOrStub resolves a written type name, creating an external stub
// symbol when nothing matches so base lists keep their shape.
func (b *binder) resolveTypeOrStub(text string, ctx *boundType, usings []string, firstBase bool) symbol.ID {
	name, arity := parseTypeName(text)
	if name == "" {
		return symbol.NoID
	}
	if id := b.resolveType(name, arity, ctx, usings); id.Valid() {
		return id
	}

	key := metadataName(name, arity)
	if id, ok := b.stubs[key]; ok {
		return id
	}
	simple := lastSegment(name)
	kind := symbol.TypeKindClass
	if interfaceName.MatchString(simple) || !firstBase {
		kind = symbol.TypeKindInterface
	}
	stub := &symbol.Symbol{
		Kind:          symbol.KindType,
		TypeKind:      kind,
		Name:          simple,
		MetadataName:  metadataName(simple, arity),
		QualifiedName: name,
		DisplayName:   name,
		Accessibility: symbol.AccessPublic,
	}
	id := b.table.Add(stub)
	b.stubs[key] = id
	b.logger.Debug("unresolved type", "name", text, "as", kind)
	return id
}

// metaSymbol returns the symbol for a catalog type, creating it and its
// bases on first use.
func (b *binder) metaSymbol(mt *metaType) symbol.ID {
	if id, ok := b.meta[mt.QualifiedName]; ok {
		return id
	}
	qualified := stripArity(mt.QualifiedName)
	sym := &symbol.Symbol{
		Kind:          symbol.KindType,
		TypeKind:      mt.TypeKind,
		Name:          mt.Name,
		MetadataName:  mt.MetadataName,
		QualifiedName: qualified,
		DisplayName:   qualified,
		Accessibility: symbol.AccessPublic,
		IsAbstract:    mt.TypeKind == symbol.TypeKindInterface,
	}
	id := b.table.Add(sym)
	b.meta[mt.QualifiedName] = id
	b.meta[qualified] = id

	if mt.Base != "" {
		sym.BaseType = b.metaByName(mt.Base)
	}
	for _, iface := range mt.Interfaces {
		if iid := b.metaByName(iface); iid.Valid() {
			sym.Interfaces = append(sym.Interfaces, iid)
		}
	}
	for _, m := range mt.Members {
		member := &symbol.Symbol{
			Kind:          m.Kind,
			Name:          m.Name,
			QualifiedName: qualified + "." + m.Name,
			Accessibility: symbol.AccessPublic,
			IsAbstract:    mt.TypeKind == symbol.TypeKindInterface,
			Parameters:    make([]string, m.Params),
		}
		if m.Kind == symbol.KindMethod {
			member.MethodKind = symbol.MethodKindOrdinary
		}
		b.addMember(sym, member)
	}
	return id
}

func (b *binder) metaByName(qualified string) symbol.ID {
	if mt, ok := b.catalog.byQualified[qualified]; ok {
		return b.metaSymbol(mt)
	}
	return symbol.NoID
}

// entryPoint picks the first static Main taking at most one parameter.
func (b *binder) entryPoint() symbol.ID {
	for _, id := range b.declared {
		sym := b.table.Symbol(id)
		if sym.Kind == symbol.KindMethod && sym.Name == "Main" && sym.IsStatic && sym.Arity() <= 1 {
			return id
		}
	}
	return symbol.NoID
}

func location(path string, span Span) symbol.Location {
	return symbol.Location{
		Path:        path,
		StartLine:   span.StartLine,
		StartColumn: span.StartColumn,
		EndLine:     span.EndLine,
		EndColumn:   span.EndColumn,
		InSource:    true,
	}
}

// parseTypeName reduces written type text to a dotted name and the generic
// arity of its last segment. Arrays and pointers yield an empty name.
func parseTypeName(text string) (string, int) {
	text = strings.TrimSpace(text)
	if i := strings.LastIndex(text, "::"); i >= 0 {
		text = text[i+2:]
	}
	text = strings.TrimSuffix(text, "?")
	if strings.HasSuffix(text, "]") || strings.HasSuffix(text, "*") || strings.HasPrefix(text, "(") {
		return "", 0
	}

	var sb strings.Builder
	depth, arity := 0, 0
	for _, r := range text {
		switch {
		case r == '<':
			if depth == 0 {
				arity = 1
			}
			depth++
		case r == '>':
			depth--
		case r == ',' && depth == 1:
			arity++
		case depth > 0, r == ' ':
		case r == '.':
			arity = 0
			sb.WriteRune(r)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String(), arity
}

func metadataName(name string, arity int) string {
	if arity == 0 {
		return name
	}
	return typeKey("", "", name, arity)
}

// stripArity removes every generic arity marker, so Box`1+Item becomes
// Box+Item.
func stripArity(name string) string {
	return arityMarker.ReplaceAllString(name, "")
}

func lastSegment(name string) string {
	if i := strings.LastIndexAny(name, ".+"); i >= 0 {
		return name[i+1:]
	}
	return name
}

func appendUniqueStrings(dst, src []string) []string {
	for _, s := range src {
		found := false
		for _, d := range dst {
			if d == s {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, s)
		}
	}
	return dst
}

func appendUniqueIDs(dst []symbol.ID, id symbol.ID) []symbol.ID {
	for _, d := range dst {
		if d == id {
			return dst
		}
	}
	return append(dst, id)
}
