// Package symbol models declared program entities and the host-owned table
// that resolves the weak relations between them.
package symbol

import "strings"

// ID identifies a symbol within one Table. NoID marks an absent reference.
type ID uint32

// NoID is the zero ID; it never names a symbol.
const NoID ID = 0

// Valid reports whether id can name a symbol.
func (id ID) Valid() bool {
	return id != NoID
}

// Kind classifies a declared symbol.
type Kind string

const (
	KindType     Kind = "type"
	KindMethod   Kind = "method"
	KindProperty Kind = "property"
	KindField    Kind = "field"
	KindEvent    Kind = "event"
)

// String returns the string representation.
func (k Kind) String() string {
	return string(k)
}

// TrackedKinds are the symbol kinds the usage engine analyzes.
var TrackedKinds = []Kind{KindType, KindMethod, KindProperty, KindField, KindEvent}

// ParseKind converts a string to a Kind. The second result is false for
// unknown values.
func ParseKind(s string) (Kind, bool) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range TrackedKinds {
		if k == known {
			return k, true
		}
	}
	return "", false
}

// TypeKind further classifies type symbols.
type TypeKind string

const (
	TypeKindNone      TypeKind = ""
	TypeKindClass     TypeKind = "class"
	TypeKindStruct    TypeKind = "struct"
	TypeKindInterface TypeKind = "interface"
	TypeKindEnum      TypeKind = "enum"
	TypeKindRecord    TypeKind = "record"
	TypeKindDelegate  TypeKind = "delegate"
)

// MethodKind further classifies method symbols.
type MethodKind string

const (
	MethodKindNone              MethodKind = ""
	MethodKindOrdinary          MethodKind = "ordinary"
	MethodKindConstructor       MethodKind = "constructor"
	MethodKindStaticConstructor MethodKind = "static_constructor"
	MethodKindDestructor        MethodKind = "destructor"
	MethodKindOperator          MethodKind = "operator"
)

// Accessibility is the declared visibility of a symbol.
type Accessibility string

const (
	AccessNotApplicable        Accessibility = ""
	AccessPrivate              Accessibility = "private"
	AccessProtectedAndInternal Accessibility = "private protected"
	AccessProtected            Accessibility = "protected"
	AccessInternal             Accessibility = "internal"
	AccessProtectedOrInternal  Accessibility = "protected internal"
	AccessPublic               Accessibility = "public"
)

// String returns the string representation.
func (a Accessibility) String() string {
	if a == AccessNotApplicable {
		return "n/a"
	}
	return string(a)
}

// Attribute is an attribute application on a symbol.
type Attribute struct {
	// TypeName is the attribute class name, fully qualified when the host
	// could resolve it.
	TypeName string `json:"type_name" toon:"type_name"`
}

// SimpleName returns the last dotted segment of the type name with any
// generic argument list removed.
func (a Attribute) SimpleName() string {
	name := a.TypeName
	if i := strings.IndexAny(name, "<`"); i >= 0 {
		name = name[:i]
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// Location is a source span. Lines and columns are 1-based.
type Location struct {
	Path        string `json:"path" toon:"path"`
	StartLine   uint32 `json:"start_line" toon:"start_line"`
	StartColumn uint32 `json:"start_column" toon:"start_column"`
	EndLine     uint32 `json:"end_line" toon:"end_line"`
	EndColumn   uint32 `json:"end_column" toon:"end_column"`
	InSource    bool   `json:"in_source" toon:"in_source"`
}

// Symbol is one declared program entity. Relations to other symbols are IDs
// resolved through a Lookup; they never own the referenced symbol.
//
// A Symbol is built by the host and must not change once handed to the
// usage engine.
type Symbol struct {
	ID         ID
	Kind       Kind
	TypeKind   TypeKind
	MethodKind MethodKind

	Name          string
	MetadataName  string
	QualifiedName string
	DisplayName   string

	Accessibility        Accessibility
	IsImplicitlyDeclared bool
	IsOverride           bool
	IsStatic             bool
	IsAbstract           bool

	Parameters []string
	Attributes []Attribute

	ContainingType                   ID
	BaseType                         ID
	Interfaces                       []ID
	ExplicitInterfaceImplementations []ID
	OverriddenSymbol                 ID
	Members                          []ID

	Locations []Location
}

// Metadata returns the metadata name, falling back to the simple name.
func (s *Symbol) Metadata() string {
	if s.MetadataName != "" {
		return s.MetadataName
	}
	return s.Name
}

// Display returns the human readable name used in messages.
func (s *Symbol) Display() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	if s.QualifiedName != "" {
		return s.QualifiedName
	}
	return s.Name
}

// Arity returns the parameter count.
func (s *Symbol) Arity() int {
	return len(s.Parameters)
}

// IsInterface reports whether s is an interface type.
func (s *Symbol) IsInterface() bool {
	return s.Kind == KindType && s.TypeKind == TypeKindInterface
}

// FirstSourceLocation returns the first location that lies in source.
func (s *Symbol) FirstSourceLocation() (Location, bool) {
	for _, loc := range s.Locations {
		if loc.InSource {
			return loc, true
		}
	}
	return Location{}, false
}

// HasMember reports whether id is one of the direct members of s.
func (s *Symbol) HasMember(id ID) bool {
	for _, m := range s.Members {
		if m == id {
			return true
		}
	}
	return false
}

// Lookup resolves IDs to symbols. It returns nil for NoID and unknown IDs.
type Lookup interface {
	Symbol(id ID) *Symbol
}
