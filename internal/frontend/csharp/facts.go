// Package csharp is the C# compilation front end: it extracts declarations
// and reference sites from tree-sitter trees, binds them into a symbol table
// and emits the operations the usage engine consumes.
package csharp

// FactsVersion changes whenever the shape or meaning of FileFacts changes so
// stale cache entries are ignored.
const FactsVersion = 3

// Span is a 1-based source range.
type Span struct {
	StartLine   uint32 `msgpack:"sl"`
	StartColumn uint32 `msgpack:"sc"`
	EndLine     uint32 `msgpack:"el"`
	EndColumn   uint32 `msgpack:"ec"`
}

// FileFacts is everything the binder needs from one file.
type FileFacts struct {
	Version int        `msgpack:"v"`
	Path    string     `msgpack:"path"`
	Hash    string     `msgpack:"hash"`
	Usings  []string   `msgpack:"usings"`
	Types   []TypeDecl `msgpack:"types"`
	Refs    []RefSite  `msgpack:"refs"`
}

// TypeDecl is one type declaration. Partial declarations of the same type
// share a Key.
type TypeDecl struct {
	Key        string       `msgpack:"key"`
	Name       string       `msgpack:"name"`
	Namespace  string       `msgpack:"ns"`
	Outer      string       `msgpack:"outer"`
	Kind       string       `msgpack:"kind"`
	Arity      int          `msgpack:"arity"`
	Modifiers  []string     `msgpack:"mods"`
	Attributes []string     `msgpack:"attrs"`
	Bases      []string     `msgpack:"bases"`
	Span       Span         `msgpack:"span"`
	Members    []MemberDecl `msgpack:"members"`
}

// Member declaration kinds.
const (
	MemberMethod      = "method"
	MemberConstructor = "constructor"
	MemberDestructor  = "destructor"
	MemberOperator    = "operator"
	MemberProperty    = "property"
	MemberIndexer     = "indexer"
	MemberField       = "field"
	MemberEvent       = "event"
	MemberEnumValue   = "enum_member"
)

// MemberDecl is one member declaration.
type MemberDecl struct {
	Name              string   `msgpack:"name"`
	Kind              string   `msgpack:"kind"`
	Modifiers         []string `msgpack:"mods"`
	Attributes        []string `msgpack:"attrs"`
	ExplicitInterface string   `msgpack:"explicit"`
	Parameters        []string `msgpack:"params"`
	Span              Span     `msgpack:"span"`
}

// Reference site kinds.
const (
	RefInvoke = "invoke"
	RefNew    = "new"
	RefMember = "member"
	RefName   = "name"
	RefTypeOf = "typeof"
	RefCast   = "cast"
)

// Receivers with special lookup rules.
const (
	ReceiverThis = "this"
	ReceiverBase = "base"
)

// RefSite is a place in code that may reference a declared symbol. Name is
// the referenced simple name; for RefNew, RefTypeOf and RefCast it is the
// type text as written.
type RefSite struct {
	Kind     string `msgpack:"kind"`
	Receiver string `msgpack:"recv"`
	Name     string `msgpack:"name"`
	ArgCount int    `msgpack:"args"`
	Scope    string `msgpack:"scope"`
	Span     Span   `msgpack:"span"`
}
