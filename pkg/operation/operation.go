// Package operation defines the executable constructs that can reference a
// declared symbol.
package operation

import (
	"strings"

	"github.com/panbanda/dormant/pkg/symbol"
)

// Kind tags an Operation.
type Kind string

const (
	KindInvocation             Kind = "invocation"
	KindObjectCreation         Kind = "object_creation"
	KindPropertyReference      Kind = "property_reference"
	KindFieldReference         Kind = "field_reference"
	KindEventReference         Kind = "event_reference"
	KindGenericMemberReference Kind = "member_reference"
	KindTypeOf                 Kind = "typeof"
	KindConversion             Kind = "conversion"
	KindOther                  Kind = "other"
)

// TrackedKinds are the operation tags the usage engine resolves.
var TrackedKinds = []Kind{
	KindInvocation,
	KindObjectCreation,
	KindPropertyReference,
	KindFieldReference,
	KindEventReference,
	KindGenericMemberReference,
	KindTypeOf,
	KindConversion,
}

// String returns the string representation.
func (k Kind) String() string {
	return string(k)
}

// Tracked reports whether k is one of TrackedKinds.
func (k Kind) Tracked() bool {
	for _, t := range TrackedKinds {
		if k == t {
			return true
		}
	}
	return false
}

// ParseKind converts a string to a Kind. Unknown values map to KindOther.
func ParseKind(s string) Kind {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if k.Tracked() {
		return k
	}
	return KindOther
}

// Operation is a tagged union. Which payload field is meaningful depends on
// Kind:
//
//	Invocation                         Method
//	ObjectCreation                     Constructor, Type
//	Property/Field/EventReference      Member
//	GenericMemberReference             Member
//	TypeOf, Conversion                 Type
type Operation struct {
	Kind        Kind
	Method      symbol.ID
	Constructor symbol.ID
	Member      symbol.ID
	Type        symbol.ID
	Location    symbol.Location
}

// Invocation creates a call of method.
func Invocation(method symbol.ID, loc symbol.Location) Operation {
	return Operation{Kind: KindInvocation, Method: method, Location: loc}
}

// ObjectCreation creates an instantiation of typ. ctor may be NoID when the
// host could not select a constructor.
func ObjectCreation(ctor, typ symbol.ID, loc symbol.Location) Operation {
	return Operation{Kind: KindObjectCreation, Constructor: ctor, Type: typ, Location: loc}
}

// PropertyReference creates a read or write of a property.
func PropertyReference(prop symbol.ID, loc symbol.Location) Operation {
	return Operation{Kind: KindPropertyReference, Member: prop, Location: loc}
}

// FieldReference creates a read or write of a field.
func FieldReference(field symbol.ID, loc symbol.Location) Operation {
	return Operation{Kind: KindFieldReference, Member: field, Location: loc}
}

// EventReference creates a subscription or raise of an event.
func EventReference(event symbol.ID, loc symbol.Location) Operation {
	return Operation{Kind: KindEventReference, Member: event, Location: loc}
}

// MemberReference creates a reference to any other member, such as a method
// group.
func MemberReference(member symbol.ID, loc symbol.Location) Operation {
	return Operation{Kind: KindGenericMemberReference, Member: member, Location: loc}
}

// TypeOf creates a typeof expression over typ.
func TypeOf(typ symbol.ID, loc symbol.Location) Operation {
	return Operation{Kind: KindTypeOf, Type: typ, Location: loc}
}

// Conversion creates a conversion to typ.
func Conversion(typ symbol.ID, loc symbol.Location) Operation {
	return Operation{Kind: KindConversion, Type: typ, Location: loc}
}

// ForMember creates the reference operation matching the kind of member:
// property, field or event references, or a generic member reference for
// anything else.
func ForMember(member *symbol.Symbol, loc symbol.Location) Operation {
	switch member.Kind {
	case symbol.KindProperty:
		return PropertyReference(member.ID, loc)
	case symbol.KindField:
		return FieldReference(member.ID, loc)
	case symbol.KindEvent:
		return EventReference(member.ID, loc)
	default:
		return MemberReference(member.ID, loc)
	}
}
