package usage

import (
	"github.com/panbanda/dormant/pkg/operation"
	"github.com/panbanda/dormant/pkg/symbol"
)

// ExtractTargetSymbol returns the symbol an operation references. Object
// creation prefers the constructor and falls back to the created type.
// Untracked tags and empty payloads yield false.
func ExtractTargetSymbol(op operation.Operation) (symbol.ID, bool) {
	var id symbol.ID
	switch op.Kind {
	case operation.KindInvocation:
		id = op.Method
	case operation.KindObjectCreation:
		id = op.Constructor
		if !id.Valid() {
			id = op.Type
		}
	case operation.KindPropertyReference,
		operation.KindFieldReference,
		operation.KindEventReference,
		operation.KindGenericMemberReference:
		id = op.Member
	case operation.KindTypeOf, operation.KindConversion:
		id = op.Type
	default:
		return symbol.NoID, false
	}
	return id, id.Valid()
}
