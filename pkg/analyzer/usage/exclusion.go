package usage

import (
	"strings"

	"github.com/panbanda/dormant/pkg/symbol"
)

// Compilation is the analyzed unit as seen by the engine.
type Compilation interface {
	// Symbols resolves every ID reachable from declared symbols.
	Symbols() symbol.Lookup
	// EntryPoint returns the program entry point, or symbol.NoID.
	EntryPoint() symbol.ID
}

// Default rule lists.
var (
	DefaultControllerBaseTypes = []string{
		"Microsoft.AspNetCore.Mvc.ControllerBase",
		"System.Web.Mvc.Controller",
	}
	DefaultControllerAttributes = []string{
		"Microsoft.AspNetCore.Mvc.ApiControllerAttribute",
		"System.Web.Http.ApiControllerAttribute",
	}
	DefaultUsageMarkers = []string{
		"UsedImplicitly",
		"Preserve",
		"KeepAttribute",
		"DataContractAttribute",
	}
)

const (
	DefaultControllerSuffix  = "Controller"
	DefaultAttributeBaseType = "System.Attribute"
)

// Rules holds the configurable lists behind the exclusion rules.
type Rules struct {
	ControllerBaseTypes  []string `json:"controller_base_types" toon:"controller_base_types"`
	ControllerAttributes []string `json:"controller_attributes" toon:"controller_attributes"`
	ControllerSuffix     string   `json:"controller_suffix" toon:"controller_suffix"`
	UsageMarkers         []string `json:"usage_markers" toon:"usage_markers"`
	AttributeBaseType    string   `json:"attribute_base_type" toon:"attribute_base_type"`
}

// DefaultRules returns the built-in rule lists.
func DefaultRules() Rules {
	return Rules{
		ControllerBaseTypes:  append([]string(nil), DefaultControllerBaseTypes...),
		ControllerAttributes: append([]string(nil), DefaultControllerAttributes...),
		ControllerSuffix:     DefaultControllerSuffix,
		UsageMarkers:         append([]string(nil), DefaultUsageMarkers...),
		AttributeBaseType:    DefaultAttributeBaseType,
	}
}

// Merge returns r with other's list entries appended, skipping duplicates.
// Non-empty scalar fields in other replace those in r.
func (r Rules) Merge(other Rules) Rules {
	out := Rules{
		ControllerBaseTypes:  appendUnique(r.ControllerBaseTypes, other.ControllerBaseTypes),
		ControllerAttributes: appendUnique(r.ControllerAttributes, other.ControllerAttributes),
		ControllerSuffix:     r.ControllerSuffix,
		UsageMarkers:         appendUnique(r.UsageMarkers, other.UsageMarkers),
		AttributeBaseType:    r.AttributeBaseType,
	}
	if other.ControllerSuffix != "" {
		out.ControllerSuffix = other.ControllerSuffix
	}
	if other.AttributeBaseType != "" {
		out.AttributeBaseType = other.AttributeBaseType
	}
	return out
}

func appendUnique(base, extra []string) []string {
	out := append([]string(nil), base...)
	for _, e := range extra {
		dup := false
		for _, b := range out {
			if b == e {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, e)
		}
	}
	return out
}

// Reason names the rule that excluded a symbol.
type Reason string

const (
	ReasonNone                    Reason = ""
	ReasonNilSymbol               Reason = "nil-symbol"
	ReasonImplicitlyDeclared      Reason = "implicitly-declared"
	ReasonUntrackedAccessibility  Reason = "untracked-accessibility"
	ReasonAttributeType           Reason = "attribute-type"
	ReasonEntryPoint              Reason = "entry-point"
	ReasonController              Reason = "controller"
	ReasonInterfaceImplementation Reason = "interface-implementation"
	ReasonOverride                Reason = "override"
	ReasonUsageMarker             Reason = "usage-marker"
)

// Reasons lists every exclusion reason in evaluation order.
var Reasons = []Reason{
	ReasonNilSymbol,
	ReasonImplicitlyDeclared,
	ReasonUntrackedAccessibility,
	ReasonAttributeType,
	ReasonEntryPoint,
	ReasonController,
	ReasonInterfaceImplementation,
	ReasonOverride,
	ReasonUsageMarker,
}

// String returns the string representation.
func (r Reason) String() string {
	return string(r)
}

// ExclusionRuleEngine decides whether a declared symbol is exempt from
// unused tracking.
type ExclusionRuleEngine interface {
	ShouldExcludeFromAnalysis(sym *symbol.Symbol, comp Compilation) bool
}

// CompositeRuleEngine ORs the built-in exclusion rules. It holds no state
// beyond its configuration and is safe for concurrent use.
type CompositeRuleEngine struct {
	rules      Rules
	checker    InheritanceChecker
	dispatcher InterfaceDispatcher
}

// NewCompositeRuleEngine creates an engine. A nil dispatcher disables
// implicit interface implementation detection.
func NewCompositeRuleEngine(rules Rules, checker InheritanceChecker, dispatcher InterfaceDispatcher) *CompositeRuleEngine {
	return &CompositeRuleEngine{
		rules:      rules,
		checker:    checker,
		dispatcher: dispatcher,
	}
}

// ShouldExcludeFromAnalysis implements ExclusionRuleEngine.
func (e *CompositeRuleEngine) ShouldExcludeFromAnalysis(sym *symbol.Symbol, comp Compilation) bool {
	return e.ExclusionReason(sym, comp) != ReasonNone
}

// ExclusionReason returns the first rule that excludes sym, or ReasonNone.
func (e *CompositeRuleEngine) ExclusionReason(sym *symbol.Symbol, comp Compilation) Reason {
	switch {
	case sym == nil:
		return ReasonNilSymbol
	case sym.IsImplicitlyDeclared:
		return ReasonImplicitlyDeclared
	case !trackedAccessibility(sym.Accessibility):
		return ReasonUntrackedAccessibility
	case e.isAttributeType(sym):
		return ReasonAttributeType
	case isEntryPoint(sym, comp):
		return ReasonEntryPoint
	case e.isController(sym, comp):
		return ReasonController
	case e.isInterfaceImplementation(sym, comp):
		return ReasonInterfaceImplementation
	case sym.IsOverride:
		return ReasonOverride
	case e.hasUsageMarker(sym):
		return ReasonUsageMarker
	}
	return ReasonNone
}

func trackedAccessibility(a symbol.Accessibility) bool {
	switch a {
	case symbol.AccessPublic, symbol.AccessProtected, symbol.AccessProtectedOrInternal, symbol.AccessPrivate:
		return true
	}
	return false
}

func (e *CompositeRuleEngine) isAttributeType(sym *symbol.Symbol) bool {
	return sym.Kind == symbol.KindType && e.checker.InheritsFromOrImplements(sym, e.rules.AttributeBaseType)
}

func isEntryPoint(sym *symbol.Symbol, comp Compilation) bool {
	if comp == nil {
		return false
	}
	entry := comp.EntryPoint()
	return entry.Valid() && entry == sym.ID
}

func (e *CompositeRuleEngine) isController(sym *symbol.Symbol, comp Compilation) bool {
	typ := sym
	if sym.Kind != symbol.KindType {
		if comp == nil {
			return false
		}
		typ = comp.Symbols().Symbol(sym.ContainingType)
	}
	if typ == nil {
		return false
	}

	for _, base := range e.rules.ControllerBaseTypes {
		if e.checker.InheritsFromOrImplements(typ, base) {
			return true
		}
	}
	for _, attr := range typ.Attributes {
		for _, name := range e.rules.ControllerAttributes {
			if attr.TypeName == name {
				return true
			}
		}
	}
	return e.rules.ControllerSuffix != "" && strings.HasSuffix(typ.Name, e.rules.ControllerSuffix)
}

func (e *CompositeRuleEngine) isInterfaceImplementation(sym *symbol.Symbol, comp Compilation) bool {
	switch sym.Kind {
	case symbol.KindMethod:
		if len(sym.ExplicitInterfaceImplementations) > 0 {
			return true
		}
		return e.implementsImplicitly(sym, comp)
	case symbol.KindProperty:
		return len(sym.ExplicitInterfaceImplementations) > 0
	default:
		return false
	}
}

func (e *CompositeRuleEngine) implementsImplicitly(method *symbol.Symbol, comp Compilation) bool {
	if e.dispatcher == nil || comp == nil {
		return false
	}
	symbols := comp.Symbols()
	containing := symbols.Symbol(method.ContainingType)
	if containing == nil {
		return false
	}

	for _, iface := range AllInterfaces(symbols, containing) {
		for _, id := range iface.Members {
			member := symbols.Symbol(id)
			if member == nil || member.Kind != symbol.KindMethod {
				continue
			}
			impl := e.dispatcher.FindImplementationForInterfaceMember(containing, member)
			if impl != nil && impl.ID == method.ID {
				return true
			}
		}
	}
	return false
}

func (e *CompositeRuleEngine) hasUsageMarker(sym *symbol.Symbol) bool {
	for _, attr := range sym.Attributes {
		name := attr.SimpleName()
		for _, marker := range e.rules.UsageMarkers {
			if marker != "" && strings.Contains(name, marker) {
				return true
			}
		}
	}
	return false
}
