package csharp

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/panbanda/dormant/pkg/parser"
)

var typeDeclKinds = map[string]string{
	"class_declaration":         "class",
	"struct_declaration":        "struct",
	"interface_declaration":     "interface",
	"enum_declaration":          "enum",
	"record_declaration":        "record",
	"record_struct_declaration": "record",
	"delegate_declaration":      "delegate",
}

// declarationParents are node types whose identifier children name or type
// a declaration rather than reference a value.
var declarationParents = map[string]bool{
	"alias_qualified_name":              true,
	"array_type":                        true,
	"attribute":                         true,
	"base_list":                         true,
	"catch_declaration":                 true,
	"constructor_declaration":           true,
	"conversion_operator_declaration":   true,
	"declaration_expression":            true,
	"declaration_pattern":               true,
	"delegate_declaration":              true,
	"destructor_declaration":            true,
	"enum_member_declaration":           true,
	"event_declaration":                 true,
	"explicit_interface_specifier":      true,
	"extern_alias_directive":            true,
	"file_scoped_namespace_declaration": true,
	"from_clause":                       true,
	"generic_name":                      true,
	"goto_statement":                    true,
	"implicit_parameter":                true,
	"indexer_declaration":               true,
	"join_clause":                       true,
	"join_into_clause":                  true,
	"labeled_statement":                 true,
	"let_clause":                        true,
	"local_function_statement":          true,
	"member_binding_expression":         true,
	"method_declaration":                true,
	"name_colon":                        true,
	"name_equals":                       true,
	"namespace_declaration":             true,
	"nullable_type":                     true,
	"operator_declaration":              true,
	"parameter":                         true,
	"pointer_type":                      true,
	"primary_constructor_base_type":     true,
	"property_declaration":              true,
	"qualified_name":                    true,
	"query_continuation":                true,
	"recursive_pattern":                 true,
	"ref_type":                          true,
	"tuple_element":                     true,
	"type_argument_list":                true,
	"type_constraint":                   true,
	"type_parameter":                    true,
	"type_parameter_constraint":         true,
	"type_parameter_constraints_clause": true,
	"type_parameter_list":               true,
	"typeof_expression":                 true,
	"using_directive":                   true,
	"var_pattern":                       true,
	"variable_declaration":              true,
}

// fieldParents skip an identifier only when it fills one of the listed
// fields of its parent.
var fieldParents = map[string][]string{
	"as_expression":              {"right"},
	"cast_expression":            {"type"},
	"for_each_statement":         {"left", "type"},
	"invocation_expression":      {"function"},
	"is_expression":              {"right"},
	"is_pattern_expression":      {"pattern"},
	"lambda_expression":          {"parameters"},
	"member_access_expression":   {"name"},
	"object_creation_expression": {"type"},
}

// Extract walks one parsed file and records its declarations and reference
// sites. It does not resolve names.
func Extract(result *parser.ParseResult) *FileFacts {
	x := &extractor{
		src:   result.Source,
		facts: &FileFacts{Version: FactsVersion, Path: result.Path},
	}
	x.declarations(result.Root(), "", "")
	return x.facts
}

type extractor struct {
	src   []byte
	facts *FileFacts
}

func (x *extractor) text(n *sitter.Node) string {
	return parser.GetNodeText(n, x.src)
}

func (x *extractor) declarations(node *sitter.Node, ns, outer string) {
	for _, child := range parser.NamedChildren(node) {
		switch t := child.Type(); t {
		case "using_directive":
			x.using(child)
		case "namespace_declaration":
			inner := joinName(ns, x.text(child.ChildByFieldName("name")))
			x.declarations(child.ChildByFieldName("body"), inner, outer)
		case "file_scoped_namespace_declaration":
			ns = joinName(ns, x.text(child.ChildByFieldName("name")))
			x.declarations(child, ns, outer)
		case "declaration_list":
			x.declarations(child, ns, outer)
		case "global_statement":
			x.references(child, outer)
		default:
			if kind, ok := typeDeclKinds[t]; ok {
				x.typeDecl(child, kind, ns, outer)
			}
		}
	}
}

func (x *extractor) using(node *sitter.Node) {
	if parser.FirstNamedChildOfType(node, "name_equals") != nil {
		return
	}
	if name := parser.FirstNamedChildOfType(node, "qualified_name", "identifier"); name != nil {
		x.facts.Usings = append(x.facts.Usings, x.text(name))
	}
}

func (x *extractor) typeDecl(node *sitter.Node, kind, ns, outer string) {
	nameNode := nameOf(node)
	decl := TypeDecl{
		Name:       x.text(nameNode),
		Namespace:  ns,
		Outer:      outer,
		Kind:       kind,
		Modifiers:  x.modifiers(node),
		Attributes: x.attributes(node),
		Span:       spanOf(nameNode),
	}
	if node.Type() == "record_struct_declaration" {
		decl.Modifiers = append(decl.Modifiers, "struct")
	}
	if tps := parser.FirstNamedChildOfType(node, "type_parameter_list"); tps != nil {
		for _, tp := range parser.NamedChildren(tps) {
			if tp.Type() == "type_parameter" {
				decl.Arity++
			}
		}
	}
	if bases := parser.FirstNamedChildOfType(node, "base_list"); bases != nil {
		for _, b := range parser.NamedChildren(bases) {
			switch b.Type() {
			case "argument_list":
				continue
			case "primary_constructor_base_type":
				if inner := parser.FirstNamedChildOfType(b, "identifier", "qualified_name", "generic_name"); inner != nil {
					decl.Bases = append(decl.Bases, x.text(inner))
				}
			default:
				decl.Bases = append(decl.Bases, x.text(b))
			}
		}
	}

	decl.Key = typeKey(ns, outer, decl.Name, decl.Arity)

	if params := parser.FirstNamedChildOfType(node, "parameter_list"); params != nil && kind != "delegate" {
		decl.Members = append(decl.Members, MemberDecl{
			Name:       decl.Name,
			Kind:       MemberConstructor,
			Modifiers:  []string{"public"},
			Parameters: x.parameters(params),
			Span:       decl.Span,
		})
		if kind == "record" {
			for _, p := range parser.NamedChildren(params) {
				if p.Type() != "parameter" {
					continue
				}
				pn := nameOf(p)
				decl.Members = append(decl.Members, MemberDecl{
					Name:      x.text(pn),
					Kind:      MemberProperty,
					Modifiers: []string{"public"},
					Span:      spanOf(pn),
				})
			}
		}
	}

	// Refs in the base list (primary constructor args) belong to the new type.
	if bases := parser.FirstNamedChildOfType(node, "base_list"); bases != nil {
		for _, b := range parser.NamedChildren(bases) {
			if t := b.Type(); t == "argument_list" || t == "primary_constructor_base_type" {
				x.references(b, decl.Key)
			}
		}
	}

	idx := len(x.facts.Types)
	x.facts.Types = append(x.facts.Types, decl)

	body := node.ChildByFieldName("body")
	if body == nil {
		body = parser.FirstNamedChildOfType(node, "declaration_list", "enum_member_declaration_list")
	}
	members := x.members(body, ns, decl.Key)
	x.facts.Types[idx].Members = append(x.facts.Types[idx].Members, members...)
}

func (x *extractor) members(body *sitter.Node, ns, owner string) []MemberDecl {
	var out []MemberDecl
	for _, child := range parser.NamedChildren(body) {
		t := child.Type()
		if kind, ok := typeDeclKinds[t]; ok {
			x.typeDecl(child, kind, ns, owner)
			continue
		}

		switch t {
		case "method_declaration":
			out = append(out, x.member(child, MemberMethod, x.text(nameOf(child))))
		case "constructor_declaration":
			out = append(out, x.member(child, MemberConstructor, x.text(nameOf(child))))
		case "destructor_declaration":
			out = append(out, x.member(child, MemberDestructor, "Finalize"))
		case "property_declaration":
			out = append(out, x.member(child, MemberProperty, x.text(nameOf(child))))
		case "indexer_declaration":
			m := x.member(child, MemberIndexer, "this[]")
			if p := parser.FirstNamedChildOfType(child, "bracketed_parameter_list"); p != nil {
				m.Parameters = x.parameters(p)
			}
			out = append(out, m)
		case "event_declaration":
			out = append(out, x.member(child, MemberEvent, x.text(nameOf(child))))
		case "field_declaration":
			out = append(out, x.variables(child, MemberField)...)
		case "event_field_declaration":
			out = append(out, x.variables(child, MemberEvent)...)
		case "enum_member_declaration":
			n := nameOf(child)
			out = append(out, MemberDecl{
				Name:       x.text(n),
				Kind:       MemberEnumValue,
				Attributes: x.attributes(child),
				Span:       spanOf(n),
			})
		case "operator_declaration", "conversion_operator_declaration":
			// Operator use sites are unary/binary expressions, not tracked
			// operations, so operators are not modeled as symbols.
			x.references(child, owner)
			continue
		default:
			continue
		}
		x.references(child, owner)
	}
	return out
}

func (x *extractor) member(node *sitter.Node, kind, name string) MemberDecl {
	m := MemberDecl{
		Name:       name,
		Kind:       kind,
		Modifiers:  x.modifiers(node),
		Attributes: x.attributes(node),
		Span:       spanOf(nameOf(node)),
	}
	if spec := parser.FirstNamedChildOfType(node, "explicit_interface_specifier"); spec != nil {
		m.ExplicitInterface = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(x.text(spec)), "."))
	}
	if params := node.ChildByFieldName("parameters"); params != nil {
		m.Parameters = x.parameters(params)
	} else if params := parser.FirstNamedChildOfType(node, "parameter_list"); params != nil {
		m.Parameters = x.parameters(params)
	}
	return m
}

func (x *extractor) variables(node *sitter.Node, kind string) []MemberDecl {
	decl := parser.FirstNamedChildOfType(node, "variable_declaration")
	if decl == nil {
		return nil
	}
	mods := x.modifiers(node)
	attrs := x.attributes(node)

	var out []MemberDecl
	for _, v := range parser.NamedChildren(decl) {
		if v.Type() != "variable_declarator" {
			continue
		}
		n := nameOf(v)
		out = append(out, MemberDecl{
			Name:       x.text(n),
			Kind:       kind,
			Modifiers:  mods,
			Attributes: attrs,
			Span:       spanOf(n),
		})
	}
	return out
}

func (x *extractor) modifiers(node *sitter.Node) []string {
	var out []string
	for _, child := range parser.NamedChildren(node) {
		if child.Type() == "modifier" {
			out = append(out, strings.TrimSpace(x.text(child)))
		}
	}
	return out
}

func (x *extractor) attributes(node *sitter.Node) []string {
	var out []string
	for _, list := range parser.NamedChildren(node) {
		if list.Type() != "attribute_list" {
			continue
		}
		for _, attr := range parser.NamedChildren(list) {
			if attr.Type() != "attribute" {
				continue
			}
			name := attr.ChildByFieldName("name")
			if name == nil {
				name = parser.FirstNamedChildOfType(attr, "identifier", "qualified_name", "generic_name", "alias_qualified_name")
			}
			if name != nil {
				out = append(out, x.text(name))
			}
		}
	}
	return out
}

func (x *extractor) parameters(list *sitter.Node) []string {
	var out []string
	for _, p := range parser.NamedChildren(list) {
		if p.Type() != "parameter" {
			continue
		}
		out = append(out, strings.TrimSpace(x.text(p.ChildByFieldName("type"))))
	}
	return out
}

// references records every reference site under node. Nested type
// declarations are skipped; they are visited as declarations.
func (x *extractor) references(node *sitter.Node, scope string) {
	parser.WalkTyped(node, x.src, func(n *sitter.Node, t string, _ []byte) bool {
		if _, isType := typeDeclKinds[t]; isType && !sameNode(n, node) {
			return false
		}

		switch t {
		case "invocation_expression":
			x.invocation(n, scope)
		case "object_creation_expression":
			x.creation(n, scope)
		case "member_access_expression":
			if !isInvokedFunction(n) {
				x.add(RefSite{Kind: RefMember, Receiver: x.receiver(n.ChildByFieldName("expression")),
					Name: x.simpleName(n.ChildByFieldName("name")), Scope: scope, Span: spanOf(n.ChildByFieldName("name"))})
			}
		case "member_binding_expression":
			if !isInvokedFunction(n) {
				name := n.ChildByFieldName("name")
				x.add(RefSite{Kind: RefMember, Receiver: "?", Name: x.simpleName(name), Scope: scope, Span: spanOf(name)})
			}
		case "element_access_expression":
			x.add(RefSite{Kind: RefMember, Receiver: "?", Name: "this[]", Scope: scope, Span: spanOf(n)})
		case "typeof_expression":
			if typ := typeChild(n); typ != nil {
				x.add(RefSite{Kind: RefTypeOf, Name: x.text(typ), Scope: scope, Span: spanOf(typ)})
			}
		case "cast_expression":
			if typ := n.ChildByFieldName("type"); typ != nil {
				x.add(RefSite{Kind: RefCast, Name: x.text(typ), Scope: scope, Span: spanOf(typ)})
			}
		case "as_expression":
			if typ := n.ChildByFieldName("right"); typ != nil {
				x.add(RefSite{Kind: RefCast, Name: x.text(typ), Scope: scope, Span: spanOf(typ)})
			}
		case "binary_expression":
			if op := n.ChildByFieldName("operator"); op != nil && x.text(op) == "as" {
				if typ := n.ChildByFieldName("right"); typ != nil {
					x.add(RefSite{Kind: RefCast, Name: x.text(typ), Scope: scope, Span: spanOf(typ)})
				}
			}
		case "constructor_initializer":
			recv := ReceiverBase
			if strings.Contains(strings.SplitN(x.text(n), "(", 2)[0], "this") {
				recv = ReceiverThis
			}
			x.add(RefSite{Kind: RefInvoke, Receiver: recv, Name: ".ctor",
				ArgCount: argCount(parser.FirstNamedChildOfType(n, "argument_list")), Scope: scope, Span: spanOf(n)})
		case "identifier":
			if !isDeclarationName(n) {
				x.add(RefSite{Kind: RefName, Name: x.text(n), Scope: scope, Span: spanOf(n)})
			}
			return false
		}
		return true
	})
}

func (x *extractor) invocation(n *sitter.Node, scope string) {
	fn := n.ChildByFieldName("function")
	args := argCount(n.ChildByFieldName("arguments"))
	if fn == nil {
		return
	}

	site := RefSite{Kind: RefInvoke, ArgCount: args, Scope: scope}
	switch fn.Type() {
	case "identifier", "generic_name":
		site.Name = x.simpleName(fn)
		site.Span = spanOf(fn)
	case "member_access_expression":
		name := fn.ChildByFieldName("name")
		site.Receiver = x.receiver(fn.ChildByFieldName("expression"))
		site.Name = x.simpleName(name)
		site.Span = spanOf(name)
	case "member_binding_expression":
		name := fn.ChildByFieldName("name")
		site.Receiver = "?"
		site.Name = x.simpleName(name)
		site.Span = spanOf(name)
	default:
		return
	}
	if site.Name != "" {
		x.add(site)
	}
}

func (x *extractor) creation(n *sitter.Node, scope string) {
	typ := n.ChildByFieldName("type")
	if typ == nil {
		return
	}
	typeName := x.text(typ)
	x.add(RefSite{Kind: RefNew, Name: typeName, ArgCount: argCount(n.ChildByFieldName("arguments")),
		Scope: scope, Span: spanOf(typ)})

	init := n.ChildByFieldName("initializer")
	if init == nil {
		init = parser.FirstNamedChildOfType(n, "initializer_expression")
	}
	for _, child := range parser.NamedChildren(init) {
		if child.Type() != "assignment_expression" {
			continue
		}
		left := child.ChildByFieldName("left")
		if left != nil && left.Type() == "identifier" {
			x.add(RefSite{Kind: RefMember, Receiver: typeName, Name: x.text(left), Scope: scope, Span: spanOf(left)})
		}
	}
}

func (x *extractor) add(site RefSite) {
	x.facts.Refs = append(x.facts.Refs, site)
}

// simpleName returns the identifier of a simple or generic name.
func (x *extractor) simpleName(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	if n.Type() == "generic_name" {
		if id := parser.FirstNamedChildOfType(n, "identifier"); id != nil {
			return x.text(id)
		}
	}
	return x.text(n)
}

// receiver normalizes a member access receiver. Anything that is not a
// plain dotted name becomes "?".
func (x *extractor) receiver(n *sitter.Node) string {
	if n == nil {
		return "?"
	}
	txt := strings.TrimSpace(x.text(n))
	switch {
	case txt == ReceiverThis || n.Type() == "this_expression":
		return ReceiverThis
	case txt == ReceiverBase || n.Type() == "base_expression":
		return ReceiverBase
	}
	switch n.Type() {
	case "identifier", "predefined_type":
		return txt
	case "generic_name":
		return x.simpleName(n)
	case "qualified_name", "member_access_expression":
		if isDottedName(txt) {
			return txt
		}
	}
	return "?"
}

func isDottedName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r != '.' && r != '_' && !isIdentRune(r) {
			return false
		}
	}
	return true
}

func isIdentRune(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r > 127
}

func isInvokedFunction(n *sitter.Node) bool {
	parent := n.Parent()
	if parent == nil || parent.Type() != "invocation_expression" {
		return false
	}
	return sameNode(parent.ChildByFieldName("function"), n)
}

func isDeclarationName(n *sitter.Node) bool {
	parent := n.Parent()
	if parent == nil {
		return true
	}
	pt := parent.Type()
	if declarationParents[pt] {
		return true
	}
	// The initializer of a declarator is a reference; only its name is not.
	if pt == "variable_declarator" {
		if name := parent.ChildByFieldName("name"); name != nil {
			return sameNode(name, n)
		}
		return parent.NamedChildCount() > 0 && sameNode(parent.NamedChild(0), n)
	}
	if _, isType := typeDeclKinds[pt]; isType {
		return true
	}
	for _, field := range fieldParents[pt] {
		if sameNode(parent.ChildByFieldName(field), n) {
			return true
		}
	}
	return false
}

func typeChild(n *sitter.Node) *sitter.Node {
	if t := n.ChildByFieldName("type"); t != nil {
		return t
	}
	children := parser.NamedChildren(n)
	if len(children) == 0 {
		return nil
	}
	return children[0]
}

func argCount(list *sitter.Node) int {
	count := 0
	for _, child := range parser.NamedChildren(list) {
		if child.Type() == "argument" {
			count++
		}
	}
	return count
}

func nameOf(n *sitter.Node) *sitter.Node {
	if n == nil {
		return nil
	}
	if name := n.ChildByFieldName("name"); name != nil {
		return name
	}
	return parser.FirstNamedChildOfType(n, "identifier")
}

func sameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return false
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Symbol() == b.Symbol()
}

func spanOf(n *sitter.Node) Span {
	if n == nil {
		return Span{}
	}
	start, end := n.StartPoint(), n.EndPoint()
	return Span{
		StartLine:   start.Row + 1,
		StartColumn: start.Column + 1,
		EndLine:     end.Row + 1,
		EndColumn:   end.Column + 1,
	}
}

func joinName(prefix, name string) string {
	switch {
	case prefix == "":
		return name
	case name == "":
		return prefix
	default:
		return prefix + "." + name
	}
}

// typeKey identifies a type across partial declarations. Nested types hang
// off their outer type's key with '+'.
func typeKey(ns, outer, name string, arity int) string {
	key := joinName(ns, name)
	if outer != "" {
		key = outer + "+" + name
	}
	if arity > 0 {
		key += "`" + strconv.Itoa(arity)
	}
	return key
}
