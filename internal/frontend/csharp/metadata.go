package csharp

import (
	"strconv"

	"github.com/panbanda/dormant/pkg/symbol"
)

// metaMember is a member of a framework type known without its assembly.
type metaMember struct {
	Name   string
	Kind   symbol.Kind
	Params int
}

// metaType describes a framework type the front end can bind against.
type metaType struct {
	QualifiedName string
	Name          string
	MetadataName  string
	TypeKind      symbol.TypeKind
	Base          string
	Interfaces    []string
	Members       []metaMember
}

func method(name string, params int) metaMember {
	return metaMember{Name: name, Kind: symbol.KindMethod, Params: params}
}

// catalog lists the framework types that matter to exclusion rules and
// override resolution. Qualified names use metadata arity suffixes.
var catalog = []metaType{
	{QualifiedName: "System.Object", TypeKind: symbol.TypeKindClass, Members: []metaMember{
		method("ToString", 0), method("Equals", 1), method("GetHashCode", 0), method("Finalize", 0),
	}},
	{QualifiedName: "System.Attribute", TypeKind: symbol.TypeKindClass, Base: "System.Object"},
	{QualifiedName: "System.Exception", TypeKind: symbol.TypeKindClass, Base: "System.Object", Members: []metaMember{
		{Name: "Message", Kind: symbol.KindProperty},
		{Name: "StackTrace", Kind: symbol.KindProperty},
	}},
	{QualifiedName: "System.IDisposable", TypeKind: symbol.TypeKindInterface, Members: []metaMember{method("Dispose", 0)}},
	{QualifiedName: "System.IAsyncDisposable", TypeKind: symbol.TypeKindInterface, Members: []metaMember{method("DisposeAsync", 0)}},
	{QualifiedName: "System.IComparable", TypeKind: symbol.TypeKindInterface, Members: []metaMember{method("CompareTo", 1)}},
	{QualifiedName: "System.IComparable`1", TypeKind: symbol.TypeKindInterface, Members: []metaMember{method("CompareTo", 1)}},
	{QualifiedName: "System.IEquatable`1", TypeKind: symbol.TypeKindInterface, Members: []metaMember{method("Equals", 1)}},
	{QualifiedName: "System.ICloneable", TypeKind: symbol.TypeKindInterface, Members: []metaMember{method("Clone", 0)}},
	{QualifiedName: "System.Collections.IEnumerable", TypeKind: symbol.TypeKindInterface, Members: []metaMember{method("GetEnumerator", 0)}},
	{QualifiedName: "System.Collections.Generic.IEnumerable`1", TypeKind: symbol.TypeKindInterface,
		Interfaces: []string{"System.Collections.IEnumerable"}, Members: []metaMember{method("GetEnumerator", 0)}},
	{QualifiedName: "System.ComponentModel.INotifyPropertyChanged", TypeKind: symbol.TypeKindInterface,
		Members: []metaMember{{Name: "PropertyChanged", Kind: symbol.KindEvent}}},

	{QualifiedName: "System.SerializableAttribute", TypeKind: symbol.TypeKindClass, Base: "System.Attribute"},
	{QualifiedName: "System.ObsoleteAttribute", TypeKind: symbol.TypeKindClass, Base: "System.Attribute"},
	{QualifiedName: "System.FlagsAttribute", TypeKind: symbol.TypeKindClass, Base: "System.Attribute"},
	{QualifiedName: "System.Runtime.Serialization.DataContractAttribute", TypeKind: symbol.TypeKindClass, Base: "System.Attribute"},
	{QualifiedName: "System.Runtime.Serialization.DataMemberAttribute", TypeKind: symbol.TypeKindClass, Base: "System.Attribute"},
	{QualifiedName: "JetBrains.Annotations.UsedImplicitlyAttribute", TypeKind: symbol.TypeKindClass, Base: "System.Attribute"},
	{QualifiedName: "UnityEngine.Scripting.PreserveAttribute", TypeKind: symbol.TypeKindClass, Base: "System.Attribute"},

	{QualifiedName: "Microsoft.AspNetCore.Mvc.ControllerBase", TypeKind: symbol.TypeKindClass, Base: "System.Object"},
	{QualifiedName: "Microsoft.AspNetCore.Mvc.Controller", TypeKind: symbol.TypeKindClass, Base: "Microsoft.AspNetCore.Mvc.ControllerBase"},
	{QualifiedName: "Microsoft.AspNetCore.Mvc.ApiControllerAttribute", TypeKind: symbol.TypeKindClass, Base: "System.Attribute"},
	{QualifiedName: "Microsoft.AspNetCore.Mvc.RouteAttribute", TypeKind: symbol.TypeKindClass, Base: "System.Attribute"},
	{QualifiedName: "Microsoft.AspNetCore.Mvc.HttpGetAttribute", TypeKind: symbol.TypeKindClass, Base: "System.Attribute"},
	{QualifiedName: "Microsoft.AspNetCore.Mvc.HttpPostAttribute", TypeKind: symbol.TypeKindClass, Base: "System.Attribute"},
	{QualifiedName: "System.Web.Mvc.Controller", TypeKind: symbol.TypeKindClass, Base: "System.Object"},
	{QualifiedName: "System.Web.Http.ApiController", TypeKind: symbol.TypeKindClass, Base: "System.Object"},
	{QualifiedName: "System.Web.Http.ApiControllerAttribute", TypeKind: symbol.TypeKindClass, Base: "System.Attribute"},
}

// catalogIndex maps qualified names and simple names to catalog entries.
// Simple names may be ambiguous; ambiguous entries keep every candidate.
type catalogIndex struct {
	byQualified map[string]*metaType
	bySimple    map[string][]*metaType
}

func newCatalogIndex() *catalogIndex {
	idx := &catalogIndex{
		byQualified: make(map[string]*metaType, len(catalog)),
		bySimple:    make(map[string][]*metaType, len(catalog)),
	}
	for i := range catalog {
		entry := catalog[i]
		mt := &entry
		if mt.MetadataName == "" {
			mt.MetadataName = lastSegment(mt.QualifiedName)
		}
		if mt.Name == "" {
			mt.Name = stripArity(mt.MetadataName)
		}
		idx.byQualified[mt.QualifiedName] = mt
		idx.bySimple[mt.MetadataName] = append(idx.bySimple[mt.MetadataName], mt)
	}
	return idx
}

// lookup resolves a written name against the catalog, trying it as fully
// qualified, then prefixed with each using, then by simple name.
func (c *catalogIndex) lookup(name string, arity int, usings []string) *metaType {
	meta := name
	if arity > 0 {
		meta = name + "`" + strconv.Itoa(arity)
	}
	if mt, ok := c.byQualified[meta]; ok {
		return mt
	}
	for _, u := range usings {
		if mt, ok := c.byQualified[u+"."+meta]; ok {
			return mt
		}
	}
	if mt, ok := c.byQualified["System."+meta]; ok {
		return mt
	}
	if cands := c.bySimple[lastSegment(meta)]; len(cands) > 0 {
		return cands[0]
	}
	return nil
}
