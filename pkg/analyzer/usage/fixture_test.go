package usage

import (
	"github.com/panbanda/dormant/pkg/symbol"
)

// testCompilation is a hand-built compilation for engine tests.
type testCompilation struct {
	table *symbol.Table
	entry symbol.ID
}

func newTestCompilation() *testCompilation {
	return &testCompilation{table: symbol.NewTable()}
}

func (c *testCompilation) Symbols() symbol.Lookup { return c.table }
func (c *testCompilation) EntryPoint() symbol.ID  { return c.entry }

func srcLoc(line uint32) []symbol.Location {
	return []symbol.Location{{Path: "Program.cs", StartLine: line, StartColumn: 5, InSource: true}}
}

func (c *testCompilation) addType(qualified string, base symbol.ID, ifaces ...symbol.ID) *symbol.Symbol {
	name := qualified
	for i := len(qualified) - 1; i >= 0; i-- {
		if qualified[i] == '.' {
			name = qualified[i+1:]
			break
		}
	}
	t := &symbol.Symbol{
		Kind:          symbol.KindType,
		TypeKind:      symbol.TypeKindClass,
		Name:          name,
		QualifiedName: qualified,
		Accessibility: symbol.AccessPublic,
		BaseType:      base,
		Interfaces:    ifaces,
		Locations:     srcLoc(1),
	}
	c.table.Add(t)
	return t
}

func (c *testCompilation) addInterface(qualified string, bases ...symbol.ID) *symbol.Symbol {
	t := c.addType(qualified, symbol.NoID, bases...)
	t.TypeKind = symbol.TypeKindInterface
	return t
}

func (c *testCompilation) addMember(owner *symbol.Symbol, kind symbol.Kind, name string, params ...string) *symbol.Symbol {
	m := &symbol.Symbol{
		Kind:           kind,
		Name:           name,
		QualifiedName:  owner.QualifiedName + "." + name,
		Accessibility:  symbol.AccessPublic,
		ContainingType: owner.ID,
		Parameters:     params,
		Locations:      srcLoc(10),
	}
	if kind == symbol.KindMethod {
		m.MethodKind = symbol.MethodKindOrdinary
	}
	c.table.Add(m)
	owner.Members = append(owner.Members, m.ID)
	return m
}
