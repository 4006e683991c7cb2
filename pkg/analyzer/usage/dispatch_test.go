package usage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/panbanda/dormant/pkg/symbol"
)

func TestSignatureDispatcher(t *testing.T) {
	c := newTestCompilation()
	repo := c.addInterface("Shop.IRepository")
	find := c.addMember(repo, symbol.KindMethod, "Find", "int")
	save := c.addMember(repo, symbol.KindMethod, "Save", "Order")
	count := c.addMember(repo, symbol.KindProperty, "Count")

	base := c.addType("Shop.RepositoryBase", symbol.NoID)
	baseFind := c.addMember(base, symbol.KindMethod, "Find", "int")

	impl := c.addType("Shop.SqlRepository", base.ID, repo.ID)
	c.addMember(impl, symbol.KindMethod, "Find", "int", "bool")
	explicitSave := c.addMember(impl, symbol.KindMethod, "Shop.IRepository.Save", "Order")
	explicitSave.Accessibility = symbol.AccessPrivate
	explicitSave.ExplicitInterfaceImplementations = []symbol.ID{save.ID}
	implCount := c.addMember(impl, symbol.KindProperty, "Count")

	unrelated := c.addType("Shop.Other", symbol.NoID)

	d := NewSignatureDispatcher(c.table)

	assert.Same(t, baseFind, d.FindImplementationForInterfaceMember(impl, find), "arity match up the base chain")
	assert.Same(t, explicitSave, d.FindImplementationForInterfaceMember(impl, save))
	assert.Same(t, implCount, d.FindImplementationForInterfaceMember(impl, count))
	assert.Nil(t, d.FindImplementationForInterfaceMember(unrelated, find))
	assert.Nil(t, d.FindImplementationForInterfaceMember(impl, baseFind), "not an interface member")
	assert.Nil(t, d.FindImplementationForInterfaceMember(nil, find))
}

func TestSignatureDispatcherSkipsStaticAndNonPublic(t *testing.T) {
	c := newTestCompilation()
	iface := c.addInterface("Shop.IRun")
	run := c.addMember(iface, symbol.KindMethod, "Run")
	impl := c.addType("Shop.Runner", symbol.NoID, iface.ID)
	static := c.addMember(impl, symbol.KindMethod, "Run")
	static.IsStatic = true
	private := c.addMember(impl, symbol.KindMethod, "Run")
	private.Accessibility = symbol.AccessPrivate

	assert.Nil(t, NewSignatureDispatcher(c.table).FindImplementationForInterfaceMember(impl, run))
}

type fixedDispatcher struct {
	*testCompilation
	impl *symbol.Symbol
}

func (f fixedDispatcher) FindImplementationForInterfaceMember(_, _ *symbol.Symbol) *symbol.Symbol {
	return f.impl
}

func TestCompilationSuppliedDispatcher(t *testing.T) {
	c := newTestCompilation()
	iface := c.addInterface("Shop.IRun")
	c.addMember(iface, symbol.KindMethod, "Execute")
	impl := c.addType("Shop.Runner", symbol.NoID, iface.ID)
	renamed := c.addMember(impl, symbol.KindMethod, "RunNow")

	comp := fixedDispatcher{testCompilation: c, impl: renamed}
	pass := New().Begin(comp)
	assert.Equal(t, ReasonInterfaceImplementation, pass.ExclusionReason(renamed))

	plain := New().Begin(c)
	assert.Equal(t, ReasonNone, plain.ExclusionReason(renamed))
}
