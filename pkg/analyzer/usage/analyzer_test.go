package usage

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/dormant/pkg/operation"
	"github.com/panbanda/dormant/pkg/symbol"
)

func declareAll(p *Pass, syms ...*symbol.Symbol) {
	for _, s := range syms {
		p.SymbolDeclared(s)
	}
}

func findingNames(findings []Finding) []string {
	names := make([]string, 0, len(findings))
	for _, f := range findings {
		names = append(names, f.SymbolName)
	}
	return names
}

func TestPassUnusedMethodReported(t *testing.T) {
	c := newTestCompilation()
	foo := c.addType("Shop.Foo", symbol.NoID)
	bar := c.addMember(foo, symbol.KindMethod, "Bar")

	p := New().Begin(c)
	declareAll(p, foo, bar)

	findings := p.End()
	assert.ElementsMatch(t, []string{"Shop.Foo", "Shop.Foo.Bar"}, findingNames(findings))

	for _, f := range findings {
		if f.SymbolName == "Shop.Foo.Bar" {
			assert.Equal(t, "USG001", f.RuleID)
			assert.Equal(t, SeverityWarning, f.Severity)
			assert.Equal(t, symbol.KindMethod, f.Kind)
			assert.Equal(t, "'Shop.Foo.Bar' is declared but appears to be unused in this compilation", f.Message)
			assert.Equal(t, uint32(10), f.Location.StartLine)
		}
	}
}

func TestPassInvokedMethodNotReported(t *testing.T) {
	c := newTestCompilation()
	foo := c.addType("Shop.Foo", symbol.NoID)
	bar := c.addMember(foo, symbol.KindMethod, "Bar")

	p := New().Begin(c)
	declareAll(p, foo, bar)
	p.OperationObserved(operation.Invocation(bar.ID, symbol.Location{}))

	assert.Empty(t, p.End())
}

func TestPassControllerNotReported(t *testing.T) {
	c := newTestCompilation()
	base := c.addType("Microsoft.AspNetCore.Mvc.ControllerBase", symbol.NoID)
	orders := c.addType("Shop.OrdersController", base.ID)
	get := c.addMember(orders, symbol.KindMethod, "Get")

	p := New().Begin(c)
	declareAll(p, orders, get)

	assert.Empty(t, p.End())
	assert.Equal(t, int64(2), p.Stats().ExcludedByReason[ReasonController])
}

func TestPassMarkedPrivateFieldNotReported(t *testing.T) {
	c := newTestCompilation()
	foo := c.addType("Shop.Foo", symbol.NoID)
	field := c.addMember(foo, symbol.KindField, "cache")
	field.Accessibility = symbol.AccessPrivate
	field.Attributes = []symbol.Attribute{{TypeName: "MyUsedImplicitlyAttribute"}}

	p := New().Begin(c)
	declareAll(p, field)

	assert.Empty(t, p.End())
}

func TestPassSkipsSymbolsWithoutSourceLocation(t *testing.T) {
	c := newTestCompilation()
	foo := c.addType("Shop.Foo", symbol.NoID)
	synthesized := c.addMember(foo, symbol.KindMethod, "Generated")
	synthesized.Locations = []symbol.Location{{Path: "metadata"}}

	p := New().Begin(c)
	declareAll(p, synthesized)

	assert.Empty(t, p.End())
	assert.Equal(t, int64(1), p.Stats().Unlocated)
}

func TestPassIgnoresUnresolvedOperations(t *testing.T) {
	c := newTestCompilation()
	foo := c.addType("Shop.Foo", symbol.NoID)

	p := New().Begin(c)
	declareAll(p, foo)
	p.OperationObserved(operation.Invocation(999, symbol.Location{}))
	p.OperationObserved(operation.Operation{Kind: operation.KindOther, Type: foo.ID})

	require.Len(t, p.End(), 1)
	stats := p.Stats()
	assert.Equal(t, int64(2), stats.OperationsObserved)
	assert.Equal(t, int64(0), stats.OperationsResolved)
}

func TestPassesDoNotShareState(t *testing.T) {
	c := newTestCompilation()
	foo := c.addType("Shop.Foo", symbol.NoID)

	a := New()
	first := a.Begin(c)
	declareAll(first, foo)
	first.OperationObserved(operation.TypeOf(foo.ID, symbol.Location{}))
	assert.Empty(t, first.End())

	second := a.Begin(c)
	declareAll(second, foo)
	assert.Len(t, second.End(), 1)
}

func TestPassStats(t *testing.T) {
	c := newTestCompilation()
	foo := c.addType("Shop.Foo", symbol.NoID)
	bar := c.addMember(foo, symbol.KindMethod, "Bar")
	hidden := c.addMember(foo, symbol.KindMethod, "Hidden")
	hidden.Accessibility = symbol.AccessInternal

	p := New().Begin(c)
	declareAll(p, foo, bar, hidden, nil)
	p.SymbolDeclared(&symbol.Symbol{Kind: "namespace"})

	s := p.Stats()
	assert.Equal(t, int64(4), s.SymbolsDeclared)
	assert.Equal(t, int64(2), s.SymbolsTracked)
	assert.Equal(t, int64(2), s.SymbolsExcluded)
	assert.Equal(t, int64(1), s.ExcludedByReason[ReasonUntrackedAccessibility])
	assert.Equal(t, int64(1), s.ExcludedByReason[ReasonNilSymbol])
}

// startContext is a minimal sequential host.
type startContext struct {
	comp      Compilation
	symbolFns []func(SymbolContext)
	opFns     []func(OperationContext)
	endFns    []func(CompilationEndContext)
	symKinds  []symbol.Kind
	opKinds   []operation.Kind
}

func (s *startContext) Compilation() Compilation { return s.comp }

func (s *startContext) RegisterSymbolAction(fn func(SymbolContext), kinds ...symbol.Kind) {
	s.symbolFns = append(s.symbolFns, fn)
	s.symKinds = append(s.symKinds, kinds...)
}

func (s *startContext) RegisterOperationAction(fn func(OperationContext), kinds ...operation.Kind) {
	s.opFns = append(s.opFns, fn)
	s.opKinds = append(s.opKinds, kinds...)
}

func (s *startContext) RegisterCompilationEndAction(fn func(CompilationEndContext)) {
	s.endFns = append(s.endFns, fn)
}

func TestInitializeRegistersActions(t *testing.T) {
	c := newTestCompilation()
	foo := c.addType("Shop.Foo", symbol.NoID)
	bar := c.addMember(foo, symbol.KindMethod, "Bar")
	baz := c.addMember(foo, symbol.KindMethod, "Baz")

	host := &startContext{comp: c}
	New().Initialize(host)

	require.Len(t, host.symbolFns, 1)
	require.Len(t, host.opFns, 1)
	require.Len(t, host.endFns, 1)
	assert.ElementsMatch(t, symbol.TrackedKinds, host.symKinds)
	assert.ElementsMatch(t, operation.TrackedKinds, host.opKinds)

	var wg sync.WaitGroup
	for _, s := range []*symbol.Symbol{foo, bar, baz} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			host.symbolFns[0](SymbolContext{Symbol: s, Compilation: c})
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		host.opFns[0](OperationContext{Operation: operation.MemberReference(bar.ID, symbol.Location{}), Compilation: c})
	}()
	wg.Wait()

	var reported []Finding
	host.endFns[0](CompilationEndContext{Compilation: c, Report: func(f Finding) {
		reported = append(reported, f)
	}})
	assert.Equal(t, []string{"Shop.Foo.Baz"}, findingNames(reported))
}

func TestDescriptorFormat(t *testing.T) {
	assert.Equal(t, "'X.Y' is declared but appears to be unused in this compilation", UnusedSymbol.Format("X.Y"))
	assert.Equal(t, "Usage", UnusedSymbol.Category)
	assert.True(t, UnusedSymbol.EnabledByDefault)
}

type countingTracker struct {
	*ConcurrentTracker
	declared int
}

func (c *countingTracker) RecordDeclaredSymbol(sym *symbol.Symbol) {
	c.declared++
	c.ConcurrentTracker.RecordDeclaredSymbol(sym)
}

func TestWithTrackerFactory(t *testing.T) {
	c := newTestCompilation()
	foo := c.addType("Shop.Foo", symbol.NoID)

	var tracker *countingTracker
	a := New(WithTrackerFactory(func(symbols symbol.Lookup) SymbolTracker {
		tracker = &countingTracker{ConcurrentTracker: NewConcurrentTracker(symbols)}
		return tracker
	}))
	p := a.Begin(c)
	declareAll(p, foo, foo)

	require.NotNil(t, tracker)
	assert.Equal(t, 2, tracker.declared)
	assert.Len(t, p.End(), 1)
}
