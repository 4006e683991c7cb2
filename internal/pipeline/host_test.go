package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/dormant/pkg/analyzer/usage"
	"github.com/panbanda/dormant/pkg/operation"
	"github.com/panbanda/dormant/pkg/symbol"
)

type fakeSource struct {
	table    *symbol.Table
	declared []*symbol.Symbol
	ops      []operation.Operation
}

func (f *fakeSource) Symbols() symbol.Lookup { return f.table }
func (f *fakeSource) EntryPoint() symbol.ID { return symbol.NoID }
func (f *fakeSource) Declared() []*symbol.Symbol { return f.declared }
func (f *fakeSource) Operations() []operation.Operation { return f.ops }

// newFakeSource declares n public classes, each with one public method. Every
// even-numbered method is invoked.
func newFakeSource(n int) *fakeSource {
	src := &fakeSource{table: symbol.NewTable()}
	for i := range n {
		typ := &symbol.Symbol{
			Kind:          symbol.KindType,
			TypeKind:      symbol.TypeKindClass,
			Name:          fmt.Sprintf("T%d", i),
			QualifiedName: fmt.Sprintf("App.T%d", i),
			Accessibility: symbol.AccessPublic,
			Locations:     []symbol.Location{{Path: "App.cs", StartLine: uint32(i + 1), InSource: true}},
		}
		src.table.Add(typ)
		method := &symbol.Symbol{
			Kind:           symbol.KindMethod,
			MethodKind:     symbol.MethodKindOrdinary,
			Name:           "Run",
			QualifiedName:  typ.QualifiedName + ".Run",
			Accessibility:  symbol.AccessPublic,
			ContainingType: typ.ID,
			Locations:      []symbol.Location{{Path: "App.cs", StartLine: uint32(i + 1), InSource: true}},
		}
		src.table.Add(method)
		typ.Members = []symbol.ID{method.ID}

		src.declared = append(src.declared, typ, method)
		if i%2 == 0 {
			src.ops = append(src.ops, operation.Invocation(method.ID, symbol.Location{Path: "Main.cs", InSource: true}))
		}
	}
	src.ops = append(src.ops, operation.Operation{Kind: operation.KindOther})
	return src
}

func runAnalysis(t *testing.T, src *fakeSource, opts ...Option) []string {
	t.Helper()
	host := New(src, opts...)
	usage.New().Initialize(host)

	findings, err := host.Run(context.Background())
	require.NoError(t, err)

	names := make([]string, 0, len(findings))
	for _, f := range findings {
		names = append(names, f.SymbolName)
	}
	sort.Strings(names)
	return names
}

func TestRunMatchesSequential(t *testing.T) {
	src := newFakeSource(500)

	sequential := runAnalysis(t, src, WithWorkers(1), WithBatchSize(len(src.declared)+len(src.ops)))
	concurrent := runAnalysis(t, src, WithWorkers(8), WithBatchSize(7))

	assert.Len(t, sequential, 500, "odd types and their methods are unused")
	assert.Equal(t, sequential, concurrent)
	assert.Contains(t, sequential, "App.T1")
	assert.Contains(t, sequential, "App.T1.Run")
	assert.NotContains(t, sequential, "App.T0")
}

func TestRunFiltersByKind(t *testing.T) {
	src := newFakeSource(10)
	host := New(src, WithWorkers(2), WithBatchSize(3))

	var types, all, invocations, others atomic.Int32
	host.RegisterSymbolAction(func(usage.SymbolContext) { types.Add(1) }, symbol.KindType)
	host.RegisterSymbolAction(func(usage.SymbolContext) { all.Add(1) })
	host.RegisterOperationAction(func(usage.OperationContext) { invocations.Add(1) }, operation.KindInvocation)
	host.RegisterOperationAction(func(usage.OperationContext) { others.Add(1) }, operation.KindOther)

	var ended int
	host.RegisterCompilationEndAction(func(ec usage.CompilationEndContext) {
		ended++
		assert.Same(t, src, ec.Compilation)
	})

	findings, err := host.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, findings)
	assert.Equal(t, int32(10), types.Load())
	assert.Equal(t, int32(20), all.Load())
	assert.Equal(t, int32(5), invocations.Load())
	assert.Equal(t, int32(1), others.Load())
	assert.Equal(t, 1, ended)
}

func TestRunCancelled(t *testing.T) {
	src := newFakeSource(50)
	host := New(src)

	var ended bool
	host.RegisterSymbolAction(func(usage.SymbolContext) {})
	host.RegisterCompilationEndAction(func(usage.CompilationEndContext) { ended = true })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := host.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ended, "end actions do not run for a cancelled pass")
}

func TestCompilation(t *testing.T) {
	src := newFakeSource(1)
	host := New(src)
	assert.Same(t, src, host.Compilation())
}
