package csharp

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/dormant/pkg/analyzer/usage"
	"github.com/panbanda/dormant/pkg/operation"
	"github.com/panbanda/dormant/pkg/parser"
	"github.com/panbanda/dormant/pkg/symbol"
)

func compile(t *testing.T, files map[string]string) *Compilation {
	t.Helper()
	p := parser.New()
	defer p.Close()

	paths := make([]string, 0, len(files))
	for path := range files {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var facts []*FileFacts
	for _, path := range paths {
		f, err := ExtractSource(context.Background(), p, path, []byte(files[path]))
		require.NoError(t, err)
		facts = append(facts, f)
	}
	return Bind(facts, nil)
}

func declared(t *testing.T, c *Compilation, qualified string) *symbol.Symbol {
	t.Helper()
	for _, s := range c.Declared() {
		if s.QualifiedName == qualified {
			return s
		}
	}
	require.Failf(t, "symbol not declared", "%s", qualified)
	return nil
}

func unusedNames(c *Compilation) []string {
	pass := usage.New().Begin(c)
	for _, s := range c.Declared() {
		pass.SymbolDeclared(s)
	}
	for _, op := range c.Operations() {
		pass.OperationObserved(op)
	}
	var names []string
	for _, f := range pass.End() {
		names = append(names, f.SymbolName)
	}
	sort.Strings(names)
	return names
}

func TestBindAccessibilityDefaults(t *testing.T) {
	c := compile(t, map[string]string{"A.cs": `class A
{
    void M() { }
    public int P { get; set; }
    protected internal int Q;
}
`})

	a := declared(t, c, "A")
	assert.Equal(t, symbol.AccessInternal, a.Accessibility)
	assert.Equal(t, symbol.TypeKindClass, a.TypeKind)
	assert.Equal(t, symbol.AccessPrivate, declared(t, c, "A.M").Accessibility)
	assert.Equal(t, symbol.AccessPublic, declared(t, c, "A.P").Accessibility)
	assert.Equal(t, symbol.AccessProtectedOrInternal, declared(t, c, "A.Q").Accessibility)

	ctor := declared(t, c, "A..ctor")
	assert.True(t, ctor.IsImplicitlyDeclared)
	assert.Empty(t, ctor.Locations)
	assert.Equal(t, a.ID, ctor.ContainingType)

	m := declared(t, c, "A.M")
	assert.Equal(t, "A.M()", m.DisplayName)
	loc, ok := m.FirstSourceLocation()
	require.True(t, ok)
	assert.Equal(t, "A.cs", loc.Path)
	assert.Equal(t, uint32(3), loc.StartLine)
}

func TestBindInheritanceAndOverrides(t *testing.T) {
	c := compile(t, map[string]string{"Shapes.cs": `namespace Geo
{
    public interface IShape { double Area(); }

    public class Base
    {
        public virtual string Describe() { return ""; }
    }

    public class Circle : Base, IShape
    {
        public double Area() { return 1; }
        public override string Describe() { return "circle"; }
        public override string ToString() { return "c"; }
    }
}
`})

	base := declared(t, c, "Geo.Base")
	shape := declared(t, c, "Geo.IShape")
	circle := declared(t, c, "Geo.Circle")

	assert.True(t, shape.IsInterface())
	assert.Equal(t, base.ID, circle.BaseType)
	assert.Equal(t, []symbol.ID{shape.ID}, circle.Interfaces)

	object := c.Symbols().Symbol(base.BaseType)
	require.NotNil(t, object)
	assert.Equal(t, "System.Object", object.QualifiedName)

	describe := declared(t, c, "Geo.Circle.Describe")
	assert.Equal(t, declared(t, c, "Geo.Base.Describe").ID, describe.OverriddenSymbol)

	toString := declared(t, c, "Geo.Circle.ToString")
	overridden := c.Symbols().Symbol(toString.OverriddenSymbol)
	require.NotNil(t, overridden)
	assert.Equal(t, "System.Object.ToString", overridden.QualifiedName)

	checker := usage.NewTypeInheritanceChecker(c.Symbols())
	assert.True(t, checker.InheritsFromOrImplements(circle, "Geo.IShape"))
	assert.True(t, checker.InheritsFromOrImplements(circle, "System.Object"))
}

func TestBindPartialTypes(t *testing.T) {
	c := compile(t, map[string]string{
		"P1.cs": "partial class P { void A() { } }",
		"P2.cs": "public partial class P { void B() { } }",
	})

	p := declared(t, c, "P")
	assert.Len(t, p.Locations, 2)
	assert.Equal(t, symbol.AccessPublic, p.Accessibility)
	declared(t, c, "P.A")
	declared(t, c, "P.B")

	var types int
	for _, s := range c.Declared() {
		if s.Kind == symbol.KindType {
			types++
		}
	}
	assert.Equal(t, 1, types)
}

func TestBindAttributes(t *testing.T) {
	c := compile(t, map[string]string{"Attrs.cs": `using System;

[Serializable]
class S { }

[UsedImplicitly]
class U { }

[Custom]
class C { }

class CustomAttribute : Attribute { }
`})

	assert.Equal(t, "System.SerializableAttribute", declared(t, c, "S").Attributes[0].TypeName)
	assert.Equal(t, "JetBrains.Annotations.UsedImplicitlyAttribute", declared(t, c, "U").Attributes[0].TypeName)
	assert.Equal(t, "CustomAttribute", declared(t, c, "C").Attributes[0].TypeName)

	checker := usage.NewTypeInheritanceChecker(c.Symbols())
	assert.True(t, checker.InheritsFromOrImplements(declared(t, c, "CustomAttribute"), "System.Attribute"))
}

func TestBindEntryPointAndExplicitImplementation(t *testing.T) {
	c := compile(t, map[string]string{"Program.cs": `using System;

class Resource : IDisposable
{
    void IDisposable.Dispose() { }
}

class Program
{
    static void Main(string[] args) { }
}
`})

	main := declared(t, c, "Program.Main")
	assert.Equal(t, main.ID, c.EntryPoint())
	assert.True(t, main.IsStatic)

	dispose := declared(t, c, "Resource.Dispose")
	require.Len(t, dispose.ExplicitInterfaceImplementations, 1)
	target := c.Symbols().Symbol(dispose.ExplicitInterfaceImplementations[0])
	assert.Equal(t, "System.IDisposable.Dispose", target.QualifiedName)
	assert.Equal(t, symbol.AccessPrivate, dispose.Accessibility)
}

func TestBindOperations(t *testing.T) {
	c := compile(t, map[string]string{"Ops.cs": `class A
{
    void Run()
    {
        var b = new B();
        b.Go();
    }
}

class B
{
    public void Go() { }
}
`})

	b := declared(t, c, "B")
	goMethod := declared(t, c, "B.Go")

	var creations, invocations int
	for _, op := range c.Operations() {
		switch op.Kind {
		case operation.KindObjectCreation:
			if op.Type == b.ID {
				creations++
				assert.True(t, op.Location.InSource)
			}
		case operation.KindInvocation:
			if op.Method == goMethod.ID {
				invocations++
			}
		}
	}
	assert.Equal(t, 1, creations)
	assert.Equal(t, 1, invocations)
}

func TestUnusedEndToEnd(t *testing.T) {
	c := compile(t, map[string]string{"Shop.cs": `namespace Shop
{
    public class Program
    {
        public static void Main()
        {
            var repo = new Repository();
            repo.Save();
        }
    }

    public class Repository
    {
        private int _saved;

        public void Save()
        {
            _saved++;
        }

        public void Purge() { }
    }

    public class Orphan { }
}
`})

	assert.Equal(t, []string{"Shop.Orphan", "Shop.Repository.Purge()"}, unusedNames(c))
}

func TestUnusedInitializerReferences(t *testing.T) {
	c := compile(t, map[string]string{"Counter.cs": `namespace Shop
{
    public class Counter
    {
        private const int Max = 5;
        private static int Limit = 10;
        private int count;
        private int ceiling = Max;
        private int spare;

        public static void Main()
        {
            var c = new Counter();
            c.Report();
        }

        public void Report()
        {
            var v = count;
            int m = Limit;
            System.Console.WriteLine(v + m + ceiling);
        }
    }
}
`})

	unused := unusedNames(c)
	assert.NotContains(t, unused, "Shop.Counter.count")
	assert.NotContains(t, unused, "Shop.Counter.Limit")
	assert.NotContains(t, unused, "Shop.Counter.Max")
	assert.NotContains(t, unused, "Shop.Counter.ceiling")
	assert.Contains(t, unused, "Shop.Counter.spare")
}

func TestUnusedMethodGroup(t *testing.T) {
	c := compile(t, map[string]string{"Calc.cs": `using System;

namespace Shop
{
    public class Calc
    {
        private static int Twice(int x) { return x * 2; }
        private static int Thrice(int x) { return x * 3; }

        public static void Main()
        {
            Func<int, int> f = Twice;
            Console.WriteLine(f(1));
        }
    }
}
`})

	unused := unusedNames(c)
	assert.NotContains(t, unused, "Shop.Calc.Twice(int)")
	assert.Contains(t, unused, "Shop.Calc.Thrice(int)")
}

func TestBindNestedInGenericType(t *testing.T) {
	c := compile(t, map[string]string{"Box.cs": `namespace Shop
{
    public class Box<T>
    {
        public class Item
        {
            public void Unused() { }
        }
    }
}
`})

	box := declared(t, c, "Shop.Box")
	item := declared(t, c, "Shop.Box.Item")
	assert.NotEqual(t, box.ID, item.ID)
	assert.Equal(t, box.ID, item.ContainingType)
	assert.Equal(t, "Shop.Box.Item", item.DisplayName)

	unused := unusedNames(c)
	assert.Contains(t, unused, "Shop.Box.Item.Unused()")
	assert.NotContains(t, unused, "Shop.Box.Unused()")
}

func TestUnusedInterfaceAndOverrideExclusions(t *testing.T) {
	c := compile(t, map[string]string{"Svc.cs": `using System;

public interface IRunner { void Run(); }

public class Runner : IRunner, IDisposable
{
    public void Run() { }
    public void Dispose() { }
    public override string ToString() { return "runner"; }
}

public static class Entry
{
    public static void Main()
    {
        IRunner r = new Runner();
        r.Run();
    }
}
`})

	unused := unusedNames(c)
	assert.NotContains(t, unused, "Runner.Run()")
	assert.NotContains(t, unused, "Runner.Dispose()")
	assert.NotContains(t, unused, "Runner.ToString()")
	assert.NotContains(t, unused, "Runner")
}

func TestLoadUsesCache(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "A.cs")
	require.NoError(t, os.WriteFile(path, []byte("class A { void M() { } }"), 0o644))

	store := &memoryCache{entries: make(map[string]cached)}
	opts := LoadOptions{Workers: 1, Cache: store}

	first, errs := Load(context.Background(), []string{path}, opts)
	assert.Nil(t, errs)
	assert.Equal(t, 1, first.FileCount())
	assert.Equal(t, 0, store.hits)
	assert.Len(t, store.entries, 1)

	second, errs := Load(context.Background(), []string{path}, opts)
	assert.Nil(t, errs)
	assert.Equal(t, 1, store.hits)
	assert.Equal(t, len(first.Declared()), len(second.Declared()))

	_, errs = Load(context.Background(), []string{filepath.Join(dir, "missing.cs")}, opts)
	require.NotNil(t, errs)
	assert.Equal(t, 1, errs.Len())
}

type cached struct {
	hash string
	data []byte
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]cached
	hits    int
}

func (m *memoryCache) GetWithHash(key, hash string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok || e.hash != hash {
		return nil, false
	}
	m.hits++
	return e.data, true
}

func (m *memoryCache) SetWithHash(key, hash string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = cached{hash: hash, data: data}
	return nil
}
