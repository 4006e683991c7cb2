package usage

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/panbanda/dormant/pkg/symbol"
)

const idSetShards = 16

// IDSet is a concurrent insert-only set of symbol IDs backed by roaring
// bitmaps. IDs are spread across shards by their low bits so writers on
// neighbouring IDs rarely contend.
type IDSet struct {
	shards [idSetShards]idShard
}

type idShard struct {
	mu     sync.RWMutex
	bitmap *roaring.Bitmap
}

// NewIDSet creates an empty set.
func NewIDSet() *IDSet {
	s := &IDSet{}
	for i := range s.shards {
		s.shards[i].bitmap = roaring.New()
	}
	return s
}

func (s *IDSet) shard(id symbol.ID) *idShard {
	return &s.shards[uint32(id)%idSetShards]
}

// Add inserts id and reports whether it was absent.
func (s *IDSet) Add(id symbol.ID) bool {
	sh := s.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.bitmap.CheckedAdd(uint32(id))
}

// Contains reports whether id is in the set.
func (s *IDSet) Contains(id symbol.ID) bool {
	sh := s.shard(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return sh.bitmap.Contains(uint32(id))
}

// Len returns the number of IDs in the set.
func (s *IDSet) Len() uint64 {
	var n uint64
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		n += sh.bitmap.GetCardinality()
		sh.mu.RUnlock()
	}
	return n
}

// IDs returns a snapshot of the set in ascending order.
func (s *IDSet) IDs() []symbol.ID {
	merged := roaring.New()
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		merged.Or(sh.bitmap)
		sh.mu.RUnlock()
	}
	out := make([]symbol.ID, 0, merged.GetCardinality())
	it := merged.Iterator()
	for it.HasNext() {
		out = append(out, symbol.ID(it.Next()))
	}
	return out
}

// SymbolTracker records declarations and references for one analysis pass.
// All methods are safe for concurrent use.
type SymbolTracker interface {
	RecordDeclaredSymbol(sym *symbol.Symbol)
	RecordReferencedSymbol(sym *symbol.Symbol)
	IsSymbolReferenced(sym *symbol.Symbol) bool
	UnreferencedDeclaredSymbols() []*symbol.Symbol
}

// ConcurrentTracker is the default SymbolTracker.
type ConcurrentTracker struct {
	symbols    symbol.Lookup
	declared   *IDSet
	referenced *IDSet
}

// NewConcurrentTracker creates a tracker resolving relations through symbols.
func NewConcurrentTracker(symbols symbol.Lookup) *ConcurrentTracker {
	return &ConcurrentTracker{
		symbols:    symbols,
		declared:   NewIDSet(),
		referenced: NewIDSet(),
	}
}

// RecordDeclaredSymbol implements SymbolTracker.
func (t *ConcurrentTracker) RecordDeclaredSymbol(sym *symbol.Symbol) {
	if sym == nil || !sym.ID.Valid() {
		return
	}
	t.declared.Add(sym.ID)
}

// RecordReferencedSymbol also marks the containing type as referenced.
func (t *ConcurrentTracker) RecordReferencedSymbol(sym *symbol.Symbol) {
	if sym == nil || !sym.ID.Valid() {
		return
	}
	t.referenced.Add(sym.ID)
	if sym.ContainingType.Valid() {
		t.referenced.Add(sym.ContainingType)
	}
}

// IsSymbolReferenced reports direct references, references to a type's
// direct members, and references to any method a method overrides.
func (t *ConcurrentTracker) IsSymbolReferenced(sym *symbol.Symbol) bool {
	if sym == nil || !sym.ID.Valid() {
		return false
	}
	if t.referenced.Contains(sym.ID) {
		return true
	}

	switch sym.Kind {
	case symbol.KindType:
		for _, m := range sym.Members {
			if t.referenced.Contains(m) {
				return true
			}
		}
	case symbol.KindMethod:
		seen := map[symbol.ID]bool{sym.ID: true}
		for id := sym.OverriddenSymbol; id.Valid() && !seen[id]; {
			if t.referenced.Contains(id) {
				return true
			}
			seen[id] = true
			base := t.symbols.Symbol(id)
			if base == nil {
				break
			}
			id = base.OverriddenSymbol
		}
	}
	return false
}

// UnreferencedDeclaredSymbols returns declared symbols in ID order.
func (t *ConcurrentTracker) UnreferencedDeclaredSymbols() []*symbol.Symbol {
	var out []*symbol.Symbol
	for _, id := range t.declared.IDs() {
		sym := t.symbols.Symbol(id)
		if sym == nil {
			continue
		}
		if !t.IsSymbolReferenced(sym) {
			out = append(out, sym)
		}
	}
	return out
}

// DeclaredCount returns the number of distinct declared symbols.
func (t *ConcurrentTracker) DeclaredCount() uint64 {
	return t.declared.Len()
}

// ReferencedCount returns the number of distinct referenced symbols.
func (t *ConcurrentTracker) ReferencedCount() uint64 {
	return t.referenced.Len()
}
