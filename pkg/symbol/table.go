package symbol

import (
	"fmt"
	"sync"

	"fortio.org/safecast"
)

// Table is a concurrent symbol store. IDs are dense and start at 1.
type Table struct {
	mu      sync.RWMutex
	symbols []*Symbol
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{}
}

// Add stores sym, assigns its ID and returns it.
func (t *Table) Add(sym *Symbol) ID {
	t.mu.Lock()
	defer t.mu.Unlock()

	next, err := safecast.Conv[uint32](len(t.symbols) + 1)
	if err != nil {
		panic(fmt.Sprintf("symbol table overflow: %v", err))
	}
	sym.ID = ID(next)
	t.symbols = append(t.symbols, sym)
	return sym.ID
}

// Symbol implements Lookup.
func (t *Table) Symbol(id ID) *Symbol {
	if id == NoID {
		return nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	idx := int(id) - 1
	if idx >= len(t.symbols) {
		return nil
	}
	return t.symbols[idx]
}

// Len returns the number of stored symbols.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.symbols)
}

// All returns a snapshot of every stored symbol in ID order.
func (t *Table) All() []*Symbol {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]*Symbol, len(t.symbols))
	copy(out, t.symbols)
	return out
}

// Resolve maps ids to symbols, skipping any that do not resolve.
func Resolve(l Lookup, ids []ID) []*Symbol {
	out := make([]*Symbol, 0, len(ids))
	for _, id := range ids {
		if s := l.Symbol(id); s != nil {
			out = append(out, s)
		}
	}
	return out
}
