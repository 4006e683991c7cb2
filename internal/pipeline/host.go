// Package pipeline is the host side of an analysis: it owns the callback
// registrations for one compilation and dispatches declared symbols and
// operations to them on a bounded worker pool.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/panbanda/dormant/pkg/analyzer/usage"
	"github.com/panbanda/dormant/pkg/operation"
	"github.com/panbanda/dormant/pkg/symbol"
)

// DefaultBatchSize is the number of callbacks one pool task runs.
const DefaultBatchSize = 256

// Source is a bound compilation that can enumerate what it declares and
// executes.
type Source interface {
	usage.Compilation
	Declared() []*symbol.Symbol
	Operations() []operation.Operation
}

type symbolAction struct {
	fn    func(usage.SymbolContext)
	kinds map[symbol.Kind]bool
}

type operationAction struct {
	fn    func(usage.OperationContext)
	kinds map[operation.Kind]bool
}

// Host implements usage.CompilationStartContext for one compilation. Actions
// must be registered before Run.
type Host struct {
	source    Source
	workers   int
	batchSize int
	logger    *slog.Logger

	mu               sync.Mutex
	symbolActions    []symbolAction
	operationActions []operationAction
	endActions       []func(usage.CompilationEndContext)
}

var _ usage.CompilationStartContext = (*Host)(nil)

// Option is a functional option for configuring Host.
type Option func(*Host)

// WithWorkers bounds the number of concurrent callback batches. Zero or
// negative selects NumCPU.
func WithWorkers(n int) Option {
	return func(h *Host) {
		if n > 0 {
			h.workers = n
		}
	}
}

// WithBatchSize sets how many callbacks run per pool task.
func WithBatchSize(n int) Option {
	return func(h *Host) {
		if n > 0 {
			h.batchSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Host) {
		if l != nil {
			h.logger = l
		}
	}
}

// New creates a host over source.
func New(source Source, opts ...Option) *Host {
	h := &Host{
		source:    source,
		workers:   runtime.NumCPU(),
		batchSize: DefaultBatchSize,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Compilation implements usage.CompilationStartContext.
func (h *Host) Compilation() usage.Compilation {
	return h.source
}

// RegisterSymbolAction implements usage.CompilationStartContext. With no
// kinds the action sees every symbol.
func (h *Host) RegisterSymbolAction(action func(usage.SymbolContext), kinds ...symbol.Kind) {
	set := make(map[symbol.Kind]bool, len(kinds))
	for _, k := range kinds {
		set[k] = true
	}
	h.mu.Lock()
	h.symbolActions = append(h.symbolActions, symbolAction{fn: action, kinds: set})
	h.mu.Unlock()
}

// RegisterOperationAction implements usage.CompilationStartContext. With no
// kinds the action sees every operation.
func (h *Host) RegisterOperationAction(action func(usage.OperationContext), kinds ...operation.Kind) {
	set := make(map[operation.Kind]bool, len(kinds))
	for _, k := range kinds {
		set[k] = true
	}
	h.mu.Lock()
	h.operationActions = append(h.operationActions, operationAction{fn: action, kinds: set})
	h.mu.Unlock()
}

// RegisterCompilationEndAction implements usage.CompilationStartContext.
func (h *Host) RegisterCompilationEndAction(action func(usage.CompilationEndContext)) {
	h.mu.Lock()
	h.endActions = append(h.endActions, action)
	h.mu.Unlock()
}

// Run dispatches every declared symbol and operation to the matching
// actions, waits for them, then runs the end actions and returns what they
// reported. A cancelled context discards the pass.
func (h *Host) Run(ctx context.Context) ([]usage.Finding, error) {
	h.mu.Lock()
	symbolActions := append([]symbolAction(nil), h.symbolActions...)
	opActions := append([]operationAction(nil), h.operationActions...)
	endActions := append([]func(usage.CompilationEndContext){}, h.endActions...)
	h.mu.Unlock()

	symbols := h.source.Declared()
	ops := h.source.Operations()

	p := pool.New().WithMaxGoroutines(h.workers).WithContext(ctx)
	if len(symbolActions) > 0 {
		for start := 0; start < len(symbols); start += h.batchSize {
			batch := symbols[start:min(start+h.batchSize, len(symbols))]
			p.Go(func(ctx context.Context) error {
				for _, sym := range batch {
					if err := ctx.Err(); err != nil {
						return err
					}
					sc := usage.SymbolContext{Symbol: sym, Compilation: h.source}
					for _, a := range symbolActions {
						if len(a.kinds) == 0 || a.kinds[sym.Kind] {
							a.fn(sc)
						}
					}
				}
				return nil
			})
		}
	}
	if len(opActions) > 0 {
		for start := 0; start < len(ops); start += h.batchSize {
			batch := ops[start:min(start+h.batchSize, len(ops))]
			p.Go(func(ctx context.Context) error {
				for _, op := range batch {
					if err := ctx.Err(); err != nil {
						return err
					}
					oc := usage.OperationContext{Operation: op, Compilation: h.source}
					for _, a := range opActions {
						if len(a.kinds) == 0 || a.kinds[op.Kind] {
							a.fn(oc)
						}
					}
				}
				return nil
			})
		}
	}
	if err := p.Wait(); err != nil {
		return nil, fmt.Errorf("analysis cancelled: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("analysis cancelled: %w", err)
	}

	var (
		mu       sync.Mutex
		findings []usage.Finding
	)
	end := usage.CompilationEndContext{
		Compilation: h.source,
		Report: func(f usage.Finding) {
			mu.Lock()
			findings = append(findings, f)
			mu.Unlock()
		},
	}
	for _, a := range endActions {
		a(end)
	}

	h.logger.Debug("pipeline complete",
		"symbols", len(symbols),
		"operations", len(ops),
		"findings", len(findings))
	return findings, nil
}
