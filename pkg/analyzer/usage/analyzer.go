// Package usage implements the unused-symbol analysis engine: exclusion
// rules, the concurrent usage tracker and the glue that connects them to a
// host pipeline.
package usage

import (
	"log/slog"
	"sync/atomic"

	"github.com/panbanda/dormant/pkg/operation"
	"github.com/panbanda/dormant/pkg/symbol"
)

// SymbolContext is passed to symbol actions.
type SymbolContext struct {
	Symbol      *symbol.Symbol
	Compilation Compilation
}

// OperationContext is passed to operation actions.
type OperationContext struct {
	Operation   operation.Operation
	Compilation Compilation
}

// CompilationEndContext is passed to end actions.
type CompilationEndContext struct {
	Compilation Compilation
	Report      func(Finding)
}

// CompilationStartContext is the host's callback registration API for one
// compilation. Symbol and operation actions may be invoked concurrently; end
// actions run once after all of them have returned.
type CompilationStartContext interface {
	Compilation() Compilation
	RegisterSymbolAction(action func(SymbolContext), kinds ...symbol.Kind)
	RegisterOperationAction(action func(OperationContext), kinds ...operation.Kind)
	RegisterCompilationEndAction(action func(CompilationEndContext))
}

// TrackerFactory creates the tracker for one pass.
type TrackerFactory func(symbols symbol.Lookup) SymbolTracker

// Analyzer reports declared symbols that nothing references.
type Analyzer struct {
	rules      Rules
	descriptor Descriptor
	newTracker TrackerFactory
	logger     *slog.Logger
}

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithRules replaces the exclusion rule lists.
func WithRules(rules Rules) Option {
	return func(a *Analyzer) {
		a.rules = rules
	}
}

// WithDescriptor replaces the reported diagnostic descriptor.
func WithDescriptor(d Descriptor) Option {
	return func(a *Analyzer) {
		a.descriptor = d
	}
}

// WithTrackerFactory replaces the per-pass tracker constructor.
func WithTrackerFactory(f TrackerFactory) Option {
	return func(a *Analyzer) {
		if f != nil {
			a.newTracker = f
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates an Analyzer with default rules.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		rules:      DefaultRules(),
		descriptor: UnusedSymbol,
		newTracker: func(symbols symbol.Lookup) SymbolTracker {
			return NewConcurrentTracker(symbols)
		},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Rules returns the configured rule lists.
func (a *Analyzer) Rules() Rules {
	return a.rules
}

// Descriptor returns the reported diagnostic descriptor.
func (a *Analyzer) Descriptor() Descriptor {
	return a.descriptor
}

// Begin starts a pass over comp. No state is shared between passes.
func (a *Analyzer) Begin(comp Compilation) *Pass {
	symbols := comp.Symbols()

	dispatcher, ok := comp.(InterfaceDispatcher)
	if !ok {
		dispatcher = NewSignatureDispatcher(symbols)
	}

	p := &Pass{
		comp:       comp,
		symbols:    symbols,
		engine:     NewCompositeRuleEngine(a.rules, NewTypeInheritanceChecker(symbols), dispatcher),
		tracker:    a.newTracker(symbols),
		descriptor: a.descriptor,
		logger:     a.logger,
		excluded:   make(map[Reason]*atomic.Int64, len(Reasons)),
	}
	for _, r := range Reasons {
		p.excluded[r] = new(atomic.Int64)
	}
	return p
}

// Initialize registers the analyzer's actions on a host compilation.
func (a *Analyzer) Initialize(ctx CompilationStartContext) *Pass {
	p := a.Begin(ctx.Compilation())

	ctx.RegisterSymbolAction(func(sc SymbolContext) {
		p.SymbolDeclared(sc.Symbol)
	}, symbol.TrackedKinds...)

	ctx.RegisterOperationAction(func(oc OperationContext) {
		p.OperationObserved(oc.Operation)
	}, operation.TrackedKinds...)

	ctx.RegisterCompilationEndAction(func(ec CompilationEndContext) {
		for _, f := range p.End() {
			ec.Report(f)
		}
	})
	return p
}

// Pass holds the state of one analysis over one compilation.
type Pass struct {
	comp       Compilation
	symbols    symbol.Lookup
	engine     *CompositeRuleEngine
	tracker    SymbolTracker
	descriptor Descriptor
	logger     *slog.Logger

	declared   atomic.Int64
	tracked    atomic.Int64
	operations atomic.Int64
	resolved   atomic.Int64
	unlocated  atomic.Int64
	excluded   map[Reason]*atomic.Int64
}

// SymbolDeclared handles one declared symbol. Symbols of untracked kinds
// are ignored.
func (p *Pass) SymbolDeclared(sym *symbol.Symbol) {
	if sym != nil && !isTrackedKind(sym.Kind) {
		return
	}
	p.declared.Add(1)

	if reason := p.engine.ExclusionReason(sym, p.comp); reason != ReasonNone {
		p.excluded[reason].Add(1)
		return
	}
	p.tracked.Add(1)
	p.tracker.RecordDeclaredSymbol(sym)
}

// OperationObserved handles one operation.
func (p *Pass) OperationObserved(op operation.Operation) {
	p.operations.Add(1)

	id, ok := ExtractTargetSymbol(op)
	if !ok {
		return
	}
	target := p.symbols.Symbol(id)
	if target == nil {
		return
	}
	p.resolved.Add(1)
	p.tracker.RecordReferencedSymbol(target)
}

// End returns one finding per unreferenced symbol that has a location in
// source. Call it only after every SymbolDeclared and OperationObserved call
// has returned.
func (p *Pass) End() []Finding {
	var findings []Finding
	for _, sym := range p.tracker.UnreferencedDeclaredSymbols() {
		loc, ok := sym.FirstSourceLocation()
		if !ok {
			p.unlocated.Add(1)
			continue
		}
		findings = append(findings, newFinding(p.descriptor, sym, loc))
	}
	p.logger.Debug("usage pass complete",
		"declared", p.declared.Load(),
		"tracked", p.tracked.Load(),
		"operations", p.operations.Load(),
		"findings", len(findings))
	return findings
}

// ExclusionReason exposes the rule engine for diagnostics.
func (p *Pass) ExclusionReason(sym *symbol.Symbol) Reason {
	return p.engine.ExclusionReason(sym, p.comp)
}

// PassStats summarizes a pass.
type PassStats struct {
	SymbolsDeclared    int64            `json:"symbols_declared" toon:"symbols_declared"`
	SymbolsTracked     int64            `json:"symbols_tracked" toon:"symbols_tracked"`
	SymbolsExcluded    int64            `json:"symbols_excluded" toon:"symbols_excluded"`
	ExcludedByReason   map[Reason]int64 `json:"excluded_by_reason" toon:"excluded_by_reason"`
	OperationsObserved int64            `json:"operations_observed" toon:"operations_observed"`
	OperationsResolved int64            `json:"operations_resolved" toon:"operations_resolved"`
	Unlocated          int64            `json:"unlocated" toon:"unlocated"`
}

// Stats returns a snapshot of the pass counters.
func (p *Pass) Stats() PassStats {
	s := PassStats{
		SymbolsDeclared:    p.declared.Load(),
		SymbolsTracked:     p.tracked.Load(),
		ExcludedByReason:   make(map[Reason]int64),
		OperationsObserved: p.operations.Load(),
		OperationsResolved: p.resolved.Load(),
		Unlocated:          p.unlocated.Load(),
	}
	for r, n := range p.excluded {
		if v := n.Load(); v > 0 {
			s.ExcludedByReason[r] = v
			s.SymbolsExcluded += v
		}
	}
	return s
}

func isTrackedKind(k symbol.Kind) bool {
	for _, t := range symbol.TrackedKinds {
		if k == t {
			return true
		}
	}
	return false
}
