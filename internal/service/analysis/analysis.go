// Package analysis runs the unused-symbol analysis over a set of C# files.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/panbanda/dormant/internal/fileproc"
	"github.com/panbanda/dormant/internal/frontend/csharp"
	"github.com/panbanda/dormant/internal/pipeline"
	"github.com/panbanda/dormant/pkg/analyzer/usage"
	"github.com/panbanda/dormant/pkg/config"
	"github.com/panbanda/dormant/pkg/models"
	"github.com/panbanda/dormant/pkg/symbol"
)

// ErrNoSourceFiles is returned when there is nothing to analyze.
var ErrNoSourceFiles = errors.New("no C# source files found")

// Service provides analysis operations.
type Service struct {
	config *config.Config
	logger *slog.Logger
	cache  csharp.Cache
}

// Option configures a Service.
type Option func(*Service)

// WithConfig sets the configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithCache sets the extracted-facts cache. A nil cache disables caching.
func WithCache(c csharp.Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// New creates a new analysis service.
func New(opts ...Option) *Service {
	s := &Service{}
	for _, opt := range opts {
		opt(s)
	}
	if s.config == nil {
		s.config = config.DefaultConfig()
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s
}

// Rules returns the effective exclusion rules.
func (s *Service) Rules() usage.Rules {
	return s.config.UsageRules()
}

// AnalyzeOptions configures an unused-symbol analysis.
type AnalyzeOptions struct {
	Workers    int
	Kinds      []symbol.Kind
	OnProgress fileproc.ProgressFunc
}

// AnalyzeUnused loads files into one compilation, runs a single pass over it
// and returns the report. Files that fail to load are counted and skipped.
func (s *Service) AnalyzeUnused(ctx context.Context, files []string, opts AnalyzeOptions) (*models.UnusedReport, error) {
	if len(files) == 0 {
		return nil, ErrNoSourceFiles
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = s.config.Analysis.Workers
	}
	kinds := opts.Kinds
	if len(kinds) == 0 {
		var err error
		if kinds, err = ParseKinds(s.config.Analysis.Kinds); err != nil {
			return nil, err
		}
	}

	comp, errs := csharp.Load(ctx, files, csharp.LoadOptions{
		Workers:    workers,
		Cache:      s.cache,
		Logger:     s.logger,
		OnProgress: opts.OnProgress,
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	host := pipeline.New(comp, pipeline.WithWorkers(workers), pipeline.WithLogger(s.logger))
	analyzer := usage.New(usage.WithRules(s.Rules()), usage.WithLogger(s.logger))
	pass := analyzer.Initialize(host)

	findings, err := host.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("analysis failed: %w", err)
	}

	report := models.NewUnusedReport(models.FilterKinds(findings, kinds), pass.Stats())
	report.Summary.FilesAnalyzed = comp.FileCount()
	report.Summary.FilesFailed = errs.Len()
	report.Summary.ComputeDensity(declaredByFile(comp.Declared()))

	s.logger.Info("analysis complete",
		"files", report.Summary.FilesAnalyzed,
		"failed", report.Summary.FilesFailed,
		"unused", report.Summary.TotalUnused)
	return report, nil
}

// declaredByFile counts tracked source symbols per declaring file.
func declaredByFile(symbols []*symbol.Symbol) map[string]int {
	tracked := make(map[symbol.Kind]bool, len(symbol.TrackedKinds))
	for _, k := range symbol.TrackedKinds {
		tracked[k] = true
	}

	counts := make(map[string]int)
	for _, sym := range symbols {
		if !tracked[sym.Kind] {
			continue
		}
		if loc, ok := sym.FirstSourceLocation(); ok {
			counts[loc.Path]++
		}
	}
	return counts
}

// ParseKinds parses kind names. Empty input selects every tracked kind.
func ParseKinds(names []string) ([]symbol.Kind, error) {
	if len(names) == 0 {
		return nil, nil
	}
	kinds := make([]symbol.Kind, 0, len(names))
	for _, name := range names {
		k, ok := symbol.ParseKind(name)
		if !ok {
			return nil, fmt.Errorf("unknown symbol kind %q", name)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}
