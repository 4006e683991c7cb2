package models

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/panbanda/dormant/pkg/analyzer/usage"
	"github.com/panbanda/dormant/pkg/symbol"
)

// UnusedReport is the result of one unused-symbol analysis.
type UnusedReport struct {
	Findings []usage.Finding `json:"findings" toon:"findings"`
	Summary  UnusedSummary   `json:"summary" toon:"summary"`
}

// UnusedSummary provides aggregate statistics.
type UnusedSummary struct {
	FilesAnalyzed      int              `json:"files_analyzed" toon:"files_analyzed"`
	FilesFailed        int              `json:"files_failed" toon:"files_failed"`
	SymbolsDeclared    int64            `json:"symbols_declared" toon:"symbols_declared"`
	SymbolsTracked     int64            `json:"symbols_tracked" toon:"symbols_tracked"`
	SymbolsExcluded    int64            `json:"symbols_excluded" toon:"symbols_excluded"`
	ExcludedByReason   map[string]int64 `json:"excluded_by_reason" toon:"excluded_by_reason"`
	OperationsObserved int64            `json:"operations_observed" toon:"operations_observed"`
	OperationsResolved int64            `json:"operations_resolved" toon:"operations_resolved"`
	TotalUnused        int              `json:"total_unused" toon:"total_unused"`
	UnusedByKind       map[string]int   `json:"unused_by_kind" toon:"unused_by_kind"`
	UnusedByFile       map[string]int   `json:"unused_by_file" toon:"unused_by_file"`
	MeanPerFile        float64          `json:"mean_per_file" toon:"mean_per_file"`
	StdDevPerFile      float64          `json:"stddev_per_file" toon:"stddev_per_file"`
	Hotspots           []FileHotspot    `json:"hotspots,omitempty" toon:"hotspots,omitempty"`
}

// FileHotspot is a file whose unused count is more than one standard
// deviation above the mean.
type FileHotspot struct {
	Path     string  `json:"path" toon:"path"`
	Unused   int     `json:"unused" toon:"unused"`
	Declared int     `json:"declared" toon:"declared"`
	Ratio    float64 `json:"ratio" toon:"ratio"`
}

// NewUnusedReport builds a report from a pass's findings and counters.
// Findings are sorted.
func NewUnusedReport(findings []usage.Finding, stats usage.PassStats) *UnusedReport {
	sorted := append([]usage.Finding(nil), findings...)
	SortFindings(sorted)

	s := UnusedSummary{
		SymbolsDeclared:    stats.SymbolsDeclared,
		SymbolsTracked:     stats.SymbolsTracked,
		SymbolsExcluded:    stats.SymbolsExcluded,
		ExcludedByReason:   make(map[string]int64, len(stats.ExcludedByReason)),
		OperationsObserved: stats.OperationsObserved,
		OperationsResolved: stats.OperationsResolved,
		TotalUnused:        len(sorted),
		UnusedByKind:       make(map[string]int),
		UnusedByFile:       make(map[string]int),
	}
	for reason, n := range stats.ExcludedByReason {
		s.ExcludedByReason[reason.String()] = n
	}
	for _, f := range sorted {
		s.UnusedByKind[f.Kind.String()]++
		s.UnusedByFile[f.Location.Path]++
	}

	if sorted == nil {
		sorted = []usage.Finding{}
	}
	return &UnusedReport{Findings: sorted, Summary: s}
}

// ComputeDensity fills the per-file mean, standard deviation and hotspots.
// declaredByFile counts declared symbols per file; files with no findings
// count as zero.
func (s *UnusedSummary) ComputeDensity(declaredByFile map[string]int) {
	paths := make([]string, 0, len(declaredByFile))
	for p := range declaredByFile {
		paths = append(paths, p)
	}
	for p := range s.UnusedByFile {
		if _, ok := declaredByFile[p]; !ok {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return
	}
	sort.Strings(paths)

	counts := make([]float64, len(paths))
	for i, p := range paths {
		counts[i] = float64(s.UnusedByFile[p])
	}

	if len(counts) == 1 {
		s.MeanPerFile, s.StdDevPerFile = counts[0], 0
	} else {
		s.MeanPerFile, s.StdDevPerFile = stat.MeanStdDev(counts, nil)
	}

	threshold := s.MeanPerFile + s.StdDevPerFile
	s.Hotspots = nil
	for i, p := range paths {
		if s.StdDevPerFile == 0 || counts[i] <= threshold {
			continue
		}
		h := FileHotspot{Path: p, Unused: s.UnusedByFile[p], Declared: declaredByFile[p]}
		if h.Declared > 0 {
			h.Ratio = math.Round(float64(h.Unused)/float64(h.Declared)*1000) / 1000
		}
		s.Hotspots = append(s.Hotspots, h)
	}
	sort.SliceStable(s.Hotspots, func(i, j int) bool {
		return s.Hotspots[i].Unused > s.Hotspots[j].Unused
	})
}

// SortFindings orders findings by path, line, column, then name.
func SortFindings(findings []usage.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i].Location, findings[j].Location
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.StartLine != b.StartLine {
			return a.StartLine < b.StartLine
		}
		if a.StartColumn != b.StartColumn {
			return a.StartColumn < b.StartColumn
		}
		return findings[i].SymbolName < findings[j].SymbolName
	})
}

// FilterKinds keeps findings whose symbol kind is in kinds. An empty kinds
// keeps everything.
func FilterKinds(findings []usage.Finding, kinds []symbol.Kind) []usage.Finding {
	if len(kinds) == 0 {
		return findings
	}
	want := make(map[symbol.Kind]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}
	out := make([]usage.Finding, 0, len(findings))
	for _, f := range findings {
		if want[f.Kind] {
			out = append(out, f)
		}
	}
	return out
}

// GroupByFile groups sorted findings by path, preserving order.
func GroupByFile(findings []usage.Finding) ([]string, map[string][]usage.Finding) {
	var paths []string
	groups := make(map[string][]usage.Finding)
	for _, f := range findings {
		if _, ok := groups[f.Location.Path]; !ok {
			paths = append(paths, f.Location.Path)
		}
		groups[f.Location.Path] = append(groups[f.Location.Path], f)
	}
	return paths, groups
}
