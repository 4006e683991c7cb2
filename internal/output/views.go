package output

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/panbanda/dormant/pkg/analyzer/usage"
	"github.com/panbanda/dormant/pkg/models"
)

var findingHeaders = []string{"Line", "Col", "Kind", "Symbol"}

// UnusedView renders an unused-symbol report grouped by file.
type UnusedView struct {
	Report *models.UnusedReport
}

func (v *UnusedView) RenderData() any {
	return v.Report
}

func findingRows(findings []usage.Finding) [][]string {
	rows := make([][]string, 0, len(findings))
	for _, f := range findings {
		rows = append(rows, []string{
			strconv.FormatUint(uint64(f.Location.StartLine), 10),
			strconv.FormatUint(uint64(f.Location.StartColumn), 10),
			f.Kind.String(),
			f.SymbolName,
		})
	}
	return rows
}

func (v *UnusedView) RenderText(w io.Writer, colored bool) error {
	r := v.Report
	heading(w, "Unused Symbols", colored, color.Bold, color.FgCyan)

	if len(r.Findings) == 0 {
		if colored {
			color.New(color.FgGreen).Fprintln(w, "No unused symbols found.")
		} else {
			fmt.Fprintln(w, "No unused symbols found.")
		}
		fmt.Fprintln(w)
	}

	paths, groups := models.GroupByFile(r.Findings)
	for _, path := range paths {
		title := fmt.Sprintf("%s (%d)", path, len(groups[path]))
		if colored {
			color.New(color.Bold).Fprintln(w, title)
		} else {
			fmt.Fprintln(w, title)
		}
		t := &Table{Headers: findingHeaders, Rows: findingRows(groups[path])}
		if err := t.RenderText(w, colored); err != nil {
			return err
		}
	}

	return renderSummaryText(w, r.Summary, colored)
}

func renderSummaryText(w io.Writer, s models.UnusedSummary, colored bool) error {
	rows := [][]string{
		{"Files analyzed", strconv.Itoa(s.FilesAnalyzed)},
		{"Files failed", strconv.Itoa(s.FilesFailed)},
		{"Symbols declared", strconv.FormatInt(s.SymbolsDeclared, 10)},
		{"Symbols tracked", strconv.FormatInt(s.SymbolsTracked, 10)},
		{"Symbols excluded", strconv.FormatInt(s.SymbolsExcluded, 10)},
		{"Operations resolved", fmt.Sprintf("%d / %d", s.OperationsResolved, s.OperationsObserved)},
		{"Unused", strconv.Itoa(s.TotalUnused)},
		{"Unused per file", fmt.Sprintf("%.2f ± %.2f", s.MeanPerFile, s.StdDevPerFile)},
	}
	for _, k := range sortedKeys(s.UnusedByKind) {
		rows = append(rows, []string{"  " + k, strconv.Itoa(s.UnusedByKind[k])})
	}
	summary := &Table{Title: "Summary", Headers: []string{"Metric", "Value"}, Rows: rows}
	if err := summary.RenderText(w, colored); err != nil {
		return err
	}

	if len(s.Hotspots) == 0 {
		return nil
	}
	hot := &Table{Title: "Hotspots", Headers: []string{"File", "Unused", "Declared", "Ratio"}}
	for _, h := range s.Hotspots {
		hot.Rows = append(hot.Rows, []string{
			h.Path,
			strconv.Itoa(h.Unused),
			strconv.Itoa(h.Declared),
			strconv.FormatFloat(h.Ratio, 'f', 2, 64),
		})
	}
	return hot.RenderText(w, colored)
}

func (v *UnusedView) RenderMarkdown(w io.Writer) error {
	r := v.Report
	s := r.Summary
	fmt.Fprintf(w, "# Unused Symbols\n\n")
	fmt.Fprintf(w, "- **Files analyzed:** %d (%d failed)\n", s.FilesAnalyzed, s.FilesFailed)
	fmt.Fprintf(w, "- **Symbols tracked:** %d of %d declared (%d excluded)\n", s.SymbolsTracked, s.SymbolsDeclared, s.SymbolsExcluded)
	fmt.Fprintf(w, "- **Unused:** %d\n", s.TotalUnused)
	if len(s.UnusedByKind) > 0 {
		parts := make([]string, 0, len(s.UnusedByKind))
		for _, k := range sortedKeys(s.UnusedByKind) {
			parts = append(parts, fmt.Sprintf("%s %d", k, s.UnusedByKind[k]))
		}
		fmt.Fprintf(w, "- **By kind:** %s\n", strings.Join(parts, ", "))
	}
	fmt.Fprintln(w)

	paths, groups := models.GroupByFile(r.Findings)
	for _, path := range paths {
		fmt.Fprintf(w, "### `%s`\n\n", path)
		writeMarkdownTable(w, findingHeaders, findingRows(groups[path]), nil)
		fmt.Fprintln(w)
	}

	if len(s.Hotspots) > 0 {
		fmt.Fprintf(w, "## Hotspots\n\n")
		rows := make([][]string, 0, len(s.Hotspots))
		for _, h := range s.Hotspots {
			rows = append(rows, []string{h.Path, strconv.Itoa(h.Unused), strconv.Itoa(h.Declared)})
		}
		writeMarkdownTable(w, []string{"File", "Unused", "Declared"}, rows, nil)
		fmt.Fprintln(w)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RulesView renders the effective exclusion rules.
type RulesView struct {
	Rules      usage.Rules      `json:"rules" toon:"rules"`
	Reasons    []usage.Reason   `json:"reasons" toon:"reasons"`
	Descriptor usage.Descriptor `json:"descriptor" toon:"descriptor"`
}

// NewRulesView describes rules with the built-in reason order and
// descriptor.
func NewRulesView(rules usage.Rules) *RulesView {
	return &RulesView{Rules: rules, Reasons: usage.Reasons, Descriptor: usage.UnusedSymbol}
}

func (v *RulesView) RenderData() any {
	return v
}

func (v *RulesView) sections() []Section {
	return []Section{
		{Title: "Evaluation order", Content: joinReasons(v.Reasons)},
		{Title: "Controller base types", Content: bullets(v.Rules.ControllerBaseTypes)},
		{Title: "Controller attributes", Content: bullets(v.Rules.ControllerAttributes)},
		{Title: "Controller name suffix", Content: v.Rules.ControllerSuffix},
		{Title: "Usage markers", Content: bullets(v.Rules.UsageMarkers)},
		{Title: "Attribute base type", Content: v.Rules.AttributeBaseType},
	}
}

func (v *RulesView) root() *Section {
	d := v.Descriptor
	return &Section{
		Title:    fmt.Sprintf("%s: %s", d.ID, d.Title),
		Content:  fmt.Sprintf("%s\nSeverity: %s, category: %s", d.Description, d.Severity, d.Category),
		Sections: v.sections(),
	}
}

func (v *RulesView) RenderText(w io.Writer, colored bool) error {
	return v.root().RenderText(w, colored)
}

func (v *RulesView) RenderMarkdown(w io.Writer) error {
	return v.root().RenderMarkdown(w)
}

func joinReasons(reasons []usage.Reason) string {
	lines := make([]string, len(reasons))
	for i, r := range reasons {
		lines[i] = fmt.Sprintf("%d. %s", i+1, r)
	}
	return strings.Join(lines, "\n")
}

func bullets(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = "- " + it
	}
	return strings.Join(lines, "\n")
}
