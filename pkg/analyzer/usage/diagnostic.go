package usage

import (
	"strconv"
	"strings"

	"github.com/panbanda/dormant/pkg/symbol"
)

// Severity of a finding.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Descriptor describes a diagnostic rule.
type Descriptor struct {
	ID               string   `json:"id" toon:"id"`
	Title            string   `json:"title" toon:"title"`
	MessageFormat    string   `json:"message_format" toon:"message_format"`
	Description      string   `json:"description" toon:"description"`
	Category         string   `json:"category" toon:"category"`
	Severity         Severity `json:"severity" toon:"severity"`
	EnabledByDefault bool     `json:"enabled_by_default" toon:"enabled_by_default"`
}

// UnusedSymbol is the descriptor for declared but unreferenced symbols.
var UnusedSymbol = Descriptor{
	ID:            "USG001",
	Title:         "Symbol appears to be unused",
	MessageFormat: "'{0}' is declared but appears to be unused in this compilation",
	Description: "Detects declared symbols (types, methods, properties, fields, events) that are not " +
		"referenced anywhere in the analyzed compilation. Excludes MVC / Web API controllers and " +
		"common externally-invoked symbols.",
	Category:         "Usage",
	Severity:         SeverityWarning,
	EnabledByDefault: true,
}

// Format substitutes {0}, {1}, ... in the message format with args.
func (d Descriptor) Format(args ...string) string {
	msg := d.MessageFormat
	for i, arg := range args {
		msg = strings.ReplaceAll(msg, "{"+strconv.Itoa(i)+"}", arg)
	}
	return msg
}

// Finding is one reported unused symbol.
type Finding struct {
	RuleID     string          `json:"rule_id" toon:"rule_id"`
	Severity   Severity        `json:"severity" toon:"severity"`
	Symbol     symbol.ID       `json:"-" toon:"-"`
	SymbolName string          `json:"symbol" toon:"symbol"`
	Kind       symbol.Kind     `json:"kind" toon:"kind"`
	Location   symbol.Location `json:"location" toon:"location"`
	Message    string          `json:"message" toon:"message"`
}

func newFinding(d Descriptor, sym *symbol.Symbol, loc symbol.Location) Finding {
	name := sym.Display()
	return Finding{
		RuleID:     d.ID,
		Severity:   d.Severity,
		Symbol:     sym.ID,
		SymbolName: name,
		Kind:       sym.Kind,
		Location:   loc,
		Message:    d.Format(name),
	}
}
