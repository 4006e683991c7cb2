package mcpserver

// Tool descriptions with interpretation guidance for LLMs.

func describeFindUnused() string {
	return `Finds C# types, methods, properties, fields and events that are declared in source but never referenced (rule USG001).

USE WHEN:
- Cleaning up a C# codebase before a refactor
- Checking whether a member can be deleted safely
- Finding leftovers after a feature was removed
- Reviewing a pull request for code that nothing calls

INTERPRETING RESULTS:
- Each finding is a symbol with no observed reference anywhere in the analyzed files
- Analyze the whole solution: a symbol used only from a file you left out is reported
- Controllers, attribute types, overrides, interface implementations, entry points,
  compiler-generated members and members marked [UsedImplicitly] or similar are never reported
- Public and protected symbols are reported too; the analysis assumes no outside callers
- Reflection, serialization and dependency injection are invisible to the analysis;
  confirm before deleting members reached only that way
- A high unused count in one file (see hotspots) often marks a dead class or module

METRICS RETURNED:
- Findings: rule_id, severity, symbol, kind, location (path, start_line, start_column)
- Summary: files analyzed and failed, symbols declared, tracked and excluded,
  excluded_by_reason, total_unused, unused_by_kind, unused_by_file
- Density: mean and standard deviation of unused symbols per file, hotspot files`
}

func describeExplainRules() string {
	return `Lists the rules that keep a symbol out of unused-symbol reporting, in evaluation order, with the configured controller, marker and attribute settings.

USE WHEN:
- A symbol you expected to be reported is missing from find_unused_symbols
- A symbol is reported that a framework uses implicitly
- Deciding which usage marker attribute to add to dormant.toml

INTERPRETING RESULTS:
- Rules are checked in the listed order; the first match excludes the symbol
- Controller base types and attributes are fully qualified metadata names
- A usage marker matches any attribute whose simple name contains it
- Symbols matched by any rule are counted as excluded, never reported

METRICS RETURNED:
- reasons: ordered exclusion reasons
- rules: controller_base_types, controller_attributes, controller_suffix,
  usage_markers, attribute_base_type
- descriptor: rule id, title, message format, category, severity`
}
