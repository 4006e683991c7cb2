package mcpserver

import (
	"bytes"
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/panbanda/dormant/internal/output"
	"github.com/panbanda/dormant/internal/service/analysis"
	scannerSvc "github.com/panbanda/dormant/internal/service/scanner"
)

// FindUnusedInput is the input for find_unused_symbols.
type FindUnusedInput struct {
	Paths  []string `json:"paths,omitempty" jsonschema:"Files or directories to analyze together. Defaults to current directory if empty."`
	Kinds  []string `json:"kinds,omitempty" jsonschema:"Symbol kinds to report: type, method, property, field, event. Defaults to all."`
	Format string   `json:"format,omitempty" jsonschema:"Output format: toon (default), json, yaml, or markdown."`
}

// ExplainRulesInput is the input for explain_exclusion_rules.
type ExplainRulesInput struct {
	Format string `json:"format,omitempty" jsonschema:"Output format: toon (default), json, yaml, or markdown."`
}

func getPaths(paths []string) []string {
	if len(paths) == 0 {
		return []string{"."}
	}
	return paths
}

// getFormat maps a requested format to an output format. Plain text is not
// offered to clients, so anything unrecognized is TOON.
func getFormat(format string) output.Format {
	switch f := output.ParseFormat(format); f {
	case output.FormatJSON, output.FormatMarkdown, output.FormatYAML:
		return f
	default:
		return output.FormatTOON
	}
}

func formatOutput(data output.Renderable, format output.Format) (string, error) {
	var buf bytes.Buffer
	if err := output.NewWriterFormatter(format, &buf, false).Output(data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func toolResult(data output.Renderable, format output.Format) (*mcp.CallToolResult, any, error) {
	text, err := formatOutput(data, format)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}

func (s *Server) handleFindUnused(ctx context.Context, req *mcp.CallToolRequest, input FindUnusedInput) (*mcp.CallToolResult, any, error) {
	kinds, err := analysis.ParseKinds(input.Kinds)
	if err != nil {
		return toolError(err.Error())
	}

	scanResult, err := scannerSvc.New(scannerSvc.WithConfig(s.config)).ScanPaths(getPaths(input.Paths))
	if err != nil {
		return toolError(err.Error())
	}

	svc := analysis.New(
		analysis.WithConfig(s.config),
		analysis.WithLogger(s.logger),
		analysis.WithCache(s.cache),
	)
	report, err := svc.AnalyzeUnused(ctx, scanResult.Files, analysis.AnalyzeOptions{Kinds: kinds})
	if errors.Is(err, analysis.ErrNoSourceFiles) {
		return toolError("no C# source files found")
	}
	if err != nil {
		return toolError(err.Error())
	}

	return toolResult(&output.UnusedView{Report: report}, getFormat(input.Format))
}

func (s *Server) handleExplainRules(ctx context.Context, req *mcp.CallToolRequest, input ExplainRulesInput) (*mcp.CallToolResult, any, error) {
	return toolResult(output.NewRulesView(s.config.UsageRules()), getFormat(input.Format))
}
