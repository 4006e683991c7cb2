package mcpserver

import "encoding/json"

const manifestSchema = "https://static.modelcontextprotocol.io/schemas/2025-10-17/server.schema.json"

// Manifest is the registry entry (server.json) for the dormant MCP server.
type Manifest struct {
	Schema      string         `json:"$schema"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Version     string         `json:"version"`
	Repository  *Repository    `json:"repository,omitempty"`
	Packages    []Package      `json:"packages,omitempty"`
	Tools       []ManifestTool `json:"tools,omitempty"`
}

// Repository points at the source repository.
type Repository struct {
	URL    string `json:"url"`
	Source string `json:"source"`
}

// Package is the container image that runs `dormant mcp`.
type Package struct {
	RegistryType         string        `json:"registryType"`
	Identifier           string        `json:"identifier"`
	PackageArguments     []Argument    `json:"packageArguments,omitempty"`
	EnvironmentVariables []EnvVariable `json:"environmentVariables,omitempty"`
	Transport            Transport     `json:"transport"`
}

// Argument is a positional argument passed to the image.
type Argument struct {
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
}

// EnvVariable is an environment variable the server reads.
type EnvVariable struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsRequired  bool   `json:"isRequired"`
}

// Transport is always stdio.
type Transport struct {
	Type string `json:"type"`
}

// ManifestTool summarizes one registered tool.
type ManifestTool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// manifestTools lists the tools registerTools adds, in the same order.
var manifestTools = []ManifestTool{
	{Name: toolFindUnused, Description: "Report C# types and members that are declared but never referenced (USG001)"},
	{Name: toolExplainRules, Description: "List the exclusion rules that keep symbols out of USG001 findings"},
}

// GenerateManifest renders the manifest for version as indented JSON.
func GenerateManifest(version string) ([]byte, error) {
	if version == "" {
		version = "0.0.0"
	}

	return json.MarshalIndent(Manifest{
		Schema:      manifestSchema,
		Name:        "io.github.panbanda/dormant",
		Description: "Unused-symbol detection for C# codebases",
		Version:     version,
		Repository: &Repository{
			URL:    "https://github.com/panbanda/dormant",
			Source: "github",
		},
		Packages: []Package{{
			RegistryType:     "oci",
			Identifier:       "ghcr.io/panbanda/dormant:" + version,
			PackageArguments: []Argument{{Type: "positional", Value: "mcp"}},
			EnvironmentVariables: []EnvVariable{{
				Name:        "DORMANT_CONFIG",
				Description: "Path to a dormant.toml, .yaml or .json config file",
			}},
			Transport: Transport{Type: "stdio"},
		}},
		Tools: manifestTools,
	}, "", "  ")
}
