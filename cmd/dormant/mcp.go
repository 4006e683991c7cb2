package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/dormant/internal/mcpserver"
)

func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Start MCP (Model Context Protocol) server for LLM tool integration",
		Description: `Starts an MCP server over stdio transport that exposes the unused-symbol
analysis as tools that LLMs can invoke.

To use with Claude Desktop, add to your config:
  {
    "mcpServers": {
      "dormant": {
        "command": "dormant",
        "args": ["mcp"]
      }
    }
  }

Available tools:
  - find_unused_symbols       Unused C# types and members under some paths
  - explain_exclusion_rules   Rules that keep symbols out of the report`,
		Action: runMCPCmd,
		Subcommands: []*cli.Command{
			{
				Name:   "manifest",
				Usage:  "Print the MCP registry manifest (server.json)",
				Action: runMCPManifest,
			},
		},
	}
}

func runMCPCmd(c *cli.Context) error {
	e, err := loadEnv(c)
	if err != nil {
		return err
	}
	server := mcpserver.NewServer(version,
		mcpserver.WithConfig(e.config),
		mcpserver.WithLogger(e.logger),
		mcpserver.WithCache(e.openCache(c)),
	)
	return server.Run(c.Context)
}

func runMCPManifest(c *cli.Context) error {
	data, err := mcpserver.GenerateManifest(version)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, string(data))
	return err
}
