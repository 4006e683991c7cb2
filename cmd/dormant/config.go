package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/dormant/pkg/config"
)

func configCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show the effective configuration",
				Description: `Shows the merged configuration from defaults and config file as TOML.

Examples:
  dormant config show                  # Show effective config
  dormant -c dormant.toml config show  # Show config from specific file`,
				Action: runConfigShow,
			},
			{
				Name:      "validate",
				Usage:     "Validate a configuration file",
				ArgsUsage: "[file]",
				Description: `Checks a configuration file against the configuration schema and reports
every violation.

Examples:
  dormant config validate                        # Validates default config locations
  dormant config validate dormant.toml           # Validates specific file
  dormant config validate .dormant/dormant.yaml`,
				Action: runConfigValidate,
			},
			{
				Name:   "schema",
				Usage:  "Print the configuration JSON Schema",
				Action: runConfigSchema,
			},
		},
	}
}

func runConfigShow(c *cli.Context) error {
	e, err := loadEnv(c)
	if err != nil {
		return err
	}

	w := c.App.Writer
	if e.source != "" {
		fmt.Fprintf(w, "# Configuration from: %s\n\n", e.source)
	} else {
		fmt.Fprintln(w, "# Default configuration (no config file found)")
	}

	content, err := config.Marshal(e.config)
	if err != nil {
		return err
	}
	_, err = w.Write(content)
	return err
}

func runConfigValidate(c *cli.Context) error {
	path := firstNonEmpty(c.Args().First(), c.String("config"), config.Find("."))
	w := c.App.Writer
	if path == "" {
		color.New(color.FgYellow).Fprintln(w, "No config file found. Default configuration is valid.")
		return nil
	}

	err := config.Validate(path)
	var ve *config.ValidationError
	if errors.As(err, &ve) {
		color.New(color.FgRed).Fprintf(w, "Configuration validation failed: %s\n", path)
		for _, v := range ve.Violations {
			fmt.Fprintf(w, "  - %s\n", v)
		}
		return cli.Exit(fmt.Sprintf("%d violation(s) in %s", len(ve.Violations), path), exitError)
	}
	if err != nil {
		return err
	}

	color.New(color.FgGreen).Fprintf(w, "Configuration valid: %s\n", path)
	return nil
}

func runConfigSchema(c *cli.Context) error {
	_, err := c.App.Writer.Write(config.Schema())
	return err
}
