package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/dormant/internal/output"
	"github.com/panbanda/dormant/pkg/config"
)

func initCmd() *cli.Command {
	return &cli.Command{
		Name:      "init",
		Usage:     "Initialize a new dormant configuration file",
		ArgsUsage: "[file]",
		Description: `Creates a dormant.toml configuration file with the default settings.

Examples:
  dormant init                          # Creates dormant.toml in current directory
  dormant init .dormant/dormant.toml    # Creates config in .dormant directory
  dormant init --force                  # Overwrite existing config file`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite existing config file",
			},
		},
		Action: runInitCmd,
	}
}

func runInitCmd(c *cli.Context) error {
	path := firstNonEmpty(c.Args().First(), "dormant.toml")

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %q: %w", dir, err)
		}
	}
	if err := config.WriteDefault(path, c.Bool("force")); err != nil {
		return err
	}

	f := output.NewWriterFormatter(output.FormatText, c.App.Writer, false)
	f.Success("Created %s", path)
	return nil
}
