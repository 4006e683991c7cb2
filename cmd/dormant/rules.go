package main

import (
	"github.com/urfave/cli/v2"

	"github.com/panbanda/dormant/internal/output"
)

func rulesCmd() *cli.Command {
	return &cli.Command{
		Name:  "rules",
		Usage: "Show the effective exclusion rules",
		Description: `Prints the exclusion rules in evaluation order together with the controller,
usage marker and attribute settings from the defaults and the config file.`,
		Action: runRulesCmd,
	}
}

func runRulesCmd(c *cli.Context) error {
	e, err := loadEnv(c)
	if err != nil {
		return err
	}
	formatter, err := e.newFormatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()

	return formatter.Output(output.NewRulesView(e.config.UsageRules()))
}
