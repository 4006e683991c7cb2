package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/dormant/internal/output"
	"github.com/panbanda/dormant/internal/progress"
	"github.com/panbanda/dormant/internal/service/analysis"
	scannerSvc "github.com/panbanda/dormant/internal/service/scanner"
	"github.com/panbanda/dormant/pkg/models"
	"github.com/panbanda/dormant/pkg/symbol"
)

func analyzeCmd() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Aliases:   []string{"a"},
		Usage:     "Report unused symbols",
		ArgsUsage: "[path...]",
		Description: `Analyzes every C# file under the given paths as one compilation and
reports symbols that nothing references.

Examples:
  dormant analyze                          # Current directory
  dormant analyze src tests                # Several roots, analyzed together
  dormant analyze --kind method -f json .  # Only unused methods, as JSON
  dormant analyze --fail-on-findings .     # Exit 2 when anything is unused`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Number of parallel workers (default from config, 0 = number of CPUs)",
			},
			&cli.BoolFlag{
				Name:  "fail-on-findings",
				Usage: "Exit with status 2 when unused symbols are found",
			},
			&cli.StringSliceFlag{
				Name:    "kind",
				Aliases: []string{"k"},
				Usage:   "Only report these kinds: type, method, property, field, event",
			},
			&cli.BoolFlag{
				Name:  "no-progress",
				Usage: "Hide the progress bar",
			},
		},
		Action: runAnalyzeCmd,
	}
}

// analyzeRun holds what one analysis needs, so watch can repeat it.
type analyzeRun struct {
	env      *env
	paths    []string
	service  *analysis.Service
	workers  int
	kinds    []symbol.Kind
	progress bool
}

func newAnalyzeRun(c *cli.Context, e *env, paths []string) (*analyzeRun, error) {
	var kinds []symbol.Kind
	if c.IsSet("kind") {
		var err error
		if kinds, err = analysis.ParseKinds(c.StringSlice("kind")); err != nil {
			return nil, err
		}
	}
	return &analyzeRun{
		env:   e,
		paths: paths,
		service: analysis.New(
			analysis.WithConfig(e.config),
			analysis.WithLogger(e.logger),
			analysis.WithCache(e.openCache(c)),
		),
		workers:  c.Int("workers"),
		kinds:    kinds,
		progress: !c.Bool("no-progress"),
	}, nil
}

// execute scans, analyzes and prints one report. A nil report with a nil
// error means there was nothing to analyze.
func (r *analyzeRun) execute(ctx context.Context, c *cli.Context) (*models.UnusedReport, error) {
	formatter, err := r.env.newFormatter(c)
	if err != nil {
		return nil, err
	}
	defer formatter.Close()

	scanResult, err := scannerSvc.New(scannerSvc.WithConfig(r.env.config)).ScanPaths(r.paths)
	if err != nil {
		return nil, err
	}
	if scanResult.Oversized > 0 {
		r.env.logger.Info("skipped files above max_file_size", "count", scanResult.Oversized)
	}
	if len(scanResult.Files) == 0 {
		output.NewWriterFormatter(output.FormatText, c.App.ErrWriter, formatter.Colored()).Warning("No C# source files found")
		return nil, nil
	}

	var tracker *progress.Tracker
	if r.progress {
		tracker = progress.NewTracker("Analyzing C# files...", len(scanResult.Files), progress.WithWriter(c.App.ErrWriter))
	}
	report, err := r.service.AnalyzeUnused(ctx, scanResult.Files, analysis.AnalyzeOptions{
		Workers:    r.workers,
		Kinds:      r.kinds,
		OnProgress: tracker.Tick,
	})
	if err != nil {
		tracker.FinishError(err)
		return nil, err
	}
	tracker.FinishSuccess()

	if err := formatter.Output(&output.UnusedView{Report: report}); err != nil {
		return nil, fmt.Errorf("failed to write report: %w", err)
	}
	return report, nil
}

func runAnalyzeCmd(c *cli.Context) error {
	e, err := loadEnv(c)
	if err != nil {
		return err
	}
	r, err := newAnalyzeRun(c, e, getPaths(c))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := r.execute(ctx, c)
	if err != nil {
		return err
	}
	if report != nil && report.Summary.TotalUnused > 0 && c.Bool("fail-on-findings") {
		return cli.Exit("", exitFindings)
	}
	return nil
}
