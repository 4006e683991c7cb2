package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/dormant/pkg/watch"
)

func watchCmd() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Re-run the analysis whenever C# files change",
		ArgsUsage: "[path]",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "debounce",
				Value: watch.DefaultDebounce,
				Usage: "Quiet period before re-analyzing",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Number of parallel workers (default from config, 0 = number of CPUs)",
			},
			&cli.StringSliceFlag{
				Name:    "kind",
				Aliases: []string{"k"},
				Usage:   "Only report these kinds: type, method, property, field, event",
			},
		},
		Action: runWatchCmd,
	}
}

func runWatchCmd(c *cli.Context) error {
	e, err := loadEnv(c)
	if err != nil {
		return err
	}

	root, err := filepath.Abs(c.Args().First())
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	r, err := newAnalyzeRun(c, e, []string{root})
	if err != nil {
		return err
	}
	r.progress = false

	watcher, err := watch.NewWatcher(root, e.config,
		watch.WithDebounce(c.Duration("debounce")),
		watch.WithLogger(e.logger))
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Stop()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	analyzeOnce := func() {
		if _, err := r.execute(ctx, c); err != nil && ctx.Err() == nil {
			color.New(color.FgRed).Fprintf(c.App.ErrWriter, "Error: %v\n", err)
		}
	}

	analyzeOnce()
	watcher.SetCallback(func(paths []string) {
		fmt.Fprintf(c.App.ErrWriter, "\n%d file(s) changed, re-analyzing...\n", len(paths))
		analyzeOnce()
	})

	color.New(color.FgCyan).Fprintf(c.App.ErrWriter, "Watching %s for changes (Ctrl+C to stop)\n", root)
	if err := watcher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
