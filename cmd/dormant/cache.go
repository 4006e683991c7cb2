package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/dormant/internal/cache"
	"github.com/panbanda/dormant/internal/output"
)

func cacheCmd() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Manage the extracted-facts cache",
		Subcommands: []*cli.Command{
			{
				Name:   "clear",
				Usage:  "Delete every cache entry",
				Action: runCacheClear,
			},
			{
				Name:   "stats",
				Usage:  "Show cache size and entry ages",
				Action: runCacheStats,
			},
		},
	}
}

func openCacheDir(c *cli.Context) (*cache.Cache, *env, error) {
	e, err := loadEnv(c)
	if err != nil {
		return nil, nil, err
	}
	fc, err := cache.New(e.config.Cache.Dir, e.config.Cache.TTL, true)
	if err != nil {
		return nil, nil, err
	}
	return fc, e, nil
}

func runCacheClear(c *cli.Context) error {
	fc, _, err := openCacheDir(c)
	if err != nil {
		return err
	}
	if err := fc.Clear(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	output.NewWriterFormatter(output.FormatText, c.App.Writer, false).Success("Cleared %s", fc.Dir())
	return nil
}

func runCacheStats(c *cli.Context) error {
	fc, e, err := openCacheDir(c)
	if err != nil {
		return err
	}
	stats, err := fc.GetStats()
	if err != nil {
		return err
	}

	formatter, err := e.newFormatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()

	rows := [][]string{
		{"Directory", fc.Dir()},
		{"Entries", strconv.Itoa(stats.Entries)},
		{"Total size", strconv.FormatInt(stats.TotalSize, 10) + " bytes"},
		{"Oldest entry", stats.OldestAge.Round(time.Second).String()},
		{"Newest entry", stats.NewestAge.Round(time.Second).String()},
	}
	return formatter.Output(output.NewTable("Cache", []string{"Metric", "Value"}, rows, nil, stats))
}
