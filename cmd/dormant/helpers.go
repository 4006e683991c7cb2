package main

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/dormant/internal/cache"
	"github.com/panbanda/dormant/internal/frontend/csharp"
	"github.com/panbanda/dormant/internal/logging"
	"github.com/panbanda/dormant/internal/output"
	"github.com/panbanda/dormant/pkg/config"
)

// getPaths returns paths from positional args, defaulting to ["."]
func getPaths(c *cli.Context) []string {
	if c.Args().Len() > 0 {
		return c.Args().Slice()
	}
	return []string{"."}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// env is the configuration and logger shared by every command.
type env struct {
	config *config.Config
	source string
	logger *slog.Logger
}

func loadEnv(c *cli.Context) (*env, error) {
	var opts []config.LoadOption
	if path := c.String("config"); path != "" {
		opts = append(opts, config.WithPath(path))
	}
	result, err := config.LoadConfig(opts...)
	if err != nil {
		return nil, err
	}

	level := logging.Resolve(firstNonEmpty(c.String("log-level"), result.Config.LogLevel), c.Bool("verbose"))
	e := &env{
		config: result.Config,
		source: result.Source,
		logger: logging.New(c.App.ErrWriter, level),
	}
	if e.source != "" {
		e.logger.Debug("loaded config", "path", e.source)
	}
	return e, nil
}

// openCache returns the facts cache, or nil when caching is off.
func (e *env) openCache(c *cli.Context) csharp.Cache {
	if c.Bool("no-cache") || !e.config.Cache.Enabled {
		return nil
	}
	fc, err := cache.New(e.config.Cache.Dir, e.config.Cache.TTL, true)
	if err != nil {
		e.logger.Warn("cache disabled", "error", err)
		return nil
	}
	return fc
}

func (e *env) format(c *cli.Context) (output.Format, error) {
	name := firstNonEmpty(c.String("format"), e.config.Output.Format, string(output.FormatText))
	format := output.ParseFormat(name)
	if name != "md" && name != "yml" && !slices.Contains(output.Formats, output.Format(name)) {
		return "", fmt.Errorf("unknown output format %q", name)
	}
	return format, nil
}

// newFormatter writes to --output when set, otherwise to the app writer.
func (e *env) newFormatter(c *cli.Context) (*output.Formatter, error) {
	format, err := e.format(c)
	if err != nil {
		return nil, err
	}
	colored := e.config.Output.Color && !color.NoColor
	if path := c.String("output"); path != "" {
		return output.NewFormatter(format, path, colored)
	}
	return output.NewWriterFormatter(format, c.App.Writer, colored), nil
}
