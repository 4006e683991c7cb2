package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/panbanda/dormant/pkg/analyzer/usage"
)

// Config holds all configuration options for dormant.
type Config struct {
	// Analysis settings
	Analysis AnalysisConfig `koanf:"analysis" toml:"analysis"`

	// Exclusion rule lists
	Rules RulesConfig `koanf:"rules" toml:"rules"`

	// File exclusion patterns
	Exclude ExcludeConfig `koanf:"exclude" toml:"exclude"`

	// Cache settings
	Cache CacheConfig `koanf:"cache" toml:"cache"`

	// Output settings
	Output OutputConfig `koanf:"output" toml:"output"`

	LogLevel string `koanf:"log_level" toml:"log_level"`
}

// AnalysisConfig controls how a pass runs.
type AnalysisConfig struct {
	Workers     int      `koanf:"workers" toml:"workers"` // 0 means NumCPU
	Kinds       []string `koanf:"kinds" toml:"kinds"`     // empty reports every tracked kind
	MaxFileSize int64    `koanf:"max_file_size" toml:"max_file_size"`
}

// RulesConfig configures the exclusion rules. With ExtendDefaults set, the
// lists are appended to the built-in ones; otherwise they replace them.
type RulesConfig struct {
	ExtendDefaults       bool     `koanf:"extend_defaults" toml:"extend_defaults"`
	ControllerBaseTypes  []string `koanf:"controller_base_types" toml:"controller_base_types"`
	ControllerAttributes []string `koanf:"controller_attributes" toml:"controller_attributes"`
	ControllerSuffix     string   `koanf:"controller_suffix" toml:"controller_suffix"`
	UsageMarkers         []string `koanf:"usage_markers" toml:"usage_markers"`
	AttributeBaseType    string   `koanf:"attribute_base_type" toml:"attribute_base_type"`
}

// ExcludeConfig defines file exclusion patterns.
type ExcludeConfig struct {
	Patterns  []string `koanf:"patterns" toml:"patterns"`
	Dirs      []string `koanf:"dirs" toml:"dirs"`
	Gitignore bool     `koanf:"gitignore" toml:"gitignore"`
}

// CacheConfig controls caching behavior.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled" toml:"enabled"`
	Dir     string `koanf:"dir" toml:"dir"`
	TTL     int    `koanf:"ttl" toml:"ttl"` // TTL in hours
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format string `koanf:"format" toml:"format"` // text, json, markdown, yaml, toon
	Color  bool   `koanf:"color" toml:"color"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Rules: RulesConfig{
			ExtendDefaults:       true,
			ControllerBaseTypes:  []string{},
			ControllerAttributes: []string{},
			UsageMarkers:         []string{},
		},
		Exclude: ExcludeConfig{
			Patterns: []string{
				"*.g.cs",
				"*.g.i.cs",
				"*.designer.cs",
				"*.Designer.cs",
				"*.AssemblyInfo.cs",
			},
			Dirs: []string{
				"bin",
				"obj",
				".git",
				".vs",
				".dormant",
				"packages",
				"node_modules",
			},
			Gitignore: true,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".dormant/cache",
			TTL:     0,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
		LogLevel: "warn",
	}
}

// UsageRules returns the engine rule lists this config selects.
func (c *Config) UsageRules() usage.Rules {
	custom := usage.Rules{
		ControllerBaseTypes:  c.Rules.ControllerBaseTypes,
		ControllerAttributes: c.Rules.ControllerAttributes,
		ControllerSuffix:     c.Rules.ControllerSuffix,
		UsageMarkers:         c.Rules.UsageMarkers,
		AttributeBaseType:    c.Rules.AttributeBaseType,
	}
	if c.Rules.ExtendDefaults {
		return usage.DefaultRules().Merge(custom)
	}
	// Replacing still needs the scalars to be set.
	return usage.Rules{
		ControllerSuffix:  usage.DefaultControllerSuffix,
		AttributeBaseType: usage.DefaultAttributeBaseType,
	}.Merge(custom)
}

func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser()
	case ".json":
		return json.Parser()
	default:
		return toml.Parser()
	}
}

func loadRaw(path string) (*koanf.Koanf, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	return k, nil
}

// Load loads configuration from a file. Keys absent from the file keep their
// default values.
func Load(path string) (*Config, error) {
	k, err := loadRaw(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	// A list in the file replaces the default list.
	conf := koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
			WeaklyTypedInput: true,
			ZeroFields:       true,
			Result:           cfg,
		},
	}
	if err := k.UnmarshalWithConf("", cfg, conf); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	return cfg, nil
}

// FileNames are the config file names searched for, in order.
var FileNames = []string{
	"dormant.toml",
	"dormant.yaml",
	"dormant.yml",
	"dormant.json",
	".dormant.toml",
	".dormant.yaml",
	".dormant.yml",
	".dormant.json",
}

// Find returns the first config file under dir or dir/.dormant, or "".
func Find(dir string) string {
	for _, d := range []string{dir, filepath.Join(dir, ".dormant")} {
		for _, name := range FileNames {
			path := filepath.Join(d, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path
			}
		}
	}
	return ""
}

// LoadResult is a loaded config and where it came from.
type LoadResult struct {
	Config *Config
	Source string // empty when defaults were used
}

type loadOptions struct {
	path string
	dir  string
}

// LoadOption configures LoadConfig.
type LoadOption func(*loadOptions)

// WithPath loads exactly this file. A missing file is an error.
func WithPath(path string) LoadOption {
	return func(o *loadOptions) { o.path = path }
}

// WithDir searches this directory instead of the working directory.
func WithDir(dir string) LoadOption {
	return func(o *loadOptions) { o.dir = dir }
}

// LoadConfig resolves and loads the effective configuration.
func LoadConfig(opts ...LoadOption) (*LoadResult, error) {
	o := loadOptions{dir: "."}
	for _, opt := range opts {
		opt(&o)
	}

	path := o.path
	if path == "" {
		path = Find(o.dir)
		if path == "" {
			return &LoadResult{Config: DefaultConfig()}, nil
		}
	} else if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &LoadResult{Config: cfg, Source: path}, nil
}

// LoadOrDefault tries to load config from standard locations or returns
// defaults.
func LoadOrDefault() *Config {
	result, err := LoadConfig()
	if err != nil {
		return DefaultConfig()
	}
	return result.Config
}

// ShouldExclude checks a relative path against the excluded directories and
// file name patterns.
func (c *Config) ShouldExclude(path string) bool {
	parts := strings.Split(filepath.ToSlash(path), "/")
	for _, part := range parts[:len(parts)-1] {
		if c.excludedDir(part) {
			return true
		}
	}

	base := parts[len(parts)-1]
	for _, pattern := range c.Exclude.Patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}

// ExcludesDir reports whether a relative directory path is excluded.
func (c *Config) ExcludesDir(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if c.excludedDir(part) {
			return true
		}
	}
	return false
}

func (c *Config) excludedDir(name string) bool {
	for _, dir := range c.Exclude.Dirs {
		if name == dir {
			return true
		}
	}
	return false
}
