package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/dormant/pkg/analyzer/usage"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.Rules.ExtendDefaults {
		t.Error("Rules.ExtendDefaults should be true by default")
	}
	if !cfg.Exclude.Gitignore {
		t.Error("Exclude.Gitignore should be true by default")
	}
	if len(cfg.Exclude.Dirs) == 0 {
		t.Error("Exclude.Dirs should have default values")
	}
	if !cfg.Cache.Enabled {
		t.Error("Cache.Enabled should be true by default")
	}
	if cfg.Output.Format != "text" {
		t.Errorf("Output.Format = %s, want text", cfg.Output.Format)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %s, want warn", cfg.LogLevel)
	}

	rules := cfg.UsageRules()
	assert.Equal(t, usage.DefaultRules(), rules)
	assert.Contains(t, rules.ControllerBaseTypes, "Microsoft.AspNetCore.Mvc.ControllerBase")
	assert.Contains(t, rules.ControllerAttributes, "System.Web.Http.ApiControllerAttribute")
	assert.Contains(t, rules.UsageMarkers, "UsedImplicitly")
}

func TestLoadTOML(t *testing.T) {
	path := writeConfig(t, "dormant.toml", `
log_level = "debug"

[analysis]
workers = 4
kinds = ["method", "field"]

[rules]
usage_markers = ["Inject"]

[exclude]
dirs = ["generated"]

[cache]
enabled = false

[output]
format = "json"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 4, cfg.Analysis.Workers)
	assert.Equal(t, []string{"method", "field"}, cfg.Analysis.Kinds)
	assert.Equal(t, []string{"generated"}, cfg.Exclude.Dirs, "a list in the file replaces the default")
	assert.True(t, cfg.Exclude.Gitignore, "absent keys keep defaults")
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, "json", cfg.Output.Format)

	rules := cfg.UsageRules()
	assert.Contains(t, rules.UsageMarkers, "Inject")
	assert.Contains(t, rules.UsageMarkers, "UsedImplicitly")
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "dormant.yaml", `
rules:
  extend_defaults: false
  controller_base_types:
    - MyApp.Web.BaseController
analysis:
  workers: 2
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Analysis.Workers)

	rules := cfg.UsageRules()
	assert.Equal(t, []string{"MyApp.Web.BaseController"}, rules.ControllerBaseTypes)
	assert.Empty(t, rules.UsageMarkers)
	assert.Equal(t, usage.DefaultControllerSuffix, rules.ControllerSuffix)
	assert.Equal(t, usage.DefaultAttributeBaseType, rules.AttributeBaseType)
}

func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, "dormant.json", `{"output": {"format": "toon", "color": false}, "cache": {"ttl": 12}}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "toon", cfg.Output.Format)
	assert.False(t, cfg.Output.Color)
	assert.Equal(t, 12, cfg.Cache.TTL)
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("Load() should return error for non-existent file")
	}

	path := writeConfig(t, "dormant.toml", "this is not [valid toml")
	if _, err := Load(path); err == nil {
		t.Error("Load() should return error for invalid file")
	}
}

func TestLoadConfigSearch(t *testing.T) {
	dir := t.TempDir()

	result, err := LoadConfig(WithDir(dir))
	require.NoError(t, err)
	assert.Empty(t, result.Source)
	assert.Equal(t, DefaultConfig(), result.Config)

	nested := filepath.Join(dir, ".dormant")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	path := filepath.Join(nested, "dormant.toml")
	require.NoError(t, os.WriteFile(path, []byte("log_level = \"error\"\n"), 0o644))

	result, err = LoadConfig(WithDir(dir))
	require.NoError(t, err)
	assert.Equal(t, path, result.Source)
	assert.Equal(t, "error", result.Config.LogLevel)

	_, err = LoadConfig(WithPath(filepath.Join(dir, "nope.toml")))
	assert.Error(t, err)
}

func TestShouldExclude(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		path string
		want bool
	}{
		{"src/Order.cs", false},
		{"obj/Debug/net8.0/App.AssemblyInfo.cs", true},
		{"src/bin/Tool.cs", true},
		{"src/Form1.Designer.cs", true},
		{"src/Views/Index.g.cs", true},
		{"src/binary/Reader.cs", false},
		{"Obj.cs", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := cfg.ShouldExclude(tt.path); got != tt.want {
				t.Errorf("ShouldExclude(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := writeConfig(t, "dormant.toml", `
log_level = "info"

[analysis]
workers = 8
kinds = ["type"]
`)
	assert.NoError(t, Validate(valid))

	invalid := writeConfig(t, "dormant.yaml", `
analysis:
  workers: many
  kinds: [widget]
output:
  format: html
unknown: 1
`)
	err := Validate(invalid)
	require.Error(t, err)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, invalid, ve.Path)
	assert.GreaterOrEqual(t, len(ve.Violations), 3)

	joined := ve.Error()
	assert.Contains(t, joined, "/analysis/workers")
	assert.Contains(t, joined, "/output/format")
}

func TestWriteDefaultRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dormant.toml")
	require.NoError(t, WriteDefault(path, false))

	assert.NoError(t, Validate(path))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Exclude, cfg.Exclude)
	assert.Equal(t, DefaultConfig().Output, cfg.Output)

	assert.Error(t, WriteDefault(path, false), "existing file is kept without force")
	assert.NoError(t, WriteDefault(path, true))
}

func TestExcludesDir(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, cfg.ExcludesDir("obj"))
	assert.True(t, cfg.ExcludesDir("src/bin/Debug"))
	assert.False(t, cfg.ExcludesDir("src/Orders"))
}
