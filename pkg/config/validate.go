package config

import (
	"bytes"
	_ "embed"
	encjson "encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/pelletier/go-toml"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "https://github.com/panbanda/dormant/config.schema.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			schemaErr = fmt.Errorf("invalid embedded schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			schemaErr = fmt.Errorf("invalid embedded schema: %w", err)
			return
		}
		schema, schemaErr = c.Compile(schemaURL)
	})
	return schema, schemaErr
}

// Schema returns the JSON Schema config files are validated against.
func Schema() []byte {
	return append([]byte(nil), schemaJSON...)
}

// ValidationError lists every schema violation found in a config file.
type ValidationError struct {
	Path       string
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %d violation(s): %s", e.Path, len(e.Violations), strings.Join(e.Violations, "; "))
}

// Validate checks a config file against the schema. It returns a
// *ValidationError when the file parses but does not conform.
func Validate(path string) error {
	k, err := loadRaw(path)
	if err != nil {
		return err
	}

	// Round-trip through JSON so TOML and YAML values take JSON types.
	raw, err := encjson.Marshal(k.Raw())
	if err != nil {
		return fmt.Errorf("failed to encode config %s: %w", path, err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to encode config %s: %w", path, err)
	}

	sch, err := compiledSchema()
	if err != nil {
		return err
	}

	err = sch.Validate(inst)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	return &ValidationError{Path: path, Violations: violations(ve)}
}

func violations(ve *jsonschema.ValidationError) []string {
	var out []string
	for _, unit := range ve.BasicOutput().Errors {
		if unit.Error == nil {
			continue
		}
		loc := unit.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		out = append(out, fmt.Sprintf("%s: %s", loc, unit.Error))
	}
	if len(out) == 0 {
		out = append(out, ve.Error())
	}
	return out
}

// Marshal renders cfg as TOML.
func Marshal(cfg *Config) ([]byte, error) {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// WriteDefault writes the default config as TOML to path. An existing file
// is only replaced when force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	data, err := Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	header := []byte("# dormant configuration\n# Validate with: dormant config validate " + path + "\n\n")
	return os.WriteFile(path, append(header, data...), 0o644)
}
