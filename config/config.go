// Package config loads the YAML configuration of schemanorm.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"go.mercari.io/schemanorm/normalize"
)

// Config is the content of a configuration file. Command line flags
// override every field.
type Config struct {
	// Dialect names the normalizer to use, e.g. "postgres".
	Dialect string `yaml:"dialect"`

	// DefaultSchema is the schema an unqualified name belongs to.
	DefaultSchema string `yaml:"default_schema"`

	// IgnoreTables lists tables to drop from the result, as "table" or
	// "schema.table".
	IgnoreTables []string `yaml:"ignore_tables"`

	// IgnoreFields lists columns to drop from the result, as "column" or
	// "table.column".
	IgnoreFields []string `yaml:"ignore_fields"`

	// Output is the file the document is written to. Empty means stdout.
	Output string `yaml:"output"`

	// Indent pretty-prints the JSON output.
	Indent bool `yaml:"indent"`
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var cfg Config
	if err := yaml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks that the dialect, when given, is registered.
func (c *Config) Validate() error {
	if c.Dialect == "" {
		return nil
	}
	for _, d := range normalize.Dialects() {
		if d == c.Dialect {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", normalize.ErrUnknownDialect, c.Dialect)
}

// Options returns the normalizer options of c.
func (c *Config) Options() normalize.Options {
	return normalize.Options{DefaultSchema: c.DefaultSchema}
}
