package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config is the complete bindkit configuration.
type Config struct {
	Log     LogConfig     `toml:"log" yaml:"log" json:"log"`
	Dump    DumpConfig    `toml:"dump" yaml:"dump" json:"dump"`
	Binding BindingConfig `toml:"binding" yaml:"binding" json:"binding"`
	Metrics MetricsConfig `toml:"metrics" yaml:"metrics" json:"metrics"`

	// Scripts are Lua files loaded at startup.
	Scripts []string `toml:"scripts" yaml:"scripts" json:"scripts"`
}

// LogConfig configures the logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level" yaml:"level" json:"level" env:"BINDKIT_LOG_LEVEL"`
	// Format is text or json.
	Format string `toml:"format" yaml:"format" json:"format" env:"BINDKIT_LOG_FORMAT"`
}

// DumpConfig configures object dumps.
type DumpConfig struct {
	// Format is json or yaml.
	Format string `toml:"format" yaml:"format" json:"format" env:"BINDKIT_DUMP_FORMAT"`
	// Indent is the number of spaces per nesting level.
	Indent int `toml:"indent" yaml:"indent" json:"indent" env:"BINDKIT_DUMP_INDENT"`
	// Color enables terminal colors in JSON dumps.
	Color bool `toml:"color" yaml:"color" json:"color" env:"BINDKIT_DUMP_COLOR"`
	// Redact lists gjson paths whose values are masked.
	Redact []string `toml:"redact" yaml:"redact" json:"redact"`
}

// BindingConfig configures the binder registry.
type BindingConfig struct {
	// DefaultGroup is the name of the group returned by Binder().
	DefaultGroup string `toml:"default_group" yaml:"default_group" json:"defaultGroup" env:"BINDKIT_DEFAULT_GROUP"`
}

// MetricsConfig configures Prometheus collectors.
type MetricsConfig struct {
	Enabled   bool   `toml:"enabled" yaml:"enabled" json:"enabled" env:"BINDKIT_METRICS_ENABLED"`
	Namespace string `toml:"namespace" yaml:"namespace" json:"namespace" env:"BINDKIT_METRICS_NAMESPACE"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Dump: DumpConfig{
			Format: "json",
			Indent: 2,
		},
		Binding: BindingConfig{
			DefaultGroup: "main",
		},
		Metrics: MetricsConfig{
			Namespace: "bindkit",
		},
	}
}

// Load reads path over the defaults and applies environment overrides.
// An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := Decode(path, data, cfg); err != nil {
				return nil, err
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode parses data into cfg using the format implied by the extension of
// name. Keys absent from data keep their current values.
func Decode(name string, data []byte, cfg *Config) error {
	format := FormatOf(name)
	var err error
	switch format {
	case "toml":
		err = toml.NewDecoder(bytes.NewReader(data)).Decode(cfg)
	case "yaml":
		err = yaml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
	if err != nil {
		return &ParseError{Path: name, Format: format, Err: err}
	}
	return nil
}

// FormatOf returns "toml" or "yaml" for a file name, or "" when the
// extension is not recognized. JSON files decode as YAML.
func FormatOf(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".toml":
		return "toml"
	case ".yaml", ".yml", ".json":
		return "yaml"
	default:
		return ""
	}
}

// ApplyEnv overrides cfg with BINDKIT_* variables that are set.
func ApplyEnv(cfg *Config) error {
	err := envdecode.Decode(cfg)
	if err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return fmt.Errorf("environment overrides: %w", err)
	}
	return nil
}

// Validate checks enumerated and ranged settings.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &ValidationError{Setting: "log.level", Value: c.Log.Level, Reason: "want debug, info, warn or error"}
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return &ValidationError{Setting: "log.format", Value: c.Log.Format, Reason: "want text or json"}
	}
	switch c.Dump.Format {
	case "json", "yaml":
	default:
		return &ValidationError{Setting: "dump.format", Value: c.Dump.Format, Reason: "want json or yaml"}
	}
	if c.Dump.Indent < 0 || c.Dump.Indent > 16 {
		return &ValidationError{Setting: "dump.indent", Value: c.Dump.Indent, Reason: "must be between 0 and 16"}
	}
	if c.Binding.DefaultGroup == "" {
		return &ValidationError{Setting: "binding.default_group", Value: c.Binding.DefaultGroup, Reason: "must not be empty"}
	}
	return nil
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	out := *c
	out.Dump.Redact = append([]string(nil), c.Dump.Redact...)
	out.Scripts = append([]string(nil), c.Scripts...)
	return &out
}
