package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/brettbedarf/nstree/internal/util"
	"gopkg.in/yaml.v3"
)

// Bytes per MB
const MB = 1024 * 1024

// CLI log verbosity values accepted by [ConfigOverride.LogLvl]
const (
	ErrorVerbose = iota + 1
	WarnVerbose
	InfoVerbose
	DebugVerbose
	TraceVerbose
)

// Default configuration constants. See [Config] for field descriptions.
const (
	DefaultLogLvl = util.InfoLevel
	// DefaultName is given to nodes created with a name that is not valid for their kind.
	// It must be valid for every kind, so it carries no dots.
	DefaultName = "new_item"
	// DefaultWritable is the writability of nodes created from requests that don't say otherwise
	DefaultWritable = true
	// DefaultMaxFileSize is the largest size a file may be given
	DefaultMaxFileSize int64 = 1024 * MB
)

// Config contains runtime configuration values for a namespace tree.
type Config struct {
	// Internal log level (Default info)
	LogLvl util.LogLevel `validate:"gte=0,lte=4"`
	// Fallback name for nodes created with an invalid name (Default "new_item")
	DefaultName string `validate:"required,max=255,nodename"`
	// Writability for fixture nodes without an explicit flag (Default true)
	DefaultWritable bool
	// Upper bound for file sizes in bytes (Default 1GB)
	MaxFileSize int64 `validate:"gte=0"`
}

// ConfigOverride uses pointer fields to distinguish between unset and zero values
// when loading partial configuration. See [Config] for field descriptions.
type ConfigOverride struct {
	// LogLvl is CLI verbosity between 1 (error) and 5 (trace); values outside are clamped
	LogLvl          *int    `yaml:"log_lvl,omitempty" json:"log_lvl,omitempty" mapstructure:"log_lvl"`
	DefaultName     *string `yaml:"default_name,omitempty" json:"default_name,omitempty" mapstructure:"default_name"`
	DefaultWritable *bool   `yaml:"default_writable,omitempty" json:"default_writable,omitempty" mapstructure:"default_writable"`
	MaxFileSize     *int64  `yaml:"max_file_size,omitempty" json:"max_file_size,omitempty" mapstructure:"max_file_size"`
}

// NewDefaultConfig creates a new Config with all default values.
func NewDefaultConfig() *Config {
	return &Config{
		LogLvl:          DefaultLogLvl,
		DefaultName:     DefaultName,
		DefaultWritable: DefaultWritable,
		MaxFileSize:     DefaultMaxFileSize,
	}
}

// NewConfig creates a Config from defaults with override applied on top.
// A nil override yields the defaults.
func NewConfig(override *ConfigOverride) *Config {
	cfg := NewDefaultConfig()
	if override != nil {
		cfg.Merge(override)
	}
	return cfg
}

// Merge applies non-nil values from override onto this Config.
// This allows partial configuration updates while preserving existing values.
func (c *Config) Merge(override *ConfigOverride) {
	if override.LogLvl != nil {
		c.LogLvl = util.VerbosityToLogLevel(*override.LogLvl)
	}
	if override.DefaultName != nil {
		c.DefaultName = *override.DefaultName
	}
	if override.DefaultWritable != nil {
		c.DefaultWritable = *override.DefaultWritable
	}
	if override.MaxFileSize != nil {
		c.MaxFileSize = *override.MaxFileSize
	}
}

// LoadConfigOverrideFile loads configuration overrides from a file without merging.
// Supports both YAML (.yaml, .yml) and JSON (.json) formats.
func LoadConfigOverrideFile(path string) (*ConfigOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var override ConfigOverride
	// Determine format by file extension
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown config file extension: %s", path)
	}

	return &override, nil
}

// NewConfigFromFile creates a new Config by merging file overrides with defaults
// and validates the result.
func NewConfigFromFile(path string) (*Config, error) {
	override, err := LoadConfigOverrideFile(path)
	if err != nil {
		return nil, err
	}
	cfg := NewConfig(override)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
