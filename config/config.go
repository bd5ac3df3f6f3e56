// Package config loads slab runtime settings from YAML.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/rawbytedev/slab"
	"github.com/rawbytedev/slab/pkg/binwire"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config is the root of a slab configuration file.
type Config struct {
	Schema   SchemaConfig   `yaml:"schema"`
	Registry RegistryConfig `yaml:"registry"`
	Log      LogConfig      `yaml:"log"`
	Binary   BinaryConfig   `yaml:"binary"`
}

type SchemaConfig struct {
	// Canonical orders fields by name whenever a container's schema evolves.
	Canonical bool `yaml:"canonical"`
}

type RegistryConfig struct {
	Prealloc int `yaml:"prealloc"`
}

type LogConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

type BinaryConfig struct {
	Compression string `yaml:"compression"` // none or zstd
	Checksum    bool   `yaml:"checksum"`
}

// Default returns the settings used when no file is given.
func Default() *Config {
	return &Config{
		Schema: SchemaConfig{Canonical: true},
		Log:    LogConfig{Level: "info"},
		Binary: BinaryConfig{Compression: "none", Checksum: true},
	}
}

// Load reads path over the defaults. Keys missing from the file keep their
// default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-specified config path
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks that all values are usable.
func (c *Config) Validate() error {
	var errs []error
	if c.Registry.Prealloc < 0 {
		errs = append(errs, fmt.Errorf("registry.prealloc must be >= 0, got %d", c.Registry.Prealloc))
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch c.Binary.Compression {
	case "none", "zstd":
	default:
		errs = append(errs, fmt.Errorf("binary.compression must be none or zstd, got %q", c.Binary.Compression))
	}
	return errors.Join(errs...)
}

// RegistryOptions maps the schema and registry sections.
func (c *Config) RegistryOptions() slab.RegistryOptions {
	return slab.RegistryOptions{Canonical: c.Schema.Canonical, Prealloc: c.Registry.Prealloc}
}

// BinaryFlags maps the binary section to binwire frame flags.
func (c *Config) BinaryFlags() uint16 {
	var flags uint16
	if c.Binary.Compression == "zstd" {
		flags |= binwire.FlagZstd
	}
	if c.Binary.Checksum {
		flags |= binwire.FlagChecksum
	}
	return flags
}

// NewLogger builds a zap logger for the log section.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
